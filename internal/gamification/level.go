package gamification

import "math"

// Level returns the progression tier for xp: floor(sqrt(xp/100)) + 1.
func Level(xp int) int {
	if xp < 0 {
		xp = 0
	}
	l := int(math.Sqrt(float64(xp) / 100))
	// guard against float rounding near perfect squares
	for (l+1)*(l+1)*100 <= xp {
		l++
	}
	for l > 0 && l*l*100 > xp {
		l--
	}
	return l + 1
}

// XPFloor is the xp at which level begins.
func XPFloor(level int) int {
	return (level - 1) * (level - 1) * 100
}

// XPCeil is the xp at which the level after level begins.
func XPCeil(level int) int {
	return level * level * 100
}

// LevelProgress describes how far a user is into the current level.
type LevelProgress struct {
	Level      int
	Current    int
	Needed     int
	Percentage float64
}

// Progress returns the position of xp inside its level.
func Progress(xp int) LevelProgress {
	level := Level(xp)
	floor := XPFloor(level)
	current := xp - floor
	needed := XPCeil(level) - floor
	return LevelProgress{
		Level:      level,
		Current:    current,
		Needed:     needed,
		Percentage: math.Min(float64(current)/float64(needed)*100, 100),
	}
}
