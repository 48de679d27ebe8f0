package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{399, 2},
		{400, 3},
		{899, 3},
		{900, 4},
		{10000, 11},
		{-50, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Level(tt.xp), "xp %d", tt.xp)
	}
}

func TestLevelBounds(t *testing.T) {
	prev := Level(0)
	for xp := 0; xp <= 50000; xp++ {
		l := Level(xp)
		assert.GreaterOrEqual(t, l, prev, "level must not decrease at xp %d", xp)
		if XPFloor(l) > xp || xp >= XPCeil(l) {
			t.Fatalf("xp %d outside level %d bounds [%d, %d)", xp, l, XPFloor(l), XPCeil(l))
		}
		prev = l
	}
}

func TestProgress(t *testing.T) {
	p := Progress(0)
	assert.Equal(t, LevelProgress{Level: 1, Current: 0, Needed: 100, Percentage: 0}, p)

	p = Progress(250)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 150, p.Current)
	assert.Equal(t, 300, p.Needed)
	assert.InDelta(t, 50.0, p.Percentage, 1e-9)

	p = Progress(400)
	assert.Equal(t, 3, p.Level)
	assert.Equal(t, 0, p.Current)
	assert.Equal(t, 500, p.Needed)
}

func TestReadingXP(t *testing.T) {
	assert.Equal(t, 20, ReadingXP(10, nil))
	assert.Equal(t, 20, ReadingXP(10, &StreakResult{Streak: 4, IsNew: false}))
	assert.Equal(t, 40, ReadingXP(10, &StreakResult{Streak: 4, IsNew: true}))
}
