package gamification

import (
	"context"
	"errors"
	"sync"

	"github.com/example/readbot/pkg/models"
)

type fakeStore struct {
	mu           sync.Mutex
	profiles     map[string]*models.Profile
	finished     map[string]int
	notes        map[string]map[models.NoteSource]int
	reviewed     map[string]int
	pages        map[string]map[models.Date]int
	achievements map[string][]string
	insertErr    error
	insertCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles:     make(map[string]*models.Profile),
		finished:     make(map[string]int),
		notes:        make(map[string]map[models.NoteSource]int),
		reviewed:     make(map[string]int),
		pages:        make(map[string]map[models.Date]int),
		achievements: make(map[string][]string),
	}
}

func (s *fakeStore) addProfile(p models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = &p
}

func (s *fakeStore) profile(id string) models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.profiles[id]
}

func (s *fakeStore) MutateProfile(ctx context.Context, userID string, fn func(p *models.Profile) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return models.ErrProfileNotFound
	}
	working := *p
	changed, err := fn(&working)
	if err != nil {
		return err
	}
	if changed {
		*p = working
	}
	return nil
}

func (s *fakeStore) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, models.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) CountFinishedBooks(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished[userID], nil
}

func (s *fakeStore) CountNotes(ctx context.Context, userID string, source models.NoteSource) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if source != "" {
		return s.notes[userID][source], nil
	}
	total := 0
	for _, n := range s.notes[userID] {
		total += n
	}
	return total, nil
}

func (s *fakeStore) CountReviewedCards(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reviewed[userID], nil
}

func (s *fakeStore) PagesByDate(ctx context.Context, userID string) (map[models.Date]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[models.Date]int)
	for d, n := range s.pages[userID] {
		out[d] = n
	}
	return out, nil
}

func (s *fakeStore) EarnedAchievementTypes(ctx context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.achievements[userID]...), nil
}

func (s *fakeStore) InsertAchievement(ctx context.Context, a *models.Achievement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	if s.insertErr != nil && s.insertCalls > 1 {
		return false, s.insertErr
	}
	for _, t := range s.achievements[a.UserID] {
		if t == a.Type {
			return false, nil
		}
	}
	s.achievements[a.UserID] = append(s.achievements[a.UserID], a.Type)
	return true, nil
}

var errBoom = errors.New("boom")
