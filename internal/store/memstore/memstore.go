// Package memstore is an in-memory event store intended for local development and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/focusnest/study-service/internal/achievement"
	"github.com/focusnest/study-service/internal/profile"
	"github.com/focusnest/study-service/internal/study"
)

// Store keeps every record in maps guarded by one RWMutex.
type Store struct {
	mu           sync.RWMutex
	tasks        map[string]study.Task
	sessions     map[string]study.FocusSession
	stats        map[string]study.StudyStat
	trees        map[string]study.FocusTree
	achievements map[string]achievement.Achievement // badge_type -> achievement
	profiles     map[string]profile.Profile
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		tasks:        make(map[string]study.Task),
		sessions:     make(map[string]study.FocusSession),
		stats:        make(map[string]study.StudyStat),
		trees:        make(map[string]study.FocusTree),
		achievements: make(map[string]achievement.Achievement),
		profiles:     make(map[string]profile.Profile),
	}
}

// ===== Tasks =====

func (s *Store) CreateTask(_ context.Context, t study.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[t.ID]; exists {
		return study.ErrConflict
	}
	s.tasks[t.ID] = t
	return nil
}

func (s *Store) GetTask(_ context.Context, id string) (study.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return study.Task{}, study.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTasks(_ context.Context, f study.TaskFilter) ([]study.Task, error) {
	s.mu.RLock()
	out := make([]study.Task, 0)
	for _, t := range s.tasks {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountTasks(_ context.Context, f study.TaskFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, t := range s.tasks {
		if f.Matches(t) {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpdateTask(_ context.Context, id string, patch study.TaskPatch) (study.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return study.Task{}, study.ErrNotFound
	}
	t = patch.Apply(t)
	s.tasks[id] = t
	return t, nil
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return study.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

// ===== Sessions =====

func (s *Store) CreateSession(_ context.Context, fs study.FocusSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[fs.ID]; exists {
		return study.ErrConflict
	}
	s.sessions[fs.ID] = fs
	return nil
}

func (s *Store) ListSessions(_ context.Context, f study.SessionFilter) ([]study.FocusSession, error) {
	s.mu.RLock()
	out := make([]study.FocusSession, 0)
	for _, fs := range s.sessions {
		if f.Matches(fs) {
			out = append(out, fs)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountSessions(_ context.Context, f study.SessionFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, fs := range s.sessions {
		if f.Matches(fs) {
			n++
		}
	}
	return n, nil
}

func (s *Store) DistinctSessionDates(_ context.Context, f study.SessionFilter) ([]string, error) {
	s.mu.RLock()
	seen := make(map[string]struct{})
	for _, fs := range s.sessions {
		if f.Matches(fs) {
			seen[fs.Date] = struct{}{}
		}
	}
	s.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) SumSessionMinutes(_ context.Context, f study.SessionFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, fs := range s.sessions {
		if f.Matches(fs) {
			total += fs.DurationMinutes
		}
	}
	return total, nil
}

// ===== Study stats =====

func (s *Store) CreateStat(_ context.Context, st study.StudyStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.stats[st.ID]; exists {
		return study.ErrConflict
	}
	s.stats[st.ID] = st
	return nil
}

func (s *Store) ListStats(_ context.Context, f study.StatFilter) ([]study.StudyStat, error) {
	s.mu.RLock()
	out := make([]study.StudyStat, 0)
	for _, st := range s.stats {
		if f.Matches(st) {
			out = append(out, st)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SumStats(_ context.Context, f study.StatFilter) (study.StatTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totals study.StatTotals
	for _, st := range s.stats {
		if f.Matches(st) {
			addStat(&totals, st)
		}
	}
	return totals, nil
}

func (s *Store) SumStatsBySubject(_ context.Context, f study.StatFilter) ([]study.SubjectTotals, error) {
	s.mu.RLock()
	bySubject := make(map[string]*study.SubjectTotals)
	for _, st := range s.stats {
		if !f.Matches(st) {
			continue
		}
		agg, ok := bySubject[st.Subject]
		if !ok {
			agg = &study.SubjectTotals{Subject: st.Subject}
			bySubject[st.Subject] = agg
		}
		addStat(&agg.StatTotals, st)
	}
	s.mu.RUnlock()

	out := make([]study.SubjectTotals, 0, len(bySubject))
	for _, agg := range bySubject {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out, nil
}

func addStat(t *study.StatTotals, st study.StudyStat) {
	t.Questions += st.QuestionsSolved
	t.Correct += st.CorrectAnswers
	t.Minutes += st.TimeSpentMinutes
}

// ===== Focus trees =====

func (s *Store) CreateTree(_ context.Context, t study.FocusTree) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.trees[t.ID]; exists {
		return study.ErrConflict
	}
	s.trees[t.ID] = t
	return nil
}

func (s *Store) ListTrees(_ context.Context, f study.TreeFilter) ([]study.FocusTree, error) {
	s.mu.RLock()
	out := make([]study.FocusTree, 0)
	for _, t := range s.trees {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ===== Achievements =====

func (s *Store) CreateAchievement(_ context.Context, a achievement.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.achievements[a.BadgeType]; exists {
		return achievement.ErrAlreadyEarned
	}
	s.achievements[a.BadgeType] = a
	return nil
}

func (s *Store) ListAchievements(_ context.Context) ([]achievement.Achievement, error) {
	s.mu.RLock()
	out := make([]achievement.Achievement, 0, len(s.achievements))
	for _, a := range s.achievements {
		out = append(out, a)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].EarnedDate.Before(out[j].EarnedDate) })
	return out, nil
}

func (s *Store) CountAchievements(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.achievements), nil
}

// ===== Profiles =====

func (s *Store) GetProfile(_ context.Context, id string) (profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	return p, nil
}

func (s *Store) SaveProfileSettings(_ context.Context, id string, settings profile.NotificationSettings, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.profileLocked(id, now)
	p.NotificationSettings = settings
	p.UpdatedAt = now
	s.profiles[id] = p
	return nil
}

func (s *Store) IncrementProfile(_ context.Context, id string, experience, focusMinutes int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.profileLocked(id, now)
	p.Experience += experience
	p.TotalFocusMinutes += focusMinutes
	p.UpdatedAt = now
	s.profiles[id] = p
	return nil
}

func (s *Store) profileLocked(id string, now time.Time) profile.Profile {
	if p, ok := s.profiles[id]; ok {
		return p
	}
	return profile.Profile{
		ID:                   id,
		NotificationSettings: profile.DefaultNotificationSettings(),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}
