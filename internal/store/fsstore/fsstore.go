// Package fsstore is the Cloud Firestore event store.
package fsstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/focusnest/study-service/internal/achievement"
	"github.com/focusnest/study-service/internal/profile"
	"github.com/focusnest/study-service/internal/study"
)

const (
	tasksCollection        = "tasks"
	sessionsCollection     = "pomodoro_sessions"
	statsCollection        = "study_stats"
	treesCollection        = "focus_trees"
	achievementsCollection = "achievements"
	profilesCollection     = "profiles"
)

// Store implements the event store on top of a Firestore client.
type Store struct {
	client *firestore.Client
}

// New instantiates a Firestore-backed store.
func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) col(name string) *firestore.CollectionRef {
	return s.client.Collection(name)
}

// create writes v under id and maps an existing document to conflict.
func (s *Store) create(ctx context.Context, collection, id string, v any, conflict error) error {
	_, err := s.col(collection).Doc(id).Create(ctx, v)
	if status.Code(err) == codes.AlreadyExists {
		return conflict
	}
	return err
}

func dateQuery(q firestore.Query, exact, from, to string) firestore.Query {
	if exact != "" {
		q = q.Where("date", "==", exact)
	}
	if from != "" {
		q = q.Where("date", ">=", from)
	}
	if to != "" {
		q = q.Where("date", "<=", to)
	}
	return q
}

// collect decodes every document of q into a T.
func collect[T any](ctx context.Context, q firestore.Query) ([]T, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	out := make([]T, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", doc.Ref.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func count(ctx context.Context, q firestore.Query) (int, error) {
	iter := q.Select().Documents(ctx)
	defer iter.Stop()

	total := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("count query failed: %w", err)
		}
		total++
	}
	return total, nil
}

// ===== Tasks =====

func (s *Store) taskQuery(f study.TaskFilter) firestore.Query {
	q := dateQuery(s.col(tasksCollection).Query, f.Date, f.From, f.To)
	if f.Completed != nil {
		q = q.Where("completed", "==", *f.Completed)
	}
	return q
}

func (s *Store) CreateTask(ctx context.Context, t study.Task) error {
	return s.create(ctx, tasksCollection, t.ID, t, study.ErrConflict)
}

func (s *Store) GetTask(ctx context.Context, id string) (study.Task, error) {
	doc, err := s.col(tasksCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return study.Task{}, study.ErrNotFound
	}
	if err != nil {
		return study.Task{}, err
	}
	var t study.Task
	if err := doc.DataTo(&t); err != nil {
		return study.Task{}, fmt.Errorf("decode task: %w", err)
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, f study.TaskFilter) ([]study.Task, error) {
	tasks, err := collect[study.Task](ctx, s.taskQuery(f))
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks, nil
}

func (s *Store) CountTasks(ctx context.Context, f study.TaskFilter) (int, error) {
	return count(ctx, s.taskQuery(f))
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch study.TaskPatch) (study.Task, error) {
	ref := s.col(tasksCollection).Doc(id)
	var updated study.Task

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return study.ErrNotFound
		}
		if err != nil {
			return err
		}
		var current study.Task
		if err := doc.DataTo(&current); err != nil {
			return fmt.Errorf("decode task: %w", err)
		}
		updated = patch.Apply(current)
		return tx.Set(ref, updated)
	})
	if err != nil {
		return study.Task{}, err
	}
	return updated, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	_, err := s.col(tasksCollection).Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return study.ErrNotFound
	}
	return err
}

// ===== Sessions =====

func (s *Store) sessionQuery(f study.SessionFilter) firestore.Query {
	q := dateQuery(s.col(sessionsCollection).Query, f.Date, f.From, f.To)
	if f.SessionType != "" {
		q = q.Where("session_type", "==", f.SessionType)
	}
	return q
}

func (s *Store) CreateSession(ctx context.Context, fs study.FocusSession) error {
	return s.create(ctx, sessionsCollection, fs.ID, fs, study.ErrConflict)
}

func (s *Store) ListSessions(ctx context.Context, f study.SessionFilter) ([]study.FocusSession, error) {
	sessions, err := collect[study.FocusSession](ctx, s.sessionQuery(f))
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CreatedAt.After(sessions[j].CreatedAt) })
	return sessions, nil
}

func (s *Store) CountSessions(ctx context.Context, f study.SessionFilter) (int, error) {
	return count(ctx, s.sessionQuery(f))
}

func (s *Store) DistinctSessionDates(ctx context.Context, f study.SessionFilter) ([]string, error) {
	rows, err := collect[struct {
		Date string `firestore:"date"`
	}](ctx, s.sessionQuery(f).Select("date"))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(rows))
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.Date]; ok {
			continue
		}
		seen[r.Date] = struct{}{}
		out = append(out, r.Date)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) SumSessionMinutes(ctx context.Context, f study.SessionFilter) (int, error) {
	rows, err := collect[struct {
		DurationMinutes int `firestore:"duration_minutes"`
	}](ctx, s.sessionQuery(f).Select("duration_minutes"))
	if err != nil {
		return 0, err
	}
	total := 0
	for _, r := range rows {
		total += r.DurationMinutes
	}
	return total, nil
}

// ===== Study stats =====

func (s *Store) statQuery(f study.StatFilter) firestore.Query {
	q := dateQuery(s.col(statsCollection).Query, f.Date, f.From, f.To)
	if f.Subject != "" {
		q = q.Where("subject", "==", f.Subject)
	}
	return q
}

func (s *Store) CreateStat(ctx context.Context, st study.StudyStat) error {
	return s.create(ctx, statsCollection, st.ID, st, study.ErrConflict)
}

func (s *Store) ListStats(ctx context.Context, f study.StatFilter) ([]study.StudyStat, error) {
	stats, err := collect[study.StudyStat](ctx, s.statQuery(f))
	if err != nil {
		return nil, err
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].CreatedAt.After(stats[j].CreatedAt) })
	return stats, nil
}

func (s *Store) SumStats(ctx context.Context, f study.StatFilter) (study.StatTotals, error) {
	stats, err := collect[study.StudyStat](ctx, s.statQuery(f))
	if err != nil {
		return study.StatTotals{}, err
	}
	var totals study.StatTotals
	for _, st := range stats {
		totals.Questions += st.QuestionsSolved
		totals.Correct += st.CorrectAnswers
		totals.Minutes += st.TimeSpentMinutes
	}
	return totals, nil
}

func (s *Store) SumStatsBySubject(ctx context.Context, f study.StatFilter) ([]study.SubjectTotals, error) {
	stats, err := collect[study.StudyStat](ctx, s.statQuery(f))
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	out := make([]study.SubjectTotals, 0)
	for _, st := range stats {
		i, ok := index[st.Subject]
		if !ok {
			i = len(out)
			index[st.Subject] = i
			out = append(out, study.SubjectTotals{Subject: st.Subject})
		}
		out[i].Questions += st.QuestionsSolved
		out[i].Correct += st.CorrectAnswers
		out[i].Minutes += st.TimeSpentMinutes
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out, nil
}

// ===== Focus trees =====

func (s *Store) CreateTree(ctx context.Context, t study.FocusTree) error {
	return s.create(ctx, treesCollection, t.ID, t, study.ErrConflict)
}

func (s *Store) ListTrees(ctx context.Context, f study.TreeFilter) ([]study.FocusTree, error) {
	q := dateQuery(s.col(treesCollection).Query, f.Date, "", "")
	if f.Status != "" {
		q = q.Where("status", "==", f.Status)
	}
	trees, err := collect[study.FocusTree](ctx, q)
	if err != nil {
		return nil, err
	}
	sort.Slice(trees, func(i, j int) bool { return trees[i].CreatedAt.After(trees[j].CreatedAt) })
	return trees, nil
}

// ===== Achievements =====

// CreateAchievement keys the document by badge type so a second grant fails
// with AlreadyExists.
func (s *Store) CreateAchievement(ctx context.Context, a achievement.Achievement) error {
	return s.create(ctx, achievementsCollection, a.BadgeType, a, achievement.ErrAlreadyEarned)
}

func (s *Store) ListAchievements(ctx context.Context) ([]achievement.Achievement, error) {
	return collect[achievement.Achievement](ctx, s.col(achievementsCollection).OrderBy("earned_date", firestore.Asc))
}

func (s *Store) CountAchievements(ctx context.Context) (int, error) {
	return count(ctx, s.col(achievementsCollection).Query)
}

// ===== Profiles =====

func (s *Store) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	doc, err := s.col(profilesCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return profile.Profile{}, profile.ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, err
	}

	var p profile.Profile
	if err := doc.DataTo(&p); err != nil {
		return profile.Profile{}, fmt.Errorf("unmarshal profile: %w", err)
	}
	p.ID = id
	return p, nil
}

func (s *Store) SaveProfileSettings(ctx context.Context, id string, settings profile.NotificationSettings, now time.Time) error {
	ref := s.col(profilesCollection).Doc(id)

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		data := map[string]any{
			"id":                    id,
			"notification_settings": settingsData(settings),
			"updated_at":            now,
		}
		if _, err := tx.Get(ref); status.Code(err) == codes.NotFound {
			data["created_at"] = now
			data["experience"] = 0
			data["total_focus_minutes"] = 0
		} else if err != nil {
			return err
		}
		return tx.Set(ref, data, firestore.MergeAll)
	})
}

func (s *Store) IncrementProfile(ctx context.Context, id string, experience, focusMinutes int, now time.Time) error {
	ref := s.col(profilesCollection).Doc(id)

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); status.Code(err) == codes.NotFound {
			return tx.Set(ref, map[string]any{
				"id":                    id,
				"experience":            experience,
				"total_focus_minutes":   focusMinutes,
				"notification_settings": settingsData(profile.DefaultNotificationSettings()),
				"created_at":            now,
				"updated_at":            now,
			})
		} else if err != nil {
			return err
		}

		return tx.Update(ref, []firestore.Update{
			{Path: "experience", Value: firestore.Increment(int64(experience))},
			{Path: "total_focus_minutes", Value: firestore.Increment(int64(focusMinutes))},
			{Path: "updated_at", Value: now},
		})
	})
}

func settingsData(n profile.NotificationSettings) map[string]any {
	return map[string]any{
		"daily_summary":      n.DailySummary,
		"task_reminders":     n.TaskReminders,
		"break_reminders":    n.BreakReminders,
		"achievement_alerts": n.AchievementAlerts,
	}
}
