// Package report builds the read-only dashboard, weekly and heatmap
// projections over the event store.
package report

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/focusnest/study-service/internal/achievement"
	"github.com/focusnest/study-service/internal/study"
	"github.com/focusnest/study-service/internal/support"
)

const (
	// DefaultHeatmapDays is used when the caller does not ask for a window.
	DefaultHeatmapDays = 90
	// MaxHeatmapDays caps the heatmap window.
	MaxHeatmapDays = 365

	weekDays = 7
)

// StreakSource reports the current consecutive-day work streak.
type StreakSource interface {
	CurrentStreak(ctx context.Context) (int, error)
}

// Repository is the subset of the event store the reports read.
type Repository interface {
	study.TaskRepository
	study.SessionRepository
	study.StatRepository
	achievement.Repository
}

// Dashboard summarises today's activity.
type Dashboard struct {
	TodayTasks        int `json:"today_tasks"`
	CompletedTasks    int `json:"completed_tasks"`
	TodayPomodoros    int `json:"today_pomodoros"`
	TodayStudyMinutes int `json:"today_study_minutes"`
	TodayQuestions    int `json:"today_questions"`
	TotalAchievements int `json:"total_achievements"`
	CurrentStreak     int `json:"current_streak"`
}

// DailyActivity is one day of the weekly report.
type DailyActivity struct {
	Date      string `json:"date"`
	Pomodoros int    `json:"pomodoros"`
	Minutes   int    `json:"minutes"`
	Questions int    `json:"questions"`
}

// Weekly covers the seven days ending today.
type Weekly struct {
	WeekStart         string          `json:"week_start"`
	WeekEnd           string          `json:"week_end"`
	TotalPomodoros    int             `json:"total_pomodoros"`
	TotalStudyMinutes int             `json:"total_study_minutes"`
	TotalQuestions    int             `json:"total_questions"`
	TotalCorrect      int             `json:"total_correct"`
	Accuracy          float64         `json:"accuracy"`
	TasksCompleted    int             `json:"tasks_completed"`
	NewAchievements   int             `json:"new_achievements"`
	CurrentStreak     int             `json:"current_streak"`
	Daily             []DailyActivity `json:"daily"`
}

// Service computes the reports.
type Service struct {
	repo   Repository
	streak StreakSource
	clock  support.Clock
}

// NewService constructs a Service.
func NewService(repo Repository, streak StreakSource, clock support.Clock) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	if streak == nil {
		return nil, errors.New("streak source is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	return &Service{repo: repo, streak: streak, clock: clock}, nil
}

// Dashboard gathers today's counters concurrently.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	today := support.FormatDay(support.Today(s.clock))
	done := true
	var d Dashboard

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.CountTasks(ctx, study.TaskFilter{Date: today})
		d.TodayTasks = n
		return wrap("count tasks", err)
	})
	g.Go(func() error {
		n, err := s.repo.CountTasks(ctx, study.TaskFilter{Date: today, Completed: &done})
		d.CompletedTasks = n
		return wrap("count completed tasks", err)
	})
	g.Go(func() error {
		n, err := s.repo.CountSessions(ctx, study.SessionFilter{Date: today, SessionType: study.SessionWork})
		d.TodayPomodoros = n
		return wrap("count sessions", err)
	})
	g.Go(func() error {
		t, err := s.repo.SumStats(ctx, study.StatFilter{Date: today})
		d.TodayStudyMinutes = t.Minutes
		d.TodayQuestions = t.Questions
		return wrap("sum stats", err)
	})
	g.Go(func() error {
		n, err := s.repo.CountAchievements(ctx)
		d.TotalAchievements = n
		return wrap("count achievements", err)
	})
	g.Go(func() error {
		n, err := s.streak.CurrentStreak(ctx)
		d.CurrentStreak = n
		return wrap("current streak", err)
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// Weekly reports the window today-6 through today.
func (s *Service) Weekly(ctx context.Context) (Weekly, error) {
	today := support.Today(s.clock)
	start := today.AddDate(0, 0, -(weekDays - 1))
	from, to := support.FormatDay(start), support.FormatDay(today)
	done := true

	var (
		sessions     []study.FocusSession
		stats        []study.StudyStat
		completed    int
		achievements []achievement.Achievement
		streak       int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sessions, err = s.repo.ListSessions(gctx, study.SessionFilter{From: from, To: to, SessionType: study.SessionWork})
		return wrap("list sessions", err)
	})
	g.Go(func() error {
		var err error
		stats, err = s.repo.ListStats(gctx, study.StatFilter{From: from, To: to})
		return wrap("list stats", err)
	})
	g.Go(func() error {
		var err error
		completed, err = s.repo.CountTasks(gctx, study.TaskFilter{From: from, To: to, Completed: &done})
		return wrap("count tasks", err)
	})
	g.Go(func() error {
		var err error
		achievements, err = s.repo.ListAchievements(gctx)
		return wrap("list achievements", err)
	})
	g.Go(func() error {
		var err error
		streak, err = s.streak.CurrentStreak(gctx)
		return wrap("current streak", err)
	})
	if err := g.Wait(); err != nil {
		return Weekly{}, err
	}

	days := make([]DailyActivity, weekDays)
	index := make(map[string]int, weekDays)
	for i := range days {
		date := support.FormatDay(start.AddDate(0, 0, i))
		days[i] = DailyActivity{Date: date}
		index[date] = i
	}

	w := Weekly{
		WeekStart:      from,
		WeekEnd:        to,
		TasksCompleted: completed,
		CurrentStreak:  streak,
	}
	for _, session := range sessions {
		w.TotalPomodoros++
		w.TotalStudyMinutes += session.DurationMinutes
		if i, ok := index[session.Date]; ok {
			days[i].Pomodoros++
			days[i].Minutes += session.DurationMinutes
		}
	}
	for _, st := range stats {
		w.TotalQuestions += st.QuestionsSolved
		w.TotalCorrect += st.CorrectAnswers
		if i, ok := index[st.Date]; ok {
			days[i].Questions += st.QuestionsSolved
		}
	}
	loc := s.clock.Now().Location()
	for _, a := range achievements {
		if _, ok := index[support.FormatDay(a.EarnedDate.In(loc))]; ok {
			w.NewAchievements++
		}
	}
	w.Accuracy = study.Accuracy(w.TotalCorrect, w.TotalQuestions)
	w.Daily = days
	return w, nil
}

// ClampHeatmapDays maps a requested window onto 1..MaxHeatmapDays, using
// DefaultHeatmapDays for a zero request.
func ClampHeatmapDays(days int) int {
	switch {
	case days == 0:
		return DefaultHeatmapDays
	case days < 1:
		return 1
	case days > MaxHeatmapDays:
		return MaxHeatmapDays
	default:
		return days
	}
}

// Heatmap returns work minutes per day over the last days days. Days without
// work are omitted.
func (s *Service) Heatmap(ctx context.Context, days int) (map[string]int, error) {
	days = ClampHeatmapDays(days)
	today := support.Today(s.clock)
	from := support.FormatDay(today.AddDate(0, 0, -(days - 1)))

	sessions, err := s.repo.ListSessions(ctx, study.SessionFilter{
		From:        from,
		To:          support.FormatDay(today),
		SessionType: study.SessionWork,
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	out := make(map[string]int)
	for _, session := range sessions {
		out[session.Date] += session.DurationMinutes
	}
	return out, nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
