// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusnest/study-service/internal/achievement"
	"github.com/focusnest/study-service/internal/profile"
	"github.com/focusnest/study-service/internal/store"
	"github.com/focusnest/study-service/internal/study"
)

var base = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

// Run exercises a backend. newStore must return an empty store on each call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("tasks", func(t *testing.T) { testTasks(t, newStore(t)) })
	t.Run("sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("stats", func(t *testing.T) { testStats(t, newStore(t)) })
	t.Run("achievements", func(t *testing.T) { testAchievements(t, newStore(t)) })
	t.Run("profiles", func(t *testing.T) { testProfiles(t, newStore(t)) })
}

func testTasks(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateTask(ctx, study.Task{ID: "t1", Title: "Essay", Subject: "English", Priority: study.PriorityHigh, Date: "2024-04-01", DurationMinutes: 25, CreatedAt: base}))
	require.NoError(t, s.CreateTask(ctx, study.Task{ID: "t2", Title: "Drill", Subject: "Math", Priority: study.PriorityLow, Date: "2024-04-02", DurationMinutes: 25, CreatedAt: base.Add(time.Minute)}))
	assert.ErrorIs(t, s.CreateTask(ctx, study.Task{ID: "t1", Date: "2024-04-01", CreatedAt: base}), study.ErrConflict)

	list, err := s.ListTasks(ctx, study.TaskFilter{From: "2024-04-01", To: "2024-04-02"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t1", list[0].ID)

	title := "Essay draft"
	done := true
	updated, err := s.UpdateTask(ctx, "t1", study.TaskPatch{Title: &title, Completed: &done})
	require.NoError(t, err)
	assert.Equal(t, "Essay draft", updated.Title)
	assert.True(t, updated.Completed)
	assert.Equal(t, study.PriorityHigh, updated.Priority)

	got, err := s.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Essay draft", got.Title)

	n, err := s.CountTasks(ctx, study.TaskFilter{Date: "2024-04-01", Completed: &done})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.UpdateTask(ctx, "nope", study.TaskPatch{Completed: &done})
	assert.ErrorIs(t, err, study.ErrNotFound)

	require.NoError(t, s.DeleteTask(ctx, "t1"))
	assert.ErrorIs(t, s.DeleteTask(ctx, "t1"), study.ErrNotFound)
}

func testSessions(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i, fs := range []study.FocusSession{
		{SessionType: study.SessionWork, DurationMinutes: 25, Date: "2024-04-01"},
		{SessionType: study.SessionWork, DurationMinutes: 25, Date: "2024-04-01"},
		{SessionType: study.SessionBreak, DurationMinutes: 5, Date: "2024-04-01"},
		{SessionType: study.SessionWork, DurationMinutes: 45, Date: "2024-04-03"},
	} {
		fs.ID = fmt.Sprintf("s%d", i)
		fs.Completed = true
		fs.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.CreateSession(ctx, fs))
	}
	work := study.SessionFilter{SessionType: study.SessionWork}

	n, err := s.CountSessions(ctx, work)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	dates, err := s.DistinctSessionDates(ctx, work)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2024-04-01", "2024-04-03"}, dates)

	minutes, err := s.SumSessionMinutes(ctx, study.SessionFilter{SessionType: study.SessionWork, Date: "2024-04-01"})
	require.NoError(t, err)
	assert.Equal(t, 50, minutes)

	day, err := s.ListSessions(ctx, study.SessionFilter{Date: "2024-04-01"})
	require.NoError(t, err)
	assert.Len(t, day, 3)
}

func testStats(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i, st := range []study.StudyStat{
		{Subject: "Math", QuestionsSolved: 20, CorrectAnswers: 15, TimeSpentMinutes: 30, Date: "2024-04-01"},
		{Subject: "Math", QuestionsSolved: 10, CorrectAnswers: 10, TimeSpentMinutes: 10, Date: "2024-04-02"},
		{Subject: "Physics", QuestionsSolved: 8, CorrectAnswers: 2, TimeSpentMinutes: 25, Date: "2024-04-02"},
	} {
		st.ID = fmt.Sprintf("st%d", i)
		st.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.CreateStat(ctx, st))
	}

	totals, err := s.SumStats(ctx, study.StatFilter{})
	require.NoError(t, err)
	assert.Equal(t, study.StatTotals{Questions: 38, Correct: 27, Minutes: 65}, totals)

	empty, err := s.SumStats(ctx, study.StatFilter{Date: "1999-01-01"})
	require.NoError(t, err)
	assert.Equal(t, study.StatTotals{}, empty)

	bySubject, err := s.SumStatsBySubject(ctx, study.StatFilter{})
	require.NoError(t, err)
	require.Len(t, bySubject, 2)
	assert.Equal(t, "Math", bySubject[0].Subject)
	assert.Equal(t, study.StatTotals{Questions: 30, Correct: 25, Minutes: 40}, bySubject[0].StatTotals)
	assert.Equal(t, "Physics", bySubject[1].Subject)

	physics, err := s.ListStats(ctx, study.StatFilter{Subject: "Physics", Date: "2024-04-02"})
	require.NoError(t, err)
	require.Len(t, physics, 1)
	assert.Equal(t, 8, physics[0].QuestionsSolved)
}

func testAchievements(t *testing.T, s store.Store) {
	ctx := context.Background()

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.CreateAchievement(ctx, achievement.Achievement{
				ID:         fmt.Sprintf("a%d", i),
				BadgeType:  achievement.BadgeFirstPomodoro,
				Title:      "First Pomodoro!",
				EarnedDate: base,
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, achievement.ErrAlreadyEarned)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, success)

	require.NoError(t, s.CreateAchievement(ctx, achievement.Achievement{ID: "b", BadgeType: achievement.Badge100Questions, EarnedDate: base.Add(time.Hour)}))

	list, err := s.ListAchievements(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, achievement.BadgeFirstPomodoro, list[0].BadgeType)

	n, err := s.CountAchievements(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testProfiles(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetProfile(ctx, "p")
	assert.ErrorIs(t, err, profile.ErrNotFound)

	require.NoError(t, s.IncrementProfile(ctx, "p", 25, 25, base))
	require.NoError(t, s.IncrementProfile(ctx, "p", 40, 0, base.Add(time.Minute)))

	p, err := s.GetProfile(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "p", p.ID)
	assert.Equal(t, 65, p.Experience)
	assert.Equal(t, 25, p.TotalFocusMinutes)
	assert.Equal(t, profile.DefaultNotificationSettings(), p.NotificationSettings)

	settings := profile.NotificationSettings{BreakReminders: true}
	require.NoError(t, s.SaveProfileSettings(ctx, "p", settings, base.Add(time.Hour)))
	p, err = s.GetProfile(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, settings, p.NotificationSettings)
	assert.Equal(t, 65, p.Experience)

	require.NoError(t, s.SaveProfileSettings(ctx, "fresh", settings, base))
	fresh, err := s.GetProfile(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, settings, fresh.NotificationSettings)
	assert.Zero(t, fresh.Experience)
}
