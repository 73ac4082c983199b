package achievement_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusnest/study-service/internal/achievement"
	"github.com/focusnest/study-service/internal/store/memstore"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqIDs struct{ n atomic.Int64 }

func (s *seqIDs) NewID() string { return fmt.Sprintf("ach-%d", s.n.Add(1)) }

type fakeSource struct {
	mu        sync.Mutex
	sessions  int
	questions int
	dates     []string
	err       error
}

func (f *fakeSource) WorkSessionCount(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions, f.err
}

func (f *fakeSource) TotalQuestions(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.questions, f.err
}

func (f *fakeSource) WorkSessionDates(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.dates...), f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
}

var today = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

func newEngine(t *testing.T, src achievement.ActivitySource, repo achievement.Repository, opts ...achievement.Option) *achievement.Engine {
	t.Helper()
	e, err := achievement.NewEngine(src, repo, fixedClock{now: today}, &seqIDs{}, opts...)
	require.NoError(t, err)
	return e
}

func badgeTypes(list []achievement.Achievement) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.BadgeType)
	}
	return out
}

func TestNewEngineRequiresCollaborators(t *testing.T) {
	src := &fakeSource{}
	repo := memstore.New()

	_, err := achievement.NewEngine(nil, repo, fixedClock{}, &seqIDs{})
	assert.Error(t, err)
	_, err = achievement.NewEngine(src, nil, fixedClock{}, &seqIDs{})
	assert.Error(t, err)
	_, err = achievement.NewEngine(src, repo, nil, &seqIDs{})
	assert.Error(t, err)
	_, err = achievement.NewEngine(src, repo, fixedClock{}, nil)
	assert.Error(t, err)
}

func TestEvaluateGrantsFirstPomodoroOnce(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{sessions: 1, dates: []string{"2024-05-20"}}
	repo := memstore.New()
	pub := &recordingPublisher{}
	e := newEngine(t, src, repo, achievement.WithPublisher(pub))

	granted, err := e.Evaluate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{achievement.BadgeFirstPomodoro}, badgeTypes(granted))
	assert.Equal(t, "🍅", granted[0].Icon)
	assert.True(t, today.Equal(granted[0].EarnedDate))
	assert.NotEmpty(t, granted[0].ID)

	again, err := e.Evaluate(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	src.sessions = 2
	later, err := e.Evaluate(ctx)
	require.NoError(t, err)
	assert.Empty(t, later)

	n, err := repo.CountAchievements(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"achievement.events"}, pub.topics)
}

func TestEvaluateQuestionThresholds(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{questions: 50}
	repo := memstore.New()
	e := newEngine(t, src, repo)

	granted, err := e.Evaluate(ctx)
	require.NoError(t, err)
	assert.Empty(t, granted)

	src.questions = 110
	granted, err = e.Evaluate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{achievement.Badge100Questions}, badgeTypes(granted))

	src.questions = 1200
	granted, err = e.Evaluate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{achievement.Badge500Questions, achievement.Badge1000Questions}, badgeTypes(granted))

	// badges are never revoked
	src.questions = 0
	granted, err = e.Evaluate(ctx)
	require.NoError(t, err)
	assert.Empty(t, granted)
	list, err := repo.ListAchievements(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{achievement.Badge100Questions, achievement.Badge500Questions, achievement.Badge1000Questions},
		badgeTypes(list))
}

func TestEvaluateStreakBadges(t *testing.T) {
	ctx := context.Background()
	var dates []string
	for i := 0; i < 7; i++ {
		dates = append(dates, today.AddDate(0, 0, -i).Format("2006-01-02"))
	}
	src := &fakeSource{sessions: 7, dates: dates}
	e := newEngine(t, src, memstore.New())

	granted, err := e.Evaluate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{achievement.BadgeThreeDayStreak, achievement.BadgeSevenDayStreak}, badgeTypes(granted))

	streak, err := e.CurrentStreak(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, streak)
}

func TestEvaluateSourceFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	e := newEngine(t, src, memstore.New())

	_, err := e.Evaluate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, achievement.ErrStoreUnavailable)
}

type racingRepo struct {
	*memstore.Store
}

// ListAchievements always reports nothing, forcing every evaluation to
// attempt the insert so the store has to reject duplicates.
func (racingRepo) ListAchievements(context.Context) ([]achievement.Achievement, error) {
	return nil, nil
}

func TestEvaluateToleratesConcurrentGrant(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	repo := racingRepo{Store: store}
	src := &fakeSource{sessions: 1, questions: 100}
	e := newEngine(t, src, repo)

	first, err := e.Evaluate(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := e.Evaluate(ctx)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestEvaluateConcurrentCallsGrantAtMostOnce(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	src := &fakeSource{sessions: 1, questions: 1000, dates: []string{"2024-05-20", "2024-05-19", "2024-05-18"}}
	e := newEngine(t, src, racingRepo{Store: store})

	const workers = 32
	var (
		wg    sync.WaitGroup
		total atomic.Int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			granted, err := e.Evaluate(ctx)
			assert.NoError(t, err)
			total.Add(int64(len(granted)))
		}()
	}
	wg.Wait()

	list, err := store.ListAchievements(ctx)
	require.NoError(t, err)
	seen := map[string]int{}
	for _, a := range list {
		seen[a.BadgeType]++
	}
	for badge, n := range seen {
		assert.Equal(t, 1, n, badge)
	}
	assert.Len(t, list, 5)
	assert.EqualValues(t, 5, total.Load())
}
