package study

import (
	"context"

	"github.com/focusnest/study-service/internal/achievement"
)

type activitySource struct {
	repo Repository
}

// NewActivitySource exposes the event store totals the badge rules read.
func NewActivitySource(repo Repository) achievement.ActivitySource {
	return activitySource{repo: repo}
}

func (a activitySource) WorkSessionCount(ctx context.Context) (int, error) {
	return a.repo.CountSessions(ctx, SessionFilter{SessionType: SessionWork})
}

func (a activitySource) TotalQuestions(ctx context.Context) (int, error) {
	totals, err := a.repo.SumStats(ctx, StatFilter{})
	if err != nil {
		return 0, err
	}
	return totals.Questions, nil
}

func (a activitySource) WorkSessionDates(ctx context.Context) ([]string, error) {
	return a.repo.DistinctSessionDates(ctx, SessionFilter{SessionType: SessionWork})
}
