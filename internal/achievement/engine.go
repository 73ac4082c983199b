package achievement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/focusnest/study-service/internal/support"
	"github.com/focusnest/study-service/pkg/events"
)

// Engine evaluates the rule table against current aggregates and grants
// each satisfied badge at most once.
type Engine struct {
	source    ActivitySource
	repo      Repository
	clock     support.Clock
	ids       support.IDGenerator
	rules     []Rule
	publisher events.Publisher
	logger    *slog.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithPublisher sets where BadgeGranted events are sent.
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.publisher = p
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRules replaces the default rule table.
func WithRules(rules []Rule) Option {
	return func(e *Engine) {
		e.rules = rules
	}
}

// NewEngine constructs an Engine with the provided collaborators.
func NewEngine(source ActivitySource, repo Repository, clock support.Clock, ids support.IDGenerator, opts ...Option) (*Engine, error) {
	if source == nil {
		return nil, errors.New("activity source is required")
	}
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	if ids == nil {
		return nil, errors.New("id generator is required")
	}

	e := &Engine{
		source:    source,
		repo:      repo,
		clock:     clock,
		ids:       ids,
		rules:     Rules(),
		publisher: events.NopPublisher(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// CurrentStreak returns the streak of consecutive work days ending today.
func (e *Engine) CurrentStreak(ctx context.Context) (int, error) {
	dates, err := e.source.WorkSessionDates(ctx)
	if err != nil {
		return 0, err
	}
	return CurrentStreak(dates, e.clock.Now()), nil
}

// Aggregates loads every total the rules need, querying the store concurrently.
func (e *Engine) Aggregates(ctx context.Context) (Aggregates, error) {
	var agg Aggregates

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := e.source.WorkSessionCount(ctx)
		if err != nil {
			return fmt.Errorf("count work sessions: %w", err)
		}
		agg.WorkSessionCount = n
		return nil
	})
	g.Go(func() error {
		n, err := e.source.TotalQuestions(ctx)
		if err != nil {
			return fmt.Errorf("sum questions: %w", err)
		}
		agg.TotalQuestions = n
		return nil
	})
	g.Go(func() error {
		n, err := e.CurrentStreak(ctx)
		if err != nil {
			return fmt.Errorf("current streak: %w", err)
		}
		agg.CurrentStreak = n
		return nil
	})

	if err := g.Wait(); err != nil {
		return Aggregates{}, err
	}
	return agg, nil
}

// Evaluate grants every badge whose rule holds and that has not been earned
// yet. It returns the badges granted by this call. A concurrent grant of the
// same badge is detected by the store and skipped.
func (e *Engine) Evaluate(ctx context.Context) ([]Achievement, error) {
	agg, err := e.Aggregates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	existing, err := e.repo.ListAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list achievements: %w", ErrStoreUnavailable, err)
	}
	earned := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		earned[a.BadgeType] = struct{}{}
	}

	var granted []Achievement
	for _, rule := range e.rules {
		if _, ok := earned[rule.BadgeType]; ok {
			continue
		}
		if rule.Satisfied == nil || !rule.Satisfied(agg) {
			continue
		}

		a := Achievement{
			ID:          e.ids.NewID(),
			BadgeType:   rule.BadgeType,
			Title:       rule.Title,
			Description: rule.Description,
			Icon:        rule.Icon,
			EarnedDate:  e.clock.Now().UTC(),
		}
		err := e.repo.CreateAchievement(ctx, a)
		if errors.Is(err, ErrAlreadyEarned) {
			e.logger.DebugContext(ctx, "badge granted concurrently", slog.String("badge_type", rule.BadgeType))
			continue
		}
		if err != nil {
			return granted, fmt.Errorf("%w: grant %s: %w", ErrStoreUnavailable, rule.BadgeType, err)
		}

		granted = append(granted, a)
		e.logger.InfoContext(ctx, "badge granted", slog.String("badge_type", a.BadgeType), slog.Any("aggregates", agg))
		e.publisher.Publish(ctx, events.TopicAchievementEvents, events.BadgeGranted{
			AchievementID: a.ID,
			BadgeType:     a.BadgeType,
			Title:         a.Title,
			EarnedAt:      a.EarnedDate,
		})
	}

	return granted, nil
}
