package achievement

import (
	"context"
	"errors"
	"time"
)

// Achievement is a badge granted once per badge type.
type Achievement struct {
	ID          string    `json:"id" firestore:"id" bson:"id"`
	BadgeType   string    `json:"badge_type" firestore:"badge_type" bson:"badge_type"`
	Title       string    `json:"title" firestore:"title" bson:"title"`
	Description string    `json:"description" firestore:"description" bson:"description"`
	Icon        string    `json:"icon" firestore:"icon" bson:"icon"`
	EarnedDate  time.Time `json:"earned_date" firestore:"earned_date" bson:"earned_date"`
}

// Aggregates are the activity totals the rules are evaluated against.
type Aggregates struct {
	WorkSessionCount int `json:"work_session_count"`
	TotalQuestions   int `json:"total_questions"`
	CurrentStreak    int `json:"current_streak"`
}

// Repository persists granted achievements.
//
// CreateAchievement must enforce at most one record per badge type and return
// ErrAlreadyEarned when one exists.
type Repository interface {
	CreateAchievement(ctx context.Context, a Achievement) error
	ListAchievements(ctx context.Context) ([]Achievement, error)
	CountAchievements(ctx context.Context) (int, error)
}

// ActivitySource supplies the raw aggregates read from the event store.
type ActivitySource interface {
	WorkSessionCount(ctx context.Context) (int, error)
	TotalQuestions(ctx context.Context) (int, error)
	WorkSessionDates(ctx context.Context) ([]string, error)
}

var (
	// ErrAlreadyEarned indicates a record for the badge type already exists.
	ErrAlreadyEarned = errors.New("achievement already earned")
	// ErrStoreUnavailable wraps store failures raised while evaluating rules.
	ErrStoreUnavailable = errors.New("achievement store unavailable")
)
