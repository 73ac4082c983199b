package profile

import (
	"context"
	"errors"
	"time"
)

// Character stages, unlocked by level.
const (
	CharacterSeed   = "seed"
	CharacterSprout = "sprout"
	CharacterTree   = "tree"
	CharacterForest = "forest"
)

// ExperiencePerLevel is the experience needed to advance one level.
const ExperiencePerLevel = 100

// NotificationSettings holds the user's reminder preferences.
type NotificationSettings struct {
	DailySummary      bool `json:"daily_summary" firestore:"daily_summary" bson:"daily_summary"`
	TaskReminders     bool `json:"task_reminders" firestore:"task_reminders" bson:"task_reminders"`
	BreakReminders    bool `json:"break_reminders" firestore:"break_reminders" bson:"break_reminders"`
	AchievementAlerts bool `json:"achievement_alerts" firestore:"achievement_alerts" bson:"achievement_alerts"`
}

// DefaultNotificationSettings enables every notification.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		DailySummary:      true,
		TaskReminders:     true,
		BreakReminders:    true,
		AchievementAlerts: true,
	}
}

// Profile is the singleton gamification profile. Level and CharacterType are
// derived from Experience on read and never stored.
type Profile struct {
	ID                   string               `json:"id" firestore:"id" bson:"id"`
	Experience           int                  `json:"experience" firestore:"experience" bson:"experience"`
	Level                int                  `json:"level" firestore:"-" bson:"-"`
	CharacterType        string               `json:"character_type" firestore:"-" bson:"-"`
	TotalFocusMinutes    int                  `json:"total_focus_minutes" firestore:"total_focus_minutes" bson:"total_focus_minutes"`
	NotificationSettings NotificationSettings `json:"notification_settings" firestore:"notification_settings" bson:"notification_settings"`
	CreatedAt            time.Time            `json:"created_at" firestore:"created_at" bson:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at" firestore:"updated_at" bson:"updated_at"`
}

// Repository persists the profile document.
type Repository interface {
	// GetProfile returns ErrNotFound when the profile was never written.
	GetProfile(ctx context.Context, id string) (Profile, error)
	// SaveProfileSettings upserts the notification settings.
	SaveProfileSettings(ctx context.Context, id string, settings NotificationSettings, now time.Time) error
	// IncrementProfile atomically adds to the experience and focus counters, creating the profile when missing.
	IncrementProfile(ctx context.Context, id string, experience, focusMinutes int, now time.Time) error
}

var (
	// ErrNotFound indicates the profile document does not exist yet.
	ErrNotFound = errors.New("profile not found")
	// ErrMissingID indicates a required profile id was absent.
	ErrMissingID = errors.New("profile id is required")
)

// LevelFor returns the level reached with the given experience.
func LevelFor(experience int) int {
	if experience < 0 {
		experience = 0
	}
	return experience/ExperiencePerLevel + 1
}

// CharacterFor returns the character stage for a level.
func CharacterFor(level int) string {
	switch {
	case level < 5:
		return CharacterSeed
	case level < 10:
		return CharacterSprout
	case level < 20:
		return CharacterTree
	default:
		return CharacterForest
	}
}
