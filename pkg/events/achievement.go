package events

import "time"

// BadgeGranted describes the payload produced when an achievement badge is awarded.
type BadgeGranted struct {
	AchievementID string    `json:"achievementId"`
	BadgeType     string    `json:"badgeType"`
	Title         string    `json:"title"`
	EarnedAt      time.Time `json:"earnedAt"`
}

// ActivityRecorded is emitted after a session or study stat has been persisted.
type ActivityRecorded struct {
	Kind       string    `json:"kind"`
	RecordID   string    `json:"recordId"`
	Date       string    `json:"date"`
	RecordedAt time.Time `json:"recordedAt"`
}
