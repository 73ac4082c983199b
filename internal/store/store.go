// Package store defines the event store contract shared by the memory,
// Firestore and MongoDB backends.
package store

import (
	"github.com/focusnest/study-service/internal/achievement"
	"github.com/focusnest/study-service/internal/profile"
	"github.com/focusnest/study-service/internal/study"
)

// Store persists every record kind the service manages.
type Store interface {
	study.Repository
	achievement.Repository
	profile.Repository
}
