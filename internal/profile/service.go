package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/focusnest/study-service/internal/support"
)

// Service reads and updates the gamification profile.
type Service struct {
	repo  Repository
	clock support.Clock
}

// NewService constructs a Service.
func NewService(repo Repository, clock support.Clock) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	return &Service{repo: repo, clock: clock}, nil
}

// Get returns the profile, falling back to a fresh default when none is stored.
func (s *Service) Get(ctx context.Context, id string) (Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Profile{}, ErrMissingID
	}

	p, err := s.repo.GetProfile(ctx, id)
	if errors.Is(err, ErrNotFound) {
		p = defaultProfile(id)
	} else if err != nil {
		return Profile{}, err
	}
	return withDerived(p), nil
}

// UpdateSettings replaces the notification settings and returns the updated profile.
func (s *Service) UpdateSettings(ctx context.Context, id string, settings NotificationSettings) (Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Profile{}, ErrMissingID
	}
	if err := s.repo.SaveProfileSettings(ctx, id, settings, s.clock.Now().UTC()); err != nil {
		return Profile{}, err
	}
	return s.Get(ctx, id)
}

// Credit adds experience and focus minutes. Non-positive amounts are ignored.
func (s *Service) Credit(ctx context.Context, id string, experience, focusMinutes int) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrMissingID
	}
	if experience < 0 {
		experience = 0
	}
	if focusMinutes < 0 {
		focusMinutes = 0
	}
	if experience == 0 && focusMinutes == 0 {
		return nil
	}
	return s.repo.IncrementProfile(ctx, id, experience, focusMinutes, s.clock.Now().UTC())
}

func defaultProfile(id string) Profile {
	return Profile{ID: id, NotificationSettings: DefaultNotificationSettings()}
}

func withDerived(p Profile) Profile {
	p.Level = LevelFor(p.Experience)
	p.CharacterType = CharacterFor(p.Level)
	return p
}
