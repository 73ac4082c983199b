package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/focusnest/study-service/internal/achievement"
	"github.com/focusnest/study-service/internal/support"
	"github.com/focusnest/study-service/pkg/events"
	"github.com/focusnest/study-service/pkg/identity"
)

// Creditor adds experience and focus minutes to a profile.
type Creditor interface {
	Credit(ctx context.Context, id string, experience, focusMinutes int) error
}

// Evaluator grants the badges unlocked by the current activity totals.
type Evaluator interface {
	Evaluate(ctx context.Context) ([]achievement.Achievement, error)
}

// SessionResult is the outcome of logging a pomodoro session.
type SessionResult struct {
	FocusSession
	NewAchievements []achievement.Achievement `json:"new_achievements"`
}

// StatResult is the outcome of recording a study stat.
type StatResult struct {
	StudyStat
	NewAchievements []achievement.Achievement `json:"new_achievements"`
}

// PomodoroStats summarises the pomodoro sessions of a day, or of all time.
type PomodoroStats struct {
	TotalSessions    int            `json:"total_sessions"`
	TotalWorkMinutes int            `json:"total_work_minutes"`
	Sessions         []FocusSession `json:"sessions"`
}

// SubjectSummary is the per-subject rollup of every study stat.
type SubjectSummary struct {
	Subject          string  `json:"subject"`
	TotalQuestions   int     `json:"total_questions"`
	TotalCorrect     int     `json:"total_correct"`
	TotalTimeMinutes int     `json:"total_time_minutes"`
	Accuracy         float64 `json:"accuracy"`
}

// Service records study activity and keeps the profile and badges in step with it.
type Service struct {
	repo           Repository
	clock          support.Clock
	ids            support.IDGenerator
	profiles       Creditor
	evaluator      Evaluator
	publisher      events.Publisher
	logger         *slog.Logger
	defaultProfile string
}

// Option customises a Service.
type Option func(*Service)

// WithCreditor sets the profile creditor. Without one no experience is awarded.
func WithCreditor(c Creditor) Option {
	return func(s *Service) { s.profiles = c }
}

// WithEvaluator sets the badge evaluator run after sessions and stats are recorded.
func WithEvaluator(e Evaluator) Option {
	return func(s *Service) { s.evaluator = e }
}

// WithPublisher sets where ActivityRecorded events go.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaultProfile sets the profile credited when the context carries no profile key.
func WithDefaultProfile(id string) Option {
	return func(s *Service) { s.defaultProfile = strings.TrimSpace(id) }
}

// NewService constructs a Service instance with the provided collaborators.
func NewService(repo Repository, clock support.Clock, ids support.IDGenerator, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	if ids == nil {
		return nil, errors.New("id generator is required")
	}
	s := &Service{
		repo:      repo,
		clock:     clock,
		ids:       ids,
		publisher: events.NopPublisher(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ===== Tasks =====

// CreateTask plans a new task.
func (s *Service) CreateTask(ctx context.Context, input CreateTaskInput) (Task, error) {
	input.normalize()
	if err := validateInput(input); err != nil {
		return Task{}, err
	}

	task := Task{
		ID:              s.ids.NewID(),
		Title:           input.Title,
		Subject:         input.Subject,
		Description:     input.Description,
		Priority:        input.Priority,
		Date:            input.Date,
		DurationMinutes: input.DurationMinutes,
		CreatedAt:       s.clock.Now().UTC(),
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return Task{}, err
	}
	return task, nil
}

// ListTasks returns the tasks matching the filter.
func (s *Service) ListTasks(ctx context.Context, f TaskFilter) ([]Task, error) {
	if err := checkDates(f.Date, f.From, f.To); err != nil {
		return nil, err
	}
	return s.repo.ListTasks(ctx, f)
}

// UpdateTask applies a partial update. An empty patch is rejected.
func (s *Service) UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Task{}, ErrNotFound
	}
	if patch.Empty() {
		return Task{}, fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}
	patch = trimPatch(patch)
	if err := validateInput(patch); err != nil {
		return Task{}, err
	}
	return s.repo.UpdateTask(ctx, id, patch)
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	return s.repo.DeleteTask(ctx, id)
}

// ===== Pomodoro sessions =====

// LogSession records a finished session, credits the profile for work time
// and evaluates the badge rules. Crediting and evaluation failures are logged
// and never undo the write.
func (s *Service) LogSession(ctx context.Context, input LogSessionInput) (SessionResult, error) {
	input.normalize()
	if err := validateInput(input); err != nil {
		return SessionResult{}, err
	}

	now := s.clock.Now()
	completed := true
	if input.Completed != nil {
		completed = *input.Completed
	}
	date := input.Date
	if date == "" {
		date = support.FormatDay(now)
	}

	session := FocusSession{
		ID:              s.ids.NewID(),
		DurationMinutes: input.DurationMinutes,
		SessionType:     input.SessionType,
		Subject:         input.Subject,
		Completed:       completed,
		MoodAfter:       input.MoodAfter,
		Date:            date,
		CreatedAt:       now.UTC(),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return SessionResult{}, err
	}

	if session.SessionType == SessionWork {
		s.credit(ctx, session.DurationMinutes, session.DurationMinutes)
	}
	s.publish(ctx, "session", session.ID, session.Date)

	return SessionResult{FocusSession: session, NewAchievements: s.evaluate(ctx)}, nil
}

// ListSessions returns the sessions matching the filter.
func (s *Service) ListSessions(ctx context.Context, f SessionFilter) ([]FocusSession, error) {
	if err := checkDates(f.Date, f.From, f.To); err != nil {
		return nil, err
	}
	return s.repo.ListSessions(ctx, f)
}

// PomodoroStats counts the work sessions of date (every day when empty) and
// returns them alongside all sessions of that day.
func (s *Service) PomodoroStats(ctx context.Context, date string) (PomodoroStats, error) {
	sessions, err := s.ListSessions(ctx, SessionFilter{Date: strings.TrimSpace(date)})
	if err != nil {
		return PomodoroStats{}, err
	}

	stats := PomodoroStats{Sessions: sessions}
	for _, session := range sessions {
		if session.SessionType != SessionWork {
			continue
		}
		stats.TotalSessions++
		stats.TotalWorkMinutes += session.DurationMinutes
	}
	if stats.Sessions == nil {
		stats.Sessions = []FocusSession{}
	}
	return stats, nil
}

// ===== Study stats =====

// RecordStat stores practice results, credits one experience point per
// question and evaluates the badge rules.
func (s *Service) RecordStat(ctx context.Context, input RecordStatInput) (StatResult, error) {
	input.normalize()
	if err := validateInput(input); err != nil {
		return StatResult{}, err
	}

	stat := StudyStat{
		ID:               s.ids.NewID(),
		Subject:          input.Subject,
		QuestionsSolved:  input.QuestionsSolved,
		CorrectAnswers:   input.CorrectAnswers,
		TimeSpentMinutes: input.TimeSpentMinutes,
		Date:             input.Date,
		CreatedAt:        s.clock.Now().UTC(),
	}
	if err := s.repo.CreateStat(ctx, stat); err != nil {
		return StatResult{}, err
	}

	s.credit(ctx, stat.QuestionsSolved, 0)
	s.publish(ctx, "study_stat", stat.ID, stat.Date)

	return StatResult{StudyStat: stat, NewAchievements: s.evaluate(ctx)}, nil
}

// ListStats returns the study stats matching the filter.
func (s *Service) ListStats(ctx context.Context, f StatFilter) ([]StudyStat, error) {
	if err := checkDates(f.Date, f.From, f.To); err != nil {
		return nil, err
	}
	f.Subject = strings.TrimSpace(f.Subject)
	return s.repo.ListStats(ctx, f)
}

// SubjectSummary rolls every study stat up per subject, ordered by subject.
func (s *Service) SubjectSummary(ctx context.Context) ([]SubjectSummary, error) {
	totals, err := s.repo.SumStatsBySubject(ctx, StatFilter{})
	if err != nil {
		return nil, err
	}

	out := make([]SubjectSummary, 0, len(totals))
	for _, t := range totals {
		out = append(out, SubjectSummary{
			Subject:          t.Subject,
			TotalQuestions:   t.Questions,
			TotalCorrect:     t.Correct,
			TotalTimeMinutes: t.Minutes,
			Accuracy:         Accuracy(t.Correct, t.Questions),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Subject < out[j].Subject })
	return out, nil
}

// Accuracy returns correct/questions as a percentage rounded to one decimal,
// or 0 when no questions were solved.
func Accuracy(correct, questions int) float64 {
	if questions <= 0 {
		return 0
	}
	pct := float64(correct) / float64(questions) * 100
	return math.Round(pct*10) / 10
}

// ===== Focus trees =====

// PlantTree records a focus-tree session. A grown tree earns experience for
// its minutes; a withered one earns nothing.
func (s *Service) PlantTree(ctx context.Context, input PlantTreeInput) (FocusTree, error) {
	input.normalize()
	if err := validateInput(input); err != nil {
		return FocusTree{}, err
	}

	now := s.clock.Now()
	date := input.Date
	if date == "" {
		date = support.FormatDay(now)
	}

	tree := FocusTree{
		ID:              s.ids.NewID(),
		TreeType:        input.TreeType,
		DurationMinutes: input.DurationMinutes,
		Status:          input.Status,
		Subject:         input.Subject,
		Date:            date,
		CreatedAt:       now.UTC(),
	}
	if err := s.repo.CreateTree(ctx, tree); err != nil {
		return FocusTree{}, err
	}

	if tree.Status == TreeGrown {
		s.credit(ctx, tree.DurationMinutes, tree.DurationMinutes)
	}
	s.publish(ctx, "focus_tree", tree.ID, tree.Date)
	return tree, nil
}

// ListTrees returns the focus trees matching the filter.
func (s *Service) ListTrees(ctx context.Context, f TreeFilter) ([]FocusTree, error) {
	if err := checkDates(f.Date); err != nil {
		return nil, err
	}
	return s.repo.ListTrees(ctx, f)
}

// ===== helpers =====

func (s *Service) profileKey(ctx context.Context) string {
	if key, ok := identity.ProfileKeyFromContext(ctx); ok {
		return key
	}
	return s.defaultProfile
}

func (s *Service) credit(ctx context.Context, experience, focusMinutes int) {
	if s.profiles == nil {
		return
	}
	key := s.profileKey(ctx)
	if key == "" {
		return
	}
	if err := s.profiles.Credit(ctx, key, experience, focusMinutes); err != nil {
		s.logger.ErrorContext(ctx, "credit profile failed",
			slog.String("profile", key),
			slog.Int("experience", experience),
			slog.Any("error", err))
	}
}

func (s *Service) evaluate(ctx context.Context) []achievement.Achievement {
	if s.evaluator == nil {
		return []achievement.Achievement{}
	}
	granted, err := s.evaluator.Evaluate(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "evaluate achievements failed", slog.Any("error", err))
	}
	if granted == nil {
		granted = []achievement.Achievement{}
	}
	return granted
}

func (s *Service) publish(ctx context.Context, kind, id, date string) {
	s.publisher.Publish(ctx, events.TopicActivityEvents, events.ActivityRecorded{
		Kind:       kind,
		RecordID:   id,
		Date:       date,
		RecordedAt: s.clock.Now().UTC(),
	})
}

func checkDates(values ...string) error {
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, err := support.ParseDay(v); err != nil {
			return fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, v)
		}
	}
	return nil
}

func trimPatch(p TaskPatch) TaskPatch {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	p.Title = trim(p.Title)
	p.Subject = trim(p.Subject)
	p.Description = trim(p.Description)
	p.Priority = trim(p.Priority)
	p.Date = trim(p.Date)
	return p
}
