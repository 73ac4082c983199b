package study

import (
	"context"
	"errors"
	"time"
)

// Session types.
const (
	SessionWork  = "work"
	SessionBreak = "break"
)

// Tree outcomes.
const (
	TreeGrown    = "grown"
	TreeWithered = "withered"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

const (
	defaultTaskMinutes = 25
	defaultTreeType    = "oak"
)

// Task is a planned study item for a given day.
type Task struct {
	ID              string    `json:"id" firestore:"id" bson:"id"`
	Title           string    `json:"title" firestore:"title" bson:"title"`
	Subject         string    `json:"subject" firestore:"subject" bson:"subject"`
	Description     string    `json:"description,omitempty" firestore:"description" bson:"description,omitempty"`
	Completed       bool      `json:"completed" firestore:"completed" bson:"completed"`
	Priority        string    `json:"priority" firestore:"priority" bson:"priority"`
	Date            string    `json:"date" firestore:"date" bson:"date"`
	DurationMinutes int       `json:"duration_minutes" firestore:"duration_minutes" bson:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at" firestore:"created_at" bson:"created_at"`
}

// FocusSession is a completed pomodoro work or break interval.
type FocusSession struct {
	ID              string    `json:"id" firestore:"id" bson:"id"`
	DurationMinutes int       `json:"duration_minutes" firestore:"duration_minutes" bson:"duration_minutes"`
	SessionType     string    `json:"session_type" firestore:"session_type" bson:"session_type"`
	Subject         string    `json:"subject,omitempty" firestore:"subject" bson:"subject,omitempty"`
	Completed       bool      `json:"completed" firestore:"completed" bson:"completed"`
	MoodAfter       string    `json:"mood_after,omitempty" firestore:"mood_after" bson:"mood_after,omitempty"`
	Date            string    `json:"date" firestore:"date" bson:"date"`
	CreatedAt       time.Time `json:"created_at" firestore:"created_at" bson:"created_at"`
}

// StudyStat records questions practised for a subject on a given day.
type StudyStat struct {
	ID               string    `json:"id" firestore:"id" bson:"id"`
	Subject          string    `json:"subject" firestore:"subject" bson:"subject"`
	QuestionsSolved  int       `json:"questions_solved" firestore:"questions_solved" bson:"questions_solved"`
	CorrectAnswers   int       `json:"correct_answers" firestore:"correct_answers" bson:"correct_answers"`
	TimeSpentMinutes int       `json:"time_spent_minutes" firestore:"time_spent_minutes" bson:"time_spent_minutes"`
	Date             string    `json:"date" firestore:"date" bson:"date"`
	CreatedAt        time.Time `json:"created_at" firestore:"created_at" bson:"created_at"`
}

// FocusTree is a gamified focus session: the tree grows when the session is
// finished and withers when it is abandoned.
type FocusTree struct {
	ID              string    `json:"id" firestore:"id" bson:"id"`
	TreeType        string    `json:"tree_type" firestore:"tree_type" bson:"tree_type"`
	DurationMinutes int       `json:"duration_minutes" firestore:"duration_minutes" bson:"duration_minutes"`
	Status          string    `json:"status" firestore:"status" bson:"status"`
	Subject         string    `json:"subject,omitempty" firestore:"subject" bson:"subject,omitempty"`
	Date            string    `json:"date" firestore:"date" bson:"date"`
	CreatedAt       time.Time `json:"created_at" firestore:"created_at" bson:"created_at"`
}

// TaskFilter narrows task queries. Zero fields match everything; From and To
// are inclusive YYYY-MM-DD bounds.
type TaskFilter struct {
	Date      string
	From      string
	To        string
	Completed *bool
}

// Matches reports whether t satisfies the filter.
func (f TaskFilter) Matches(t Task) bool {
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	return matchDate(t.Date, f.Date, f.From, f.To)
}

// SessionFilter narrows focus session queries.
type SessionFilter struct {
	Date        string
	From        string
	To          string
	SessionType string
}

// Matches reports whether s satisfies the filter.
func (f SessionFilter) Matches(s FocusSession) bool {
	if f.SessionType != "" && s.SessionType != f.SessionType {
		return false
	}
	return matchDate(s.Date, f.Date, f.From, f.To)
}

// StatFilter narrows study stat queries.
type StatFilter struct {
	Date    string
	From    string
	To      string
	Subject string
}

// Matches reports whether s satisfies the filter.
func (f StatFilter) Matches(s StudyStat) bool {
	if f.Subject != "" && s.Subject != f.Subject {
		return false
	}
	return matchDate(s.Date, f.Date, f.From, f.To)
}

// TreeFilter narrows focus tree queries.
type TreeFilter struct {
	Date   string
	Status string
}

// Matches reports whether t satisfies the filter.
func (f TreeFilter) Matches(t FocusTree) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return matchDate(t.Date, f.Date, "", "")
}

// Dates are YYYY-MM-DD, so lexical order is calendar order.
func matchDate(value, exact, from, to string) bool {
	if exact != "" && value != exact {
		return false
	}
	if from != "" && value < from {
		return false
	}
	if to != "" && value > to {
		return false
	}
	return true
}

// StatTotals sums the numeric study stat fields.
type StatTotals struct {
	Questions int `json:"total_questions" bson:"questions"`
	Correct   int `json:"total_correct" bson:"correct"`
	Minutes   int `json:"total_time_minutes" bson:"minutes"`
}

// SubjectTotals are StatTotals grouped by subject.
type SubjectTotals struct {
	Subject string `bson:"_id"`
	StatTotals `bson:",inline"`
}

// TaskPatch carries the task fields to change; nil fields are left untouched.
type TaskPatch struct {
	Title           *string `json:"title" validate:"omitempty,min=1,max=200"`
	Subject         *string `json:"subject" validate:"omitempty,min=1,max=100"`
	Description     *string `json:"description" validate:"omitempty,max=2000"`
	Completed       *bool   `json:"completed"`
	Priority        *string `json:"priority" validate:"omitempty,oneof=low medium high"`
	Date            *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,min=1,max=1440"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil &&
		p.Subject == nil &&
		p.Description == nil &&
		p.Completed == nil &&
		p.Priority == nil &&
		p.Date == nil &&
		p.DurationMinutes == nil
}

// Apply returns t with the patch applied.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Subject != nil {
		t.Subject = *p.Subject
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.DurationMinutes != nil {
		t.DurationMinutes = *p.DurationMinutes
	}
	return t
}

// TaskRepository persists tasks.
type TaskRepository interface {
	CreateTask(ctx context.Context, t Task) error
	GetTask(ctx context.Context, id string) (Task, error)
	ListTasks(ctx context.Context, f TaskFilter) ([]Task, error)
	CountTasks(ctx context.Context, f TaskFilter) (int, error)
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// SessionRepository persists focus sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, s FocusSession) error
	ListSessions(ctx context.Context, f SessionFilter) ([]FocusSession, error)
	CountSessions(ctx context.Context, f SessionFilter) (int, error)
	DistinctSessionDates(ctx context.Context, f SessionFilter) ([]string, error)
	SumSessionMinutes(ctx context.Context, f SessionFilter) (int, error)
}

// StatRepository persists study stats.
type StatRepository interface {
	CreateStat(ctx context.Context, s StudyStat) error
	ListStats(ctx context.Context, f StatFilter) ([]StudyStat, error)
	SumStats(ctx context.Context, f StatFilter) (StatTotals, error)
	SumStatsBySubject(ctx context.Context, f StatFilter) ([]SubjectTotals, error)
}

// TreeRepository persists focus trees.
type TreeRepository interface {
	CreateTree(ctx context.Context, t FocusTree) error
	ListTrees(ctx context.Context, f TreeFilter) ([]FocusTree, error)
}

// Repository is the full event store used by the study service.
type Repository interface {
	TaskRepository
	SessionRepository
	StatRepository
	TreeRepository
}

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a duplicate identifier collision.
	ErrConflict = errors.New("record already exists")
	// ErrInvalidInput indicates the provided data failed validation.
	ErrInvalidInput = errors.New("invalid input")
)
