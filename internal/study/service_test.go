package study

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/focusnest/study-service/internal/achievement"
	"github.com/focusnest/study-service/pkg/identity"
)

type fakeRepo struct {
	createTaskFn        func(context.Context, Task) error
	updateTaskFn        func(context.Context, string, TaskPatch) (Task, error)
	deleteTaskFn        func(context.Context, string) error
	listTasksFn         func(context.Context, TaskFilter) ([]Task, error)
	createSessionFn     func(context.Context, FocusSession) error
	listSessionsFn      func(context.Context, SessionFilter) ([]FocusSession, error)
	countSessionsFn     func(context.Context, SessionFilter) (int, error)
	distinctDatesFn     func(context.Context, SessionFilter) ([]string, error)
	createStatFn        func(context.Context, StudyStat) error
	sumStatsFn          func(context.Context, StatFilter) (StatTotals, error)
	sumStatsBySubjectFn func(context.Context, StatFilter) ([]SubjectTotals, error)
	createTreeFn        func(context.Context, FocusTree) error
}

func (f *fakeRepo) CreateTask(ctx context.Context, t Task) error {
	if f.createTaskFn != nil {
		return f.createTaskFn(ctx, t)
	}
	return nil
}

func (f *fakeRepo) GetTask(context.Context, string) (Task, error) {
	return Task{}, ErrNotFound
}

func (f *fakeRepo) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	if f.listTasksFn != nil {
		return f.listTasksFn(ctx, filter)
	}
	return nil, nil
}

func (f *fakeRepo) CountTasks(context.Context, TaskFilter) (int, error) {
	return 0, nil
}

func (f *fakeRepo) UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error) {
	if f.updateTaskFn != nil {
		return f.updateTaskFn(ctx, id, patch)
	}
	return Task{}, errors.New("updateTaskFn not provided")
}

func (f *fakeRepo) DeleteTask(ctx context.Context, id string) error {
	if f.deleteTaskFn != nil {
		return f.deleteTaskFn(ctx, id)
	}
	return nil
}

func (f *fakeRepo) CreateSession(ctx context.Context, s FocusSession) error {
	if f.createSessionFn != nil {
		return f.createSessionFn(ctx, s)
	}
	return nil
}

func (f *fakeRepo) ListSessions(ctx context.Context, filter SessionFilter) ([]FocusSession, error) {
	if f.listSessionsFn != nil {
		return f.listSessionsFn(ctx, filter)
	}
	return nil, nil
}

func (f *fakeRepo) CountSessions(ctx context.Context, filter SessionFilter) (int, error) {
	if f.countSessionsFn != nil {
		return f.countSessionsFn(ctx, filter)
	}
	return 0, nil
}

func (f *fakeRepo) DistinctSessionDates(ctx context.Context, filter SessionFilter) ([]string, error) {
	if f.distinctDatesFn != nil {
		return f.distinctDatesFn(ctx, filter)
	}
	return nil, nil
}

func (f *fakeRepo) SumSessionMinutes(context.Context, SessionFilter) (int, error) {
	return 0, nil
}

func (f *fakeRepo) CreateStat(ctx context.Context, s StudyStat) error {
	if f.createStatFn != nil {
		return f.createStatFn(ctx, s)
	}
	return nil
}

func (f *fakeRepo) ListStats(context.Context, StatFilter) ([]StudyStat, error) {
	return nil, nil
}

func (f *fakeRepo) SumStats(ctx context.Context, filter StatFilter) (StatTotals, error) {
	if f.sumStatsFn != nil {
		return f.sumStatsFn(ctx, filter)
	}
	return StatTotals{}, nil
}

func (f *fakeRepo) SumStatsBySubject(ctx context.Context, filter StatFilter) ([]SubjectTotals, error) {
	if f.sumStatsBySubjectFn != nil {
		return f.sumStatsBySubjectFn(ctx, filter)
	}
	return nil, nil
}

func (f *fakeRepo) CreateTree(ctx context.Context, t FocusTree) error {
	if f.createTreeFn != nil {
		return f.createTreeFn(ctx, t)
	}
	return nil
}

func (f *fakeRepo) ListTrees(context.Context, TreeFilter) ([]FocusTree, error) {
	return nil, nil
}

type credit struct {
	profile      string
	experience   int
	focusMinutes int
}

type fakeCreditor struct {
	calls []credit
	err   error
}

func (f *fakeCreditor) Credit(_ context.Context, id string, experience, focusMinutes int) error {
	f.calls = append(f.calls, credit{profile: id, experience: experience, focusMinutes: focusMinutes})
	return f.err
}

type fakeEvaluator struct {
	calls   int
	granted []achievement.Achievement
	err     error
}

func (f *fakeEvaluator) Evaluate(context.Context) ([]achievement.Achievement, error) {
	f.calls++
	return f.granted, f.err
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqIDs struct{ n int }

func (s *seqIDs) NewID() string {
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

var testNow = time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, repo Repository, opts ...Option) *Service {
	t.Helper()
	svc, err := NewService(repo, fixedClock{now: testNow}, &seqIDs{}, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateTaskAppliesDefaults(t *testing.T) {
	var stored Task
	repo := &fakeRepo{createTaskFn: func(_ context.Context, task Task) error {
		stored = task
		return nil
	}}
	svc := newTestService(t, repo)

	task, err := svc.CreateTask(context.Background(), CreateTaskInput{
		Title:   "  Derivatives  ",
		Subject: "Math",
		Date:    "2024-04-02",
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Title != "Derivatives" {
		t.Fatalf("expected trimmed title, got %q", task.Title)
	}
	if task.Priority != PriorityMedium || task.DurationMinutes != 25 || task.Completed {
		t.Fatalf("unexpected defaults: %+v", task)
	}
	if task.ID != "id-1" || !task.CreatedAt.Equal(testNow) {
		t.Fatalf("unexpected id or timestamp: %+v", task)
	}
	if stored != task {
		t.Fatalf("stored task differs from returned task")
	}
}

func TestCreateTaskValidation(t *testing.T) {
	svc := newTestService(t, &fakeRepo{})

	tests := []struct {
		name  string
		input CreateTaskInput
		want  string
	}{
		{name: "missing title", input: CreateTaskInput{Subject: "Math", Date: "2024-04-02"}, want: "title is required"},
		{name: "missing subject", input: CreateTaskInput{Title: "x", Date: "2024-04-02"}, want: "subject is required"},
		{name: "bad date", input: CreateTaskInput{Title: "x", Subject: "Math", Date: "02/04/2024"}, want: "date must be a YYYY-MM-DD date"},
		{name: "bad priority", input: CreateTaskInput{Title: "x", Subject: "Math", Date: "2024-04-02", Priority: "urgent"}, want: "priority must be one of"},
		{name: "negative duration", input: CreateTaskInput{Title: "x", Subject: "Math", Date: "2024-04-02", DurationMinutes: -5}, want: "duration_minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTask(context.Background(), tt.input)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestUpdateTaskRejectsEmptyPatch(t *testing.T) {
	svc := newTestService(t, &fakeRepo{})

	_, err := svc.UpdateTask(context.Background(), "task-1", TaskPatch{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateTaskPassesTrimmedPatch(t *testing.T) {
	var gotID string
	var gotPatch TaskPatch
	repo := &fakeRepo{updateTaskFn: func(_ context.Context, id string, patch TaskPatch) (Task, error) {
		gotID, gotPatch = id, patch
		return patch.Apply(Task{ID: id, Title: "old"}), nil
	}}
	svc := newTestService(t, repo)

	title := "  new title "
	done := true
	task, err := svc.UpdateTask(context.Background(), " task-1 ", TaskPatch{Title: &title, Completed: &done})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if gotID != "task-1" || *gotPatch.Title != "new title" {
		t.Fatalf("unexpected repo call: id=%q patch=%+v", gotID, gotPatch)
	}
	if !task.Completed || task.Title != "new title" {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	repo := &fakeRepo{updateTaskFn: func(context.Context, string, TaskPatch) (Task, error) {
		return Task{}, ErrNotFound
	}}
	svc := newTestService(t, repo)

	done := true
	if _, err := svc.UpdateTask(context.Background(), "missing", TaskPatch{Completed: &done}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.DeleteTask(context.Background(), "  "); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for blank id, got %v", err)
	}
}

func TestLogSessionCreditsWorkAndEvaluates(t *testing.T) {
	var stored FocusSession
	repo := &fakeRepo{createSessionFn: func(_ context.Context, s FocusSession) error {
		stored = s
		return nil
	}}
	creditor := &fakeCreditor{}
	evaluator := &fakeEvaluator{granted: []achievement.Achievement{{BadgeType: achievement.BadgeFirstPomodoro}}}
	svc := newTestService(t, repo,
		WithCreditor(creditor),
		WithEvaluator(evaluator),
		WithDefaultProfile("default_user"),
	)

	result, err := svc.LogSession(context.Background(), LogSessionInput{DurationMinutes: 25, SessionType: SessionWork, MoodAfter: "happy"})
	if err != nil {
		t.Fatalf("LogSession: %v", err)
	}
	if stored.Date != "2024-04-02" || !stored.Completed {
		t.Fatalf("expected today's date and completed default, got %+v", stored)
	}
	if len(creditor.calls) != 1 || creditor.calls[0] != (credit{profile: "default_user", experience: 25, focusMinutes: 25}) {
		t.Fatalf("unexpected credits: %+v", creditor.calls)
	}
	if evaluator.calls != 1 {
		t.Fatalf("expected one evaluation, got %d", evaluator.calls)
	}
	if len(result.NewAchievements) != 1 || result.NewAchievements[0].BadgeType != achievement.BadgeFirstPomodoro {
		t.Fatalf("unexpected new achievements: %+v", result.NewAchievements)
	}
}

func TestLogSessionBreakEarnsNothing(t *testing.T) {
	creditor := &fakeCreditor{}
	evaluator := &fakeEvaluator{}
	svc := newTestService(t, &fakeRepo{}, WithCreditor(creditor), WithEvaluator(evaluator), WithDefaultProfile("p"))

	result, err := svc.LogSession(context.Background(), LogSessionInput{DurationMinutes: 5, SessionType: SessionBreak, Date: "2024-04-01"})
	if err != nil {
		t.Fatalf("LogSession: %v", err)
	}
	if len(creditor.calls) != 0 {
		t.Fatalf("break sessions must not credit, got %+v", creditor.calls)
	}
	if result.Date != "2024-04-01" {
		t.Fatalf("expected explicit date to be kept, got %q", result.Date)
	}
	if result.NewAchievements == nil {
		t.Fatalf("expected empty, non-nil achievements")
	}
}

func TestLogSessionUsesProfileFromContext(t *testing.T) {
	creditor := &fakeCreditor{}
	svc := newTestService(t, &fakeRepo{}, WithCreditor(creditor), WithDefaultProfile("fallback"))

	ctx := identity.WithProfileKey(context.Background(), "from-ctx")
	if _, err := svc.LogSession(ctx, LogSessionInput{DurationMinutes: 10, SessionType: SessionWork}); err != nil {
		t.Fatalf("LogSession: %v", err)
	}
	if len(creditor.calls) != 1 || creditor.calls[0].profile != "from-ctx" {
		t.Fatalf("unexpected credits: %+v", creditor.calls)
	}
}

func TestLogSessionSurvivesCreditAndEvaluationFailures(t *testing.T) {
	creditor := &fakeCreditor{err: errors.New("profile store down")}
	evaluator := &fakeEvaluator{err: fmt.Errorf("%w: boom", achievement.ErrStoreUnavailable)}
	svc := newTestService(t, &fakeRepo{}, WithCreditor(creditor), WithEvaluator(evaluator), WithDefaultProfile("p"))

	result, err := svc.LogSession(context.Background(), LogSessionInput{DurationMinutes: 25, SessionType: SessionWork})
	if err != nil {
		t.Fatalf("expected write to succeed, got %v", err)
	}
	if result.ID == "" || len(result.NewAchievements) != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestLogSessionInsertFailureSkipsEvaluation(t *testing.T) {
	repo := &fakeRepo{createSessionFn: func(context.Context, FocusSession) error {
		return errors.New("insert failed")
	}}
	evaluator := &fakeEvaluator{}
	svc := newTestService(t, repo, WithEvaluator(evaluator))

	if _, err := svc.LogSession(context.Background(), LogSessionInput{DurationMinutes: 25, SessionType: SessionWork}); err == nil {
		t.Fatalf("expected insert error")
	}
	if evaluator.calls != 0 {
		t.Fatalf("evaluation must not run after a failed insert")
	}
}

func TestLogSessionValidation(t *testing.T) {
	svc := newTestService(t, &fakeRepo{})

	inputs := []LogSessionInput{
		{DurationMinutes: 0, SessionType: SessionWork},
		{DurationMinutes: 25, SessionType: "nap"},
		{DurationMinutes: 25, SessionType: SessionWork, MoodAfter: "angry"},
		{DurationMinutes: 25, SessionType: SessionWork, Date: "yesterday"},
	}
	for _, in := range inputs {
		if _, err := svc.LogSession(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", in, err)
		}
	}
}

func TestPomodoroStatsCountsWorkOnly(t *testing.T) {
	var gotFilter SessionFilter
	repo := &fakeRepo{listSessionsFn: func(_ context.Context, f SessionFilter) ([]FocusSession, error) {
		gotFilter = f
		return []FocusSession{
			{ID: "1", SessionType: SessionWork, DurationMinutes: 25},
			{ID: "2", SessionType: SessionBreak, DurationMinutes: 5},
			{ID: "3", SessionType: SessionWork, DurationMinutes: 50},
		}, nil
	}}
	svc := newTestService(t, repo)

	stats, err := svc.PomodoroStats(context.Background(), "2024-04-02")
	if err != nil {
		t.Fatalf("PomodoroStats: %v", err)
	}
	if gotFilter.Date != "2024-04-02" {
		t.Fatalf("expected date filter, got %+v", gotFilter)
	}
	if stats.TotalSessions != 2 || stats.TotalWorkMinutes != 75 || len(stats.Sessions) != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRecordStatCreditsQuestions(t *testing.T) {
	creditor := &fakeCreditor{}
	evaluator := &fakeEvaluator{}
	svc := newTestService(t, &fakeRepo{}, WithCreditor(creditor), WithEvaluator(evaluator), WithDefaultProfile("p"))

	result, err := svc.RecordStat(context.Background(), RecordStatInput{
		Subject:          "Physics",
		QuestionsSolved:  15,
		CorrectAnswers:   12,
		TimeSpentMinutes: 45,
		Date:             "2024-04-02",
	})
	if err != nil {
		t.Fatalf("RecordStat: %v", err)
	}
	if result.Subject != "Physics" || result.QuestionsSolved != 15 {
		t.Fatalf("unexpected stat: %+v", result)
	}
	if len(creditor.calls) != 1 || creditor.calls[0] != (credit{profile: "p", experience: 15}) {
		t.Fatalf("unexpected credits: %+v", creditor.calls)
	}
	if evaluator.calls != 1 {
		t.Fatalf("expected evaluation after stat, got %d", evaluator.calls)
	}
}

func TestRecordStatValidation(t *testing.T) {
	svc := newTestService(t, &fakeRepo{})

	inputs := []RecordStatInput{
		{Subject: "", Date: "2024-04-02"},
		{Subject: "Math"},
		{Subject: "Math", Date: "2024-04-02", QuestionsSolved: -1},
		{Subject: "Math", Date: "2024-04-02", CorrectAnswers: -1},
		{Subject: "Math", Date: "2024-04-02", TimeSpentMinutes: -1},
	}
	for _, in := range inputs {
		if _, err := svc.RecordStat(context.Background(), in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", in, err)
		}
	}
}

func TestSubjectSummaryAccuracy(t *testing.T) {
	repo := &fakeRepo{sumStatsBySubjectFn: func(context.Context, StatFilter) ([]SubjectTotals, error) {
		return []SubjectTotals{
			{Subject: "Physics", StatTotals: StatTotals{Questions: 3, Correct: 2, Minutes: 30}},
			{Subject: "Chemistry", StatTotals: StatTotals{Questions: 0, Correct: 0, Minutes: 10}},
			{Subject: "Biology", StatTotals: StatTotals{Questions: 8, Correct: 7, Minutes: 20}},
		}, nil
	}}
	svc := newTestService(t, repo)

	summary, err := svc.SubjectSummary(context.Background())
	if err != nil {
		t.Fatalf("SubjectSummary: %v", err)
	}
	want := []SubjectSummary{
		{Subject: "Biology", TotalQuestions: 8, TotalCorrect: 7, TotalTimeMinutes: 20, Accuracy: 87.5},
		{Subject: "Chemistry", TotalQuestions: 0, TotalCorrect: 0, TotalTimeMinutes: 10, Accuracy: 0},
		{Subject: "Physics", TotalQuestions: 3, TotalCorrect: 2, TotalTimeMinutes: 30, Accuracy: 66.7},
	}
	if len(summary) != len(want) {
		t.Fatalf("expected %d subjects, got %d", len(want), len(summary))
	}
	for i := range want {
		if summary[i] != want[i] {
			t.Fatalf("summary[%d] = %+v, want %+v", i, summary[i], want[i])
		}
	}
}

func TestPlantTree(t *testing.T) {
	creditor := &fakeCreditor{}
	svc := newTestService(t, &fakeRepo{}, WithCreditor(creditor), WithDefaultProfile("p"))

	grown, err := svc.PlantTree(context.Background(), PlantTreeInput{DurationMinutes: 30, Status: TreeGrown})
	if err != nil {
		t.Fatalf("PlantTree: %v", err)
	}
	if grown.TreeType != "oak" || grown.Date != "2024-04-02" {
		t.Fatalf("unexpected defaults: %+v", grown)
	}
	if _, err := svc.PlantTree(context.Background(), PlantTreeInput{TreeType: "cactus", DurationMinutes: 30, Status: TreeWithered}); err != nil {
		t.Fatalf("PlantTree withered: %v", err)
	}
	if len(creditor.calls) != 1 || creditor.calls[0].experience != 30 {
		t.Fatalf("only the grown tree should credit, got %+v", creditor.calls)
	}

	if _, err := svc.PlantTree(context.Background(), PlantTreeInput{TreeType: "baobab", DurationMinutes: 30, Status: TreeGrown}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown tree, got %v", err)
	}
}

func TestListFiltersRejectMalformedDates(t *testing.T) {
	svc := newTestService(t, &fakeRepo{})

	if _, err := svc.ListTasks(context.Background(), TaskFilter{Date: "04-02-2024"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.ListTrees(context.Background(), TreeFilter{Date: "today"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestActivitySourceQueriesWorkSessions(t *testing.T) {
	var countFilter, datesFilter SessionFilter
	repo := &fakeRepo{
		countSessionsFn: func(_ context.Context, f SessionFilter) (int, error) {
			countFilter = f
			return 4, nil
		},
		distinctDatesFn: func(_ context.Context, f SessionFilter) ([]string, error) {
			datesFilter = f
			return []string{"2024-04-01"}, nil
		},
		sumStatsFn: func(context.Context, StatFilter) (StatTotals, error) {
			return StatTotals{Questions: 120}, nil
		},
	}
	src := NewActivitySource(repo)
	ctx := context.Background()

	n, err := src.WorkSessionCount(ctx)
	if err != nil || n != 4 || countFilter.SessionType != SessionWork {
		t.Fatalf("WorkSessionCount = %d, %v (filter %+v)", n, err, countFilter)
	}
	q, err := src.TotalQuestions(ctx)
	if err != nil || q != 120 {
		t.Fatalf("TotalQuestions = %d, %v", q, err)
	}
	dates, err := src.WorkSessionDates(ctx)
	if err != nil || len(dates) != 1 || datesFilter.SessionType != SessionWork {
		t.Fatalf("WorkSessionDates = %v, %v (filter %+v)", dates, err, datesFilter)
	}
}
