package task

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/smarttask/backend/domain"
	"github.com/smarttask/backend/repository"
)

type fakeTaskRepo struct {
	tasks map[string]*domain.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]*domain.Task)}
}

func (r *fakeTaskRepo) GetByID(_ context.Context, userID, id string) (*domain.Task, error) {
	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return nil, domain.ErrTaskNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTaskRepo) List(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range r.tasks {
		if t.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		di, _ := time.Parse(domain.DueDateLayout, out[i].DueDate)
		dj, _ := time.Parse(domain.DueDateLayout, out[j].DueDate)
		return di.Before(dj)
	})
	return out, nil
}

func (r *fakeTaskRepo) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = domain.StatusActive
	}
	task.CreatedAt = time.Now()
	stored := *task
	r.tasks[task.ID] = &stored
	return task, nil
}

func (r *fakeTaskRepo) Complete(_ context.Context, userID, id string, at time.Time) (*domain.Task, error) {
	t, ok := r.tasks[id]
	if !ok || t.UserID != userID || t.Status != domain.StatusActive {
		return nil, domain.ErrTaskNotFound
	}
	t.Status = domain.StatusCompleted
	t.CompletionDate = &at
	copied := *t
	return &copied, nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, userID, id string) error {
	t, ok := r.tasks[id]
	if !ok || t.UserID != userID {
		return domain.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) CountByStatus(_ context.Context, userID string) (repository.StatusCounts, error) {
	var counts repository.StatusCounts
	for _, t := range r.tasks {
		if t.UserID != userID {
			continue
		}
		switch t.Status {
		case domain.StatusActive:
			counts.Active++
		case domain.StatusCompleted:
			counts.Completed++
		}
	}
	return counts, nil
}

type fakeExtractor struct {
	draft *domain.Draft
	err   error
}

func (f *fakeExtractor) Extract(context.Context, string) (*domain.Draft, error) {
	return f.draft, f.err
}

func TestCreateFromNoteRoundTrip(t *testing.T) {
	repo := newFakeTaskRepo()
	extractor := &fakeExtractor{draft: &domain.Draft{
		Description: "Write an email to David on ABC project",
		Customer:    "David",
		DueDate:     "15-11-2030",
		Priority:    domain.PriorityMedium,
	}}
	uc := New(repo, extractor, nil, nil)
	ctx := context.Background()

	created, err := uc.CreateFromNote(ctx, "user-1", "Write an email to David on ABC project by tomorrow")
	if err != nil {
		t.Fatalf("create from note: %v", err)
	}
	if created.Status != domain.StatusActive {
		t.Errorf("status = %q, want active", created.Status)
	}
	if created.CompletionDate != nil {
		t.Error("fresh task must have no completion date")
	}

	active, err := uc.ListTasks(ctx, repository.TaskFilter{UserID: "user-1", Status: domain.StatusActive})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 || active[0].ID != created.ID {
		t.Fatalf("active list should contain the created task, got %v", active)
	}
}

func TestCreateFromNoteExtractionFailureWritesNothing(t *testing.T) {
	repo := newFakeTaskRepo()
	extractor := &fakeExtractor{err: domain.ErrIncompleteRecord}
	uc := New(repo, extractor, nil, nil)

	_, err := uc.CreateFromNote(context.Background(), "user-1", "some note")
	if !errors.Is(err, domain.ErrIncompleteRecord) {
		t.Fatalf("expected ErrIncompleteRecord, got %v", err)
	}
	if len(repo.tasks) != 0 {
		t.Error("no task may be persisted when extraction fails")
	}
}

func TestCompleteTaskTransitions(t *testing.T) {
	repo := newFakeTaskRepo()
	uc := New(repo, nil, nil, nil)
	ctx := context.Background()

	created, err := uc.CreateTask(ctx, &domain.Task{
		UserID:      "user-1",
		Description: "Ship release",
		Customer:    "Unspecified",
		DueDate:     "01-01-2031",
		Priority:    domain.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	completed, err := uc.CompleteTask(ctx, "user-1", created.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != domain.StatusCompleted {
		t.Errorf("status = %q, want completed", completed.Status)
	}
	if completed.CompletionDate == nil {
		t.Fatal("completion date must be set")
	}

	active, _ := uc.ListTasks(ctx, repository.TaskFilter{UserID: "user-1", Status: domain.StatusActive})
	if len(active) != 0 {
		t.Error("completed task still listed as active")
	}
	done, _ := uc.ListTasks(ctx, repository.TaskFilter{UserID: "user-1", Status: domain.StatusCompleted})
	if len(done) != 1 {
		t.Error("completed task missing from completed list")
	}

	// Completion is one-way and stamped once.
	if _, err := uc.CompleteTask(ctx, "user-1", created.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("re-completing should fail with ErrTaskNotFound, got %v", err)
	}
}

func TestCompleteTaskScopedByUser(t *testing.T) {
	repo := newFakeTaskRepo()
	uc := New(repo, nil, nil, nil)
	ctx := context.Background()

	created, err := uc.CreateTask(ctx, &domain.Task{
		UserID:      "owner",
		Description: "Private task",
		Customer:    "Unspecified",
		DueDate:     "01-01-2031",
		Priority:    domain.PriorityLow,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := uc.CompleteTask(ctx, "intruder", created.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("cross-user complete should fail with ErrTaskNotFound, got %v", err)
	}

	stored, err := uc.GetTask(ctx, "owner", created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.StatusActive || stored.CompletionDate != nil {
		t.Error("cross-user complete modified the task")
	}
}

func TestCreateTaskRejectsOutOfRangeValues(t *testing.T) {
	uc := New(newFakeTaskRepo(), nil, nil, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		task domain.Task
	}{
		{"bad priority", domain.Task{UserID: "u", Description: "x", DueDate: "01-01-2031", Priority: "Urgent"}},
		{"bad due date", domain.Task{UserID: "u", Description: "x", DueDate: "soon", Priority: domain.PriorityLow}},
		{"bad status", domain.Task{UserID: "u", Description: "x", DueDate: "01-01-2031", Priority: domain.PriorityLow, Status: "archived"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := tc.task
			if _, err := uc.CreateTask(ctx, &task); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
				t.Errorf("expected INVALID, got %v", err)
			}
		})
	}
}

func TestDeleteTaskScopedByUser(t *testing.T) {
	repo := newFakeTaskRepo()
	uc := New(repo, nil, nil, nil)
	ctx := context.Background()

	created, _ := uc.CreateTask(ctx, &domain.Task{
		UserID: "owner", Description: "x", DueDate: "01-01-2031", Priority: domain.PriorityLow,
	})

	if err := uc.DeleteTask(ctx, "intruder", created.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("cross-user delete should fail, got %v", err)
	}
	if err := uc.DeleteTask(ctx, "owner", created.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if len(repo.tasks) != 0 {
		t.Error("task not removed")
	}
}

func TestGetStats(t *testing.T) {
	repo := newFakeTaskRepo()
	uc := New(repo, nil, nil, nil)
	uc.now = func() time.Time { return time.Date(2024, 11, 14, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	seed := []domain.Task{
		{UserID: "u", Description: "overdue", DueDate: "01-01-2024", Priority: domain.PriorityHigh},
		{UserID: "u", Description: "future", DueDate: "01-01-2031", Priority: domain.PriorityLow},
		{UserID: "u", Description: "done", DueDate: "01-01-2024", Priority: domain.PriorityMedium},
		{UserID: "other", Description: "foreign", DueDate: "01-01-2024", Priority: domain.PriorityLow},
	}
	for i := range seed {
		task := seed[i]
		created, err := uc.CreateTask(ctx, &task)
		if err != nil {
			t.Fatalf("seed create: %v", err)
		}
		if task.Description == "done" {
			if _, err := uc.CompleteTask(ctx, "u", created.ID); err != nil {
				t.Fatalf("seed complete: %v", err)
			}
		}
	}

	stats, err := uc.GetStats(ctx, "u")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Active != 2 || stats.Completed != 1 || stats.Total != 3 {
		t.Errorf("counts = %+v", stats)
	}
	if stats.Overdue != 1 {
		t.Errorf("overdue = %d, want 1", stats.Overdue)
	}
	want := float64(1) / float64(3) * 100
	if stats.CompletionRate < want-0.01 || stats.CompletionRate > want+0.01 {
		t.Errorf("completion rate = %f, want %f", stats.CompletionRate, want)
	}
}
