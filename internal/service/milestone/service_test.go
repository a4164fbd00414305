package milestone

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"renomarket/internal/apperr"
	"renomarket/internal/model"
)

type fakeMilestoneStore struct {
	milestones map[int]*model.Milestone
	nextID     int

	lastStatus         string
	lastCompletionDate *time.Time
	updateCalls        int
}

func newFakeMilestoneStore() *fakeMilestoneStore {
	return &fakeMilestoneStore{milestones: map[int]*model.Milestone{}, nextID: 1}
}

func (f *fakeMilestoneStore) Insert(ctx context.Context, m *model.Milestone) (int, error) {
	id := f.nextID
	f.nextID++
	cp := *m
	cp.ID = id
	f.milestones[id] = &cp
	return id, nil
}

func (f *fakeMilestoneStore) FindByID(ctx context.Context, id int) (*model.Milestone, error) {
	m, ok := f.milestones[id]
	if !ok {
		return nil, apperr.NotFound("milestone", id)
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMilestoneStore) ListByProject(ctx context.Context, projectID int) ([]model.Milestone, error) {
	var out []model.Milestone
	for _, m := range f.milestones {
		if m.ProjectID == projectID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMilestoneStore) SumPercentages(ctx context.Context, projectID, excludeID int) (float64, error) {
	var total float64
	for _, m := range f.milestones {
		if m.ProjectID == projectID && m.ID != excludeID {
			total += m.PaymentPercentage
		}
	}
	return total, nil
}

func (f *fakeMilestoneStore) Update(ctx context.Context, id int, u model.MilestoneUpdate) error {
	f.updateCalls++
	m := f.milestones[id]
	if u.PaymentPercentage != nil {
		m.PaymentPercentage = *u.PaymentPercentage
	}
	if u.Title != nil {
		m.Title = *u.Title
	}
	return nil
}

func (f *fakeMilestoneStore) Delete(ctx context.Context, id int) error {
	delete(f.milestones, id)
	return nil
}

func (f *fakeMilestoneStore) SetStatus(ctx context.Context, id int, status string, completionDate *time.Time) error {
	f.lastStatus = status
	f.lastCompletionDate = completionDate
	m := f.milestones[id]
	m.Status = status
	m.CompletionDate = completionDate
	return nil
}

type fakeProjectStore struct {
	projects map[int]*model.Project
}

func (f *fakeProjectStore) FindByID(ctx context.Context, id int) (*model.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, apperr.NotFound("project", id)
	}
	cp := *p
	return &cp, nil
}

func ownedProject() *fakeProjectStore {
	return &fakeProjectStore{projects: map[int]*model.Project{
		10: {ID: 10, CustomerID: 1, Status: model.ProjectStatusInProgress},
	}}
}

func milestoneInput(percentage float64) CreateInput {
	return CreateInput{
		ProjectID:         10,
		Title:             "Demolition complete",
		DueDate:           time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
		PaymentPercentage: percentage,
	}
}

func TestCreateEnforcesPercentageCap(t *testing.T) {
	store := newFakeMilestoneStore()
	svc := NewService(store, ownedProject(), zap.NewNop())

	if _, err := svc.Create(context.Background(), 1, milestoneInput(70)); err != nil {
		t.Fatalf("first milestone: %v", err)
	}

	// 70 + 40 would exceed 100.
	_, err := svc.Create(context.Background(), 1, milestoneInput(40))
	if !apperr.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(store.milestones) != 1 {
		t.Fatalf("%d milestones stored, want 1", len(store.milestones))
	}

	// 70 + 30 lands exactly on the cap.
	if _, err := svc.Create(context.Background(), 1, milestoneInput(30)); err != nil {
		t.Fatalf("milestone at cap: %v", err)
	}
}

func TestCreateRejectsInvalidPercentage(t *testing.T) {
	svc := NewService(newFakeMilestoneStore(), ownedProject(), zap.NewNop())

	for _, p := range []float64{0, -5, 120} {
		if _, err := svc.Create(context.Background(), 1, milestoneInput(p)); !apperr.IsValidation(err) {
			t.Fatalf("percentage %v: err = %v, want ValidationError", p, err)
		}
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	svc := NewService(newFakeMilestoneStore(), ownedProject(), zap.NewNop())

	in := milestoneInput(50)
	in.Title = ""
	if _, err := svc.Create(context.Background(), 1, in); !apperr.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestCreateByNonOwnerForbidden(t *testing.T) {
	svc := NewService(newFakeMilestoneStore(), ownedProject(), zap.NewNop())

	if _, err := svc.Create(context.Background(), 2, milestoneInput(50)); !apperr.IsForbidden(err) {
		t.Fatalf("err = %v, want AuthorizationError", err)
	}
}

func TestUpdateExcludesSelfFromTotal(t *testing.T) {
	store := newFakeMilestoneStore()
	svc := NewService(store, ownedProject(), zap.NewNop())

	m1, err := svc.Create(context.Background(), 1, milestoneInput(40))
	if err != nil {
		t.Fatalf("create m1: %v", err)
	}
	if _, err := svc.Create(context.Background(), 1, milestoneInput(50)); err != nil {
		t.Fatalf("create m2: %v", err)
	}

	// Raising m1 from 40 to 50 gives 50 + 50 = 100, allowed because the old
	// value of m1 must not be counted.
	newPct := 50.0
	if err := svc.Update(context.Background(), 1, m1.ID, model.MilestoneUpdate{PaymentPercentage: &newPct}); err != nil {
		t.Fatalf("update to cap: %v", err)
	}

	// 60 + 50 exceeds the cap.
	overPct := 60.0
	err = svc.Update(context.Background(), 1, m1.ID, model.MilestoneUpdate{PaymentPercentage: &overPct})
	if !apperr.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if got := store.milestones[m1.ID].PaymentPercentage; got != 50 {
		t.Fatalf("percentage after rejected update = %v, want 50", got)
	}
}

func TestUpdateWithoutPercentageSkipsCapCheck(t *testing.T) {
	store := newFakeMilestoneStore()
	svc := NewService(store, ownedProject(), zap.NewNop())

	m, err := svc.Create(context.Background(), 1, milestoneInput(100))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	title := "Demolition and disposal"
	if err := svc.Update(context.Background(), 1, m.ID, model.MilestoneUpdate{Title: &title}); err != nil {
		t.Fatalf("title-only update: %v", err)
	}
}

func TestSetStatusCompletedStampsDate(t *testing.T) {
	store := newFakeMilestoneStore()
	svc := NewService(store, ownedProject(), zap.NewNop())
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	m, err := svc.Create(context.Background(), 1, milestoneInput(50))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.SetStatus(context.Background(), 1, m.ID, model.MilestoneStatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if store.lastCompletionDate == nil || !store.lastCompletionDate.Equal(fixed) {
		t.Fatalf("completion date = %v, want %v", store.lastCompletionDate, fixed)
	}

	// Moving a completed milestone back clears the date.
	if err := svc.SetStatus(context.Background(), 1, m.ID, model.MilestoneStatusInProgress); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if store.lastCompletionDate != nil {
		t.Fatalf("completion date = %v after reopen, want nil", store.lastCompletionDate)
	}
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	store := newFakeMilestoneStore()
	svc := NewService(store, ownedProject(), zap.NewNop())

	m, err := svc.Create(context.Background(), 1, milestoneInput(50))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.SetStatus(context.Background(), 1, m.ID, "paid"); !apperr.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestDeleteByNonOwnerForbidden(t *testing.T) {
	store := newFakeMilestoneStore()
	svc := NewService(store, ownedProject(), zap.NewNop())

	m, err := svc.Create(context.Background(), 1, milestoneInput(50))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(context.Background(), 2, m.ID); !apperr.IsForbidden(err) {
		t.Fatalf("err = %v, want AuthorizationError", err)
	}
	if len(store.milestones) != 1 {
		t.Fatal("milestone deleted despite authorization failure")
	}
}
