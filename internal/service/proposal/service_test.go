package proposal

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"renomarket/internal/apperr"
	"renomarket/internal/model"
	"renomarket/internal/repository"
)

type fakeProposalStore struct {
	proposals map[int]*model.Proposal
	nextID    int

	insertErr   error
	insertCalls int

	cascadeFunc func(proposalID, projectID, customerID int) (*repository.CascadeResult, error)
}

func newFakeProposalStore() *fakeProposalStore {
	return &fakeProposalStore{proposals: map[int]*model.Proposal{}, nextID: 1}
}

func (f *fakeProposalStore) Insert(ctx context.Context, p *model.Proposal) (int, error) {
	f.insertCalls++
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	id := f.nextID
	f.nextID++
	cp := *p
	cp.ID = id
	f.proposals[id] = &cp
	return id, nil
}

func (f *fakeProposalStore) FindByID(ctx context.Context, id int) (*model.Proposal, error) {
	p, ok := f.proposals[id]
	if !ok {
		return nil, apperr.NotFound("proposal", id)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProposalStore) ExistsForProject(ctx context.Context, projectID, providerID int) (bool, error) {
	for _, p := range f.proposals {
		if p.ProjectID == projectID && p.ProviderID == providerID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProposalStore) ListForProject(ctx context.Context, projectID int, sortField string, descending bool) ([]model.EnrichedProposal, error) {
	return nil, nil
}

func (f *fakeProposalStore) ListByProvider(ctx context.Context, providerID int) ([]model.Proposal, error) {
	var out []model.Proposal
	for _, p := range f.proposals {
		if p.ProviderID == providerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProposalStore) RejectIfPending(ctx context.Context, id int) error {
	p, ok := f.proposals[id]
	if !ok {
		return apperr.NotFound("proposal", id)
	}
	if p.Status != model.ProposalStatusPending {
		return apperr.Conflict("proposal %d is not pending", id)
	}
	p.Status = model.ProposalStatusRejected
	return nil
}

// AcceptCascade mimics the store's transactional semantics against the
// in-memory map: accept the target, reject pending siblings, and refuse when a
// different proposal already holds the acceptance.
func (f *fakeProposalStore) AcceptCascade(ctx context.Context, proposalID, projectID, customerID int) (*repository.CascadeResult, error) {
	if f.cascadeFunc != nil {
		return f.cascadeFunc(proposalID, projectID, customerID)
	}

	target, ok := f.proposals[proposalID]
	if !ok || target.ProjectID != projectID {
		return nil, apperr.NotFound("proposal", proposalID)
	}
	if target.Status == model.ProposalStatusAccepted {
		return &repository.CascadeResult{NoOp: true, AcceptedProviderID: target.ProviderID}, nil
	}
	if target.Status == model.ProposalStatusRejected {
		return nil, apperr.Conflict("proposal %d is rejected", proposalID)
	}
	for _, p := range f.proposals {
		if p.ProjectID == projectID && p.ID != proposalID && p.Status == model.ProposalStatusAccepted {
			return nil, apperr.Conflict("project %d already has an accepted proposal", projectID)
		}
	}

	target.Status = model.ProposalStatusAccepted
	var rejected []int
	for _, p := range f.proposals {
		if p.ProjectID == projectID && p.ID != proposalID && p.Status == model.ProposalStatusPending {
			p.Status = model.ProposalStatusRejected
			rejected = append(rejected, p.ProviderID)
		}
	}
	return &repository.CascadeResult{
		AcceptedProviderID:  target.ProviderID,
		RejectedProviderIDs: rejected,
	}, nil
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

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func renovationProject() *model.Project {
	return &model.Project{
		ID:         10,
		CustomerID: 1,
		Name:       "Kitchen remodel",
		Category:   "kitchen",
		StartDate:  date(2026, 3, 1),
		EndDate:    date(2026, 6, 30),
		BudgetMin:  20000,
		BudgetMax:  40000,
		Status:     model.ProjectStatusPublished,
	}
}

func newTestService(proposals *fakeProposalStore, projects *fakeProjectStore) *Service {
	return NewService(proposals, projects, zap.NewNop())
}

func TestSubmitWithinBudget(t *testing.T) {
	proposals := newFakeProposalStore()
	projects := &fakeProjectStore{projects: map[int]*model.Project{10: renovationProject()}}
	svc := newTestService(proposals, projects)

	p, err := svc.Submit(context.Background(), 5, SubmitInput{
		ProjectID:   10,
		ProviderID:  5,
		QuoteAmount: 35000,
		StartDate:   date(2026, 3, 15),
		Comments:    "Can start mid-March",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("expected assigned proposal id")
	}
	if p.Status != model.ProposalStatusPending {
		t.Fatalf("status = %q, want pending", p.Status)
	}
}

func TestSubmitQuoteOutsideBudget(t *testing.T) {
	proposals := newFakeProposalStore()
	projects := &fakeProjectStore{projects: map[int]*model.Project{10: renovationProject()}}
	svc := newTestService(proposals, projects)

	for _, quote := range []float64{45000, 19999.99} {
		_, err := svc.Submit(context.Background(), 5, SubmitInput{
			ProjectID:   10,
			ProviderID:  5,
			QuoteAmount: quote,
			StartDate:   date(2026, 3, 15),
		})
		if !apperr.IsValidation(err) {
			t.Fatalf("quote %v: err = %v, want ValidationError", quote, err)
		}
	}
	if proposals.insertCalls != 0 {
		t.Fatalf("insert called %d times on failed validation", proposals.insertCalls)
	}
}

func TestSubmitBudgetBoundsInclusive(t *testing.T) {
	projects := &fakeProjectStore{projects: map[int]*model.Project{10: renovationProject()}}

	for _, quote := range []float64{20000, 40000} {
		proposals := newFakeProposalStore()
		svc := newTestService(proposals, projects)
		if _, err := svc.Submit(context.Background(), 5, SubmitInput{
			ProjectID:   10,
			ProviderID:  5,
			QuoteAmount: quote,
			StartDate:   date(2026, 3, 15),
		}); err != nil {
			t.Fatalf("quote %v: %v", quote, err)
		}
	}
}

func TestSubmitStartDateOutsideSchedule(t *testing.T) {
	proposals := newFakeProposalStore()
	projects := &fakeProjectStore{projects: map[int]*model.Project{10: renovationProject()}}
	svc := newTestService(proposals, projects)

	for _, start := range []time.Time{date(2026, 2, 28), date(2026, 7, 1)} {
		_, err := svc.Submit(context.Background(), 5, SubmitInput{
			ProjectID:   10,
			ProviderID:  5,
			QuoteAmount: 30000,
			StartDate:   start,
		})
		if !apperr.IsValidation(err) {
			t.Fatalf("start %v: err = %v, want ValidationError", start, err)
		}
	}
}

func TestSubmitDuplicate(t *testing.T) {
	proposals := newFakeProposalStore()
	projects := &fakeProjectStore{projects: map[int]*model.Project{10: renovationProject()}}
	svc := newTestService(proposals, projects)

	in := SubmitInput{
		ProjectID:   10,
		ProviderID:  5,
		QuoteAmount: 30000,
		StartDate:   date(2026, 3, 15),
	}
	if _, err := svc.Submit(context.Background(), 5, in); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	_, err := svc.Submit(context.Background(), 5, in)
	if !apperr.IsConflict(err) {
		t.Fatalf("second submit err = %v, want ConflictError", err)
	}
}

func TestSubmitForAnotherProviderForbidden(t *testing.T) {
	proposals := newFakeProposalStore()
	projects := &fakeProjectStore{projects: map[int]*model.Project{10: renovationProject()}}
	svc := newTestService(proposals, projects)

	_, err := svc.Submit(context.Background(), 6, SubmitInput{
		ProjectID:   10,
		ProviderID:  5,
		QuoteAmount: 30000,
		StartDate:   date(2026, 3, 15),
	})
	if !apperr.IsForbidden(err) {
		t.Fatalf("err = %v, want AuthorizationError", err)
	}
}

func TestSubmitUnknownProject(t *testing.T) {
	proposals := newFakeProposalStore()
	projects := &fakeProjectStore{projects: map[int]*model.Project{}}
	svc := newTestService(proposals, projects)

	_, err := svc.Submit(context.Background(), 5, SubmitInput{
		ProjectID:   99,
		ProviderID:  5,
		QuoteAmount: 30000,
		StartDate:   date(2026, 3, 15),
	})
	if !apperr.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func seedProposals(t *testing.T, svc *Service) {
	t.Helper()
	for _, providerID := range []int{5, 6, 7} {
		if _, err := svc.Submit(context.Background(), providerID, SubmitInput{
			ProjectID:   10,
			ProviderID:  providerID,
			QuoteAmount: 30000,
			StartDate:   date(2026, 3, 15),
		}); err != nil {
			t.Fatalf("seed proposal for provider %d: %v", providerID, err)
		}
	}
}

func TestAcceptCascade(t *testing.T) {
	proposals := newFakeProposalStore()
	projects := &fakeProjectStore{projects: map[int]*model.Project{10: renovationProject()}}
	svc := newTestService(proposals, projects)
	seedProposals(t, svc)

	res, err := svc.Accept(context.Background(), 1, 1, 10)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if res.NoOp {
		t.Fatal("expected applied cascade, got no-op")
	}
	if res.AcceptedProviderID != 5 {
		t.Fatalf("accepted provider = %d, want 5", res.AcceptedProviderID)
	}
	if len(res.RejectedProviderIDs) != 2 {
		t.Fatalf("rejected %d siblings, want 2", len(res.RejectedProviderIDs))
	}

	accepted := 0
	for _, p := range proposals.proposals {
		switch p.Status {
		case model.ProposalStatusAccepted:
			accepted++
		case model.ProposalStatusPending:
			t.Fatalf("proposal %d left pending after cascade", p.ID)
		}
	}
	if accepted != 1 {
		t.Fatalf("%d accepted proposals after cascade, want exactly 1", accepted)
	}
}

func TestAcceptSameProposalAgainIsNoOp(t *testing.T) {
	proposals := newFakeProposalStore()
	projects := &fakeProjectStore{projects: map[int]*model.Project{10: renovationProject()}}
	svc := newTestService(proposals, projects)
	seedProposals(t, svc)

	if _, err := svc.Accept(context.Background(), 1, 1, 10); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	res, err := svc.Accept(context.Background(), 1, 1, 10)
	if err != nil {
		t.Fatalf("second accept: %v", err)
	}
	if !res.NoOp {
		t.Fatal("expected no-op on re-accept")
	}
}

func TestAcceptOtherWhileAcceptedConflicts(t *testing.T) {
	proposals := newFakeProposalStore()
	projects := &fakeProjectStore{projects: map[int]*model.Project{10: renovationProject()}}
	svc := newTestService(proposals, projects)
	seedProposals(t, svc)

	if _, err := svc.Accept(context.Background(), 1, 1, 10); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	_, err := svc.Accept(context.Background(), 1, 2, 10)
	if !apperr.IsConflict(err) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
}

func TestAcceptByNonOwnerForbidden(t *testing.T) {
	proposals := newFakeProposalStore()
	projects := &fakeProjectStore{projects: map[int]*model.Project{10: renovationProject()}}
	svc := newTestService(proposals, projects)
	seedProposals(t, svc)

	_, err := svc.Accept(context.Background(), 2, 1, 10)
	if !apperr.IsForbidden(err) {
		t.Fatalf("err = %v, want AuthorizationError", err)
	}
}

func TestAcceptStoreFailure(t *testing.T) {
	proposals := newFakeProposalStore()
	proposals.cascadeFunc = func(proposalID, projectID, customerID int) (*repository.CascadeResult, error) {
		return nil, errors.New("connection refused")
	}
	projects := &fakeProjectStore{projects: map[int]*model.Project{10: renovationProject()}}
	svc := newTestService(proposals, projects)

	if _, err := svc.Accept(context.Background(), 1, 1, 10); err == nil {
		t.Fatal("expected error from failing store")
	}
}

func TestRejectPendingProposal(t *testing.T) {
	proposals := newFakeProposalStore()
	projects := &fakeProjectStore{projects: map[int]*model.Project{10: renovationProject()}}
	svc := newTestService(proposals, projects)
	seedProposals(t, svc)

	if err := svc.Reject(context.Background(), 1, 2); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got := proposals.proposals[2].Status; got != model.ProposalStatusRejected {
		t.Fatalf("status = %q, want rejected", got)
	}
}

func TestRejectTerminalProposalConflicts(t *testing.T) {
	proposals := newFakeProposalStore()
	projects := &fakeProjectStore{projects: map[int]*model.Project{10: renovationProject()}}
	svc := newTestService(proposals, projects)
	seedProposals(t, svc)

	if _, err := svc.Accept(context.Background(), 1, 1, 10); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// 1 is accepted, 2 was rejected by the cascade. Both are terminal.
	for _, id := range []int{1, 2} {
		if err := svc.Reject(context.Background(), 1, id); !apperr.IsConflict(err) {
			t.Fatalf("reject %d: err = %v, want ConflictError", id, err)
		}
	}
}

func TestRejectByNonOwnerForbidden(t *testing.T) {
	proposals := newFakeProposalStore()
	projects := &fakeProjectStore{projects: map[int]*model.Project{10: renovationProject()}}
	svc := newTestService(proposals, projects)
	seedProposals(t, svc)

	if err := svc.Reject(context.Background(), 2, 1); !apperr.IsForbidden(err) {
		t.Fatalf("err = %v, want AuthorizationError", err)
	}
}

func TestListForProjectSortValidation(t *testing.T) {
	proposals := newFakeProposalStore()
	projects := &fakeProjectStore{projects: map[int]*model.Project{10: renovationProject()}}
	svc := newTestService(proposals, projects)

	for _, field := range []string{"", "quote_amount", "start_date", "created_at"} {
		if _, err := svc.ListForProject(context.Background(), 10, field, false); err != nil {
			t.Fatalf("sort %q: %v", field, err)
		}
	}

	_, err := svc.ListForProject(context.Background(), 10, "status; DROP TABLE proposals", false)
	if !apperr.IsValidation(err) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}
