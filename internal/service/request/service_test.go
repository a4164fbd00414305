package request

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"renomarket/internal/apperr"
	"renomarket/internal/model"
)

type fakeInvitationStore struct {
	requests []model.ProjectRequest

	updatedProject  int
	updatedProvider int
	updatedStatus   string
	updateCalls     int
	updateErr       error
}

func (f *fakeInvitationStore) ListRequestsByProvider(ctx context.Context, providerID int) ([]model.ProjectRequest, error) {
	return f.requests, nil
}

func (f *fakeInvitationStore) UpdateStatusByPair(ctx context.Context, projectID, providerID int, status string) error {
	f.updateCalls++
	f.updatedProject = projectID
	f.updatedProvider = providerID
	f.updatedStatus = status
	return f.updateErr
}

func requestWithStatus(status string) model.ProjectRequest {
	return model.ProjectRequest{
		Invitation: model.Invitation{ProjectID: 10, ProviderID: 5, Status: status},
	}
}

func TestListForProviderComputesStats(t *testing.T) {
	store := &fakeInvitationStore{requests: []model.ProjectRequest{
		requestWithStatus(model.InvitationStatusPending),
		requestWithStatus(model.InvitationStatusPending),
		requestWithStatus(model.InvitationStatusAccepted),
		requestWithStatus(model.InvitationStatusCompleted),
		requestWithStatus(model.InvitationStatusRejected),
	}}
	svc := NewService(store, zap.NewNop())

	requests, stats, err := svc.ListForProvider(context.Background(), 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(requests) != 5 {
		t.Fatalf("%d requests, want 5", len(requests))
	}
	if stats.Pending != 2 || stats.Active != 1 || stats.Completed != 1 {
		t.Fatalf("stats = %+v, want pending 2, active 1, completed 1", stats)
	}
}

func TestRespondAccept(t *testing.T) {
	store := &fakeInvitationStore{}
	svc := NewService(store, zap.NewNop())

	if err := svc.Respond(context.Background(), 5, 10, model.InvitationStatusAccepted); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if store.updatedProject != 10 || store.updatedProvider != 5 {
		t.Fatalf("updated pair = (%d, %d), want (10, 5)", store.updatedProject, store.updatedProvider)
	}
	if store.updatedStatus != model.InvitationStatusAccepted {
		t.Fatalf("status = %q, want accepted", store.updatedStatus)
	}
}

func TestRespondRejectsOtherStatuses(t *testing.T) {
	store := &fakeInvitationStore{}
	svc := NewService(store, zap.NewNop())

	for _, status := range []string{model.InvitationStatusPending, model.InvitationStatusCompleted, "maybe"} {
		if err := svc.Respond(context.Background(), 5, 10, status); !apperr.IsValidation(err) {
			t.Fatalf("status %q: err = %v, want ValidationError", status, err)
		}
	}
	if store.updateCalls != 0 {
		t.Fatal("store updated despite invalid status")
	}
}

func TestRespondPropagatesMissingInvitation(t *testing.T) {
	store := &fakeInvitationStore{updateErr: apperr.NotFound("invitation", 0)}
	svc := NewService(store, zap.NewNop())

	err := svc.Respond(context.Background(), 5, 10, model.InvitationStatusRejected)
	if !apperr.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}
