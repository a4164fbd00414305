package notification

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"renomarket/contracts/mq"
	"renomarket/internal/model"
)

type fakeNotificationStore struct {
	inserted []model.Notification
	nextID   int
}

func (f *fakeNotificationStore) Insert(ctx context.Context, n *model.Notification) (int, error) {
	f.nextID++
	f.inserted = append(f.inserted, *n)
	return f.nextID, nil
}

func (f *fakeNotificationStore) ListByProvider(ctx context.Context, providerID int, limit int) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range f.inserted {
		if n.ProviderID == providerID {
			out = append(out, n)
		}
	}
	return out, nil
}

func TestHandleProjectPublished(t *testing.T) {
	store := &fakeNotificationStore{}
	svc := NewService(store, zap.NewNop())

	err := svc.HandleProjectPublished(context.Background(), mq.ProjectPublishedPayload{
		ProjectID:   10,
		CustomerID:  1,
		Name:        "Kitchen remodel",
		Category:    "kitchen",
		ProviderIDs: []int{5, 6, 7},
		PublishedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(store.inserted) != 3 {
		t.Fatalf("%d notifications, want 3", len(store.inserted))
	}
	for _, n := range store.inserted {
		if n.Kind != model.NotificationKindInvited {
			t.Fatalf("kind = %q, want invited", n.Kind)
		}
		if n.ProjectID != 10 {
			t.Fatalf("project id = %d, want 10", n.ProjectID)
		}
	}
}

func TestHandleProposalAccepted(t *testing.T) {
	store := &fakeNotificationStore{}
	svc := NewService(store, zap.NewNop())

	err := svc.HandleProposalAccepted(context.Background(), mq.ProposalAcceptedPayload{
		ProposalID:          3,
		ProjectID:           10,
		CustomerID:          1,
		AcceptedProviderID:  5,
		RejectedProviderIDs: []int{6, 7},
		AcceptedAt:          time.Now(),
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(store.inserted) != 3 {
		t.Fatalf("%d notifications, want 3", len(store.inserted))
	}

	kinds := map[string]int{}
	for _, n := range store.inserted {
		kinds[n.Kind]++
	}
	if kinds[model.NotificationKindWon] != 1 {
		t.Fatalf("won notifications = %d, want 1", kinds[model.NotificationKindWon])
	}
	if kinds[model.NotificationKindClosed] != 2 {
		t.Fatalf("closed notifications = %d, want 2", kinds[model.NotificationKindClosed])
	}

	wonList, err := svc.ListForProvider(context.Background(), 5, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(wonList) != 1 || wonList[0].Kind != model.NotificationKindWon {
		t.Fatalf("provider 5 notifications = %+v, want one won", wonList)
	}
}
