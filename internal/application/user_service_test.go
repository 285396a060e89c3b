package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/cleaning-roster/internal/persistence"
)

func TestSyncUsersAuditsOnlyFreshInserts(t *testing.T) {
	t.Parallel()

	known := map[string]bool{"ext-1": true}
	gateway := &gatewayStub{
		upsertUserFn: func(_ context.Context, user persistence.User) (persistence.UpsertResult, error) {
			if known[user.ExternalID] {
				return persistence.UpsertResult{User: user}, nil
			}
			return persistence.UpsertResult{
				Change:  persistence.Change{Count: 1, NewID: user.ID},
				Created: true,
				User:    user,
			}, nil
		},
	}
	notifier := &recordingNotifier{}
	service := NewUserService(gateway, notifier, sequenceIDs("user"), nil)

	summary, err := service.SyncUsers(context.Background(), []Member{
		{ExternalID: "ext-1", DisplayName: "Alice"},
		{ExternalID: "ext-2", DisplayName: "Bob"},
		{ExternalID: "ext-3", DisplayName: "Carol", HasRole: true},
	})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if summary.Created != 2 || summary.Updated != 0 || summary.Total != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if _, audit, _ := notifier.counts(); audit != 2 {
		t.Fatalf("expected audits only for fresh inserts, got %d", audit)
	}
}

func TestSyncUsersCountsRenamesWithoutAudit(t *testing.T) {
	t.Parallel()

	gateway := &gatewayStub{
		upsertUserFn: func(_ context.Context, user persistence.User) (persistence.UpsertResult, error) {
			return persistence.UpsertResult{
				Change: persistence.Change{Count: 1},
				User:   user,
			}, nil
		},
	}
	notifier := &recordingNotifier{}
	service := NewUserService(gateway, notifier, nil, nil)

	summary, err := service.SyncUsers(context.Background(), []Member{
		{ExternalID: "ext-1", DisplayName: "Alice Renamed"},
	})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if summary.Updated != 1 || summary.Created != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if _, audit, _ := notifier.counts(); audit != 0 {
		t.Fatalf("renames must not be audited, got %d audit lines", audit)
	}
}

func TestSyncUsersRejectsEmptyExternalID(t *testing.T) {
	t.Parallel()

	service := NewUserService(&gatewayStub{}, nil, nil, nil)

	_, err := service.SyncUsers(context.Background(), []Member{{ExternalID: "  "}})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUserByExternalIDMissing(t *testing.T) {
	t.Parallel()

	service := NewUserService(&gatewayStub{}, nil, nil, nil)

	_, err := service.UserByExternalID(context.Background(), "ext-ghost")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
