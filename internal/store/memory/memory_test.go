package memory

import (
	"context"
	"testing"
	"time"

	"github.com/pupperhq/pupper-server/internal/model"
	"github.com/pupperhq/pupper-server/internal/store"
	"github.com/pupperhq/pupper-server/internal/store/storetest"
)

func TestMemoryStoreCompliance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestMarkFailedRecordsReasonAndBackoff(t *testing.T) {
	s := New()
	ctx := context.Background()

	app, err := s.Applications().Create(ctx, &model.Application{DogID: "d-1", AdopterName: "Sam"})
	if err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}
	if _, err := s.Applications().Decide(ctx, store.DecideRequest{
		ApplicationID:   app.ApplicationID,
		Status:          model.ApplicationStatusApproved,
		ExpectedVersion: app.Version,
		Jobs: []*model.OutboxJob{
			{Op: model.OpNotifyAdopter, AggregateID: app.ApplicationID, Payload: []byte(`{}`)},
		},
	}); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	jobs, err := s.Outbox().Lease(ctx, 10)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("Lease: n=%d err=%v", len(jobs), err)
	}
	if err := s.Outbox().MarkFailed(ctx, jobs[0].ID, "gateway timeout"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	j := s.(*memStore).outbox[0]
	if j.LastError == nil || *j.LastError != "gateway timeout" {
		t.Fatalf("LastError not recorded: %v", j.LastError)
	}
	if j.AttemptCount != 1 {
		t.Fatalf("AttemptCount: %d", j.AttemptCount)
	}
	if j.Status != model.OutboxStatusPending || !j.NextAttemptAt.After(time.Now()) {
		t.Fatalf("failed job not scheduled for retry: status=%q next=%v", j.Status, j.NextAttemptAt)
	}
}
