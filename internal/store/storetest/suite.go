package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pupperhq/pupper-server/internal/model"
	"github.com/pupperhq/pupper-server/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Assertions are keyed on the records created here, so a shared database with
// leftover rows from earlier runs still passes.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	owner := "u-" + uuid.New().String()

	// birthdays are relative to now so the age-filter assertions hold
	// regardless of wall time
	youngBirthday := time.Now().UTC().AddDate(-2, 0, 0).Format("2006-01-02")
	oldBirthday := time.Now().UTC().AddDate(-10, 0, 0).Format("2006-01-02")

	// Dogs
	dog, err := s.Dogs().Create(ctx, &model.Dog{
		Shelter:     "Sunny Paws",
		City:        "Austin",
		State:       "TX",
		Name:        "Biscuit",
		Species:     model.AllowedSpecies,
		Description: "Friendly",
		Birthday:    youngBirthday,
		Weight:      62,
		Color:       "yellow",
		CreatedBy:   owner,
	})
	if err != nil {
		t.Fatalf("CreateDog: %v", err)
	}
	if dog.DogID == "" || dog.Status != model.DogStatusAvailable {
		t.Fatalf("CreateDog: id=%q status=%q", dog.DogID, dog.Status)
	}
	if got, err := s.Dogs().Get(ctx, dog.DogID); err != nil || got.Name != "Biscuit" {
		t.Fatalf("GetDog: got=%v err=%v", got, err)
	}
	if _, err := s.Dogs().Get(ctx, "no-such-dog"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetDog missing: err=%v", err)
	}

	// second dog in a different state for filter coverage
	other, err := s.Dogs().Create(ctx, &model.Dog{
		Shelter: "Rainy Paws", City: "Portland", State: "OR", Name: "Mossy",
		Species: model.AllowedSpecies, Description: "Calm", Birthday: oldBirthday,
		Weight: 80, Color: "black", CreatedBy: owner,
	})
	if err != nil {
		t.Fatalf("CreateDog other: %v", err)
	}

	// List by state hits the index
	if lst, err := s.Dogs().List(ctx, model.DogFilter{State: "TX"}); err != nil || !hasDog(lst, dog.DogID) || hasDog(lst, other.DogID) {
		t.Fatalf("ListDogs state: n=%d err=%v", len(lst), err)
	}
	// color filter is case-insensitive
	if lst, err := s.Dogs().List(ctx, model.DogFilter{Color: "YELLOW"}); err != nil || !hasDog(lst, dog.DogID) || hasDog(lst, other.DogID) {
		t.Fatalf("ListDogs color: n=%d err=%v", len(lst), err)
	}
	minW := 70.0
	if lst, err := s.Dogs().List(ctx, model.DogFilter{MinWeight: &minW}); err != nil || !hasDog(lst, other.DogID) || hasDog(lst, dog.DogID) {
		t.Fatalf("ListDogs minWeight: n=%d err=%v", len(lst), err)
	}
	maxAge := 4.0
	if lst, err := s.Dogs().List(ctx, model.DogFilter{MaxAge: &maxAge}); err != nil || !hasDog(lst, dog.DogID) || hasDog(lst, other.DogID) {
		t.Fatalf("ListDogs maxAge: n=%d err=%v", len(lst), err)
	}
	// an empty result is an empty slice, never nil, so it encodes as []
	if lst, err := s.Dogs().List(ctx, model.DogFilter{State: "ZZ"}); err != nil || lst == nil {
		t.Fatalf("ListDogs empty: lst=%v err=%v", lst, err)
	}

	// SetStatus is the approval side effect; missing dog reports not found
	if err := s.Dogs().SetStatus(ctx, dog.DogID, model.DogStatusAdopted); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if got, _ := s.Dogs().Get(ctx, dog.DogID); got.Status != model.DogStatusAdopted {
		t.Fatalf("SetStatus not applied: %v", got.Status)
	}
	if err := s.Dogs().SetStatus(ctx, "no-such-dog", model.DogStatusAdopted); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("SetStatus missing: err=%v", err)
	}

	// Votes: overwrite semantics per (user, dog)
	voter := "u-" + uuid.New().String()
	if _, err := s.Votes().Upsert(ctx, &model.Vote{UserID: voter, DogID: dog.DogID, VoteType: model.VoteTypeWag}); err != nil {
		t.Fatalf("UpsertVote: %v", err)
	}
	if _, err := s.Votes().Upsert(ctx, &model.Vote{UserID: voter, DogID: dog.DogID, VoteType: model.VoteTypeGrowl}); err != nil {
		t.Fatalf("UpsertVote overwrite: %v", err)
	}
	vs, err := s.Votes().ListByUser(ctx, voter)
	if err != nil || len(vs) != 1 || vs[0].VoteType != model.VoteTypeGrowl {
		t.Fatalf("ListByUser after overwrite: n=%d err=%v", len(vs), err)
	}
	// Remove is idempotent
	if err := s.Votes().Remove(ctx, voter, dog.DogID); err != nil {
		t.Fatalf("RemoveVote: %v", err)
	}
	if err := s.Votes().Remove(ctx, voter, dog.DogID); err != nil {
		t.Fatalf("RemoveVote repeat: %v", err)
	}
	if vs, _ := s.Votes().ListByUser(ctx, voter); len(vs) != 0 {
		t.Fatalf("votes remain after remove: %d", len(vs))
	}

	// Applications
	app, err := s.Applications().Create(ctx, &model.Application{
		DogID:          dog.DogID,
		Shelter:        dog.Shelter,
		AdopterID:      voter,
		AdopterName:    "Sam",
		AdopterEmail:   "sam@example.test",
		AdopterPhone:   "555-0100",
		AdopterAddress: "1 Main St",
		LivingSpace:    "house with yard",
		HasKids:        true,
	})
	if err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}
	if app.ApplicationID == "" || app.Status != model.ApplicationStatusPending || app.Version != 1 {
		t.Fatalf("CreateApplication: id=%q status=%q version=%d", app.ApplicationID, app.Status, app.Version)
	}
	if got, err := s.Applications().Get(ctx, app.ApplicationID); err != nil || got.AdopterName != "Sam" {
		t.Fatalf("GetApplication: got=%v err=%v", got, err)
	}
	if lst, err := s.Applications().List(ctx); err != nil || !hasApplication(lst, app.ApplicationID) {
		t.Fatalf("ListApplications: n=%d err=%v", len(lst), err)
	}

	// Decide rejects a stale version
	if _, err := s.Applications().Decide(ctx, store.DecideRequest{
		ApplicationID: app.ApplicationID, Status: model.ApplicationStatusApproved, ExpectedVersion: 99,
	}); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("Decide stale version: err=%v", err)
	}

	payload, _ := json.Marshal(model.DecidePayload{
		ApplicationID: app.ApplicationID, DogID: dog.DogID, Status: model.ApplicationStatusApproved,
	})
	decided, err := s.Applications().Decide(ctx, store.DecideRequest{
		ApplicationID:   app.ApplicationID,
		Status:          model.ApplicationStatusApproved,
		ExpectedVersion: app.Version,
		Jobs: []*model.OutboxJob{
			{Op: model.OpNotifyAdopter, AggregateID: app.ApplicationID, Payload: payload},
			{Op: model.OpMarkDogAdopted, AggregateID: dog.DogID, Payload: payload},
		},
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decided.Status != model.ApplicationStatusApproved || decided.Version != app.Version+1 {
		t.Fatalf("Decide result: status=%q version=%d", decided.Status, decided.Version)
	}

	// A second decision must conflict, and an unknown id must be not found
	if _, err := s.Applications().Decide(ctx, store.DecideRequest{
		ApplicationID: app.ApplicationID, Status: model.ApplicationStatusRejected, ExpectedVersion: decided.Version,
	}); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("Decide repeat: err=%v", err)
	}
	if _, err := s.Applications().Decide(ctx, store.DecideRequest{
		ApplicationID: "no-such-application", Status: model.ApplicationStatusApproved, ExpectedVersion: 1,
	}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Decide missing: err=%v", err)
	}

	// Outbox: both jobs landed with the decision and are immediately leasable
	jobs, err := s.Outbox().Lease(ctx, 1000)
	if err != nil {
		t.Fatalf("Lease: %v", err)
	}
	mine := ownJobs(jobs, app.ApplicationID, dog.DogID)
	if len(mine) != 2 {
		t.Fatalf("Lease: want 2 of our jobs, got %d", len(mine))
	}
	for _, j := range mine {
		if j.LastError != nil {
			t.Fatalf("fresh job carries a last error: %q", *j.LastError)
		}
	}

	// A lease reserves its jobs; a second worker must not receive them again
	jobs, err = s.Outbox().Lease(ctx, 1000)
	if err != nil {
		t.Fatalf("Lease repeat: %v", err)
	}
	if n := len(ownJobs(jobs, app.ApplicationID, dog.DogID)); n != 0 {
		t.Fatalf("reserved jobs leased twice: %d", n)
	}

	// MarkFailed pushes the job past now so it stays out of the next lease
	failed := mine[0]
	if err := s.Outbox().MarkFailed(ctx, failed.ID, "downstream unavailable"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := s.Outbox().MarkDone(ctx, mine[1].ID); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if jobs, _ := s.Outbox().Lease(ctx, 1000); len(ownJobs(jobs, app.ApplicationID, dog.DogID)) != 0 {
		t.Fatalf("done or backed-off jobs still leasable")
	}
	if err := s.Outbox().MarkDone(ctx, failed.ID); err != nil {
		t.Fatalf("MarkDone failed job: %v", err)
	}

	// Dog delete drops the record and its state-index entry
	if err := s.Dogs().Delete(ctx, other.DogID); err != nil {
		t.Fatalf("DeleteDog: %v", err)
	}
	if err := s.Dogs().Delete(ctx, other.DogID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("DeleteDog repeat: err=%v", err)
	}
	if lst, _ := s.Dogs().List(ctx, model.DogFilter{State: "OR"}); hasDog(lst, other.DogID) {
		t.Fatalf("state index retains deleted dog")
	}
}

func hasDog(lst []*model.Dog, id string) bool {
	for _, d := range lst {
		if d.DogID == id {
			return true
		}
	}
	return false
}

func hasApplication(lst []*model.Application, id string) bool {
	for _, a := range lst {
		if a.ApplicationID == id {
			return true
		}
	}
	return false
}

// ownJobs filters leased jobs down to the ones enqueued by this run.
func ownJobs(jobs []*model.OutboxJob, appID, dogID string) []*model.OutboxJob {
	var out []*model.OutboxJob
	for _, j := range jobs {
		if j.AggregateID == appID || j.AggregateID == dogID {
			out = append(out, j)
		}
	}
	return out
}
