package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pupperhq/pupper-server/internal/model"
	"github.com/pupperhq/pupper-server/internal/store"
	"github.com/pupperhq/pupper-server/internal/store/memory"
)

func validApplication(dogID string) *model.Application {
	return &model.Application{
		DogID:          dogID,
		Shelter:        "Sunny Paws",
		AdopterName:    "Sam Carter",
		AdopterEmail:   "sam@example.test",
		AdopterPhone:   "555-0100",
		AdopterAddress: "1 Main St, Austin TX",
		LivingSpace:    "house with yard",
		HasKids:        true,
	}
}

func newAppFixture(t *testing.T) (store.Store, *ApplicationService, *model.Dog) {
	t.Helper()
	st := memory.New()
	svc := NewApplicationService(st, nil, zerolog.Nop(), true)

	dog, err := NewDogService(st, nil).CreateDog(context.Background(), validDog())
	require.NoError(t, err)
	return st, svc, dog
}

func TestSubmitApplication(t *testing.T) {
	_, svc, dog := newAppFixture(t)
	ctx := context.Background()

	out, err := svc.Submit(ctx, validApplication(dog.DogID), "adopter-1")
	require.NoError(t, err)
	assert.NotEmpty(t, out.ApplicationID)
	assert.Equal(t, model.ApplicationStatusPending, out.Status)
	assert.Equal(t, "adopter-1", out.AdopterID)
	assert.EqualValues(t, 1, out.Version)
	assert.Equal(t, out.CreatedAt, out.UpdatedAt)
}

func TestSubmitApplicationMissingFields(t *testing.T) {
	_, svc, dog := newAppFixture(t)
	ctx := context.Background()

	cases := []struct {
		field  string
		mutate func(*model.Application)
	}{
		{"dogId", func(a *model.Application) { a.DogID = "" }},
		{"shelter", func(a *model.Application) { a.Shelter = "" }},
		{"name", func(a *model.Application) { a.AdopterName = "" }},
		{"email", func(a *model.Application) { a.AdopterEmail = "" }},
		{"phone", func(a *model.Application) { a.AdopterPhone = "" }},
		{"address", func(a *model.Application) { a.AdopterAddress = "" }},
		{"livingSpace", func(a *model.Application) { a.LivingSpace = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			a := validApplication(dog.DogID)
			tc.mutate(a)
			_, err := svc.Submit(ctx, a, "adopter-1")
			require.ErrorIs(t, err, model.ErrValidation)
			assert.Contains(t, err.Error(), "Missing required field: "+tc.field)
		})
	}
}

func TestSubmitAgainstAdoptedDog(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	dog, err := NewDogService(st, nil).CreateDog(ctx, validDog())
	require.NoError(t, err)
	require.NoError(t, st.Dogs().SetStatus(ctx, dog.DogID, model.DogStatusAdopted))

	// default behavior accepts late applications for shelter review
	open := NewApplicationService(st, nil, zerolog.Nop(), true)
	_, err = open.Submit(ctx, validApplication(dog.DogID), "adopter-1")
	assert.NoError(t, err)

	// guarded behavior rejects them
	guarded := NewApplicationService(st, nil, zerolog.Nop(), false)
	_, err = guarded.Submit(ctx, validApplication(dog.DogID), "adopter-2")
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "already been adopted")
}

func TestListAllJoinsDogName(t *testing.T) {
	_, svc, dog := newAppFixture(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, validApplication(dog.DogID), "adopter-1")
	require.NoError(t, err)

	orphan := validApplication("no-such-dog")
	orphan.Shelter = "Ghost Shelter"
	_, err = svc.Submit(ctx, orphan, "adopter-2")
	require.NoError(t, err)

	got, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	byAdopter := map[string]string{}
	for _, a := range got {
		byAdopter[a.AdopterID] = a.DogName
	}
	assert.Equal(t, dog.Name, byAdopter["adopter-1"])
	// missing dog falls back to the application's shelter
	assert.Equal(t, "Ghost Shelter", byAdopter["adopter-2"])
}

func TestListForShelterOwner(t *testing.T) {
	st := memory.New()
	svc := NewApplicationService(st, nil, zerolog.Nop(), true)
	dogSvc := NewDogService(st, nil)
	ctx := context.Background()

	mine, err := dogSvc.CreateDog(ctx, validDog())
	require.NoError(t, err)

	theirsSpec := validDog()
	theirsSpec.CreatedBy = "other-shelter"
	theirs, err := dogSvc.CreateDog(ctx, theirsSpec)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, validApplication(mine.DogID), "adopter-1")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, validApplication(theirs.DogID), "adopter-2")
	require.NoError(t, err)

	got, err := svc.ListForShelterOwner(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, mine.DogID, got[0].DogID)
	assert.Equal(t, "user-1", got[0].DogCreatedBy)
}

func TestTransitionApprove(t *testing.T) {
	st, svc, dog := newAppFixture(t)
	ctx := context.Background()

	app, err := svc.Submit(ctx, validApplication(dog.DogID), "adopter-1")
	require.NoError(t, err)

	out, err := svc.Transition(ctx, app.ApplicationID, model.ApplicationStatusApproved, dog.CreatedBy)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusApproved, out.Status)
	assert.Equal(t, app.Version+1, out.Version)

	// the decision enqueued both follow-up jobs atomically
	jobs, err := st.Outbox().Lease(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	ops := map[string]bool{}
	for _, j := range jobs {
		ops[j.Op] = true
	}
	assert.True(t, ops[model.OpNotifyAdopter])
	assert.True(t, ops[model.OpMarkDogAdopted])

	// the dog is not flipped until the worker runs
	fresh, err := st.Dogs().Get(ctx, dog.DogID)
	require.NoError(t, err)
	assert.Equal(t, model.DogStatusAvailable, fresh.Status)
}

func TestTransitionRejectEnqueuesOnlyNotification(t *testing.T) {
	st, svc, dog := newAppFixture(t)
	ctx := context.Background()

	app, err := svc.Submit(ctx, validApplication(dog.DogID), "adopter-1")
	require.NoError(t, err)

	_, err = svc.Transition(ctx, app.ApplicationID, model.ApplicationStatusRejected, dog.CreatedBy)
	require.NoError(t, err)

	jobs, err := st.Outbox().Lease(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, model.OpNotifyAdopter, jobs[0].Op)
}

func TestTransitionValidation(t *testing.T) {
	_, svc, dog := newAppFixture(t)
	ctx := context.Background()

	app, err := svc.Submit(ctx, validApplication(dog.DogID), "adopter-1")
	require.NoError(t, err)

	_, err = svc.Transition(ctx, app.ApplicationID, "maybe", dog.CreatedBy)
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), `Status must be "approved" or "rejected"`)

	_, err = svc.Transition(ctx, "no-such-application", model.ApplicationStatusApproved, dog.CreatedBy)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTransitionOwnership(t *testing.T) {
	_, svc, dog := newAppFixture(t)
	ctx := context.Background()

	app, err := svc.Submit(ctx, validApplication(dog.DogID), "adopter-1")
	require.NoError(t, err)

	_, err = svc.Transition(ctx, app.ApplicationID, model.ApplicationStatusApproved, "not-the-owner")
	require.ErrorIs(t, err, model.ErrForbidden)

	// still pending after the refused attempt
	fresh, err := svc.store.Applications().Get(ctx, app.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusPending, fresh.Status)
}

func TestTransitionConflictOnSecondDecision(t *testing.T) {
	_, svc, dog := newAppFixture(t)
	ctx := context.Background()

	app, err := svc.Submit(ctx, validApplication(dog.DogID), "adopter-1")
	require.NoError(t, err)

	_, err = svc.Transition(ctx, app.ApplicationID, model.ApplicationStatusApproved, dog.CreatedBy)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, app.ApplicationID, model.ApplicationStatusRejected, dog.CreatedBy)
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestTransitionAfterDogDeleted(t *testing.T) {
	st, svc, dog := newAppFixture(t)
	ctx := context.Background()

	app, err := svc.Submit(ctx, validApplication(dog.DogID), "adopter-1")
	require.NoError(t, err)
	require.NoError(t, st.Dogs().Delete(ctx, dog.DogID))

	// a deleted dog cannot be ownership-checked; the decision still lands
	out, err := svc.Transition(ctx, app.ApplicationID, model.ApplicationStatusRejected, "anyone")
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusRejected, out.Status)
}
