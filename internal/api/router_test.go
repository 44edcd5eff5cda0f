package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pupperhq/pupper-server/internal/metrics"
	"github.com/pupperhq/pupper-server/internal/model"
	"github.com/pupperhq/pupper-server/internal/notify"
	"github.com/pupperhq/pupper-server/internal/outbox"
	"github.com/pupperhq/pupper-server/internal/services"
	"github.com/pupperhq/pupper-server/internal/store"
	"github.com/pupperhq/pupper-server/internal/store/memory"
)

func newTestRouter(t *testing.T) (http.Handler, store.Store) {
	t.Helper()
	st := memory.New()
	r := NewRouter(RouterDeps{
		Dogs:         services.NewDogService(st, nil),
		Votes:        services.NewVoteService(st, nil),
		Applications: services.NewApplicationService(st, nil, zerolog.Nop(), true),
		Metrics:      metrics.NewCollector(),
		IsHealthy:    func() bool { return true },
		CORSOrigin:   "*",
	})
	return r, st
}

// doJSON issues a request against the router and decodes the JSON body.
func doJSON(t *testing.T, r http.Handler, method, path string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func dogPayload() map[string]interface{} {
	return map[string]interface{}{
		"shelter":     "Sunny Paws",
		"city":        "Austin",
		"state":       "TX",
		"name":        "Biscuit",
		"species":     "Labrador Retriever",
		"description": "Friendly and food motivated",
		"birthday":    "2021-06-15",
		"weight":      58,
		"color":       "yellow",
		"createdBy":   "shelter-1",
	}
}

func applicationPayload(dogID string) map[string]interface{} {
	return map[string]interface{}{
		"dogId":       dogID,
		"shelter":     "Sunny Paws",
		"name":        "Sam Carter",
		"email":       "sam@example.test",
		"phone":       "555-0100",
		"address":     "1 Main St",
		"livingSpace": "house with yard",
		"hasKids":     false,
	}
}

func TestCreateDogEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	code, body := doJSON(t, r, http.MethodPost, "/dogs", dogPayload())
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Dog created successfully", body["message"])
	assert.NotEmpty(t, body["dogId"])
}

func TestCreateDogEndpointValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	p := dogPayload()
	p["species"] = "Poodle"
	code, body := doJSON(t, r, http.MethodPost, "/dogs", p)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Only Labrador Retrievers are allowed", body["error"])

	p = dogPayload()
	delete(p, "shelter")
	code, body = doJSON(t, r, http.MethodPost, "/dogs", p)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing required field: shelter", body["error"])

	p = dogPayload()
	p["birthday"] = "06/15/2021"
	code, _ = doJSON(t, r, http.MethodPost, "/dogs", p)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListDogsEndpointEmpty(t *testing.T) {
	r, _ := newTestRouter(t)

	code, body := doJSON(t, r, http.MethodGet, "/dogs", nil)
	require.Equal(t, http.StatusOK, code)
	dogs, ok := body["dogs"].([]interface{})
	require.True(t, ok, "dogs must be a JSON array even when empty")
	assert.Empty(t, dogs)
	assert.EqualValues(t, 0, body["count"])
}

func TestListDogsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	code, _ := doJSON(t, r, http.MethodPost, "/dogs", dogPayload())
	require.Equal(t, http.StatusCreated, code)

	p := dogPayload()
	p["name"] = "Mossy"
	p["state"] = "OR"
	p["color"] = "black"
	code, _ = doJSON(t, r, http.MethodPost, "/dogs", p)
	require.Equal(t, http.StatusCreated, code)

	code, body := doJSON(t, r, http.MethodGet, "/dogs", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["count"])

	code, body = doJSON(t, r, http.MethodGet, "/dogs?state=OR", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	code, body = doJSON(t, r, http.MethodGet, "/dogs?minWeight=abc", nil)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "filter values must be numbers", body["error"])
}

func TestDeleteDogEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	code, body := doJSON(t, r, http.MethodPost, "/dogs", dogPayload())
	require.Equal(t, http.StatusCreated, code)
	dogID := body["dogId"].(string)

	code, body = doJSON(t, r, http.MethodDelete, "/dogs/"+dogID, nil)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "userId is required", body["error"])

	code, body = doJSON(t, r, http.MethodDelete, "/dogs/"+dogID, map[string]string{"userId": "intruder"})
	require.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "You can only delete dogs you posted", body["error"])

	code, body = doJSON(t, r, http.MethodDelete, "/dogs/"+dogID, map[string]string{"userId": "shelter-1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Dog deleted successfully", body["message"])

	code, _ = doJSON(t, r, http.MethodDelete, "/dogs/"+dogID, map[string]string{"userId": "shelter-1"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestVoteEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	code, body := doJSON(t, r, http.MethodPost, "/dogs", dogPayload())
	require.Equal(t, http.StatusCreated, code)
	dogID := body["dogId"].(string)

	code, body = doJSON(t, r, http.MethodPost, "/dogs/"+dogID+"/vote", map[string]interface{}{
		"voteType": "wag", "userId": "user-1",
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Vote recorded successfully", body["message"])

	code, body = doJSON(t, r, http.MethodPost, "/dogs/"+dogID+"/vote", map[string]interface{}{
		"voteType": "bark", "userId": "user-1",
	})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, `Vote type must be "wag" or "growl"`, body["error"])

	code, body = doJSON(t, r, http.MethodPost, "/dogs/"+dogID+"/vote", map[string]interface{}{
		"voteType": "wag", "isRemoving": true,
	})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "userId is required", body["error"])

	code, body = doJSON(t, r, http.MethodGet, "/users/user-1/votes", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])
	votes := body["votes"].(map[string]interface{})
	assert.Equal(t, "wag", votes[dogID])

	code, body = doJSON(t, r, http.MethodPost, "/dogs/"+dogID+"/vote", map[string]interface{}{
		"voteType": "wag", "userId": "user-1", "isRemoving": true,
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Vote removed successfully", body["message"])

	code, body = doJSON(t, r, http.MethodGet, "/users/user-1/votes", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["count"])
}

func TestSubmitApplicationEndpoint(t *testing.T) {
	r, st := newTestRouter(t)

	code, body := doJSON(t, r, http.MethodPost, "/dogs", dogPayload())
	require.Equal(t, http.StatusCreated, code)
	dogID := body["dogId"].(string)

	p := applicationPayload(dogID)
	delete(p, "hasKids")
	code, body = doJSON(t, r, http.MethodPost, "/applications", p)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing required field: hasKids", body["error"])

	p = applicationPayload(dogID)
	p["email"] = "not-an-email"
	code, _ = doJSON(t, r, http.MethodPost, "/applications", p)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = doJSON(t, r, http.MethodPost, "/applications", applicationPayload(dogID))
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Adoption application submitted successfully", body["message"])
	appID := body["applicationId"].(string)

	// adopter identity defaults to the anonymous user when absent
	saved, err := st.Applications().Get(context.Background(), appID)
	require.NoError(t, err)
	assert.Equal(t, "anonymous-user", saved.AdopterID)
}

func TestListApplicationsEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	code, body := doJSON(t, r, http.MethodPost, "/dogs", dogPayload())
	require.Equal(t, http.StatusCreated, code)
	dogID := body["dogId"].(string)

	code, _ = doJSON(t, r, http.MethodPost, "/applications", applicationPayload(dogID))
	require.Equal(t, http.StatusCreated, code)

	code, body = doJSON(t, r, http.MethodGet, "/applications", nil)
	require.Equal(t, http.StatusOK, code)
	apps := body["applications"].([]interface{})
	require.Len(t, apps, 1)
	first := apps[0].(map[string]interface{})
	assert.Equal(t, "Biscuit", first["dogName"])

	// the shelter view includes only the owner's dogs
	code, body = doJSON(t, r, http.MethodGet, "/users/shelter-1/applications", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["applications"], 1)

	code, body = doJSON(t, r, http.MethodGet, "/users/somebody-else/applications", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["applications"], 0)
}

func TestUpdateApplicationEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	code, body := doJSON(t, r, http.MethodPost, "/dogs", dogPayload())
	require.Equal(t, http.StatusCreated, code)
	dogID := body["dogId"].(string)

	code, body = doJSON(t, r, http.MethodPost, "/applications", applicationPayload(dogID))
	require.Equal(t, http.StatusCreated, code)
	appID := body["applicationId"].(string)

	code, body = doJSON(t, r, http.MethodPut, "/applications/"+appID, map[string]string{"status": "approved"})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "userId is required", body["error"])

	code, body = doJSON(t, r, http.MethodPut, "/applications/"+appID, map[string]string{
		"status": "maybe", "userId": "shelter-1",
	})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, `Status must be "approved" or "rejected"`, body["error"])

	code, _ = doJSON(t, r, http.MethodPut, "/applications/"+appID, map[string]string{
		"status": "approved", "userId": "intruder",
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, body = doJSON(t, r, http.MethodPut, "/applications/"+appID, map[string]string{
		"status": "approved", "userId": "shelter-1",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Application approved successfully", body["message"])
	assert.Equal(t, "approved", body["status"])

	// terminal states are immutable
	code, _ = doJSON(t, r, http.MethodPut, "/applications/"+appID, map[string]string{
		"status": "rejected", "userId": "shelter-1",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = doJSON(t, r, http.MethodPut, "/applications/no-such-id", map[string]string{
		"status": "approved", "userId": "shelter-1",
	})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	code, _ := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)

	down := NewRouter(RouterDeps{
		Dogs:         services.NewDogService(memory.New(), nil),
		Votes:        services.NewVoteService(memory.New(), nil),
		Applications: services.NewApplicationService(memory.New(), nil, zerolog.Nop(), true),
		IsHealthy:    func() bool { return false },
	})
	code, _ = doJSON(t, down, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/dogs", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

type stubNotifier struct{ sent []notify.StatusNotification }

func (s *stubNotifier) Send(_ context.Context, n notify.StatusNotification) error {
	s.sent = append(s.sent, n)
	return nil
}

// TestAdoptionFlowEndToEnd walks the whole lifecycle: list a dog, apply,
// approve, drain the outbox, observe the adopted status, and confirm a late
// application is still accepted for shelter review.
func TestAdoptionFlowEndToEnd(t *testing.T) {
	r, st := newTestRouter(t)
	ctx := context.Background()

	code, body := doJSON(t, r, http.MethodPost, "/dogs", dogPayload())
	require.Equal(t, http.StatusCreated, code)
	dogID := body["dogId"].(string)

	code, body = doJSON(t, r, http.MethodPost, "/applications", applicationPayload(dogID))
	require.Equal(t, http.StatusCreated, code)
	appID := body["applicationId"].(string)

	code, _ = doJSON(t, r, http.MethodPut, "/applications/"+appID, map[string]string{
		"status": "approved", "userId": "shelter-1",
	})
	require.Equal(t, http.StatusOK, code)

	// the decision is durable before any follow-up runs
	dog, err := st.Dogs().Get(ctx, dogID)
	require.NoError(t, err)
	assert.Equal(t, model.DogStatusAvailable, dog.Status)

	n := &stubNotifier{}
	w := outbox.NewWorker(st, n, nil, outbox.Config{}, zerolog.Nop())
	require.NoError(t, w.ProcessOnce(ctx))

	dog, err = st.Dogs().Get(ctx, dogID)
	require.NoError(t, err)
	assert.Equal(t, model.DogStatusAdopted, dog.Status)

	require.Len(t, n.sent, 1)
	assert.Equal(t, "approved", n.sent[0].Status)

	// a late application against the adopted dog is accepted
	code, _ = doJSON(t, r, http.MethodPost, "/applications", applicationPayload(dogID))
	assert.Equal(t, http.StatusCreated, code)
}
