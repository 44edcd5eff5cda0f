package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pupperhq/pupper-server/internal/model"
)

func sampleNotification(status string) StatusNotification {
	return StatusNotification{
		Email:         "sam@example.test",
		Phone:         "555-0100",
		ApplicantName: "Sam",
		DogName:       "Biscuit",
		Shelter:       "Sunny Paws",
		Status:        status,
	}
}

func TestWebhookNotifierSend(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "adoptions@pupper.example")
	err := n.Send(context.Background(), sampleNotification(model.ApplicationStatusApproved))
	require.NoError(t, err)

	assert.Equal(t, "adoptions@pupper.example", got.From)
	assert.Equal(t, "sam@example.test", got.To)
	assert.Equal(t, "555-0100", got.Phone)
	assert.Contains(t, got.Subject, "approved")
	assert.Contains(t, got.Body, "APPROVED")
}

func TestWebhookNotifierGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "adoptions@pupper.example")
	err := n.Send(context.Background(), sampleNotification(model.ApplicationStatusRejected))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway returned")
}

func TestWebhookNotifierUnreachable(t *testing.T) {
	n := NewWebhookNotifier("http://127.0.0.1:1/notify", "adoptions@pupper.example")
	err := n.Send(context.Background(), sampleNotification(model.ApplicationStatusApproved))
	assert.Error(t, err)
}
