package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pupperhq/pupper-server/internal/api/recovery"
	"github.com/pupperhq/pupper-server/internal/metrics"
	"github.com/pupperhq/pupper-server/internal/services"
)

// RouterDeps carries everything the router wires to handlers.
type RouterDeps struct {
	Dogs         *services.DogService
	Votes        *services.VoteService
	Applications *services.ApplicationService
	Metrics      *metrics.Collector
	IsHealthy    func() bool
	CORSOrigin   string
}

// NewRouter wires HTTP routes to handlers. CORS and panic recovery wrap the
// router from outside so preflight requests and panics on unmatched routes
// are still handled.
func NewRouter(deps RouterDeps) http.Handler {
	r := mux.NewRouter()
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
		r.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	}

	health := NewHealthHandler(deps.IsHealthy)
	r.HandleFunc("/health", health.CheckHealth).Methods("GET")

	dogs := NewDogHandler(deps.Dogs)
	r.HandleFunc("/dogs", dogs.CreateDog).Methods("POST")
	r.HandleFunc("/dogs", dogs.ListDogs).Methods("GET")
	r.HandleFunc("/dogs/{dogId}", dogs.DeleteDog).Methods("DELETE")

	votes := NewVoteHandler(deps.Votes)
	r.HandleFunc("/dogs/{dogId}/vote", votes.CastVote).Methods("POST")
	r.HandleFunc("/users/{userId}/votes", votes.GetUserVotes).Methods("GET")

	apps := NewApplicationHandler(deps.Applications)
	r.HandleFunc("/applications", apps.SubmitApplication).Methods("POST")
	r.HandleFunc("/applications", apps.ListApplications).Methods("GET")
	r.HandleFunc("/users/{userId}/applications", apps.ListShelterApplications).Methods("GET")
	r.HandleFunc("/applications/{applicationId}", apps.UpdateApplication).Methods("PUT")

	var h http.Handler = r
	if deps.CORSOrigin != "" {
		h = NewCORSMiddleware(deps.CORSOrigin)(h)
	}
	return recovery.Middleware(h)
}
