package model

import (
	"encoding/json"
	"time"
)

// AllowedSpecies is the single breed accepted by the marketplace.
// Comparison is case-insensitive at validation time.
const AllowedSpecies = "Labrador Retriever"

// Dog statuses. A dog starts available and only ever moves to adopted.
const (
	DogStatusAvailable = "available"
	DogStatusAdopted   = "adopted"
)

// Dog is an adoptable-animal listing.
type Dog struct {
	DogID        string    `json:"dogId"`
	Shelter      string    `json:"shelter"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Name         string    `json:"name"`
	Species      string    `json:"species"`
	Description  string    `json:"description"`
	Birthday     string    `json:"birthday"` // YYYY-MM-DD
	Weight       float64   `json:"weight"`
	Color        string    `json:"color"`
	CreatedBy    string    `json:"createdBy"`
	Status       string    `json:"status"`
	EntryDate    string    `json:"entryDate,omitempty"`
	PhotoURL     *string   `json:"photoUrl,omitempty"`     // written by the image pipeline, not this service
	ThumbnailURL *string   `json:"thumbnailUrl,omitempty"` // written by the image pipeline, not this service
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Age returns the dog's age in years computed from Birthday at call time.
// Returns 0 when the birthday cannot be parsed.
func (d *Dog) Age(now time.Time) float64 {
	b, err := time.Parse("2006-01-02", d.Birthday)
	if err != nil {
		return 0
	}
	return now.Sub(b).Hours() / (24 * 365.25)
}

// DogFilter captures optional filters for listing dogs. State hits the
// indexed path; the rest apply as predicates after fetch.
type DogFilter struct {
	State     string
	Color     string
	MinWeight *float64
	MaxWeight *float64
	MinAge    *float64
	MaxAge    *float64
}

// Vote types: wag marks a favorite, growl a dislike.
const (
	VoteTypeWag   = "wag"
	VoteTypeGrowl = "growl"
)

// Vote is a per-user, per-dog preference signal. At most one vote exists
// per (UserID, DogID) pair; a new vote overwrites the prior one.
type Vote struct {
	UserID    string    `json:"userId"`
	DogID     string    `json:"dogId"`
	VoteType  string    `json:"voteType"`
	Timestamp time.Time `json:"timestamp"`
}

// Application statuses. Pending is initial; approved and rejected are terminal.
const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusApproved = "approved"
	ApplicationStatusRejected = "rejected"
)

// Application is an adopter's request to adopt a specific dog.
type Application struct {
	ApplicationID  string    `json:"applicationId"`
	DogID          string    `json:"dogId"`
	Shelter        string    `json:"shelter"`
	AdopterID      string    `json:"adopterId"`
	Status         string    `json:"status"`
	AdopterName    string    `json:"adopterName"`
	AdopterEmail   string    `json:"adopterEmail"`
	AdopterPhone   string    `json:"adopterPhone"`
	AdopterAddress string    `json:"adopterAddress"`
	Experience     string    `json:"experience,omitempty"`
	LivingSpace    string    `json:"livingSpace"`
	HasKids        bool      `json:"hasKids"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ApplicationWithDog is the read-side projection that joins the referenced
// dog's display name (and owner, for the shelter view) into an application.
type ApplicationWithDog struct {
	Application
	DogName      string `json:"dogName"`
	DogCreatedBy string `json:"dogCreatedBy,omitempty"`
}

// Outbox operation names. Targets must be idempotent.
const (
	OpMarkDogAdopted = "mark_dog_adopted"
	OpNotifyAdopter  = "notify_adopter"
)

// Outbox job statuses.
const (
	OutboxStatusPending = "pending"
	OutboxStatusDone    = "done"
)

// OutboxJob is a durable follow-up task enqueued in the same transaction as
// the state change that produced it.
type OutboxJob struct {
	ID            int64           `json:"id"`
	Op            string          `json:"op"`
	AggregateID   string          `json:"aggregateId"`
	Payload       json.RawMessage `json:"payload"`
	Status        string          `json:"status"`
	AttemptCount  int             `json:"attemptCount"`
	LastError     *string         `json:"lastError,omitempty"`
	NextAttemptAt time.Time       `json:"nextAttemptAt"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// DecidePayload is the payload shape shared by both outbox ops: enough to
// re-read the application and flip the dog without trusting stale copies.
type DecidePayload struct {
	ApplicationID string `json:"applicationId"`
	DogID         string `json:"dogId"`
	Status        string `json:"status"`
}
