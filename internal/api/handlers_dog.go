package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/pupperhq/pupper-server/internal/api/respond"
	"github.com/pupperhq/pupper-server/internal/api/validate"
	"github.com/pupperhq/pupper-server/internal/model"
	"github.com/pupperhq/pupper-server/internal/services"
)

// DogHandler is the HTTP transport for dog listings.
type DogHandler struct {
	svc *services.DogService
}

func NewDogHandler(svc *services.DogService) *DogHandler { return &DogHandler{svc: svc} }

// CreateDog POST /dogs
func (h *DogHandler) CreateDog(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Shelter     string  `json:"shelter"`
		City        string  `json:"city"`
		State       string  `json:"state"`
		Name        string  `json:"name"`
		Species     string  `json:"species"`
		Description string  `json:"description"`
		Birthday    string  `json:"birthday"`
		Weight      float64 `json:"weight"`
		Color       string  `json:"color"`
		CreatedBy   string  `json:"createdBy"`
		EntryDate   string  `json:"entryDate,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "Request body is required")
		return
	}

	if in.Birthday != "" {
		if err := validate.Birthday(in.Birthday); err != nil {
			respond.WriteBadRequest(w, err.Error())
			return
		}
	}

	d := &model.Dog{
		Shelter:     in.Shelter,
		City:        in.City,
		State:       in.State,
		Name:        in.Name,
		Species:     in.Species,
		Description: in.Description,
		Birthday:    in.Birthday,
		Weight:      in.Weight,
		Color:       in.Color,
		CreatedBy:   in.CreatedBy,
		EntryDate:   in.EntryDate,
	}
	out, err := h.svc.CreateDog(r.Context(), d)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Dog created successfully",
		"dogId":   out.DogID,
	})
}

// ListDogs GET /dogs?state=&color=&minWeight=&maxWeight=&minAge=&maxAge=
func (h *DogHandler) ListDogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.DogFilter{
		State: q.Get("state"),
		Color: q.Get("color"),
	}

	var parseErr error
	parseFloat := func(key string) *float64 {
		raw := q.Get(key)
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			parseErr = err
			return nil
		}
		return &v
	}
	f.MinWeight = parseFloat("minWeight")
	f.MaxWeight = parseFloat("maxWeight")
	f.MinAge = parseFloat("minAge")
	f.MaxAge = parseFloat("maxAge")
	if parseErr != nil {
		respond.WriteBadRequest(w, "filter values must be numbers")
		return
	}

	dogs, err := h.svc.ListDogs(r.Context(), f)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"dogs":  dogs,
		"count": len(dogs),
	})
}

// DeleteDog DELETE /dogs/{dogId}
func (h *DogHandler) DeleteDog(w http.ResponseWriter, r *http.Request) {
	dogID := mux.Vars(r)["dogId"]

	var in struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "userId is required")
		return
	}
	if err := validate.NonEmpty("userId", in.UserID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.svc.DeleteDog(r.Context(), dogID, in.UserID); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Dog deleted successfully",
		"dogId":   dogID,
	})
}
