package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pupperhq/pupper-server/internal/api/respond"
	"github.com/pupperhq/pupper-server/internal/api/validate"
	"github.com/pupperhq/pupper-server/internal/model"
	"github.com/pupperhq/pupper-server/internal/services"
)

// ApplicationHandler is the HTTP transport for adoption applications.
type ApplicationHandler struct {
	svc *services.ApplicationService
}

func NewApplicationHandler(svc *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{svc: svc}
}

// SubmitApplication POST /applications
func (h *ApplicationHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	var in struct {
		DogID       string `json:"dogId"`
		Shelter     string `json:"shelter"`
		AdopterID   string `json:"adopterId"`
		Name        string `json:"name"`
		Email       string `json:"email"`
		Phone       string `json:"phone"`
		Address     string `json:"address"`
		Experience  string `json:"experience,omitempty"`
		LivingSpace string `json:"livingSpace"`
		HasKids     *bool  `json:"hasKids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "Request body is required")
		return
	}

	if in.Email != "" {
		if err := validate.Email(in.Email); err != nil {
			respond.WriteBadRequest(w, err.Error())
			return
		}
	}
	if in.HasKids == nil {
		respond.WriteBadRequest(w, "Missing required field: hasKids")
		return
	}

	// The adopter identity comes from the authenticated caller; unauthenticated
	// front ends submit as the anonymous user, matching the source behavior.
	adopterID := in.AdopterID
	if adopterID == "" {
		adopterID = "anonymous-user"
	}

	a := &model.Application{
		DogID:          in.DogID,
		Shelter:        in.Shelter,
		AdopterName:    in.Name,
		AdopterEmail:   in.Email,
		AdopterPhone:   in.Phone,
		AdopterAddress: in.Address,
		Experience:     in.Experience,
		LivingSpace:    in.LivingSpace,
		HasKids:        *in.HasKids,
	}
	out, err := h.svc.Submit(r.Context(), a, adopterID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message":       "Adoption application submitted successfully",
		"applicationId": out.ApplicationID,
	})
}

// ListApplications GET /applications
func (h *ApplicationHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.svc.ListAll(r.Context())
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"applications": apps,
	})
}

// ListShelterApplications GET /users/{userId}/applications
func (h *ApplicationHandler) ListShelterApplications(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["userId"]

	apps, err := h.svc.ListForShelterOwner(r.Context(), ownerID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"applications": apps,
	})
}

// UpdateApplication PUT /applications/{applicationId}
func (h *ApplicationHandler) UpdateApplication(w http.ResponseWriter, r *http.Request) {
	applicationID := mux.Vars(r)["applicationId"]

	var in struct {
		Status string `json:"status"`
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "Request body is required")
		return
	}
	if err := validate.NonEmpty("userId", in.UserID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.svc.Transition(r.Context(), applicationID, in.Status, in.UserID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Application " + out.Status + " successfully",
		"applicationId": out.ApplicationID,
		"status":        out.Status,
	})
}
