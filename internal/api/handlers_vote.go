package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pupperhq/pupper-server/internal/api/respond"
	"github.com/pupperhq/pupper-server/internal/api/validate"
	"github.com/pupperhq/pupper-server/internal/services"
)

// VoteHandler is the HTTP transport for wag/growl votes.
type VoteHandler struct {
	svc *services.VoteService
}

func NewVoteHandler(svc *services.VoteService) *VoteHandler { return &VoteHandler{svc: svc} }

// CastVote POST /dogs/{dogId}/vote
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	dogID := mux.Vars(r)["dogId"]

	var in struct {
		VoteType   string `json:"voteType"`
		UserID     string `json:"userId"`
		IsRemoving bool   `json:"isRemoving,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "Request body is required")
		return
	}
	if err := validate.NonEmpty("userId", in.UserID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	if in.IsRemoving {
		if err := h.svc.Remove(r.Context(), in.UserID, dogID); err != nil {
			respond.WriteDomainError(w, err)
			return
		}
		respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{
			"message": "Vote removed successfully",
			"vote":    map[string]string{"dogId": dogID, "voteType": in.VoteType},
		})
		return
	}

	out, err := h.svc.Cast(r.Context(), in.UserID, dogID, in.VoteType)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Vote recorded successfully",
		"vote":    map[string]string{"dogId": out.DogID, "voteType": out.VoteType},
	})
}

// GetUserVotes GET /users/{userId}/votes
func (h *VoteHandler) GetUserVotes(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	votes, err := h.svc.VotesForUser(r.Context(), userID)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"userId": userID,
		"votes":  votes,
		"count":  len(votes),
	})
}
