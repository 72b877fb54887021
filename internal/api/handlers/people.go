package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/splitledger/internal/api/middleware"
	"github.com/dvloznov/splitledger/internal/domain"
)

// PeopleRepository reads and writes the group member registry.
type PeopleRepository interface {
	ListPeople(ctx context.Context) ([]*domain.Person, error)
	SavePerson(ctx context.Context, p domain.Person) error
}

// PeopleHandler handles the group member endpoints.
type PeopleHandler struct {
	repo PeopleRepository
	log  zerolog.Logger
}

// NewPeopleHandler creates a new people handler.
func NewPeopleHandler(repo PeopleRepository, log zerolog.Logger) *PeopleHandler {
	return &PeopleHandler{repo: repo, log: log}
}

// ListPeople handles GET /api/people.
func (h *PeopleHandler) ListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := h.repo.ListPeople(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list people")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list people")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"people": people,
		"count":  len(people),
	})
}

// SavePerson handles POST /api/people, upserting a registration keyed by
// email. Attached transactions in the body are ignored.
func (h *PeopleHandler) SavePerson(w http.ResponseWriter, r *http.Request) {
	var person domain.Person
	if err := json.NewDecoder(r.Body).Decode(&person); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if person.Email == "" {
		middleware.WriteError(w, http.StatusBadRequest, "email is required")
		return
	}
	person.Transactions = nil

	if err := h.repo.SavePerson(r.Context(), person); err != nil {
		h.log.Error().Err(err).Str("email", person.Email).Msg("Failed to save person")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save person")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"email":  person.Email,
		"status": "saved",
	})
}
