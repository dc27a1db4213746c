package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lmoretti/pawfinder/internal/apperror"
	"github.com/lmoretti/pawfinder/internal/auth"
	"github.com/lmoretti/pawfinder/internal/repository"
	"github.com/lmoretti/pawfinder/internal/service"
)

// ListingHandler exposes listing CRUD over JSON.
//
// Reads are public. Mutations pass the caller (resolved by the auth
// middleware) down to the service, where the ownership guard decides —
// the handler never makes authorization calls itself.
type ListingHandler struct {
	listings *service.ListingService
	logger   *slog.Logger
}

// NewListingHandler creates a ListingHandler.
func NewListingHandler(listings *service.ListingService, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		listings: listings,
		logger:   logger,
	}
}

// listingRequest is the JSON body for create and update.
type listingRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	AnimalType  string  `json:"animalType"`
	Status      string  `json:"status"`
	City        string  `json:"city"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	PhotoURL    string  `json:"photoUrl"`
}

func (req listingRequest) toInput() service.ListingInput {
	return service.ListingInput{
		Title:       req.Title,
		Description: req.Description,
		AnimalType:  req.AnimalType,
		Status:      req.Status,
		City:        req.City,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		PhotoURL:    req.PhotoURL,
	}
}

// HandleList returns public listings.
//
// HTTP: GET /api/listings?status=LOST&animal=DOG&city=Madrid&limit=20&offset=0
func (h *ListingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.ListingFilter{
		Status:     q.Get("status"),
		AnimalType: q.Get("animal"),
		City:       q.Get("city"),
	}
	opts := listOptions(q.Get("limit"), q.Get("offset"))

	listings, err := h.listings.List(r.Context(), filter, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

// HandleGetByID returns a single listing.
//
// HTTP: GET /api/listings/{id}
func (h *ListingHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// HandleListMine returns the caller's own listings.
//
// HTTP: GET /api/my/listings (behind RequireAuth)
func (h *ListingHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := listOptions(q.Get("limit"), q.Get("offset"))

	listings, err := h.listings.ListMine(r.Context(), auth.CallerFromContext(r.Context()), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

// HandleCreate creates a listing owned by the caller.
//
// HTTP: POST /api/listings (behind RequireAuth)
func (h *ListingHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	listing, err := h.listings.Create(r.Context(), auth.CallerFromContext(r.Context()), req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

// HandleUpdate rewrites a listing; only its owner gets past the guard.
//
// HTTP: PUT /api/listings/{id} (behind RequireAuth)
func (h *ListingHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	listing, err := h.listings.Update(r.Context(),
		auth.CallerFromContext(r.Context()), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// HandleDelete removes a listing; only its owner gets past the guard.
//
// HTTP: DELETE /api/listings/{id} (behind RequireAuth)
func (h *ListingHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.listings.Delete(r.Context(), auth.CallerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func listOptions(limitStr, offsetStr string) repository.ListOptions {
	var opts repository.ListOptions
	if n, err := strconv.Atoi(limitStr); err == nil {
		opts.Limit = n
	}
	if n, err := strconv.Atoi(offsetStr); err == nil {
		opts.Offset = n
	}
	return opts
}
