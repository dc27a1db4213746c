package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lmoretti/pawfinder/internal/apperror"
	"github.com/lmoretti/pawfinder/internal/auth"
	"github.com/lmoretti/pawfinder/internal/model"
	"github.com/lmoretti/pawfinder/internal/repository"
)

// Validation constants for listings.
const (
	MaxTitleLength       = 140
	MaxDescriptionLength = 4000
	DefaultListLimit     = 20
	MaxListLimit         = 100
)

var validStatuses = map[string]bool{
	model.StatusLost:  true,
	model.StatusFound: true,
}

var validAnimalTypes = map[string]bool{
	model.AnimalDog:   true,
	model.AnimalCat:   true,
	model.AnimalBird:  true,
	model.AnimalOther: true,
}

// ListingInput is the mutable portion of a listing, as submitted by a form
// or API call. Ownership is never part of the input — it comes from the
// authenticated caller.
type ListingInput struct {
	Title       string
	Description string
	AnimalType  string
	Status      string
	City        string
	Latitude    float64
	Longitude   float64
	PhotoURL    string
}

// ListingService handles business logic for lost/found pet listings.
//
// Every mutating operation authorizes before writing: auth.Authorize runs
// against the resolved caller and the resource owner, and a denial is a
// hard stop with nothing touched. Reads are public and skip the guard.
type ListingService struct {
	repo   repository.ListingRepository
	logger *slog.Logger
}

// NewListingService creates a ListingService.
func NewListingService(repo repository.ListingRepository, logger *slog.Logger) *ListingService {
	return &ListingService{
		repo:   repo,
		logger: logger,
	}
}

// Create validates input and saves a new listing owned by caller.
//
// The caller must be authenticated: create-with-attribution is a mutation,
// so it goes through the guard like the rest. The owner is set here, once,
// and no other code path ever changes it.
func (s *ListingService) Create(ctx context.Context, caller *model.User, input ListingInput) (*model.Listing, error) {
	if err := checkDecision(auth.Authorize(caller, callerID(caller))); err != nil {
		return nil, err
	}
	if err := validateInput(&input); err != nil {
		return nil, err
	}

	listing := &model.Listing{
		UserID:      caller.ID,
		Title:       input.Title,
		Description: input.Description,
		AnimalType:  input.AnimalType,
		Status:      input.Status,
		City:        input.City,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		PhotoURL:    input.PhotoURL,
	}
	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("service/listing: creating listing: %w", err)
	}

	s.logger.Info("listing created",
		slog.String("listingID", listing.ID),
		slog.String("userID", caller.ID),
	)
	return listing, nil
}

// GetByID returns a single listing. Public — no guard.
func (s *ListingService) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "listing id is required")
	}
	listing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/listing: fetching listing %s: %w", id, err)
	}
	return listing, nil
}

// List returns public listings, filtered and paginated. Public — no guard.
func (s *ListingService) List(ctx context.Context, filter repository.ListingFilter, opts repository.ListOptions) ([]model.Listing, error) {
	filter.Status = strings.ToUpper(strings.TrimSpace(filter.Status))
	filter.AnimalType = strings.ToUpper(strings.TrimSpace(filter.AnimalType))
	if filter.Status != "" && !validStatuses[filter.Status] {
		return nil, apperror.ValidationFailed("status", "status must be LOST or FOUND")
	}
	if filter.AnimalType != "" && !validAnimalTypes[filter.AnimalType] {
		return nil, apperror.ValidationFailed("animalType", "unknown animal type")
	}

	opts = clampList(opts)
	listings, err := s.repo.List(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("service/listing: listing: %w", err)
	}
	return listings, nil
}

// ListMine returns the caller's own listings (the dashboard view).
func (s *ListingService) ListMine(ctx context.Context, caller *model.User, opts repository.ListOptions) ([]model.Listing, error) {
	if err := checkDecision(auth.Authorize(caller, callerID(caller))); err != nil {
		return nil, err
	}
	opts = clampList(opts)
	listings, err := s.repo.ListByUser(ctx, caller.ID, opts)
	if err != nil {
		return nil, fmt.Errorf("service/listing: listing for user %s: %w", caller.ID, err)
	}
	return listings, nil
}

// Update rewrites a listing's mutable fields, owner-gated.
//
// The existing record is fetched first so the guard runs against the real
// owner; denial stops everything before the write. The error for "not
// yours" is the uniform Forbidden — it does not reveal more about the
// resource than an anonymous read would.
func (s *ListingService) Update(ctx context.Context, caller *model.User, id string, input ListingInput) (*model.Listing, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/listing: fetching listing %s: %w", id, err)
	}

	if err := checkDecision(auth.Authorize(caller, existing.UserID)); err != nil {
		return nil, err
	}
	if err := validateInput(&input); err != nil {
		return nil, err
	}

	existing.Title = input.Title
	existing.Description = input.Description
	existing.AnimalType = input.AnimalType
	existing.Status = input.Status
	existing.City = input.City
	existing.Latitude = input.Latitude
	existing.Longitude = input.Longitude
	existing.PhotoURL = input.PhotoURL

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("service/listing: updating listing %s: %w", id, err)
	}

	s.logger.Info("listing updated",
		slog.String("listingID", id),
		slog.String("userID", caller.ID),
	)
	return existing, nil
}

// Delete removes a listing, owner-gated.
func (s *ListingService) Delete(ctx context.Context, caller *model.User, id string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service/listing: fetching listing %s: %w", id, err)
	}

	if err := checkDecision(auth.Authorize(caller, existing.UserID)); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/listing: deleting listing %s: %w", id, err)
	}

	s.logger.Info("listing deleted",
		slog.String("listingID", id),
		slog.String("userID", caller.ID),
	)
	return nil
}

// checkDecision translates a guard decision into the error taxonomy.
func checkDecision(d auth.Decision) error {
	switch d {
	case auth.Allowed:
		return nil
	case auth.DeniedUnauthenticated:
		return apperror.Unauthenticated()
	default:
		return apperror.Forbidden()
	}
}

// callerID tolerates a nil caller so the guard (not a panic) produces the
// Unauthenticated denial.
func callerID(caller *model.User) string {
	if caller == nil {
		return ""
	}
	return caller.ID
}

func validateInput(input *ListingInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.AnimalType = strings.ToUpper(strings.TrimSpace(input.AnimalType))
	input.Status = strings.ToUpper(strings.TrimSpace(input.Status))
	input.City = strings.TrimSpace(input.City)

	if input.Title == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if len(input.Title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or fewer", MaxTitleLength))
	}
	if len(input.Description) > MaxDescriptionLength {
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or fewer", MaxDescriptionLength))
	}
	if !validAnimalTypes[input.AnimalType] {
		return apperror.ValidationFailed("animalType", "unknown animal type")
	}
	if !validStatuses[input.Status] {
		return apperror.ValidationFailed("status", "status must be LOST or FOUND")
	}
	if input.Latitude < -90 || input.Latitude > 90 {
		return apperror.ValidationFailed("latitude", "latitude out of range")
	}
	if input.Longitude < -180 || input.Longitude > 180 {
		return apperror.ValidationFailed("longitude", "longitude out of range")
	}
	return nil
}

func clampList(opts repository.ListOptions) repository.ListOptions {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}
