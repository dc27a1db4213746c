package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/lmoretti/pawfinder/internal/apperror"
	"github.com/lmoretti/pawfinder/internal/model"
	"github.com/lmoretti/pawfinder/internal/repository"
)

// ListingDB implements repository.ListingRepository.
type ListingDB struct {
	db *DB
}

var _ repository.ListingRepository = (*ListingDB)(nil)

const listingColumns = `id, user_id, title, description, animal_type, status,
	city, latitude, longitude, photo_url, created_at, updated_at`

// Create persists a new listing. The owner (UserID) must already be set by
// the service from the authenticated caller; it is written once here and no
// update path ever touches it.
func (l *ListingDB) Create(ctx context.Context, listing *model.Listing) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	listing.ID = xid.New().String()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	_, err := l.db.conn.ExecContext(ctx,
		`INSERT INTO listings (`+listingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		listing.ID, listing.UserID, listing.Title, listing.Description,
		listing.AnimalType, listing.Status, listing.City,
		listing.Latitude, listing.Longitude, listing.PhotoURL,
		listing.CreatedAt, listing.UpdatedAt,
	)
	if err != nil {
		return wrapStoreErr("inserting listing", err)
	}
	return nil
}

// GetByID retrieves a single listing.
func (l *ListingDB) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := l.db.conn.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)

	listing, err := scanListing(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("listing", id)
		}
		return nil, wrapStoreErr(fmt.Sprintf("getting listing %s", id), err)
	}
	return listing, nil
}

// List returns listings newest-first, optionally filtered by status, animal
// type, and city. The filter clauses are built from a fixed set of columns;
// values always travel as bind parameters.
func (l *ListingDB) List(ctx context.Context, filter repository.ListingFilter, opts repository.ListOptions) ([]model.Listing, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var (
		clauses []string
		args    []any
	)
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.AnimalType != "" {
		clauses = append(clauses, "animal_type = ?")
		args = append(args, filter.AnimalType)
	}
	if filter.City != "" {
		clauses = append(clauses, "city = ? COLLATE NOCASE")
		args = append(args, filter.City)
	}

	query := `SELECT ` + listingColumns + ` FROM listings`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, opts.Limit, opts.Offset)

	return l.queryListings(ctx, query, args...)
}

// ListByUser returns the given user's listings newest-first (the dashboard
// query).
func (l *ListingDB) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Listing, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	return l.queryListings(ctx,
		`SELECT `+listingColumns+` FROM listings
		 WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		userID, opts.Limit, opts.Offset,
	)
}

// Update rewrites the mutable fields of a listing. user_id is deliberately
// absent from the SET clause — ownership is immutable.
func (l *ListingDB) Update(ctx context.Context, listing *model.Listing) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	listing.UpdatedAt = time.Now().UTC()
	res, err := l.db.conn.ExecContext(ctx,
		`UPDATE listings
		 SET title = ?, description = ?, animal_type = ?, status = ?,
		     city = ?, latitude = ?, longitude = ?, photo_url = ?, updated_at = ?
		 WHERE id = ?`,
		listing.Title, listing.Description, listing.AnimalType, listing.Status,
		listing.City, listing.Latitude, listing.Longitude, listing.PhotoURL,
		listing.UpdatedAt, listing.ID,
	)
	if err != nil {
		return wrapStoreErr(fmt.Sprintf("updating listing %s", listing.ID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking listing update: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("listing", listing.ID)
	}
	return nil
}

// Delete removes a listing.
func (l *ListingDB) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := l.db.conn.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return wrapStoreErr(fmt.Sprintf("deleting listing %s", id), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking listing delete: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("listing", id)
	}
	return nil
}

func (l *ListingDB) queryListings(ctx context.Context, query string, args ...any) ([]model.Listing, error) {
	rows, err := l.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStoreErr("listing listings", err)
	}
	defer rows.Close()

	listings := []model.Listing{}
	for rows.Next() {
		listing, err := scanListing(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning listing: %w", err)
		}
		listings = append(listings, *listing)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("iterating listings", err)
	}
	return listings, nil
}

// scanListing reads a listing from either a *sql.Row or *sql.Rows scan
// function, keeping the column order in one place.
func scanListing(scan func(dest ...any) error) (*model.Listing, error) {
	var l model.Listing
	err := scan(
		&l.ID, &l.UserID, &l.Title, &l.Description, &l.AnimalType, &l.Status,
		&l.City, &l.Latitude, &l.Longitude, &l.PhotoURL,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
