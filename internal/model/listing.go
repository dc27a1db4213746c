package model

import "time"

// Listing statuses and animal types. Stored as uppercase strings so the
// values read naturally in the database and in API payloads.
const (
	StatusLost  = "LOST"
	StatusFound = "FOUND"

	AnimalDog   = "DOG"
	AnimalCat   = "CAT"
	AnimalBird  = "BIRD"
	AnimalOther = "OTHER"
)

// Listing is a lost/found pet report.
//
// UserID is the ownership relation: set once at creation from the
// authenticated caller and never reassigned. Listings are publicly readable;
// only the owner may update or delete one.
type Listing struct {
	ID          string    `json:"id"          db:"id"`
	UserID      string    `json:"userId"      db:"user_id"`
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"`
	AnimalType  string    `json:"animalType"  db:"animal_type"`
	Status      string    `json:"status"      db:"status"`
	City        string    `json:"city"        db:"city"`
	Latitude    float64   `json:"latitude"    db:"latitude"`
	Longitude   float64   `json:"longitude"   db:"longitude"`
	PhotoURL    string    `json:"photoUrl"    db:"photo_url"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}
