// Package models defines the profile domain entities.
package models

import (
	"time"

	id "roster/pkg/domain"
)

// Gender values accepted on profile records.
const (
	GenderMale   = "M"
	GenderFemale = "F"
	GenderOther  = "Other"
)

// Marital status values accepted on profile records.
const (
	MaritalSingle   = "Single"
	MaritalMarried  = "Married"
	MaritalDivorced = "Divorced"
	MaritalWidowed  = "Widowed"
	MaritalOther    = "Other"
)

// Identification is one entry in a profile's ordered identification list.
// Stored as jsonb, so the tags are the storage format.
type Identification struct {
	CardType string `json:"cardType"`
	CardCode string `json:"cardCode"`
}

// Profile holds the personal details linked from an identity record.
// Its lifecycle is independent of the identity: it may exist standalone
// before an identity is attached, and it is never cascade-deleted.
type Profile struct {
	ID              id.ProfileID
	FirstName       string
	LastName        string
	Gender          string
	DateOfBirth     *time.Time
	MaritalStatus   string
	Occupation      string
	Address         string
	PhoneNumber     string
	Email           string
	Identifications []Identification

	// Photo reference: bucket + object key + declared media type.
	PhotoBucket      string
	PhotoKey         string
	PhotoName        string
	PhotoContentType string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName joins first and last name for denormalized views.
func (p *Profile) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	if p.FirstName == "" {
		return p.LastName
	}
	return p.FirstName + " " + p.LastName
}

// HasPhoto reports whether a photo object is attached.
func (p *Profile) HasPhoto() bool {
	return p.PhotoKey != ""
}
