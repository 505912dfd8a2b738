package models

import (
	"time"

	"github.com/google/uuid"

	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
)

const dateOfBirthLayout = "2006-01-02"

// FromPayload materializes a new profile from a validated payload.
func FromPayload(payload *ProfilePayload, now time.Time) (*Profile, error) {
	p := &Profile{
		ID:            id.ProfileID(uuid.New()),
		FirstName:     payload.FirstName,
		LastName:      payload.LastName,
		Gender:        payload.Gender,
		MaritalStatus: payload.MaritalStatus,
		Occupation:    payload.Occupation,
		Address:       payload.Address,
		PhoneNumber:   payload.PhoneNumber,
		Email:         payload.Email,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if payload.DateOfBirth != "" {
		dob, err := time.Parse(dateOfBirthLayout, payload.DateOfBirth)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid dateOfBirth format, expected YYYY-MM-DD")
		}
		p.DateOfBirth = &dob
	}
	for _, ident := range payload.Identifications {
		p.Identifications = append(p.Identifications, Identification(ident))
	}
	return p, nil
}

// ApplyUpdate overlays the non-nil payload fields onto the profile.
func (p *Profile) ApplyUpdate(payload *UpdateProfilePayload, now time.Time) error {
	if payload.FirstName != nil {
		p.FirstName = *payload.FirstName
	}
	if payload.LastName != nil {
		p.LastName = *payload.LastName
	}
	if payload.Gender != nil {
		p.Gender = *payload.Gender
	}
	if payload.DateOfBirth != nil {
		if *payload.DateOfBirth == "" {
			p.DateOfBirth = nil
		} else {
			dob, err := time.Parse(dateOfBirthLayout, *payload.DateOfBirth)
			if err != nil {
				return dErrors.New(dErrors.CodeValidation, "invalid dateOfBirth format, expected YYYY-MM-DD")
			}
			p.DateOfBirth = &dob
		}
	}
	if payload.MaritalStatus != nil {
		p.MaritalStatus = *payload.MaritalStatus
	}
	if payload.Occupation != nil {
		p.Occupation = *payload.Occupation
	}
	if payload.Address != nil {
		p.Address = *payload.Address
	}
	if payload.PhoneNumber != nil {
		p.PhoneNumber = *payload.PhoneNumber
	}
	if payload.Email != nil {
		p.Email = *payload.Email
	}
	if payload.Identifications != nil {
		idents := make([]Identification, 0, len(payload.Identifications))
		for _, ident := range payload.Identifications {
			idents = append(idents, Identification(ident))
		}
		p.Identifications = idents
	}
	p.UpdatedAt = now
	return nil
}
