package models

import "time"

// ProfileView is the sanitized projection of a profile record. It never
// carries internal storage markers or photo object keys.
type ProfileView struct {
	ID              string               `json:"id"`
	FirstName       string               `json:"firstName"`
	LastName        string               `json:"lastName,omitempty"`
	Gender          string               `json:"gender,omitempty"`
	DateOfBirth     *time.Time           `json:"dateOfBirth,omitempty"`
	MaritalStatus   string               `json:"maritalStatus,omitempty"`
	Occupation      string               `json:"occupation,omitempty"`
	Address         string               `json:"address,omitempty"`
	PhoneNumber     string               `json:"phoneNumber,omitempty"`
	Email           string               `json:"email,omitempty"`
	Identifications []IdentificationView `json:"identifications,omitempty"`
	PhotoName       string               `json:"photoName,omitempty"`
	HasPhoto        bool                 `json:"hasPhoto"`
	CreatedAt       *time.Time           `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time           `json:"updatedAt,omitempty"`
}

// IdentificationView mirrors one identification entry in responses.
type IdentificationView struct {
	CardType string `json:"cardType"`
	CardCode string `json:"cardCode"`
}

// View builds the sanitized projection.
func (p *Profile) View() ProfileView {
	view := ProfileView{
		ID:            p.ID.String(),
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Gender:        p.Gender,
		DateOfBirth:   p.DateOfBirth,
		MaritalStatus: p.MaritalStatus,
		Occupation:    p.Occupation,
		Address:       p.Address,
		PhoneNumber:   p.PhoneNumber,
		Email:         p.Email,
		PhotoName:     p.PhotoName,
		HasPhoto:      p.HasPhoto(),
	}
	for _, ident := range p.Identifications {
		view.Identifications = append(view.Identifications, IdentificationView(ident))
	}
	if !p.CreatedAt.IsZero() {
		createdAt := p.CreatedAt
		view.CreatedAt = &createdAt
	}
	if !p.UpdatedAt.IsZero() {
		updatedAt := p.UpdatedAt
		view.UpdatedAt = &updatedAt
	}
	return view
}
