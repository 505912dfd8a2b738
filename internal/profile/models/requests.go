package models

// ProfilePayload carries profile fields on the standalone profile endpoints
// and nested inside user create.
type ProfilePayload struct {
	FirstName       string                  `json:"firstName" validate:"required,notblank,alphaspace,max=100"`
	LastName        string                  `json:"lastName" validate:"omitempty,alphaspace,max=100"`
	Gender          string                  `json:"gender" validate:"omitempty,oneof=M F Other"`
	DateOfBirth     string                  `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	MaritalStatus   string                  `json:"maritalStatus" validate:"omitempty,oneof=Single Married Divorced Widowed Other"`
	Occupation      string                  `json:"occupation" validate:"omitempty,max=100"`
	Address         string                  `json:"address" validate:"omitempty,max=500"`
	PhoneNumber     string                  `json:"phoneNumber" validate:"omitempty,phone"`
	Email           string                  `json:"email" validate:"omitempty,email"`
	Identifications []IdentificationPayload `json:"identifications" validate:"omitempty,dive"`
}

// IdentificationPayload is one identification entry on input.
type IdentificationPayload struct {
	CardType string `json:"cardType" validate:"required,notblank,max=50"`
	CardCode string `json:"cardCode" validate:"required,notblank,max=100"`
}

// UpdateProfilePayload is the partial form of ProfilePayload.
type UpdateProfilePayload struct {
	FirstName       *string                 `json:"firstName" validate:"omitempty,notblank,alphaspace,max=100"`
	LastName        *string                 `json:"lastName" validate:"omitempty,alphaspace,max=100"`
	Gender          *string                 `json:"gender" validate:"omitempty,oneof=M F Other"`
	DateOfBirth     *string                 `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	MaritalStatus   *string                 `json:"maritalStatus" validate:"omitempty,oneof=Single Married Divorced Widowed Other"`
	Occupation      *string                 `json:"occupation" validate:"omitempty,max=100"`
	Address         *string                 `json:"address" validate:"omitempty,max=500"`
	PhoneNumber     *string                 `json:"phoneNumber" validate:"omitempty,phone"`
	Email           *string                 `json:"email" validate:"omitempty,email"`
	Identifications []IdentificationPayload `json:"identifications" validate:"omitempty,dive"`
}

// Empty reports whether the update would change nothing.
func (p *UpdateProfilePayload) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Gender == nil &&
		p.DateOfBirth == nil && p.MaritalStatus == nil && p.Occupation == nil &&
		p.Address == nil && p.PhoneNumber == nil && p.Email == nil &&
		p.Identifications == nil
}
