// Package models defines the branch entity and its API shapes.
package models

import (
	"time"

	id "roster/pkg/domain"
)

// Branch is one organizational location users can belong to.
type Branch struct {
	ID        id.BranchID
	Name      string
	Code      string
	Address   string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateBranchRequest creates a branch. Name is unique case-insensitively.
type CreateBranchRequest struct {
	Name    string `json:"name" validate:"required,notblank,max=200"`
	Code    string `json:"code" validate:"omitempty,max=20"`
	Address string `json:"address" validate:"omitempty,max=500"`
	Phone   string `json:"phone" validate:"omitempty,phone"`
}

// UpdateBranchRequest applies a partial update.
type UpdateBranchRequest struct {
	Name    *string `json:"name" validate:"omitempty,notblank,max=200"`
	Code    *string `json:"code" validate:"omitempty,max=20"`
	Address *string `json:"address" validate:"omitempty,max=500"`
	Phone   *string `json:"phone" validate:"omitempty,phone"`
}

// Empty reports whether the update would change nothing.
func (r *UpdateBranchRequest) Empty() bool {
	return r.Name == nil && r.Code == nil && r.Address == nil && r.Phone == nil
}

// BranchView is the API projection of a branch.
type BranchView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Code      string     `json:"code,omitempty"`
	Address   string     `json:"address,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// View maps the branch to its API shape.
func (b *Branch) View() BranchView {
	created := b.CreatedAt
	updated := b.UpdatedAt
	return BranchView{
		ID:        b.ID.String(),
		Name:      b.Name,
		Code:      b.Code,
		Address:   b.Address,
		Phone:     b.Phone,
		CreatedAt: &created,
		UpdatedAt: &updated,
	}
}
