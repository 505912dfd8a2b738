package service

import (
	"slices"

	"roster/internal/identity/models"
	"roster/internal/identity/query"
)

// allPopulated is the expansion list for single-record responses.
var allPopulated = query.Populate{Role: true, Branch: true, Profile: true}

// project maps a store record to its sanitized response shape. The second
// return is false when the record must be dropped: a profile-gated query
// whose expanded profile failed the match carries a nil profile, and such
// rows never reach the response. The credential hash is stripped here by
// construction; it has no field on the view.
func project(record *models.Record, q *query.ListQuery) (models.UserView, bool) {
	if q.GatedOnProfile() && record.Profile == nil {
		return models.UserView{}, false
	}
	return buildView(record, q.Populate, q.Select), true
}

// buildView assembles the view honoring the expansion list and the select
// field mask. The record ID is always present; an empty mask means every
// field.
func buildView(record *models.Record, populate query.Populate, selected []string) models.UserView {
	keep := func(field string) bool {
		return len(selected) == 0 || slices.Contains(selected, field)
	}

	view := models.UserView{ID: record.ID.String()}
	if keep("username") {
		view.Username = record.Username
	}
	if keep("fullName") {
		view.FullName = record.FullName
	}
	if keep("isActive") {
		isActive := record.IsActive
		view.IsActive = &isActive
	}
	if keep("roleIds") {
		for _, roleID := range record.RoleIDs {
			view.RoleIDs = append(view.RoleIDs, roleID.String())
		}
	}
	if keep("branchId") && !record.BranchID.IsNil() {
		view.BranchID = record.BranchID.String()
	}
	if keep("profileId") && !record.ProfileID.IsNil() {
		view.ProfileID = record.ProfileID.String()
	}
	if keep("createdAt") && !record.CreatedAt.IsZero() {
		createdAt := record.CreatedAt
		view.CreatedAt = &createdAt
	}

	if populate.Role && keep("roles") {
		view.Roles = record.Roles
	}
	if populate.Branch && keep("branch") {
		view.Branch = record.Branch
	}
	if populate.Profile && keep("profile") && record.Profile != nil {
		profileView := record.Profile.View()
		view.Profile = &profileView
	}
	return view
}
