// Package query translates list-endpoint parameters into a structured
// filter, normalized sort order, expansion list, and field mask.
//
// Sortable, selectable, and expandable names are compile-time allow-lists;
// unknown tokens are rejected instead of being forwarded to the store.
package query

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	profilemodels "roster/internal/profile/models"
	id "roster/pkg/domain"
	dErrors "roster/pkg/domain-errors"
	s "roster/pkg/string"
)

// MatchField identifies which column a disjunction clause probes.
type MatchField string

const (
	MatchFirstName   MatchField = "firstName"
	MatchLastName    MatchField = "lastName"
	MatchPhoneNumber MatchField = "phoneNumber"
	MatchEmail       MatchField = "email"
	MatchCardType    MatchField = "cardType"
	MatchCardCode    MatchField = "cardCode"
)

// MatchClause is one case-insensitive substring predicate inside the
// profile disjunction list.
type MatchClause struct {
	Field MatchField
	Term  string
}

// ProfileFilter holds the profile-scoped predicates. Exact fields are ANDed;
// AnyOf is a single disjunction list built by concatenating the free-text
// group and the identification group. The two OR groups stay concatenated —
// a union of ORs, never intersected.
type ProfileFilter struct {
	Gender        string
	MaritalStatus string
	CardType      string
	CardCode      string
	AnyOf         []MatchClause
}

// Empty reports whether no profile-scoped predicate is set.
func (f ProfileFilter) Empty() bool {
	return f.Gender == "" && f.MaritalStatus == "" &&
		f.CardType == "" && f.CardCode == "" && len(f.AnyOf) == 0
}

// Matches evaluates the profile predicates against a record. Used by the
// in-memory store; the Postgres store compiles the same semantics to SQL.
func (f ProfileFilter) Matches(p *profilemodels.Profile) bool {
	if p == nil {
		return f.Empty()
	}
	if f.Gender != "" && p.Gender != f.Gender {
		return false
	}
	if f.MaritalStatus != "" && p.MaritalStatus != f.MaritalStatus {
		return false
	}
	if f.CardType != "" && !anyIdentification(p, func(i profilemodels.Identification) bool {
		return strings.EqualFold(i.CardType, f.CardType)
	}) {
		return false
	}
	if f.CardCode != "" && !anyIdentification(p, func(i profilemodels.Identification) bool {
		return strings.EqualFold(i.CardCode, f.CardCode)
	}) {
		return false
	}
	if len(f.AnyOf) == 0 {
		return true
	}
	for _, clause := range f.AnyOf {
		if clause.matches(p) {
			return true
		}
	}
	return false
}

func (c MatchClause) matches(p *profilemodels.Profile) bool {
	term := strings.ToLower(c.Term)
	contains := func(v string) bool {
		return strings.Contains(strings.ToLower(v), term)
	}
	switch c.Field {
	case MatchFirstName:
		return contains(p.FirstName)
	case MatchLastName:
		return contains(p.LastName)
	case MatchPhoneNumber:
		return contains(p.PhoneNumber)
	case MatchEmail:
		return contains(p.Email)
	case MatchCardType:
		return anyIdentification(p, func(i profilemodels.Identification) bool { return contains(i.CardType) })
	case MatchCardCode:
		return anyIdentification(p, func(i profilemodels.Identification) bool { return contains(i.CardCode) })
	}
	return false
}

func anyIdentification(p *profilemodels.Profile, pred func(profilemodels.Identification) bool) bool {
	for _, ident := range p.Identifications {
		if pred(ident) {
			return true
		}
	}
	return false
}

// Filter holds the top-level predicates plus the profile-scoped ones.
// Soft-deleted records are excluded unless explicitly overridden.
type Filter struct {
	IncludeDeleted bool
	BranchID       *id.BranchID
	CreatedFrom    *time.Time // inclusive
	CreatedTo      *time.Time // inclusive
	Profile        ProfileFilter
}

// SortKey is one of the enumerated sortable fields.
type SortKey string

const (
	SortUsername  SortKey = "username"
	SortFullName  SortKey = "fullName"
	SortIsActive  SortKey = "isActive"
	SortCreatedAt SortKey = "createdAt"
)

// SortField is one normalized sort token.
type SortField struct {
	Key  SortKey
	Desc bool
}

// Populate is the expansion list. An absent populate parameter means all
// three relations.
type Populate struct {
	Role    bool
	Branch  bool
	Profile bool
}

// Selectable response fields for the select mask. The record ID is always
// included.
var selectableFields = map[string]struct{}{
	"username":  {},
	"fullName":  {},
	"isActive":  {},
	"roleIds":   {},
	"branchId":  {},
	"profileId": {},
	"roles":     {},
	"branch":    {},
	"profile":   {},
	"createdAt": {},
}

var sortableFields = map[string]SortKey{
	"username":  SortUsername,
	"fullName":  SortFullName,
	"isActive":  SortIsActive,
	"createdAt": SortCreatedAt,
}

// Relation names accepted in populate, including the legacy reference-field
// aliases the original API used.
var relationAliases = map[string]string{
	"role":       "role",
	"roleId":     "role",
	"branch":     "branch",
	"branchId":   "branch",
	"profile":    "profile",
	"userInfoId": "profile",
}

// ListQuery is the parsed, validated form of the list parameters.
type ListQuery struct {
	Filter   Filter
	Populate Populate
	Sort     []SortField
	Select   []string
	Page     int
	Limit    int
}

// GatedOnProfile reports whether profile-scoped predicates participate in
// expansion matching. The predicates only take effect when the profile
// relation is expanded: with populate=role,branch a gender filter has no
// effect. This coupling is preserved deliberately from the original API —
// callers depend on it — and is surfaced here as an explicit, named property
// instead of an emergent side effect.
func (q *ListQuery) GatedOnProfile() bool {
	return q.Populate.Profile && !q.Filter.Profile.Empty()
}

// Limits carries the paging defaults for Parse.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Parse builds a ListQuery from raw URL parameters. Malformed identifiers,
// dates, and unknown sort/select/populate tokens fail with a validation
// error naming the offending field; nothing reaches the store.
func Parse(values url.Values, limits Limits) (*ListQuery, error) {
	q := &ListQuery{
		Page:  positiveInt(values.Get("page"), 1),
		Limit: positiveInt(values.Get("limit"), limits.DefaultPageSize),
	}
	if limits.MaxPageSize > 0 && q.Limit > limits.MaxPageSize {
		q.Limit = limits.MaxPageSize
	}

	if err := parseFilter(values, &q.Filter); err != nil {
		return nil, err
	}

	populate, err := parsePopulate(values.Get("populate"))
	if err != nil {
		return nil, err
	}
	q.Populate = populate

	sortFields, err := parseSort(values.Get("sort"))
	if err != nil {
		return nil, err
	}
	q.Sort = sortFields

	sel, err := parseSelect(values.Get("select"))
	if err != nil {
		return nil, err
	}
	q.Select = sel

	return q, nil
}

func parseFilter(values url.Values, f *Filter) error {
	f.IncludeDeleted = values.Get("includeDeleted") == "true"

	if raw := strings.TrimSpace(values.Get("branchId")); raw != "" {
		branchID, err := id.ParseBranchID(raw)
		if err != nil {
			return err
		}
		f.BranchID = &branchID
	}

	if raw := strings.TrimSpace(values.Get("startDate")); raw != "" {
		t, err := parseDate(raw, "start_date")
		if err != nil {
			return err
		}
		f.CreatedFrom = &t
	}
	if raw := strings.TrimSpace(values.Get("endDate")); raw != "" {
		t, err := parseDate(raw, "end_date")
		if err != nil {
			return err
		}
		f.CreatedTo = &t
	}

	f.Profile.Gender = strings.TrimSpace(values.Get("gender"))
	f.Profile.MaritalStatus = strings.TrimSpace(values.Get("maritalStatus"))
	f.Profile.CardType = strings.TrimSpace(values.Get("cardType"))
	f.Profile.CardCode = strings.TrimSpace(values.Get("cardCode"))

	// Free-text group first, identification group appended after: the two
	// OR lists are concatenated into one disjunction.
	if search := strings.TrimSpace(values.Get("search")); search != "" {
		f.Profile.AnyOf = append(f.Profile.AnyOf,
			MatchClause{Field: MatchFirstName, Term: search},
			MatchClause{Field: MatchLastName, Term: search},
			MatchClause{Field: MatchPhoneNumber, Term: search},
			MatchClause{Field: MatchEmail, Term: search},
		)
	}
	if idSearch := strings.TrimSpace(values.Get("idSearch")); idSearch != "" {
		f.Profile.AnyOf = append(f.Profile.AnyOf,
			MatchClause{Field: MatchCardType, Term: idSearch},
			MatchClause{Field: MatchCardCode, Term: idSearch},
		)
	}
	return nil
}

func parsePopulate(raw string) (Populate, error) {
	tokens := s.SplitCSV(raw)
	if len(tokens) == 0 {
		return Populate{Role: true, Branch: true, Profile: true}, nil
	}
	var p Populate
	for _, token := range tokens {
		switch relationAliases[token] {
		case "role":
			p.Role = true
		case "branch":
			p.Branch = true
		case "profile":
			p.Profile = true
		default:
			return Populate{}, dErrors.New(dErrors.CodeValidation, "unknown populate relation: "+token)
		}
	}
	return p, nil
}

func parseSort(raw string) ([]SortField, error) {
	tokens := s.SplitCSV(raw)
	if len(tokens) == 0 {
		return []SortField{{Key: SortCreatedAt, Desc: true}}, nil
	}
	fields := make([]SortField, 0, len(tokens))
	for _, token := range tokens {
		name, direction, _ := strings.Cut(token, ":")
		key, ok := sortableFields[strings.TrimSpace(name)]
		if !ok {
			return nil, dErrors.New(dErrors.CodeValidation, "unsupported sort field: "+name)
		}
		// Direction defaults to descending; anything but "asc" sorts
		// descending.
		fields = append(fields, SortField{
			Key:  key,
			Desc: !strings.EqualFold(strings.TrimSpace(direction), "asc"),
		})
	}
	return fields, nil
}

func parseSelect(raw string) ([]string, error) {
	tokens := s.SplitCSV(raw)
	if len(tokens) == 0 {
		return nil, nil
	}
	for _, token := range tokens {
		if _, ok := selectableFields[token]; !ok {
			return nil, dErrors.New(dErrors.CodeValidation, "unsupported select field: "+token)
		}
	}
	return tokens, nil
}

// parseDate accepts RFC3339 or a bare YYYY-MM-DD interpreted at midnight
// UTC. Both bounds are inclusive.
func parseDate(raw, field string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, dErrors.New(dErrors.CodeValidation, "invalid "+field+" format")
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
