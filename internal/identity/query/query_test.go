package query

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	profilemodels "roster/internal/profile/models"
	dErrors "roster/pkg/domain-errors"
)

var limits = Limits{DefaultPageSize: 20, MaxPageSize: 200}

func parse(t *testing.T, rawQuery string) *ListQuery {
	t.Helper()
	values, err := url.ParseQuery(rawQuery)
	require.NoError(t, err)
	q, err := Parse(values, limits)
	require.NoError(t, err)
	return q
}

func TestParse_Defaults(t *testing.T) {
	q := parse(t, "")

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.Limit)
	assert.False(t, q.Filter.IncludeDeleted)
	assert.True(t, q.Filter.Profile.Empty())
	assert.Equal(t, Populate{Role: true, Branch: true, Profile: true}, q.Populate)
	assert.Equal(t, []SortField{{Key: SortCreatedAt, Desc: true}}, q.Sort)
	assert.Nil(t, q.Select)
}

func TestParse_PagingBounds(t *testing.T) {
	q := parse(t, "page=0&limit=9999")
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 200, q.Limit, "limit capped at the maximum")

	q = parse(t, "page=junk&limit=-3")
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.Limit)
}

func TestParse_SearchBuildsFreeTextGroup(t *testing.T) {
	q := parse(t, "search=jane")

	require.Len(t, q.Filter.Profile.AnyOf, 4)
	fields := make([]MatchField, 0, 4)
	for _, clause := range q.Filter.Profile.AnyOf {
		assert.Equal(t, "jane", clause.Term)
		fields = append(fields, clause.Field)
	}
	assert.Equal(t, []MatchField{MatchFirstName, MatchLastName, MatchPhoneNumber, MatchEmail}, fields)
}

func TestParse_SearchAndIDSearchConcatenate(t *testing.T) {
	// The free-text OR group and the identification OR group form one
	// disjunction list; they are never intersected.
	q := parse(t, "search=jane&idSearch=visa")

	require.Len(t, q.Filter.Profile.AnyOf, 6)
	assert.Equal(t, MatchClause{Field: MatchFirstName, Term: "jane"}, q.Filter.Profile.AnyOf[0])
	assert.Equal(t, MatchClause{Field: MatchCardType, Term: "visa"}, q.Filter.Profile.AnyOf[4])
	assert.Equal(t, MatchClause{Field: MatchCardCode, Term: "visa"}, q.Filter.Profile.AnyOf[5])
}

func TestParse_InvalidBranchID(t *testing.T) {
	values := url.Values{"branchId": {"not-a-uuid"}}
	_, err := Parse(values, limits)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	assert.ErrorContains(t, err, "branch_id")
}

func TestParse_DateBounds(t *testing.T) {
	q := parse(t, "startDate=2024-01-15&endDate=2024-02-01T10:30:00Z")

	require.NotNil(t, q.Filter.CreatedFrom)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *q.Filter.CreatedFrom)
	require.NotNil(t, q.Filter.CreatedTo)
	assert.Equal(t, time.Date(2024, 2, 1, 10, 30, 0, 0, time.UTC), *q.Filter.CreatedTo)

	_, err := Parse(url.Values{"endDate": {"02/01/2024"}}, limits)
	require.Error(t, err)
	assert.ErrorContains(t, err, "end_date")
}

func TestParse_SortAllowList(t *testing.T) {
	q := parse(t, "sort=username:asc,createdAt")
	assert.Equal(t, []SortField{
		{Key: SortUsername, Desc: false},
		{Key: SortCreatedAt, Desc: true},
	}, q.Sort)

	// Unknown directions fall back to descending.
	q = parse(t, "sort=username:upwards")
	assert.Equal(t, []SortField{{Key: SortUsername, Desc: true}}, q.Sort)

	_, err := Parse(url.Values{"sort": {"passwordHash:asc"}}, limits)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.ErrorContains(t, err, "unsupported sort field")
}

func TestParse_SelectAllowList(t *testing.T) {
	q := parse(t, "select=username,profile")
	assert.Equal(t, []string{"username", "profile"}, q.Select)

	_, err := Parse(url.Values{"select": {"passwordHash"}}, limits)
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported select field")
}

func TestParse_PopulateAliases(t *testing.T) {
	q := parse(t, "populate=roleId,branchId")
	assert.Equal(t, Populate{Role: true, Branch: true}, q.Populate)

	q = parse(t, "populate=userInfoId")
	assert.Equal(t, Populate{Profile: true}, q.Populate)

	_, err := Parse(url.Values{"populate": {"passwordHash"}}, limits)
	require.Error(t, err)
	assert.ErrorContains(t, err, "unknown populate relation")
}

func TestGatedOnProfile(t *testing.T) {
	q := parse(t, "gender=F")
	assert.True(t, q.GatedOnProfile(), "default expansion includes profile")

	q = parse(t, "gender=F&populate=roleId,branchId")
	assert.False(t, q.GatedOnProfile(), "profile predicates are inert without profile expansion")

	q = parse(t, "populate=userInfoId")
	assert.False(t, q.GatedOnProfile(), "no profile predicates, nothing to gate")
}

func TestProfileFilter_Matches(t *testing.T) {
	profile := &profilemodels.Profile{
		FirstName:     "Jane",
		LastName:      "Doe",
		Gender:        "F",
		MaritalStatus: "Single",
		PhoneNumber:   "0812345678",
		Email:         "jane.doe@example.com",
		Identifications: []profilemodels.Identification{
			{CardType: "Visa", CardCode: "V-1234"},
			{CardType: "Passport", CardCode: "P-9876"},
		},
	}

	t.Run("exact fields are ANDed", func(t *testing.T) {
		assert.True(t, ProfileFilter{Gender: "F", MaritalStatus: "Single"}.Matches(profile))
		assert.False(t, ProfileFilter{Gender: "F", MaritalStatus: "Married"}.Matches(profile))
	})

	t.Run("card filters are case-insensitive exact against any entry", func(t *testing.T) {
		assert.True(t, ProfileFilter{CardType: "passport"}.Matches(profile))
		assert.True(t, ProfileFilter{CardCode: "v-1234"}.Matches(profile))
		assert.False(t, ProfileFilter{CardType: "DriverLicense"}.Matches(profile))
	})

	t.Run("disjunction needs only one clause", func(t *testing.T) {
		f := ProfileFilter{AnyOf: []MatchClause{
			{Field: MatchFirstName, Term: "nomatch"},
			{Field: MatchCardType, Term: "visa"},
		}}
		assert.True(t, f.Matches(profile))

		f = ProfileFilter{AnyOf: []MatchClause{
			{Field: MatchFirstName, Term: "nomatch"},
			{Field: MatchEmail, Term: "also-nomatch"},
		}}
		assert.False(t, f.Matches(profile))
	})

	t.Run("substring match is case-insensitive", func(t *testing.T) {
		f := ProfileFilter{AnyOf: []MatchClause{{Field: MatchLastName, Term: "DOE"}}}
		assert.True(t, f.Matches(profile))
	})

	t.Run("nil profile only satisfies the empty filter", func(t *testing.T) {
		assert.True(t, ProfileFilter{}.Matches(nil))
		assert.False(t, ProfileFilter{Gender: "F"}.Matches(nil))
	})
}
