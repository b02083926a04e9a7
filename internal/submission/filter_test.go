package submission

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhereClauseEmpty(t *testing.T) {
	where, args, err := ListFilter{}.WhereClause()
	require.NoError(t, err)
	assert.Equal(t, "TRUE", where)
	assert.Empty(t, args)
}

func TestWhereClauseSingleCondition(t *testing.T) {
	where, args, err := ListFilter{Status: StatusCompleted}.WhereClause()
	require.NoError(t, err)
	assert.Equal(t, "status = $1", where)
	assert.Equal(t, []any{"completed"}, args)
}

func TestWhereClauseCombined(t *testing.T) {
	min := 50
	max := 120
	where, args, err := ListFilter{
		Status:    StatusVerified,
		Urgency:   UrgencyHigh,
		SiteType:  SiteBeach,
		Location:  "riverside",
		PointsMin: &min,
		PointsMax: &max,
	}.WhereClause()
	require.NoError(t, err)

	assert.Equal(t,
		"status = $1 AND urgency = $2 AND site_type = $3 AND location_name ILIKE $4 AND points >= $5 AND points <= $6",
		where)
	assert.Equal(t, []any{"verified", "high", "beach", "%riverside%", 50, 120}, args)
}

func TestWhereClauseTextQueryBindsThreePlaceholders(t *testing.T) {
	where, args, err := ListFilter{Query: "plastic"}.WhereClause()
	require.NoError(t, err)

	assert.Equal(t,
		"(location_name ILIKE $1 OR description ILIKE $2 OR completion_description ILIKE $3)",
		where)
	assert.Equal(t, []any{"%plastic%", "%plastic%", "%plastic%"}, args)
}

func TestWhereClauseCursor(t *testing.T) {
	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	id := uuid.New()

	where, args, err := ListFilter{Cursor: EncodeCursor(ts, id)}.WhereClause()
	require.NoError(t, err)

	assert.Equal(t, "(created_at, id) < ($1, $2)", where)
	require.Len(t, args, 2)
	gotTS, ok := args[0].(time.Time)
	require.True(t, ok)
	assert.True(t, gotTS.Equal(ts))
	assert.Equal(t, id, args[1])
}

func TestWhereClauseRejectsMalformedCursor(t *testing.T) {
	for _, cursor := range []string{"not base64!!", "bm9waXBl", EncodeCursor(time.Now(), uuid.New()) + "x"} {
		_, _, err := ListFilter{Cursor: cursor}.WhereClause()
		assert.Error(t, err, "cursor=%q", cursor)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 678900000, time.UTC)
	id := uuid.New()

	gotTS, gotID, err := DecodeCursor(EncodeCursor(ts, id))
	require.NoError(t, err)
	assert.True(t, gotTS.Equal(ts))
	assert.Equal(t, id, gotID)
}

func TestNormalizeLimit(t *testing.T) {
	tests := []struct {
		in       int
		expected int
	}{
		{0, DefaultPageSize},
		{-5, DefaultPageSize},
		{25, 25},
		{MaxPageSize, MaxPageSize},
		{MaxPageSize + 1, DefaultPageSize},
	}
	for _, tt := range tests {
		f := ListFilter{Limit: tt.in}
		f.Normalize()
		assert.Equal(t, tt.expected, f.Limit, "limit=%d", tt.in)
	}
}
