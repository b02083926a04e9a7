package submission

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// ListFilter describes a read-side projection over submissions. Building the
// WHERE clause is pure so it can be tested without a database.
type ListFilter struct {
	Status    Status
	Urgency   Urgency
	SiteType  SiteType
	Location  string
	Query     string
	PointsMin *int
	PointsMax *int
	Cursor    string
	Limit     int
}

func (f *ListFilter) Normalize() {
	if f.Limit <= 0 || f.Limit > MaxPageSize {
		f.Limit = DefaultPageSize
	}
}

// WhereClause renders the filter into a SQL predicate with positional args
// starting at $1. An empty filter yields "TRUE" so callers can always append.
func (f ListFilter) WhereClause() (string, []any, error) {
	conds := []string{}
	args := []any{}

	appendCond := func(cond string, vals ...any) {
		for _, v := range vals {
			args = append(args, v)
			cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(args)), 1)
		}
		conds = append(conds, cond)
	}

	if f.Status != "" {
		appendCond("status = ?", string(f.Status))
	}
	if f.Urgency != "" {
		appendCond("urgency = ?", string(f.Urgency))
	}
	if f.SiteType != "" {
		appendCond("site_type = ?", string(f.SiteType))
	}
	if f.Location != "" {
		appendCond("location_name ILIKE ?", "%"+f.Location+"%")
	}
	if f.Query != "" {
		q := "%" + f.Query + "%"
		appendCond("(location_name ILIKE ? OR description ILIKE ? OR completion_description ILIKE ?)", q, q, q)
	}
	if f.PointsMin != nil {
		appendCond("points >= ?", *f.PointsMin)
	}
	if f.PointsMax != nil {
		appendCond("points <= ?", *f.PointsMax)
	}
	if f.Cursor != "" {
		ts, id, err := DecodeCursor(f.Cursor)
		if err != nil {
			return "", nil, err
		}
		appendCond("(created_at, id) < (?, ?)", ts, id)
	}

	if len(conds) == 0 {
		return "TRUE", args, nil
	}
	return strings.Join(conds, " AND "), args, nil
}

// EncodeCursor builds an opaque keyset cursor from the last row of a page.
func EncodeCursor(createdAt time.Time, id uuid.UUID) string {
	raw := strconv.FormatInt(createdAt.UTC().UnixNano(), 10) + "|" + id.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func DecodeCursor(cursor string) (time.Time, uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("malformed cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, uuid.Nil, fmt.Errorf("malformed cursor")
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("malformed cursor timestamp: %w", err)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return time.Time{}, uuid.Nil, fmt.Errorf("malformed cursor id: %w", err)
	}
	return time.Unix(0, nanos).UTC(), id, nil
}
