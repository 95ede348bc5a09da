package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/archi-map/archidb"
)

// Architect is one row of ZCDARCHITECT.
type Architect struct {
	ID        int64
	Name      string
	NameEng   string
	BirthYear int64
	DeathYear int64
	Office    string
	URL       string
}

// ArchitectFilter narrows Search results. Zero values mean "any".
type ArchitectFilter struct {
	// Name matches both the Japanese and the romanized name, substring,
	// case-insensitive on the romanized side.
	Name string
	// BornAfter and BornBefore bound the birth year, inclusive.
	BornAfter  int64
	BornBefore int64

	Limit  int
	Offset int
}

// Architects reads ZCDARCHITECT through a session.
type Architects struct {
	session *archidb.Session
}

// NewArchitects creates the architect repository.
func NewArchitects(session *archidb.Session) *Architects {
	return &Architects{session: session}
}

const architectColumns = "Z_PK, ZAR_NAME, ZAR_NAME_ENG, ZAR_BIRTHYEAR, ZAR_DEATHYEAR, ZAR_OFFICE, ZAR_URL"

// Get returns the architect with the given key, or nil when absent.
func (r *Architects) Get(ctx context.Context, id int64) (*Architect, error) {
	row, err := r.session.QueryOne(ctx,
		"SELECT "+architectColumns+" FROM ZCDARCHITECT WHERE Z_PK = ?", id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	a := scanArchitect(row)
	return &a, nil
}

// Search returns architects matching the filter, ordered by name.
func (r *Architects) Search(ctx context.Context, filter ArchitectFilter) ([]Architect, error) {
	query, args := buildArchitectQuery("SELECT "+architectColumns+" FROM ZCDARCHITECT", filter)
	query += " ORDER BY ZAR_NAME"
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	rows, err := r.session.QueryAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]Architect, 0, len(rows))
	for _, row := range rows {
		out = append(out, scanArchitect(row))
	}
	return out, nil
}

// Count returns the number of architects matching the filter.
func (r *Architects) Count(ctx context.Context, filter ArchitectFilter) (int64, error) {
	filter.Limit, filter.Offset = 0, 0
	query, args := buildArchitectQuery("SELECT count(*) AS n FROM ZCDARCHITECT", filter)
	row, err := r.session.QueryOne(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, nil
	}
	return asInt64(row["n"]), nil
}

func buildArchitectQuery(base string, filter ArchitectFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Name != "" {
		conds = append(conds, "(ZAR_NAME LIKE ? OR ZAR_NAME_ENG LIKE ? COLLATE NOCASE)")
		pat := "%" + filter.Name + "%"
		args = append(args, pat, pat)
	}
	if filter.BornAfter > 0 {
		conds = append(conds, "ZAR_BIRTHYEAR >= ?")
		args = append(args, filter.BornAfter)
	}
	if filter.BornBefore > 0 {
		conds = append(conds, "ZAR_BIRTHYEAR <= ?")
		args = append(args, filter.BornBefore)
	}
	if len(conds) > 0 {
		base += " WHERE " + strings.Join(conds, " AND ")
	}
	return base, args
}

func scanArchitect(row map[string]any) Architect {
	return Architect{
		ID:        asInt64(row["Z_PK"]),
		Name:      asString(row["ZAR_NAME"]),
		NameEng:   asString(row["ZAR_NAME_ENG"]),
		BirthYear: asInt64(row["ZAR_BIRTHYEAR"]),
		DeathYear: asInt64(row["ZAR_DEATHYEAR"]),
		Office:    asString(row["ZAR_OFFICE"]),
		URL:       asString(row["ZAR_URL"]),
	}
}

func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
		if offset > 0 {
			query += " OFFSET ?"
			args = append(args, offset)
		}
	}
	return query, args
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func asFloat64(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	default:
		return 0
	}
}
