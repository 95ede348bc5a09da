package repo

import (
	"context"
	"strings"

	"github.com/archi-map/archidb"
)

// Building is one row of ZCDBUILDING.
type Building struct {
	ID         int64
	Title      string
	TitleEng   string
	Architect  int64
	Prefecture string
	Address    string
	Year       int64
	Latitude   float64
	Longitude  float64
	URL        string
}

// BuildingFilter narrows Search results. Zero values mean "any".
type BuildingFilter struct {
	// Title matches both the Japanese and the romanized title, substring.
	Title string
	// Prefecture is an exact match, e.g. 東京都.
	Prefecture string
	// Architect restricts to works of one architect by Z_PK.
	Architect int64
	// BuiltAfter and BuiltBefore bound the completion year, inclusive.
	BuiltAfter  int64
	BuiltBefore int64

	Limit  int
	Offset int
}

// Buildings reads ZCDBUILDING through a session.
type Buildings struct {
	session *archidb.Session
}

// NewBuildings creates the building repository.
func NewBuildings(session *archidb.Session) *Buildings {
	return &Buildings{session: session}
}

const buildingColumns = "Z_PK, ZBD_TITLE, ZBD_TITLE_ENG, ZBD_ARCHITECT, ZBD_PREFECTURE, ZBD_ADDRESS, ZBD_YEAR, ZBD_LATITUDE, ZBD_LONGITUDE, ZBD_URL"

// Get returns the building with the given key, or nil when absent.
func (r *Buildings) Get(ctx context.Context, id int64) (*Building, error) {
	row, err := r.session.QueryOne(ctx,
		"SELECT "+buildingColumns+" FROM ZCDBUILDING WHERE Z_PK = ?", id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	b := scanBuilding(row)
	return &b, nil
}

// Search returns buildings matching the filter, newest first.
func (r *Buildings) Search(ctx context.Context, filter BuildingFilter) ([]Building, error) {
	query, args := buildBuildingQuery("SELECT "+buildingColumns+" FROM ZCDBUILDING", filter)
	query += " ORDER BY ZBD_YEAR DESC, Z_PK"
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	rows, err := r.session.QueryAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]Building, 0, len(rows))
	for _, row := range rows {
		out = append(out, scanBuilding(row))
	}
	return out, nil
}

// Count returns the number of buildings matching the filter.
func (r *Buildings) Count(ctx context.Context, filter BuildingFilter) (int64, error) {
	filter.Limit, filter.Offset = 0, 0
	query, args := buildBuildingQuery("SELECT count(*) AS n FROM ZCDBUILDING", filter)
	row, err := r.session.QueryOne(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, nil
	}
	return asInt64(row["n"]), nil
}

// PrefectureCount is one bucket of the prefecture histogram.
type PrefectureCount struct {
	Prefecture string
	Count      int64
}

// Prefectures returns the distinct prefectures that have at least one
// building, with per-prefecture counts, ordered by count descending.
// Ties break on prefecture name.
func (r *Buildings) Prefectures(ctx context.Context) ([]PrefectureCount, error) {
	rows, err := r.session.QueryAll(ctx,
		"SELECT ZBD_PREFECTURE AS p, count(*) AS n FROM ZCDBUILDING WHERE ZBD_PREFECTURE != '' GROUP BY ZBD_PREFECTURE ORDER BY n DESC, p")
	if err != nil {
		return nil, err
	}
	out := make([]PrefectureCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, PrefectureCount{
			Prefecture: asString(row["p"]),
			Count:      asInt64(row["n"]),
		})
	}
	return out, nil
}

func buildBuildingQuery(base string, filter BuildingFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Title != "" {
		conds = append(conds, "(ZBD_TITLE LIKE ? OR ZBD_TITLE_ENG LIKE ? COLLATE NOCASE)")
		pat := "%" + filter.Title + "%"
		args = append(args, pat, pat)
	}
	if filter.Prefecture != "" {
		conds = append(conds, "ZBD_PREFECTURE = ?")
		args = append(args, filter.Prefecture)
	}
	if filter.Architect > 0 {
		conds = append(conds, "ZBD_ARCHITECT = ?")
		args = append(args, filter.Architect)
	}
	if filter.BuiltAfter > 0 {
		conds = append(conds, "ZBD_YEAR >= ?")
		args = append(args, filter.BuiltAfter)
	}
	if filter.BuiltBefore > 0 {
		conds = append(conds, "ZBD_YEAR <= ?")
		args = append(args, filter.BuiltBefore)
	}
	if len(conds) > 0 {
		base += " WHERE " + strings.Join(conds, " AND ")
	}
	return base, args
}

func scanBuilding(row map[string]any) Building {
	return Building{
		ID:         asInt64(row["Z_PK"]),
		Title:      asString(row["ZBD_TITLE"]),
		TitleEng:   asString(row["ZBD_TITLE_ENG"]),
		Architect:  asInt64(row["ZBD_ARCHITECT"]),
		Prefecture: asString(row["ZBD_PREFECTURE"]),
		Address:    asString(row["ZBD_ADDRESS"]),
		Year:       asInt64(row["ZBD_YEAR"]),
		Latitude:   asFloat64(row["ZBD_LATITUDE"]),
		Longitude:  asFloat64(row["ZBD_LONGITUDE"]),
		URL:        asString(row["ZBD_URL"]),
	}
}
