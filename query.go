package archidb

import (
	"context"
	"time"
)

// Result is the raw shape of a query: ordered column names plus one value
// slice per row.
type Result struct {
	Columns []string
	Values  [][]any
}

// Maps converts the result into one map per row, keyed by column name.
// An empty result yields an empty, non-nil slice.
func (r *Result) Maps() []map[string]any {
	out := make([]map[string]any, 0, len(r.Values))
	for _, row := range r.Values {
		m := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				m[col] = row[i]
			}
		}
		out = append(out, m)
	}
	return out
}

// Execute runs query against the session's database, initializing it on
// first use. Rows are fully materialized before returning.
func (s *Session) Execute(ctx context.Context, query string, args ...any) (*Result, error) {
	eng, err := s.Initialize(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := runQuery(ctx, eng, query, args...)
	s.metrics.RecordQuery(time.Since(start), err)
	if err != nil {
		s.logger.LogQuery(ctx, 0, time.Since(start), err)
		return nil, newError(KindQueryFailed, "execute query", err)
	}
	s.logger.LogQuery(ctx, len(res.Values), time.Since(start), nil)
	return res, nil
}

// QueryOne runs query and returns the first row as a map, or nil when the
// result is empty.
func (s *Session) QueryOne(ctx context.Context, query string, args ...any) (map[string]any, error) {
	res, err := s.Execute(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	rows := res.Maps()
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// QueryAll runs query and returns every row as a map.
func (s *Session) QueryAll(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	res, err := s.Execute(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return res.Maps(), nil
}

func runQuery(ctx context.Context, eng *Engine, query string, args ...any) (*Result, error) {
	rows, err := eng.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &Result{
		Columns: cols,
		Values:  make([][]any, 0),
	}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			// The two drivers disagree on TEXT affinity: normalize byte
			// slices so callers see strings either way.
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res.Values = append(res.Values, vals)
	}
	return res, rows.Err()
}
