package admin

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"quill/internal/models"

	"gorm.io/gorm"
)

const (
	// DefaultPerPage is the changelist page size when none is requested.
	DefaultPerPage = 100
	MaxPerPage     = 500
)

// FilterFunc narrows the changelist to rows matching value.
type FilterFunc func(db *gorm.DB, value string) (*gorm.DB, error)

// ChangelistParams are the request inputs of a changelist.
type ChangelistParams struct {
	// Query is the free-text search string ("q").
	Query   string
	Filters map[string]string
	Limit   int
	Offset  int
}

// Row is one changelist row projected to list_display.
type Row struct {
	ID     uint           `json:"id"`
	Values map[string]any `json:"values"`
}

// ChangelistResult is a page of rows plus the total match count.
type ChangelistResult struct {
	Model   string   `json:"model"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
	Total   int64    `json:"total"`
}

// Changelist runs the search, filters and projection configured by a.
func (a *ModelAdmin) Changelist(ctx context.Context, db *gorm.DB, params ChangelistParams) (*ChangelistResult, error) {
	for name := range params.Filters {
		if _, ok := a.Filters[name]; !ok {
			return nil, models.NewValidationError(fmt.Sprintf("unknown filter %q for %s", name, a.Name))
		}
	}

	build := func() (*gorm.DB, error) {
		return a.query(db.WithContext(ctx), params)
	}

	countQ, err := build()
	if err != nil {
		return nil, err
	}
	var total int64
	if err := countQ.Distinct(a.Table + ".id").Count(&total).Error; err != nil {
		return nil, err
	}

	q, err := build()
	if err != nil {
		return nil, err
	}

	selects := []string{a.Table + ".id AS id"}
	for _, f := range a.ListDisplay {
		selects = append(selects, fmt.Sprintf("%s AS %s", a.Lookups[f].Column, f))
	}

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultPerPage
	}
	if limit > MaxPerPage {
		limit = MaxPerPage
	}

	raw := []map[string]interface{}{}
	err = q.Select(selects).
		Order(a.Ordering).
		Order(a.Table + ".id DESC").
		Limit(limit).
		Offset(params.Offset).
		Find(&raw).Error
	if err != nil {
		return nil, err
	}

	res := &ChangelistResult{Model: a.Name, Columns: a.ListDisplay, Rows: make([]Row, 0, len(raw)), Total: total}
	for _, r := range raw {
		row := Row{ID: asUint(r["id"]), Values: make(map[string]any, len(a.ListDisplay))}
		for _, f := range a.ListDisplay {
			row.Values[f] = normalize(r[f])
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func (a *ModelAdmin) query(db *gorm.DB, params ChangelistParams) (*gorm.DB, error) {
	q := db.Table(a.Table)

	terms := strings.Fields(params.Query)
	if len(terms) > 0 && len(a.SearchFields) > 0 {
		joined := map[string]bool{}
		for _, f := range a.SearchFields {
			if j := a.Lookups[f].Join; j != "" && !joined[j] {
				joined[j] = true
				q = q.Joins(j)
			}
		}
		// every term must match at least one search field
		for _, term := range terms {
			pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
			clauses := make([]string, 0, len(a.SearchFields))
			args := make([]interface{}, 0, len(a.SearchFields))
			for _, f := range a.SearchFields {
				clauses = append(clauses, fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, a.Lookups[f].Column))
				args = append(args, pattern)
			}
			q = q.Where("("+strings.Join(clauses, " OR ")+")", args...)
		}
	}

	for _, name := range a.ListFilter {
		value, ok := params.Filters[name]
		if !ok || value == "" {
			continue
		}
		var err error
		if q, err = a.Filters[name](q, value); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func statusFilter(db *gorm.DB, value string) (*gorm.DB, error) {
	status := models.PostStatus(value)
	if !status.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("invalid status %q", value))
	}
	return db.Where("posts.status = ?", status), nil
}

func topicsFilter(db *gorm.DB, value string) (*gorm.DB, error) {
	sub := db.Session(&gorm.Session{NewDB: true}).
		Table("post_topics").
		Select("post_topics.post_id").
		Joins("JOIN topics ON topics.id = post_topics.topic_id")
	if id, err := strconv.ParseUint(value, 10, 64); err == nil {
		sub = sub.Where("topics.id = ? OR topics.slug = ?", id, value)
	} else {
		sub = sub.Where("topics.slug = ?", value)
	}
	return db.Where("posts.id IN (?)", sub), nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case sql.RawBytes:
		return string(x)
	case time.Time:
		return x.UTC()
	}
	return v
}

func asUint(v any) uint {
	switch x := v.(type) {
	case int64:
		return uint(x)
	case int32:
		return uint(x)
	case int:
		return uint(x)
	case uint64:
		return uint(x)
	case uint:
		return x
	case float64:
		return uint(x)
	case []byte:
		n, _ := strconv.ParseUint(string(x), 10, 64)
		return uint(n)
	case string:
		n, _ := strconv.ParseUint(x, 10, 64)
		return uint(n)
	}
	return 0
}
