package core

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type (
	DBExecutor interface {
		sqlx.ExtContext
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}

	DB interface {
		DBExecutor

		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderingFields maps the field names accepted from clients to table columns.
type OrderingFields map[string]string

// Resolve translates client orderings into column orderings.
// Unknown fields are reported as a ValidationError on the "ordering" field.
func (f OrderingFields) Resolve(ordering []DBOrdering) ([]DBOrdering, error) {
	if len(ordering) == 0 {
		return nil, nil
	}
	resolved := make([]DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := f[ord.Field]
		if !ok {
			msg := fmt.Sprintf("invalid ordering field %q", ord.Field)
			return nil, NewValidationError(nil, FieldError{Field: "ordering", Error: msg})
		}
		resolved = append(resolved, DBOrdering{Field: col, Ascending: ord.Ascending})
	}
	return resolved, nil
}

// Page is a 1-based page request.
type Page struct {
	Number int `query:"page" form:"page"`
	Size   int `query:"page_size" form:"page_size"`
}

// Clean applies defaults and bounds.
func (p *Page) Clean() {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
}

func (p Page) Limit() uint64  { return uint64(p.Size) }
func (p Page) Offset() uint64 { return uint64((p.Number - 1) * p.Size) }

// PageResult is a page of results plus the total count matching the query.
type PageResult[T any] struct {
	Count    int `json:"count"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Results  []T `json:"results"`
}

func NewPageResult[T any](results []T, count int, page Page) PageResult[T] {
	if results == nil {
		results = []T{}
	}
	return PageResult[T]{Count: count, Page: page.Number, PageSize: page.Size, Results: results}
}
