package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/japhetcordova/clc-sub000/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind parses `?ordering=-field,field`; a leading "-" orders descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindPage reads `?page=&page_size=`; services apply the defaults and bounds.
func bindPage(ctx echo.Context) (core.Page, error) {
	var page core.Page
	err := echo.QueryParamsBinder(ctx).
		Int("page", &page.Number).
		Int("page_size", &page.Size).
		BindError()
	if err != nil {
		return page, core.NewValidationError(err, core.FieldError{Field: "page", Error: "page and page_size must be integers"})
	}
	return page, nil
}

// bindQuery binds the list query of a resource: filter, ordering and page.
func bindQuery(ctx echo.Context, filter interface{}) ([]core.DBOrdering, core.Page, error) {
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, filter); err != nil {
		return nil, core.Page{}, err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	page, err := bindPage(ctx)
	return ordering.Orderings, page, err
}
