package echoapi

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/dashboard"
	"github.com/japhetcordova/clc-sub000/core/member"
)

const pdfContentType = "application/pdf"

type dashboardApi struct {
	svc     dashboard.ServiceInterface
	members member.ServiceInterface
	reports Reporter
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := dashboardApi{svc: deps.DashboardSvc, members: deps.MemberSvc, reports: deps.Reports}

	dg := g.Group("/dashboard", jwt, adminMiddleware())
	dg.GET("", api.overview)
	dg.GET("/report.pdf", api.attendanceReport)
	dg.GET("/members.pdf", api.membersReport)
}

// Handlers

func (api *dashboardApi) overview(ctx echo.Context) error {
	ov, err := api.bindOverview(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ov)
}

func (api *dashboardApi) attendanceReport(ctx echo.Context) error {
	ov, err := api.bindOverview(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = api.reports.AttendancePDF(&buf, ov); err != nil {
		return errors.Wrap(err, "rendering attendance report")
	}
	return sendPDF(ctx, "attendance-"+ov.From+"-"+ov.To+".pdf", buf.Bytes())
}

// membersReport exports every member matching the query filter.
func (api *dashboardApi) membersReport(ctx echo.Context) error {
	filter := new(member.QueryFilter)
	ordering, _, err := bindQuery(ctx, filter)
	if err != nil {
		return err
	}

	var members []member.Member
	page := core.Page{Number: 1, Size: core.MaxPageSize}
	for {
		res, err := api.members.Query(ctx.Request().Context(), filter, ordering, page)
		if err != nil {
			return errors.Wrap(err, "querying members")
		}
		members = append(members, res.Results...)
		if len(res.Results) < page.Size || len(members) >= res.Count {
			break
		}
		page.Number++
	}

	var buf bytes.Buffer
	if err = api.reports.MembersPDF(&buf, members); err != nil {
		return errors.Wrap(err, "rendering members report")
	}
	return sendPDF(ctx, "members.pdf", buf.Bytes())
}

func (api *dashboardApi) bindOverview(ctx echo.Context) (dashboard.Overview, error) {
	var filter dashboard.Filter
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, &filter); err != nil {
		return dashboard.Overview{}, err
	}
	ov, err := api.svc.Overview(ctx.Request().Context(), filter)
	if err != nil {
		return ov, errors.Wrap(err, "building overview")
	}
	return ov, nil
}

func sendPDF(ctx echo.Context, filename string, body []byte) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, pdfContentType, body)
}
