// Package dashboard assembles the admin overview from the other domains.
package dashboard

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/attendance"
	"github.com/japhetcordova/clc-sub000/core/class"
	"github.com/japhetcordova/clc-sub000/core/member"
)

const defaultRangeDays = 30

var errInvalidRange = errors.New("from must not be after to")

type (
	MemberStats interface {
		Stats(ctx context.Context, joinedFrom, joinedTo time.Time) (member.Stats, error)
	}

	AttendanceSummary interface {
		Summary(ctx context.Context, filter *attendance.QueryFilter, groupBy string) (attendance.Summary, error)
	}

	ClassStats interface {
		Stats(ctx context.Context) (class.Stats, error)
	}

	// Filter is the period of the overview, as church-local dates.
	Filter struct {
		From    string `query:"from"`
		To      string `query:"to"`
		GroupBy string `query:"group_by"`
	}

	Overview struct {
		From       string             `json:"from"`
		To         string             `json:"to"`
		Members    member.Stats       `json:"members"`
		Attendance attendance.Summary `json:"attendance"`
		Classes    class.Stats        `json:"classes"`
	}

	ServiceInterface interface {
		Overview(ctx context.Context, filter Filter) (Overview, error)
	}

	service struct {
		members    MemberStats
		attendance AttendanceSummary
		classes    ClassStats
		loc        *time.Location
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(members MemberStats, att AttendanceSummary, classes ClassStats, conf *core.Config) ServiceInterface {
	vala.BeginValidation().Validate(
		core.NotNil(members, "members"),
		core.NotNil(att, "att"),
		core.NotNil(classes, "classes"),
		core.NotNil(conf, "conf"),
	).CheckAndPanic()

	return &service{members: members, attendance: att, classes: classes, loc: conf.Location}
}

// clean defaults the period to the last 30 days and parses it.
func (svc *service) clean(filter *Filter) (from, to time.Time, err error) {
	now := core.NowFunc().In(svc.loc)
	if filter.To == "" {
		filter.To = now.Format(core.DateLayout)
	}
	if to, err = core.ParseDate(filter.To, svc.loc); err != nil {
		return from, to, core.NewValidationError(err, core.FieldError{Field: "to", Error: "enter a valid date (YYYY-MM-DD)"})
	}
	if filter.From == "" {
		filter.From = to.AddDate(0, 0, -defaultRangeDays+1).Format(core.DateLayout)
	}
	if from, err = core.ParseDate(filter.From, svc.loc); err != nil {
		return from, to, core.NewValidationError(err, core.FieldError{Field: "from", Error: "enter a valid date (YYYY-MM-DD)"})
	}
	if from.After(to) {
		return from, to, core.NewValidationError(errInvalidRange, core.FieldError{Field: "from", Error: errInvalidRange.Error()})
	}
	return from, to, nil
}

func (svc *service) Overview(ctx context.Context, filter Filter) (Overview, error) {
	from, to, err := svc.clean(&filter)
	if err != nil {
		return Overview{}, err
	}
	ov := Overview{From: filter.From, To: filter.To}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := svc.members.Stats(gctx, from.UTC(), to.AddDate(0, 0, 1).UTC())
		ov.Members = stats
		return errors.Wrap(err, "member stats")
	})
	g.Go(func() error {
		sum, err := svc.attendance.Summary(gctx, &attendance.QueryFilter{DateFrom: filter.From, DateTo: filter.To}, filter.GroupBy)
		ov.Attendance = sum
		return errors.Wrap(err, "attendance summary")
	})
	g.Go(func() error {
		stats, err := svc.classes.Stats(gctx)
		ov.Classes = stats
		return errors.Wrap(err, "class stats")
	})
	if err = g.Wait(); err != nil {
		// keep validation errors (bad group_by) visible to clients
		var vErr *core.ValidationError
		if errors.As(err, &vErr) {
			return Overview{}, vErr
		}
		return Overview{}, err
	}
	return ov, nil
}
