package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/attendance"
	"github.com/japhetcordova/clc-sub000/core/class"
	"github.com/japhetcordova/clc-sub000/core/member"
)

type fakeMembers struct{ from, to time.Time }

func (f *fakeMembers) Stats(_ context.Context, from, to time.Time) (member.Stats, error) {
	f.from, f.to = from, to
	return member.Stats{Total: 10, Active: 8, New: 2}, nil
}

type fakeAttendance struct {
	filter *attendance.QueryFilter
	err    error
}

func (f *fakeAttendance) Summary(_ context.Context, filter *attendance.QueryFilter, groupBy string) (attendance.Summary, error) {
	f.filter = filter
	return attendance.Summary{GroupBy: groupBy, Total: 5, Unique: 4}, f.err
}

type fakeClasses struct{ calls int }

func (f *fakeClasses) Stats(context.Context) (class.Stats, error) {
	f.calls++
	return class.Stats{ActiveClasses: 3, ActiveEnrollments: 12}, nil
}

func TestOverview(t *testing.T) {
	core.NowFunc = func() time.Time { return time.Date(2026, 3, 31, 10, 0, 0, 0, time.UTC) }
	defer func() { core.NowFunc = time.Now }()

	conf := core.NewTestConfig()
	members, att, classes := new(fakeMembers), new(fakeAttendance), new(fakeClasses)
	svc := NewService(members, att, classes, conf)

	ov, err := svc.Overview(context.Background(), Filter{GroupBy: "week"})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", ov.From)
	assert.Equal(t, "2026-03-31", ov.To)
	assert.Equal(t, member.Stats{Total: 10, Active: 8, New: 2}, ov.Members)
	assert.Equal(t, attendance.Summary{GroupBy: "week", Total: 5, Unique: 4}, ov.Attendance)
	assert.Equal(t, class.Stats{ActiveClasses: 3, ActiveEnrollments: 12}, ov.Classes)
	assert.Equal(t, 1, classes.calls)
	assert.Equal(t, &attendance.QueryFilter{DateFrom: "2026-03-02", DateTo: "2026-03-31"}, att.filter)
	assert.True(t, members.from.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
	assert.True(t, members.to.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestOverviewErrors(t *testing.T) {
	conf := core.NewTestConfig()
	vErr := core.NewValidationError(nil, core.FieldError{Field: "group_by", Error: "bad"})

	tests := []struct {
		name       string
		filter     Filter
		summaryErr error
		wantField  string
		wantErr    bool
	}{
		{name: "bad from", filter: Filter{From: "yesterday"}, wantField: "from"},
		{name: "bad to", filter: Filter{To: "2026-13-01"}, wantField: "to"},
		{name: "inverted range", filter: Filter{From: "2026-03-02", To: "2026-03-01"}, wantField: "from"},
		{name: "summary validation", filter: Filter{GroupBy: "year"}, summaryErr: vErr, wantField: "group_by"},
		{name: "summary failure", summaryErr: errors.New("boom"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(new(fakeMembers), &fakeAttendance{err: tt.summaryErr}, new(fakeClasses), conf)
			_, err := svc.Overview(context.Background(), tt.filter)
			require.Error(t, err)

			var got *core.ValidationError
			if tt.wantErr {
				assert.False(t, errors.As(err, &got))
				return
			}
			require.True(t, errors.As(err, &got))
			assert.Equal(t, tt.wantField, got.Fields[0].Field)
		})
	}
}
