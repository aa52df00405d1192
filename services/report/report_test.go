package report

import (
	"bytes"
	"fmt"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/attendance"
	"github.com/japhetcordova/clc-sub000/core/class"
	"github.com/japhetcordova/clc-sub000/core/dashboard"
	"github.com/japhetcordova/clc-sub000/core/member"
)

func TestNiceStep(t *testing.T) {
	tests := []struct{ max, want int }{
		{0, 1}, {1, 1}, {4, 1}, {5, 2}, {8, 2}, {9, 5}, {20, 5}, {21, 10}, {150, 50}, {1001, 500},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.max), func(t *testing.T) {
			assert.Equal(t, tt.want, niceStep(tt.max))
		})
	}
}

func TestShortKey(t *testing.T) {
	assert.Equal(t, "03-01", shortKey("2026-03-01"))
	assert.Equal(t, "2026-W09", shortKey("2026-W09"))
	assert.Equal(t, "first-service", shortKey("first-service"))
	assert.Equal(t, "a-very-long-m…", shortKey("a-very-long-ministry-name"))
}

func TestBarChart(t *testing.T) {
	buckets := make([]attendance.Bucket, 0, 40)
	for i := 0; i < 40; i++ {
		buckets = append(buckets, attendance.Bucket{Key: fmt.Sprintf("2026-03-%02d", i%28+1), Total: i * 3, Unique: i})
	}

	for _, bs := range [][]attendance.Bucket{nil, buckets[:1], buckets} {
		data, err := BarChart(bs, 800, 300)
		require.NoError(t, err)
		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 800, img.Bounds().Dx())
		assert.Equal(t, 300, img.Bounds().Dy())
	}

	_, err := BarChart(buckets, 10, 10)
	assert.Error(t, err)
}

func TestAttendancePDF(t *testing.T) {
	g := NewGenerator(core.NewTestConfig())
	ov := dashboard.Overview{
		From:    "2026-03-01",
		To:      "2026-03-31",
		Members: member.Stats{Total: 120, Active: 100, New: 4},
		Attendance: attendance.Summary{
			GroupBy: attendance.GroupBySlot,
			Total:   310,
			Unique:  95,
			Buckets: []attendance.Bucket{{Key: "first-service", Total: 200, Unique: 80}, {Key: "general", Total: 110, Unique: 40}},
		},
		Classes: class.Stats{ActiveClasses: 3, ActiveEnrollments: 41},
	}

	for _, o := range []dashboard.Overview{ov, {From: "2026-03-01", To: "2026-03-01"}} {
		var buf bytes.Buffer
		require.NoError(t, g.AttendancePDF(&buf, o))
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	}
}

func TestMembersPDF(t *testing.T) {
	g := NewGenerator(core.NewTestConfig())

	members := make([]member.Member, 0, 80)
	for i := 0; i < 80; i++ {
		members = append(members, member.Member{
			Code: fmt.Sprintf("CODE%04d", i), FirstName: "José", LastName: fmt.Sprintf("Member %d", i),
			Gender: member.GenderMale, Email: fmt.Sprintf("m%d@clc.test", i), IsActive: i%3 != 0,
			JoinedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		})
	}

	var small, big bytes.Buffer
	require.NoError(t, g.MembersPDF(&small, members[:2]))
	require.NoError(t, g.MembersPDF(&big, members))
	assert.True(t, bytes.HasPrefix(big.Bytes(), []byte("%PDF-")))
	assert.Greater(t, big.Len(), small.Len())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
