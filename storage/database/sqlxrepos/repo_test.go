package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/attendance"
	"github.com/japhetcordova/clc-sub000/core/class"
	"github.com/japhetcordova/clc-sub000/core/devotion"
	"github.com/japhetcordova/clc-sub000/core/member"
	"github.com/japhetcordova/clc-sub000/core/user"
	testutil "github.com/japhetcordova/clc-sub000/tests"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testutil.OpenDB(t))

	day := func(d int) time.Time { return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC) }
	owner := testutil.CreateUser(t, repo, "Owner", "owner", "owner@clc.test", "pwd", []string{user.RoleAdminOwner}, true, day(1))
	usher := testutil.CreateUser(t, repo, "Usher Jane", "", "jane@clc.test", "pwd", []string{user.RoleUsher, user.RoleTeacher}, true, day(2))
	gone := testutil.CreateUser(t, repo, "Gone", "gone_user", "", "", nil, false, day(3))

	t.Run("uniqueness", func(t *testing.T) {
		assert.Equal(t, user.ErrUserExists, repo.CheckUsernameUniqueness(ctx, "owner", ""))
		assert.Equal(t, user.ErrUserExists, repo.CheckUsernameUniqueness(ctx, "x", "jane@clc.test"))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "owner", "owner@clc.test", owner))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "", ""))

		_, err := repo.CreateUser(ctx, user.User{Name: "Dup", Username: "owner", CreatedAt: day(4), UpdatedAt: day(4)})
		assert.Equal(t, user.ErrUserExists, err)
	})

	t.Run("query", func(t *testing.T) {
		active, inactive := true, false
		ids := func(users []user.User) []string {
			out := make([]string, 0, len(users))
			for _, u := range users {
				out = append(out, u.ID)
			}
			return out
		}
		tests := []struct {
			name     string
			filter   *user.QueryFilter
			ordering []core.DBOrdering
			want     []string
		}{
			{name: "all by name", want: []string{gone.ID, owner.ID, usher.ID}},
			{name: "ordering", ordering: []core.DBOrdering{{Field: "created_at"}}, want: []string{gone.ID, usher.ID, owner.ID}},
			{name: "search", filter: &user.QueryFilter{Search: "JANE"}, want: []string{usher.ID}},
			{name: "role prefix", filter: &user.QueryFilter{Roles: []string{user.RoleAdmin}}, want: []string{owner.ID}},
			{name: "second role", filter: &user.QueryFilter{Roles: []string{user.RoleTeacher}}, want: []string{usher.ID}},
			{name: "active", filter: &user.QueryFilter{IsActive: &active}, want: []string{owner.ID, usher.ID}},
			{name: "inactive", filter: &user.QueryFilter{IsActive: &inactive}, want: []string{gone.ID}},
			{name: "created range", filter: &user.QueryFilter{CreatedFrom: day(2), CreatedTo: day(3)}, want: []string{gone.ID, usher.ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				users, err := repo.QueryUsers(ctx, tt.filter, tt.ordering)
				require.NoError(t, err)
				assert.Equal(t, tt.want, ids(users))
			})
		}
	})

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetUser(ctx, user.GetFilter{ID: owner.ID})
		require.NoError(t, err)
		assert.Equal(t, owner.Username, got.Username)
		assert.Equal(t, []string{user.RoleAdminOwner}, got.Roles)
		assert.NoError(t, got.CheckPassword("pwd"))
		assert.True(t, got.Active())

		got, err = repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: "jane@clc.test"})
		require.NoError(t, err)
		assert.Equal(t, usher.ID, got.ID)

		_, err = repo.GetUser(ctx, user.GetFilter{ID: "nope"})
		assert.Equal(t, user.ErrNotFound, err)
		_, err = repo.GetUser(ctx, user.GetFilter{Email: "nobody@clc.test"})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("update and delete", func(t *testing.T) {
		gone.Name = "Back"
		gone.LastLogin = day(5)
		gone.SetActive(true)
		_, err := repo.UpdateUser(ctx, gone)
		require.NoError(t, err)

		got, err := repo.GetUser(ctx, user.GetFilter{Username: "gone_user"})
		require.NoError(t, err)
		assert.Equal(t, "Back", got.Name)
		assert.True(t, got.LastLogin.Equal(day(5)))
		assert.True(t, got.Active())

		n, err := repo.DeleteUsersByID(ctx, gone.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		_, err = repo.UpdateUser(ctx, gone)
		assert.Equal(t, user.ErrNotFound, err)
	})
}

func TestMemberRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemberRepository(testutil.OpenDB(t))

	juan := testutil.CreateMember(t, repo, member.Member{
		FirstName: "Juan", LastName: "Dela Cruz", Email: "juan@clc.test", Gender: member.GenderMale,
		BirthDate: "1990-03-15", Ministry: "Choir", IsActive: true,
	})
	maria := testutil.CreateMember(t, repo, member.Member{
		FirstName: "Maria", LastName: "Santos", Phone: "+63 917 000 0000", BirthDate: "1985-03-02", IsActive: true,
	})
	old := testutil.CreateMember(t, repo, member.Member{
		FirstName: "Pedro", LastName: "Reyes", Phone: "0917 111 1111", BirthDate: "1970-03-01",
		JoinedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	t.Run("duplicates", func(t *testing.T) {
		emailTaken, phoneTaken, err := repo.FindDuplicates(ctx, "juan@clc.test", "+63 917 000 0000", "")
		require.NoError(t, err)
		assert.True(t, emailTaken)
		assert.True(t, phoneTaken)

		emailTaken, phoneTaken, err = repo.FindDuplicates(ctx, "juan@clc.test", "", juan.ID)
		require.NoError(t, err)
		assert.False(t, emailTaken)
		assert.False(t, phoneTaken)

		_, err = repo.CreateMember(ctx, member.Member{Code: juan.Code, FirstName: "X", LastName: "Y", Gender: "male"})
		assert.Equal(t, member.ErrCodeTaken, err)
		_, err = repo.CreateMember(ctx, member.Member{Code: "ZZZZZZZZ", FirstName: "X", LastName: "Y", Email: "juan@clc.test", Gender: "male"})
		assert.Equal(t, member.ErrMemberExists, err)
	})

	t.Run("query", func(t *testing.T) {
		active := true
		tests := []struct {
			name      string
			filter    *member.QueryFilter
			page      core.Page
			want      []string
			wantCount int
		}{
			{name: "all", page: core.Page{Number: 1, Size: 10}, want: []string{juan.ID, old.ID, maria.ID}, wantCount: 3},
			{name: "paged", page: core.Page{Number: 2, Size: 2}, want: []string{maria.ID}, wantCount: 3},
			{name: "full name search", filter: &member.QueryFilter{Search: "juan dela"}, page: core.Page{Number: 1, Size: 10}, want: []string{juan.ID}, wantCount: 1},
			{name: "code search", filter: &member.QueryFilter{Search: maria.Code}, page: core.Page{Number: 1, Size: 10}, want: []string{maria.ID}, wantCount: 1},
			{name: "gender", filter: &member.QueryFilter{Gender: "male"}, page: core.Page{Number: 1, Size: 10}, want: []string{juan.ID}, wantCount: 1},
			{name: "ministry", filter: &member.QueryFilter{Ministry: "choir"}, page: core.Page{Number: 1, Size: 10}, want: []string{juan.ID}, wantCount: 1},
			{name: "active", filter: &member.QueryFilter{IsActive: &active}, page: core.Page{Number: 1, Size: 10}, want: []string{juan.ID, maria.ID}, wantCount: 2},
			{name: "joined before", filter: &member.QueryFilter{JoinedTo: "2020-12-31"}, page: core.Page{Number: 1, Size: 10}, want: []string{old.ID}, wantCount: 1},
			{name: "joined on the day", filter: &member.QueryFilter{JoinedFrom: "2020-01-01", JoinedTo: "2020-01-01"}, page: core.Page{Number: 1, Size: 10}, want: []string{old.ID}, wantCount: 1},
			{name: "joined after", filter: &member.QueryFilter{JoinedFrom: "2020-01-02"}, page: core.Page{Number: 1, Size: 10}, want: []string{juan.ID, maria.ID}, wantCount: 2},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if tt.filter != nil {
					require.NoError(t, tt.filter.Clean(time.UTC))
				}
				members, count, err := repo.QueryMembers(ctx, tt.filter, nil, tt.page)
				require.NoError(t, err)
				assert.Equal(t, tt.wantCount, count)
				got := make([]string, 0, len(members))
				for _, m := range members {
					got = append(got, m.ID)
				}
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("birthdays", func(t *testing.T) {
		members, err := repo.MembersByBirthMonth(ctx, 3)
		require.NoError(t, err)
		require.Len(t, members, 2) // inactive members are left out
		assert.Equal(t, maria.ID, members[0].ID)
		assert.Equal(t, juan.ID, members[1].ID)
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := repo.MemberStats(ctx, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, member.Stats{Total: 3, Active: 2, New: 2}, stats)
	})

	t.Run("get update delete", func(t *testing.T) {
		got, err := repo.GetMember(ctx, member.GetFilter{Code: juan.Code})
		require.NoError(t, err)
		assert.Equal(t, juan.ID, got.ID)
		assert.Equal(t, "1990-03-15", got.BirthDate)

		got.PhotoKey = "members/" + got.ID + "/photo"
		_, err = repo.UpdateMember(ctx, got)
		require.NoError(t, err)
		got, err = repo.GetMember(ctx, member.GetFilter{ID: juan.ID})
		require.NoError(t, err)
		assert.Equal(t, "members/"+juan.ID+"/photo", got.PhotoKey)

		got.Phone = maria.Phone
		_, err = repo.UpdateMember(ctx, got)
		assert.Equal(t, member.ErrMemberExists, err)

		n, err := repo.DeleteMembersByID(ctx, old.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		_, err = repo.GetMember(ctx, member.GetFilter{ID: old.ID})
		assert.Equal(t, member.ErrNotFound, err)
	})
}

func TestAttendanceRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := NewAttendanceRepository(db)
	members := NewMemberRepository(db)

	juan := testutil.CreateMember(t, members, member.Member{FirstName: "Juan", LastName: "Cruz", Email: "j@clc.test", Gender: "male", IsActive: true})
	ana := testutil.CreateMember(t, members, member.Member{FirstName: "Ana", LastName: "Lim", Email: "a@clc.test", Ministry: "Youth", IsActive: true})

	at := time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC)
	create := func(m member.Member, date, slot, method string) attendance.Record {
		rec, err := repo.CreateRecord(ctx, attendance.Record{MemberID: m.ID, Date: date, Slot: slot, Method: method, ScannedBy: "pin:" + date, ScannedAt: at})
		require.NoError(t, err)
		return rec
	}
	r1 := create(juan, "2026-03-01", "first-service", attendance.MethodQR)
	create(ana, "2026-03-01", "first-service", attendance.MethodManual)
	create(juan, "2026-03-08", "evening-service", attendance.MethodQR)

	_, err := repo.CreateRecord(ctx, attendance.Record{MemberID: juan.ID, Date: "2026-03-01", Slot: "first-service", Method: "qr", ScannedAt: at})
	assert.Equal(t, attendance.ErrAlreadyCheckedIn, err)

	found, err := repo.FindRecord(ctx, juan.ID, "2026-03-01", "first-service", "")
	require.NoError(t, err)
	assert.Equal(t, r1.ID, found.ID)
	assert.Equal(t, juan.Code, found.MemberCode)
	assert.Equal(t, "Juan Cruz", found.MemberName)

	tests := []struct {
		name      string
		filter    *attendance.QueryFilter
		wantCount int
	}{
		{name: "all", wantCount: 3},
		{name: "date range", filter: &attendance.QueryFilter{DateFrom: "2026-03-02", DateTo: "2026-03-31"}, wantCount: 1},
		{name: "slots", filter: &attendance.QueryFilter{Slots: []string{"first-service", "general"}}, wantCount: 2},
		{name: "member", filter: &attendance.QueryFilter{MemberID: ana.ID}, wantCount: 1},
		{name: "method", filter: &attendance.QueryFilter{Method: attendance.MethodQR}, wantCount: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, count, err := repo.QueryRecords(ctx, tt.filter, nil, core.Page{Number: 1, Size: 50})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, count)
			assert.Len(t, records, tt.wantCount)
		})
	}

	rows, err := repo.SummaryRows(ctx, &attendance.QueryFilter{DateTo: "2026-03-01"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []attendance.SummaryRow{
		{MemberID: juan.ID, Date: "2026-03-01", Slot: "first-service", Gender: "male"},
		{MemberID: ana.ID, Date: "2026-03-01", Slot: "first-service", Gender: "female", Ministry: "Youth"},
	}, rows)

	require.NoError(t, repo.DeleteRecord(ctx, r1.ID))
	_, err = repo.GetRecord(ctx, r1.ID)
	assert.Equal(t, attendance.ErrNotFound, err)
	assert.Equal(t, attendance.ErrNotFound, repo.DeleteRecord(ctx, r1.ID))
}

func TestClassRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := NewClassRepository(db)
	members := NewMemberRepository(db)

	c := testutil.CreateClass(t, repo, class.Class{Name: "Foundations", Capacity: 2, IsActive: true})
	ended := testutil.CreateClass(t, repo, class.Class{Name: "Old", IsActive: true, EndsOn: "2026-01-31"})
	_, err := repo.CreateClass(ctx, class.Class{Name: "Foundations", StartsOn: "2026-01-01"})
	assert.Equal(t, class.ErrClassExists, err)

	m1 := testutil.CreateMember(t, members, member.Member{FirstName: "A", LastName: "A", Email: "a@clc.test", IsActive: true})
	m2 := testutil.CreateMember(t, members, member.Member{FirstName: "B", LastName: "B", Email: "b@clc.test", IsActive: true})
	m3 := testutil.CreateMember(t, members, member.Member{FirstName: "C", LastName: "C", Email: "c@clc.test", IsActive: true})

	now := time.Now().UTC()
	_, err = repo.Enroll(ctx, c.ID, m1.ID, c.Capacity, now)
	require.NoError(t, err)
	_, err = repo.Enroll(ctx, c.ID, m1.ID, c.Capacity, now)
	assert.Equal(t, class.ErrAlreadyEnrolled, err)
	_, err = repo.Enroll(ctx, c.ID, m2.ID, c.Capacity, now)
	require.NoError(t, err)
	_, err = repo.Enroll(ctx, c.ID, m3.ID, c.Capacity, now)
	assert.Equal(t, class.ErrClassFull, err)
	_, err = repo.Enroll(ctx, ended.ID, m3.ID, 0, now)
	require.NoError(t, err)

	got, err := repo.GetClass(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Enrolled)

	// dropping frees a seat; the dropped member may come back later
	e, err := repo.GetEnrollment(ctx, c.ID, m2.ID)
	require.NoError(t, err)
	assert.Equal(t, "B B", e.MemberName)
	assert.Equal(t, "Foundations", e.ClassName)
	e.Status = class.StatusDropped
	_, err = repo.UpdateEnrollment(ctx, e)
	require.NoError(t, err)
	_, err = repo.Enroll(ctx, c.ID, m3.ID, c.Capacity, now)
	require.NoError(t, err)
	_, err = repo.Enroll(ctx, c.ID, m2.ID, c.Capacity, now)
	assert.Equal(t, class.ErrClassFull, err)

	enrolled, err := repo.ClassEnrollments(ctx, c.ID, class.StatusEnrolled)
	require.NoError(t, err)
	assert.Len(t, enrolled, 2)
	all, err := repo.ClassEnrollments(ctx, c.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := repo.MemberEnrollments(ctx, m3.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	stats, err := repo.ClassStats(ctx, "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, class.Stats{ActiveClasses: 1, ActiveEnrollments: 2}, stats)

	classes, count, err := repo.QueryClasses(ctx, &class.QueryFilter{Search: "found"}, nil, core.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, c.ID, classes[0].ID)

	require.NoError(t, repo.DeleteClass(ctx, c.ID))
	_, err = repo.GetEnrollment(ctx, c.ID, m1.ID)
	assert.Equal(t, class.ErrEnrollmentNotFound, err) // cascaded
}

func TestVerseRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewVerseRepository(testutil.OpenDB(t))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v1 := testutil.CreateVerse(t, repo, devotion.Verse{Reference: "John 3:16", Text: "For God so loved...", Translation: "KJV", CreatedAt: base})
	v2 := testutil.CreateVerse(t, repo, devotion.Verse{Reference: "Psalm 23:1", Text: "The LORD is my shepherd", Translation: "KJV", CreatedAt: base.Add(time.Hour)})
	xmas := testutil.CreateVerse(t, repo, devotion.Verse{Reference: "Luke 2:11", Text: "For unto you is born...", Translation: "KJV", ScheduledFor: "2026-12-25", CreatedAt: base})

	_, err := repo.CreateVerse(ctx, devotion.Verse{Reference: "John 3:16", Text: "x", Translation: "KJV", CreatedAt: base})
	assert.Equal(t, devotion.ErrVerseExists, err)
	_, err = repo.CreateVerse(ctx, devotion.Verse{Reference: "Isaiah 9:6", Text: "x", Translation: "KJV", ScheduledFor: "2026-12-25", CreatedAt: base})
	assert.Equal(t, devotion.ErrDateTaken, err)

	got, err := repo.ScheduledVerse(ctx, "2026-12-25")
	require.NoError(t, err)
	assert.Equal(t, xmas.ID, got.ID)
	_, err = repo.ScheduledVerse(ctx, "2026-12-24")
	assert.Equal(t, devotion.ErrNotFound, err)

	n, err := repo.CountUnscheduled(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err = repo.UnscheduledVerseAt(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, v1.ID, got.ID)
	got, err = repo.UnscheduledVerseAt(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, got.ID)

	scheduled := true
	verses, count, err := repo.QueryVerses(ctx, &devotion.QueryFilter{Scheduled: &scheduled}, nil, core.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, xmas.ID, verses[0].ID)

	xmas.ScheduledFor = ""
	_, err = repo.UpdateVerse(ctx, xmas)
	require.NoError(t, err)
	n, err = repo.CountUnscheduled(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, repo.DeleteVerse(ctx, v2.ID))
	assert.Equal(t, devotion.ErrNotFound, repo.DeleteVerse(ctx, v2.ID))
}
