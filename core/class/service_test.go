package class_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/class"
	"github.com/japhetcordova/clc-sub000/core/member"
	"github.com/japhetcordova/clc-sub000/storage/database/sqlxrepos"
	testutil "github.com/japhetcordova/clc-sub000/tests"
)

type memberMap map[string]member.Member

func (mm memberMap) GetByID(_ context.Context, id string) (member.Member, error) {
	m, ok := mm[id]
	if !ok {
		return member.Member{}, member.ErrNotFound
	}
	return m, nil
}

func setup(t *testing.T, nMembers int) (class.ServiceInterface, class.Repository, []member.Member) {
	t.Helper()
	db := testutil.OpenDB(t)
	memRepo := sqlxrepos.NewMemberRepository(db)
	repo := sqlxrepos.NewClassRepository(db)

	members := make(memberMap)
	list := make([]member.Member, 0, nMembers)
	for i := 0; i < nMembers; i++ {
		m := testutil.CreateMember(t, memRepo, member.Member{FirstName: "Member", LastName: string(rune('A' + i)), IsActive: true})
		members[m.ID] = m
		list = append(list, m)
	}
	return class.NewService(repo, members, core.NewTestConfig()), repo, list
}

func TestEnroll_capacityUnderConcurrency(t *testing.T) {
	svc, _, members := setup(t, 10)
	ctx := context.Background()

	c, err := svc.Create(ctx, class.NewClass{Name: "Marriage Course", Capacity: 3, StartsOn: "2026-01-01"})
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		full int
	)
	for _, m := range members {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.Enroll(ctx, c, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, class.ErrClassFull):
				full++
			}
		}(m.ID)
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, 7, full)

	got, err := svc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Enrolled)
	assert.True(t, got.Full())
}

func TestEnroll_closedClasses(t *testing.T) {
	svc, repo, members := setup(t, 1)
	ctx := context.Background()
	today := core.LocalDate(core.NowFunc(), time.UTC)
	yesterday := core.LocalDate(core.NowFunc().AddDate(0, 0, -1), time.UTC)

	ended := testutil.CreateClass(t, repo, class.Class{Name: "Ended", EndsOn: yesterday, IsActive: true})
	inactive := testutil.CreateClass(t, repo, class.Class{Name: "Inactive"})
	lastDay := testutil.CreateClass(t, repo, class.Class{Name: "Last day", EndsOn: today, IsActive: true})

	_, err := svc.Enroll(ctx, ended, members[0].ID)
	assert.ErrorIs(t, err, class.ErrClassClosed)
	_, err = svc.Enroll(ctx, inactive, members[0].ID)
	assert.ErrorIs(t, err, class.ErrClassClosed)
	_, err = svc.Enroll(ctx, lastDay, members[0].ID)
	assert.NoError(t, err)
}

func TestSetStatus(t *testing.T) {
	svc, _, members := setup(t, 2)
	ctx := context.Background()
	c, err := svc.Create(ctx, class.NewClass{Name: "Baptism Class", StartsOn: "2026-01-01"})
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, c.ID, members[0].ID, class.StatusCompleted)
	assert.ErrorIs(t, err, class.ErrEnrollmentNotFound)

	_, err = svc.Enroll(ctx, c, members[0].ID)
	require.NoError(t, err)
	_, err = svc.Enroll(ctx, c, members[1].ID)
	require.NoError(t, err)

	e, err := svc.SetStatus(ctx, c.ID, members[0].ID, class.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, class.StatusCompleted, e.Status)

	enrolled, err := svc.IsEnrolled(ctx, c.ID, members[0].ID)
	require.NoError(t, err)
	assert.False(t, enrolled)

	list, err := svc.Enrollments(ctx, c.ID, "COMPLETED")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, members[0].ID, list[0].MemberID)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, class.Stats{ActiveClasses: 1, ActiveEnrollments: 1}, stats)
}

func TestUpdate_capacity(t *testing.T) {
	svc, _, members := setup(t, 2)
	ctx := context.Background()
	c, err := svc.Create(ctx, class.NewClass{Name: "Leadership", StartsOn: "2026-01-01"})
	require.NoError(t, err)
	for _, m := range members {
		_, err = svc.Enroll(ctx, c, m.ID)
		require.NoError(t, err)
	}
	c, err = svc.GetByID(ctx, c.ID)
	require.NoError(t, err)

	one := 1
	_, err = svc.Update(ctx, c, class.UpdateClass{Capacity: &one})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "capacity", vErr.Fields[0].Field)

	two := 2
	c, err = svc.Update(ctx, c, class.UpdateClass{Capacity: &two})
	require.NoError(t, err)
	assert.True(t, c.Full())
}
