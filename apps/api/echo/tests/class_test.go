package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japhetcordova/clc-sub000/core/class"
	"github.com/japhetcordova/clc-sub000/core/member"
	testutil "github.com/japhetcordova/clc-sub000/tests"
)

func Test_classApi(t *testing.T) {
	e := setup(t)
	_, _, _, adminToken, usherToken, teacherToken := e.staff(t)
	ruth := testutil.CreateMember(t, e.memRepo, member.Member{FirstName: "Ruth", LastName: "Moab", IsActive: true})
	boaz := testutil.CreateMember(t, e.memRepo, member.Member{FirstName: "Boaz", LastName: "Bethlehem", IsActive: true})
	gone := testutil.CreateMember(t, e.memRepo, member.Member{FirstName: "Orpah", LastName: "Moab"})

	nc := class.NewClass{Name: "Discipleship 101", Teacher: "Pastor Paul", Capacity: 1, StartsOn: "2026-01-10"}
	rec := e.serve(newAuthRequest(http.MethodPost, "/v1/classes", adminToken, marshallObj(t, nc)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c class.Class
	unmarshall(t, rec, &c)
	assert.True(t, c.IsActive)
	path := "/v1/classes/" + c.ID

	enroll := func(m member.Member) []byte { return []byte(`{"member_id":"` + m.ID + `"}`) }
	runTests(t, e, []httpTest{
		{name: "teacher cannot create", method: http.MethodPost, path: "/v1/classes", token: teacherToken, body: marshallObj(t, nc), wantCode: http.StatusForbidden},
		{
			name: "name taken", method: http.MethodPost, path: "/v1/classes", token: adminToken, body: marshallObj(t, nc),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"name":"` + class.ErrClassExists.Error() + `"}`),
		},
		{
			name: "ends before start", method: http.MethodPost, path: "/v1/classes", token: adminToken, wantCode: http.StatusBadRequest,
			body: marshallObj(t, class.NewClass{Name: "Backwards", StartsOn: "2026-02-01", EndsOn: "2026-01-01"}),
		},
		{name: "usher lists", path: "/v1/classes", token: usherToken},
		{name: "usher cannot enroll", method: http.MethodPost, path: path + "/enrollments", token: usherToken, body: enroll(ruth), wantCode: http.StatusForbidden},
		{name: "member_id required", method: http.MethodPost, path: path + "/enrollments", token: teacherToken, body: []byte("{}"), wantCode: http.StatusBadRequest},
		{name: "unknown member", method: http.MethodPost, path: path + "/enrollments", token: teacherToken, body: []byte(`{"member_id":"nope"}`), wantCode: http.StatusNotFound},
		{name: "inactive member", method: http.MethodPost, path: path + "/enrollments", token: teacherToken, body: enroll(gone), wantCode: http.StatusConflict},
		{name: "enrolled", method: http.MethodPost, path: path + "/enrollments", token: teacherToken, body: enroll(ruth), wantCode: http.StatusCreated},
		{name: "already enrolled", method: http.MethodPost, path: path + "/enrollments", token: teacherToken, body: enroll(ruth), wantCode: http.StatusConflict},
		{
			name: "class full", method: http.MethodPost, path: path + "/enrollments", token: teacherToken, body: enroll(boaz),
			wantCode: http.StatusConflict, wantData: marshallObj(t, httpErr{Error: class.ErrClassFull.Error()}),
		},
		{
			name: "bad status", method: http.MethodPatch, path: path + "/enrollments/" + ruth.ID, token: teacherToken,
			body: []byte(`{"status":"lol"}`), wantCode: http.StatusBadRequest,
		},
		{name: "dropped", method: http.MethodPatch, path: path + "/enrollments/" + ruth.ID, token: teacherToken, body: []byte(`{"status":"dropped"}`)},
		{name: "seat freed", method: http.MethodPost, path: path + "/enrollments", token: teacherToken, body: enroll(boaz), wantCode: http.StatusCreated},
		{
			name: "re-enrolling respects capacity", method: http.MethodPatch, path: path + "/enrollments/" + ruth.ID, token: teacherToken,
			body: []byte(`{"status":"enrolled"}`), wantCode: http.StatusConflict,
		},
		{name: "capacity below enrolled", method: http.MethodPut, path: path, token: adminToken, body: []byte(`{"capacity":0}`)},
		{name: "re-enrolled", method: http.MethodPatch, path: path + "/enrollments/" + ruth.ID, token: teacherToken, body: []byte(`{"status":"enrolled"}`)},
	})

	rec = e.serve(newAuthRequest(http.MethodGet, path+"/enrollments?status=enrolled", teacherToken))
	require.Equal(t, http.StatusOK, rec.Code)
	var enrollments []class.Enrollment
	unmarshall(t, rec, &enrollments)
	assert.Len(t, enrollments, 2)

	rec = e.serve(newAuthRequest(http.MethodGet, "/v1/members/"+boaz.ID+"/classes", usherToken))
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshall(t, rec, &enrollments)
	require.Len(t, enrollments, 1)
	assert.Equal(t, c.ID, enrollments[0].ClassID)

	runTests(t, e, []httpTest{
		{name: "teacher cannot delete", method: http.MethodDelete, path: path, token: teacherToken, wantCode: http.StatusForbidden},
		{name: "deleted", method: http.MethodDelete, path: path, token: adminToken, wantCode: http.StatusNoContent},
		{name: "gone", path: path, token: adminToken, wantCode: http.StatusNotFound},
	})
}
