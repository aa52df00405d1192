package tests

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/devotion"
)

const versesYAML = `
verses:
  - reference: John 3:16
    text: For God so loved the world.
  - reference: Psalm 23:1
    text: The Lord is my shepherd; I shall not want.
  - reference: John 3:16
    text: For God so loved the world.
`

func Test_verseApi(t *testing.T) {
	e := setup(t)
	_, _, _, adminToken, usherToken, _ := e.staff(t)

	runTests(t, e, []httpTest{
		{name: "no verse yet", path: "/v1/verse-of-the-day", wantCode: http.StatusNotFound},
		{name: "admin only", path: "/v1/verses", token: usherToken, wantCode: http.StatusForbidden},
		{
			name: "reference required", method: http.MethodPost, path: "/v1/verses", token: adminToken,
			body: []byte(`{"text":"Jesus wept."}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"reference":"this field is required"}`),
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/verses/import", bytes.NewBufferString(versesYAML))
	req.Header.Set("Content-Type", "application/x-yaml")
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := e.serve(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res devotion.ImportResult
	unmarshall(t, rec, &res)
	assert.Equal(t, devotion.ImportResult{Created: 2, Skipped: 1}, res)

	// an unscheduled verse is picked by rotation
	rec = e.serve(newRequest(http.MethodGet, "/v1/verse-of-the-day"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v devotion.Verse
	unmarshall(t, rec, &v)
	assert.Contains(t, []string{"John 3:16", "Psalm 23:1"}, v.Reference)

	today := core.LocalDate(core.NowFunc(), e.conf.Location)
	nv := devotion.NewVerse{Reference: "Lamentations 3:22-23", Text: "His mercies are new every morning.", ScheduledFor: today}
	rec = e.serve(newAuthRequest(http.MethodPost, "/v1/verses", adminToken, marshallObj(t, nv)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var scheduled devotion.Verse
	unmarshall(t, rec, &scheduled)
	path := "/v1/verses/" + scheduled.ID

	rec = e.serve(newRequest(http.MethodGet, "/v1/verse-of-the-day"))
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshall(t, rec, &v)
	assert.Equal(t, scheduled.ID, v.ID)

	runTests(t, e, []httpTest{
		{
			name: "date taken", method: http.MethodPost, path: "/v1/verses", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marshallObj(t, devotion.NewVerse{Reference: "Romans 8:28", Text: "All things work together.", ScheduledFor: today}),
			wantData: []byte(`{"scheduled_for":"` + devotion.ErrDateTaken.Error() + `"}`),
		},
		{name: "bad date", method: http.MethodPut, path: path, token: adminToken, body: []byte(`{"scheduled_for":"tomorrow"}`), wantCode: http.StatusBadRequest},
		{name: "retrieved", path: path, token: adminToken},
		{name: "search", path: "/v1/verses?search=shepherd", token: adminToken},
		{name: "unscheduled", method: http.MethodPut, path: path, token: adminToken, body: []byte(`{"scheduled_for":""}`)},
	})

	// unscheduling drops the cached pick
	rec = e.serve(newRequest(http.MethodGet, "/v1/verse-of-the-day"))
	require.Equal(t, http.StatusOK, rec.Code)
	unmarshall(t, rec, &v)
	assert.NotEqual(t, "", v.ID)

	rec = e.serve(newAuthRequest(http.MethodGet, "/v1/verses?search=shepherd", adminToken))
	var page core.PageResult[devotion.Verse]
	unmarshall(t, rec, &page)
	require.Equal(t, 1, page.Count)
	assert.Equal(t, "Psalm 23:1", page.Results[0].Reference)

	runTests(t, e, []httpTest{
		{name: "deleted", method: http.MethodDelete, path: path, token: adminToken, wantCode: http.StatusNoContent},
		{name: "gone", path: path, token: adminToken, wantCode: http.StatusNotFound},
	})
}

func Test_verseApi_badImport(t *testing.T) {
	e := setup(t)
	_, _, _, adminToken, _, _ := e.staff(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/verses/import", bytes.NewBufferString("verses: [this is: not: yaml"))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	assert.Equal(t, http.StatusBadRequest, e.serve(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/verses/import", bytes.NewBufferString("verses:\n  - text: no reference\n"))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	assert.Equal(t, http.StatusBadRequest, e.serve(req).Code)
}
