package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	echoapi "github.com/japhetcordova/clc-sub000/apps/api/echo"
	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/accesspin"
	"github.com/japhetcordova/clc-sub000/core/attendance"
	"github.com/japhetcordova/clc-sub000/core/class"
	"github.com/japhetcordova/clc-sub000/core/dashboard"
	"github.com/japhetcordova/clc-sub000/core/devotion"
	"github.com/japhetcordova/clc-sub000/core/member"
	"github.com/japhetcordova/clc-sub000/core/user"
	appfs "github.com/japhetcordova/clc-sub000/fs"
	emailsvc "github.com/japhetcordova/clc-sub000/services/email"
	"github.com/japhetcordova/clc-sub000/services/idcard"
	logsvc "github.com/japhetcordova/clc-sub000/services/logger"
	"github.com/japhetcordova/clc-sub000/services/report"
	"github.com/japhetcordova/clc-sub000/storage/blob"
	"github.com/japhetcordova/clc-sub000/storage/database/sqlxrepos"
	"github.com/japhetcordova/clc-sub000/storage/kv"
	testutil "github.com/japhetcordova/clc-sub000/tests"
)

var errMissingToken = httpErr{Error: "user not authenticated"}

// env is a server backed by a fresh in-memory database.
type env struct {
	app  *echoapi.Server
	conf *core.Config
	mail *emailsvc.ConsoleServiceMock

	usrRepo   user.Repository
	memRepo   member.Repository
	clsRepo   class.Repository
	verseRepo devotion.Repository

	usrSvc    user.ServiceInterface
	memberSvc member.ServiceInterface
	classSvc  class.ServiceInterface
	pinSvc    accesspin.ServiceInterface
}

func setup(t *testing.T) *env {
	t.Helper()
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(zap.NewNop(), conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(appfs.FS, logger)
	core.ParseEmailTemplates(appfs.FS, conf, logger)

	// set up DB & repos
	db := testutil.OpenDB(t)
	e := &env{
		conf:      conf,
		mail:      emailsvc.NewConsoleServiceMock(conf, logger),
		usrRepo:   sqlxrepos.NewUserRepository(db),
		memRepo:   sqlxrepos.NewMemberRepository(db),
		clsRepo:   sqlxrepos.NewClassRepository(db),
		verseRepo: sqlxrepos.NewVerseRepository(db),
	}
	attRepo := sqlxrepos.NewAttendanceRepository(db)

	blobs, err := blob.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	cards, err := idcard.NewRenderer(conf)
	require.NoError(t, err)
	store := kv.NewMemoryStore()

	// set up services
	e.usrSvc = user.NewServiceMock(e.usrRepo, e.mail, conf)
	e.memberSvc = member.NewServiceMock(e.memRepo, e.mail, blobs, cards, conf, logger)
	e.classSvc = class.NewService(e.clsRepo, e.memberSvc, conf)
	attSvc := attendance.NewService(attRepo, e.memberSvc, e.classSvc, validate, conf)
	e.pinSvc = accesspin.NewService(store, conf)

	// set up server
	e.app = echoapi.NewServer(&echoapi.Deps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		Templates:     appfs.FS,
		Mail:          e.mail,
		UserSvc:       e.usrSvc,
		MemberSvc:     e.memberSvc,
		AttendanceSvc: attSvc,
		ClassSvc:      e.classSvc,
		PinSvc:        e.pinSvc,
		DevotionSvc:   devotion.NewService(e.verseRepo, store, validate, conf, logger),
		DashboardSvc:  dashboard.NewService(e.memberSvc, attSvc, e.classSvc, conf),
		Reports:       report.NewGenerator(conf),
	})
	t.Cleanup(func() { _ = e.app.Close() })
	return e
}

func (e *env) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.app.ServeHTTP(rec, req)
	return rec
}

// staff returns an admin, an usher and a teacher with their tokens.
func (e *env) staff(t *testing.T) (admin, usher, teacher user.User, adminToken, usherToken, teacherToken string) {
	admin = testutil.CreateUser(t, e.usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	usher = testutil.CreateUser(t, e.usrRepo, "Usher", "usher1", "usher@test.cd", "", []string{user.RoleUsher}, true)
	teacher = testutil.CreateUser(t, e.usrRepo, "Teacher", "teacher1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	return admin, usher, teacher, e.token(t, admin), e.token(t, usher), e.token(t, teacher)
}

func (e *env) token(t *testing.T, usr user.User) string {
	token, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr, e.conf), e.conf.SecretKey)
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

func newFormRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func newMultipartRequest(t *testing.T, path, token, field, filename string, content []byte, fields map[string]string) *http.Request {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.Copy(fw, bytes.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runTests(t *testing.T, e *env, tests []httpTest) {
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			rec := e.serve(newAuthRequest(tt.method, tt.path, tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}
