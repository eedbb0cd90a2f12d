package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	. "github.com/nojinx/ssm/apps/api/echo"
	"github.com/nojinx/ssm/apps/shared"
	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/auth"
	"github.com/nojinx/ssm/core/staff"
	"github.com/nojinx/ssm/core/student"
	logsvc "github.com/nojinx/ssm/services/logger"
)

var (
	repos   shared.Repositories
	authSvc *auth.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

const strongPwd = "Gr33n-Tr3e-House"

func setup(t *testing.T) Server {
	t.Helper()
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(zap.NewNop(), conf)

	// set up in-memory repos & services
	repos = shared.MemoryRepositories()
	deps := shared.NewServices(conf, repos, logger)
	authSvc = deps.AuthSvc

	// set up server
	return NewServer(
		&Options{
			Conf:           conf,
			Logger:         logger,
			Validate:       deps.Validate,
			Translator:     deps.Translator,
			DisableReqLogs: true,
			AuthSvc:        deps.AuthSvc,
			AuditSvc:       deps.AuditSvc,
			StaffSvc:       deps.StaffSvc,
			StudentSvc:     deps.StudentSvc,
			AcademicSvc:    deps.AcademicSvc,
			ScheduleSvc:    deps.ScheduleSvc,
			LeaveSvc:       deps.LeaveSvc,
			NewsSvc:        deps.NewsSvc,
		},
	)
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
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func issue(t *testing.T, p auth.Principal) auth.TokenPair {
	pair, err := authSvc.Issue(context.Background(), p, auth.ClientMobile)
	if err != nil {
		t.Fatalf("issue() failed: %v", err)
	}
	return pair
}

func staffToken(t *testing.T, s staff.Staff) string {
	return issue(t, auth.StaffPrincipal(s)).Access
}

func studentToken(t *testing.T, s student.Student) string {
	return issue(t, auth.StudentPrincipal(s)).Access
}

// reloadStaff returns the stored version of s (tokens issuing updates last_login).
func reloadStaff(t *testing.T, s staff.Staff) staff.Staff {
	s, err := repos.Staff.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("reloadStaff() failed: %v", err)
	}
	return s
}

func reloadStudent(t *testing.T, s student.Student) student.Student {
	s, err := repos.Student.Get(context.Background(), s.RollNumber)
	if err != nil {
		t.Fatalf("reloadStudent() failed: %v", err)
	}
	return s
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshalList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

// checkCodeAndData compares the response code, and the body when tt.wantData is set.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runTests(t *testing.T, app Server, tests []httpTest) {
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// decode unmarshals the recorded body into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if !assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String()) {
		t.FailNow()
	}
}
