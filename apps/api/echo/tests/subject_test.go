package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/nojinx/ssm/apps/api/echo"
	"github.com/nojinx/ssm/core/academic"
	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/staff"
	"github.com/nojinx/ssm/tests"
)

func createSubject(t *testing.T, code, name string, semester int, staffID string) academic.Subject {
	subj, err := repos.Academic.CreateSubject(context.Background(), academic.Subject{Code: code, Name: name, Semester: semester, StaffID: staffID})
	require.NoError(t, err)
	return subj
}

func Test_subjectApi_create(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateStaff(t, repos.Staff, "ADM01", "Admin", "admin@test.edu", "", "", true)
	member := testutil.CreateStaff(t, repos.Staff, "S001", "Jane Doe", "jane@test.edu", "", "", false)
	createSubject(t, "CS301", "Databases", 3, "")
	adminTok := staffToken(t, admin)

	tests := []httpTest{
		{name: "admin required", token: staffToken(t, member), body: []byte(`{"code":"CS302","name":"Networks","semester":3}`), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{name: "empty body", token: adminTok, body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "invalid semester", token: adminTok, body: []byte(`{"code":"CS302","name":"Networks","semester":11}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"semester":"semester must be between 1 and 8"}`)},
		{name: "duplicate code", token: adminTok, body: []byte(`{"code":" CS301 ","name":"Databases II","semester":3}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"code":"a subject with this code already exists"}`)},
		{
			name: "created", token: adminTok, body: []byte(`{"code":"CS302","name":"Networks","semester":3,"staff_id":"S001"}`), wantCode: http.StatusCreated,
			wantData: marshalObj(t, academic.Subject{Code: "CS302", Name: "Networks", Semester: 3, StaffID: "S001"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/api/subjects"
	}
	runTests(t, app, tests)

	_, count, err := repos.Audit.Query(context.Background(), audit.QueryFilter{Action: audit.ActionSubjectCreate}, audit.PageSize, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func Test_subjectApi_query(t *testing.T) {
	app := setup(t)

	member := testutil.CreateStaff(t, repos.Staff, "S001", "Jane Doe", "jane@test.edu", "", "", false)
	std := testutil.CreateStudent(t, repos.Student, "21CS001", "Hero", "hero@test.edu", "", 3)
	s1 := createSubject(t, "CS501", "Compilers", 5, "S001")
	s2 := createSubject(t, "CS302", "Networks", 3, "S002")
	s3 := createSubject(t, "CS301", "Databases", 3, "S001")
	token := staffToken(t, member)

	tests := []httpTest{
		{name: "staff required", path: "/api/subjects", token: studentToken(t, std), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{name: "all", path: "/api/subjects", token: token, wantData: marshalList(t, s3, s2, s1)},
		{name: "semester=3", path: "/api/subjects?semester=3", token: token, wantData: marshalList(t, s3, s2)},
		{name: "staff_id=S001", path: "/api/subjects?staff_id=S001", token: token, wantData: marshalList(t, s3, s1)},
		{name: "semester=3&staff_id=S001", path: "/api/subjects?semester=3&staff_id=S001", token: token, wantData: marshalList(t, s3)},
		{name: "bad semester ignored", path: "/api/subjects?semester=lol", token: token, wantData: marshalList(t, s3, s2, s1)},
	}
	runTests(t, app, tests)
}

func Test_subjectApi_attendance(t *testing.T) {
	app := setup(t)

	lecturer := testutil.CreateStaff(t, repos.Staff, "S001", "Jane Doe", "jane@test.edu", "", "", false)
	other := testutil.CreateStaff(t, repos.Staff, "S002", "Other", "other@test.edu", "", "", false)
	hod := testutil.CreateStaff(t, repos.Staff, "S003", "Head", "head@test.edu", "", staff.RoleHOD, false)
	admin := testutil.CreateStaff(t, repos.Staff, "ADM01", "Admin", "admin@test.edu", "", "", true)
	testutil.CreateStudent(t, repos.Student, "21CS001", "A", "a@test.edu", "", 3)
	testutil.CreateStudent(t, repos.Student, "21CS002", "B", "b@test.edu", "", 3)
	testutil.CreateStudent(t, repos.Student, "20CS001", "Senior", "senior@test.edu", "", 5)
	createSubject(t, "CS301", "Databases", 3, lecturer.ID)

	lecturerTok := staffToken(t, lecturer)
	path := "/api/subjects/CS301/attendance"
	sheet := []byte(`{"date":"2024-03-01","records":[{"roll_number":"21CS001","status":"Present"},{"roll_number":" 21CS002","status":"Absent"}]}`)

	tests := []httpTest{
		{name: "subject not found", path: "/api/subjects/lol/attendance", token: lecturerTok, body: sheet, wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
		{name: "not assigned", path: path, token: staffToken(t, other), body: sheet, wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{name: "HOD not assigned", path: path, token: staffToken(t, hod), body: sheet, wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{name: "no records", path: path, token: lecturerTok, body: []byte(`{"date":"2024-03-01","records":[]}`), wantCode: http.StatusBadRequest},
		{name: "invalid status", path: path, token: lecturerTok, body: []byte(`{"date":"2024-03-01","records":[{"roll_number":"21CS001","status":"Late"}]}`), wantCode: http.StatusBadRequest},
		{name: "date required", path: path, token: lecturerTok, body: []byte(`{"records":[{"roll_number":"21CS001","status":"Present"}]}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"date":"date is required"}`)},
		{
			name: "other semester student", path: path, token: lecturerTok, wantCode: http.StatusBadRequest,
			body:     []byte(`{"date":"2024-03-01","records":[{"roll_number":"20CS001","status":"Present"}]}`),
			wantData: []byte(`{"records":"20CS001 is not a semester 3 student"}`),
		},
		{name: "recorded", path: path, token: lecturerTok, body: sheet},
		{name: "admin overwrites", path: path, token: staffToken(t, admin), body: []byte(`{"date":"2024-03-01","records":[{"roll_number":"21CS002","status":"Present"}]}`)},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
	}
	runTests(t, app, tests)

	records, err := repos.Academic.SubjectAttendance(context.Background(), "CS301")
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "2024-03-01", rec.Date.String())
		assert.Equal(t, academic.StatusPresent, rec.Status, rec.RollNumber)
	}

	entries, _, err := repos.Audit.Query(context.Background(), audit.QueryFilter{Action: audit.ActionAttendance}, audit.PageSize, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "recorded attendance for 2024-03-01", entries[0].Message)
}

func Test_subjectApi_marks(t *testing.T) {
	app := setup(t)

	lecturer := testutil.CreateStaff(t, repos.Staff, "S001", "Jane Doe", "jane@test.edu", "", "", false)
	other := testutil.CreateStaff(t, repos.Staff, "S002", "Other", "other@test.edu", "", "", false)
	testutil.CreateStudent(t, repos.Student, "21CS001", "A", "a@test.edu", "", 3)
	testutil.CreateStudent(t, repos.Student, "21CS002", "B", "b@test.edu", "", 3)
	createSubject(t, "CS301", "Databases", 3, lecturer.ID)

	lecturerTok := staffToken(t, lecturer)
	path := "/api/subjects/CS301/marks"
	sheet := []byte(`{"marks":[{"roll_number":"21CS001","internal_marks":35.5},{"roll_number":"21CS002","internal_marks":null}]}`)

	tests := []httpTest{
		{name: "not assigned", token: staffToken(t, other), body: sheet, wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{name: "out of range", token: lecturerTok, body: []byte(`{"marks":[{"roll_number":"21CS001","internal_marks":101}]}`), wantCode: http.StatusBadRequest},
		{name: "unknown student", token: lecturerTok, body: []byte(`{"marks":[{"roll_number":"lol","internal_marks":50}]}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"marks":"lol is not a semester 3 student"}`)},
		{
			name: "recorded", token: lecturerTok, body: sheet,
			wantData: []byte(`[{"roll_number":"21CS001","subject_code":"CS301","internal_marks":35.5},{"roll_number":"21CS002","subject_code":"CS301","internal_marks":null}]`),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPut
		tests[i].path = path
	}
	runTests(t, app, tests)

	marks, err := repos.Academic.SubjectMarks(context.Background(), "CS301")
	require.NoError(t, err)
	require.Len(t, marks, 2)
	if assert.NotNil(t, marks[0].InternalMarks) {
		assert.Equal(t, 35.5, *marks[0].InternalMarks)
	}
	assert.Nil(t, marks[1].InternalMarks)
}

func Test_subjectApi_risk(t *testing.T) {
	app := setup(t)

	lecturer := testutil.CreateStaff(t, repos.Staff, "S001", "Jane Doe", "jane@test.edu", "", "", false)
	other := testutil.CreateStaff(t, repos.Staff, "S002", "Other", "other@test.edu", "", "", false)
	hod := testutil.CreateStaff(t, repos.Staff, "S003", "Head", "head@test.edu", "", staff.RoleHOD, false)
	testutil.CreateStudent(t, repos.Student, "21CS001", "A", "a@test.edu", "", 3)
	testutil.CreateStudent(t, repos.Student, "21CS002", "B", "b@test.edu", "", 3)
	testutil.CreateStudent(t, repos.Student, "21CS003", "C", "c@test.edu", "", 3)
	testutil.CreateStudent(t, repos.Student, "21CS004", "D", "d@test.edu", "", 3)
	subj := createSubject(t, "CS301", "Databases", 3, lecturer.ID)

	ctx := context.Background()
	day1, day2 := `"2024-03-01"`, `"2024-03-02"`
	lecturerTok := staffToken(t, lecturer)
	for _, sheet := range []string{
		`{"date":` + day1 + `,"records":[{"roll_number":"21CS001","status":"Present"},{"roll_number":"21CS002","status":"Absent"},{"roll_number":"21CS003","status":"Present"},{"roll_number":"21CS004","status":"Present"}]}`,
		`{"date":` + day2 + `,"records":[{"roll_number":"21CS001","status":"Present"},{"roll_number":"21CS002","status":"Absent"},{"roll_number":"21CS003","status":"Absent"},{"roll_number":"21CS004","status":"Present"}]}`,
	} {
		req, rec := newAuthRequest(http.MethodPost, "/api/subjects/CS301/attendance", lecturerTok, []byte(sheet))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	lowMark, goodMark := 35.0, 80.0
	require.NoError(t, repos.Academic.SaveMarks(ctx, []academic.Marks{
		{RollNumber: "21CS001", SubjectCode: "CS301", InternalMarks: &lowMark},
		{RollNumber: "21CS003", SubjectCode: "CS301", InternalMarks: &goodMark},
		{RollNumber: "21CS004", SubjectCode: "CS301", InternalMarks: &goodMark},
	}))

	want := marshalObj(t, RiskResponse{
		Subject: subj,
		Students: []academic.RiskStudent{
			{Name: "A", RollNumber: "21CS001", CurrentSemester: 3, AttendancePercentage: 100, InternalMarks: 35.0, RiskFactors: []string{"Low Internal (35)"}},
			{Name: "B", RollNumber: "21CS002", CurrentSemester: 3, AttendancePercentage: 0, InternalMarks: "-", RiskFactors: []string{"Low Attendance (0.0%)"}},
			{Name: "C", RollNumber: "21CS003", CurrentSemester: 3, AttendancePercentage: 50, InternalMarks: 80.0, RiskFactors: []string{"Low Attendance (50.0%)"}},
		},
	})

	tests := []httpTest{
		{name: "not assigned", token: staffToken(t, other), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{name: "assigned staff", token: lecturerTok, wantData: want},
		{name: "HOD", token: staffToken(t, hod), wantData: want},
	}
	for i := range tests {
		tests[i].path = "/api/subjects/CS301/risk"
	}
	runTests(t, app, tests)

	t.Run("no attendance taken", func(t *testing.T) {
		createSubject(t, "CS302", "Networks", 3, lecturer.ID)
		req, rec := newAuthRequest(http.MethodGet, "/api/subjects/CS302/risk", lecturerTok)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp RiskResponse
		decode(t, rec, &resp)
		assert.Empty(t, resp.Students)
	})
}
