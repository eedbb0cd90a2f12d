package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/news"
	"github.com/nojinx/ssm/tests"
)

var newsNow = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

func mockNewsNow(t *testing.T) {
	orig := news.NowFunc
	news.NowFunc = func() time.Time { return newsNow }
	t.Cleanup(func() { news.NowFunc = orig })
}

func createNews(t *testing.T, content, target string, age time.Duration, opts ...func(*news.News)) news.News {
	n := news.News{
		ID:       uuid.New().String(),
		Content:  content,
		Target:   target,
		Date:     newsNow.Add(-age),
		IsActive: true,
	}
	for _, opt := range opts {
		opt(&n)
	}
	n, err := repos.News.Create(context.Background(), n)
	require.NoError(t, err)
	return n
}

func Test_newsApi_visible(t *testing.T) {
	app := setup(t)
	mockNewsNow(t)

	member := testutil.CreateStaff(t, repos.Staff, "S001", "Jane Doe", "jane@test.edu", "", "", false)
	std := testutil.CreateStudent(t, repos.Student, "21CS001", "Hero", "hero@test.edu", "", 3)

	everyone := createNews(t, "Holiday on Monday", news.TargetAll, time.Hour, func(n *news.News) {
		n.NewIndicatorStart = core.NewDate(2024, time.June, 14)
		n.NewIndicatorEnd = core.NewDate(2024, time.June, 16)
	})
	staffOnly := createNews(t, "Staff meeting", news.TargetStaff, 2*time.Hour, func(n *news.News) {
		n.StartDate = core.NewDate(2024, time.June, 15)
		n.EndDate = core.NewDate(2024, time.June, 15)
	})
	studentsOnly := createNews(t, "Exam schedule", news.TargetStudents, 3*time.Hour, func(n *news.News) {
		n.NewIndicatorStart = core.NewDate(2024, time.June, 1)
		n.NewIndicatorEnd = core.NewDate(2024, time.June, 2)
	})
	createNews(t, "Inactive", news.TargetAll, time.Minute, func(n *news.News) { n.IsActive = false })
	createNews(t, "Future", news.TargetAll, time.Minute, func(n *news.News) { n.StartDate = core.NewDate(2024, time.June, 16) })
	createNews(t, "Ended", news.TargetAll, time.Minute, func(n *news.News) { n.EndDate = core.NewDate(2024, time.June, 14) })

	tests := []httpTest{
		{name: "auth required", path: "/api/news", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "staff", path: "/api/news", token: staffToken(t, member),
			wantData: marshalList(t,
				news.VisibleNews{News: everyone, ShowNewIndicator: true},
				news.VisibleNews{News: staffOnly},
			),
		},
		{
			name: "students", path: "/api/news", token: studentToken(t, std),
			wantData: marshalList(t,
				news.VisibleNews{News: everyone, ShowNewIndicator: true},
				news.VisibleNews{News: studentsOnly},
			),
		},
	}
	runTests(t, app, tests)
}

func Test_newsApi_crud(t *testing.T) {
	app := setup(t)
	mockNewsNow(t)

	admin := testutil.CreateStaff(t, repos.Staff, "ADM01", "Admin", "admin@test.edu", "", "", true)
	member := testutil.CreateStaff(t, repos.Staff, "S001", "Jane Doe", "jane@test.edu", "", "", false)
	adminTok := staffToken(t, admin)
	memberTok := staffToken(t, member)
	existing := createNews(t, "Library closed", news.TargetStaff, time.Hour)
	detail := "/api/news/" + existing.ID

	tests := []httpTest{
		{name: "create: admin required", method: http.MethodPost, path: "/api/news", token: memberTok, body: []byte(`{"content":"lol"}`), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{name: "create: content required", method: http.MethodPost, path: "/api/news", token: adminTok, body: []byte(`{"content":"  "}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"content":"this field is required"}`)},
		{name: "create: invalid target", method: http.MethodPost, path: "/api/news", token: adminTok, body: []byte(`{"content":"lol","target":"parents"}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"target":"target must be one of all, staff or students"}`)},
		{
			name: "create: end before start", method: http.MethodPost, path: "/api/news", token: adminTok, wantCode: http.StatusBadRequest,
			body:     []byte(`{"content":"lol","start_date":"2024-06-20","end_date":"2024-06-10"}`),
			wantData: []byte(`{"end_date":"end date cannot be before start date"}`),
		},
		{name: "create", method: http.MethodPost, path: "/api/news", token: adminTok, body: []byte(`{"content":" Sports day ","end_date":"2024-06-30"}`), wantCode: http.StatusCreated},
		{name: "retrieve: admin required", path: detail, token: memberTok, wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{name: "retrieve: not found", path: "/api/news/lol", token: adminTok, wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
		{name: "retrieve", path: detail, token: adminTok, wantData: marshalObj(t, existing)},
		{name: "update", method: http.MethodPut, path: detail, token: adminTok, body: []byte(`{"content":"Library open","target":"ALL","is_active":false}`)},
		{name: "delete", method: http.MethodDelete, path: detail, token: adminTok, wantCode: http.StatusNoContent},
		{name: "delete again", method: http.MethodDelete, path: detail, token: adminTok, wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
	}
	runTests(t, app, tests)

	items, err := repos.News.Query(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Sports day", items[0].Content)
	assert.Equal(t, news.TargetAll, items[0].Target)
	assert.True(t, items[0].IsActive)
	assert.Equal(t, "2024-06-30", items[0].EndDate.String())
	assert.Equal(t, newsNow, items[0].Date)

	ctx := context.Background()
	for action, want := range map[string]int{audit.ActionNewsCreate: 1, audit.ActionNewsUpdate: 1, audit.ActionNewsDelete: 1} {
		_, count, err := repos.Audit.Query(ctx, audit.QueryFilter{Action: action}, audit.PageSize, 0)
		require.NoError(t, err)
		assert.Equal(t, want, count, action)
	}
}

func Test_newsApi_query(t *testing.T) {
	app := setup(t)
	mockNewsNow(t)

	admin := testutil.CreateStaff(t, repos.Staff, "ADM01", "Admin", "admin@test.edu", "", "", true)
	member := testutil.CreateStaff(t, repos.Staff, "S001", "Jane Doe", "jane@test.edu", "", "", false)
	token := staffToken(t, admin)

	n1 := createNews(t, "First", news.TargetAll, 3*time.Hour)
	n2 := createNews(t, "Second", news.TargetStaff, 2*time.Hour, func(n *news.News) { n.IsActive = false })
	n3 := createNews(t, "Third", news.TargetStaff, time.Hour)

	tests := []httpTest{
		{name: "admin required", path: "/api/news/all", token: staffToken(t, member), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbidden)},
		{name: "all, newest first", path: "/api/news/all", token: token, wantData: marshalList(t, n3, n2, n1)},
		{name: "target=staff", path: "/api/news/all?target=staff", token: token, wantData: marshalList(t, n3, n2)},
		{name: "target=students", path: "/api/news/all?target=students", token: token, wantData: marshalList(t)},
	}
	runTests(t, app, tests)
}
