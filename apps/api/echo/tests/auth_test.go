package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/auth"
	"github.com/nojinx/ssm/core/staff"
	"github.com/nojinx/ssm/tests"
)

func Test_home(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to SSM API!", rec.Body.String())
}

func Test_authApi_login(t *testing.T) {
	app := setup(t)

	testutil.CreateStaff(t, repos.Staff, "S001", "Jane Doe", "jane@test.edu", strongPwd, staff.RoleStaff, false)
	naughty := testutil.CreateStaff(t, repos.Staff, "S002", "N Dog", "ndog@test.edu", strongPwd, "", false)
	naughty.IsActive = false
	_, err := repos.Staff.Update(context.Background(), naughty)
	require.NoError(t, err)
	testutil.CreateStudent(t, repos.Student, "21CS001", "Hero", "hero@test.edu", "Pass1234", 3)

	badCreds := httpErr{Error: auth.ErrInvalidCredentials.Error()}
	tests := []httpTest{
		{name: "empty body", body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"username":"this field is required","password":"this field is required"}`)},
		{name: "unknown user", body: []byte(`{"username":"lol","password":"lol"}`), wantCode: http.StatusUnauthorized, wantData: marshalObj(t, badCreds)},
		{name: "wrong password", body: []byte(`{"username":"S001","password":"lol"}`), wantCode: http.StatusUnauthorized, wantData: marshalObj(t, badCreds)},
		{name: "inactive", body: []byte(`{"username":"S002","password":"` + strongPwd + `"}`), wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"})},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/api/auth/token"
	}
	runTests(t, app, tests)

	t.Run("staff, mobile client", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/auth/token", []byte(`{"username":" S001 ","password":"`+strongPwd+`"}`))
		req.Header.Set(auth.ClientTypeHeader, "mobile")
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var pair auth.TokenPair
		decode(t, rec, &pair)
		assert.NotEmpty(t, pair.Access)
		assert.NotEmpty(t, pair.Refresh)
		assert.Equal(t, auth.ClientMobile, pair.ClientType)
		assert.Empty(t, rec.Result().Cookies())

		claims, err := authSvc.Parse(context.Background(), pair.Access, auth.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "S001", claims.Subject)
		assert.True(t, claims.IsStaff)
	})

	t.Run("student, web client", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/auth/token", []byte(`{"username":"21CS001","password":"Pass1234"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var pair auth.TokenPair
		decode(t, rec, &pair)
		assert.Equal(t, auth.ClientWeb, pair.ClientType)

		cookies := make(map[string]*http.Cookie)
		for _, c := range rec.Result().Cookies() {
			cookies[c.Name] = c
		}
		if assert.Contains(t, cookies, "access_token") {
			assert.Equal(t, pair.Access, cookies["access_token"].Value)
			assert.True(t, cookies["access_token"].HttpOnly)
			assert.Equal(t, 1800, cookies["access_token"].MaxAge)
			assert.Equal(t, http.SameSiteLaxMode, cookies["access_token"].SameSite)
		}
		if assert.Contains(t, cookies, "refresh_token") {
			assert.Equal(t, pair.Refresh, cookies["refresh_token"].Value)
			assert.Equal(t, 86400, cookies["refresh_token"].MaxAge)
		}

		refresh, err := authSvc.Parse(context.Background(), pair.Refresh, auth.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, int64(24*60*60), refresh.ExpiresAt-refresh.IssuedAt)

		// the access cookie authenticates requests
		req, rec = newRequest(http.MethodGet, "/api/students/me")
		req.AddCookie(cookies["access_token"])
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("unknown client type is echoed back", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/auth/token", []byte(`{"username":"S001","password":"`+strongPwd+`"}`))
		req.Header.Set(auth.ClientTypeHeader, "Desktop")
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var pair auth.TokenPair
		decode(t, rec, &pair)
		assert.Equal(t, auth.ClientType("desktop"), pair.ClientType)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("logins are audited", func(t *testing.T) {
		ctx := context.Background()
		_, failed, err := repos.Audit.Query(ctx, audit.QueryFilter{Action: audit.ActionLoginFailed}, audit.PageSize, 0)
		require.NoError(t, err)
		assert.Equal(t, 3, failed)

		_, succeeded, err := repos.Audit.Query(ctx, audit.QueryFilter{Action: audit.ActionLogin}, audit.PageSize, 0)
		require.NoError(t, err)
		assert.Equal(t, 3, succeeded)
	})
}

func Test_authApi_refresh(t *testing.T) {
	app := setup(t)

	member := testutil.CreateStaff(t, repos.Staff, "S001", "Jane Doe", "jane@test.edu", strongPwd, "", false)
	pair := issue(t, auth.StaffPrincipal(member))

	tests := []httpTest{
		{name: "refresh required", body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"refresh":"This field is required."}`)},
		{name: "invalid token", body: []byte(`{"refresh":"lol"}`), wantCode: http.StatusUnauthorized, wantData: marshalObj(t, httpErr{Error: auth.ErrInvalidToken.Error()})},
		{name: "access token", body: marshalObj(t, map[string]string{"refresh": pair.Access}), wantCode: http.StatusUnauthorized, wantData: marshalObj(t, httpErr{Error: auth.ErrWrongTokenType.Error()})},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/api/auth/token/refresh"
	}
	runTests(t, app, tests)

	t.Run("refreshed", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/auth/token/refresh", marshalObj(t, map[string]string{"refresh": pair.Refresh}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Access string `json:"access"`
		}
		decode(t, rec, &resp)
		claims, err := authSvc.Parse(context.Background(), resp.Access, auth.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, member.ID, claims.Subject)
	})
}

func Test_authApi_logout(t *testing.T) {
	app := setup(t)

	member := testutil.CreateStaff(t, repos.Staff, "S001", "Jane Doe", "jane@test.edu", strongPwd, "", false)
	pair := issue(t, auth.StaffPrincipal(member))
	refreshBody := marshalObj(t, map[string]string{"refresh": pair.Refresh})
	loggedOut := []byte(`{"success":"Successfully logged out."}`)

	tests := []httpTest{
		{name: "invalid token", method: http.MethodPost, path: "/api/auth/logout", body: []byte(`{"refresh":"lol"}`), wantCode: http.StatusBadRequest},
		{name: "logout", method: http.MethodPost, path: "/api/auth/logout", body: refreshBody, wantCode: http.StatusResetContent, wantData: loggedOut},
		{
			name: "revoked token cannot refresh", method: http.MethodPost, path: "/api/auth/token/refresh", body: refreshBody,
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, httpErr{Error: auth.ErrTokenBlacklisted.Error()}),
		},
		{name: "logout again", method: http.MethodPost, path: "/api/auth/logout", body: refreshBody, wantCode: http.StatusResetContent, wantData: loggedOut},
		{name: "logout without token", method: http.MethodPost, path: "/api/auth/logout", wantCode: http.StatusResetContent, wantData: loggedOut},
	}
	runTests(t, app, tests)

	entries, count, err := repos.Audit.Query(context.Background(), audit.QueryFilter{Action: audit.ActionLogout}, audit.PageSize, 0)
	require.NoError(t, err)
	require.Equal(t, 3, count)
	actors := make(map[string]int)
	for _, e := range entries {
		actors[e.ActorType]++
	}
	assert.Equal(t, map[string]int{audit.ActorStaff: 1, audit.ActorAnonymous: 2}, actors)
}

func Test_jwtMiddleware(t *testing.T) {
	app := setup(t)

	member := testutil.CreateStaff(t, repos.Staff, "S001", "Jane Doe", "jane@test.edu", strongPwd, "", false)
	token := staffToken(t, member)
	refresh := issue(t, auth.StaffPrincipal(member)).Refresh

	gone := testutil.CreateStaff(t, repos.Staff, "S002", "Gone", "gone@test.edu", "", "", false)
	goneToken := staffToken(t, gone)
	require.NoError(t, repos.Staff.Delete(context.Background(), gone.ID))

	inactive := testutil.CreateStaff(t, repos.Staff, "S003", "Off", "off@test.edu", "", "", false)
	inactiveToken := staffToken(t, inactive)
	inactive = reloadStaff(t, inactive)
	inactive.IsActive = false
	_, err := repos.Staff.Update(context.Background(), inactive)
	require.NoError(t, err)

	invalid := httpErr{Error: "invalid or expired jwt"}
	tests := []httpTest{
		{name: "no token", path: "/api/staff/me", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "garbage token", path: "/api/staff/me", token: "lol", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, invalid)},
		{name: "refresh token", path: "/api/staff/me", token: refresh, wantCode: http.StatusUnauthorized, wantData: marshalObj(t, invalid)},
		{name: "deleted account", path: "/api/staff/me", token: goneToken, wantCode: http.StatusUnauthorized, wantData: marshalObj(t, invalid)},
		{name: "inactive account", path: "/api/staff/me", token: inactiveToken, wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"})},
		{name: "ok", path: "/api/staff/me", token: token},
	}
	runTests(t, app, tests)

	t.Run("access cookie", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/staff/me")
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got staff.Staff
		decode(t, rec, &got)
		assert.Equal(t, "S001", got.ID)
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/staff/me", "lol")
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marshalObj(t, invalid)}, rec)
	})

	t.Run("other scheme", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/staff/me")
		req.Header.Set("Authorization", "Token "+token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)}, rec)
	})

	t.Run("other signing method", func(t *testing.T) {
		forged := jwt.NewWithClaims(jwt.SigningMethodHS512, &auth.Claims{
			StandardClaims: jwt.StandardClaims{Subject: "S001", ExpiresAt: time.Now().Add(time.Hour).Unix()},
			TokenType:      auth.AccessToken,
			Kind:           auth.KindStaff,
		})
		signed, err := forged.SignedString([]byte(core.NewTestConfig().SecretKey))
		require.NoError(t, err)

		req, rec := newAuthRequest(http.MethodGet, "/api/staff/me", signed)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marshalObj(t, invalid)}, rec)
	})
}
