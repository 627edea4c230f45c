package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/atcloud/signup/core/user"
	emailsvc "github.com/atcloud/signup/services/email"
	testutil "github.com/atcloud/signup/tests"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, app.usrRepo, "User", "awe", "awe@test.cd", "(-_-)zzZZ", nil, true)
	inactive := testutil.CreateUser(t, app.usrRepo, "Gone", "gone", "gone@test.cd", "(-_-)zzZZ", nil, false)

	tests := []httpTest{
		{
			name: "empty body", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username": "this field is required",
				"password": "this field is required",
			}),
		},
		{
			name: "unknown user", body: []byte(`{"username": "nope", "password": "x"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: []byte(`{"username": "` + usr.Username + `", "password": "nope"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: []byte(`{"username": "` + inactive.Username + `", "password": "(-_-)zzZZ"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "login with username", body: []byte(`{"username": "` + usr.Username + `", "password": "(-_-)zzZZ"}`),
			wantCode: http.StatusOK,
		},
		{
			name: "login with email", body: []byte(`{"username": "` + usr.Email + `", "password": "(-_-)zzZZ"}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.server.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v, want %v (body: %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			var res struct {
				Token string `json:"token"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil || res.Token == "" {
				t.Errorf("expected a token in response, got %s", rec.Body.String())
			}
		})
	}
}

func Test_userApi_register(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@test.cd", "pwd", []string{user.RoleAdmin}, true)
	leader := testutil.CreateUser(t, app.usrRepo, "Leader", "lead", "lead@test.cd", "pwd", []string{user.RoleLeader}, true)

	body := []byte(`{
		"name": "New One",
		"username": "newone",
		"email": "newone@test.cd",
		"password": "G0aw4y(-_-)zzZZ"
	}`)

	tests := []httpTest{
		{
			name: "auth required", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "admin required", token: getToken(t, leader), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "admin creates", token: getToken(t, admin), body: body, wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v, want %v (body: %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			var created user.User
			if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
				t.Fatalf("decoding user: %v", err)
			}
			if created.Username != "newone" {
				t.Errorf("username = %s", created.Username)
			}
			// default role applies
			if len(created.Roles) != 1 || created.Roles[0] != user.RoleParticipant {
				t.Errorf("roles = %v, want [participant]", created.Roles)
			}
			// welcome email goes out
			if len(emailsvc.SentMessages) == 0 {
				t.Error("expected a welcome email")
			}
		})
	}
}

func Test_userApi_passwordReset(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, app.usrRepo, "User", "awe", "awe@test.cd", "0ld(-_-)zzZZ", nil, true)

	// request the reset email
	req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", []byte(`{"email": "`+usr.Email+`"}`))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("expected 1 reset email, got %d", len(emailsvc.SentMessages))
	}

	// unknown emails get the same 200, and no email
	emailsvc.ClearSentMessages()
	req, rec = newRequest(http.MethodPost, "/v1/users/password-reset", []byte(`{"email": "who@test.cd"}`))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("code = %v, want 200 for unknown email", rec.Code)
	}
	if len(emailsvc.SentMessages) != 0 {
		t.Error("no email expected for an unknown address")
	}

	// confirm with a real uid/token pair
	uid := user.EncodeUID(usr)
	token, err := user.MakeToken(usr)
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}
	body := marchallObj(t, map[string]string{
		"uid":      uid,
		"token":    token,
		"password": "N3w(-_-)zzZZ",
	})
	req, rec = newRequest(http.MethodPost, "/v1/users/password-reset-confirm", body)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v, want 200 (body: %s)", rec.Code, rec.Body.String())
	}

	refreshed, err := app.usrRepo.GetUserByID(req.Context(), usr.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if err := refreshed.CheckPassword("N3w(-_-)zzZZ"); err != nil {
		t.Error("password was not updated")
	}

	// a bad token is rejected
	body = marchallObj(t, map[string]string{"uid": uid, "token": "HE4TS-sigsig-sig", "password": "x"})
	req, rec = newRequest(http.MethodPost, "/v1/users/password-reset-confirm", body)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %v, want 400 for a bad token", rec.Code)
	}
}

func Test_userApi_tokenRefresh(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, app.usrRepo, "User", "awe", "awe@test.cd", "pwd", nil, true)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, usr))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "token") {
		t.Errorf("expected a refreshed token, got %s", rec.Body.String())
	}
}

func Test_userApi_retrieve(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@test.cd", "pwd", []string{user.RoleAdmin}, true)
	usr := testutil.CreateUser(t, app.usrRepo, "User", "awe", "awe@test.cd", "pwd", nil, true)

	tests := []httpTest{
		{name: "self", path: "/v1/users/" + usr.ID, token: getToken(t, usr), wantCode: http.StatusOK},
		{name: "admin can see anyone", path: "/v1/users/" + usr.ID, token: getToken(t, admin), wantCode: http.StatusOK},
		{name: "others are hidden", path: "/v1/users/" + admin.ID, token: getToken(t, usr), wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("code = %v, want %v (body: %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}
