package tests

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/atcloud/signup/core/event"
	"github.com/atcloud/signup/core/user"
	emailsvc "github.com/atcloud/signup/services/email"
	testutil "github.com/atcloud/signup/tests"
)

func createTestEvent(t *testing.T, app *testApp, evt event.Event, organizer user.User) event.Event {
	evt.OrganizerID = organizer.ID
	if evt.Date.IsZero() {
		evt.Date = time.Now().UTC().Add(7 * 24 * time.Hour)
	}
	return testutil.CreateEvent(t, app.evtRepo, evt)
}

func Test_eventApi_auth(t *testing.T) {
	app := setup(t)

	leader := testutil.CreateUser(t, app.usrRepo, "Leader", "lead", "lead@test.cd", "pwd", []string{user.RoleLeader}, true)
	participant := testutil.CreateUser(t, app.usrRepo, "Part", "part", "part@test.cd", "pwd", nil, true)
	evt := createTestEvent(t, app, event.Event{Title: "E", Format: event.FormatInPerson, Location: "Hall"}, leader)

	tests := []httpTest{
		{
			name: "anonymous can list", method: http.MethodGet, path: "/v1/events",
			wantCode: http.StatusOK,
		},
		{
			name: "anonymous can retrieve", method: http.MethodGet, path: "/v1/events/" + evt.ID,
			wantCode: http.StatusOK,
		},
		{
			name: "create requires auth", method: http.MethodPost, path: "/v1/events",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "publish requires auth", method: http.MethodPost, path: "/v1/events/" + evt.ID + "/publish",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "participants cannot publish", method: http.MethodPost, path: "/v1/events/" + evt.ID + "/publish",
			token: getToken(t, participant), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}
}

func Test_eventApi_ownership(t *testing.T) {
	app := setup(t)

	owner := testutil.CreateUser(t, app.usrRepo, "Owner", "owner", "owner@test.cd", "pwd", []string{user.RoleLeader}, true)
	other := testutil.CreateUser(t, app.usrRepo, "Other", "other", "other@test.cd", "pwd", []string{user.RoleLeader}, true)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@test.cd", "pwd", []string{user.RoleAdmin}, true)

	evt := createTestEvent(t, app, event.Event{
		Title:    "Hall night",
		Format:   event.FormatInPerson,
		Location: "Main Hall",
	}, owner)

	denied := marchallObj(t, httpErr{Error: "permission denied"})
	tests := []httpTest{
		{
			name: "another leader cannot update", method: http.MethodPut, path: "/v1/events/" + evt.ID,
			token: getToken(t, other), body: []byte(`{"title": "mine now"}`),
			wantCode: http.StatusForbidden, wantData: denied,
		},
		{
			name: "another leader cannot publish", method: http.MethodPost, path: "/v1/events/" + evt.ID + "/publish",
			token: getToken(t, other), wantCode: http.StatusForbidden, wantData: denied,
		},
		{
			name: "another leader cannot unpublish", method: http.MethodPost, path: "/v1/events/" + evt.ID + "/unpublish",
			token: getToken(t, other), wantCode: http.StatusForbidden, wantData: denied,
		},
		{
			name: "another leader cannot delete", method: http.MethodDelete, path: "/v1/events/" + evt.ID,
			token: getToken(t, other), wantCode: http.StatusForbidden, wantData: denied,
		},
		{
			name: "the organizer can publish", method: http.MethodPost, path: "/v1/events/" + evt.ID + "/publish",
			token: getToken(t, owner), wantCode: http.StatusOK,
		},
		{
			name: "an admin can delete", method: http.MethodDelete, path: "/v1/events/" + evt.ID,
			token: getToken(t, admin), wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("failed! code = %v; wantCode %v (body: %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}

	// only the admin delete went through
	req, rec := newRequest(http.MethodGet, "/v1/events/"+evt.ID)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %v, want 404 after the admin delete", rec.Code)
	}
}

func Test_eventApi_publish_missingFieldsContract(t *testing.T) {
	app := setup(t)

	leader := testutil.CreateUser(t, app.usrRepo, "Leader", "lead", "lead@test.cd", "pwd", []string{user.RoleLeader}, true)
	token := getToken(t, leader)

	evt := createTestEvent(t, app, event.Event{
		Title:    "Online night",
		Format:   event.FormatOnline,
		ZoomLink: "https://x",
		Passcode: "1234",
	}, leader)

	wantBody := marchallObj(t, map[string]interface{}{
		"success": false,
		"code":    "MISSING_REQUIRED_FIELDS",
		"format":  "Online",
		"missing": []string{"meetingId"},
		"message": "Missing necessary field(s) for publishing: meetingId.",
		"errors": []map[string]string{
			{
				"field":   "meetingId",
				"code":    "MISSING",
				"message": "meetingId is required to publish this Online event.",
			},
			{
				"field":   "__aggregate__",
				"code":    "MISSING_REQUIRED_FIELDS",
				"message": "Missing necessary field(s) for publishing: meetingId.",
			},
		},
	})

	tt := httpTest{
		name: "422 contract", method: http.MethodPost, path: "/v1/events/" + evt.ID + "/publish",
		token: token, wantCode: http.StatusUnprocessableEntity, wantData: wantBody,
	}
	req, rec := newAuthRequest(tt.method, tt.path, tt.token)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)

	// several blanks come back in matrix order
	empty := createTestEvent(t, app, event.Event{Title: "Blank", Format: event.FormatHybrid}, leader)
	req, rec = newAuthRequest(http.MethodPost, "/v1/events/"+empty.ID+"/publish", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %v, want 422", rec.Code)
	}
	body := rec.Body.String()
	want := `"missing":["location","zoomLink","meetingId","passcode"]`
	if !strings.Contains(body, want) {
		t.Errorf("body %s should contain %s", body, want)
	}
}

func Test_eventApi_publish_unsupportedFormat(t *testing.T) {
	app := setup(t)

	leader := testutil.CreateUser(t, app.usrRepo, "Leader", "lead", "lead@test.cd", "pwd", []string{user.RoleLeader}, true)
	evt := createTestEvent(t, app, event.Event{Title: "???", Format: "Metaverse"}, leader)

	req, rec := newAuthRequest(http.MethodPost, "/v1/events/"+evt.ID+"/publish", getToken(t, leader))
	app.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %v, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"UNSUPPORTED_FORMAT"`) {
		t.Errorf("body %s should carry UNSUPPORTED_FORMAT", rec.Body.String())
	}
}

func Test_eventApi_publish_success(t *testing.T) {
	app := setup(t)

	leader := testutil.CreateUser(t, app.usrRepo, "Leader", "lead", "lead@test.cd", "pwd", []string{user.RoleLeader}, true)
	evt := createTestEvent(t, app, event.Event{
		Title:    "Hall night",
		Format:   event.FormatInPerson,
		Location: "Main Hall",
	}, leader)

	req, rec := newAuthRequest(http.MethodPost, "/v1/events/"+evt.ID+"/publish", getToken(t, leader))
	app.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	got := decodeEvent(t, rec)
	if !got.Publish || got.PublishedAt == nil {
		t.Error("publish response must carry publish=true and publishedAt")
	}
}

func Test_eventApi_update_autoUnpublish(t *testing.T) {
	app := setup(t)

	leader := testutil.CreateUser(t, app.usrRepo, "Leader", "lead", "lead@test.cd", "pwd", []string{user.RoleLeader}, true)
	token := getToken(t, leader)

	evt := createTestEvent(t, app, event.Event{
		Title:    "Hall night",
		Format:   event.FormatInPerson,
		Location: "Main Hall",
	}, leader)

	req, rec := newAuthRequest(http.MethodPost, "/v1/events/"+evt.ID+"/publish", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("publish failed: %v %s", rec.Code, rec.Body.String())
	}
	emailsvc.ClearSentMessages()

	// an update is never rejected; blanking location demotes with stamps in the response
	req, rec = newAuthRequest(http.MethodPut, "/v1/events/"+evt.ID, token, []byte(`{"location": "   "}`))
	app.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	got := decodeEvent(t, rec)
	if got.Publish {
		t.Error("response must show publish=false after auto-unpublish")
	}
	if got.AutoUnpublishedAt == nil {
		t.Error("response must carry autoUnpublishedAt")
	}
	if got.AutoUnpublishReason != event.AutoUnpublishReasonIncompleteFields {
		t.Errorf("autoUnpublishReason = %q, want %q", got.AutoUnpublishReason, event.AutoUnpublishReasonIncompleteFields)
	}

	// the organizer was notified
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("expected 1 notification email, got %d", len(emailsvc.SentMessages))
	}
	if to := emailsvc.SentMessages[0].To[0].Address; to != leader.Email {
		t.Errorf("notification went to %s, want %s", to, leader.Email)
	}
}

func Test_eventApi_update_keepsPublishWhenStillComplete(t *testing.T) {
	app := setup(t)

	leader := testutil.CreateUser(t, app.usrRepo, "Leader", "lead", "lead@test.cd", "pwd", []string{user.RoleLeader}, true)
	token := getToken(t, leader)

	evt := createTestEvent(t, app, event.Event{
		Title:     "Big one",
		Format:    event.FormatHybrid,
		Location:  "Main Hall",
		ZoomLink:  "https://x",
		MeetingID: "123",
		Passcode:  "1234",
	}, leader)

	req, rec := newAuthRequest(http.MethodPost, "/v1/events/"+evt.ID+"/publish", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("publish failed: %v %s", rec.Code, rec.Body.String())
	}

	// switching to In-person only needs location, which is set
	req, rec = newAuthRequest(http.MethodPut, "/v1/events/"+evt.ID, token, []byte(`{"format": "In-person"}`))
	app.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	got := decodeEvent(t, rec)
	if !got.Publish {
		t.Error("event must stay published when the new format's matrix is satisfied")
	}
	if got.AutoUnpublishedAt != nil || got.AutoUnpublishReason != "" {
		t.Error("no auto-unpublish stamps expected")
	}
}

func Test_eventApi_unpublish(t *testing.T) {
	app := setup(t)

	leader := testutil.CreateUser(t, app.usrRepo, "Leader", "lead", "lead@test.cd", "pwd", []string{user.RoleLeader}, true)
	token := getToken(t, leader)

	evt := createTestEvent(t, app, event.Event{
		Title:    "Hall night",
		Format:   event.FormatInPerson,
		Location: "Main Hall",
	}, leader)

	req, rec := newAuthRequest(http.MethodPost, "/v1/events/"+evt.ID+"/publish", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("publish failed: %v %s", rec.Code, rec.Body.String())
	}

	req, rec = newAuthRequest(http.MethodPost, "/v1/events/"+evt.ID+"/unpublish", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	got := decodeEvent(t, rec)
	if got.Publish || got.PublishedAt != nil {
		t.Error("unpublish response must show a draft")
	}

	// idempotent
	req, rec = newAuthRequest(http.MethodPost, "/v1/events/"+evt.ID+"/unpublish", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("second unpublish code = %v, want 200", rec.Code)
	}
}

func Test_eventApi_create(t *testing.T) {
	app := setup(t)

	leader := testutil.CreateUser(t, app.usrRepo, "Leader", "lead", "lead@test.cd", "pwd", []string{user.RoleLeader}, true)
	token := getToken(t, leader)

	body := []byte(`{
		"title": "Go Meetup",
		"format": "Online",
		"date": "2026-09-01T18:00:00Z"
	}`)
	req, rec := newAuthRequest(http.MethodPost, "/v1/events", token, body)
	app.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v, want 201 (body: %s)", rec.Code, rec.Body.String())
	}
	got := decodeEvent(t, rec)
	if got.Publish {
		t.Error("new events are drafts")
	}
	if got.OrganizerID != leader.ID {
		t.Errorf("organizerId = %s, want %s", got.OrganizerID, leader.ID)
	}

	// validation: unknown format is rejected at the door
	req, rec = newAuthRequest(http.MethodPost, "/v1/events", token,
		[]byte(`{"title": "x", "format": "Metaverse", "date": "2026-09-01T18:00:00Z"}`))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %v, want 400 (body: %s)", rec.Code, rec.Body.String())
	}
}

func Test_eventApi_notFound(t *testing.T) {
	app := setup(t)

	leader := testutil.CreateUser(t, app.usrRepo, "Leader", "lead", "lead@test.cd", "pwd", []string{user.RoleLeader}, true)
	token := getToken(t, leader)

	paths := []httpTest{
		{method: http.MethodGet, path: "/v1/events/nope"},
		{method: http.MethodPost, path: "/v1/events/nope/publish", token: token},
		{method: http.MethodPost, path: "/v1/events/nope/unpublish", token: token},
		{method: http.MethodPut, path: "/v1/events/nope", token: token, body: []byte(`{}`)},
	}
	for _, tt := range paths {
		req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s code = %v, want 404", tt.method, tt.path, rec.Code)
		}
	}
}
