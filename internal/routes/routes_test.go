package routes

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"

	"venuepermits/internal/config"
	"venuepermits/internal/models"
	"venuepermits/internal/repository/memory"
)

const testSecret = "dev"

type healthResp struct {
	Status string `json:"status"`
	DB     struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	} `json:"db"`
}

func testConfig() *config.Config {
	return &config.Config{JWTSecret: testSecret, JWTExpiresInSeconds: 3600, CORSAllowedOrigins: []string{"*"}, MaxDocumentBytes: 1 << 20}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRootReturnsJSON(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	r := SetupRoutes(PostgresStores(db, nil), testConfig(), quietLogger())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %q", ct)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["message"] == "" {
		t.Fatalf("expected message, got %v", body)
	}
}

func TestHealthDBOK(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectPing()

	r := SetupRoutes(PostgresStores(db, nil), testConfig(), quietLogger())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var resp healthResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.DB.Status != "ok" {
		t.Fatalf("expected db ok, got %+v", resp)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHealthDBDown(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectPing().WillReturnError(sql.ErrConnDone)

	r := SetupRoutes(PostgresStores(db, nil), testConfig(), quietLogger())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d (%s)", w.Code, w.Body.String())
	}
	var resp healthResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.DB.Status != "down" {
		t.Fatalf("expected db down, got %+v", resp)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHealthMemoryStore(t *testing.T) {
	r := SetupRoutes(MemoryStores(memory.NewStore(), nil), testConfig(), quietLogger())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

type apiClient struct {
	t *testing.T
	h http.Handler
}

func token(t *testing.T, id string, role models.Role) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  id,
		"role": string(role),
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func (c apiClient) do(method, path, bearer string, body any, out any) int {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			c.t.Fatalf("%s %s: invalid json %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code
}

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func TestBookingAndPermitFlowOverHTTP(t *testing.T) {
	store := memory.NewStore()
	blobs := memory.NewBlobs("http://files.local")
	c := apiClient{t: t, h: SetupRoutes(MemoryStores(store, blobs), testConfig(), quietLogger())}

	var signup models.User
	if code := c.do(http.MethodPost, "/api/v1/auth/signup", "", map[string]any{
		"username": "organizer", "email": "org@example.com", "password": "secret1",
	}, &signup); code != http.StatusCreated {
		t.Fatalf("signup: %d", code)
	}
	var login models.LoginResponse
	if code := c.do(http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"identifier": "organizer", "password": "secret1",
	}, &login); code != http.StatusOK || login.AccessToken == "" {
		t.Fatalf("login: %d %+v", code, login)
	}
	org := login.AccessToken
	mgr := token(t, "mgr-1", models.RoleVenueManager)
	auth := token(t, "auth-1", models.RoleAuthority)

	var venue models.Venue
	if code := c.do(http.MethodPost, "/api/v1/venues", mgr, map[string]any{
		"name": "Kigali Arena", "address": "KG 17 Ave", "latitude": -1.9536, "longitude": 30.0606,
	}, &venue); code != http.StatusCreated {
		t.Fatalf("create venue: %d", code)
	}
	if code := c.do(http.MethodPost, "/api/v1/venues", org, map[string]any{
		"name": "x", "address": "y", "latitude": 0, "longitude": 0,
	}, nil); code != http.StatusForbidden {
		t.Fatalf("organizer create venue: expected 403 got %d", code)
	}

	var found []models.VenueSearchResult
	if code := c.do(http.MethodGet, "/api/v1/venues/search?lat=-1.9536&long=30.0606&radius_km=5", "", nil, &found); code != http.StatusOK || len(found) != 1 {
		t.Fatalf("search: %d %d", code, len(found))
	}
	if code := c.do(http.MethodGet, "/api/v1/venues/search?lat=abc&long=1", "", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("bad search: expected 400 got %d", code)
	}

	var a models.Booking
	if code := c.do(http.MethodPost, "/api/v1/bookings", org, map[string]any{
		"venue_id": venue.ID, "start_date": "2026-02-01T00:00:00Z", "end_date": "2026-02-02T00:00:00Z",
		"event_name": "Launch", "details": "evening",
	}, &a); code != http.StatusCreated {
		t.Fatalf("submit A: %d", code)
	}
	if code := c.do(http.MethodPatch, "/api/v1/bookings/"+a.ID+"/status", mgr, map[string]any{"status": "APPROVED"}, nil); code != http.StatusOK {
		t.Fatalf("approve A: %d", code)
	}

	var conflict errorBody
	if code := c.do(http.MethodPost, "/api/v1/bookings", org, map[string]any{
		"venue_id": venue.ID, "start_date": "2026-02-01T12:00:00Z", "end_date": "2026-02-03T00:00:00Z",
		"event_name": "Clash", "details": "overlap",
	}, &conflict); code != http.StatusConflict {
		t.Fatalf("submit B: expected 409 got %d", code)
	}
	if conflict.Error != "conflict" || conflict.Details["conflicting_booking_id"] != a.ID {
		t.Fatalf("unexpected conflict body %+v", conflict)
	}

	var permit models.Permit
	if code := c.do(http.MethodPost, "/api/v1/permits", org, map[string]any{
		"booking_id": a.ID, "type": "NOISE_CONTROL", "details": "music",
	}, &permit); code != http.StatusCreated {
		t.Fatalf("apply permit: %d", code)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "plan.pdf")
	_, _ = fw.Write([]byte("%PDF-1.4 plan"))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/permits/"+permit.ID+"/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+org)
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: %d (%s)", w.Code, w.Body.String())
	}

	var docs []models.PermitDocument
	if code := c.do(http.MethodGet, "/api/v1/permits/"+permit.ID+"/documents", auth, nil, &docs); code != http.StatusOK || len(docs) != 1 {
		t.Fatalf("list docs: %d %d", code, len(docs))
	}

	var declined models.Permit
	if code := c.do(http.MethodPatch, "/api/v1/permits/"+permit.ID+"/status", auth, map[string]any{
		"status": "DECLINED", "authority_notes": "insufficient plan",
	}, &declined); code != http.StatusOK || declined.AuthorityNotes != "insufficient plan" {
		t.Fatalf("decline: %d %+v", code, declined)
	}
	if code := c.do(http.MethodPatch, "/api/v1/permits/"+permit.ID+"/status", auth, map[string]any{"status": "DECLINED"}, nil); code != http.StatusConflict {
		t.Fatalf("second decline: expected 409 got %d", code)
	}

	if code := c.do(http.MethodDelete, "/api/v1/venues/"+venue.ID, mgr, nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete venue: %d", code)
	}
	if blobs.Len() != 0 {
		t.Fatalf("documents left after venue delete: %d", blobs.Len())
	}
	if code := c.do(http.MethodGet, "/api/v1/bookings/"+a.ID, auth, nil, nil); code != http.StatusNotFound {
		t.Fatalf("booking after cascade: expected 404 got %d", code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	c := apiClient{t: t, h: SetupRoutes(MemoryStores(memory.NewStore(), nil), testConfig(), quietLogger())}
	for _, path := range []string{"/api/v1/bookings", "/api/v1/permits", "/api/v1/venues"} {
		var body errorBody
		if code := c.do(http.MethodGet, path, "", nil, &body); code != http.StatusUnauthorized || body.Error != "unauthorized" {
			t.Fatalf("%s: expected 401 got %d %+v", path, code, body)
		}
	}
}

func TestMalformedIDIsNotFound(t *testing.T) {
	c := apiClient{t: t, h: SetupRoutes(MemoryStores(memory.NewStore(), nil), testConfig(), quietLogger())}
	if code := c.do(http.MethodGet, "/api/v1/venues/not-a-uuid", "", nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", code)
	}
}

func TestVenuePatchDateOnlyBookingAndPermitDelete(t *testing.T) {
	c := apiClient{t: t, h: SetupRoutes(MemoryStores(memory.NewStore(), memory.NewBlobs("http://files.local")), testConfig(), quietLogger())}
	org := token(t, "org-1", models.RoleOrganizer)
	other := token(t, "org-2", models.RoleOrganizer)
	mgr := token(t, "mgr-1", models.RoleVenueManager)
	auth := token(t, "auth-1", models.RoleAuthority)

	var venue models.Venue
	if code := c.do(http.MethodPost, "/api/v1/venues", mgr, map[string]any{
		"name": "Hall", "address": "KN 3 Rd", "latitude": 0, "longitude": 0,
	}, &venue); code != http.StatusCreated {
		t.Fatalf("create venue: %d", code)
	}
	var patched models.Venue
	if code := c.do(http.MethodPatch, "/api/v1/venues/"+venue.ID, mgr, map[string]any{"name": "Main Hall"}, &patched); code != http.StatusOK || patched.Name != "Main Hall" {
		t.Fatalf("patch venue: %d %+v", code, patched)
	}
	if code := c.do(http.MethodPatch, "/api/v1/venues/"+venue.ID, mgr, map[string]any{"name": "  "}, nil); code != http.StatusBadRequest {
		t.Fatalf("blank name: expected 400 got %d", code)
	}

	var b models.Booking
	if code := c.do(http.MethodPost, "/api/v1/bookings", org, map[string]any{
		"venue_id": venue.ID, "start_date": "2026-02-01", "end_date": "2026-02-02",
		"event_name": "Fair", "details": "day",
	}, &b); code != http.StatusCreated {
		t.Fatalf("date-only booking: %d", code)
	}
	if !b.StartDate.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) || !b.EndDate.Equal(time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected booking range %s..%s", b.StartDate, b.EndDate)
	}
	if code := c.do(http.MethodPost, "/api/v1/bookings", org, map[string]any{
		"venue_id": venue.ID, "start_date": "Feb 1", "end_date": "2026-02-02",
		"event_name": "Fair", "details": "day",
	}, nil); code != http.StatusBadRequest {
		t.Fatalf("bad date: expected 400 got %d", code)
	}
	if code := c.do(http.MethodPatch, "/api/v1/bookings/"+b.ID+"/status", mgr, map[string]any{"status": "APPROVED"}, nil); code != http.StatusOK {
		t.Fatalf("approve: %d", code)
	}

	var permit models.Permit
	if code := c.do(http.MethodPost, "/api/v1/permits", org, map[string]any{
		"booking_id": b.ID, "type": "PUBLIC_SAFETY", "details": "stewards",
	}, &permit); code != http.StatusCreated {
		t.Fatalf("apply permit: %d", code)
	}
	for _, tok := range []string{auth, other} {
		if code := c.do(http.MethodDelete, "/api/v1/permits/"+permit.ID, tok, nil, nil); code != http.StatusForbidden {
			t.Fatalf("delete by non-applicant: expected 403 got %d", code)
		}
	}
	if code := c.do(http.MethodDelete, "/api/v1/permits/"+permit.ID, org, nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete permit: %d", code)
	}
	if code := c.do(http.MethodDelete, "/api/v1/permits/"+permit.ID, org, nil, nil); code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404 got %d", code)
	}
}
