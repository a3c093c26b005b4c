package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/kartikbazzad/bunbase/lookup/internal/auth"
	"github.com/kartikbazzad/bunbase/lookup/internal/authz"
	"github.com/kartikbazzad/bunbase/lookup/internal/config"
	"github.com/kartikbazzad/bunbase/lookup/internal/middleware"
	"github.com/kartikbazzad/bunbase/lookup/internal/records"
	"github.com/kartikbazzad/bunbase/lookup/internal/snapshot"
)

type fakeReloader struct {
	store *snapshot.Store
	recs  []records.Record
	err   error
	calls int
}

func (f *fakeReloader) Reload(ctx context.Context) (*snapshot.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.store.Replace(f.recs, "test"), nil
}

type testServer struct {
	router   *gin.Engine
	store    *snapshot.Store
	sessions *auth.SessionStore
	reloader *fakeReloader
}

func sampleRecords() []records.Record {
	return []records.Record{
		records.FromPairs("Sheet", "Hà Nội", "Customer", "Lan", "Submit date", 45000, "Amount", 12.5),
		records.FromPairs("Sheet", "Đà Nẵng", "Customer", "Minh", "Submit date", "2023-03-20"),
		records.FromPairs("Sheet", "Hà Nội", "Customer", "An", "Submit date", 44900),
	}
}

func newTestServer(t *testing.T, mutate func(*config.Config, *Deps)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hashed := func(pw string) string {
		h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("bcrypt: %v", err)
		}
		return string(h)
	}

	users := auth.NewDirectory(filepath.Join(t.TempDir(), "users.json"), nil)
	users.Set([]auth.User{
		{Name: "Lan", Email: "lan@example.com", Password: hashed("s3cret"), Role: "admin"},
		{Name: "Minh", Email: "minh@example.com", Password: hashed("hunter2")},
	})

	enforcer, err := authz.NewEnforcer("", nil)
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}

	store := snapshot.NewStore()
	store.Replace(sampleRecords(), "test")

	cfg := config.Default()
	cfg.Server.PublicDir = ""
	cfg.Server.ViewsDir = t.TempDir()

	ts := &testServer{
		store:    store,
		sessions: auth.NewSessionStore(time.Hour),
		reloader: &fakeReloader{store: store, recs: sampleRecords()[:1]},
	}
	deps := Deps{
		Store:    store,
		Reloader: ts.reloader,
		Users:    users,
		Sessions: ts.sessions,
		Enforcer: enforcer,
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	deps.Config = cfg
	ts.router = NewRouter(deps)
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) get(t *testing.T, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	}
	return ts.do(req)
}

func (ts *testServer) login(t *testing.T, identifier, password string) string {
	t.Helper()
	w := postJSON(ts, "/login", map[string]string{"identifier": identifier, "password": password})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c.Value
		}
	}
	t.Fatal("login did not set a session cookie")
	return ""
}

func postJSON(ts *testServer, target string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return ts.do(req)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	w := ts.get(t, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Status  string `json:"status"`
		Records int    `json:"records"`
	}
	decode(t, w, &body)
	if body.Status != "ok" || body.Records != 3 {
		t.Errorf("health = %+v", body)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestLogin_Failures(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name        string
		identifier  string
		password    string
		wantStatus  int
		wantMessage string
	}{
		{"missing", "", "", http.StatusBadRequest, "Please enter your name or email and password."},
		{"unknown user", "nobody", "x", http.StatusUnauthorized, "User does not exist."},
		{"wrong password", "minh@example.com", "nope", http.StatusUnauthorized, "Wrong password."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(ts, "/login", map[string]string{"identifier": tt.identifier, "password": tt.password})
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			decode(t, w, &body)
			if body.Success || body.Message != tt.wantMessage {
				t.Errorf("body = %+v, want message %q", body, tt.wantMessage)
			}
		})
	}
}

func TestLogin_FormBodyAndMe(t *testing.T) {
	ts := newTestServer(t, nil)

	form := url.Values{"identifier": {"MINH"}, "password": {"hunter2"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := ts.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var token string
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			token = c.Value
			if !c.HttpOnly {
				t.Error("session cookie should be HttpOnly")
			}
		}
	}

	w = ts.get(t, "/api/me", token)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d", w.Code)
	}
	var me auth.Principal
	decode(t, w, &me)
	if me.Email != "minh@example.com" || me.Role != auth.RoleUser {
		t.Errorf("me = %+v", me)
	}
}

func TestProtectedRoutes_RequireSession(t *testing.T) {
	ts := newTestServer(t, nil)
	for _, target := range []string{"/search", "/filters", "/export", "/api/data", "/api/me"} {
		w := ts.get(t, target, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want 401", target, w.Code)
		}
	}
	if w := ts.get(t, "/search", "bogus"); w.Code != http.StatusUnauthorized {
		t.Errorf("bogus token status = %d, want 401", w.Code)
	}
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t, "minh@example.com", "hunter2")

	w := ts.get(t, "/search?Sheet=h%C3%A0+n%E1%BB%99i&limit=1", token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res struct {
		Total int                      `json:"total"`
		Data  []map[string]interface{} `json:"data"`
	}
	decode(t, w, &res)
	if res.Total != 2 || len(res.Data) != 1 {
		t.Fatalf("total = %d, len = %d, want 2, 1", res.Total, len(res.Data))
	}
	if res.Data[0]["Customer"] != "Lan" {
		t.Errorf("first match = %v", res.Data[0])
	}

	w = ts.get(t, "/search?Submit+date_start=2023-03-01&Submit+date_end=2023-03-31", token)
	decode(t, w, &res)
	if res.Total != 2 {
		t.Errorf("date range total = %d, want 2", res.Total)
	}

	w = ts.get(t, "/search?offset=10", token)
	if !strings.Contains(w.Body.String(), `"data":[]`) {
		t.Errorf("offset past end body = %s", w.Body.String())
	}
}

func TestSearch_PreservesKeyOrder(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t, "lan@example.com", "s3cret")

	w := ts.get(t, "/api/data", token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, `[{"Sheet":"Hà Nội","Customer":"Lan","Submit date":45000,"Amount":12.5}`) {
		t.Errorf("data = %s", body)
	}
}

func TestFilters(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t, "minh@example.com", "hunter2")

	var got map[string][]string
	decode(t, ts.get(t, "/filters", token), &got)
	want := []string{"Đà Nẵng", "Hà Nội"}
	if len(got) != 1 || strings.Join(got["Sheet"], "|") != strings.Join(want, "|") {
		t.Errorf("filters = %v, want Sheet: %v", got, want)
	}

	got = nil
	decode(t, ts.get(t, "/filters?fields=Customer,Missing", token), &got)
	if strings.Join(got["Customer"], "|") != "An|Lan|Minh" {
		t.Errorf("Customer = %v", got["Customer"])
	}
	if v, ok := got["Missing"]; !ok || v == nil || len(v) != 0 {
		t.Errorf("Missing = %#v, want empty list", v)
	}
}

func TestExport(t *testing.T) {
	ts := newTestServer(t, nil)

	userToken := ts.login(t, "minh@example.com", "hunter2")
	if w := ts.get(t, "/export", userToken); w.Code != http.StatusForbidden {
		t.Errorf("user export status = %d, want 403", w.Code)
	}

	adminToken := ts.login(t, "lan@example.com", "s3cret")
	w := ts.get(t, "/export?Customer=lan,minh", adminToken)
	if w.Code != http.StatusOK {
		t.Fatalf("admin export status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, `attachment; filename="export-`) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Data")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if strings.Join(rows[0], "|") != "Sheet|Customer|Submit date|Amount" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][2] != "2023-03-15" || rows[2][2] != "2023-03-20" {
		t.Errorf("dates = %q, %q", rows[1][2], rows[2][2])
	}
}

func TestReload(t *testing.T) {
	ts := newTestServer(t, nil)

	userToken := ts.login(t, "minh@example.com", "hunter2")
	req := httptest.NewRequest(http.MethodPost, "/api/reload", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: userToken})
	if w := ts.do(req); w.Code != http.StatusForbidden {
		t.Errorf("user reload status = %d, want 403", w.Code)
	}

	adminToken := ts.login(t, "lan@example.com", "s3cret")
	req = httptest.NewRequest(http.MethodPost, "/api/reload", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: adminToken})
	w := ts.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("reload status = %d", w.Code)
	}
	var info snapshot.Info
	decode(t, w, &info)
	if info.Records != 1 || ts.store.Current().Len() != 1 {
		t.Errorf("records after reload = %d", info.Records)
	}

	ts.reloader.err = errors.New("disk on fire")
	req = httptest.NewRequest(http.MethodPost, "/api/reload", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: adminToken})
	w = ts.do(req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("failed reload status = %d, want 503", w.Code)
	}
	if strings.Contains(w.Body.String(), "disk on fire") {
		t.Error("internal error leaked to client")
	}
	if ts.store.Current().Len() != 1 {
		t.Error("failed reload replaced the snapshot")
	}
}

func TestHomePage(t *testing.T) {
	var viewsDir string
	ts := newTestServer(t, func(cfg *config.Config, _ *Deps) {
		viewsDir = cfg.Server.ViewsDir
	})
	if err := os.WriteFile(filepath.Join(viewsDir, "home.html"), []byte("<h1>home</h1>"), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, target := range []string{"/home", "/home.html"} {
		w := ts.get(t, target, "")
		if w.Code != http.StatusFound || w.Header().Get("Location") != "/login.html" {
			t.Errorf("GET %s without session = %d %q", target, w.Code, w.Header().Get("Location"))
		}
	}

	token := ts.login(t, "minh@example.com", "hunter2")
	w := ts.get(t, "/home", token)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<h1>home</h1>") {
		t.Errorf("home = %d %q", w.Code, w.Body.String())
	}
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t, nil)
	token := ts.login(t, "minh@example.com", "hunter2")

	w := ts.get(t, "/logout", token)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login.html" {
		t.Errorf("logout = %d %q", w.Code, w.Header().Get("Location"))
	}
	if ts.sessions.Len() != 0 {
		t.Errorf("sessions = %d, want 0", ts.sessions.Len())
	}
	if w := ts.get(t, "/api/me", token); w.Code != http.StatusUnauthorized {
		t.Errorf("me after logout = %d, want 401", w.Code)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	ts := newTestServer(t, func(_ *config.Config, d *Deps) {
		d.LoginLimits = middleware.NewRateLimiter(rate.Every(time.Hour), 1, time.Minute)
	})

	body := map[string]string{"identifier": "minh@example.com", "password": "nope"}
	if w := postJSON(ts, "/login", body); w.Code != http.StatusUnauthorized {
		t.Errorf("first attempt status = %d, want 401", w.Code)
	}
	if w := postJSON(ts, "/login", body); w.Code != http.StatusTooManyRequests {
		t.Errorf("second attempt status = %d, want 429", w.Code)
	}
}

func TestStaticFiles(t *testing.T) {
	public := t.TempDir()
	if err := os.WriteFile(filepath.Join(public, "login.html"), []byte("<form></form>"), 0o600); err != nil {
		t.Fatal(err)
	}
	ts := newTestServer(t, func(cfg *config.Config, _ *Deps) {
		cfg.Server.PublicDir = public
	})

	w := ts.get(t, "/login.html", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<form>") {
		t.Errorf("login.html = %d %q", w.Code, w.Body.String())
	}
	if w := ts.get(t, "/nope.txt", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing file status = %d, want 404", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.get(t, "/health", "")
	w := ts.get(t, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "lookup_http_requests_total") {
		t.Errorf("metrics = %d", w.Code)
	}
}
