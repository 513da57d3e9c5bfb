package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"savings/internal/cache"
	"savings/internal/goals"
	"savings/internal/identity"
	"savings/internal/log"
	"savings/internal/storage/memory"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type apiFixture struct {
	t      *testing.T
	srv    *Server
	mem    *memory.Store
	events *goals.Recorder
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	mem := memory.New()
	rec := &goals.Recorder{}
	svc := goals.NewService(mem, identity.ContextProvider{}, rec, cache.Options{})
	srv := NewServer(":0", svc, Options{
		JWTSecret:          testSecret,
		AllowedOrigins:     []string{"https://app.example"},
		RateLimitPerMinute: 1000,
		Logger:             log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)}),
	})
	t.Cleanup(func() { srv.rateLimiter.Stop() })
	return &apiFixture{t: t, srv: srv, mem: mem, events: rec}
}

func token(t *testing.T, user string) string {
	t.Helper()
	tok, err := identity.GenerateToken(testSecret, user, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

// do sends a request as user; an empty user sends no Authorization header.
func (f *apiFixture) do(user, method, path, body string) *httptest.ResponseRecorder {
	f.t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(f.t, user))
	}
	rec := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (f *apiFixture) create(user, body string) goalResponse {
	f.t.Helper()
	rec := f.do(user, http.MethodPost, "/goals", body)
	if rec.Code != http.StatusCreated {
		f.t.Fatalf("POST /goals status = %d: %s", rec.Code, rec.Body.String())
	}
	return decode[goalResponse](f.t, rec)
}

func TestHealthAndReady(t *testing.T) {
	f := newAPI(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := f.do("", http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s missing security headers", path)
		}
	}
}

func TestAuthentication(t *testing.T) {
	f := newAPI(t)

	rec := f.do("", http.MethodGet, "/goals", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}
	if body := decode[errorBody](t, rec); body.Kind != "auth_error" {
		t.Errorf("kind = %q", body.Kind)
	}

	req := httptest.NewRequest(http.MethodGet, "/goals", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", rec.Code)
	}
}

func TestCreateThenList(t *testing.T) {
	f := newAPI(t)
	g := f.create("alice", `{"name":"  Trip ","target_amount":"1000","current_amount":250,"deadline":"2099-06-30"}`)

	if g.Name != "Trip" || g.TargetAmount != "1000.00" || g.CurrentAmount != "250.00" {
		t.Errorf("created = %+v", g)
	}
	if g.Metrics.ProgressPercent != 25 || g.Display.TargetAmount != "$1,000.00" {
		t.Errorf("metrics/display = %+v %+v", g.Metrics, g.Display)
	}

	rec := f.do("alice", http.MethodGet, "/goals", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /goals status = %d", rec.Code)
	}
	list := decode[listResponse](t, rec)
	if len(list.Goals) != 1 || list.Goals[0].ID != g.ID || list.Loading || list.StaleError != "" {
		t.Fatalf("list = %+v", list)
	}

	rec = f.do("alice", http.MethodGet, "/goals/"+g.ID, "")
	if rec.Code != http.StatusOK || decode[goalResponse](t, rec).Name != "Trip" {
		t.Errorf("GET /goals/{id} = %d %s", rec.Code, rec.Body.String())
	}
	if f.events.Count(goals.EventCreated) != 1 {
		t.Errorf("created events = %d", f.events.Count(goals.EventCreated))
	}
}

func TestCreateRejects(t *testing.T) {
	f := newAPI(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty name", `{"name":" ","target_amount":10,"deadline":"2099-01-01"}`, http.StatusUnprocessableEntity},
		{"zero target", `{"name":"x","target_amount":0,"deadline":"2099-01-01"}`, http.StatusUnprocessableEntity},
		{"missing target", `{"name":"x","deadline":"2099-01-01"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"name":"x","target_amount":"-5","deadline":"2099-01-01"}`, http.StatusUnprocessableEntity},
		{"bad deadline", `{"name":"x","target_amount":10,"deadline":"30/06/2099"}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"name":`, http.StatusBadRequest},
		{"unknown field", `{"name":"x","target_amount":10,"deadline":"2099-01-01","owner_id":"bob"}`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do("alice", http.MethodPost, "/goals", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
	if f.mem.Len() != 0 {
		t.Errorf("rejected creates stored %d goals", f.mem.Len())
	}
}

func TestUpdateGoal(t *testing.T) {
	f := newAPI(t)
	g := f.create("alice", `{"name":"Trip","target_amount":100,"deadline":"2099-01-01"}`)
	f.do("alice", http.MethodGet, "/goals", "")

	rec := f.do("alice", http.MethodPatch, "/goals/"+g.ID, `{"name":"Japan trip","target_amount":"150.5"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[goalResponse](t, rec); got.Name != "Japan trip" || got.TargetAmount != "150.50" {
		t.Errorf("updated = %+v", got)
	}

	list := decode[listResponse](t, f.do("alice", http.MethodGet, "/goals", ""))
	if list.Goals[0].Name != "Japan trip" {
		t.Errorf("list after rename = %+v", list.Goals[0])
	}

	for _, body := range []string{
		`{}`,
		`{"current_amount":"500"}`,
		`{"current_amount":null}`,
		`{"name":"Renamed","current_amount":null}`,
		`{"deadline":"tomorrow"}`,
		`{"target_amount":"1000000000000"}`,
	} {
		if rec := f.do("alice", http.MethodPatch, "/goals/"+g.ID, body); rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("PATCH %s status = %d, want 422", body, rec.Code)
		}
	}
	if got := decode[goalResponse](t, f.do("alice", http.MethodGet, "/goals/"+g.ID, "")); got.Name != "Japan trip" {
		t.Errorf("rejected PATCH changed the goal: %+v", got)
	}
}

func TestAddFunds(t *testing.T) {
	f := newAPI(t)
	g := f.create("alice", `{"name":"Trip","target_amount":100,"current_amount":90,"deadline":"2099-01-01"}`)
	path := "/goals/" + g.ID + "/contributions"

	rec := f.do("alice", http.MethodPost, path, `{"amount":"15"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("contribution status = %d: %s", rec.Code, rec.Body.String())
	}
	res := decode[contributionResponse](t, rec)
	if res.Event != string(goals.EventAchieved) || !res.Achieved || res.PreviousAmount != "90.00" || res.Goal.CurrentAmount != "105.00" {
		t.Errorf("first contribution = %+v", res)
	}

	res = decode[contributionResponse](t, f.do("alice", http.MethodPost, path, `{"amount":5}`))
	if res.Event != string(goals.EventUpdated) || res.Achieved || res.Goal.Metrics.ProgressPercent != 100 {
		t.Errorf("second contribution = %+v", res)
	}

	for _, body := range []string{`{"amount":0}`, `{"amount":"-1"}`, `{"amount":"abc"}`} {
		if rec := f.do("alice", http.MethodPost, path, body); rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("contribution %s status = %d, want 422", body, rec.Code)
		}
	}
	if f.events.Count(goals.EventAchieved) != 1 {
		t.Errorf("achieved events = %d, want 1", f.events.Count(goals.EventAchieved))
	}
}

func TestOwnershipAndDelete(t *testing.T) {
	f := newAPI(t)
	g := f.create("alice", `{"name":"Trip","target_amount":100,"deadline":"2099-01-01"}`)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/goals/" + g.ID, ""},
		{http.MethodPatch, "/goals/" + g.ID, `{"name":"mine"}`},
		{http.MethodDelete, "/goals/" + g.ID, ""},
		{http.MethodPost, "/goals/" + g.ID + "/contributions", `{"amount":1}`},
	} {
		if rec := f.do("bob", tc.method, tc.path, tc.body); rec.Code != http.StatusNotFound {
			t.Errorf("bob %s %s status = %d, want 404", tc.method, tc.path, rec.Code)
		}
	}
	if list := decode[listResponse](t, f.do("bob", http.MethodGet, "/goals", "")); len(list.Goals) != 0 {
		t.Errorf("bob sees %d goals", len(list.Goals))
	}

	if rec := f.do("alice", http.MethodDelete, "/goals/"+g.ID, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
	if rec := f.do("alice", http.MethodGet, "/goals/"+g.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET after delete status = %d", rec.Code)
	}
}

func TestStoreUnavailable(t *testing.T) {
	f := newAPI(t)
	f.mem.FailWith(errors.New("connection reset"))

	rec := f.do("alice", http.MethodPost, "/goals", `{"name":"x","target_amount":10,"deadline":"2099-01-01"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection reset") {
		t.Errorf("store detail leaked: %s", rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newAPI(t)
	if rec := f.do("alice", http.MethodPut, "/goals", `{}`); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT /goals status = %d, want 405", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/goals", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestEndSession(t *testing.T) {
	f := newAPI(t)
	f.create("alice", `{"name":"Trip","target_amount":100,"deadline":"2099-01-01"}`)
	if rec := f.do("alice", http.MethodPost, "/session/end", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("POST /session/end status = %d", rec.Code)
	}
	list := decode[listResponse](t, f.do("alice", http.MethodGet, "/goals", ""))
	if len(list.Goals) != 1 {
		t.Errorf("list after re-login = %+v", list)
	}
}
