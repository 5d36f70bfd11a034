package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/service"
	"github.com/civicwatch/civic-reports/internal/infrastructure/db/memory"
	"github.com/civicwatch/civic-reports/internal/infrastructure/queue"
)

type testServer struct {
	e     *echo.Echo
	store *memory.Store
	auth  *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()
	store := memory.NewStore()

	tokens := service.NewTokenService("test-secret", service.DefaultTokenTTL)
	auth := service.NewAuthService(store.Users(), tokens, log, service.WithBcryptCost(bcrypt.MinCost))

	dispatcher := queue.NewDispatcher(1, service.NewAuditService(store.Events(), log), log)
	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.Start(ctx)
	t.Cleanup(func() {
		cancel()
		dispatcher.Wait()
	})

	reg := prometheus.NewRegistry()
	e := NewRouter(Deps{
		Log:        log,
		Auth:       auth,
		Identity:   auth,
		Users:      service.NewUserService(store.Users(), log),
		Issues:     service.NewIssueService(store.Issues(), dispatcher, log),
		Registerer: reg,
		Gatherer:   reg,
	})
	return &testServer{e: e, store: store, auth: auth}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("invalid json from %s %s: %v", method, path, err)
		}
	}
	return rec.Code, out
}

func (s *testServer) register(t *testing.T, name, email, password, role string) (string, string) {
	t.Helper()
	body := `{"name":"` + name + `","email":"` + email + `","password":"` + password + `"`
	if role != "" {
		body += `,"role":"` + role + `"`
	}
	body += `}`
	code, resp := s.do(t, http.MethodPost, "/api/auth/register", "", body)
	if code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d (%v)", email, code, resp)
	}
	user := resp["user"].(map[string]any)
	return user["id"].(string), resp["token"].(string)
}

func TestRouter_AnaScenario(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.do(t, http.MethodPost, "/api/auth/register", "",
		`{"name":"Ana","email":"ana@x.com","password":"secret1"}`)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", code, resp)
	}
	user := resp["user"].(map[string]any)
	if user["name"] != "Ana" || user["email"] != "ana@x.com" || user["role"] != "user" {
		t.Fatalf("unexpected identity %v", user)
	}
	if tok, _ := resp["token"].(string); tok == "" {
		t.Fatalf("expected a non-empty token")
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatalf("password hash leaked")
	}

	code, resp = s.do(t, http.MethodPost, "/api/auth/register", "",
		`{"name":"Ana","email":"ana@x.com","password":"secret1"}`)
	if code != http.StatusConflict {
		t.Fatalf("second register: expected 409, got %d (%v)", code, resp)
	}
}

func TestRouter_LoginResolvesSameIdentity(t *testing.T) {
	s := newTestServer(t)
	id, _ := s.register(t, "Ana", "ana@x.com", "secret1", "")

	code, resp := s.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"ANA@x.com","password":"secret1"}`)
	if code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", code)
	}
	token := resp["token"].(string)

	code, me := s.do(t, http.MethodGet, "/api/auth/me", token, "")
	if code != http.StatusOK || me["id"] != id {
		t.Fatalf("expected identity %s, got %d %v", id, code, me)
	}
}

func TestRouter_LoginFailuresAreUniform(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "Ana", "ana@x.com", "secret1", "")

	wrongPwCode, wrongPw := s.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"ana@x.com","password":"nope123"}`)
	unknownCode, unknown := s.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"bob@x.com","password":"nope123"}`)

	if wrongPwCode != http.StatusUnauthorized || unknownCode != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPwCode, unknownCode)
	}
	if wrongPw["error"] != "invalid email or password" || unknown["error"] != wrongPw["error"] {
		t.Fatalf("messages must match: %v vs %v", wrongPw, unknown)
	}
}

func TestRouter_AuthenticationRejections(t *testing.T) {
	s := newTestServer(t)

	// A token for an id that was never stored.
	orphan, err := service.NewTokenService("test-secret", time.Hour).Issue("ghost")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	forged, err := service.NewTokenService("other-secret", time.Hour).Issue("ghost")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for name, token := range map[string]string{"missing": "", "forged": forged, "orphan": orphan, "garbage": "abc"} {
		code, resp := s.do(t, http.MethodGet, "/api/issues", token, "")
		if code != http.StatusUnauthorized || resp["error"] != "unauthorized" {
			t.Fatalf("%s: expected generic 401, got %d %v", name, code, resp)
		}
	}
}

func TestRouter_UserForbiddenOnAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register(t, "Bia", "bia@x.com", "secret1", "")

	for _, path := range []string{"/api/admin/users", "/api/admin/users/whatever"} {
		code, resp := s.do(t, http.MethodGet, path, token, "")
		if code != http.StatusForbidden {
			t.Fatalf("%s: expected 403, got %d %v", path, code, resp)
		}
	}
}

func TestRouter_RoleChangeAppliesOnNextRequest(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.register(t, "Root", "root@x.com", "secret1", "admin")
	userID, userToken := s.register(t, "Caio", "caio@x.com", "secret1", "")

	if code, _ := s.do(t, http.MethodGet, "/api/admin/users", userToken, ""); code != http.StatusForbidden {
		t.Fatalf("expected 403 before promotion, got %d", code)
	}

	code, resp := s.do(t, http.MethodPut, "/api/admin/users/"+userID, adminToken, `{"role":"admin"}`)
	if code != http.StatusOK || resp["role"] != "admin" {
		t.Fatalf("promotion failed: %d %v", code, resp)
	}

	// Same token, no re-login.
	if code, _ := s.do(t, http.MethodGet, "/api/admin/users", userToken, ""); code != http.StatusOK {
		t.Fatalf("expected 200 after promotion, got %d", code)
	}
}

func TestRouter_AdminUpdateDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	_, adminToken := s.register(t, "Root", "root@x.com", "secret1", "admin")
	userID, _ := s.register(t, "Caio", "caio@x.com", "secret1", "")

	code, _ := s.do(t, http.MethodPut, "/api/admin/users/"+userID, adminToken, `{"email":"root@x.com"}`)
	if code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", code)
	}

	code, _ = s.do(t, http.MethodPut, "/api/admin/users/missing", adminToken, `{"name":"Nobody"}`)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestRouter_IssueLifecycle(t *testing.T) {
	s := newTestServer(t)
	reporterID, userToken := s.register(t, "Ana", "ana@x.com", "secret1", "")
	staffID, staffToken := s.register(t, "Edu", "edu@x.com", "secret1", "employee")

	code, issue := s.do(t, http.MethodPost, "/api/issues", userToken, `{
		"title": "Buraco na rua",
		"description": "Buraco grande em frente ao número 10",
		"category": "road",
		"location": {"latitude": -23.55, "longitude": -46.63},
		"images": ["data:image/png;base64,AAAA"]
	}`)
	if code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %v", code, issue)
	}
	if issue["status"] != "pending" || issue["user_id"] != reporterID {
		t.Fatalf("unexpected issue %v", issue)
	}
	issueID := issue["id"].(string)

	// Citizens cannot triage.
	code, _ = s.do(t, http.MethodPatch, "/api/issues/"+issueID+"/status", userToken, `{"status":"resolved"}`)
	if code != http.StatusForbidden {
		t.Fatalf("expected 403 for user, got %d", code)
	}

	code, _ = s.do(t, http.MethodPatch, "/api/issues/"+issueID+"/status", staffToken, `{"status":"closed"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", code)
	}

	code, updated := s.do(t, http.MethodPatch, "/api/issues/"+issueID+"/status", staffToken,
		`{"status":"inProgress","note":"crew dispatched"}`)
	if code != http.StatusOK || updated["status"] != "inProgress" {
		t.Fatalf("staff update failed: %d %v", code, updated)
	}
	history := updated["status_history"].([]any)
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	last := history[1].(map[string]any)
	if last["changed_by"] != staffID || last["note"] != "crew dispatched" {
		t.Fatalf("unexpected history entry %v", last)
	}

	code, _ = s.do(t, http.MethodPatch, "/api/issues/missing/status", staffToken, `{"status":"resolved"}`)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}

	code, page := s.do(t, http.MethodGet, "/api/issues?status=inProgress", userToken, "")
	if code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", code)
	}
	if len(page["data"].([]any)) != 1 {
		t.Fatalf("expected one issue in progress, got %v", page["data"])
	}
	pagination := page["pagination"].(map[string]any)
	if pagination["total"].(float64) != 1 || pagination["limit"].(float64) != 20 {
		t.Fatalf("unexpected pagination %v", pagination)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(s.store.RecordedEvents()) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("audit event was never recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if ev := s.store.RecordedEvents()[0]; ev.IssueID != issueID || ev.Status != domain.StatusInProgress {
		t.Fatalf("unexpected audit event %+v", ev)
	}
}

func TestRouter_SelfRoleDisabled(t *testing.T) {
	log := zerolog.Nop()
	store := memory.NewStore()
	auth := service.NewAuthService(store.Users(), service.NewTokenService("k", 0), log,
		service.WithBcryptCost(bcrypt.MinCost), service.WithSelfAssignedRole(false))
	reg := prometheus.NewRegistry()
	e := NewRouter(Deps{Log: log, Auth: auth, Identity: auth, Registerer: reg, Gatherer: reg})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"name":"Eve","email":"eve@x.com","password":"secret1","role":"admin"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	if code, _ := s.do(t, http.MethodGet, "/health", "", ""); code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", code)
	}
	if code, _ := s.do(t, http.MethodGet, "/health/ready", "", ""); code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Fatalf("expected request metrics, got %d", rec.Code)
	}
}
