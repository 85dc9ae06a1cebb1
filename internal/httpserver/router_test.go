package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projectflow/internal/handler"
	"projectflow/internal/workflow"
	"projectflow/pkg/eventbus"
	"projectflow/pkg/util"
)

const testSecret = "test-secret"

type stubReplayer struct{ calls int }

func (s *stubReplayer) ReplayFailedEvents(context.Context, int) (int, error) {
	s.calls++
	return 0, nil
}

func (s *stubReplayer) ReplayOne(context.Context, int64) error {
	s.calls++
	return nil
}

func newTestRouter(t *testing.T, checks map[string]ReadyCheck) (*gin.Engine, *stubReplayer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := workflow.NewRegistry(eventbus.New(zap.NewNop()), zap.NewNop())
	if _, err := reg.Open(context.Background(), workflow.ProjectInfo{ID: "p1", ContractorID: "c1", HomeownerID: "h1"}); err != nil {
		t.Fatal(err)
	}
	replayer := &stubReplayer{}
	r := NewRouter(Handlers{
		Projects: handler.NewProjectHandler(reg, zap.NewNop()),
		Admin:    handler.NewAdminHandler(replayer, zap.NewNop()),
	}, testSecret, zap.NewNop(), checks)
	return r, replayer
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := util.GenerateJWT(userID, role, testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + token
}

func serve(r *gin.Engine, method, url, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRouter_PublicEndpoints(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	if rec := serve(r, http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("/healthz: expected 200, got %d", rec.Code)
	}
	if rec := serve(r, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("/readyz: expected 200, got %d", rec.Code)
	}
	rec := serve(r, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("/metrics: %d", rec.Code)
	}
}

func TestRouter_ReadyzReportsFailingCheck(t *testing.T) {
	r, _ := newTestRouter(t, map[string]ReadyCheck{
		"db": func(context.Context) error { return errors.New("connection refused") },
	})
	rec := serve(r, http.MethodGet, "/readyz", "", "")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "db_not_ready") {
		t.Errorf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_TraceIDHeader(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Trace-ID"); got != "trace-123" {
		t.Errorf("propagated trace id = %q", got)
	}

	rec = serve(r, http.MethodGet, "/healthz", "", "")
	if rec.Header().Get("X-Trace-ID") == "" {
		t.Error("trace id not generated")
	}
}

func TestRouter_Auth(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	if rec := serve(r, http.MethodGet, "/projects/p1", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rec.Code)
	}
	if rec := serve(r, http.MethodGet, "/projects/p1", "Bearer garbage", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", rec.Code)
	}
	if rec := serve(r, http.MethodGet, "/projects/p1", bearer(t, "c1", "plumber"), ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown role: expected 401, got %d", rec.Code)
	}
	if rec := serve(r, http.MethodGet, "/projects/p1", bearer(t, "h1", "homeowner"), ""); rec.Code != http.StatusOK {
		t.Errorf("homeowner: expected 200, got %d", rec.Code)
	}
}

func TestRouter_Permissions(t *testing.T) {
	r, replayer := newTestRouter(t, nil)

	rec := serve(r, http.MethodPost, "/projects", bearer(t, "h1", "homeowner"), `{"id":"p2","contractorId":"c1"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("homeowner open: expected 403, got %d", rec.Code)
	}
	rec = serve(r, http.MethodPost, "/projects/p1/milestones", bearer(t, "a1", "admin"), `{"title":"x"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("admin propose: expected 403, got %d", rec.Code)
	}
	rec = serve(r, http.MethodPost, "/admin/outbox/replay", bearer(t, "c1", "contractor"), "")
	if rec.Code != http.StatusForbidden || replayer.calls != 0 {
		t.Errorf("contractor replay: expected 403, got %d", rec.Code)
	}
	rec = serve(r, http.MethodPost, "/admin/outbox/replay", bearer(t, "a1", "admin"), "")
	if rec.Code != http.StatusOK || replayer.calls != 1 {
		t.Errorf("admin replay: expected 200, got %d", rec.Code)
	}
}

func TestRouter_MilestoneFlow(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	c1 := bearer(t, "c1", "contractor")

	rec := serve(r, http.MethodPost, "/projects/p1/milestones", c1, `{"title":"Demo","amount":1200}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("propose: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := serve(r, http.MethodPost, "/projects/p1/milestones/missing/accept", c1, ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown milestone: expected 404, got %d", rec.Code)
	}
	if rec := serve(r, http.MethodGet, "/notifications", c1, ""); rec.Code != http.StatusNotFound {
		t.Errorf("inbox without database: expected 404, got %d", rec.Code)
	}
}
