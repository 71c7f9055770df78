package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PaulFidika/duekit/adapters/ginutil"
	"github.com/PaulFidika/duekit/deadlines"
	"github.com/PaulFidika/duekit/permissions"
	memorylimiter "github.com/PaulFidika/duekit/ratelimit/memory"
	memorystore "github.com/PaulFidika/duekit/storage/memory"
	"github.com/PaulFidika/duekit/tasks"
	duetest "github.com/PaulFidika/duekit/testing"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
)

type fixture struct {
	router   *gin.Engine
	issuer   *duetest.TestIssuer
	presence *memorystore.Presence
}

func newFixture(t *testing.T, source tasks.Source, rl ginutil.RateLimiter) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	issuer := duetest.NewTestIssuer()
	t.Cleanup(issuer.Close)
	presence := memorystore.NewPresence(time.Minute)
	t.Cleanup(func() { _ = presence.Close() })

	log, _ := test.NewNullLogger()
	now := time.Date(2025, time.April, 29, 9, 0, 0, 0, time.UTC)
	engine := deadlines.NewEngine(nil, nil, deadlines.Options{Logger: log, Clock: func() time.Time { return now }})

	r := gin.New()
	Register(r, Deps{
		Table:    permissions.DefaultTable(),
		Engine:   engine,
		Verifier: issuer.Verifier(),
		Keys:     issuer.KeySource(),
		Presence: presence,
		Source:   source,
		Limiter:  rl,
	})
	return &fixture{router: r, issuer: issuer, presence: presence}
}

func (f *fixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestPermissionCheck(t *testing.T) {
	f := newFixture(t, nil, nil)

	w := f.do(http.MethodGet, "/v1/permissions/check?role=executive&permission=view:clients", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got struct {
		Role       string `json:"role"`
		Permission string `json:"permission"`
		Allowed    bool   `json:"allowed"`
		Rule       string `json:"rule"`
		Grant      string `json:"grant"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Allowed || got.Rule != "wildcard" || got.Grant != "view:all" || got.Role != "executive" {
		t.Fatalf("unexpected decision %+v", got)
	}

	token := f.issuer.CreateSessionToken("u-1", permissions.RoleClinicalStaff)
	w = f.do(http.MethodGet, "/v1/permissions/check?permission=manage:billing", token, "")
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Allowed || got.Role != "clinical-staff" || got.Rule != "none" {
		t.Fatalf("expected session role to be denied, got %+v", got)
	}

	if w := f.do(http.MethodGet, "/v1/permissions/check?permission=view:all", "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without role, got %d", w.Code)
	}
	if w := f.do(http.MethodGet, "/v1/permissions/check?role=bcba", "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without permission, got %d", w.Code)
	}
}

func TestDeadlinesEvaluate(t *testing.T) {
	f := newFixture(t, nil, nil)
	body := `{"entities":[
		{"id":"t1","title":"Quarterly audit","due_date":"6-May","status":"In Progress","assigned_to":"u-9"},
		{"id":"t2","title":"Broken","due_date":"someday","status":"Not Started"}
	]}`

	if w := f.do(http.MethodPost, "/v1/deadlines/evaluate", "", body); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", w.Code)
	}
	staff := f.issuer.CreateSessionToken("u-1", permissions.RoleClinicalStaff)
	if w := f.do(http.MethodPost, "/v1/deadlines/evaluate", staff, body); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for clinical staff, got %d", w.Code)
	}

	admin := f.issuer.CreateSessionToken("u-2", permissions.RoleAdministrator)
	w := f.do(http.MethodPost, "/v1/deadlines/evaluate", admin, body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res struct {
		RunID  string `json:"run_id"`
		DryRun bool   `json:"dry_run"`
		Events []struct {
			EntityID      string `json:"entity_id"`
			DaysRemaining int    `json:"days_remaining"`
		} `json:"events"`
		Skipped []struct {
			EntityID string `json:"entity_id"`
		} `json:"skipped"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.RunID == "" || len(res.Events) != 1 || res.Events[0].EntityID != "t1" || res.Events[0].DaysRemaining != 7 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].EntityID != "t2" {
		t.Fatalf("expected t2 skipped, got %+v", res.Skipped)
	}

	if !res.DryRun {
		t.Fatalf("body entities must be previewed, got %+v", res)
	}

	w = f.do(http.MethodPost, "/v1/deadlines/evaluate", admin, body)
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Events) != 1 || !res.DryRun {
		t.Fatalf("preview must not claim keys, got %+v", res)
	}

	if w := f.do(http.MethodPost, "/v1/deadlines/evaluate", admin, "{"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}
}

func TestDeadlinesEvaluate_FromSource(t *testing.T) {
	src := tasks.StaticSource{{ID: "s1", Title: "Renewal", DueDate: "2025-05-02", Status: deadlines.StatusNotStarted}}
	f := newFixture(t, src, nil)
	pm := f.issuer.CreateSessionToken("u-3", permissions.RoleProjectManager)

	// A body naming the same entity is previewed and leaves the key unclaimed.
	body := `{"entities":[{"id":"s1","title":"Renewal","due_date":"2025-05-02","status":"Not Started"}]}`
	if w := f.do(http.MethodPost, "/v1/deadlines/evaluate", pm, body); !strings.Contains(w.Body.String(), `"dry_run":true`) {
		t.Fatalf("expected dry run for body entities, got %s", w.Body.String())
	}

	w := f.do(http.MethodPost, "/v1/deadlines/evaluate", pm, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"entity_id":"s1"`) || !strings.Contains(w.Body.String(), `"dry_run":false`) {
		t.Fatalf("expected real event for source entity, got %s", w.Body.String())
	}

	w = f.do(http.MethodPost, "/v1/deadlines/evaluate", pm, "")
	if strings.Contains(w.Body.String(), `"entity_id":"s1"`) {
		t.Fatalf("second source pass must not re-emit, got %s", w.Body.String())
	}
}

func TestPresenceHeartbeat(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := t.Context()

	if w := f.do(http.MethodPost, "/v1/presence/heartbeat", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if offline, _ := f.presence.IsUserOffline(ctx, "u-5"); !offline {
		t.Fatalf("user should start offline")
	}
	token := f.issuer.CreateSessionToken("u-5", permissions.RoleBCBA)
	if w := f.do(http.MethodPost, "/v1/presence/heartbeat", token, ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if offline, _ := f.presence.IsUserOffline(ctx, "u-5"); offline {
		t.Fatalf("heartbeat should mark user online")
	}
}

func TestRateLimited(t *testing.T) {
	rl := memorylimiter.New(map[string]memorylimiter.Limit{
		"default": {Limit: 1, Window: time.Minute},
	})
	f := newFixture(t, nil, rl)
	path := "/v1/permissions/check?role=bcba&permission=view:tasks"
	if w := f.do(http.MethodGet, path, "", ""); w.Code != http.StatusOK {
		t.Fatalf("first call should pass, got %d", w.Code)
	}
	if w := f.do(http.MethodGet, path, "", ""); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second call should be limited, got %d", w.Code)
	}
}

func TestJWKS(t *testing.T) {
	f := newFixture(t, nil, nil)
	w := f.do(http.MethodGet, "/.well-known/jwks.json", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"kid":"test-key-1"`) {
		t.Fatalf("unexpected jwks response %d %s", w.Code, w.Body.String())
	}
}

type memTasks map[string]deadlines.Entity

func (m memTasks) Upsert(_ context.Context, e deadlines.Entity) error {
	m[e.ID] = e
	return nil
}

func (m memTasks) Get(_ context.Context, id string) (deadlines.Entity, error) {
	e, ok := m[id]
	if !ok {
		return deadlines.Entity{}, tasks.ErrNotFound
	}
	return e, nil
}

func (m memTasks) SetStatus(_ context.Context, id string, status deadlines.Status) error {
	e, ok := m[id]
	if !ok {
		return tasks.ErrNotFound
	}
	e.Status = status
	m[id] = e
	return nil
}

func newTaskFixture(t *testing.T, store memTasks) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	issuer := duetest.NewTestIssuer()
	t.Cleanup(issuer.Close)
	r := gin.New()
	Register(r, Deps{
		Table:    permissions.DefaultTable(),
		Engine:   deadlines.NewEngine(nil, nil, deadlines.Options{}),
		Verifier: issuer.Verifier(),
		Tasks:    store,
	})
	return &fixture{router: r, issuer: issuer}
}

func TestTaskPUT(t *testing.T) {
	store := memTasks{}
	f := newTaskFixture(t, store)
	issuer := f.issuer

	body := `{"title":"Intake","due_date":"6-May","assigned_to":"u-7"}`
	staff := issuer.CreateSessionToken("u-1", permissions.RoleClinicalStaff)
	if w := f.do(http.MethodPut, "/v1/tasks/t9", staff, body); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for clinical staff, got %d", w.Code)
	}
	bcba := issuer.CreateSessionToken("u-2", permissions.RoleBCBA)
	if w := f.do(http.MethodPut, "/v1/tasks/t9", bcba, body); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := store["t9"]; got.Status != deadlines.StatusNotStarted || got.AssignedTo != "u-7" {
		t.Fatalf("unexpected stored task %+v", got)
	}
	if w := f.do(http.MethodPut, "/v1/tasks/t9", bcba, `{"due_date":"31-Feb"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for impossible date, got %d", w.Code)
	}
	if w := f.do(http.MethodPut, "/v1/tasks/t9", bcba, `{"status":"Archived"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}
}

func TestTaskGET(t *testing.T) {
	store := memTasks{"t9": {ID: "t9", Title: "Intake", DueDate: "6-May", Status: deadlines.StatusInProgress}}
	f := newTaskFixture(t, store)

	billing := f.issuer.CreateSessionToken("u-1", permissions.RoleBillingSpecialist)
	if w := f.do(http.MethodGet, "/v1/tasks/t9", billing, ""); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without view:tasks, got %d", w.Code)
	}
	staff := f.issuer.CreateSessionToken("u-2", permissions.RoleClinicalStaff)
	w := f.do(http.MethodGet, "/v1/tasks/t9", staff, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got deadlines.Entity
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != "Intake" || got.Status != deadlines.StatusInProgress {
		t.Fatalf("unexpected task %+v", got)
	}
	if w := f.do(http.MethodGet, "/v1/tasks/nope", staff, ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestTaskStatusPOST(t *testing.T) {
	store := memTasks{"t9": {ID: "t9", Title: "Intake", DueDate: "6-May", Status: deadlines.StatusInProgress}}
	f := newTaskFixture(t, store)

	staff := f.issuer.CreateSessionToken("u-1", permissions.RoleClinicalStaff)
	if w := f.do(http.MethodPost, "/v1/tasks/t9/status", staff, `{"status":"Completed"}`); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for clinical staff, got %d", w.Code)
	}
	pm := f.issuer.CreateSessionToken("u-2", permissions.RoleProjectManager)
	if w := f.do(http.MethodPost, "/v1/tasks/t9/status", pm, `{"status":"Completed"}`); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if store["t9"].Status != deadlines.StatusCompleted || store["t9"].Title != "Intake" {
		t.Fatalf("unexpected stored task %+v", store["t9"])
	}
	if w := f.do(http.MethodPost, "/v1/tasks/t9/status", pm, `{"status":"Archived"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}
	if w := f.do(http.MethodPost, "/v1/tasks/nope/status", pm, `{"status":"On Hold"}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
