package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	rediscache "skyflip/internal/cache/redis"
	"skyflip/internal/detector"
	"skyflip/internal/models"
	"skyflip/internal/repository/memory"
	"skyflip/internal/service"
	"skyflip/internal/sink"
)

type decoded struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
}

func do(t *testing.T, r *gin.Engine, method, path string) (int, decoded) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body decoded
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w.Code, body
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestReady(t *testing.T) {
	r := newEngine()
	h := &HealthHandler{Checks: map[string]Pinger{
		"db":    PingFunc(func(context.Context) error { return nil }),
		"redis": PingFunc(func(context.Context) error { return errors.New("refused") }),
	}}
	h.Register(r)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want=503", w.Code)
	}
	var body struct {
		Checks map[string]string `json:"checks"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Checks["db"] != "ok" || body.Checks["redis"] != "unreachable" {
		t.Fatalf("checks=%v", body.Checks)
	}

	h.Checks = nil
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d want=200", w.Code)
	}
}

func TestFlipHandler_List(t *testing.T) {
	store := memory.New()
	dbSink := &sink.DBSink{Repo: store}
	err := dbSink.Accept(context.Background(), "c1", []models.FlipCandidate{
		{ItemID: "COAL", Kind: models.QuoteKindBazaar, SourceKey: "bazaar", EdgeRatio: 1.2, Bazaar: &models.BazaarQuote{BuyPrice: 10, SellPrice: 12}},
		{ItemID: "WHEAT", Kind: models.QuoteKindBazaar, SourceKey: "bazaar", EdgeRatio: 1.02, Bazaar: &models.BazaarQuote{BuyPrice: 100, SellPrice: 102}},
	})
	if err != nil {
		t.Fatalf("seed err=%v", err)
	}
	r := newEngine()
	(&FlipHandler{Repo: store}).Register(r)

	code, body := do(t, r, http.MethodGet, "/api/v1/flips?min_edge=1.1&kind=bazaar")
	if code != http.StatusOK {
		t.Fatalf("status=%d", code)
	}
	var items []map[string]any
	_ = json.Unmarshal(body.Data, &items)
	if len(items) != 1 || items[0]["item_id"] != "COAL" || items[0]["cycle_id"] != "c1" {
		t.Fatalf("items=%v", items)
	}
	if _, ok := items[0]["bazaar"]; !ok {
		t.Fatalf("bazaar quote missing: %v", items[0])
	}
}

type stubLatest struct {
	latest *rediscache.LatestCandidates
	err    error
}

func (s stubLatest) Latest(ctx context.Context) (*rediscache.LatestCandidates, bool, error) {
	return s.latest, s.latest != nil, s.err
}

func TestFlipHandler_Latest(t *testing.T) {
	r := newEngine()
	(&FlipHandler{}).Register(r)
	if code, _ := do(t, r, http.MethodGet, "/api/v1/flips/latest"); code != http.StatusNotFound {
		t.Fatalf("status=%d want=404 without cache", code)
	}

	r = newEngine()
	(&FlipHandler{Cache: stubLatest{latest: &rediscache.LatestCandidates{
		CycleID:    "c9",
		UpdatedAt:  time.Now().UTC(),
		Candidates: []models.FlipCandidate{{ItemID: "COAL"}},
	}}}).Register(r)
	code, body := do(t, r, http.MethodGet, "/api/v1/flips/latest")
	if code != http.StatusOK || body.Meta["cycle_id"] != "c9" {
		t.Fatalf("status=%d meta=%v", code, body.Meta)
	}
}

func TestSourceHandler(t *testing.T) {
	store := memory.New()
	d := detector.New(store, nil)
	_, _ = d.CheckAndUpdate(context.Background(), "bazaar", "abc")
	r := newEngine()
	(&SourceHandler{Repo: store}).Register(r)

	code, body := do(t, r, http.MethodGet, "/api/v1/sources")
	var items []map[string]any
	_ = json.Unmarshal(body.Data, &items)
	if code != http.StatusOK || len(items) != 1 || items[0]["source_key"] != "bazaar" || items[0]["hash"] != "abc" {
		t.Fatalf("status=%d items=%v", code, items)
	}
}

type stubRunner struct {
	res *service.CycleResult
	err error
}

func (s stubRunner) Run(ctx context.Context) (*service.CycleResult, error) {
	return s.res, s.err
}

func TestCycleHandler_Run(t *testing.T) {
	cases := []struct {
		name   string
		runner stubRunner
		want   int
	}{
		{name: "busy", runner: stubRunner{err: models.ErrCycleInProgress}, want: http.StatusConflict},
		{name: "fetch", runner: stubRunner{res: &service.CycleResult{ID: "c1"}, err: &models.FetchError{Err: errors.New("502")}}, want: http.StatusBadGateway},
		{name: "ok", runner: stubRunner{res: &service.CycleResult{
			ID:           "c2",
			SourceErrors: map[string]error{"auction-01": models.ErrStoreConflict},
		}}, want: http.StatusOK},
	}
	for _, tc := range cases {
		r := newEngine()
		(&CycleHandler{Repo: memory.New(), Runner: tc.runner}).Register(r)
		code, body := do(t, r, http.MethodPost, "/api/v1/cycles/run")
		if code != tc.want {
			t.Fatalf("%s: status=%d want=%d (%s)", tc.name, code, tc.want, body.Message)
		}
	}
}

func TestCycleHandler_List(t *testing.T) {
	store := memory.New()
	_ = store.InsertCycleRun(context.Background(), &models.CycleRun{ID: "a", Status: models.CycleStatusOK})
	_ = store.InsertCycleRun(context.Background(), &models.CycleRun{ID: "b", Status: models.CycleStatusFailed})
	r := newEngine()
	(&CycleHandler{Repo: store}).Register(r)

	code, body := do(t, r, http.MethodGet, "/api/v1/cycles?status=failed")
	var items []map[string]any
	_ = json.Unmarshal(body.Data, &items)
	if code != http.StatusOK || len(items) != 1 || items[0]["id"] != "b" {
		t.Fatalf("status=%d items=%v", code, items)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{err: models.ErrCycleInProgress, want: http.StatusConflict},
		{err: fmt.Errorf("check source hash auction-02: %w", models.ErrStoreConflict), want: http.StatusConflict},
		{err: &models.FetchError{Err: errors.New("timeout")}, want: http.StatusBadGateway},
		{err: context.DeadlineExceeded, want: http.StatusGatewayTimeout},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("err=%v status=%d want=%d", tc.err, got, tc.want)
		}
	}
}
