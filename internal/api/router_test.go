package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/domain"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/report"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func course(code string, score domain.Score, verdict domain.Verdict, at domain.AgreementType) domain.ComparisonRecord {
	action := domain.ActionDrop
	if score > 0 {
		action = domain.ActionKeep
	}
	return domain.ComparisonRecord{
		SubjectCode:   code,
		SubjectName:   code + " name",
		Outcomes:      []string{},
		MatchedSkills: []domain.MatchedSkill{},
		System:        domain.SystemDecision{Score: score, Action: action, Reason: "system"},
		Judge:         domain.JudgeDecision{Verdict: verdict, Reason: "judge"},
		Agreement:     at.IsAgreement(),
		AgreementType: at,
	}
}

func records() []domain.SampleEvaluationRecord {
	return []domain.SampleEvaluationRecord{{
		QueryLogID: "q1",
		Question:   "learn go",
		Courses: []domain.ComparisonRecord{
			course("CS101", 3, domain.VerdictPass, domain.AgreementBothKeep),
			course("CS102", 0, domain.VerdictFail, domain.AgreementBothDrop),
			course("CS103", 2, domain.VerdictFail, domain.AgreementExploratoryDelta),
			course("CS104", 0, domain.VerdictPass, domain.AgreementConservativeDrop),
		},
	}}
}

func newTestRouter(t *testing.T) (*gin.Engine, *report.Dir) {
	t.Helper()
	dir := report.NewDir(t.TempDir())
	_, err := dir.Save(context.Background(), report.Build("run-1", records()))
	require.NoError(t, err)
	return NewRouter(dir, report.NewBuilder(nil)).Engine(), dir
}

func do(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	engine, _ := newTestRouter(t)
	w := do(engine, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListRuns(t *testing.T) {
	engine, _ := newTestRouter(t)
	w := do(engine, http.MethodGet, "/api/v1/runs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"runs":["run-1"],"total":1}`, w.Body.String())
}

func TestRunReports(t *testing.T) {
	engine, _ := newTestRouter(t)

	w := do(engine, http.MethodGet, "/api/v1/runs/run-1/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	var metrics domain.EvaluationMetrics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &metrics))
	assert.Equal(t, 4, metrics.TotalCourses)
	assert.InDelta(t, 0.5, metrics.OverallAgreementRate.Value, 1e-9)

	w = do(engine, http.MethodGet, "/api/v1/runs/run-1/disagreements")
	require.Equal(t, http.StatusOK, w.Code)
	var disagreements domain.DisagreementReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &disagreements))
	assert.Equal(t, 2, disagreements.TotalDisagreements)

	w = do(engine, http.MethodGet, "/api/v1/runs/run-1/exploratory-delta")
	require.Equal(t, http.StatusOK, w.Code)
	var delta domain.ExploratoryDeltaReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &delta))
	assert.Equal(t, 1, delta.TotalCases)

	w = do(engine, http.MethodGet, "/api/v1/runs/run-1/records")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = do(engine, http.MethodGet, "/api/v1/runs/run-1/summary")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/markdown"))
	assert.Contains(t, w.Body.String(), "## Run run-1")
}

func TestRunNotFound(t *testing.T) {
	engine, _ := newTestRouter(t)
	for _, path := range []string{
		"/api/v1/runs/missing/metrics",
		"/api/v1/runs/missing/records",
	} {
		w := do(engine, http.MethodGet, path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w := do(engine, http.MethodPost, "/api/v1/runs/missing/recompute")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecompute(t *testing.T) {
	engine, dir := newTestRouter(t)
	before, err := dir.Load(context.Background(), "run-1")
	require.NoError(t, err)

	w := do(engine, http.MethodPost, "/api/v1/runs/run-1/recompute")
	require.Equal(t, http.StatusOK, w.Code)

	after, err := dir.Load(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, before.Metrics, after.Metrics)
	assert.Equal(t, before.Records, after.Records)
}

func TestPrometheusEndpoint(t *testing.T) {
	engine, _ := newTestRouter(t)
	do(engine, http.MethodGet, "/health")

	w := do(engine, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "skill_aligner_eval_api_requests_total")
}

type failingStore struct{}

func (failingStore) ListRuns(context.Context) ([]string, error) {
	return nil, errors.New("disk gone")
}

func (failingStore) Load(context.Context, string) (*report.Bundle, error) {
	return nil, errors.New("disk gone")
}

func (failingStore) Save(context.Context, *report.Bundle) (string, error) {
	return "", errors.New("disk gone")
}

func TestStoreErrors(t *testing.T) {
	engine := NewRouter(failingStore{}, report.NewBuilder(nil)).Engine()

	assert.Equal(t, http.StatusInternalServerError, do(engine, http.MethodGet, "/api/v1/runs").Code)
	assert.Equal(t, http.StatusInternalServerError, do(engine, http.MethodGet, "/api/v1/runs/x/metrics").Code)
}
