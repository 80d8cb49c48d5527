package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atri1011/datafx/internal/app"
	"github.com/atri1011/datafx/internal/domain"
	"github.com/atri1011/datafx/internal/render"
	apperrors "github.com/atri1011/datafx/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAnalyzer struct {
	latest     *domain.AnalysisResult
	lastErr    error
	refreshErr error
	refreshed  int
}

func (f *fakeAnalyzer) Refresh(context.Context) (*domain.AnalysisResult, error) {
	f.refreshed++
	if f.refreshErr != nil {
		f.lastErr = f.refreshErr
		return nil, f.refreshErr
	}
	return f.latest, nil
}

func (f *fakeAnalyzer) Latest() (*domain.AnalysisResult, error) {
	return f.latest, f.lastErr
}

func (f *fakeAnalyzer) Status() app.Status {
	return app.Status{HasResult: f.latest != nil}
}

type fakeCharts struct {
	charts render.Charts
	ready  bool
}

func (f fakeCharts) Snapshot() (render.Charts, bool) {
	return f.charts, f.ready
}

type fakeConfig struct {
	cfg     domain.UserConfig
	patches []domain.UserConfigPatch
}

func (f *fakeConfig) LoadUserConfig(context.Context) (domain.UserConfig, error) {
	return f.cfg, nil
}

func (f *fakeConfig) UpdateUserConfig(_ context.Context, patch domain.UserConfigPatch) (domain.UserConfig, error) {
	f.patches = append(f.patches, patch)
	updated := patch.Apply(f.cfg)
	if updated.Theme == "neon" {
		return domain.UserConfig{}, apperrors.NewValidationError("theme must be light, dark or auto", "theme", updated.Theme)
	}
	f.cfg = updated
	return updated, nil
}

type fakeHistory struct {
	runs []domain.AnalysisRun
}

func (f fakeHistory) Recent(_ context.Context, limit int) ([]domain.AnalysisRun, error) {
	return f.runs[:min(limit, len(f.runs))], nil
}

func (f fakeHistory) Get(_ context.Context, id int64) (*domain.AnalysisResult, error) {
	if id == 1 {
		return &domain.AnalysisResult{AISummary: "old"}, nil
	}
	return nil, nil
}

func sampleResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		VideoDetails: []domain.DerivedItem{
			{RawItem: domain.RawItem{BVID: "BV1", Title: "原神", Author: "米哈游", View: 1000, Like: 100}, LikeRate: 0.1},
		},
		AISummary:   "摘要",
		GeneratedAt: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC),
	}
}

type fixture struct {
	analyzer *fakeAnalyzer
	config   *fakeConfig
	handler  http.Handler
}

func newFixture(latest *domain.AnalysisResult, history HistoryReader) *fixture {
	f := &fixture{
		analyzer: &fakeAnalyzer{latest: latest},
		config:   &fakeConfig{cfg: domain.DefaultUserConfig()},
	}
	srv := New(":0", Deps{
		Analyzer: f.analyzer,
		Charts:   fakeCharts{ready: latest != nil, charts: render.Charts{WordCloud: render.BuildWordCloud(nil)}},
		Config:   f.config,
		History:  history,
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC) },
	})
	f.handler = srv.Handler()
	return f
}

func (f *fixture) do(method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	f.handler.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	f := newFixture(nil, nil)
	w := f.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestGetAnalysis(t *testing.T) {
	t.Run("no result yet", func(t *testing.T) {
		f := newFixture(nil, nil)
		f.analyzer.lastErr = errors.New("网络请求错误")

		w := f.do(http.MethodGet, "/api/analysis", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "网络请求错误")
	})

	t.Run("latest result", func(t *testing.T) {
		f := newFixture(sampleResult(), nil)

		w := f.do(http.MethodGet, "/api/analysis", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var got domain.AnalysisResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "摘要", got.AISummary)
		assert.Len(t, got.VideoDetails, 1)
	})
}

func TestRefresh(t *testing.T) {
	f := newFixture(sampleResult(), nil)
	w := f.do(http.MethodPost, "/api/refresh", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.analyzer.refreshed)

	f.analyzer.refreshErr = apperrors.NewFetchError("获取B站热门视频失败: 未知错误", 0, nil)
	w = f.do(http.MethodPost, "/api/refresh", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "未知错误")

	// previous result still served
	w = f.do(http.MethodGet, "/api/analysis", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCharts(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, newFixture(nil, nil).do(http.MethodGet, "/api/charts", nil).Code)

	w := newFixture(sampleResult(), nil).do(http.MethodGet, "/api/charts", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "热门视频标题词云")
}

func TestExport(t *testing.T) {
	f := newFixture(sampleResult(), nil)

	w := f.do(http.MethodGet, "/api/export/csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="Bili-popular-analysis-2026-10-19.csv"`, w.Header().Get("Content-Disposition"))
	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 2)

	w = f.do(http.MethodGet, "/api/export/json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	w = f.do(http.MethodGet, "/api/export/xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotZero(t, w.Body.Len())

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/export/pdf", nil).Code)
}

func TestExportWithoutData(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, newFixture(nil, nil).do(http.MethodGet, "/api/export/csv", nil).Code)

	empty := &domain.AnalysisResult{VideoDetails: []domain.DerivedItem{}}
	w := newFixture(empty, nil).do(http.MethodGet, "/api/export/csv", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "没有可导出的数据")
}

func TestConfigRoundTrip(t *testing.T) {
	f := newFixture(nil, nil)
	f.config.cfg.AIAPIKey = "sk-abcdefghijkl"

	w := f.do(http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var masked domain.UserConfig
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &masked))
	assert.Equal(t, "sk-a****ijkl", masked.AIAPIKey)

	// echoing the masked key must not overwrite the stored one
	w = f.do(http.MethodPut, "/api/config", []byte(`{"aiApiKey":"sk-a****ijkl","videoLimit":30}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sk-abcdefghijkl", f.config.cfg.AIAPIKey)
	assert.Equal(t, 30, f.config.cfg.VideoLimit)

	w = f.do(http.MethodPut, "/api/config", []byte(`{"theme":"neon"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"theme"`)

	w = f.do(http.MethodPut, "/api/config", []byte(`{not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistory(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, newFixture(nil, nil).do(http.MethodGet, "/api/history", nil).Code)

	f := newFixture(nil, fakeHistory{runs: []domain.AnalysisRun{{ID: 2}, {ID: 1}}})

	w := f.do(http.MethodGet, "/api/history?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Runs []domain.AnalysisRun `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Runs, 1)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/history?limit=x", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/history/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/history/9", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/history/abc", nil).Code)
}
