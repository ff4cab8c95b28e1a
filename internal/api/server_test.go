package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cvxlab/internal/catalog"
	"cvxlab/internal/coordinate"
)

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Registry() *catalog.Registry {
	return m.Called().Get(0).(*catalog.Registry)
}

func (m *mockEngine) ScenarioTable() (*coordinate.ScenarioTable, error) {
	args := m.Called()
	table, _ := args.Get(0).(*coordinate.ScenarioTable)
	return table, args.Error(1)
}

func (m *mockEngine) RunStatus() map[string]string {
	return m.Called().Get(0).(map[string]string)
}

func (m *mockEngine) CheckResults(ctx context.Context, referenceStoreFile string, tolerance float64) (bool, map[string]float64, error) {
	args := m.Called(ctx, referenceStoreFile, tolerance)
	diffs, _ := args.Get(1).(map[string]float64)
	return args.Bool(0), diffs, args.Error(2)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func jsonBody(s string) *strings.Reader { return strings.NewReader(s) }

func registryWithOneSet() *catalog.Registry {
	reg := catalog.NewRegistry()
	_ = reg.Load(&catalog.InMemorySource{
		Sets:      map[string]catalog.RawSet{"R": {Items: []string{"r1", "r2"}}},
		Tables:    map[string]catalog.RawTable{},
		ProblemsM: map[catalog.ProblemKey]catalog.RawProblem{},
	})
	return reg
}

func TestSetsRouteListsRegistrySets(t *testing.T) {
	engine := &mockEngine{}
	engine.On("Registry").Return(registryWithOneSet())

	srv := NewServer(engine)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sets", nil)
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "r", body[0]["key"])
}

func TestStatusRouteReturnsRunStatus(t *testing.T) {
	engine := &mockEngine{}
	engine.On("RunStatus").Return(map[string]string{"scenario_0": "converged"})

	srv := NewServer(engine)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"scenario_0":"converged"}`, rec.Body.String())
}

func TestCheckResultsRouteBindsRequestAndReturnsDiffs(t *testing.T) {
	engine := &mockEngine{}
	engine.On("CheckResults", mock.Anything, "reference.sqlite", 0.02).
		Return(true, map[string]float64{"x": 0.001}, nil)

	srv := NewServer(engine)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/check-results",
		jsonBody(`{"reference_store_file":"reference.sqlite","tolerance":0.02}`))
	req.Header.Set("Content-Type", "application/json")
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["equal_within_tolerance"])
}

func TestCheckResultsRouteRejectsInvalidBody(t *testing.T) {
	engine := &mockEngine{}
	srv := NewServer(engine)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/check-results", jsonBody("not json"))
	req.Header.Set("Content-Type", "application/json")
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
