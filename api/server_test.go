package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfloor-planner/core/model"
	"shopfloor-planner/core/plan"
	"shopfloor-planner/core/simulate"
	"shopfloor-planner/infra/store"
)

type stubScheduler struct {
	result *plan.Result
	err    error
	gotReq plan.Request
}

func (s *stubScheduler) GenerateSchedule(ctx context.Context, req plan.Request) (*plan.Result, error) {
	s.gotReq = req
	return s.result, s.err
}

type stubSimulator struct {
	rushResult *simulate.Result
	rushErr    error
	estimate   *simulate.DeliveryEstimate
	estimerr   error
}

func (s *stubSimulator) SimulateRushOrder(ctx context.Context, rush simulate.RushOrder) (*simulate.Result, error) {
	return s.rushResult, s.rushErr
}

func (s *stubSimulator) EstimateDelivery(ctx context.Context, productID uuid.UUID, quantity int) (*simulate.DeliveryEstimate, error) {
	return s.estimate, s.estimerr
}

type stubJobs struct {
	jobs      []model.Job
	err       error
	gotFilter store.JobFilter
}

func (s *stubJobs) CurrentJobs(ctx context.Context, f store.JobFilter) ([]model.Job, error) {
	s.gotFilter = f
	return s.jobs, s.err
}

func newTestServer(sched *stubScheduler, sim *stubSimulator, jobs *stubJobs) *httptest.Server {
	if sched == nil {
		sched = &stubScheduler{result: &plan.Result{}}
	}
	if sim == nil {
		sim = &stubSimulator{}
	}
	if jobs == nil {
		jobs = &stubJobs{}
	}
	return httptest.NewServer(NewServer(sched, sim, jobs, nil).Handler())
}

func TestHealth(t *testing.T) {
	ts := newTestServer(nil, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGenerateSchedule(t *testing.T) {
	sched := &stubScheduler{result: &plan.Result{
		TotalJobs: 2,
		Metadata:  plan.Metadata{Strategy: plan.StrategyRush, HorizonDays: 14},
	}}
	ts := newTestServer(sched, nil, nil)
	defer ts.Close()

	body := `{"horizon_days": 14, "strategy": "rush"}`
	resp, err := http.Post(ts.URL+"/api/v1/schedule/generate", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 14, sched.gotReq.HorizonDays)
	assert.Equal(t, plan.StrategyRush, sched.gotReq.Strategy)

	var got plan.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 2, got.TotalJobs)
}

func TestGenerateScheduleValidationError(t *testing.T) {
	sched := &stubScheduler{err: &plan.SchedulingError{Reason: "horizon_days must be between 1 and 90, got 365"}}
	ts := newTestServer(sched, nil, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/v1/schedule/generate", "application/json", strings.NewReader(`{"horizon_days": 365}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Contains(t, got["error"], "horizon_days")
}

func TestGenerateScheduleInternalError(t *testing.T) {
	sched := &stubScheduler{err: errors.New("boom")}
	ts := newTestServer(sched, nil, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/v1/schedule/generate", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestGenerateScheduleBadBody(t *testing.T) {
	ts := newTestServer(nil, nil, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/v1/schedule/generate", "application/json", strings.NewReader(`{"strategy": 7}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCurrentSchedule(t *testing.T) {
	lineID := uuid.New()
	jobs := &stubJobs{jobs: []model.Job{{ID: uuid.New(), ProductionLineID: lineID}}}
	ts := newTestServer(nil, nil, jobs)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/schedule/current?status=planned&production_line_id=" + lineID.String() + "&skip=5&limit=20")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "planned", jobs.gotFilter.Status)
	assert.Equal(t, lineID, jobs.gotFilter.ProductionLineID)
	assert.Equal(t, 5, jobs.gotFilter.Skip)
	assert.Equal(t, 20, jobs.gotFilter.Limit)

	var got struct {
		Jobs  []model.Job `json:"jobs"`
		Total int         `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 1, got.Total)
}

func TestCurrentScheduleBadFilters(t *testing.T) {
	ts := newTestServer(nil, nil, nil)
	defer ts.Close()

	for _, query := range []string{
		"?production_line_id=not-a-uuid",
		"?skip=-1",
		"?limit=0",
		"?limit=9000",
	} {
		resp, err := http.Get(ts.URL + "/api/v1/schedule/current" + query)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "query %s", query)
	}
}

func TestSimulateRushOrder(t *testing.T) {
	sim := &stubSimulator{rushResult: &simulate.Result{
		TotalScenarios:      1,
		RecommendedScenario: "Append to Line 1",
	}}
	ts := newTestServer(nil, sim, nil)
	defer ts.Close()

	body := `{"product_id": "` + uuid.NewString() + `", "quantity": 50, "target_date": "` +
		time.Now().Add(72*time.Hour).Format(time.RFC3339) + `"}`
	resp, err := http.Post(ts.URL+"/api/v1/simulate/rush-order", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got simulate.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "Append to Line 1", got.RecommendedScenario)
}

func TestSimulateRushOrderInfeasible(t *testing.T) {
	sim := &stubSimulator{rushErr: &simulate.SimulationError{Reason: "no feasible scenarios found"}}
	ts := newTestServer(nil, sim, nil)
	defer ts.Close()

	body := `{"product_id": "` + uuid.NewString() + `", "quantity": 50}`
	resp, err := http.Post(ts.URL+"/api/v1/simulate/rush-order", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestEstimateDelivery(t *testing.T) {
	sim := &stubSimulator{estimate: &simulate.DeliveryEstimate{Quantity: 50, Confidence: 75}}
	ts := newTestServer(nil, sim, nil)
	defer ts.Close()

	body := `{"product_id": "` + uuid.NewString() + `", "quantity": 50}`
	resp, err := http.Post(ts.URL+"/api/v1/simulate/delivery", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got simulate.DeliveryEstimate
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 75.0, got.Confidence)
}

func TestEstimateDeliveryRejectsZeroQuantity(t *testing.T) {
	ts := newTestServer(nil, nil, nil)
	defer ts.Close()

	body := `{"product_id": "` + uuid.NewString() + `", "quantity": 0}`
	resp, err := http.Post(ts.URL+"/api/v1/simulate/delivery", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
