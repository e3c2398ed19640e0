package handlers

import (
	"context"
	"net/http"
	"time"

	"gas_usage/internal/models"
	"gas_usage/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockEstimation struct {
	res     service.EstimateResult
	err     error
	lastReq service.EstimateRequest
	calls   int
}

func (m *mockEstimation) Run(ctx context.Context, req service.EstimateRequest) (service.EstimateResult, error) {
	m.calls++
	m.lastReq = req
	return m.res, m.err
}

type mockCalibration struct {
	res     models.CalibrationResult
	err     error
	lastReq service.CalibrateRequest
	calls   int
}

func (m *mockCalibration) Calibrate(ctx context.Context, req service.CalibrateRequest) (models.CalibrationResult, error) {
	m.calls++
	m.lastReq = req
	return m.res, m.err
}

type mockPrefs struct {
	prefs        models.ModelPrefs
	getErr       error
	updateErr    error
	lastK        *float64
	lastGasPrice *float64
	updateCalls  int
}

func (m *mockPrefs) Get(ctx context.Context) (models.ModelPrefs, error) {
	return m.prefs, m.getErr
}
func (m *mockPrefs) Update(ctx context.Context, k, gasPrice *float64) (models.ModelPrefs, error) {
	m.updateCalls++
	m.lastK = k
	m.lastGasPrice = gasPrice
	return m.prefs, m.updateErr
}

type mockRunLog struct {
	resp     []models.PipelineRun
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastKind string
}

func (m *mockRunLog) List(ctx context.Context, f service.RunFilter) ([]models.PipelineRun, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastKind = f.Kind
	return m.resp, m.err
}

type mockMonitoring struct {
	snap models.EstimateSnapshot
	err  error
}

func (m *mockMonitoring) Snapshot(ctx context.Context) (models.EstimateSnapshot, error) {
	return m.snap, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
