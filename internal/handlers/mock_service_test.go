package handlers

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meanin2/ac-automation/internal/logger"
	"github.com/meanin2/ac-automation/internal/models"
	"github.com/meanin2/ac-automation/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Hand-rolled service mocks. Each records the call it received and returns a
// canned result.

type mockReconciler struct {
	entered, exited []string
	power, climate  []bool
	enterErr        error
	exitErr         error
	powerErr        error
	climateErr      error
}

func (m *mockReconciler) Tick(context.Context, time.Time)    {}
func (m *mockReconciler) Run(context.Context, time.Duration) {}

func (m *mockReconciler) EnterWindow(_ context.Context, name string) error {
	m.entered = append(m.entered, name)
	return m.enterErr
}
func (m *mockReconciler) ExitWindow(_ context.Context, name string) error {
	m.exited = append(m.exited, name)
	return m.exitErr
}
func (m *mockReconciler) ForcePower(_ context.Context, on bool) error {
	m.power = append(m.power, on)
	return m.powerErr
}
func (m *mockReconciler) ForceClimateReact(_ context.Context, enabled bool) error {
	m.climate = append(m.climate, enabled)
	return m.climateErr
}

type mockMonitoring struct {
	st  models.ControllerStatus
	err error
}

func (m *mockMonitoring) Status(context.Context) (models.ControllerStatus, error) {
	return m.st, m.err
}

type mockEventLog struct {
	got    service.LogFilter
	events []models.ControlEvent
	err    error
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]models.ControlEvent, error) {
	m.got = f
	return m.events, m.err
}

type mockAuth struct {
	signUpID  int
	signUpErr error
	token     string
	tokenErr  error
	parseID   int
	parseErr  error
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	return m.token, m.tokenErr
}
func (m *mockAuth) ParseToken(accessToken string) (int, error) {
	return m.parseID, m.parseErr
}

type mocks struct {
	rec  *mockReconciler
	mon  *mockMonitoring
	logs *mockEventLog
	auth *mockAuth
}

func newTestRouter(t *testing.T) (*gin.Engine, *mocks) {
	t.Helper()
	m := &mocks{
		rec:  &mockReconciler{},
		mon:  &mockMonitoring{},
		logs: &mockEventLog{},
		auth: &mockAuth{parseID: 1, token: "tok"},
	}
	h := NewHandler(&service.Service{
		Reconciler:    m.rec,
		Monitoring:    m.mon,
		EventLog:      m.logs,
		Authorization: m.auth,
	}, logger.Get(logger.ErrorLevel))
	return h.InitRoutes(), m
}

func doRequest(t *testing.T, router *gin.Engine, method, target, body string, authorized bool) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		req.Header.Set("Authorization", "Bearer tok")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
