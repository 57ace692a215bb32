package service

import (
	"context"
	"time"

	"github.com/meanin2/ac-automation/internal/history"
	"github.com/meanin2/ac-automation/internal/logger"
	"github.com/meanin2/ac-automation/internal/models"
	"github.com/meanin2/ac-automation/internal/policy"
	"github.com/meanin2/ac-automation/internal/repository"
	"github.com/meanin2/ac-automation/internal/schedule"
	"github.com/meanin2/ac-automation/internal/sensibo"
	"github.com/meanin2/ac-automation/internal/telemetry"
)

// DeviceClient is the vendor API surface the reconciler consumes. Fetchers
// return a value or an error ("unknown"); actuations are fire-and-confirm.
type DeviceClient interface {
	ClimateReactEnabled(ctx context.Context, deviceID string) (bool, error)
	DeviceOn(ctx context.Context, deviceID string) (bool, error)
	LatestMeasurement(ctx context.Context, deviceID string) (sensibo.Measurement, error)
	SetClimateReact(ctx context.Context, deviceID string, enabled bool) error
	SetDevicePower(ctx context.Context, deviceID string, on bool) error
}

// Reconciler drives the device toward the window-mandated state and runs the
// fallback safety net. Tick is the single periodic entry point; the named
// window actions exist for deployments that trigger mandates from an external
// calendar scheduler instead of (or in addition to) the tick loop.
type Reconciler interface {
	Tick(ctx context.Context, now time.Time)
	Run(ctx context.Context, interval time.Duration)
	EnterWindow(ctx context.Context, name string) error
	ExitWindow(ctx context.Context, name string) error
	ForcePower(ctx context.Context, on bool) error
	ForceClimateReact(ctx context.Context, enabled bool) error
}

// Monitoring exposes the read-only controller status snapshot.
type Monitoring interface {
	Status(ctx context.Context) (models.ControllerStatus, error)
}

// EventLog exposes the append-only journal with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ControlEvent, error)
}

// Authorization handles operator accounts and API tokens.
type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Service aggregates all sub-services.
type Service struct {
	Reconciler
	Monitoring
	EventLog
	Authorization
}

// Deps carries everything the service layer is wired from. All state (cache,
// history, cooldown) is instance-owned, never process-global, so tests and
// future multi-device deployments can run independent instances.
type Deps struct {
	DeviceID   string
	Client     DeviceClient
	Repos      *repository.Repository
	Windows    *schedule.Table
	Policy     policy.Config
	History    *history.History
	Cache      *telemetry.Cache
	CacheTTL   time.Duration
	Staleness  time.Duration
	SigningKey string
	Log        *logger.Logger
}

func NewService(d Deps) *Service {
	rec := NewReconcilerService(d)
	return &Service{
		Reconciler:    rec,
		Monitoring:    NewMonitoringService(rec, d.DeviceID),
		EventLog:      NewEventLogService(d.Repos.Events),
		Authorization: NewAuthService(d.Repos.Users, d.SigningKey),
	}
}
