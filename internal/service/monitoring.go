package service

import (
	"context"

	"github.com/meanin2/ac-automation/internal/models"
)

// StatusSource is the reconciler's snapshot view.
type StatusSource interface {
	Snapshot() models.ControllerStatus
}

type MonitoringService struct {
	src      StatusSource
	deviceID string
}

func NewMonitoringService(src StatusSource, deviceID string) *MonitoringService {
	return &MonitoringService{src: src, deviceID: deviceID}
}

// Status returns the most recent reconciler snapshot. Before the first pass
// completes it returns a baseline snapshot identifying the device.
func (s *MonitoringService) Status(ctx context.Context) (models.ControllerStatus, error) {
	st := s.src.Snapshot()
	if st.TickedAt.IsZero() {
		return models.ControllerStatus{DeviceID: s.deviceID}, nil
	}
	return st, nil
}
