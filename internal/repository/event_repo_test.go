package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/meanin2/ac-automation/internal/models"
)

func newEventMock(t *testing.T) (*EventSQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewEventSQLite(db), mock
}

func TestEventAppend(t *testing.T) {
	repo, mock := newEventMock(t)

	occurred := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO control_events (id, occurred_at, type, message, meta)`)).
		WithArgs("evt-1", "2026-01-01 12:00:00", "INTERVENTION", "device off & temperature at/above threshold", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Append(context.Background(), models.ControlEvent{
		EventID:     "evt-1",
		OccurredAt:  occurred,
		Type:        "intervention",
		Description: "device off & temperature at/above threshold",
		Metadata:    map[string]any{"window": "daytime"},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEventAppend_FillsDefaults(t *testing.T) {
	repo, mock := newEventMock(t)

	// Missing EventID and OccurredAt get generated; both land as non-nil args.
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO control_events`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "ACTUATION", "power on", nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Append(context.Background(), models.ControlEvent{
		Type:        "actuation",
		Description: "power on",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEventList(t *testing.T) {
	repo, mock := newEventMock(t)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	occurred := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
		AddRow("evt-1", occurred, "INTERVENTION", "power on", `{"window":"daytime"}`).
		AddRow("evt-2", occurred.Add(time.Minute), "WINDOW_EXIT", "daytime ended", nil)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, occurred_at, type, message, meta FROM control_events WHERE occurred_at >= ? AND occurred_at <= ? AND type = ? ORDER BY occurred_at ASC`,
	)).
		WithArgs(from, to, "INTERVENTION").
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), from, to, "intervention")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len: got %d, want 2", len(got))
	}
	if got[0].EventID != "evt-1" || got[0].Type != "INTERVENTION" {
		t.Errorf("first row: got %+v", got[0])
	}
	meta, ok := got[0].Metadata.(map[string]any)
	if !ok || meta["window"] != "daytime" {
		t.Errorf("metadata: got %v", got[0].Metadata)
	}
	if got[1].Metadata != nil {
		t.Errorf("nil meta column must stay nil, got %v", got[1].Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEventList_NoFilters(t *testing.T) {
	repo, mock := newEventMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, occurred_at, type, message, meta FROM control_events ORDER BY occurred_at ASC`,
	)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}))

	got, err := repo.List(context.Background(), time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len: got %d, want 0", len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
