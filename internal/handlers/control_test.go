package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/meanin2/ac-automation/internal/service"
)

func TestSetPower(t *testing.T) {
	router, m := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/device/power", `{"on":false}`, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	if len(m.rec.power) != 1 || m.rec.power[0] != false {
		t.Errorf("ForcePower calls: got %v, want [false]", m.rec.power)
	}
}

func TestSetPower_MissingField(t *testing.T) {
	router, m := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/device/power", `{}`, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", w.Code)
	}
	if len(m.rec.power) != 0 {
		t.Errorf("service must not be called on a bad body: %v", m.rec.power)
	}
}

func TestSetPower_ActuationFailure(t *testing.T) {
	router, m := newTestRouter(t)
	m.rec.powerErr = errors.New("vendor 502")

	w := doRequest(t, router, http.MethodPost, "/api/v1/device/power", `{"on":true}`, true)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d, want 502", w.Code)
	}
}

func TestSetClimateReact(t *testing.T) {
	router, m := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/device/climate-react", `{"enabled":true}`, true)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	if len(m.rec.climate) != 1 || m.rec.climate[0] != true {
		t.Errorf("ForceClimateReact calls: got %v, want [true]", m.rec.climate)
	}
}

func TestWindowEnter(t *testing.T) {
	router, m := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/v1/windows/daytime/enter", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	if len(m.rec.entered) != 1 || m.rec.entered[0] != "daytime" {
		t.Errorf("EnterWindow calls: got %v", m.rec.entered)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp["status"] != "entered" {
		t.Errorf("body: got %v", resp)
	}
}

func TestWindowEnter_UnknownWindow(t *testing.T) {
	router, m := newTestRouter(t)
	m.rec.enterErr = service.ErrUnknownWindow

	w := doRequest(t, router, http.MethodPost, "/api/v1/windows/nope/enter", "", true)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", w.Code)
	}
}

func TestWindowExit_ActuationFailure(t *testing.T) {
	router, m := newTestRouter(t)
	m.rec.exitErr = errors.New("vendor timeout")

	w := doRequest(t, router, http.MethodPost, "/api/v1/windows/daytime/exit", "", true)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d, want 502", w.Code)
	}
}
