package sensibo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the Sensibo v2 REST API. Fetchers return a value or an
// error ("unknown"); they never panic past the caller. Actuations are
// fire-and-confirm: a non-2xx final status is an error the caller logs rather
// than propagates as fatal.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	retries int
	backoff time.Duration
}

// Measurement is one temperature reading. At may be zero when the vendor
// timestamp could not be parsed; staleness is judged by the caller.
type Measurement struct {
	TemperatureC float64
	At           time.Time
}

var (
	// ErrNoMeasurement means the device reported no usable reading.
	ErrNoMeasurement = errors.New("sensibo: no measurement available")
	// ErrNoPods means discovery returned an empty pod list.
	ErrNoPods = errors.New("sensibo: no pods on account")
)

// NewClient builds a client with a bounded request timeout and retry count.
func NewClient(baseURL, apiKey string, timeout time.Duration, retries int) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		retries: retries,
		backoff: time.Second,
	}
}

// ListPodIDs returns the ids of all pods on the account.
func (c *Client) ListPodIDs(ctx context.Context) ([]string, error) {
	var pods []struct {
		ID string `json:"id"`
	}
	q := url.Values{"fields": {"id"}}
	if err := c.get(ctx, "/users/me/pods", q, &pods); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(pods))
	for _, p := range pods {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// ClimateReactEnabled reports whether the smart automation layer is enabled.
func (c *Client) ClimateReactEnabled(ctx context.Context, podID string) (bool, error) {
	var sm struct {
		Enabled bool `json:"enabled"`
	}
	q := url.Values{"fields": {"enabled"}}
	if err := c.get(ctx, "/pods/"+podID+"/smartmode", q, &sm); err != nil {
		return false, err
	}
	return sm.Enabled, nil
}

// DeviceOn reports the appliance power state from the latest AC state entry.
func (c *Client) DeviceOn(ctx context.Context, podID string) (bool, error) {
	var states []struct {
		ACState struct {
			On bool `json:"on"`
		} `json:"acState"`
	}
	q := url.Values{"limit": {"1"}, "fields": {"acState"}}
	if err := c.get(ctx, "/pods/"+podID+"/acStates", q, &states); err != nil {
		return false, err
	}
	if len(states) == 0 {
		return false, nil
	}
	return states[0].ACState.On, nil
}

// LatestMeasurement returns the newest temperature reading.
func (c *Client) LatestMeasurement(ctx context.Context, podID string) (Measurement, error) {
	var meas []struct {
		Temperature *float64 `json:"temperature"`
		Time        string   `json:"time"`
		SensiboTime string   `json:"sensiboTime"`
	}
	q := url.Values{"limit": {"1"}, "fields": {"temperature,time"}}
	if err := c.get(ctx, "/pods/"+podID+"/measurements", q, &meas); err != nil {
		return Measurement{}, err
	}
	if len(meas) == 0 || meas[0].Temperature == nil {
		return Measurement{}, ErrNoMeasurement
	}
	m := Measurement{TemperatureC: *meas[0].Temperature}
	raw := meas[0].Time
	if raw == "" {
		raw = meas[0].SensiboTime
	}
	if ts, err := parseVendorTime(raw); err == nil {
		m.At = ts
	}
	return m, nil
}

// SetClimateReact enables or disables the smart automation layer.
func (c *Client) SetClimateReact(ctx context.Context, podID string, enabled bool) error {
	return c.post(ctx, "/pods/"+podID+"/smartmode", map[string]any{"enabled": enabled})
}

// SetDevicePower turns the appliance on or off.
func (c *Client) SetDevicePower(ctx context.Context, podID string, on bool) error {
	return c.post(ctx, "/pods/"+podID+"/acStates", map[string]any{
		"acState": map[string]any{"on": on},
	})
}

// parseVendorTime accepts RFC3339 with or without a trailing Z offset.
func parseVendorTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	return time.Parse(time.RFC3339, s)
}

type envelope struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
}

// get performs a GET with retries and decodes the envelope's result field.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if q == nil {
		q = url.Values{}
	}
	q.Set("apiKey", c.apiKey)

	body, err := c.do(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	if len(env.Result) == 0 {
		return fmt.Errorf("%s: empty result", path)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", path, err)
	}
	return nil
}

// post performs a JSON POST with retries, discarding the response body.
func (c *Client) post(ctx context.Context, path string, payload any) error {
	q := url.Values{"apiKey": {c.apiKey}}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", path, err)
	}
	_, err = c.do(ctx, http.MethodPost, path, q, body)
	return err
}

// do issues the request with bounded linear-backoff retries on transport
// errors and retryable statuses (429 and 5xx).
func (c *Client) do(ctx context.Context, method, path string, q url.Values, payload []byte) ([]byte, error) {
	u := c.baseURL + path + "?" + q.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "acfallbackd/1.0")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if retryable(resp.StatusCode) {
			lastErr = fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}
		return body, nil
	}
	return nil, fmt.Errorf("%s %s: retries exhausted: %w", method, path, lastErr)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
