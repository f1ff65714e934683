// HTTP client for the control plane's command surface
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"falconmesh-gcs/internal/metrics"
)

// TargetAll addresses every known node.
const TargetAll = "all"

// RejectedError reports that the server explicitly refused a submission.
// The reason string is server-supplied.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("command rejected: %s", e.Reason)
}

// TransportError reports that a request could not be completed at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("command transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Result is a successful command delivery report.
type Result struct {
	Delivered int    `json:"delivered"`
	TS        string `json:"ts"`
}

// Health is the control plane's health snapshot plus the observed
// round-trip time.
type Health struct {
	OK      bool          `json:"ok"`
	TS      string        `json:"ts"`
	Nodes   int           `json:"nodes"`
	WSTelem int           `json:"ws_telem"`
	WSUAV   int           `json:"ws_uav"`
	RTT     time.Duration `json:"-"`
}

// Dispatcher submits operator intents to the control plane. Calls are
// fire-and-forget: no retry, no queueing; a caller re-invokes on failure.
// The dispatcher never validates that a target currently exists in the
// store; that check, if any, is server-side.
type Dispatcher struct {
	baseURL string
	hc      *http.Client
	log     *slog.Logger
}

// NewDispatcher creates a Dispatcher for the control API at baseURL.
func NewDispatcher(baseURL string, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 5 * time.Second},
		log:     log,
	}
}

type commandRequest struct {
	RequestID string         `json:"request_id"`
	Target    string         `json:"target"`
	Command   string         `json:"command"`
	Params    map[string]any `json:"params,omitempty"`
}

type commandResponse struct {
	OK        bool   `json:"ok"`
	TS        string `json:"ts"`
	Delivered int    `json:"delivered"`
	Err       string `json:"err"`
	ErrAlt    string `json:"error"`
}

func (r commandResponse) reason() string {
	if r.Err != "" {
		return r.Err
	}
	return r.ErrAlt
}

// Send submits a discrete command for target ("all" or a node identifier)
// and reports the delivery outcome.
func (d *Dispatcher) Send(ctx context.Context, target, command string, params map[string]any) (Result, error) {
	req := commandRequest{
		RequestID: uuid.New().String(),
		Target:    target,
		Command:   command,
		Params:    params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		metrics.IncCommand("transport")
		return Result{}, &TransportError{Err: err}
	}

	resp, raw, err := d.post(ctx, "/api/command", body)
	if err != nil {
		metrics.IncCommand("transport")
		return Result{}, err
	}

	var cr commandResponse
	if jsonErr := json.Unmarshal(raw, &cr); jsonErr != nil {
		if resp.StatusCode/100 != 2 {
			metrics.IncCommand("rejected")
			return Result{}, &RejectedError{Reason: resp.Status}
		}
		metrics.IncCommand("transport")
		return Result{}, &TransportError{Err: jsonErr}
	}
	if !cr.OK || resp.StatusCode/100 != 2 {
		reason := cr.reason()
		if reason == "" {
			reason = resp.Status
		}
		metrics.IncCommand("rejected")
		d.log.Warn("command rejected", "target", target, "command", command, "reason", reason)
		return Result{}, &RejectedError{Reason: reason}
	}

	metrics.IncCommand("ok")
	d.log.Info("command delivered", "target", target, "command", command, "delivered", cr.Delivered)
	return Result{Delivered: cr.Delivered, TS: cr.TS}, nil
}

// PatchMission submits a partial mission object and returns the full
// resulting mission payload on success.
func (d *Dispatcher) PatchMission(ctx context.Context, patch map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	resp, raw, err := d.post(ctx, "/api/mission", body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		var cr commandResponse
		if json.Unmarshal(raw, &cr) == nil && cr.reason() != "" {
			return nil, &RejectedError{Reason: cr.reason()}
		}
		return nil, &RejectedError{Reason: resp.Status}
	}
	return json.RawMessage(raw), nil
}

// FetchMission retrieves the current mission once, for initial state
// before the stream connects. A missing mission is not an error; the
// returned payload is nil in that case.
func (d *Dispatcher) FetchMission(ctx context.Context) (json.RawMessage, error) {
	resp, raw, err := d.get(ctx, "/api/mission")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode/100 != 2 {
		return nil, &TransportError{Err: fmt.Errorf("mission fetch: %s", resp.Status)}
	}
	return json.RawMessage(raw), nil
}

// FetchHealth queries the control plane's health endpoint.
func (d *Dispatcher) FetchHealth(ctx context.Context) (Health, error) {
	start := time.Now()
	resp, raw, err := d.get(ctx, "/health")
	if err != nil {
		return Health{}, err
	}
	if resp.StatusCode/100 != 2 {
		return Health{}, &TransportError{Err: fmt.Errorf("health probe: %s", resp.Status)}
	}
	var h Health
	if err := json.Unmarshal(raw, &h); err != nil {
		return Health{}, &TransportError{Err: err}
	}
	h.RTT = time.Since(start)
	return h, nil
}

func (d *Dispatcher) post(ctx context.Context, path string, body []byte) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return d.do(req)
}

func (d *Dispatcher) get(ctx context.Context, path string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return nil, nil, &TransportError{Err: err}
	}
	return d.do(req)
}

func (d *Dispatcher) do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := d.hc.Do(req)
	if err != nil {
		return nil, nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := readAll(resp)
	if err != nil {
		return nil, nil, &TransportError{Err: err}
	}
	return resp, raw, nil
}

func readAll(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
