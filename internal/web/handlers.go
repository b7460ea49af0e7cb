package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/ScanGo/internal/debug"
	"github.com/cjeanneret/ScanGo/internal/logic/report"
	"github.com/cjeanneret/ScanGo/internal/logic/scan"
	"github.com/cjeanneret/ScanGo/internal/logic/sensitivity"
	"github.com/cjeanneret/ScanGo/internal/numfmt"
	"github.com/cjeanneret/ScanGo/internal/render"
)

// MaxRequestBytes caps the body of POST /calculate.
const MaxRequestBytes = 1 << 20

// FormConfig holds the values the form starts with (from config).
type FormConfig struct {
	Scanner     string                `json:"scanner"`
	Defaults    scan.Inputs           `json:"defaults"`
	Frequencies []scan.PulseFrequency `json:"frequencies"`
	Samples     int                   `json:"samples"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster  *StatusBroadcaster
	FormDefaults FormConfig
	staticFS     fs.FS
	evaluations  atomic.Int64
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(broadcaster *StatusBroadcaster, formDefaults FormConfig, staticFS fs.FS) *Handlers {
	if formDefaults.Frequencies == nil {
		formDefaults.Frequencies = scan.Frequencies
	}
	return &Handlers{
		Broadcaster:  broadcaster,
		FormDefaults: formDefaults,
		staticFS:     staticFS,
	}
}

// Evaluations returns the number of evaluations served so far.
func (h *Handlers) Evaluations() int64 {
	return h.evaluations.Load()
}

// HandleConfig returns the form default values (from config) as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.FormDefaults)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleCalculate handles POST /calculate. Invalid inputs are not an HTTP
// error: the report comes back with valid=false and the violation messages.
func (h *Handlers) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	debug.Live("POST /calculate from %s", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	var overrides Overrides
	if err := json.NewDecoder(r.Body).Decode(&overrides); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSONError(w, http.StatusBadRequest, "request body too large")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	debug.Trace("calculate body: %s", overrides)

	in, notices := overrides.Apply(h.FormDefaults.Defaults)
	rep, err := h.evaluate(in, notices)
	if err != nil {
		h.internalError(w, "calculate", err, "could not build report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handlers) evaluate(in scan.Inputs, notices []string) (*report.Report, error) {
	id := uuid.New().String()
	ev := scan.Evaluate(in)

	rep, err := report.Build(ev, report.Meta{ID: id, Scanner: h.FormDefaults.Scanner, Notices: notices})
	if err != nil {
		return nil, err
	}
	h.evaluations.Add(1)

	debug.Evaluation(id, rep.Valid, len(rep.Violations))
	debug.PrintStruct("Inputs", in)
	h.Broadcaster.Evaluation(rep)
	return rep, nil
}

// HandleChart handles GET /chart and renders the acquisition-time curve for
// the angles and frequency given in the query. Missing parameters use the defaults.
func (h *Handlers) HandleChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	base := h.FormDefaults.Defaults
	samples := h.FormDefaults.Samples

	ints := []struct {
		name string
		dst  *int
	}{
		{"phi_start", &base.PhiStart},
		{"phi_stop", &base.PhiStop},
		{"theta_start", &base.ThetaStart},
		{"theta_stop", &base.ThetaStop},
		{"samples", &samples},
	}
	for _, p := range ints {
		s := q.Get(p.name)
		if s == "" {
			continue
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, p.name+" must be an integer")
			return
		}
		*p.dst = v
	}
	if s := q.Get("pulse_frequency"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "pulse_frequency must be an integer")
			return
		}
		base.PulseFrequency = scan.PulseFrequency(v)
	}

	debug.Live("GET /chart: %d samples at %s", samples, base.PulseFrequency)
	pts, err := sensitivity.Curve(base, samples)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	title := fmt.Sprintf("%s acquisition time, %s", h.FormDefaults.Scanner, numfmt.Frequency(base.PulseFrequency.Hz()))
	var buf bytes.Buffer
	if err := render.ChartPage(&buf, title, pts); err != nil {
		h.internalError(w, "chart", err, "render error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// internalError reports a server-side failure of op to the debug log and the
// status stream, then answers 500 with msg.
func (h *Handlers) internalError(w http.ResponseWriter, op string, err error, msg string) {
	debug.Error(fmt.Errorf("%s: %w", op, err))
	h.Broadcaster.Failure(op, err)
	writeJSONError(w, http.StatusInternalServerError, msg)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		debug.Error(fmt.Errorf("encode json response: %w", err))
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
