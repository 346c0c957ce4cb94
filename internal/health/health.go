// Package health answers readiness and liveness probes.
package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// Liveness is satisfied by the ledger tailer.
type Liveness interface {
	IsAlive() bool
}

// Checker reports ready once MarkReady is called and live while the
// tailer is alive.
type Checker struct {
	ready int32
	tail  Liveness
}

func New(tail Liveness) *Checker {
	return &Checker{tail: tail}
}

// MarkReady is called after the tailer has started.
func (c *Checker) MarkReady() {
	atomic.StoreInt32(&c.ready, 1)
}

func (c *Checker) IsReady() bool {
	return atomic.LoadInt32(&c.ready) == 1 && c.IsLive()
}

func (c *Checker) IsLive() bool {
	return c.tail != nil && c.tail.IsAlive()
}

// ReadyHandler serves the readiness probe.
func (c *Checker) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	respond(w, c.IsReady(), "ready")
}

// LiveHandler serves the liveness probe.
func (c *Checker) LiveHandler(w http.ResponseWriter, r *http.Request) {
	respond(w, c.IsLive(), "ok")
}

func respond(w http.ResponseWriter, ok bool, status string) {
	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
		status = "unavailable"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(struct {
		Status string `json:"status"`
	}{Status: status})
}
