package orchestrator

import "sync"

// Status values used across BootstrapResult and PhaseResult.
const (
	StatusOK         = "ok"
	StatusError      = "error"
	StatusInProgress = "in-progress"
	StatusSkipped    = "skipped"
)

// BootstrapResult is the aggregate result of a bootstrap run. The embedded
// mutex guards Phases while phases are still writing.
type BootstrapResult struct {
	sync.Mutex
	Status string                 `json:"status"`
	Phases map[string]PhaseResult `json:"phases"`
}

// PhaseResult is the outcome of a single bootstrap phase.
type PhaseResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ProbeResult is one dependency's answer to a health probe.
type ProbeResult struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}
