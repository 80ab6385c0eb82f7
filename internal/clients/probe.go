package clients

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Swap-nul/statusoverview/internal/orchestrator"
)

// probeResult converts the outcome of a breaker-wrapped check into a
// ProbeResult. An open breaker is reported as "circuit open".
func probeResult(name string, start time.Time, err error) orchestrator.ProbeResult {
	latency := time.Since(start).Milliseconds()

	if err != nil {
		errMsg := err.Error()
		if errors.Is(err, gobreaker.ErrOpenState) {
			errMsg = "circuit open"
		}
		return orchestrator.ProbeResult{
			Name:      name,
			OK:        false,
			LatencyMs: latency,
			Error:     errMsg,
		}
	}

	return orchestrator.ProbeResult{
		Name:      name,
		OK:        true,
		LatencyMs: latency,
	}
}
