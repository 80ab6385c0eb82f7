package clients

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sony/gobreaker"
)

// NewCircuitBreaker returns a gobreaker that trips after 3 consecutive
// failures, stays open for 30 seconds, and logs every state transition.
// Lookups that found nothing do not count as failures.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         name,
		MaxRequests:  1,
		Interval:     0,
		Timeout:      30 * time.Second,
		IsSuccessful: isHealthyOutcome,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			level := slog.LevelInfo
			if to == gobreaker.StateOpen {
				level = slog.LevelWarn
			}
			slog.Log(context.Background(), level, "circuit breaker state change",
				"dependency", name, "from", from.String(), "to", to.String())
		},
	})
}

// isHealthyOutcome reports whether err still shows a working dependency.
// A missing row or Jenkins build is an answer, not an outage.
func isHealthyOutcome(err error) bool {
	return err == nil ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, ErrJenkinsNotFound)
}
