package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Candidate is one attemptable executor in a failover chain. Role labels the
// candidate's position ("primary", "fallback") in logs and aggregated errors.
type Candidate[T any] struct {
	Role string
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Failover tries each candidate in order and returns the first success. When
// every candidate fails, the returned error aggregates each failure labeled
// by role so the caller can see the whole chain at once.
func Failover[T any](ctx context.Context, logger *slog.Logger, candidates ...Candidate[T]) (T, error) {
	var zero T
	if len(candidates) == 0 {
		return zero, fmt.Errorf("no candidates configured")
	}

	var failures []string
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := c.Run(ctx)
		if err == nil {
			if len(failures) > 0 {
				logger.Info("failover candidate succeeded",
					"role", c.Role,
					"name", c.Name,
					"failed_before", len(failures))
			}
			return result, nil
		}

		logger.Warn("failover candidate failed",
			"role", c.Role,
			"name", c.Name,
			"error", err)
		failures = append(failures, fmt.Sprintf("%s (%s): %v", c.Role, c.Name, err))
	}

	return zero, fmt.Errorf("all candidates failed: %s", strings.Join(failures, "; "))
}
