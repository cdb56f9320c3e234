// Package decisionlog is the durable, append-only record of every decision
// explanation, and the async fire-and-forget logger in front of it.
// Nothing in here ever propagates a failure back into the decision path.
package decisionlog

import (
	"context"

	"nudge/internal/types"
)

// Sink is an append-only destination for decision explanations.
type Sink interface {
	Append(ctx context.Context, e types.DecisionExplanation) error
	Close() error
}
