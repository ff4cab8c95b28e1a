// Package events defines lifecycle notifications for downstream
// consumers (dashboards, alerting) and the Bus that carries them. Model
// holds a Bus but publishes no events on it.
package events

import (
	"context"
	"encoding/json"
	"time"

	"cvxlab/internal/catalog"
)

// Kind names a lifecycle event.
type Kind string

const (
	KindScenarioSolved    Kind = "ScenarioSolved"
	KindScenarioConverged Kind = "ScenarioConverged"
	KindScenarioFailed    Kind = "ScenarioFailed"
	KindSubproblemStatus  Kind = "SubproblemStatus"
)

// Event is one lifecycle notification.
type Event struct {
	Kind      Kind
	Timestamp time.Time
	Scenario  int
	Problem   catalog.ProblemKey
	Status    string
	Detail    string
}

// Bus abstracts the underlying event transport.
type Bus interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopBus discards every event; used when no transport is configured.
type NoopBus struct{}

func (NoopBus) Publish(ctx context.Context, event Event) error { return nil }
func (NoopBus) Close() error                                   { return nil }

func marshalEvent(event Event) ([]byte, error) {
	return json.Marshal(event)
}
