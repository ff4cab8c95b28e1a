package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvxlab/internal/catalog"
)

func TestNoopBusPublishAndCloseAreNoOps(t *testing.T) {
	var bus NoopBus
	assert.NoError(t, bus.Publish(context.Background(), Event{Kind: KindScenarioSolved}))
	assert.NoError(t, bus.Close())
}

func TestMarshalEventProducesExpectedJSONShape(t *testing.T) {
	event := Event{
		Kind:      KindScenarioConverged,
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Scenario:  2,
		Problem:   catalog.ProblemKey("P1"),
		Status:    "optimal",
		Detail:    "converged in 3 iterations",
	}
	payload, err := marshalEvent(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "ScenarioConverged", decoded["Kind"])
	assert.Equal(t, "P1", decoded["Problem"])
	assert.Equal(t, float64(2), decoded["Scenario"])
	assert.Equal(t, "optimal", decoded["Status"])
}
