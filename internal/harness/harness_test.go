// Package harness runs the scheduling conformance scenarios in
// internal/harness/scenarios against the real bus, routing, schedule
// tracking, queueing, and Scheduler Engine packages.
package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/homestead/orchestrator/internal/harness/actions"
	"github.com/homestead/orchestrator/internal/harness/engine"
	"github.com/homestead/orchestrator/internal/harness/loader"
)

func loadScenarios(t *testing.T) []*loader.Scenario {
	t.Helper()
	cases, err := loader.LoadDirectory("scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, cases)
	return cases
}

func runScenario(t *testing.T, sc *loader.Scenario) *engine.ScenarioResult {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := actions.New(ctx)
	defer h.Close()

	e := engine.New()
	engine.RegisterCheckers(e)
	h.Register(e)

	return e.Run(ctx, sc)
}

func TestSchedulingScenarios(t *testing.T) {
	for _, sc := range loadScenarios(t) {
		sc := sc
		t.Run(sc.ID+"_"+sc.Name, func(t *testing.T) {
			t.Parallel()
			result := runScenario(t, sc)

			if !result.Passed {
				for i, sr := range result.StepResults {
					if !sr.Passed {
						t.Logf("step %d (%s) failed: %v", i, sr.Step.Action, sr.Error)
						for key, er := range sr.ExpectResults {
							if !er.Passed {
								t.Logf("  expectation %q: %s", key, er.Message)
							}
						}
					}
				}
			}
			require.True(t, result.Passed, "scenario %s failed: %v", sc.ID, result.Error)
		})
	}
}

func TestCommandQueuedEventAccompaniesNonCriticalEnqueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := actions.New(ctx)
	defer h.Close()

	e := engine.New()
	engine.RegisterCheckers(e)
	h.Register(e)

	sc := &loader.Scenario{
		ID:   "SCN-SCHED-INLINE-001",
		Name: "command_queued accompanies a Normal enqueue",
		Steps: []loader.Step{
			{Action: "observe_route", Params: map[string]interface{}{
				"device_id": "v02", "transport": "usb", "address": "/dev/ttyUSB2",
			}},
			{Action: "enqueue_command", Params: map[string]interface{}{
				"device_id": "v02", "priority": "NORMAL", "action": "ping",
			}, Expect: map[string]interface{}{
				"event_order": []interface{}{"command_queued"},
			}},
		},
	}

	result := e.Run(ctx, sc)
	require.True(t, result.Passed, "%v", result.Error)
}

func TestQueryQueueStatusReportsUnknownDeviceAsNotFound(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := actions.New(ctx)
	defer h.Close()

	e := engine.New()
	engine.RegisterCheckers(e)
	h.Register(e)

	sc := &loader.Scenario{
		ID:   "SCN-SCHED-INLINE-002",
		Name: "query_queue_status on a device with no schedule",
		Steps: []loader.Step{
			{Action: "query_queue_status", Params: map[string]interface{}{
				"device_id": "never-seen",
			}, Expect: map[string]interface{}{
				"found": false,
			}},
		},
	}

	result := e.Run(ctx, sc)
	require.True(t, result.Passed, "%v", result.Error)
}
