// Package engine executes scenarios loaded by internal/harness/loader
// against real orchestrator components, checking the event sequences
// and query results each step produces.
package engine

import (
	"context"
	"time"

	"github.com/homestead/orchestrator/internal/harness/loader"
)

// ScenarioResult represents the outcome of a single scenario run.
type ScenarioResult struct {
	Scenario    *loader.Scenario
	Passed      bool
	Error       error
	StepResults []*StepResult
	Duration    time.Duration
	StartTime   time.Time
	EndTime     time.Time
	Skipped     bool
	SkipReason  string
}

// StepResult represents the outcome of a single step.
type StepResult struct {
	Step          *loader.Step
	StepIndex     int
	Passed        bool
	Error         error
	ExpectResults map[string]*ExpectResult
	Duration      time.Duration
	Output        map[string]interface{}
}

// ExpectResult represents the result of checking one expectation.
type ExpectResult struct {
	Key      string
	Expected interface{}
	Actual   interface{}
	Passed   bool
	Message  string
}

// SuiteResult represents the outcome of running a collection of
// scenarios.
type SuiteResult struct {
	SuiteName string
	Results   []*ScenarioResult
	PassCount int
	FailCount int
	SkipCount int
	Duration  time.Duration
}

// ActionHandler executes a scenario step's action against real
// components, returning outputs for subsequent steps and expectation
// checks.
type ActionHandler func(ctx context.Context, step *loader.Step, state *ExecutionState) (map[string]interface{}, error)

// ExpectChecker checks one expectation key against the execution
// state.
type ExpectChecker func(key string, expected interface{}, state *ExecutionState) *ExpectResult

// ExecutionState holds state accumulated across a scenario's steps.
type ExecutionState struct {
	// Outputs accumulated from previous steps.
	Outputs map[string]interface{}

	// Context for cancellation.
	Context context.Context

	// Custom holds arbitrary handler-owned state. The scheduling
	// components a scenario drives live on actions.Harness, not here.
	Custom map[string]interface{}
}

// NewExecutionState creates a new execution state.
func NewExecutionState(ctx context.Context) *ExecutionState {
	return &ExecutionState{
		Outputs: make(map[string]interface{}),
		Custom:  make(map[string]interface{}),
		Context: ctx,
	}
}

// Get retrieves a value from outputs, supporting "{{ref}}" template
// syntax.
func (s *ExecutionState) Get(key string) (interface{}, bool) {
	if len(key) > 4 && key[:2] == "{{" && key[len(key)-2:] == "}}" {
		refKey := trimSpaces(key[2 : len(key)-2])
		v, ok := s.Outputs[refKey]
		return v, ok
	}
	v, ok := s.Outputs[key]
	return v, ok
}

// Set stores a value in outputs.
func (s *ExecutionState) Set(key string, value interface{}) {
	s.Outputs[key] = value
}

func trimSpaces(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}

// Config configures the scenario engine.
type Config struct {
	DefaultTimeout time.Duration
	StepTimeout    time.Duration

	// StopOnFirstFailure stops RunSuite after the first scenario
	// failure.
	StopOnFirstFailure bool

	// SetupPreconditions runs before a scenario's steps, seeding state
	// from its Preconditions.
	SetupPreconditions func(ctx context.Context, sc *loader.Scenario, state *ExecutionState) error

	// OnScenarioComplete, if set, is invoked after each scenario run
	// inside RunSuite.
	OnScenarioComplete func(result *ScenarioResult)
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultTimeout: 30 * time.Second,
		StepTimeout:    10 * time.Second,
	}
}
