package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/homestead/orchestrator/internal/harness/loader"
)

// Engine executes scenarios against whatever components its
// registered handlers close over.
type Engine struct {
	config   *Config
	handlers map[string]ActionHandler
	checkers map[string]ExpectChecker
	mu       sync.RWMutex
}

// New creates an engine with default configuration.
func New() *Engine {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates an engine with the given configuration.
func NewWithConfig(config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	e := &Engine{
		config:   config,
		handlers: make(map[string]ActionHandler),
		checkers: make(map[string]ExpectChecker),
	}
	e.RegisterChecker(CheckerNameDefault, defaultChecker)
	return e
}

// RegisterHandler registers an action handler under its step name.
func (e *Engine) RegisterHandler(action string, handler ActionHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[action] = handler
}

// RegisterChecker registers an expectation checker under its
// expectation key.
func (e *Engine) RegisterChecker(key string, checker ExpectChecker) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checkers[key] = checker
}

// Run executes a single scenario.
func (e *Engine) Run(ctx context.Context, sc *loader.Scenario) *ScenarioResult {
	result := &ScenarioResult{Scenario: sc, StartTime: time.Now()}

	if sc.Skip != "" {
		result.Skipped = true
		result.SkipReason = sc.Skip
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
		return result
	}

	timeout := e.config.DefaultTimeout
	if sc.Timeout != "" {
		if d, err := time.ParseDuration(sc.Timeout); err == nil {
			timeout = d
		}
	}

	scCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	state := NewExecutionState(scCtx)

	if e.config.SetupPreconditions != nil {
		if err := e.config.SetupPreconditions(scCtx, sc, state); err != nil {
			result.Error = fmt.Errorf("precondition setup failed: %w", err)
			result.EndTime = time.Now()
			result.Duration = result.EndTime.Sub(result.StartTime)
			return result
		}
	}

	for i := range sc.Steps {
		step := &sc.Steps[i]
		stepResult := e.executeStep(scCtx, step, i, state)
		result.StepResults = append(result.StepResults, stepResult)

		if !stepResult.Passed {
			result.Error = stepResult.Error
			break
		}
	}

	if result.Error == nil {
		result.Passed = true
		for _, sr := range result.StepResults {
			if !sr.Passed {
				result.Passed = false
				break
			}
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	return result
}

func (e *Engine) executeStep(ctx context.Context, step *loader.Step, index int, state *ExecutionState) *StepResult {
	result := &StepResult{
		Step:          step,
		StepIndex:     index,
		ExpectResults: make(map[string]*ExpectResult),
		Output:        make(map[string]interface{}),
	}
	start := time.Now()

	timeout := e.config.StepTimeout
	if step.Timeout != "" {
		if d, err := time.ParseDuration(step.Timeout); err == nil {
			timeout = d
		}
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	e.mu.RLock()
	handler, exists := e.handlers[step.Action]
	e.mu.RUnlock()
	if !exists {
		result.Error = fmt.Errorf("unknown action: %s", step.Action)
		result.Duration = time.Since(start)
		return result
	}

	outputs, err := handler(stepCtx, step, state)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	for k, v := range outputs {
		state.Set(k, v)
		result.Output[k] = v
	}
	outputCopy := make(map[string]interface{}, len(result.Output))
	for k, v := range result.Output {
		outputCopy[k] = v
	}
	state.Set(InternalStepOutput, outputCopy)

	result.Passed = true
	interpolated := InterpolateParams(step.Expect, state)
	for key, expected := range interpolated {
		expectResult := e.checkExpectation(key, expected, state)
		result.ExpectResults[key] = expectResult
		if !expectResult.Passed {
			result.Passed = false
			result.Error = fmt.Errorf("expectation failed: %s - %s", key, expectResult.Message)
		}
	}

	result.Duration = time.Since(start)
	return result
}

func (e *Engine) checkExpectation(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	e.mu.RLock()
	checker, exists := e.checkers[key]
	if !exists {
		checker = e.checkers[CheckerNameDefault]
	}
	e.mu.RUnlock()
	return checker(key, expected, state)
}

// defaultChecker compares expected against the stepwise output, or
// Outputs more generally, stored under key.
func defaultChecker(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get(key)
	if !exists {
		return &ExpectResult{Key: key, Expected: expected, Passed: false,
			Message: fmt.Sprintf("key %q not found in outputs", key)}
	}

	if expStr, ok := expected.(string); ok && expStr == "present" {
		return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: true,
			Message: fmt.Sprintf("%s = %v", key, actual)}
	}

	passed := fmt.Sprintf("%v", expected) == fmt.Sprintf("%v", actual)
	result := &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: passed}
	if passed {
		result.Message = fmt.Sprintf("%s = %v", key, expected)
	} else {
		result.Message = fmt.Sprintf("expected %v, got %v", expected, actual)
	}
	return result
}

// RunSuite executes every scenario in cases, in order.
func (e *Engine) RunSuite(ctx context.Context, cases []*loader.Scenario) *SuiteResult {
	result := &SuiteResult{SuiteName: "Scheduler Conformance Suite"}
	start := time.Now()

	for _, sc := range cases {
		select {
		case <-ctx.Done():
			result.Duration = time.Since(start)
			return result
		default:
		}

		scResult := e.Run(ctx, sc)
		result.Results = append(result.Results, scResult)

		switch {
		case scResult.Skipped:
			result.SkipCount++
		case scResult.Passed:
			result.PassCount++
		default:
			result.FailCount++
		}

		if e.config.OnScenarioComplete != nil {
			e.config.OnScenarioComplete(scResult)
		}

		if !scResult.Passed && !scResult.Skipped && e.config.StopOnFirstFailure {
			break
		}
	}

	result.Duration = time.Since(start)
	return result
}
