package engine

import (
	"fmt"
	"strings"
	"time"
)

// ToFloat64 converts various numeric types to float64 for comparison.
func ToFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}

func numericCompare(key string, expected interface{}, state *ExecutionState, op string, cmp func(actual, expected float64) bool) *ExpectResult {
	actual, exists := state.Get("value")
	if !exists {
		return &ExpectResult{Key: key, Expected: expected, Passed: false,
			Message: `output key "value" not found`}
	}

	actualNum, ok1 := ToFloat64(actual)
	expectedNum, ok2 := ToFloat64(expected)
	if !ok1 || !ok2 {
		return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
			Message: fmt.Sprintf("cannot compare non-numeric values: %T and %T", actual, expected)}
	}

	passed := cmp(actualNum, expectedNum)
	return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: passed,
		Message: fmt.Sprintf("%v %s %v = %v", actualNum, op, expectedNum, passed)}
}

// CheckerValueGreaterThan checks if the "value" output is greater than expected.
func CheckerValueGreaterThan(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	return numericCompare(key, expected, state, ">", func(a, b float64) bool { return a > b })
}

// CheckerValueLessThan checks if the "value" output is less than expected.
func CheckerValueLessThan(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	return numericCompare(key, expected, state, "<", func(a, b float64) bool { return a < b })
}

// CheckerValueGT is CheckerValueGreaterThan under its short-form YAML name.
func CheckerValueGT(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	return CheckerValueGreaterThan(key, expected, state)
}

// CheckerValueGTE checks if the "value" output is greater than or equal to expected.
func CheckerValueGTE(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	return numericCompare(key, expected, state, ">=", func(a, b float64) bool { return a >= b })
}

// CheckerValueMax checks if the "value" output is less than or equal to expected.
func CheckerValueMax(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	return numericCompare(key, expected, state, "<=", func(a, b float64) bool { return a <= b })
}

// CheckerValueLTE is an alias for CheckerValueMax under its YAML name.
func CheckerValueLTE(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	return CheckerValueMax(key, expected, state)
}

// CheckerValueNonNegative checks that the "value" output is >= 0.
func CheckerValueNonNegative(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	return numericCompare(key, 0, state, ">=", func(a, b float64) bool { return a >= b })
}

// CheckerValueInRange checks if the "value" output is within a range.
// Expected is a map with "min"/"max" keys, or a [min, max] array.
func CheckerValueInRange(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("value")
	if !exists {
		return &ExpectResult{Key: key, Expected: expected, Passed: false,
			Message: `output key "value" not found`}
	}

	var minVal, maxVal interface{}
	switch e := expected.(type) {
	case map[string]interface{}:
		var hasMin, hasMax bool
		minVal, hasMin = e["min"]
		maxVal, hasMax = e["max"]
		if !hasMin || !hasMax {
			return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
				Message: "expected must have both 'min' and 'max' keys"}
		}
	case []interface{}:
		if len(e) != 2 {
			return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
				Message: "expected array must have exactly 2 elements [min, max]"}
		}
		minVal, maxVal = e[0], e[1]
	default:
		return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
			Message: "expected must be a map with 'min'/'max' or a [min, max] array"}
	}

	actualNum, ok1 := ToFloat64(actual)
	minNum, ok2 := ToFloat64(minVal)
	maxNum, ok3 := ToFloat64(maxVal)
	if !ok1 || !ok2 || !ok3 {
		return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
			Message: "cannot compare non-numeric values"}
	}

	passed := actualNum >= minNum && actualNum <= maxNum
	return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: passed,
		Message: fmt.Sprintf("%v in [%v, %v] = %v", actualNum, minNum, maxNum, passed)}
}

// CheckerValueIsNull checks whether the "value" output is nil, matching
// expected's boolean sense (true = expect null, false = expect non-null).
func CheckerValueIsNull(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("value")
	isNull := !exists || actual == nil
	expectNull, _ := expected.(bool)

	passed := isNull == expectNull
	return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: passed,
		Message: fmt.Sprintf("value is null = %v (expected %v)", isNull, expectNull)}
}

// CheckerValueIsNotNull checks that the "value" output is non-nil.
func CheckerValueIsNotNull(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	return CheckerValueIsNull(key, false, state)
}

// CheckerValueIsMap checks if the "value" output is a map.
func CheckerValueIsMap(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("value")
	_, isMap := actual.(map[string]interface{})
	passed := exists && isMap
	return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: passed,
		Message: fmt.Sprintf("value is map = %v", passed)}
}

// CheckerValueIsArray checks if the "value" output is a slice.
func CheckerValueIsArray(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("value")
	_, isArray := actual.([]interface{})
	passed := exists && isArray
	return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: passed,
		Message: fmt.Sprintf("value is array = %v", passed)}
}

// CheckerArrayNotEmpty checks that the "value" output is a non-empty slice.
func CheckerArrayNotEmpty(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("value")
	arr, isArray := actual.([]interface{})
	passed := exists && isArray && len(arr) > 0
	return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: passed,
		Message: fmt.Sprintf("array not empty = %v", passed)}
}

// CheckerContains checks that the "value" output (a string or slice)
// contains expected.
func CheckerContains(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("value")
	if !exists {
		return &ExpectResult{Key: key, Expected: expected, Passed: false,
			Message: `output key "value" not found`}
	}

	passed := false
	switch a := actual.(type) {
	case string:
		if s, ok := expected.(string); ok {
			passed = strings.Contains(a, s)
		}
	case []interface{}:
		for _, item := range a {
			if fmt.Sprintf("%v", item) == fmt.Sprintf("%v", expected) {
				passed = true
				break
			}
		}
	}
	return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: passed,
		Message: fmt.Sprintf("contains %v = %v", expected, passed)}
}

// CheckerResponseContains is CheckerContains under its YAML name,
// reading the "response" output instead of "value".
func CheckerResponseContains(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("response")
	if !exists {
		return &ExpectResult{Key: key, Expected: expected, Passed: false,
			Message: `output key "response" not found`}
	}
	s, _ := actual.(string)
	passed := false
	if exp, ok := expected.(string); ok {
		passed = strings.Contains(s, exp)
	}
	return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: passed,
		Message: fmt.Sprintf("response contains %v = %v", expected, passed)}
}

// CheckerContainsOnly checks that the "value" output slice contains
// exactly the elements of expected (order-independent).
func CheckerContainsOnly(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("value")
	expArr, expOK := expected.([]interface{})
	actArr, actOK := actual.([]interface{})
	if !exists || !expOK || !actOK || len(actArr) != len(expArr) {
		return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
			Message: "element sets differ"}
	}

	remaining := make([]interface{}, len(expArr))
	copy(remaining, expArr)
	for _, a := range actArr {
		found := -1
		for i, e := range remaining {
			if fmt.Sprintf("%v", a) == fmt.Sprintf("%v", e) {
				found = i
				break
			}
		}
		if found == -1 {
			return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
				Message: fmt.Sprintf("unexpected element %v", a)}
		}
		remaining = append(remaining[:found], remaining[found+1:]...)
	}
	return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: true,
		Message: "contains exactly the expected elements"}
}

// CheckerMapSizeEquals checks that the "value" output map has the
// expected number of entries.
func CheckerMapSizeEquals(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("value")
	m, isMap := actual.(map[string]interface{})
	if !exists || !isMap {
		return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
			Message: `"value" output is not a map`}
	}
	expectedSize, _ := ToFloat64(expected)
	passed := float64(len(m)) == expectedSize
	return &ExpectResult{Key: key, Expected: expected, Actual: len(m), Passed: passed,
		Message: fmt.Sprintf("map size %d == %v = %v", len(m), expected, passed)}
}

// CheckerSaveAs stashes the step's raw output under a name given by
// expected, for a later step to reference via {{name}}.
func CheckerSaveAs(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	name, ok := expected.(string)
	if !ok {
		return &ExpectResult{Key: key, Expected: expected, Passed: false,
			Message: "save_as expects a string name"}
	}
	output, _ := state.Get(InternalStepOutput)
	state.Set(name, output)
	return &ExpectResult{Key: key, Expected: expected, Actual: output, Passed: true,
		Message: fmt.Sprintf("saved step output as %q", name)}
}

// CheckerValueEquals checks that the "value" output equals expected.
func CheckerValueEquals(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("value")
	passed := exists && fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected)
	return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: passed,
		Message: fmt.Sprintf("value == %v = %v", expected, passed)}
}

// CheckerValueNotEqual checks that the "value" output differs from expected.
func CheckerValueNotEqual(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	r := CheckerValueEquals(key, expected, state)
	r.Passed = !r.Passed
	r.Message = fmt.Sprintf("value != %v = %v", expected, r.Passed)
	return r
}

// CheckerValueNot is an alias for CheckerValueNotEqual.
func CheckerValueNot(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	return CheckerValueNotEqual(key, expected, state)
}

// CheckerValueIn checks that the "value" output appears in expected,
// an array of candidates.
func CheckerValueIn(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("value")
	candidates, ok := expected.([]interface{})
	if !exists || !ok {
		return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
			Message: "value_in requires an array of candidates"}
	}
	for _, c := range candidates {
		if fmt.Sprintf("%v", c) == fmt.Sprintf("%v", actual) {
			return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: true,
				Message: fmt.Sprintf("%v in %v", actual, expected)}
		}
	}
	return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
		Message: fmt.Sprintf("%v not in %v", actual, expected)}
}

// CheckerValueType checks that the "value" output's Go type name
// matches expected.
func CheckerValueType(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("value")
	typeName := fmt.Sprintf("%T", actual)
	passed := exists && typeName == expected
	return &ExpectResult{Key: key, Expected: expected, Actual: typeName, Passed: passed,
		Message: fmt.Sprintf("type %s == %v = %v", typeName, expected, passed)}
}

// CheckerValueIsRecent checks that the "value" output, a time.Time,
// falls within expected (a duration string) of now.
func CheckerValueIsRecent(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("value")
	t, isTime := actual.(time.Time)
	if !exists || !isTime {
		return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
			Message: `"value" output is not a time.Time`}
	}
	within, err := parseDuration(expected)
	if err != nil {
		return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
			Message: err.Error()}
	}
	age := time.Since(t)
	passed := age >= 0 && age <= within
	return &ExpectResult{Key: key, Expected: expected, Actual: age.String(), Passed: passed,
		Message: fmt.Sprintf("age %s <= %s = %v", age, within, passed)}
}

// CheckerValueGTESaved checks that the "value" output is greater than
// or equal to a value saved by an earlier step (expected names the
// saved key).
func CheckerValueGTESaved(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	savedKey, ok := expected.(string)
	if !ok {
		return &ExpectResult{Key: key, Expected: expected, Passed: false,
			Message: "value_gte_saved expects the name of a saved key"}
	}
	saved, savedExists := state.Get(savedKey)
	actual, exists := state.Get("value")
	if !savedExists || !exists {
		return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
			Message: fmt.Sprintf("missing value or saved key %q", savedKey)}
	}
	actualNum, ok1 := ToFloat64(actual)
	savedNum, ok2 := ToFloat64(saved)
	passed := ok1 && ok2 && actualNum >= savedNum
	return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: passed,
		Message: fmt.Sprintf("%v >= %v(%v) = %v", actual, savedKey, saved, passed)}
}

// CheckerValueMaxRef checks that the "value" output is less than or
// equal to a value saved by an earlier step.
func CheckerValueMaxRef(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	savedKey, ok := expected.(string)
	if !ok {
		return &ExpectResult{Key: key, Expected: expected, Passed: false,
			Message: "value_max_ref expects the name of a saved key"}
	}
	saved, savedExists := state.Get(savedKey)
	actual, exists := state.Get("value")
	if !savedExists || !exists {
		return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
			Message: fmt.Sprintf("missing value or saved key %q", savedKey)}
	}
	actualNum, ok1 := ToFloat64(actual)
	savedNum, ok2 := ToFloat64(saved)
	passed := ok1 && ok2 && actualNum <= savedNum
	return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: passed,
		Message: fmt.Sprintf("%v <= %v(%v) = %v", actual, savedKey, saved, passed)}
}

// CheckerErrorMessageContains checks that the "error" output's message
// contains expected.
func CheckerErrorMessageContains(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("error")
	msg := ""
	if err, ok := actual.(error); ok && err != nil {
		msg = err.Error()
	} else if s, ok := actual.(string); ok {
		msg = s
	}
	exp, _ := expected.(string)
	passed := exists && strings.Contains(msg, exp)
	return &ExpectResult{Key: key, Expected: expected, Actual: msg, Passed: passed,
		Message: fmt.Sprintf("error contains %q = %v", exp, passed)}
}

// CheckerNoError checks that the step recorded no "error" output.
func CheckerNoError(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("error")
	isNoError := !exists || actual == nil
	return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: isNoError,
		Message: fmt.Sprintf("no error = %v", isNoError)}
}

// CheckerDurationUnder checks that the "duration" output (a
// time.Duration) is under the expected duration string.
func CheckerDurationUnder(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("duration")
	d, isDuration := actual.(time.Duration)
	if !exists || !isDuration {
		return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
			Message: `"duration" output is not a time.Duration`}
	}
	limit, err := parseDuration(expected)
	if err != nil {
		return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
			Message: err.Error()}
	}
	passed := d < limit
	return &ExpectResult{Key: key, Expected: expected, Actual: d.String(), Passed: passed,
		Message: fmt.Sprintf("%s < %s = %v", d, limit, passed)}
}

func parseDuration(expected interface{}) (time.Duration, error) {
	s, ok := expected.(string)
	if !ok {
		return 0, fmt.Errorf("expected a duration string, got %T", expected)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

// CheckerEventOrder checks that the "events" output — a []string of
// scheduler_event kinds recorded during the step — contains expected's
// list of kinds as a (not necessarily contiguous) subsequence, in
// order. This is how scenarios assert dispatch ordering (e.g. §8's
// priority and FIFO tie-break scenarios) without depending on exact
// timing between events.
func CheckerEventOrder(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("events")
	observed, isSlice := actual.([]string)
	wantAny, ok := expected.([]interface{})
	if !exists || !isSlice || !ok {
		return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
			Message: `event_order requires an "events" output ([]string) and an array expectation`}
	}

	want := make([]string, len(wantAny))
	for i, w := range wantAny {
		want[i] = fmt.Sprintf("%v", w)
	}

	pos := 0
	for _, ev := range observed {
		if pos < len(want) && ev == want[pos] {
			pos++
		}
	}
	passed := pos == len(want)
	return &ExpectResult{Key: key, Expected: expected, Actual: observed, Passed: passed,
		Message: fmt.Sprintf("wanted %v as subsequence of observed %v = %v", want, observed, passed)}
}

// CheckerCommandSentOrder checks that the "action" field of each
// command_sent event recorded under the "events_raw" output, in
// order, equals expected's list — this is how priority-ordering and
// FIFO tie-break scenarios assert dispatch order.
func CheckerCommandSentOrder(key string, expected interface{}, state *ExecutionState) *ExpectResult {
	actual, exists := state.Get("events_raw")
	raw, isSlice := actual.([]map[string]interface{})
	wantAny, ok := expected.([]interface{})
	if !exists || !isSlice || !ok {
		return &ExpectResult{Key: key, Expected: expected, Actual: actual, Passed: false,
			Message: `command_sent_order requires an "events_raw" output and an array expectation`}
	}

	var actions []string
	for _, ev := range raw {
		if kind, _ := ev["event"].(string); kind == "command_sent" {
			if a, ok := ev["action"].(string); ok {
				actions = append(actions, a)
			}
		}
	}

	want := make([]string, len(wantAny))
	for i, w := range wantAny {
		want[i] = fmt.Sprintf("%v", w)
	}

	passed := len(actions) == len(want)
	if passed {
		for i := range want {
			if actions[i] != want[i] {
				passed = false
				break
			}
		}
	}
	return &ExpectResult{Key: key, Expected: expected, Actual: actions, Passed: passed,
		Message: fmt.Sprintf("command_sent actions %v == %v = %v", actions, want, passed)}
}

// RegisterCheckers registers every checker this package implements
// onto e, under the YAML-facing names in the CheckerName* constants
// of keys.go.
func RegisterCheckers(e *Engine) {
	e.RegisterChecker(CheckerNameValueGreaterThan, CheckerValueGreaterThan)
	e.RegisterChecker(CheckerNameValueLessThan, CheckerValueLessThan)
	e.RegisterChecker(CheckerNameValueGT, CheckerValueGT)
	e.RegisterChecker(CheckerNameValueGTE, CheckerValueGTE)
	e.RegisterChecker(CheckerNameValueMax, CheckerValueMax)
	e.RegisterChecker(CheckerNameValueLTE, CheckerValueLTE)
	e.RegisterChecker(CheckerNameValueNonNegative, CheckerValueNonNegative)
	e.RegisterChecker(CheckerNameValueInRange, CheckerValueInRange)
	e.RegisterChecker(CheckerNameValueIsNull, CheckerValueIsNull)
	e.RegisterChecker(CheckerNameValueIsNotNull, CheckerValueIsNotNull)
	e.RegisterChecker(CheckerNameValueIsMap, CheckerValueIsMap)
	e.RegisterChecker(CheckerNameValueIsArray, CheckerValueIsArray)
	e.RegisterChecker(CheckerNameArrayNotEmpty, CheckerArrayNotEmpty)
	e.RegisterChecker(CheckerNameContains, CheckerContains)
	e.RegisterChecker(CheckerNameResponseContains, CheckerResponseContains)
	e.RegisterChecker(CheckerNameContainsOnly, CheckerContainsOnly)
	e.RegisterChecker(CheckerNameMapSizeEquals, CheckerMapSizeEquals)
	e.RegisterChecker(CheckerNameSaveAs, CheckerSaveAs)
	e.RegisterChecker(CheckerNameValueEquals, CheckerValueEquals)
	e.RegisterChecker(CheckerNameValueNotEqual, CheckerValueNotEqual)
	e.RegisterChecker(CheckerNameValueNot, CheckerValueNot)
	e.RegisterChecker(CheckerNameValueIn, CheckerValueIn)
	e.RegisterChecker(CheckerNameValueType, CheckerValueType)
	e.RegisterChecker(CheckerNameValueIsRecent, CheckerValueIsRecent)
	e.RegisterChecker(CheckerNameValueGTESaved, CheckerValueGTESaved)
	e.RegisterChecker(CheckerNameValueMaxRef, CheckerValueMaxRef)
	e.RegisterChecker(CheckerNameErrorMessageContains, CheckerErrorMessageContains)
	e.RegisterChecker(CheckerNameNoError, CheckerNoError)
	e.RegisterChecker(CheckerNameDurationUnder, CheckerDurationUnder)
	e.RegisterChecker(CheckerNameEventOrder, CheckerEventOrder)
	e.RegisterChecker(CheckerNameCommandSentOrder, CheckerCommandSentOrder)
}
