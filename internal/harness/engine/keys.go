package engine

// InternalStepOutput is the state key under which a step's complete
// output map is stashed, for checkers like save_as that need to reach
// into a step's raw results.
const InternalStepOutput = "__step_output"

// Checker registration names: the string values that appear in YAML
// scenario files and are used as map keys in Engine.checkers.
const (
	CheckerNameDefault = "default"

	CheckerNameValueGreaterThan = "value_greater_than"
	CheckerNameValueLessThan    = "value_less_than"
	CheckerNameValueInRange     = "value_in_range"
	CheckerNameValueIsNull      = "value_is_null"
	CheckerNameValueIsMap       = "value_is_map"
	CheckerNameContains         = "contains"
	CheckerNameContainsOnly     = "contains_only"
	CheckerNameMapSizeEquals    = "map_size_equals"
	CheckerNameSaveAs           = "save_as"
	CheckerNameValueEquals      = "value_equals"

	CheckerNameValueGT             = "value_gt"
	CheckerNameValueGTE            = "value_gte"
	CheckerNameValueMax            = "value_max"
	CheckerNameValueLTE            = "value_lte"
	CheckerNameValueNot            = "value_not"
	CheckerNameValueNotEqual       = "value_not_equal"
	CheckerNameValueIn             = "value_in"
	CheckerNameValueNonNegative    = "value_non_negative"
	CheckerNameValueIsArray        = "value_is_array"
	CheckerNameValueIsNotNull      = "value_is_not_null"
	CheckerNameValueIsRecent       = "value_is_recent"
	CheckerNameValueType           = "value_type"
	CheckerNameResponseContains    = "response_contains"
	CheckerNameValueGTESaved       = "value_gte_saved"
	CheckerNameValueMaxRef         = "value_max_ref"
	CheckerNameArrayNotEmpty       = "array_not_empty"
	CheckerNameErrorMessageContains = "error_message_contains"
	CheckerNameNoError             = "no_error"
	CheckerNameDurationUnder       = "duration_under"

	// CheckerNameEventOrder asserts that a named list of scheduler
	// event kinds was observed, in that order, among a step's
	// recorded events.
	CheckerNameEventOrder = "event_order"

	// CheckerNameCommandSentOrder asserts the order of "action" fields
	// among a step's command_sent events.
	CheckerNameCommandSentOrder = "command_sent_order"
)
