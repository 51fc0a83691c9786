package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSource is the key for the file being converted.
	FieldSource = "source"
	// FieldDestination is the key for the file being produced.
	FieldDestination = "destination"
	// FieldAttemptID identifies one conversion attempt across log lines and history.
	FieldAttemptID = "attempt_id"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)
