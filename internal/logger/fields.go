package logger

// Fields is a set of structured log fields.
type Fields map[string]interface{}

// Context-level fields, propagated through the call chain.
const (
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"
	FieldComponent = "component"
	FieldRecipeID  = "recipe_id"
	FieldImportID  = "import_id"
	FieldProvider  = "provider"
	FieldQuery     = "query"
)

// Entry-level metric fields.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
)
