package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldCount      = "count"
	FieldTxnID      = "transaction_id"
	FieldTemplateID = "template_id"
	FieldCategory   = "category"
	FieldAmount     = "amount"
	FieldDate       = "date"
)

// Standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentCatchUp = "catchup"
	ComponentEvents  = "events"
	ComponentImport  = "import"
)
