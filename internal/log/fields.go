package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldYear          = "year"
	FieldMonth         = "month"
	FieldTransactionID = "transaction_id"
	FieldAccountID     = "account_id"
	FieldGoalID        = "goal_id"
	FieldTemplateID    = "template_id"
	FieldCategory      = "category"
	FieldKind          = "kind"
	FieldAmountCents   = "amount_cents"
	FieldSheetsRef     = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp          = "app"
	ComponentHTTP         = "http"
	ComponentTransactions = "transactions"
	ComponentRecurring    = "recurring"
	ComponentSavings      = "savings"
	ComponentAssistant    = "assistant"
	ComponentExport       = "export"
	ComponentFX           = "fx"
	ComponentStorage      = "storage"
	ComponentAMQP         = "amqp"
	ComponentWorker       = "worker"
	ComponentSheets       = "sheets"
	ComponentCache        = "cache"
	ComponentSecurity     = "security"
	ComponentRateLimit    = "rate_limit"
	ComponentBackend      = "backend"
)

// Operations defines standard operation names
const (
	OpCreate      = "create"
	OpRead        = "read"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpList        = "list"
	OpTransfer    = "transfer"
	OpDeposit     = "deposit"
	OpMaterialize = "materialize"
	OpExport      = "export"
	OpImport      = "import"
	OpAppend      = "append"
	OpSync        = "sync"
	OpValidate    = "validate"
	OpShutdown    = "shutdown"
	OpStartup     = "startup"
)
