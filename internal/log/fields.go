package log

import "budgetkeeper/internal/core"

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldTxID         = "tx_id"
	FieldTxKind       = "tx_kind"
	FieldAmount       = "amount"
	FieldDescription  = "description"
	FieldCategory     = "category"
	FieldRecurrenceOf = "recurrence_of"
	FieldSource       = "source"
	FieldExternalID   = "external_id"
	FieldParsedCount  = "parsed_count"
	FieldBalance      = "balance"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentIngest    = "ingest"
	ComponentJournal   = "journal"
	ComponentMail      = "mail"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentScheduler = "scheduler"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpRecord   = "record"
	OpIngest   = "ingest"
	OpParse    = "parse"
	OpTrigger  = "trigger"
	OpFetch    = "fetch"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpAppend   = "append"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransaction adds the fields identifying a ledger transaction.
func (f LogFields) WithTransaction(tx core.Transaction) LogFields {
	f[FieldTxID] = tx.ID
	f[FieldTxKind] = string(tx.Kind)
	f[FieldAmount] = tx.Amount.String()
	f[FieldDescription] = tx.Description
	if tx.Category != "" {
		f[FieldCategory] = tx.Category
	}
	if tx.RecurrenceOf != "" {
		f[FieldRecurrenceOf] = tx.RecurrenceOf
	}
	return f
}

// WithMessage adds inbox message identity.
func (f LogFields) WithMessage(source, externalID string) LogFields {
	f[FieldSource] = source
	f[FieldExternalID] = externalID
	return f
}

func (f LogFields) WithHTTPRequest(method, path, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
