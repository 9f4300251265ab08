package log

// Field names shared by every log line.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldBytes      = "bytes"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldEntityID   = "entity_id"
	FieldField      = "field"
	FieldInput      = "input"
	FieldEvent      = "event"
)

// Components.
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentValidate = "validate"
	ComponentAdmin    = "admin"
)

// Operations.
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpPlan     = "plan"
	OpPublish  = "publish"
	OpMigrate  = "migrate"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// Error categories, reported under FieldErrorType.
const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeConflict   = "conflict_error"
	ErrorTypeReference  = "reference_error"
	ErrorTypeNotFound   = "not_found_error"
	ErrorTypeAuth       = "auth_error"
	ErrorTypeDatabase   = "database_error"
	ErrorTypeNetwork    = "network_error"
	ErrorTypeInternal   = "internal_error"
)

// Fields collects structured attributes before handing them to slog.
type Fields map[string]any

// NewFields creates an empty Fields.
func NewFields() Fields {
	return make(Fields)
}

func (f Fields) WithOperation(op string) Fields {
	f[FieldOperation] = op
	return f
}

func (f Fields) WithUser(id int64) Fields {
	f[FieldUserID] = id
	return f
}

func (f Fields) WithEntity(id int64) Fields {
	f[FieldEntityID] = id
	return f
}

// WithError records err and its category. A nil err adds nothing.
func (f Fields) WithError(err error, errorType string) Fields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = errorType
	}
	return f
}

// Args flattens f into slog key/value pairs.
func (f Fields) Args() []any {
	args := make([]any, 0, len(f)*2)
	for k, v := range f {
		args = append(args, k, v)
	}
	return args
}
