package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldStreamKey   = "stream_key"
	FieldStreamName  = "stream_name"
	FieldStreamCount = "stream_count"
	FieldROI         = "roi"
	FieldAutoSave    = "autosave"
	FieldCodec       = "codec"
	FieldTokenLength = "token_length"
	FieldLastSaved   = "last_saved"
	FieldElapsed     = "elapsed_ms"
	FieldState       = "state"
	FieldYears       = "years"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentStore      = "store"
	ComponentProjection = "projection"
	ComponentCodec      = "codec"
	ComponentAutosave   = "autosave"
	ComponentSession    = "session"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentCache      = "cache"
	ComponentCLI        = "cli"
)

// Operations defines standard operation names
const (
	OpPut      = "put"
	OpDelete   = "delete"
	OpReset    = "reset"
	OpLoad     = "load"
	OpUndo     = "undo"
	OpEncode   = "encode"
	OpDecode   = "decode"
	OpCommit   = "commit"
	OpShare    = "share"
	OpRestore  = "restore"
	OpProject  = "project"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpValidate = "validate"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeDecode        = "decode_error"
	ErrorTypeEncode        = "encode_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeInternal      = "internal_error"
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

// WithError adds the error message; nil errors are skipped.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithStream adds stream identification fields
func (f LogFields) WithStream(key int64, name string) LogFields {
	f[FieldStreamKey] = key
	f[FieldStreamName] = name
	return f
}

// WithSnapshot adds the summary of a store snapshot
func (f LogFields) WithSnapshot(streams int, roi float64, autoSave bool) LogFields {
	f[FieldStreamCount] = streams
	f[FieldROI] = roi
	f[FieldAutoSave] = autoSave
	return f
}

// WithToken adds codec and token size, never the token itself
func (f LogFields) WithToken(codec string, length int) LogFields {
	f[FieldCodec] = codec
	f[FieldTokenLength] = length
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
