package errors

// ErrorCode names one failure class. Codes are stable strings so they can
// be logged and matched across process boundaries.
type ErrorCode string

// Coded is anything that reports an ErrorCode.
type Coded interface {
	Code() ErrorCode
}

// Error is a coded error, optionally wrapping a cause and carrying data
// that is rendered after the message.
type Error interface {
	error
	Coded
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory creates coded errors.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
