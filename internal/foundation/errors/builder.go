package errors

// ErrorBuilder assembles a ClassifiedError.
type ErrorBuilder struct {
	err ClassifiedError
}

// NewError starts an error in category.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{err: ClassifiedError{category: category, message: message}}
}

// WrapError starts an error in category around err.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	return NewError(category, message).WithCause(err)
}

func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.err.cause = err
	return b
}

func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	if b.err.fields == nil {
		b.err.fields = make(map[string]any)
	}
	b.err.fields[key] = value
	return b
}

// Retryable marks the failure as transient.
func (b *ErrorBuilder) Retryable() *ErrorBuilder {
	b.err.retryable = true
	return b
}

// UserAction marks the failure as needing an operator fix, which also makes it
// not retryable.
func (b *ErrorBuilder) UserAction() *ErrorBuilder {
	b.err.userAction = true
	b.err.retryable = false
	return b
}

func (b *ErrorBuilder) Build() *ClassifiedError {
	e := b.err
	return &e
}

func ConfigError(message string) *ErrorBuilder { return NewError(CategoryConfig, message) }

func ValidationError(message string) *ErrorBuilder { return NewError(CategoryValidation, message) }

// CheckoutError is retryable unless marked otherwise.
func CheckoutError(message string) *ErrorBuilder {
	return NewError(CategoryCheckout, message).Retryable()
}

// NetworkError is retryable unless marked otherwise.
func NetworkError(message string) *ErrorBuilder {
	return NewError(CategoryNetwork, message).Retryable()
}

func CredentialError(message string) *ErrorBuilder { return NewError(CategoryCredential, message) }

// BuildError covers gn, ninja and the browser smoke check.
func BuildError(message string) *ErrorBuilder { return NewError(CategoryBuild, message) }

func CaptureError(message string) *ErrorBuilder { return NewError(CategoryCapture, message) }

// UploadError covers the dependency refresh and the upload script.
func UploadError(message string) *ErrorBuilder { return NewError(CategoryUpload, message) }

func FileSystemError(message string) *ErrorBuilder { return NewError(CategoryFileSystem, message) }

func HistoryError(message string) *ErrorBuilder { return NewError(CategoryHistory, message) }

func RuntimeError(message string) *ErrorBuilder { return NewError(CategoryRuntime, message) }

func InternalError(message string) *ErrorBuilder { return NewError(CategoryInternal, message) }
