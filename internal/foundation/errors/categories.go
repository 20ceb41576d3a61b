package errors

// ErrorCategory groups failures by the part of a run that produced them. The
// category alone decides the process exit code.
type ErrorCategory string

const (
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Talking to other systems: git hosts, the metadata service.
	CategoryCheckout   ErrorCategory = "checkout"
	CategoryNetwork    ErrorCategory = "network"
	CategoryCredential ErrorCategory = "credential"

	// Tools the recipe invokes, and the files they work on.
	CategoryBuild      ErrorCategory = "build"
	CategoryCapture    ErrorCategory = "capture"
	CategoryUpload     ErrorCategory = "upload"
	CategoryFileSystem ErrorCategory = "filesystem"

	CategoryHistory  ErrorCategory = "history"
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryCanceled ErrorCategory = "canceled"
	CategoryInternal ErrorCategory = "internal"
)

var exitCodes = map[ErrorCategory]int{
	CategoryValidation: 2,
	CategoryCredential: 5,
	CategoryConfig:     7,
	CategoryCheckout:   8,
	CategoryNetwork:    8,
	CategoryInternal:   10,
	CategoryBuild:      11,
	CategoryCapture:    11,
	CategoryFileSystem: 11,
	CategoryRuntime:    12,
	CategoryHistory:    12,
	CategoryUpload:     13,
	CategoryCanceled:   130,
}

// ExitCode is the process exit status for a failure in this category.
func (c ErrorCategory) ExitCode() int {
	if code, ok := exitCodes[c]; ok {
		return code
	}
	return 1
}

func (c ErrorCategory) String() string { return string(c) }
