// Package errors classifies recreate-skps failures.
//
// A ClassifiedError pairs an ErrorCategory with an operator-facing message,
// the underlying cause and key/value context. The category maps to the
// process exit code; the retryable flag drives internal/retry.
//
//	err := errors.WrapError(cause, errors.CategoryCredential, "fetch gitcookies").
//		WithContext("url", endpoint).
//		Build()
package errors
