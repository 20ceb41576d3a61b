// Package credential fetches the upload credential from the instance metadata
// service and keeps it on disk only for the duration of a caller's operation.
package credential
