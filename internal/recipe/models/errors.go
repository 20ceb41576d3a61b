package models

import "errors"

// Sentinel causes attached to stage errors. Stage functions wrap their
// underlying error with one of these so callers can test with errors.Is.
var (
	ErrCheckout     = errors.New("checkout failed")
	ErrConfigure    = errors.New("build configuration failed")
	ErrCompile      = errors.New("compile failed")
	ErrBrowserCheck = errors.New("browser smoke check failed")
	ErrPrepare      = errors.New("output directory reset failed")
	ErrCapture      = errors.New("skp capture failed")
	ErrDeps         = errors.New("go dependency refresh failed")
	ErrUpload       = errors.New("skp upload failed")
)
