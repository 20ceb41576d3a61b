// Package recipe drives a RecreateSKPs run: checkout, build, capture, and for
// full runs the authenticated upload of the captured SKPs.
//
// Every external effect goes through the Capabilities handed to New, so a run
// can be driven against real processes, a dry-run logger, or test fakes.
package recipe
