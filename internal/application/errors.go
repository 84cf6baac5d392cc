package application

import "errors"

// Sentinel errors the HTTP adapter maps onto response codes.
var (
	// ErrUnknownModule marks a comment that was a CI command but named a
	// module outside the configured mapping.
	ErrUnknownModule = errors.New("unknown module")

	// ErrPullRequestLookup marks a failed head ref/sha resolution; the
	// underlying cause is wrapped for diagnostics but not surfaced verbatim.
	ErrPullRequestLookup = errors.New("pull request lookup failed")

	// ErrDispatch marks a failed workflow_dispatch trigger call.
	ErrDispatch = errors.New("workflow dispatch failed")

	// ErrDispatchTimeout is returned when run-identity discovery does not
	// find the dispatched run within the configured bound.
	ErrDispatchTimeout = errors.New("timed out discovering dispatched run")

	// ErrRunTimeout is returned when monitoring does not observe run
	// completion within the configured bound.
	ErrRunTimeout = errors.New("timed out waiting for run completion")

	// errPollDeadline is the internal deadline signal of pollUntil; services
	// translate it into their own timeout sentinel.
	errPollDeadline = errors.New("poll deadline exceeded")
)
