package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrBackpressure = errors.New("rating change queue is full")
	ErrNoIdentity   = errors.New("member identity required")
)
