// Package pool provides bounded worker pools backed by ants.
package pool

import "errors"

var (
	// ErrPoolClosed is returned when submitting to a released pool.
	ErrPoolClosed = errors.New("worker pool is closed")

	// ErrPoolOverload is returned by nonblocking pools when full.
	ErrPoolOverload = errors.New("worker pool is full")
)
