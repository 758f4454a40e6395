// Package common defines shared constants and sentinel errors used across
// client and server layers of imgvault. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Validation errors. Rejected synchronously, never retried.
	ErrEmptyFile       = errors.New("empty file")
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrInvalidFolder   = errors.New("invalid folder path")
	ErrInvalidExpire   = errors.New("invalid expiry policy")

	// ErrOversized is returned when a blob still exceeds the upload ceiling
	// after best-effort compression.
	ErrOversized = errors.New("file exceeds size limit")

	// ErrRateLimited marks a throttled upload attempt. The transport reads
	// the retry hint and schedules another attempt instead of failing.
	ErrRateLimited = errors.New("rate limited")
)
