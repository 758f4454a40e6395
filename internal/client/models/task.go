// Package models holds the client-side upload pipeline types.
package models

import (
	"io"
	"strconv"
)

// TaskState tracks where a task is in its lifecycle. No transition skips
// StateHashing; StateCompressing only appears for oversized blobs.
type TaskState string

const (
	StateQueued      TaskState = "queued"
	StateHashing     TaskState = "hashing"
	StateCompressing TaskState = "compressing"
	StateUploading   TaskState = "uploading"
	StateDone        TaskState = "done"
	StateFailed      TaskState = "failed"
)

// Terminal reports whether s is an end state.
func (s TaskState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// UploadTask represents one file awaiting or undergoing upload. A task is
// owned exclusively by its batch for the duration of its lifecycle; the
// batch serializes all state mutations.
type UploadTask struct {
	// Name is the declared filename sent to the server.
	Name string
	// Size is the byte length as declared at enqueue time.
	Size int64
	// ContentType is the media type, e.g. "image/png".
	ContentType string
	// Open returns a fresh reader over the blob. It is called once for
	// hashing and once more to build the upload payload.
	Open func() (io.ReadCloser, error)

	State     TaskState
	Digest    string
	ShortCode string
	// Err holds the failure cause once State is StateFailed. The task stays
	// visible so the user can retry by re-adding it.
	Err error
}

// LockKey is the cheap pre-check dedup key claimed before hashing: two
// workers picking up the literal same file (same declared name and length)
// must not race to upload it twice.
func (t *UploadTask) LockKey() string {
	return t.Name + "\x00" + strconv.FormatInt(t.Size, 10)
}
