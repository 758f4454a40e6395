// Package uploader implements the concurrent upload pipeline: a batch-scoped
// task queue with bounded worker concurrency, content-addressed in-batch
// deduplication, and adaptive compression of oversized images.
package uploader

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/imgvault/internal/client/models"
	"github.com/dmitrijs2005/imgvault/internal/common"
	"github.com/dmitrijs2005/imgvault/internal/hashx"
	"github.com/dmitrijs2005/imgvault/internal/imaging"
)

const (
	// DefaultConcurrency is the worker count used when the caller passes 0.
	DefaultConcurrency = 3
	// MaxConcurrency bounds the configurable worker count.
	MaxConcurrency = 5
)

// Sender performs the network upload of one prepared payload. It returns
// the short code assigned by the server.
type Sender interface {
	Send(ctx context.Context, task *models.UploadTask, payload []byte) (string, error)
}

// Options configure one batch.
type Options struct {
	// MaxBytes is the upload size ceiling; payloads above it are run
	// through the compression adapter. Zero means common.MaxUploadBytes.
	MaxBytes int64
	// OnProgress, when set, is called after every task reaches a terminal
	// state with the number of finished tasks and the batch size. Progress
	// is monotonically non-decreasing and hits total exactly when the last
	// task terminates. The callback runs under the batch's internal lock;
	// keep it fast and do not call back into the batch.
	OnProgress func(finished, total int)
}

// Summary reports the outcome of a finished batch.
type Summary struct {
	Total    int
	Done     int
	Skipped  int // resolved without a network call (duplicate of a sibling)
	Failed   int
	Uploaded int // actual network uploads issued
}

// Batch owns a fixed set of tasks and the shared state their workers
// coordinate through. Each batch is independent: run two batches side by
// side and neither sees the other's locks or progress.
//
// The lock sets and counters are guarded by mu. Workers are real
// goroutines, so unlike a cooperative event loop every check-then-insert on
// shared state has to happen under the mutex.
type Batch struct {
	tasks    []*models.UploadTask
	sender   Sender
	maxBytes int64
	progress func(finished, total int)

	mu       sync.Mutex
	next     int                 // index of the next unclaimed task
	nameSize map[string]struct{} // name+size keys currently in flight
	claimed  map[string]struct{} // digests claimed for upload in this batch
	finished int
	uploaded int
	skipped  int
}

// NewBatch builds a batch over tasks. Tasks must be in StateQueued.
func NewBatch(tasks []*models.UploadTask, sender Sender, opts Options) *Batch {
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = common.MaxUploadBytes
	}
	return &Batch{
		tasks:    tasks,
		sender:   sender,
		maxBytes: maxBytes,
		progress: opts.OnProgress,
		nameSize: make(map[string]struct{}),
		claimed:  make(map[string]struct{}),
	}
}

// Run drains the batch with at most concurrency workers (clamped to
// 1..MaxConcurrency, DefaultConcurrency when 0) and blocks until every task
// is terminal. A canceled ctx stops workers from picking up further tasks;
// tasks never started remain StateQueued and are not counted as finished.
func (b *Batch) Run(ctx context.Context, concurrency int) Summary {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}

	var g errgroup.Group
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			b.worker(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return b.summary()
}

// worker pops tasks until the queue is empty or ctx is canceled.
func (b *Batch) worker(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		task := b.pop()
		if task == nil {
			return
		}
		b.process(ctx, task)
	}
}

func (b *Batch) pop() *models.UploadTask {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.next >= len(b.tasks) {
		return nil
	}
	t := b.tasks[b.next]
	b.next++
	return t
}

// process drives one task through its lifecycle:
// queued → hashing → (compressing) → uploading → done|failed.
func (b *Batch) process(ctx context.Context, task *models.UploadTask) {
	// Cheap pre-check: claim the name+size key. If another worker already
	// holds it, this is the literal same file selected twice; resolve it
	// without hashing or uploading.
	if !b.claimNameSize(task.LockKey()) {
		b.resolveSkipped(task)
		return
	}
	defer b.releaseNameSize(task.LockKey())

	task.State = models.StateHashing
	digest, err := b.hashTask(task)
	if err != nil {
		b.fail(task, fmt.Errorf("hash: %w", err))
		return
	}
	task.Digest = digest

	// Claim the content digest for this batch. A sibling with identical
	// bytes either is mid-upload right now or already uploaded — either
	// way this task resolves without a network call.
	if !b.claimDigest(digest) {
		b.resolveSkipped(task)
		return
	}

	payload, err := b.preparePayload(task)
	if err != nil {
		b.releaseDigest(digest)
		b.fail(task, err)
		return
	}

	task.State = models.StateUploading
	code, err := b.sender.Send(ctx, task, payload)
	if err != nil {
		// Release the digest so a sibling (or a manual retry) can have
		// another go at this content.
		b.releaseDigest(digest)
		b.fail(task, fmt.Errorf("upload: %w", err))
		return
	}

	task.ShortCode = code
	task.State = models.StateDone
	b.finishTask(func() { b.uploaded++ })
}

// hashTask streams the blob through the content hasher without loading it
// whole.
func (b *Batch) hashTask(task *models.UploadTask) (string, error) {
	rc, err := task.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return hashx.Sum(rc)
}

// preparePayload reads the blob and, when oversized, runs the compression
// adapter. A payload still above the ceiling after best-effort compression
// fails the task without an upload attempt.
func (b *Batch) preparePayload(task *models.UploadTask) ([]byte, error) {
	rc, err := task.Open()
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	if int64(len(data)) <= b.maxBytes {
		return data, nil
	}

	task.State = models.StateCompressing
	out, err := imaging.Compress(data, b.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if int64(len(out)) > b.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes after compression", common.ErrOversized, len(out))
	}
	return out, nil
}

func (b *Batch) claimNameSize(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.nameSize[key]; taken {
		return false
	}
	b.nameSize[key] = struct{}{}
	return true
}

func (b *Batch) releaseNameSize(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.nameSize, key)
}

func (b *Batch) claimDigest(digest string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.claimed[digest]; taken {
		return false
	}
	b.claimed[digest] = struct{}{}
	return true
}

func (b *Batch) releaseDigest(digest string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.claimed, digest)
}

// resolveSkipped marks a task as resolved without a network call: its
// content is covered by a sibling in the same batch.
func (b *Batch) resolveSkipped(task *models.UploadTask) {
	task.State = models.StateDone
	b.finishTask(func() { b.skipped++ })
}

// fail is terminal for the task but not for the batch: a failed task still
// counts toward completion so the batch terminates.
func (b *Batch) fail(task *models.UploadTask, err error) {
	task.Err = err
	task.State = models.StateFailed
	b.finishTask(nil)
}

// finishTask applies the terminal counter update and delivers the progress
// callback while still holding mu, so deliveries arrive in finish order and
// the reported count never goes backwards.
func (b *Batch) finishTask(update func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if update != nil {
		update()
	}
	b.finished++
	if b.progress != nil {
		b.progress(b.finished, len(b.tasks))
	}
}

func (b *Batch) summary() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Summary{
		Total:    len(b.tasks),
		Skipped:  b.skipped,
		Uploaded: b.uploaded,
	}
	for _, t := range b.tasks {
		switch t.State {
		case models.StateDone:
			s.Done++
		case models.StateFailed:
			s.Failed++
		}
	}
	return s
}
