package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/imgvault/internal/hashx"
	"github.com/dmitrijs2005/imgvault/internal/logging"
	"github.com/dmitrijs2005/imgvault/internal/server/models"
	"github.com/dmitrijs2005/imgvault/internal/server/relay"
	"github.com/dmitrijs2005/imgvault/internal/server/repositories/images"
)

const (
	// dedupConcurrency bounds concurrent relay fetches + hashing so the
	// job overwhelms neither the relay nor the local CPU.
	dedupConcurrency = 6
	// dedupPageSize is the enumeration page size for full-catalog runs.
	dedupPageSize = 200
)

// DedupReport is the outcome of one deduplication run.
type DedupReport struct {
	// Scanned is how many candidates were enumerated.
	Scanned int
	// Hashed is how many candidates were fetched and digested; failed
	// fetches are excluded from grouping, never deleted.
	Hashed int
	// Deleted is the number of removed duplicate rows.
	Deleted int
	// Groups maps each duplicate digest to the ids involved (survivor
	// first). Empty when nothing was duplicated.
	Groups map[string][]int64
}

// NoDuplicates distinguishes "nothing to do" from an execution error.
func (r *DedupReport) NoDuplicates() bool {
	return r.Deleted == 0
}

// DedupService is the authoritative cleanup for content duplicated across
// batches or users. The client's in-batch dedup is only an optimization;
// this job re-downloads every candidate through the relay, re-computes its
// digest, and deletes all but one representative per digest group. Safe to
// re-run: a second pass over a deduplicated catalog deletes nothing.
type DedupService struct {
	repo  images.Repository
	relay relay.Relay
	log   logging.Logger

	// OnProgress, when set, is called after each candidate resolves.
	OnProgress func(done, total int)
}

func NewDedupService(repo images.Repository, rl relay.Relay, log logging.Logger) *DedupService {
	return &DedupService{repo: repo, relay: rl, log: log}
}

// Run executes the job over the given ids, or over the whole catalog when
// ids is empty. Only enumeration and the final batched delete abort the
// job; individual fetch/hash failures just exclude their candidate.
func (s *DedupService) Run(ctx context.Context, ids []int64) (*DedupReport, error) {
	candidates, err := s.enumerate(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("enumerate: %w", err)
	}

	report := &DedupReport{Scanned: len(candidates), Groups: map[string][]int64{}}
	if len(candidates) == 0 {
		return report, nil
	}

	type hashed struct {
		img    *models.Image
		digest string
	}

	var mu sync.Mutex
	var done int
	results := make([]hashed, 0, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dedupConcurrency)
	for _, img := range candidates {
		g.Go(func() error {
			digest, herr := s.hashCandidate(gctx, img)

			mu.Lock()
			done++
			if herr == nil {
				results = append(results, hashed{img: img, digest: digest})
			}
			progress := done
			mu.Unlock()

			if herr != nil {
				// Unknown content is never deleted.
				s.log.Warn(gctx, "candidate skipped", "id", img.ID, "error", herr.Error())
			}
			if s.OnProgress != nil {
				s.OnProgress(progress, len(candidates))
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report.Hashed = len(results)

	// Group by digest; the earliest-created row survives.
	byDigest := map[string][]*models.Image{}
	for _, h := range results {
		byDigest[h.digest] = append(byDigest[h.digest], h.img)
	}

	var doomed []int64
	for digest, group := range byDigest {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].ID < group[j].ID
			}
			return group[i].CreatedAt.Before(group[j].CreatedAt)
		})
		groupIDs := make([]int64, 0, len(group))
		for _, img := range group {
			groupIDs = append(groupIDs, img.ID)
		}
		report.Groups[digest] = groupIDs
		doomed = append(doomed, groupIDs[1:]...)
	}

	if len(doomed) == 0 {
		s.log.Info(ctx, "dedup found no duplicates", "scanned", report.Scanned)
		return report, nil
	}

	deleted, err := s.repo.DeleteByIDs(ctx, doomed)
	if err != nil {
		// The delete phase failed as a whole; the catalog is unchanged.
		return nil, fmt.Errorf("delete duplicates: %w", err)
	}
	report.Deleted = int(deleted)

	s.log.Info(ctx, "dedup finished", "scanned", report.Scanned, "deleted", report.Deleted)
	return report, nil
}

// enumerate loads the candidate set: the id subset when given, otherwise
// the full catalog, paged.
func (s *DedupService) enumerate(ctx context.Context, ids []int64) ([]*models.Image, error) {
	if len(ids) > 0 {
		return s.repo.SelectByIDs(ctx, ids)
	}

	// Expired rows still hold relay blobs, so they stay in the candidate
	// set and get collapsed like any other.
	var all []*models.Image
	for page := 1; ; page++ {
		items, _, err := s.repo.SelectPage(ctx, models.ListFilter{IncludeExpired: true}, page, dedupPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < dedupPageSize {
			return all, nil
		}
	}
}

// hashCandidate re-downloads the blob and computes its digest. The stored
// hash column is deliberately not trusted here: the relay copy is the
// source of truth.
func (s *DedupService) hashCandidate(ctx context.Context, img *models.Image) (string, error) {
	data, err := s.relay.Fetch(ctx, img.FileID)
	if err != nil {
		return "", err
	}
	return hashx.SumBytes(data), nil
}
