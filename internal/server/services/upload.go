package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/imgvault/internal/common"
	"github.com/dmitrijs2005/imgvault/internal/logging"
	"github.com/dmitrijs2005/imgvault/internal/server/models"
	"github.com/dmitrijs2005/imgvault/internal/server/relay"
	"github.com/dmitrijs2005/imgvault/internal/server/repositories/images"
)

// shortCodeAttempts bounds insert retries on a short-code collision.
const shortCodeAttempts = 3

// UploadInput is one validated upload request.
type UploadInput struct {
	Data        []byte
	Filename    string
	ContentType string
	Tags        []string
	Folder      string
	Expire      string
	// Hash is the client-computed content digest; stored for dedup
	// grouping when present.
	Hash string
}

// UploadService forwards blobs to the relay and records catalog rows. The
// relay store and the catalog insert are two external systems and are not
// covered by one transaction: a crash in between leaves an orphan blob with
// no row, which the deduplication pass or manual cleanup handles later.
type UploadService struct {
	repo  images.Repository
	relay relay.Relay
	log   logging.Logger
}

func NewUploadService(repo images.Repository, rl relay.Relay, log logging.Logger) *UploadService {
	return &UploadService{repo: repo, relay: rl, log: log}
}

// Process validates, stores and catalogs one upload. Validation failures
// are synchronous and never retried.
func (s *UploadService) Process(ctx context.Context, in UploadInput) (*models.Image, error) {
	if len(in.Data) == 0 {
		return nil, common.ErrEmptyFile
	}
	if !strings.HasPrefix(in.ContentType, "image/") {
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedType, in.ContentType)
	}
	if int64(len(in.Data)) > common.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes", common.ErrOversized, len(in.Data))
	}
	if !common.ValidExpire(in.Expire) {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidExpire, in.Expire)
	}
	folder, err := ValidateFolder(in.Folder)
	if err != nil {
		return nil, err
	}

	tags := in.Tags
	if len(tags) == 0 {
		tags = []string{common.DefaultTag}
	}

	ref, thumbRef, err := s.relay.Store(ctx, in.Data, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}

	img := &models.Image{
		FileID:      ref,
		ThumbFileID: thumbRef,
		Tags:        strings.Join(tags, ","),
		Filename:    in.Filename,
		Size:        int64(len(in.Data)),
		Folder:      folder,
		ContentType: in.ContentType,
		Hash:        in.Hash,
		ExpiresAt:   expiryTime(in.Expire),
	}

	var insertErr error
	for attempt := 0; attempt < shortCodeAttempts; attempt++ {
		img.ShortCode = GenerateShortCode()
		img.ID, insertErr = s.repo.Insert(ctx, img)
		if insertErr == nil {
			s.log.Info(ctx, "upload stored", "short_code", img.ShortCode, "bytes", img.Size, "folder", img.Folder)
			return img, nil
		}
	}

	// The blob is already at the relay with no row pointing at it; try to
	// take it back so the orphan window stays small.
	if derr := s.relay.Delete(ctx, ref, thumbRef); derr != nil {
		s.log.Warn(ctx, "orphan blob left at relay", "ref", ref, "error", derr.Error())
	}
	return nil, fmt.Errorf("catalog insert: %w", insertErr)
}

// expiryTime maps an expiry policy to an absolute timestamp; nil means the
// record never expires.
func expiryTime(expire string) *time.Time {
	if expire == common.ExpireNever {
		return nil
	}
	days, err := strconv.Atoi(expire)
	if err != nil {
		return nil
	}
	t := time.Now().Add(time.Duration(days) * 24 * time.Hour)
	return &t
}
