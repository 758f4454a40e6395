package cli

import (
	"context"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/imgvault/internal/client/models"
	"github.com/dmitrijs2005/imgvault/internal/client/transport"
	"github.com/dmitrijs2005/imgvault/internal/client/uploader"
	"github.com/dmitrijs2005/imgvault/internal/common"
)

func (c *CLI) uploadCmd() *cobra.Command {
	var (
		tags        []string
		folder      string
		expire      string
		concurrency int
		compress    bool
	)

	cmd := &cobra.Command{
		Use:   "upload [files...]",
		Short: "Upload images in a concurrent, deduplicating batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := tasksFromFiles(args)
			if err != nil {
				return err
			}

			meta := transport.UploadMeta{Tags: tags, Folder: folder, Expire: expire}

			// Each success refreshes the catalog totals so the final
			// summary reflects the server state, not a local guess.
			var statsMu sync.Mutex
			var latest *transport.Stats

			var sender *transport.Client
			sender = transport.New(c.cfg.ServerURL, meta,
				transport.WithHTTPClient(&http.Client{Timeout: c.cfg.RequestTimeout}),
				transport.WithSuccessHook(func(ctx context.Context) {
					if s, err := sender.FetchStats(ctx); err == nil {
						statsMu.Lock()
						latest = s
						statsMu.Unlock()
					}
				}),
			)

			opts := uploader.Options{
				OnProgress: func(finished, total int) {
					c.printf("\ruploading %d/%d", finished, total)
				},
			}
			if !compress {
				// Send originals untouched; the server enforces its own
				// size ceiling.
				opts.MaxBytes = 1 << 62
			}

			batch := uploader.NewBatch(tasks, sender, opts)
			summary := batch.Run(cmd.Context(), concurrency)
			c.printf("\n")

			for _, t := range tasks {
				switch t.State {
				case models.StateDone:
					if t.ShortCode != "" {
						c.printf("%s: ok (%s)\n", t.Name, t.ShortCode)
					} else {
						c.printf("%s: ok (duplicate in batch)\n", t.Name)
					}
				case models.StateFailed:
					c.printf("%s: failed: %v\n", t.Name, t.Err)
				default:
					c.printf("%s: not started\n", t.Name)
				}
			}
			c.printf("done %d, skipped %d, failed %d (of %d)\n",
				summary.Done, summary.Skipped, summary.Failed, summary.Total)

			statsMu.Lock()
			if latest != nil {
				c.printf("catalog now holds %d images, %d bytes\n", latest.Images, latest.Bytes)
			}
			statsMu.Unlock()
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tags", nil, "tags attached to every file in the batch")
	cmd.Flags().StringVar(&folder, "folder", "/", "target folder")
	cmd.Flags().StringVar(&expire, "expire", common.ExpireNever, "expiry policy: forever, 1, 7 or 30 days")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", c.cfg.Concurrency, "parallel upload workers")
	cmd.Flags().BoolVar(&compress, "compress", true, "recompress oversized images before upload")
	return cmd
}

// tasksFromFiles builds one queued task per path. Files are opened lazily;
// only size and type are resolved up front.
func tasksFromFiles(paths []string) ([]*models.UploadTask, error) {
	tasks := make([]*models.UploadTask, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}

		contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(p)))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		path := p
		tasks = append(tasks, &models.UploadTask{
			Name:        filepath.Base(p),
			Size:        info.Size(),
			ContentType: contentType,
			Open:        func() (io.ReadCloser, error) { return os.Open(path) },
			State:       models.StateQueued,
		})
	}
	return tasks, nil
}
