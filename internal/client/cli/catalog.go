package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/imgvault/internal/client/transport"
)

func (c *CLI) listCmd() *cobra.Command {
	var (
		page, limit int
		filter      transport.HistoryFilter
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List uploaded images, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.api().History(cmd.Context(), page, limit, filter)
			if err != nil {
				return err
			}

			for _, img := range res.Items {
				c.printf("%d\t%s\t%s\t%s\t%d\n", img.ID, img.ShortCode, img.Folder, img.Filename, img.Size)
			}
			c.printf("page %d/%d (%d total)\n", res.Page, pageCount(res.Total, res.Limit), res.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().StringVar(&filter.Search, "search", "", "match against filename or tags")
	cmd.Flags().StringVar(&filter.Tag, "tag", "", "filter by tag")
	cmd.Flags().StringVar(&filter.Filename, "filename", "", "filter by filename")
	cmd.Flags().StringVar(&filter.Folder, "folder", "", "filter by folder")
	return cmd
}

func (c *CLI) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [ids...]",
		Short: "Delete catalog records by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := c.api().Delete(cmd.Context(), ids); err != nil {
				return err
			}
			c.printf("deleted %d records\n", len(ids))
			return nil
		},
	}
}

func (c *CLI) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.api().FetchStats(cmd.Context())
			if err != nil {
				return err
			}
			c.printf("images:  %d\n", s.Images)
			c.printf("bytes:   %d\n", s.Bytes)
			c.printf("folders: %d\n", s.Folders)
			c.printf("tags:    %d\n", s.Tags)
			return nil
		},
	}
}

func (c *CLI) dedupCmd() *cobra.Command {
	var ids []int64

	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Run server-side deduplication, optionally over specific ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.api().Dedup(cmd.Context(), ids)
			if err != nil {
				return err
			}

			c.printf("%s\n", res.Message)
			for digest, group := range res.Groups {
				c.printf("  %s: kept %d, removed %v\n", digest, group[0], group[1:])
			}
			return nil
		},
	}

	cmd.Flags().Int64SliceVar(&ids, "ids", nil, "restrict the run to these record ids")
	return cmd
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func pageCount(total int64, limit int) int64 {
	if limit <= 0 {
		return 1
	}
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	if pages == 0 {
		pages = 1
	}
	return pages
}
