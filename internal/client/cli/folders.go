package cli

import (
	"github.com/spf13/cobra"
)

func (c *CLI) foldersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Inspect and reorganize the virtual folder tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			folders, err := c.api().Folders(cmd.Context())
			if err != nil {
				return err
			}
			for _, f := range folders {
				c.printf("%s\n", f)
			}
			return nil
		},
	}

	rename := &cobra.Command{
		Use:   "rename [old] [new]",
		Short: "Move a folder and all its descendants",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.api().RenameFolder(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			c.printf("renamed %s -> %s\n", args[0], args[1])
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "delete [path]",
		Short: "Delete a folder and every record under it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.api().DeleteFolder(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.printf("deleted %s\n", args[0])
			return nil
		},
	}

	var target string

	move := &cobra.Command{
		Use:   "move [ids...]",
		Short: "Move records into a folder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := c.api().MoveImages(cmd.Context(), ids, target); err != nil {
				return err
			}
			c.printf("moved %d records to %s\n", len(ids), target)
			return nil
		},
	}
	move.Flags().StringVar(&target, "target", "/", "destination folder")

	var copyTarget string

	cp := &cobra.Command{
		Use:   "copy [ids...]",
		Short: "Copy records into a folder under fresh short codes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := c.api().CopyImages(cmd.Context(), ids, copyTarget); err != nil {
				return err
			}
			c.printf("copied %d records to %s\n", len(ids), copyTarget)
			return nil
		},
	}
	cp.Flags().StringVar(&copyTarget, "target", "/", "destination folder")

	cmd.AddCommand(rename, remove, move, cp)
	return cmd
}
