package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brookdb/brookdb/cmd/sstablectl/cmdutil"
)

var rmCmd = &cobra.Command{
	Use:   "rm <sst-id>",
	Short: "Delete an SSTable's data object",
	Long: `rm removes only the data object for the given id, matching
Store.DeleteData: the meta object and both caches are left untouched, since
retention is the caller's responsibility.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseSstId(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		s, _, err := cmdutil.BuildStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.DeleteData(ctx, id); err != nil {
			return fmt.Errorf("delete data for sstable %s: %w", id, err)
		}

		fmt.Printf("deleted data object for sstable %s\n", id)
		return nil
	},
}
