package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brookdb/brookdb/cmd/sstablectl/cmdutil"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <sst-id>",
	Short: "Print an SSTable's decoded meta",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseSstId(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		s, cfg, err := cmdutil.BuildStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		sst, err := s.Sstable(ctx, id)
		if err != nil {
			return fmt.Errorf("load sstable %s: %w", id, err)
		}

		fmt.Printf("sstable %s\n", sst.ID)
		fmt.Printf("  meta path:     %s\n", s.SstMetaPath(sst.ID))
		fmt.Printf("  data path:     %s\n", s.SstDataPath(sst.ID))
		fmt.Printf("  backend:       %s\n", cfg.Backend)
		fmt.Printf("  blocks:        %d\n", len(sst.Meta.BlockMetas))
		fmt.Printf("  estimated size: %d bytes\n", sst.Meta.EstimatedSize)
		fmt.Printf("  first key:     %q\n", sst.Meta.FirstKey)
		fmt.Printf("  last key:      %q\n", sst.Meta.LastKey)
		for i, bm := range sst.Meta.BlockMetas {
			fmt.Printf("    [%d] offset=%d len=%d\n", i, bm.Offset, bm.Len)
		}
		return nil
	},
}
