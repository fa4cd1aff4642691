package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brookdb/brookdb/cmd/sstablectl/cmdutil"
	"github.com/brookdb/brookdb/pkg/sstable/cache"
)

var getPolicy string

var getCmd = &cobra.Command{
	Use:   "get <sst-id> <block-idx>",
	Short: "Fetch and print one decoded block",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseSstId(args[0])
		if err != nil {
			return err
		}
		idx, err := parseUint(args[1])
		if err != nil {
			return fmt.Errorf("invalid block index %q: %w", args[1], err)
		}

		policy, err := parsePolicy(getPolicy)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		s, _, err := cmdutil.BuildStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		sst, err := s.Sstable(ctx, id)
		if err != nil {
			return fmt.Errorf("load sstable %s: %w", id, err)
		}

		block, err := s.Get(ctx, sst, idx, policy)
		if err != nil {
			return fmt.Errorf("get block %d of sstable %s: %w", idx, id, err)
		}

		fmt.Printf("block %d of sstable %s: %d pairs\n", idx, id, block.Len())
		for i, kv := range block.Pairs() {
			fmt.Printf("  [%d] key=%q value=%d bytes\n", i, kv.Key, len(kv.Value))
		}
		return nil
	},
}

func init() {
	getCmd.Flags().StringVar(&getPolicy, "policy", "fill", "cache policy: disable|fill|not_fill")
}

func parsePolicy(s string) (cache.Policy, error) {
	switch s {
	case "disable":
		return cache.Disable, nil
	case "fill":
		return cache.Fill, nil
	case "not_fill", "notfill":
		return cache.NotFill, nil
	default:
		return 0, fmt.Errorf("unknown cache policy %q (want disable|fill|not_fill)", s)
	}
}
