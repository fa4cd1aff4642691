package commands

import (
	"fmt"
	"strconv"

	"github.com/brookdb/brookdb/pkg/sstable"
)

// parseSstId parses a decimal command-line argument into an SstId.
func parseSstId(s string) (sstable.SstId, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid sstable id %q: %w", s, err)
	}
	return sstable.SstId(id), nil
}

// parseUint parses a decimal command-line argument into a uint64.
func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}
