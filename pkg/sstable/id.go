package sstable

import "strconv"

// SstId identifies an SSTable file uniquely for the lifetime of a
// deployment. Assignment is external to this package.
type SstId uint64

// String renders the id in its canonical decimal form, matching the
// encoding used in object-store paths.
func (id SstId) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
