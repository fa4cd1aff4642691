package sstable

import "errors"

// Error kinds surfaced by the storage layer. Callers should match with
// errors.Is against these kinds; the underlying cause is included in the
// error text but is not itself reachable via errors.Unwrap.
var (
	// ErrObjectIo wraps a failure from the underlying object store. Not
	// retried by this layer.
	ErrObjectIo = errors.New("sstable: object store I/O error")

	// ErrInvalidBlock is returned for an out-of-range block index or a
	// block that failed to decode.
	ErrInvalidBlock = errors.New("sstable: invalid block")

	// ErrCorrupt is returned when SSTable meta bytes fail to decode.
	ErrCorrupt = errors.New("sstable: corrupt meta")

	// ErrOther marks a failure that fits none of the kinds above; Store.Get
	// returns it for an unknown cache policy. Errors from a coalesced cache
	// fetch are not wrapped in ErrOther: they are returned as the fetcher
	// produced them.
	ErrOther = errors.New("sstable: coalesced fetch failed")
)
