package sstable

import (
	"encoding/binary"
	"fmt"
)

// KV is a single decoded key/value pair inside a Block.
type KV struct {
	Key   []byte
	Value []byte
}

// Block is the decoded form of one data block. It is immutable after
// DecodeBlock returns and safe to share across goroutines without
// synchronization.
type Block struct {
	pairs []KV
}

// Pairs returns the block's key/value pairs in stored order. The
// returned slice must not be mutated by callers.
func (b *Block) Pairs() []KV {
	return b.pairs
}

// Len reports the number of key/value pairs in the block.
func (b *Block) Len() int {
	return len(b.pairs)
}

// DecodeBlock decodes a block's raw bytes into a typed Block value. The
// wire format is a flat sequence of (keyLen uint32, key, valLen uint32,
// value) records, big-endian, consumed until the input is exhausted.
// Partial or truncated input is ErrInvalidBlock.
func DecodeBlock(raw []byte) (*Block, error) {
	var pairs []KV
	pos := 0

	for pos < len(raw) {
		key, next, err := readLengthPrefixed(raw, pos)
		if err != nil {
			return nil, fmt.Errorf("%w: key: %v", ErrInvalidBlock, err)
		}
		pos = next

		val, next, err := readLengthPrefixed(raw, pos)
		if err != nil {
			return nil, fmt.Errorf("%w: value: %v", ErrInvalidBlock, err)
		}
		pos = next

		pairs = append(pairs, KV{Key: key, Value: val})
	}

	return &Block{pairs: pairs}, nil
}

// EncodeBlock is the inverse of DecodeBlock, used by tests and tools to
// construct well-formed block byte-runs.
func EncodeBlock(pairs []KV) []byte {
	size := 0
	for _, kv := range pairs {
		size += 4 + len(kv.Key) + 4 + len(kv.Value)
	}

	out := make([]byte, 0, size)
	for _, kv := range pairs {
		out = appendLengthPrefixed(out, kv.Key)
		out = appendLengthPrefixed(out, kv.Value)
	}
	return out
}

func readLengthPrefixed(raw []byte, pos int) ([]byte, int, error) {
	if pos+4 > len(raw) {
		return nil, 0, fmt.Errorf("truncated length prefix at offset %d", pos)
	}
	length := binary.BigEndian.Uint32(raw[pos : pos+4])
	pos += 4

	end := pos + int(length)
	if end < pos || end > len(raw) {
		return nil, 0, fmt.Errorf("truncated payload at offset %d (want %d bytes)", pos, length)
	}
	return raw[pos:end], end, nil
}

func appendLengthPrefixed(out []byte, data []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	out = append(out, lenBuf[:]...)
	out = append(out, data...)
	return out
}
