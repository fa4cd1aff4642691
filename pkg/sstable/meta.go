package sstable

import (
	"encoding/binary"
	"fmt"
)

// metaMagic identifies the on-disk SstableMeta format.
var metaMagic = [4]byte{'B', 'S', 'S', 'T'}

const metaVersion uint16 = 1

// blockMetaSize is the encoded size of one BlockMeta record: offset
// (uint64) + len (uint32), big-endian.
const blockMetaSize = 8 + 4

// headerSize is magic + version + block count.
const headerSize = 4 + 2 + 4

// BlockMeta describes one block's position inside an SSTable's data
// object.
type BlockMeta struct {
	Offset uint64
	Len    uint32
}

// SstableMeta is the per-file index: an ordered sequence of BlockMeta in
// block-index order, plus opaque footer fields. It must be byte-exact
// round-trippable through Encode/Decode.
type SstableMeta struct {
	BlockMetas    []BlockMeta
	FirstKey      []byte
	LastKey       []byte
	EstimatedSize uint64
}

// EncodedSize returns the number of bytes Encode would produce. Used as
// the meta cache's weight for this entry.
func (m SstableMeta) EncodedSize() int {
	return headerSize +
		len(m.BlockMetas)*blockMetaSize +
		4 + len(m.FirstKey) +
		4 + len(m.LastKey) +
		8
}

// Encode serializes m into its on-disk wire format. The format is stable
// across process restarts and library versions for already-written
// files: a 4-byte magic, a 2-byte version, a 4-byte block count, that
// many fixed-size BlockMeta records, then the length-prefixed first/last
// keys and an 8-byte estimated size, all big-endian.
func (m SstableMeta) Encode() []byte {
	out := make([]byte, 0, m.EncodedSize())

	out = append(out, metaMagic[:]...)
	out = binary.BigEndian.AppendUint16(out, metaVersion)
	out = binary.BigEndian.AppendUint32(out, uint32(len(m.BlockMetas)))

	for _, bm := range m.BlockMetas {
		out = binary.BigEndian.AppendUint64(out, bm.Offset)
		out = binary.BigEndian.AppendUint32(out, bm.Len)
	}

	out = appendLengthPrefixed(out, m.FirstKey)
	out = appendLengthPrefixed(out, m.LastKey)
	out = binary.BigEndian.AppendUint64(out, m.EstimatedSize)

	return out
}

// DecodeSstableMeta parses the wire format produced by Encode. Truncated
// or mismatched-magic input is ErrCorrupt.
func DecodeSstableMeta(raw []byte) (SstableMeta, error) {
	if len(raw) < headerSize {
		return SstableMeta{}, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}

	if [4]byte(raw[0:4]) != metaMagic {
		return SstableMeta{}, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}

	version := binary.BigEndian.Uint16(raw[4:6])
	if version != metaVersion {
		return SstableMeta{}, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, version)
	}

	count := binary.BigEndian.Uint32(raw[6:10])
	pos := headerSize

	need := pos + int(count)*blockMetaSize
	if need < pos || need > len(raw) {
		return SstableMeta{}, fmt.Errorf("%w: truncated block meta table", ErrCorrupt)
	}

	blockMetas := make([]BlockMeta, count)
	for i := range blockMetas {
		offset := binary.BigEndian.Uint64(raw[pos : pos+8])
		length := binary.BigEndian.Uint32(raw[pos+8 : pos+12])
		blockMetas[i] = BlockMeta{Offset: offset, Len: length}
		pos += blockMetaSize
	}

	firstKey, pos, err := readLengthPrefixed(raw, pos)
	if err != nil {
		return SstableMeta{}, fmt.Errorf("%w: first key: %v", ErrCorrupt, err)
	}

	lastKey, pos, err := readLengthPrefixed(raw, pos)
	if err != nil {
		return SstableMeta{}, fmt.Errorf("%w: last key: %v", ErrCorrupt, err)
	}

	if pos+8 > len(raw) {
		return SstableMeta{}, fmt.Errorf("%w: truncated estimated size", ErrCorrupt)
	}
	estimatedSize := binary.BigEndian.Uint64(raw[pos : pos+8])

	return SstableMeta{
		BlockMetas:    blockMetas,
		FirstKey:      firstKey,
		LastKey:       lastKey,
		EstimatedSize: estimatedSize,
	}, nil
}

// Sstable is an immutable value identifying a file and its index. It is
// shared by reference among concurrent readers once constructed.
type Sstable struct {
	ID   SstId
	Meta SstableMeta
}
