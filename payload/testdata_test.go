package payload

import (
	"encoding/binary"

	"google.golang.org/protobuf/encoding/protowire"
)

// Minimal local protobuf encoders for building synthetic payload
// manifests in tests, mirroring the field numbers of
// internal/chromeosupdateengine (kept independent of that package's
// unexported constants so a regression there shows up here too).

const (
	testFieldBlockSize    = 3
	testFieldPartitions   = 13
	testFieldPartName     = 1
	testFieldPartNewInfo  = 7
	testFieldPartOps      = 8
	testFieldInfoSize     = 1
	testFieldOpType       = 1
	testFieldOpDataOffset = 2
	testFieldOpDataLength = 3
)

func testOperation(opType int, dataOffset, dataLength uint64) []byte {
	var b []byte
	b = protowire.AppendTag(b, testFieldOpType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(opType))
	b = protowire.AppendTag(b, testFieldOpDataOffset, protowire.VarintType)
	b = protowire.AppendVarint(b, dataOffset)
	b = protowire.AppendTag(b, testFieldOpDataLength, protowire.VarintType)
	b = protowire.AppendVarint(b, dataLength)
	return b
}

func testPartitionInfo(size uint64) []byte {
	b := protowire.AppendTag(nil, testFieldInfoSize, protowire.VarintType)
	return protowire.AppendVarint(b, size)
}

func testPartition(name string, size uint64, ops ...[]byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, testFieldPartName, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte(name))
	b = protowire.AppendTag(b, testFieldPartNewInfo, protowire.BytesType)
	b = protowire.AppendBytes(b, testPartitionInfo(size))
	for _, op := range ops {
		b = protowire.AppendTag(b, testFieldPartOps, protowire.BytesType)
		b = protowire.AppendBytes(b, op)
	}
	return b
}

func testManifest(blockSize uint32, partitions ...[]byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, testFieldBlockSize, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(blockSize))
	for _, p := range partitions {
		b = protowire.AppendTag(b, testFieldPartitions, protowire.BytesType)
		b = protowire.AppendBytes(b, p)
	}
	return b
}

// testPayload assembles a full CrAU v2 payload: header + manifest + data
// blob, with no metadata signature.
func testPayload(manifest, dataBlob []byte) []byte {
	var buf []byte
	buf = append(buf, []byte(payloadMagic)...)

	var versionBuf [8]byte
	binary.BigEndian.PutUint64(versionBuf[:], supportedVersion)
	buf = append(buf, versionBuf[:]...)

	var sizeBuf [8]byte
	binary.BigEndian.PutUint64(sizeBuf[:], uint64(len(manifest)))
	buf = append(buf, sizeBuf[:]...)

	var sigSizeBuf [4]byte
	binary.BigEndian.PutUint32(sigSizeBuf[:], 0)
	buf = append(buf, sigSizeBuf[:]...)

	buf = append(buf, manifest...)
	buf = append(buf, dataBlob...)
	return buf
}
