package chromeosupdateengine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/encoding/protowire"
)

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, []byte(s))
}

func appendMessageField(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func encodeExtent(startBlock, numBlocks uint64) []byte {
	var b []byte
	b = appendVarintField(b, fieldExtentStartBlock, startBlock)
	b = appendVarintField(b, fieldExtentNumBlocks, numBlocks)
	return b
}

func encodeOperation(typ InstallOperation_Type, dataOffset, dataLength uint64, dst ...[]byte) []byte {
	var b []byte
	b = appendVarintField(b, fieldOpType, uint64(typ))
	b = appendVarintField(b, fieldOpDataOffset, dataOffset)
	b = appendVarintField(b, fieldOpDataLength, dataLength)
	for _, d := range dst {
		b = appendMessageField(b, fieldOpDstExtents, d)
	}
	return b
}

func encodePartitionInfo(size uint64) []byte {
	return appendVarintField(nil, fieldPartitionInfoSize, size)
}

func encodePartition(name string, size uint64, ops ...[]byte) []byte {
	var b []byte
	b = appendStringField(b, fieldPartitionName, name)
	b = appendMessageField(b, fieldPartitionNewInfo, encodePartitionInfo(size))
	for _, op := range ops {
		b = appendMessageField(b, fieldPartitionOps, op)
	}
	return b
}

func encodeManifest(blockSize uint32, partitions ...[]byte) []byte {
	var b []byte
	b = appendVarintField(b, fieldManifestBlockSize, uint64(blockSize))
	for _, p := range partitions {
		b = appendMessageField(b, fieldManifestPartitions, p)
	}
	return b
}

func TestUnmarshalRoundTrip(t *testing.T) {
	op := encodeOperation(InstallOperation_REPLACE, 0, 4, encodeExtent(0, 1))
	part := encodePartition("boot", 4, op)
	raw := encodeManifest(4096, part)

	m, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	want := &DeltaArchiveManifest{
		BlockSize:    4096,
		HasBlockSize: true,
		Partitions: []*PartitionUpdate{
			{
				PartitionName:    "boot",
				NewPartitionInfo: &PartitionInfo{Size: 4},
				Operations: []InstallOperation{
					{
						Type:       InstallOperation_REPLACE,
						DataLength: 4,
						DstExtents: []Extent{{StartBlock: 0, NumBlocks: 1}},
					},
				},
			},
		},
	}

	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("Unmarshal mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalUnknownFieldsIgnored(t *testing.T) {
	var raw []byte
	raw = appendVarintField(raw, 99, 12345) // unknown field number
	raw = appendVarintField(raw, fieldManifestBlockSize, 2048)

	m, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal should tolerate unknown fields, got: %v", err)
	}
	if m.BlockSize != 2048 {
		t.Errorf("BlockSize = %d, want 2048", m.BlockSize)
	}
}

func TestUnmarshalSecurityPatchLevel(t *testing.T) {
	raw := appendStringField(nil, fieldManifestSecurityPatchLevel, "2024-01-05")
	m, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !m.HasSecurityPatchLevel || m.SecurityPatchLevel != "2024-01-05" {
		t.Errorf("SecurityPatchLevel = %q, %v", m.SecurityPatchLevel, m.HasSecurityPatchLevel)
	}
}

func TestInstallOperationTypeString(t *testing.T) {
	cases := map[InstallOperation_Type]string{
		InstallOperation_REPLACE:    "REPLACE",
		InstallOperation_REPLACE_BZ: "REPLACE_BZ",
		InstallOperation_REPLACE_XZ: "REPLACE_XZ",
		InstallOperation_Type(999):  "UNKNOWN(999)",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", typ, got, want)
		}
	}
}
