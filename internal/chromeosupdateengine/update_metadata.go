// Package chromeosupdateengine decodes the DeltaArchiveManifest protobuf
// schema used by the Android/ChromeOS update_engine payload format.
//
// The schema is the one declared by AOSP's
// system/update_engine/update_metadata.proto. Rather than vendor a
// protoc-generated package, the handful of fields this decoder needs are
// read directly off the wire with google.golang.org/protobuf/encoding/protowire,
// matching the field numbers of the public .proto. Unknown fields are
// skipped, never an error: the manifest format grows new optional fields
// across AOSP releases and this decoder must tolerate all of them.
package chromeosupdateengine

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// InstallOperation_Type mirrors InstallOperation.Type from the .proto.
type InstallOperation_Type int32

const (
	InstallOperation_REPLACE         InstallOperation_Type = 0
	InstallOperation_REPLACE_BZ      InstallOperation_Type = 1
	InstallOperation_MOVE            InstallOperation_Type = 2 // deprecated
	InstallOperation_BSDIFF          InstallOperation_Type = 3 // deprecated
	InstallOperation_SOURCE_COPY     InstallOperation_Type = 4
	InstallOperation_SOURCE_BSDIFF   InstallOperation_Type = 5
	InstallOperation_REPLACE_XZ      InstallOperation_Type = 6
	InstallOperation_ZERO            InstallOperation_Type = 7
	InstallOperation_DISCARD         InstallOperation_Type = 8
	InstallOperation_BROTLI_BSDIFF   InstallOperation_Type = 9
	InstallOperation_PUFFDIFF        InstallOperation_Type = 10
	InstallOperation_ZUCCHINI        InstallOperation_Type = 11
	InstallOperation_LZ4DIFF_BSDIFF  InstallOperation_Type = 12
	InstallOperation_LZ4DIFF_PUFFDIFF InstallOperation_Type = 13
)

func (t InstallOperation_Type) String() string {
	switch t {
	case InstallOperation_REPLACE:
		return "REPLACE"
	case InstallOperation_REPLACE_BZ:
		return "REPLACE_BZ"
	case InstallOperation_MOVE:
		return "MOVE"
	case InstallOperation_BSDIFF:
		return "BSDIFF"
	case InstallOperation_SOURCE_COPY:
		return "SOURCE_COPY"
	case InstallOperation_SOURCE_BSDIFF:
		return "SOURCE_BSDIFF"
	case InstallOperation_REPLACE_XZ:
		return "REPLACE_XZ"
	case InstallOperation_ZERO:
		return "ZERO"
	case InstallOperation_DISCARD:
		return "DISCARD"
	case InstallOperation_BROTLI_BSDIFF:
		return "BROTLI_BSDIFF"
	case InstallOperation_PUFFDIFF:
		return "PUFFDIFF"
	case InstallOperation_ZUCCHINI:
		return "ZUCCHINI"
	case InstallOperation_LZ4DIFF_BSDIFF:
		return "LZ4DIFF_BSDIFF"
	case InstallOperation_LZ4DIFF_PUFFDIFF:
		return "LZ4DIFF_PUFFDIFF"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(t))
	}
}

// Extent is a run of blocks in a partition image.
type Extent struct {
	StartBlock uint64
	NumBlocks  uint64
}

// PartitionInfo carries the size/hash of one side of a partition update.
type PartitionInfo struct {
	Size uint64
	Hash []byte
}

// InstallOperation is one instruction for materializing part of a
// partition image from the payload's data blob.
type InstallOperation struct {
	Type       InstallOperation_Type
	DataOffset uint64
	DataLength uint64
	SrcExtents []Extent
	DstExtents []Extent
}

// PartitionUpdate describes one partition carried by the payload.
type PartitionUpdate struct {
	PartitionName    string
	NewPartitionInfo *PartitionInfo
	OldPartitionInfo *PartitionInfo
	Operations       []InstallOperation
}

// DeltaArchiveManifest is the decoded payload manifest.
type DeltaArchiveManifest struct {
	BlockSize          uint32
	HasBlockSize       bool
	MinorVersion       uint64
	Partitions         []*PartitionUpdate
	MaxTimestamp       int64
	PartialUpdate      bool
	HasPartialUpdate   bool
	SecurityPatchLevel string
	HasSecurityPatchLevel bool
}

// field numbers from AOSP system/update_engine/update_metadata.proto
const (
	fieldManifestBlockSize          = 3
	fieldManifestMaxTimestamp       = 10
	fieldManifestMinorVersion       = 12
	fieldManifestPartitions         = 13
	fieldManifestPartialUpdate      = 15
	fieldManifestSecurityPatchLevel = 17

	fieldPartitionName      = 1
	fieldPartitionOldInfo   = 6
	fieldPartitionNewInfo   = 7
	fieldPartitionOps       = 8

	fieldPartitionInfoSize = 1
	fieldPartitionInfoHash = 2

	fieldOpType       = 1
	fieldOpDataOffset = 2
	fieldOpDataLength = 3
	fieldOpSrcExtents = 4
	fieldOpDstExtents = 6

	fieldExtentStartBlock = 1
	fieldExtentNumBlocks  = 2
)

// Unmarshal decodes a DeltaArchiveManifest from its protobuf wire bytes.
// Unrecognized fields are skipped; a malformed wire stream for a field
// this decoder does understand is reported with the offending field
// number in the error text.
func Unmarshal(data []byte) (*DeltaArchiveManifest, error) {
	m := &DeltaArchiveManifest{}

	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("manifest: malformed tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldManifestBlockSize:
			v, n, err := consumeVarint(b, typ, num)
			if err != nil {
				return nil, err
			}
			m.BlockSize = uint32(v)
			m.HasBlockSize = true
			b = b[n:]
		case fieldManifestMinorVersion:
			v, n, err := consumeVarint(b, typ, num)
			if err != nil {
				return nil, err
			}
			m.MinorVersion = v
			b = b[n:]
		case fieldManifestMaxTimestamp:
			v, n, err := consumeVarint(b, typ, num)
			if err != nil {
				return nil, err
			}
			m.MaxTimestamp = int64(v)
			b = b[n:]
		case fieldManifestPartialUpdate:
			v, n, err := consumeVarint(b, typ, num)
			if err != nil {
				return nil, err
			}
			m.PartialUpdate = v != 0
			m.HasPartialUpdate = true
			b = b[n:]
		case fieldManifestSecurityPatchLevel:
			s, n, err := consumeString(b, typ, num)
			if err != nil {
				return nil, err
			}
			m.SecurityPatchLevel = s
			m.HasSecurityPatchLevel = true
			b = b[n:]
		case fieldManifestPartitions:
			raw, n, err := consumeBytes(b, typ, num)
			if err != nil {
				return nil, err
			}
			pu, err := unmarshalPartitionUpdate(raw)
			if err != nil {
				return nil, err
			}
			m.Partitions = append(m.Partitions, pu)
			b = b[n:]
		default:
			n, err := skipField(b, typ)
			if err != nil {
				return nil, err
			}
			b = b[n:]
		}
	}

	return m, nil
}

func unmarshalPartitionUpdate(data []byte) (*PartitionUpdate, error) {
	pu := &PartitionUpdate{}

	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("partition_update: malformed tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldPartitionName:
			s, n, err := consumeString(b, typ, num)
			if err != nil {
				return nil, err
			}
			pu.PartitionName = s
			b = b[n:]
		case fieldPartitionOldInfo:
			raw, n, err := consumeBytes(b, typ, num)
			if err != nil {
				return nil, err
			}
			info, err := unmarshalPartitionInfo(raw)
			if err != nil {
				return nil, err
			}
			pu.OldPartitionInfo = info
			b = b[n:]
		case fieldPartitionNewInfo:
			raw, n, err := consumeBytes(b, typ, num)
			if err != nil {
				return nil, err
			}
			info, err := unmarshalPartitionInfo(raw)
			if err != nil {
				return nil, err
			}
			pu.NewPartitionInfo = info
			b = b[n:]
		case fieldPartitionOps:
			raw, n, err := consumeBytes(b, typ, num)
			if err != nil {
				return nil, err
			}
			op, err := unmarshalInstallOperation(raw)
			if err != nil {
				return nil, err
			}
			pu.Operations = append(pu.Operations, *op)
			b = b[n:]
		default:
			n, err := skipField(b, typ)
			if err != nil {
				return nil, err
			}
			b = b[n:]
		}
	}

	return pu, nil
}

func unmarshalPartitionInfo(data []byte) (*PartitionInfo, error) {
	info := &PartitionInfo{}

	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("partition_info: malformed tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldPartitionInfoSize:
			v, n, err := consumeVarint(b, typ, num)
			if err != nil {
				return nil, err
			}
			info.Size = v
			b = b[n:]
		case fieldPartitionInfoHash:
			raw, n, err := consumeBytes(b, typ, num)
			if err != nil {
				return nil, err
			}
			info.Hash = append([]byte(nil), raw...)
			b = b[n:]
		default:
			n, err := skipField(b, typ)
			if err != nil {
				return nil, err
			}
			b = b[n:]
		}
	}

	return info, nil
}

func unmarshalInstallOperation(data []byte) (*InstallOperation, error) {
	op := &InstallOperation{}

	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("install_operation: malformed tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldOpType:
			v, n, err := consumeVarint(b, typ, num)
			if err != nil {
				return nil, err
			}
			op.Type = InstallOperation_Type(v)
			b = b[n:]
		case fieldOpDataOffset:
			v, n, err := consumeVarint(b, typ, num)
			if err != nil {
				return nil, err
			}
			op.DataOffset = v
			b = b[n:]
		case fieldOpDataLength:
			v, n, err := consumeVarint(b, typ, num)
			if err != nil {
				return nil, err
			}
			op.DataLength = v
			b = b[n:]
		case fieldOpSrcExtents:
			raw, n, err := consumeBytes(b, typ, num)
			if err != nil {
				return nil, err
			}
			ext, err := unmarshalExtent(raw)
			if err != nil {
				return nil, err
			}
			op.SrcExtents = append(op.SrcExtents, *ext)
			b = b[n:]
		case fieldOpDstExtents:
			raw, n, err := consumeBytes(b, typ, num)
			if err != nil {
				return nil, err
			}
			ext, err := unmarshalExtent(raw)
			if err != nil {
				return nil, err
			}
			op.DstExtents = append(op.DstExtents, *ext)
			b = b[n:]
		default:
			n, err := skipField(b, typ)
			if err != nil {
				return nil, err
			}
			b = b[n:]
		}
	}

	return op, nil
}

func unmarshalExtent(data []byte) (*Extent, error) {
	ext := &Extent{}

	b := data
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("extent: malformed tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldExtentStartBlock:
			v, n, err := consumeVarint(b, typ, num)
			if err != nil {
				return nil, err
			}
			ext.StartBlock = v
			b = b[n:]
		case fieldExtentNumBlocks:
			v, n, err := consumeVarint(b, typ, num)
			if err != nil {
				return nil, err
			}
			ext.NumBlocks = v
			b = b[n:]
		default:
			n, err := skipField(b, typ)
			if err != nil {
				return nil, err
			}
			b = b[n:]
		}
	}

	return ext, nil
}

func consumeVarint(b []byte, typ protowire.Type, field protowire.Number) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, fmt.Errorf("field %d: expected varint, got wire type %d", field, typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("field %d: malformed varint: %w", field, protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeBytes(b []byte, typ protowire.Type, field protowire.Number) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("field %d: expected length-delimited, got wire type %d", field, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("field %d: malformed length-delimited value: %w", field, protowire.ParseError(n))
	}
	return v, n, nil
}

func consumeString(b []byte, typ protowire.Type, field protowire.Number) (string, int, error) {
	raw, n, err := consumeBytes(b, typ, field)
	if err != nil {
		return "", 0, err
	}
	return string(raw), n, nil
}

func skipField(b []byte, typ protowire.Type) (int, error) {
	n := protowire.ConsumeFieldValue(0, typ, b)
	if n < 0 {
		return 0, fmt.Errorf("malformed field of wire type %d: %w", typ, protowire.ParseError(n))
	}
	return n, nil
}
