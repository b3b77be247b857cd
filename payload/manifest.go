package payload

import (
	"io"
	"sort"

	"github.com/Gustyx-Power/PayloadPack/internal/chromeosupdateengine"
)

const (
	headerSize         = 24
	maxManifestSize    = 100 * 1024 * 1024
	payloadMagic       = "CrAU"
	supportedVersion   = 2
)

// decodedManifest bundles the raw header fields with the decoded
// protobuf manifest, so Extract can reuse the work Inspect already did
// (spec §9: "manifest handle sharing between inspect and extract").
type decodedManifest struct {
	header   Header
	manifest *chromeosupdateengine.DeltaArchiveManifest
}

// dataBlobOffset is the byte offset, relative to the start of the
// payload stream, where the data blob begins: 24 + manifest_size +
// metadata_signature_size.
func (d *decodedManifest) dataBlobOffset() int64 {
	return headerSize + int64(d.header.ManifestSize) + int64(d.header.MetadataSignatureSize)
}

// readHeaderAndManifest implements spec §4.2 steps 4-10: validate the
// fixed header and decode the manifest bytes that follow it. r must be
// positioned at the start of the payload stream; a successful call
// leaves it just past the end of the manifest. Callers that need the
// data blob offset use dataBlobOffset.
func readHeaderAndManifest(r io.ReadSeeker, size int64) (*decodedManifest, error) {
	if size < headerSize {
		return nil, newError(FileTooSmall, "file too small (%d bytes) to be a valid payload, minimum size is %d bytes", size, headerSize)
	}

	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, wrapError(UnexpectedEof, err, "unexpected end of file reading header")
	}

	magic := hdr[0:4]
	if string(magic) != payloadMagic {
		return nil, newError(InvalidMagic, "invalid magic bytes: expected 'CrAU', got %q", magic)
	}

	version := beUint64(hdr[4:12])
	if version != supportedVersion {
		return nil, newError(UnsupportedVersion, "unsupported payload version %d, only version %d is supported", version, supportedVersion)
	}

	manifestSize := beUint64(hdr[12:20])
	if manifestSize > maxManifestSize {
		return nil, newError(ManifestTooLarge, "manifest too large: %d bytes (max %d bytes), file may be corrupted", manifestSize, maxManifestSize)
	}

	metadataSigSize := beUint32(hdr[20:24])

	manifestBytes := make([]byte, manifestSize)
	if _, err := io.ReadFull(r, manifestBytes); err != nil {
		return nil, wrapError(UnexpectedEof, err, "unexpected end of file reading manifest")
	}

	manifest, err := chromeosupdateengine.Unmarshal(manifestBytes)
	if err != nil {
		return nil, wrapError(ProtobufDecode, err, "failed to decode manifest: %v", err)
	}

	return &decodedManifest{
		header: Header{
			Version:               version,
			ManifestSize:          manifestSize,
			MetadataSignatureSize: metadataSigSize,
		},
		manifest: manifest,
	}, nil
}

func beUint64(b []byte) uint64 {
	return uint64(b[0])<<56 | uint64(b[1])<<48 | uint64(b[2])<<40 | uint64(b[3])<<32 |
		uint64(b[4])<<24 | uint64(b[5])<<16 | uint64(b[6])<<8 | uint64(b[7])
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// summarize builds the sorted partition summary list and total size for
// a PayloadInspection (spec §4.2 step 11).
func summarize(m *chromeosupdateengine.DeltaArchiveManifest) ([]PartitionSummary, uint64) {
	summaries := make([]PartitionSummary, 0, len(m.Partitions))
	var total uint64

	for _, p := range m.Partitions {
		var size uint64
		if p.NewPartitionInfo != nil {
			size = p.NewPartitionInfo.Size
		} else {
			Logger.Printf("partition %q has no new_partition_info, treating size as 0", p.PartitionName)
		}
		total += size

		summaries = append(summaries, PartitionSummary{
			Name:            p.PartitionName,
			Size:            size,
			OperationsCount: len(p.Operations),
			SizeHuman:       humanBytes(size),
		})
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })

	return summaries, total
}
