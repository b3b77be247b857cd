package payload

// Header mirrors the 24-byte fixed payload header (spec §6).
type Header struct {
	Version               uint64 `json:"version"`
	ManifestSize          uint64 `json:"manifest_size"`
	MetadataSignatureSize uint32 `json:"metadata_signature_size"`
}

// PartitionSummary is one partition's entry in a PayloadInspection.
type PartitionSummary struct {
	Name             string `json:"name"`
	Size             uint64 `json:"size"`
	OperationsCount  int    `json:"operations_count"`
	SizeHuman        string `json:"size_human"`
}

// Properties is the parsed contents of a sibling payload_properties.txt.
type Properties struct {
	FileHash     string `json:"file_hash,omitempty"`
	FileSize     uint64 `json:"file_size,omitempty"`
	MetadataHash string `json:"metadata_hash,omitempty"`
	MetadataSize uint64 `json:"metadata_size,omitempty"`
}

// PayloadInspection is the summary produced by Inspect, without loading
// the data blob.
type PayloadInspection struct {
	Header              Header             `json:"header"`
	BlockSize           uint32             `json:"block_size"`
	PartialUpdate       bool               `json:"partial_update"`
	SecurityPatchLevel  *string            `json:"security_patch_level"`
	Partitions          []PartitionSummary `json:"partitions"`
	TotalSize           uint64             `json:"total_size"`
	TotalSizeHuman      string             `json:"total_size_human"`
	FilePath            string             `json:"file_path"`
	Properties          *Properties        `json:"properties"`

	// manifest is retained so Extract can reuse a completed Inspect
	// without re-reading and re-decoding the manifest bytes (spec §9,
	// "manifest handle sharing between inspect and extract").
	manifest   *decodedManifest
	dataOffset int64
}

// ExtractedPartition describes one partition image written by Extract.
type ExtractedPartition struct {
	Name         string `json:"name"`
	BytesWritten uint64 `json:"size"`
	OutputPath   string `json:"path"`
}

// ExtractionResult is the summary produced by a successful Extract.
type ExtractionResult struct {
	Status    string                `json:"status"`
	Extracted []ExtractedPartition  `json:"extracted"`
}

// ProgressFunc is invoked synchronously on the extraction goroutine as
// each partition starts and finishes. percent is clamped to [0,100].
type ProgressFunc func(partitionName string, percent int, bytesDone, bytesTotal int64)
