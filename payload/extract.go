package payload

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gustyx-Power/PayloadPack/internal/chromeosupdateengine"
	"github.com/Gustyx-Power/PayloadPack/internal/codec"
	"github.com/Gustyx-Power/PayloadPack/internal/container"
)

// Extract drives per-partition extraction of payloadPath into
// outputDir, writing one <partition>.img per manifest partition in
// declared order (spec §4.3). progress may be nil. The manifest is
// re-read from payloadPath; callers that already hold a
// *PayloadInspection from Inspect can avoid the re-read with
// ExtractInspected.
func Extract(payloadPath, outputDir string, progress ProgressFunc) (*ExtractionResult, error) {
	inspection, err := Inspect(payloadPath)
	if err != nil {
		return nil, err
	}
	return ExtractInspected(payloadPath, inspection, outputDir, progress)
}

// ExtractInspected performs extraction reusing a manifest handle already
// produced by Inspect, avoiding a second read+decode of the manifest
// bytes (spec §9).
func ExtractInspected(payloadPath string, inspection *PayloadInspection, outputDir string, progress ProgressFunc) (*ExtractionResult, error) {
	if inspection == nil || inspection.manifest == nil {
		return nil, newError(InvalidInput, "extract requires a completed inspection")
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, wrapError(Io, err, "create output dir %s: %v", outputDir, err)
	}

	r, err := container.Open(payloadPath)
	if err != nil {
		return nil, classifyOpenError(err, payloadPath)
	}
	defer r.Close()

	dataOffset := inspection.dataOffset
	manifest := inspection.manifest.manifest

	var totalBytes int64
	for _, p := range manifest.Partitions {
		if p.NewPartitionInfo != nil {
			totalBytes += int64(p.NewPartitionInfo.Size)
		}
	}

	result := &ExtractionResult{Status: "success", Extracted: make([]ExtractedPartition, 0, len(manifest.Partitions))}
	var processed int64
	seen := make(map[string]bool, len(manifest.Partitions))

	for _, partition := range manifest.Partitions {
		name := partition.PartitionName
		if err := validatePartitionName(name); err != nil {
			return nil, err
		}
		if seen[name] {
			Logger.Printf("partition %q appears more than once in manifest, overwriting previous output", name)
		}
		seen[name] = true

		var partitionSize int64
		if partition.NewPartitionInfo != nil {
			partitionSize = int64(partition.NewPartitionInfo.Size)
		}

		emitProgress(progress, name, processed, totalBytes)

		outPath := filepath.Join(outputDir, name+".img")
		written, err := extractPartition(r, dataOffset, partition, outPath)
		if err != nil {
			return nil, err
		}

		processed += partitionSize
		emitProgress(progress, name, processed, totalBytes)

		result.Extracted = append(result.Extracted, ExtractedPartition{
			Name:         name,
			BytesWritten: written,
			OutputPath:   outPath,
		})
	}

	return result, nil
}

// ExtractPartition extracts a single named partition from payloadPath
// using an already-completed inspection, through its own independent
// container handle. It is the primitive the CLI's bounded worker pool
// fans out over when the caller selects several partitions explicitly:
// each call is itself a complete, single-threaded extraction run over a
// disjoint output file (spec §5, "two concurrent runs over disjoint
// files are independent and safe").
func ExtractPartition(payloadPath string, inspection *PayloadInspection, partitionName, outputDir string) (*ExtractedPartition, error) {
	if inspection == nil || inspection.manifest == nil {
		return nil, newError(InvalidInput, "extract requires a completed inspection")
	}
	if err := validatePartitionName(partitionName); err != nil {
		return nil, err
	}

	var target *chromeosupdateengine.PartitionUpdate
	for _, p := range inspection.manifest.manifest.Partitions {
		if p.PartitionName == partitionName {
			target = p
			break
		}
	}
	if target == nil {
		return nil, newError(InvalidInput, "partition %q not found in manifest", partitionName)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, wrapError(Io, err, "create output dir %s: %v", outputDir, err)
	}

	r, err := container.Open(payloadPath)
	if err != nil {
		return nil, classifyOpenError(err, payloadPath)
	}
	defer r.Close()

	outPath := filepath.Join(outputDir, partitionName+".img")
	written, err := extractPartition(r, inspection.dataOffset, target, outPath)
	if err != nil {
		return nil, err
	}

	return &ExtractedPartition{Name: partitionName, BytesWritten: written, OutputPath: outPath}, nil
}

func emitProgress(progress ProgressFunc, name string, processed, total int64) {
	if progress == nil {
		return
	}
	percent := 0
	if total > 0 {
		percent = int(processed * 100 / total)
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	progress(name, percent, processed, total)
}

// validatePartitionName rejects any name that would let a crafted
// manifest escape outputDir via a path separator or parent-directory
// component (spec §4.3 edge cases, §9 "path safety").
func validatePartitionName(name string) *Error {
	if name == "" {
		return newError(InvalidInput, "partition name is empty")
	}
	if filepath.Base(name) != name || strings.Contains(name, "..") {
		return newError(InvalidInput, "unsafe partition name: %q", name)
	}
	return nil
}

// extractPartition applies every install operation for one partition in
// declared order, appending each operation's decoded bytes to the output
// file (spec §4.3 step 4). The minimal data-segment-stream-is-append-only
// model specified there matches every full-image operation type.
func extractPartition(r io.ReadSeeker, dataOffset int64, partition *chromeosupdateengine.PartitionUpdate, outPath string) (uint64, error) {
	f, err := os.Create(outPath)
	if err != nil {
		return 0, wrapError(Io, err, "create output file for partition %q: %v", partition.PartitionName, err)
	}

	w := bufio.NewWriter(f)
	var written uint64

	for i, op := range partition.Operations {
		if op.DataLength == 0 {
			continue
		}

		if _, err := r.Seek(dataOffset+int64(op.DataOffset), io.SeekStart); err != nil {
			f.Close()
			return 0, wrapError(Io, err, "seek data segment for partition %q operation %d: %v", partition.PartitionName, i, err)
		}

		buf := make([]byte, op.DataLength)
		if _, err := io.ReadFull(r, buf); err != nil {
			f.Close()
			return 0, wrapError(Io, err, "read data segment for partition %q operation %d: %v", partition.PartitionName, i, err)
		}

		var decoded []byte
		switch op.Type {
		case chromeosupdateengine.InstallOperation_REPLACE:
			decoded = buf
		case chromeosupdateengine.InstallOperation_REPLACE_BZ:
			decoded, err = codec.DecodeBZ2(buf)
		case chromeosupdateengine.InstallOperation_REPLACE_XZ:
			decoded, err = codec.DecodeXZ(buf)
		default:
			Logger.Printf("partition %q operation %d: unsupported operation type %s, writing raw bytes", partition.PartitionName, i, op.Type)
			decoded = buf
		}
		if err != nil {
			f.Close()
			return 0, wrapError(CodecFailure, err, "decompress partition %q operation %d: %v", partition.PartitionName, i, err)
		}

		n, err := w.Write(decoded)
		if err != nil {
			f.Close()
			return 0, wrapError(Io, err, "write partition %q: %v", partition.PartitionName, err)
		}
		written += uint64(n)
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return 0, wrapError(Io, err, "flush partition %q: %v", partition.PartitionName, err)
	}
	if err := f.Close(); err != nil {
		return 0, wrapError(Io, err, "close partition %q: %v", partition.PartitionName, err)
	}

	return written, nil
}
