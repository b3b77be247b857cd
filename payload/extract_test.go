package payload

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ulikunitz/xz"
)

const (
	opReplace   = 0
	opReplaceBZ = 1
	opReplaceXZ = 6
)

func TestExtractTwoPartitionsReplace(t *testing.T) {
	dataBlob := []byte("AAAABB")
	manifest := testManifest(4096,
		testPartition("a", 4, testOperation(opReplace, 0, 4)),
		testPartition("b", 2, testOperation(opReplace, 4, 2)),
	)
	path := writeTempPayload(t, testPayload(manifest, dataBlob))
	outDir := t.TempDir()

	type event struct {
		name              string
		percent           int
		processed, total  int64
	}
	var events []event
	progress := func(name string, percent int, processed, total int64) {
		events = append(events, event{name, percent, processed, total})
	}

	result, err := Extract(path, outDir, progress)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	aBytes, err := os.ReadFile(filepath.Join(outDir, "a.img"))
	if err != nil {
		t.Fatalf("read a.img: %v", err)
	}
	if string(aBytes) != "AAAA" {
		t.Errorf("a.img = %q, want %q", aBytes, "AAAA")
	}

	bBytes, err := os.ReadFile(filepath.Join(outDir, "b.img"))
	if err != nil {
		t.Fatalf("read b.img: %v", err)
	}
	if string(bBytes) != "BB" {
		t.Errorf("b.img = %q, want %q", bBytes, "BB")
	}

	if len(result.Extracted) != 2 {
		t.Fatalf("got %d extracted partitions, want 2", len(result.Extracted))
	}

	if len(events) != 4 {
		t.Fatalf("got %d progress events, want 4: %+v", len(events), events)
	}
	lastPercent := -1
	for _, e := range events {
		if e.percent < lastPercent {
			t.Errorf("percent went backwards: %+v", events)
		}
		if e.percent < 0 || e.percent > 100 {
			t.Errorf("percent out of range: %+v", e)
		}
		lastPercent = e.percent
	}
	if events[len(events)-1].percent != 100 {
		t.Errorf("final percent = %d, want 100", events[len(events)-1].percent)
	}
}

func TestExtractReplaceXZ(t *testing.T) {
	raw := bytes.Repeat([]byte("partition-image-bytes"), 50)

	var xzBuf bytes.Buffer
	xw, err := xz.NewWriter(&xzBuf)
	if err != nil {
		t.Fatalf("xz.NewWriter: %v", err)
	}
	if _, err := xw.Write(raw); err != nil {
		t.Fatalf("xz write: %v", err)
	}
	if err := xw.Close(); err != nil {
		t.Fatalf("xz close: %v", err)
	}

	dataBlob := xzBuf.Bytes()
	manifest := testManifest(4096,
		testPartition("system", uint64(len(raw)), testOperation(opReplaceXZ, 0, uint64(len(dataBlob)))),
	)
	path := writeTempPayload(t, testPayload(manifest, dataBlob))
	outDir := t.TempDir()

	_, err = Extract(path, outDir, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(outDir, "system.img"))
	if err != nil {
		t.Fatalf("read system.img: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("system.img round-trip mismatch")
	}
}

func TestExtractUnsupportedOperationWritesRaw(t *testing.T) {
	dataBlob := []byte("raw-unsupported-bytes")
	manifest := testManifest(4096,
		testPartition("vendor", uint64(len(dataBlob)), testOperation(4 /* SOURCE_COPY */, 0, uint64(len(dataBlob)))),
	)
	path := writeTempPayload(t, testPayload(manifest, dataBlob))
	outDir := t.TempDir()

	_, err := Extract(path, outDir, nil)
	if err != nil {
		t.Fatalf("Extract should not abort on unsupported op, got: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(outDir, "vendor.img"))
	if err != nil {
		t.Fatalf("read vendor.img: %v", err)
	}
	if !bytes.Equal(got, dataBlob) {
		t.Errorf("expected raw passthrough bytes, got %q", got)
	}
}

func TestExtractEmptyPartitionsList(t *testing.T) {
	manifest := testManifest(4096)
	path := writeTempPayload(t, testPayload(manifest, nil))
	outDir := t.TempDir()

	result, err := Extract(path, outDir, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Extracted) != 0 {
		t.Errorf("expected no extracted partitions, got %d", len(result.Extracted))
	}
}

func TestExtractUnsafePartitionNameRejected(t *testing.T) {
	manifest := testManifest(4096, testPartition("../escape", 0))
	path := writeTempPayload(t, testPayload(manifest, nil))
	outDir := t.TempDir()

	_, err := Extract(path, outDir, nil)
	assertKind(t, err, InvalidInput)
}

func TestExtractIdempotent(t *testing.T) {
	dataBlob := []byte("AAAABB")
	manifest := testManifest(4096,
		testPartition("a", 4, testOperation(opReplace, 0, 4)),
		testPartition("b", 2, testOperation(opReplace, 4, 2)),
	)
	path := writeTempPayload(t, testPayload(manifest, dataBlob))
	outDir := t.TempDir()

	if _, err := Extract(path, outDir, nil); err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(outDir, "a.img"))
	if err != nil {
		t.Fatalf("read a.img: %v", err)
	}

	if _, err := Extract(path, outDir, nil); err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(outDir, "a.img"))
	if err != nil {
		t.Fatalf("read a.img: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("extraction not idempotent: %q != %q", first, second)
	}
}

// REPLACE_BZ is not exercised end-to-end here the way REPLACE_XZ is:
// compress/bzip2 (stdlib) only implements decoding, so there is no
// local encoder to build a fixture with. internal/codec.DecodeBZ2 is
// unit-tested directly against its error paths; the wiring in
// extractPartition is identical in shape to the REPLACE_XZ case covered
// by TestExtractReplaceXZ.
