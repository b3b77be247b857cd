package payload

import (
	"fmt"
	"io"
	"os"

	"github.com/Gustyx-Power/PayloadPack/internal/container"
)

// Inspect opens path, validates and decodes its header and manifest, and
// returns a summary without reading the data blob (spec §4.2). path may
// name a bare payload.bin or a zip-wrapped OTA package containing one.
func Inspect(path string) (*PayloadInspection, error) {
	if path == "" {
		return nil, newError(EmptyPath, "Path is empty")
	}

	info, statErr := os.Stat(path)
	switch {
	case statErr != nil && os.IsNotExist(statErr):
		return nil, newError(FileNotFound, "file does not exist: %s", path)
	case statErr != nil && os.IsPermission(statErr):
		return nil, newError(PermissionDenied, "permission denied: %s", path)
	case statErr != nil:
		return nil, wrapError(Io, statErr, "failed to stat %s: %v", path, statErr)
	case info.IsDir():
		return nil, newError(FileNotFound, "path is not a file: %s", path)
	}

	r, err := container.Open(path)
	if err != nil {
		return nil, classifyOpenError(err, path)
	}
	defer r.Close()

	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, wrapError(Io, err, "failed to determine payload size: %v", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, wrapError(Io, err, "failed to rewind payload: %v", err)
	}

	dm, err := readHeaderAndManifest(r, size)
	if err != nil {
		return nil, err
	}

	partitions, total := summarize(dm.manifest)

	var spl *string
	if dm.manifest.HasSecurityPatchLevel {
		v := dm.manifest.SecurityPatchLevel
		spl = &v
	}

	blockSize := uint32(4096)
	if dm.manifest.HasBlockSize {
		blockSize = dm.manifest.BlockSize
	}

	return &PayloadInspection{
		Header:             dm.header,
		BlockSize:          blockSize,
		PartialUpdate:      dm.manifest.HasPartialUpdate && dm.manifest.PartialUpdate,
		SecurityPatchLevel: spl,
		Partitions:         partitions,
		TotalSize:          total,
		TotalSizeHuman:     humanBytes(total),
		FilePath:           path,
		Properties:         ReadProperties(path),
		manifest:           dm,
		dataOffset:         dm.dataBlobOffset(),
	}, nil
}

func classifyOpenError(err error, path string) *Error {
	if os.IsNotExist(err) {
		return newError(FileNotFound, "file does not exist: %s", path)
	}
	if os.IsPermission(err) {
		return newError(PermissionDenied, "permission denied: %s", path)
	}
	return asError(err, fmt.Sprintf("failed to open %s", path))
}
