// Package container locates the payload.bin stream to decode, whether it
// is a bare file or embedded in an OTA zip package. A/B OTA updates are
// distributed as a zip archive with payload.bin as one (usually
// uncompressed, "stored") member; this package generalizes the seekable
// zip member reader so payload.Inspect and payload.Extract never need to
// know which shape the input file had.
package container

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const payloadMember = "payload.bin"

var zipMagic = []byte("PK\x03\x04")

// Open resolves path to a seekable, closable stream positioned at the
// start of the payload: the file itself if it is a bare payload, or its
// payload.bin member if it is a zip-wrapped OTA package. The caller owns
// the returned stream and must Close it.
func Open(path string) (io.ReadSeekCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	sniff := make([]byte, 4)
	n, err := io.ReadFull(f, sniff)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		f.Close()
		return nil, err
	}
	if _, serr := f.Seek(0, io.SeekStart); serr != nil {
		f.Close()
		return nil, serr
	}

	if n == 4 && bytes.Equal(sniff, zipMagic) {
		zr, err := newZipMemberReader(f, payloadMember)
		if err != nil {
			f.Close()
			return nil, err
		}
		return zr, nil
	}

	return f, nil
}

// zipMemberReader exposes one zip archive member as an io.ReadSeekCloser:
// stored (uncompressed) members are served by direct ReaderAt seeks into
// the archive; deflated members fall back to re-opening the member's
// decompressing stream and discarding up to the requested offset, since
// flate streams cannot seek backward.
type zipMemberReader struct {
	backing io.Closer
	ra      io.ReaderAt
	zf      *zip.File

	pos int64

	stream      io.ReadCloser
	streamStart int64
	streamPos   int64

	dataOffset int64
}

func newZipMemberReader(f *os.File, suffix string) (*zipMemberReader, error) {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(f, size)
	if err != nil {
		return nil, fmt.Errorf("not a valid zip archive: %w", err)
	}

	var member *zip.File
	for _, zf := range zr.File {
		if strings.HasSuffix(zf.Name, suffix) {
			member = zf
			break
		}
	}
	if member == nil {
		return nil, fmt.Errorf("could not find %s in zip archive", suffix)
	}

	r := &zipMemberReader{backing: f, ra: f, zf: member}
	if member.Method == zip.Store {
		off, err := member.DataOffset()
		if err != nil {
			return nil, fmt.Errorf("could not locate %s data offset: %w", suffix, err)
		}
		r.dataOffset = off
	}

	return r, nil
}

func (r *zipMemberReader) size() int64 {
	return int64(r.zf.UncompressedSize64)
}

func (r *zipMemberReader) Read(p []byte) (int, error) {
	if r.pos >= r.size() {
		return 0, io.EOF
	}

	if r.zf.Method == zip.Store {
		if remaining := r.size() - r.pos; int64(len(p)) > remaining {
			p = p[:remaining]
		}
		n, err := r.ra.ReadAt(p, r.dataOffset+r.pos)
		r.pos += int64(n)
		return n, err
	}

	if r.stream == nil || r.streamStart+r.streamPos != r.pos {
		if r.stream != nil {
			r.stream.Close()
			r.stream = nil
		}
		stream, err := r.zf.Open()
		if err != nil {
			return 0, err
		}
		if _, err := io.CopyN(io.Discard, stream, r.pos); err != nil {
			stream.Close()
			return 0, fmt.Errorf("seeking compressed member: %w", err)
		}
		r.stream = stream
		r.streamStart = r.pos
		r.streamPos = 0
	}

	n, err := r.stream.Read(p)
	r.streamPos += int64(n)
	r.pos += int64(n)
	return n, err
}

func (r *zipMemberReader) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.pos + offset
	case io.SeekEnd:
		target = r.size() + offset
	default:
		return 0, errors.New("container: unsupported whence")
	}
	if target < 0 {
		return 0, errors.New("container: negative seek position")
	}
	r.pos = target
	return r.pos, nil
}

func (r *zipMemberReader) Close() error {
	var err error
	if r.stream != nil {
		err = r.stream.Close()
	}
	if cerr := r.backing.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
