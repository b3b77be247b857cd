// Package codec wraps the streaming decompressors used to materialize a
// single install-operation's data segment. Both entry points are pure:
// given the compressed bytes of one operation, they return the decoded
// bytes or a descriptive error. Neither buffers more than one operation's
// worth of data, keeping peak heap independent of partition size.
package codec

import (
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// Kind identifies which decompressor produced a Failure.
type Kind int

const (
	XZ Kind = iota
	BZ2
)

func (k Kind) String() string {
	switch k {
	case XZ:
		return "xz"
	case BZ2:
		return "bz2"
	default:
		return "unknown"
	}
}

// Failure reports a truncated, malformed, or checksum-invalid stream for
// one operation's data segment.
type Failure struct {
	Kind   Kind
	Detail string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s decompression failed: %s", f.Kind, f.Detail)
}

// DecodeXZ decodes a single XZ-compressed operation payload in full.
func DecodeXZ(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &Failure{Kind: XZ, Detail: err.Error()}
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, &Failure{Kind: XZ, Detail: err.Error()}
	}
	return out, nil
}

// DecodeBZ2 decodes a single bzip2-compressed operation payload in full.
// compress/bzip2 only implements decoding, which is all this format
// needs: operation payloads are produced by update_engine, never by us.
func DecodeBZ2(data []byte) ([]byte, error) {
	r := bzip2.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, &Failure{Kind: BZ2, Detail: err.Error()}
	}
	return out, nil
}
