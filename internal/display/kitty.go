package display

import (
	"encoding/base64"
	"fmt"
	"io"
)

const (
	escapeStart = "\x1b_G"
	escapeEnd   = "\x1b\\"
	chunkSize   = 4096
)

// KittyEncoder writes PNG data using the kitty graphics protocol.
type KittyEncoder struct {
	out     io.Writer
	columns int
}

func NewKittyEncoder(out io.Writer) *KittyEncoder {
	return &KittyEncoder{out: out}
}

// WithColumns limits the displayed width to n terminal cells; 0 means the
// image's natural size.
func (e *KittyEncoder) WithColumns(n int) *KittyEncoder {
	e.columns = n
	return e
}

func (e *KittyEncoder) Encode(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	chunks := splitIntoChunks(encoded, chunkSize)
	control := e.control()

	if len(chunks) == 1 {
		_, err := fmt.Fprintf(e.out, "%s%s;%s%s", escapeStart, control, chunks[0], escapeEnd)
		return err
	}

	for i, chunk := range chunks {
		var params string
		switch i {
		case 0:
			params = control + ",m=1"
		case len(chunks) - 1:
			params = "m=0"
		default:
			params = "m=1"
		}

		if _, err := fmt.Fprintf(e.out, "%s%s;%s%s", escapeStart, params, chunk, escapeEnd); err != nil {
			return err
		}
	}

	return nil
}

func (e *KittyEncoder) control() string {
	if e.columns > 0 {
		return fmt.Sprintf("a=T,f=100,q=2,c=%d", e.columns)
	}
	return "a=T,f=100,q=2"
}

func splitIntoChunks(s string, size int) []string {
	var chunks []string
	for len(s) > 0 {
		if len(s) < size {
			size = len(s)
		}
		chunks = append(chunks, s[:size])
		s = s[size:]
	}
	return chunks
}
