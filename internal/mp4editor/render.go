package mp4editor

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/nega0/pianobarfly/internal/atomicfile"
)

// Save rewrites the source file: bytes [0, moov.offset) verbatim, the
// rebuilt moov tree, then bytes [moov.offset+original moov size, EOF)
// verbatim, via a temp file renamed over the source (section 4.6's
// render algorithm). Any failure leaves the source untouched.
func (t *Tree) Save() error {
	return atomicfile.Replace(t.path, func(tmp *os.File) error {
		if _, err := t.src.Seek(0, io.SeekStart); err != nil {
			return err
		}
		if _, err := io.CopyN(tmp, t.src, t.moovOffset); err != nil {
			return fmt.Errorf("mp4editor: copy pre-moov bytes: %w", err)
		}

		if _, err := renderNode(tmp, t, t.root); err != nil {
			return fmt.Errorf("mp4editor: render moov: %w", err)
		}

		tailStart := t.moovOffset + int64(t.moovOriginalSize)
		if _, err := t.src.Seek(tailStart, io.SeekStart); err != nil {
			return fmt.Errorf("mp4editor: seek to tail: %w", err)
		}
		if _, err := io.Copy(tmp, t.src); err != nil {
			return fmt.Errorf("mp4editor: copy tail bytes: %w", err)
		}
		return nil
	})
}

// renderNode writes idx's header, payload, and children (recursively) to w
// and returns the number of bytes written.
func renderNode(w io.Writer, t *Tree, idx int) (int, error) {
	node := t.nodes[idx]

	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], node.size)
	copy(hdr[4:8], node.name)
	n, err := w.Write(hdr[:])
	if err != nil {
		return n, err
	}
	written := n

	switch node.payload.kind {
	case payloadInMemory:
		pn, err := w.Write(node.payload.data)
		written += pn
		if err != nil {
			return written, err
		}
	case payloadInFile:
		if node.payload.length > 0 {
			cn, err := io.Copy(w, io.NewSectionReader(t.src, node.payload.offset, int64(node.payload.length)))
			written += int(cn)
			if err != nil {
				return written, err
			}
		}
	}

	for _, c := range node.children {
		cn, err := renderNode(w, t, c)
		written += cn
		if err != nil {
			return written, err
		}
	}

	return written, nil
}
