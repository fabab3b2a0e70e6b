package mp4editor

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/nega0/pianobarfly/internal/constants"
)

// Tree is a parsed moov atom tree plus enough bookkeeping to render it back
// into the source file with everything outside moov copied byte-for-byte.
type Tree struct {
	nodes []*atomNode
	root  int // index of the moov node

	src              *os.File
	path             string
	moovOffset       int64
	moovOriginalSize uint32
}

// Open parses the two top-level atoms section 4.6 requires: ftyp followed
// immediately by moov. Any other layout is a ParseError. The returned Tree
// keeps src open for lazy payload reads until Close.
func Open(path string) (*Tree, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mp4editor: open %s: %w", path, err)
	}

	ftypSize, ftypName, err := readHeaderAt(src, 0)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("mp4editor: read first atom: %w", err)
	}
	if ftypName != constants.AtomFtyp {
		src.Close()
		return nil, &ParseError{Atom: ftypName, Reason: "expected ftyp as the first top-level atom"}
	}

	moovOffset := int64(ftypSize)
	moovSize, moovName, err := readHeaderAt(src, moovOffset)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("mp4editor: read second atom: %w", err)
	}
	if moovName != constants.AtomMoov {
		src.Close()
		return nil, &ParseError{Atom: moovName, Reason: "expected moov as the second top-level atom"}
	}

	t := &Tree{
		src:              src,
		path:             path,
		moovOffset:       moovOffset,
		moovOriginalSize: moovSize,
	}

	root := &atomNode{name: constants.AtomMoov, size: moovSize, parent: -1, attached: true}
	t.nodes = append(t.nodes, root)
	t.root = 0

	if err := t.parseChildren(t.root, moovOffset+8, moovOffset+int64(moovSize)); err != nil {
		src.Close()
		return nil, err
	}

	return t, nil
}

// Close releases the source file handle.
func (t *Tree) Close() error {
	return t.src.Close()
}

func readHeaderAt(f *os.File, offset int64) (size uint32, name string, err error) {
	var hdr [8]byte
	if _, err := f.ReadAt(hdr[:], offset); err != nil {
		return 0, "", err
	}
	return binary.BigEndian.Uint32(hdr[0:4]), string(hdr[4:8]), nil
}

// parseChildren walks [start, end) inside the file, appending each atom it
// finds as a child of parent.
func (t *Tree) parseChildren(parent int, start, end int64) error {
	cur := start
	for cur < end {
		size, name, err := readHeaderAt(t.src, cur)
		if err != nil {
			return fmt.Errorf("mp4editor: read atom header at %d: %w", cur, err)
		}
		if name == constants.AtomCo64 {
			return &MalformedContainerError{Atom: name}
		}

		node := &atomNode{name: name, size: size, parent: parent, attached: true}
		idx := len(t.nodes)
		t.nodes = append(t.nodes, node)
		t.nodes[parent].children = append(t.nodes[parent].children, idx)

		payloadStart := cur + 8
		payloadEnd := cur + int64(size)

		switch classify(name) {
		case classContainerOnly:
			node.payload = payload{kind: payloadInFile, offset: payloadStart, length: 0}
			if err := t.parseChildren(idx, payloadStart, payloadEnd); err != nil {
				return err
			}
		case classPayloadOnly:
			node.payload = payload{kind: payloadInFile, offset: payloadStart, length: int(size - 8)}
		case classMixed:
			fixed := fixedPayloadLen(name)
			node.payload = payload{kind: payloadInFile, offset: payloadStart, length: fixed}
			if err := t.parseChildren(idx, payloadStart+int64(fixed), payloadEnd); err != nil {
				return err
			}
		default:
			return &ParseError{Atom: name, Reason: "unrecognized atom inside moov"}
		}

		cur = payloadEnd
	}
	return nil
}

// materialize reads an InFile payload into memory, a no-op if it already is.
func (t *Tree) materialize(idx int) error {
	node := t.nodes[idx]
	if node.payload.kind == payloadInMemory {
		return nil
	}
	buf := make([]byte, node.payload.length)
	if node.payload.length > 0 {
		if _, err := t.src.ReadAt(buf, node.payload.offset); err != nil {
			return fmt.Errorf("mp4editor: materialize %s payload: %w", node.name, err)
		}
	}
	node.payload = payload{kind: payloadInMemory, data: buf}
	return nil
}
