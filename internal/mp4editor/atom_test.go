package mp4editor

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func atomBytes(name string, payload []byte) []byte {
	size := 8 + len(payload)
	buf := make([]byte, 0, size)
	buf = append(buf, u32(uint32(size))...)
	buf = append(buf, []byte(name)...)
	buf = append(buf, payload...)
	return buf
}

func containerBytes(name string, children ...[]byte) []byte {
	var payload []byte
	for _, c := range children {
		payload = append(payload, c...)
	}
	return atomBytes(name, payload)
}

func writeTempMP4(t *testing.T, parts ...[]byte) string {
	t.Helper()
	var all []byte
	for _, p := range parts {
		all = append(all, p...)
	}
	path := filepath.Join(t.TempDir(), "in.m4a")
	if err := os.WriteFile(path, all, 0644); err != nil {
		t.Fatalf("writeTempMP4: %v", err)
	}
	return path
}

func TestOpen_RejectsNonFtypFirst(t *testing.T) {
	path := writeTempMP4(t, atomBytes("nope", make([]byte, 8)), containerBytes("moov"))
	_, err := Open(path)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Open() error = %v, want *ParseError", err)
	}
}

func TestOpen_RejectsNonMoovSecond(t *testing.T) {
	path := writeTempMP4(t, atomBytes("ftyp", make([]byte, 8)), containerBytes("nope2"))
	_, err := Open(path)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Open() error = %v, want *ParseError", err)
	}
}

func TestOpen_DetectsCo64(t *testing.T) {
	co64 := atomBytes("co64", append(u32(0), u32(0)...))
	moov := containerBytes("moov", co64)
	path := writeTempMP4(t, atomBytes("ftyp", make([]byte, 8)), moov)

	_, err := Open(path)
	var mce *MalformedContainerError
	if !errors.As(err, &mce) {
		t.Fatalf("Open() error = %v, want *MalformedContainerError", err)
	}
}

func TestOpen_RejectsUnknownAtomInsideMoov(t *testing.T) {
	weird := atomBytes("xxxx", []byte("hi"))
	moov := containerBytes("moov", weird)
	path := writeTempMP4(t, atomBytes("ftyp", make([]byte, 8)), moov)

	_, err := Open(path)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Open() error = %v, want *ParseError", err)
	}
}

func TestOpen_ParsesNestedContainers(t *testing.T) {
	stco := atomBytes("stco", append(u32(0), u32(0)...))
	stbl := containerBytes("stbl", stco)
	minf := containerBytes("minf", stbl)
	mdia := containerBytes("mdia", minf)
	trak := containerBytes("trak", mdia)
	moov := containerBytes("moov", trak)
	path := writeTempMP4(t, atomBytes("ftyp", make([]byte, 8)), moov)

	tree, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer tree.Close()

	if idx := tree.findDescendant(tree.root, "stco"); idx == -1 {
		t.Error("expected to find nested stco atom")
	}
}

func checkSizeInvariant(t *testing.T, tree *Tree, idx int) {
	t.Helper()
	node := tree.nodes[idx]

	var payloadLen int
	if node.payload.kind == payloadInMemory {
		payloadLen = len(node.payload.data)
	} else {
		payloadLen = node.payload.length
	}

	var childrenSize uint32
	for _, c := range node.children {
		childrenSize += tree.nodes[c].size
		checkSizeInvariant(t, tree, c)
	}

	want := uint32(8+payloadLen) + childrenSize
	if node.size != want {
		t.Errorf("atom %s: size = %d, want %d (8 + %d payload + %d children)", node.name, node.size, want, payloadLen, childrenSize)
	}
}
