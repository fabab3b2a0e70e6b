// Package mp4editor parses an MP4/ISO-BMFF file's moov atom tree into an
// in-memory arena, mutates it to insert iTunes-style metadata, and renders
// the result back to disk by byte-range copy-through of everything it never
// touched (section 4.6). This is hand-rolled binary surgery on
// encoding/binary and bytes — no ISO-BMFF library appears anywhere in the
// reference pack — the same idiom the ancestor uses for its own hand-rolled
// FLAC metadata rewrite.
package mp4editor

import "github.com/nega0/pianobarfly/internal/constants"

// payloadKind distinguishes an atom whose payload still lives in the source
// file from one materialized into memory (section 9's lazy-payload note).
type payloadKind int

const (
	payloadInFile payloadKind = iota
	payloadInMemory
)

type payload struct {
	kind   payloadKind
	offset int64 // valid when kind == payloadInFile
	length int   // valid when kind == payloadInFile
	data   []byte
}

// atomNode is one box in the tree. Parent/children are arena indices, never
// pointers, so the structure can't become cyclic through a back-reference
// (section 9's adopted design note).
type atomNode struct {
	name     string
	size     uint32 // kept current: 8 + len(payload) + Σ children.size
	payload  payload
	parent   int // -1 for the moov root
	children []int
	attached bool // true once parsed from the file or linked under any parent, per append_data's restriction
}

const (
	fixedPayloadSTSD = 8
	fixedPayloadMP4A = 28
)

// classification of atom names encountered while parsing inside moov.
type atomClass int

const (
	classUnknown atomClass = iota
	classContainerOnly
	classPayloadOnly
	classMixed
)

// containerOnlyNames and payloadOnlyNames are exactly section 4.6's
// classification tables for atoms the parser may encounter while walking an
// existing moov. udta/meta/ilst/data (the iTunes metadata boxes this editor
// itself manufactures) are deliberately absent: this editor only ever reads
// a moov with no prior metadata tree and builds that tree fresh.
var containerOnlyNames = map[string]bool{
	constants.AtomDinf: true,
	"mdia":             true,
	"minf":             true,
	constants.AtomMoov: true,
	constants.AtomStbl: true,
	constants.AtomTrak: true,
}

var payloadOnlyNames = map[string]bool{
	"dref":             true,
	"esds":             true,
	constants.AtomHdlr: true,
	"iods":             true,
	"mdhd":             true,
	"mvhd":             true,
	"smhd":             true,
	constants.AtomStco: true,
	"stsc":             true,
	"stsz":             true,
	"stts":             true,
	"tkhd":             true,
}

func classify(name string) atomClass {
	if name == "stsd" || name == "mp4a" {
		return classMixed
	}
	if containerOnlyNames[name] {
		return classContainerOnly
	}
	if payloadOnlyNames[name] {
		return classPayloadOnly
	}
	return classUnknown
}

func fixedPayloadLen(name string) int {
	switch name {
	case "stsd":
		return fixedPayloadSTSD
	case "mp4a":
		return fixedPayloadMP4A
	}
	return 0
}
