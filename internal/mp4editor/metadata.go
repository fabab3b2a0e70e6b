package mp4editor

import (
	"encoding/binary"
	"strconv"

	"github.com/nega0/pianobarfly/internal/constants"
)

// AddArtist inserts a ©ART atom.
func (t *Tree) AddArtist(v string) error {
	return t.addMetadataAtom(constants.AtomArtist, constants.ClassUTF8, []byte(v))
}

// AddAlbum inserts a ©alb atom.
func (t *Tree) AddAlbum(v string) error {
	return t.addMetadataAtom(constants.AtomAlbum, constants.ClassUTF8, []byte(v))
}

// AddTitle inserts a ©nam atom.
func (t *Tree) AddTitle(v string) error {
	return t.addMetadataAtom(constants.AtomTitle, constants.ClassUTF8, []byte(v))
}

// AddYear inserts a ©day atom (decimal string), skipped when year is 0.
func (t *Tree) AddYear(year uint16) error {
	if year == 0 {
		return nil
	}
	return t.addMetadataAtom(constants.AtomYear, constants.ClassUTF8, []byte(strconv.Itoa(int(year))))
}

// AddTrack inserts a trkn atom (8-byte payload, value big-endian at offset
// 2), skipped when track is 0.
func (t *Tree) AddTrack(track uint16) error {
	if track == 0 {
		return nil
	}
	return t.addMetadataAtom(constants.AtomTrack, constants.ClassInt, trackDiscValue(track))
}

// AddDisc inserts a disk atom, skipped when disc is 0.
func (t *Tree) AddDisc(disc uint16) error {
	if disc == 0 {
		return nil
	}
	return t.addMetadataAtom(constants.AtomDisc, constants.ClassInt, trackDiscValue(disc))
}

// AddCover inserts a covr atom with the cover bytes verbatim, skipped when
// cover is empty.
func (t *Tree) AddCover(cover []byte) error {
	if len(cover) == 0 {
		return nil
	}
	return t.addMetadataAtom(constants.AtomCover, constants.ClassCover, cover)
}

func trackDiscValue(n uint16) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint16(buf[2:4], n)
	return buf
}

// addMetadataAtom lazily materializes moov→udta→meta→ilst, attaches a new
// named atom wrapping a data atom under ilst, and fixes up stco by the net
// number of bytes this whole operation added to moov (which, on the first
// call, includes the udta/meta/hdlr/ilst chain itself).
func (t *Tree) addMetadataAtom(name string, class [4]byte, value []byte) error {
	before := t.nodes[t.root].size

	ilstIdx, err := t.ensureIlst()
	if err != nil {
		return err
	}

	payloadBytes := make([]byte, 0, 8+len(value))
	payloadBytes = append(payloadBytes, class[:]...)
	payloadBytes = append(payloadBytes, 0, 0, 0, 0)
	payloadBytes = append(payloadBytes, value...)

	dataNode := &atomNode{
		name:    constants.AtomData,
		size:    uint32(8 + len(payloadBytes)),
		payload: payload{kind: payloadInMemory, data: payloadBytes},
	}
	wrap := &atomNode{name: name, size: 8}

	wrapIdx := t.addNode(wrap)
	dataIdx := t.addNode(dataNode)
	t.addChild(wrapIdx, dataIdx)
	t.addChild(ilstIdx, wrapIdx)

	after := t.nodes[t.root].size
	return t.fixupStco(after - before)
}

// ensureIlst lazily builds moov → udta → meta → ilst (with hdlr as meta's
// other child), creating only the boxes that don't already exist, and
// returns the ilst index. No stco fixup happens here; the caller computes
// one net delta covering the whole operation.
func (t *Tree) ensureIlst() (int, error) {
	udtaIdx := t.findChild(t.root, constants.AtomUdta)
	if udtaIdx == -1 {
		var err error
		udtaIdx, err = t.addToTag("", &atomNode{name: constants.AtomUdta, size: 8}, false)
		if err != nil {
			return -1, err
		}
	}

	metaIdx := t.findChild(udtaIdx, constants.AtomMeta)
	if metaIdx != -1 {
		ilstIdx := t.findChild(metaIdx, constants.AtomIlst)
		if ilstIdx != -1 {
			return ilstIdx, nil
		}
	} else {
		meta := &atomNode{
			name:    constants.AtomMeta,
			size:    8 + 4, // header plus the fixed 4-byte version/flags payload
			payload: payload{kind: payloadInMemory, data: []byte{0, 0, 0, 0}},
		}
		var err error
		metaIdx, err = t.addToTag(constants.AtomUdta, meta, false)
		if err != nil {
			return -1, err
		}
	}

	hdlrPayload := append([]byte(nil), constants.MetaHdlrPayload...)
	hdlr := &atomNode{
		name:    constants.AtomHdlr,
		size:    uint32(8 + len(hdlrPayload)),
		payload: payload{kind: payloadInMemory, data: hdlrPayload},
	}
	if _, err := t.addToTag(constants.AtomUdta+"."+constants.AtomMeta, hdlr, false); err != nil {
		return -1, err
	}

	ilst := &atomNode{name: constants.AtomIlst, size: 8}
	return t.addToTag(constants.AtomUdta+"."+constants.AtomMeta, ilst, false)
}
