package mp4editor

import (
	"encoding/binary"
	"fmt"

	"github.com/nega0/pianobarfly/internal/constants"
)

// appendData extends an atom's payload, updating its size and propagating
// the delta up the ancestor chain. Forbidden on atoms already attached under
// the tree, per section 4.6: the offsets-update step can't see growth that
// happens after an atom has already been linked in.
func (t *Tree) appendData(idx int, data []byte) error {
	node := t.nodes[idx]
	if node.attached {
		return fmt.Errorf("mp4editor: append_data on already-attached atom %s", node.name)
	}
	if err := t.materialize(idx); err != nil {
		return err
	}
	node.payload.data = append(node.payload.data, data...)
	t.bumpSize(idx, uint32(len(data)))
	return nil
}

// bumpSize adds delta to node idx's size and every ancestor's size.
func (t *Tree) bumpSize(idx int, delta uint32) {
	for p := idx; p != -1; p = t.nodes[p].parent {
		t.nodes[p].size += delta
	}
}

// addChild appends child to parent's children list and propagates child's
// full size up the ancestor chain; ownership of child transfers to parent.
func (t *Tree) addChild(parentIdx, childIdx int) {
	child := t.nodes[childIdx]
	child.parent = parentIdx
	child.attached = true
	t.nodes[parentIdx].children = append(t.nodes[parentIdx].children, childIdx)
	t.bumpSize(parentIdx, child.size)
}

// addNode registers a freshly built, not-yet-attached node and returns its
// index.
func (t *Tree) addNode(n *atomNode) int {
	n.parent = -1
	idx := len(t.nodes)
	t.nodes = append(t.nodes, n)
	return idx
}

// findChild returns the index of parent's child named name, or -1.
func (t *Tree) findChild(parentIdx int, name string) int {
	for _, c := range t.nodes[parentIdx].children {
		if t.nodes[c].name == name {
			return c
		}
	}
	return -1
}

// findDescendant searches the subtree rooted at idx (inclusive) for the
// first atom named name, depth-first.
func (t *Tree) findDescendant(idx int, name string) int {
	if t.nodes[idx].name == name {
		return idx
	}
	for _, c := range t.nodes[idx].children {
		if found := t.findDescendant(c, name); found != -1 {
			return found
		}
	}
	return -1
}

// fixupStco adds delta to every 32-bit entry of the first stco chunk-offset
// table found in a depth-first walk of moov (in a normal file,
// moov.trak.mdia.minf.stbl.stco), if one is present, per section 4.6's
// add_to_tag update_offsets behavior. Only that one table is shifted; stco
// tables of later tracks are left as they are.
func (t *Tree) fixupStco(delta uint32) error {
	if delta == 0 {
		return nil
	}
	stco := t.findDescendant(t.root, constants.AtomStco)
	if stco == -1 {
		return nil
	}
	if err := t.materialize(stco); err != nil {
		return err
	}
	data := t.nodes[stco].payload.data
	if len(data) < 8 {
		return fmt.Errorf("mp4editor: stco payload too short (%d bytes)", len(data))
	}
	count := binary.BigEndian.Uint32(data[4:8])
	for i := uint32(0); i < count; i++ {
		off := 8 + int(i)*4
		if off+4 > len(data) {
			return fmt.Errorf("mp4editor: stco entry %d out of range", i)
		}
		v := binary.BigEndian.Uint32(data[off : off+4])
		binary.BigEndian.PutUint32(data[off:off+4], v+delta)
	}
	return nil
}

// addToTag attaches node under the atom reached by following dotted path
// from moov (empty path ⇒ moov itself), and, if updateOffsets is true, fixes
// up the stco table by node's size — the net number of bytes this insertion
// adds immediately before the media-data box.
func (t *Tree) addToTag(parentPath string, node *atomNode, updateOffsets bool) (int, error) {
	parentIdx := t.root
	if parentPath != "" {
		for _, seg := range splitPath(parentPath) {
			next := t.findChild(parentIdx, seg)
			if next == -1 {
				return -1, fmt.Errorf("mp4editor: add_to_tag: path segment %q not found", seg)
			}
			parentIdx = next
		}
	}

	idx := t.addNode(node)
	t.addChild(parentIdx, idx)

	if updateOffsets {
		if err := t.fixupStco(node.size); err != nil {
			return -1, err
		}
	}
	return idx, nil
}

func splitPath(path string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segs = append(segs, path[start:i])
			start = i + 1
		}
	}
	segs = append(segs, path[start:])
	return segs
}
