package mp4editor

import "fmt"

// MalformedContainerError reports an MP4 container feature this editor
// refuses to touch rather than silently mis-rewrite — specifically a co64
// (64-bit chunk offset) box, per section 9's decided open question.
type MalformedContainerError struct {
	Atom string
}

func (e *MalformedContainerError) Error() string {
	return fmt.Sprintf("mp4editor: malformed container: refusing to rewrite %q (64-bit offsets unsupported)", e.Atom)
}

// ParseError reports an atom layout the parser does not recognize: an
// unexpected top-level atom, or an atom name inside moov that isn't in the
// container-only/payload-only/mixed classification tables.
type ParseError struct {
	Atom   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("mp4editor: parse error at atom %q: %s", e.Atom, e.Reason)
}
