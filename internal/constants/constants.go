// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultRecordingRoot    = "recordings"
	DefaultFileNameTemplate = "%artist/%album/%02track-%title"
	DefaultHTTPTimeout      = 30 * time.Second
	DefaultRetryCount       = 3
	DefaultRetryBase        = 1 * time.Second
	DefaultMinRequestGap    = 200 * time.Millisecond
)

// Container formats (section 3's closed enum).
const (
	FormatMP3   = "MP3"
	FormatMP3Hi = "MP3_HI"
	FormatAAC   = "AAC"
)

// File Extensions
const (
	ExtMP3 = ".mp3"
	ExtM4A = ".m4a"
)

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0664
)

// ID3v2 frame IDs, in the order section 4.5 requires them written.
const (
	FrameArtist  = "TPE1"
	FrameAlbum   = "TALB"
	FrameTitle   = "TIT2"
	FrameYear    = "TYER"
	FrameTrack   = "TRCK"
	FrameDisc    = "TPOS"
	FramePicture = "APIC"
)

// APIC picture type: front cover (ID3v2.4 section 4.14).
const APICFrontCover = byte(3)

// Magic bytes used to sniff cover-art MIME type.
var (
	MagicJPEG = []byte{0xFF, 0xD8}
	MagicPNG  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
)

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

// MP4 atom names touched by the metadata editor.
const (
	AtomFtyp = "ftyp"
	AtomMoov = "moov"
	AtomUdta = "udta"
	AtomMeta = "meta"
	AtomHdlr = "hdlr"
	AtomIlst = "ilst"
	AtomData = "data"
	AtomStbl = "stbl"
	AtomStco = "stco"
	AtomCo64 = "co64"
	AtomTrak = "trak"
	AtomMdia = "mdia"
	AtomMinf = "minf"
	AtomDinf = "dinf"

	AtomAlbum  = "\xa9alb"
	AtomArtist = "\xa9ART"
	AtomTitle  = "\xa9nam"
	AtomYear   = "\xa9day"
	AtomTrack  = "trkn"
	AtomDisc   = "disk"
	AtomCover  = "covr"
)

// MetaHdlrPayload is the meta box's hdlr sibling payload: 8 zero bytes, the
// literal "mdirappl", then 9 zero bytes (section 4.6).
var MetaHdlrPayload = buildMetaHdlrPayload()

func buildMetaHdlrPayload() []byte {
	b := make([]byte, 0, 25)
	b = append(b, 0, 0, 0, 0, 0, 0, 0, 0)
	b = append(b, "mdirappl"...)
	b = append(b, make([]byte, 9)...)
	return b
}

// Metadata value class bytes: the 4-byte prefix of a "data" atom's payload.
var (
	ClassUTF8  = [4]byte{0, 0, 0, 1}
	ClassInt   = [4]byte{0, 0, 0, 0}
	ClassCover = [4]byte{0, 0, 0, 0x15}
)

// ID3StreamBlockSize is the chunk size the ID3 writer streams the audio
// payload through the temp file in (section 4.5).
const ID3StreamBlockSize = 100 * 1024

// Characters sanitized out of path components (section 4.1).
const (
	DashChars = "/\\|:;*`"
	DropChars = `"?`
)
