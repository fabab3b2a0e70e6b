// Package id3writer builds an ID3v2.4 tag and prepends it to a finished MP3
// file without rewriting the audio in place (section 4.5). The tag itself is
// hand-assembled — frame headers, synchsafe sizes, Latin-1 text — the same
// way the ancestor hand-rolls its own FLAC metadata block rather than
// delegating to a tagging library's opaque save path; see DESIGN.md for why.
package id3writer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/icza/bitio"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/nega0/pianobarfly/internal/atomicfile"
	"github.com/nega0/pianobarfly/internal/constants"
)

// Meta holds the values to render into a tag. Year, Track and Disc of 0 mean
// "omit the frame" per section 4.5's presence table; an empty Album omits
// the TALB frame.
type Meta struct {
	Artist, Album, Title string
	Year, Track, Disc    uint16
	Cover                []byte
}

var latin1Encoder = encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())

// Render writes a complete ID3v2.4 tag (10-byte header plus frames, in the
// fixed order TPE1/TALB/TIT2/TYER/TRCK/TPOS/APIC) to w and returns the
// number of bytes written. Calling Render twice against independent writers
// for the same Meta always returns the same count and the same bytes — the
// null-sink-then-allocate discipline WriteFile relies on.
func Render(meta Meta, w io.Writer) (int, error) {
	var frames bytes.Buffer

	addText := func(id, text string) error {
		body, err := textFrameBody(text)
		if err != nil {
			return fmt.Errorf("id3writer: %s frame: %w", id, err)
		}
		frame, err := buildFrame(id, body)
		if err != nil {
			return fmt.Errorf("id3writer: %s frame: %w", id, err)
		}
		frames.Write(frame)
		return nil
	}

	if err := addText(constants.FrameArtist, meta.Artist); err != nil {
		return 0, err
	}
	if meta.Album != "" {
		if err := addText(constants.FrameAlbum, meta.Album); err != nil {
			return 0, err
		}
	}
	if err := addText(constants.FrameTitle, meta.Title); err != nil {
		return 0, err
	}
	if meta.Year != 0 {
		if err := addText(constants.FrameYear, strconv.Itoa(int(meta.Year))); err != nil {
			return 0, err
		}
	}
	if meta.Track != 0 {
		if err := addText(constants.FrameTrack, strconv.Itoa(int(meta.Track))); err != nil {
			return 0, err
		}
	}
	if meta.Disc != 0 {
		if err := addText(constants.FrameDisc, strconv.Itoa(int(meta.Disc))); err != nil {
			return 0, err
		}
	}
	if len(meta.Cover) > 0 {
		frame, err := buildFrame(constants.FramePicture, pictureFrameBody(meta.Cover))
		if err != nil {
			return 0, fmt.Errorf("id3writer: APIC frame: %w", err)
		}
		frames.Write(frame)
	}

	var header bytes.Buffer
	header.WriteString("ID3")
	header.Write([]byte{0x04, 0x00}) // ID3v2.4.0
	header.WriteByte(0x80)           // flags: unsynchronisation set, appended tag/CRC/compression unset
	if err := writeSynchsafe32(&header, uint32(frames.Len())); err != nil {
		return 0, fmt.Errorf("id3writer: header size: %w", err)
	}

	n1, err := w.Write(header.Bytes())
	if err != nil {
		return n1, err
	}
	n2, err := w.Write(frames.Bytes())
	return n1 + n2, err
}

// WriteFile renders a tag for meta and prepends it to the MP3 file at path,
// following section 4.5's on-disk write recipe: measure, allocate, render
// again and require an identical size, then stream the tag followed by the
// original audio into a temp file and rename it over path. Any failure
// leaves path untouched.
func WriteFile(path string, meta Meta) error {
	size1, err := Render(meta, io.Discard)
	if err != nil {
		return err
	}

	buf := bytes.NewBuffer(make([]byte, 0, size1))
	size2, err := Render(meta, buf)
	if err != nil {
		return err
	}
	if size2 != size1 {
		return fmt.Errorf("id3writer: render size mismatch: measured %d, rendered %d", size1, size2)
	}
	tagBytes := buf.Bytes()

	return atomicfile.Replace(path, func(tmp *os.File) error {
		if _, err := tmp.Write(tagBytes); err != nil {
			return err
		}

		src, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("id3writer: open source audio: %w", err)
		}
		defer src.Close()

		block := make([]byte, constants.ID3StreamBlockSize)
		for {
			n, rerr := src.Read(block)
			if n > 0 {
				if _, werr := tmp.Write(block[:n]); werr != nil {
					return werr
				}
			}
			if rerr == io.EOF {
				return nil
			}
			if rerr != nil {
				return fmt.Errorf("id3writer: read source audio: %w", rerr)
			}
		}
	})
}

// textFrameBody is a text-information-frame body: one encoding byte (0x00,
// ISO-8859-1) followed by the Latin-1 transcoding of text.
func textFrameBody(text string) ([]byte, error) {
	encoded, err := latin1Encoder.String(text)
	if err != nil {
		return nil, err
	}
	body := make([]byte, 0, 1+len(encoded))
	body = append(body, 0x00)
	body = append(body, encoded...)
	return body, nil
}

// pictureFrameBody is an APIC frame body: encoding byte, null-terminated
// MIME string, picture-type byte, null-terminated description, image bytes.
func pictureFrameBody(cover []byte) []byte {
	mime := sniffMime(cover)
	body := make([]byte, 0, len(mime)+3+len(cover))
	body = append(body, 0x00)
	body = append(body, mime...)
	body = append(body, 0x00)
	body = append(body, constants.APICFrontCover)
	body = append(body, 0x00) // empty description, ISO-8859-1 terminator
	body = append(body, cover...)
	return body
}

// sniffMime identifies cover art by magic bytes per section 4.5; anything
// else yields an empty MIME string.
func sniffMime(data []byte) string {
	if bytes.HasPrefix(data, constants.MagicJPEG) {
		return constants.MimeJPEG
	}
	if bytes.HasPrefix(data, constants.MagicPNG) {
		return constants.MimePNG
	}
	return ""
}

// buildFrame assembles a frame header (4-byte ID, synchsafe size, 2 zero
// flag bytes) followed by body, after applying unsynchronisation to body.
// The size field counts the stuffed bytes, matching the tag-level
// unsynchronisation flag Render sets on the header.
func buildFrame(id string, body []byte) ([]byte, error) {
	body = unsynchronise(body)

	var buf bytes.Buffer
	buf.WriteString(id)
	if err := writeSynchsafe32(&buf, uint32(len(body))); err != nil {
		return nil, err
	}
	buf.Write([]byte{0x00, 0x00})
	buf.Write(body)
	return buf.Bytes(), nil
}

// unsynchronise inserts a 0x00 after every 0xFF that is followed by a byte
// >= 0xE0 or by 0x00, so a conformant ID3v2.4 reader's own de-stuffing pass
// can't mistake tag bytes for an MPEG frame sync (or drop a genuine 0x00
// that happened to follow 0xFF). Frame IDs are all ASCII letters/digits, so
// stuffing never needs to cross a frame boundary.
func unsynchronise(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		out = append(out, b)
		if b == 0xFF && i+1 < len(data) {
			next := data[i+1]
			if next >= 0xE0 || next == 0x00 {
				out = append(out, 0x00)
			}
		}
	}
	return out
}

// writeSynchsafe32 writes v as four synchsafe bytes: each byte carries 7
// bits of v, most-significant group first, with its own top bit always 0.
func writeSynchsafe32(w io.Writer, v uint32) error {
	bw := bitio.NewWriter(w)
	for shift := 21; shift >= 0; shift -= 7 {
		if err := bw.WriteBits(0, 1); err != nil {
			return err
		}
		if err := bw.WriteBits(uint64((v>>uint(shift))&0x7F), 7); err != nil {
			return err
		}
	}
	return bw.Close()
}
