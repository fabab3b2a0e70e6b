// Package pathbuilder renders a templated audio-file path from song
// metadata and sanitizes the name components that go into it (section 4.1).
package pathbuilder

import (
	"fmt"
	"strings"

	"github.com/nega0/pianobarfly/internal/constants"
	"github.com/nega0/pianobarfly/internal/domain"
)

const maxComponentBytes = 255

// Meta is the subset of song context plus derived metadata the template
// tokens draw from.
type Meta struct {
	Artist string
	Album  string
	Title  string
	Year   uint16
	Track  uint16
	Disc   uint16
}

// Render substitutes the template's %tokens against meta and appends the
// extension for format. Unsupported formats fail; everything else is a pure,
// I/O-free string transform.
func Render(meta Meta, format domain.Format, tmpl string, useSpaces bool) (string, error) {
	ext, err := format.Extension()
	if err != nil {
		return "", err
	}

	artist := Sanitize(meta.Artist, useSpaces)
	album := Sanitize(meta.Album, useSpaces)
	title := Sanitize(meta.Title, useSpaces)

	var out strings.Builder
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '%' {
			out.WriteByte(c)
			continue
		}

		// '%' introduces a token; any unrecognized one (and its one
		// following byte) is silently dropped per section 4.1.
		rest := tmpl[i+1:]
		switch {
		case strings.HasPrefix(rest, "artist"):
			out.WriteString(artist)
			i += len("artist")
		case strings.HasPrefix(rest, "album"):
			out.WriteString(album)
			i += len("album")
		case strings.HasPrefix(rest, "title"):
			out.WriteString(title)
			i += len("title")
		case strings.HasPrefix(rest, "02track"):
			out.WriteString(fmt.Sprintf("%02d", meta.Track))
			i += len("02track")
		case strings.HasPrefix(rest, "track"):
			out.WriteString(fmt.Sprintf("%02d", meta.Track))
			i += len("track")
		case strings.HasPrefix(rest, "02disc"):
			out.WriteString(fmt.Sprintf("%02d", meta.Disc))
			i += len("02disc")
		case strings.HasPrefix(rest, "disc"):
			out.WriteString(fmt.Sprintf("%d", meta.Disc))
			i += len("disc")
		case strings.HasPrefix(rest, "year"):
			out.WriteString(fmt.Sprintf("%d", meta.Year))
			i += len("year")
		default:
			// Drop the '%' and the byte after it, if any.
			if len(rest) > 0 {
				i++
			}
		}
	}

	return out.String() + ext, nil
}

// Sanitize cleans one path component per section 4.1: dash out the
// directory-hostile punctuation, fold angle brackets to parens, fold spaces
// to underscores unless useSpaces is set, drop quote/question marks, cap at
// 255 bytes. Everything else (including UTF-8 continuation bytes) passes
// through untouched, byte by byte; this is documented behavior, not a
// normalization guarantee (section 9).
func Sanitize(s string, useSpaces bool) string {
	var out strings.Builder
	out.Grow(len(s))

	for i := 0; i < len(s) && out.Len() < maxComponentBytes; i++ {
		c := s[i]
		switch {
		case strings.IndexByte(constants.DashChars, c) >= 0:
			out.WriteByte('-')
		case c == '<':
			out.WriteByte('(')
		case c == '>':
			out.WriteByte(')')
		case c == ' ' && !useSpaces:
			out.WriteByte('_')
		case strings.IndexByte(constants.DropChars, c) >= 0:
			// dropped
		default:
			out.WriteByte(c)
		}
	}

	return out.String()
}
