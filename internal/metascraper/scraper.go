// Package metascraper pulls cover-art URL, release year, and track/disc
// numbers out of raw album HTML/XML via regex text extraction (section
// 4.3). Every operation is pure and best-effort: a parse miss returns
// (zero-value, false), never an error, so the recorder can degrade the
// affected field without aborting the song.
package metascraper

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	coverArtRe   = regexp.MustCompile(`id\s*=\s*"album_art"(?:\s*[^\s"=>]+\s*=\s*"[^"]*")*\s*"([^"]+)"`)
	releaseYear  = regexp.MustCompile(`class\s*=\s*"release_year"[^\d]*(\d{4})`)
	titleEscaper = strings.NewReplacer(
		"^", ".", "$", ".", "(", ".", ")", ".", ">", ".", "<", ".",
		"[", ".", "{", ".", "\\", ".", "|", ".", ".", ".", "*", ".",
		"+", ".", "&", ".", "?", "",
	)
)

const noAlbumArtMarker = "no_album_art.jpg"

// ExtractCoverURL finds the first `id = "album_art" ... "<url>"` match in
// album HTML: any `name="value"` attributes after the id are skipped, and the
// URL is the next quoted string that stands on its own. Returns ("", false)
// on no match or if the matched URL is the site's placeholder
// "no_album_art.jpg".
func ExtractCoverURL(albumHTML string) (string, bool) {
	m := coverArtRe.FindStringSubmatch(albumHTML)
	if m == nil {
		return "", false
	}
	url := m[1]
	if strings.Contains(url, noAlbumArtMarker) {
		return "", false
	}
	return url, true
}

// ExtractYear finds the first `class = "release_year" <non-digits> <4
// digits>` match in album HTML and parses the 4 digits as decimal.
func ExtractYear(albumHTML string) (uint16, bool) {
	m := releaseYear.FindStringSubmatch(albumHTML)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseUint(m[1], 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(n), true
}

// ExtractTrackDisc builds a regex from the song title (escaping it so that
// the title's own punctuation can't break the pattern) and searches for
// `songTitle = "<escaped-title>" … discNum = "<digits>" … trackNum =
// "<digits>"` in album XML, with arbitrary attributes allowed to interleave.
func ExtractTrackDisc(title, albumXML string) (disc, track uint16, ok bool) {
	escaped := escapeTitle(title)

	pattern := `songTitle\s*=\s*"` + escaped + `"[^>]*?discNum\s*=\s*"(\d+)"[^>]*?trackNum\s*=\s*"(\d+)"`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, 0, false
	}

	m := re.FindStringSubmatch(albumXML)
	if m == nil {
		return 0, 0, false
	}

	d, err := strconv.ParseUint(m[1], 10, 16)
	if err != nil {
		return 0, 0, false
	}
	tr, err := strconv.ParseUint(m[2], 10, 16)
	if err != nil {
		return 0, 0, false
	}

	return uint16(d), uint16(tr), true
}

// escapeTitle replaces each of ^ $ ( ) > < [ { \ | . * + & with "." (an
// any-char wildcard) and drops "?", exactly as section 4.3 specifies.
func escapeTitle(title string) string {
	return titleEscaper.Replace(title)
}
