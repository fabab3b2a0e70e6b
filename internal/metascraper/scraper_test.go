package metascraper

import "testing"

func TestExtractCoverURL_Scenario3(t *testing.T) {
	html := `… id = "album_art" data-x="y" "http://img/x.jpg" …`
	got, ok := ExtractCoverURL(html)
	if !ok {
		t.Fatal("ExtractCoverURL() ok = false, want true")
	}
	if got != "http://img/x.jpg" {
		t.Errorf("ExtractCoverURL() = %q, want %q", got, "http://img/x.jpg")
	}
}

func TestExtractCoverURL_PlaceholderRejected(t *testing.T) {
	html := `… "no_album_art.jpg" …`
	_, ok := ExtractCoverURL(html)
	if ok {
		t.Error("ExtractCoverURL() ok = true, want false for placeholder")
	}
}

func TestExtractCoverURL_NoMatch(t *testing.T) {
	_, ok := ExtractCoverURL("nothing relevant here")
	if ok {
		t.Error("ExtractCoverURL() ok = true, want false")
	}
}

func TestExtractYear_Scenario4(t *testing.T) {
	html := `class="release_year">©1998 …`
	got, ok := ExtractYear(html)
	if !ok {
		t.Fatal("ExtractYear() ok = false, want true")
	}
	if got != 1998 {
		t.Errorf("ExtractYear() = %d, want 1998", got)
	}
}

func TestExtractYear_NoMatch(t *testing.T) {
	_, ok := ExtractYear("no year here")
	if ok {
		t.Error("ExtractYear() ok = true, want false")
	}
}

func TestExtractTrackDisc_Match(t *testing.T) {
	xml := `<song songTitle="Hello World" discNum="1" trackNum="7" other="x" />`
	disc, track, ok := ExtractTrackDisc("Hello World", xml)
	if !ok {
		t.Fatal("ExtractTrackDisc() ok = false, want true")
	}
	if disc != 1 || track != 7 {
		t.Errorf("ExtractTrackDisc() = (%d, %d), want (1, 7)", disc, track)
	}
}

func TestExtractTrackDisc_TitleWithSpecialChars(t *testing.T) {
	// '?' is dropped from the title pattern and the parentheses become
	// wildcards, so the pattern is "What .Remix." and matches this title.
	xml := `<song songTitle="What (Remix)" discNum="2" trackNum="3" />`
	disc, track, ok := ExtractTrackDisc("What? (Remix)", xml)
	if !ok {
		t.Fatal("ExtractTrackDisc() ok = false, want true")
	}
	if disc != 2 || track != 3 {
		t.Errorf("ExtractTrackDisc() = (%d, %d), want (2, 3)", disc, track)
	}
}

func TestExtractTrackDisc_NoMatch(t *testing.T) {
	_, _, ok := ExtractTrackDisc("Missing", `<song songTitle="Other" discNum="1" trackNum="2" />`)
	if ok {
		t.Error("ExtractTrackDisc() ok = true, want false")
	}
}
