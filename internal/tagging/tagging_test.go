package tagging

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/nega0/pianobarfly/internal/domain"
)

func TestTagFile_MP3UsesID3Writer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.mp3")
	if err := os.WriteFile(path, []byte("fake audio bytes"), 0644); err != nil {
		t.Fatalf("seed audio file: %v", err)
	}

	meta := Metadata{
		Context: domain.SongContext{Artist: "Artist", Album: "Album", Title: "Title", Format: domain.FormatMP3},
		Derived: domain.DerivedMetadata{Year: 2001, Track: 4},
	}
	if err := TagFile(path, meta); err != nil {
		t.Fatalf("TagFile() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got[0:3]) != "ID3" {
		t.Errorf("expected file to start with ID3 tag, got %q", got[0:3])
	}
	if !bytes.Contains(got, []byte("fake audio bytes")) {
		t.Error("original audio bytes were not preserved")
	}
}

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

func TestTagFile_AACUsesMp4Editor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.m4a")

	moov := containerBytes("moov")
	ftyp := atomBytes("ftyp", make([]byte, 8))
	if err := os.WriteFile(path, append(append([]byte{}, ftyp...), moov...), 0644); err != nil {
		t.Fatalf("seed m4a file: %v", err)
	}

	meta := Metadata{
		Context: domain.SongContext{Artist: "Artist", Album: "Album", Title: "Title", Format: domain.FormatAAC},
		Derived: domain.DerivedMetadata{Year: 2001},
	}
	if err := TagFile(path, meta); err != nil {
		t.Fatalf("TagFile() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Contains(got, []byte("\xa9ART")) {
		t.Error("expected rewritten file to contain an artist atom")
	}
}
