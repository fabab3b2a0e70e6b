// Package tagging dispatches a tag-write operation to the container-specific
// writer: ID3v2 for MP3/MP3_HI, the MP4 atom editor for AAC (section 4.5,
// 4.6). This mirrors the ancestor's own TagFile dispatch-by-extension shape,
// narrowed to the closed three-format enum this module supports.
package tagging

import (
	"fmt"

	"github.com/nega0/pianobarfly/internal/domain"
	"github.com/nega0/pianobarfly/internal/id3writer"
	"github.com/nega0/pianobarfly/internal/mp4editor"
)

// Metadata bundles everything a tag writer needs beyond the file path:
// the song's fixed context, its best-effort derived fields, and any cover
// art bytes already fetched by the caller.
type Metadata struct {
	Context domain.SongContext
	Derived domain.DerivedMetadata
	Cover   []byte
}

// TagFile writes ctx/derived/cover into the audio file at path, choosing the
// writer by ctx.Context.Format.
func TagFile(path string, meta Metadata) error {
	if meta.Context.Format.IsMP4() {
		return tagMP4(path, meta)
	}
	return tagMP3(path, meta)
}

func tagMP3(path string, meta Metadata) error {
	return id3writer.WriteFile(path, id3writer.Meta{
		Artist: meta.Context.Artist,
		Album:  meta.Context.Album,
		Title:  meta.Context.Title,
		Year:   meta.Derived.Year,
		Track:  meta.Derived.Track,
		Disc:   meta.Derived.Disc,
		Cover:  meta.Cover,
	})
}

func tagMP4(path string, meta Metadata) error {
	tree, err := mp4editor.Open(path)
	if err != nil {
		return fmt.Errorf("tagging: open %s: %w", path, err)
	}
	defer tree.Close()

	if err := tree.AddArtist(meta.Context.Artist); err != nil {
		return err
	}
	if err := tree.AddAlbum(meta.Context.Album); err != nil {
		return err
	}
	if err := tree.AddTitle(meta.Context.Title); err != nil {
		return err
	}
	if err := tree.AddYear(meta.Derived.Year); err != nil {
		return err
	}
	if err := tree.AddTrack(meta.Derived.Track); err != nil {
		return err
	}
	if err := tree.AddDisc(meta.Derived.Disc); err != nil {
		return err
	}
	if err := tree.AddCover(meta.Cover); err != nil {
		return err
	}

	return tree.Save()
}
