// Package recorder orchestrates the per-song lifecycle: open resolves
// metadata and a destination file, write_bytes streams decoded audio into
// it, and tag/close either finalizes the tag or deletes a partial artifact
// (section 4.7). One Recorder handles exactly one song; the caller (a
// player) drives it synchronously and never concurrently with itself.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/nega0/pianobarfly/internal/config"
	"github.com/nega0/pianobarfly/internal/domain"
	"github.com/nega0/pianobarfly/internal/fetcher"
	"github.com/nega0/pianobarfly/internal/filesink"
	"github.com/nega0/pianobarfly/internal/logger"
	"github.com/nega0/pianobarfly/internal/metascraper"
	"github.com/nega0/pianobarfly/internal/pathbuilder"
	"github.com/nega0/pianobarfly/internal/tagging"
)

// Recorder is the per-song state machine of section 3/4.7. Zero value is
// not usable; construct with New.
type Recorder struct {
	cfg     *config.Config
	fetcher *fetcher.Fetcher
	logger  *logger.Logger

	handleID  uuid.UUID
	status    domain.Status
	completed bool

	song    domain.SongContext
	derived domain.DerivedMetadata
	path    string
	sink    *filesink.Handle
}

// New builds a Recorder ready to open one song. cfg supplies the Settings
// collaborator (§6); fetcher is the process-wide handle shared across every
// Recorder instance (§5); log may be nil, in which case a default logger is
// used.
func New(cfg *config.Config, f *fetcher.Fetcher, log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.Default()
	}
	return &Recorder{
		cfg:     cfg,
		fetcher: f,
		logger:  log.WithComponent("recorder"),
		status:  domain.StatusNotRecording,
	}
}

// Status reports the player-facing status_string (§6).
func (r *Recorder) Status() domain.Status {
	return r.status
}

// Completed reports whether this song's pipeline has reached a terminal
// state (tagged, already-existing, or cleaned up).
func (r *Recorder) Completed() bool {
	return r.completed
}

// HandleID returns the correlation id assigned at Open.
func (r *Recorder) HandleID() uuid.UUID {
	return r.handleID
}

// Open resolves best-effort metadata, builds the output path, and creates
// the sink. A pre-existing destination file is success-with-skip: the
// Recorder enters NOT_RECORDING_EXIST and is marked complete without
// touching the file. Any other failure leaves status NOT_RECORDING.
func (r *Recorder) Open(ctx context.Context, song domain.SongContext) error {
	r.handleID = uuid.New()
	r.song = song
	log := r.songLogger()

	r.derived = r.scrapeMetadata(ctx, song, log)

	path, err := r.resolvePath(song, r.derived)
	if err != nil {
		r.status = domain.StatusNotRecording
		log.Error("failed to resolve output path", "error", err)
		return fmt.Errorf("recorder: resolve path: %w", err)
	}
	r.path = path

	sink, err := filesink.OpenNew(path)
	if err != nil {
		if errors.Is(err, filesink.ErrAlreadyExists) {
			r.status = domain.StatusNotRecordingExist
			r.completed = true
			log.Debug("output file already exists, skipping", "path", path)
			return nil
		}
		r.status = domain.StatusNotRecording
		log.Error("failed to open sink", "path", path, "error", err)
		return fmt.Errorf("recorder: open sink: %w", err)
	}

	r.sink = sink
	r.status = domain.StatusRecording
	log.Debug("recording started", "path", path)
	return nil
}

// scrapeMetadata fetches the album-detail and album-explorer pages and
// extracts year/cover and track/disc respectively. Every miss (fetch or
// scrape) is logged at DEBUG and leaves the corresponding field zero; none
// of it is fatal to the song (§4.7, §7 BestEffortScrapeMiss).
func (r *Recorder) scrapeMetadata(ctx context.Context, song domain.SongContext, log *logger.Logger) domain.DerivedMetadata {
	var derived domain.DerivedMetadata

	if song.AlbumDetailURL != "" {
		body, err := r.fetcher.Fetch(ctx, song.AlbumDetailURL)
		if err != nil {
			log.Debug("album detail fetch failed", "url", song.AlbumDetailURL, "error", err)
		} else {
			html := string(body)
			if year, ok := metascraper.ExtractYear(html); ok {
				derived.Year = year
			} else {
				log.Debug("release year not found in album detail page")
			}
			if cover, ok := metascraper.ExtractCoverURL(html); ok {
				derived.CoverURL = cover
			} else {
				log.Debug("cover art url not found in album detail page")
			}
		}
	}

	if song.AlbumExplorerURL != "" {
		body, err := r.fetcher.Fetch(ctx, song.AlbumExplorerURL)
		if err != nil {
			log.Debug("album explorer fetch failed", "url", song.AlbumExplorerURL, "error", err)
		} else {
			disc, track, ok := metascraper.ExtractTrackDisc(song.Title, string(body))
			if ok {
				derived.Disc = disc
				derived.Track = track
			} else {
				log.Debug("track/disc not found in album explorer page")
			}
		}
	}

	return derived
}

func (r *Recorder) resolvePath(song domain.SongContext, derived domain.DerivedMetadata) (string, error) {
	rel, err := pathbuilder.Render(pathbuilder.Meta{
		Artist: song.Artist,
		Album:  song.Album,
		Title:  song.Title,
		Year:   derived.Year,
		Track:  derived.Track,
		Disc:   derived.Disc,
	}, song.Format, r.cfg.FileNameTemplate, r.cfg.UseSpaces)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.cfg.RecordingRoot, rel), nil
}

// WriteBytes forwards decoded audio bytes to the sink. It is a no-op once
// the song is marked complete (§4.7): a player that keeps streaming after
// an AlreadyExists skip, or after a late tag failure, must not panic the
// pipeline.
func (r *Recorder) WriteBytes(b []byte) error {
	if r.completed {
		return nil
	}
	if r.sink == nil {
		return fmt.Errorf("recorder: write_bytes called while not recording (status=%s)", r.status)
	}

	if err := r.sink.Append(b); err != nil {
		r.songLogger().Error("sink write failed", "error", err)
		return err
	}
	r.songLogger().Debug("appended audio bytes", "size", humanize.Bytes(uint64(len(b))))
	return nil
}

// Tag closes the write handle if one is open, optionally fetches cover art,
// and dispatches to the container-specific tag writer. completed is set
// whether or not the tag write itself succeeds, since the untagged audio is
// already in place and close must not then delete it (§7 TagWriteFailure).
func (r *Recorder) Tag(ctx context.Context) error {
	log := r.songLogger()

	if r.sink != nil {
		if err := r.sink.Close(); err != nil {
			log.Error("failed to close sink before tagging", "error", err)
		}
		r.sink = nil
	}
	r.status = domain.StatusTagging

	var cover []byte
	if r.cfg.EmbedCover && r.derived.CoverURL != "" {
		body, err := r.fetcher.Fetch(ctx, r.derived.CoverURL)
		if err != nil {
			log.Debug("cover art fetch failed, tagging without cover", "url", r.derived.CoverURL, "error", err)
		} else {
			cover = body
		}
	}

	err := tagging.TagFile(r.path, tagging.Metadata{
		Context: r.song,
		Derived: r.derived,
		Cover:   cover,
	})
	r.completed = true

	if err != nil {
		log.Error("tag write failed", "path", r.path, "error", err)
		return fmt.Errorf("recorder: tag: %w", err)
	}
	log.Debug("tagging complete", "path", r.path)
	return nil
}

// Close deletes the partial artifact and any now-empty ancestor directories
// when the song never reached completion (abort path, §7 SinkIoFailure
// recovery). It is idempotent: calling it again after the first cleanup, or
// after Tag/AlreadyExists already marked the song complete, is a no-op.
func (r *Recorder) Close() error {
	if r.completed {
		return nil
	}

	log := r.songLogger()
	r.status = domain.StatusDeleting
	if r.sink != nil {
		if err := r.sink.Close(); err != nil {
			log.Error("failed to close sink before cleanup", "error", err)
		}
		r.sink = nil
	}

	err := filesink.DeleteWithEmptyParents(r.path, r.cfg.RecordingRoot)
	r.completed = true
	if err != nil {
		log.Error("cleanup failed", "path", r.path, "error", err)
		return fmt.Errorf("recorder: cleanup: %w", err)
	}
	log.Debug("partial recording cleaned up", "path", r.path)
	return nil
}

func (r *Recorder) songLogger() *logger.Logger {
	return r.logger.WithJobID(r.handleID.String()).WithSong(r.song.Artist, r.song.Title)
}
