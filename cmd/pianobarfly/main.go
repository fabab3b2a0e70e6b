// Command pianobarfly is a thin demo driver: it loads configuration, builds
// a logger and the process-wide Fetcher handle, then pushes one locally
// supplied audio blob through a Recorder's open/write_bytes/tag cycle the
// way a real player would. It owns no business logic of its own (§2).
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/nega0/pianobarfly/internal/config"
	"github.com/nega0/pianobarfly/internal/domain"
	"github.com/nega0/pianobarfly/internal/logger"
	"github.com/nega0/pianobarfly/internal/recorder"
)

func main() {
	var (
		audioPath = flag.String("audio", "", "path to a decoded audio blob to record (required)")
		artist    = flag.String("artist", "", "song artist")
		album     = flag.String("album", "", "song album")
		title     = flag.String("title", "", "song title")
		format    = flag.String("format", string(domain.FormatMP3), "container format: MP3, MP3_HI, or AAC")
	)
	flag.Parse()

	if *audioPath == "" || *artist == "" || *title == "" {
		log.Fatal("pianobarfly: -audio, -artist, and -title are required")
	}

	// Resolve before init(settings) chdir's the process into the recording
	// root, so a relative -audio path still points at the file the caller
	// meant.
	absAudioPath, err := filepath.Abs(*audioPath)
	if err != nil {
		log.Fatalf("pianobarfly: resolve audio path: %v", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("pianobarfly: configuration error: %v", err)
	}

	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	lifecycle, err := recorder.Init(cfg)
	if err != nil {
		appLogger.Error("init failed", "error", err)
		os.Exit(1)
	}
	defer lifecycle.Finalize()

	song := domain.SongContext{
		Artist: *artist,
		Album:  *album,
		Title:  *title,
		Format: domain.Format(*format),
	}

	if err := run(appLogger, cfg, lifecycle, song, absAudioPath); err != nil {
		appLogger.Error("recording failed", "error", err)
		os.Exit(1)
	}
}

func run(appLogger *logger.Logger, cfg *config.Config, lifecycle *recorder.Lifecycle, song domain.SongContext, audioPath string) error {
	ctx := context.Background()

	rec := recorder.New(cfg, lifecycle.Fetcher, appLogger)
	if err := rec.Open(ctx, song); err != nil {
		return err
	}

	if rec.Completed() {
		appLogger.Info("song already recorded, nothing to do", "status", rec.Status().String())
		return nil
	}

	audio, err := os.Open(audioPath)
	if err != nil {
		_ = rec.Close()
		return err
	}
	defer audio.Close()

	buf := make([]byte, 64*1024)
	for {
		n, readErr := audio.Read(buf)
		if n > 0 {
			if err := rec.WriteBytes(buf[:n]); err != nil {
				_ = rec.Close()
				return err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = rec.Close()
			return readErr
		}
	}

	if err := rec.Tag(ctx); err != nil {
		return err
	}

	appLogger.Info("recording complete", "status", rec.Status().String())
	return nil
}
