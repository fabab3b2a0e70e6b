package recorder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nega0/pianobarfly/internal/config"
	"github.com/nega0/pianobarfly/internal/constants"
	"github.com/nega0/pianobarfly/internal/fetcher"
)

// Lifecycle holds the process-wide resources Init constructs and Finalize
// releases: the recording-root working directory and the single Fetcher
// handle every Recorder instance shares (section 5, section 6's exposed
// init(settings)/finalize() interfaces).
type Lifecycle struct {
	Fetcher *fetcher.Fetcher
}

// Init mkdir-p's the recording root, chdir's into it, and constructs the
// process-wide Fetcher handle. Call it once at process startup, before any
// Recorder is opened; a real player integration calls this instead of
// duplicating the setup inline the way the demo driver used to.
func Init(cfg *config.Config) (*Lifecycle, error) {
	// Resolve to an absolute path first: once Chdir below lands the process
	// inside the root, a relative RecordingRoot would otherwise be
	// re-interpreted relative to the root itself everywhere downstream
	// (path resolution, the cleanup-bounds check) instead of staying fixed.
	absRoot, err := filepath.Abs(cfg.RecordingRoot)
	if err != nil {
		return nil, fmt.Errorf("recorder: resolve recording root %s: %w", cfg.RecordingRoot, err)
	}
	cfg.RecordingRoot = absRoot

	if err := os.MkdirAll(cfg.RecordingRoot, constants.DirPermissions); err != nil {
		return nil, fmt.Errorf("recorder: create recording root %s: %w", cfg.RecordingRoot, err)
	}
	if err := os.Chdir(cfg.RecordingRoot); err != nil {
		return nil, fmt.Errorf("recorder: chdir into recording root %s: %w", cfg.RecordingRoot, err)
	}

	f, err := fetcher.New(fetcher.Config{
		Timeout:     cfg.HTTPTimeout,
		RetryCount:  cfg.RetryCount,
		RetryBase:   cfg.RetryBase,
		MinInterval: constants.DefaultMinRequestGap,
		ProxyURL:    cfg.Proxy,
	})
	if err != nil {
		return nil, fmt.Errorf("recorder: construct fetcher: %w", err)
	}

	return &Lifecycle{Fetcher: f}, nil
}

// Finalize releases the process-wide Fetcher handle. Call it once at
// shutdown; there is no other process-wide resource to release (section 5).
func (l *Lifecycle) Finalize() {
	l.Fetcher.Close()
}
