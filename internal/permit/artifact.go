package permit

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	artifactPrefix     = "rpm2park_parking_permit_"
	artifactTimeLayout = "2006-01-02_15-04-05"
)

// Artifact is a screenshot of the issued permit.
type Artifact struct {
	Path string
	// Persistent artifacts are kept on disk; the rest exist only long enough
	// to be sent.
	Persistent bool
}

// ArtifactManager names, captures and deletes permit screenshots.
type ArtifactManager struct {
	fs      afero.Fs
	folder  string
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewArtifactManager stores screenshots in folder on fs.
func NewArtifactManager(fs afero.Fs, folder string, timeout time.Duration, logger *zap.Logger) *ArtifactManager {
	return &ArtifactManager{
		fs:      fs,
		folder:  folder,
		timeout: timeout,
		now:     time.Now,
		logger:  logger.Named("artifact"),
	}
}

// NewPath returns the screenshot path for the current second. Runs less than
// a second apart collide.
func (m *ArtifactManager) NewPath() string {
	return filepath.Join(m.folder, artifactPrefix+m.now().Format(artifactTimeLayout)+".png")
}

// Capture waits for the permit's QR code and then saves a full page
// screenshot to path.
func (m *ArtifactManager) Capture(ctx context.Context, page Page, path string, persistent bool) (*Artifact, error) {
	if _, err := WaitFor(ctx, page, m.timeout, QRCodeImageID); err != nil {
		return nil, err
	}

	png, err := page.FullScreenshot(ctx)
	if err != nil {
		return nil, &ArtifactError{Op: "capture", Path: path, Err: err}
	}
	if err := m.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &ArtifactError{Op: "create folder for", Path: path, Err: err}
	}
	if err := afero.WriteFile(m.fs, path, png, 0o644); err != nil {
		return nil, &ArtifactError{Op: "write", Path: path, Err: err}
	}

	m.logger.Info("Saved permit screenshot.", zap.String("path", path), zap.Bool("persistent", persistent), zap.Int("bytes", len(png)))
	return &Artifact{Path: path, Persistent: persistent}, nil
}

// Discard deletes an ephemeral artifact. Persistent artifacts are left alone.
// A missing ephemeral file is an error: it must exist until Discard runs.
func (m *ArtifactManager) Discard(a *Artifact) error {
	if a == nil || a.Persistent {
		return nil
	}

	exists, err := afero.Exists(m.fs, a.Path)
	if err != nil {
		return &ArtifactError{Op: "stat", Path: a.Path, Err: err}
	}
	if !exists {
		m.logger.Error("Could not find screenshot to delete.", zap.String("path", a.Path))
		return &ArtifactError{Op: "delete", Path: a.Path, Err: errArtifactMissing}
	}
	if err := m.fs.Remove(a.Path); err != nil {
		return &ArtifactError{Op: "delete", Path: a.Path, Err: err}
	}
	m.logger.Debug("Deleted temporary screenshot.", zap.String("path", a.Path))
	return nil
}
