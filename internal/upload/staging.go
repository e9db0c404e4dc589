// Package upload manages the per-batch staging areas where incoming
// files live while the pipeline runs. Areas are ephemeral: each one is
// discarded as soon as its batch has been packaged.
package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var ErrAreaNotFound = errors.New("staging area not found")

// Area is the on-disk workspace for one batch. RawDir holds uploads as
// received, WorkDir the normalized WAVs.
type Area struct {
	BatchID   string
	Root      string
	RawDir    string
	WorkDir   string
	CreatedAt time.Time
}

type Manager struct {
	baseDir string
	logger  *slog.Logger

	mu    sync.Mutex
	areas map[string]Area
}

func NewManager(baseDir string, logger *slog.Logger) *Manager {
	return &Manager{
		baseDir: baseDir,
		logger:  logger,
		areas:   make(map[string]Area),
	}
}

func (m *Manager) Create(batchID string) (Area, error) {
	root := filepath.Join(m.baseDir, batchID)
	area := Area{
		BatchID:   batchID,
		Root:      root,
		RawDir:    filepath.Join(root, "raw"),
		WorkDir:   filepath.Join(root, "work"),
		CreatedAt: time.Now().UTC(),
	}

	for _, dir := range []string{area.RawDir, area.WorkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Area{}, fmt.Errorf("create staging area: %w", err)
		}
	}

	m.mu.Lock()
	m.areas[batchID] = area
	m.mu.Unlock()

	m.logger.Info("staging area created", slog.String("batch_id", batchID))
	return area, nil
}

// Discard removes the batch's staging directory and forgets the area.
func (m *Manager) Discard(batchID string) error {
	m.mu.Lock()
	area, ok := m.areas[batchID]
	if ok {
		delete(m.areas, batchID)
	}
	m.mu.Unlock()

	if !ok {
		return ErrAreaNotFound
	}
	if err := os.RemoveAll(area.Root); err != nil {
		return err
	}
	m.logger.Info("staging area discarded", slog.String("batch_id", batchID))
	return nil
}

// StoredName maps an uploaded filename to a safe, unique name inside
// the area's raw directory. Path components are stripped and duplicate
// names get a numeric suffix instead of overwriting.
func (m *Manager) StoredName(area Area, original string) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == ".." {
		base = "upload"
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	candidate := base
	for i := 1; ; i++ {
		if _, err := os.Stat(filepath.Join(area.RawDir, candidate)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
}

// Save streams an upload into the area's raw directory and returns the
// stored path.
func (m *Manager) Save(area Area, name string, r io.Reader) (string, error) {
	path := filepath.Join(area.RawDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
