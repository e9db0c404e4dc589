// Package dataset writes the Coqui/LJSpeech-style training layout and
// bundles it for download: wavs/ plus a pipe-delimited metadata.txt,
// with a metadata_detailed.csv on the side for debugging.
package dataset

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	ArchiveName     = "tts_dataset.zip"
	MetadataName    = "metadata.txt"
	DetailedCSVName = "metadata_detailed.csv"
	wavDirName      = "wavs"
)

var detailedHeader = []string{"segment_filename", "transcript", "start_time", "end_time", "duration", "error"}

// SegmentName builds the canonical wav filename for a segment:
// <source-stem>_segment_NNNN.wav, 1-based and zero-padded.
func SegmentName(sourceStem string, index int) string {
	return fmt.Sprintf("%s_segment_%04d.wav", sourceStem, index)
}

// Entry describes one retained segment. The wav file itself must
// already exist under the packager's wavs directory.
type Entry struct {
	Filename           string
	Transcript         string
	StartSeconds       float64
	EndSeconds         float64
	DurationSeconds    float64
	TranscriptionError string
}

type Packager struct {
	root   string
	logger *slog.Logger

	// guards the append-only metadata files
	mu sync.Mutex
}

func NewPackager(root string, logger *slog.Logger) (*Packager, error) {
	if err := os.MkdirAll(filepath.Join(root, wavDirName), 0o755); err != nil {
		return nil, err
	}
	return &Packager{root: root, logger: logger}, nil
}

func (p *Packager) Root() string {
	return p.root
}

// WAVPath returns where the segment wav for name belongs.
func (p *Packager) WAVPath(name string) string {
	return filepath.Join(p.root, wavDirName, name)
}

// Append records entries in metadata.txt and metadata_detailed.csv, in
// the order given. The CSV header is written only once per dataset.
func (p *Packager) Append(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.appendMetadata(entries); err != nil {
		return err
	}
	return p.appendDetailed(entries)
}

func (p *Packager) appendMetadata(entries []Entry) error {
	f, err := os.OpenFile(filepath.Join(p.root, MetadataName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, e := range entries {
		if _, err := fmt.Fprintf(f, "%s|%s\n", e.Filename, e.Transcript); err != nil {
			return err
		}
	}
	return nil
}

func (p *Packager) appendDetailed(entries []Entry) error {
	path := filepath.Join(p.root, DetailedCSVName)
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(detailedHeader); err != nil {
			return err
		}
	}
	for _, e := range entries {
		record := []string{
			e.Filename,
			e.Transcript,
			fmt.Sprintf("%.3f", e.StartSeconds),
			fmt.Sprintf("%.3f", e.EndSeconds),
			fmt.Sprintf("%.3f", e.DurationSeconds),
			e.TranscriptionError,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// BuildArchive bundles metadata.txt and wavs/ into tts_dataset.zip and
// returns the archive path. It refuses to build an archive whose
// metadata and wav files are not in 1:1 correspondence.
func (p *Packager) BuildArchive() (string, error) {
	names, err := p.verifyConsistent()
	if err != nil {
		return "", err
	}

	archivePath := filepath.Join(p.root, ArchiveName)
	f, err := os.Create(archivePath)
	if err != nil {
		return "", err
	}

	zw := zip.NewWriter(f)
	if err := p.addFile(zw, MetadataName, filepath.Join(p.root, MetadataName)); err != nil {
		zw.Close()
		f.Close()
		return "", err
	}
	for _, name := range names {
		entry := wavDirName + "/" + name
		if err := p.addFile(zw, entry, p.WAVPath(name)); err != nil {
			zw.Close()
			f.Close()
			return "", err
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	p.logger.Info("dataset archive built",
		slog.String("path", archivePath),
		slog.Int("segments", len(names)))
	return archivePath, nil
}

// verifyConsistent checks that every metadata line has a wav file and
// vice versa, returning the wav names in metadata order.
func (p *Packager) verifyConsistent() ([]string, error) {
	data, err := os.ReadFile(filepath.Join(p.root, MetadataName))
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var names []string
	listed := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		name, _, ok := strings.Cut(line, "|")
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed metadata line %q", line)
		}
		if listed[name] {
			return nil, fmt.Errorf("duplicate metadata entry %q", name)
		}
		listed[name] = true
		names = append(names, name)
	}

	dirEntries, err := os.ReadDir(filepath.Join(p.root, wavDirName))
	if err != nil {
		return nil, err
	}
	onDisk := make(map[string]bool, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		onDisk[de.Name()] = true
	}

	for name := range listed {
		if !onDisk[name] {
			return nil, fmt.Errorf("metadata references missing wav %q", name)
		}
	}
	var stray []string
	for name := range onDisk {
		if !listed[name] {
			stray = append(stray, name)
		}
	}
	if len(stray) > 0 {
		sort.Strings(stray)
		return nil, fmt.Errorf("wav files missing from metadata: %s", strings.Join(stray, ", "))
	}

	return names, nil
}

func (p *Packager) addFile(zw *zip.Writer, entryName, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := zw.Create(entryName)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}
