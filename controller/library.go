package controller

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"motion-logger/models"
	"motion-logger/utils"
	"motion-logger/views"
)

// ActivePathFunc reports the file of the active session, or "".
type ActivePathFunc func() string

// Library manages closed recordings in the recordings directory. Every
// operation refuses the file of the active session.
type Library struct {
	dir    string
	active ActivePathFunc
}

// NewLibrary creates a library over dir. active may be nil.
func NewLibrary(dir string, active ActivePathFunc) *Library {
	if active == nil {
		active = func() string { return "" }
	}
	return &Library{dir: dir, active: active}
}

// Dir returns the recordings directory.
func (l *Library) Dir() string { return l.dir }

// List returns every CSV recording, newest first. A missing directory
// yields an empty list.
func (l *Library) List() ([]models.RecordingInfo, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.RecordingInfo{}, nil
		}
		return nil, &models.StorageError{Op: "list", Path: l.dir, Err: err}
	}

	active := l.active()
	out := make([]models.RecordingInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		path := filepath.Join(l.dir, e.Name())
		if samePath(path, active) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, infoFor(path, fi))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ModifiedAt.Equal(out[j].ModifiedAt) {
			return out[i].Name > out[j].Name
		}
		return out[i].ModifiedAt.After(out[j].ModifiedAt)
	})
	return out, nil
}

// Resolve maps a bare file name to its path inside the recordings directory.
// Names that would escape the directory are rejected.
func (l *Library) Resolve(name string) (string, error) {
	return ResolveIn(l.dir, name)
}

// ResolveIn joins a bare file name to dir. Any name that is not a single
// path element is a ConfigError.
func ResolveIn(dir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", &models.ConfigError{Msg: fmt.Sprintf("invalid file name %q", name)}
	}
	return filepath.Join(dir, name), nil
}

// Info describes one closed recording.
func (l *Library) Info(path string) (models.RecordingInfo, error) {
	if err := l.checkIdle(path); err != nil {
		return models.RecordingInfo{}, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return models.RecordingInfo{}, &models.StorageError{Op: "stat", Path: path, Err: err}
	}
	return infoFor(path, fi), nil
}

// Summary parses a closed recording and condenses it.
func (l *Library) Summary(path string) (views.Summary, error) {
	if err := l.checkIdle(path); err != nil {
		return views.Summary{}, err
	}
	rec, err := views.ReadRecordingFile(path)
	if err != nil {
		return views.Summary{}, err
	}
	return rec.Summary(), nil
}

// Delete removes a closed recording.
func (l *Library) Delete(path string) error {
	if err := l.checkIdle(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return &models.StorageError{Op: "delete", Path: path, Err: err}
	}
	utils.L().Info("deleted recording %s", path)
	return nil
}

// Export copies a closed recording to target, overwriting it. When target
// is a directory the file keeps its name. It returns the written path.
func (l *Library) Export(path, target string) (string, error) {
	if err := l.checkIdle(path); err != nil {
		return "", err
	}
	if fi, err := os.Stat(target); err == nil && fi.IsDir() {
		target = filepath.Join(target, filepath.Base(path))
	}
	if samePath(path, target) {
		return "", fmt.Errorf("export %s: source and target are the same file", path)
	}

	src, err := os.Open(path)
	if err != nil {
		return "", &models.StorageError{Op: "export", Path: path, Err: err}
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", &models.StorageError{Op: "export", Path: target, Err: err}
	}
	dst, err := os.Create(target)
	if err != nil {
		return "", &models.StorageError{Op: "export", Path: target, Err: err}
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", &models.StorageError{Op: "export", Path: target, Err: err}
	}
	if err := dst.Close(); err != nil {
		return "", &models.StorageError{Op: "export", Path: target, Err: err}
	}
	utils.L().Info("exported %s to %s", path, target)
	return target, nil
}

func (l *Library) checkIdle(path string) error {
	if samePath(path, l.active()) {
		return fmt.Errorf("%s: %w", filepath.Base(path), models.ErrFileInUse)
	}
	return nil
}

func infoFor(path string, fi os.FileInfo) models.RecordingInfo {
	return models.RecordingInfo{
		Name:       fi.Name(),
		Size:       models.FormatFileSize(fi.Size()),
		SizeBytes:  fi.Size(),
		ModifiedAt: fi.ModTime(),
		Path:       path,
	}
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ca, errA := filepath.Abs(a)
	cb, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return ca == cb
}
