package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Vovarama1992/voice_roundtrip/internal/ports"
)

type fileStore struct {
	dir string
}

// NewFileStore — слоты лежат файлами в dir (каталог создаётся при первой записи).
func NewFileStore(dir string) ports.ResourceStore {
	return &fileStore{dir: dir}
}

// Put пишет во временный файл рядом со слотом и переименовывает его поверх.
func (s *fileStore) Put(_ context.Context, slot ports.Slot, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create resource dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+string(slot)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", slot, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", slot, err)
	}

	if err := os.Rename(tmpName, s.path(slot)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", slot, err)
	}
	return nil
}

func (s *fileStore) Open(_ context.Context, slot ports.Slot) (io.ReadCloser, int64, error) {
	f, err := os.Open(s.path(slot))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, ports.ErrNotFound
		}
		return nil, 0, fmt.Errorf("open %s: %w", slot, err)
	}

	// размер берём с открытого дескриптора: параллельный rename его не меняет
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", slot, err)
	}
	return f, info.Size(), nil
}

func (s *fileStore) path(slot ports.Slot) string {
	return filepath.Join(s.dir, filepath.Base(string(slot)))
}
