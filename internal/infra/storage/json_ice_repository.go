// internal/infra/storage/json_ice_repository.go
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"simpleice/internal/domain/ice"

	"github.com/sirupsen/logrus"
)

const storeFileMode = 0600

// JSONFileRepository keeps the ICE collection in a single JSON file.
type JSONFileRepository struct {
	path   string
	logger *logrus.Entry
}

func NewJSONFileRepository(path string, logger *logrus.Logger) *JSONFileRepository {
	return &JSONFileRepository{
		path:   path,
		logger: logger.WithField("store", path),
	}
}

func (r *JSONFileRepository) Path() string {
	return r.path
}

// Load reads and decodes the whole collection.
func (r *JSONFileRepository) Load(ctx context.Context) ([]*ice.Ice, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ice.ErrStoreNotFound, r.path)
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ice.ErrStoreIO, r.path, err)
	}

	ices, err := decodeIces(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ice.ErrStoreCorrupt, r.path, err)
	}
	r.logger.Debugf("Loaded %d ICE mails", len(ices))
	return ices, nil
}

// Save replaces the file with the encoded collection. The new contents are
// written to a temporary file in the same directory, synced and renamed into
// place, so the file on disk is either the old collection or the new one.
func (r *JSONFileRepository) Save(ctx context.Context, ices []*ice.Ice) error {
	data, err := encodeIces(ices)
	if err != nil {
		return fmt.Errorf("%w: encoding collection: %v", ice.ErrStoreCorrupt, err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temporary file in %s: %v", ice.ErrStoreIO, dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: writing temporary file: %v", ice.ErrStoreIO, err)
	}
	if err := tmp.Chmod(storeFileMode); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: setting permissions on temporary file: %v", ice.ErrStoreIO, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: syncing temporary file: %v", ice.ErrStoreIO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: closing temporary file: %v", ice.ErrStoreIO, err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: replacing %s: %v", ice.ErrStoreIO, r.path, err)
	}

	// make the rename durable
	if d, err := os.Open(dir); err == nil {
		d.Sync()
		d.Close()
	}

	r.logger.Debugf("Saved %d ICE mails", len(ices))
	return nil
}

func decodeIces(data []byte) ([]*ice.Ice, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("file is empty")
	}
	var ices []*ice.Ice
	if err := json.Unmarshal(data, &ices); err != nil {
		return nil, err
	}
	for idx, i := range ices {
		if i == nil {
			return nil, fmt.Errorf("entry %d is null", idx)
		}
	}
	if ices == nil {
		// the document was a bare null
		return nil, fmt.Errorf("expected a JSON array")
	}
	return ices, nil
}

func encodeIces(ices []*ice.Ice) ([]byte, error) {
	if ices == nil {
		ices = []*ice.Ice{}
	}
	for idx, i := range ices {
		if i == nil {
			return nil, fmt.Errorf("entry %d is nil", idx)
		}
	}
	return json.Marshal(ices)
}
