package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/phillip-england/empportal/internal/directory"
	"github.com/ulikunitz/xz"
)

// WriteSnapshot stores a user batch as xz-compressed JSON in the same
// {"users": [...]} shape the upstream endpoint serves.
func WriteSnapshot(w io.Writer, users []directory.RawUser) error {
	zw, err := xz.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create xz writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(usersEnvelope{Users: users}); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close xz writer: %w", err)
	}
	return nil
}

func ReadSnapshot(r io.Reader) ([]directory.RawUser, error) {
	zr, err := xz.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xz stream: %w", err)
	}
	users, err := decodeUsers(zr)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return users, nil
}

// WriteSnapshotFile writes the snapshot through a temporary file and renames
// it into place.
func WriteSnapshotFile(path string, users []directory.RawUser) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	tmpPath := path + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create temporary snapshot: %w", err)
	}
	if err := WriteSnapshot(file, users); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close temporary snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("install snapshot: %w", err)
	}
	return nil
}

// SnapshotFetcher serves the batch stored in an xz snapshot file.
type SnapshotFetcher struct {
	Path string
}

func (f *SnapshotFetcher) Fetch(ctx context.Context) ([]directory.RawUser, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadFailure{Op: "snapshot", URL: f.Path, Err: err}
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, &LoadFailure{Op: "snapshot", URL: f.Path, Err: err}
	}
	defer file.Close()

	users, err := ReadSnapshot(file)
	if err != nil {
		return nil, &LoadFailure{Op: "snapshot", URL: f.Path, Err: err}
	}
	return users, nil
}
