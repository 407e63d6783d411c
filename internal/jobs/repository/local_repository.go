package repository

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/amankumarsingh77/media-muxer/internal/jobs"
	"github.com/amankumarsingh77/media-muxer/internal/models"
	pkgerrors "github.com/pkg/errors"
)

type localStore struct {
	dir string
}

// NewLocalStore keeps artifacts in dir; references are bare file names.
func NewLocalStore(dir string) jobs.ArtifactStore {
	return &localStore{dir: dir}
}

func (l *localStore) Put(ctx context.Context, key, localPath, contentType string) (string, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", pkgerrors.Wrap(err, "localStore.Put.MkdirAll")
	}
	name := filepath.Base(key)
	dst := filepath.Join(l.dir, name)
	if err := os.Rename(localPath, dst); err != nil {
		// Work and output dirs may sit on different filesystems.
		if err := copyFile(localPath, dst); err != nil {
			return "", pkgerrors.Wrap(err, "localStore.Put.copyFile")
		}
		_ = os.Remove(localPath)
	}
	return name, nil
}

func (l *localStore) Locate(ctx context.Context, ref string) (*models.ArtifactLocation, error) {
	name := filepath.Base(ref)
	path := filepath.Join(l.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.NewJobError(models.KindNotFound, "artifact %s not found", name)
		}
		return nil, pkgerrors.Wrap(err, "localStore.Locate.Stat")
	}
	if info.IsDir() {
		return nil, models.NewJobError(models.KindNotFound, "artifact %s not found", name)
	}
	return &models.ArtifactLocation{
		Path:        path,
		ContentType: contentTypeForKey(name),
	}, nil
}

func (l *localStore) Delete(ctx context.Context, ref string) error {
	err := os.Remove(filepath.Join(l.dir, filepath.Base(ref)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return pkgerrors.Wrap(err, "localStore.Delete.Remove")
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}

func contentTypeForKey(key string) string {
	ext := strings.TrimPrefix(filepath.Ext(key), ".")
	return models.Format(strings.ToLower(ext)).ContentType()
}
