package blob

import (
	"context"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Disk keeps blobs as files below a root directory, one file per key.
type Disk struct {
	root string
}

func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create blob dir %s", root)
	}
	return &Disk{root: root}, nil
}

func (d *Disk) path(key string) (string, string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", "", err
	}
	return key, filepath.Join(d.root, filepath.FromSlash(key)), nil
}

func (d *Disk) Put(_ context.Context, key string, r io.Reader, contentType string) (Info, error) {
	key, p, err := d.path(key)
	if err != nil {
		return Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Info{}, errors.Wrapf(err, "failed to create dir for %s", key)
	}
	dst, err := os.Create(p)
	if err != nil {
		return Info{}, errors.Wrapf(err, "failed to create %s", key)
	}
	defer dst.Close()

	n, err := io.Copy(dst, r)
	if err != nil {
		return Info{}, errors.Wrapf(err, "failed to write %s", key)
	}
	return Info{Key: key, Size: n, ContentType: contentType}, nil
}

func (d *Disk) Open(_ context.Context, key string) (io.ReadCloser, Info, error) {
	key, p, err := d.path(key)
	if err != nil {
		return nil, Info{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Info{}, ErrNotFound
		}
		return nil, Info{}, errors.Wrapf(err, "failed to open %s", key)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, Info{}, errors.Wrapf(err, "failed to stat %s", key)
	}
	return f, Info{Key: key, Size: st.Size(), ContentType: mime.TypeByExtension(filepath.Ext(p))}, nil
}

func (d *Disk) Delete(_ context.Context, key string) error {
	key, p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return errors.Wrapf(err, "failed to delete %s", key)
	}
	return nil
}
