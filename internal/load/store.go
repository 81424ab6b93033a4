/*
Copyright © 2020 A. Jensen <jensen.aaro@gmail.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/


package load

import (
	"cloud.google.com/go/storage"
	"context"
	"errors"
	"fmt"
	"google.golang.org/api/option"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajjensen13/sp500etl/internal/util"
)

// ObjectStore is a bucket of objects addressed by key.
type ObjectStore interface {
	Bucket() string
	Location(key string) string
	// Put uploads the file at localPath to key, replacing any existing object.
	Put(ctx context.Context, localPath, key string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// GCSBucket is an ObjectStore backed by a Google Cloud Storage bucket.
type GCSBucket struct {
	Client *storage.Client
	Name   string
}

func NewGCSBucket(ctx context.Context, name string, opts ...option.ClientOption) (*GCSBucket, func(), error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSBucket{Client: client, Name: name}, func() { _ = client.Close() }, nil
}

func (b *GCSBucket) Bucket() string {
	return b.Name
}

func (b *GCSBucket) Location(key string) string {
	return "gs://" + b.Name + "/" + key
}

func (b *GCSBucket) Put(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, util.MedReqTimeout)
	defer cancel()

	w := b.Client.Bucket(b.Name).Object(key).NewWriter(ctx)
	w.ContentType = contentType(key)
	if _, err := io.Copy(w, f); err != nil {
		// cancelling the context discards the partial object
		cancel()
		_ = w.Close()
		return fmt.Errorf("failed to write %s: %w", b.Location(key), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", b.Location(key), err)
	}
	return nil
}

func (b *GCSBucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := b.Client.Bucket(b.Name).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, b.Location(key))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", b.Location(key), err)
	}
	return r, nil
}

func (b *GCSBucket) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, util.ShortReqTimeout)
	defer cancel()
	return b.Client.Bucket(b.Name).Object(key).Delete(ctx)
}

func contentType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".csv":
		return "text/csv"
	case ".parquet":
		return "application/vnd.apache.parquet"
	default:
		return "application/octet-stream"
	}
}

// DirStore is an ObjectStore kept in a local directory, one file per object.
type DirStore struct {
	Root string
	Name string
}

func (d *DirStore) Bucket() string {
	return d.Name
}

func (d *DirStore) Location(key string) string {
	return "file://" + filepath.ToSlash(d.path(key))
}

func (d *DirStore) path(key string) string {
	return filepath.Join(d.Root, d.Name, filepath.FromSlash(key))
}

func (d *DirStore) Put(_ context.Context, localPath, key string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst := d.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	// write beside the target and rename so readers never see a partial object
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".put-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (d *DirStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(d.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, d.Location(key))
	}
	return f, err
}

func (d *DirStore) Delete(_ context.Context, key string) error {
	return os.Remove(d.path(key))
}
