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
	"cloud.google.com/go/logging"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/ajjensen13/sp500etl/internal/model"
	"github.com/ajjensen13/sp500etl/internal/util"
)

var (
	ErrMissingUpstreamArtifact = errors.New("no upstream artifact")
	ErrArtifactNotFound        = errors.New("artifact not found")
	ErrUploadFailure           = errors.New("upload failed")
)

const snapshotFolder = "snapshots"

// Upload copies the artifact to folder/<base name> in store and removes the local copy.
// A parquet snapshot, if any, goes to folder/snapshots/<base name>.
func Upload(ctx context.Context, store ObjectStore, folder string, a model.Artifact) (model.Upload, error) {
	ctx = util.WithLoggerValue(ctx, "action", "upload")

	if a.Path == "" {
		return model.Upload{}, ErrMissingUpstreamArtifact
	}
	fi, err := os.Stat(a.Path)
	if err != nil {
		return model.Upload{}, fmt.Errorf("%w: %s: %v", ErrArtifactNotFound, a.Path, err)
	}

	name := filepath.Base(a.Path)
	key := path.Join(folder, name)
	util.Logf(ctx, logging.Info, "uploading %s (%d bytes) to %s", a.Path, fi.Size(), store.Location(key))

	if err := store.Put(ctx, a.Path, key); err != nil {
		return model.Upload{}, fmt.Errorf("%w: %w", ErrUploadFailure, err)
	}
	util.Logf(ctx, logging.Info, "successfully uploaded to %s", store.Location(key))

	if a.SnapshotPath != "" {
		uploadSnapshot(ctx, store, folder, a.SnapshotPath)
	}

	removeLocal(ctx, a.Path)

	return model.Upload{
		Bucket:   store.Bucket(),
		Key:      key,
		Location: store.Location(key),
		FileName: name,
	}, nil
}

func uploadSnapshot(ctx context.Context, store ObjectStore, folder, localPath string) {
	key := path.Join(folder, snapshotFolder, filepath.Base(localPath))
	if err := store.Put(ctx, localPath, key); err != nil {
		util.Logf(ctx, logging.Warning, "failed to upload snapshot %s: %v", localPath, err)
		return
	}
	util.Logf(ctx, logging.Info, "successfully uploaded snapshot to %s", store.Location(key))
	removeLocal(ctx, localPath)
}

func removeLocal(ctx context.Context, p string) {
	if err := os.Remove(p); err != nil {
		util.Logf(ctx, logging.Warning, "could not clean up local file %s: %v", p, err)
		return
	}
	util.Logf(ctx, logging.Debug, "cleaned up local file %s", p)
}

// Copier bulk loads artifacts into the warehouse table.
type Copier interface {
	CopyInto(ctx context.Context, r io.Reader) (model.LoadInfo, error)
	Verify(ctx context.Context) (model.Verification, error)
}

// Load copies the uploaded object into the warehouse, purges the object and verifies the table.
// Once the copy succeeds Load does not fail; purge and verification problems are logged.
func Load(ctx context.Context, copier Copier, store ObjectStore, u model.Upload) (model.LoadInfo, error) {
	ctx = util.WithLoggerValue(ctx, "action", "load")

	if u.Key == "" {
		return model.LoadInfo{}, ErrMissingUpstreamArtifact
	}

	rc, err := store.Open(ctx, u.Key)
	if err != nil {
		return model.LoadInfo{}, err
	}
	info, err := copier.CopyInto(ctx, rc)
	_ = rc.Close()
	if err != nil {
		return model.LoadInfo{}, fmt.Errorf("failed to load %s: %w", u.Location, err)
	}
	util.Logf(ctx, logging.Info, "loaded %d of %d rows from %s (%d skipped)", info.RowsLoaded, info.RowsParsed, u.Location, info.RowsSkipped)

	if err := store.Delete(ctx, u.Key); err != nil {
		util.Logf(ctx, logging.Warning, "failed to purge %s: %v", u.Location, err)
	}

	// the copy is committed; failures past this point are only logged
	v, err := copier.Verify(ctx)
	if err != nil {
		util.Logf(ctx, logging.Warning, "failed to verify load of %s: %v", u.Location, err)
		return info, nil
	}
	info.Verification = v
	util.Logf(ctx, logging.Info, "warehouse holds %d rows for %d symbols (%s to %s)",
		v.TotalRows, v.UniqueSymbols, v.EarliestDate.Format(model.DateLayout), v.LatestDate.Format(model.DateLayout))

	return info, nil
}
