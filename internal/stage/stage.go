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


package stage

import (
	"bufio"
	"cloud.google.com/go/logging"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ajjensen13/sp500etl/internal/model"
	"github.com/ajjensen13/sp500etl/internal/util"
)

const (
	filePrefix      = "sp500_data_"
	timestampLayout = "20060102_150405"
	previewRows     = 5
)

// ArtifactName returns the base name of the artifact written at t.
func ArtifactName(t time.Time) string {
	return filePrefix + t.Format(timestampLayout) + ".csv"
}

// WriteArtifact serializes ds into dir under a timestamped name that no existing file uses.
// With snapshot set, a parquet copy of ds is written next to it.
func WriteArtifact(ctx context.Context, dir string, now time.Time, ds model.Dataset, snapshot bool) (model.Artifact, error) {
	f, err := create(dir, ArtifactName(now))
	if err != nil {
		return model.Artifact{}, err
	}
	path := f.Name()

	err = WriteCSV(f, ds)
	if errClose := f.Close(); err == nil {
		err = errClose
	}
	if err != nil {
		_ = os.Remove(path)
		return model.Artifact{}, fmt.Errorf("failed to write artifact %s: %w", path, err)
	}

	ret := model.Artifact{
		Path:        path,
		RowCount:    ds.Len(),
		SymbolCount: len(ds.Symbols()),
		Quality:     ds.Quality(),
	}

	if fi, err := os.Stat(path); err == nil {
		util.Logf(ctx, logging.Info, "data saved to %s (%d bytes, %d rows)", path, fi.Size(), ret.RowCount)
	}
	logPreview(ctx, path)

	if snapshot {
		sp := strings.TrimSuffix(path, filepath.Ext(path)) + ".parquet"
		if err := WriteParquet(sp, ds); err != nil {
			_ = os.Remove(path)
			return model.Artifact{}, fmt.Errorf("failed to write snapshot %s: %w", sp, err)
		}
		ret.SnapshotPath = sp
		util.Logf(ctx, logging.Info, "snapshot saved to %s", sp)
	}

	return ret, nil
}

// create opens a new file named name in dir, adding a counter before the extension
// while the name is taken.
func create(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
		}
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		switch {
		case err == nil:
			return f, nil
		case errors.Is(err, os.ErrExist):
			continue
		default:
			return nil, fmt.Errorf("failed to create artifact %s: %w", candidate, err)
		}
	}
}

func logPreview(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	var lines []string
	s := bufio.NewScanner(f)
	for len(lines) <= previewRows && s.Scan() {
		lines = append(lines, s.Text())
	}
	util.Logf(ctx, logging.Debug, "artifact preview:\n%s", strings.Join(lines, "\n"))
}
