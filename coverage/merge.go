// Copyright 2021 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package coverage holds the per-base coverage table: merging the per-sample
// tool outputs, parsing the merged table, and aggregating per-(sample,
// feature) statistics.
package coverage

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// MergedCovName is the combined coverage table, written next to the
// per-sample .pbcov files.
const MergedCovName = "all_samples.perbase.cov"

// PbcovSuffix is the extension of the per-sample coverage files produced by
// the external tool.
const PbcovSuffix = ".pbcov"

// ListCovFiles returns the .pbcov files in dir, in lexicographic listing
// order.  The merged output follows this order, not selection order.
func ListCovFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.E(err, "cannot list coverage folder:", dir)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), PbcovSuffix) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	log.Debug.Printf("coverage files found: %q", paths)
	return paths, nil
}

// Merge concatenates the given per-sample coverage files into outPath,
// appending the file's name stem as a trailing sample column on every row.
// This is pure textual concatenation: rows are not validated here.
func Merge(ctx context.Context, paths []string, outPath string) (err error) {
	out, err := file.Create(ctx, outPath)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := bufio.NewWriter(out.Writer(ctx))

	for _, path := range paths {
		if err := appendTagged(ctx, path, w); err != nil {
			return err
		}
	}
	return w.Flush()
}

func appendTagged(ctx context.Context, path string, w *bufio.Writer) (err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, in, &err)

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	scanner := bufio.NewScanner(in.Reader(ctx))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, err := w.WriteString(line + "\t" + stem + "\n"); err != nil {
			return err
		}
	}
	return scanner.Err()
}
