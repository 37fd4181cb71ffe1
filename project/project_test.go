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
package project

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

// newProject builds a minimal valid project folder and returns its path.
func newProject(t *testing.T, tmpdir string) string {
	dataDir := filepath.Join(tmpdir, DataFolder)
	assert.NoError(t, os.MkdirAll(dataDir, 0775))
	assert.NoError(t, os.MkdirAll(filepath.Join(tmpdir, AlignmentFolder), 0775))
	assert.NoError(t, os.WriteFile(filepath.Join(dataDir, SampleDataName), []byte("sample_ID\n"), 0644))
	assert.NoError(t, os.WriteFile(filepath.Join(dataDir, SampleSelectionName), []byte("S1\n"), 0644))
	return tmpdir
}

func TestResolve(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	dir := newProject(t, tmpdir)

	layout, err := Resolve(dir, 100)
	assert.NoError(t, err)
	expect.EQ(t, layout.AlignmentDir, filepath.Join(dir, AlignmentFolder))
	expect.EQ(t, layout.BedDir, filepath.Join(dir, BedFolder))
	expect.EQ(t, filepath.Base(layout.SampleDataPath), SampleDataName)

	// A zero threshold is allowed (it just disables breadth reporting); a
	// negative one is not.
	_, err = Resolve(dir, 0)
	assert.NoError(t, err)
	_, err = Resolve(dir, -1)
	expect.True(t, err != nil)
}

func TestResolveMissingInputs(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	_, err := Resolve(filepath.Join(tmpdir, "nonexistent"), 100)
	expect.True(t, err != nil)

	// Project dir exists but has no inputs.
	_, err = Resolve(tmpdir, 100)
	expect.True(t, err != nil)
	assert.HasSubstr(t, err.Error(), SampleDataName)

	dataDir := filepath.Join(tmpdir, DataFolder)
	assert.NoError(t, os.MkdirAll(dataDir, 0775))
	assert.NoError(t, os.WriteFile(filepath.Join(dataDir, SampleDataName), []byte("sample_ID\n"), 0644))
	_, err = Resolve(tmpdir, 100)
	expect.True(t, err != nil)
	assert.HasSubstr(t, err.Error(), SampleSelectionName)
}

func TestResolveGzippedMasterTable(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	dir := newProject(t, tmpdir)
	assert.NoError(t, os.Rename(
		filepath.Join(dir, DataFolder, SampleDataName),
		filepath.Join(dir, DataFolder, SampleDataName+".gz")))

	layout, err := Resolve(dir, 100)
	assert.NoError(t, err)
	expect.EQ(t, filepath.Base(layout.SampleDataPath), SampleDataName+".gz")
}

func TestCreateOutputDirs(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	dir := newProject(t, tmpdir)

	layout, err := Resolve(dir, 100)
	assert.NoError(t, err)
	assert.NoError(t, layout.CreateOutputDirs())
	for _, d := range []string{layout.BedDir, layout.CovDir, layout.PlotDir, layout.ReportDir} {
		info, err := os.Stat(d)
		assert.NoError(t, err)
		expect.True(t, info.IsDir())
	}
	// Idempotent: pre-existing folders only warn.
	assert.NoError(t, layout.CreateOutputDirs())
}

func TestReadSampleSelection(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := context.Background()

	path := filepath.Join(tmpdir, SampleSelectionName)
	assert.NoError(t, os.WriteFile(path, []byte("S2 \n\n  S1\nS3\n"), 0644))
	samples, err := ReadSampleSelection(ctx, path)
	assert.NoError(t, err)
	// Trimmed, blank lines dropped, selection order preserved.
	expect.EQ(t, samples, []string{"S2", "S1", "S3"})
}

func TestMatchBAMs(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	for _, name := range []string{"S1_L001.bam", "S1_L002.bam", "S2.bam", "S2.bam.bai", "notes.txt"} {
		assert.NoError(t, os.WriteFile(filepath.Join(tmpdir, name), nil, 0644))
	}

	matches, err := MatchBAMs([]string{"S2", "S1"}, tmpdir)
	assert.NoError(t, err)
	assert.EQ(t, len(matches), 2)
	// Selection order is preserved; the first matching BAM wins.
	expect.EQ(t, matches[0].Sample, "S2")
	expect.EQ(t, filepath.Base(matches[0].BAMPath), "S2.bam")
	expect.EQ(t, matches[1].Sample, "S1")
	expect.EQ(t, filepath.Base(matches[1].BAMPath), "S1_L001.bam")
	expect.EQ(t, matches[1].Stem(), "S1_L001")
}

func TestMatchBAMsUnmatched(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	for _, name := range []string{"S1_L001.bam", "S2.bam"} {
		assert.NoError(t, os.WriteFile(filepath.Join(tmpdir, name), nil, 0644))
	}

	_, err := MatchBAMs([]string{"S1", "S3", "S4"}, tmpdir)
	expect.True(t, err != nil)
	// Every unmatched sample is named in one aggregated error, with the
	// closest BAM stem as a typo hint.
	assert.HasSubstr(t, err.Error(), "S3")
	assert.HasSubstr(t, err.Error(), "S4")
	assert.HasSubstr(t, err.Error(), "closest BAM")
}

func TestStem(t *testing.T) {
	expect.EQ(t, Stem("/p/Alignment/S1_L001.bam"), "S1_L001")
	expect.EQ(t, Stem("S2.pbcov"), "S2")
	expect.EQ(t, Stem("noext"), "noext")
}
