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
package regions

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

// masterContent carries an extra "panel" column to check that unknown
// columns are ignored, and lists S2 before S1 to check per-sample ordering is
// file order.
const masterContent = "sample_ID\tpanel\tchromosome\tamplicon_start\tamplicon_end\tamplicon_name\n" +
	"S2\tp1\tchr2\t500\t600\tampB\n" +
	"S1\tp1\tchr1\t100\t200\tampA\n" +
	"S1\tp1\tchr1\t300\t400\tampB\n"

func TestReadMasterTable(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := context.Background()

	path := filepath.Join(tmpdir, "SampleData.csv")
	assert.NoError(t, os.WriteFile(path, []byte(masterContent), 0644))

	m, err := ReadMasterTable(ctx, path)
	assert.NoError(t, err)
	expect.EQ(t, m.NumSamples(), 2)
	expect.EQ(t, m.Sample("S1"), []Region{
		{Chrom: "chr1", Start: 100, End: 200, Name: "ampA"},
		{Chrom: "chr1", Start: 300, End: 400, Name: "ampB"},
	})
	expect.EQ(t, m.Sample("S2"), []Region{
		{Chrom: "chr2", Start: 500, End: 600, Name: "ampB"},
	})
	expect.Nil(t, m.Sample("S3"))
}

func TestReadMasterTableGzip(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := context.Background()

	path := filepath.Join(tmpdir, "SampleData.csv.gz")
	out, err := os.Create(path)
	assert.NoError(t, err)
	gz := gzip.NewWriter(out)
	_, err = gz.Write([]byte(masterContent))
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())
	assert.NoError(t, out.Close())

	m, err := ReadMasterTable(ctx, path)
	assert.NoError(t, err)
	expect.EQ(t, m.NumSamples(), 2)
	expect.EQ(t, len(m.Sample("S1")), 2)
}

func TestReadMasterTableMissingColumn(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := context.Background()

	path := filepath.Join(tmpdir, "SampleData.csv")
	assert.NoError(t, os.WriteFile(path,
		[]byte("sample_ID\tchromosome\tamplicon_start\tamplicon_end\nS1\tchr1\t1\t2\n"), 0644))
	_, err := ReadMasterTable(ctx, path)
	expect.True(t, err != nil)
	assert.HasSubstr(t, err.Error(), "amplicon_name")
}

func TestReadMasterTableBadCoordinate(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := context.Background()

	path := filepath.Join(tmpdir, "SampleData.csv")
	assert.NoError(t, os.WriteFile(path,
		[]byte("sample_ID\tchromosome\tamplicon_start\tamplicon_end\tamplicon_name\n"+
			"S1\tchr1\toops\t200\tampA\n"), 0644))
	_, err := ReadMasterTable(ctx, path)
	expect.True(t, err != nil)
}

func TestWriteBED(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := context.Background()

	path := filepath.Join(tmpdir, "S1_L001.bed")
	regs := []Region{
		{Chrom: "chr1", Start: 100, End: 200, Name: "ampA"},
		{Chrom: "chr1", Start: 300, End: 400, Name: "ampB"},
	}
	assert.NoError(t, WriteBED(ctx, regs, path))
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	expect.EQ(t, string(data), "chr1\t100\t200\tampA\nchr1\t300\t400\tampB\n")

	// Overwriting an existing file warns but succeeds.
	assert.NoError(t, WriteBED(ctx, regs[:1], path))
	data, err = os.ReadFile(path)
	assert.NoError(t, err)
	expect.EQ(t, string(data), "chr1\t100\t200\tampA\n")
}

func TestOverlapping(t *testing.T) {
	regs := []Region{
		{Chrom: "chr1", Start: 100, End: 200, Name: "ampA"},
		{Chrom: "chr1", Start: 150, End: 250, Name: "ampB"}, // overlaps ampA
		{Chrom: "chr1", Start: 200, End: 300, Name: "ampC"}, // abuts ampA, overlaps ampB
		{Chrom: "chr2", Start: 100, End: 200, Name: "ampD"}, // other chromosome
	}
	pairs := Overlapping(regs)
	assert.EQ(t, len(pairs), 2)
	expect.EQ(t, pairs[0][0].Name, "ampA")
	expect.EQ(t, pairs[0][1].Name, "ampB")
	expect.EQ(t, pairs[1][0].Name, "ampB")
	expect.EQ(t, pairs[1][1].Name, "ampC")

	expect.EQ(t, len(Overlapping(nil)), 0)
}
