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

// Package regions reads the master amplicon table and writes the per-sample
// region definition (BED) files consumed by the external coverage tool.
package regions

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/klauspost/compress/gzip"
)

// Required master table columns.  The table may carry extra columns; they are
// ignored.
const (
	colSampleID = "sample_ID"
	colChrom    = "chromosome"
	colStart    = "amplicon_start"
	colEnd      = "amplicon_end"
	colName     = "amplicon_name"
)

// Region is one amplicon: a (chromosome, start, end, name) tuple.
type Region struct {
	Chrom string
	Start int
	End   int
	Name  string
}

// MasterTable holds the amplicon definitions of every sample, preserving the
// row order of the input file within each sample.
type MasterTable struct {
	bySample map[string][]Region
}

// Sample returns the regions of the given sample ID, in file order.  A sample
// absent from the table yields nil.
func (m *MasterTable) Sample(id string) []Region {
	return m.bySample[id]
}

// NumSamples returns the number of distinct sample IDs in the table.
func (m *MasterTable) NumSamples() int {
	return len(m.bySample)
}

// ReadMasterTable parses the master amplicon table: tab-delimited, header row
// containing at least the sample_ID, chromosome, amplicon_start, amplicon_end
// and amplicon_name columns.  A path ending in .gz is decompressed on the
// fly.  Malformed rows are configuration errors and abort the run.
func ReadMasterTable(ctx context.Context, path string) (m *MasterTable, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)

	reader := in.Reader(ctx)
	if strings.HasSuffix(path, ".gz") {
		gz, gzErr := gzip.NewReader(reader)
		if gzErr != nil {
			return nil, errors.E(gzErr, "cannot decompress master table:", path)
		}
		defer func() {
			if e := gz.Close(); e != nil && err == nil {
				err = e
			}
		}()
		reader = gz
	}

	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		return nil, errors.E("master table is empty:", path)
	}
	idx, err := headerIndex(scanner.Text(), path)
	if err != nil {
		return nil, err
	}

	m = &MasterTable{bySample: map[string][]Region{}}
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		sample, region, err := parseRow(fields, idx)
		if err != nil {
			return nil, errors.E(err, "master table", path+":"+strconv.Itoa(lineNo))
		}
		m.bySample[sample] = append(m.bySample[sample], region)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	log.Debug.Printf("master table %s: %d samples", path, len(m.bySample))
	return m, nil
}

// columnIndex maps the required column names to their positions in the header
// row.
type columnIndex struct {
	sample, chrom, start, end, name int
}

func headerIndex(header, path string) (columnIndex, error) {
	idx := columnIndex{-1, -1, -1, -1, -1}
	for i, col := range strings.Split(header, "\t") {
		switch strings.TrimSpace(col) {
		case colSampleID:
			idx.sample = i
		case colChrom:
			idx.chrom = i
		case colStart:
			idx.start = i
		case colEnd:
			idx.end = i
		case colName:
			idx.name = i
		}
	}
	for _, c := range []struct {
		pos  int
		name string
	}{
		{idx.sample, colSampleID},
		{idx.chrom, colChrom},
		{idx.start, colStart},
		{idx.end, colEnd},
		{idx.name, colName},
	} {
		if c.pos < 0 {
			return idx, errors.E("master table", path, "is missing required column", c.name)
		}
	}
	return idx, nil
}

func parseRow(fields []string, idx columnIndex) (string, Region, error) {
	need := idx.sample
	for _, i := range []int{idx.chrom, idx.start, idx.end, idx.name} {
		if i > need {
			need = i
		}
	}
	if len(fields) <= need {
		return "", Region{}, errors.E("row has too few columns")
	}
	start, err := strconv.Atoi(strings.TrimSpace(fields[idx.start]))
	if err != nil {
		return "", Region{}, errors.E("bad", colStart, "value:", fields[idx.start])
	}
	end, err := strconv.Atoi(strings.TrimSpace(fields[idx.end]))
	if err != nil {
		return "", Region{}, errors.E("bad", colEnd, "value:", fields[idx.end])
	}
	region := Region{
		Chrom: strings.TrimSpace(fields[idx.chrom]),
		Start: start,
		End:   end,
		Name:  strings.TrimSpace(fields[idx.name]),
	}
	return strings.TrimSpace(fields[idx.sample]), region, nil
}

// WriteBED writes the regions to a headerless tab-delimited file with
// (chromosome, start, end, name) columns.  An existing file is overwritten
// with a logged warning.  Overlapping regions are logged as warnings but do
// not fail the write.
func WriteBED(ctx context.Context, regions []Region, path string) (err error) {
	if _, e := os.Stat(path); e == nil {
		log.Error.Printf("file %q already exists, overwriting", path)
	}
	for _, pair := range Overlapping(regions) {
		log.Error.Printf("%s: amplicons %s and %s overlap on %s",
			path, pair[0].Name, pair[1].Name, pair[0].Chrom)
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := tsv.NewWriter(out.Writer(ctx))
	for _, r := range regions {
		w.WriteString(r.Chrom)
		w.WriteInt64(int64(r.Start))
		w.WriteInt64(int64(r.End))
		w.WriteString(r.Name)
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}
