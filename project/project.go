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

// Package project resolves and validates the on-disk layout of a coverage-QC
// project, reads the sample selection list, and matches selected samples to
// their BAM files.
package project

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

const (
	// DataFolder holds the pipeline inputs, relative to the project dir.
	DataFolder = "data"
	// SampleDataName is the master amplicon table, one row per
	// (sample, amplicon).
	SampleDataName = "SampleData.csv"
	// SampleSelectionName lists the sample IDs to process, one per line.
	SampleSelectionName = "SampleSelection.csv"
	// AlignmentFolder holds the pre-existing <sample>.bam files.
	AlignmentFolder = "Alignment"
	// BedFolder receives the per-sample region definition files.
	BedFolder = "beds"
	// CovFolder receives the per-sample and merged coverage files.
	CovFolder = "covs"
	// PlotFolder receives the per-(sample, feature) coverage plots.
	PlotFolder = "plots"
	// ReportFolder receives the stats spreadsheet.
	ReportFolder = "reports"
)

// Layout holds the absolute paths of every folder and input file the pipeline
// touches.  All paths are derived from the project directory.
type Layout struct {
	ProjectDir          string
	SampleDataPath      string
	SampleSelectionPath string
	AlignmentDir        string
	BedDir              string
	CovDir              string
	PlotDir             string
	ReportDir           string
}

// Resolve validates the project directory and required inputs and returns the
// resulting Layout.  covThreshold must be non-negative.  No output folder is
// created here; validation failures must abort the run before the project
// directory is modified in any way.
func Resolve(projectDir string, covThreshold int) (Layout, error) {
	var l Layout
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return l, err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return l, errors.E("project folder does not exist, check path:", abs)
	}
	l = Layout{
		ProjectDir:          abs,
		SampleDataPath:      filepath.Join(abs, DataFolder, SampleDataName),
		SampleSelectionPath: filepath.Join(abs, DataFolder, SampleSelectionName),
		AlignmentDir:        filepath.Join(abs, AlignmentFolder),
		BedDir:              filepath.Join(abs, BedFolder),
		CovDir:              filepath.Join(abs, CovFolder),
		PlotDir:             filepath.Join(abs, PlotFolder),
		ReportDir:           filepath.Join(abs, ReportFolder),
	}
	if _, err := os.Stat(l.SampleDataPath); err != nil {
		// A gzipped master table is also accepted.
		if _, e := os.Stat(l.SampleDataPath + ".gz"); e != nil {
			return l, errors.E(SampleDataName, "does not exist in", filepath.Join(abs, DataFolder))
		}
		l.SampleDataPath += ".gz"
	}
	if _, err := os.Stat(l.SampleSelectionPath); err != nil {
		return l, errors.E(SampleSelectionName, "does not exist in", filepath.Join(abs, DataFolder))
	}
	if covThreshold < 0 {
		return l, errors.E("coverage threshold must be a non-negative integer")
	}
	return l, nil
}

// CreateOutputDirs creates the beds/, covs/, plots/ and reports/ folders.  A
// folder that already exists is logged as a warning, not an error.
func (l Layout) CreateOutputDirs() error {
	for _, dir := range []string{l.BedDir, l.CovDir, l.PlotDir, l.ReportDir} {
		if _, err := os.Stat(dir); err == nil {
			log.Error.Printf("folder %q already exists", dir)
			continue
		}
		log.Debug.Printf("creating folder %q", dir)
		if err := os.MkdirAll(dir, 0775); err != nil {
			return errors.E(err, "unable to create output folder, check permissions:", dir)
		}
	}
	return nil
}

// ReadSampleSelection reads the sample selection list: one sample ID per
// line, whitespace-trimmed, blank lines skipped, order preserved.
func ReadSampleSelection(ctx context.Context, path string) (samples []string, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	scanner := bufio.NewScanner(in.Reader(ctx))
	for scanner.Scan() {
		sample := strings.TrimSpace(scanner.Text())
		if sample == "" {
			continue
		}
		samples = append(samples, sample)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	log.Debug.Printf("samples specified: %q", samples)
	return samples, nil
}

// Stem returns the filename without its directory and final extension, e.g.
// "/p/Alignment/S1_L001.bam" -> "S1_L001".
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
