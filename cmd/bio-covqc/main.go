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
package main

/*
bio-covqc is a coverage-QC pipeline for targeted sequencing projects.  Given
a project folder with Alignment/<sample>.bam files, a master amplicon table
and a sample selection list, it computes per-base coverage over each sample's
amplicons with BEDtools, renders per-amplicon coverage plots, and writes a
spreadsheet of coverage breadth against a depth threshold.
*/

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/covqc/bedtools"
	"github.com/grailbio/covqc/coverage"
	"github.com/grailbio/covqc/covplot"
	"github.com/grailbio/covqc/project"
	"github.com/grailbio/covqc/regions"
	"github.com/grailbio/covqc/report"
)

const defaultCovThreshold = 100

var (
	projectDir   = flag.String("project", "", "Project folder (required)")
	verbose      = flag.Bool("verbose", false, "Increase output verbosity")
	covThreshold = flag.Int("cov_threshold", defaultCovThreshold, "Coverage threshold; 0 disables breadth reporting")
)

func bioCovqcUsage() {
	fmt.Printf("Usage: %s -project dir [-verbose] [-cov_threshold N]\n", os.Args[0])
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
}

// stderrOutputter writes "[LEVEL] message" lines to stderr, suppressing
// events above its verbosity level.  It is installed exactly once, in main;
// no component mutates logging state.
type stderrOutputter struct {
	level log.Level
}

func (o stderrOutputter) Level() log.Level { return o.level }

func (o stderrOutputter) Output(calldepth int, level log.Level, s string) error {
	if level > o.level {
		return nil
	}
	_, err := fmt.Fprintf(os.Stderr, "[%s] %s\n", levelName(level), s)
	return err
}

func levelName(level log.Level) string {
	switch level {
	case log.Error:
		return "ERROR"
	case log.Debug:
		return "DEBUG"
	default:
		return "INFO"
	}
}

func main() {
	flag.Usage = bioCovqcUsage
	shutdown := grail.Init()
	defer shutdown()

	level := log.Error
	if *verbose {
		level = log.Debug
	}
	log.SetOutputter(stderrOutputter{level: level})

	if *projectDir == "" {
		log.Fatalf("-project is required")
	}
	ctx := vcontext.Background()
	if err := run(ctx, *projectDir, *covThreshold); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, projectDir string, covThreshold int) error {
	// Validation: project layout, selection list, BAM matching and contig
	// checks all happen before any output folder is touched.
	layout, err := project.Resolve(projectDir, covThreshold)
	if err != nil {
		return err
	}
	samples, err := project.ReadSampleSelection(ctx, layout.SampleSelectionPath)
	if err != nil {
		return err
	}
	matches, err := project.MatchBAMs(samples, layout.AlignmentDir)
	if err != nil {
		return err
	}
	master, err := regions.ReadMasterTable(ctx, layout.SampleDataPath)
	if err != nil {
		return err
	}
	pairs := make([]regions.BAMRegions, 0, len(matches))
	for _, m := range matches {
		pairs = append(pairs, regions.BAMRegions{
			BAMPath: m.BAMPath,
			Regions: master.Sample(m.Sample),
		})
	}
	if err := regions.ValidateAllBAMContigs(ctx, pairs); err != nil {
		return err
	}

	log.Printf("creating output folders")
	if err := layout.CreateOutputDirs(); err != nil {
		return err
	}

	log.Printf("writing region definitions")
	invs := make([]bedtools.Invocation, 0, len(matches))
	for _, m := range matches {
		regs := master.Sample(m.Sample)
		if len(regs) == 0 {
			log.Error.Printf("sample %s has no rows in the master table", m.Sample)
		}
		bedPath := filepath.Join(layout.BedDir, m.Stem()+".bed")
		if err := regions.WriteBED(ctx, regs, bedPath); err != nil {
			return err
		}
		invs = append(invs, bedtools.Invocation{
			Sample:  m.Sample,
			BedPath: bedPath,
			BAMPath: m.BAMPath,
			OutPath: filepath.Join(layout.CovDir, m.Stem()+coverage.PbcovSuffix),
		})
	}

	log.Printf("running BEDtools")
	if err := bedtools.RunAll(ctx, bedtools.Command{Template: bedtools.DefaultCommand}, invs); err != nil {
		return err
	}

	log.Printf("merging individual coverage files")
	covFiles, err := coverage.ListCovFiles(layout.CovDir)
	if err != nil {
		return err
	}
	mergedPath := filepath.Join(layout.CovDir, coverage.MergedCovName)
	if err := coverage.Merge(ctx, covFiles, mergedPath); err != nil {
		return err
	}

	log.Printf("reading merged coverage file")
	recs, err := coverage.ReadTable(ctx, mergedPath)
	if err != nil {
		return err
	}

	log.Printf("generating coverage plots")
	if err := covplot.Render(recs, layout.PlotDir, covplot.Options{CovThreshold: covThreshold}); err != nil {
		return err
	}

	log.Printf("writing coverage stats")
	rows := coverage.Aggregate(recs, covThreshold)
	return report.WriteStats(rows, filepath.Join(layout.ReportDir, report.StatsName), covThreshold)
}
