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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// SampleBAM binds a selected sample ID to the BAM file it was matched to.
type SampleBAM struct {
	Sample  string
	BAMPath string
}

// Stem returns the BAM filename stem, which names the sample's region
// definition and coverage files downstream.
func (s SampleBAM) Stem() string {
	return Stem(s.BAMPath)
}

// ListBAMs returns the .bam files in dir in lexicographic order.
func ListBAMs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.E(err, "cannot list alignment folder:", dir)
	}
	var bams []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".bam") {
			continue
		}
		bams = append(bams, e.Name())
	}
	log.Debug.Printf("BAM files found: %q", bams)
	return bams, nil
}

// MatchBAMs matches each selected sample, in selection order, to the first
// BAM filename that starts with the sample ID.  If any sample has no matching
// BAM the whole run fails with a single aggregated error naming every
// unmatched sample, before any external tool is invoked.  The error includes
// the closest BAM stem by edit distance as a hint for typos in the selection
// list.
func MatchBAMs(samples []string, alignmentDir string) ([]SampleBAM, error) {
	bams, err := ListBAMs(alignmentDir)
	if err != nil {
		return nil, err
	}
	var (
		matched   []SampleBAM
		unmatched []string
	)
	for _, sample := range samples {
		found := false
		for _, bam := range bams {
			if strings.HasPrefix(bam, sample) {
				matched = append(matched, SampleBAM{
					Sample:  sample,
					BAMPath: filepath.Join(alignmentDir, bam),
				})
				found = true
				break
			}
		}
		if !found {
			if hint := closestStem(sample, bams); hint != "" {
				unmatched = append(unmatched, fmt.Sprintf("%s (closest BAM: %s)", sample, hint))
			} else {
				unmatched = append(unmatched, sample)
			}
		}
	}
	if len(unmatched) > 0 {
		return nil, errors.E("no BAM file for samples:", strings.Join(unmatched, ", "))
	}
	return matched, nil
}

// closestStem returns the BAM stem with the smallest Levenshtein distance to
// sample, or "" when there are no BAMs.
func closestStem(sample string, bams []string) string {
	best, bestDist := "", -1
	for _, bam := range bams {
		stem := Stem(bam)
		d := matchr.Levenshtein(sample, stem)
		if bestDist < 0 || d < bestDist {
			best, bestDist = stem, d
		}
	}
	return best
}
