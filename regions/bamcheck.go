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
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/bam"
)

// BAMRegions pairs a BAM file with the regions that will be evaluated
// against its header.
type BAMRegions struct {
	BAMPath string
	Regions []Region
}

// ValidateAllBAMContigs runs ValidateBAMContigs over every pair and collects
// the failures into one error, so a run with several bad samples reports all
// of them at once instead of stopping at the first BAM.
func ValidateAllBAMContigs(ctx context.Context, pairs []BAMRegions) error {
	var msgs []string
	for _, p := range pairs {
		if err := ValidateBAMContigs(ctx, p.BAMPath, p.Regions); err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) > 0 {
		return errors.E(strings.Join(msgs, "; "))
	}
	return nil
}

// ValidateBAMContigs checks a sample's regions against the reference
// dictionary in the BAM header.  A region on a contig absent from the header
// is an error (the coverage tool would silently produce no rows for it); all
// such regions are reported in one aggregated error.  A region extending past
// the contig length is only logged, since trailing bases merely truncate the
// coverage profile.
func ValidateBAMContigs(ctx context.Context, bamPath string, regions []Region) (err error) {
	in, err := file.Open(ctx, bamPath)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, in, &err)
	br, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return errors.E(err, "cannot read BAM header:", bamPath)
	}
	defer func() {
		if e := br.Close(); e != nil && err == nil {
			err = e
		}
	}()

	contigLen := map[string]int{}
	for _, ref := range br.Header().Refs() {
		contigLen[ref.Name()] = ref.Len()
	}

	var missing []string
	for _, r := range regions {
		n, ok := contigLen[r.Chrom]
		if !ok {
			missing = append(missing, r.Name+" ("+r.Chrom+")")
			continue
		}
		if r.End > n {
			log.Error.Printf("%s: amplicon %s ends at %d, past the end of %s (%d)",
				bamPath, r.Name, r.End, r.Chrom, n)
		}
	}
	if len(missing) > 0 {
		return errors.E("regions reference contigs absent from", bamPath+":",
			strings.Join(missing, ", "))
	}
	return nil
}
