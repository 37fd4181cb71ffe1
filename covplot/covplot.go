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

// Package covplot renders per-base coverage profiles, one PNG per
// (feature, sample) pair.
package covplot

import (
	"image/color"
	"path/filepath"
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/covqc/coverage"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Options controls which plots are rendered.
type Options struct {
	// CovThreshold draws a horizontal reference line at this depth when > 0.
	CovThreshold int
	// Features restricts rendering to these feature names.  Nil means every
	// feature present in the table.
	Features []string
	// Samples restricts rendering to these samples.  Nil means every sample
	// present within each feature's rows.
	Samples []string
}

// Render draws one coverage-versus-position line plot per (feature, sample)
// pair found in recs and writes each to outDir as
// <sample>-<feature>.pbcov.png.  The y-axis spans [0, feature max depth + 50]
// and the x-axis [0, feature max base + 1], shared across the feature's
// samples so profiles are visually comparable.  Empty selections render zero
// images and are not an error.
func Render(recs []coverage.Record, outDir string, opts Options) error {
	features := opts.Features
	if features == nil {
		features = distinct(recs, func(r coverage.Record) string { return r.Feature })
	}

	for _, feature := range features {
		var featRecs []coverage.Record
		maxCov, maxBase := 0, 0
		for _, r := range recs {
			if r.Feature != feature {
				continue
			}
			featRecs = append(featRecs, r)
			if r.Coverage > maxCov {
				maxCov = r.Coverage
			}
			if r.Base > maxBase {
				maxBase = r.Base
			}
		}

		samples := opts.Samples
		if samples == nil {
			samples = distinct(featRecs, func(r coverage.Record) string { return r.Sample })
		}
		for _, sample := range samples {
			var xys plotter.XYs
			for _, r := range featRecs {
				if r.Sample != sample {
					continue
				}
				xys = append(xys, plotter.XY{X: float64(r.Base), Y: float64(r.Coverage)})
			}
			if len(xys) == 0 {
				continue
			}
			name := sample + "-" + feature + ".pbcov.png"
			path := filepath.Join(outDir, name)
			if err := renderOne(xys, feature, maxCov, maxBase, opts.CovThreshold, path); err != nil {
				return err
			}
			log.Debug.Printf("wrote %s", path)
		}
	}
	return nil
}

func renderOne(xys plotter.XYs, feature string, maxCov, maxBase, covThreshold int, path string) error {
	p := plot.New()
	p.Title.Text = feature
	p.X.Label.Text = "Position (bp)"
	p.Y.Label.Text = "Coverage"
	p.X.Min, p.X.Max = 0, float64(maxBase+1)
	p.Y.Min, p.Y.Max = 0, float64(maxCov+50)

	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	line.LineStyle.Color = color.NRGBA{A: 128} // translucent black
	p.Add(line)

	if covThreshold > 0 {
		t := float64(covThreshold)
		ref, err := plotter.NewLine(plotter.XYs{
			{X: p.X.Min, Y: t},
			{X: p.X.Max, Y: t},
		})
		if err != nil {
			return err
		}
		ref.LineStyle.Color = color.NRGBA{R: 255, A: 255}
		p.Add(ref)
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}

// distinct returns the sorted distinct values of key over recs.
func distinct(recs []coverage.Record, key func(coverage.Record) string) []string {
	seen := map[string]bool{}
	var vals []string
	for _, r := range recs {
		k := key(r)
		if !seen[k] {
			seen[k] = true
			vals = append(vals, k)
		}
	}
	sort.Strings(vals)
	return vals
}
