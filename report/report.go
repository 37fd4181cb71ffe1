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

// Package report writes the coverage statistics spreadsheet.
package report

import (
	"fmt"

	"github.com/grailbio/covqc/coverage"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// SheetName is the single worksheet of the stats spreadsheet.
const SheetName = "stats"

// StatsName is the spreadsheet filename, written under reports/.
const StatsName = "stats.xlsx"

// Breadth-column fills, matching the usual "green good, red bad" QC reading.
const (
	fillComplete = "#C6EFCE" // breadth exactly 100
	fillMissing  = "#FFC7CE" // breadth exactly 0
	fillPartial  = "#FFD27F" // breadth strictly between 0 and 100
)

// WriteStats writes one spreadsheet row per (sample, feature) group to path.
// Columns are [sample, feature, min, max]; when covThreshold > 0 a
// %cov_breadth_<threshold>x column is appended and highlighted: exactly 100
// green, exactly 0 red, strictly in between orange.  No highlighting is
// applied without a threshold.
func WriteStats(rows []coverage.StatsRow, path string, covThreshold int) (err error) {
	f := excelize.NewFile()
	defer func() {
		if e := f.Close(); e != nil && err == nil {
			err = e
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	header := []interface{}{"sample", "feature", "min", "max"}
	if covThreshold > 0 {
		header = append(header, fmt.Sprintf("%%cov_breadth_%dx", covThreshold))
	}
	if err := setRow(f, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		cells := []interface{}{row.Sample, row.Feature, row.Min, row.Max}
		if covThreshold > 0 {
			cells = append(cells, row.Breadth)
		}
		if err := setRow(f, i+2, cells); err != nil {
			return err
		}
	}

	if covThreshold > 0 && len(rows) > 0 {
		if err := highlightBreadth(f, len(rows)); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "cannot write stats spreadsheet %q", path)
	}
	return nil
}

func setRow(f *excelize.File, row int, cells []interface{}) error {
	for col, v := range cells {
		name, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, name, v); err != nil {
			return err
		}
	}
	return nil
}

func highlightBreadth(f *excelize.File, nRows int) error {
	styleFor := func(hex string) (int, error) {
		return f.NewConditionalStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{hex}, Pattern: 1},
		})
	}
	complete, err := styleFor(fillComplete)
	if err != nil {
		return err
	}
	missing, err := styleFor(fillMissing)
	if err != nil {
		return err
	}
	partial, err := styleFor(fillPartial)
	if err != nil {
		return err
	}

	// The breadth column is E: sample, feature, min, max come first.
	cellRange := fmt.Sprintf("E2:E%d", nRows+1)
	return f.SetConditionalFormat(SheetName, cellRange, []excelize.ConditionalFormatOptions{
		{Type: "cell", Criteria: "==", Value: "100", Format: complete},
		{Type: "cell", Criteria: "==", Value: "0", Format: missing},
		{Type: "cell", Criteria: "between", MinValue: "0", MaxValue: "100", Format: partial},
	})
}
