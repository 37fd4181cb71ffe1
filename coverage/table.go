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

package coverage

import (
	"bufio"
	"context"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// NumCols is the merged table schema width: ref, start, end, feature, base,
// coverage, sample.
const NumCols = 7

// Record is one row of the merged coverage table: the depth at one base
// offset of one amplicon of one sample.  Records are immutable once parsed.
type Record struct {
	Ref      string
	Start    int
	End      int
	Feature  string
	Base     int
	Coverage int
	Sample   string
}

// ReadTable loads the merged coverage file.  A row whose field count
// mismatches the 7-column schema, or whose numeric fields do not parse, or
// whose coverage is negative, is logged as an error and skipped: the table
// still loads, but columns are never force-misassigned.
func ReadTable(ctx context.Context, path string) (recs []Record, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)

	scanner := bufio.NewScanner(in.Reader(ctx))
	lineNo := 0
	nBad := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) != NumCols {
			log.Error.Printf("%s:%d: incorrect number of columns (%d, want %d), row skipped",
				path, lineNo, len(fields), NumCols)
			nBad++
			continue
		}
		rec, ok := parseRecord(fields)
		if !ok {
			log.Error.Printf("%s:%d: malformed row, skipped", path, lineNo)
			nBad++
			continue
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if nBad > 0 {
		log.Error.Printf("%s: %d malformed row(s) skipped out of %d", path, nBad, lineNo)
	}
	return recs, nil
}

func parseRecord(fields []string) (Record, bool) {
	start, err := strconv.Atoi(fields[1])
	if err != nil {
		return Record{}, false
	}
	end, err := strconv.Atoi(fields[2])
	if err != nil {
		return Record{}, false
	}
	base, err := strconv.Atoi(fields[4])
	if err != nil {
		return Record{}, false
	}
	cov, err := strconv.Atoi(fields[5])
	if err != nil || cov < 0 {
		return Record{}, false
	}
	return Record{
		Ref:      fields[0],
		Start:    start,
		End:      end,
		Feature:  fields[3],
		Base:     base,
		Coverage: cov,
		Sample:   fields[6],
	}, true
}
