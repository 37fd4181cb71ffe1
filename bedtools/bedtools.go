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

// Package bedtools invokes the external per-base coverage tool, one
// synchronous subprocess per sample.
package bedtools

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// DefaultCommand computes per-base coverage of $bam over the regions in
// $bed, dropping the trailing "all ..." summary rows.  Requires BEDtools
// v2.19.0 or above.
const DefaultCommand = `coverageBed -d -a $bed -b $bam | grep -v '^all' > $out`

// Command is a shell command template with $bed, $bam and $out placeholders.
type Command struct {
	Template string
}

// Invocation carries the per-sample substitution values for one run of the
// coverage tool.
type Invocation struct {
	Sample  string
	BedPath string
	BAMPath string
	OutPath string
}

// Result is the typed outcome of one tool invocation.
type Result struct {
	// Command is the fully substituted command line that was executed.
	Command string
	// ExitCode is the subprocess exit status; -1 if it did not run.
	ExitCode int
	// Stderr is the captured error stream.
	Stderr string
}

// placeholder matches $name tokens in the template.
var placeholder = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

// safeValue is the set of characters allowed in a substitution value.  The
// expanded template is passed to a shell, so values are restricted to
// characters that cannot terminate or extend the command.
var safeValue = regexp.MustCompile(`^[A-Za-z0-9._/+=:,@-]+$`)

// Expand substitutes the $bed, $bam and $out placeholders in the template.
// An unknown placeholder or a substitution value containing shell
// metacharacters is an error; sample and path names must never be able to
// inject commands.
func (c Command) Expand(inv Invocation) (string, error) {
	vars := map[string]string{
		"bed": inv.BedPath,
		"bam": inv.BAMPath,
		"out": inv.OutPath,
	}
	for name, value := range vars {
		if !safeValue.MatchString(value) {
			return "", errors.Errorf("unsafe %s value in coverage command: %q", name, value)
		}
	}
	var expandErr error
	cmdLine := placeholder.ReplaceAllStringFunc(c.Template, func(tok string) string {
		value, ok := vars[tok[1:]]
		if !ok {
			expandErr = errors.Errorf("unknown placeholder %s in coverage command template", tok)
			return tok
		}
		return value
	})
	return cmdLine, expandErr
}

// Run expands the template for inv and executes it through the shell,
// blocking until the subprocess exits.  A nonzero exit status is returned as
// an error carrying the failing command line and its stderr; there is no
// retry and no timeout.
func (c Command) Run(ctx context.Context, inv Invocation) (Result, error) {
	cmdLine, err := c.Expand(inv)
	if err != nil {
		return Result{Command: cmdLine, ExitCode: -1}, err
	}
	log.Debug.Printf("%s: running %q", inv.Sample, cmdLine)
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", cmdLine)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	res := Result{
		Command:  cmdLine,
		ExitCode: -1,
		Stderr:   stderr.String(),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if runErr != nil {
		return res, errors.Wrapf(runErr, "failed BEDtools command %q: %s",
			cmdLine, strings.TrimSpace(res.Stderr))
	}
	return res, nil
}

// RunAll runs the coverage tool once per invocation, sequentially and in
// order.  The first failure aborts the whole run.
func RunAll(ctx context.Context, c Command, invs []Invocation) error {
	for _, inv := range invs {
		if _, err := c.Run(ctx, inv); err != nil {
			return err
		}
	}
	return nil
}
