// Copyright 2020 Grail Inc.
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

package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// checkTools verifies up front that every external binary the run will
// invoke is on PATH (or at its configured location), so a half-finished
// pipeline doesn't die on a missing tool several steps in.
func checkTools(opts *Opts) error {
	tools := []string{opts.Bcftools, opts.Imputer}
	if opts.RefPanel != "" {
		tools = append(tools, opts.Tabix)
	}
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			return errors.Wrapf(err, "required external tool %q not found", tool)
		}
	}
	return nil
}

// runTool runs an external command synchronously, discarding stdout
// unless w is non-nil. stderr is captured and folded into the returned
// error, since bcftools and friends put their diagnostics there.
func runTool(ctx context.Context, w io.Writer, name string, args ...string) error {
	log.Printf("run: %s %s", name, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if w != nil {
		cmd.Stdout = w
	}
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%s %s: %s", name, strings.Join(args, " "),
			strings.TrimSpace(stderr.String()))
	}
	return nil
}

// runToolLines runs an external command and calls fn once per stdout
// line, with the trailing newline removed.
func runToolLines(ctx context.Context, fn func(line string) error, name string, args ...string) error {
	log.Printf("run: %s %s", name, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, name)
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, name)
	}
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	for sc.Scan() {
		if err := fn(sc.Text()); err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return err
		}
	}
	scanErr := sc.Err()
	if err := cmd.Wait(); err != nil {
		return errors.Wrapf(err, "%s %s: %s", name, strings.Join(args, " "),
			strings.TrimSpace(stderr.String()))
	}
	if scanErr != nil {
		return errors.Wrapf(scanErr, "%s: reading output", name)
	}
	return nil
}
