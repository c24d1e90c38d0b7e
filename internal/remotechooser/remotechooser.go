/*
Copyright 2025 The flatrun Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package remotechooser implements the Remote Chooser (§4.5): the sole
// interactive surface of the transaction core, factored behind a small
// injectable Chooser interface so tests and automation can substitute a
// deterministic strategy instead of the interactive prompt.
package remotechooser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Chooser selects one remote among candidates for an unsatisfied dependency,
// or reports that the caller aborted.
type Chooser interface {
	// Choose returns the chosen remote name and true, or ("", false) if the
	// caller aborted. candidates must be non-empty.
	Choose(ctx context.Context, candidates []string) (string, bool)
}

// Interactive is the default Chooser: a single candidate is confirmed with a
// yes/no prompt, multiple candidates are presented as a numbered menu where
// 0 aborts.
type Interactive struct {
	In  io.Reader
	Out io.Writer
}

// NewInteractive returns an Interactive chooser reading from in and writing
// prompts to out.
func NewInteractive(in io.Reader, out io.Writer) *Interactive {
	return &Interactive{In: in, Out: out}
}

// Choose implements Chooser.
func (c *Interactive) Choose(_ context.Context, candidates []string) (string, bool) {
	reader := bufio.NewReader(c.In)

	if len(candidates) == 1 {
		fmt.Fprintf(c.Out, "Found in remote %s, do you want to install it?\n", candidates[0])
		line, _ := reader.ReadString('\n')
		if strings.EqualFold(strings.TrimSpace(line), "y") || strings.EqualFold(strings.TrimSpace(line), "yes") {
			return candidates[0], true
		}
		return "", false
	}

	fmt.Fprintln(c.Out, "Found in multiple remotes, please pick one:")
	for i, r := range candidates {
		fmt.Fprintf(c.Out, "  %d) %s\n", i+1, r)
	}
	fmt.Fprint(c.Out, "Enter a number (0 to abort): ")

	line, _ := reader.ReadString('\n')
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n <= 0 || n > len(candidates) {
		return "", false
	}

	return candidates[n-1], true
}

// First is a non-interactive Chooser that always picks the first candidate,
// for tests and unattended automation.
type First struct{}

// Choose implements Chooser.
func (First) Choose(_ context.Context, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[0], true
}

// Abort is a non-interactive Chooser that always aborts, for tests that
// exercise the RuntimeMissing path.
type Abort struct{}

// Choose implements Chooser.
func (Abort) Choose(_ context.Context, _ []string) (string, bool) {
	return "", false
}
