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

package hap

import (
	"bufio"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// ReadMatrix reads a whitespace-separated haplotype matrix, one row per
// variant. Blank lines are skipped. The external imputation program is
// not guaranteed to preserve the tab separators it was given, so any
// run of spaces or tabs delimits columns on input.
func ReadMatrix(r io.Reader) ([][]string, error) {
	var rows [][]string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		rows = append(rows, strings.Fields(line))
	}
	if err := sc.Err(); err != nil {
		return nil, errors.E(err, "hap: reading matrix")
	}
	return rows, nil
}

// WriteMatrix writes rows tab-separated, one line per row, no header.
func WriteMatrix(w io.Writer, rows [][]string) error {
	tsvw := tsv.NewWriter(w)
	for _, row := range rows {
		for _, col := range row {
			tsvw.WriteString(col)
		}
		if err := tsvw.EndLine(); err != nil {
			return err
		}
	}
	return tsvw.Flush()
}
