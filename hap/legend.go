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
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
)

// Site is one row of the legend table: the variant metadata needed to
// rebuild a VCF record, independent of any sample genotypes. Pos stays
// a string; the pipeline never does arithmetic on it, and preserving
// the exact bcftools output avoids pointless reformatting.
type Site struct {
	Chrom string
	Pos   string
	ID    string
	Ref   string
	Alt   string
}

// ReadLegend parses a tab-separated CHROM/POS/ID/REF/ALT legend table
// as produced by the legend-extraction step.
func ReadLegend(r io.Reader) ([]Site, error) {
	var sites []Site
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r\n")
		if text == "" {
			continue
		}
		cols := strings.Split(text, "\t")
		if len(cols) != 5 {
			return nil, errors.E("hap: legend line has wrong column count", fmt.Sprint(line), fmt.Sprint(len(cols)))
		}
		sites = append(sites, Site{
			Chrom: cols[0],
			Pos:   cols[1],
			ID:    cols[2],
			Ref:   cols[3],
			Alt:   cols[4],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.E(err, "hap: reading legend")
	}
	return sites, nil
}
