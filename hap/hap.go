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

// Package hap implements the text encodings used by the imputation
// pipeline: diplotype (paired, VCF-style "0|1") and haplotype
// (per-chromosome-copy, one column per allele call) genotype matrices,
// plus the legend table describing each variant site.
package hap

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
)

// Missing is the haplotype-matrix marker for an allele call that is
// absent in the source data and must be filled in by imputation.
const Missing = "?"

// DiplotypeSeparator joins two haplotype columns back into a VCF GT
// field. bcftools emits either "|" (phased) or "/" (unphased); the
// reassembled output is always written as phased, since the imputed
// haplotypes carry phase by construction.
const DiplotypeSeparator = "|"

// SplitDiplotypes expands one row of VCF GT fields, as printed by
// "bcftools query -f '[%GT\t]\n'", into haplotype columns. Each field
// splits on "|" or "/" into two columns; a haploid field contributes a
// single column. Missing calls (".") become Missing markers.
func SplitDiplotypes(fields []string) []string {
	out := make([]string, 0, 2*len(fields))
	for _, f := range fields {
		for _, allele := range strings.FieldsFunc(f, isSeparator) {
			if allele == "." {
				allele = Missing
			}
			out = append(out, allele)
		}
	}
	return out
}

func isSeparator(r rune) bool {
	return r == '|' || r == '/'
}

// PairHaplotypes is the inverse of SplitDiplotypes for diploid rows: it
// joins adjacent haplotype columns with DiplotypeSeparator. An odd
// column count cannot be paired and is an error.
func PairHaplotypes(cols []string) ([]string, error) {
	if len(cols)%2 != 0 {
		return nil, errors.E("hap: cannot pair odd number of haplotype columns", fmt.Sprint(len(cols)))
	}
	out := make([]string, 0, len(cols)/2)
	for i := 0; i < len(cols); i += 2 {
		out = append(out, cols[i]+DiplotypeSeparator+cols[i+1])
	}
	return out, nil
}
