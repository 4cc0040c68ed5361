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
	"context"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/impute/hap"
)

// gtFormat makes bcftools print one line per variant with a
// tab-terminated GT field per sample.
const gtFormat = `[%GT\t]\n`

// legendFormat is the site-metadata query matching hap.Site.
const legendFormat = `%CHROM\t%POS\t%ID\t%REF\t%ALT\n`

// convertHaplotypes streams "bcftools query -f '[%GT\t]\n'" output
// through the diplotype→haplotype expansion into outPath and returns
// the number of variant rows written.
func convertHaplotypes(ctx context.Context, bcftools, vcfPath, outPath string) (nRow int, err error) {
	out, err := file.Create(ctx, outPath)
	if err != nil {
		return 0, err
	}
	defer file.CloseAndReport(ctx, out, &err)
	tsvw := tsv.NewWriter(out.Writer(ctx))

	err = runToolLines(ctx, func(line string) error {
		fields := strings.Split(strings.TrimRight(line, "\t"), "\t")
		for _, col := range hap.SplitDiplotypes(fields) {
			tsvw.WriteString(col)
		}
		nRow++
		return tsvw.EndLine()
	}, bcftools, "query", "-f", gtFormat, vcfPath)
	if err != nil {
		return nRow, err
	}
	return nRow, tsvw.Flush()
}

// extractLegend writes the CHROM/POS/ID/REF/ALT legend table for
// vcfPath and returns its row count.
func extractLegend(ctx context.Context, bcftools, vcfPath, outPath string) (nRow int, err error) {
	out, err := file.Create(ctx, outPath)
	if err != nil {
		return 0, err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := out.Writer(ctx)

	err = runToolLines(ctx, func(line string) error {
		if _, err := w.Write(append([]byte(line), '\n')); err != nil {
			return err
		}
		nRow++
		return nil
	}, bcftools, "query", "-f", legendFormat, vcfPath)
	return nRow, err
}

// sampleNames returns the sample column names of vcfPath, in order.
func sampleNames(ctx context.Context, bcftools, vcfPath string) ([]string, error) {
	var samples []string
	err := runToolLines(ctx, func(line string) error {
		if line != "" {
			samples = append(samples, line)
		}
		return nil
	}, bcftools, "query", "-l", vcfPath)
	return samples, err
}
