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
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/impute/hap"
)

// vcfColumns is the fixed part of the reconstructed #CHROM line; the
// original sample names are appended to it.
var vcfColumns = []string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO", "FORMAT"}

// readHeader returns the "##" meta lines of vcfPath (plain or
// gzip-compressed) and the sample names from its #CHROM line.
func readHeader(ctx context.Context, vcfPath string) (meta []string, samples []string, err error) {
	in, err := file.Open(ctx, vcfPath)
	if err != nil {
		return nil, nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, vcfPath); u != nil {
		defer u.Close() // nolint: errcheck
		r = u
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "##"):
			meta = append(meta, line)
		case strings.HasPrefix(line, "#CHROM"):
			cols := strings.Split(line, "\t")
			if len(cols) > len(vcfColumns) {
				samples = cols[len(vcfColumns):]
			}
			return meta, samples, sc.Err()
		default:
			return nil, nil, errors.E("malformed VCF header: data before #CHROM line", vcfPath)
		}
	}
	if err = sc.Err(); err != nil {
		return nil, nil, err
	}
	return nil, nil, errors.E("no #CHROM line in VCF header", vcfPath)
}

// reassemble re-pairs the imputed haplotype columns into diplotype GT
// fields, pastes the legend columns to their left, and writes the final
// VCF: the original meta lines, a reconstructed #CHROM line with the
// original sample names, then one record per legend row. skipRows
// leading rows of the imputed matrix (reference-panel rows prepended by
// intersectPanel) are dropped before pairing.
func reassemble(ctx context.Context, p *paths, samples []string, skipRows int) (err error) {
	legendBytes, err := file.ReadFile(ctx, p.legend)
	if err != nil {
		return err
	}
	sites, err := hap.ReadLegend(strings.NewReader(string(legendBytes)))
	if err != nil {
		return err
	}
	in, err := file.Open(ctx, p.imputedHap)
	if err != nil {
		return err
	}
	imputed, err := hap.ReadMatrix(in.Reader(ctx))
	if e := in.Close(ctx); err == nil {
		err = e
	}
	if err != nil {
		return err
	}
	if len(imputed) != skipRows+len(sites) {
		return errors.E("imputed matrix row count does not match legend",
			p.imputedHap, fmt.Sprint(len(imputed)), "want", fmt.Sprint(skipRows+len(sites)))
	}
	imputed = imputed[skipRows:]

	meta, headerSamples, err := readHeader(ctx, p.vcf)
	if err != nil {
		return err
	}
	if len(headerSamples) != len(samples) {
		return errors.E("sample count changed between header and query",
			fmt.Sprint(len(headerSamples)), fmt.Sprint(len(samples)))
	}

	out, err := file.Create(ctx, p.outVCF)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := bufio.NewWriter(out.Writer(ctx))
	for _, line := range meta {
		if _, err = w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	header := strings.Join(append(append([]string{}, vcfColumns...), samples...), "\t")
	if _, err = w.WriteString(header + "\n"); err != nil {
		return err
	}

	tsvw := tsv.NewWriter(w)
	for i, site := range sites {
		gts, err := hap.PairHaplotypes(imputed[i])
		if err != nil {
			return errors.E(err, "row", fmt.Sprint(i))
		}
		if len(gts) != len(samples) {
			return errors.E("imputed row width does not match sample count",
				"row", fmt.Sprint(i), fmt.Sprint(len(gts)), "want", fmt.Sprint(len(samples)))
		}
		tsvw.WriteString(site.Chrom)
		tsvw.WriteString(site.Pos)
		tsvw.WriteString(site.ID)
		tsvw.WriteString(site.Ref)
		tsvw.WriteString(site.Alt)
		tsvw.WriteString(".")  // QUAL
		tsvw.WriteString(".")  // FILTER
		tsvw.WriteString(".")  // INFO
		tsvw.WriteString("GT") // FORMAT
		for _, gt := range gts {
			tsvw.WriteString(gt)
		}
		if err := tsvw.EndLine(); err != nil {
			return err
		}
	}
	if err = tsvw.Flush(); err != nil {
		return err
	}
	return w.Flush()
}
