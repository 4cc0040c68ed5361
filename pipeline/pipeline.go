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

// Package pipeline runs the genotype imputation pipeline: it converts a
// VCF to a haplotype-encoded matrix with bcftools, optionally stacks
// reference-panel haplotypes on top, hands the matrix to an external
// imputation program, and reassembles the imputed result into a VCF.
//
// All heavy lifting is delegated to external binaries (bcftools, tabix,
// the imputer); this package owns the text-format conversions between
// them and the bookkeeping that keeps their outputs aligned.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/impute/hap"
)

type Opts struct {
	// Commandline options.
	DataPath   string  // directory holding <DataName>.vcf and all outputs
	DataName   string  // basename of the input VCF, without extension
	NumAlleles int     // alphabet size passed to the imputer
	RefPanel   string  // optional reference panel VCF
	NumCPUs    int
	NumGPUs    int
	BatchSize  int
	HintRate   float64
	Alpha      float64
	Iterations int
	Imputer    string // external imputation program
	Bcftools   string
	Tabix      string

	// Benchmarking options.
	MaskRate    float64 // if > 0, hide this fraction of calls before imputing
	MaskSeed    int64
	EvalAgainst string // optional truth matrix for RMSE reporting
}

var DefaultOpts = Opts{
	NumCPUs:    1,
	NumGPUs:    0,
	BatchSize:  128,
	HintRate:   0.9,
	Alpha:      100,
	Iterations: 10000,
	Imputer:    "gain-impute",
	Bcftools:   "bcftools",
	Tabix:      "tabix",
	MaskSeed:   hap.DefaultMaskSeed,
}

// Check validates the options that have no usable zero value.
func (o *Opts) Check() error {
	if o.DataPath == "" {
		return errors.E("missing -data_path")
	}
	if o.DataName == "" {
		return errors.E("missing -data_name")
	}
	if o.NumAlleles < 2 {
		return errors.E("-num_al must be >= 2", fmt.Sprint(o.NumAlleles))
	}
	if o.HintRate < 0 || o.HintRate > 1 {
		return errors.E("-hint_rate must be in [0,1]", fmt.Sprint(o.HintRate))
	}
	if o.MaskRate < 0 || o.MaskRate >= 1 {
		return errors.E("-mask_rate must be in [0,1)", fmt.Sprint(o.MaskRate))
	}
	if o.BatchSize <= 0 || o.Iterations <= 0 {
		return errors.E("-batch_size and -iterations must be positive")
	}
	return nil
}

// paths collects every file the pipeline reads or writes, all rooted at
// DataPath/DataName.
type paths struct {
	vcf         string // input VCF (.vcf, or .vcf.gz when only that exists)
	hap         string // <name>_hap.txt
	legend      string // <name>_legend.txt
	masked      string // <name>_masked_hap.txt (benchmarking only)
	panelHap    string // <name>_panel_hap.txt
	combinedHap string // <name>_ref_hap.txt: panel rows + sample rows
	imputedHap  string // <name>_imputed_hap.txt
	outVCF      string // <name>_imputed.vcf
	isecDir     string // <name>_isec working directory for bcftools isec
}

func resolvePaths(opts *Opts) (*paths, error) {
	base := filepath.Join(opts.DataPath, opts.DataName)
	p := &paths{
		vcf:         base + ".vcf",
		hap:         base + "_hap.txt",
		legend:      base + "_legend.txt",
		masked:      base + "_masked_hap.txt",
		panelHap:    base + "_panel_hap.txt",
		combinedHap: base + "_ref_hap.txt",
		imputedHap:  base + "_imputed_hap.txt",
		outVCF:      base + "_imputed.vcf",
		isecDir:     base + "_isec",
	}
	if !fileExists(p.vcf) {
		if !fileExists(p.vcf + ".gz") {
			return nil, errors.E("input VCF not found", p.vcf)
		}
		p.vcf = p.vcf + ".gz"
	}
	return p, nil
}

// clearStale removes outputs of a previous run. The .gz/.tbi companions
// of the input and panel are deliberately kept; recompression and
// reindexing are skipped when they exist.
func (p *paths) clearStale() {
	for _, path := range []string{p.hap, p.legend, p.masked, p.panelHap, p.combinedHap, p.imputedHap, p.outVCF} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("remove %s: %v", path, err)
		}
	}
	if err := os.RemoveAll(p.isecDir); err != nil {
		log.Printf("remove %s: %v", p.isecDir, err)
	}
}

func runImputer(ctx context.Context, opts *Opts, inPath, outPath string) error {
	return runTool(ctx, nil, opts.Imputer,
		"--missing_data", inPath,
		"--output_data", outPath,
		"--num_al", strconv.Itoa(opts.NumAlleles),
		"--batch_size", strconv.Itoa(opts.BatchSize),
		"--hint_rate", strconv.FormatFloat(opts.HintRate, 'g', -1, 64),
		"--alpha", strconv.FormatFloat(opts.Alpha, 'g', -1, 64),
		"--iterations", strconv.Itoa(opts.Iterations),
		"--num_cpus", strconv.Itoa(opts.NumCPUs),
		"--num_gpus", strconv.Itoa(opts.NumGPUs),
	)
}

// Run executes the pipeline end to end.
func Run(ctx context.Context, opts *Opts) error {
	if err := opts.Check(); err != nil {
		return err
	}
	if err := checkTools(opts); err != nil {
		return err
	}
	p, err := resolvePaths(opts)
	if err != nil {
		return err
	}
	p.clearStale()

	// The two bcftools queries are independent; run them side by side.
	var nHap, nLegend int
	err = traverse.Each(2, func(i int) (err error) {
		if i == 0 {
			nHap, err = convertHaplotypes(ctx, opts.Bcftools, p.vcf, p.hap)
		} else {
			nLegend, err = extractLegend(ctx, opts.Bcftools, p.vcf, p.legend)
		}
		return err
	})
	if err != nil {
		return err
	}
	if nHap != nLegend {
		return errors.E("haplotype matrix and legend row counts disagree", fmt.Sprint(nHap), fmt.Sprint(nLegend))
	}
	log.Printf("%s: %d variant sites", p.vcf, nHap)

	samples, err := sampleNames(ctx, opts.Bcftools, p.vcf)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return errors.E("input VCF has no sample columns", p.vcf)
	}

	imputerInput := p.hap
	var truth [][]string
	var hidden [][]bool
	if opts.MaskRate > 0 {
		if truth, hidden, err = maskHaplotypes(ctx, p, opts.MaskRate, opts.MaskSeed); err != nil {
			return err
		}
		imputerInput = p.masked
	}

	skipRows := 0
	if opts.RefPanel != "" {
		if skipRows, err = intersectPanel(ctx, opts, p, imputerInput); err != nil {
			return err
		}
		imputerInput = p.combinedHap
	}

	if err = runImputer(ctx, opts, imputerInput, p.imputedHap); err != nil {
		return err
	}
	if err = reassemble(ctx, p, samples, skipRows); err != nil {
		return err
	}
	log.Printf("wrote %s", p.outVCF)

	return evaluate(ctx, opts, p, truth, hidden, skipRows)
}

// maskHaplotypes hides a fraction of the converted calls for
// benchmarking, writing the masked copy to p.masked. It returns the
// unmasked matrix and the hidden-position indicators.
func maskHaplotypes(ctx context.Context, p *paths, rate float64, seed int64) (truth [][]string, hidden [][]bool, err error) {
	in, err := file.Open(ctx, p.hap)
	if err != nil {
		return nil, nil, err
	}
	truth, err = hap.ReadMatrix(in.Reader(ctx))
	if e := in.Close(ctx); err == nil {
		err = e
	}
	if err != nil {
		return nil, nil, err
	}
	masked, hidden := hap.Mask(truth, rate, seed)
	out, err := file.Create(ctx, p.masked)
	if err != nil {
		return nil, nil, err
	}
	err = hap.WriteMatrix(out.Writer(ctx), masked)
	if e := out.Close(ctx); err == nil {
		err = e
	}
	if err != nil {
		return nil, nil, err
	}
	nMasked := 0
	for _, row := range hidden {
		for _, h := range row {
			if h {
				nMasked++
			}
		}
	}
	log.Printf("masked %d calls at rate %g into %s", nMasked, rate, p.masked)
	return truth, hidden, nil
}

// evaluate reports imputation RMSE when a ground truth is available:
// either the pre-mask matrix from this run, or an -eval_against file
// scored over the positions that were missing in the input.
func evaluate(ctx context.Context, opts *Opts, p *paths, truth [][]string, hidden [][]bool, skipRows int) error {
	if truth == nil && opts.EvalAgainst == "" {
		return nil
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
	imputed = imputed[skipRows:]

	if truth == nil {
		data, err := file.ReadFile(ctx, p.hap)
		if err != nil {
			return err
		}
		observed, err := hap.ReadMatrix(strings.NewReader(string(data)))
		if err != nil {
			return err
		}
		hidden = make([][]bool, len(observed))
		for i, row := range observed {
			hidden[i] = make([]bool, len(row))
			for j, col := range row {
				hidden[i][j] = col == hap.Missing
			}
		}
		ev, err := file.Open(ctx, opts.EvalAgainst)
		if err != nil {
			return err
		}
		truth, err = hap.ReadMatrix(ev.Reader(ctx))
		if e := ev.Close(ctx); err == nil {
			err = e
		}
		if err != nil {
			return err
		}
	}
	nHidden := 0
	for _, row := range hidden {
		for _, h := range row {
			if h {
				nHidden++
			}
		}
	}
	if nHidden == 0 {
		log.Printf("no hidden entries; skipping RMSE evaluation")
		return nil
	}
	rmse, err := hap.RMSE(truth, imputed, hidden)
	if err != nil {
		return err
	}
	log.Printf("imputation RMSE over %d hidden entries: %g", nHidden, rmse)
	return nil
}
