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
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/impute/pipeline"
)

var (
	dataPath   = flag.String("data_path", pipeline.DefaultOpts.DataPath, "Directory holding <data_name>.vcf; all outputs are written here (required)")
	dataName   = flag.String("data_name", pipeline.DefaultOpts.DataName, "Basename of the input VCF, without the .vcf extension (required)")
	numAl      = flag.Int("num_al", pipeline.DefaultOpts.NumAlleles, "Number of distinct alleles per site passed to the imputer; 2 for biallelic data (required)")
	refPanel   = flag.String("ref_panel", pipeline.DefaultOpts.RefPanel, "Reference panel VCF whose intersected sites are stacked above the sample haplotypes")
	numCPUs    = flag.Int("num_cpus", pipeline.DefaultOpts.NumCPUs, "CPUs made available to the imputation program")
	numGPUs    = flag.Int("num_gpus", pipeline.DefaultOpts.NumGPUs, "GPUs made available to the imputation program")
	batchSize  = flag.Int("batch_size", pipeline.DefaultOpts.BatchSize, "Imputer mini-batch size")
	hintRate   = flag.Float64("hint_rate", pipeline.DefaultOpts.HintRate, "Imputer hint rate")
	alpha      = flag.Float64("alpha", pipeline.DefaultOpts.Alpha, "Imputer loss hyperparameter")
	iterations = flag.Int("iterations", pipeline.DefaultOpts.Iterations, "Imputer training iterations")
	imputer    = flag.String("imputer", pipeline.DefaultOpts.Imputer, "External imputation program")
	bcftools   = flag.String("bcftools", pipeline.DefaultOpts.Bcftools, "bcftools binary")
	tabix      = flag.String("tabix", pipeline.DefaultOpts.Tabix, "tabix binary")
	maskRate   = flag.Float64("mask_rate", pipeline.DefaultOpts.MaskRate, "Hide this fraction of observed calls before imputing and report reconstruction RMSE")
	maskSeed   = flag.Int64("mask_seed", pipeline.DefaultOpts.MaskSeed, "Seed for -mask_rate masking")
	evalTruth  = flag.String("eval_against", pipeline.DefaultOpts.EvalAgainst, "Known-complete haplotype matrix to score the imputed output against")
)

func bioImputeUsage() {
	fmt.Printf("Usage: %s -data_path DIR -data_name NAME -num_al N [OPTIONS]\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = bioImputeUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() > 0 {
		flag.Usage()
		log.Fatalf("Unexpected positional arguments: %v", flag.Args())
	}
	opts := pipeline.Opts{
		DataPath:    *dataPath,
		DataName:    *dataName,
		NumAlleles:  *numAl,
		RefPanel:    *refPanel,
		NumCPUs:     *numCPUs,
		NumGPUs:     *numGPUs,
		BatchSize:   *batchSize,
		HintRate:    *hintRate,
		Alpha:       *alpha,
		Iterations:  *iterations,
		Imputer:     *imputer,
		Bcftools:    *bcftools,
		Tabix:       *tabix,
		MaskRate:    *maskRate,
		MaskSeed:    *maskSeed,
		EvalAgainst: *evalTruth,
	}
	if err := opts.Check(); err != nil {
		flag.Usage()
		log.Fatalf("%v", err)
	}
	ctx := vcontext.Background()
	if err := pipeline.Run(ctx, &opts); err != nil {
		log.Fatalf("%v", err)
	}
}
