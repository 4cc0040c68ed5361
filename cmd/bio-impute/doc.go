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

/*
bio-impute fills in missing genotype calls in a VCF. It encodes the
genotypes as a haplotype matrix with bcftools, runs an external
imputation program over the matrix, and reassembles the imputed matrix
into a VCF with the original header and sample names.

bcftools must be on PATH; tabix is additionally required when a
reference panel is supplied with -ref_panel, in which case the panel
sites intersected with the input are stacked above the sample rows as
extra training data for the imputer.

Sample usage:
bio-impute \
    -data_path /data/chr20 \
    -data_name cohort \
    -num_al 2 \
    -ref_panel /data/panels/chr20_panel.vcf

The final VCF is written to <data_path>/<data_name>_imputed.vcf.

For benchmarking, -mask_rate hides a fraction of the observed calls
before imputation and reports the RMSE of the imputer's reconstruction
of them; -eval_against scores an already-missing dataset against a
known-complete haplotype matrix instead.
*/
package main
