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
	"io"
	"os"
	"path/filepath"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/hts/bgzf"
)

// ensureBgzip returns a BGZF-compressed copy of path suitable for
// tabix, writing path+".gz" only if it doesn't exist yet. A path that
// already names a .gz file is returned as is.
func ensureBgzip(ctx context.Context, path string) (gzPath string, err error) {
	if filepath.Ext(path) == ".gz" {
		return path, nil
	}
	gzPath = path + ".gz"
	if fileExists(gzPath) {
		return gzPath, nil
	}
	in, err := file.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer file.CloseAndReport(ctx, in, &err)
	out, err := file.Create(ctx, gzPath)
	if err != nil {
		return "", err
	}
	defer file.CloseAndReport(ctx, out, &err)
	bw := bgzf.NewWriter(out.Writer(ctx), 1)
	if _, err = io.Copy(bw, in.Reader(ctx)); err != nil {
		return "", errors.E(err, "compressing", path)
	}
	return gzPath, bw.Close()
}

// ensureTabix indexes gzPath with tabix unless the .tbi already exists.
func ensureTabix(ctx context.Context, tabix, gzPath string) error {
	if fileExists(gzPath + ".tbi") {
		return nil
	}
	return runTool(ctx, nil, tabix, "-p", "vcf", gzPath)
}

// intersectPanel computes the site intersection of the reference panel
// and the sample VCF with "bcftools isec -n=2 -w1" (records taken from
// the panel), converts the intersected records to haplotype rows in
// p.panelHap, and writes p.combinedHap as panel rows followed by the
// sample rows in sampleHapPath. It returns the number of panel rows.
func intersectPanel(ctx context.Context, opts *Opts, p *paths, sampleHapPath string) (nPanel int, err error) {
	sampleGz, err := ensureBgzip(ctx, p.vcf)
	if err != nil {
		return 0, err
	}
	if err = ensureTabix(ctx, opts.Tabix, sampleGz); err != nil {
		return 0, err
	}
	panelGz, err := ensureBgzip(ctx, opts.RefPanel)
	if err != nil {
		return 0, err
	}
	if err = ensureTabix(ctx, opts.Tabix, panelGz); err != nil {
		return 0, err
	}

	if err = runTool(ctx, nil, opts.Bcftools,
		"isec", "-p", p.isecDir, "-n=2", "-w1", panelGz, sampleGz); err != nil {
		return 0, err
	}
	isecVCF := filepath.Join(p.isecDir, "0000.vcf")
	if !fileExists(isecVCF) {
		return 0, errors.E("bcftools isec produced no output", isecVCF)
	}
	if nPanel, err = convertHaplotypes(ctx, opts.Bcftools, isecVCF, p.panelHap); err != nil {
		return 0, err
	}
	log.Printf("reference panel: %d intersected sites", nPanel)

	return nPanel, concatFiles(ctx, p.combinedHap, p.panelHap, sampleHapPath)
}

func concatFiles(ctx context.Context, dst string, srcs ...string) (err error) {
	out, err := file.Create(ctx, dst)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := out.Writer(ctx)
	for _, src := range srcs {
		in, err := file.Open(ctx, src)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, in.Reader(ctx))
		if e := in.Close(ctx); err == nil {
			err = e
		}
		if err != nil {
			return errors.E(err, "concatenating", src)
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
