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
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVCF = `##fileformat=VCFv4.2
##source=imputetest
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1	S2
20	100	rs1	A	G	.	.	.	GT	0|1	1|1
20	200	rs2	C	T	.	.	.	GT	./.	0|1
`

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
}

func testPaths(t *testing.T, dir string) *paths {
	p := &paths{
		vcf:        filepath.Join(dir, "test.vcf"),
		legend:     filepath.Join(dir, "test_legend.txt"),
		imputedHap: filepath.Join(dir, "test_imputed_hap.txt"),
		outVCF:     filepath.Join(dir, "test_imputed.vcf"),
	}
	writeFile(t, p.vcf, testVCF)
	writeFile(t, p.legend, "20\t100\trs1\tA\tG\n20\t200\trs2\tC\tT\n")
	return p
}

func TestReadHeader(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	vcfPath := filepath.Join(tempDir, "in.vcf")
	writeFile(t, vcfPath, testVCF)
	meta, samples, err := readHeader(ctx, vcfPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"##fileformat=VCFv4.2", "##source=imputetest"}, meta)
	assert.Equal(t, []string{"S1", "S2"}, samples)

	// Same header, gzip-compressed.
	gzPath := filepath.Join(tempDir, "in.vcf.gz")
	f, err := os.Create(gzPath)
	require.NoError(t, err)
	gzw := gzip.NewWriter(f)
	_, err = gzw.Write([]byte(testVCF))
	require.NoError(t, err)
	require.NoError(t, gzw.Close())
	require.NoError(t, f.Close())
	meta, samples, err = readHeader(ctx, gzPath)
	require.NoError(t, err)
	assert.Len(t, meta, 2)
	assert.Equal(t, []string{"S1", "S2"}, samples)

	// Headerless files are rejected.
	badPath := filepath.Join(tempDir, "bad.vcf")
	writeFile(t, badPath, "20\t100\trs1\tA\tG\n")
	_, _, err = readHeader(ctx, badPath)
	assert.Error(t, err)
}

func TestReassemble(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	p := testPaths(t, tempDir)
	writeFile(t, p.imputedHap, "0\t1\t1\t1\n0\t0\t0\t1\n")
	require.NoError(t, reassemble(ctx, p, []string{"S1", "S2"}, 0))

	out, err := ioutil.ReadFile(p.outVCF)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 4)
	// Header count: original meta lines plus the reconstructed #CHROM line.
	assert.Equal(t, "##fileformat=VCFv4.2", lines[0])
	assert.Equal(t, "##source=imputetest", lines[1])
	assert.Equal(t, "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tS1\tS2", lines[2])
	assert.Equal(t, "20\t100\trs1\tA\tG\t.\t.\t.\tGT\t0|1\t1|1", lines[3])
}

func TestReassembleSkipsPanelRows(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	p := testPaths(t, tempDir)
	// One panel row stacked above the two sample rows.
	writeFile(t, p.imputedHap, "1\t1\t1\t1\n0\t1\t1\t1\n0\t0\t0\t1\n")
	require.NoError(t, reassemble(ctx, p, []string{"S1", "S2"}, 1))

	out, err := ioutil.ReadFile(p.outVCF)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "20\t100\trs1\tA\tG\t.\t.\t.\tGT\t0|1\t1|1", lines[3])
}

func TestReassembleRowCountMismatch(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	p := testPaths(t, tempDir)
	// Three imputed rows, two legend rows: misalignment must be an error,
	// not a silently shifted output.
	writeFile(t, p.imputedHap, "0\t1\t1\t1\n0\t0\t0\t1\n1\t1\t1\t1\n")
	err := reassemble(ctx, p, []string{"S1", "S2"}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row count")
}

func TestReassembleWidthMismatch(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	p := testPaths(t, tempDir)
	writeFile(t, p.imputedHap, "0\t1\t1\t1\t0\t0\n0\t0\t0\t1\t0\t0\n")
	assert.Error(t, reassemble(ctx, p, []string{"S1", "S2"}, 0))
}
