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
	"testing"

	"github.com/grailbio/testutil"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureBgzip(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	path := filepath.Join(tempDir, "in.vcf")
	writeFile(t, path, testVCF)
	gzPath, err := ensureBgzip(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, path+".gz", gzPath)

	// BGZF output is plain-gzip readable and round-trips the content.
	f, err := os.Open(gzPath)
	require.NoError(t, err)
	defer f.Close() // nolint: errcheck
	gzr, err := gzip.NewReader(f)
	require.NoError(t, err)
	got, err := ioutil.ReadAll(gzr)
	require.NoError(t, err)
	assert.Equal(t, testVCF, string(got))

	// An existing .gz is an idempotency guard, not overwritten.
	info0, err := os.Stat(gzPath)
	require.NoError(t, err)
	writeFile(t, path, testVCF+"20\t300\trs3\tG\tA\t.\t.\t.\tGT\t1|0\t0|0\n")
	gzPath2, err := ensureBgzip(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, gzPath, gzPath2)
	info1, err := os.Stat(gzPath)
	require.NoError(t, err)
	assert.Equal(t, info0.Size(), info1.Size())

	// A path that is already compressed is passed through.
	gzPath3, err := ensureBgzip(ctx, gzPath)
	require.NoError(t, err)
	assert.Equal(t, gzPath, gzPath3)
}

func TestConcatFiles(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	a := filepath.Join(tempDir, "a.txt")
	b := filepath.Join(tempDir, "b.txt")
	dst := filepath.Join(tempDir, "out.txt")
	writeFile(t, a, "1\t1\n")
	writeFile(t, b, "0\t?\n")
	require.NoError(t, concatFiles(ctx, dst, a, b))
	got, err := ioutil.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "1\t1\n0\t?\n", string(got))

	assert.Error(t, concatFiles(ctx, dst, a, filepath.Join(tempDir, "missing.txt")))
}
