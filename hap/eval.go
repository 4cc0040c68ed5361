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
	"fmt"
	"math"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"
)

// normEpsilon guards the min-max denominator against constant columns.
const normEpsilon = 1e-6

func parseMatrix(rows [][]string, nCol int) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != nCol {
			return nil, errors.E("hap: ragged matrix", fmt.Sprint(i), fmt.Sprint(len(row)), fmt.Sprint(nCol))
		}
		out[i] = make([]float64, nCol)
		for j, col := range row {
			if col == Missing {
				out[i][j] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(col, 64)
			if err != nil {
				return nil, errors.E(err, "hap: non-numeric allele call", col)
			}
			out[i][j] = v
		}
	}
	return out, nil
}

// normalize min-max scales each column in place and returns the
// per-column (min, max) parameters. NaN entries are ignored when
// computing the parameters and left NaN.
func normalize(m [][]float64, nCol int) (minVal, maxVal []float64) {
	minVal = make([]float64, nCol)
	maxVal = make([]float64, nCol)
	_ = traverse.Each(nCol, func(j int) error {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := range m {
			if v := m[i][j]; !math.IsNaN(v) {
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
		}
		minVal[j], maxVal[j] = lo, hi
		for i := range m {
			m[i][j] = (m[i][j] - lo) / (hi - lo + normEpsilon)
		}
		return nil
	})
	return minVal, maxVal
}

func normalizeWith(m [][]float64, minVal, maxVal []float64) {
	_ = traverse.Each(len(minVal), func(j int) error {
		for i := range m {
			m[i][j] = (m[i][j] - minVal[j]) / (maxVal[j] - minVal[j] + normEpsilon)
		}
		return nil
	})
}

// RMSE computes the root mean squared error between truth and imputed,
// restricted to the entries marked hidden (the positions Mask removed).
// Both matrices are min-max normalized per column with the parameters
// of the truth matrix, so alleles with different cardinalities weigh
// equally. Shapes of all three arguments must agree.
func RMSE(truth, imputed [][]string, hidden [][]bool) (float64, error) {
	if len(truth) != len(imputed) || len(truth) != len(hidden) {
		return 0, errors.E("hap: RMSE row count mismatch", fmt.Sprint(len(truth)), fmt.Sprint(len(imputed)), fmt.Sprint(len(hidden)))
	}
	if len(truth) == 0 {
		return 0, errors.E("hap: RMSE of empty matrix")
	}
	nCol := len(truth[0])
	t, err := parseMatrix(truth, nCol)
	if err != nil {
		return 0, err
	}
	im, err := parseMatrix(imputed, nCol)
	if err != nil {
		return 0, err
	}
	minVal, maxVal := normalize(t, nCol)
	normalizeWith(im, minVal, maxVal)

	var sum float64
	var n int
	for i := range t {
		if len(hidden[i]) != nCol {
			return 0, errors.E("hap: ragged hidden-indicator matrix", fmt.Sprint(i))
		}
		for j := range t[i] {
			if !hidden[i][j] {
				continue
			}
			d := t[i][j] - im[i][j]
			if math.IsNaN(d) {
				return 0, errors.E("hap: missing value at evaluated position", fmt.Sprint(i), fmt.Sprint(j))
			}
			sum += d * d
			n++
		}
	}
	if n == 0 {
		return 0, errors.E("hap: no hidden entries to evaluate")
	}
	return math.Sqrt(sum / float64(n)), nil
}
