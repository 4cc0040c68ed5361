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

import "math/rand"

// DefaultMaskSeed makes benchmark runs reproducible across machines
// while remaining overridable per call.
const DefaultMaskSeed = 7

// Mask hides entries of a complete haplotype matrix with probability
// rate, replacing them with the Missing marker. It returns the masked
// copy and a same-shaped indicator matrix with true at the hidden
// positions, for use by RMSE. rows is not modified.
func Mask(rows [][]string, rate float64, seed int64) (masked [][]string, hidden [][]bool) {
	rng := rand.New(rand.NewSource(seed))
	masked = make([][]string, len(rows))
	hidden = make([][]bool, len(rows))
	for i, row := range rows {
		masked[i] = make([]string, len(row))
		hidden[i] = make([]bool, len(row))
		for j, col := range row {
			if rng.Float64() < rate {
				masked[i][j] = Missing
				hidden[i][j] = true
			} else {
				masked[i][j] = col
			}
		}
	}
	return masked, hidden
}
