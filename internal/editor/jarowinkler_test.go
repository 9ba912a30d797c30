// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaroWinkler(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"MARTHA", "MARHTA", 0.9611},
		{"DWAYNE", "DUANE", 0.84},
		{"DIXON", "DICKSONX", 0.8133},
		{"abc", "xyz", 0},
	}
	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.want, JaroWinkler(tt.a, tt.b), 0.001)
			assert.InDelta(t, JaroWinkler(tt.a, tt.b), JaroWinkler(tt.b, tt.a), 1e-9)
		})
	}
}

func TestJaroWinkler_Boundaries(t *testing.T) {
	assert.Equal(t, 1.0, JaroWinkler("", ""))
	assert.Equal(t, 1.0, JaroWinkler("func main(){}", "func main(){}"))
	assert.Equal(t, 0.0, JaroWinkler("", "x"))
	assert.Equal(t, 0.0, JaroWinkler("x", ""))

	s := JaroWinkler("returnx+1", "returnx+2")
	assert.Greater(t, s, 0.9)
	assert.Less(t, s, 1.0)
}
