// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package editor

const (
	winklerPrefixLimit = 4
	winklerScale       = 0.1
)

// JaroWinkler returns the Jaro-Winkler similarity of a and b in [0, 1].
// Identical strings score 1; a non-empty string against an empty one
// scores 0.
func JaroWinkler(a, b string) float64 {
	if a == b {
		return 1.0
	}
	r1, r2 := []rune(a), []rune(b)
	if len(r1) == 0 || len(r2) == 0 {
		return 0.0
	}

	jaro := jaroRunes(r1, r2)
	if jaro == 0 {
		return 0.0
	}

	prefix := 0
	for prefix < winklerPrefixLimit && prefix < len(r1) && prefix < len(r2) && r1[prefix] == r2[prefix] {
		prefix++
	}
	return jaro + float64(prefix)*winklerScale*(1-jaro)
}

// jaroRunes computes plain Jaro similarity. Characters match when equal
// and no further apart than half the longer length minus one.
func jaroRunes(r1, r2 []rune) float64 {
	window := max(len(r1), len(r2))/2 - 1
	if window < 0 {
		window = 0
	}

	matched1 := make([]bool, len(r1))
	matched2 := make([]bool, len(r2))
	matches := 0

	for i, c := range r1 {
		lo := max(0, i-window)
		hi := min(len(r2)-1, i+window)
		for j := lo; j <= hi; j++ {
			if matched2[j] || r2[j] != c {
				continue
			}
			matched1[i] = true
			matched2[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i, c := range r1 {
		if !matched1[i] {
			continue
		}
		for !matched2[k] {
			k++
		}
		if c != r2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(len(r1)) + m/float64(len(r2)) + (m-t)/m) / 3.0
}
