// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// suggest finds the candidate closest to target. Prefix-like matches win;
// otherwise the candidate within a small edit distance is used.
func suggest(target string, candidates []string) string {
	if len(candidates) == 0 || target == "" {
		return ""
	}
	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}
	best := ""
	bestDistance := len(target)/2 + 1
	for _, candidate := range candidates {
		d := fuzzy.LevenshteinDistance(target, candidate)
		if d < bestDistance {
			best = candidate
			bestDistance = d
		}
	}
	return best
}

func didYouMean(target string, candidates []string) string {
	if s := suggest(target, candidates); s != "" && s != target {
		return " (did you mean " + s + "?)"
	}
	return ""
}
