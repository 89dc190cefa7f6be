package matching

import (
	"regexp"
	"strings"
)

// Generic medical words that carry no discriminating signal on their own;
// a shared token from this set never counts as an overlap.
var conditionStopwords = map[string]struct{}{
	"disease":   {},
	"syndrome":  {},
	"disorder":  {},
	"condition": {},
	"chronic":   {},
	"acute":     {},
	"with":      {},
	"without":   {},
	"type":      {},
	"stage":     {},
}

var conditionTokenPattern = regexp.MustCompile(`\b\w{4,}\b`)

// ConditionsRelated reports whether two free-text condition strings refer to
// the same or a related disease.  Inputs are expected lower-cased.  Either a
// substring containment in either direction or a shared significant keyword
// counts; "type 2 diabetes mellitus" matches a trial condition of "diabetes"
// both ways.
func ConditionsRelated(patientCond, trialCond string) bool {
	if strings.Contains(patientCond, trialCond) || strings.Contains(trialCond, patientCond) {
		return true
	}
	return sharedKeyword(patientCond, trialCond)
}

func sharedKeyword(a, b string) bool {
	bTokens := significantTokens(b)
	if len(bTokens) == 0 {
		return false
	}
	for _, tok := range conditionTokenPattern.FindAllString(a, -1) {
		if _, stop := conditionStopwords[tok]; stop {
			continue
		}
		if _, ok := bTokens[tok]; ok {
			return true
		}
	}
	return false
}

func significantTokens(s string) map[string]struct{} {
	tokens := conditionTokenPattern.FindAllString(s, -1)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, stop := conditionStopwords[tok]; stop {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

// PoolsOverlap reports whether any patient condition relates to any trial
// condition.  It scans patients in the outer loop and stops at the first
// related pair.
func PoolsOverlap(patientPool, trialPool []string) bool {
	for _, pc := range patientPool {
		for _, tc := range trialPool {
			if ConditionsRelated(pc, tc) {
				return true
			}
		}
	}
	return false
}
