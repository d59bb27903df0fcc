package merge

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	"golang.org/x/text/cases"
)

var numberRegex = regexp.MustCompile(`\d+(?:\.\d+)?`)

// NumericKey extracts the first number in a filename, so "Ch 9" sorts before
// "Ch 10". Names without digits map to 0.
func NumericKey(name string) float64 {
	key, _ := numericKey(name)
	return key
}

func numericKey(name string) (float64, error) {
	match := numberRegex.FindString(name)
	if match == "" {
		return 0, nil
	}
	num, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return num, err
	}
	if math.IsNaN(num) || math.IsInf(num, 0) {
		return num, fmt.Errorf("number out of range: %s", match)
	}
	return num, nil
}

// SortChapters returns names ordered by NumericKey, keeping the input order
// for equal keys. If any key is unusable the whole collection is ordered
// lexically, ignoring case.
func SortChapters(names []string) []string {
	sorted := append([]string(nil), names...)

	keys := make(map[string]float64, len(sorted))
	for _, name := range sorted {
		key, err := numericKey(name)
		if err != nil {
			sortLexical(sorted)
			return sorted
		}
		keys[name] = key
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return keys[sorted[i]] < keys[sorted[j]]
	})
	return sorted
}

func sortLexical(names []string) {
	fold := cases.Fold()
	sort.SliceStable(names, func(i, j int) bool {
		return fold.String(names[i]) < fold.String(names[j])
	})
}
