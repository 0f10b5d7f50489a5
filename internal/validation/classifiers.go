package validation

import (
	"bufio"
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
)

//go:embed data/classifiers.txt
var classifierData string

// deprecatedData maps a retired classifier to its replacements.
//
//go:embed data/deprecated_classifiers.json
var deprecatedData []byte

var (
	classifiersOnce sync.Once
	classifierSet   map[string]struct{}

	deprecatedOnce sync.Once
	deprecatedSet  map[string][]string
)

func deprecatedClassifiers() map[string][]string {
	deprecatedOnce.Do(func() {
		if err := json.Unmarshal(deprecatedData, &deprecatedSet); err != nil {
			panic(fmt.Sprintf("invalid embedded deprecated classifiers: %v", err))
		}
	})
	return deprecatedSet
}

func knownClassifierSet() map[string]struct{} {
	classifiersOnce.Do(func() {
		classifierSet = make(map[string]struct{})
		sc := bufio.NewScanner(strings.NewReader(classifierData))
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				classifierSet[line] = struct{}{}
			}
		}
	})
	return classifierSet
}

// IsKnownClassifier reports whether c is a current trove classifier.
func IsKnownClassifier(c string) bool {
	_, ok := knownClassifierSet()[c]
	return ok
}

func noDeprecatedClassifiers(_ string, value any) error {
	var hits []string
	for _, c := range value.([]string) {
		if _, ok := deprecatedClassifiers()[c]; ok {
			hits = append(hits, c)
		}
	}
	if len(hits) == 0 {
		return nil
	}
	slices.Sort(hits)
	first := hits[0]
	if by := deprecatedClassifiers()[first]; len(by) > 0 {
		return fmt.Errorf("Classifier %s has been deprecated, use the following classifier(s) instead: %s",
			pyRepr(first), pyListRepr(by))
	}
	return fmt.Errorf("Classifier %s has been deprecated.", pyRepr(first))
}

func knownClassifiers(_ string, value any) error {
	var invalid []string
	for _, c := range value.([]string) {
		if !IsKnownClassifier(c) && !slices.Contains(invalid, c) {
			invalid = append(invalid, c)
		}
	}
	switch len(invalid) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("Classifier %s is not a valid classifier.", pyRepr(invalid[0]))
	}
	slices.Sort(invalid)
	return fmt.Errorf("Classifiers %s are not valid classifiers.", pyListRepr(invalid))
}
