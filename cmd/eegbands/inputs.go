package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// recordingPattern matches Muse exports inside a directory argument
const recordingPattern = "eeg_recording_*.csv"

// expandInputs replaces each directory argument with the recordings it
// contains, sorted by name. File arguments are kept as given; duplicates are
// dropped.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot read input: %w", err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}

		matches, err := filepath.Glob(filepath.Join(arg, recordingPattern))
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no %s files in %s", recordingPattern, arg)
		}
		sort.Strings(matches)
		for _, m := range matches {
			add(m)
		}
	}
	return files, nil
}
