// Package wordlist loads the path lists used by the directory probe.
package wordlist

import (
	"fmt"
	"os"
	"strings"
)

// Load returns the de-duplicated entries of the word list at path, in file
// order. Blank lines and lines starting with # are skipped. If path is empty,
// the embedded default list is used.
func Load(path string) ([]string, error) {
	raw := embeddedWordlist
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading wordlist %s: %w", path, err)
		}
		raw = string(data)
	}
	return parse(raw), nil
}

// Default returns the embedded word list.
func Default() []string {
	return parse(embeddedWordlist)
}

func parse(raw string) []string {
	lines := strings.Split(raw, "\n")
	seen := make(map[string]struct{}, len(lines))
	var result []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; !ok {
			seen[line] = struct{}{}
			result = append(result, line)
		}
	}
	return result
}
