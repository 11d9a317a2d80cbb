package dnn

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// LoadLabels reads class labels from path, one label per line.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseLabels(f)
}

// ParseLabels reads one label per line, trimming whitespace and
// skipping blank lines. The common label-file shapes are normalized:
// plain names pass through, ImageNet synset lines drop the leading ID,
// and Places-style "/a/airfield 0" lines keep only the category name.
func ParseLabels(r io.Reader) ([]string, error) {
	var labels []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		labels = append(labels, cleanLabel(line))
	}
	return labels, sc.Err()
}

func cleanLabel(line string) string {
	if strings.HasPrefix(line, "/") {
		name := strings.Fields(line)[0]
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		return strings.ReplaceAll(name, "_", " ")
	}
	if id, rest, ok := strings.Cut(line, " "); ok && isSynsetID(id) {
		return rest
	}
	return line
}

// isSynsetID matches WordNet IDs like "n03710193".
func isSynsetID(s string) bool {
	if len(s) != 9 || s[0] != 'n' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
