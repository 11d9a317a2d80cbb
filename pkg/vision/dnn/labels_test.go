package dnn

import (
	"strings"
	"testing"
)

func TestParseLabels(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "plain names",
			input: "person\nbicycle\ncar\n",
			want:  []string{"person", "bicycle", "car"},
		},
		{
			name:  "skips blank lines and whitespace",
			input: "person\n\n  bicycle  \n\n",
			want:  []string{"person", "bicycle"},
		},
		{
			name:  "imagenet synset lines drop the ID",
			input: "n01440764 tench, Tinca tinca\nn01443537 goldfish, Carassius auratus\n",
			want:  []string{"tench, Tinca tinca", "goldfish, Carassius auratus"},
		},
		{
			name:  "places categories keep only the name",
			input: "/a/airfield 0\n/a/art_gallery 4\n/b/bus_station/indoor 12\n",
			want:  []string{"airfield", "art gallery", "indoor"},
		},
		{
			name:  "synset-like words without an ID pass through",
			input: "note7 phone\nnougat\n",
			want:  []string{"note7 phone", "nougat"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLabels(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ParseLabels() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseLabels() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("label %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoadLabelsMissingFile(t *testing.T) {
	if _, err := LoadLabels("testdata/does-not-exist.txt"); err == nil {
		t.Error("LoadLabels() succeeded on a missing file")
	}
}
