package bot

import "testing"

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text unchanged",
			input: "grilled chicken with rice",
			want:  "grilled chicken with rice",
		},
		{
			name:  "line breaks collapse to spaces",
			input: "eggs\nbacon\n\ntoast",
			want:  "eggs bacon toast",
		},
		{
			name:  "bullet markers stripped",
			input: "- two eggs\n- bacon\n-   toast",
			want:  "two eggs bacon toast",
		},
		{
			name:  "runs of whitespace collapse",
			input: "  rice   and \t beans  ",
			want:  "rice and beans",
		},
		{
			name:  "empty input stays empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeText(tt.input); got != tt.want {
				t.Errorf("normalizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
