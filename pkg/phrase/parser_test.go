package phrase

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Phrase
	}{
		{
			name:    "basic program",
			content: "Hello world; 2\n*; 3\nGoodbye; 0",
			want: []Phrase{
				{Text: "Hello world", DurationSeconds: 2},
				{Text: "*", DurationSeconds: 3},
				{Text: "Goodbye", DurationSeconds: 0},
			},
		},
		{
			name:    "blank lines skipped",
			content: "\nFirst; 1\n\n   \nSecond; 2\n",
			want: []Phrase{
				{Text: "First", DurationSeconds: 1},
				{Text: "Second", DurationSeconds: 2},
			},
		},
		{
			name:    "decimal duration",
			content: "Breathe in; 1.5",
			want:    []Phrase{{Text: "Breathe in", DurationSeconds: 1.5}},
		},
		{
			name:    "missing duration defaults to zero",
			content: "No duration here",
			want:    []Phrase{{Text: "No duration here", DurationSeconds: 0}},
		},
		{
			name:    "trailing semicolon defaults to zero",
			content: "Trailing;",
			want:    []Phrase{{Text: "Trailing", DurationSeconds: 0}},
		},
		{
			name:    "malformed duration defaults to zero",
			content: "Oops; abc",
			want:    []Phrase{{Text: "Oops", DurationSeconds: 0}},
		},
		{
			name:    "negative duration defaults to zero",
			content: "Back; -3",
			want:    []Phrase{{Text: "Back", DurationSeconds: 0}},
		},
		{
			name:    "text keeps interior semicolons",
			content: "One; two; three; 4",
			want:    []Phrase{{Text: "One; two; three", DurationSeconds: 4}},
		},
		{
			name:    "surrounding whitespace trimmed",
			content: "   Hello   ;   2   ",
			want:    []Phrase{{Text: "Hello", DurationSeconds: 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.content)
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(""); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("empty content: got %v, want ErrEmptyInput", err)
	}
	if _, err := Parse("   \n\t\n"); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("whitespace content: got %v, want ErrEmptyInput", err)
	}
}

func TestParseDeterminism(t *testing.T) {
	content := "Hello world; 2\n*; 3\nGoodbye; 0"
	first, err := Parse(content)
	if err != nil {
		t.Fatalf("first parse: %v", err)
	}
	second, err := Parse(content)
	if err != nil {
		t.Fatalf("second parse: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("parsing the same content twice differed: %+v vs %+v", first, second)
	}
}

func TestIsSilence(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"*", true},
		{"", true},
		{"Hello", false},
		{"**", false},
	}
	for _, tt := range tests {
		if got := (Phrase{Text: tt.text}).IsSilence(); got != tt.want {
			t.Errorf("IsSilence(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
