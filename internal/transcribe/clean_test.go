package transcribe

import "testing"

func TestCleanTranscript(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "punctuation stripped and number spelled",
			input: "Hello World! This is a test, number 1.",
			want:  "hello world this is a test number eins",
		},
		{
			name:  "number list",
			input: "Test with numbers: 1, 2, 3.",
			want:  "test with numbers eins zwei drei",
		},
		{
			name:  "already clean",
			input: "No changes needed here.",
			want:  "no changes needed here",
		},
		{
			name:  "umlauts survive",
			input: "Schöne Grüße aus München!",
			want:  "schöne grüße aus münchen",
		},
		{
			name:  "apostrophes join contractions",
			input: "Wie geht's? It's fine.",
			want:  "wie gehts its fine",
		},
		{
			name:  "teens use dedicated words",
			input: "Es ist 11 Uhr.",
			want:  "es ist elf uhr",
		},
		{
			name:  "large numbers spelled digit by digit",
			input: "Die Zahl 42 und das Jahr 2026.",
			want:  "die zahl vier zwei und das jahr zwei null zwei sechs",
		},
		{
			name:  "whitespace collapsed",
			input: "  viel\t zu   viel \n Platz  ",
			want:  "viel zu viel platz",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "punctuation only",
			input: "?!... - ,,",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanTranscript(tt.input); got != tt.want {
				t.Errorf("CleanTranscript(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSpellNumber(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"0", []string{"null"}},
		{"7", []string{"sieben"}},
		{"12", []string{"zwölf"}},
		{"13", []string{"eins", "drei"}},
		{"100", []string{"eins", "null", "null"}},
	}
	for _, tt := range tests {
		got := spellNumber(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("spellNumber(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("spellNumber(%q) = %v, want %v", tt.input, got, tt.want)
				break
			}
		}
	}
}
