package transcript

import "testing"

func TestCorrectorRepairsNearMisses(t *testing.T) {
	c := NewCorrector(nil)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"misheard transfer", "I will transfur you now", "I will transfer you now"},
		{"misheard pepperoni", "One large peperoni please", "One large pepperoni please"},
		{"punctuation preserved", "Proceeding with paymint, one moment", "Proceeding with payment, one moment"},
		{"clean text untouched", "I will transfer you to payment now", "I will transfer you to payment now"},
		{"unrelated words untouched", "The weather is lovely today", "The weather is lovely today"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Correct(tt.in); got != tt.want {
				t.Fatalf("Correct(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCorrectorExactVocabularyNeverRewritten(t *testing.T) {
	c := NewCorrector([]string{"pickup", "delivery"})
	in := "Pickup or delivery?"
	if got := c.Correct(in); got != in {
		t.Fatalf("Correct(%q) = %q, want unchanged", in, got)
	}
}

func TestCorrectorCustomVocabulary(t *testing.T) {
	c := NewCorrector([]string{"calzone"})
	if got := c.Correct("one calzoni please"); got != "one calzone please" {
		t.Fatalf("Correct = %q", got)
	}
}
