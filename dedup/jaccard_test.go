package dedup

import "testing"

func TestTokenizeWordsFiltersShortTokens(t *testing.T) {
	set, err := Tokenize("A quick fox is on an old hill", TokenWords)
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}

	for _, want := range []string{"quick", "fox", "old", "hill"} {
		if _, ok := set[want]; !ok {
			t.Errorf("expected token %q in set", want)
		}
	}
	for _, noise := range []string{"a", "is", "on", "an"} {
		if _, ok := set[noise]; ok {
			t.Errorf("noise token %q should have been filtered", noise)
		}
	}
}

func TestTokenizeShingles(t *testing.T) {
	set, err := Tokenize("the quick brown fox jumps", TokenShingles)
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	if len(set) != 3 {
		t.Fatalf("expected 3 shingles, got %d", len(set))
	}
	if _, ok := set["the quick brown"]; !ok {
		t.Error("expected shingle \"the quick brown\"")
	}
	if _, ok := set["brown fox jumps"]; !ok {
		t.Error("expected shingle \"brown fox jumps\"")
	}
}

func TestTokenizeShinglesShortTextFallsBackToWords(t *testing.T) {
	set, err := Tokenize("hello world", TokenShingles)
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	if len(set) != 2 {
		t.Fatalf("expected word fallback with 2 tokens, got %d", len(set))
	}
	if _, ok := set["hello"]; !ok {
		t.Error("expected fallback token \"hello\"")
	}
}

func TestTokenizeChars(t *testing.T) {
	set, err := Tokenize("ab cdef g", TokenChars)
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	// cleaned text is "abcdefg": 3 overlapping 5-grams
	if len(set) != 3 {
		t.Fatalf("expected 3 char grams, got %d", len(set))
	}
	if _, ok := set["abcde"]; !ok {
		t.Error("expected gram \"abcde\"")
	}
}

func TestTokenizeCharsShortTextSingleToken(t *testing.T) {
	set, err := Tokenize("a b", TokenChars)
	if err != nil {
		t.Fatalf("tokenize failed: %v", err)
	}
	if len(set) != 1 {
		t.Fatalf("expected single degenerate token, got %d", len(set))
	}
	if _, ok := set["ab"]; !ok {
		t.Error("expected degenerate token \"ab\"")
	}
}

func TestTokenizeUnknownMethod(t *testing.T) {
	if _, err := Tokenize("anything", TokenMethod("bigrams")); err == nil {
		t.Fatal("expected error for unknown tokenization method")
	}
}

func TestSimilarityBounds(t *testing.T) {
	a := TokenSet{"alpha": {}, "beta": {}, "gamma": {}}
	b := TokenSet{"beta": {}, "gamma": {}, "delta": {}}

	sim := Similarity(a, b)
	if sim < 0.0 || sim > 1.0 {
		t.Fatalf("similarity out of bounds: %f", sim)
	}
	// 2 shared of 4 total
	if sim != 0.5 {
		t.Errorf("expected 0.5, got %f", sim)
	}

	if got := Similarity(a, a); got != 1.0 {
		t.Errorf("identical sets must score 1.0, got %f", got)
	}
	if got := Similarity(TokenSet{}, TokenSet{}); got != 1.0 {
		t.Errorf("two empty sets must score 1.0, got %f", got)
	}
	if got := Similarity(a, TokenSet{}); got != 0.0 {
		t.Errorf("one empty set must score 0.0, got %f", got)
	}
}

func TestTextSimilarityWordOrderInsensitive(t *testing.T) {
	sim, err := TextSimilarity(
		"the quick brown fox jumps over the lazy dog",
		"the quick brown dog jumps over the lazy fox",
		TokenWords,
	)
	if err != nil {
		t.Fatalf("text similarity failed: %v", err)
	}
	// Same word set, different order.
	if sim != 1.0 {
		t.Errorf("expected 1.0 for reordered words, got %f", sim)
	}
}

func TestTextSimilarityShinglesCaptureOrder(t *testing.T) {
	sim, err := TextSimilarity(
		"the quick brown fox jumps over the lazy dog",
		"the quick brown dog jumps over the lazy fox",
		TokenShingles,
	)
	if err != nil {
		t.Fatalf("text similarity failed: %v", err)
	}
	if sim >= 1.0 {
		t.Errorf("shingles must penalize reordering, got %f", sim)
	}
	if sim <= 0.0 {
		t.Errorf("mostly-shared windows must score above zero, got %f", sim)
	}
}

func TestTextSimilarityDeterministic(t *testing.T) {
	first, err := TextSimilarity("alpha beta gamma delta", "alpha beta gamma", TokenWords)
	if err != nil {
		t.Fatalf("text similarity failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := TextSimilarity("alpha beta gamma delta", "alpha beta gamma", TokenWords)
		if err != nil {
			t.Fatalf("text similarity failed: %v", err)
		}
		if again != first {
			t.Fatalf("similarity not deterministic: %f vs %f", again, first)
		}
	}
}
