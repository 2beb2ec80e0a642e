package dedup

import (
	"fmt"
	"regexp"
	"strings"
)

// TokenMethod selects how Tokenize splits text into a comparable set.
type TokenMethod string

const (
	// TokenWords tokenizes into individual words longer than two characters
	TokenWords TokenMethod = "words"
	// TokenShingles tokenizes into overlapping three-word windows
	TokenShingles TokenMethod = "shingles"
	// TokenChars tokenizes into overlapping five-character n-grams
	TokenChars TokenMethod = "chars"
)

const (
	shingleSize   = 3
	charGramSize  = 5
	minWordLength = 3
)

var wordPattern = regexp.MustCompile(`\w+`)

// TokenSet is a set of tokens produced by Tokenize.
type TokenSet map[string]struct{}

// Tokenize splits text into a token set using the given method. An unknown
// method is a configuration error and fails loudly rather than degrading.
func Tokenize(text string, method TokenMethod) (TokenSet, error) {
	switch method {
	case TokenWords:
		return tokenizeWords(text), nil
	case TokenShingles:
		return tokenizeShingles(text), nil
	case TokenChars:
		return tokenizeChars(text), nil
	default:
		return nil, fmt.Errorf("unknown tokenization method %q", method)
	}
}

// tokenizeWords extracts lowercase word tokens, dropping short noise words
// like "a", "an", "is".
func tokenizeWords(text string) TokenSet {
	set := make(TokenSet)
	for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(word) >= minWordLength {
			set[word] = struct{}{}
		}
	}
	return set
}

// tokenizeShingles produces overlapping three-word windows, capturing local
// word order. Texts shorter than one full window fall back to the plain
// word set so short titles still produce a comparable result.
func tokenizeShingles(text string) TokenSet {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(TokenSet)
	if len(words) < shingleSize {
		for _, word := range words {
			set[word] = struct{}{}
		}
		return set
	}
	for i := 0; i+shingleSize <= len(words); i++ {
		set[strings.Join(words[i:i+shingleSize], " ")] = struct{}{}
	}
	return set
}

// tokenizeChars produces overlapping five-character n-grams over the text
// with all whitespace removed. Very short inputs become a single token.
func tokenizeChars(text string) TokenSet {
	cleaned := strings.ToLower(strings.Join(strings.Fields(text), ""))
	set := make(TokenSet)
	runes := []rune(cleaned)
	if len(runes) == 0 {
		return set
	}
	if len(runes) < charGramSize {
		set[cleaned] = struct{}{}
		return set
	}
	for i := 0; i+charGramSize <= len(runes); i++ {
		set[string(runes[i:i+charGramSize])] = struct{}{}
	}
	return set
}

// Similarity computes the Jaccard index |A∩B| / |A∪B|. Two empty sets are
// considered identical (1.0); one empty set against a non-empty one is 0.0.
func Similarity(a, b TokenSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// TextSimilarity tokenizes both texts with the same method and returns
// their Jaccard similarity.
func TextSimilarity(text1, text2 string, method TokenMethod) (float64, error) {
	set1, err := Tokenize(text1, method)
	if err != nil {
		return 0, err
	}
	set2, err := Tokenize(text2, method)
	if err != nil {
		return 0, err
	}
	return Similarity(set1, set2), nil
}
