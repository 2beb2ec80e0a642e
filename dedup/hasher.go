// Package dedup detects duplicate content records using normalized
// fingerprints and set-based text similarity, combined into a tiered
// decision pipeline.
package dedup

import (
	"crypto/md5"
	"fmt"
	"regexp"
	"strings"
)

const (
	// hashLength is the number of hex characters kept from each digest
	hashLength = 16

	// DefaultContentHashChars is how much of the content prefix ContentHash
	// fingerprints when no explicit length is given
	DefaultContentHashChars = 1000
)

var (
	nonWordOrSpace = regexp.MustCompile(`[^\w\s]`)
	nonWord        = regexp.MustCompile(`\W`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// TitleHash fingerprints a title insensitively to case, punctuation, and
// whitespace runs. Empty titles hash to the empty string.
func TitleHash(title string) string {
	if title == "" {
		return ""
	}
	normalized := strings.ToLower(title)
	normalized = nonWordOrSpace.ReplaceAllString(normalized, "")
	normalized = whitespaceRun.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)
	return truncatedMD5(normalized)
}

// ContentHash fingerprints the first nChars characters of content so that
// items diverging only near the end (appended ads, footers) still collide.
// nChars <= 0 selects DefaultContentHashChars.
func ContentHash(content string, nChars int) string {
	if content == "" {
		return ""
	}
	if nChars <= 0 {
		nChars = DefaultContentHashChars
	}
	runes := []rune(content)
	if len(runes) > nChars {
		runes = runes[:nChars]
	}
	normalized := strings.TrimSpace(strings.ToLower(string(runes)))
	return truncatedMD5(normalized)
}

// FuzzyContentHash fingerprints content with every non-word character
// stripped, collapsing formatting-only differences (line breaks,
// punctuation) that ContentHash would preserve.
func FuzzyContentHash(content string) string {
	if content == "" {
		return ""
	}
	normalized := nonWord.ReplaceAllString(strings.ToLower(content), "")
	return truncatedMD5(normalized)
}

func truncatedMD5(s string) string {
	sum := md5.Sum([]byte(s))
	return fmt.Sprintf("%x", sum)[:hashLength]
}
