package dedup

import (
	"fmt"
	"sort"

	"atlas/types"
)

// Match types explain why two records were classified as duplicates.
const (
	MatchTitleExact    = "title_exact"
	MatchTitleHigh     = "title_high"
	MatchContentHigh   = "content_high"
	MatchContentMedium = "content_medium"
	MatchURLSimilar    = "url_similar"
	MatchHybrid        = "hybrid"
	MatchHashMatch     = "hash_match"
	MatchNone          = "none"
)

// Signal names used in the per-pair signal map. The fallback classification
// reports the winning signal's name directly as the match type.
const (
	signalTitleExact      = "title_exact"
	signalTitleJaccard    = "title_jaccard"
	signalContentWords    = "content_words"
	signalContentShingles = "content_shingles"
	signalURLJaccard      = "url_jaccard"
)

// signalOrder fixes the iteration order over the signal map so that
// fallback classification is deterministic.
var signalOrder = []string{
	signalTitleExact,
	signalTitleJaccard,
	signalContentWords,
	signalContentShingles,
	signalURLJaccard,
}

// hybridWeights weight each signal's contribution to the hybrid score.
// Missing signals are excluded from both numerator and denominator.
var hybridWeights = map[string]float64{
	signalTitleJaccard:    0.4,
	signalContentWords:    0.3,
	signalContentShingles: 0.2,
	signalURLJaccard:      0.1,
}

// minReportableScore is the floor below which a pairwise comparison is not
// reported as a match at all.
const minReportableScore = 0.5

// minDecisionConfidence is the confidence floor a top match must clear
// before IsContentDuplicate treats it as a duplicate.
const minDecisionConfidence = 0.7

// DefaultSimilarityThreshold is the raw-score bar for IsContentDuplicate
// when the caller does not supply one.
const DefaultSimilarityThreshold = 0.8

// Thresholds holds the score cutoffs for each rung of the classification
// ladder.
type Thresholds struct {
	TitleExact    float64
	TitleHigh     float64
	ContentHigh   float64
	ContentMedium float64
	URLSimilar    float64
	Hybrid        float64
}

// DefaultThresholds returns the standard classification cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TitleExact:    1.0,
		TitleHigh:     0.9,
		ContentHigh:   0.85,
		ContentMedium: 0.7,
		URLSimilar:    0.8,
		Hybrid:        0.75,
	}
}

// SimilarityMatch is the result of comparing a candidate against one
// pre-existing corpus record.
type SimilarityMatch struct {
	// PrimaryUID is the pre-existing corpus item
	PrimaryUID string `json:"primary_uid"`
	// DuplicateUID is the candidate that was checked
	DuplicateUID    string  `json:"duplicate_uid"`
	SimilarityScore float64 `json:"similarity_score"`
	MatchType       string  `json:"match_type"`
	// Confidence may exceed the raw score via documented boosts, capped at 1.0
	Confidence float64 `json:"confidence"`
}

// HashIndex maps content fingerprints to the uids carrying them. It is
// rebuilt from scratch on every fast check; corpora are personal-archive
// scale, so the full rescan stays cheap.
type HashIndex struct {
	TitleHashes   map[string][]string `json:"title_hashes"`
	ContentHashes map[string][]string `json:"content_hashes"`
	FuzzyHashes   map[string][]string `json:"fuzzy_hashes"`
}

// MetadataSource describes the metadata store functionality the
// deduplicator requires. The returned slice must be freshly owned; the
// deduplicator reads records but never mutates them.
type MetadataSource interface {
	GetAllMetadata() ([]types.ContentRecord, error)
}

// EnhancedDeduplicator decides whether a candidate record duplicates
// something already in the corpus, using pairwise similarity signals.
type EnhancedDeduplicator struct {
	metadata   MetadataSource
	thresholds Thresholds
}

// NewEnhancedDeduplicator creates a similarity engine over the given
// metadata source.
func NewEnhancedDeduplicator(metadata MetadataSource) (*EnhancedDeduplicator, error) {
	if metadata == nil {
		return nil, fmt.Errorf("metadata source cannot be nil")
	}
	return &EnhancedDeduplicator{
		metadata:   metadata,
		thresholds: DefaultThresholds(),
	}, nil
}

// FindDuplicates compares the candidate against every same-type corpus
// record and returns all matches scoring above the reporting floor, best
// first (confidence, then raw score).
func (d *EnhancedDeduplicator) FindDuplicates(contentType types.ContentType, candidate types.ContentRecord) ([]SimilarityMatch, error) {
	corpus, err := d.corpusForType(contentType)
	if err != nil {
		return nil, err
	}
	return d.findDuplicatesIn(candidate, corpus), nil
}

// corpusForType fetches the full corpus and filters it to one content type.
func (d *EnhancedDeduplicator) corpusForType(contentType types.ContentType) ([]types.ContentRecord, error) {
	all, err := d.metadata.GetAllMetadata()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata corpus: %w", err)
	}
	filtered := make([]types.ContentRecord, 0, len(all))
	for _, record := range all {
		if record.ContentType == contentType {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}

// findDuplicatesIn runs the pairwise scan against an already-filtered
// corpus slice. Bulk sweeps use this to avoid re-fetching per item.
func (d *EnhancedDeduplicator) findDuplicatesIn(candidate types.ContentRecord, corpus []types.ContentRecord) []SimilarityMatch {
	var matches []SimilarityMatch
	for i := range corpus {
		if match := d.compareContent(&candidate, &corpus[i]); match != nil {
			matches = append(matches, *match)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].SimilarityScore > matches[j].SimilarityScore
	})
	return matches
}

// compareContent computes the similarity signals between a candidate and
// one existing record, returning nil when the pair is the same item or
// scores below the reporting floor.
func (d *EnhancedDeduplicator) compareContent(candidate, existing *types.ContentRecord) *SimilarityMatch {
	if candidate.UID == existing.UID {
		return nil
	}

	signals := make(map[string]float64)

	if candidate.Title != "" && existing.Title != "" {
		// Exact means exact-after-normalization: case, punctuation, and
		// whitespace runs do not break a title match.
		if TitleHash(candidate.Title) == TitleHash(existing.Title) {
			signals[signalTitleExact] = 1.0
		} else {
			signals[signalTitleExact] = 0.0
		}
		signals[signalTitleJaccard] = Similarity(tokenizeWords(candidate.Title), tokenizeWords(existing.Title))
	}

	candidateText := candidate.Text()
	existingText := existing.Text()
	if candidateText != "" && existingText != "" {
		signals[signalContentWords] = Similarity(tokenizeWords(candidateText), tokenizeWords(existingText))
		signals[signalContentShingles] = Similarity(tokenizeShingles(candidateText), tokenizeShingles(existingText))
	}

	if candidate.URL != "" && existing.URL != "" {
		signals[signalURLJaccard] = Similarity(tokenizeChars(candidate.URL), tokenizeChars(existing.URL))
	}

	score, matchType := d.evaluateSimilarities(signals)
	if score < minReportableScore {
		return nil
	}

	return &SimilarityMatch{
		PrimaryUID:      existing.UID,
		DuplicateUID:    candidate.UID,
		SimilarityScore: score,
		MatchType:       matchType,
		Confidence:      d.calculateConfidence(signals, score, matchType),
	}
}

// evaluateSimilarities reduces a signal map to a single classification via
// the tiered ladder. The first rung that clears its threshold wins; below
// every threshold the strongest raw signal is reported as a best-effort
// classification and the caller filters on the reporting floor.
func (d *EnhancedDeduplicator) evaluateSimilarities(signals map[string]float64) (float64, string) {
	if len(signals) == 0 {
		return 0.0, MatchNone
	}

	if exact, ok := signals[signalTitleExact]; ok && exact == d.thresholds.TitleExact {
		return 1.0, MatchTitleExact
	}

	if titleJaccard, ok := signals[signalTitleJaccard]; ok && titleJaccard >= d.thresholds.TitleHigh {
		return titleJaccard, MatchTitleHigh
	}

	contentBest := signals[signalContentWords]
	if shingles := signals[signalContentShingles]; shingles > contentBest {
		contentBest = shingles
	}
	if contentBest >= d.thresholds.ContentHigh {
		return contentBest, MatchContentHigh
	}
	if contentBest >= d.thresholds.ContentMedium {
		return contentBest, MatchContentMedium
	}

	if urlJaccard, ok := signals[signalURLJaccard]; ok && urlJaccard >= d.thresholds.URLSimilar {
		return urlJaccard, MatchURLSimilar
	}

	if hybrid := d.calculateHybridScore(signals); hybrid >= d.thresholds.Hybrid {
		return hybrid, MatchHybrid
	}

	bestScore := 0.0
	bestSignal := MatchNone
	for _, name := range signalOrder {
		if value, ok := signals[name]; ok && (bestSignal == MatchNone || value > bestScore) {
			bestScore = value
			bestSignal = name
		}
	}
	return bestScore, bestSignal
}

// calculateHybridScore combines the weighted signals, normalizing by the
// weights actually present so a missing signal does not drag the average
// toward zero.
func (d *EnhancedDeduplicator) calculateHybridScore(signals map[string]float64) float64 {
	var weightedSum, totalWeight float64
	for name, weight := range hybridWeights {
		if value, ok := signals[name]; ok {
			weightedSum += value * weight
			totalWeight += weight
		}
	}
	if totalWeight == 0 {
		return 0.0
	}
	return weightedSum / totalWeight
}

// calculateConfidence derives a trust-adjusted confidence from the raw
// score. Exact title matches earn an extra 0.2 because title collisions are
// rare; otherwise two or more independent signals above 0.7 earn 0.1.
// Confidence never exceeds 1.0.
func (d *EnhancedDeduplicator) calculateConfidence(signals map[string]float64, score float64, matchType string) float64 {
	confidence := score

	if matchType == MatchTitleExact {
		confidence += 0.2
	} else {
		strong := 0
		for _, value := range signals {
			if value > 0.7 {
				strong++
			}
		}
		if strong >= 2 {
			confidence += 0.1
		}
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// IsContentDuplicate reports whether the candidate duplicates something in
// the corpus. A duplicate verdict requires the top match to clear both the
// similarity threshold and the confidence floor; the floor keeps low-trust
// matches from triggering skip decisions. threshold <= 0 selects
// DefaultSimilarityThreshold. The top match is returned as evidence even
// when the verdict is negative.
func (d *EnhancedDeduplicator) IsContentDuplicate(contentType types.ContentType, candidate types.ContentRecord, threshold float64) (bool, *SimilarityMatch, error) {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	matches, err := d.FindDuplicates(contentType, candidate)
	if err != nil {
		return false, nil, err
	}
	if len(matches) == 0 {
		return false, nil, nil
	}

	best := matches[0]
	isDuplicate := best.SimilarityScore >= threshold && best.Confidence >= minDecisionConfidence
	return isDuplicate, &best, nil
}

// ContentHashIndex scans the same-type corpus once and buckets every
// record's fingerprints by uid. Records without a uid cannot be indexed and
// are skipped.
func (d *EnhancedDeduplicator) ContentHashIndex(contentType types.ContentType) (HashIndex, error) {
	index := HashIndex{
		TitleHashes:   make(map[string][]string),
		ContentHashes: make(map[string][]string),
		FuzzyHashes:   make(map[string][]string),
	}

	corpus, err := d.corpusForType(contentType)
	if err != nil {
		return index, err
	}

	for _, record := range corpus {
		if record.UID == "" {
			continue
		}
		if hash := TitleHash(record.Title); hash != "" {
			index.TitleHashes[hash] = append(index.TitleHashes[hash], record.UID)
		}
		if text := record.Text(); text != "" {
			index.ContentHashes[ContentHash(text, 0)] = append(index.ContentHashes[ContentHash(text, 0)], record.UID)
			index.FuzzyHashes[FuzzyContentHash(text)] = append(index.FuzzyHashes[FuzzyContentHash(text)], record.UID)
		}
	}

	return index, nil
}

// FastDuplicateCheck is a cheap hash-collision pre-filter that
// short-circuits before the pairwise scan. It trades recall for speed:
// near-duplicates that do not hash-collide are missed. The colliding uids
// are returned so callers can report which corpus items matched.
func (d *EnhancedDeduplicator) FastDuplicateCheck(contentType types.ContentType, candidate types.ContentRecord) (bool, []string, error) {
	index, err := d.ContentHashIndex(contentType)
	if err != nil {
		return false, nil, err
	}

	if hash := TitleHash(candidate.Title); hash != "" {
		if uids, ok := index.TitleHashes[hash]; ok {
			return true, uids, nil
		}
	}
	if text := candidate.Text(); text != "" {
		if uids, ok := index.ContentHashes[ContentHash(text, 0)]; ok {
			return true, uids, nil
		}
		if uids, ok := index.FuzzyHashes[FuzzyContentHash(text)]; ok {
			return true, uids, nil
		}
	}
	return false, nil, nil
}
