package dedup

import (
	"fmt"
	"log"

	"atlas/types"
)

// Recommendations tell automated callers what to do with a candidate:
// "skip" is a hard stop, "review" queues for a human decision, the two
// process tiers green-light with or without a log flag.
const (
	RecommendSkip               = "skip"
	RecommendReview             = "review"
	RecommendProcessWithWarning = "process_with_warning"
	RecommendProcess            = "process"
)

// Duplicate types on a report.
const (
	DuplicateTypeURL     = "url"
	DuplicateTypeContent = "content"
)

// DefaultCleanupConfidence is the confidence bar for flagging items during
// cleanup sweeps when the caller does not supply one.
const DefaultCleanupConfidence = 0.95

// URLChecker is the external raw-URL existence check, backed by the
// per-content-type storage locations.
type URLChecker interface {
	Exists(url string) (bool, error)
}

// MetadataRemover removes a record from the metadata store. Cleanup only
// decides what to remove; the removal mechanism belongs to the store.
type MetadataRemover interface {
	Remove(uid string) error
}

// IntegratedConfig configures the integrated deduplicator. The zero value
// enables both checks with the default similarity threshold.
type IntegratedConfig struct {
	// SimilarityThreshold for content duplicate verdicts; 0 means the default
	SimilarityThreshold float64
	// DisableFastCheck skips the hash-index pre-filter
	DisableFastCheck bool
	// DisableContentCheck skips content similarity entirely
	DisableContentCheck bool
}

// IntegratedDeduplicator composes raw-URL existence checking with content
// similarity into one actionable recommendation per candidate, plus
// corpus-wide statistics and cleanup.
type IntegratedDeduplicator struct {
	enhanced *EnhancedDeduplicator
	urls     URLChecker
	remover  MetadataRemover
	config   IntegratedConfig
}

// NewIntegratedDeduplicator builds the unified entry point. urls may be nil
// when no raw-URL store is available; remover may be nil, in which case
// cleanup is restricted to dry runs.
func NewIntegratedDeduplicator(metadata MetadataSource, urls URLChecker, remover MetadataRemover, config IntegratedConfig) (*IntegratedDeduplicator, error) {
	enhanced, err := NewEnhancedDeduplicator(metadata)
	if err != nil {
		return nil, err
	}
	if config.SimilarityThreshold == 0 {
		config.SimilarityThreshold = DefaultSimilarityThreshold
	}
	return &IntegratedDeduplicator{
		enhanced: enhanced,
		urls:     urls,
		remover:  remover,
		config:   config,
	}, nil
}

// DuplicateReport is the unified decision for one candidate.
type DuplicateReport struct {
	IsDuplicate      bool             `json:"is_duplicate"`
	DuplicateType    string           `json:"duplicate_type,omitempty"`
	URLDuplicate     bool             `json:"url_duplicate"`
	ContentDuplicate bool             `json:"content_duplicate"`
	SimilarityMatch  *SimilarityMatch `json:"similarity_match,omitempty"`
	Confidence       float64          `json:"confidence"`
	Recommendation   string           `json:"recommendation"`
}

// TypeStatistics aggregates duplicate counts for one content type.
type TypeStatistics struct {
	TotalItems               int `json:"total_items"`
	PotentialDuplicates      int `json:"potential_duplicates"`
	HighConfidenceDuplicates int `json:"high_confidence_duplicates"`
}

// DuplicateStatistics summarizes duplication across the whole corpus.
type DuplicateStatistics struct {
	TotalItems               int                                  `json:"total_items"`
	PotentialDuplicates      int                                  `json:"potential_duplicates"`
	HighConfidenceDuplicates int                                  `json:"high_confidence_duplicates"`
	ByType                   map[types.ContentType]TypeStatistics `json:"by_type"`
	Errors                   []string                             `json:"errors,omitempty"`
}

// TypeCleanup reports the cleanup outcome for one content type.
type TypeCleanup struct {
	Found   int      `json:"found"`
	Removed int      `json:"removed"`
	UIDs    []string `json:"uids,omitempty"`
}

// CleanupReport summarizes a cleanup sweep.
type CleanupReport struct {
	DryRun  bool                              `json:"dry_run"`
	Found   int                               `json:"found"`
	Removed int                               `json:"removed"`
	ByType  map[types.ContentType]TypeCleanup `json:"by_type"`
	Errors  []string                          `json:"errors,omitempty"`
}

// IsURLDuplicate reports whether the raw URL already exists in storage.
// Pure passthrough to the external existence check.
func (d *IntegratedDeduplicator) IsURLDuplicate(url string) (bool, error) {
	if d.urls == nil || url == "" {
		return false, nil
	}
	return d.urls.Exists(url)
}

// IsContentDuplicate runs the fast hash pre-filter (when enabled) and falls
// through to the full pairwise scan. A fast-path hit synthesizes a
// hash_match carrying the first colliding uid.
func (d *IntegratedDeduplicator) IsContentDuplicate(contentType types.ContentType, candidate types.ContentRecord) (bool, *SimilarityMatch, error) {
	if d.config.DisableContentCheck {
		return false, nil, nil
	}

	if !d.config.DisableFastCheck {
		hit, uids, err := d.enhanced.FastDuplicateCheck(contentType, candidate)
		if err != nil {
			return false, nil, err
		}
		if hit {
			primary := "unknown"
			if len(uids) > 0 {
				primary = uids[0]
			}
			return true, &SimilarityMatch{
				PrimaryUID:      primary,
				DuplicateUID:    candidate.UID,
				SimilarityScore: 1.0,
				MatchType:       MatchHashMatch,
				Confidence:      0.9,
			}, nil
		}
	}

	return d.enhanced.IsContentDuplicate(contentType, candidate, d.config.SimilarityThreshold)
}

// CheckAllDuplicates is the primary decision function. URL duplication is
// checked first and short-circuits: an exact URL hit is maximally trusted
// and never consults content similarity.
func (d *IntegratedDeduplicator) CheckAllDuplicates(url string, contentType types.ContentType, candidate *types.ContentRecord) (DuplicateReport, error) {
	report := DuplicateReport{Recommendation: RecommendProcess}

	urlDuplicate, err := d.IsURLDuplicate(url)
	if err != nil {
		return report, fmt.Errorf("url existence check failed: %w", err)
	}
	if urlDuplicate {
		report.IsDuplicate = true
		report.DuplicateType = DuplicateTypeURL
		report.URLDuplicate = true
		report.Confidence = 1.0
		report.Recommendation = RecommendSkip
		return report, nil
	}

	if candidate == nil || d.config.DisableContentCheck {
		return report, nil
	}

	isDuplicate, match, err := d.IsContentDuplicate(contentType, *candidate)
	if err != nil {
		return report, err
	}
	report.SimilarityMatch = match
	if !isDuplicate {
		return report, nil
	}

	report.IsDuplicate = true
	report.DuplicateType = DuplicateTypeContent
	report.ContentDuplicate = true
	report.Confidence = match.Confidence
	report.Recommendation = recommendFor(match.MatchType, match.Confidence)
	return report, nil
}

// recommendFor maps a content match to an action. Exact and hash matches
// never re-process; medium confidence goes to human review because
// similarity heuristics have false positives on topically-similar-but-
// distinct content.
func recommendFor(matchType string, confidence float64) string {
	if matchType == MatchTitleExact || matchType == MatchHashMatch || confidence > 0.9 {
		return RecommendSkip
	}
	if confidence > 0.8 {
		return RecommendReview
	}
	return RecommendProcessWithWarning
}

// FindSimilarContent returns up to limit best matches for human review.
// limit <= 0 selects 10.
func (d *IntegratedDeduplicator) FindSimilarContent(contentType types.ContentType, candidate types.ContentRecord, limit int) ([]SimilarityMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	matches, err := d.enhanced.FindDuplicates(contentType, candidate)
	if err != nil {
		return nil, err
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// GetDuplicateStatistics re-runs the pairwise scan for every corpus item
// against its same-type corpus. Quadratic in corpus size; acceptable at
// personal-archive scale. The corpus is fetched once and partitioned, not
// re-fetched per item.
func (d *IntegratedDeduplicator) GetDuplicateStatistics() (DuplicateStatistics, error) {
	stats := DuplicateStatistics{ByType: make(map[types.ContentType]TypeStatistics)}

	all, err := d.enhanced.metadata.GetAllMetadata()
	if err != nil {
		return stats, fmt.Errorf("failed to fetch metadata corpus: %w", err)
	}

	byType := partitionByType(all)
	for _, contentType := range types.AllContentTypes {
		corpus := byType[contentType]
		typeStats := TypeStatistics{TotalItems: len(corpus)}

		for _, record := range corpus {
			if record.UID == "" {
				stats.Errors = append(stats.Errors, fmt.Sprintf("%s: record without uid skipped", contentType))
				continue
			}
			matches := d.enhanced.findDuplicatesIn(record, corpus)
			for _, match := range matches {
				if match.Confidence > 0.8 {
					typeStats.PotentialDuplicates++
				}
				if match.Confidence > 0.9 {
					typeStats.HighConfidenceDuplicates++
				}
			}
		}

		stats.ByType[contentType] = typeStats
		stats.TotalItems += typeStats.TotalItems
		stats.PotentialDuplicates += typeStats.PotentialDuplicates
		stats.HighConfidenceDuplicates += typeStats.HighConfidenceDuplicates
	}

	return stats, nil
}

// CleanupDuplicates flags high-confidence duplicates for removal, one
// survivor per cluster. Scanning an item marks its matched counterparts as
// processed so the reverse pairing is not counted again. With dryRun false
// the flagged records are removed through the metadata remover; one item
// failing does not abort the sweep. confidenceThreshold <= 0 selects
// DefaultCleanupConfidence.
func (d *IntegratedDeduplicator) CleanupDuplicates(dryRun bool, confidenceThreshold float64) (CleanupReport, error) {
	if confidenceThreshold <= 0 {
		confidenceThreshold = DefaultCleanupConfidence
	}

	report := CleanupReport{DryRun: dryRun, ByType: make(map[types.ContentType]TypeCleanup)}
	if !dryRun && d.remover == nil {
		return report, fmt.Errorf("no metadata remover configured; only dry runs are possible")
	}

	all, err := d.enhanced.metadata.GetAllMetadata()
	if err != nil {
		return report, fmt.Errorf("failed to fetch metadata corpus: %w", err)
	}

	byType := partitionByType(all)
	for _, contentType := range types.AllContentTypes {
		corpus := byType[contentType]
		processed := make(map[string]bool)
		typeReport := TypeCleanup{}

		for _, record := range corpus {
			if record.UID == "" || processed[record.UID] {
				continue
			}

			matches := d.enhanced.findDuplicatesIn(record, corpus)
			for _, match := range matches {
				if match.Confidence < confidenceThreshold {
					continue
				}
				duplicate := match.PrimaryUID
				if duplicate == record.UID || processed[duplicate] {
					continue
				}
				processed[duplicate] = true
				typeReport.Found++
				typeReport.UIDs = append(typeReport.UIDs, duplicate)

				if dryRun {
					continue
				}
				if err := d.remover.Remove(duplicate); err != nil {
					report.Errors = append(report.Errors, fmt.Sprintf("%s/%s: %v", contentType, duplicate, err))
					log.Printf("Warning: failed to remove duplicate %s: %v", duplicate, err)
					continue
				}
				typeReport.Removed++
			}
			processed[record.UID] = true
		}

		report.ByType[contentType] = typeReport
		report.Found += typeReport.Found
		report.Removed += typeReport.Removed
	}

	return report, nil
}

func partitionByType(records []types.ContentRecord) map[types.ContentType][]types.ContentRecord {
	byType := make(map[types.ContentType][]types.ContentRecord)
	for _, record := range records {
		byType[record.ContentType] = append(byType[record.ContentType], record)
	}
	return byType
}
