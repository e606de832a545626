// Package search finds tracks inside an exported playlist with fuzzy matching.
package search

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/sirupsen/logrus"

	"github.com/toozej/playlist2csv/internal/types"
)

// TrackSearcher matches free-text queries against flattened track records
type TrackSearcher struct {
	logger *logrus.Logger
}

// NewTrackSearcher creates a new track searcher
func NewTrackSearcher(logger *logrus.Logger) *TrackSearcher {
	return &TrackSearcher{logger: logger}
}

// TrackMatch is a single search hit
type TrackMatch struct {
	Track types.TrackRecord `json:"track"`
	// Position is the 1-based row of the track in the playlist
	Position   int     `json:"position"`
	Score      int     `json:"score"`
	Confidence float64 `json:"confidence"`
}

// IsHighConfidence returns true if the title match confidence is at least 0.8
func (m TrackMatch) IsHighConfidence() bool {
	return m.Confidence >= 0.8
}

// trackSource exposes records to fuzzy.FindFrom as "artist - title (album)"
type trackSource []types.TrackRecord

func (s trackSource) String(i int) string {
	return strings.ToLower(s[i].String())
}

func (s trackSource) Len() int {
	return len(s)
}

// Search returns tracks matching query, best first. A limit of 0 or less
// returns every match.
func (f *TrackSearcher) Search(tracks []types.TrackRecord, query string, limit int) ([]TrackMatch, error) {
	normalizedQuery := strings.ToLower(strings.TrimSpace(query))
	if normalizedQuery == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}

	f.logger.WithFields(logrus.Fields{
		"query":  query,
		"tracks": len(tracks),
	}).Debug("Starting fuzzy track search")

	found := fuzzy.FindFrom(normalizedQuery, trackSource(tracks))
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}

	matches := make([]TrackMatch, 0, len(found))
	for _, hit := range found {
		track := tracks[hit.Index]
		matches = append(matches, TrackMatch{
			Track:      track,
			Position:   hit.Index + 1,
			Score:      hit.Score,
			Confidence: calculateMatchConfidence(normalizedQuery, track.Title),
		})
	}

	f.logger.WithFields(logrus.Fields{
		"query":   query,
		"matches": len(matches),
	}).Info("Fuzzy track search complete")

	return matches, nil
}

// calculateMatchConfidence calculates a confidence score between 0.0 and 1.0
// for how well itemName matches query
func calculateMatchConfidence(query, itemName string) float64 {
	normalizedQuery := strings.ToLower(strings.TrimSpace(query))
	normalizedItem := strings.ToLower(strings.TrimSpace(itemName))

	if normalizedQuery == normalizedItem {
		return 1.0
	}
	if normalizedQuery == "" || normalizedItem == "" {
		return 0.1
	}

	if strings.Contains(normalizedItem, normalizedQuery) {
		ratio := float64(len(normalizedQuery)) / float64(len(normalizedItem))
		return 0.8 + (ratio * 0.2) // Score between 0.8 and 1.0
	}

	if strings.Contains(normalizedQuery, normalizedItem) {
		ratio := float64(len(normalizedItem)) / float64(len(normalizedQuery))
		return 0.7 + (ratio * 0.2) // Score between 0.7 and 0.9
	}

	matches := fuzzy.Find(normalizedQuery, []string{normalizedItem})
	if len(matches) > 0 {
		// fuzzy scores are unbounded, normalize into 0.1-0.7
		fuzzyScore := float64(matches[0].Score)
		maxExpectedScore := float64(len(normalizedQuery) * 2)
		confidence := (fuzzyScore / maxExpectedScore) * 0.7

		if confidence > 0.7 {
			confidence = 0.7
		}
		if confidence < 0.1 {
			confidence = 0.1
		}
		return confidence
	}

	return 0.1
}
