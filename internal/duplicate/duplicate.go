// Package duplicate detects tracks that appear more than once in a playlist export.
package duplicate

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/toozej/playlist2csv/internal/types"
)

// Result describes the duplicates found in a track list
type Result struct {
	HasDuplicates bool `json:"has_duplicates"`
	// Duplicates holds every repeated occurrence, excluding the first one
	Duplicates []Occurrence `json:"duplicates"`
	Message    string       `json:"message"`
}

// Occurrence is a repeated track and its 1-based positions in the playlist
type Occurrence struct {
	Track         types.TrackRecord `json:"track"`
	Position      int               `json:"position"`
	FirstPosition int               `json:"first_position"`
}

// Detector finds repeated tracks by title, artist and album
type Detector struct {
	logger *log.Logger
}

// NewDetector creates a new duplicate detector
func NewDetector(logger *log.Logger) *Detector {
	return &Detector{logger: logger}
}

// Key returns the case-insensitive identity of a track
func Key(track types.TrackRecord) string {
	normalize := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return normalize(track.Artist) + "\x00" + normalize(track.Title) + "\x00" + normalize(track.Album)
}

// Check reports repeated tracks without modifying the list
func (d *Detector) Check(playlistName string, tracks []types.TrackRecord) *Result {
	if len(tracks) == 0 {
		d.logger.WithFields(log.Fields{
			"component": "duplicate_detector",
			"operation": "check_duplicates",
			"playlist":  playlistName,
		}).Debug("No tracks provided for duplicate check")
		return &Result{Message: "No tracks to check"}
	}

	firstSeen := make(map[string]int, len(tracks))
	var duplicates []Occurrence
	var names []string

	for i, track := range tracks {
		key := Key(track)
		if first, ok := firstSeen[key]; ok {
			duplicates = append(duplicates, Occurrence{Track: track, Position: i + 1, FirstPosition: first})
			names = append(names, track.String())
			continue
		}
		firstSeen[key] = i + 1
	}

	result := &Result{
		HasDuplicates: len(duplicates) > 0,
		Duplicates:    duplicates,
	}

	if result.HasDuplicates {
		result.Message = fmt.Sprintf("Found %d duplicate track(s): %s", len(duplicates), strings.Join(names, ", "))
		d.logger.WithFields(log.Fields{
			"component":            "duplicate_detector",
			"operation":            "check_duplicates",
			"playlist":             playlistName,
			"duplicate_count":      len(duplicates),
			"total_tracks_checked": len(tracks),
		}).Info("Duplicate tracks detected")
	} else {
		result.Message = "No duplicate tracks found"
		d.logger.WithFields(log.Fields{
			"component":            "duplicate_detector",
			"operation":            "check_duplicates",
			"playlist":             playlistName,
			"total_tracks_checked": len(tracks),
		}).Debug("No duplicate tracks found")
	}

	return result
}

// Remove returns the tracks with repeated occurrences dropped, keeping the
// first occurrence of each track in its original position.
func (d *Detector) Remove(playlistName string, tracks []types.TrackRecord) []types.TrackRecord {
	seen := make(map[string]struct{}, len(tracks))
	unique := make([]types.TrackRecord, 0, len(tracks))

	for _, track := range tracks {
		key := Key(track)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, track)
	}

	if removed := len(tracks) - len(unique); removed > 0 {
		d.logger.WithFields(log.Fields{
			"component": "duplicate_detector",
			"operation": "remove_duplicates",
			"playlist":  playlistName,
			"removed":   removed,
			"remaining": len(unique),
		}).Info("Removed duplicate tracks")
	}

	return unique
}
