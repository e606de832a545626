package csvexport

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/toozej/playlist2csv/internal/types"
)

// FileSuffix is appended to the playlist name to build the output file name
const FileSuffix = "_playlist.csv"

// FileName returns the output file name for a playlist. Path separators in
// the name are replaced so the file always lands in the target directory.
func FileName(playlistName string) string {
	replacer := strings.NewReplacer("/", "_", `\`, "_")
	return replacer.Replace(playlistName) + FileSuffix
}

// Writer writes track records as CSV to files or streams
type Writer struct {
	opts   Options
	logger *logrus.Logger
}

// NewWriter creates a Writer using the given encoding options
func NewWriter(opts Options, logger *logrus.Logger) *Writer {
	return &Writer{opts: opts, logger: logger}
}

// WriteTo encodes tracks to w
func (cw *Writer) WriteTo(w io.Writer, playlistName string, tracks []types.TrackRecord) error {
	if len(tracks) == 0 {
		cw.logger.WithField("playlist", playlistName).Error("No tracks to export")
		return types.ErrEmptyExport
	}

	if err := Encode(w, tracks, cw.opts); err != nil {
		cw.logger.WithError(err).WithField("playlist", playlistName).Error("Failed to encode CSV")
		return err
	}

	cw.logger.WithFields(logrus.Fields{
		"playlist": playlistName,
		"tracks":   len(tracks),
	}).Debug("Encoded CSV")
	return nil
}

// WriteFile encodes tracks into <dir>/<playlistName>_playlist.csv and returns
// the path written. Nothing is created when there are no tracks.
func (cw *Writer) WriteFile(dir, playlistName string, tracks []types.TrackRecord) (string, error) {
	var buf bytes.Buffer
	if err := cw.WriteTo(&buf, playlistName, tracks); err != nil {
		return "", err
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, FileName(playlistName))
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil { // #nosec G306 -- exported CSV is meant to be shared
		cw.logger.WithError(err).WithField("path", path).Error("Failed to write CSV file")
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	cw.logger.WithFields(logrus.Fields{
		"path":   path,
		"tracks": len(tracks),
	}).Info("Wrote CSV file")
	return path, nil
}
