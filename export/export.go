// Package export renders the transcript log for the clipboard and as a
// Word-compatible document.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/sawnaing/saye/transcript"
)

// ErrEmptyLog is returned when an export is attempted with no segments.
var ErrEmptyLog = errors.New("nothing to save")

// MIMEType is what document editors expect for the .doc wrapper.
const MIMEType = "application/msword"

var docTemplate = template.Must(template.New("doc").Parse(`<html xmlns:w="urn:schemas-microsoft-com:office:word">
<head>
<meta charset="utf-8">
<title>Myanmar Transcription</title>
<style>
body { font-family: "Pyidaungsu", "Myanmar Text", sans-serif; margin: 2em; }
.segment { margin-bottom: 1.2em; }
.text { font-size: 14pt; margin: 0; }
.time { font-size: 9pt; color: #888888; margin: 0.2em 0 0 0; }
</style>
</head>
<body>
{{range .}}<div class="segment">
<p class="text">{{.Text}}</p>
<p class="time">{{.CapturedAt.Format "2006-01-02 15:04:05"}}</p>
</div>
{{end}}</body>
</html>
`))

// Filename returns the export name for the given date, e.g.
// Myanmar_Transcription_2026-08-30.doc.
func Filename(now time.Time) string {
	return fmt.Sprintf("Myanmar_Transcription_%s.doc", now.Format("2006-01-02"))
}

// WordDocument renders the segments as styled HTML in the .doc wrapper.
func WordDocument(segments []transcript.Segment) ([]byte, error) {
	if len(segments) == 0 {
		return nil, ErrEmptyLog
	}
	var buf bytes.Buffer
	if err := docTemplate.Execute(&buf, segments); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteWordDocument renders and writes the export into dir, returning the
// written path. Nothing is written for an empty log.
func WriteWordDocument(dir string, segments []transcript.Segment, now time.Time) (string, error) {
	doc, err := WordDocument(segments)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, Filename(now))
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	return path, nil
}
