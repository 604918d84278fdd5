package question

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Question is a single line of the question file.
type Question struct {
	Ordinal int    // 1-based position among non-blank lines
	Text    string // trimmed line content
}

const timestampLayout = "20060102_150405"

// Parse reads one question per line, skipping blank lines.
func Parse(r io.Reader) ([]Question, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var questions []Question
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		questions = append(questions, Question{
			Ordinal: len(questions) + 1,
			Text:    line,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}

	return questions, nil
}

// Load reads and parses the question file at path.
func Load(path string) ([]Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open question file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	questions, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return questions, nil
}

// Preview returns the first n runes of the question for log lines.
func (q Question) Preview(n int) string {
	runes := []rune(q.Text)
	if len(runes) <= n {
		return q.Text
	}
	return string(runes[:n]) + "..."
}

// ScreenshotPrefix is the filename prefix shared by every screenshot of ordinal.
func ScreenshotPrefix(ordinal int) string {
	return fmt.Sprintf("question_%d_", ordinal)
}

// ScreenshotName builds the screenshot filename for ordinal taken at t.
func ScreenshotName(ordinal int, t time.Time) string {
	return ScreenshotPrefix(ordinal) + t.Format(timestampLayout) + ".png"
}

// MatchesOrdinal reports whether filename is a screenshot of ordinal.
func MatchesOrdinal(filename string, ordinal int) bool {
	return strings.HasPrefix(filename, ScreenshotPrefix(ordinal))
}
