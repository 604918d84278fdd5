package helpers

import (
	"path"
	"path/filepath"
	"strings"
)

// ParseOutputPath parses an output path in the format "local[:remote]".
// Without a colon the remote key is the local file name.
func ParseOutputPath(p string) (local, remote string) {
	parts := strings.SplitN(p, ":", 2)
	if len(parts) == 2 && !isWindowsDrive(parts[0]) {
		local = strings.TrimSpace(parts[0])
		remote = strings.TrimSpace(parts[1])
	} else {
		local = strings.TrimSpace(p)
	}
	if remote == "" {
		remote = filepath.Base(local)
	}
	return local, remote
}

func isWindowsDrive(s string) bool {
	return len(s) == 1 && ((s[0] >= 'a' && s[0] <= 'z') || (s[0] >= 'A' && s[0] <= 'Z'))
}

// ScreenshotKey is the remote key of a screenshot uploaded by run runID.
func ScreenshotKey(runID, localPath string) string {
	return path.Join(runID, filepath.Base(localPath))
}
