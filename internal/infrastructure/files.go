package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxTitleLength bounds sanitized titles so the path stays within
// filesystem name limits with room for extension and collision suffix
const maxTitleLength = 180

// SanitizeTitle turns a media title into a safe file name component.
// Path separators, shell-hostile and control characters are stripped,
// whitespace is collapsed, and the result is length-bounded.
func SanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|' || r == 0:
			b.WriteRune(' ')
		case r < 0x20:
			// drop control characters
		default:
			b.WriteRune(r)
		}
	}
	clean := strings.Join(strings.Fields(b.String()), " ")
	clean = strings.Trim(clean, " .")
	if len(clean) > maxTitleLength {
		clean = strings.TrimRight(clean[:maxTitleLength], " .")
	}
	if clean == "" {
		clean = "download"
	}
	return clean
}

// UniquePath returns "<dir>/<name>.<ext>" or, when that already exists,
// the first free "<dir>/<name> (N).<ext>" variant. Name collisions are
// resolved explicitly instead of silently overwriting.
func UniquePath(dir, name, ext string) string {
	candidate := filepath.Join(dir, name+"."+ext)
	if !pathExists(candidate) {
		return candidate
	}
	for i := 1; ; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d).%s", name, i, ext))
		if !pathExists(candidate) {
			return candidate
		}
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
