package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]`)
	dashRuns     = regexp.MustCompile(`-+`)
	safeName     = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

const maxNameLength = 200

// VolumeFileName names a cover or PDF after the volume number, e.g. "vol-15-no-2-1767225600000.pdf".
func VolumeFileName(number, original string, now time.Time) string {
	prefix := slug(number)
	if prefix == "" {
		prefix = "vol"
	}
	return fmt.Sprintf("%s-%d.%s", prefix, now.UnixMilli(), Extension(original))
}

// NewsFileName names a news image after the first 20 characters of its title.
func NewsFileName(title, original string, now time.Time) string {
	runes := []rune(strings.TrimSpace(title))
	if len(runes) > 20 {
		runes = runes[:20]
	}
	prefix := slug(string(runes))
	if prefix == "" {
		prefix = "item"
	}
	return fmt.Sprintf("news-%s-%d.%s", prefix, now.UnixMilli(), Extension(original))
}

// Extension returns the lower-cased extension of a client file name, or "bin".
// It only seeds the object name; Upload rewrites it to match the sniffed content type.
func Extension(original string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(strings.TrimSpace(original))), ".")
	ext = nonSlugChars.ReplaceAllString(ext, "")
	if ext == "" {
		return "bin"
	}
	return ext
}

func slug(value string) string {
	out := nonSlugChars.ReplaceAllString(strings.ToLower(value), "-")
	out = dashRuns.ReplaceAllString(out, "-")
	return strings.Trim(out, "-")
}

// ValidName reports whether name is a single safe path segment.
func ValidName(name string) bool {
	if len(name) == 0 || len(name) > maxNameLength {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	return safeName.MatchString(name)
}
