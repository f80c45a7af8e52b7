package generation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	SpeakerHost  = "Host"
	SpeakerGuest = "Guest"
)

var speakerLine = regexp.MustCompile(`^\**\s*(Host|Guest)\s*\**\s*:\s*\**\s*(.+)$`)

// NormalizeScript keeps only "Host:"/"Guest:" lines in canonical form.
func NormalizeScript(raw string) (string, error) {
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		m := speakerLine.FindStringSubmatch(strings.TrimSpace(l))
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[2])
		if text == "" {
			continue
		}
		lines = append(lines, m[1]+": "+text)
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("podcast script has no speaker lines")
	}
	return strings.Join(lines, "\n"), nil
}
