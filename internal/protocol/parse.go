// Package protocol parses the backend's reply format: a repeating pattern of
// a path-announcing line followed by a fenced content block.
package protocol

import "strings"

// File is one generated file extracted from a backend reply. Files carry no
// identity beyond the path; duplicates are applied in encounter order.
type File struct {
	Path    string
	Content string
}

const (
	pathPrefix = "Path:"
	fence      = "```"
)

// Parse extracts all path/content pairs from a backend reply in one linear
// scan. A reply with no matches yields an empty result; the caller decides
// whether that is worth a warning. Parse itself never fails.
func Parse(response string) []File {
	var files []File
	lines := strings.Split(response, "\n")

	for i := 0; i < len(lines); i++ {
		path, ok := pathLine(lines[i])
		if !ok {
			continue
		}
		// The fence must open on the immediately following line.
		if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1], fence) {
			continue
		}
		var content []string
		closed := false
		j := i + 2
		for ; j < len(lines); j++ {
			if strings.TrimRight(lines[j], " \t") == fence {
				closed = true
				break
			}
			content = append(content, lines[j])
		}
		if !closed {
			break // unterminated fence ends the scan
		}
		files = append(files, File{Path: path, Content: strings.Join(content, "\n")})
		i = j
	}
	return files
}

// pathLine extracts the announced path from a "Path: x" line. The announce
// line tolerates markdown bold around the label, which backends emit often.
func pathLine(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "**")
	if !strings.HasPrefix(trimmed, pathPrefix) {
		return "", false
	}
	rest := strings.TrimPrefix(trimmed, pathPrefix)
	rest = strings.TrimSuffix(strings.TrimSpace(rest), "**")
	rest = strings.Trim(strings.TrimSpace(rest), "`")
	if rest == "" {
		return "", false
	}
	return rest, true
}
