package profile

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	vfs "github.com/twpayne/go-vfs/v4"
)

var nameExp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Parse reads a profile in KEY="value" form. Blank lines and comment
// lines are retained and attached to the key that follows them, so a
// rewrite preserves the author's annotations. Malformed lines, unknown
// or duplicated keys, and records that do not validate are rejected
// whole: there is no partial acceptance of a broken profile.
func Parse(r io.Reader) (*Profile, error) {
	p := &Profile{
		data:     map[string]string{},
		comments: map[string]string{},
	}

	var comment string
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if blankOrComment(text) {
			comment += text + "\n"
			continue
		}

		name, value, err := parseNameValue(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if keyIndex(name) < 0 {
			return nil, fmt.Errorf("line %d: invalid profile key: %s", line, name)
		}
		if _, ok := p.data[name]; ok {
			return nil, fmt.Errorf("line %d: duplicate profile key: %s", line, name)
		}
		p.data[name] = value
		if comment != "" {
			p.comments[name] = comment
			comment = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(p.data) == 0 {
		return nil, fmt.Errorf("no profile keys found")
	}

	if err := p.finish(); err != nil {
		return nil, err
	}
	p.dirty = false
	return p, nil
}

// ParseFile reads a profile from a file on the given filesystem.
func ParseFile(fsys vfs.FS, path string) (*Profile, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func blankOrComment(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}

// parseNameValue splits one NAME=value line. Values may be bare,
// single or double quoted; whitespace around '=' is ignored and a
// trailing '#' comment after the value is discarded.
func parseNameValue(line string) (string, string, error) {
	idx := strings.IndexByte(line, '=')
	if idx < 0 {
		return "", "", fmt.Errorf("malformed line (no '='): %q", line)
	}

	name := strings.TrimSpace(line[:idx])
	if !nameExp.MatchString(name) {
		return "", "", fmt.Errorf("malformed line (bad name): %q", line)
	}

	raw := strings.TrimSpace(line[idx+1:])
	if strings.HasPrefix(raw, "=") {
		return "", "", fmt.Errorf("malformed line (empty assignment): %q", line)
	}

	if len(raw) > 0 && (raw[0] == '"' || raw[0] == '\'') {
		quote := raw[0]
		end := strings.IndexByte(raw[1:], quote)
		if end < 0 {
			return "", "", fmt.Errorf("malformed line (unterminated quote): %q", line)
		}
		value := raw[1 : 1+end]
		rest := strings.TrimSpace(raw[2+end:])
		if rest != "" && !strings.HasPrefix(rest, "#") {
			return "", "", fmt.Errorf("malformed line (trailing data after quote): %q", line)
		}
		return name, value, nil
	}

	if hash := strings.IndexByte(raw, '#'); hash >= 0 {
		raw = raw[:hash]
	}
	return name, strings.TrimSpace(raw), nil
}
