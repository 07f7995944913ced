// Package reqfile reads and writes dependency manifest files in the
// requirements.txt format: one dependency specifier per line, blank lines
// and #-comment lines ignored. Full-line comments act as group headers for
// the requirements that follow them.
package reqfile

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/johny-c/lagom/internal/domain"
)

// namePattern matches a package name with optional extras, anchored at the
// start of a requirement line.
var namePattern = regexp.MustCompile(`^([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)\s*(?:\[\s*([^]]*)\s*\])?`)

// Load reads and parses a manifest file
func Load(path string) (*domain.Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

// Parse reads a manifest from r. Lines that fail the specifier grammar do
// not abort the parse; they are recorded on the manifest for the linter.
func Parse(r io.Reader) (*domain.Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	sum := sha256.Sum256(data)
	m := domain.NewManifest("")
	m.Hash = hex.EncodeToString(sum[:])

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	group := ""
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		startLine := lineNo
		line := scanner.Text()

		// Backslash continuations join onto the current line
		for strings.HasSuffix(strings.TrimRight(line, " \t"), `\`) && scanner.Scan() {
			lineNo++
			line = strings.TrimRight(strings.TrimRight(line, " \t"), `\`) + " " + scanner.Text()
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "#") {
			if header := strings.TrimSpace(strings.TrimLeft(trimmed, "# ")); header != "" {
				group = header
			}
			continue
		}

		trimmed = stripInlineComment(trimmed)

		req, err := ParseLine(trimmed)
		if err != nil {
			m.Invalid = append(m.Invalid, domain.InvalidLine{
				Line:   startLine,
				Text:   trimmed,
				Reason: err.Error(),
			})
			continue
		}

		req.Line = startLine
		req.Group = group
		m.Add(req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}

	return m, nil
}

// ParseLine parses a single dependency specifier of the form
// name[extras]comparator version, with comma-separated clauses and an
// optional "; marker" suffix.
func ParseLine(line string) (*domain.Requirement, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("empty requirement")
	}
	if strings.HasPrefix(line, "-") {
		return nil, fmt.Errorf("installer option %q is not a dependency specifier", line)
	}

	// Environment marker is kept verbatim
	marker := ""
	if idx := strings.Index(line, ";"); idx >= 0 {
		marker = strings.TrimSpace(line[idx+1:])
		line = strings.TrimSpace(line[:idx])
		if marker == "" {
			return nil, fmt.Errorf("empty environment marker")
		}
	}

	loc := namePattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return nil, fmt.Errorf("invalid package name in %q", line)
	}
	matches := namePattern.FindStringSubmatch(line)

	req := domain.NewRequirement(matches[1])
	if matches[2] != "" {
		for _, extra := range strings.Split(matches[2], ",") {
			extra = strings.TrimSpace(extra)
			if extra == "" {
				return nil, fmt.Errorf("empty extra in %q", line)
			}
			req.Extras = append(req.Extras, extra)
		}
	}
	req.Marker = marker

	rest := strings.TrimSpace(line[loc[1]:])
	if rest == "" {
		return req, nil
	}

	// Specifiers may be wrapped in parentheses: "name (>=1.0)"
	if strings.HasPrefix(rest, "(") {
		if !strings.HasSuffix(rest, ")") {
			return nil, fmt.Errorf("unbalanced parentheses in %q", line)
		}
		rest = strings.TrimSpace(rest[1 : len(rest)-1])
	}

	for _, clause := range strings.Split(rest, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			return nil, fmt.Errorf("empty specifier clause in %q", line)
		}
		spec, err := domain.ParseSpecifier(clause)
		if err != nil {
			return nil, err
		}
		req.Specifiers = append(req.Specifiers, spec)
	}

	return req, nil
}

// stripInlineComment drops a trailing comment. Per the format, an inline
// comment starts at a "#" preceded by whitespace.
func stripInlineComment(line string) string {
	for i := 1; i < len(line); i++ {
		if line[i] == '#' && (line[i-1] == ' ' || line[i-1] == '\t') {
			return strings.TrimSpace(line[:i])
		}
	}
	return line
}
