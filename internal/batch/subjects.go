// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// maxRangeSize bounds SubjectRange expansions.
const maxRangeSize = 10000

// subjectsFile is the mapping form of a subjects file:
//
//	subjects:
//	  - S001
//	  - S002
type subjectsFile struct {
	Subjects []string `yaml:"subjects"`
}

// ReadSubjectsFile loads subject identifiers from a YAML file. The file holds
// either a plain sequence or a mapping with a "subjects" key. Blank entries
// are dropped; order and duplicates are kept.
func ReadSubjectsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading subjects file: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parsing subjects file %s: %w", path, err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var raw []string
	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parsing subjects file %s: %w", path, err)
		}
	case yaml.MappingNode:
		var sf subjectsFile
		if err := root.Decode(&sf); err != nil {
			return nil, fmt.Errorf("parsing subjects file %s: %w", path, err)
		}
		raw = sf.Subjects
	default:
		return nil, fmt.Errorf("subjects file %s: expected a list or a subjects: key", path)
	}

	subjects := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			subjects = append(subjects, s)
		}
	}
	return subjects, nil
}

var rangeRe = regexp.MustCompile(`^([A-Za-z_]*)(\d+)-([A-Za-z_]*)(\d+)$`)

// SubjectRange expands a range such as "S001-S003" (or "S001-003") into
// S001, S002, S003. The width of the first number sets the zero padding.
func SubjectRange(expr string) ([]string, error) {
	m := rangeRe.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return nil, fmt.Errorf("invalid subject range %q (want e.g. S001-S010)", expr)
	}
	prefix, startDigits, endPrefix, endDigits := m[1], m[2], m[3], m[4]
	if endPrefix != "" && endPrefix != prefix {
		return nil, fmt.Errorf("invalid subject range %q: prefixes differ", expr)
	}

	start, err := strconv.Atoi(startDigits)
	if err != nil {
		return nil, fmt.Errorf("invalid subject range %q: %w", expr, err)
	}
	end, err := strconv.Atoi(endDigits)
	if err != nil {
		return nil, fmt.Errorf("invalid subject range %q: %w", expr, err)
	}
	if end < start {
		return nil, fmt.Errorf("invalid subject range %q: end before start", expr)
	}
	if end-start+1 > maxRangeSize {
		return nil, fmt.Errorf("subject range %q exceeds %d subjects", expr, maxRangeSize)
	}

	width := len(startDigits)
	out := make([]string, 0, end-start+1)
	for n := start; n <= end; n++ {
		out = append(out, fmt.Sprintf("%s%0*d", prefix, width, n))
	}
	return out, nil
}
