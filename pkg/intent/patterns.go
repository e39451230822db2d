// Package intent recognizes common question shapes with ordered regex
// rules and builds their SQL directly, skipping the language model for
// questions a pattern can answer. Matching is deterministic: rules are
// tried in order and the first match wins.
package intent

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Action is what a matched pattern wants done.
type Action string

const (
	// ActionSelectAll selects every column of one table with a row limit.
	ActionSelectAll Action = "select_all"
	// ActionCount counts the rows of one table.
	ActionCount Action = "count"
	// ActionListTables lists the tables of the target database. No SQL is
	// built; the schema snapshot answers it.
	ActionListTables Action = "list_tables"
	// ActionFindWhere filters one table by a case-insensitive column match.
	ActionFindWhere Action = "find_where"
	// ActionTopN selects the first N rows of one table.
	ActionTopN Action = "top_n"
)

// Pattern is one compiled intent rule. Confidence is static: it belongs to
// the rule, not the strength of any particular match.
type Pattern struct {
	Name       string
	Action     Action
	Regex      *regexp.Regexp
	Confidence float64
}

// DefaultPatterns returns the built-in rules in match order. More specific
// rules come before more general ones where they could overlap.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Name:       "list_tables",
			Action:     ActionListTables,
			Regex:      regexp.MustCompile(`list\s+(?:all\s+)?(?:tables?|schemas?)`),
			Confidence: 0.95,
		},
		{
			Name:       "list_entity",
			Action:     ActionSelectAll,
			Regex:      regexp.MustCompile(`^(?:list|show|get|find)\s+(?:all\s+)?([\w_]+)$`),
			Confidence: 0.95,
		},
		{
			Name:       "show_records_from",
			Action:     ActionSelectAll,
			Regex:      regexp.MustCompile(`show\s+(?:all\s+)?(?:records?|rows?|data)\s+from\s+(\w+)`),
			Confidence: 0.9,
		},
		{
			Name:       "count_records",
			Action:     ActionCount,
			Regex:      regexp.MustCompile(`count\s+(?:records?|rows?)\s+in\s+(\w+)`),
			Confidence: 0.9,
		},
		{
			Name:       "find_where",
			Action:     ActionFindWhere,
			Regex:      regexp.MustCompile(`(?:find|search|get)\s+(\w+)\s+where\s+(\w+)\s*=\s*['"]?([^'"]+)['"]?`),
			Confidence: 0.8,
		},
		{
			Name:       "top_n",
			Action:     ActionTopN,
			Regex:      regexp.MustCompile(`(?:top|first)\s+(\d+)\s+(?:records?|rows?)\s+from\s+(\w+)`),
			Confidence: 0.85,
		},
	}
}

type patternFile struct {
	Patterns []patternSpec `yaml:"patterns"`
}

type patternSpec struct {
	Name       string  `yaml:"name"`
	Action     string  `yaml:"action"`
	Regex      string  `yaml:"regex"`
	Confidence float64 `yaml:"confidence"`
}

var validActions = map[Action]bool{
	ActionSelectAll:  true,
	ActionCount:      true,
	ActionListTables: true,
	ActionFindWhere:  true,
	ActionTopN:       true,
}

// LoadPatterns reads a YAML pattern file. The file replaces the built-in
// rules entirely; order in the file is match order.
func LoadPatterns(path string) ([]Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern file: %w", err)
	}

	var file patternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse pattern file: %w", err)
	}
	if len(file.Patterns) == 0 {
		return nil, fmt.Errorf("pattern file %s defines no patterns", path)
	}

	patterns := make([]Pattern, 0, len(file.Patterns))
	for i, spec := range file.Patterns {
		if spec.Name == "" {
			return nil, fmt.Errorf("pattern %d: name is required", i)
		}
		if !validActions[Action(spec.Action)] {
			return nil, fmt.Errorf("pattern %q: unknown action %q", spec.Name, spec.Action)
		}
		if spec.Confidence <= 0 || spec.Confidence > 1 {
			return nil, fmt.Errorf("pattern %q: confidence must be in (0, 1], got %v", spec.Name, spec.Confidence)
		}
		re, err := regexp.Compile(spec.Regex)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: invalid regex: %w", spec.Name, err)
		}
		patterns = append(patterns, Pattern{
			Name:       spec.Name,
			Action:     Action(spec.Action),
			Regex:      re,
			Confidence: spec.Confidence,
		})
	}

	return patterns, nil
}
