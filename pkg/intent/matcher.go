package intent

import (
	"strconv"
	"strings"
)

// Match is the outcome of a successful pattern match. Table, Column and
// Value are raw text from the question; they are resolved against the
// schema snapshot when the SQL is built.
type Match struct {
	Pattern    string  `json:"pattern"`
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
	Table      string  `json:"table,omitempty"`
	Column     string  `json:"column,omitempty"`
	Value      string  `json:"value,omitempty"`
	Limit      int     `json:"limit,omitempty"`
}

// Matcher matches questions against an ordered rule list.
type Matcher struct {
	patterns []Pattern
}

// NewMatcher creates a matcher over the given rules. Pass DefaultPatterns()
// for the built-in set.
func NewMatcher(patterns []Pattern) *Matcher {
	return &Matcher{patterns: patterns}
}

// Match tries each rule in order against the lowercased, trimmed question
// and returns the first hit. Pure: same input, same output, no I/O.
func (m *Matcher) Match(question string) (*Match, bool) {
	text := strings.ToLower(strings.TrimSpace(question))
	if text == "" {
		return nil, false
	}

	for _, p := range m.patterns {
		groups := p.Regex.FindStringSubmatch(text)
		if groups == nil {
			continue
		}

		match := &Match{
			Pattern:    p.Name,
			Action:     p.Action,
			Confidence: p.Confidence,
		}

		switch p.Action {
		case ActionSelectAll, ActionCount:
			if len(groups) > 1 {
				match.Table = groups[1]
			}
		case ActionFindWhere:
			if len(groups) > 3 {
				match.Table = groups[1]
				match.Column = groups[2]
				match.Value = strings.TrimSpace(groups[3])
			}
		case ActionTopN:
			if len(groups) > 2 {
				n, err := strconv.Atoi(groups[1])
				if err != nil {
					continue
				}
				match.Limit = n
				match.Table = groups[2]
			}
		case ActionListTables:
			// No captures to extract.
		}

		return match, true
	}

	return nil, false
}
