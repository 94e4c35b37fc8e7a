package aggregate

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultDistrictAlias matches planning subclasses named after a district,
// e.g. "Eastern suurpiiri" or "Harbour district".
const DefaultDistrictAlias = `(?i)^(?P<district>.+?)\s+(?:suurpiiri|district)$`

// AliasRule extracts a district name from a planning class name. Each
// pattern must capture the name in a group called "district".
type AliasRule struct {
	patterns []*regexp.Regexp
}

// NewAliasRule compiles patterns. No patterns yields a rule that never
// matches.
func NewAliasRule(patterns ...string) (*AliasRule, error) {
	r := &AliasRule{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling district alias %q: %w", p, err)
		}
		if re.SubexpIndex("district") < 0 {
			return nil, fmt.Errorf("district alias %q has no (?P<district>...) group", p)
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

// District returns the district named by a planning class name.
func (r *AliasRule) District(name string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, re := range r.patterns {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		d := strings.TrimSpace(m[re.SubexpIndex("district")])
		if d != "" {
			return d, true
		}
	}
	return "", false
}
