package permissions

import (
	"sort"
	"strings"
)

// WildcardResource grants every resource of an action, e.g. "view:all".
const WildcardResource = "all"

// Rule names the resolution step that produced a Decision.
type Rule string

const (
	RuleExact    Rule = "exact"
	RuleWildcard Rule = "wildcard"
	RuleNone     Rule = "none"
)

// Decision is the traced outcome of a permission check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Rule    Rule   `json:"rule"`
	Grant   string `json:"grant,omitempty"` // grant that matched, empty when denied
}

// Table is the static role -> grant set mapping. It is never mutated after
// NewTable returns, so lookups need no locking.
type Table struct {
	grants map[Role]map[string]struct{}
}

// NewTable builds a Table from role -> permission strings. Every enumerated
// role receives an entry, empty when the input omits it. Blank permission
// strings are dropped.
func NewTable(in map[Role][]string) *Table {
	t := &Table{grants: make(map[Role]map[string]struct{}, len(allRoles))}
	for _, r := range allRoles {
		t.grants[r] = map[string]struct{}{}
	}
	for role, perms := range in {
		set, ok := t.grants[role]
		if !ok {
			set = map[string]struct{}{}
			t.grants[role] = set
		}
		for _, p := range perms {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			set[p] = struct{}{}
		}
	}
	return t
}

// HasPermission reports whether role may perform permission.
// Unknown roles hold no grants and are always denied.
func (t *Table) HasPermission(role Role, permission string) bool {
	return t.Explain(role, permission).Allowed
}

// Explain resolves permission for role, first match wins:
//  1. exact grant
//  2. "<action>:all" where action is everything before the first ':'
//  3. deny
//
// A permission without ':' is only granted by an exact hit.
func (t *Table) Explain(role Role, permission string) Decision {
	if t == nil {
		return Decision{Rule: RuleNone}
	}
	set := t.grants[role]
	if len(set) == 0 {
		return Decision{Rule: RuleNone}
	}
	if _, ok := set[permission]; ok {
		return Decision{Allowed: true, Rule: RuleExact, Grant: permission}
	}
	action, _, found := strings.Cut(permission, ":")
	if !found || action == "" {
		return Decision{Rule: RuleNone}
	}
	wildcard := action + ":" + WildcardResource
	if _, ok := set[wildcard]; ok {
		return Decision{Allowed: true, Rule: RuleWildcard, Grant: wildcard}
	}
	return Decision{Rule: RuleNone}
}

// Grants returns the sorted grant set of role. Unknown roles yield an empty slice.
func (t *Table) Grants(role Role) []string {
	out := []string{}
	if t == nil {
		return out
	}
	for p := range t.grants[role] {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
