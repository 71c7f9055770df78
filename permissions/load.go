package permissions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig marks a grants file that must stop startup.
var ErrInvalidConfig = errors.New("invalid grants config")

// LoadFile reads a grants file: a YAML (or JSON) mapping of role id to an
// ordered list of permission strings.
//
//	administrator:
//	  - manage:departments
//	  - manage:forms
//	executive:
//	  - view:all
func LoadFile(path string) (*Table, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read grants file: %w", err)
	}
	return Parse(b)
}

// Parse decodes grants from YAML. Roles outside the enumeration and blank
// permission strings are rejected; enumerated roles missing from the
// document get an empty grant set.
func Parse(b []byte) (*Table, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	in := make(map[Role][]string, len(raw))
	for name, perms := range raw {
		role := Role(strings.TrimSpace(name))
		if !role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidConfig, name)
		}
		for i, p := range perms {
			if strings.TrimSpace(p) == "" {
				return nil, fmt.Errorf("%w: role %q has a blank permission at index %d", ErrInvalidConfig, name, i)
			}
		}
		in[role] = perms
	}
	return NewTable(in), nil
}
