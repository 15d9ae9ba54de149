package jsl

import (
	"os"
	"sort"
	"strings"

	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

// LookupFunc resolves a placeholder name to its value.
type LookupFunc func(name string) (string, bool)

// ChainLookup tries each lookup in order and returns the first hit.
func ChainLookup(lookups ...LookupFunc) LookupFunc {
	return func(name string) (string, bool) {
		for _, l := range lookups {
			if l == nil {
				continue
			}
			if v, ok := l(name); ok {
				return v, true
			}
		}
		return "", false
	}
}

// EnvLookup resolves placeholders from the process environment.
func EnvLookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// ExpandProperties replaces ${name} placeholders in every property value.
// An unresolved placeholder is an error, so a typo cannot silently become an empty path.
func ExpandProperties(props map[string]string, lookup LookupFunc) (map[string]string, error) {
	expanded := make(map[string]string, len(props))
	var missing []string
	for key, value := range props {
		expanded[key] = os.Expand(value, func(name string) string {
			if v, ok := lookup(name); ok {
				return v
			}
			missing = append(missing, name)
			return ""
		})
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, exception.NewBatchErrorf("jsl_expander", "unresolved placeholder(s): %s", strings.Join(missing, ", "))
	}
	return expanded, nil
}
