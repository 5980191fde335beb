package config

import (
	"fmt"
	"strings"
)

// ExpandPartitions turns a range expression like "a-c,0" into the flat
// ordered set of single-character partition keys it denotes. Keys are
// lowercase letters or digits; ranges are inclusive and must ascend.
// Duplicates collapse to the first occurrence so ordering stays stable.
func ExpandPartitions(expr string) ([]string, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("empty partition expression")
	}
	seen := make(map[string]struct{})
	var keys []string

	add := func(k string) {
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
			return nil, fmt.Errorf("empty segment in %q", expr)
		case len(part) == 1:
			if !validKey(part[0]) {
				return nil, fmt.Errorf("invalid partition key %q", part)
			}
			add(part)
		case len(part) == 3 && part[1] == '-':
			lo, hi := part[0], part[2]
			if !validKey(lo) || !validKey(hi) || lo > hi {
				return nil, fmt.Errorf("invalid partition range %q", part)
			}
			for c := lo; c <= hi; c++ {
				add(string(c))
			}
		default:
			return nil, fmt.Errorf("malformed partition segment %q", part)
		}
	}
	return keys, nil
}

func validKey(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
