package diff

import "strings"

// ExclusionConfig controls which entries an enumeration (and therefore
// a diff) sees.
type ExclusionConfig struct {
	// Patterns excludes entries by exact path-component equality: the
	// pattern ".git" excludes any entry with a component literally
	// named ".git", never a component merely containing the substring.
	// Matching directories are pruned, their contents never enumerated.
	Patterns []string
	// IncludeHidden enumerates dotfile entries too. Off by default.
	IncludeHidden bool
}

// Excluded reports whether a '/'-separated relative path matches any
// exclusion pattern.
func (c ExclusionConfig) Excluded(relPath string) bool {
	if len(c.Patterns) == 0 || relPath == "" {
		return false
	}
	for _, component := range strings.Split(relPath, "/") {
		for _, pattern := range c.Patterns {
			if component == pattern {
				return true
			}
		}
	}
	return false
}

// Hidden reports whether an entry name is hidden by dotfile convention.
func Hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func pathDepth(relPath string) int {
	return strings.Count(relPath, "/")
}
