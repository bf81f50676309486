package algo

import "regexp"

var (
	// Letters, digits and "-_.:" with at least one non-digit character.
	keyPattern = regexp.MustCompile(`^[\p{L}\p{N}\-_.:]*[\p{L}\-_.:]+[\p{L}\p{N}\-_.:]*$`)

	// Letters, digits and "-_./".
	branchPattern = regexp.MustCompile(`^[\p{L}\p{N}\-_./]+$`)
)

// IsValidKey reports whether key matches the component key grammar.
func IsValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// IsValidBranch reports whether name matches the branch name grammar.
func IsValidBranch(name string) bool {
	return branchPattern.MatchString(name)
}
