package cleanup

import (
	"fmt"
	"strings"
)

// Policy decides which members of a group are acted upon and how
type Policy string

const (
	// PolicyKeepShortest keeps the member with the shortest path and deletes the rest
	PolicyKeepShortest Policy = "keep-shortest"
	// PolicyMove relocates filter-matching members to a destination directory
	PolicyMove Policy = "move"
	// PolicyDelete deletes filter-matching members
	PolicyDelete Policy = "delete"
	// PolicyPlaceholder replaces filter-matching members with an empty marker file
	PolicyPlaceholder Policy = "placeholder"
)

// Policies lists the canonical policy names
func Policies() []string {
	return []string{
		string(PolicyKeepShortest),
		string(PolicyMove),
		string(PolicyDelete),
		string(PolicyPlaceholder),
	}
}

// ParsePolicy maps a policy name, or one of its aliases, onto a Policy
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "keep-shortest", "shortest", "delete-by-filename-length", "filename-length":
		return PolicyKeepShortest, nil
	case "move":
		return PolicyMove, nil
	case "delete", "remove":
		return PolicyDelete, nil
	case "placeholder", "replace", "replace-with-placeholder":
		return PolicyPlaceholder, nil
	default:
		return "", fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownPolicy, name, strings.Join(Policies(), ", "))
	}
}

func (p Policy) valid() bool {
	switch p {
	case PolicyKeepShortest, PolicyMove, PolicyDelete, PolicyPlaceholder:
		return true
	default:
		return false
	}
}

// verb describes the action for prompts and messages
func (p Policy) verb() string {
	switch p {
	case PolicyMove:
		return "move"
	case PolicyPlaceholder:
		return "replace with placeholder"
	default:
		return "delete"
	}
}

// destroysContent reports whether acting on a member discards its bytes
func (p Policy) destroysContent() bool {
	return p == PolicyDelete || p == PolicyPlaceholder
}
