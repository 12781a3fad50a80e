// Package access decides whether a subject may view a group-restricted resource.
package access

import "strings"

// Decision is the outcome of an access check.
type Decision int

const (
	// Allowed grants access.
	Allowed Decision = iota
	// LoginRequired denies an anonymous subject that might be allowed after signing in.
	LoginRequired
	// Denied rejects an authenticated subject outright.
	Denied
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case LoginRequired:
		return "login_required"
	default:
		return "denied"
	}
}

// Subject describes who is asking.
type Subject struct {
	Authenticated bool
	Privileged    bool
	Groups        []string
}

// CanView applies the page access policy. A resource without allowed groups
// is open to everyone. Otherwise the subject must be signed in and either be
// privileged or belong to one of the allowed groups.
func CanView(allowedGroups []string, subject Subject) Decision {
	allowed := normalize(allowedGroups)
	if len(allowed) == 0 {
		return Allowed
	}
	if !subject.Authenticated {
		return LoginRequired
	}
	if subject.Privileged {
		return Allowed
	}
	for _, group := range subject.Groups {
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(group))]; ok {
			return Allowed
		}
	}
	return Denied
}

func normalize(groups []string) map[string]struct{} {
	set := make(map[string]struct{}, len(groups))
	for _, group := range groups {
		key := strings.ToLower(strings.TrimSpace(group))
		if key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}
