package usagestats

import "strings"

// Canonical scope names.
const (
	ScopeAllUsers  = "AllUsers"
	ScopePublic    = "Public"
	ScopeForCredit = "ForCredit"
)

// ScopeName maps a caller-supplied scope onto one of the three canonical names.
// Empty and unrecognized values resolve to ScopeAllUsers.
func ScopeName(scope string) string {
	switch strings.ToLower(strings.TrimSpace(scope)) {
	case "public", "open":
		return ScopePublic
	case "forcredit", "credit", "purchased", "forcreditdegree", "forcreditnondegree":
		return ScopeForCredit
	default:
		return ScopeAllUsers
	}
}

// UserSet is a set of lower-cased usernames.
type UserSet map[string]struct{}

// NewUserSet builds a set from usernames, lower-casing each.
func NewUserSet(usernames ...string) UserSet {
	s := make(UserSet, len(usernames))
	for _, u := range usernames {
		s.Add(u)
	}
	return s
}

// Add inserts username into the set.
func (s UserSet) Add(username string) {
	s[strings.ToLower(username)] = struct{}{}
}

// Contains reports membership, ignoring case.
func (s UserSet) Contains(username string) bool {
	_, ok := s[strings.ToLower(username)]
	return ok
}

// Scopes maps canonical scope name to its member usernames.
type Scopes map[string]UserSet

// ScopeEntry is one enrolled user as seen by BuildScopes.
type ScopeEntry struct {
	Username  string
	ForCredit bool
}

// BuildScopes classifies enrolled users into Public, ForCredit and AllUsers.
// Users for which exclude returns true appear in none of them. A user listed
// both as open and for-credit is placed in ForCredit only, so Public and
// ForCredit are disjoint and their union is AllUsers.
func BuildScopes(entries []ScopeEntry, exclude func(username string) bool) Scopes {
	public := UserSet{}
	credit := UserSet{}
	for _, e := range entries {
		if e.Username == "" {
			continue
		}
		if exclude != nil && exclude(e.Username) {
			continue
		}
		if e.ForCredit {
			credit.Add(e.Username)
		} else {
			public.Add(e.Username)
		}
	}
	all := make(UserSet, len(public)+len(credit))
	for u := range credit {
		delete(public, u)
		all[u] = struct{}{}
	}
	for u := range public {
		all[u] = struct{}{}
	}
	return Scopes{
		ScopeAllUsers:  all,
		ScopePublic:    public,
		ScopeForCredit: credit,
	}
}
