package gate

import "strings"

// Permission is a "resource:action" code such as "extraction:add".
type Permission string

const (
	Wildcard = "*"
	// PermissionAll grants everything.
	PermissionAll Permission = "*:*"
)

// NewPermission joins a resource and an action.
func NewPermission(resource string, action Action) Permission {
	return Permission(resource + ":" + string(action))
}

// Parse splits the code. ok is false when the code has no separator or an
// empty half.
func (p Permission) Parse() (resource string, action Action, ok bool) {
	res, act, found := strings.Cut(string(p), ":")
	if !found || res == "" || act == "" {
		return "", "", false
	}
	return res, Action(act), true
}

// Matches reports whether p grants requested. "*:*" grants every code and
// "resource:*" grants every action on that resource.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionAll || p == requested {
		return true
	}
	res, act, ok := p.Parse()
	if !ok || string(act) != Wildcard {
		return false
	}
	reqRes, _, ok := requested.Parse()
	return ok && res == reqRes
}
