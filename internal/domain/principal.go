package domain

import "time"

// UsersCollection holds one Principal document per identity, keyed by uid
const UsersCollection = "users"

// Principal is the profile record of an authenticated identity
type Principal struct {
	UID         string        `json:"uid"`
	Email       string        `json:"email"`
	DisplayName string        `json:"displayName"`
	Role        Role          `json:"role"`
	Permissions PermissionSet `json:"permissions"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// NewPrincipal creates a principal carrying the role's default permissions
func NewPrincipal(account Account, role Role) Principal {
	return Principal{
		UID:         account.UID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Role:        role,
		Permissions: DefaultPermissions(role),
	}
}

// IsAdmin reports whether the principal holds the admin role
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Can checks a single capability
func (p Principal) Can(capability Capability) bool {
	return p.Permissions.Has(capability)
}

// PrincipalPath returns the document path of a principal
func PrincipalPath(uid string) string {
	return JoinPath(UsersCollection, uid)
}

// Document returns the creation document of the principal. createdAt is
// stamped by the store.
func (p Principal) Document() Document {
	return Document{
		"uid":         p.UID,
		"email":       p.Email,
		"displayName": p.DisplayName,
		"role":        string(p.Role),
		"permissions": Document(p.Permissions.Map()),
		"createdAt":   ServerTimestamp,
	}
}

// PrincipalFromSnapshot decodes a stored principal. The uid falls back to
// the document key; role and permissions are decoded so that every
// capability has a value.
func PrincipalFromSnapshot(snap DocumentSnapshot) (Principal, bool) {
	if !snap.Exists {
		return Principal{}, false
	}
	d := snap.Data
	role := ParseRole(stringField(d, "role", string(RoleStaff)))
	p := Principal{
		UID:         stringField(d, "uid", snap.ID()),
		Email:       stringField(d, "email", ""),
		DisplayName: stringField(d, "displayName", ""),
		Role:        role,
		Permissions: PermissionsFromMap(mapField(d, "permissions"), role),
		CreatedAt:   timeField(d, "createdAt"),
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = snap.CreatedAt
	}
	return p, true
}

// PrincipalUpdate is an admin edit of another principal. Nil fields are left untouched.
type PrincipalUpdate struct {
	DisplayName *string
	Role        *Role
	Permissions *PermissionSet
	Password    *string
}

// Document returns the merge patch for the profile fields of the update
func (u PrincipalUpdate) Document() Document {
	patch := Document{}
	if u.DisplayName != nil {
		patch["displayName"] = *u.DisplayName
	}
	if u.Role != nil {
		patch["role"] = string(ParseRole(string(*u.Role)))
	}
	if u.Permissions != nil {
		patch["permissions"] = Document(u.Permissions.Map())
	}
	return patch
}
