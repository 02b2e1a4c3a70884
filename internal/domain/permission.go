package domain

// Role represents a principal's permission level
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// ParseRole converts a stored value into a Role. Unknown values map to staff.
func ParseRole(value string) Role {
	switch Role(value) {
	case RoleAdmin, RoleManager, RoleStaff:
		return Role(value)
	default:
		return RoleStaff
	}
}

// Capability names a single feature-area permission flag
type Capability string

const (
	CanManageSettings   Capability = "canManageSettings"
	CanViewAgenda       Capability = "canViewAgenda"
	CanViewMessaging    Capability = "canViewMessaging"
	CanViewFnb          Capability = "canViewFnb"
	CanViewHousekeeping Capability = "canViewHousekeeping"
	CanViewMaintenance  Capability = "canViewMaintenance"
	CanViewCRM          Capability = "canViewCRM"
	CanViewReception    Capability = "canViewReception"
	CanViewSpa          Capability = "canViewSpa"
	CanViewSharedData   Capability = "canViewSharedData"
)

// Capabilities lists every capability in a stable order.
var Capabilities = []Capability{
	CanManageSettings,
	CanViewAgenda,
	CanViewMessaging,
	CanViewFnb,
	CanViewHousekeeping,
	CanViewMaintenance,
	CanViewCRM,
	CanViewReception,
	CanViewSpa,
	CanViewSharedData,
}

// PermissionSet is the full record of capability flags for a principal
type PermissionSet struct {
	CanManageSettings   bool `json:"canManageSettings"`
	CanViewAgenda       bool `json:"canViewAgenda"`
	CanViewMessaging    bool `json:"canViewMessaging"`
	CanViewFnb          bool `json:"canViewFnb"`
	CanViewHousekeeping bool `json:"canViewHousekeeping"`
	CanViewMaintenance  bool `json:"canViewMaintenance"`
	CanViewCRM          bool `json:"canViewCRM"`
	CanViewReception    bool `json:"canViewReception"`
	CanViewSpa          bool `json:"canViewSpa"`
	CanViewSharedData   bool `json:"canViewSharedData"`
}

// DefaultPermissions returns the capability defaults for a role.
// Any role other than admin or manager gets the staff defaults.
func DefaultPermissions(role Role) PermissionSet {
	perms := PermissionSet{
		CanViewAgenda:     true,
		CanViewMessaging:  true,
		CanViewReception:  true,
		CanViewSharedData: true,
	}

	switch role {
	case RoleAdmin:
		perms.CanManageSettings = true
		perms.CanViewFnb = true
		perms.CanViewCRM = true
		perms.CanViewSpa = true
		perms.CanViewHousekeeping = true
		perms.CanViewMaintenance = true
	case RoleManager:
		perms.CanViewFnb = true
		perms.CanViewCRM = true
		perms.CanViewSpa = true
		perms.CanViewHousekeeping = true
	}

	return perms
}

func (p *PermissionSet) flag(capability Capability) *bool {
	switch capability {
	case CanManageSettings:
		return &p.CanManageSettings
	case CanViewAgenda:
		return &p.CanViewAgenda
	case CanViewMessaging:
		return &p.CanViewMessaging
	case CanViewFnb:
		return &p.CanViewFnb
	case CanViewHousekeeping:
		return &p.CanViewHousekeeping
	case CanViewMaintenance:
		return &p.CanViewMaintenance
	case CanViewCRM:
		return &p.CanViewCRM
	case CanViewReception:
		return &p.CanViewReception
	case CanViewSpa:
		return &p.CanViewSpa
	case CanViewSharedData:
		return &p.CanViewSharedData
	}
	return nil
}

// Has reports whether the capability is granted. Unknown capabilities are never granted.
func (p PermissionSet) Has(capability Capability) bool {
	if f := p.flag(capability); f != nil {
		return *f
	}
	return false
}

// With returns a copy of the set with one capability overridden
func (p PermissionSet) With(capability Capability, granted bool) PermissionSet {
	if f := p.flag(capability); f != nil {
		*f = granted
	}
	return p
}

// Map returns the set as a document value keyed by capability name
func (p PermissionSet) Map() map[string]any {
	m := make(map[string]any, len(Capabilities))
	for _, capability := range Capabilities {
		m[string(capability)] = p.Has(capability)
	}
	return m
}

// PermissionsFromMap decodes a stored permission document. Flags that are
// absent or not booleans take the role default, so no capability is ever undefined.
func PermissionsFromMap(raw map[string]any, role Role) PermissionSet {
	perms := DefaultPermissions(role)
	for _, capability := range Capabilities {
		if v, ok := raw[string(capability)].(bool); ok {
			perms = perms.With(capability, v)
		}
	}
	return perms
}
