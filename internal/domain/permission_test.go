package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPermissions_Table(t *testing.T) {
	tests := []struct {
		role    Role
		granted []Capability
	}{
		{
			role:    RoleStaff,
			granted: []Capability{CanViewAgenda, CanViewMessaging, CanViewReception, CanViewSharedData},
		},
		{
			role: RoleManager,
			granted: []Capability{CanViewAgenda, CanViewMessaging, CanViewReception, CanViewSharedData,
				CanViewFnb, CanViewCRM, CanViewSpa, CanViewHousekeeping},
		},
		{
			role:    RoleAdmin,
			granted: Capabilities,
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			perms := DefaultPermissions(tt.role)
			for _, capability := range Capabilities {
				assert.Equal(t, contains(tt.granted, capability), perms.Has(capability), "capability %s", capability)
			}
		})
	}
}

func TestDefaultPermissions_ManageSettingsOnlyForAdmin(t *testing.T) {
	for _, role := range []Role{RoleAdmin, RoleManager, RoleStaff, Role("concierge"), Role("")} {
		assert.Equal(t, role == RoleAdmin, DefaultPermissions(role).CanManageSettings, "role %q", role)
	}
}

func TestDefaultPermissions_UnknownRoleFallsBackToStaff(t *testing.T) {
	assert.Equal(t, DefaultPermissions(RoleStaff), DefaultPermissions(Role("night-auditor")))
	assert.Equal(t, RoleStaff, ParseRole("night-auditor"))
}

func TestDefaultPermissions_FreshValue(t *testing.T) {
	perms := DefaultPermissions(RoleStaff)
	perms.CanViewMaintenance = true
	overridden := perms.With(CanViewSpa, true)

	assert.True(t, overridden.CanViewSpa)
	assert.False(t, perms.CanViewSpa)
	assert.False(t, DefaultPermissions(RoleStaff).CanViewMaintenance)
	assert.False(t, DefaultPermissions(RoleStaff).CanViewSpa)
}

func TestPermissionsFromMap(t *testing.T) {
	raw := map[string]any{
		"canViewMaintenance": true,
		"canViewAgenda":      false,
		"canViewSpa":         "yes",
	}

	perms := PermissionsFromMap(raw, RoleStaff)

	assert.True(t, perms.CanViewMaintenance)
	assert.False(t, perms.CanViewAgenda)
	assert.False(t, perms.CanViewSpa, "non-bool values keep the role default")
	assert.True(t, perms.CanViewReception)
	assert.Equal(t, DefaultPermissions(RoleManager), PermissionsFromMap(nil, RoleManager))
}

func TestPermissionSet_MapRoundTrip(t *testing.T) {
	perms := DefaultPermissions(RoleManager).With(CanViewMaintenance, true)
	assert.Equal(t, perms, PermissionsFromMap(perms.Map(), RoleStaff))
	assert.Len(t, perms.Map(), len(Capabilities))
}

func contains(list []Capability, c Capability) bool {
	for _, item := range list {
		if item == c {
			return true
		}
	}
	return false
}
