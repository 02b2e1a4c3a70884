package validator

import (
	"testing"

	"github.com/hotelops/backoffice/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupRequest struct {
	Email       string `validate:"required,email"`
	Password    string `validate:"required,min=6"`
	DisplayName string `validate:"required"`
}

type permissionsRequest struct {
	Role        string          `validate:"required,role"`
	Permissions map[string]bool `validate:"capability"`
}

func TestValidate(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		input   interface{}
		wantErr string
	}{
		{
			name:  "valid signup",
			input: signupRequest{Email: "a@x.com", Password: "secret", DisplayName: "A"},
		},
		{
			name:    "missing and malformed fields",
			input:   signupRequest{Email: "not-an-email", Password: "123"},
			wantErr: "email must be a valid email address; password must be at least 6 characters; displayName is required",
		},
		{
			name:  "known role and capabilities",
			input: permissionsRequest{Role: "manager", Permissions: map[string]bool{"canViewSpa": true}},
		},
		{
			name:    "unknown role",
			input:   permissionsRequest{Role: "owner"},
			wantErr: "role must be one of admin, manager, staff",
		},
		{
			name:    "unknown capability",
			input:   permissionsRequest{Role: "staff", Permissions: map[string]bool{"canFly": true}},
			wantErr: "permissions contains an unknown capability",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
