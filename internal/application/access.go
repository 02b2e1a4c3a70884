package application

import (
	"fmt"
	"strings"

	"github.com/hotelops/backoffice/internal/domain"
)

func requirePrincipal(caller domain.Principal) error {
	if caller.UID == "" {
		return domain.ErrNotAuthenticated
	}
	return nil
}

func requireCapability(caller domain.Principal, capability domain.Capability) error {
	if err := requirePrincipal(caller); err != nil {
		return err
	}
	if !caller.Can(capability) {
		return fmt.Errorf("%w: %s required", domain.ErrUnauthorized, capability)
	}
	return nil
}

// requireID rejects ids that would address another path
func requireID(id string) error {
	if id == "" || strings.Contains(id, "/") {
		return fmt.Errorf("%w: invalid id %q", domain.ErrInvalidInput, id)
	}
	return nil
}
