package application

import (
	"context"
	"fmt"

	"github.com/hotelops/backoffice/internal/domain"
)

// Directory projects the full roster of principals. It is not a privilege
// boundary: callers decide who may see which listing.
type Directory struct {
	live *Live[[]domain.Principal]
}

// NewDirectory starts following the users collection
func NewDirectory(ctx context.Context, store domain.DocumentStore) (*Directory, error) {
	live, err := SubscribeQuery(ctx, store, domain.UsersCollection, decodeRoster)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to directory: %w", err)
	}
	return &Directory{live: live}, nil
}

// Principals returns the roster in store order
func (d *Directory) Principals() []domain.Principal {
	roster, _ := d.live.Snapshot()
	out := make([]domain.Principal, len(roster))
	copy(out, roster)
	return out
}

// Lookup finds a principal by uid
func (d *Directory) Lookup(uid string) (domain.Principal, bool) {
	roster, _ := d.live.Snapshot()
	for _, p := range roster {
		if p.UID == uid {
			return p, true
		}
	}
	return domain.Principal{}, false
}

// Live exposes the underlying projection for streaming consumers
func (d *Directory) Live() *Live[[]domain.Principal] {
	return d.live
}

// Close stops following the collection
func (d *Directory) Close() {
	d.live.Close()
}

func decodeRoster(snap domain.QuerySnapshot) []domain.Principal {
	roster := make([]domain.Principal, 0, len(snap.Docs))
	for _, doc := range snap.Docs {
		if p, ok := domain.PrincipalFromSnapshot(doc); ok {
			roster = append(roster, p)
		}
	}
	return roster
}
