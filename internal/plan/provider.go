package plan

import "context"

// StaticProvider hands every user the same permissions. Deployments
// without a billing backend configure a single tier for the process.
type StaticProvider struct {
	Tier     Tier
	Internal bool
}

// GetUserPermissions returns the configured permissions for the user.
func (p StaticProvider) GetUserPermissions(_ context.Context, userID int64) (Permissions, error) {
	tier := p.Tier
	if tier == "" {
		tier = TierFree
	}
	return Permissions{UserID: userID, Tier: tier, IsInternalUser: p.Internal}, nil
}
