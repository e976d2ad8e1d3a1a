// Package plan implements the pure tier/limit decision function shared by
// the crawl scheduler, the exporter, and the discovery flow. Gate checks
// never error: callers always get a value and decide whether to cap the
// requested amount or stop.
package plan

import "fmt"

// Tier identifies a subscription tier.
type Tier string

// Tiers, lowest to highest.
const (
	TierFree   Tier = "free"
	TierGrowth Tier = "growth"
	TierScale  Tier = "scale"
)

// Action identifies a limited resource.
type Action string

// Gated actions.
const (
	ActionCrawlPages      Action = "crawl_pages"
	ActionExportRows      Action = "export_rows"
	ActionDiscoveryCities Action = "discovery_cities"
)

// tierOrder defines the upgrade ladder.
var tierOrder = []Tier{TierFree, TierGrowth, TierScale}

// limits is the single source of truth for per-tier ceilings. Adding a
// tier means adding one entry here and one to tierOrder.
var limits = map[Tier]map[Action]int{
	TierFree: {
		ActionCrawlPages:      5,
		ActionExportRows:      50,
		ActionDiscoveryCities: 1,
	},
	TierGrowth: {
		ActionCrawlPages:      15,
		ActionExportRows:      1000,
		ActionDiscoveryCities: 5,
	},
	TierScale: {
		ActionCrawlPages:      40,
		ActionExportRows:      10000,
		ActionDiscoveryCities: 20,
	},
}

// Permissions is the caller's entitlement snapshot, resolved by the
// billing collaborator before any scheduling happens.
type Permissions struct {
	UserID         int64
	Tier           Tier
	IsInternalUser bool
}

// EnforcementResult reports how much of a requested amount is allowed.
type EnforcementResult struct {
	// Allowed is the amount granted: min(requested, limit) for ordinary
	// plans, the full request for internal users.
	Allowed int
	// Limit is the plan ceiling for the action (-1 means unlimited).
	Limit int
	// Requested echoes the amount asked for.
	Requested int
	// Gated is true when the request was capped.
	Gated bool
	// Reason is a human-readable explanation, set only when gated.
	Reason string
	// UpgradeHint names the next tier that would raise the limit, set
	// only when gated and an upgrade exists.
	UpgradeHint string
}

// Enforce caps a requested amount against the caller's plan. Internal
// users bypass plan ceilings entirely; they do not bypass the crawler's
// hard safety ceilings, which are applied independently by the
// orchestrator, so the stricter layer always wins.
func Enforce(perms Permissions, action Action, requested int) EnforcementResult {
	if requested < 0 {
		requested = 0
	}
	if perms.IsInternalUser {
		return EnforcementResult{Allowed: requested, Limit: -1, Requested: requested}
	}

	limit, ok := limits[perms.Tier][action]
	if !ok {
		// Unknown tier or action: grant nothing rather than guessing.
		return EnforcementResult{
			Allowed:   0,
			Limit:     0,
			Requested: requested,
			Gated:     requested > 0,
			Reason:    fmt.Sprintf("no %s allowance on plan %q", action, perms.Tier),
		}
	}
	if requested <= limit {
		return EnforcementResult{Allowed: requested, Limit: limit, Requested: requested}
	}

	res := EnforcementResult{
		Allowed:   limit,
		Limit:     limit,
		Requested: requested,
		Gated:     true,
		Reason: fmt.Sprintf("plan %q allows %d %s, %d requested",
			perms.Tier, limit, action, requested),
	}
	if next, ok := nextTier(perms.Tier); ok {
		res.UpgradeHint = fmt.Sprintf("upgrade to %q for up to %d %s",
			next, limits[next][action], action)
	}
	return res
}

func nextTier(t Tier) (Tier, bool) {
	for i, candidate := range tierOrder {
		if candidate == t && i+1 < len(tierOrder) {
			return tierOrder[i+1], true
		}
	}
	return "", false
}

// Limit returns the plan ceiling for an action, -1 for internal users.
func Limit(perms Permissions, action Action) int {
	if perms.IsInternalUser {
		return -1
	}
	return limits[perms.Tier][action]
}
