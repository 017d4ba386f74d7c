package policy

import "github.com/nguyentranbao-ct/agent-console/internal/models"

// Unlimited marks a quota dimension with no ceiling.
const Unlimited int64 = -1

const (
	MiB = int64(1) << 20
	GiB = int64(1) << 30
)

type Quota struct {
	MaxChatbots          int64 `json:"maxChatbots"`
	MaxRequestsPerPeriod int64 `json:"maxRequestsPerPeriod"`
	MaxStorageBytes      int64 `json:"maxStorageBytes"`
	MaxAPIKeys           int64 `json:"maxApiKeys"`
}

var (
	freeQuota = Quota{
		MaxChatbots:          1,
		MaxRequestsPerPeriod: 1000,
		MaxStorageBytes:      10 * MiB,
		MaxAPIKeys:           0,
	}
	proQuota = Quota{
		MaxChatbots:          Unlimited,
		MaxRequestsPerPeriod: 100_000,
		MaxStorageBytes:      1 * GiB,
		MaxAPIKeys:           Unlimited,
	}
)

// QuotaFor returns the fixed ceilings of a tier. Unknown tiers get the zero quota.
func QuotaFor(tier models.Tier) Quota {
	switch tier {
	case models.TierFree:
		return freeQuota
	case models.TierPro:
		return proQuota
	}
	return Quota{}
}

// Allows reports whether one more unit fits when used units are consumed.
func Allows(limit, used int64) bool {
	if limit == Unlimited {
		return true
	}
	return used < limit
}

// Reached reports whether used has hit limit.
func Reached(limit, used int64) bool {
	return !Allows(limit, used)
}

// ReadOnlyConfig reports whether the basic configuration editor is locked:
// free accounts lose it once their chatbot allowance is used.
func ReadOnlyConfig(tier models.Tier, ownedChatbots int64) bool {
	if tier == models.TierPro {
		return false
	}
	return Reached(QuotaFor(tier).MaxChatbots, ownedChatbots)
}
