package dashboard

import (
	"fmt"

	"github.com/nguyentranbao-ct/agent-console/internal/policy"
)

// warnAt is the share of a limit after which a warning is shown.
const warnAt = 0.8

// Meter is one quota dimension. Limit is policy.Unlimited when unbounded.
type Meter struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

func (m Meter) Reached() bool {
	return policy.Reached(m.Limit, m.Used)
}

func (m Meter) near() bool {
	if m.Limit == policy.Unlimited || m.Limit == 0 {
		return false
	}
	return float64(m.Used) >= warnAt*float64(m.Limit)
}

type Usage struct {
	Requests Meter `json:"requests"`
	Chatbots Meter `json:"chatbots"`
	Storage  Meter `json:"storage"`
	APIKeys  Meter `json:"apiKeys"`
}

func usageFor(in Input) Usage {
	q := policy.QuotaFor(in.Actor.Tier)
	return Usage{
		Requests: Meter{Used: in.RequestsUsed, Limit: q.MaxRequestsPerPeriod},
		Chatbots: Meter{Used: int64(len(ownedChatbots(in))), Limit: q.MaxChatbots},
		Storage:  Meter{Used: in.StorageBytes, Limit: q.MaxStorageBytes},
		APIKeys:  Meter{Used: int64(len(ownedKeys(in))), Limit: q.MaxAPIKeys},
	}
}

func (u Usage) warnings() []string {
	var out []string
	switch {
	case u.Requests.Reached():
		out = append(out, fmt.Sprintf("Request limit reached: %d of %d used this period.", u.Requests.Used, u.Requests.Limit))
	case u.Requests.near():
		out = append(out, fmt.Sprintf("You have used %d of %d requests this period.", u.Requests.Used, u.Requests.Limit))
	}
	if u.Chatbots.Limit != policy.Unlimited && u.Chatbots.Reached() {
		out = append(out, fmt.Sprintf("Chatbot limit reached (%d of %d).", u.Chatbots.Used, u.Chatbots.Limit))
	}
	switch {
	case u.Storage.Reached():
		out = append(out, "Configuration storage is full.")
	case u.Storage.near():
		out = append(out, fmt.Sprintf("Configuration storage is %d%% full.", u.Storage.Used*100/u.Storage.Limit))
	}
	return out
}
