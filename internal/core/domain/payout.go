package domain

import (
	"encoding/json"
	"fmt"
)

// MaxPayoutEntries bounds the number of payees a custody service may report
// for a single settlement.
const MaxPayoutEntries = 10

// Payout is the externally supplied split of a settlement amount, mapping
// payee account ids to amounts. It is transient: parsed, validated and
// disbursed within a single settlement resolution, never persisted.
type Payout map[string]Amount

// ParsePayout decodes the raw custody-service response. The payload is
// untrusted, so decoding is only the first step; Validate re-checks every
// bound locally.
func ParsePayout(raw []byte) (Payout, error) {
	var payout Payout
	if err := json.Unmarshal(raw, &payout); err != nil {
		return nil, fmt.Errorf("malformed payout payload: %s", err)
	}
	return payout, nil
}

// Validate checks the payout against the amount captured at offer time.
// The entries are consumed with checked subtraction from total: any underflow
// means the split pays out more than was attached. A remainder of a single
// indivisible unit is tolerated for rounding.
func (p Payout) Validate(total Amount) error {
	if len(p) == 0 {
		return fmt.Errorf("payout has no entries")
	}
	if len(p) > MaxPayoutEntries {
		return fmt.Errorf("payout has %d entries, max is %d", len(p), MaxPayoutEntries)
	}

	remainder := total
	for payee, amount := range p {
		var ok bool
		remainder, ok = remainder.CheckedSub(amount)
		if !ok {
			return fmt.Errorf("payout sum exceeds settlement amount at payee %s", payee)
		}
	}
	if !remainder.IsZero() && !remainder.Equal(NewAmount(1)) {
		return fmt.Errorf(
			"payout leaves remainder %s, only 0 or 1 allowed", remainder.String(),
		)
	}
	return nil
}
