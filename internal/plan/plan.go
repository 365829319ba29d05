// Package plan decides whether an account may create another contract.
package plan

import (
	"errors"
	"fmt"
	"strings"
)

// Tier is a subscription level. Values other than the constants below are
// kept as-is so that a corrupt stored value fails closed.
type Tier string

const (
	Free         Tier = "free"
	Standard     Tier = "standard"
	Professional Tier = "professional"
)

// ErrLimitReached is returned by Check when the tier allows no more contracts.
var ErrLimitReached = errors.New("plan: contract limit reached")

const unlimited = -1

var tiers = map[Tier]struct {
	label string
	limit int
}{
	Free:         {label: "Gratuito", limit: 1},
	Standard:     {label: "Padrão", limit: 10},
	Professional: {label: "Profissional", limit: unlimited},
}

// Parse normalises a stored tier name. It does not coerce unknown names.
func Parse(s string) Tier {
	return Tier(strings.ToLower(strings.TrimSpace(s)))
}

// Known reports whether t is one of the three tiers.
func (t Tier) Known() bool {
	_, ok := tiers[t]
	return ok
}

// Limit returns the maximum number of contracts for t. bounded is false for
// unlimited and unknown tiers; use Allows for decisions.
func (t Tier) Limit() (limit int, bounded bool) {
	def, ok := tiers[t]
	if !ok || def.limit == unlimited {
		return 0, false
	}
	return def.limit, true
}

// Label is the customer-facing tier name.
func (t Tier) Label() string {
	if def, ok := tiers[t]; ok {
		return def.label
	}
	return string(t)
}

// Allows reports whether an account on tier t that already owns usage
// contracts may create one more. Unknown tiers are denied.
func Allows(t Tier, usage int) bool {
	def, ok := tiers[t]
	if !ok {
		return false
	}
	if def.limit == unlimited {
		return true
	}
	return usage < def.limit
}

// Check is Allows as an error.
func Check(t Tier, usage int) error {
	if !Allows(t, usage) {
		return fmt.Errorf("%w (%s, %d used)", ErrLimitReached, t, usage)
	}
	return nil
}

// LimitText renders the usage line shown on the dashboard.
func LimitText(t Tier, usage int) string {
	def, ok := tiers[t]
	switch {
	case !ok:
		return ""
	case def.limit == unlimited:
		return "Contratos ilimitados"
	default:
		return fmt.Sprintf("%d/%d contratos usados", usage, def.limit)
	}
}
