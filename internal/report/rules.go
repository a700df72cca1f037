package report

import (
	"fmt"
	"strings"
)

// RuleSet carries the brand-specific business-rule constants the merge
// stage branches on. It is selected once per run and threaded through the
// merger; no scattered conditionals.
type RuleSet struct {
	Name string

	// PendingDaysLimit is the back-order age cutoff: rows with Days Pending
	// above it are dropped.
	PendingDaysLimit float64

	// DropStaleOrders enables the stale placeholder-order filter: rows whose
	// order number matches a StaleOrderPatterns entry and whose order date
	// precedes the location's newest order date are system-generated
	// placeholders, not real back-orders.
	DropStaleOrders    bool
	StaleOrderPatterns []string

	// CBO order-reason exclusions, applied when the optional Order Reason
	// column is present.
	CBOExcludedReasonContains []string
	CBOExcludedReasonExact    []string
}

var cboReasonContains = []string{"VOR Order CVBU", "EXP - Express Order"}
var cboReasonExact = []string{"TOPS", "Prolife Stock Order"}

// StandardRules is the default 35-day rule set.
var StandardRules = RuleSet{
	Name:                      "standard",
	PendingDaysLimit:          35,
	CBOExcludedReasonContains: cboReasonContains,
	CBOExcludedReasonExact:    cboReasonExact,
}

// ExtendedPendingRules is the 45-day brand variant with the stale
// placeholder-order filter enabled.
var ExtendedPendingRules = RuleSet{
	Name:                      "extended-pending",
	PendingDaysLimit:          45,
	DropStaleOrders:           true,
	StaleOrderPatterns:        []string{"SAP-000", "SAP-200", "TOP"},
	CBOExcludedReasonContains: cboReasonContains,
	CBOExcludedReasonExact:    cboReasonExact,
}

// RuleSetByName resolves a configured rule-set name.
func RuleSetByName(name string) (RuleSet, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StandardRules.Name:
		return StandardRules, nil
	case ExtendedPendingRules.Name:
		return ExtendedPendingRules, nil
	default:
		return RuleSet{}, fmt.Errorf("unknown rule set %q", name)
	}
}

// matchesStalePattern reports whether the order number matches any stale
// placeholder pattern.
func (r RuleSet) matchesStalePattern(orderNumber string) bool {
	for _, pattern := range r.StaleOrderPatterns {
		if strings.Contains(orderNumber, pattern) {
			return true
		}
	}
	return false
}

// cboReasonExcluded reports whether an order reason is one of the excluded
// kinds.
func (r RuleSet) cboReasonExcluded(reason string) bool {
	for _, pattern := range r.CBOExcludedReasonContains {
		if strings.Contains(reason, pattern) {
			return true
		}
	}
	for _, exact := range r.CBOExcludedReasonExact {
		if reason == exact {
			return true
		}
	}
	return false
}
