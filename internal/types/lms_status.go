package types

import "strings"

// LMSEducationalStatus is the raw status string reported by the LMS.
type LMSEducationalStatus string

// LMSClassification groups an educational status into the three buckets
// that drive resignation handling in the core (spec.md SS4.2).
type LMSClassification string

const (
	LMSClassificationActive LMSClassification = "active"
	LMSClassificationEnded  LMSClassification = "ended"
	LMSClassificationDropped LMSClassification = "dropped"
)

// NormalizeLMSStatus uppercases and replaces whitespace with underscores,
// matching the select-field normalization the LMS reconciler applies before
// mapping (spec.md SS4.6).
func NormalizeLMSStatus(raw string) LMSEducationalStatus {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.Join(strings.Fields(normalized), "_")
	return LMSEducationalStatus(normalized)
}

var lmsStatusToPeriodStatus = map[LMSEducationalStatus]PeriodStatus{
	"ACTIVE":          PeriodStatusActive,
	"GRADUATED":       PeriodStatusEnded,
	"NOT_COMPLETING":  PeriodStatusEnded,
	"ENDED":           PeriodStatusEnded,
	"POSTPONED":       PeriodStatusPostponed,
	"EARLY_POSTPONED": PeriodStatusPostponed,
	"DROPPED":         PeriodStatusDropped,
	"EARLY_DROPPED":   PeriodStatusDropped,
	"SUSPENDED":       PeriodStatusDropped,
}

// MapLMSStatusToPeriodStatus implements the LMS status -> period status
// table in spec.md SS4.2. Unknown statuses map to ACTIVE.
func MapLMSStatusToPeriodStatus(status LMSEducationalStatus) PeriodStatus {
	if mapped, ok := lmsStatusToPeriodStatus[status]; ok {
		return mapped
	}
	return PeriodStatusActive
}

var endedStatuses = map[LMSEducationalStatus]bool{
	"GRADUATED":      true,
	"NOT_COMPLETING": true,
	"ENDED":          true,
}

var droppedStatuses = map[LMSEducationalStatus]bool{
	"DROPPED":       true,
	"EARLY_DROPPED": true,
	"SUSPENDED":     true,
}

// ClassifyLMSStatus buckets a normalized LMS status into active/ended/dropped.
func ClassifyLMSStatus(status LMSEducationalStatus) LMSClassification {
	if endedStatuses[status] {
		return LMSClassificationEnded
	}
	if droppedStatuses[status] {
		return LMSClassificationDropped
	}
	return LMSClassificationActive
}
