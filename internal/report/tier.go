// Package report turns backend analyses into display-ready values.
//
// Everything here is a pure function of its inputs.
package report

// Language selects label text.
type Language string

const (
	Korean  Language = "ko"
	English Language = "en"
)

// Tier is a risk band for a percentage.
type Tier int

const (
	TierNormal Tier = iota
	TierWatch
	TierCaution
	TierDanger
)

// Tier thresholds, inclusive lower bounds.
const (
	DangerThreshold  = 75.0
	CautionThreshold = 50.0
	WatchThreshold   = 25.0
)

// TierFor maps a percentage to its tier. Higher percentages never map to a
// lower tier.
func TierFor(p float64) Tier {
	switch {
	case p >= DangerThreshold:
		return TierDanger
	case p >= CautionThreshold:
		return TierCaution
	case p >= WatchThreshold:
		return TierWatch
	default:
		return TierNormal
	}
}

var tierLabels = map[Language][4]string{
	Korean:  {"정상", "관심", "주의", "위험"},
	English: {"normal", "watch", "caution", "danger"},
}

// Label returns the tier name in lang, Korean when lang is unknown.
func (t Tier) Label(lang Language) string {
	labels, ok := tierLabels[lang]
	if !ok {
		labels = tierLabels[Korean]
	}
	if t < TierNormal || t > TierDanger {
		return ""
	}
	return labels[t]
}

func (t Tier) String() string { return t.Label(English) }

// Condition is the coarse classification shown as the headline.
type Condition string

const (
	ConditionNormal Condition = "normal"
	ConditionBrain  Condition = "brain condition"
)

// Label returns the condition in lang.
func (c Condition) Label(lang Language) string {
	if lang == English {
		return string(c)
	}
	if c == ConditionNormal {
		return "정상"
	}
	return "뇌질환 의심"
}

// Dominant picks normal when the normal share (index 2) is at least both
// disease shares; ties favor normal. Missing entries count as 0.
func Dominant(accuracy []float64) Condition {
	at := func(i int) float64 {
		if i < len(accuracy) {
			return accuracy[i]
		}
		return 0
	}
	stroke, degenerative, normal := at(0), at(1), at(2)
	if normal >= stroke && normal >= degenerative {
		return ConditionNormal
	}
	return ConditionBrain
}
