package models

import "encoding/json"

// AdvisoryLevel bounds what an LLM reviewer can express about a trade.
type AdvisoryLevel string

const (
	AdvisoryInfo        AdvisoryLevel = "info"
	AdvisoryWarning     AdvisoryLevel = "warning"
	AdvisoryBlockAuto   AdvisoryLevel = "block_auto"
	AdvisoryUnavailable AdvisoryLevel = "unavailable"
)

// Advisory is the strict, bounded result of an LLM trade review. It is
// informational only: block_auto forces manual review, the adjustment nudges
// the confidence score within [-10, 10], and nothing here can approve or
// reject a trade that deterministic logic already decided.
type Advisory struct {
	Level                AdvisoryLevel `json:"advisory_level"`
	ConfidenceAdjustment int           `json:"confidence_adjustment"`
	Notes                string        `json:"notes"`
}

// AdvisoryUnavailableResult is the default used whenever the reviewer is
// absent or its output cannot be parsed.
func AdvisoryUnavailableResult() Advisory {
	return Advisory{Level: AdvisoryUnavailable}
}

// ParseAdvisory decodes raw reviewer output into the bounded contract.
// Unknown levels and out-of-range adjustments are clamped; any parse
// failure yields the unavailable variant rather than an error, so free-text
// model output can never shape control flow beyond this type.
func ParseAdvisory(raw []byte) Advisory {
	var a Advisory
	if err := json.Unmarshal(raw, &a); err != nil {
		return AdvisoryUnavailableResult()
	}
	switch a.Level {
	case AdvisoryInfo, AdvisoryWarning, AdvisoryBlockAuto:
	default:
		return AdvisoryUnavailableResult()
	}
	if a.ConfidenceAdjustment > 10 {
		a.ConfidenceAdjustment = 10
	}
	if a.ConfidenceAdjustment < -10 {
		a.ConfidenceAdjustment = -10
	}
	return a
}
