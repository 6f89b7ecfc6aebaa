// Package threshold implements the pure function that turns a weather
// snapshot into a set of triggered alert rules.
package threshold

import (
	"strings"

	"golang.org/x/text/cases"

	"treewatch/internal/enum"
)

// Snapshot is a weather reading for a single tree at a point in time. A nil
// pointer field means "not reported" and the corresponding rule is skipped
// rather than treated as a breach.
type Snapshot struct {
	Temperature *float64 // degrees Celsius
	WindSpeed   *float64 // km/h
	Humidity    *float64 // percent
	Rainfall    *float64 // mm over the preceding hour
	Description string
}

// Config bundles the recognized threshold options. Zero-value StormKeywords
// means no storm rule will ever match.
type Config struct {
	TempHigh      float64
	WindHigh      float64
	RainLow       float64
	StormKeywords []string
}

// ThresholdBreached documents the field/value/threshold that tripped a rule,
// persisted verbatim on the resulting alert. Value and Threshold are
// interface{} rather than float64 because not every source reports a
// numeric breach: the weather rules below put plain numbers in both, but
// the calendar sweep (internal/scheduler) reports a string event summary
// as Value and the list of matched care keywords as Threshold, per §4.7.
type ThresholdBreached struct {
	Field     string      `json:"field"`
	Value     interface{} `json:"value"`
	Threshold interface{} `json:"threshold"`
}

// TriggeredRule pairs an alert type with the breach that produced it.
type TriggeredRule struct {
	Type              enum.AlertType
	ThresholdBreached ThresholdBreached
}

var foldCaser = cases.Fold()

// Evaluate runs the four independent rules against a snapshot. It is pure,
// deterministic, and side-effect free: the same (snapshot, config) pair
// always yields the same result, and missing fields never fabricate a
// breach.
func Evaluate(snapshot Snapshot, cfg Config) []TriggeredRule {
	var triggered []TriggeredRule

	if snapshot.Temperature != nil && *snapshot.Temperature > cfg.TempHigh {
		triggered = append(triggered, TriggeredRule{
			Type: enum.AlertTypeHighTemperature,
			ThresholdBreached: ThresholdBreached{
				Field: "temperature", Value: *snapshot.Temperature, Threshold: cfg.TempHigh,
			},
		})
	}

	if snapshot.WindSpeed != nil && *snapshot.WindSpeed > cfg.WindHigh {
		triggered = append(triggered, TriggeredRule{
			Type: enum.AlertTypeHighWind,
			ThresholdBreached: ThresholdBreached{
				Field: "windSpeed", Value: *snapshot.WindSpeed, Threshold: cfg.WindHigh,
			},
		})
	}

	if snapshot.Rainfall != nil && *snapshot.Rainfall < cfg.RainLow {
		triggered = append(triggered, TriggeredRule{
			Type: enum.AlertTypeDrought,
			ThresholdBreached: ThresholdBreached{
				Field: "rainfall", Value: *snapshot.Rainfall, Threshold: cfg.RainLow,
			},
		})
	}

	if kw, ok := matchStormKeyword(snapshot.Description, cfg.StormKeywords); ok {
		triggered = append(triggered, TriggeredRule{
			Type: enum.AlertTypeStorm,
			ThresholdBreached: ThresholdBreached{
				Field: "description", Value: kw, Threshold: cfg.StormKeywords,
			},
		})
	}

	return triggered
}

// matchStormKeyword reports whether description contains any keyword,
// matching case-insensitively via locale-aware folding rather than a plain
// strings.ToLower (which mishandles some non-ASCII scripts).
func matchStormKeyword(description string, keywords []string) (string, bool) {
	if description == "" || len(keywords) == 0 {
		return "", false
	}

	folded := foldCaser.String(description)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(folded, foldCaser.String(kw)) {
			return kw, true
		}
	}
	return "", false
}
