package signals

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Under/over recommendation types.
const (
	TypeOver  = "over"
	TypeUnder = "under"
)

// thresholdPriority fixes which threshold wins when a payload reports
// several. 2.5 is preferred, then 3.5, then the rest in listed order.
var thresholdPriority = []string{"2.5", "3.5", "1.5", "4.5", "0.5", "5.5"}

// UnderOver is a parsed goals recommendation.
type UnderOver struct {
	Type      string `json:"type"`      // "over" or "under"
	Threshold string `json:"threshold"` // e.g. "2.5"
}

// ParseGoals parses a raw prediction value. Two upstream shapes exist: a
// signed numeric threshold (negative prefix means Under) and a map from
// threshold string to an Over/Under label. The returned label map is nil for
// the numeric shape; callers pass it to Sanitize.
func ParseGoals(raw json.RawMessage) (UnderOver, map[string]string, error) {
	if len(raw) == 0 {
		return UnderOver{}, nil, fmt.Errorf("empty goals prediction")
	}

	var labels map[string]string
	if err := json.Unmarshal(raw, &labels); err == nil {
		uo, err := fromLabels(labels)
		return uo, labels, err
	}

	var numeric float64
	if err := json.Unmarshal(raw, &numeric); err == nil {
		return fromSigned(numeric), nil, nil
	}

	// Some sources quote the signed threshold as a string.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if numeric, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return fromSigned(numeric), nil, nil
		}
	}

	return UnderOver{}, nil, fmt.Errorf("unrecognized goals prediction shape: %s", string(raw))
}

// Sanitize enforces one consistency rule on a candidate recommendation: an
// Over 1.5 is overridden to Under 2.5 when the same payload independently
// reports both the 2.5 and 3.5 thresholds as Under. An Over below two
// confirmed Unders would be internally contradictory.
func Sanitize(candidate UnderOver, labels map[string]string) UnderOver {
	if candidate.Type == TypeOver && candidate.Threshold == "1.5" &&
		labelType(labels["2.5"]) == TypeUnder && labelType(labels["3.5"]) == TypeUnder {
		return UnderOver{Type: TypeUnder, Threshold: "2.5"}
	}
	return candidate
}

func fromSigned(v float64) UnderOver {
	typ := TypeOver
	if v < 0 {
		typ = TypeUnder
	}
	return UnderOver{
		Type:      typ,
		Threshold: strconv.FormatFloat(math.Abs(v), 'f', -1, 64),
	}
}

func fromLabels(labels map[string]string) (UnderOver, error) {
	for _, threshold := range thresholdPriority {
		if label, ok := labels[threshold]; ok {
			if typ := labelType(label); typ != "" {
				return UnderOver{Type: typ, Threshold: threshold}, nil
			}
		}
	}
	// Thresholds outside the priority list, in lexical order for
	// determinism.
	var rest []string
	for threshold := range labels {
		rest = append(rest, threshold)
	}
	sort.Strings(rest)
	for _, threshold := range rest {
		if typ := labelType(labels[threshold]); typ != "" {
			return UnderOver{Type: typ, Threshold: threshold}, nil
		}
	}
	return UnderOver{}, fmt.Errorf("no usable threshold label")
}

func labelType(label string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case TypeOver:
		return TypeOver
	case TypeUnder:
		return TypeUnder
	default:
		return ""
	}
}
