// Package calendarscan implements the pure text-matching rules the Calendar
// Sweep uses to decide whether a calendar event is relevant to a tree and,
// if so, whether it describes care work.
package calendarscan

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"treewatch/internal/calendar"
)

// DefaultCareKeywords is the default keyword set a tree-related event must
// also contain to be considered care-relevant.
var DefaultCareKeywords = []string{"watering", "pruning", "inspection", "trimming", "fertilizing", "treatment"}

var foldCaser = cases.Fold()

// Tree is the minimal tree projection the scanner needs.
type Tree struct {
	ID      string
	Name    string
	Species string
}

// Match describes a care-relevant event once both the relatedness and
// keyword checks pass.
type Match struct {
	MatchedKeywords []string
}

// Scan checks whether event is tree-related (its combined title+description
// text contains the tree's id, name, or species) and, if so, whether it is
// care-relevant (the text additionally contains any of keywords). Returns
// nil if the event is not tree-related, or is related but not care-relevant.
func Scan(event calendar.Event, tree Tree, keywords []string) *Match {
	text := foldCaser.String(fmt.Sprintf("%s %s", event.Summary, event.Description))

	if !containsAny(text, tree.ID, tree.Name, tree.Species) {
		return nil
	}

	matched := matchAll(text, keywords)
	if len(matched) == 0 {
		return nil
	}

	return &Match{MatchedKeywords: matched}
}

func containsAny(text string, candidates ...string) bool {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if strings.Contains(text, foldCaser.String(c)) {
			return true
		}
	}
	return false
}

func matchAll(text string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(text, foldCaser.String(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}
