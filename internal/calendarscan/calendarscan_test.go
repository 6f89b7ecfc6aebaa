package calendarscan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"treewatch/internal/calendar"
)

func tree() Tree { return Tree{ID: "t1", Name: "Big Oak", Species: "Quercus"} }

func TestScan_RelatedAndCareRelevant(t *testing.T) {
	event := calendar.Event{Summary: "Watering - Big Oak", Description: "routine watering visit"}
	match := Scan(event, tree(), DefaultCareKeywords)
	assert.NotNil(t, match)
	assert.Contains(t, match.MatchedKeywords, "watering")
}

func TestScan_RelatedButNotCareRelevant(t *testing.T) {
	event := calendar.Event{Summary: "Meeting about Big Oak", Description: "discuss budget"}
	assert.Nil(t, Scan(event, tree(), DefaultCareKeywords))
}

func TestScan_NotRelated(t *testing.T) {
	event := calendar.Event{Summary: "Team standup", Description: "daily sync"}
	assert.Nil(t, Scan(event, tree(), DefaultCareKeywords))
}

func TestScan_MatchesByTreeID(t *testing.T) {
	event := calendar.Event{Summary: "Inspection for t1", Description: ""}
	match := Scan(event, tree(), DefaultCareKeywords)
	assert.NotNil(t, match)
	assert.Contains(t, match.MatchedKeywords, "inspection")
}

func TestScan_MatchesBySpeciesCaseInsensitive(t *testing.T) {
	event := calendar.Event{Summary: "PRUNING quercus specimens", Description: ""}
	match := Scan(event, tree(), DefaultCareKeywords)
	assert.NotNil(t, match)
}

func TestScan_MultipleKeywordsAllReported(t *testing.T) {
	event := calendar.Event{Summary: "Big Oak: pruning and fertilizing", Description: ""}
	match := Scan(event, tree(), DefaultCareKeywords)
	assert.ElementsMatch(t, []string{"pruning", "fertilizing"}, match.MatchedKeywords)
}
