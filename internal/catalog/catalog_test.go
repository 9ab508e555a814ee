package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypesOrderAndNames(t *testing.T) {
	got := Types()
	want := []TypeOption{
		{ID: "troubleshooting", Name: "Troubleshooting"},
		{ID: "reporting", Name: "Reporting/Dashboard"},
		{ID: "automation", Name: "Automation"},
		{ID: "access", Name: "User Access"},
		{ID: "tools", Name: "Tool-related Changes"},
	}
	assert.Equal(t, want, got)
}

func TestEveryTypeHasFourQuestions(t *testing.T) {
	for _, opt := range Types() {
		rt, ok := Lookup(opt.ID)
		require.True(t, ok, opt.ID)
		assert.Equal(t, 4, rt.TotalQuestions(), opt.ID)
		for i := 0; i < rt.TotalQuestions(); i++ {
			q, ok := rt.Question(i)
			assert.True(t, ok)
			assert.NotEmpty(t, q)
		}
		_, ok = rt.Question(rt.TotalQuestions())
		assert.False(t, ok)
	}
}

func TestLookupUnknown(t *testing.T) {
	_, ok := Lookup("billing")
	assert.False(t, ok)
}

func TestImpactTimelineQuestionsIsCopy(t *testing.T) {
	qs := ImpactTimelineQuestions()
	require.Len(t, qs, 5)
	qs[0] = "changed"
	assert.Equal(t, "What happens if this request isn't fulfilled? How does it affect your work or decision-making?",
		ImpactTimelineQuestions()[0])
}

func TestTroubleshootingQuestionsVerbatim(t *testing.T) {
	rt, _ := Lookup("troubleshooting")
	assert.Equal(t, "What specific issue are you experiencing?", rt.Questions[0])
	assert.Equal(t, "How is this affecting your daily work?", rt.Questions[3])
}
