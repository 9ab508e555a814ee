// Package classify derives summary, priority, difficulty, duplicate and
// knowledge-base signals from intake answers. Every function is pure and
// keyword driven; the rule tables below are evaluated top to bottom and the
// first matching tier wins.
package classify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spec-kit/bi-triage-agent/internal/domain"
)

const (
	placeholderDescription  = "No description provided"
	placeholderNotSpecified = "Not specified"
	placeholderNone         = "None specified"

	duplicateMinTokenLen = 3
	duplicateThreshold   = 3
	maxSuggestions       = 3
)

type priorityRule struct {
	Priority domain.Priority
	Keywords []string
}

type difficultyRule struct {
	Difficulty domain.Difficulty
	Keywords   []string
}

var priorityRules = []priorityRule{
	{Priority: domain.PriorityP0, Keywords: []string{"urgent", "asap", "critical"}},
	{Priority: domain.PriorityP1, Keywords: []string{"soon", "important"}},
	{Priority: domain.PriorityP3, Keywords: []string{"whenever", "no rush"}},
}

const defaultPriority = domain.PriorityP2

var difficultyRules = []difficultyRule{
	{Difficulty: domain.DifficultyHigh, Keywords: []string{"complex", "integration", "custom"}},
	{Difficulty: domain.DifficultyLow, Keywords: []string{"simple", "quick", "standard"}},
}

const defaultDifficulty = domain.DifficultyMedium

// Result bundles the classification computed at the impact/timeline step.
type Result struct {
	Summary    string
	Priority   domain.Priority
	Difficulty domain.Difficulty
}

// Classify runs Summarize, RatePriority and RateDifficulty over one response set.
func Classify(requestType string, responses map[string]string) Result {
	return Result{
		Summary:    Summarize(requestType, responses),
		Priority:   RatePriority(responses),
		Difficulty: RateDifficulty(responses),
	}
}

// Summarize renders the canonical one-line summary. Missing or empty slots
// render as fixed placeholders.
func Summarize(requestType string, responses map[string]string) string {
	return fmt.Sprintf("%s request: %s. Impact: %s. Timeline: %s. Requirements: %s.",
		requestType,
		slotOr(responses, domain.SlotDescription, placeholderDescription),
		slotOr(responses, domain.SlotImpact, placeholderNotSpecified),
		slotOr(responses, domain.SlotTimeline, placeholderNotSpecified),
		slotOr(responses, domain.SlotRequirements, placeholderNone),
	)
}

// RatePriority scans the lower-cased JSON form of responses against the priority tiers.
func RatePriority(responses map[string]string) domain.Priority {
	text := responsesText(responses)
	for _, rule := range priorityRules {
		if containsAny(text, rule.Keywords) {
			return rule.Priority
		}
	}
	return defaultPriority
}

// RateDifficulty scans the lower-cased JSON form of responses against the difficulty tiers.
func RateDifficulty(responses map[string]string) domain.Difficulty {
	text := responsesText(responses)
	for _, rule := range difficultyRules {
		if containsAny(text, rule.Keywords) {
			return rule.Difficulty
		}
	}
	return defaultDifficulty
}

// DetectDuplicates returns the candidates sharing at least three summary
// tokens (longer than three characters) with summary. Tokens are matched as
// case-insensitive substrings of the candidate summary; repeated tokens count
// once per occurrence.
func DetectDuplicates(summary string, candidates []domain.Ticket) []domain.Ticket {
	tokens := make([]string, 0)
	for _, tok := range strings.Fields(strings.ToLower(summary)) {
		if len(tok) > duplicateMinTokenLen {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) < duplicateThreshold {
		return nil
	}

	var duplicates []domain.Ticket
	for _, candidate := range candidates {
		existing := strings.ToLower(candidate.Summary)
		common := 0
		for _, tok := range tokens {
			if strings.Contains(existing, tok) {
				common++
			}
		}
		if common >= duplicateThreshold {
			duplicates = append(duplicates, candidate)
		}
	}
	return duplicates
}

// SuggestKnowledgeBase returns up to three entries, in stored order, whose
// comma-separated keywords contain any whitespace token of summary.
func SuggestKnowledgeBase(summary string, entries []domain.KnowledgeBaseEntry) []domain.KnowledgeBaseEntry {
	tokens := strings.Fields(strings.ToLower(summary))
	if len(tokens) == 0 {
		return nil
	}

	var suggestions []domain.KnowledgeBaseEntry
	for _, entry := range entries {
		if keywordsMatch(entry.Keywords, tokens) {
			suggestions = append(suggestions, entry)
			if len(suggestions) == maxSuggestions {
				break
			}
		}
	}
	return suggestions
}

func keywordsMatch(keywords string, tokens []string) bool {
	for _, kw := range strings.Split(strings.ToLower(keywords), ",") {
		kw = strings.TrimSpace(kw)
		for _, tok := range tokens {
			if strings.Contains(kw, tok) {
				return true
			}
		}
	}
	return false
}

func slotOr(responses map[string]string, slot, fallback string) string {
	if v := responses[slot]; v != "" {
		return v
	}
	return fallback
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// responsesText is the lower-cased JSON object of all responses.
func responsesText(responses map[string]string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(responses); err != nil {
		keys := make([]string, 0, len(responses))
		for k := range responses {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			buf.WriteString(k + " " + responses[k] + " ")
		}
	}
	return strings.ToLower(buf.String())
}
