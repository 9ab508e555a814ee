// Package catalog holds the fixed request types and their intake questions.
package catalog

// RequestType describes one intake category.
type RequestType struct {
	ID        string
	Name      string
	Questions []string
}

// TypeOption is the presentation shape of a request type.
type TypeOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var order = []string{"troubleshooting", "reporting", "automation", "access", "tools"}

var types = map[string]RequestType{
	"troubleshooting": {
		ID:   "troubleshooting",
		Name: "Troubleshooting",
		Questions: []string{
			"What specific issue are you experiencing?",
			"What steps have you already tried?",
			"When did this issue first occur?",
			"How is this affecting your daily work?",
		},
	},
	"reporting": {
		ID:   "reporting",
		Name: "Reporting/Dashboard",
		Questions: []string{
			"What type of report or dashboard do you need?",
			"What data sources should be included?",
			"Who will be using this report?",
			"How often will this report be needed?",
		},
	},
	"automation": {
		ID:   "automation",
		Name: "Automation",
		Questions: []string{
			"What process would you like to automate?",
			"How is this currently being done manually?",
			"What triggers should start this automation?",
			"What should happen when the automation completes?",
		},
	},
	"access": {
		ID:   "access",
		Name: "User Access",
		Questions: []string{
			"What system or tool do you need access to?",
			"What level of access do you require?",
			"What is your role and why do you need this access?",
			"Is this temporary or permanent access?",
		},
	},
	"tools": {
		ID:   "tools",
		Name: "Tool-related Changes",
		Questions: []string{
			"What tool needs to be changed or configured?",
			"What specific changes are required?",
			"Who else might be affected by this change?",
			"Is this related to a new business requirement?",
		},
	},
}

// impactTimelineQuestions are asked for every request type once details are collected.
var impactTimelineQuestions = []string{
	"What happens if this request isn't fulfilled? How does it affect your work or decision-making?",
	"When do you need this completed?",
	"Is this a one-time request or ongoing need?",
	"Are there any specific requirements or constraints I should know about?",
	"Please provide any relevant links, reports, or snapshots that can serve as reference.",
}

// Lookup returns the request type for key.
func Lookup(key string) (RequestType, bool) {
	rt, ok := types[key]
	return rt, ok
}

// Types lists the request types in presentation order.
func Types() []TypeOption {
	out := make([]TypeOption, 0, len(order))
	for _, key := range order {
		out = append(out, TypeOption{ID: key, Name: types[key].Name})
	}
	return out
}

// ImpactTimelineQuestions returns a copy of the fixed impact/timeline prompts.
func ImpactTimelineQuestions() []string {
	return append([]string(nil), impactTimelineQuestions...)
}

// Question returns the question at index i, or false when i is out of range.
func (rt RequestType) Question(i int) (string, bool) {
	if i < 0 || i >= len(rt.Questions) {
		return "", false
	}
	return rt.Questions[i], true
}

// TotalQuestions is the number of detail questions for the type.
func (rt RequestType) TotalQuestions() int {
	return len(rt.Questions)
}
