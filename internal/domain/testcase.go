package domain

// TestCaseRecord is the canonical test case shape every section converges to.
// Priority and TestType are optional and stay nil when the model omits them.
type TestCaseRecord struct {
	UseCase        string  `json:"Use Case" yaml:"use_case"`
	TestScenario   string  `json:"Test Scenario" yaml:"test_scenario"`
	Priority       *string `json:"Priority,omitempty" yaml:"priority,omitempty"`
	Preconditions  string  `json:"Preconditions" yaml:"preconditions"`
	InputData      string  `json:"Input" yaml:"input_data"`
	ExpectedResult string  `json:"Expected Result" yaml:"expected_result"`
	TestType       *string `json:"Test Type,omitempty" yaml:"test_type,omitempty"`
}

// Valid reports whether the record carries a use case or a scenario.
func (r TestCaseRecord) Valid() bool {
	return r.UseCase != "" || r.TestScenario != ""
}

// PriorityOr returns the priority, or def when none was given.
func (r TestCaseRecord) PriorityOr(def string) string {
	if r.Priority == nil || *r.Priority == "" {
		return def
	}
	return *r.Priority
}

// TestCaseCollection is the ordered output of one pipeline run.
type TestCaseCollection []TestCaseRecord

// CountPriority returns how many records carry priority p.
func (c TestCaseCollection) CountPriority(p, def string) int {
	n := 0
	for _, r := range c {
		if r.PriorityOr(def) == p {
			n++
		}
	}
	return n
}

// Turn is one prompt/response exchange with the model.
type Turn struct {
	Prompt   string `yaml:"prompt"`
	Response string `yaml:"response"`
}

// DefaultHistoryLimit bounds how many turns a session keeps.
const DefaultHistoryLimit = 10

// History is a caller-owned conversation log for the improve flow.
// It is not safe for concurrent use.
type History struct {
	Turns []Turn `yaml:"turns"`
	Limit int    `yaml:"limit"`
}

// NewHistory returns an empty history holding at most limit turns.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{Limit: limit}
}

// Add appends a turn, evicting the oldest when the limit is exceeded.
func (h *History) Add(prompt, response string) {
	h.Turns = append(h.Turns, Turn{Prompt: prompt, Response: response})
	limit := h.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if len(h.Turns) > limit {
		h.Turns = h.Turns[len(h.Turns)-limit:]
	}
}

// LastResponse returns the most recent model response.
func (h *History) LastResponse() (string, bool) {
	if h == nil || len(h.Turns) == 0 {
		return "", false
	}
	return h.Turns[len(h.Turns)-1].Response, true
}
