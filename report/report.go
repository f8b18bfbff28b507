// Package report defines the narration report artifact: a tree of steps
// recorded by the report adapter, with the codecs used to store it.
package report

// Status is the outcome of a step or report.
type Status string

// Step statuses.
const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusBroken  Status = "broken"
	StatusSkipped Status = "skipped"
)

// Statuses returns all statuses, worst last.
func Statuses() []Status {
	return []Status{StatusPassed, StatusSkipped, StatusFailed, StatusBroken}
}

// rank orders statuses so that a parent can take its worst child's status.
func (s Status) rank() int {
	switch s {
	case StatusPassed:
		return 0
	case StatusSkipped:
		return 1
	case StatusFailed:
		return 2
	case StatusBroken:
		return 3
	default:
		return -1
	}
}

// Worse returns whichever of s and other is worse.
func (s Status) Worse(other Status) Status {
	if other.rank() > s.rank() {
		return other
	}
	return s
}

// Severity is the importance of an act or scene.
type Severity string

// Severities, least important first.
const (
	SeverityTrivial  Severity = "trivial"
	SeverityMinor    Severity = "minor"
	SeverityNormal   Severity = "normal"
	SeverityCritical Severity = "critical"
	SeverityBlocker  Severity = "blocker"
)

// Labels classify a report.
type Labels struct {
	Epic     string   `json:"epic,omitempty" yaml:"epic,omitempty" msgpack:"epic,omitempty"`
	Feature  string   `json:"feature,omitempty" yaml:"feature,omitempty" msgpack:"feature,omitempty"`
	Severity Severity `json:"severity,omitempty" yaml:"severity,omitempty" msgpack:"severity,omitempty"`
}

// Step is one narrated invocation. Times are Unix milliseconds.
type Step struct {
	Name     string   `json:"name" yaml:"name" msgpack:"name"`
	Channel  string   `json:"channel" yaml:"channel" msgpack:"channel"`
	Severity Severity `json:"severity,omitempty" yaml:"severity,omitempty" msgpack:"severity,omitempty"`
	Status   Status   `json:"status" yaml:"status" msgpack:"status"`
	Message  string   `json:"message,omitempty" yaml:"message,omitempty" msgpack:"message,omitempty"`
	Start    int64    `json:"start" yaml:"start" msgpack:"start"`
	Stop     int64    `json:"stop" yaml:"stop" msgpack:"stop"`
	Steps    []*Step  `json:"steps,omitempty" yaml:"steps,omitempty" msgpack:"steps,omitempty"`
}

// Report is the artifact for one run. Times are Unix milliseconds.
type Report struct {
	UUID   string  `json:"uuid" yaml:"uuid" msgpack:"uuid"`
	Name   string  `json:"name" yaml:"name" msgpack:"name"`
	Status Status  `json:"status" yaml:"status" msgpack:"status"`
	Labels Labels  `json:"labels" yaml:"labels" msgpack:"labels"`
	Start  int64   `json:"start" yaml:"start" msgpack:"start"`
	Stop   int64   `json:"stop" yaml:"stop" msgpack:"stop"`
	Steps  []*Step `json:"steps,omitempty" yaml:"steps,omitempty" msgpack:"steps,omitempty"`
}

// Walk visits every step depth-first in recording order.
// Top-level steps have depth zero.
func (r *Report) Walk(fn func(step *Step, depth int)) {
	var walk func(steps []*Step, depth int)
	walk = func(steps []*Step, depth int) {
		for _, s := range steps {
			fn(s, depth)
			walk(s.Steps, depth+1)
		}
	}
	walk(r.Steps, 0)
}

// Counts returns the number of steps per status.
func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int)
	r.Walk(func(s *Step, _ int) {
		counts[s.Status]++
	})
	return counts
}

// Len returns the total number of steps.
func (r *Report) Len() int {
	n := 0
	r.Walk(func(*Step, int) { n++ })
	return n
}
