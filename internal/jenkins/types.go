package jenkins

import (
	"fmt"
	"net/url"
)

// JobState is the result of a build as reported by Jenkins.
type JobState string

const (
	StatePending JobState = "PENDING"
	StateSuccess JobState = "SUCCESS"
	StateFailure JobState = "FAILURE"
	StateUnknown JobState = "UNKNOWN"
	// StateAborted marks a wait that gave up before the build finished.
	StateAborted JobState = ""
)

// Terminal reports whether the build has finished.
func (s JobState) Terminal() bool {
	return s == StateSuccess || s == StateFailure
}

// JobTrigger names a job and the query parameters it is started with.
type JobTrigger struct {
	Job        string
	Parameters url.Values
}

func (t JobTrigger) endpoint() string {
	if len(t.Parameters) == 0 {
		return fmt.Sprintf("/job/%s/build", url.PathEscape(t.Job))
	}
	return fmt.Sprintf("/job/%s/buildWithParameters?%s", url.PathEscape(t.Job), t.Parameters.Encode())
}

// TriggerOutcome is the result of starting a job. BuildNumber is zero
// whenever Succeeded is false.
type TriggerOutcome struct {
	Succeeded   bool   `json:"success"`
	Message     string `json:"message"`
	BuildNumber int    `json:"build_number,omitempty"`
}

// JobStatus is the state of one build.
type JobStatus struct {
	State       JobState `json:"status"`
	Message     string   `json:"message"`
	ConsoleLogs string   `json:"build_logs,omitempty"`
}

// String renders the status for failure messages. Console logs are kept
// whole since they usually hold the tool's own error.
func (s JobStatus) String() string {
	if s.ConsoleLogs == "" {
		return fmt.Sprintf("status=%q message=%q", s.State, s.Message)
	}
	return fmt.Sprintf("status=%q message=%q build_logs=%q", s.State, s.Message, s.ConsoleLogs)
}
