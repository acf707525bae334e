package jenkins

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kiranshivaraju/kafkaops/internal/config"
)

// --- helpers ---

func fastPoll() config.PollConfig {
	return config.PollConfig{
		QueueAttempts:       3,
		QueueInterval:       time.Millisecond,
		LatestBuildAttempts: 2,
		LatestBuildInterval: time.Millisecond,
		StatusAttempts:      5,
		StatusInterval:      time.Millisecond,
		WaitTimeout:         5 * time.Second,
	}
}

func newTestClient(t *testing.T, baseURL string, poll config.PollConfig) *HTTPClient {
	t.Helper()
	return NewHTTPClient(config.JenkinsConfig{
		BaseURL:  baseURL,
		Username: "svc",
		Password: "token",
		Timeout:  5 * time.Second,
		Poll:     poll,
	}, nil)
}

func jenkinsServer(t *testing.T, mux *http.ServeMux) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// --- Trigger tests ---

func TestTrigger_ResolvesBuildFromQueue(t *testing.T) {
	var queuePolls atomic.Int32
	mux := http.NewServeMux()
	var ts *httptest.Server

	mux.HandleFunc("POST /job/kafka_list_topics/buildWithParameters", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "svc" || pass != "token" {
			t.Errorf("missing basic auth: %q %q", user, pass)
		}
		if got := r.URL.Query().Get("regex"); got != "orders.*" {
			t.Errorf("unexpected regex param: %q", got)
		}
		w.Header().Set("Location", ts.URL+"/queue/item/7/")
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /queue/item/7/api/json", func(w http.ResponseWriter, r *http.Request) {
		if queuePolls.Add(1) == 1 {
			fmt.Fprint(w, `{"why":"Waiting for next available executor"}`)
			return
		}
		fmt.Fprint(w, `{"executable":{"number":42}}`)
	})
	ts = jenkinsServer(t, mux)

	c := newTestClient(t, ts.URL, fastPoll())
	out := c.Trigger(context.Background(), JobTrigger{
		Job:        "kafka_list_topics",
		Parameters: map[string][]string{"regex": {"orders.*"}},
	})

	if !out.Succeeded {
		t.Fatalf("expected success, got %+v", out)
	}
	if out.BuildNumber != 42 {
		t.Errorf("expected build 42, got %d", out.BuildNumber)
	}
	if queuePolls.Load() != 2 {
		t.Errorf("expected 2 queue polls, got %d", queuePolls.Load())
	}
}

func TestTrigger_NoParametersUsesBuildEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	var ts *httptest.Server
	mux.HandleFunc("POST /job/nightly/build", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", ts.URL+"/queue/item/1/")
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /queue/item/1/api/json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"executable":{"number":3}}`)
	})
	ts = jenkinsServer(t, mux)

	out := newTestClient(t, ts.URL, fastPoll()).Trigger(context.Background(), JobTrigger{Job: "nightly"})
	if !out.Succeeded || out.BuildNumber != 3 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}

func TestTrigger_QueueGoneFallsBackToLatestBuild(t *testing.T) {
	var queuePolls, jobPolls atomic.Int32
	mux := http.NewServeMux()
	var ts *httptest.Server

	mux.HandleFunc("POST /job/kafka_describe_topic/buildWithParameters", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", ts.URL+"/queue/item/9/")
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /queue/item/9/api/json", func(w http.ResponseWriter, r *http.Request) {
		queuePolls.Add(1)
		http.NotFound(w, r)
	})
	mux.HandleFunc("GET /job/kafka_describe_topic/api/json", func(w http.ResponseWriter, r *http.Request) {
		jobPolls.Add(1)
		fmt.Fprint(w, `{"builds":[{"number":17},{"number":16}]}`)
	})
	ts = jenkinsServer(t, mux)

	out := newTestClient(t, ts.URL, fastPoll()).Trigger(context.Background(), JobTrigger{
		Job:        "kafka_describe_topic",
		Parameters: map[string][]string{"topic_name": {"orders"}},
	})

	if !out.Succeeded {
		t.Fatalf("expected fallback success, got %+v", out)
	}
	if out.BuildNumber != 17 {
		t.Errorf("expected most recent build 17, got %d", out.BuildNumber)
	}
	if queuePolls.Load() != 1 {
		t.Errorf("404 must end queue resolution at once, got %d polls", queuePolls.Load())
	}
	if jobPolls.Load() != 1 {
		t.Errorf("expected fallback to stop after first hit, got %d polls", jobPolls.Load())
	}
}

func TestTrigger_BuildNumberNeverResolves(t *testing.T) {
	var queuePolls, jobPolls atomic.Int32
	mux := http.NewServeMux()
	var ts *httptest.Server

	mux.HandleFunc("POST /job/slow/build", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", ts.URL+"/queue/item/5/")
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("GET /queue/item/5/api/json", func(w http.ResponseWriter, r *http.Request) {
		queuePolls.Add(1)
		fmt.Fprint(w, `{}`)
	})
	mux.HandleFunc("GET /job/slow/api/json", func(w http.ResponseWriter, r *http.Request) {
		jobPolls.Add(1)
		fmt.Fprint(w, `{"builds":[]}`)
	})
	ts = jenkinsServer(t, mux)

	poll := fastPoll()
	out := newTestClient(t, ts.URL, poll).Trigger(context.Background(), JobTrigger{Job: "slow"})

	if out.Succeeded {
		t.Fatalf("expected failure, got %+v", out)
	}
	if out.BuildNumber != 0 {
		t.Errorf("failed trigger must not carry a build number, got %d", out.BuildNumber)
	}
	if out.Message != "Failed to retrieve build number after retries." {
		t.Errorf("unexpected message: %q", out.Message)
	}
	if int(queuePolls.Load()) != poll.QueueAttempts {
		t.Errorf("expected %d queue polls, got %d", poll.QueueAttempts, queuePolls.Load())
	}
	if int(jobPolls.Load()) != poll.LatestBuildAttempts {
		t.Errorf("expected %d latest build polls, got %d", poll.LatestBuildAttempts, jobPolls.Load())
	}
}

func TestTrigger_UnexpectedStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /job/broken/build", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	ts := jenkinsServer(t, mux)

	out := newTestClient(t, ts.URL, fastPoll()).Trigger(context.Background(), JobTrigger{Job: "broken"})
	if out.Succeeded {
		t.Fatal("expected failure")
	}
	if !strings.Contains(out.Message, "403") {
		t.Errorf("expected status code in message, got %q", out.Message)
	}
}

func TestTrigger_MissingLocation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /job/noloc/build", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	ts := jenkinsServer(t, mux)

	out := newTestClient(t, ts.URL, fastPoll()).Trigger(context.Background(), JobTrigger{Job: "noloc"})
	if out.Succeeded {
		t.Fatal("expected failure")
	}
	if !strings.Contains(out.Message, "Queue location not found") {
		t.Errorf("unexpected message: %q", out.Message)
	}
}

func TestTrigger_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	out := newTestClient(t, url, fastPoll()).Trigger(context.Background(), JobTrigger{Job: "any"})
	if out.Succeeded {
		t.Fatal("expected failure for unreachable jenkins")
	}
	if !strings.Contains(out.Message, "jenkins unreachable") {
		t.Errorf("expected transport failure in message, got %q", out.Message)
	}
}

// --- Status tests ---

func TestStatus_MapsResult(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected JobState
	}{
		{name: "null result is pending", body: `{"result":null}`, expected: StatePending},
		{name: "missing result is pending", body: `{}`, expected: StatePending},
		{name: "success", body: `{"result":"SUCCESS"}`, expected: StateSuccess},
		{name: "failure", body: `{"result":"FAILURE"}`, expected: StateFailure},
		{name: "aborted is not terminal", body: `{"result":"ABORTED"}`, expected: StatePending},
		{name: "unstable is not terminal", body: `{"result":"UNSTABLE"}`, expected: StatePending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /job/kafka_list_topics/12/api/json", func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("tree") != "result" {
					t.Errorf("expected tree=result, got %q", r.URL.RawQuery)
				}
				fmt.Fprint(w, tt.body)
			})
			ts := jenkinsServer(t, mux)

			st := newTestClient(t, ts.URL, fastPoll()).Status(context.Background(), "kafka_list_topics", 12)
			if st.State != tt.expected {
				t.Errorf("expected %q, got %q (%s)", tt.expected, st.State, st.Message)
			}
		})
	}
}

func TestStatus_LastBuildWhenNoBuildNumber(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /job/kafka_list_topics/lastBuild/api/json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":"SUCCESS"}`)
	})
	ts := jenkinsServer(t, mux)

	st := newTestClient(t, ts.URL, fastPoll()).Status(context.Background(), "kafka_list_topics", 0)
	if st.State != StateSuccess {
		t.Errorf("expected SUCCESS, got %q", st.State)
	}
	if st.Message != "Job status: SUCCESS" {
		t.Errorf("unexpected message: %q", st.Message)
	}
}

func TestStatus_TransportFailureIsUnknown(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /job/x/1/api/json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ts := jenkinsServer(t, mux)

	st := newTestClient(t, ts.URL, fastPoll()).Status(context.Background(), "x", 1)
	if st.State != StateUnknown {
		t.Errorf("expected UNKNOWN, got %q", st.State)
	}
	if !strings.Contains(st.Message, "500") {
		t.Errorf("expected error text in message, got %q", st.Message)
	}
}

// --- WaitForCompletion tests ---

func TestWaitForCompletion_AttachesConsoleLogs(t *testing.T) {
	var polls, consoleFetches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /job/kafka_list_topics/4/api/json", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			fmt.Fprint(w, `{"result":null}`)
			return
		}
		fmt.Fprint(w, `{"result":"SUCCESS"}`)
	})
	mux.HandleFunc("GET /job/kafka_list_topics/4/consoleText", func(w http.ResponseWriter, r *http.Request) {
		consoleFetches.Add(1)
		fmt.Fprint(w, "Started by user svc\nFinished: SUCCESS\n")
	})
	ts := jenkinsServer(t, mux)

	st := newTestClient(t, ts.URL, fastPoll()).WaitForCompletion(context.Background(), "kafka_list_topics", 4)
	if st.State != StateSuccess {
		t.Fatalf("expected SUCCESS, got %s", st)
	}
	if !strings.Contains(st.ConsoleLogs, "Finished: SUCCESS") {
		t.Errorf("expected console logs attached, got %q", st.ConsoleLogs)
	}
	if polls.Load() != 3 {
		t.Errorf("expected 3 status polls, got %d", polls.Load())
	}
	if consoleFetches.Load() != 1 {
		t.Errorf("console logs must be fetched exactly once, got %d", consoleFetches.Load())
	}
}

func TestWaitForCompletion_FailureIsTerminal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /job/j/2/api/json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":"FAILURE"}`)
	})
	mux.HandleFunc("GET /job/j/2/consoleText", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ERROR: topic not found")
	})
	ts := jenkinsServer(t, mux)

	st := newTestClient(t, ts.URL, fastPoll()).WaitForCompletion(context.Background(), "j", 2)
	if st.State != StateFailure {
		t.Fatalf("expected FAILURE, got %s", st)
	}
	if st.ConsoleLogs != "ERROR: topic not found" {
		t.Errorf("unexpected console logs: %q", st.ConsoleLogs)
	}
}

func TestWaitForCompletion_AttemptCap(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /job/stuck/1/api/json", func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		fmt.Fprint(w, `{"result":null}`)
	})
	ts := jenkinsServer(t, mux)

	poll := fastPoll()
	st := newTestClient(t, ts.URL, poll).WaitForCompletion(context.Background(), "stuck", 1)
	if st.State != StateAborted {
		t.Fatalf("expected aborted wait, got %s", st)
	}
	if !strings.Contains(st.Message, "Exceeded maximum number of retries") {
		t.Errorf("unexpected message: %q", st.Message)
	}
	if int(polls.Load()) != poll.StatusAttempts {
		t.Errorf("expected %d polls, got %d", poll.StatusAttempts, polls.Load())
	}
}

func TestWaitForCompletion_Timeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /job/stuck/1/api/json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	})
	ts := jenkinsServer(t, mux)

	poll := fastPoll()
	poll.StatusAttempts = 100000
	poll.StatusInterval = 10 * time.Millisecond
	poll.WaitTimeout = 60 * time.Millisecond

	start := time.Now()
	st := newTestClient(t, ts.URL, poll).WaitForCompletion(context.Background(), "stuck", 1)
	elapsed := time.Since(start)

	if st.State != StateAborted {
		t.Fatalf("expected aborted wait, got %s", st)
	}
	if !strings.Contains(st.Message, "Timeout reached") {
		t.Errorf("unexpected message: %q", st.Message)
	}
	if elapsed > poll.WaitTimeout+poll.StatusInterval+time.Second {
		t.Errorf("wait overran its bound: %s", elapsed)
	}
}

func TestWaitForCompletion_SlowStatusHonoursTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /job/slow/1/api/json", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(1500 * time.Millisecond):
			fmt.Fprint(w, `{"result":null}`)
		case <-r.Context().Done():
		}
	})
	ts := jenkinsServer(t, mux)

	poll := fastPoll()
	poll.StatusAttempts = 100
	poll.StatusInterval = 50 * time.Millisecond
	poll.WaitTimeout = 200 * time.Millisecond

	start := time.Now()
	st := newTestClient(t, ts.URL, poll).WaitForCompletion(context.Background(), "slow", 1)
	elapsed := time.Since(start)

	if st.State != StateAborted || !strings.Contains(st.Message, "Timeout reached") {
		t.Fatalf("expected timeout, got %s", st)
	}
	if elapsed > poll.WaitTimeout+poll.StatusInterval+250*time.Millisecond {
		t.Errorf("wait overran its bound: %s", elapsed)
	}
}

func TestWaitForCompletion_SlowConsoleStaysBounded(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /job/slowlogs/1/api/json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":"FAILURE"}`)
	})
	mux.HandleFunc("GET /job/slowlogs/1/consoleText", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(1500 * time.Millisecond):
			fmt.Fprint(w, "late logs")
		case <-r.Context().Done():
		}
	})
	ts := jenkinsServer(t, mux)

	poll := fastPoll()
	poll.StatusInterval = 50 * time.Millisecond
	poll.WaitTimeout = 200 * time.Millisecond

	start := time.Now()
	st := newTestClient(t, ts.URL, poll).WaitForCompletion(context.Background(), "slowlogs", 1)
	elapsed := time.Since(start)

	if st.State != StateFailure {
		t.Fatalf("expected FAILURE, got %s", st)
	}
	if st.ConsoleLogs != "" {
		t.Errorf("expected no console logs, got %q", st.ConsoleLogs)
	}
	if elapsed > poll.WaitTimeout+poll.StatusInterval+250*time.Millisecond {
		t.Errorf("wait overran its bound: %s", elapsed)
	}
}

func TestJobStatusString(t *testing.T) {
	st := JobStatus{State: StateFailure, Message: "Job status: FAILURE"}
	if got, want := st.String(), `status="FAILURE" message="Job status: FAILURE"`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	st.ConsoleLogs = "Error: Topic 'nope' does not exist\n"
	if !strings.Contains(st.String(), `build_logs="Error: Topic 'nope' does not exist\n"`) {
		t.Errorf("console logs missing from %s", st)
	}
}

func TestWaitForCompletion_ContextCancelled(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /job/stuck/1/api/json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	})
	ts := jenkinsServer(t, mux)

	poll := fastPoll()
	poll.StatusInterval = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	st := newTestClient(t, ts.URL, poll).WaitForCompletion(ctx, "stuck", 1)
	if st.State != StateAborted {
		t.Fatalf("expected aborted wait, got %s", st)
	}
	if !strings.Contains(st.Message, "interrupted") {
		t.Errorf("unexpected message: %q", st.Message)
	}
}

// --- Artifact tests ---

func TestArtifact_ReturnsBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /job/kafka_list_topics/8/artifact/output.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "orders\r\npayments")
	})
	ts := jenkinsServer(t, mux)

	body, err := newTestClient(t, ts.URL, fastPoll()).Artifact(context.Background(), "kafka_list_topics", 8, "output.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "orders\r\npayments" {
		t.Errorf("unexpected body: %q", body)
	}
}

func TestArtifact_NestedPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /job/j/1/artifact/reports/out.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})
	ts := jenkinsServer(t, mux)

	body, err := newTestClient(t, ts.URL, fastPoll()).Artifact(context.Background(), "j", 1, "/reports/out.txt")
	if err != nil || body != "ok" {
		t.Fatalf("unexpected result: %q %v", body, err)
	}
}

func TestArtifact_NotFound(t *testing.T) {
	ts := jenkinsServer(t, http.NewServeMux())

	_, err := newTestClient(t, ts.URL, fastPoll()).Artifact(context.Background(), "j", 1, "output.txt")
	if !errors.Is(err, ErrArtifactMissing) {
		t.Errorf("expected ErrArtifactMissing, got %v", err)
	}
}

func TestArtifact_ServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /job/j/1/artifact/output.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	ts := jenkinsServer(t, mux)

	_, err := newTestClient(t, ts.URL, fastPoll()).Artifact(context.Background(), "j", 1, "output.txt")
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("expected ErrUnexpectedStatus, got %v", err)
	}
}

// --- Ping tests ---

func TestPing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"mode":"NORMAL"}`)
	})
	ts := jenkinsServer(t, mux)

	if err := newTestClient(t, ts.URL, fastPoll()).Ping(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPing_NotReady(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	ts := jenkinsServer(t, mux)

	err := newTestClient(t, ts.URL, fastPoll()).Ping(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("expected ErrUnreachable, got %v", err)
	}
}

func TestClassifyError(t *testing.T) {
	if err := classifyError(context.DeadlineExceeded); !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
	if err := classifyError(errors.New("connection refused")); !errors.Is(err, ErrUnreachable) {
		t.Errorf("expected ErrUnreachable, got %v", err)
	}
}

func TestQueueAPI(t *testing.T) {
	if got := queueAPI("http://ci/queue/item/7/"); got != "http://ci/queue/item/7/api/json" {
		t.Errorf("unexpected queue api url: %s", got)
	}
	if got := queueAPI("http://ci/queue/item/7/api/json"); got != "http://ci/queue/item/7/api/json" {
		t.Errorf("unexpected queue api url: %s", got)
	}
}
