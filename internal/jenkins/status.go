package jenkins

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Status reports the result of a build, or of the last build when build is zero.
// Any result other than SUCCESS or FAILURE is reported as pending; transport
// failures are reported as UNKNOWN.
func (c *HTTPClient) Status(ctx context.Context, job string, build int) JobStatus {
	var res buildResult
	if err := c.getJSON(ctx, buildPath(job, build)+"/api/json?tree=result", &res); err != nil {
		c.logger.Error("job status lookup failed", "job", job, "build", build, "error", err)
		return JobStatus{State: StateUnknown, Message: err.Error()}
	}

	if res.Result == nil {
		return JobStatus{State: StatePending, Message: "Job is in progress."}
	}

	state := JobState(*res.Result)
	if !state.Terminal() {
		return JobStatus{State: StatePending, Message: fmt.Sprintf("Job is in progress (result %q).", *res.Result)}
	}
	return JobStatus{State: state, Message: fmt.Sprintf("Job status: %s", state)}
}

// WaitForCompletion polls Status until the build finishes, the attempt cap is
// reached or the wait timeout elapses, whichever comes first. A finished build
// is returned with its console text attached. A wait that gives up returns
// StateAborted with a message naming the bound that was hit.
//
// Status polls run under the wait deadline, so a hung Jenkins cannot hold the
// wait past it. The console fetch gets one extra poll interval.
func (c *HTTPClient) WaitForCompletion(ctx context.Context, job string, build int) JobStatus {
	log := c.logger.With("job", job, "build", build)
	log.Info("waiting for job completion")

	deadline := time.Now().Add(c.poll.WaitTimeout)
	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return JobStatus{State: StateAborted, Message: fmt.Sprintf("Wait interrupted: %v", ctx.Err())}
		}
		if waitCtx.Err() != nil || !time.Now().Before(deadline) {
			log.Error("timeout reached while waiting for job")
			return JobStatus{State: StateAborted, Message: "Timeout reached while waiting for job completion."}
		}
		if attempt >= c.poll.StatusAttempts {
			log.Error("exceeded maximum number of status polls", "attempts", attempt)
			return JobStatus{State: StateAborted, Message: "Exceeded maximum number of retries while waiting for job completion."}
		}

		status := c.Status(waitCtx, job, build)
		if status.State.Terminal() {
			log.Info("job completed", "status", status.State)
			logCtx, cancelLogs := context.WithDeadline(ctx, deadline.Add(c.poll.StatusInterval))
			logs, err := c.ConsoleText(logCtx, job, build)
			cancelLogs()
			if err != nil {
				log.Warn("console log fetch failed", "error", err)
			}
			status.ConsoleLogs = logs
			return status
		}

		// A sleep cut short by the deadline is reported by the checks above.
		_ = sleep(waitCtx, c.poll.StatusInterval)
	}
}

// ConsoleText returns the console log of a build.
func (c *HTTPClient) ConsoleText(ctx context.Context, job string, build int) (string, error) {
	return c.getText(ctx, buildPath(job, build)+"/consoleText")
}

func jobPath(job string) string {
	return "/job/" + url.PathEscape(job)
}

func buildPath(job string, build int) string {
	if build <= 0 {
		return jobPath(job) + "/lastBuild"
	}
	return fmt.Sprintf("%s/%d", jobPath(job), build)
}

func artifactPath(job string, build int, path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return buildPath(job, build) + "/artifact/" + strings.Join(segments, "/")
}

func decodeBody(resp *http.Response, v any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}
