package jenkins

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Trigger starts a job and resolves the number of the build it produced.
//
// Jenkins answers a trigger with 201 and a Location header naming a queue
// item. The queue item carries the build number once an executor picks the
// job up, but it disappears (404) shortly after, so a job that starts quickly
// can leave the queue before the first poll. When the queue yields nothing
// the most recent build of the job is taken instead.
func (c *HTTPClient) Trigger(ctx context.Context, t JobTrigger) TriggerOutcome {
	log := c.logger.With("job", t.Job)
	log.Info("triggering job")

	resp, err := c.do(ctx, http.MethodPost, t.endpoint())
	if err != nil {
		log.Error("trigger request failed", "error", err)
		return TriggerOutcome{Message: err.Error()}
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return TriggerOutcome{Message: fmt.Sprintf("Unexpected response status code: %d", resp.StatusCode)}
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return TriggerOutcome{Message: "Queue location not found in response headers."}
	}
	log.Info("job accepted", "queue_location", location)

	build, ok := c.buildFromQueue(ctx, location)
	for attempt := 0; !ok && attempt < c.poll.LatestBuildAttempts; attempt++ {
		log.Info("job left the queue, retrying latest build number", "attempt", attempt+1)
		if err := sleep(ctx, c.poll.LatestBuildInterval); err != nil {
			return TriggerOutcome{Message: fmt.Sprintf("Interrupted while retrieving build number: %v", err)}
		}
		build, ok = c.latestBuild(ctx, t.Job)
	}

	if !ok {
		return TriggerOutcome{Message: "Failed to retrieve build number after retries."}
	}

	log.Info("job build resolved", "build", build)
	return TriggerOutcome{Succeeded: true, Message: "Job triggered successfully.", BuildNumber: build}
}

// buildFromQueue polls the queue item until it names an executable.
// A 404 means the item already left the queue and ends the loop at once.
func (c *HTTPClient) buildFromQueue(ctx context.Context, location string) (int, bool) {
	endpoint := queueAPI(location)

	for attempt := 0; attempt < c.poll.QueueAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.poll.QueueInterval); err != nil {
				return 0, false
			}
		}

		resp, err := c.do(ctx, http.MethodGet, endpoint)
		if err != nil {
			c.logger.Warn("queue poll failed", "location", location, "error", err)
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var item queueItem
			err := decodeBody(resp, &item)
			if err == nil && item.Executable != nil && item.Executable.Number > 0 {
				return item.Executable.Number, true
			}
		case http.StatusNotFound:
			resp.Body.Close()
			return 0, false
		default:
			resp.Body.Close()
		}
	}
	return 0, false
}

// latestBuild returns the most recent build number of a job.
func (c *HTTPClient) latestBuild(ctx context.Context, job string) (int, bool) {
	var info jobInfo
	if err := c.getJSON(ctx, jobPath(job)+"/api/json", &info); err != nil {
		c.logger.Warn("latest build lookup failed", "job", job, "error", err)
		return 0, false
	}
	if len(info.Builds) == 0 || info.Builds[0].Number <= 0 {
		return 0, false
	}
	return info.Builds[0].Number, true
}

// queueAPI turns a queue item location into its JSON API URL.
func queueAPI(location string) string {
	if strings.Contains(location, "/api/json") {
		return location
	}
	return strings.TrimRight(location, "/") + "/api/json"
}
