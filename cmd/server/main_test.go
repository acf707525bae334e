package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/kafkaops/internal/action"
	"github.com/kiranshivaraju/kafkaops/internal/jenkins"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── mock dependencies ──────────────────────────────────────────────────────

type testPinger struct {
	err error
}

func (p *testPinger) Ping(_ context.Context) error { return p.err }

type nopJenkins struct{}

func (nopJenkins) Trigger(_ context.Context, _ jenkins.JobTrigger) jenkins.TriggerOutcome {
	return jenkins.TriggerOutcome{}
}
func (nopJenkins) Status(_ context.Context, _ string, _ int) jenkins.JobStatus {
	return jenkins.JobStatus{}
}
func (nopJenkins) WaitForCompletion(_ context.Context, _ string, _ int) jenkins.JobStatus {
	return jenkins.JobStatus{}
}
func (nopJenkins) ConsoleText(_ context.Context, _ string, _ int) (string, error) { return "", nil }
func (nopJenkins) Artifact(_ context.Context, _ string, _ int, _ string) (string, error) {
	return "", nil
}
func (nopJenkins) Ping(_ context.Context) error { return nil }

var _ jenkins.Client = nopJenkins{}

// ─── health handler tests ───────────────────────────────────────────────────

func serveHealth(t *testing.T, db, c, jobs error) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	h := healthHandler(&testPinger{err: db}, &testPinger{err: c}, &testPinger{err: jobs})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHealthHandler_AllOK(t *testing.T) {
	w, body := serveHealth(t, nil, nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
	services := data["services"].(map[string]any)
	assert.Equal(t, "ok", services["database"])
	assert.Equal(t, "ok", services["cache"])
	assert.Equal(t, "ok", services["jenkins"])
}

func TestHealthHandler_Degraded(t *testing.T) {
	down := errors.New("down")

	tests := []struct {
		name         string
		db, c, jobs  error
		wantDegraded string
	}{
		{"database", down, nil, nil, "database"},
		{"cache", nil, down, nil, "cache"},
		{"jenkins", nil, nil, down, "jenkins"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := serveHealth(t, tt.db, tt.c, tt.jobs)

			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			errObj := body["error"].(map[string]any)
			assert.Equal(t, "DEGRADED", errObj["code"])
			details := errObj["details"].(map[string]any)
			assert.Equal(t, "degraded", details[tt.wantDegraded])
		})
	}
}

// ─── registry ───────────────────────────────────────────────────────────────

func TestNewRegistry_RegistersCatalogue(t *testing.T) {
	registry, err := newRegistry(nopJenkins{}, nil)
	require.NoError(t, err)

	for _, name := range []string{
		"describe_kafka_topic",
		"number_of_partitions_in_kafka_topic",
		"replication_factor_of_kafka_topic",
		"leader_and_replicas_for_kafka_topic",
		"list_kafka_topics",
		"describe_kafka_consumer_group",
		"list_kafka_consumer_groups",
		"get_lag_of_kafka_consumer_group",
		"production_cloud_health",
		"development_cloud_health",
		"trigger_job",
		"get_job_status",
		"wait_for_job_completion",
		"get_build_console_logs",
		"get_artifact",
	} {
		_, err := registry.Get(name)
		assert.NoError(t, err, name)
	}
	assert.Len(t, registry.List(), 15)

	_, err = registry.Get("missing")
	assert.ErrorIs(t, err, action.ErrUnknownAction)
}

// ─── run() config validation tests ──────────────────────────────────────────

func TestRun_FailsOnMissingConfig(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "REDIS_URL", "JENKINS_URL"} {
		t.Setenv(key, "")
	}

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRun_FailsOnInvalidDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "not-a-valid-url")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("JENKINS_URL", "http://localhost:8081")
	t.Setenv("LOG_FILE", "")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect database")
}

// ─── shutdown timeout constant test ─────────────────────────────────────────

func TestShutdownTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, shutdownTimeout)
}
