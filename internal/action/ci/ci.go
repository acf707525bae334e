// Package ci exposes the Jenkins job client directly as actions, for jobs
// that have no dedicated domain action.
package ci

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/kiranshivaraju/kafkaops/internal/action"
	"github.com/kiranshivaraju/kafkaops/internal/jenkins"
)

// Service runs CI actions through a Jenkins client.
type Service struct {
	jobs   jenkins.Client
	logger *slog.Logger
}

// NewService creates a new Service.
func NewService(jobs jenkins.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger.With("component", "ci")}
}

// TriggerJobRequest starts a job. Parameters is a URL query string such as
// "topic_name=orders&regex=."; a leading "?" is accepted.
type TriggerJobRequest struct {
	JobName    string `json:"job_name"`
	Parameters string `json:"parameters"`
}

func (r *TriggerJobRequest) Validate() error {
	if err := requireJob(r.JobName); err != nil {
		return err
	}
	if _, err := r.query(); err != nil {
		return fmt.Errorf("parameters: %w", err)
	}
	return nil
}

func (r *TriggerJobRequest) query() (url.Values, error) {
	return url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(r.Parameters), "?"))
}

// JobStatusRequest asks for one build's status; zero means the last build.
type JobStatusRequest struct {
	JobName     string `json:"job_name"`
	BuildNumber int    `json:"build_number"`
}

func (r *JobStatusRequest) Validate() error {
	if err := requireJob(r.JobName); err != nil {
		return err
	}
	if r.BuildNumber < 0 {
		return errors.New("build_number must not be negative")
	}
	return nil
}

// BuildRequest names one build of a job.
type BuildRequest struct {
	JobName     string `json:"job_name"`
	BuildNumber int    `json:"build_number"`
}

func (r *BuildRequest) Validate() error {
	if err := requireJob(r.JobName); err != nil {
		return err
	}
	return requireBuild(r.BuildNumber)
}

// ArtifactRequest names one archived file of a build.
type ArtifactRequest struct {
	JobName      string `json:"job_name"`
	BuildNumber  int    `json:"build_number"`
	ArtifactPath string `json:"artifact_path"`
}

func (r *ArtifactRequest) Validate() error {
	if err := requireJob(r.JobName); err != nil {
		return err
	}
	if err := requireBuild(r.BuildNumber); err != nil {
		return err
	}
	if strings.TrimSpace(r.ArtifactPath) == "" {
		return errors.New("artifact_path is required")
	}
	return nil
}

type ConsoleLogsResponse struct {
	ConsoleLogs string `json:"console_logs"`
	action.Outcome
}

type ArtifactResponse struct {
	Artifact string `json:"artifact"`
	action.Outcome
}

func requireJob(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("job_name is required")
	}
	return nil
}

func requireBuild(n int) error {
	if n <= 0 {
		return errors.New("build_number must be positive")
	}
	return nil
}

// Actions returns the generic CI actions.
func (s *Service) Actions() []action.Action {
	return []action.Action{
		action.New("trigger_job",
			"Trigger a Jenkins job with optional query-string parameters and return its build number.",
			s.TriggerJob),
		action.New("get_job_status",
			"Status of a Jenkins build; the last build when build_number is omitted.",
			s.JobStatus),
		action.New("wait_for_job_completion",
			"Wait for a Jenkins build to finish and return its status with console logs.",
			s.WaitForJobCompletion),
		action.New("get_build_console_logs",
			"Console output of a Jenkins build.",
			s.ConsoleLogs),
		action.New("get_artifact",
			"Contents of a file archived by a Jenkins build.",
			s.Artifact),
	}
}

func (s *Service) TriggerJob(ctx context.Context, req TriggerJobRequest) jenkins.TriggerOutcome {
	params, _ := req.query()
	s.logger.Info("triggering job", "job", req.JobName, "parameters", len(params))
	return s.jobs.Trigger(ctx, jenkins.JobTrigger{Job: req.JobName, Parameters: params})
}

func (s *Service) JobStatus(ctx context.Context, req JobStatusRequest) jenkins.JobStatus {
	return s.jobs.Status(ctx, req.JobName, req.BuildNumber)
}

func (s *Service) WaitForJobCompletion(ctx context.Context, req BuildRequest) jenkins.JobStatus {
	return s.jobs.WaitForCompletion(ctx, req.JobName, req.BuildNumber)
}

func (s *Service) ConsoleLogs(ctx context.Context, req BuildRequest) ConsoleLogsResponse {
	text, err := s.jobs.ConsoleText(ctx, req.JobName, req.BuildNumber)
	if err != nil {
		s.logger.Error("console logs failed", "job", req.JobName, "build", req.BuildNumber, "error", err)
		return ConsoleLogsResponse{Outcome: action.Failed(action.Fail(kindOf(err), "fetching console logs", err))}
	}
	return ConsoleLogsResponse{
		ConsoleLogs: text,
		Outcome:     action.Succeeded("console logs of %s #%d", req.JobName, req.BuildNumber),
	}
}

func (s *Service) Artifact(ctx context.Context, req ArtifactRequest) ArtifactResponse {
	text, err := s.jobs.Artifact(ctx, req.JobName, req.BuildNumber, req.ArtifactPath)
	if err != nil {
		s.logger.Error("artifact failed", "job", req.JobName, "build", req.BuildNumber, "path", req.ArtifactPath, "error", err)
		return ArtifactResponse{Outcome: action.Failed(action.Fail(kindOf(err), "fetching artifact", err))}
	}
	return ArtifactResponse{
		Artifact: text,
		Outcome:  action.Succeeded("artifact %s of %s #%d", req.ArtifactPath, req.JobName, req.BuildNumber),
	}
}

func kindOf(err error) action.FailureKind {
	switch {
	case errors.Is(err, jenkins.ErrArtifactMissing):
		return action.KindArtifactMissing
	case errors.Is(err, jenkins.ErrTimeout):
		return action.KindTimeout
	default:
		return action.KindTransport
	}
}
