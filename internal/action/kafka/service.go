// Package kafka exposes Kafka topic and consumer group queries as actions.
// Each query runs a Jenkins job wrapping the Kafka CLI tools and parses the
// text artifact the job archives; nothing here talks to a broker.
package kafka

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/kiranshivaraju/kafkaops/internal/action"
	"github.com/kiranshivaraju/kafkaops/internal/jenkins"
)

// Jenkins jobs backing the actions.
const (
	JobDescribeTopic         = "kafka_describe_topic"
	JobListTopics            = "kafka_list_topics"
	JobDescribeConsumerGroup = "kafka_describe_consumer_group"
	JobListConsumerGroups    = "kafka_list_consumer_groups"
)

// OutputArtifact is the file every Kafka job archives its tool output to.
const OutputArtifact = "output.txt"

// Service runs Kafka jobs through a Jenkins client.
type Service struct {
	jobs   jenkins.Client
	logger *slog.Logger
}

// NewService creates a new Service.
func NewService(jobs jenkins.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger.With("component", "kafka")}
}

// runJob triggers job, waits for it and returns its output artifact.
// Every failure comes back as an *action.Failure naming the stage. failHint
// is added to the message when the job itself reports failure.
func (s *Service) runJob(ctx context.Context, job string, params url.Values, failHint string) (string, error) {
	log := s.logger.With("job", job)

	out := s.jobs.Trigger(ctx, jenkins.JobTrigger{Job: job, Parameters: params})
	if !out.Succeeded {
		log.Error("trigger failed", "message", out.Message)
		return "", action.Fail(action.KindTransport, "triggering job "+job, errors.New(out.Message))
	}

	status := s.jobs.WaitForCompletion(ctx, job, out.BuildNumber)
	switch {
	case status.State == jenkins.StateAborted:
		log.Error("wait aborted", "build", out.BuildNumber, "message", status.Message)
		return "", action.Fail(action.KindTimeout, "waiting for job completion", errors.New(status.Message))
	case status.State != jenkins.StateSuccess:
		stage := "job did not succeed"
		if failHint != "" {
			stage += ": " + failHint
		}
		log.Warn("job did not succeed", "build", out.BuildNumber, "status", status.State)
		return "", action.Fail(action.KindRemoteJob, stage, errors.New(status.String()))
	}

	text, err := s.jobs.Artifact(ctx, job, out.BuildNumber, OutputArtifact)
	switch {
	case errors.Is(err, jenkins.ErrArtifactMissing):
		return "", action.Fail(action.KindArtifactMissing, "fetching artifact", err)
	case errors.Is(err, jenkins.ErrTimeout):
		return "", action.Fail(action.KindTimeout, "fetching artifact", err)
	case err != nil:
		return "", action.Fail(action.KindTransport, "fetching artifact", err)
	case text == "":
		return "", action.Fail(action.KindArtifactMissing, "no artifact response found", nil)
	}

	log.Info("job output fetched", "build", out.BuildNumber, "bytes", len(text))
	return text, nil
}
