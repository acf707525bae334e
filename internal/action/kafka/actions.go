package kafka

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/kiranshivaraju/kafkaops/internal/action"
	"github.com/kiranshivaraju/kafkaops/pkg/kafkatext"
)

// matchAll is the listing pattern used when none is given.
const matchAll = "."

// TopicRequest names one topic by exact match.
type TopicRequest struct {
	TopicName string `json:"topic_name"`
}

func (r *TopicRequest) Validate() error {
	if strings.TrimSpace(r.TopicName) == "" {
		return errors.New("topic_name is required")
	}
	return nil
}

// ListTopicsRequest filters topics by a partial-match pattern.
type ListTopicsRequest struct {
	TopicName string `json:"topic_name"`
}

func (r *ListTopicsRequest) ApplyDefaults() { r.TopicName = matchAll }

// ConsumerGroupRequest names one consumer group by exact match.
type ConsumerGroupRequest struct {
	ConsumerGroupName string `json:"consumer_group_name"`
}

func (r *ConsumerGroupRequest) Validate() error {
	if strings.TrimSpace(r.ConsumerGroupName) == "" {
		return errors.New("consumer_group_name is required")
	}
	return nil
}

// ListConsumerGroupsRequest filters consumer groups by a partial-match pattern.
type ListConsumerGroupsRequest struct {
	ConsumerGroupName string `json:"consumer_group_name"`
}

func (r *ListConsumerGroupsRequest) ApplyDefaults() { r.ConsumerGroupName = matchAll }

type DescribeTopicResponse struct {
	Artifact string `json:"artifact"`
	action.Outcome
}

type ListTopicsResponse struct {
	Topics     string   `json:"topics"`
	TopicNames []string `json:"topic_names"`
	action.Outcome
}

type DescribeConsumerGroupResponse struct {
	Artifact string `json:"artifact"`
	action.Outcome
}

type ListConsumerGroupsResponse struct {
	ConsumerGroups []string `json:"consumer_groups"`
	action.Outcome
}

type ConsumerGroupLagResponse struct {
	Lag []kafkatext.TopicLag `json:"lag"`
	action.Outcome
}

// Actions returns every Kafka action, including the describe-topic aliases.
func (s *Service) Actions() []action.Action {
	describeTopic := action.New("describe_kafka_topic",
		"Describe a Kafka topic (partitions, replication factor, leaders, replicas, config). Requires the exact topic name; use list_kafka_topics for partial matches.",
		s.DescribeTopic)

	return []action.Action{
		describeTopic,
		action.Alias("number_of_partitions_in_kafka_topic", "Number of partitions of a Kafka topic (topic description).", describeTopic),
		action.Alias("replication_factor_of_kafka_topic", "Replication factor of a Kafka topic (topic description).", describeTopic),
		action.Alias("leader_and_replicas_for_kafka_topic", "Leader and replicas of a Kafka topic (topic description).", describeTopic),
		action.New("list_kafka_topics",
			"List Kafka topics matching a partial name; '.' matches all topics.",
			s.ListTopics),
		action.New("describe_kafka_consumer_group",
			"Describe a Kafka consumer group (partitions, offsets, lag, consumer IDs, hosts, client IDs). Requires the exact group name.",
			s.DescribeConsumerGroup),
		action.New("list_kafka_consumer_groups",
			"List Kafka consumer groups matching a partial name; '.' matches all groups.",
			s.ListConsumerGroups),
		action.New("get_lag_of_kafka_consumer_group",
			"Per-topic lag of a Kafka consumer group. Requires the exact group name.",
			s.ConsumerGroupLag),
	}
}

// DescribeTopic returns the raw kafka-topics --describe output for a topic.
func (s *Service) DescribeTopic(ctx context.Context, req TopicRequest) DescribeTopicResponse {
	text, err := s.runJob(ctx, JobDescribeTopic, url.Values{"topic_name": {req.TopicName}},
		"possibly no match for your topic")
	if err != nil {
		return DescribeTopicResponse{Outcome: action.Failed(err)}
	}
	return DescribeTopicResponse{
		Artifact: text,
		Outcome:  action.Succeeded("described topic %s", req.TopicName),
	}
}

// ListTopics returns the topics matching a pattern, raw and split into names.
func (s *Service) ListTopics(ctx context.Context, req ListTopicsRequest) ListTopicsResponse {
	pattern := orMatchAll(req.TopicName)
	text, err := s.runJob(ctx, JobListTopics, url.Values{"regex": {pattern}},
		"no matching topics found")
	if err != nil {
		return ListTopicsResponse{TopicNames: []string{}, Outcome: action.Failed(err)}
	}
	return ListTopicsResponse{
		Topics:     text,
		TopicNames: kafkatext.SplitLines(text),
		Outcome:    action.Succeeded("listed topics matching %q", pattern),
	}
}

// DescribeConsumerGroup returns the raw kafka-consumer-groups --describe output.
func (s *Service) DescribeConsumerGroup(ctx context.Context, req ConsumerGroupRequest) DescribeConsumerGroupResponse {
	text, err := s.runJob(ctx, JobDescribeConsumerGroup, url.Values{"group_name": {req.ConsumerGroupName}}, "")
	if err != nil {
		return DescribeConsumerGroupResponse{Outcome: action.Failed(err)}
	}
	return DescribeConsumerGroupResponse{
		Artifact: text,
		Outcome:  action.Succeeded("described consumer group %s", req.ConsumerGroupName),
	}
}

// ListConsumerGroups returns the consumer groups matching a pattern.
func (s *Service) ListConsumerGroups(ctx context.Context, req ListConsumerGroupsRequest) ListConsumerGroupsResponse {
	pattern := orMatchAll(req.ConsumerGroupName)
	text, err := s.runJob(ctx, JobListConsumerGroups, url.Values{"regex": {pattern}}, "")
	if err != nil {
		return ListConsumerGroupsResponse{ConsumerGroups: []string{}, Outcome: action.Failed(err)}
	}
	return ListConsumerGroupsResponse{
		ConsumerGroups: kafkatext.SplitLines(text),
		Outcome:        action.Succeeded("listed consumer groups matching %q", pattern),
	}
}

// ConsumerGroupLag reads per-topic lag from the consumer group description.
// It reuses the describe job: the lag is a column of the same table.
func (s *Service) ConsumerGroupLag(ctx context.Context, req ConsumerGroupRequest) ConsumerGroupLagResponse {
	text, err := s.runJob(ctx, JobDescribeConsumerGroup, url.Values{"group_name": {req.ConsumerGroupName}}, "")
	if err != nil {
		return ConsumerGroupLagResponse{Lag: []kafkatext.TopicLag{}, Outcome: action.Failed(err)}
	}

	lags, err := kafkatext.ExtractLagTable(text)
	if err != nil {
		// Bad rows are skipped; the rest of the table is still reported.
		s.logger.Warn("skipped unparsable lag rows",
			"consumer_group", req.ConsumerGroupName,
			"kind", action.KindParse,
			"error", err)
	}

	return ConsumerGroupLagResponse{
		Lag:     lags,
		Outcome: action.Succeeded("Successfully retrieved lag of consumer group %s", req.ConsumerGroupName),
	}
}

func orMatchAll(pattern string) string {
	if strings.TrimSpace(pattern) == "" {
		return matchAll
	}
	return pattern
}
