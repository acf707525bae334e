// Package kafkatext parses the text artifacts produced by the Kafka CLI jobs.
// All functions are pure and safe for concurrent use.
package kafkatext

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// HeaderMarker is the first column title of the kafka-consumer-groups
// --describe table. Everything before it is tool preamble.
const HeaderMarker = "GROUP"

// Column positions in a kafka-consumer-groups --describe row:
// GROUP TOPIC PARTITION CURRENT-OFFSET LOG-END-OFFSET LAG CONSUMER-ID HOST CLIENT-ID
const (
	topicColumn = 1
	lagColumn   = 5
	minColumns  = 7
)

// TopicLag is the lag of one consumer group partition row.
type TopicLag struct {
	Topic string `json:"topic"`
	Lag   int    `json:"lag"`
}

// LineError reports a table row that could not be parsed.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// SplitLines splits raw listing output on CRLF. Entries are not trimmed,
// deduplicated, or filtered, so an empty input yields a single empty entry.
func SplitLines(text string) []string {
	return strings.Split(text, "\r\n")
}

// TrimToHeader drops everything before the first HeaderMarker.
// Text without the marker is returned unchanged.
func TrimToHeader(text string) string {
	if i := strings.Index(text, HeaderMarker); i >= 0 {
		return text[i:]
	}
	return text
}

// ExtractLagTable reads topic/lag pairs from a consumer group description.
//
// The preamble before the header is discarded, the text is split on CR and
// the header row is skipped. Rows with fewer than seven columns are dropped
// silently. Rows whose lag column is not an integer are skipped and reported
// in the returned error; rows parsed before and after them are still returned.
func ExtractLagTable(text string) ([]TopicLag, error) {
	lines := strings.Split(strings.TrimSpace(TrimToHeader(text)), "\r")

	lags := []TopicLag{}
	var errs []error
	for i, line := range lines {
		if i == 0 {
			continue
		}
		columns := strings.Fields(line)
		if len(columns) < minColumns {
			continue
		}
		lag, err := strconv.Atoi(columns[lagColumn])
		if err != nil {
			errs = append(errs, &LineError{Line: i, Text: strings.TrimSpace(line), Err: err})
			continue
		}
		lags = append(lags, TopicLag{Topic: columns[topicColumn], Lag: lag})
	}

	return lags, errors.Join(errs...)
}
