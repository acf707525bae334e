package jenkins

import (
	"context"
	"errors"
	"fmt"
)

// Artifact fetches an archived file of a build. It makes a single attempt.
// A 404 is reported as ErrArtifactMissing; an empty body is returned as-is
// and left for the caller to judge.
func (c *HTTPClient) Artifact(ctx context.Context, job string, build int, path string) (string, error) {
	c.logger.Info("fetching artifact", "job", job, "build", build, "path", path)

	body, err := c.getText(ctx, artifactPath(job, build, path))
	if errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrArtifactMissing, err)
	}
	if err != nil {
		return "", err
	}
	return body, nil
}
