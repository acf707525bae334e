// Package cloudhealth maps cloud locations to their health dashboards.
package cloudhealth

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kiranshivaraju/kafkaops/internal/action"
)

//go:embed links.yaml
var linksYAML []byte

// Environment groups cloud locations.
type Environment string

const (
	Production  Environment = "production"
	Development Environment = "development"
)

// Links is a dashboard table: environment -> location -> URL.
type Links map[Environment]map[string]string

// ParseLinks parses a dashboard table.
func ParseLinks(data []byte) (Links, error) {
	var links Links
	if err := yaml.Unmarshal(data, &links); err != nil {
		return nil, fmt.Errorf("parsing dashboard links: %w", err)
	}
	for env, locations := range links {
		if len(locations) == 0 {
			return nil, fmt.Errorf("environment %q has no locations", env)
		}
		for loc, link := range locations {
			if !strings.HasPrefix(link, "https://") {
				return nil, fmt.Errorf("location %s/%s: link must be https, got %q", env, loc, link)
			}
		}
	}
	return links, nil
}

var dashboards = mustParse(linksYAML)

func mustParse(data []byte) Links {
	links, err := ParseLinks(data)
	if err != nil {
		panic(err)
	}
	return links
}

// Locations returns the sorted location codes of an environment.
func Locations(env Environment) []string {
	locs := make([]string, 0, len(dashboards[env]))
	for loc := range dashboards[env] {
		locs = append(locs, loc)
	}
	sort.Strings(locs)
	return locs
}

// Lookup returns the dashboard of a location. The bool is false for
// locations not listed under env.
func Lookup(env Environment, location string) (string, bool) {
	link, ok := dashboards[env][location]
	return link, ok
}

func validate(env Environment, location string) error {
	if _, ok := Lookup(env, location); !ok {
		return fmt.Errorf("cloud_location %q is not a %s cloud; expected one of %s",
			location, env, strings.Join(Locations(env), ", "))
	}
	return nil
}

// ProductionRequest selects a production cloud.
type ProductionRequest struct {
	CloudLocation string `json:"cloud_location"`
}

func (r *ProductionRequest) Validate() error { return validate(Production, r.CloudLocation) }

// DevelopmentRequest selects a development cloud.
type DevelopmentRequest struct {
	CloudLocation string `json:"cloud_location"`
}

func (r *DevelopmentRequest) Validate() error { return validate(Development, r.CloudLocation) }

// Response carries the dashboard URL.
type Response struct {
	CloudLink string `json:"cloud_link"`
}

// Actions returns production_cloud_health and development_cloud_health.
func Actions() []action.Action {
	return []action.Action{
		action.New("production_cloud_health",
			fmt.Sprintf("Health dashboard link for a production cloud (%s).", strings.Join(Locations(Production), ", ")),
			func(_ context.Context, req ProductionRequest) Response {
				link, _ := Lookup(Production, req.CloudLocation)
				return Response{CloudLink: link}
			}),
		action.New("development_cloud_health",
			fmt.Sprintf("Health dashboard link for a development cloud (%s).", strings.Join(Locations(Development), ", ")),
			func(_ context.Context, req DevelopmentRequest) Response {
				link, _ := Lookup(Development, req.CloudLocation)
				return Response{CloudLink: link}
			}),
	}
}
