// Package action turns typed request/response functions into named,
// JSON-invocable actions. Requests are decoded and validated before the
// handler runs; handlers report their own failures inside the response.
package action

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownAction is returned when no action is registered under a name.
var ErrUnknownAction = errors.New("unknown action")

// Action is a named operation invoked with a JSON request.
type Action interface {
	Name() string
	Description() string
	// Validate decodes and validates input without running the action.
	Validate(input json.RawMessage) error
	// Invoke validates input and runs the action. The only errors it returns
	// are validation failures; everything else is reported in the response.
	Invoke(ctx context.Context, input json.RawMessage) (any, error)
}

// Validator is implemented by requests with constraints beyond their JSON shape.
type Validator interface {
	Validate() error
}

// Defaulter is implemented by requests with optional fields. Defaults are
// applied before decoding, so fields present in the input win.
type Defaulter interface {
	ApplyDefaults()
}

// HandlerFunc runs an action on an already validated request.
type HandlerFunc[Req, Resp any] func(ctx context.Context, req Req) Resp

type typed[Req, Resp any] struct {
	name        string
	description string
	handler     HandlerFunc[Req, Resp]
}

// New wraps a typed handler as an Action.
func New[Req, Resp any](name, description string, h HandlerFunc[Req, Resp]) Action {
	return &typed[Req, Resp]{name: name, description: description, handler: h}
}

// Alias exposes an existing action under another name and description.
func Alias(name, description string, target Action) Action {
	return &alias{Action: target, name: name, description: description}
}

func (a *typed[Req, Resp]) Name() string        { return a.name }
func (a *typed[Req, Resp]) Description() string { return a.description }

func (a *typed[Req, Resp]) Validate(input json.RawMessage) error {
	_, err := a.decode(input)
	return err
}

func (a *typed[Req, Resp]) Invoke(ctx context.Context, input json.RawMessage) (any, error) {
	req, err := a.decode(input)
	if err != nil {
		return nil, err
	}
	return a.handler(ctx, req), nil
}

func (a *typed[Req, Resp]) decode(input json.RawMessage) (Req, error) {
	var req Req
	if d, ok := any(&req).(Defaulter); ok {
		d.ApplyDefaults()
	}

	// Unknown fields are ignored so older clients keep working.
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, &req); err != nil {
			return req, Invalid(fmt.Errorf("decoding %s request: %w", a.name, err))
		}
	}

	if v, ok := any(&req).(Validator); ok {
		if err := v.Validate(); err != nil {
			return req, Invalid(err)
		}
	}
	return req, nil
}

type alias struct {
	Action
	name        string
	description string
}

func (a *alias) Name() string        { return a.name }
func (a *alias) Description() string { return a.description }
