/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package event defines the standard events and the event-parser
// artifacts adapters register to turn raw protocol frames into them.
package event

import (
	"context"
	"encoding/json"
	"fmt"

	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/capability"
	"dirpx.dev/capx/collector"
	"dirpx.dev/capx/errors"
	"dirpx.dev/capx/signature"
)

// Event is a parsed protocol event.
type Event interface {
	EventName() string
}

// AccountAvailable is raised when an account comes online.
type AccountAvailable struct {
	Account address.Address
}

// AccountUnavailable is raised when an account goes offline.
type AccountUnavailable struct {
	Account address.Address
}

// MessageReceived is raised for every inbound message.
type MessageReceived struct {
	Message capability.Message
}

// MessageSent is raised when an account of this process sent a message.
type MessageSent struct {
	Message capability.Message
	Account address.Address
}

// MessageEdited is raised when a message content changes.
type MessageEdited struct {
	Message  capability.Message
	Operator address.Address
	Past     capability.Chain
	Current  capability.Chain
}

// MessageRevoked is raised when a message is withdrawn.
type MessageRevoked struct {
	Message  address.Address
	Operator address.Address
	Sender   address.Address
}

// EventName returns "account.available".
func (AccountAvailable) EventName() string { return "account.available" }

// EventName returns "account.unavailable".
func (AccountUnavailable) EventName() string { return "account.unavailable" }

// EventName returns "message.received".
func (MessageReceived) EventName() string { return "message.received" }

// EventName returns "message.sent".
func (MessageSent) EventName() string { return "message.sent" }

// EventName returns "message.edited".
func (MessageEdited) EventName() string { return "message.edited" }

// EventName returns "message.revoked".
func (MessageRevoked) EventName() string { return "message.revoked" }

// ParseKind is the artifact kind of event parsers.
const ParseKind = "event.parse"

// Parser turns one raw frame into an event. It may return a context
// narrowed to the event scene; a nil context keeps the connection's.
type Parser func(ctx context.Context, c *apis.Context, raw json.RawMessage) (Event, *apis.Context, error)

// ParserKey returns the artifact key of the parser of eventType.
func ParserKey(eventType string) signature.ArtifactKey {
	return signature.ArtifactKey{Kind: ParseKind, Name: eventType}
}

// CollectParser registers parse for each of eventTypes on col.
func CollectParser(col *collector.Collector, parse Parser, eventTypes ...string) error {
	if parse == nil {
		return errors.NewConfigurationError("register", col.Name(), errors.ErrNilImplementation)
	}
	if len(eventTypes) == 0 {
		return errors.NewConfigurationError("register", col.Name(),
			fmt.Errorf("%w: parser without event types", errors.ErrInvalidArgument))
	}
	for _, t := range eventTypes {
		if err := col.RegisterArtifact(ParserKey(t), parse); err != nil {
			return err
		}
	}
	return nil
}

// Parse finds the parser of eventType visible to c and runs it.
// A missing parser is a not-found error naming the event type.
func Parse(ctx context.Context, c *apis.Context, eventType string, raw json.RawMessage) (Event, *apis.Context, error) {
	a, ok := c.Artifact(ParserKey(eventType))
	if !ok {
		return nil, nil, &errors.NotFoundError{Capability: ParseKind, Subject: eventType, Address: c.Land().String()}
	}
	parse, ok := a.(Parser)
	if !ok {
		return nil, nil, fmt.Errorf("%w: artifact %s is %T", errors.ErrInvalidArgument, ParserKey(eventType), a)
	}
	ev, ec, err := parse(ctx, c, raw)
	if err != nil {
		return nil, nil, err
	}
	if ec == nil {
		ec = c
	}
	return ev, ec, nil
}
