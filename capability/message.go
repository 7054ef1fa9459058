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

// Package capability defines the standard capabilities shared by every
// adapter: sending, revoking and editing messages, naming entities and
// pulling profile metadata.
package capability

import (
	"context"
	"time"

	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/fn"
)

// Element is one opaque piece of message content. Adapters translate
// elements with serializers registered as artifacts.
type Element any

// Chain is message content.
type Chain []Element

// Text is the plain-text element.
type Text struct {
	Text string
}

// Message is a message as seen by the application.
type Message struct {
	// Address is the message address, e.g. land(qq).group(7).message(99).
	Address address.Address
	// Scene is where the message was posted.
	Scene address.Address
	// Sender is the author of the message.
	Sender address.Address
	// Content is the message content.
	Content Chain
	// Reply is the address of the message replied to, if any.
	Reply address.Address
	// Time is when the message was posted.
	Time time.Time
}

// SendRequest is the argument of MessageSend.
type SendRequest struct {
	Content Chain
	Reply   address.Address
}

// None is the result of capabilities returning nothing.
type None = struct{}

var (
	// MessageSend posts content to a scene and returns the message address.
	MessageSend = fn.NewTarget[SendRequest, address.Address]("message.send")
	// MessageRevoke withdraws the target message.
	MessageRevoke = fn.NewTarget[None, None]("message.revoke")
	// MessageEdit replaces the content of the target message.
	MessageEdit = fn.NewTarget[Chain, None]("message.edit")
)

// Send posts content to target, optionally as a reply.
func Send(ctx context.Context, c *apis.Context, target address.Address, content Chain, reply address.Address) (address.Address, error) {
	return MessageSend.Call(ctx, c, target, SendRequest{Content: content, Reply: reply})
}

// Revoke withdraws message.
func Revoke(ctx context.Context, c *apis.Context, message address.Address) error {
	_, err := MessageRevoke.Call(ctx, c, message, None{})
	return err
}

// Edit replaces the content of message.
func Edit(ctx context.Context, c *apis.Context, message address.Address, content Chain) error {
	_, err := MessageEdit.Call(ctx, c, message, content)
	return err
}
