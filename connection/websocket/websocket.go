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

// Package websocket implements a reconnecting websocket client connection.
// While a link is up the client keeps its account registered in the
// runtime and turns every inbound frame into an event with the event
// parsers visible to that account.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	gws "github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"dirpx.dev/capx"
	"dirpx.dev/capx/account"
	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
	"dirpx.dev/capx/config"
	"dirpx.dev/capx/connection"
	"dirpx.dev/capx/errors"
	"dirpx.dev/capx/event"
	"dirpx.dev/capx/log"
)

// DefaultDialAttempts is the number of dial attempts per reconnect round
// when the connection sets no MaxAttempts.
const DefaultDialAttempts = 5

// Handler receives every parsed event with the context it runs in.
type Handler func(ctx context.Context, ev event.Event, c *apis.Context)

// Option configures a Client.
type Option func(*Client)

// WithHandler sets the event handler.
func WithHandler(h Handler) Option {
	return func(c *Client) { c.handler = h }
}

// WithProtocol sets the protocol the account belongs to. It defaults to a
// protocol named after the connection's land.
func WithProtocol(p apis.Protocol) Option {
	return func(c *Client) { c.protocol = p }
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *gws.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithLogger sets the logger. It defaults to the runtime logger.
func WithLogger(l log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client is a websocket client connection for one account.
type Client struct {
	cfg      config.Connection
	rt       *capx.Runtime
	route    address.Address
	protocol apis.Protocol
	handler  Handler
	dialer   *gws.Dialer
	logger   log.Logger

	signal  *connection.Signal
	running atomic.Bool
	frames  atomic.Uint64

	mu     sync.Mutex
	conn   *gws.Conn
	cancel context.CancelFunc

	// writeMu serializes writers; gorilla connections allow one
	// concurrent writer.
	writeMu sync.Mutex
}

var _ connection.Connection = (*Client)(nil)

// New returns a Client for cfg. Nothing is dialed until Run.
func New(rt *capx.Runtime, cfg config.Connection, opts ...Option) (*Client, error) {
	if rt == nil {
		return nil, fmt.Errorf("%w: nil runtime", errors.ErrInvalidArgument)
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.NewConfigurationError("connection", cfg.Name,
			fmt.Errorf("%w: url is required", errors.ErrInvalidArgument))
	}
	route, err := cfg.Route()
	if err != nil {
		return nil, errors.NewConfigurationError("connection", cfg.Name, err)
	}
	if cfg.Name == "" {
		cfg.Name = cfg.URL
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = config.DefaultReconnectMin
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = max(config.DefaultReconnectMax, cfg.ReconnectMin)
	}

	c := &Client{
		cfg:    cfg,
		rt:     rt,
		route:  route,
		dialer: &gws.Dialer{HandshakeTimeout: 45 * time.Second, Proxy: http.ProxyFromEnvironment},
		signal: connection.NewSignal(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.protocol == nil {
		c.protocol = account.NewProtocol(cfg.Land, cfg.Land)
	}
	if c.logger == nil {
		c.logger = rt.Logger()
	}
	c.logger = c.logger.With("connection", cfg.Name)
	return c, nil
}

// Name returns the connection name.
func (c *Client) Name() string { return c.cfg.Name }

// Route returns the address of the connection's account.
func (c *Client) Route() address.Address { return c.route }

// State returns the current lifecycle state.
func (c *Client) State() connection.State { return c.signal.Load() }

// Wait blocks until the connection reaches want or ctx ends.
func (c *Client) Wait(ctx context.Context, want connection.State) error {
	return c.signal.Wait(ctx, want)
}

// Frames returns the number of frames received so far.
func (c *Client) Frames() uint64 { return c.frames.Load() }

// Run keeps the connection up until ctx ends or Close is called,
// reconnecting after every drop. It returns nil on a clean stop and the
// dial error when a connection with MaxAttempts set cannot be
// established.
func (c *Client) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: connection %s is already running", errors.ErrInvalidArgument, c.cfg.Name)
	}
	defer c.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()
	defer c.signal.Store(connection.Closed)

	for {
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Errorf("dial %s: %v", c.cfg.URL, err)
			if c.cfg.MaxAttempts > 0 {
				return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
			}
			if !sleep(ctx, c.cfg.ReconnectMax) {
				return nil
			}
			continue
		}

		c.serve(ctx, conn)
		if ctx.Err() != nil {
			c.logger.Info("websocket client exiting")
			return nil
		}
		c.logger.Warnf("connection closed by server, reconnecting in %s", c.cfg.ReconnectMin)
		if !sleep(ctx, c.cfg.ReconnectMin) {
			return nil
		}
		c.logger.Info("reconnecting")
	}
}

// Close stops Run and drops the current link.
func (c *Client) Close() error {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Send writes payload as one JSON text frame.
func (c *Client) Send(ctx context.Context, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(dl)
		defer func() { _ = conn.SetWriteDeadline(time.Time{}) }()
	}
	return conn.WriteJSON(payload)
}

// Receive yields the frames of the current link.
func (c *Client) Receive(ctx context.Context) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			yield(nil, errors.ErrConnectionClosed)
			return
		}

		for ctx.Err() == nil {
			_, data, err := conn.ReadMessage()
			if err != nil {
				yield(nil, err)
				return
			}
			c.frames.Inc()
			if !yield(json.RawMessage(data), nil) {
				return
			}
		}
	}
}

func (c *Client) dial(ctx context.Context) (*gws.Conn, error) {
	c.signal.Store(connection.Connecting)

	attempts := c.cfg.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultDialAttempts
	}

	var conn *gws.Conn
	retrier := retry.NewRetrier(attempts, c.cfg.ReconnectMin, c.cfg.ReconnectMax)
	err := retrier.RunContext(ctx, func(ctx context.Context) error {
		var (
			resp *http.Response
			err  error
		)
		conn, resp, err = c.dialer.DialContext(ctx, c.cfg.URL, c.header())
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil && resp != nil &&
			(resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return retry.Stop(fmt.Errorf("%w: %s", err, resp.Status))
		}
		return err
	})
	if err != nil {
		c.signal.Store(connection.Disconnected)
		return nil, err
	}
	return conn, nil
}

func (c *Client) header() http.Header {
	h := http.Header{}
	if c.cfg.Token != "" {
		h.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	return h
}

// serve runs one link until it drops or ctx ends.
func (c *Client) serve(ctx context.Context, conn *gws.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	base := account.NewBase(c.route, c.protocol)
	info, stored, err := c.rt.Accounts().Connect(account.Info{
		Route:    c.route,
		Account:  base,
		Protocol: c.protocol,
		Platform: c.cfg.Name,
	})
	if err != nil {
		c.logger.Errorf("register account %s: %v", c.route, err)
		_ = c.closeConn(conn)
		return
	}
	if b, ok := info.Account.(*account.Base); ok {
		b.SetAvailable(true)
	}
	c.signal.Store(connection.Connected)
	c.logger.Infof("websocket client connected to %s", c.cfg.URL)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return c.closeConn(conn)
	})
	g.Go(func() error {
		for raw, err := range c.Receive(gctx) {
			if err != nil {
				return err
			}
			c.dispatch(gctx, raw)
		}
		return nil
	})
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		c.logger.Debugf("link dropped: %v", err)
	}

	if b, ok := info.Account.(*account.Base); ok {
		b.SetAvailable(false)
	}
	if stored {
		c.rt.Accounts().Disconnect(c.route)
	}
	c.signal.Store(connection.Disconnected)
}

func (c *Client) closeConn(conn *gws.Conn) error {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = conn.WriteControl(gws.CloseMessage,
		gws.FormatCloseMessage(gws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	if err := conn.Close(); err != nil {
		c.logger.Debugf("close: %v", err)
	}
	return nil
}

type envelope struct {
	Type string `json:"type"`
}

// dispatch parses one frame and hands the event to the handler.
// Malformed frames and frames nobody can parse are dropped.
func (c *Client) dispatch(ctx context.Context, raw json.RawMessage) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Type == "" {
		c.logger.Warnf("drop malformed frame (%d bytes)", len(raw))
		return
	}
	logger := c.logger.With("event", env.Type)

	ac, err := c.rt.NewContext(c.route)
	if err != nil {
		logger.Warn(err.Error())
		return
	}
	ev, ec, err := event.Parse(ctx, ac, env.Type, raw)
	switch {
	case errors.IsNotFound(err):
		logger.Debug(err.Error())
		return
	case err != nil:
		logger.Error(err.Error())
		return
	}
	if c.handler != nil {
		c.handler(ctx, ev, ec)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
