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

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"dirpx.dev/capx/address"
	"dirpx.dev/capx/apis"
)

// File is the content of a capx TOML configuration file.
//
//	strict_duplicates = true
//	axes = ["planet"]
//	log_level = "debug"
//
//	[[connection]]
//	name = "onebot"
//	url = "ws://127.0.0.1:8080/ws"
//	land = "qq"
//	account = "10001"
//	reconnect_min = "500ms"
type File struct {
	Config      apis.Config
	Connections []Connection
}

// Connection describes one websocket connection of an adapter.
type Connection struct {
	Name         string
	URL          string
	Land         string
	Account      string
	Token        string
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	MaxAttempts  int
}

// Route returns the account address of the connection.
func (c Connection) Route() (address.Address, error) {
	return address.New(address.Seg(address.Land, c.Land), address.Seg(address.Account, c.Account))
}

const (
	// DefaultReconnectMin is the first reconnect delay.
	DefaultReconnectMin = 500 * time.Millisecond
	// DefaultReconnectMax caps the reconnect delay.
	DefaultReconnectMax = 30 * time.Second
)

type fileConfig struct {
	StrictDuplicates bool             `toml:"strict_duplicates"`
	Axes             []string         `toml:"axes"`
	MaxUnwrap        int              `toml:"max_unwrap"`
	DisableReflect   bool             `toml:"disable_reflect"`
	LogLevel         string           `toml:"log_level"`
	Connections      []fileConnection `toml:"connection"`
}

type fileConnection struct {
	Name         string `toml:"name"`
	URL          string `toml:"url"`
	Land         string `toml:"land"`
	Account      string `toml:"account"`
	Token        string `toml:"token"`
	ReconnectMin string `toml:"reconnect_min"`
	ReconnectMax string `toml:"reconnect_max"`
	MaxAttempts  int    `toml:"max_attempts"`
}

// Load reads path and overlays the keys it defines on DefaultConfig.
func Load(path string) (File, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return File{}, fmt.Errorf("load capx config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return File{}, fmt.Errorf("load capx config: unknown key %q", undecoded[0].String())
	}

	cfg := DefaultConfig()
	if meta.IsDefined("strict_duplicates") {
		cfg.StrictDuplicates = raw.StrictDuplicates
	}
	if meta.IsDefined("axes") {
		axes := make([]address.Axis, 0, len(raw.Axes))
		for _, a := range raw.Axes {
			axes = append(axes, address.Axis(strings.TrimSpace(a)))
		}
		WithAxes(axes...)(&cfg)
	}
	if meta.IsDefined("max_unwrap") {
		cfg.MaxUnwrap = raw.MaxUnwrap
	}
	if meta.IsDefined("disable_reflect") {
		cfg.DisableReflect = raw.DisableReflect
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if err := Validate(cfg); err != nil {
		return File{}, err
	}

	out := File{Config: cfg}
	for i, rc := range raw.Connections {
		c, err := connection(rc)
		if err != nil {
			return File{}, fmt.Errorf("connection %d: %w", i, err)
		}
		out.Connections = append(out.Connections, c)
	}
	return out, nil
}

func connection(rc fileConnection) (Connection, error) {
	c := Connection{
		Name:         strings.TrimSpace(rc.Name),
		URL:          strings.TrimSpace(rc.URL),
		Land:         strings.TrimSpace(rc.Land),
		Account:      strings.TrimSpace(rc.Account),
		Token:        rc.Token,
		ReconnectMin: DefaultReconnectMin,
		ReconnectMax: DefaultReconnectMax,
		MaxAttempts:  rc.MaxAttempts,
	}
	if c.URL == "" {
		return Connection{}, fmt.Errorf("url is required")
	}
	if c.Name == "" {
		c.Name = c.URL
	}
	if _, err := c.Route(); err != nil {
		return Connection{}, fmt.Errorf("route: %w", err)
	}
	if rc.ReconnectMin != "" {
		d, err := time.ParseDuration(strings.TrimSpace(rc.ReconnectMin))
		if err != nil {
			return Connection{}, fmt.Errorf("parse reconnect_min: %w", err)
		}
		c.ReconnectMin = d
	}
	if rc.ReconnectMax != "" {
		d, err := time.ParseDuration(strings.TrimSpace(rc.ReconnectMax))
		if err != nil {
			return Connection{}, fmt.Errorf("parse reconnect_max: %w", err)
		}
		c.ReconnectMax = d
	}
	if c.ReconnectMax < c.ReconnectMin {
		c.ReconnectMax = c.ReconnectMin
	}
	return c, nil
}
