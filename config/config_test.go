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

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/capx/address"
	"dirpx.dev/capx/config"
	"dirpx.dev/capx/errors"
)

func TestDefaultConfigValues(t *testing.T) {
	got := config.DefaultConfig()
	assert.Equal(t, config.DefaultStrictDuplicates, got.StrictDuplicates)
	assert.Equal(t, config.DefaultMaxUnwrap, got.MaxUnwrap)
	assert.Equal(t, config.DefaultLogLevel, got.LogLevel)
	assert.Empty(t, got.Axes)
	assert.False(t, got.DisableReflect)
	assert.NoError(t, config.Validate(got))
}

func TestNewConfigNoOptionsEqualsDefault(t *testing.T) {
	assert.Equal(t, config.DefaultConfig(), config.NewConfig())
}

func TestOptions(t *testing.T) {
	c := config.NewConfig(
		config.WithStrictDuplicates(true),
		config.WithAxes("planet", "moon", "planet"),
		config.WithMaxUnwrap(3),
		config.WithDisableReflect(true),
		config.WithLogLevel("debug"),
	)
	assert.True(t, c.StrictDuplicates)
	assert.Equal(t, []address.Axis{"planet", "moon"}, c.Axes)
	assert.Equal(t, 3, c.MaxUnwrap)
	assert.True(t, c.DisableReflect)
	assert.Equal(t, "debug", c.LogLevel)
	assert.True(t, c.Vocabulary().Has("moon"))
	assert.True(t, c.Vocabulary().Has(address.Land))

	assert.Equal(t, config.DefaultMaxUnwrap, config.NewConfig(config.WithMaxUnwrap(-1)).MaxUnwrap)
	assert.Equal(t, config.DefaultMaxUnwrap, config.NewConfig(config.WithMaxUnwrap(0)).MaxUnwrap)
}

func TestValidate(t *testing.T) {
	c := config.NewConfig(config.WithAxes("bad axis(", ""), config.WithLogLevel("loud"))
	err := config.Validate(c)
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "bad axis(")
	assert.Contains(t, err.Error(), "loud")
}

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capx.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := write(t, `
strict_duplicates = true
axes = ["planet"]
log_level = "warn"

[[connection]]
name = "onebot"
url = "ws://127.0.0.1:8080/ws"
land = "qq"
account = "10001"
reconnect_min = "100ms"
reconnect_max = "2s"
max_attempts = 5

[[connection]]
url = "ws://127.0.0.1:8081/ws"
land = "tg"
account = "bot"
`)

	f, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, f.Config.StrictDuplicates)
	assert.Equal(t, []address.Axis{"planet"}, f.Config.Axes)
	assert.Equal(t, "warn", f.Config.LogLevel)
	// keys left out keep their defaults
	assert.Equal(t, config.DefaultMaxUnwrap, f.Config.MaxUnwrap)

	require.Len(t, f.Connections, 2)
	first := f.Connections[0]
	assert.Equal(t, "onebot", first.Name)
	assert.Equal(t, 100*time.Millisecond, first.ReconnectMin)
	assert.Equal(t, 2*time.Second, first.ReconnectMax)
	assert.Equal(t, 5, first.MaxAttempts)
	route, err := first.Route()
	require.NoError(t, err)
	assert.Equal(t, "land(qq).account(10001)", route.String())

	second := f.Connections[1]
	assert.Equal(t, "ws://127.0.0.1:8081/ws", second.Name)
	assert.Equal(t, config.DefaultReconnectMin, second.ReconnectMin)
	assert.Equal(t, config.DefaultReconnectMax, second.ReconnectMax)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key":      `colour = "blue"`,
		"invalid level":    `log_level = "loud"`,
		"invalid axis":     `axes = ["a b"]`,
		"missing url":      "[[connection]]\nland = \"qq\"\naccount = \"1\"",
		"missing account":  "[[connection]]\nurl = \"ws://x\"\nland = \"qq\"",
		"invalid duration": "[[connection]]\nurl = \"ws://x\"\nland = \"qq\"\naccount = \"1\"\nreconnect_min = \"soon\"",
		"malformed":        `strict_duplicates = `,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(write(t, content))
			assert.Error(t, err)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
