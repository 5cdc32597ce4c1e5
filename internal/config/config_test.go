// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "chatscribe", cfg.Logger.ServiceName)
	assert.Equal(t, DefaultProfileName, cfg.Extract.Profile)
	assert.Equal(t, "[AI]", cfg.Extract.AssistantLabel)
	assert.Equal(t, "[You]", cfg.Extract.UserLabel)
	assert.Equal(t, []string{"system", "page", "osc52"}, cfg.Output.ClipboardMethods)
	assert.Equal(t, 30*time.Second, cfg.Browser.LaunchWait)

	p, err := cfg.ActiveProfile()
	require.NoError(t, err)
	assert.Equal(t, "div.min-w-0.flex.flex-col.gap-4.px-3.py-2", p.MessageSelector)
	assert.Equal(t, 50*time.Millisecond, p.Timing.PollInterval)
	assert.Equal(t, 3*time.Second, p.Timing.EditTriggerTimeout)
	assert.Equal(t, 2*time.Second, p.Timing.TextareaTimeout)
	assert.Equal(t, 300*time.Millisecond, p.Timing.BetweenMessageDelay)
	assert.Equal(t, 15, p.RoleDepth)

	assert.NoError(t, cfg.Validate(), "defaults must always validate")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Unknown Profile", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Extract.Profile = "does-not-exist"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown profile "does-not-exist"`)
		assert.Contains(t, err.Error(), DefaultProfileName)
	})

	t.Run("Profile Timing", func(t *testing.T) {
		p := BuiltinProfiles()[DefaultProfileName]
		assert.NoError(t, p.Validate())

		noInterval := p
		noInterval.Timing.PollInterval = 0
		err := noInterval.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timing.poll_interval must be a positive duration")

		negative := p
		negative.Timing.CancelSettle = -time.Millisecond
		err = negative.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must not be negative")

		noSelector := p
		noSelector.MessageSelector = "  "
		assert.Error(t, noSelector.Validate())
	})

	t.Run("Output Methods", func(t *testing.T) {
		assert.NoError(t, OutputConfig{ClipboardMethods: []string{"OSC52", "system"}}.Validate())

		err := OutputConfig{}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one method")

		err = OutputConfig{ClipboardMethods: []string{"fax"}}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown clipboard method "fax"`)
	})

	t.Run("Hotkeys", func(t *testing.T) {
		valid := HotkeyConfig{Modifiers: []string{"ctrl", "Alt"}, HighlightKey: "h", ExtractKey: "e", BindingName: "__b"}
		assert.NoError(t, valid.Validate())

		same := valid
		same.ExtractKey = "H"
		assert.Error(t, same.Validate())

		long := valid
		long.ExtractKey = "ee"
		assert.Error(t, long.Validate())

		badMod := valid
		badMod.Modifiers = []string{"hyper"}
		err := badMod.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown modifier "hyper"`)
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
logger:
  level: debug
extract:
  profile: Slow
profiles:
  slow:
    message_selector: "div.message"
    timing:
      edit_trigger_timeout: 10s
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.Logger.Level)
		p, err := cfg.ActiveProfile()
		require.NoError(t, err)
		assert.Equal(t, "div.message", p.MessageSelector)
		assert.Equal(t, 10*time.Second, p.Timing.EditTriggerTimeout)
		// Unset fields fall back to the built-in profile.
		assert.Equal(t, 50*time.Millisecond, p.Timing.PollInterval)
		assert.Equal(t, "Cancel", p.CancelText)

		assert.Equal(t, []string{DefaultProfileName, "slow"}, cfg.ProfileNames())
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("output.clipboard_methods", []string{"carrier-pigeon"})

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		t.Setenv("CHATSCRIBE_REMOTE_URL", "ws://127.0.0.1:9222/devtools/browser/abc")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/abc", cfg.Browser.RemoteURL)
	})
}
