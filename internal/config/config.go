// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig             `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig            `mapstructure:"browser" yaml:"browser"`
	Extract  ExtractConfig            `mapstructure:"extract" yaml:"extract"`
	Output   OutputConfig             `mapstructure:"output" yaml:"output"`
	Hotkey   HotkeyConfig             `mapstructure:"hotkey" yaml:"hotkey"`
	Profiles map[string]ProfileConfig `mapstructure:"profiles" yaml:"profiles"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig describes how the Chrome instance is obtained and which tab
// holds the chat.
type BrowserConfig struct {
	// RemoteURL attaches to an already running Chrome (ws:// or http:// debugger
	// endpoint) instead of launching one.
	RemoteURL   string        `mapstructure:"remote_url" yaml:"remote_url"`
	Headless    bool          `mapstructure:"headless" yaml:"headless"`
	UserDataDir string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	Args        []string      `mapstructure:"args" yaml:"args"`
	StartURL    string        `mapstructure:"start_url" yaml:"start_url"`
	TargetMatch string        `mapstructure:"target_match" yaml:"target_match"`
	LaunchWait  time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	ScriptWait  time.Duration `mapstructure:"script_timeout" yaml:"script_timeout"`
}

// ExtractConfig holds the run level settings of the extraction sequencer.
type ExtractConfig struct {
	Profile        string `mapstructure:"profile" yaml:"profile"`
	AssistantLabel string `mapstructure:"assistant_label" yaml:"assistant_label"`
	UserLabel      string `mapstructure:"user_label" yaml:"user_label"`
	UnknownLabel   string `mapstructure:"unknown_label" yaml:"unknown_label"`
	Prompt         bool   `mapstructure:"prompt" yaml:"prompt"`
}

// OutputConfig controls where the formatted transcript goes.
type OutputConfig struct {
	// ClipboardMethods orders the clipboard fallback chain.
	ClipboardMethods []string `mapstructure:"clipboard_methods" yaml:"clipboard_methods"`
	DumpOnFailure    bool     `mapstructure:"dump_on_failure" yaml:"dump_on_failure"`
	PageNotices      bool     `mapstructure:"page_notices" yaml:"page_notices"`
}

// HotkeyConfig describes the in-page key bindings used by the watch command.
type HotkeyConfig struct {
	Modifiers    []string `mapstructure:"modifiers" yaml:"modifiers"`
	HighlightKey string   `mapstructure:"highlight_key" yaml:"highlight_key"`
	ExtractKey   string   `mapstructure:"extract_key" yaml:"extract_key"`
	BindingName  string   `mapstructure:"binding_name" yaml:"binding_name"`
}

// ProfileConfig carries the page specific selectors and timings for one chat
// layout. Profiles replace the near duplicate variants of the same poller.
type ProfileConfig struct {
	MessageSelector   string        `mapstructure:"message_selector" yaml:"message_selector"`
	ToolbarSelectors  []string      `mapstructure:"toolbar_selectors" yaml:"toolbar_selectors"`
	BubbleSelector    string        `mapstructure:"bubble_selector" yaml:"bubble_selector"`
	ContentSelector   string        `mapstructure:"content_selector" yaml:"content_selector"`
	PencilMarkers     []string      `mapstructure:"pencil_markers" yaml:"pencil_markers"`
	CancelText        string        `mapstructure:"cancel_text" yaml:"cancel_text"`
	RoleAttribute     string        `mapstructure:"role_attribute" yaml:"role_attribute"`
	RoleContainer     string        `mapstructure:"role_container" yaml:"role_container"`
	RoleDepth         int           `mapstructure:"role_depth" yaml:"role_depth"`
	UserToolbarMarker string        `mapstructure:"user_toolbar_marker" yaml:"user_toolbar_marker"`
	AIToolbarMarker   string        `mapstructure:"ai_toolbar_marker" yaml:"ai_toolbar_marker"`
	HighlightClass    string        `mapstructure:"highlight_class" yaml:"highlight_class"`
	HighlightStyle    string        `mapstructure:"highlight_style" yaml:"highlight_style"`
	Timing            TimingConfig  `mapstructure:"timing" yaml:"timing"`
	ScrollBehavior    string        `mapstructure:"scroll_behavior" yaml:"scroll_behavior"`
	ToastDuration     time.Duration `mapstructure:"toast_duration" yaml:"toast_duration"`
}

// TimingConfig holds the settle delays and poll bounds of the sequencer.
type TimingConfig struct {
	PollInterval        time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	ClickDelay          time.Duration `mapstructure:"click_delay" yaml:"click_delay"`
	HideSettle          time.Duration `mapstructure:"hide_settle" yaml:"hide_settle"`
	ContentClickGap     time.Duration `mapstructure:"content_click_gap" yaml:"content_click_gap"`
	AppearDelay         time.Duration `mapstructure:"appear_delay" yaml:"appear_delay"`
	EditTriggerTimeout  time.Duration `mapstructure:"edit_trigger_timeout" yaml:"edit_trigger_timeout"`
	TextareaDelay       time.Duration `mapstructure:"textarea_delay" yaml:"textarea_delay"`
	TextareaTimeout     time.Duration `mapstructure:"textarea_timeout" yaml:"textarea_timeout"`
	CancelSettle        time.Duration `mapstructure:"cancel_settle" yaml:"cancel_settle"`
	BetweenMessageDelay time.Duration `mapstructure:"between_message_delay" yaml:"between_message_delay"`
}

// DefaultProfileName is the profile used when extract.profile is empty.
const DefaultProfileName = "global-toolbar"

// Known clipboard writer names, in their default order.
var KnownClipboardMethods = []string{"system", "page", "osc52"}

// BuiltinProfiles returns the profiles shipped with the binary.
func BuiltinProfiles() map[string]ProfileConfig {
	return map[string]ProfileConfig{
		DefaultProfileName: {
			MessageSelector: "div.min-w-0.flex.flex-col.gap-4.px-3.py-2",
			ToolbarSelectors: []string{
				"div.absolute.bg-pink-500",
				"div.absolute.bg-secondary",
			},
			BubbleSelector:  "div.absolute.rounded-full",
			ContentSelector: ".prose",
			PencilMarkers: []string{
				"M17 3a2.828",
				"L7.5 20.5 2 22",
				"pencil",
			},
			CancelText:        "Cancel",
			RoleAttribute:     "data-role",
			RoleContainer:     `div.group\/message`,
			RoleDepth:         15,
			UserToolbarMarker: "bg-pink-500",
			AIToolbarMarker:   "bg-secondary",
			HighlightClass:    "__chatscribe_targets",
			HighlightStyle:    "outline:3px solid #2b6;outline-offset:2px;border-radius:8px;background-color:rgba(34,187,102,0.05);",
			ScrollBehavior:    "instant",
			ToastDuration:     4 * time.Second,
			Timing: TimingConfig{
				PollInterval:        50 * time.Millisecond,
				ClickDelay:          100 * time.Millisecond,
				HideSettle:          50 * time.Millisecond,
				ContentClickGap:     50 * time.Millisecond,
				AppearDelay:         500 * time.Millisecond,
				EditTriggerTimeout:  3 * time.Second,
				TextareaDelay:       500 * time.Millisecond,
				TextareaTimeout:     2 * time.Second,
				CancelSettle:        300 * time.Millisecond,
				BetweenMessageDelay: 300 * time.Millisecond,
			},
		},
	}
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static, so this only fires on a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	cfg.fillProfiles()
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "chatscribe")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.user_data_dir", "~/.chatscribe/chrome")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.start_url", "https://ourdream.ai/")
	v.SetDefault("browser.target_match", "ourdream.ai")
	v.SetDefault("browser.launch_timeout", "30s")
	v.SetDefault("browser.script_timeout", "10s")

	// -- Extract --
	v.SetDefault("extract.profile", DefaultProfileName)
	v.SetDefault("extract.assistant_label", "[AI]")
	v.SetDefault("extract.user_label", "[You]")
	v.SetDefault("extract.unknown_label", "[Unknown]")
	v.SetDefault("extract.prompt", true)

	// -- Output --
	v.SetDefault("output.clipboard_methods", KnownClipboardMethods)
	v.SetDefault("output.dump_on_failure", true)
	v.SetDefault("output.page_notices", true)

	// -- Hotkey --
	v.SetDefault("hotkey.modifiers", []string{"ctrl", "alt"})
	v.SetDefault("hotkey.highlight_key", "h")
	v.SetDefault("hotkey.extract_key", "e")
	v.SetDefault("hotkey.binding_name", "__chatscribeHotkey")

	// -- Profiles --
	for name, p := range BuiltinProfiles() {
		prefix := "profiles." + name + "."
		v.SetDefault(prefix+"message_selector", p.MessageSelector)
		v.SetDefault(prefix+"toolbar_selectors", p.ToolbarSelectors)
		v.SetDefault(prefix+"bubble_selector", p.BubbleSelector)
		v.SetDefault(prefix+"content_selector", p.ContentSelector)
		v.SetDefault(prefix+"pencil_markers", p.PencilMarkers)
		v.SetDefault(prefix+"cancel_text", p.CancelText)
		v.SetDefault(prefix+"role_attribute", p.RoleAttribute)
		v.SetDefault(prefix+"role_container", p.RoleContainer)
		v.SetDefault(prefix+"role_depth", p.RoleDepth)
		v.SetDefault(prefix+"user_toolbar_marker", p.UserToolbarMarker)
		v.SetDefault(prefix+"ai_toolbar_marker", p.AIToolbarMarker)
		v.SetDefault(prefix+"highlight_class", p.HighlightClass)
		v.SetDefault(prefix+"highlight_style", p.HighlightStyle)
		v.SetDefault(prefix+"scroll_behavior", p.ScrollBehavior)
		v.SetDefault(prefix+"toast_duration", p.ToastDuration)
		v.SetDefault(prefix+"timing.poll_interval", p.Timing.PollInterval)
		v.SetDefault(prefix+"timing.click_delay", p.Timing.ClickDelay)
		v.SetDefault(prefix+"timing.hide_settle", p.Timing.HideSettle)
		v.SetDefault(prefix+"timing.content_click_gap", p.Timing.ContentClickGap)
		v.SetDefault(prefix+"timing.appear_delay", p.Timing.AppearDelay)
		v.SetDefault(prefix+"timing.edit_trigger_timeout", p.Timing.EditTriggerTimeout)
		v.SetDefault(prefix+"timing.textarea_delay", p.Timing.TextareaDelay)
		v.SetDefault(prefix+"timing.textarea_timeout", p.Timing.TextareaTimeout)
		v.SetDefault(prefix+"timing.cancel_settle", p.Timing.CancelSettle)
		v.SetDefault(prefix+"timing.between_message_delay", p.Timing.BetweenMessageDelay)
	}
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	v.BindEnv("browser.remote_url", "CHATSCRIBE_REMOTE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Viper misses the explicit binding when the key only has a default.
	if cfg.Browser.RemoteURL == "" {
		cfg.Browser.RemoteURL = os.Getenv("CHATSCRIBE_REMOTE_URL")
	}

	cfg.fillProfiles()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// fillProfiles completes user defined profiles with the default profile's
// values for anything they leave unset.
func (c *Config) fillProfiles() {
	base := BuiltinProfiles()[DefaultProfileName]
	if c.Profiles == nil {
		c.Profiles = make(map[string]ProfileConfig)
	}
	for name, p := range c.Profiles {
		c.Profiles[name] = p.withDefaults(base)
	}
	if _, ok := c.Profiles[DefaultProfileName]; !ok {
		c.Profiles[DefaultProfileName] = base
	}
}

func (p ProfileConfig) withDefaults(base ProfileConfig) ProfileConfig {
	if p.MessageSelector == "" {
		p.MessageSelector = base.MessageSelector
	}
	if len(p.ToolbarSelectors) == 0 {
		p.ToolbarSelectors = base.ToolbarSelectors
	}
	if p.BubbleSelector == "" {
		p.BubbleSelector = base.BubbleSelector
	}
	if p.ContentSelector == "" {
		p.ContentSelector = base.ContentSelector
	}
	if len(p.PencilMarkers) == 0 {
		p.PencilMarkers = base.PencilMarkers
	}
	if p.CancelText == "" {
		p.CancelText = base.CancelText
	}
	if p.RoleAttribute == "" {
		p.RoleAttribute = base.RoleAttribute
	}
	if p.RoleContainer == "" {
		p.RoleContainer = base.RoleContainer
	}
	if p.RoleDepth == 0 {
		p.RoleDepth = base.RoleDepth
	}
	if p.UserToolbarMarker == "" {
		p.UserToolbarMarker = base.UserToolbarMarker
	}
	if p.AIToolbarMarker == "" {
		p.AIToolbarMarker = base.AIToolbarMarker
	}
	if p.HighlightClass == "" {
		p.HighlightClass = base.HighlightClass
	}
	if p.HighlightStyle == "" {
		p.HighlightStyle = base.HighlightStyle
	}
	if p.ScrollBehavior == "" {
		p.ScrollBehavior = base.ScrollBehavior
	}
	if p.ToastDuration == 0 {
		p.ToastDuration = base.ToastDuration
	}
	p.Timing = p.Timing.withDefaults(base.Timing)
	return p
}

func (t TimingConfig) withDefaults(base TimingConfig) TimingConfig {
	pick := func(v, d time.Duration) time.Duration {
		if v == 0 {
			return d
		}
		return v
	}
	t.PollInterval = pick(t.PollInterval, base.PollInterval)
	t.ClickDelay = pick(t.ClickDelay, base.ClickDelay)
	t.HideSettle = pick(t.HideSettle, base.HideSettle)
	t.ContentClickGap = pick(t.ContentClickGap, base.ContentClickGap)
	t.AppearDelay = pick(t.AppearDelay, base.AppearDelay)
	t.EditTriggerTimeout = pick(t.EditTriggerTimeout, base.EditTriggerTimeout)
	t.TextareaDelay = pick(t.TextareaDelay, base.TextareaDelay)
	t.TextareaTimeout = pick(t.TextareaTimeout, base.TextareaTimeout)
	t.CancelSettle = pick(t.CancelSettle, base.CancelSettle)
	t.BetweenMessageDelay = pick(t.BetweenMessageDelay, base.BetweenMessageDelay)
	return t
}

// ActiveProfile returns the profile selected by extract.profile.
func (c *Config) ActiveProfile() (ProfileConfig, error) {
	return c.Profile(c.Extract.Profile)
}

// Profile looks a profile up by name. Viper lowercases map keys, so the
// lookup is case-insensitive.
func (c *Config) Profile(name string) (ProfileConfig, error) {
	if name == "" {
		name = DefaultProfileName
	}
	p, ok := c.Profiles[strings.ToLower(name)]
	if !ok {
		return ProfileConfig{}, fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(c.ProfileNames(), ", "))
	}
	return p, nil
}

// ProfileNames lists the configured profiles in sorted order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if _, err := c.ActiveProfile(); err != nil {
		return fmt.Errorf("extract.profile: %w", err)
	}
	for _, name := range c.ProfileNames() {
		if err := c.Profiles[name].Validate(); err != nil {
			return fmt.Errorf("profiles.%s: %w", name, err)
		}
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output configuration invalid: %w", err)
	}
	if err := c.Hotkey.Validate(); err != nil {
		return fmt.Errorf("hotkey configuration invalid: %w", err)
	}
	if c.Browser.RemoteURL == "" && c.Browser.LaunchWait <= 0 {
		return fmt.Errorf("browser.launch_timeout must be a positive duration")
	}
	if c.Browser.ScriptWait <= 0 {
		return fmt.Errorf("browser.script_timeout must be a positive duration")
	}
	return nil
}

// Validate checks a single profile.
func (p ProfileConfig) Validate() error {
	if strings.TrimSpace(p.MessageSelector) == "" {
		return fmt.Errorf("message_selector is required")
	}
	if p.RoleDepth < 0 {
		return fmt.Errorf("role_depth must not be negative")
	}
	t := p.Timing
	if t.PollInterval <= 0 {
		return fmt.Errorf("timing.poll_interval must be a positive duration")
	}
	if t.EditTriggerTimeout <= 0 || t.TextareaTimeout <= 0 {
		return fmt.Errorf("timing.edit_trigger_timeout and timing.textarea_timeout must be positive durations")
	}
	for _, d := range []time.Duration{t.ClickDelay, t.HideSettle, t.ContentClickGap, t.AppearDelay, t.TextareaDelay, t.CancelSettle, t.BetweenMessageDelay} {
		if d < 0 {
			return fmt.Errorf("timing delays must not be negative")
		}
	}
	return nil
}

// Validate checks the output configuration.
func (o OutputConfig) Validate() error {
	if len(o.ClipboardMethods) == 0 {
		return fmt.Errorf("clipboard_methods must name at least one method")
	}
	for _, m := range o.ClipboardMethods {
		known := false
		for _, k := range KnownClipboardMethods {
			if strings.EqualFold(m, k) {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown clipboard method %q", m)
		}
	}
	return nil
}

// Validate checks the hotkey configuration.
func (h HotkeyConfig) Validate() error {
	if len(h.HighlightKey) != 1 || len(h.ExtractKey) != 1 {
		return fmt.Errorf("highlight_key and extract_key must be single characters")
	}
	if strings.EqualFold(h.HighlightKey, h.ExtractKey) {
		return fmt.Errorf("highlight_key and extract_key must differ")
	}
	if h.BindingName == "" {
		return fmt.Errorf("binding_name is required")
	}
	for _, m := range h.Modifiers {
		switch strings.ToLower(m) {
		case "ctrl", "alt", "shift", "meta":
		default:
			return fmt.Errorf("unknown modifier %q", m)
		}
	}
	return nil
}
