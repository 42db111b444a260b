package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ProviderProfile configures a single hosted language-model vendor.
// Rates are dollars per 1K tokens; MonthlyCap is dollars per billing period.
type ProviderProfile struct {
	Name       string  `mapstructure:"name" yaml:"name"`
	Vendor     string  `mapstructure:"vendor" yaml:"vendor"` // openai, deepseek, siliconflow, ollama, mock
	APIKey     string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL    string  `mapstructure:"base_url" yaml:"base_url"`
	Model      string  `mapstructure:"model" yaml:"model"`
	InputRate  float64 `mapstructure:"input_rate" yaml:"input_rate"`
	OutputRate float64 `mapstructure:"output_rate" yaml:"output_rate"`
	MonthlyCap float64 `mapstructure:"monthly_cap" yaml:"monthly_cap"`
}

// Profile is the configuration to start the assistant server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where maia stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// Providers lists the configured LLM vendors in configuration order.
	Providers []ProviderProfile `mapstructure:"providers"`

	// CategoryPreferences maps a task category to an ordered provider
	// preference list. Unset categories fall back to configuration order.
	CategoryPreferences map[string][]string `mapstructure:"category_preferences"`

	// AllowBudgetBypass keeps the last-resort routing bypass enabled. When
	// every provider is over budget the router may still pick one so the
	// service keeps answering; disable to fail closed instead.
	AllowBudgetBypass bool `mapstructure:"allow_budget_bypass"`

	// CallTimeout bounds a single provider call.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if at least one provider has a usable endpoint.
func (p *Profile) IsAIEnabled() bool {
	for _, prov := range p.Providers {
		if prov.APIKey != "" || prov.Vendor == "ollama" || prov.Vendor == "mock" {
			return true
		}
	}
	return false
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads configuration from MAIA_* environment variables. Env values
// override whatever the config file set, so secrets can be kept out of the
// file entirely.
func (p *Profile) FromEnv() {
	if mode := os.Getenv("MAIA_MODE"); mode != "" {
		p.Mode = mode
	}
	if dsn := os.Getenv("MAIA_DSN"); dsn != "" {
		p.DSN = dsn
	}
	if driver := os.Getenv("MAIA_DRIVER"); driver != "" {
		p.Driver = driver
	}

	// API keys come from the environment when not in the config file.
	for i := range p.Providers {
		if p.Providers[i].APIKey != "" {
			continue
		}
		key := fmt.Sprintf("MAIA_%s_API_KEY", strings.ToUpper(strings.ReplaceAll(p.Providers[i].Name, "-", "_")))
		p.Providers[i].APIKey = os.Getenv(key)
	}
}

// Load reads the YAML config file at path (optional) and merges environment
// overrides on top. An empty path yields the built-in defaults.
func Load(path string) (*Profile, error) {
	p := Default()

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "unable to read config file %s", path)
		}
		if err := v.Unmarshal(p); err != nil {
			return nil, errors.Wrap(err, "unable to parse config file")
		}
	}

	p.FromEnv()
	return p, nil
}

// Default returns the built-in configuration: a stronger primary provider
// with the large budget and a cheap secondary with a small one, mirroring
// the monthly credit split the assistant was designed around.
func Default() *Profile {
	return &Profile{
		Mode:   "dev",
		Addr:   "",
		Port:   8230,
		Data:   ".",
		Driver: "sqlite",
		Providers: []ProviderProfile{
			{
				Name:       "gpt-4",
				Vendor:     "openai",
				BaseURL:    getEnvOrDefault("MAIA_OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Model:      "gpt-4",
				InputRate:  0.03,
				OutputRate: 0.06,
				MonthlyCap: 120.0,
			},
			{
				Name:       "deepseek-chat",
				Vendor:     "deepseek",
				BaseURL:    getEnvOrDefault("MAIA_DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
				Model:      "deepseek-chat",
				InputRate:  0.00014,
				OutputRate: 0.00028,
				MonthlyCap: 5.0,
			},
		},
		CategoryPreferences: map[string][]string{
			"classification":      {"gpt-4", "deepseek-chat"},
			"summarization":       {"gpt-4", "deepseek-chat"},
			"response_generation": {"deepseek-chat", "gpt-4"},
			"action_extraction":   {"gpt-4", "deepseek-chat"},
			"reasoning":           {"gpt-4", "deepseek-chat"},
		},
		AllowBudgetBypass: true,
		CallTimeout:       30 * time.Second,
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "maia")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/maia"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("maia_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.CallTimeout <= 0 {
		p.CallTimeout = 30 * time.Second
	}

	for _, prov := range p.Providers {
		if prov.Name == "" {
			return errors.New("provider name must not be empty")
		}
		if prov.MonthlyCap < 0 {
			return errors.Errorf("provider %s has a negative monthly cap", prov.Name)
		}
	}

	return nil
}
