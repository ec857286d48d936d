package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Roles an agent process can play.
const (
	RoleSupport  = "support"
	RoleProduct  = "product"
	RoleShipping = "shipping"
	RoleBilling  = "billing"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// rolePorts are the default listen ports per role.
var rolePorts = map[string]int{
	RoleSupport:  8000,
	RoleProduct:  8001,
	RoleShipping: 8002,
	RoleBilling:  8003,
}

// AgentConfig describes the card served by the support agent.
type AgentConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
	BaseURL     string `yaml:"base_url"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LLMConfig selects the classification and generation model. An empty
// model runs the agent offline with keyword classification.
type LLMConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key"`
}

// ClientConfig holds settings for outbound protocol calls.
type ClientConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// DelegationConfig holds the polling budget and specialist addresses.
type DelegationConfig struct {
	MaxAttempts  int               `yaml:"max_attempts"`
	PollInterval time.Duration     `yaml:"poll_interval"`
	Agents       map[string]string `yaml:"agents"`
}

// ServerConfig holds inbound request settings.
type ServerConfig struct {
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// StorageConfig selects where tasks and agent cards are mirrored.
type StorageConfig struct {
	Driver    string `yaml:"driver"`
	Path      string `yaml:"path"`
	RedisURL  string `yaml:"redis_url"`
	KeyPrefix string `yaml:"key_prefix"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   *bool  `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// On reports whether metrics are served. Metrics are on unless disabled.
func (m MetricsConfig) On() bool {
	return m.Enabled == nil || *m.Enabled
}

// MCPConfig holds the MCP bridge listener.
type MCPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Config holds the agent configuration loaded from agent.yaml.
type Config struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	Role       string           `yaml:"role"`
	Agent      AgentConfig      `yaml:"agent"`
	Log        LogConfig        `yaml:"log"`
	LLM        LLMConfig        `yaml:"llm"`
	Client     ClientConfig     `yaml:"client"`
	Delegation DelegationConfig `yaml:"delegation"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	MCP        MCPConfig        `yaml:"mcp"`
}

// LoadEnvFiles loads .env.local and .env into the process environment.
// Missing files are ignored and variables already set are kept.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// Override adjusts a loaded configuration before defaults are filled in,
// typically from command-line flags.
type Override func(*Config)

// WithRole forces the agent role. An empty role keeps the loaded one.
func WithRole(role string) Override {
	return func(c *Config) {
		if role != "" {
			c.Role = role
		}
	}
}

// WithPort forces the listen port. Zero keeps the loaded one.
func WithPort(port int) Override {
	return func(c *Config) {
		if port != 0 {
			c.Port = port
		}
	}
}

// WithMCPPort forces the MCP bridge port. Zero keeps the loaded one.
func WithMCPPort(port int) Override {
	return func(c *Config) {
		if port != 0 {
			c.MCP.Port = port
		}
	}
}

// Load reads and parses the configuration file, applies environment
// overrides, then the given overrides, and fills in defaults. An empty
// path yields the defaults.
func Load(path string, overrides ...Override) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(&cfg)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("SERVER_HOST", &c.Host)
	if v, ok := lookup("SERVER_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT %q: %w", v, err)
		}
		c.Port = port
	}
	str("AGENT_ROLE", &c.Role)
	str("AGENT_ID", &c.Agent.ID)
	str("AGENT_NAME", &c.Agent.Name)
	str("AGENT_DESCRIPTION", &c.Agent.Description)
	str("AGENT_BASE_URL", &c.Agent.BaseURL)
	str("LLM_MODEL", &c.LLM.Model)
	str("LLM_API_KEY", &c.LLM.APIKey)
	str("LOG_LEVEL", &c.Log.Level)
	str("STORAGE_DRIVER", &c.Storage.Driver)

	for role, key := range map[string]string{
		RoleProduct:  "PRODUCT_AGENT_URL",
		RoleShipping: "SHIPPING_AGENT_URL",
		RoleBilling:  "BILLING_AGENT_URL",
	} {
		if v, ok := lookup(key); ok && v != "" {
			if c.Delegation.Agents == nil {
				c.Delegation.Agents = make(map[string]string)
			}
			c.Delegation.Agents[role] = v
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Role = strings.ToLower(c.Role)
	if c.Role == "" {
		c.Role = RoleSupport
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = rolePorts[c.Role]
	}

	if c.Agent.ID == "" {
		c.Agent.ID = "customer-support-agent"
	}
	if c.Agent.Name == "" {
		c.Agent.Name = "고객 지원 에이전트"
	}
	if c.Agent.Description == "" {
		c.Agent.Description = "고객 질문에 답변하고 필요시 다른 전문 에이전트와 통신하는 A2A 호환 에이전트"
	}
	if c.Agent.Version == "" {
		c.Agent.Version = "1.0.0"
	}
	if c.Agent.BaseURL == "" {
		c.Agent.BaseURL = fmt.Sprintf("http://localhost:%d", c.Port)
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	if c.Client.Timeout == 0 {
		c.Client.Timeout = 30 * time.Second
	}
	if c.Delegation.MaxAttempts == 0 {
		c.Delegation.MaxAttempts = 10
	}
	if c.Delegation.PollInterval == 0 {
		c.Delegation.PollInterval = 2 * time.Second
	}
	if c.Delegation.Agents == nil {
		c.Delegation.Agents = make(map[string]string)
	}
	for _, role := range []string{RoleProduct, RoleShipping, RoleBilling} {
		if _, ok := c.Delegation.Agents[role]; !ok {
			c.Delegation.Agents[role] = fmt.Sprintf("http://localhost:%d", rolePorts[role])
		}
	}
	if c.Server.QueryTimeout == 0 {
		c.Server.QueryTimeout = 30 * time.Second
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	if c.Storage.Path == "" {
		c.Storage.Path = fmt.Sprintf("./data/%s.db", c.Role)
	}
	if c.Storage.RedisURL == "" {
		c.Storage.RedisURL = "redis://localhost:6379/0"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "a2a:" + c.Role + ":"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "a2a"
	}

	if c.MCP.Host == "" {
		c.MCP.Host = "0.0.0.0"
	}
	if c.MCP.Port == 0 {
		c.MCP.Port = 8090
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	if _, ok := rolePorts[c.Role]; !ok {
		return fmt.Errorf("unknown role %q: expected one of support, product, shipping, billing", c.Role)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite, DriverRedis:
	default:
		return fmt.Errorf("unknown storage driver %q: expected memory, sqlite or redis", c.Storage.Driver)
	}
	if c.Delegation.MaxAttempts < 0 {
		return fmt.Errorf("delegation.max_attempts must not be negative")
	}
	if c.Delegation.PollInterval < 0 || c.Client.Timeout < 0 || c.Server.QueryTimeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
