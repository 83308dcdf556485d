package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Policy bundles the blocking-decision settings. It is hot-reloadable while
// the service runs; everything else needs a restart.
type Policy struct {
	MinScore           int    `yaml:"min_score"`
	MinComments        int    `yaml:"min_comments"`
	BlockAbroad        bool   `yaml:"block_abroad"`
	BlockIllegalPrefix bool   `yaml:"block_illegal_prefix"`
	BlocknamePrefix    string `yaml:"blockname_prefix"`
}

// Config holds all service settings.
type Config struct {
	// router call monitor feed
	MonitorHost    string
	MonitorPort    int
	ReconnectDelay time.Duration

	// router control API (TR-064)
	RouterPort     int
	RouterUsername string
	RouterPassword string

	// phonebooks
	WhitelistIDs []int
	BlacklistIDs []int
	BlocklistID  int

	Policy Policy

	// list refresh
	RefreshInterval time.Duration

	// reference datasets
	LandlineCSV      string
	MobileCSV        string
	CountryCodesJSON string
	CountryNamesJSON string

	// sinks
	LogFolder  string
	DailyLogs  bool
	Anonymize  bool
	WebhookURL string
	DBPath     string
	HTTPPort   string

	// reputation endpoints
	ReverseBaseURL string
	ScoreBaseURL   string
	ScorePartner   string
	ScoreAPIKey    string

	ConfigPath string
}

type fileConfig struct {
	MonitorHost        string  `yaml:"monitor_host"`
	WhitelistIDs       []int   `yaml:"whitelist_ids"`
	BlacklistIDs       []int   `yaml:"blacklist_ids"`
	BlocklistID        *int    `yaml:"blocklist_id"`
	Policy             *Policy `yaml:"policy"`
	LogFolder          string  `yaml:"log_folder"`
	DailyLogs          *bool   `yaml:"daily_logs"`
	Anonymize          *bool   `yaml:"anonymize"`
	WebhookURL         string  `yaml:"webhook_url"`
	DBPath             string  `yaml:"db_path"`
	HTTPPort           string  `yaml:"http_port"`
	RefreshIntervalSec *int    `yaml:"refresh_interval_sec"`
}

const (
	defaultMonitorPort = 1012
	defaultRouterPort  = 49000
	defaultHTTPPort    = ":8025"
	defaultMinScore    = 6
	defaultMinComments = 3
	defaultRefresh     = time.Hour
	defaultReconnect   = 3 * time.Second
	defaultLogFolder   = "log"
	defaultDBFile      = "callscreen.db"
	defaultReverseURL  = "https://www.dasoertliche.de"
	defaultScoreURL    = "http://www.tellows.de"
)

// Load reads configuration from an optional .env file, the environment, and
// an optional YAML file. Environment wins over file, file over defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		MonitorHost:    getenv("MONITOR_HOST", "fritz.box"),
		MonitorPort:    getenvInt("MONITOR_PORT", defaultMonitorPort),
		ReconnectDelay: time.Duration(getenvInt("RECONNECT_DELAY_SEC", int(defaultReconnect/time.Second))) * time.Second,
		RouterPort:     getenvInt("ROUTER_PORT", defaultRouterPort),
		RouterUsername: getenv("ROUTER_USERNAME", "dslf-config"),
		RouterPassword: os.Getenv("ROUTER_PASSWORD"),
		WhitelistIDs:   []int{0},
		BlacklistIDs:   []int{1},
		BlocklistID:    1,
		Policy: Policy{
			MinScore:           defaultMinScore,
			MinComments:        defaultMinComments,
			BlockIllegalPrefix: true,
		},
		RefreshInterval:  defaultRefresh,
		LandlineCSV:      getenv("LANDLINE_CSV", "data/onb.csv"),
		MobileCSV:        getenv("MOBILE_CSV", "data/rnb.csv"),
		CountryCodesJSON: getenv("COUNTRY_CODES_JSON", "data/countryio-phone.json"),
		CountryNamesJSON: getenv("COUNTRY_NAMES_JSON", "data/countryio-names.json"),
		LogFolder:        defaultLogFolder,
		HTTPPort:         defaultHTTPPort,
		ReverseBaseURL:   getenv("REVERSE_BASE_URL", defaultReverseURL),
		ScoreBaseURL:     getenv("SCORE_BASE_URL", defaultScoreURL),
		ScorePartner:     getenv("SCORE_PARTNER", "test"),
		ScoreAPIKey:      getenv("SCORE_APIKEY", "test123"),
		ConfigPath:       getenv("CONFIG_PATH", "callscreen.yaml"),
	}

	fileCfg, err := loadFileConfig(cfg.ConfigPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("config file %s not loaded: %v (using defaults)", cfg.ConfigPath, err)
		}
	} else {
		applyFileConfig(&cfg, fileCfg)
	}

	// environment overrides
	if v := os.Getenv("WHITELIST_IDS"); v != "" {
		ids, err := parseIDList(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid WHITELIST_IDS: %w", err)
		}
		cfg.WhitelistIDs = ids
	}
	if v := os.Getenv("BLACKLIST_IDS"); v != "" {
		ids, err := parseIDList(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid BLACKLIST_IDS: %w", err)
		}
		cfg.BlacklistIDs = ids
	}
	cfg.BlocklistID = getenvInt("BLOCKLIST_ID", cfg.BlocklistID)
	cfg.Policy.MinScore = getenvInt("MIN_SCORE", cfg.Policy.MinScore)
	cfg.Policy.MinComments = getenvInt("MIN_COMMENTS", cfg.Policy.MinComments)
	cfg.Policy.BlockAbroad = getenvBool("BLOCK_ABROAD", cfg.Policy.BlockAbroad)
	cfg.Policy.BlockIllegalPrefix = getenvBool("BLOCK_ILLEGAL_PREFIX", cfg.Policy.BlockIllegalPrefix)
	cfg.Policy.BlocknamePrefix = getenv("BLOCKNAME_PREFIX", cfg.Policy.BlocknamePrefix)
	cfg.LogFolder = getenv("LOG_FOLDER", cfg.LogFolder)
	cfg.DailyLogs = getenvBool("DAILY_LOGS", cfg.DailyLogs)
	cfg.Anonymize = getenvBool("ANONYMIZE", cfg.Anonymize)
	cfg.WebhookURL = getenv("WEBHOOK_URL", cfg.WebhookURL)
	cfg.DBPath = getenv("DB_PATH", cfg.DBPath)
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBFile
	}
	cfg.HTTPPort = getenv("HTTP_PORT", cfg.HTTPPort)
	if !strings.HasPrefix(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}
	if v := getenvInt("REFRESH_INTERVAL_SEC", 0); v > 0 {
		cfg.RefreshInterval = time.Duration(v) * time.Second
	}

	if cfg.Policy.MinScore < 0 || cfg.Policy.MinScore > 9 {
		return cfg, fmt.Errorf("MIN_SCORE must be within 0..9, got %d", cfg.Policy.MinScore)
	}
	return cfg, nil
}

// LoadPolicy re-reads only the hot-reloadable policy section from the
// config file, used by the config watcher.
func LoadPolicy(path string, current Policy) (Policy, error) {
	fileCfg, err := loadFileConfig(path)
	if err != nil {
		return current, err
	}
	if fileCfg.Policy == nil {
		return current, nil
	}
	return *fileCfg.Policy, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	buf, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := yaml.Unmarshal(buf, &fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.MonitorHost != "" {
		cfg.MonitorHost = fc.MonitorHost
	}
	if len(fc.WhitelistIDs) > 0 {
		cfg.WhitelistIDs = fc.WhitelistIDs
	}
	if len(fc.BlacklistIDs) > 0 {
		cfg.BlacklistIDs = fc.BlacklistIDs
	}
	if fc.BlocklistID != nil {
		cfg.BlocklistID = *fc.BlocklistID
	}
	if fc.Policy != nil {
		cfg.Policy = *fc.Policy
	}
	if fc.LogFolder != "" {
		cfg.LogFolder = fc.LogFolder
	}
	if fc.DailyLogs != nil {
		cfg.DailyLogs = *fc.DailyLogs
	}
	if fc.Anonymize != nil {
		cfg.Anonymize = *fc.Anonymize
	}
	if fc.WebhookURL != "" {
		cfg.WebhookURL = fc.WebhookURL
	}
	if fc.DBPath != "" {
		cfg.DBPath = fc.DBPath
	}
	if fc.HTTPPort != "" {
		cfg.HTTPPort = fc.HTTPPort
	}
	if fc.RefreshIntervalSec != nil && *fc.RefreshIntervalSec > 0 {
		cfg.RefreshInterval = time.Duration(*fc.RefreshIntervalSec) * time.Second
	}
}

// AllListIDs returns every configured phonebook id, for startup validation.
func (c Config) AllListIDs() []int {
	out := append([]int{}, c.WhitelistIDs...)
	out = append(out, c.BlacklistIDs...)
	out = append(out, c.BlocklistID)
	return out
}

func parseIDList(v string) ([]int, error) {
	var out []int
	for _, s := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %t", key, v, def)
		return def
	}
	return b
}
