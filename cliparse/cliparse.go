package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database types
const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
)

// Change broker types
const (
	BrokerMemory   = "memory"
	BrokerRedis    = "redis"
	BrokerPostgres = "postgres"
)

const DefaultPollInterval = 5 * time.Second

type Config struct {
	Port          int
	DatabaseURL   string
	DatabaseType  string
	AdminSecret   string
	IPHashSalt    string
	Broker        string
	RedisURL      string
	SeedFile      string
	VoteRateLimit float64

	// Peers whose X-Forwarded-For / X-Real-IP headers are believed
	TrustedProxies []netip.Prefix
}

// LoadDotEnv loads a .env file into the environment if one exists.
// Variables already set win over the file.
func LoadDotEnv(paths ...string) {
	// A missing file is the normal production case
	_ = godotenv.Load(paths...)
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("survey-server", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.Broker, "broker", "", "Change broker (memory, redis or postgres)")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL for the redis broker")
	fs.StringVar(&cfg.SeedFile, "seed", "", "YAML file with parties to load into an empty table")
	fs.Float64Var(&cfg.VoteRateLimit, "vote-rate", 0, "Vote requests per second allowed per origin")
	trustProxy := fs.String("trust-proxy", "", "Comma-separated proxy IPs or CIDRs allowed to set X-Forwarded-For")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminSecret, "admin-secret", "", "Admin secret (prefer env)")
	fs.StringVar(&cfg.IPHashSalt, "ip-salt", "", "IP hash salt (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = DatabaseSQLite
		}
	}
	if cfg.DatabaseType != DatabaseSQLite && cfg.DatabaseType != DatabasePostgres {
		return Config{}, fmt.Errorf("unknown database type %q", cfg.DatabaseType)
	}

	if cfg.Broker == "" {
		cfg.Broker = os.Getenv("BROKER")
		if cfg.Broker == "" {
			cfg.Broker = BrokerMemory
		}
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = os.Getenv("REDIS_URL")
	}
	switch cfg.Broker {
	case BrokerMemory:
	case BrokerRedis:
		if cfg.RedisURL == "" {
			return Config{}, errors.New("redis broker requires REDIS_URL")
		}
	case BrokerPostgres:
		if cfg.DatabaseType != DatabasePostgres {
			return Config{}, errors.New("postgres broker requires a postgres database")
		}
	default:
		return Config{}, fmt.Errorf("unknown broker %q", cfg.Broker)
	}

	if cfg.SeedFile == "" {
		cfg.SeedFile = os.Getenv("SEED_FILE")
	}

	if cfg.VoteRateLimit == 0 {
		if rateStr := os.Getenv("VOTE_RATE_LIMIT"); rateStr != "" {
			rate, err := strconv.ParseFloat(rateStr, 64)
			if err != nil {
				return Config{}, errors.New("invalid VOTE_RATE_LIMIT env variable")
			}
			cfg.VoteRateLimit = rate
		} else {
			cfg.VoteRateLimit = 1
		}
	}

	if *trustProxy == "" {
		*trustProxy = os.Getenv("TRUSTED_PROXIES")
	}
	proxies, err := ParseTrustedProxies(*trustProxy)
	if err != nil {
		return Config{}, err
	}
	cfg.TrustedProxies = proxies

	// Secrets - MUST be provided
	if cfg.AdminSecret == "" {
		cfg.AdminSecret = os.Getenv("ADMIN_SECRET")
	}
	if cfg.AdminSecret == "" {
		return Config{}, errors.New("ADMIN_SECRET required")
	}

	if cfg.IPHashSalt == "" {
		cfg.IPHashSalt = os.Getenv("IP_HASH_SALT")
	}
	if cfg.IPHashSalt == "" {
		return Config{}, errors.New("IP_HASH_SALT required")
	}

	return cfg, nil
}

// ParseTrustedProxies parses a comma-separated list of IPs and CIDRs.
// A bare IP is a single-host prefix.
func ParseTrustedProxies(list string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", item, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", item, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// ClientConfig configures the survey client. Flags are bound by the
// command; ApplyClientEnv fills whatever they left empty.
type ClientConfig struct {
	APIURL       string
	AdminSecret  string
	StateFile    string
	LogFile      string
	PollInterval time.Duration
	Timeout      time.Duration
	Verbose      bool
}

// ApplyClientEnv falls back to environment variables and validates
func ApplyClientEnv(cfg *ClientConfig) error {
	if cfg.APIURL == "" {
		cfg.APIURL = os.Getenv("SURVEY_API_URL")
		if cfg.APIURL == "" {
			cfg.APIURL = "http://localhost:3318"
		}
	}
	if cfg.AdminSecret == "" {
		cfg.AdminSecret = os.Getenv("ADMIN_SECRET")
	}
	if cfg.StateFile == "" {
		cfg.StateFile = os.Getenv("SURVEY_STATE_FILE")
		if cfg.StateFile == "" {
			cfg.StateFile = "survey-state.db"
		}
	}
	if cfg.LogFile == "" {
		cfg.LogFile = os.Getenv("SURVEY_LOG_FILE")
		if cfg.LogFile == "" {
			cfg.LogFile = "survey.log"
		}
	}
	if cfg.PollInterval == 0 {
		if s := os.Getenv("SURVEY_POLL_INTERVAL"); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return errors.New("invalid SURVEY_POLL_INTERVAL env variable")
			}
			cfg.PollInterval = d
		} else {
			cfg.PollInterval = DefaultPollInterval
		}
	}
	if cfg.PollInterval < time.Second || cfg.PollInterval%time.Second != 0 {
		return errors.New("poll interval must be a whole number of seconds, at least 1s")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return nil
}
