package config // package config loads application configuration from environment variables

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  It is built once by Load at process start and
// handed to the components that need it.
type Config struct {
	Env                 string // application environment (e.g. "dev", "prod")
	Port                string // HTTP port to listen on
	DBDriver            string // "mysql" or "sqlite3"
	DBUser              string // database username (mysql)
	DBPass              string // database password (optional)
	DBHost              string // database host address (mysql)
	DBPort              string // database port number (mysql)
	DBName              string // database name (mysql)
	DBPath              string // database file or DSN (sqlite3)
	JWTSecret           string // secret used to sign JWTs
	AccessTTLMin        int    // access token time-to-live in minutes
	RefreshTTLDays      int    // refresh token time-to-live in days
	BcryptCost          int    // bcrypt cost for password hashing
	EnforceHallCapacity bool   // reject tickets outside the hall's rows/seats_in_row
	PublicBaseURL       string // absolute base for pagination links; empty derives it from the request
}

// Load reads configuration values from the environment (after loading an
// optional .env file) and returns a Config.  Every missing required
// variable is reported in a single error so a misconfigured deployment
// fails once with the complete list.
func Load() (Config, error) {
	_ = godotenv.Load()

	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:                 must("APP_ENV"),
		Port:                must("APP_PORT"),
		DBDriver:            strings.ToLower(envStr("DB_DRIVER", "mysql")),
		DBPass:              os.Getenv("DB_PASS"),
		JWTSecret:           must("JWT_SECRET"),
		EnforceHallCapacity: envBool("ENFORCE_HALL_CAPACITY", true),
		PublicBaseURL:       strings.TrimSuffix(os.Getenv("PUBLIC_BASE_URL"), "/"),
	}

	switch cfg.DBDriver {
	case "mysql":
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case "sqlite3", "sqlite":
		cfg.DBDriver = "sqlite3"
		cfg.DBPath = must("DB_PATH")
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q (want mysql or sqlite3)", cfg.DBDriver)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}

	var err error
	if cfg.AccessTTLMin, err = intVar("ACCESS_TOKEN_TTL_MIN", 60); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTLDays, err = intVar("REFRESH_TOKEN_TTL_DAYS", 7); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = intVar("BCRYPT_COST", 10); err != nil {
		return Config{}, err
	}
	if cfg.AccessTTLMin <= 0 {
		return Config{}, fmt.Errorf("ACCESS_TOKEN_TTL_MIN must be positive")
	}
	if cfg.RefreshTTLDays <= 0 {
		return Config{}, fmt.Errorf("REFRESH_TOKEN_TTL_DAYS must be positive")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return Config{}, fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	return cfg, nil
}

// intVar is like envStr but converts the value to an integer.  An unset
// variable yields def; a malformed one is an error.
func intVar(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q", key, s)
	}
	return n, nil
}
