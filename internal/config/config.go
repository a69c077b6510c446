package config // package config loads application configuration from environment variables

import (
    "fmt"     // fmt formats configuration errors
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings" // strings normalizes enumerated values

    "github.com/joho/godotenv" // godotenv loads a local .env file into the environment
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
    Env          string // application environment (e.g. "dev", "prod")
    Port         string // HTTP port to listen on
    Store        string // persistence backend: "mysql" or "memory"
    DBUser       string // database username
    DBPass       string // database password (optional)
    DBHost       string // database host address
    DBPort       string // database port number
    DBName       string // database name
    JWTSecret    string // secret used to sign staff JWTs
    AccessTTLMin int    // access token time-to-live in minutes
    BcryptCost   int    // bcrypt cost for staff password hashing
    RabbitURL    string // AMQP URL used for notifications; empty disables publishing
    LogLevel     string // logrus level name
    LogFormat    string // "text" or "json"
}

// LoadDotEnv loads variables from a .env file in the working directory when
// one exists.  Variables already present in the environment win.
func LoadDotEnv() bool {
    return godotenv.Load() == nil
}

// Load reads configuration values from environment variables and returns a
// Config.  Database variables are only required for the mysql store.
// Missing or malformed required values are reported together.
func Load() (Config, error) {
    var missing []string
    must := func(key string) string {
        v, ok := os.LookupEnv(key)
        if !ok || v == "" {
            missing = append(missing, key)
        }
        return v
    }

    cfg := Config{
        Env:       getenv("APP_ENV", "dev"),
        Port:      getenv("APP_PORT", "8080"),
        Store:     strings.ToLower(getenv("STORE", "mysql")),
        JWTSecret: must("JWT_SECRET"),
        RabbitURL: firstEnv("RABBITMQ_URL", "AMQP_URL"),
        LogLevel:  getenv("LOG_LEVEL", "info"),
        LogFormat: strings.ToLower(getenv("LOG_FORMAT", "text")),
        DBPass:    os.Getenv("DB_PASS"),
    }
    if cfg.Store != "mysql" && cfg.Store != "memory" {
        return Config{}, fmt.Errorf("invalid STORE %q: want mysql or memory", cfg.Store)
    }
    if cfg.Store == "mysql" {
        cfg.DBUser = must("DB_USER")
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
    }
    if len(missing) > 0 {
        return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
    }

    var err error
    if cfg.AccessTTLMin, err = intEnv("ACCESS_TOKEN_TTL_MIN", 60); err != nil {
        return Config{}, err
    }
    if cfg.BcryptCost, err = intEnv("BCRYPT_COST", 12); err != nil {
        return Config{}, err
    }
    return cfg, nil
}

// intEnv is like getenv but converts the value into an integer.  An unset
// variable yields def; a malformed one is an error.
func intEnv(key string, def int) (int, error) {
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

func firstEnv(keys ...string) string {
    for _, k := range keys {
        if v := os.Getenv(k); v != "" {
            return v
        }
    }
    return ""
}
