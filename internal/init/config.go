package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverMongo     = "mongo"
	DriverCassandra = "cassandra"

	defaultSecret = "dev-secret"
)

type Config struct {
	// App mode & server
	Mode          string
	ServerAddr    string
	PublicBaseURL string
	TLSCertFile   string
	TLSKeyFile    string
	LogLevel      string

	// Auth
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	// Store
	StoreDriver string

	// MongoDB
	MongoURL      string
	MongoDatabase string
	MongoTimeout  time.Duration

	// Cassandra
	CassandraHost       string
	CassandraKeyspace   string
	CassandraUsername   string
	CassandraPassword   string
	CassandraTimeout    time.Duration
	CassandraDC         string
	CassandraMigrations string

	// Kafka
	KafkaEnabled bool
	KafkaBroker  string
	KafkaTopic   string
	KafkaGroupID string
	KafkaReadTO  time.Duration
	KafkaWriteTO time.Duration

	// Media
	MediaDir      string
	MediaMaxBytes int64

	// Worker
	WorkerCount int
	WorkerQueue int
}

var cfg *Config

// Init loads the config using Viper and returns it
func Init() *Config {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// Load env variables
	v.AutomaticEnv()

	// Optional config file support
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // ignore error if no file

	cfg = fromViper(v)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("MODE", "server")
	v.SetDefault("SERVER_ADDR", ":5000")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:5000")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("JWT_SECRET", defaultSecret)
	v.SetDefault("TOKEN_TTL", "0s")
	v.SetDefault("BCRYPT_COST", 10)

	v.SetDefault("STORE_DRIVER", DriverMongo)

	v.SetDefault("MONGODB_URL", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "twitter")
	v.SetDefault("MONGODB_TIMEOUT", "10s")

	v.SetDefault("CASSANDRA_HOST", "localhost")
	v.SetDefault("CASSANDRA_KEYSPACE", "twitter")
	v.SetDefault("CASSANDRA_TIMEOUT", "10s")
	v.SetDefault("CASSANDRA_MIGRATIONS", "./migrations/cassandra")
	// Optional: Cassandra username/password/DC can be empty

	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKER", "localhost:29092")
	v.SetDefault("KAFKA_TOPIC", "tweet-events")
	v.SetDefault("KAFKA_GROUP_ID", "integrity-worker")
	v.SetDefault("KAFKA_READ_TIMEOUT", "10s")
	v.SetDefault("KAFKA_WRITE_TIMEOUT", "10s")

	v.SetDefault("MEDIA_DIR", "./images")
	v.SetDefault("MEDIA_MAX_BYTES", 9000000)

	v.SetDefault("WORKER_COUNT", 0)
	v.SetDefault("WORKER_QUEUE", 0)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Mode:                v.GetString("MODE"),
		ServerAddr:          v.GetString("SERVER_ADDR"),
		PublicBaseURL:       v.GetString("PUBLIC_BASE_URL"),
		TLSCertFile:         v.GetString("TLS_CERT_FILE"),
		TLSKeyFile:          v.GetString("TLS_KEY_FILE"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		TokenTTL:            parseDuration(v.GetString("TOKEN_TTL"), 0),
		BcryptCost:          v.GetInt("BCRYPT_COST"),
		StoreDriver:         v.GetString("STORE_DRIVER"),
		MongoURL:            v.GetString("MONGODB_URL"),
		MongoDatabase:       v.GetString("MONGODB_DATABASE"),
		MongoTimeout:        parseDuration(v.GetString("MONGODB_TIMEOUT"), 10*time.Second),
		CassandraHost:       v.GetString("CASSANDRA_HOST"),
		CassandraKeyspace:   v.GetString("CASSANDRA_KEYSPACE"),
		CassandraUsername:   v.GetString("CASSANDRA_USERNAME"),
		CassandraPassword:   v.GetString("CASSANDRA_PASSWORD"),
		CassandraTimeout:    parseDuration(v.GetString("CASSANDRA_TIMEOUT"), 10*time.Second),
		CassandraDC:         v.GetString("CASSANDRA_DC"),
		CassandraMigrations: v.GetString("CASSANDRA_MIGRATIONS"),
		KafkaEnabled:        v.GetBool("KAFKA_ENABLED"),
		KafkaBroker:         v.GetString("KAFKA_BROKER"),
		KafkaTopic:          v.GetString("KAFKA_TOPIC"),
		KafkaGroupID:        v.GetString("KAFKA_GROUP_ID"),
		KafkaReadTO:         parseDuration(v.GetString("KAFKA_READ_TIMEOUT"), 10*time.Second),
		KafkaWriteTO:        parseDuration(v.GetString("KAFKA_WRITE_TIMEOUT"), 10*time.Second),
		MediaDir:            v.GetString("MEDIA_DIR"),
		MediaMaxBytes:       v.GetInt64("MEDIA_MAX_BYTES"),
		WorkerCount:         v.GetInt("WORKER_COUNT"),
		WorkerQueue:         v.GetInt("WORKER_QUEUE"),
	}
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

// Validate reports configuration that the process cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMongo, DriverCassandra:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MediaMaxBytes <= 0 {
		return fmt.Errorf("MEDIA_MAX_BYTES must be positive")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	return nil
}

// UsesDefaultSecret is true when JWT_SECRET was not configured.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == defaultSecret
}

// Get returns the loaded config instance
func Get() *Config {
	return cfg
}
