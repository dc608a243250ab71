package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	config "example.com/tweetfeed/internal/init"
	"github.com/gocql/gocql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/cassandra"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

type SessionInterface interface {
	Query(stmt string, values ...interface{}) *gocql.Query
	NewBatch(batchType gocql.BatchType) *gocql.Batch
	ExecuteBatch(batch *gocql.Batch) error
	Close()
}

// Rows is the part of *gocql.Iter the store reads rows through.
type Rows interface {
	Scan(dest ...interface{}) bool
	Close() error
}

// cqlRunner executes single statements. sessionRunner is the production
// implementation; tests record statements instead.
type cqlRunner interface {
	Exec(ctx context.Context, stmt string, values ...interface{}) error
	ExecCAS(ctx context.Context, stmt string, values ...interface{}) (bool, error)
	Iter(ctx context.Context, stmt string, values ...interface{}) Rows
}

type sessionRunner struct {
	session SessionInterface
}

func (r sessionRunner) Exec(ctx context.Context, stmt string, values ...interface{}) error {
	return r.session.Query(stmt, values...).WithContext(ctx).Exec()
}

// ExecCAS runs a lightweight transaction and reports whether it took effect.
func (r sessionRunner) ExecCAS(ctx context.Context, stmt string, values ...interface{}) (bool, error) {
	return r.session.Query(stmt, values...).WithContext(ctx).MapScanCAS(map[string]interface{}{})
}

func (r sessionRunner) Iter(ctx context.Context, stmt string, values ...interface{}) Rows {
	return r.session.Query(stmt, values...).WithContext(ctx).Iter()
}

// CassandraStore keeps users and tweets in wide rows. Relationship arrays
// are set<text> columns, replies is a list<text>.
type CassandraStore struct {
	Session SessionInterface
	cql     cqlRunner
}

func (s *CassandraStore) runner() cqlRunner {
	if s.cql != nil {
		return s.cql
	}
	return sessionRunner{session: s.Session}
}

// NewCassandra initializes the Cassandra connection and applies migrations.
func NewCassandra(cfg *config.Config) (*CassandraStore, error) {
	if err := ensureKeyspace(cfg); err != nil {
		return nil, fmt.Errorf("failed to ensure keyspace: %w", err)
	}

	if err := runMigrations(cfg); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cluster := newCluster(cfg)
	cluster.Keyspace = cfg.CassandraKeyspace
	cluster.Consistency = gocql.Quorum

	sess, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create Cassandra session: %w", err)
	}

	logg.Info("store", "Connected to Cassandra keyspace (host anonymized)")
	return &CassandraStore{Session: sess, cql: sessionRunner{session: sess}}, nil
}

func newCluster(cfg *config.Config) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.CassandraHost)
	cluster.Timeout = cfg.CassandraTimeout
	cluster.ConnectTimeout = cfg.CassandraTimeout

	if cfg.CassandraUsername != "" && cfg.CassandraPassword != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.CassandraUsername,
			Password: cfg.CassandraPassword,
		}
	}

	if cfg.CassandraDC != "" {
		cluster.HostFilter = gocql.DataCentreHostFilter(cfg.CassandraDC)
	}
	return cluster
}

// --- Ensure keyspace exists before migrations ---

func ensureKeyspace(cfg *config.Config) error {
	cluster := newCluster(cfg)
	cluster.Keyspace = "system"
	sess, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("failed to connect to Cassandra system keyspace: %w", err)
	}
	defer sess.Close()

	query := fmt.Sprintf(`
        CREATE KEYSPACE IF NOT EXISTS %s
        WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1};
    `, cfg.CassandraKeyspace)

	if err := sess.Query(query).Exec(); err != nil {
		return fmt.Errorf("failed to create keyspace: %w", err)
	}

	logg.Info("store", "Ensured Cassandra keyspace exists (keyspace name anonymized)")
	return nil
}

// --- Migration runner ---

func runMigrations(cfg *config.Config) error {
	sourceURL := "file://" + filepath.ToSlash(cfg.CassandraMigrations)
	dbURL := fmt.Sprintf(
		"cassandra://%s/%s?x-migrations-table=schema_migrations&x-multi-statement=true",
		cfg.CassandraHost, cfg.CassandraKeyspace,
	)

	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logg.Info("store", "No new migrations to apply")
	} else {
		logg.Info("store", "Migrations applied successfully")
	}
	return nil
}

// Close gracefully closes Cassandra session.
func (s *CassandraStore) Close() {
	if s.Session != nil {
		s.Session.Close()
		logg.Info("store", "Cassandra session closed")
	}
}
