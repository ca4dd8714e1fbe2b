// This file is a helper for running tests against a containerized metadata database.
// It is used by the standalone cmd/testcontainers executable and by the integration tests.
// Expects environment variables to be loaded from .env files, with defaults for local runs.
//

package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/localnerve/sheetsdb/data"
	"github.com/localnerve/sheetsdb/internal/config"
)

// Defaults used when the environment does not name them
var containerDefaults = map[string]string{
	"DB_TYPE":          "mariadb",
	"DB_HOST":          "metadb",
	"DB_PORT":          "3306",
	"DB_IMAGE":         "mariadb:11.4",
	"DB_ROOT_PASSWORD": "sheetsdb-root",
	"DB_APP_DATABASE":  "sheetsdb",
	"DB_APP_USER":      "sheetsdb_app",
	"DB_APP_PASSWORD":  "sheetsdb-app",
	"DB_USER":          "sheetsdb_user",
	"DB_PASSWORD":      "sheetsdb-user",
	"AUTHZ_DATABASE":   "authorizer",
	"AUTHZ_PORT":       "8080",
	"AUTHZ_IMAGE":      "lakhansamani/authorizer:1.4.4",
	"AUTHZ_CLIENT_ID":  "sheetsdb-test-client",
}

// ContainerOptions selects the optional containers
type ContainerOptions struct {
	Authorizer bool
}

// TestContainers holds the running containers and their host-mapped addresses
type TestContainers struct {
	Network             *testcontainers.DockerNetwork
	DBContainer         testcontainers.Container
	AuthorizerContainer testcontainers.Container

	DBHost   string
	DBPort   string
	AuthzURL string
}

// Getenv reads a container setting, falling back to the local default
func Getenv(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return containerDefaults[key]
}

// DockerAvailable reports whether a docker daemon answers a ping
func DockerAvailable(ctx context.Context) bool {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err = cli.Ping(ctx)
	return err == nil
}

// RequireDocker skips the test in short mode or when docker is not reachable
func RequireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	if !DockerAvailable(context.Background()) {
		t.Skip("skipping container test, docker is not available")
	}
}

// Config returns a service configuration that reaches the containers from the host
func (tc *TestContainers) Config() *config.Config {
	return &config.Config{
		Port:                 "0",
		DBType:               Getenv("DB_TYPE"),
		DBHost:               tc.DBHost,
		DBPort:               tc.DBPort,
		DBAppDatabase:        Getenv("DB_APP_DATABASE"),
		DBAppUser:            Getenv("DB_APP_USER"),
		DBAppPassword:        Getenv("DB_APP_PASSWORD"),
		DBAppConnectionLimit: 5,
		DBUser:               Getenv("DB_USER"),
		DBPassword:           Getenv("DB_PASSWORD"),
		DBConnectionLimit:    5,
		DBLogLevel:           "silent",
		AuthzURL:             tc.AuthzURL,
		AuthzClientID:        Getenv("AUTHZ_CLIENT_ID"),
		SheetsBackend:        config.BackendMemory,
		StoreTimeout:         5 * time.Second,
		RowIDStrategy:        config.RowIDOffset,
		SerializeWrites:      true,
		LogLevel:             "warn",
		LogFormat:            "text",
	}
}

// Terminate stops every started container and removes the network
func (tc *TestContainers) Terminate(t *testing.T) {
	ctx := context.Background()
	if tc.AuthorizerContainer != nil {
		if err := tc.AuthorizerContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate Authorizer: %v", err)
		}
	}
	if tc.DBContainer != nil {
		if err := tc.DBContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate metadata database: %v", err)
		}
	}
	if tc.Network != nil {
		if err := tc.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// CreateAllTestContainers starts the metadata database, initializes its schema and
// users, and optionally starts an Authorizer for the management API
func CreateAllTestContainers(t *testing.T, opts ContainerOptions) (*TestContainers, error) {
	ctx := context.Background()
	tc := &TestContainers{}

	nw, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create network: %w", err)
	}
	tc.Network = nw
	networkName := nw.Name

	dbType := Getenv("DB_TYPE")
	dbNetworkName := Getenv("DB_HOST")
	tcpDbPort, err := nat.NewPort("tcp", Getenv("DB_PORT"))
	if err != nil {
		tc.Terminate(t)
		return nil, fmt.Errorf("failed to create DB port: %w", err)
	}

	dbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        Getenv("DB_IMAGE"),
			ExposedPorts: []string{string(tcpDbPort)},
			Env:          getDBInitEnvMap(dbType),
			WaitingFor:   wait.ForListeningPort(tcpDbPort).WithStartupTimeout(90 * time.Second),
			Networks:     []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {dbNetworkName},
			},
		},
		Started: true,
	})
	if err != nil {
		tc.Terminate(t)
		return nil, fmt.Errorf("failed to start metadata database: %w", err)
	}
	tc.DBContainer = dbContainer

	dbHost, err := dbContainer.Host(ctx)
	if err != nil {
		tc.Terminate(t)
		return nil, fmt.Errorf("failed to resolve database host: %w", err)
	}
	dbPort, err := dbContainer.MappedPort(ctx, tcpDbPort)
	if err != nil {
		tc.Terminate(t)
		return nil, fmt.Errorf("failed to resolve database port: %w", err)
	}
	tc.DBHost, tc.DBPort = dbHost, dbPort.Port()

	switch dbType {
	case "postgres":
		err = performPostgresDBInit(tc.DBHost, tc.DBPort)
	case "mysql", "mariadb":
		err = performMySqlDBInit(tc.DBHost, tc.DBPort)
	default:
		err = fmt.Errorf("unsupported container DB_TYPE: %s", dbType)
	}
	if err != nil {
		tc.Terminate(t)
		return nil, fmt.Errorf("failed to initialize metadata database: %w", err)
	}
	logMessage(t, "DB_HOST=%s DB_PORT=%s", tc.DBHost, tc.DBPort)

	if opts.Authorizer {
		if err := startAuthorizer(ctx, tc, networkName, dbType, dbNetworkName); err != nil {
			tc.Terminate(t)
			return nil, err
		}
		logMessage(t, "AUTHZ_URL=%s", tc.AuthzURL)
	}

	logMessage(t, "sheetsdb testcontainers started successfully")
	return tc, nil
}

func startAuthorizer(ctx context.Context, tc *TestContainers, networkName, dbType, dbNetworkName string) error {
	tcpAuthzPort, err := nat.NewPort("tcp", Getenv("AUTHZ_PORT"))
	if err != nil {
		return fmt.Errorf("failed to create Authorizer port: %w", err)
	}

	var authzDbConnection string
	switch dbType {
	case "postgres":
		authzDbConnection = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			Getenv("DB_APP_USER"), Getenv("DB_APP_PASSWORD"), dbNetworkName, Getenv("DB_PORT"), Getenv("AUTHZ_DATABASE"))
	default:
		authzDbConnection = fmt.Sprintf("root:%s@tcp(%s:%s)/%s",
			Getenv("DB_ROOT_PASSWORD"), dbNetworkName, Getenv("DB_PORT"), Getenv("AUTHZ_DATABASE"))
	}

	authzLogLevel := "info"
	if os.Getenv("DEBUG_CONTAINER") == "true" {
		authzLogLevel = "debug"
	}

	authorizerContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        Getenv("AUTHZ_IMAGE"),
			ExposedPorts: []string{string(tcpAuthzPort)},
			Env: map[string]string{
				"ENV":           "production",
				"CLIENT_ID":     Getenv("AUTHZ_CLIENT_ID"),
				"PORT":          Getenv("AUTHZ_PORT"),
				"DATABASE_TYPE": dbType,
				"DATABASE_NAME": Getenv("AUTHZ_DATABASE"),
				"DATABASE_URL":  authzDbConnection,
				"ADMIN_SECRET":  Getenv("AUTHZ_ADMIN_SECRET"),
				"ROLES":         "admin,user",
				"DEFAULT_ROLES": "user",
				"LOG_LEVEL":     authzLogLevel,
			},
			WaitingFor: wait.ForLog("Authorizer running at PORT:").WithStartupTimeout(30 * time.Second),
			Networks:   []string{networkName},
			NetworkAliases: map[string][]string{
				networkName: {"authorizer"},
			},
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start Authorizer: %w", err)
	}
	tc.AuthorizerContainer = authorizerContainer

	authzHost, _ := authorizerContainer.Host(ctx)
	authzPort, _ := authorizerContainer.MappedPort(ctx, tcpAuthzPort)
	tc.AuthzURL = fmt.Sprintf("http://%s:%s", authzHost, authzPort.Port())
	return nil
}

func getDBInitEnvMap(dbType string) map[string]string {
	switch dbType {
	case "postgres":
		return map[string]string{
			"POSTGRES_PASSWORD": Getenv("DB_APP_PASSWORD"),
			"POSTGRES_USER":     Getenv("DB_APP_USER"),
			"POSTGRES_DB":       Getenv("DB_APP_DATABASE"),
		}
	default:
		return map[string]string{
			"MYSQL_ROOT_PASSWORD": Getenv("DB_ROOT_PASSWORD"),
			"MYSQL_DATABASE":      Getenv("DB_APP_DATABASE"),
			"MYSQL_USER":          Getenv("DB_APP_USER"),
			"MYSQL_PASSWORD":      Getenv("DB_APP_PASSWORD"),
		}
	}
}

func initScriptVars() map[string]string {
	return map[string]string{
		"DB_APP_DATABASE": Getenv("DB_APP_DATABASE"),
		"DB_APP_USER":     Getenv("DB_APP_USER"),
		"DB_USER":         Getenv("DB_USER"),
	}
}

func waitForDB(db *sql.DB) error {
	var err error
	for i := 0; i < 30; i++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(1 * time.Second)
	}
	return fmt.Errorf("database not ready after 30 seconds: %w", err)
}

func performMySqlDBInit(dbHost, dbPort string) error {
	db, err := sql.Open("mysql", fmt.Sprintf("root:%s@tcp(%s:%s)/", Getenv("DB_ROOT_PASSWORD"), dbHost, dbPort))
	if err != nil {
		return fmt.Errorf("failed to connect as root: %w", err)
	}
	defer db.Close()

	if err := waitForDB(db); err != nil {
		return err
	}

	statements := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", Getenv("DB_APP_DATABASE")),
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", Getenv("AUTHZ_DATABASE")),
		fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'%%' IDENTIFIED BY '%s'", Getenv("DB_USER"), Getenv("DB_PASSWORD")),
		fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'%%' IDENTIFIED BY '%s'", Getenv("DB_APP_USER"), Getenv("DB_APP_PASSWORD")),
	}
	for _, statement := range statements {
		if _, err := db.Exec(statement); err != nil {
			return fmt.Errorf("%w : when executing > %s", err, statement)
		}
	}

	vars := initScriptVars()
	if err := executeSQL(db, data.Expand(data.InitdbMariaDBTables, vars)); err != nil {
		return fmt.Errorf("tables init sql: %w", err)
	}
	if err := executeSQL(db, data.Expand(data.InitdbMariaDBPrivileges, vars)); err != nil {
		return fmt.Errorf("privileges init sql: %w", err)
	}
	return nil
}

func performPostgresDBInit(dbHost, dbPort string) error {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		Getenv("DB_APP_USER"), Getenv("DB_APP_PASSWORD"), dbHost, dbPort, Getenv("DB_APP_DATABASE"))
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect as owner: %w", err)
	}
	defer db.Close()

	if err := waitForDB(db); err != nil {
		return err
	}

	var exists bool
	if err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)", Getenv("DB_USER")).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up role %s: %w", Getenv("DB_USER"), err)
	}
	if !exists {
		statement := fmt.Sprintf("CREATE USER %s WITH PASSWORD '%s'", Getenv("DB_USER"), Getenv("DB_PASSWORD"))
		if _, err := db.Exec(statement); err != nil {
			return fmt.Errorf("failed to create user %s: %w", Getenv("DB_USER"), err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE %s", Getenv("AUTHZ_DATABASE"))); err != nil &&
		!strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create %s: %w", Getenv("AUTHZ_DATABASE"), err)
	}

	vars := initScriptVars()
	if err := executeSQL(db, data.Expand(data.InitdbPostgresTables, vars)); err != nil {
		return fmt.Errorf("tables init sql: %w", err)
	}
	if err := executeSQL(db, data.Expand(data.InitdbPostgresPrivileges, vars)); err != nil {
		return fmt.Errorf("privileges init sql: %w", err)
	}
	return nil
}

// executeSQL runs each statement of a script with line comments removed
func executeSQL(db *sql.DB, script string) error {
	lines := strings.Split(script, "\n")

	stripped := make([]string, 0, len(lines))
	for _, l := range lines {
		stripped = append(stripped, excludeComment(l))
	}

	queries := strings.Split(strings.Join(stripped, "\n"), ";")
	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("%w : when executing > %s", err, q)
		}
	}
	return nil
}

// excludeComment drops a trailing "--" comment that is not inside a quoted string
func excludeComment(line string) string {
	var quote rune
	for i, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '-' && strings.HasPrefix(line[i:], "--"):
			return line[:i]
		}
	}
	return line
}

func logMessage(t *testing.T, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
