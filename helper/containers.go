package helper

import (
	"context"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDBName     = "granthika"
	testDBUser     = "granthika"
	testDBPassword = "granthika"
)

// MustStartPostgresContainer starts a disposable Postgres container with the
// pgvector extension available and returns a teardown function together with
// the mapped host port
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	container, err := postgres.Run(
		ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase(testDBName),
		postgres.WithUsername(testDBUser),
		postgres.WithPassword(testDBPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", NewError("start postgres container", err)
	}

	mappedPort, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return container.Terminate, "", NewError("get mapped port", err)
	}

	return container.Terminate, mappedPort.Port(), nil
}

// envSetter is the slice of testing.T used to scope env overrides to a
// test, without pulling the testing package into consumer binaries.
type envSetter interface {
	Setenv(key string, value string)
}

// SetTestDatabaseConfigEnvs sets the environment variables read by
// NewDatabaseConfiguration to point at the test container
func SetTestDatabaseConfigEnvs(t envSetter, port string) {
	t.Setenv("GRANTHIKA_DB_HOST", "localhost")
	t.Setenv("GRANTHIKA_DB_PORT", port)
	t.Setenv("GRANTHIKA_DB_USER", testDBUser)
	t.Setenv("GRANTHIKA_DB_PASSWORD", testDBPassword)
	t.Setenv("GRANTHIKA_DB_NAME", testDBName)
}
