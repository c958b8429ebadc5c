package clickhouse

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestConn starts a throwaway ClickHouse server with the snapshot schema
// applied. Container and connection are released through t.Cleanup.
func newTestConn(t *testing.T) *Conn {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	ctr, err := testcontainers.Run(ctx, "clickhouse/clickhouse-server:24.1-alpine",
		testcontainers.WithExposedPorts("9000/tcp"),
		testcontainers.WithEnv(map[string]string{
			"CLICKHOUSE_DB":                        "test",
			"CLICKHOUSE_USER":                      "default",
			"CLICKHOUSE_DEFAULT_ACCESS_MANAGEMENT": "1",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForLog("Ready for connections"),
				wait.ForListeningPort("9000/tcp"),
			).WithDeadline(90*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start clickhouse container")

	endpoint, err := ctr.PortEndpoint(ctx, "9000/tcp", "clickhouse")
	require.NoError(t, err)

	conn, err := NewConn(ctx, endpoint+"/test")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	for _, stmt := range schemaStatements(t) {
		require.NoError(t, conn.Exec(ctx, stmt))
	}
	return conn
}

// schemaStatements reads the ClickHouse migrations from the source tree.
// They cannot come from the migrations package, which imports this one.
func schemaStatements(t *testing.T) []string {
	t.Helper()

	files, err := fs.Glob(os.DirFS(moduleRoot(t)), "internal/storage/migrations/clickhouse/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	var stmts []string
	for _, file := range files {
		data, err := os.ReadFile(filepath.Join(moduleRoot(t), file))
		require.NoError(t, err)

		var body strings.Builder
		for _, line := range strings.Split(string(data), "\n") {
			if !strings.HasPrefix(strings.TrimSpace(line), "--") {
				body.WriteString(line)
				body.WriteByte('\n')
			}
		}
		for _, stmt := range strings.Split(body.String(), ";") {
			if stmt = strings.TrimSpace(stmt); stmt != "" {
				stmts = append(stmts, stmt)
			}
		}
	}
	return stmts
}

func moduleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, dir, parent, "go.mod not found above test directory")
		dir = parent
	}
}
