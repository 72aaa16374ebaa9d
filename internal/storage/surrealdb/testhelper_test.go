package surrealdb

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/assessor/internal/common"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	surrealOnce      sync.Once
	surrealContainer testcontainers.Container
	surrealAddress   string
	surrealError     error
)

// startSurrealDB starts a shared SurrealDB container for the test run, once
// per process, and returns its WebSocket RPC address.
func startSurrealDB(t *testing.T) string {
	t.Helper()

	surrealOnce.Do(func() {
		ctx := context.Background()

		req := testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--user", "root", "--pass", "root"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("8000/tcp"),
				wait.ForLog("Started web server"),
			).WithDeadline(60 * time.Second),
		}

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			surrealError = fmt.Errorf("start SurrealDB container: %w", err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			container.Terminate(ctx)
			surrealError = fmt.Errorf("get SurrealDB host: %w", err)
			return
		}

		mappedPort, err := container.MappedPort(ctx, "8000/tcp")
		if err != nil {
			container.Terminate(ctx)
			surrealError = fmt.Errorf("get SurrealDB port: %w", err)
			return
		}

		surrealContainer = container
		surrealAddress = fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port())
	})

	if surrealError != nil {
		t.Fatalf("SurrealDB container failed: %v", surrealError)
	}
	return surrealAddress
}

// testManager skips unless integration tests are explicitly enabled, then
// returns a Manager wired against a fresh namespace/database on the shared
// container so tests don't trample each other's rows.
func testManager(t *testing.T) *Manager {
	t.Helper()

	if os.Getenv("ASSESSOR_TEST_SURREALDB") != "true" {
		t.Skip("SurrealDB integration tests disabled (set ASSESSOR_TEST_SURREALDB=true to enable)")
	}

	address := startSurrealDB(t)

	config := &common.Config{
		Storage: common.StorageConfig{
			Address:   address,
			Username:  "root",
			Password:  "root",
			Namespace: "test",
			Database:  fmt.Sprintf("db_%d", time.Now().UnixNano()),
		},
	}

	logger := common.NewLogger("error")
	manager, err := NewManager(logger, config)
	if err != nil {
		t.Fatalf("connect to SurrealDB: %v", err)
	}
	t.Cleanup(func() { manager.Close() })
	return manager
}
