//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"gemvault/internal/kvstore"
)

type integrationEnv struct {
	client *redis.Client
	store  kvstore.Store
}

var suite *integrationEnv

func TestMain(m *testing.M) {
	env, err := buildIntegrationEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration setup failed: %v\n", err)
		os.Exit(1)
	}
	suite = env

	code := m.Run()

	if suite != nil && suite.client != nil {
		_ = suite.client.Close()
	}

	os.Exit(code)
}

func buildIntegrationEnv() (*integrationEnv, error) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, err
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		return nil, err
	}

	client, err := kvstore.ConnectRedis(ctx, fmt.Sprintf("%s:%s", host, port.Port()), "", 0)
	if err != nil {
		return nil, err
	}

	return &integrationEnv{
		client: client,
		store:  kvstore.NewRedis(client),
	}, nil
}

func getEnv(t *testing.T) *integrationEnv {
	t.Helper()
	if suite == nil {
		t.Fatal("integration environment not initialized")
	}
	return suite
}
