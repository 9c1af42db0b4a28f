package postgres_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/veritaschain/veritaschain/internal/hash"
	"github.com/veritaschain/veritaschain/internal/model"
	"github.com/veritaschain/veritaschain/internal/store/postgres"
)

// testStore holds a shared test store connection for all tests in this package.
var testStore *postgres.Store

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "veritas",
			"POSTGRES_PASSWORD": "veritas",
			"POSTGRES_DB":       "veritas",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start container: %v\n", err)
		os.Exit(1)
	}
	defer container.Terminate(ctx)

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get container port: %v\n", err)
		os.Exit(1)
	}
	dsn := fmt.Sprintf("postgres://veritas:veritas@%s:%s/veritas?sslmode=disable", host, port.Port())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	testStore, err = postgres.Open(ctx, dsn, "main", logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func strPtr(s string) *string { return &s }

func TestStore_PutGetEntity(t *testing.T) {
	ctx := context.Background()
	label := "Acme Corp"
	e := model.Entity{
		LogicalID: "entity-" + t.Name(),
		Version:   "v1",
		Label:     label,
		TypeHint:  strPtr("organization"),
	}
	h, err := hash.Entity(e)
	require.NoError(t, err)

	require.NoError(t, testStore.Entities().Put(ctx, h, e))

	// Put is idempotent on an identical payload.
	require.NoError(t, testStore.Entities().Put(ctx, h, e))

	got, err := testStore.Entities().Get(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, e.Label, got.Label)

	latest, err := testStore.Entities().GetLatest(ctx, e.LogicalID)
	require.NoError(t, err)
	assert.Equal(t, e.Version, latest.Version)
}

func TestStore_PutHashCollisionRejected(t *testing.T) {
	ctx := context.Background()
	e1 := model.Entity{LogicalID: "collide-" + t.Name(), Version: "v1", Label: "A", TypeHint: strPtr("concept")}
	e2 := model.Entity{LogicalID: "collide-" + t.Name(), Version: "v1", Label: "B", TypeHint: strPtr("concept")}

	require.NoError(t, testStore.Entities().Put(ctx, "sha256:deadbeef", e1))
	err := testStore.Entities().Put(ctx, "sha256:deadbeef", e2)
	require.Error(t, err)
}

func TestStore_VersionChain(t *testing.T) {
	ctx := context.Background()
	logicalID := "chain-" + t.Name()
	root := model.Entity{LogicalID: logicalID, Version: "v1", Label: "root", TypeHint: strPtr("concept")}
	rootHash, err := hash.Entity(root)
	require.NoError(t, err)
	require.NoError(t, testStore.Entities().Put(ctx, rootHash, root))

	child := model.Entity{LogicalID: logicalID, Version: "v2", Label: "child", TypeHint: strPtr("concept"), PreviousVersion: &rootHash}
	childHash, err := hash.Entity(child)
	require.NoError(t, err)
	require.NoError(t, testStore.Entities().Put(ctx, childHash, child))

	versions, err := testStore.Entities().FindByLogicalID(ctx, logicalID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "v1", versions[0].Version)
	assert.Equal(t, "v2", versions[1].Version)
}

func TestStore_BranchLifecycle(t *testing.T) {
	ctx := context.Background()
	name := "feature-" + t.Name()
	require.NoError(t, testStore.Branches().CreateBranch(ctx, model.Branch{Name: name, Head: "", Author: "tester"}))

	err := testStore.Branches().CreateBranch(ctx, model.Branch{Name: name})
	require.Error(t, err)

	require.NoError(t, testStore.Branches().UpdateBranch(ctx, name, "sha256:abc123"))
	br, err := testStore.Branches().GetBranch(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "sha256:abc123", br.Head)

	require.NoError(t, testStore.Branches().DeleteBranch(ctx, name))
	_, err = testStore.Branches().GetBranch(ctx, name)
	require.Error(t, err)
}

func TestStore_RepositoryHead(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testStore.Repository().SetCurrentBranch(ctx, "develop"))
	branch, err := testStore.Repository().CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "develop", branch)

	require.NoError(t, testStore.Repository().SetCurrentBranch(ctx, "main"))
}
