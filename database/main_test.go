package database

import (
	"context"
	"log"
	"testing"

	"github.com/siherrmann/docgraph/helper"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

var dbPort string

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
}

func initStore(t *testing.T) *Store {
	store, err := NewStore(helper.TestDatabaseConfiguration(dbPort), 8, nil)
	require.NoError(t, err, "failed to create store")
	t.Cleanup(func() {
		store.db.Instance.Exec("TRUNCATE documents, chunks, vertices, graph_edges CASCADE")
		store.Close()
	})
	return store
}
