package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// testDatabaseURLEnv points at a migrated database; the projection tests
// are skipped when it is unset so the stub-based suites stay self-contained.
const testDatabaseURLEnv = "SEARCHSYNC_TEST_DATABASE_URL"

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(testDatabaseURLEnv)
	if dsn == "" {
		t.Skipf("%s not set, skipping database test", testDatabaseURLEnv)
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := pool.Ping(context.Background()); err != nil {
		t.Fatalf("test database unreachable: %v", err)
	}
	return pool
}

func TestRefreshPropagatesAssignmentsIntoProjection(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	sourceName := "test-src-" + uuid.NewString()
	objectID := sourceName + "-ef-1"
	workspace := uuid.New()

	t.Cleanup(func() {
		// Cascades drop the factor and assignment rows with the source.
		_, _ = pool.Exec(ctx, `DELETE FROM sources WHERE source_name = $1`, sourceName)
		_, _ = pool.Exec(ctx, `DELETE FROM search_projection WHERE source = $1`, sourceName)
	})

	if _, err := pool.Exec(ctx,
		`INSERT INTO sources (source_name, access_level) VALUES ($1, 'paid')`,
		sourceName,
	); err != nil {
		t.Fatalf("insert source: %v", err)
	}
	if _, err := pool.Exec(ctx,
		`INSERT INTO emission_factors (object_id, source, factor_value, name_en)
		 VALUES ($1, $2, 1.25, 'Crude steel')`,
		objectID, sourceName,
	); err != nil {
		t.Fatalf("insert factor: %v", err)
	}
	if _, err := pool.Exec(ctx,
		`INSERT INTO workspace_source_assignments (source_name, workspace_id)
		 VALUES ($1, $2)`,
		sourceName, workspace,
	); err != nil {
		t.Fatalf("insert assignment: %v", err)
	}

	repo := NewProjectionRepository(pool)
	if err := repo.Refresh(ctx, sourceName); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	records, err := repo.ListBySource(ctx, sourceName)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 projection row, got %d", len(records))
	}
	rec := records[0]
	if rec.ObjectID != objectID || rec.AccessLevel != "paid" {
		t.Fatalf("unexpected projection row: %+v", rec)
	}
	// Every index entry for the source must carry the assigned workspace.
	if len(rec.AssignedWorkspaceIDs) != 1 || rec.AssignedWorkspaceIDs[0] != workspace.String() {
		t.Fatalf("assignment did not propagate: %v", rec.AssignedWorkspaceIDs)
	}

	// Revoking the assignment and refreshing removes the workspace again.
	if _, err := pool.Exec(ctx,
		`DELETE FROM workspace_source_assignments WHERE source_name = $1 AND workspace_id = $2`,
		sourceName, workspace,
	); err != nil {
		t.Fatalf("delete assignment: %v", err)
	}
	if err := repo.Refresh(ctx, sourceName); err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}
	records, err = repo.ListBySource(ctx, sourceName)
	if err != nil {
		t.Fatalf("second list failed: %v", err)
	}
	if len(records) != 1 || len(records[0].AssignedWorkspaceIDs) != 0 {
		t.Fatalf("revocation did not propagate: %+v", records)
	}
}

func TestRefreshDropsDeletedFactorsFromProjection(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	sourceName := "test-src-" + uuid.NewString()
	objectID := sourceName + "-ef-1"

	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM sources WHERE source_name = $1`, sourceName)
		_, _ = pool.Exec(ctx, `DELETE FROM search_projection WHERE source = $1`, sourceName)
	})

	if _, err := pool.Exec(ctx,
		`INSERT INTO sources (source_name) VALUES ($1)`,
		sourceName,
	); err != nil {
		t.Fatalf("insert source: %v", err)
	}
	if _, err := pool.Exec(ctx,
		`INSERT INTO emission_factors (object_id, source) VALUES ($1, $2)`,
		objectID, sourceName,
	); err != nil {
		t.Fatalf("insert factor: %v", err)
	}

	repo := NewProjectionRepository(pool)
	if err := repo.Refresh(ctx, sourceName); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	records, err := repo.ListBySource(ctx, sourceName)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 projection row, got %d", len(records))
	}

	if _, err := pool.Exec(ctx,
		`DELETE FROM emission_factors WHERE object_id = $1`, objectID,
	); err != nil {
		t.Fatalf("delete factor: %v", err)
	}
	if err := repo.Refresh(ctx, sourceName); err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}
	records, err = repo.ListBySource(ctx, sourceName)
	if err != nil {
		t.Fatalf("second list failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("deleted factor still projected: %+v", records)
	}
}
