package repository

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lshigami/examflow/internal/model"
)

// sqlCapture records the statements gorm builds without sending them anywhere.
type sqlCapture struct {
	mu   sync.Mutex
	sql  []string
	vars [][]interface{}
}

func (c *sqlCapture) last(t *testing.T) (string, []interface{}) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sql) == 0 {
		t.Fatal("no statement was built")
	}
	return c.sql[len(c.sql)-1], c.vars[len(c.vars)-1]
}

func newDryRunDB(t *testing.T) (*gorm.DB, *sqlCapture) {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=examflow dbname=examflow sslmode=disable",
	}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}
	capture := &sqlCapture{}
	record := func(db *gorm.DB) {
		capture.mu.Lock()
		capture.sql = append(capture.sql, db.Statement.SQL.String())
		capture.vars = append(capture.vars, db.Statement.Vars)
		capture.mu.Unlock()
	}
	if err := db.Callback().Update().After("gorm:update").Register("test:capture_update", record); err != nil {
		t.Fatalf("register update capture: %v", err)
	}
	if err := db.Callback().Create().After("gorm:create").Register("test:capture_create", record); err != nil {
		t.Fatalf("register create capture: %v", err)
	}
	return db, capture
}

func assertContains(t *testing.T, sql string, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		if !strings.Contains(sql, f) {
			t.Errorf("expected %q in\n%s", f, sql)
		}
	}
}

func hasVar(vars []interface{}, want interface{}) bool {
	for _, v := range vars {
		if v == want {
			return true
		}
	}
	return false
}

func TestGormUnitTransitionsAreConditional(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	testCases := []struct {
		name      string
		run       func(repo EvaluationUnitRepository) (bool, error)
		fragments []string
		vars      []interface{}
	}{
		{
			name: "claim takes pending, failed or stale in_flight units",
			run: func(repo EvaluationUnitRepository) (bool, error) {
				_, ok, err := repo.Claim(ctx, "sub-1", 3, now.Add(-10*time.Minute), now)
				return ok, err
			},
			fragments: []string{`UPDATE "evaluation_units"`, "submission_id = $", "part_id = $", "status IN ($", "claimed_at < $", "attempts + 1"},
			vars:      []interface{}{model.UnitPending, model.UnitFailed, model.UnitInFlight},
		},
		{
			name: "complete never overwrites a complete unit",
			run: func(repo EvaluationUnitRepository) (bool, error) {
				return repo.Complete(ctx, "sub-1", 3, model.EvaluationResult{SubScore: 6, Evaluator: "key"}, now)
			},
			fragments: []string{`UPDATE "evaluation_units"`, "status <> $", `"sub_score"=$`},
			vars:      []interface{}{model.UnitComplete},
		},
		{
			name: "fail only moves in_flight units",
			run: func(repo EvaluationUnitRepository) (bool, error) {
				return repo.Fail(ctx, "sub-1", 3, "timed out", now)
			},
			fragments: []string{`UPDATE "evaluation_units"`, "status = $", `"last_error"=$`},
			vars:      []interface{}{model.UnitInFlight, model.UnitFailed, "timed out"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, capture := newDryRunDB(t)
			ok, err := tc.run(NewEvaluationUnitRepository(db))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok {
				t.Errorf("a statement that was never executed cannot report a write")
			}
			sql, vars := capture.last(t)
			assertContains(t, sql, tc.fragments...)
			for _, v := range tc.vars {
				if !hasVar(vars, v) {
					t.Errorf("expected bound value %v in %v", v, vars)
				}
			}
		})
	}
}

func TestGormEnsureUnitsSkipsExistingPairs(t *testing.T) {
	db, capture := newDryRunDB(t)
	repo := NewEvaluationUnitRepository(db)
	if err := repo.EnsureUnits(context.Background(), "sub-1", []uint{1, 2}); err != nil {
		t.Fatalf("EnsureUnits: %v", err)
	}
	sql, _ := capture.last(t)
	assertContains(t, sql, `INSERT INTO "evaluation_units"`, `ON CONFLICT ("submission_id","part_id") DO NOTHING`)
}

func TestGormSaveAggregateComparesFingerprint(t *testing.T) {
	db, capture := newDryRunDB(t)
	repo := NewSubmissionRepository(db)
	band := 6.5
	ok, err := repo.SaveAggregate(context.Background(), "sub-1", "old-fingerprint", AggregateUpdate{
		Score:       6.5,
		Band:        &band,
		Fingerprint: "new-fingerprint",
		Status:      model.SubmissionCompleted,
		At:          time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("SaveAggregate: %v", err)
	}
	if ok {
		t.Errorf("a statement that was never executed cannot report a write")
	}
	sql, vars := capture.last(t)
	assertContains(t, sql, `UPDATE "submissions"`, "aggregate_fingerprint = $", `"aggregate_score"=$`, `"status"=$`)
	for _, v := range []interface{}{"old-fingerprint", "new-fingerprint", "sub-1"} {
		if !hasVar(vars, v) {
			t.Errorf("expected bound value %v in %v", v, vars)
		}
	}
}
