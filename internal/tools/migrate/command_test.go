package migrate

import (
	"context"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func emptyDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:migrate_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func joined(lines []string) string { return strings.Join(lines, "\n") }

func TestPlanUpStatus(t *testing.T) {
	db := emptyDB(t)
	ctx := context.Background()

	planned, err := plan(ctx, nil, db)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !strings.Contains(joined(planned), "would create: users") {
		t.Fatalf("expected plan to list missing tables, got %v", planned)
	}

	before, err := status(ctx, nil, db)
	if err != nil {
		t.Fatalf("status before up: %v", err)
	}
	if !strings.Contains(joined(before), "pending tables:") {
		t.Fatalf("expected pending tables before up, got %v", before)
	}

	applied, err := up(ctx, nil, db)
	if err != nil {
		t.Fatalf("up: %v", err)
	}
	if !strings.Contains(joined(applied), "created: ") {
		t.Fatalf("expected up to report created tables, got %v", applied)
	}

	after, err := status(ctx, nil, db)
	if err != nil {
		t.Fatalf("status after up: %v", err)
	}
	out := joined(after)
	if strings.Contains(out, "pending") || !strings.Contains(out, "rows_users=0") || !strings.Contains(out, "dialect=sqlite") {
		t.Fatalf("unexpected status after up: %v", after)
	}

	again, err := up(ctx, nil, db)
	if err != nil || strings.Contains(joined(again), "created:") {
		t.Fatalf("expected second up to be a no-op, got %v err=%v", again, err)
	}
}
