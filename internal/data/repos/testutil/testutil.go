package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/skooly-backend/internal/data/db"
	"github.com/yungbote/skooly-backend/internal/domain"
	"github.com/yungbote/skooly-backend/internal/platform/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error

	dbSeq atomic.Int64
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB opens a fresh, migrated in-memory SQLite database private to the test.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	name := fmt.Sprintf("file:skooly_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	// One connection keeps the in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrateAll(gdb); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return gdb
}

func SeedMaterial(tb testing.TB, ctx context.Context, tx *gorm.DB, uploaderID string, mutate ...func(*domain.Material)) *domain.Material {
	tb.Helper()
	m := &domain.Material{
		Title:      "Intro to Recursion",
		CourseName: "CS101",
		Category:   domain.CategoryTheory,
		Type:       domain.TypeText,
		Topic:      "recursion",
		Week:       1,
		Tags:       datatypes.JSON([]byte(`["cs"]`)),
		Content:    "Recursion is a function calling itself.",
		UploaderID: uploaderID,
	}
	for _, fn := range mutate {
		fn(m)
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed material: %v", err)
	}
	return m
}

func SeedChunk(tb testing.TB, ctx context.Context, tx *gorm.DB, materialID uuid.UUID, index int, content string) *domain.EmbeddingChunk {
	tb.Helper()
	c := &domain.EmbeddingChunk{
		MaterialID: materialID,
		ChunkIndex: index,
		Content:    content,
		Dimensions: 3,
		Metadata:   datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed chunk: %v", err)
	}
	return c
}
