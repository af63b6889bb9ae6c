// Package sqlite is the embedded store used for local development and tests.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"komunitas/pendataan/internal/model"
)

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// New opens the store at path. An empty path opens a private in-memory
// database.
func New(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	if path != "" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection also keeps the
	// in-memory database alive for the lifetime of the store
	sqlDB.SetMaxOpenConns(1)
	return &Store{db: db, logger: logger}, nil
}

var migrateModels = []any{
	&model.Account{},
	&model.Submission{},
	&model.StatusChange{},
	&model.Post{},
}

func (s *Store) Migrate(ctx context.Context) error {
	for _, m := range migrateModels {
		s.logger.Debug(fmt.Sprintf("creating table: %T", m))
		if err := s.db.WithContext(ctx).AutoMigrate(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var uniqueColumns = []struct {
	column string
	err    error
}{
	{"submissions.nik", model.ErrDuplicateNIK},
	{"submissions.nomor_kk", model.ErrDuplicateKK},
	{"submissions.user_id", model.ErrAccountLinked},
	{"posts.slug", model.ErrDuplicateSlug},
	{"accounts.email", model.ErrDuplicateEmail},
}

// mapError converts gorm and sqlite errors into store errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ErrNotFound
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		for _, unique := range uniqueColumns {
			if strings.Contains(msg, unique.column) {
				return unique.err
			}
		}
	}
	return err
}
