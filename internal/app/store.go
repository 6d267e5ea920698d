package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/taskman/internal/config"
	"github.com/hitoshi/taskman/internal/database"
	"github.com/hitoshi/taskman/internal/handler"
	"github.com/hitoshi/taskman/internal/repository"
)

// store は接続文字列のスキームで選択したCredential Storeの実装を束ねる。
type store struct {
	driver database.Driver
	users  repository.UserRepository
	tasks  repository.TaskRepository
	health handler.HealthChecker
	close  func() error
}

// openStore はDB_CONNECTION_STRINGのスキームに応じてCredential Storeを開く。
// SQLiteはスキーマを、MongoDBはインデックスを接続時に適用する。
// PostgreSQLのスキーマはmigrateサブコマンドで適用する。
func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	driver, err := database.DriverFromURL(cfg.DBConnectionString)
	if err != nil {
		return nil, err
	}

	if driver == database.DriverMongo {
		db, err := database.OpenMongo(ctx, cfg.DBConnectionString, cfg.DBName)
		if err != nil {
			return nil, err
		}
		return &store{
			driver: driver,
			users:  repository.NewMongoUserRepo(db),
			tasks:  repository.NewMongoTaskRepo(db),
			health: database.MongoPinger{DB: db},
			close:  func() error { return database.CloseMongo(db) },
		}, nil
	}

	db, dialect, err := database.Open(cfg.DBConnectionString)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &store{
		driver: driver,
		users:  repository.NewSQLUserRepo(db, dialect),
		tasks:  repository.NewSQLTaskRepo(db, dialect),
		health: db,
		close:  db.Close,
	}, nil
}

// Close は接続を閉じる。失敗はログにのみ記録する。
func (s *store) Close() {
	if err := s.close(); err != nil {
		slog.Error("failed to close credential store", slog.String("error", err.Error()))
	}
}
