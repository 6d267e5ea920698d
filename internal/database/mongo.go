package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// コレクション名
const (
	ColUsers = "users"
	ColTasks = "tasks"
)

const mongoConnectTimeout = 10 * time.Second

// OpenMongo はMongoDBに接続し、疎通確認とインデックス作成を行う。
func OpenMongo(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(dbName)
	if err := EnsureMongoIndexes(pingCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return db, nil
}

// EnsureMongoIndexes は必要なインデックスを作成する。
// usersのemailには一意インデックスを張り、重複登録をストア側で拒否する。
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []struct {
		col    string
		keys   bson.D
		unique bool
	}{
		{ColUsers, bson.D{{Key: "email", Value: 1}}, true},
		{ColUsers, bson.D{{Key: "created_at", Value: 1}}, false},
		{ColTasks, bson.D{{Key: "created_at", Value: 1}}, false},
	}

	for _, idx := range indexes {
		model := mongo.IndexModel{Keys: idx.keys}
		if idx.unique {
			model.Options = options.Index().SetUnique(true)
		}
		if _, err := db.Collection(idx.col).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.col, err)
		}
	}
	return nil
}

// MongoPinger はMongoDBの疎通確認をヘルスチェック用に提供する。
type MongoPinger struct {
	DB *mongo.Database
}

// PingContext はプライマリへの疎通を確認する。
func (p MongoPinger) PingContext(ctx context.Context) error {
	return p.DB.Client().Ping(ctx, readpref.Primary())
}

// CloseMongo はMongoDBクライアントを切断する。
func CloseMongo(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.Client().Disconnect(ctx)
}
