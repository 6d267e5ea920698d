package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/hitoshi/taskman/internal/database"
	"github.com/hitoshi/taskman/internal/model"
)

// userDocument はusersコレクションのドキュメント。
type userDocument struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	DateOfBirth  string    `bson:"dateOfBirth"`
	UserRole     string    `bson:"userRole"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func newUserDocument(u *model.User) userDocument {
	return userDocument{
		ID:           u.ID,
		Name:         u.Name,
		DateOfBirth:  u.DateOfBirth,
		UserRole:     u.UserRole,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d *userDocument) toModel() *model.User {
	return &model.User{
		ID:           d.ID,
		Name:         d.Name,
		DateOfBirth:  d.DateOfBirth,
		UserRole:     d.UserRole,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// MongoUserRepo はMongoDBを使用したユーザーリポジトリ。
// メールアドレスの一意性はdatabase.EnsureMongoIndexesで作成する一意インデックスに依存する。
type MongoUserRepo struct {
	col *mongo.Collection
}

// NewMongoUserRepo はMongoUserRepoを生成する。
func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{col: db.Collection(database.ColUsers)}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	doc, err := findOne[userDocument](ctx, r.col, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	return doc.toModel(), nil
}

// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	doc, err := findOne[userDocument](ctx, r.col, bson.D{{Key: "email", Value: email}})
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	return doc.toModel(), nil
}

// List は全ユーザーを作成日時の昇順で返す。
func (r *MongoUserRepo) List(ctx context.Context) ([]*model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	docs, err := findMany[userDocument](ctx, r.col, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*model.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, doc.toModel())
	}
	return users, nil
}

// Create はユーザーを作成する。メールアドレスが重複する場合はErrConflictを返す。
func (r *MongoUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.col.InsertOne(ctx, newUserDocument(user))
	if err := wrapMongoError(err); err != nil {
		if err == ErrConflict {
			return err
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Update はプロフィールを更新し、更新後のユーザーを返す。
func (r *MongoUserRepo) Update(ctx context.Context, id string, fields model.UserFields) (*model.User, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: fields.Name},
		{Key: "dateOfBirth", Value: fields.DateOfBirth},
		{Key: "userRole", Value: fields.UserRole},
		{Key: "email", Value: fields.Email},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	err := r.col.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update, opts).Decode(&doc)
	if err := wrapMongoError(err); err != nil {
		if err == ErrNotFound || err == ErrConflict {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return doc.toModel(), nil
}

// Delete は指定IDのユーザーを削除する。
func (r *MongoUserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", wrapMongoError(err))
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*MongoUserRepo)(nil)
