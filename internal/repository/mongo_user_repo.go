package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/insport-app/auth-service/internal/models"
)

type mongoUserRepo struct {
	client   *mongo.Client
	users    *mongo.Collection
	profiles *mongo.Collection
}

// NewMongoUserRepo builds the Mongo-backed repository and ensures the
// uniqueness indexes the commit-time conflict checks rely on.
func NewMongoUserRepo(client *mongo.Client, db *mongo.Database, usersCol, profilesCol string) UserRepository {
	users := db.Collection(usersCol)
	_, _ = users.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "uuid", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	profiles := db.Collection(profilesCol)
	_, _ = profiles.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true),
	})
	return &mongoUserRepo{client: client, users: users, profiles: profiles}
}

// CreateWithProfile inserts the user and its profile inside one transaction.
// A duplicate-key abort surfaces as ErrDuplicateUser so callers can report a
// conflict instead of a generic failure.
func (r *mongoUserRepo) CreateWithProfile(ctx context.Context, u *models.User, p *models.UserProfile) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	p.CreatedAt, p.UpdatedAt = now, now

	sess, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := r.users.InsertOne(sc, u)
		if err != nil {
			return nil, err
		}
		oid, ok := res.InsertedID.(primitive.ObjectID)
		if !ok {
			return nil, errors.New("unexpected inserted id type")
		}
		u.ID = oid
		p.UserID = oid
		if _, err := r.profiles.InsertOne(sc, p); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("user creation transaction failed: %w", err)
	}
	return nil
}

func (r *mongoUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepo) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"phone": phone})
}

func (r *mongoUserRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	err := r.users.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *mongoUserRepo) Update(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	_, err := r.users.UpdateByID(ctx, u.ID, bson.M{"$set": u})
	return err
}
