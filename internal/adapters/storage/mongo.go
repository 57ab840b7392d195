package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/snipechecks/snipebot/internal/core/domain"
)

const (
	usersCollection = "users"
	callsCollection = "calls"

	connectTimeout = 10 * time.Second
)

// NewMongoClient connects and pings the deployment, returning the client
// and a cleanup func that disconnects it.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, func(), error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		_ = client.Disconnect(ctx)
	}
	return client, cleanup, nil
}

// MongoRepository persists users (with embedded wallets/contracts) and
// calls in separate collections. Uniqueness of account_id is enforced by a
// unique index; the first-contact race resolves through the duplicate-key
// error path in GetOrCreateUser.
type MongoRepository struct {
	users *mongo.Collection
	calls *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		users: db.Collection(usersCollection),
		calls: db.Collection(callsCollection),
	}
}

// EnsureIndexes creates the unique account_id index and the per-user call
// lookup index. Safe to call on every startup.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "account_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create account_id index: %w", err)
	}

	_, err = r.calls.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create calls index: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetOrCreateUser(ctx context.Context, accountID, displayName string) (*domain.User, error) {
	var user domain.User
	err := r.users.FindOne(ctx, bson.M{"account_id": accountID}).Decode(&user)
	if err == nil {
		return &user, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to look up user %s: %w", accountID, err)
	}

	user = domain.User{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		DisplayName: displayName,
		Wallets:     []domain.Wallet{},
		Contracts:   []domain.ContractAddress{},
		CreatedAt:   time.Now().UTC(),
	}
	_, err = r.users.InsertOne(ctx, user)
	if err == nil {
		return &user, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		// Lost the first-contact race; the record exists now. Re-read it.
		var existing domain.User
		if err := r.users.FindOne(ctx, bson.M{"account_id": accountID}).Decode(&existing); err != nil {
			return nil, fmt.Errorf("failed to re-read user %s after create race: %w", accountID, err)
		}
		return &existing, nil
	}
	return nil, fmt.Errorf("failed to create user %s: %w", accountID, err)
}

func (r *MongoRepository) AllUsers(ctx context.Context) ([]domain.User, error) {
	cursor, err := r.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []domain.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (r *MongoRepository) AddWallet(ctx context.Context, userID string, w domain.Wallet) error {
	res, err := r.users.UpdateByID(ctx, userID, bson.M{"$push": bson.M{"wallets": w}})
	if err != nil {
		return fmt.Errorf("failed to add wallet: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *MongoRepository) AddContract(ctx context.Context, userID string, c domain.ContractAddress) error {
	// Guard the push with the address filter so a concurrent duplicate
	// insert matches nothing instead of creating a second entry.
	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userID, "contracts.address": bson.M{"$ne": c.Address}},
		bson.M{"$push": bson.M{"contracts": c}},
	)
	if err != nil {
		return fmt.Errorf("failed to add contract: %w", err)
	}
	if res.MatchedCount == 0 {
		exists, checkErr := r.FindDuplicateContract(ctx, userID, c.Address)
		if checkErr == nil && exists {
			return domain.ErrDuplicateContract
		}
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *MongoRepository) FindDuplicateContract(ctx context.Context, userID, address string) (bool, error) {
	count, err := r.users.CountDocuments(ctx, bson.M{"_id": userID, "contracts.address": address})
	if err != nil {
		return false, fmt.Errorf("failed to check contract duplicate: %w", err)
	}
	return count > 0, nil
}

func (r *MongoRepository) LogCall(ctx context.Context, call domain.Call) error {
	if _, err := r.calls.InsertOne(ctx, call); err != nil {
		return fmt.Errorf("failed to log call: %w", err)
	}
	return nil
}

func (r *MongoRepository) CallsByUser(ctx context.Context, userID string) ([]domain.Call, error) {
	cursor, err := r.calls.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list calls for %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var calls []domain.Call
	if err := cursor.All(ctx, &calls); err != nil {
		return nil, fmt.Errorf("failed to decode calls: %w", err)
	}
	return calls, nil
}

func (r *MongoRepository) AllCalls(ctx context.Context) ([]domain.Call, error) {
	cursor, err := r.calls.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	defer cursor.Close(ctx)

	var calls []domain.Call
	if err := cursor.All(ctx, &calls); err != nil {
		return nil, fmt.Errorf("failed to decode calls: %w", err)
	}
	return calls, nil
}

func (r *MongoRepository) UpdateWalletBalance(ctx context.Context, userID, walletID string, balance float64) error {
	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userID, "wallets.wallet_id": walletID},
		bson.M{"$set": bson.M{"wallets.$.balance": balance}},
	)
	if err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUnknownWallet
	}
	return nil
}
