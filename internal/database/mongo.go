package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tiergate/entity"
	"tiergate/internal/config"
	"tiergate/lib/random"
	"tiergate/lib/sl"
)

const (
	collectionUsers            = "users"
	collectionInviteLinks      = "invite_links"
	collectionTierRequirements = "tier_requirements"

	indexUsername   = "users_username_key"
	indexIPAddress  = "users_ip_address_key"
	indexInviteCode = "invite_links_invite_code_key"
	indexLinkUser   = "invite_links_user_id_key"

	inviteCodeLength   = 10
	inviteCodeAttempts = 3
)

// MongoDB is the self-hosted store: the same tables as the hosted backend,
// kept as collections, with the invite-link procedure done locally.
type MongoDB struct {
	client   *mongo.Client
	database string
	log      *slog.Logger
}

func MongoURI(conf config.MongoConfig) string {
	return fmt.Sprintf("mongodb://%s:%s", conf.Host, conf.Port)
}

func NewMongoClient(ctx context.Context, conf config.MongoConfig, log *slog.Logger) (*MongoDB, error) {
	clientOptions := options.Client().ApplyURI(MongoURI(conf))
	if conf.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.User,
			Password:   conf.Password,
			AuthSource: conf.Database,
		})
	}
	connection, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err = connection.Ping(ctx, nil); err != nil {
		_ = connection.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}
	return &MongoDB{
		client:   connection,
		database: conf.Database,
		log:      log.With(sl.Module("database.mongo")),
	}, nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoDB) collection(name string) *mongo.Collection {
	return m.client.Database(m.database).Collection(name)
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find: %w", err)
}

// EnsureIndexes creates the unique indexes that make username and address
// uniqueness hold at the storage layer, whatever the pre-insert checks saw.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := m.collection(collectionUsers).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName(indexUsername)},
		{Keys: bson.D{{Key: "ip_address", Value: 1}}, Options: options.Index().SetUnique(true).SetName(indexIPAddress)},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	_, err = m.collection(collectionInviteLinks).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "invite_code", Value: 1}}, Options: options.Index().SetUnique(true).SetName(indexInviteCode)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName(indexLinkUser)},
	})
	if err != nil {
		return fmt.Errorf("invite_links indexes: %w", err)
	}
	_, err = m.collection(collectionTierRequirements).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tier", Value: 1}}, Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("tier_requirements index: %w", err)
	}
	return nil
}

// SeedTierRequirements upserts the configured tier table.
func (m *MongoDB) SeedTierRequirements(ctx context.Context, tiers []entity.TierRequirement) error {
	collection := m.collection(collectionTierRequirements)
	for _, tier := range tiers {
		filter := bson.D{{Key: "tier", Value: tier.Tier}}
		update := bson.D{{Key: "$set", Value: tier}}
		opts := options.Update().SetUpsert(true)
		if _, err := collection.UpdateOne(ctx, filter, update, opts); err != nil {
			return fmt.Errorf("seed tier %d: %w", tier.Tier, err)
		}
	}
	m.log.Debug("tier requirements seeded", slog.Int("count", len(tiers)))
	return nil
}

func (m *MongoDB) UserByIP(ctx context.Context, ip string) (*entity.User, error) {
	return m.findUser(ctx, bson.D{{Key: "ip_address", Value: ip}})
}

func (m *MongoDB) UserByUsername(ctx context.Context, username string) (*entity.User, error) {
	return m.findUser(ctx, bson.D{{Key: "username", Value: username}})
}

func (m *MongoDB) UserByID(ctx context.Context, id string) (*entity.User, error) {
	return m.findUser(ctx, bson.D{{Key: "_id", Value: id}})
}

func (m *MongoDB) findUser(ctx context.Context, filter bson.D) (*entity.User, error) {
	var user entity.User
	err := m.collection(collectionUsers).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		return nil, m.findError(err)
	}
	return &user, nil
}

func (m *MongoDB) InviteLinkByCode(ctx context.Context, code string) (*entity.InviteLink, error) {
	return m.findInviteLink(ctx, bson.D{{Key: "invite_code", Value: code}})
}

func (m *MongoDB) InviteLinkByUser(ctx context.Context, userID string) (*entity.InviteLink, error) {
	return m.findInviteLink(ctx, bson.D{{Key: "user_id", Value: userID}})
}

func (m *MongoDB) findInviteLink(ctx context.Context, filter bson.D) (*entity.InviteLink, error) {
	var link entity.InviteLink
	err := m.collection(collectionInviteLinks).FindOne(ctx, filter).Decode(&link)
	if err != nil {
		return nil, m.findError(err)
	}
	return &link, nil
}

// InsertUser stores a new user with zero counters and credits the inviter
// with one invite. current_tier is left alone.
func (m *MongoDB) InsertUser(ctx context.Context, nu *entity.NewUser) (*entity.User, error) {
	user := &entity.User{
		ID:           uuid.NewString(),
		Username:     nu.Username,
		PasswordHash: nu.PasswordHash,
		IPAddress:    nu.IPAddress,
		InvitedBy:    nu.InvitedBy,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := m.collection(collectionUsers).InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, &entity.ConflictError{Field: duplicateField(err), Err: err}
		}
		return nil, fmt.Errorf("mongodb insert user: %w", err)
	}

	if nu.InvitedBy != nil {
		filter := bson.D{{Key: "_id", Value: *nu.InvitedBy}}
		update := bson.D{{Key: "$inc", Value: bson.D{{Key: "total_invites", Value: 1}}}}
		if _, err = m.collection(collectionUsers).UpdateOne(ctx, filter, update); err != nil {
			m.log.Error("credit inviter",
				slog.String("inviter", *nu.InvitedBy),
				slog.String("user", user.ID),
				sl.Err(err))
		}
	}
	return user, nil
}

// CreateUserInviteLink issues the user's invite code. A user keeps the code
// they already have.
func (m *MongoDB) CreateUserInviteLink(ctx context.Context, userID string) error {
	existing, err := m.InviteLinkByUser(ctx, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	collection := m.collection(collectionInviteLinks)
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		link := &entity.InviteLink{
			ID:         uuid.NewString(),
			UserID:     userID,
			InviteCode: random.Seq(inviteCodeLength),
			CreatedAt:  time.Now().UTC(),
		}
		_, err = collection.InsertOne(ctx, link)
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("mongodb insert invite link: %w", err)
		}
		if duplicateField(err) == "user_id" {
			// created concurrently for the same user
			return nil
		}
	}
	return fmt.Errorf("mongodb insert invite link: %w", err)
}

func (m *MongoDB) TierRequirements(ctx context.Context) ([]entity.TierRequirement, error) {
	opts := options.Find().SetSort(bson.D{{Key: "tier", Value: 1}})
	cursor, err := m.collection(collectionTierRequirements).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find tiers: %w", err)
	}
	defer cursor.Close(ctx)

	var tiers []entity.TierRequirement
	if err = cursor.All(ctx, &tiers); err != nil {
		return nil, fmt.Errorf("mongodb decode tiers: %w", err)
	}
	return tiers, nil
}

// duplicateField maps a duplicate-key error to the column of the violated
// index; the server names the index in the error message.
func duplicateField(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, indexUsername):
		return entity.FieldUsername
	case strings.Contains(msg, indexIPAddress):
		return entity.FieldIPAddress
	case strings.Contains(msg, indexLinkUser):
		return "user_id"
	case strings.Contains(msg, indexInviteCode):
		return "invite_code"
	}
	return ""
}
