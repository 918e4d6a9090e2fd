package database

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"tiergate/entity"
	"tiergate/internal/config"
)

func TestDuplicateField(t *testing.T) {
	tests := map[string]string{
		"E11000 duplicate key error collection: tiergate.users index: users_username_key dup key: { username: \"alice\" }":  entity.FieldUsername,
		"E11000 duplicate key error collection: tiergate.users index: users_ip_address_key dup key: { ip_address: \"1\" }": entity.FieldIPAddress,
		"E11000 duplicate key error collection: tiergate.invite_links index: invite_links_user_id_key dup key":             "user_id",
		"E11000 duplicate key error collection: tiergate.invite_links index: invite_links_invite_code_key dup key":         "invite_code",
		"E11000 duplicate key error collection: tiergate.users index: _id_ dup key":                                        "",
	}
	for msg, want := range tests {
		err := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: msg}}}
		require.True(t, mongo.IsDuplicateKeyError(err))
		require.Equal(t, want, duplicateField(err), msg)
	}
}

func TestMongoURI(t *testing.T) {
	require.Equal(t, "mongodb://db:27018", MongoURI(config.MongoConfig{Host: "db", Port: "27018"}))
}

// TestMongoStoreIntegration runs against a live server when TIERGATE_MONGO_HOST is set.
func TestMongoStoreIntegration(t *testing.T) {
	host := os.Getenv("TIERGATE_MONGO_HOST")
	if host == "" {
		t.Skip("TIERGATE_MONGO_HOST not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conf := config.MongoConfig{Host: host, Port: "27017", Database: "tiergate_test_" + uuid.NewString()[:8]}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := NewMongoClient(ctx, conf, log)
	require.NoError(t, err)
	defer func() {
		_ = db.client.Database(conf.Database).Drop(ctx)
		_ = db.Close(ctx)
	}()

	require.NoError(t, db.EnsureIndexes(ctx))
	require.NoError(t, db.SeedTierRequirements(ctx, []entity.TierRequirement{
		{Tier: 2, RequiredInvites: 20},
		{Tier: 1, RequiredInvites: 5},
	}))
	tiers, err := db.TierRequirements(ctx)
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	require.Equal(t, 1, tiers[0].Tier)

	inviter, err := db.InsertUser(ctx, &entity.NewUser{Username: "alice", PasswordHash: "h", IPAddress: "203.0.113.1"})
	require.NoError(t, err)
	require.NoError(t, db.CreateUserInviteLink(ctx, inviter.ID))
	require.NoError(t, db.CreateUserInviteLink(ctx, inviter.ID))

	link, err := db.InviteLinkByUser(ctx, inviter.ID)
	require.NoError(t, err)
	require.Len(t, link.InviteCode, inviteCodeLength)

	invitee, err := db.InsertUser(ctx, &entity.NewUser{Username: "bob", PasswordHash: "h", IPAddress: "203.0.113.2", InvitedBy: &inviter.ID})
	require.NoError(t, err)
	require.Equal(t, 0, invitee.TotalInvites)

	reloaded, err := db.UserByID(ctx, inviter.ID)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.TotalInvites)
	require.Equal(t, 0, reloaded.CurrentTier)

	_, err = db.InsertUser(ctx, &entity.NewUser{Username: "carol", PasswordHash: "h", IPAddress: "203.0.113.1"})
	var conflict *entity.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, entity.FieldIPAddress, conflict.Field)

	missing, err := db.UserByUsername(ctx, "nobody")
	require.NoError(t, err)
	require.Nil(t, missing)
}
