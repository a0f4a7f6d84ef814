package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/irensaltali/fax-app-backend/internal/clock"
	creditdomain "github.com/irensaltali/fax-app-backend/internal/credit/domain"
	faxdomain "github.com/irensaltali/fax-app-backend/internal/fax/domain"
	"github.com/irensaltali/fax-app-backend/internal/transfer/domain"
	"github.com/irensaltali/fax-app-backend/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeIdentity struct {
	users     map[string]bool
	deleted   []string
	deleteErr error
}

func (f *fakeIdentity) Exists(ctx context.Context, userID string) (bool, error) {
	return f.users[userID], nil
}

func (f *fakeIdentity) Delete(ctx context.Context, userID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, userID)
	return nil
}

type transferEnv struct {
	svc      domain.Service
	db       *gorm.DB
	identity *fakeIdentity
	node     *snowflake.Node
	clock    *clock.FakeClock
}

func newTransferEnv(t *testing.T) *transferEnv {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(
		&faxdomain.FaxRecord{},
		&creditdomain.CreditGrant{},
		&creditdomain.UsageEvent{},
		&domain.TransferRecord{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	identity := &fakeIdentity{users: map[string]bool{"user-2": true}}

	svc := NewService(Params{
		DB:       dbConn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		Identity: identity,
	})

	return &transferEnv{svc: svc, db: dbConn, identity: identity, node: node, clock: fake}
}

func (e *transferEnv) seedRows(t *testing.T, userID string, grants, usage, faxes int) {
	t.Helper()
	for i := 0; i < grants; i++ {
		require.NoError(t, e.db.Create(&creditdomain.CreditGrant{
			ID: e.node.Generate(), UserID: userID, ProductID: "p", Kind: creditdomain.GrantKindConsumable,
			PageLimit: 10, IsActive: true, CreatedAt: e.clock.Now(), UpdatedAt: e.clock.Now(),
		}).Error)
	}
	for i := 0; i < usage; i++ {
		require.NoError(t, e.db.Create(&creditdomain.UsageEvent{
			ID: e.node.Generate(), UserID: userID, ResourceKind: "fax", Unit: "pages",
			Amount: 1, RecordedAt: e.clock.Now(),
		}).Error)
	}
	for i := 0; i < faxes; i++ {
		uid := userID
		require.NoError(t, e.db.Create(&faxdomain.FaxRecord{
			ID: e.node.Generate(), UserID: &uid, Provider: "notifyre",
			Status: faxdomain.StatusDelivered, CreatedAt: e.clock.Now(), UpdatedAt: e.clock.Now(),
		}).Error)
	}
}

func (e *transferEnv) countOwned(t *testing.T, userID string) (grants, usage, faxes int64) {
	t.Helper()
	require.NoError(t, e.db.Model(&creditdomain.CreditGrant{}).Where("user_id = ?", userID).Count(&grants).Error)
	require.NoError(t, e.db.Model(&creditdomain.UsageEvent{}).Where("user_id = ?", userID).Count(&usage).Error)
	require.NoError(t, e.db.Model(&faxdomain.FaxRecord{}).Where("user_id = ?", userID).Count(&faxes).Error)
	return
}

func TestTransferMovesAllRows(t *testing.T) {
	env := newTransferEnv(t)
	anon := "$RCAnonymousID:abc123"
	env.seedRows(t, anon, 2, 3, 4)
	env.seedRows(t, "user-2", 1, 0, 0)

	records, err := env.svc.Transfer(context.Background(), domain.TransferRequest{
		FromUserIDs: []string{anon},
		ToUserIDs:   []string{"user-2"},
		Reason:      "billing_transfer_event",
	})
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	require.Equal(t, domain.TransferCompleted, record.Status)
	require.Equal(t, 2, record.GrantsMoved)
	require.Equal(t, 3, record.UsageEventsMoved)
	require.Equal(t, 4, record.FaxRecordsMoved)
	require.True(t, record.OldUserDeleted)
	require.Equal(t, []string{anon}, env.identity.deleted)

	grants, usage, faxes := env.countOwned(t, anon)
	require.Zero(t, grants)
	require.Zero(t, usage)
	require.Zero(t, faxes)

	grants, usage, faxes = env.countOwned(t, "user-2")
	require.EqualValues(t, 3, grants)
	require.EqualValues(t, 3, usage)
	require.EqualValues(t, 4, faxes)

	var persisted domain.TransferRecord
	require.NoError(t, env.db.First(&persisted, "id = ?", record.ID).Error)
	require.Equal(t, domain.TransferCompleted, persisted.Status)
	require.True(t, persisted.OldUserDeleted)
}

func TestTransferRejectsAnonymousTarget(t *testing.T) {
	env := newTransferEnv(t)

	_, err := env.svc.Transfer(context.Background(), domain.TransferRequest{
		FromUserIDs: []string{"user-1"},
		ToUserIDs:   []string{"$RCAnonymousID:target"},
	})
	require.ErrorIs(t, err, domain.ErrAnonymousTarget)
}

func TestTransferRejectsMissingTarget(t *testing.T) {
	env := newTransferEnv(t)

	_, err := env.svc.Transfer(context.Background(), domain.TransferRequest{
		FromUserIDs: []string{"user-1"},
		ToUserIDs:   []string{"ghost"},
	})
	require.ErrorIs(t, err, domain.ErrTargetNotFound)

	_, err = env.svc.Transfer(context.Background(), domain.TransferRequest{
		FromUserIDs: []string{"user-1"},
	})
	require.ErrorIs(t, err, domain.ErrInvalidTransfer)
}

func TestTransferDeleteFailureKeepsCommit(t *testing.T) {
	env := newTransferEnv(t)
	anon := "$RCAnonymousID:abc123"
	env.seedRows(t, anon, 1, 0, 1)
	env.identity.deleteErr = errors.New("identity backend down")

	records, err := env.svc.Transfer(context.Background(), domain.TransferRequest{
		FromUserIDs: []string{anon},
		ToUserIDs:   []string{"user-2"},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, domain.TransferCompleted, records[0].Status)
	require.False(t, records[0].OldUserDeleted)

	grants, _, faxes := env.countOwned(t, "user-2")
	require.EqualValues(t, 1, grants)
	require.EqualValues(t, 1, faxes)
}

func TestTransferSkipsIdentifiedSourceDeletion(t *testing.T) {
	env := newTransferEnv(t)
	env.users(t, "user-3")
	env.seedRows(t, "user-3", 1, 0, 0)

	records, err := env.svc.Transfer(context.Background(), domain.TransferRequest{
		FromUserIDs: []string{"user-3"},
		ToUserIDs:   []string{"user-2"},
	})
	require.NoError(t, err)
	require.Equal(t, domain.TransferCompleted, records[0].Status)
	require.False(t, records[0].OldUserDeleted)
	require.Empty(t, env.identity.deleted)
}

func (e *transferEnv) users(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		e.identity.users[id] = true
	}
}
