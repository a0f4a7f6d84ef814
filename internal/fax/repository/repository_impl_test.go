package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/irensaltali/fax-app-backend/internal/fax/domain"
	"github.com/irensaltali/fax-app-backend/pkg/db"
	"github.com/stretchr/testify/require"
)

func TestApplyStatusStampsGivenTime(t *testing.T) {
	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&domain.FaxRecord{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := Provide(dbConn)

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	record := &domain.FaxRecord{
		ID:        node.Generate(),
		Provider:  "notifyre",
		Status:    domain.StatusSending,
		CreatedAt: created,
		UpdatedAt: created,
	}
	require.NoError(t, repo.Create(context.Background(), record))

	first := created.Add(30 * time.Minute)
	require.NoError(t, repo.ApplyStatus(context.Background(), record.ID,
		domain.StatusBusy, "Failed - Busy", first, &first))

	var got domain.FaxRecord
	require.NoError(t, dbConn.First(&got, "id = ?", record.ID).Error)
	require.Equal(t, domain.StatusBusy, got.Status)
	require.Equal(t, first.Unix(), got.UpdatedAt.Unix())
	require.NotNil(t, got.CompletedAt)
	require.Equal(t, first.Unix(), got.CompletedAt.Unix())

	// A later terminal status moves updated_at but keeps the first
	// completion time.
	second := created.Add(2 * time.Hour)
	require.NoError(t, repo.ApplyStatus(context.Background(), record.ID,
		domain.StatusCancelled, "Cancelled", second, &second))
	require.NoError(t, dbConn.First(&got, "id = ?", record.ID).Error)
	require.Equal(t, second.Unix(), got.UpdatedAt.Unix())
	require.Equal(t, first.Unix(), got.CompletedAt.Unix())
}
