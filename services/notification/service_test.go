package notification

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"lookbook-compensation/pkg/config"
	"lookbook-compensation/pkg/db/option"
	"lookbook-compensation/pkg/errutil"
	"lookbook-compensation/pkg/repository"
	"lookbook-compensation/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type repoMock[T any] struct {
	repository.Repository[T]
	createFn func(ctx context.Context, resource *T) error
}

func (m *repoMock[T]) Create(ctx context.Context, resource *T) error {
	return m.createFn(ctx, resource)
}

func (m *repoMock[T]) WithTrx(tx *gorm.DB) repository.Repository[T] { return m }

func (m *repoMock[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	return nil, nil
}

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t, &Notification{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Compensation.AdminUserID = "admin-1"
	return NewService(ServiceParams{DB: db, Node: node, Config: cfg}), db
}

func TestNotifyDefaultsSenderToAdmin(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	svc.Notify(ctx, Message{
		Kind:       KindSuccessfulUpload,
		Title:      "New Upload",
		Body:       "Earned $2.00 from Brand/Category/Product Look Upload",
		ToMemberID: "m1",
		ExternalID: "u1",
	})

	var stored Notification
	require.NoError(t, db.First(&stored).Error)
	require.Equal(t, KindSuccessfulUpload, stored.Type)
	require.Equal(t, PartyAdmin, stored.FromUserType)
	require.Equal(t, "admin-1", stored.FromUserID)
	require.Equal(t, PartyMember, stored.ToUserType)
	require.Equal(t, "m1", stored.ToUserID)
	require.False(t, stored.Read)
}

func TestNotifySwallowsStorageErrors(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	called := false
	svc := &Service{
		node: node,
		notifications: &repoMock[Notification]{
			createFn: func(ctx context.Context, _ *Notification) error {
				called = true
				return errors.New("db down")
			},
		},
	}

	require.NotPanics(t, func() {
		svc.Notify(context.Background(), Message{Kind: KindOfferEarned, ToMemberID: "m1"})
	})
	require.True(t, called)
}

func TestListForMemberReturnsLatestTen(t *testing.T) {
	svc, db := newService(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 12; i++ {
		require.NoError(t, db.Create(&Notification{
			ID:         fmt.Sprintf("n%02d", i),
			Type:       KindSuccessfulDisbursement,
			ToUserType: PartyMember,
			ToUserID:   "m1",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}
	require.NoError(t, db.Create(&Notification{ID: "other", ToUserType: PartyMember, ToUserID: "m2", CreatedAt: base}).Error)

	list, err := svc.ListForMember(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, list, 10)
	require.Equal(t, "n11", list[0].ID)
	require.Equal(t, "n02", list[9].ID)
}

func TestMarkRead(t *testing.T) {
	svc, db := newService(t)
	require.NoError(t, db.Create(&Notification{ID: "n1", ToUserType: PartyMember, ToUserID: "m1"}).Error)
	ctx := context.Background()

	n, err := svc.MarkRead(ctx, "n1", true)
	require.NoError(t, err)
	require.True(t, n.Read)

	_, err = svc.MarkRead(ctx, "missing", true)
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}
