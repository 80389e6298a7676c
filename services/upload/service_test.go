package upload

import (
	"context"
	"testing"
	"time"

	"lookbook-compensation/pkg/errutil"
	"lookbook-compensation/services/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func strPtr(s string) *string { return &s }

func seed(t *testing.T, svc *Service, uploads ...*Upload) {
	t.Helper()
	for _, u := range uploads {
		require.NoError(t, svc.db.Create(u).Error)
	}
}

func TestApprove(t *testing.T) {
	db := testutil.NewTestDB(t, &Upload{})
	svc := NewService(ServiceParams{DB: db})
	seed(t, svc, &Upload{ID: "u1", MemberID: "m1", CreatedAt: time.Now().UTC()})

	u, changed, err := svc.Approve(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, changed)
	require.True(t, u.Approved)

	_, changed, err = svc.Approve(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, changed)

	_, _, err = svc.Approve(context.Background(), "missing")
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestMarkCreditedOnlyOnce(t *testing.T) {
	db := testutil.NewTestDB(t, &Upload{})
	svc := NewService(ServiceParams{DB: db})
	seed(t, svc,
		&Upload{ID: "u1", MemberID: "m1", Approved: true},
		&Upload{ID: "u2", MemberID: "m1"},
	)
	ctx := context.Background()

	ok, err := svc.MarkCredited(ctx, nil, "u1", decimal.NewFromInt(2))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.MarkCredited(ctx, nil, "u1", decimal.NewFromInt(2))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = svc.MarkCredited(ctx, nil, "u2", decimal.NewFromInt(2))
	require.NoError(t, err)
	require.False(t, ok, "unapproved uploads are never credited")

	u, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, u.IsCredited())
	require.True(t, u.EarnedAmount.Valid)
	require.True(t, u.EarnedAmount.Decimal.Equal(decimal.NewFromInt(2)))
}

func TestMarkProductCreditedIndependentOfUploadCredit(t *testing.T) {
	db := testutil.NewTestDB(t, &Upload{})
	svc := NewService(ServiceParams{DB: db})
	credited := true
	seed(t, svc,
		&Upload{ID: "u1", MemberID: "m1", Approved: true, Credited: &credited, ProductID: strPtr("p1")},
		&Upload{ID: "u2", MemberID: "m1", Approved: true},
	)
	ctx := context.Background()

	ok, err := svc.MarkProductCredited(ctx, nil, "u1", decimal.NewFromInt(3))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.MarkProductCredited(ctx, nil, "u2", decimal.NewFromInt(3))
	require.NoError(t, err)
	require.False(t, ok, "uploads without a product are skipped")
}

func TestListUncredited(t *testing.T) {
	db := testutil.NewTestDB(t, &Upload{})
	svc := NewService(ServiceParams{DB: db})
	credited := true
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, svc,
		&Upload{ID: "u1", MemberID: "m1", Approved: true, CreatedAt: base.Add(2 * time.Hour)},
		&Upload{ID: "u2", MemberID: "m1", Approved: true, CreatedAt: base.Add(time.Hour), ProductID: strPtr("p1")},
		&Upload{ID: "u3", MemberID: "m1", Approved: true, Credited: &credited, ProductCredited: &credited, ProductID: strPtr("p2"), CreatedAt: base},
		&Upload{ID: "u4", MemberID: "m1", CreatedAt: base},
	)
	ctx := context.Background()

	list, err := svc.ListUncredited(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "u2", list[0].ID)
	require.Equal(t, "u1", list[1].ID)

	products, err := svc.ListProductUncredited(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "u2", products[0].ID)
}

func TestAddOfferEarned(t *testing.T) {
	db := testutil.NewTestDB(t, &Upload{})
	svc := NewService(ServiceParams{DB: db})
	seed(t, svc, &Upload{ID: "u1", MemberID: "m1", Approved: true})
	ctx := context.Background()

	require.NoError(t, svc.AddOfferEarned(ctx, nil, "u1", decimal.RequireFromString("1.5")))
	require.NoError(t, svc.AddOfferEarned(ctx, nil, "u1", decimal.RequireFromString("2")))

	u, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, u.OfferEarnedAmount.Equal(decimal.RequireFromString("3.5")))

	err = svc.AddOfferEarned(ctx, nil, "missing", decimal.NewFromInt(1))
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}
