package upload

import (
	"context"
	"time"

	"lookbook-compensation/pkg/db/option"
	"lookbook-compensation/pkg/errutil"
	"lookbook-compensation/pkg/logger"
	"lookbook-compensation/pkg/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	uploads repository.Repository[Upload]
}

type ServiceParams struct {
	fx.In
	DB *gorm.DB
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		uploads: repository.ProvideStore[Upload](p.DB),
	}
}

func (s *Service) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*Upload, error) {
	u, err := s.uploads.FindOne(ctx, &Upload{ID: id})
	if err != nil {
		zap.L().With(logger.TraceFields(ctx)...).Error("failed to query upload", zap.String("upload_id", id), zap.Error(err))
		return nil, err
	}
	if u == nil {
		return nil, errutil.NotFound("upload not found", nil)
	}
	return u, nil
}

// Approve marks the upload approved. changed is false when it already was.
func (s *Service) Approve(ctx context.Context, id string) (u *Upload, changed bool, err error) {
	res := s.db.WithContext(ctx).Model(&Upload{}).
		Where("id = ? AND approved = ?", id, false).
		Updates(map[string]any{"approved": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, false, res.Error
	}

	u, err = s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return u, res.RowsAffected > 0, nil
}

// ListUncredited returns approved uploads never credited by an upload policy.
func (s *Service) ListUncredited(ctx context.Context) ([]*Upload, error) {
	return s.uploads.Find(ctx, &Upload{Approved: true},
		option.ApplyOperator(option.Condition{Field: "credited", Operator: option.IsNull}),
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "asc"}),
	)
}

// ListProductUncredited returns approved uploads tagged with a product that
// were never credited by a product policy.
func (s *Service) ListProductUncredited(ctx context.Context) ([]*Upload, error) {
	return s.uploads.Find(ctx, &Upload{Approved: true},
		option.ApplyOperator(option.Condition{Field: "product_credited", Operator: option.IsNull}),
		option.ApplyOperator(option.Condition{Field: "product_id", Operator: option.NotNull}),
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "asc"}),
	)
}

// MarkCredited moves credited from NULL to true. It reports false when
// another caller already credited the upload.
func (s *Service) MarkCredited(ctx context.Context, tx *gorm.DB, id string, amount decimal.Decimal) (bool, error) {
	res := s.conn(ctx, tx).Model(&Upload{}).
		Where("id = ? AND approved = ? AND credited IS NULL", id, true).
		Updates(map[string]any{
			"credited":      true,
			"earned_amount": amount,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Service) MarkProductCredited(ctx context.Context, tx *gorm.DB, id string, amount decimal.Decimal) (bool, error) {
	res := s.conn(ctx, tx).Model(&Upload{}).
		Where("id = ? AND approved = ? AND product_credited IS NULL AND product_id IS NOT NULL", id, true).
		Updates(map[string]any{
			"product_credited":      true,
			"product_earned_amount": amount,
			"updated_at":            time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// AddOfferEarned accumulates feedback-offer earnings on the upload.
func (s *Service) AddOfferEarned(ctx context.Context, tx *gorm.DB, id string, amount decimal.Decimal) error {
	res := s.conn(ctx, tx).Model(&Upload{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"offer_earned_amount": gorm.Expr("offer_earned_amount + ?", amount),
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("upload not found", nil)
	}
	return nil
}
