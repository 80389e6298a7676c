package member

import (
	"context"
	"time"

	"lookbook-compensation/pkg/errutil"
	"lookbook-compensation/pkg/logger"
	"lookbook-compensation/pkg/repository"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db      *gorm.DB
	members repository.Repository[Member]
}

type ServiceParams struct {
	fx.In
	DB *gorm.DB
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		members: repository.ProvideStore[Member](p.DB),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Member, error) {
	m, err := s.members.FindOne(ctx, &Member{ID: id})
	if err != nil {
		zap.L().With(logger.TraceFields(ctx)...).Error("failed to query member", zap.String("member_id", id), zap.Error(err))
		return nil, err
	}
	if m == nil {
		return nil, errutil.NotFound("member not found", nil)
	}
	return m, nil
}

// ToggleFlag flips the member's flagged state and returns the new value.
func (s *Service) ToggleFlag(ctx context.Context, id string) (bool, error) {
	var flagged bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Member{}).Where("id = ?", id).Updates(map[string]any{
			"flagged":    gorm.Expr("NOT flagged"),
			"updated_at": time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errutil.NotFound("member not found", nil)
		}

		m, err := s.members.WithTrx(tx).FindOne(ctx, &Member{ID: id})
		if err != nil {
			return err
		}
		flagged = m.Flagged
		return nil
	})
	if err != nil {
		return false, err
	}

	zap.L().With(logger.TraceFields(ctx)...).Info("member flag toggled", zap.String("member_id", id), zap.Bool("flagged", flagged))
	return flagged, nil
}
