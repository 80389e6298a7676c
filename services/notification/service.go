package notification

import (
	"context"
	"errors"
	"time"

	"lookbook-compensation/pkg/config"
	"lookbook-compensation/pkg/db/option"
	"lookbook-compensation/pkg/errutil"
	"lookbook-compensation/pkg/logger"
	"lookbook-compensation/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const latestLimit = 10

type Service struct {
	node          *snowflake.Node
	notifications repository.Repository[Notification]
	adminID       string
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	s := &Service{
		node:          p.Node,
		notifications: repository.ProvideStore[Notification](p.DB),
	}
	if p.Config != nil {
		s.adminID = p.Config.Compensation.AdminUserID
	}
	return s
}

// Notify stores a notification for a member. Delivery is best effort: a
// failure is logged and never reaches the caller.
func (s *Service) Notify(ctx context.Context, m Message) {
	n := &Notification{
		ID:           s.node.Generate().String(),
		Type:         m.Kind,
		Title:        m.Title,
		Message:      m.Body,
		FromUserType: m.FromUserType,
		FromUserID:   m.FromUserID,
		ToUserType:   PartyMember,
		ToUserID:     m.ToMemberID,
		ExternalID:   m.ExternalID,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if n.FromUserType == "" {
		n.FromUserType = PartyAdmin
		n.FromUserID = s.adminID
	}

	fields := append(logger.TraceFields(ctx),
		zap.String("type", string(m.Kind)),
		zap.String("member_id", m.ToMemberID),
		zap.String("external_id", m.ExternalID),
	)

	if err := s.notifications.Create(ctx, n); err != nil {
		zap.L().With(fields...).Warn("failed to store notification", zap.Error(err))
		return
	}
	zap.L().With(fields...).Debug("notification stored", zap.String("notification_id", n.ID))
}

// ListForMember returns the member's latest notifications, newest first.
func (s *Service) ListForMember(ctx context.Context, memberID string) ([]*Notification, error) {
	return s.notifications.Find(ctx, &Notification{ToUserID: memberID, ToUserType: PartyMember},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
		option.WithSortBy(option.QuerySortBy{SortBy: "id", OrderBy: "desc"}),
		option.WithLimit(latestLimit),
	)
}

func (s *Service) MarkRead(ctx context.Context, id string, read bool) (*Notification, error) {
	err := s.notifications.Update(ctx, id, map[string]any{
		"read":       read,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("notification not found", nil)
		}
		return nil, err
	}
	return s.notifications.FindOne(ctx, &Notification{ID: id})
}
