package earning

import (
	"context"
	"errors"
	"time"

	"lookbook-compensation/pkg/config"
	"lookbook-compensation/pkg/db/option"
	"lookbook-compensation/pkg/db/pagination"
	"lookbook-compensation/pkg/errutil"
	"lookbook-compensation/pkg/logger"
	"lookbook-compensation/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrDuplicateEntry = errors.New("earning: entry already recorded for entity")

var tracer = otel.Tracer("lookbook-compensation/services/earning")

type Service struct {
	db      *gorm.DB
	node    *snowflake.Node
	loc     *time.Location
	entries repository.Repository[Entry]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		node:    p.Node,
		loc:     p.Config.Location(),
		entries: repository.ProvideStore[Entry](p.DB),
	}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// AppendEntry records a new unpaid entry and returns its id. A second entry
// for the same (entity, type) fails with ErrDuplicateEntry.
func (s *Service) AppendEntry(ctx context.Context, tx *gorm.DB, e *Entry) (string, error) {
	if !e.Type.Valid() {
		return "", errutil.BadRequest("unsupported earning type", nil)
	}
	if !e.Amount.IsPositive() {
		return "", errutil.BadRequest("earning amount must be positive", nil)
	}
	if e.EntityID == "" || e.MemberID == "" {
		return "", errutil.BadRequest("entity_id and member_id are required", nil)
	}

	entries := s.entries.WithTrx(tx)

	exist, err := entries.FindOne(ctx, &Entry{EntityID: e.EntityID, Type: e.Type})
	if err != nil {
		return "", err
	}
	if exist != nil {
		return "", ErrDuplicateEntry
	}

	now := time.Now().UTC()
	if e.ID == "" {
		e.ID = s.node.Generate().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	e.Payed = false

	if err := entries.Create(ctx, e); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", ErrDuplicateEntry
		}
		return "", err
	}

	zap.L().With(logger.TraceFields(ctx)...).Info("earning entry appended",
		zap.String("entry_id", e.ID),
		zap.String("member_id", e.MemberID),
		zap.String("type", string(e.Type)),
		zap.String("amount", e.Amount.StringFixed(2)),
	)
	return e.ID, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Entry, error) {
	e, err := s.entries.FindOne(ctx, &Entry{ID: id})
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, errutil.NotFound("earning entry not found", nil)
	}
	return e, nil
}

// FindUnpaidUnflagged returns the member's entries created in month/year
// that are neither paid nor flagged, oldest first.
func (s *Service) FindUnpaidUnflagged(ctx context.Context, memberID string, month, year int) ([]*Entry, error) {
	start, end, err := MonthRange(month, year, s.loc)
	if err != nil {
		return nil, err
	}

	var out []*Entry
	err = s.db.WithContext(ctx).
		Where("member_id = ? AND payed = ? AND flagged = ?", memberID, false, false).
		Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at ASC").Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkPaid settles entries with ref once the gateway has accepted them.
// Flagged entries are settled too: the money has already moved. Entries
// already paid are left untouched; the returned count is the number settled.
func (s *Service) MarkPaid(ctx context.Context, tx *gorm.DB, ids []string, ref PaymentRef) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res := s.conn(ctx, tx).Model(&Entry{}).
		Where("id IN ? AND payed = ?", ids, false).
		Updates(map[string]any{
			"payed":           true,
			"payment_date":    ref.PaidAt.UTC(),
			"payment_number":  ref.PaymentNumber,
			"payout_batch_id": ref.PayoutBatchID,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// Flag toggles the entry's flagged state and returns the new value.
func (s *Service) Flag(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, errutil.BadRequest("entry id is required", nil)
	}
	return s.toggle(ctx, &Entry{ID: id})
}

// FlagByEntity toggles the entry recorded for (entityID, type).
func (s *Service) FlagByEntity(ctx context.Context, entityID string, t Type) (bool, error) {
	if !t.Valid() {
		return false, errutil.BadRequest("unsupported earning type", nil)
	}
	if entityID == "" {
		return false, errutil.BadRequest("entity id is required", nil)
	}
	return s.toggle(ctx, &Entry{EntityID: entityID, Type: t})
}

func (s *Service) toggle(ctx context.Context, query *Entry) (bool, error) {
	ctx, span := tracer.Start(ctx, "earning.Flag")
	defer span.End()

	var flagged bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Entry{}).Where(query).Updates(map[string]any{
			"flagged":    gorm.Expr("NOT flagged"),
			"updated_at": time.Now().UTC(),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errutil.NotFound("earning entry not found", nil)
		}

		e, err := s.entries.WithTrx(tx).FindOne(ctx, query)
		if err != nil {
			return err
		}
		flagged = e.Flagged
		return nil
	})
	if err != nil {
		return false, err
	}

	zap.L().With(logger.TraceFields(ctx)...).Info("earning flag toggled",
		zap.String("entry_id", query.ID),
		zap.String("entity_id", query.EntityID),
		zap.Bool("flagged", flagged),
	)
	return flagged, nil
}

// SumOutstanding is the total of the member's unpaid, unflagged entries.
func (s *Service) SumOutstanding(ctx context.Context, memberID string) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	err := s.db.WithContext(ctx).Model(&Entry{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("member_id = ? AND payed = ? AND flagged = ?", memberID, false, false).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

// SumByMonthGroupedByType totals every entry created in month/year per
// member and type.
func (s *Service) SumByMonthGroupedByType(ctx context.Context, month, year int) ([]MonthlyTypeTotal, error) {
	return s.SumByMonthGroupedByTypeTx(ctx, nil, month, year)
}

func (s *Service) SumByMonthGroupedByTypeTx(ctx context.Context, tx *gorm.DB, month, year int) ([]MonthlyTypeTotal, error) {
	start, end, err := MonthRange(month, year, s.loc)
	if err != nil {
		return nil, err
	}

	var out []MonthlyTypeTotal
	err = s.conn(ctx, tx).Model(&Entry{}).
		Select("member_id, type, COALESCE(SUM(amount), 0) AS total").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("member_id").Group("type").
		Order("member_id ASC").Order("type ASC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SumByMemberGroupedByType totals the member's entries per type and paid state.
func (s *Service) SumByMemberGroupedByType(ctx context.Context, memberID string) ([]TypeTotal, error) {
	var out []TypeTotal
	err := s.db.WithContext(ctx).Model(&Entry{}).
		Select("type, payed, COALESCE(SUM(amount), 0) AS total").
		Where("member_id = ? AND flagged = ?", memberID, false).
		Group("type").Group("payed").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByMember pages through the member's entries, newest first.
func (s *Service) ListByMember(ctx context.Context, memberID string, page pagination.Pagination) ([]*Entry, *pagination.PageInfo, error) {
	limit := page.Size()

	q := s.db.WithContext(ctx).Model(&Entry{}).Where("member_id = ?", memberID)
	if page.Cursor != "" {
		cur, err := pagination.DecodeCursor(page.Cursor)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cur.CreatedAt.UTC(), cur.CreatedAt.UTC(), cur.ID)
	}

	var rows []*Entry
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	return pagination.BuildCursorPageInfo(rows, limit, func(e *Entry) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
}

// ListPaidByMember returns every paid entry of the member, most recently paid first.
func (s *Service) ListPaidByMember(ctx context.Context, memberID string) ([]*Entry, error) {
	return s.entries.Find(ctx, &Entry{MemberID: memberID, Payed: true},
		option.WithSortBy(option.QuerySortBy{SortBy: "payment_date", OrderBy: "desc"}),
		option.WithSortBy(option.QuerySortBy{SortBy: "id", OrderBy: "desc"}),
	)
}
