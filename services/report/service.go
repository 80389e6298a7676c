package report

import (
	"context"
	"database/sql"
	"sort"

	"lookbook-compensation/pkg/db/pagination"
	"lookbook-compensation/pkg/errutil"
	"lookbook-compensation/pkg/logger"
	"lookbook-compensation/services/earning"
	"lookbook-compensation/services/member"
	"lookbook-compensation/services/payout"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("lookbook-compensation/services/report")

type Service struct {
	db      *gorm.DB
	ledger  *earning.Service
	payouts *payout.Service
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Ledger  *earning.Service
	Payouts *payout.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		ledger:  p.Ledger,
		payouts: p.Payouts,
	}
}

func (s *Service) MemberTotals(ctx context.Context, memberID string) (*MemberTotals, error) {
	ctx, span := tracer.Start(ctx, "report.MemberTotals")
	defer span.End()

	groups, err := s.ledger.SumByMemberGroupedByType(ctx, memberID)
	if err != nil {
		zap.L().With(logger.TraceFields(ctx)...).Error("failed to sum member earnings", zap.String("member_id", memberID), zap.Error(err))
		return nil, err
	}

	out := &MemberTotals{
		MemberID:    memberID,
		Uploads:     decimal.Zero,
		Products:    decimal.Zero,
		Offers:      decimal.Zero,
		Outstanding: decimal.Zero,
		Paid:        decimal.Zero,
	}
	for _, g := range groups {
		switch g.Type {
		case earning.TypeUpload:
			out.Uploads = out.Uploads.Add(g.Total)
		case earning.TypeProduct:
			out.Products = out.Products.Add(g.Total)
		case earning.TypeOffer:
			out.Offers = out.Offers.Add(g.Total)
		}
		if g.Payed {
			out.Paid = out.Paid.Add(g.Total)
		} else {
			out.Outstanding = out.Outstanding.Add(g.Total)
		}
	}
	return out, nil
}

// AdminLedger builds one row per member with earnings created in the month.
// Totals and the disbursed flag are read in the same transaction.
func (s *Service) AdminLedger(ctx context.Context, month, year int) ([]*LedgerRow, error) {
	ctx, span := tracer.Start(ctx, "report.AdminLedger")
	defer span.End()

	var rows []*LedgerRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		totals, err := s.ledger.SumByMonthGroupedByTypeTx(ctx, tx, month, year)
		if err != nil {
			return err
		}
		disbursed, err := s.payouts.DisbursedMembers(ctx, tx, month, year)
		if err != nil {
			return err
		}

		byMember := map[string]*LedgerRow{}
		ids := make([]string, 0)
		for _, t := range totals {
			row, ok := byMember[t.MemberID]
			if !ok {
				row = &LedgerRow{
					MemberID:             t.MemberID,
					TotalEarningsUpload:  decimal.Zero,
					TotalEarningsProduct: decimal.Zero,
					TotalEarningsOffer:   decimal.Zero,
					Disbursed:            disbursed[t.MemberID],
				}
				byMember[t.MemberID] = row
				ids = append(ids, t.MemberID)
			}
			switch t.Type {
			case earning.TypeUpload:
				row.TotalEarningsUpload = t.Total
			case earning.TypeProduct:
				row.TotalEarningsProduct = t.Total
			case earning.TypeOffer:
				row.TotalEarningsOffer = t.Total
			}
		}
		if len(ids) == 0 {
			return nil
		}

		var members []member.Member
		if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&members).Error; err != nil {
			return err
		}
		for _, m := range members {
			byMember[m.ID].DisplayName = m.DisplayName
		}

		sort.Strings(ids)
		for _, id := range ids {
			rows = append(rows, byMember[id])
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		zap.L().With(logger.TraceFields(ctx)...).Error("failed to build admin ledger", zap.Int("month", month), zap.Int("year", year), zap.Error(err))
		return nil, err
	}
	return rows, nil
}

func (s *Service) DisbursedEarnings(ctx context.Context, memberID string) ([]*earning.Entry, error) {
	return s.ledger.ListPaidByMember(ctx, memberID)
}

func (s *Service) LedgerHistory(ctx context.Context, memberID string, page pagination.Pagination) ([]*earning.Entry, *pagination.PageInfo, error) {
	return s.ledger.ListByMember(ctx, memberID, page)
}

func (s *Service) PayoutHistory(ctx context.Context, memberID string) ([]*payout.PayoutBatch, error) {
	return s.payouts.ListByMember(ctx, memberID)
}

// MemberCompensations lists every policy that credited at least one of the
// member's uploads and what the member earned under it.
func (s *Service) MemberCompensations(ctx context.Context, memberID string) ([]*MemberCompensation, error) {
	if memberID == "" {
		return nil, errutil.BadRequest("member id is required", nil)
	}

	var out []*MemberCompensation
	err := s.db.WithContext(ctx).
		Table("compensations AS c").
		Select("c.id AS compensation_id, c.pay_type, c.pay_amount, c.start_date, c.expiration_date, COUNT(cu.id) AS upload_count").
		Joins("JOIN compensation_uploads AS cu ON cu.compensation_id = c.id").
		Joins("JOIN uploads AS u ON u.id = cu.upload_id").
		Where("u.member_id = ?", memberID).
		Group("c.id, c.pay_type, c.pay_amount, c.start_date, c.expiration_date, c.created_at").
		Order("c.created_at DESC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}

	for _, c := range out {
		c.Earned = c.PayAmount.Mul(decimal.NewFromInt(c.UploadCount))
	}
	return out, nil
}
