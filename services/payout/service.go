package payout

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"lookbook-compensation/pkg/config"
	"lookbook-compensation/pkg/db/option"
	"lookbook-compensation/pkg/errutil"
	"lookbook-compensation/pkg/featureflags"
	"lookbook-compensation/pkg/lock"
	"lookbook-compensation/pkg/logger"
	"lookbook-compensation/pkg/money"
	"lookbook-compensation/pkg/payment"
	"lookbook-compensation/pkg/payment/venmo"
	"lookbook-compensation/pkg/rediskey"
	"lookbook-compensation/pkg/repository"
	"lookbook-compensation/services/earning"
	"lookbook-compensation/services/member"
	"lookbook-compensation/services/notification"
	"lookbook-compensation/services/upload"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultGatewayTimeout = 30 * time.Second
	defaultLockTTL        = 2 * time.Minute
)

var tracer = otel.Tracer("lookbook-compensation/services/payout")

// ErrNothingToDisburse is returned when the member has no unpaid, unflagged
// earnings in the requested month. No batch is recorded.
var ErrNothingToDisburse = errors.New("payout: nothing to disburse")

type Notifier interface {
	Notify(ctx context.Context, m notification.Message)
}

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	provider string
	currency string
	timeout  time.Duration
	lockTTL  time.Duration

	ledger   *earning.Service
	members  *member.Service
	uploads  *upload.Service
	gateway  payment.Gateway
	locker   lock.Locker
	notifier Notifier
	flags    featureflags.FeatureFlag

	batches repository.Repository[PayoutBatch]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Config   *config.Config `optional:"true"`
	Ledger   *earning.Service
	Members  *member.Service
	Uploads  *upload.Service
	Gateway  payment.Gateway
	Locker   lock.Locker
	Notifier Notifier
	Flags    featureflags.FeatureFlag `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	s := &Service{
		db:       p.DB,
		node:     p.Node,
		provider: venmo.ProviderName,
		currency: money.USD,
		timeout:  defaultGatewayTimeout,
		lockTTL:  defaultLockTTL,
		ledger:   p.Ledger,
		members:  p.Members,
		uploads:  p.Uploads,
		gateway:  p.Gateway,
		locker:   p.Locker,
		notifier: p.Notifier,
		flags:    p.Flags,
		batches:  repository.ProvideStore[PayoutBatch](p.DB),
	}
	if p.Config != nil {
		if p.Config.Payment.Provider != "" {
			s.provider = p.Config.Payment.Provider
		}
		if p.Config.Payment.Currency != "" {
			s.currency = p.Config.Payment.Currency
		}
		if p.Config.Payment.Timeout > 0 {
			s.timeout = p.Config.Payment.Timeout
		}
		if p.Config.Payment.LockTTL > 0 {
			s.lockTTL = p.Config.Payment.LockTTL
		}
	}
	return s
}

// DisburseEarnings pays the member every unpaid, unflagged earning created
// in the requested month as a single gateway batch. Every attempt that finds
// entries to pay leaves exactly one PayoutBatch behind.
func (s *Service) DisburseEarnings(ctx context.Context, req DisburseRequest) (*PayoutBatch, error) {
	ctx, span := tracer.Start(ctx, "payout.DisburseEarnings")
	defer span.End()
	span.SetAttributes(
		attribute.String("member_id", req.MemberID),
		attribute.Int("month", req.Month),
		attribute.Int("year", req.Year),
	)

	if req.MemberID == "" {
		return nil, errutil.BadRequest("member_id is required", nil)
	}
	if _, _, err := earning.MonthRange(req.Month, req.Year, nil); err != nil {
		return nil, err
	}

	log := zap.L().With(logger.TraceFields(ctx)...).With(
		zap.String("member_id", req.MemberID),
		zap.Int("month", req.Month),
		zap.Int("year", req.Year),
	)

	if s.flags != nil && !s.flags.Enabled(ctx, req.MemberID, featureflags.PayoutsEnabled) {
		payoutAttempts.WithLabelValues(outcomeDisabled).Inc()
		return nil, errutil.Forbidden("payouts are disabled", nil)
	}

	unlock, err := s.locker.Acquire(ctx, rediskey.BuildPayoutLockKey(req.MemberID, req.Month, req.Year), s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			payoutAttempts.WithLabelValues(outcomeConflict).Inc()
			return nil, errutil.Conflict("a payout for this member and month is already in progress", nil)
		}
		return nil, fmt.Errorf("acquire payout lock: %w", err)
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to release payout lock", zap.Error(err))
		}
	}()

	m, err := s.members.Get(ctx, req.MemberID)
	if err != nil {
		return nil, err
	}

	pending, err := s.pendingReconcile(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("find pending reconcile: %w", err)
	}
	if pending != nil {
		payoutAttempts.WithLabelValues(outcomeConflict).Inc()
		log.Warn("payout refused, previous batch awaits reconciliation", zap.String("batch_id", pending.BatchID))
		return nil, errutil.Conflict("a previous payout for this month awaits reconciliation", nil,
			errutil.WithDetails(errutil.Detail{Field: "batch_id", Message: pending.BatchID}))
	}

	entries, err := s.ledger.FindUnpaidUnflagged(ctx, req.MemberID, req.Month, req.Year)
	if err != nil {
		return nil, fmt.Errorf("find unpaid earnings: %w", err)
	}
	if len(entries) == 0 {
		payoutAttempts.WithLabelValues(outcomeEmpty).Inc()
		return nil, ErrNothingToDisburse
	}

	batch := s.newBatch(req, entries)

	if m.Flagged {
		payoutAttempts.WithLabelValues(outcomeFlagged).Inc()
		if err := s.recordFailure(ctx, batch, ErrorCodeMemberFlagged, "Member account is flagged"); err != nil {
			return nil, err
		}
		log.Warn("payout refused, member flagged")
		return batch, errutil.UnprocessableEntity("member account is flagged", nil)
	}

	phone := m.Phone()
	if phone == "" {
		payoutAttempts.WithLabelValues(outcomeNoPhone).Inc()
		if err := s.recordFailure(ctx, batch, ErrorCodeNoPhone, "User does not have Phone Number saved in the account"); err != nil {
			return nil, err
		}
		log.Warn("payout refused, no phone number on file")
		return batch, errutil.UnprocessableEntity("member does not have a phone number saved in the account", nil)
	}

	batchID, err := newBatchID(req)
	if err != nil {
		return nil, err
	}
	batch.BatchID = batchID
	log = log.With(zap.String("batch_id", batchID))

	notes := make(map[string]string, len(entries))
	items := make([]payment.Item, 0, len(entries))
	for _, e := range entries {
		n := note(e.Type, m.DisplayName, money.Format(e.Amount, s.currency), s.subject(ctx, e))
		notes[e.ID] = n
		items = append(items, payment.Item{
			Amount:       e.Amount,
			Currency:     s.currency,
			Note:         n,
			Receiver:     phone,
			SenderItemID: e.ID,
		})
	}

	providerID, err := s.submit(ctx, batchID, items)
	if err != nil {
		span.RecordError(err)
		perr := payment.AsError(err)
		payoutAttempts.WithLabelValues(outcomeGateway).Inc()
		if rerr := s.recordFailure(ctx, batch, perr.Name, perr.Message); rerr != nil {
			return nil, rerr
		}
		log.Error("payment gateway rejected payout", zap.String("error_code", perr.Name), zap.Error(err))
		return batch, errutil.BadGateway(perr.Message, err)
	}

	batch.ProviderResponseID = &providerID
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}

	var settled int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		settled, err = s.ledger.MarkPaid(ctx, tx, ids, earning.PaymentRef{
			PaidAt:        time.Now().UTC(),
			PaymentNumber: providerID,
			PayoutBatchID: batchID,
		})
		if err != nil {
			return err
		}
		return s.batches.WithTrx(tx).Create(ctx, batch)
	})
	if err != nil {
		log.Error("payout sent but ledger update failed",
			zap.String("provider_response_id", providerID),
			zap.Error(err),
		)
		payoutAttempts.WithLabelValues(outcomeReconcile).Inc()
		if rerr := s.recordReconcile(context.WithoutCancel(ctx), batch, err); rerr != nil {
			return nil, errutil.Internal("payout sent but ledger update failed", errors.Join(err, rerr))
		}
		return batch, errutil.Internal("payout sent but ledger update failed", err)
	}
	if settled != int64(len(ids)) {
		log.Warn("some entries changed state during payout",
			zap.Int("entries", len(ids)),
			zap.Int64("settled", settled),
		)
	}

	payoutAttempts.WithLabelValues(outcomeSuccess).Inc()
	payoutDisbursed.Add(batch.TotalAmount.InexactFloat64())
	log.Info("payout disbursed",
		zap.String("provider_response_id", providerID),
		zap.Int("entries", len(ids)),
		zap.String("total", batch.TotalAmount.StringFixed(2)),
	)

	for _, e := range entries {
		s.notifier.Notify(ctx, notification.Message{
			Kind:       notification.KindSuccessfulDisbursement,
			Title:      "New Disbursement",
			Body:       notes[e.ID],
			ToMemberID: m.ID,
			ExternalID: e.ID,
		})
	}
	return batch, nil
}

func (s *Service) newBatch(req DisburseRequest, entries []*earning.Entry) *PayoutBatch {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	now := time.Now().UTC()
	return &PayoutBatch{
		ID:          s.node.Generate().String(),
		MemberID:    req.MemberID,
		Provider:    s.provider,
		Month:       req.Month,
		Year:        req.Year,
		EntryCount:  len(entries),
		TotalAmount: total,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *Service) recordFailure(ctx context.Context, batch *PayoutBatch, code, message string) error {
	batch.Error = true
	batch.ErrorCode = &code
	batch.ErrorMessage = &message
	if err := s.batches.Create(ctx, batch); err != nil {
		zap.L().With(logger.TraceFields(ctx)...).Error("failed to record payout batch",
			zap.String("member_id", batch.MemberID),
			zap.String("error_code", code),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// recordReconcile keeps the audit trail of a batch the gateway accepted when
// the ledger transaction rolled back. Entries stay unpaid and further payouts
// for the member and month are refused until an operator settles them.
func (s *Service) recordReconcile(ctx context.Context, batch *PayoutBatch, cause error) error {
	code := ErrorCodeReconcilePending
	msg := cause.Error()
	batch.Error = false
	batch.ErrorCode = &code
	batch.ErrorMessage = &msg
	if err := s.batches.Create(ctx, batch); err != nil {
		zap.L().With(logger.TraceFields(ctx)...).Error("failed to record reconcile batch",
			zap.String("member_id", batch.MemberID),
			zap.String("batch_id", batch.BatchID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) pendingReconcile(ctx context.Context, req DisburseRequest) (*PayoutBatch, error) {
	code := ErrorCodeReconcilePending
	return s.batches.FindOne(ctx, &PayoutBatch{
		MemberID:  req.MemberID,
		Month:     req.Month,
		Year:      req.Year,
		ErrorCode: &code,
	})
}

func (s *Service) submit(ctx context.Context, batchID string, items []payment.Item) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	id, err := s.gateway.Payout(ctx, batchID, items)
	gatewayLatency.WithLabelValues(s.provider, strconv.FormatBool(err != nil)).Observe(time.Since(start).Seconds())
	return id, err
}

// subject names what an entry paid for. Offers have no subject.
func (s *Service) subject(ctx context.Context, e *earning.Entry) string {
	if e.Type == earning.TypeOffer {
		return ""
	}
	u, err := s.uploads.Get(ctx, e.EntityID)
	if err != nil {
		zap.L().With(logger.TraceFields(ctx)...).Warn("upload for earning not found",
			zap.String("entry_id", e.ID), zap.String("upload_id", e.EntityID), zap.Error(err))
		return ""
	}
	return u.ProductName
}

// newBatchID returns payout_{month}-{year}_{memberID}_{32 hex chars}.
func newBatchID(req DisburseRequest) (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate batch id: %w", err)
	}
	return fmt.Sprintf("payout_%d-%d_%s_%s", req.Month, req.Year, req.MemberID, hex.EncodeToString(b[:])), nil
}

// ListByMember returns every recorded attempt for the member, newest first.
func (s *Service) ListByMember(ctx context.Context, memberID string) ([]*PayoutBatch, error) {
	return s.batches.Find(ctx, &PayoutBatch{MemberID: memberID},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
		option.WithSortBy(option.QuerySortBy{SortBy: "id", OrderBy: "desc"}),
	)
}

// DisbursedMembers returns the members with a successful batch for the
// month. tx may be nil.
func (s *Service) DisbursedMembers(ctx context.Context, tx *gorm.DB, month, year int) (map[string]bool, error) {
	conn := s.db
	if tx != nil {
		conn = tx
	}

	var ids []string
	err := conn.WithContext(ctx).Model(&PayoutBatch{}).
		Distinct("member_id").
		Where("month = ? AND year = ? AND error = ?", month, year, false).
		Pluck("member_id", &ids).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
