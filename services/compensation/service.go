package compensation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"lookbook-compensation/pkg/config"
	"lookbook-compensation/pkg/db/option"
	"lookbook-compensation/pkg/errutil"
	"lookbook-compensation/pkg/lock"
	"lookbook-compensation/pkg/logger"
	"lookbook-compensation/pkg/money"
	"lookbook-compensation/pkg/rediskey"
	"lookbook-compensation/pkg/repository"
	"lookbook-compensation/pkg/task"
	"lookbook-compensation/services/earning"
	"lookbook-compensation/services/notification"
	"lookbook-compensation/services/upload"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	defaultSweepConcurrency = 4
	sweepLockTTL            = 10 * time.Minute
)

var tracer = otel.Tracer("lookbook-compensation/services/compensation")

var errAlreadyCredited = errors.New("compensation: upload already credited")

type Notifier interface {
	Notify(ctx context.Context, m notification.Message)
}

type Service struct {
	db          *gorm.DB
	node        *snowflake.Node
	loc         *time.Location
	currency    string
	concurrency int

	uploads  *upload.Service
	ledger   *earning.Service
	notifier Notifier
	enqueuer task.Enqueuer
	locker   lock.Locker

	policies repository.Repository[Policy]
	history  repository.Repository[PolicyHistory]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Config   *config.Config `optional:"true"`
	Uploads  *upload.Service
	Ledger   *earning.Service
	Notifier Notifier
	Enqueuer task.Enqueuer `optional:"true"`
	Locker   lock.Locker   `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	s := &Service{
		db:          p.DB,
		node:        p.Node,
		loc:         p.Config.Location(),
		currency:    money.USD,
		concurrency: defaultSweepConcurrency,
		uploads:     p.Uploads,
		ledger:      p.Ledger,
		notifier:    p.Notifier,
		enqueuer:    p.Enqueuer,
		locker:      p.Locker,
		policies:    repository.ProvideStore[Policy](p.DB),
		history:     repository.ProvideStore[PolicyHistory](p.DB),
	}
	if p.Config != nil {
		if p.Config.Payment.Currency != "" {
			s.currency = p.Config.Payment.Currency
		}
		if p.Config.Compensation.SweepConcurrency > 0 {
			s.concurrency = p.Config.Compensation.SweepConcurrency
		}
	}
	return s
}

// endOfDay is 23:59:59 of at's calendar day in the platform timezone.
func (s *Service) endOfDay(at time.Time) time.Time {
	local := at.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, s.loc).UTC()
}

// ResolveActivePolicy returns the newest policy of payType active at the end
// of at's day that is global or scoped to memberID. It returns nil when none
// matches.
func (s *Service) ResolveActivePolicy(ctx context.Context, payType PayType, memberID string, at time.Time) (*Policy, error) {
	eod := s.endOfDay(at)

	var p Policy
	err := s.db.WithContext(ctx).Model(&Policy{}).
		Where("pay_type = ? AND start_date <= ? AND expiration_date >= ?", payType, eod, eod).
		Where("member_id IS NULL OR member_id = ?", memberID).
		Order("created_at DESC").Order("id DESC").
		Take(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// CompensateApprovedUpload credits an approved upload under the upload
// policy active on referenceDate.
func (s *Service) CompensateApprovedUpload(ctx context.Context, uploadID string, referenceDate time.Time) (Outcome, error) {
	return s.compensate(ctx, PayTypeUpload, uploadID, referenceDate)
}

// CompensateApprovedProduct credits the product tagged on an approved upload
// under the product policy active on referenceDate.
func (s *Service) CompensateApprovedProduct(ctx context.Context, uploadID string, referenceDate time.Time) (Outcome, error) {
	return s.compensate(ctx, PayTypeProduct, uploadID, referenceDate)
}

func (s *Service) compensate(ctx context.Context, payType PayType, uploadID string, referenceDate time.Time) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "compensation.Compensate")
	defer span.End()
	span.SetAttributes(
		attribute.String("upload_id", uploadID),
		attribute.String("pay_type", string(payType)),
	)

	log := zap.L().With(logger.TraceFields(ctx)...).With(
		zap.String("upload_id", uploadID),
		zap.String("pay_type", string(payType)),
	)

	u, err := s.uploads.Get(ctx, uploadID)
	if err != nil {
		return "", err
	}
	if !u.Approved || (payType == PayTypeProduct && !u.HasProduct()) {
		return OutcomeNotEligible, nil
	}
	if (payType == PayTypeUpload && u.IsCredited()) || (payType == PayTypeProduct && u.IsProductCredited()) {
		return OutcomeAlreadyCredited, nil
	}

	policy, err := s.ResolveActivePolicy(ctx, payType, u.MemberID, referenceDate)
	if err != nil {
		log.Error("failed to resolve policy", zap.Error(err))
		return "", err
	}
	if policy == nil {
		log.Debug("no active policy")
		return OutcomeNoActivePolicy, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var credited bool
		var err error
		if payType == PayTypeProduct {
			credited, err = s.uploads.MarkProductCredited(ctx, tx, u.ID, policy.PayAmount)
		} else {
			credited, err = s.uploads.MarkCredited(ctx, tx, u.ID, policy.PayAmount)
		}
		if err != nil {
			return err
		}
		if !credited {
			return errAlreadyCredited
		}

		res := tx.Model(&Policy{}).Where("id = ?", policy.ID).Updates(map[string]any{
			"total_compensation": gorm.Expr("total_compensation + ?", policy.PayAmount),
			"updated_at":         time.Now().UTC(),
		})
		if res.Error != nil {
			return fmt.Errorf("increment total compensation: %w", res.Error)
		}

		id := s.node.Generate()
		if err := tx.Create(&PolicyUpload{
			ID:             id.String(),
			CompensationID: policy.ID,
			UploadID:       u.ID,
			Position:       id.Int64(),
			CreatedAt:      time.Now().UTC(),
		}).Error; err != nil {
			return fmt.Errorf("append compensated upload: %w", err)
		}

		_, err = s.ledger.AppendEntry(ctx, tx, &earning.Entry{
			EntityID: u.ID,
			Type:     payType.EarningType(),
			Amount:   policy.PayAmount,
			MemberID: u.MemberID,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, errAlreadyCredited) || errors.Is(err, earning.ErrDuplicateEntry) {
			log.Info("upload already credited")
			return OutcomeAlreadyCredited, nil
		}
		span.RecordError(err)
		log.Error("failed to credit upload", zap.Error(err))
		return "", err
	}

	log.Info("upload credited",
		zap.String("compensation_id", policy.ID),
		zap.String("member_id", u.MemberID),
		zap.String("amount", policy.PayAmount.StringFixed(2)),
	)

	s.notifier.Notify(ctx, s.creditedMessage(payType, u, policy))
	return OutcomeCredited, nil
}

func (s *Service) creditedMessage(payType PayType, u *upload.Upload, p *Policy) notification.Message {
	amount := money.Format(p.PayAmount, s.currency)
	body := fmt.Sprintf("Earned %s from %s/%s/%s Look Upload", amount, u.BrandName, u.CategoryName, u.ProductName)
	if payType == PayTypeProduct {
		body = fmt.Sprintf("Earned %s from the product %q featured in your Look Upload", amount, u.ProductName)
	}
	return notification.Message{
		Kind:       notification.KindSuccessfulUpload,
		Title:      "New Upload",
		Body:       body,
		ToMemberID: u.MemberID,
		ExternalID: u.ID,
	}
}

// CompensateAllApproved runs the upload sweep and then the product sweep.
// Each upload is credited against its own creation date; a failing upload
// is counted and does not stop the others.
func (s *Service) CompensateAllApproved(ctx context.Context) (*SweepSummary, error) {
	ctx, span := tracer.Start(ctx, "compensation.CompensateAllApproved")
	defer span.End()

	summary := &SweepSummary{}

	uploads, err := s.sweep(ctx, PayTypeUpload, s.uploads.ListUncredited, s.CompensateApprovedUpload)
	if err != nil {
		return nil, err
	}
	summary.add(uploads)

	products, err := s.sweep(ctx, PayTypeProduct, s.uploads.ListProductUncredited, s.CompensateApprovedProduct)
	if err != nil {
		return nil, err
	}
	summary.add(products)

	zap.L().With(logger.TraceFields(ctx)...).Info("compensation sweep finished",
		zap.Int("scanned", summary.Scanned),
		zap.Int("credited", summary.Credited),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *Service) sweep(
	ctx context.Context,
	payType PayType,
	list func(context.Context) ([]*upload.Upload, error),
	credit func(context.Context, string, time.Time) (Outcome, error),
) (SweepSummary, error) {
	log := zap.L().With(logger.TraceFields(ctx)...).With(zap.String("pay_type", string(payType)))

	if s.locker != nil {
		unlock, err := s.locker.Acquire(ctx, rediskey.BuildSweepLockKey(string(payType)), sweepLockTTL)
		if err != nil {
			if errors.Is(err, lock.ErrNotAcquired) {
				log.Info("sweep already running elsewhere, skipping")
				return SweepSummary{}, nil
			}
			return SweepSummary{}, err
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	pending, err := list(ctx)
	if err != nil {
		return SweepSummary{}, fmt.Errorf("list %s candidates: %w", payType, err)
	}

	var (
		mu      sync.Mutex
		summary = SweepSummary{Scanned: len(pending)}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, u := range pending {
		g.Go(func() error {
			outcome, err := credit(gctx, u.ID, u.CreatedAt)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Failed++
				log.Warn("failed to compensate upload", zap.String("upload_id", u.ID), zap.Error(err))
			case outcome == OutcomeCredited:
				summary.Credited++
			default:
				summary.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	return summary, nil
}

// SavePolicy stores a new policy with its history row and schedules a sweep
// so that pending uploads are credited under it.
func (s *Service) SavePolicy(ctx context.Context, p SavePolicyParams) (*Policy, error) {
	ctx, span := tracer.Start(ctx, "compensation.SavePolicy")
	defer span.End()

	if !p.PayType.Valid() {
		return nil, errutil.BadRequest("pay_type must be upload or product", nil)
	}
	if !p.PayAmount.IsPositive() {
		return nil, errutil.BadRequest("pay_amount must be positive", nil)
	}

	now := time.Now().UTC()
	start := now
	if p.StartDate != nil {
		start = p.StartDate.UTC()
	}
	if !p.ExpirationDate.After(start) {
		return nil, errutil.BadRequest("expiration must be after the start date", nil)
	}
	if p.MemberID != nil && *p.MemberID == "" {
		p.MemberID = nil
	}

	policy := &Policy{
		ID:             s.node.Generate().String(),
		MemberID:       p.MemberID,
		CreatedBy:      p.CreatedBy,
		PayNum:         p.PayNum,
		PayType:        p.PayType,
		PayAmount:      p.PayAmount.Round(2),
		StartDate:      start,
		ExpirationDate: p.ExpirationDate.UTC(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.policies.WithTrx(tx).Create(ctx, policy); err != nil {
			return err
		}
		return s.history.WithTrx(tx).Create(ctx, &PolicyHistory{
			ID:             s.node.Generate().String(),
			CompensationID: policy.ID,
			MemberID:       policy.MemberID,
			CreatedBy:      policy.CreatedBy,
			PayNum:         policy.PayNum,
			PayType:        policy.PayType,
			PayAmount:      policy.PayAmount,
			StartDate:      policy.StartDate,
			ExpirationDate: policy.ExpirationDate,
			CreatedAt:      now,
		})
	})
	if err != nil {
		zap.L().With(logger.TraceFields(ctx)...).Error("failed to save policy", zap.Error(err))
		return nil, err
	}

	zap.L().With(logger.TraceFields(ctx)...).Info("compensation policy saved",
		zap.String("compensation_id", policy.ID),
		zap.String("pay_type", string(policy.PayType)),
		zap.String("pay_amount", policy.PayAmount.StringFixed(2)),
	)

	if err := s.ScheduleSweep(ctx); err != nil {
		zap.L().With(logger.TraceFields(ctx)...).Warn("failed to schedule sweep after policy save", zap.Error(err))
	}
	return policy, nil
}

// ScheduleSweep hands a sweep to the worker, or runs it in place when no
// queue is configured.
func (s *Service) ScheduleSweep(ctx context.Context) error {
	if s.enqueuer == nil {
		_, err := s.CompensateAllApproved(ctx)
		return err
	}
	t, err := NewSweepTask(SweepPayload{RequestedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	_, err = s.enqueuer.Enqueue(ctx, t)
	return err
}

// ApproveUpload approves an upload and queues its compensation. Approving an
// already approved upload does nothing.
func (s *Service) ApproveUpload(ctx context.Context, uploadID string) (*upload.Upload, error) {
	u, changed, err := s.uploads.Approve(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return u, nil
	}

	if s.enqueuer != nil {
		t, err := NewUploadApprovedTask(UploadApprovedPayload{UploadID: u.ID})
		if err == nil {
			_, err = s.enqueuer.Enqueue(ctx, t)
		}
		if err == nil {
			return u, nil
		}
		zap.L().With(logger.TraceFields(ctx)...).Warn("failed to enqueue compensation, crediting inline",
			zap.String("upload_id", u.ID), zap.Error(err))
	}

	if err := s.OnUploadApproved(ctx, u.ID); err != nil {
		return nil, err
	}
	return s.uploads.Get(ctx, u.ID)
}

// OnUploadApproved credits both the upload and its product, each against
// the upload's creation date.
func (s *Service) OnUploadApproved(ctx context.Context, uploadID string) error {
	u, err := s.uploads.Get(ctx, uploadID)
	if err != nil {
		return err
	}
	if _, err := s.CompensateApprovedUpload(ctx, u.ID, u.CreatedAt); err != nil {
		return err
	}
	if u.HasProduct() {
		if _, err := s.CompensateApprovedProduct(ctx, u.ID, u.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

// ActivePolicy is the policy that would credit an upload of memberID
// created at at.
func (s *Service) ActivePolicy(ctx context.Context, payType PayType, memberID string, at time.Time) (*Policy, error) {
	if !payType.Valid() {
		return nil, errutil.BadRequest("pay_type must be upload or product", nil)
	}
	p, err := s.ResolveActivePolicy(ctx, payType, memberID, at)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errutil.NotFound("no active compensation policy", nil)
	}
	return p, nil
}

func (s *Service) PolicyHistory(ctx context.Context) ([]*PolicyHistory, error) {
	return s.history.Find(ctx, &PolicyHistory{},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
		option.WithSortBy(option.QuerySortBy{SortBy: "id", OrderBy: "desc"}),
	)
}

// RecordOfferEarning credits a member for answering a customer's feedback
// offer on one of their uploads. Replaying the same answer records nothing
// and reports false.
func (s *Service) RecordOfferEarning(ctx context.Context, p OfferEarningParams) (bool, error) {
	ctx, span := tracer.Start(ctx, "compensation.RecordOfferEarning")
	defer span.End()

	if p.AnswerID == "" || p.UploadID == "" {
		return false, errutil.BadRequest("answer_id and upload_id are required", nil)
	}
	if !p.Amount.IsPositive() {
		return false, errutil.BadRequest("amount must be positive", nil)
	}

	u, err := s.uploads.Get(ctx, p.UploadID)
	if err != nil {
		return false, err
	}
	memberID := p.MemberID
	if memberID == "" {
		memberID = u.MemberID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ledger.AppendEntry(ctx, tx, &earning.Entry{
			EntityID: p.AnswerID,
			Type:     earning.TypeOffer,
			Amount:   p.Amount,
			MemberID: memberID,
		}); err != nil {
			return err
		}
		return s.uploads.AddOfferEarned(ctx, tx, u.ID, p.Amount)
	})
	if err != nil {
		if errors.Is(err, earning.ErrDuplicateEntry) {
			return false, nil
		}
		return false, err
	}

	s.notifier.Notify(ctx, notification.Message{
		Kind:         notification.KindOfferEarned,
		Title:        "New Answer",
		Body:         fmt.Sprintf("Earned %s from Customer %s feedback Offer", money.Format(p.Amount, s.currency), p.CompanyName),
		FromUserType: notification.PartyCustomer,
		FromUserID:   p.CustomerID,
		ToMemberID:   memberID,
		ExternalID:   p.AnswerID,
	})
	return true, nil
}
