package compensation

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"lookbook-compensation/pkg/errutil"
	"lookbook-compensation/pkg/taskname"
	"lookbook-compensation/services/earning"
	"lookbook-compensation/services/notification"
	"lookbook-compensation/services/testutil"
	"lookbook-compensation/services/upload"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type notifierMock struct {
	mu       sync.Mutex
	messages []notification.Message
}

func (m *notifierMock) Notify(_ context.Context, msg notification.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *notifierMock) sent() []notification.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notification.Message(nil), m.messages...)
}

type enqueuerMock struct {
	enqueueFn func(ctx context.Context, t *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type requestKey struct{}

func (m *enqueuerMock) Enqueue(ctx context.Context, t *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, t, opts...)
	}
	return &asynq.TaskInfo{}, nil
}

type fixture struct {
	db       *gorm.DB
	svc      *Service
	notifier *notifierMock
}

func newFixture(t *testing.T, enqueuer *enqueuerMock) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t,
		&upload.Upload{},
		&earning.Entry{},
		&Policy{},
		&PolicyUpload{},
		&PolicyHistory{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	notifier := &notifierMock{}
	p := ServiceParams{
		DB:       db,
		Node:     node,
		Uploads:  upload.NewService(upload.ServiceParams{DB: db}),
		Ledger:   earning.NewService(earning.ServiceParams{DB: db, Node: node}),
		Notifier: notifier,
	}
	if enqueuer != nil {
		p.Enqueuer = enqueuer
	}

	return &fixture{db: db, svc: NewService(p), notifier: notifier}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) seedUpload(t *testing.T, u *upload.Upload) *upload.Upload {
	t.Helper()
	if u.MemberID == "" {
		u.MemberID = "m1"
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.BrandName == "" {
		u.BrandName, u.CategoryName, u.ProductName = "Acme", "Shoes", "Runner"
	}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) seedPolicy(t *testing.T, p *Policy) *Policy {
	t.Helper()
	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = f.svc.node.Generate().String()
	}
	if p.StartDate.IsZero() {
		p.StartDate = now.AddDate(0, 0, -30)
	}
	if p.ExpirationDate.IsZero() {
		p.ExpirationDate = now.AddDate(0, 0, 30)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	require.NoError(t, f.db.Create(p).Error)
	return p
}

func (f *fixture) reloadUpload(t *testing.T, id string) *upload.Upload {
	t.Helper()
	var u upload.Upload
	require.NoError(t, f.db.First(&u, "id = ?", id).Error)
	return &u
}

func (f *fixture) entries(t *testing.T) []earning.Entry {
	t.Helper()
	var out []earning.Entry
	require.NoError(t, f.db.Order("type ASC").Find(&out).Error)
	return out
}

func TestSweepCreditsApprovedUpload(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	policy := f.seedPolicy(t, &Policy{PayType: PayTypeUpload, PayAmount: dec("2")})
	u := f.seedUpload(t, &upload.Upload{ID: "u1", Approved: true})

	summary, err := f.svc.CompensateAllApproved(ctx)
	require.NoError(t, err)
	require.Equal(t, SweepSummary{Scanned: 1, Credited: 1}, *summary)

	got := f.reloadUpload(t, u.ID)
	require.True(t, got.IsCredited())
	require.True(t, got.EarnedAmount.Valid)
	require.Equal(t, "2.00", got.EarnedAmount.Decimal.StringFixed(2))
	require.Nil(t, got.ProductCredited)

	entries := f.entries(t)
	require.Len(t, entries, 1)
	require.Equal(t, earning.TypeUpload, entries[0].Type)
	require.Equal(t, "u1", entries[0].EntityID)
	require.Equal(t, "m1", entries[0].MemberID)
	require.Equal(t, "2.00", entries[0].Amount.StringFixed(2))
	require.False(t, entries[0].Payed)

	var stored Policy
	require.NoError(t, f.db.First(&stored, "id = ?", policy.ID).Error)
	require.Equal(t, "2.00", stored.TotalCompensation.StringFixed(2))

	var links []PolicyUpload
	require.NoError(t, f.db.Find(&links).Error)
	require.Len(t, links, 1)
	require.Equal(t, u.ID, links[0].UploadID)

	sent := f.notifier.sent()
	require.Len(t, sent, 1)
	require.Equal(t, notification.KindSuccessfulUpload, sent[0].Kind)
	require.Equal(t, "Earned $2.00 from Acme/Shoes/Runner Look Upload", sent[0].Body)
	require.Equal(t, "m1", sent[0].ToMemberID)

	summary, err = f.svc.CompensateAllApproved(ctx)
	require.NoError(t, err)
	require.Equal(t, SweepSummary{}, *summary)
	require.Len(t, f.entries(t), 1)
}

func TestCompensateApprovedUploadOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("no active policy leaves upload untouched", func(t *testing.T) {
		f := newFixture(t, nil)
		u := f.seedUpload(t, &upload.Upload{ID: "u1", Approved: true})

		outcome, err := f.svc.CompensateApprovedUpload(ctx, u.ID, u.CreatedAt)
		require.NoError(t, err)
		require.Equal(t, OutcomeNoActivePolicy, outcome)
		require.Nil(t, f.reloadUpload(t, u.ID).Credited)
		require.Empty(t, f.entries(t))
		require.Empty(t, f.notifier.sent())
	})

	t.Run("not approved", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seedPolicy(t, &Policy{PayType: PayTypeUpload, PayAmount: dec("2")})
		u := f.seedUpload(t, &upload.Upload{ID: "u1"})

		outcome, err := f.svc.CompensateApprovedUpload(ctx, u.ID, u.CreatedAt)
		require.NoError(t, err)
		require.Equal(t, OutcomeNotEligible, outcome)
	})

	t.Run("already credited", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seedPolicy(t, &Policy{PayType: PayTypeUpload, PayAmount: dec("2")})
		u := f.seedUpload(t, &upload.Upload{ID: "u1", Approved: true})

		outcome, err := f.svc.CompensateApprovedUpload(ctx, u.ID, u.CreatedAt)
		require.NoError(t, err)
		require.Equal(t, OutcomeCredited, outcome)

		outcome, err = f.svc.CompensateApprovedUpload(ctx, u.ID, u.CreatedAt)
		require.NoError(t, err)
		require.Equal(t, OutcomeAlreadyCredited, outcome)
		require.Len(t, f.entries(t), 1)
	})

	t.Run("missing upload", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.CompensateApprovedUpload(ctx, "nope", time.Now())
		require.True(t, errutil.Is(err, errutil.StatusNotFound))
	})

	t.Run("policy not yet started on upload date", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seedPolicy(t, &Policy{PayType: PayTypeUpload, PayAmount: dec("2"), StartDate: time.Now().UTC()})
		u := f.seedUpload(t, &upload.Upload{ID: "u1", Approved: true, CreatedAt: time.Now().UTC().AddDate(0, 0, -10)})

		outcome, err := f.svc.CompensateApprovedUpload(ctx, u.ID, u.CreatedAt)
		require.NoError(t, err)
		require.Equal(t, OutcomeNoActivePolicy, outcome)
	})
}

func TestResolveActivePolicyPicksNewest(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	f.seedPolicy(t, &Policy{PayType: PayTypeUpload, PayAmount: dec("1"), CreatedAt: now.Add(-2 * time.Hour)})
	newest := f.seedPolicy(t, &Policy{PayType: PayTypeUpload, PayAmount: dec("3"), CreatedAt: now.Add(-time.Hour)})
	other := "m2"
	f.seedPolicy(t, &Policy{PayType: PayTypeUpload, PayAmount: dec("9"), MemberID: &other, CreatedAt: now})
	f.seedPolicy(t, &Policy{PayType: PayTypeProduct, PayAmount: dec("7"), CreatedAt: now})

	p, err := f.svc.ResolveActivePolicy(ctx, PayTypeUpload, "m1", now)
	require.NoError(t, err)
	require.Equal(t, newest.ID, p.ID)

	p, err = f.svc.ResolveActivePolicy(ctx, PayTypeUpload, "m2", now)
	require.NoError(t, err)
	require.Equal(t, "9.00", p.PayAmount.StringFixed(2))

	p, err = f.svc.ResolveActivePolicy(ctx, PayTypeUpload, "m1", now.AddDate(0, 0, 60))
	require.NoError(t, err)
	require.Nil(t, p)

	_, err = f.svc.ActivePolicy(ctx, PayTypeUpload, "m1", now.AddDate(0, 0, 60))
	require.True(t, errutil.Is(err, errutil.StatusNotFound))

	_, err = f.svc.ActivePolicy(ctx, "bonus", "m1", now)
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))
}

func TestProductCreditedIndependently(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.seedPolicy(t, &Policy{PayType: PayTypeUpload, PayAmount: dec("2")})
	f.seedPolicy(t, &Policy{PayType: PayTypeProduct, PayAmount: dec("5")})

	product := "p1"
	credited := true
	f.seedUpload(t, &upload.Upload{ID: "u1", Approved: true, ProductID: &product, Credited: &credited,
		EarnedAmount: decimal.NewNullDecimal(dec("2"))})
	f.seedUpload(t, &upload.Upload{ID: "u2", Approved: true})

	summary, err := f.svc.CompensateAllApproved(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Credited)

	u1 := f.reloadUpload(t, "u1")
	require.True(t, u1.IsCredited())
	require.True(t, u1.IsProductCredited())
	require.Equal(t, "5.00", u1.ProductEarnedAmount.Decimal.StringFixed(2))
	require.Equal(t, "2.00", u1.EarnedAmount.Decimal.StringFixed(2))

	u2 := f.reloadUpload(t, "u2")
	require.True(t, u2.IsCredited())
	require.Nil(t, u2.ProductCredited)

	entries := f.entries(t)
	require.Len(t, entries, 2)
	byEntity := map[string]earning.Type{}
	for _, e := range entries {
		byEntity[e.EntityID] = e.Type
	}
	require.Equal(t, map[string]earning.Type{"u1": earning.TypeProduct, "u2": earning.TypeUpload}, byEntity)

	outcome, err := f.svc.CompensateApprovedProduct(ctx, "u2", time.Now())
	require.NoError(t, err)
	require.Equal(t, OutcomeNotEligible, outcome)
}

func TestConcurrentCompensationCreditsOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	policy := f.seedPolicy(t, &Policy{PayType: PayTypeUpload, PayAmount: dec("2")})
	u := f.seedUpload(t, &upload.Upload{ID: "u1", Approved: true})

	const workers = 6
	outcomes := make([]Outcome, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = f.svc.CompensateApprovedUpload(ctx, u.ID, u.CreatedAt)
		}(i)
	}
	wg.Wait()

	credited := 0
	for i, o := range outcomes {
		require.NoError(t, errs[i])
		if o == OutcomeCredited {
			credited++
		} else {
			require.Equal(t, OutcomeAlreadyCredited, o)
		}
	}
	require.Equal(t, 1, credited)
	require.Len(t, f.entries(t), 1)

	var stored Policy
	require.NoError(t, f.db.First(&stored, "id = ?", policy.ID).Error)
	require.Equal(t, "2.00", stored.TotalCompensation.StringFixed(2))
}

func TestSavePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		f := newFixture(t, &enqueuerMock{})
		cases := []SavePolicyParams{
			{CreatedBy: "admin", PayType: "bonus", PayAmount: dec("1"), ExpirationDate: time.Now().Add(time.Hour)},
			{CreatedBy: "admin", PayType: PayTypeUpload, PayAmount: dec("0"), ExpirationDate: time.Now().Add(time.Hour)},
			{CreatedBy: "admin", PayType: PayTypeUpload, PayAmount: dec("1"), ExpirationDate: time.Now().Add(-time.Hour)},
		}
		for _, p := range cases {
			_, err := f.svc.SavePolicy(ctx, p)
			require.True(t, errutil.Is(err, errutil.StatusBadRequest))
		}
	})

	t.Run("writes history and enqueues sweep", func(t *testing.T) {
		var enqueued []string
		f := newFixture(t, &enqueuerMock{
			enqueueFn: func(ctx context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
				require.Equal(t, "req-1", ctx.Value(requestKey{}))
				enqueued = append(enqueued, task.Type())
				return &asynq.TaskInfo{}, nil
			},
		})

		p, err := f.svc.SavePolicy(context.WithValue(ctx, requestKey{}, "req-1"), SavePolicyParams{
			CreatedBy:      "admin",
			PayNum:         1,
			PayType:        PayTypeUpload,
			PayAmount:      dec("2.5"),
			ExpirationDate: time.Now().AddDate(0, 1, 0),
		})
		require.NoError(t, err)
		require.Nil(t, p.MemberID)
		require.Equal(t, []string{taskname.CompensationSweep}, enqueued)

		history, err := f.svc.PolicyHistory(ctx)
		require.NoError(t, err)
		require.Len(t, history, 1)
		require.Equal(t, p.ID, history[0].CompensationID)
		require.Equal(t, "2.50", history[0].PayAmount.StringFixed(2))
	})

	t.Run("sweeps inline without a queue", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seedUpload(t, &upload.Upload{ID: "u1", Approved: true})

		_, err := f.svc.SavePolicy(ctx, SavePolicyParams{
			CreatedBy:      "admin",
			PayType:        PayTypeUpload,
			PayAmount:      dec("2"),
			ExpirationDate: time.Now().AddDate(0, 1, 0),
		})
		require.NoError(t, err)
		require.True(t, f.reloadUpload(t, "u1").IsCredited())
	})
}

func TestApproveUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("enqueues once", func(t *testing.T) {
		var payloads []UploadApprovedPayload
		f := newFixture(t, &enqueuerMock{
			enqueueFn: func(ctx context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
				require.Equal(t, "req-1", ctx.Value(requestKey{}))
				require.Equal(t, taskname.CompensationUploadApproved, task.Type())
				var p UploadApprovedPayload
				require.NoError(t, json.Unmarshal(task.Payload(), &p))
				payloads = append(payloads, p)
				return &asynq.TaskInfo{}, nil
			},
		})
		f.seedUpload(t, &upload.Upload{ID: "u1"})
		reqCtx := context.WithValue(ctx, requestKey{}, "req-1")

		u, err := f.svc.ApproveUpload(reqCtx, "u1")
		require.NoError(t, err)
		require.True(t, u.Approved)

		_, err = f.svc.ApproveUpload(reqCtx, "u1")
		require.NoError(t, err)
		require.Equal(t, []UploadApprovedPayload{{UploadID: "u1"}}, payloads)
	})

	t.Run("credits inline without a queue", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seedPolicy(t, &Policy{PayType: PayTypeUpload, PayAmount: dec("2")})
		f.seedUpload(t, &upload.Upload{ID: "u1"})

		u, err := f.svc.ApproveUpload(ctx, "u1")
		require.NoError(t, err)
		require.True(t, u.IsCredited())
	})

	t.Run("task handler credits", func(t *testing.T) {
		f := newFixture(t, nil)
		f.seedPolicy(t, &Policy{PayType: PayTypeUpload, PayAmount: dec("2")})
		f.seedUpload(t, &upload.Upload{ID: "u1", Approved: true})

		task, err := NewUploadApprovedTask(UploadApprovedPayload{UploadID: "u1"})
		require.NoError(t, err)
		require.NoError(t, f.svc.HandleUploadApproved(ctx, task))
		require.True(t, f.reloadUpload(t, "u1").IsCredited())

		bad := asynq.NewTask(taskname.CompensationUploadApproved, []byte("{"))
		require.ErrorIs(t, f.svc.HandleUploadApproved(ctx, bad), asynq.SkipRetry)
	})
}

func TestRecordOfferEarning(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.seedUpload(t, &upload.Upload{ID: "u1", Approved: true})

	params := OfferEarningParams{
		AnswerID:    "a1",
		UploadID:    "u1",
		CustomerID:  "c1",
		CompanyName: "Globex",
		Amount:      dec("1.25"),
	}

	recorded, err := f.svc.RecordOfferEarning(ctx, params)
	require.NoError(t, err)
	require.True(t, recorded)

	recorded, err = f.svc.RecordOfferEarning(ctx, params)
	require.NoError(t, err)
	require.False(t, recorded)

	u := f.reloadUpload(t, "u1")
	require.Equal(t, "1.25", u.OfferEarnedAmount.StringFixed(2))
	require.Nil(t, u.Credited)

	entries := f.entries(t)
	require.Len(t, entries, 1)
	require.Equal(t, earning.TypeOffer, entries[0].Type)
	require.Equal(t, "a1", entries[0].EntityID)

	sent := f.notifier.sent()
	require.Len(t, sent, 1)
	require.Equal(t, notification.KindOfferEarned, sent[0].Kind)
	require.Equal(t, "Earned $1.25 from Customer Globex feedback Offer", sent[0].Body)
	require.Equal(t, notification.PartyCustomer, sent[0].FromUserType)

	_, err = f.svc.RecordOfferEarning(ctx, OfferEarningParams{AnswerID: "a2", UploadID: "u1"})
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))
}
