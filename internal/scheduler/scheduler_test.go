package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/blizzgame/marketplace/internal/clock"
	"github.com/blizzgame/marketplace/internal/config"
	"github.com/blizzgame/marketplace/internal/payment/cinetpay"
	obsmetrics "github.com/blizzgame/marketplace/internal/observability/metrics"
	paymentdomain "github.com/blizzgame/marketplace/internal/payment/domain"
	paymentrepo "github.com/blizzgame/marketplace/internal/payment/repository"
	paymentservice "github.com/blizzgame/marketplace/internal/payment/service"
	reputationdomain "github.com/blizzgame/marketplace/internal/reputation/domain"
	shoprepo "github.com/blizzgame/marketplace/internal/shop/repository"
	"github.com/blizzgame/marketplace/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockPaymentSvc struct{ mock.Mock }

func (m *mockPaymentSvc) InitiatePayment(ctx context.Context, req paymentdomain.InitiatePaymentRequest) (*paymentdomain.InitiatePaymentResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*paymentdomain.InitiatePaymentResponse)
	return resp, args.Error(1)
}

func (m *mockPaymentSvc) HandleNotification(ctx context.Context, providerTxID string) (*paymentdomain.NotificationResult, error) {
	args := m.Called(ctx, providerTxID)
	res, _ := args.Get(0).(*paymentdomain.NotificationResult)
	return res, args.Error(1)
}

func (m *mockPaymentSvc) GetPaymentStatus(ctx context.Context, orderID string) (*paymentdomain.PaymentStatusResponse, error) {
	args := m.Called(ctx, orderID)
	res, _ := args.Get(0).(*paymentdomain.PaymentStatusResponse)
	return res, args.Error(1)
}

type mockReputationSvc struct{ mock.Mock }

func (m *mockReputationSvc) RecordOutcome(ctx context.Context, req reputationdomain.RecordOutcomeRequest) (*reputationdomain.Reputation, error) {
	args := m.Called(ctx, req)
	rep, _ := args.Get(0).(*reputationdomain.Reputation)
	return rep, args.Error(1)
}

func (m *mockReputationSvc) Recompute(ctx context.Context, sellerID int64) (*reputationdomain.Reputation, error) {
	args := m.Called(ctx, sellerID)
	rep, _ := args.Get(0).(*reputationdomain.Reputation)
	return rep, args.Error(1)
}

func (m *mockReputationSvc) RecomputeAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockReputationSvc) GetSellerReputation(ctx context.Context, sellerID int64, lang string) (*reputationdomain.Reputation, error) {
	args := m.Called(ctx, sellerID, lang)
	rep, _ := args.Get(0).(*reputationdomain.Reputation)
	return rep, args.Error(1)
}

func (m *mockReputationSvc) Badges(context.Context, string) []reputationdomain.Badge {
	return nil
}

var now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db         *gorm.DB
	sched      *Scheduler
	payment    *mockPaymentSvc
	reputation *mockReputationSvc
	registry   *prometheus.Registry
}

func newFixture(t *testing.T, cfg Config, tiers *config.ReputationConfigHolder) *fixture {
	t.Helper()

	registry := prometheus.NewRegistry()
	jobMetrics, err := obsmetrics.NewJobMetrics(registry, obsmetrics.Config{ServiceName: "blizz", Environment: "test"})
	require.NoError(t, err)

	f := &fixture{
		db:         testutil.OpenTestDB(t),
		payment:    &mockPaymentSvc{},
		reputation: &mockReputationSvc{},
		registry:   registry,
	}
	f.sched, err = New(Params{
		DB:            f.db,
		Log:           zap.NewNop(),
		GenID:         testutil.NewNode(t),
		Clock:         clock.NewFakeClock(now),
		PaymentRepo:   paymentrepo.Provide(),
		PaymentSvc:    f.payment,
		ReputationSvc: f.reputation,
		Tiers:         tiers,
		JobMetrics:    jobMetrics,
		Config:        cfg,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		f.payment.AssertExpectations(t)
		f.reputation.AssertExpectations(t)
	})
	return f
}

func (f *fixture) seedTx(t *testing.T, orderID int64, providerID string, status paymentdomain.TransactionStatus, updatedAt time.Time) {
	t.Helper()
	require.NoError(t, f.db.Create(&paymentdomain.Transaction{
		ID:                    orderID * 10,
		OrderID:               orderID,
		ProviderTransactionID: providerID,
		Amount:                decimal.NewFromInt(15000),
		Currency:              "XOF",
		Status:                status,
		CreatedAt:             updatedAt,
		UpdatedAt:             updatedAt,
	}).Error)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestStalePaymentsJobChecksOnlyOldUnsettledTransactions(t *testing.T) {
	f := newFixture(t, Config{StalePaymentAfter: 10 * time.Minute}, nil)
	f.seedTx(t, 1, "BLZ-old-pending", paymentdomain.TransactionPending, now.Add(-time.Hour))
	f.seedTx(t, 2, "BLZ-old-processing", paymentdomain.TransactionProcessing, now.Add(-20*time.Minute))
	f.seedTx(t, 3, "BLZ-fresh", paymentdomain.TransactionPending, now.Add(-time.Minute))
	f.seedTx(t, 4, "BLZ-done", paymentdomain.TransactionCompleted, now.Add(-time.Hour))

	f.payment.On("HandleNotification", mock.Anything, "BLZ-old-pending").
		Return(&paymentdomain.NotificationResult{Outcome: paymentdomain.OutcomeCompleted}, nil).Once()
	f.payment.On("HandleNotification", mock.Anything, "BLZ-old-processing").
		Return(&paymentdomain.NotificationResult{Outcome: paymentdomain.OutcomeUnhandled}, nil).Once()

	err := f.sched.runJob(context.Background(), JobStalePayments, 50, time.Second, f.sched.StalePaymentsJob)
	require.NoError(t, err)

	f.payment.AssertNotCalled(t, "HandleNotification", mock.Anything, "BLZ-fresh")
	f.payment.AssertNotCalled(t, "HandleNotification", mock.Anything, "BLZ-done")
}

func TestStalePaymentsJobSkipsInFlightNotifications(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.seedTx(t, 1, "BLZ-busy", paymentdomain.TransactionPending, now.Add(-time.Hour))
	f.payment.On("HandleNotification", mock.Anything, "BLZ-busy").
		Return(nil, paymentdomain.ErrNotificationInFlight).Once()

	assert.NoError(t, f.sched.StalePaymentsJob(context.Background()))
}

func TestStalePaymentsJobReportsFailures(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	f.seedTx(t, 1, "BLZ-down", paymentdomain.TransactionPending, now.Add(-time.Hour))
	f.payment.On("HandleNotification", mock.Anything, "BLZ-down").
		Return(nil, paymentdomain.ErrServiceUnavailable).Once()

	err := f.sched.runJob(context.Background(), JobStalePayments, 50, time.Second, f.sched.StalePaymentsJob)

	require.Error(t, err)
	assert.ErrorIs(t, err, paymentdomain.ErrServiceUnavailable)
	assert.Equal(t, 1.0, counterValue(t, f.registry, "blizz_scheduler_job_errors_total", map[string]string{
		"job":    JobStalePayments,
		"reason": obsmetrics.JobReasonError,
	}))
}

func TestStalePaymentsJobRespectsBatchSize(t *testing.T) {
	f := newFixture(t, Config{BatchSize: 1}, nil)
	f.seedTx(t, 1, "BLZ-first", paymentdomain.TransactionPending, now.Add(-2*time.Hour))
	f.seedTx(t, 2, "BLZ-second", paymentdomain.TransactionPending, now.Add(-time.Hour))
	f.payment.On("HandleNotification", mock.Anything, "BLZ-first").
		Return(&paymentdomain.NotificationResult{Outcome: paymentdomain.OutcomeFailed}, nil).Once()

	require.NoError(t, f.sched.StalePaymentsJob(context.Background()))
}

// unknownAtProvider answers every status check with a business rejection,
// like a checkout the customer never opened.
type unknownAtProvider struct {
	mu      sync.Mutex
	checked []string
}

func (g *unknownAtProvider) Initiate(context.Context, cinetpay.InitiateRequest) (*cinetpay.InitiateResult, error) {
	return nil, errors.New("not used")
}

func (g *unknownAtProvider) Check(_ context.Context, transactionID string) (*cinetpay.CheckResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checked = append(g.checked, transactionID)
	return nil, &cinetpay.RejectionError{Code: "627", Message: "TRANSACTION_NOT_FOUND"}
}

func (g *unknownAtProvider) Checked() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.checked...)
}

func TestStalePaymentsJobRotatesUnverifiedTransactions(t *testing.T) {
	f := newFixture(t, Config{}, nil)
	gateway := &unknownAtProvider{}
	fakeClock := clock.NewFakeClock(now)
	node := testutil.NewNode(t)

	svc := paymentservice.NewService(paymentservice.Params{
		DB:       f.db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     paymentrepo.Provide(),
		ShopRepo: shoprepo.Provide(),
		Gateway:  gateway,
		Clock:    fakeClock,
	})
	sched, err := New(Params{
		DB:            f.db,
		Log:           zap.NewNop(),
		GenID:         node,
		Clock:         fakeClock,
		PaymentRepo:   paymentrepo.Provide(),
		PaymentSvc:    svc,
		ReputationSvc: f.reputation,
		Config:        Config{BatchSize: 1, StalePaymentAfter: 10 * time.Minute},
	})
	require.NoError(t, err)

	f.seedTx(t, 1, "BLZ-abandoned", paymentdomain.TransactionPending, now.Add(-2*time.Hour))
	f.seedTx(t, 2, "BLZ-newer", paymentdomain.TransactionPending, now.Add(-time.Hour))

	require.NoError(t, sched.StalePaymentsJob(context.Background()))
	require.NoError(t, sched.StalePaymentsJob(context.Background()))
	require.NoError(t, sched.StalePaymentsJob(context.Background()))

	assert.Equal(t, []string{"BLZ-abandoned", "BLZ-newer"}, gateway.Checked())

	var abandoned paymentdomain.Transaction
	require.NoError(t, f.db.First(&abandoned, "provider_transaction_id = ?", "BLZ-abandoned").Error)
	assert.Equal(t, paymentdomain.TransactionPending, abandoned.Status)
	assert.Equal(t, "627", abandoned.ProviderStatus)
	assert.False(t, abandoned.UpdatedAt.Before(now.Add(-10*time.Minute)))
}

func TestReputationRecomputeRunsOncePerTierTable(t *testing.T) {
	tiers, err := config.NewStaticReputationConfigHolder(config.DefaultReputationConfig())
	require.NoError(t, err)
	f := newFixture(t, Config{EnabledJobs: []string{JobReputationRecompute}}, tiers)
	f.reputation.On("RecomputeAll", mock.Anything).Return(3, nil).Once()

	require.NoError(t, f.sched.RunOnce(context.Background()))
	require.NoError(t, f.sched.RunOnce(context.Background()))

	assert.Equal(t, 3.0, counterValue(t, f.registry, "blizz_scheduler_job_processed_total", map[string]string{
		"job": JobReputationRecompute,
	}))
	assert.Equal(t, 2.0, counterValue(t, f.registry, "blizz_scheduler_job_runs_total", map[string]string{
		"job": JobReputationRecompute,
	}))
}

func TestReputationRecomputeRetriesAfterFailure(t *testing.T) {
	tiers, err := config.NewStaticReputationConfigHolder(config.DefaultReputationConfig())
	require.NoError(t, err)
	f := newFixture(t, Config{}, tiers)
	f.reputation.On("RecomputeAll", mock.Anything).Return(0, assert.AnError).Once()
	f.reputation.On("RecomputeAll", mock.Anything).Return(2, nil).Once()

	require.Error(t, f.sched.ReputationRecomputeJob(context.Background()))
	require.NoError(t, f.sched.ReputationRecomputeJob(context.Background()))
	require.NoError(t, f.sched.ReputationRecomputeJob(context.Background()))
}

func TestReputationRecomputeWithoutTierHolderIsNoop(t *testing.T) {
	f := newFixture(t, Config{}, nil)

	assert.NoError(t, f.sched.ReputationRecomputeJob(context.Background()))
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	f := newFixture(t, Config{}, nil)

	err := f.sched.runJob(context.Background(), "timeout_job", 0, 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	require.NoError(t, err)
	assert.Equal(t, 1.0, counterValue(t, f.registry, "blizz_scheduler_job_timeouts_total", map[string]string{
		"job": "timeout_job",
	}))
	assert.Equal(t, 1.0, counterValue(t, f.registry, "blizz_scheduler_job_errors_total", map[string]string{
		"job":    "timeout_job",
		"reason": obsmetrics.JobReasonDeadlineExceeded,
	}))
}

func TestIsJobEnabled(t *testing.T) {
	s := &Scheduler{cfg: Config{}}
	assert.True(t, s.isJobEnabled(JobStalePayments))

	s.cfg.EnabledJobs = []string{"Stale_Payments"}
	assert.True(t, s.isJobEnabled(JobStalePayments))
	assert.False(t, s.isJobEnabled(JobReputationRecompute))
}

// counterValue reads a counter by its variable labels; the service and env
// const labels are implied.
func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	want := map[string]string{"service": "blizz", "env": "test"}
	for k, v := range labels {
		want[k] = v
	}

	families, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if labelsMatch(metric, want) {
				require.NotNil(t, metric.Counter, "metric %s is not a counter", name)
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, want)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
