package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/blizzgame/marketplace/internal/commerce/domain"
	"github.com/blizzgame/marketplace/internal/commerce/repository"
	"github.com/blizzgame/marketplace/internal/commerce/shopify"
	"github.com/blizzgame/marketplace/internal/config"
	"github.com/blizzgame/marketplace/internal/events"
	paymentdomain "github.com/blizzgame/marketplace/internal/payment/domain"
	paymentrepository "github.com/blizzgame/marketplace/internal/payment/repository"
	shopdomain "github.com/blizzgame/marketplace/internal/shop/domain"
	shoprepository "github.com/blizzgame/marketplace/internal/shop/repository"
	"github.com/blizzgame/marketplace/internal/testutil"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const webhookSecret = "shpss_test_secret"

type mockPlatform struct {
	mock.Mock
}

func (m *mockPlatform) ListProducts(ctx context.Context, limit int) ([]shopify.Product, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]shopify.Product), args.Error(1)
}

func (m *mockPlatform) GetProduct(ctx context.Context, productID string) (*shopify.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shopify.Product), args.Error(1)
}

func (m *mockPlatform) CreateOrder(ctx context.Context, input shopify.OrderInput) (*shopify.Order, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shopify.Order), args.Error(1)
}

func (m *mockPlatform) UpdateOrder(ctx context.Context, orderID string, input shopify.OrderInput) (*shopify.Order, error) {
	args := m.Called(ctx, orderID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shopify.Order), args.Error(1)
}

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	platform *mockPlatform
	recorder *events.Recorder
	svc      domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:       testutil.OpenTestDB(t),
		node:     testutil.NewNode(t),
		platform: &mockPlatform{},
		recorder: &events.Recorder{},
	}
	cfg := config.Config{Shopify: config.ShopifyConfig{WebhookSecret: webhookSecret}}
	f.svc = New(Params{
		DB:          f.db,
		Log:         zap.NewNop(),
		GenID:       f.node,
		Repo:        repository.Provide(),
		ShopRepo:    shoprepository.Provide(),
		PaymentRepo: paymentrepository.Provide(),
		Platform:    f.platform,
		Verifier:    shopify.NewVerifier(cfg),
		Publisher:   f.recorder,
	})
	return f
}

func signed(topic, webhookID, body string) domain.WebhookRequest {
	return domain.WebhookRequest{
		Topic:     topic,
		WebhookID: webhookID,
		Signature: shopify.Sign([]byte(webhookSecret), []byte(body)),
		Body:      []byte(body),
	}
}

// paidRemoteOrder seeds a paid order already mirrored remotely, with a
// completed payment transaction.
func (f *fixture) paidRemoteOrder(t *testing.T, remoteID string) *shopdomain.Order {
	t.Helper()
	product := testutil.SeedProduct(t, f.db, f.node, "console", "150000")
	order := testutil.SeedOrder(t, f.db, f.node, product, 1)
	require.NoError(t, f.db.Model(&shopdomain.Order{}).Where("id = ?", order.ID).Updates(map[string]any{
		"payment_status":  shopdomain.PaymentPaid,
		"status":          shopdomain.OrderProcessing,
		"remote_order_id": remoteID,
	}).Error)

	now := time.Now().UTC()
	require.NoError(t, f.db.Create(&paymentdomain.Transaction{
		ID:                    f.node.Generate().Int64(),
		OrderID:               order.ID,
		ProviderTransactionID: "SHOP_" + order.OrderNumber + "_abcdef12",
		Amount:                decimal.NewFromInt(150000),
		Currency:              "XOF",
		Status:                paymentdomain.TransactionCompleted,
		CreatedAt:             now,
		UpdatedAt:             now,
		CompletedAt:           &now,
	}).Error)
	return order
}

func (f *fixture) markPaid(t *testing.T, orderID int64) {
	t.Helper()
	require.NoError(t, f.db.Model(&shopdomain.Order{}).Where("id = ?", orderID).Updates(map[string]any{
		"payment_status": shopdomain.PaymentPaid,
		"status":         shopdomain.OrderProcessing,
	}).Error)
}

func TestCreateRemoteOrderFetchesMissingVariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, f.db, f.node, "manette", "15000")
	require.NoError(t, f.db.Model(&shopdomain.Product{}).Where("id = ?", product.ID).Update("remote_product_id", "632910392").Error)
	order := testutil.SeedOrder(t, f.db, f.node, product, 2)
	f.markPaid(t, order.ID)

	f.platform.On("GetProduct", mock.Anything, "632910392").Return(&shopify.Product{
		ID:       "632910392",
		Variants: []shopify.Variant{{ID: "808950810", Price: "15000.00"}},
	}, nil).Once()
	f.platform.On("CreateOrder", mock.Anything, mock.MatchedBy(func(in shopify.OrderInput) bool {
		return len(in.LineItems) == 1 &&
			in.LineItems[0].VariantID != nil &&
			*in.LineItems[0].VariantID == 808950810 &&
			in.LineItems[0].Quantity == 2 &&
			in.FinancialStatus == "pending" &&
			in.Tags == domain.OrderTags &&
			in.ShippingAddress.City == "Abidjan"
	})).Return(&shopify.Order{
		ID:          "450789469",
		OrderNumber: "1001",
		LineItems:   []shopify.LineItem{{ID: "466157049", Quantity: 2}},
	}, nil).Once()
	f.platform.On("UpdateOrder", mock.Anything, "450789469", mock.MatchedBy(func(in shopify.OrderInput) bool {
		return in.FinancialStatus == "paid" && in.Tags == domain.PaidOrderTags
	})).Return(&shopify.Order{ID: "450789469"}, nil).Once()

	remoteID, err := f.svc.CreateRemoteOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "450789469", remoteID)

	stored := testutil.ReloadOrder(t, f.db, order.ID)
	assert.Equal(t, "450789469", stored.RemoteOrderID)
	assert.Equal(t, "1001", stored.RemoteOrderNumber)
	assert.Equal(t, "466157049", stored.Items[0].RemoteLineItemID)

	var reloaded shopdomain.Product
	require.NoError(t, f.db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Equal(t, "808950810", reloaded.RemoteVariantID)
	assert.Equal(t, 1, f.recorder.Count(events.TypeOrderRemoteCreated))

	again, err := f.svc.CreateRemoteOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "450789469", again)
	f.platform.AssertNumberOfCalls(t, "CreateOrder", 1)
	f.platform.AssertExpectations(t)
}

func TestCreateRemoteOrderUsesCustomLineWithoutRemoteProduct(t *testing.T) {
	f := newFixture(t)
	product := testutil.SeedProduct(t, f.db, f.node, "casque", "9000")
	order := testutil.SeedOrder(t, f.db, f.node, product, 1)
	f.markPaid(t, order.ID)

	f.platform.On("CreateOrder", mock.Anything, mock.MatchedBy(func(in shopify.OrderInput) bool {
		return len(in.LineItems) == 1 &&
			in.LineItems[0].VariantID == nil &&
			in.LineItems[0].Title == "casque" &&
			in.LineItems[0].Price == "9000.00"
	})).Return(&shopify.Order{ID: "1", OrderNumber: "1002"}, nil).Once()
	f.platform.On("UpdateOrder", mock.Anything, "1", mock.Anything).Return(nil, errors.New("timeout")).Once()

	remoteID, err := f.svc.CreateRemoteOrder(context.Background(), order.ID)
	require.NoError(t, err, "mark paid failure is logged only")
	assert.Equal(t, "1", remoteID)
	f.platform.AssertNotCalled(t, "GetProduct", mock.Anything, mock.Anything)
}

func TestCreateRemoteOrderRequiresPayment(t *testing.T) {
	f := newFixture(t)
	product := testutil.SeedProduct(t, f.db, f.node, "casque", "9000")
	order := testutil.SeedOrder(t, f.db, f.node, product, 1)

	_, err := f.svc.CreateRemoteOrder(context.Background(), order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotPaid)

	_, err = f.svc.CreateRemoteOrder(context.Background(), f.node.Generate().Int64())
	assert.ErrorIs(t, err, shopdomain.ErrOrderNotFound)
	f.platform.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestCreateRemoteOrderPlatformFailure(t *testing.T) {
	f := newFixture(t)
	product := testutil.SeedProduct(t, f.db, f.node, "casque", "9000")
	order := testutil.SeedOrder(t, f.db, f.node, product, 1)
	f.markPaid(t, order.ID)

	f.platform.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, errors.New("502")).Once()
	_, err := f.svc.CreateRemoteOrder(context.Background(), order.ID)
	require.Error(t, err)
	assert.Empty(t, testutil.ReloadOrder(t, f.db, order.ID).RemoteOrderID)
}

func TestWebhookBadSignatureWritesNothing(t *testing.T) {
	f := newFixture(t)
	order := f.paidRemoteOrder(t, "450789469")
	body := `{"id":1,"order_id":450789469}`

	req := signed(domain.TopicRefundsCreate, "wh-1", body)
	req.Signature = shopify.Sign([]byte("other-secret"), []byte(body))
	_, err := f.svc.IngestWebhook(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	req.Signature = ""
	_, err = f.svc.IngestWebhook(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	var count int64
	require.NoError(t, f.db.Model(&domain.WebhookEvent{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, shopdomain.PaymentPaid, testutil.ReloadOrder(t, f.db, order.ID).PaymentStatus)
	assert.Empty(t, f.recorder.Types())
}

func TestWebhookInvalidPayloadAndUnknownTopic(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.IngestWebhook(context.Background(), signed(domain.TopicOrdersUpdated, "wh-1", `{not json`))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = f.svc.IngestWebhook(context.Background(), signed("carts/create", "wh-2", `{"id":1}`))
	assert.ErrorIs(t, err, domain.ErrUnknownTopic)

	var count int64
	require.NoError(t, f.db.Model(&domain.WebhookEvent{}).Count(&count).Error)
	assert.Zero(t, count, "rejected webhooks are not recorded")
}

func TestWebhookDuplicateIsAcknowledged(t *testing.T) {
	f := newFixture(t)
	order := f.paidRemoteOrder(t, "450789469")
	body := `{"id":255858046,"order_id":450789469,"status":"success"}`

	res, err := f.svc.IngestWebhook(context.Background(), signed(domain.TopicFulfillmentsCreate, "wh-dup", body))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, res.Outcome)

	res, err = f.svc.IngestWebhook(context.Background(), signed(domain.TopicFulfillmentsCreate, "wh-dup", body))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeDuplicate, res.Outcome)

	assert.Equal(t, 1, f.recorder.Count(events.TypeOrderShipped))
	stored := testutil.ReloadOrder(t, f.db, order.ID)
	assert.Equal(t, shopdomain.OrderShipped, stored.Status)
	assert.NotNil(t, stored.ShippedAt)
}

func TestRefundAfterFulfillmentStaysRefunded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.paidRemoteOrder(t, "450789469")

	_, err := f.svc.IngestWebhook(ctx, signed(domain.TopicFulfillmentsCreate, "wh-f", `{"id":1,"order_id":450789469,"status":"success"}`))
	require.NoError(t, err)

	res, err := f.svc.IngestWebhook(ctx, signed(domain.TopicRefundsCreate, "wh-r", `{"id":2,"order_id":450789469}`))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, res.Outcome)

	res, err = f.svc.IngestWebhook(ctx, signed(domain.TopicOrdersUpdated, "wh-u",
		`{"id":450789469,"financial_status":"paid","fulfillment_status":"fulfilled"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUnchanged, res.Outcome)

	stored := testutil.ReloadOrder(t, f.db, order.ID)
	assert.Equal(t, shopdomain.OrderRefunded, stored.Status)
	assert.Equal(t, shopdomain.PaymentRefunded, stored.PaymentStatus)

	var txn paymentdomain.Transaction
	require.NoError(t, f.db.First(&txn, "order_id = ?", order.ID).Error)
	assert.Equal(t, paymentdomain.TransactionRefunded, txn.Status)
	assert.Equal(t, 1, f.recorder.Count(events.TypeOrderRefunded))
}

func TestOrderUpdatedPartialAndRefunded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, f.db, f.node, "console", "150000")
	order := testutil.SeedOrder(t, f.db, f.node, product, 1)
	require.NoError(t, f.db.Model(&shopdomain.Order{}).Where("id = ?", order.ID).Update("remote_order_id", "77").Error)

	res, err := f.svc.IngestWebhook(ctx, signed(domain.TopicOrdersUpdated, "wh-1", `{"id":77,"fulfillment_status":"partial"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, res.Outcome)
	stored := testutil.ReloadOrder(t, f.db, order.ID)
	assert.Equal(t, shopdomain.OrderProcessing, stored.Status)
	assert.Equal(t, "partial", stored.RemoteFulfillmentStatus)

	_, err = f.svc.IngestWebhook(ctx, signed(domain.TopicOrdersUpdated, "wh-2", `{"id":77,"financial_status":"refunded"}`))
	require.NoError(t, err)
	assert.Equal(t, shopdomain.OrderRefunded, testutil.ReloadOrder(t, f.db, order.ID).Status)
}

func TestWebhookForUnknownOrder(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.IngestWebhook(context.Background(), signed(domain.TopicRefundsCreate, "wh-x", `{"id":2,"order_id":999}`))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotFound, res.Outcome)
}

func TestCancelledFulfillmentIsIgnored(t *testing.T) {
	f := newFixture(t)
	order := f.paidRemoteOrder(t, "450789469")
	res, err := f.svc.IngestWebhook(context.Background(), signed(domain.TopicFulfillmentsCreate, "wh-c", `{"id":1,"order_id":450789469,"status":"cancelled"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeIgnored, res.Outcome)
	assert.Equal(t, shopdomain.OrderProcessing, testutil.ReloadOrder(t, f.db, order.ID).Status)
}

func TestProductWebhookAppliesDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.IngestWebhook(ctx, signed(domain.TopicProductsCreate, "wh-p1",
		`{"id":123,"title":"","status":"draft","variants":[{"id":456,"price":"7500.00"}]}`))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, res.Outcome)

	var product shopdomain.Product
	require.NoError(t, f.db.First(&product, "remote_product_id = ?", "123").Error)
	assert.Equal(t, domain.UntitledProduct, product.Name)
	assert.Equal(t, "prod-123", product.Slug)
	assert.Equal(t, shopdomain.ProductInactive, product.Status)
	assert.Equal(t, "456", product.RemoteVariantID)
	assert.Equal(t, "7500.00", product.Price.StringFixed(2))

	var category shopdomain.Category
	require.NoError(t, f.db.First(&category, "id = ?", product.CategoryID).Error)
	assert.Equal(t, domain.DefaultCategory, category.Name)

	_, err = f.svc.IngestWebhook(ctx, signed(domain.TopicProductsUpdate, "wh-p2",
		`{"id":123,"title":"Manette Pro","handle":"manette-pro","product_type":"Accessoires","status":"active","variants":[{"id":456,"price":"8000"}]}`))
	require.NoError(t, err)
	require.NoError(t, f.db.First(&product, "remote_product_id = ?", "123").Error)
	assert.Equal(t, "Manette Pro", product.Name)
	assert.Equal(t, "manette-pro", product.Slug)
	assert.Equal(t, shopdomain.ProductActive, product.Status)

	var count int64
	require.NoError(t, f.db.Model(&shopdomain.Product{}).Where("remote_product_id = ?", "123").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	res, err = f.svc.IngestWebhook(ctx, signed(domain.TopicProductsDelete, "wh-p3", `{"id":123}`))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeApplied, res.Outcome)
	require.NoError(t, f.db.First(&product, "remote_product_id = ?", "123").Error)
	assert.Equal(t, shopdomain.ProductInactive, product.Status)
	assert.Equal(t, 1, f.recorder.Count(events.TypeCatalogProductDeactivated))
}

func TestUpsertProductSlugCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.UpsertProduct(ctx, shopify.Product{ID: "1", Title: "Manette", Handle: "manette", Status: "active"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "manette", first.Slug)

	second, err := f.svc.UpsertProduct(ctx, shopify.Product{ID: "2", Title: "Manette", Handle: "manette", Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, "manette-2", second.Slug)

	again, err := f.svc.UpsertProduct(ctx, shopify.Product{ID: "1", Title: "Manette", Handle: "manette", Status: "active"})
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, "manette", again.Slug)
	assert.Equal(t, first.ProductID, again.ProductID)
}

func TestSyncCatalogCountsResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.UpsertProduct(ctx, shopify.Product{ID: "10", Title: "Ancien", Status: "active"})
	require.NoError(t, err)

	f.platform.On("ListProducts", mock.Anything, 50).Return([]shopify.Product{
		{ID: "10", Title: "Ancien", Status: "active"},
		{ID: "11", Title: "Nouveau", Status: "active", Variants: []shopify.Variant{{ID: "99", Price: "1000"}}},
		{ID: "", Title: "Sans id"},
	}, nil).Once()

	res, err := f.svc.SyncCatalog(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, &domain.SyncResult{Fetched: 3, Created: 1, Updated: 1, Failed: 1}, res)
}

func TestDeactivateProductUnknown(t *testing.T) {
	f := newFixture(t)
	found, err := f.svc.DeactivateProduct(context.Background(), strconv.Itoa(404))
	require.NoError(t, err)
	assert.False(t, found)
}
