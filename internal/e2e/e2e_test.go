package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blizzgame/marketplace/internal/clock"
	"github.com/blizzgame/marketplace/internal/commerce"
	"github.com/blizzgame/marketplace/internal/commerce/shopify"
	"github.com/blizzgame/marketplace/internal/config"
	"github.com/blizzgame/marketplace/internal/events"
	"github.com/blizzgame/marketplace/internal/migration"
	"github.com/blizzgame/marketplace/internal/observability"
	"github.com/blizzgame/marketplace/internal/payment"
	"github.com/blizzgame/marketplace/internal/ratelimit"
	"github.com/blizzgame/marketplace/internal/reputation"
	"github.com/blizzgame/marketplace/internal/shop"
	"github.com/blizzgame/marketplace/internal/server"
	"github.com/blizzgame/marketplace/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const webhookSecret = "shpss_e2e_secret"

type testEnv struct {
	app      *fx.App
	db       *gorm.DB
	baseURL  string
	httpSrv  *httptest.Server
	cinetpay *fakeCinetPay
	shopify  *fakeShopify
}

var env *testEnv

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	var err error
	env, err = startEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start test environment:", err)
		os.Exit(1)
	}
	code := m.Run()
	env.shutdown()
	os.Exit(code)
}

// fakeCinetPay answers session creation and reports every known
// transaction with the status set for it.
type fakeCinetPay struct {
	srv *httptest.Server

	mu       sync.Mutex
	statuses map[string]string
	checks   int
}

func newFakeCinetPay() *fakeCinetPay {
	f := &fakeCinetPay{statuses: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/payment", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TransactionID string `json:"transaction_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.statuses[req.TransactionID] = "PENDING"
		f.mu.Unlock()
		writeJSON(w, map[string]any{
			"code":    "201",
			"message": "CREATED",
			"data": map[string]string{
				"payment_url":   "https://checkout.example/" + req.TransactionID,
				"payment_token": "tok-" + req.TransactionID,
			},
		})
	})
	mux.HandleFunc("/payment/check", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TransactionID string `json:"transaction_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.checks++
		status := f.statuses[req.TransactionID]
		f.mu.Unlock()
		writeJSON(w, map[string]any{
			"code":    "00",
			"message": "SUCCES",
			"data":    map[string]string{"status": status, "amount": "55000", "currency": "XOF"},
		})
	})
	f.srv = httptest.NewServer(mux)
	return f
}

func (f *fakeCinetPay) settle(txID, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[txID] = status
}

// fakeShopify accepts order creation and updates.
type fakeShopify struct {
	srv *httptest.Server

	mu      sync.Mutex
	created []json.RawMessage
	updates int
}

func newFakeShopify() *fakeShopify {
	f := &fakeShopify{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/admin/api/2023-10/")
		raw, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case r.Method == http.MethodPost && path == "orders.json":
			f.created = append(f.created, raw)
			writeJSON(w, map[string]any{"order": map[string]any{
				"id":           450789469,
				"name":         "#1001",
				"order_number": 1001,
				"line_items":   []map[string]any{{"id": 466157049, "quantity": 2, "price": "27500.25"}},
			}})
		case r.Method == http.MethodPut && strings.HasPrefix(path, "orders/"):
			f.updates++
			writeJSON(w, map[string]any{"order": map[string]any{"id": 450789469, "financial_status": "paid"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return f
}

func (f *fakeShopify) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func startEnv() (*testEnv, error) {
	cinet := newFakeCinetPay()
	shopifyFake := newFakeShopify()

	settings := map[string]string{
		"ENVIRONMENT":              "test",
		"LOG_LEVEL":                "error",
		"OTEL_ENABLED":             "false",
		"HTTP_ADDR":                "127.0.0.1:0",
		"DATABASE_TYPE":            "sqlite",
		"DATABASE_PATH":            "file:blizz_e2e?mode=memory&cache=shared",
		"DATABASE_MAX_OPEN_CONN":   "1",
		"DATABASE_MAX_IDLE_CONN":   "1",
		"REDIS_ADDR":               "",
		"KAFKA_BROKERS":            "",
		"SCHEDULER_ENABLED":        "false",
		"CINETPAY_API_KEY":         "key",
		"CINETPAY_SITE_ID":         "site",
		"CINETPAY_BASE_URL":        cinet.srv.URL,
		"SHOPIFY_SHOP_URL":         shopifyFake.srv.URL,
		"SHOPIFY_ACCESS_TOKEN":     "shpat_e2e",
		"SHOPIFY_WEBHOOK_SECRET":   webhookSecret,
		"SHOPIFY_API_VERSION":      "2023-10",
		"BASE_URL":                 "https://blizz.example",
		"DATABASE_METRICS_ENABLED": "false",
	}
	for key, value := range settings {
		if err := os.Setenv(key, value); err != nil {
			return nil, err
		}
	}

	var (
		engine *gin.Engine
		dbConn *gorm.DB
	)
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Provide(func() (*snowflake.Node, error) { return snowflake.NewNode(1) }),
		db.Module,
		migration.Module,
		clock.Module,
		events.Module,
		ratelimit.Module,
		shop.Module,
		reputation.Module,
		payment.Module,
		commerce.Module,
		server.Module,
		fx.Populate(&engine, &dbConn),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return nil, err
	}

	httpSrv := httptest.NewServer(engine)
	return &testEnv{
		app:      app,
		db:       dbConn,
		baseURL:  httpSrv.URL,
		httpSrv:  httpSrv,
		cinetpay: cinet,
		shopify:  shopifyFake,
	}, nil
}

func (e *testEnv) shutdown() {
	if e == nil {
		return
	}
	if e.httpSrv != nil {
		e.httpSrv.Close()
	}
	if e.app != nil {
		_ = e.app.Stop(context.Background())
	}
	e.cinetpay.srv.Close()
	e.shopify.srv.Close()
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func doJSON(t *testing.T, method, path string, payload any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode json: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, env.baseURL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return send(t, req)
}

func postWebhook(t *testing.T, route, webhookID, body string, signature string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, env.baseURL+"/webhooks/shopify/"+route, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(shopify.WebhookIDHeader, webhookID)
	req.Header.Set(shopify.HmacHeader, signature)
	return send(t, req)
}

func sign(body string) string {
	return shopify.Sign([]byte(webhookSecret), []byte(body))
}

func postNotification(t *testing.T, txID string) (*http.Response, []byte) {
	t.Helper()
	form := url.Values{"cpm_trans_id": {txID}, "cpm_site_id": {"site"}}
	req, err := http.NewRequest(http.MethodPost, env.baseURL+"/api/shop/payments/cinetpay/notify", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return send(t, req)
}

func send(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, data
}

func decodeData(t *testing.T, raw []byte, out any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, raw)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("decode data: %v (%s)", err, envelope.Data)
	}
}

func countRows(t *testing.T, table string, where string, args ...any) int64 {
	t.Helper()
	var count int64
	if err := env.db.Table(table).Where(where, args...).Count(&count).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}
