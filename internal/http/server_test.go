package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"zaakiyah/internal/checkout"
	"zaakiyah/internal/core"
	"zaakiyah/internal/gateway"
	"zaakiyah/internal/storage"
)

type fakeGateway struct {
	mu             sync.Mutex
	recipientCalls int

	listFn     func(ctx context.Context, page, limit int) (gateway.RecipientPage, error)
	initiateFn func(ctx context.Context, req gateway.InitiatePaymentRequest, key string) (gateway.InitiatePaymentResponse, error)
	verifyFn   func(ctx context.Context, donationID, reference string) (gateway.VerifyPaymentResponse, error)
	historyFn  func(ctx context.Context, page, limit int) (gateway.DonationPage, error)
	findFn     func(ctx context.Context, id string) (core.Donation, error)
}

func (f *fakeGateway) ListRecipients(ctx context.Context, page, limit int) (gateway.RecipientPage, error) {
	f.mu.Lock()
	f.recipientCalls++
	f.mu.Unlock()
	if f.listFn != nil {
		return f.listFn(ctx, page, limit)
	}
	return gateway.RecipientPage{
		Recipients: []core.Recipient{
			{ID: "r1", ApplicationID: "a1", Name: "First"},
			{ID: "r2", ApplicationID: "a2", Name: "Second"},
		},
		Page: page, Limit: limit, Total: 2,
	}, nil
}

func (f *fakeGateway) InitiatePayment(ctx context.Context, req gateway.InitiatePaymentRequest, key string) (gateway.InitiatePaymentResponse, error) {
	if f.initiateFn != nil {
		return f.initiateFn(ctx, req, key)
	}
	return gateway.InitiatePaymentResponse{
		DonationID:  "don-1",
		Reference:   "ref-1",
		PaymentLink: "https://pay.example.com/s/abc",
	}, nil
}

func (f *fakeGateway) VerifyPayment(ctx context.Context, donationID, reference string) (gateway.VerifyPaymentResponse, error) {
	if f.verifyFn != nil {
		return f.verifyFn(ctx, donationID, reference)
	}
	return gateway.VerifyPaymentResponse{
		Status: core.DonationCompleted,
		Donation: core.Donation{
			ID:          donationID,
			Reference:   reference,
			Status:      core.DonationCompleted,
			TotalAmount: core.Money{Cents: 200000},
			Recipients: []core.DonationRecipient{
				{RecipientID: "r1", Amount: core.Money{Cents: 50000}},
				{RecipientID: "r2", Amount: core.Money{Cents: 50000}},
			},
		},
	}, nil
}

func (f *fakeGateway) ListDonations(ctx context.Context, page, limit int) (gateway.DonationPage, error) {
	if f.historyFn != nil {
		return f.historyFn(ctx, page, limit)
	}
	return gateway.DonationPage{Page: page, Limit: limit}, nil
}

func (f *fakeGateway) FindDonation(ctx context.Context, id string) (core.Donation, error) {
	if f.findFn != nil {
		return f.findFn(ctx, id)
	}
	return core.Donation{}, &gateway.APIError{StatusCode: http.StatusNotFound, Message: "not found"}
}

type memStore struct {
	mu        sync.Mutex
	donations map[string]core.Donation
}

func newMemStore() *memStore {
	return &memStore{donations: make(map[string]core.Donation)}
}

func (m *memStore) RecordCompleted(_ context.Context, d core.Donation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.donations[d.ID]; !ok {
		m.donations[d.ID] = d
	}
	return nil
}

func (m *memStore) GetDonation(_ context.Context, id string) (core.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.donations[id]
	if !ok {
		return core.Donation{}, storage.ErrNotFound
	}
	return d, nil
}

func (m *memStore) ListRecent(_ context.Context, limit int) ([]core.Donation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Donation
	for _, d := range m.donations {
		out = append(out, d)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func newTestServer(t *testing.T, gw gateway.Client, store DonationStore) (*httptest.Server, *http.Client) {
	t.Helper()
	s := NewServer(":0", gw, store, 30*time.Minute)
	ts := httptest.NewServer(s.Server.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = s.Shutdown(context.Background())
	})

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return ts, &http.Client{Jar: jar}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func addRecipient(t *testing.T, client *http.Client, base, id string) {
	t.Helper()
	resp := doJSON(t, client, http.MethodPost, base+"/api/basket/items", map[string]any{
		"recipient": map[string]any{"id": id, "applicationId": "app-" + id, "name": "Recipient " + id},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add recipient %s: status %d", id, resp.StatusCode)
	}
	resp.Body.Close()
}

func TestBasketFlow(t *testing.T) {
	ts, client := newTestServer(t, &fakeGateway{}, newMemStore())

	addRecipient(t, client, ts.URL, "r1")
	addRecipient(t, client, ts.URL, "r2")

	// Re-adding an existing recipient must not duplicate it.
	addRecipient(t, client, ts.URL, "r1")

	resp := doJSON(t, client, http.MethodPost, ts.URL+"/api/basket/distribute-equally",
		map[string]any{"totalAmount": 1000.00})
	view := decodeBody[basketView](t, resp)
	if view.Count != 2 {
		t.Fatalf("count = %d, want 2", view.Count)
	}
	if view.TotalAmount.Cents != 100000 {
		t.Errorf("total = %d cents, want 100000", view.TotalAmount.Cents)
	}
	if view.Items[0].Amount.Cents != 50000 || view.Items[1].Amount.Cents != 50000 {
		t.Errorf("item amounts = %d, %d", view.Items[0].Amount.Cents, view.Items[1].Amount.Cents)
	}

	resp = doJSON(t, client, http.MethodPut, ts.URL+"/api/basket/support",
		map[string]any{"supportZaakiyah": true, "amount": 1000.00})
	view = decodeBody[basketView](t, resp)
	if view.TotalAmount.Cents != 200000 {
		t.Errorf("total with support = %d cents, want 200000", view.TotalAmount.Cents)
	}

	resp = doJSON(t, client, http.MethodDelete, ts.URL+"/api/basket/items/r2", nil)
	view = decodeBody[basketView](t, resp)
	if view.Count != 1 || view.TotalAmount.Cents != 150000 {
		t.Errorf("after remove: count=%d total=%d", view.Count, view.TotalAmount.Cents)
	}
}

func TestUpdateAmountUnknownRecipient(t *testing.T) {
	ts, client := newTestServer(t, &fakeGateway{}, newMemStore())

	resp := doJSON(t, client, http.MethodPut, ts.URL+"/api/basket/items/ghost",
		map[string]any{"amount": 10.00})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCheckoutFlow(t *testing.T) {
	gw := &fakeGateway{}
	store := newMemStore()
	ts, client := newTestServer(t, gw, store)

	addRecipient(t, client, ts.URL, "r1")
	addRecipient(t, client, ts.URL, "r2")
	resp := doJSON(t, client, http.MethodPost, ts.URL+"/api/basket/distribute-equally",
		map[string]any{"totalAmount": 1000.00})
	resp.Body.Close()
	resp = doJSON(t, client, http.MethodPut, ts.URL+"/api/basket/support",
		map[string]any{"supportZaakiyah": true, "amount": 1000.00})
	resp.Body.Close()

	resp = doJSON(t, client, http.MethodPost, ts.URL+"/api/checkout/initiate",
		map[string]any{"paymentMethod": "card"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("initiate status = %d", resp.StatusCode)
	}
	co := decodeBody[checkoutView](t, resp)
	if co.State != checkout.StateAwaitingRedirect || co.PaymentLink == "" {
		t.Fatalf("checkout = %+v", co)
	}

	resp = doJSON(t, client, http.MethodGet,
		ts.URL+"/donations/callback?reference=ref-1&donation_id=don-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("callback status = %d", resp.StatusCode)
	}
	co = decodeBody[checkoutView](t, resp)
	if co.State != checkout.StateCompleted || co.Receipt == nil {
		t.Fatalf("after callback: %+v", co)
	}
	if co.Receipt.Total.Cents != 200000 || co.Receipt.RecipientCount != 2 {
		t.Errorf("receipt = %+v", co.Receipt)
	}

	// Verified donation must be in the local ledger.
	if _, err := store.GetDonation(context.Background(), "don-1"); err != nil {
		t.Errorf("donation not recorded: %v", err)
	}

	// Basket is cleared after completion.
	resp = doJSON(t, client, http.MethodGet, ts.URL+"/api/basket", nil)
	view := decodeBody[basketView](t, resp)
	if view.Count != 0 {
		t.Errorf("basket count after completion = %d, want 0", view.Count)
	}

	// Replayed callback returns the same receipt.
	resp = doJSON(t, client, http.MethodGet,
		ts.URL+"/donations/callback?reference=ref-1&donation_id=don-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("replayed callback status = %d", resp.StatusCode)
	}
	co = decodeBody[checkoutView](t, resp)
	if co.Receipt == nil || co.Receipt.DonationID != "don-1" {
		t.Errorf("replayed receipt = %+v", co.Receipt)
	}
}

func TestCheckoutEmptyBasket(t *testing.T) {
	ts, client := newTestServer(t, &fakeGateway{}, newMemStore())

	resp := doJSON(t, client, http.MethodPost, ts.URL+"/api/checkout/initiate",
		map[string]any{"paymentMethod": "card"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	body := decodeBody[map[string]string](t, resp)
	if body["code"] != "empty_basket" || body["redirect"] == "" {
		t.Errorf("body = %v", body)
	}
}

func TestCheckoutFailedVerificationKeepsBasket(t *testing.T) {
	gw := &fakeGateway{
		verifyFn: func(ctx context.Context, donationID, reference string) (gateway.VerifyPaymentResponse, error) {
			return gateway.VerifyPaymentResponse{Status: core.DonationFailed}, nil
		},
	}
	ts, client := newTestServer(t, gw, newMemStore())

	addRecipient(t, client, ts.URL, "r1")
	resp := doJSON(t, client, http.MethodPost, ts.URL+"/api/basket/distribute-equally",
		map[string]any{"totalAmount": 50.00})
	resp.Body.Close()

	resp = doJSON(t, client, http.MethodPost, ts.URL+"/api/checkout/initiate",
		map[string]any{"paymentMethod": "card"})
	resp.Body.Close()

	resp = doJSON(t, client, http.MethodGet,
		ts.URL+"/donations/callback?reference=ref-1&donation_id=don-1", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	body := decodeBody[map[string]string](t, resp)
	if body["code"] != "payment_not_completed" {
		t.Errorf("code = %q", body["code"])
	}

	resp = doJSON(t, client, http.MethodGet, ts.URL+"/api/basket", nil)
	view := decodeBody[basketView](t, resp)
	if view.Count != 1 {
		t.Errorf("basket count = %d, want 1 preserved", view.Count)
	}
}

func TestRecipientPageCache(t *testing.T) {
	gw := &fakeGateway{}
	ts, client := newTestServer(t, gw, newMemStore())

	for i := 0; i < 3; i++ {
		resp := doJSON(t, client, http.MethodGet, ts.URL+"/api/recipients?page=1&limit=20", nil)
		page := decodeBody[gateway.RecipientPage](t, resp)
		if len(page.Recipients) != 2 {
			t.Fatalf("recipients = %d", len(page.Recipients))
		}
	}

	gw.mu.Lock()
	calls := gw.recipientCalls
	gw.mu.Unlock()
	if calls != 1 {
		t.Errorf("gateway calls = %d, want 1 with cache", calls)
	}
}

func TestWatchlistEndpoints(t *testing.T) {
	ts, client := newTestServer(t, &fakeGateway{}, newMemStore())

	add := func() *http.Response {
		return doJSON(t, client, http.MethodPost, ts.URL+"/api/watchlist", map[string]any{
			"recipient": map[string]any{"id": "r1", "applicationId": "a1", "name": "First"},
		})
	}

	resp := add()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first add status = %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	resp = add()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second add status = %d, want 200", resp.StatusCode)
	}
	view := decodeBody[watchlistView](t, resp)
	if view.Count != 1 {
		t.Errorf("count = %d, want 1", view.Count)
	}

	resp = doJSON(t, client, http.MethodDelete, ts.URL+"/api/watchlist/r1", nil)
	view = decodeBody[watchlistView](t, resp)
	if view.Count != 0 {
		t.Errorf("count after remove = %d, want 0", view.Count)
	}
}

func TestDonationHistoryFallsBackToLedger(t *testing.T) {
	gw := &fakeGateway{
		historyFn: func(ctx context.Context, page, limit int) (gateway.DonationPage, error) {
			return gateway.DonationPage{}, errors.New("gateway down")
		},
	}
	store := newMemStore()
	_ = store.RecordCompleted(context.Background(), core.Donation{
		ID: "don-9", Status: core.DonationCompleted, TotalAmount: core.Money{Cents: 1234},
	})
	ts, client := newTestServer(t, gw, store)

	resp := doJSON(t, client, http.MethodGet, ts.URL+"/api/donations/history", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	page := decodeBody[gateway.DonationPage](t, resp)
	if len(page.Donations) != 1 || page.Donations[0].ID != "don-9" {
		t.Errorf("page = %+v", page)
	}
}

func TestGetDonationLedgerFallback(t *testing.T) {
	gw := &fakeGateway{
		findFn: func(ctx context.Context, id string) (core.Donation, error) {
			return core.Donation{}, errors.New("gateway down")
		},
	}
	store := newMemStore()
	_ = store.RecordCompleted(context.Background(), core.Donation{
		ID: "don-9", Status: core.DonationCompleted, TotalAmount: core.Money{Cents: 1234},
	})
	ts, client := newTestServer(t, gw, store)

	resp := doJSON(t, client, http.MethodGet, ts.URL+"/api/donations/don-9", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	d := decodeBody[core.Donation](t, resp)
	if d.ID != "don-9" || d.TotalAmount.Cents != 1234 {
		t.Errorf("donation = %+v", d)
	}

	resp = doJSON(t, client, http.MethodGet, ts.URL+"/api/donations/missing", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing donation status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts, client := newTestServer(t, &fakeGateway{}, newMemStore())

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := client.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}
}
