package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"print-checkout-backend/internal/config"
	"print-checkout-backend/internal/model"
)

func testAirtableConfig(baseURL string) *config.Airtable {
	return &config.Airtable{
		BaseApiURL:         baseURL,
		APIKey:             "key_test",
		BaseID:             "appTestBase",
		ProductsTable:      "Products",
		OrdersTable:        "Orders",
		OrderItemsTable:    "OrderItems",
		ShippingRatesTable: "ShippingRates",
	}
}

func TestFetchProductsMapsRecordFields(t *testing.T) {
	var gotPath, gotFormula, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFormula = r.URL.Query().Get("filterByFormula")
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{
				{
					"id": "recA",
					"fields": map[string]any{
						"Name":          "Harbour Study",
						"Price":         12000,
						"Currency":      "USD",
						"SKU":           "HS-01",
						"Quantity":      1,
						"Status":        "Available",
						"Shipping Tier": "TUBE_L",
						"Hold Expires":  "2026-08-31T12:00:00Z",
					},
				},
				{
					// Sparse record: numeric fields must default to zero.
					"id":     "recB",
					"fields": map[string]any{"Name": "Untitled"},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewAirtableClient(testAirtableConfig(srv.URL))
	products, err := c.FetchProducts(context.Background(), []string{"recA", "recB"})
	if err != nil {
		t.Fatalf("FetchProducts: %v", err)
	}

	if gotPath != "/appTestBase/Products" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotAuth != "Bearer key_test" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if !strings.Contains(gotFormula, "RECORD_ID()='recA'") || !strings.HasPrefix(gotFormula, "OR(") {
		t.Errorf("filter formula = %q", gotFormula)
	}

	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	a := products[0]
	if a.PriceMinorUnits != 12000 || a.Status != model.StatusAvailable || a.ShippingTier != model.TierTubeL {
		t.Errorf("mapped product = %+v", a)
	}
	if a.HoldExpiresAt == nil || !a.HoldExpiresAt.Equal(time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("hold expiry = %v", a.HoldExpiresAt)
	}
	b := products[1]
	if b.PriceMinorUnits != 0 || b.AvailableQty != 0 {
		t.Errorf("sparse record must default numerics to zero, got %+v", b)
	}
	if b.HoldExpiresAt != nil {
		t.Errorf("sparse record hold expiry = %v", b.HoldExpiresAt)
	}
}

func TestFetchProductsEmptyInputSkipsRemoteCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := NewAirtableClient(testAirtableConfig(srv.URL))
	products, err := c.FetchProducts(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchProducts: %v", err)
	}
	if products != nil {
		t.Errorf("expected empty result, got %v", products)
	}
	if calls != 0 {
		t.Errorf("expected no remote call for empty input, got %d", calls)
	}
}

func TestFetchProductsChunksLargeIDLists(t *testing.T) {
	var calls int
	var perCall []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		formula := r.URL.Query().Get("filterByFormula")
		n := strings.Count(formula, "RECORD_ID()")
		perCall = append(perCall, n)
		records := make([]map[string]any, n)
		for i := range records {
			records[i] = map[string]any{
				"id":     "rec",
				"fields": map[string]any{"Name": "Untitled", "Status": "Available"},
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"records": records})
	}))
	defer srv.Close()

	ids := make([]string, 250)
	for i := range ids {
		ids[i] = "rec" + strings.Repeat("x", i%3+1)
	}

	c := NewAirtableClient(testAirtableConfig(srv.URL))
	products, err := c.FetchProducts(context.Background(), ids)
	if err != nil {
		t.Fatalf("FetchProducts: %v", err)
	}

	if calls != 3 {
		t.Errorf("expected 3 requests for 250 ids, got %d", calls)
	}
	for i, n := range perCall {
		if n > 100 {
			t.Errorf("request %d carried %d ids, want at most 100", i+1, n)
		}
	}
	if len(products) != 250 {
		t.Errorf("expected every id accounted for, got %d products", len(products))
	}
}

func TestFindOrderBySessionID(t *testing.T) {
	var gotPath, gotFormula string
	found := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFormula = r.URL.Query().Get("filterByFormula")
		records := []map[string]any{}
		if found {
			records = append(records, map[string]any{"id": "recOrder1", "fields": map[string]any{}})
		}
		json.NewEncoder(w).Encode(map[string]any{"records": records})
	}))
	defer srv.Close()

	c := NewAirtableClient(testAirtableConfig(srv.URL))
	id, err := c.FindOrderBySessionID(context.Background(), "cs_1")
	if err != nil {
		t.Fatalf("FindOrderBySessionID: %v", err)
	}
	if id != "recOrder1" {
		t.Errorf("order record id = %q", id)
	}
	if gotPath != "/appTestBase/Orders" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotFormula != "{Session ID}='cs_1'" {
		t.Errorf("filter formula = %q", gotFormula)
	}

	found = false
	id, err = c.FindOrderBySessionID(context.Background(), "cs_2")
	if err != nil {
		t.Fatalf("FindOrderBySessionID (none): %v", err)
	}
	if id != "" {
		t.Errorf("expected empty id when no order exists, got %q", id)
	}
}

func TestPatchProductsEncodesTransitions(t *testing.T) {
	var body struct {
		Records []struct {
			ID     string         `json:"id"`
			Fields map[string]any `json:"fields"`
		} `json:"records"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"records":[]}`))
	}))
	defer srv.Close()

	expiry := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	c := NewAirtableClient(testAirtableConfig(srv.URL))
	err := c.PatchProducts(context.Background(), []ProductPatch{
		{ID: "recA", Status: model.StatusOnHold, HoldExpiresAt: &expiry},
		{ID: "recB", Status: model.StatusSold, ClearHoldExpiry: true, ZeroQuantity: true, OrderRef: "ord_1"},
	})
	if err != nil {
		t.Fatalf("PatchProducts: %v", err)
	}

	if len(body.Records) != 2 {
		t.Fatalf("expected 2 records in body, got %d", len(body.Records))
	}
	hold := body.Records[0]
	if hold.Fields["Status"] != "On Hold" || hold.Fields["Hold Expires"] != "2026-08-31T12:00:00Z" {
		t.Errorf("hold record fields = %v", hold.Fields)
	}
	sold := body.Records[1]
	if sold.Fields["Status"] != "Sold" || sold.Fields["Quantity"] != float64(0) || sold.Fields["Order"] != "ord_1" {
		t.Errorf("sold record fields = %v", sold.Fields)
	}
	if cleared, present := sold.Fields["Hold Expires"]; !present || cleared != nil {
		t.Errorf("expected Hold Expires cleared to null, got %v (present=%v)", cleared, present)
	}
}

func TestCreateOrderReturnsRecordID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{{"id": "recOrder1", "fields": map[string]any{}}},
		})
	}))
	defer srv.Close()

	c := NewAirtableClient(testAirtableConfig(srv.URL))
	id, err := c.CreateOrder(context.Background(), &model.OrderDraft{
		SessionID: "cs_1",
		Status:    "Paid",
		Email:     "buyer@example.com",
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if id != "recOrder1" {
		t.Errorf("order record id = %q", id)
	}
}

func TestFetchShippingRatesScopesByCountry(t *testing.T) {
	var gotFormula string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFormula = r.URL.Query().Get("filterByFormula")
		json.NewEncoder(w).Encode(map[string]any{
			"records": []map[string]any{
				{"id": "recR1", "fields": map[string]any{
					"Tier": "TUBE_L", "Country": "US", "Amount": 1500, "Label": "Large tube",
				}},
			},
		})
	}))
	defer srv.Close()

	c := NewAirtableClient(testAirtableConfig(srv.URL))
	rates, err := c.FetchShippingRates(context.Background(), []model.ShippingTier{model.TierTubeL}, "US")
	if err != nil {
		t.Fatalf("FetchShippingRates: %v", err)
	}

	if !strings.Contains(gotFormula, "{Country}='US'") || !strings.Contains(gotFormula, "{Tier}='TUBE_L'") {
		t.Errorf("filter formula = %q", gotFormula)
	}
	if len(rates) != 1 || rates[0].AmountMinorUnits != 1500 {
		t.Errorf("rates = %+v", rates)
	}
}
