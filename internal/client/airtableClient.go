package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"print-checkout-backend/internal/config"
	"print-checkout-backend/internal/model"
)

// AirtableClient is the boundary to the inventory store. It is the single
// place that knows the remote field names; everything behind it works with
// typed internal entities.
type AirtableClient interface {
	FetchProducts(ctx context.Context, ids []string) ([]*model.Product, error)
	// PatchProducts issues one batched update call. Callers are responsible
	// for chunking to the store's per-call record limit.
	PatchProducts(ctx context.Context, patches []ProductPatch) error
	FetchShippingRates(ctx context.Context, tiers []model.ShippingTier, country string) ([]*model.ShippingRate, error)
	CreateOrder(ctx context.Context, draft *model.OrderDraft) (string, error)
	// FindOrderBySessionID returns the record id of the order created for a
	// checkout session, or "" when none exists yet.
	FindOrderBySessionID(ctx context.Context, sessionID string) (string, error)
	CreateOrderItems(ctx context.Context, items []*model.OrderItemDraft) error
}

// ProductPatch describes a status transition for one product record.
type ProductPatch struct {
	ID              string
	Status          model.ProductStatus
	HoldExpiresAt   *time.Time
	ClearHoldExpiry bool
	ZeroQuantity    bool
	OrderRef        string
}

type airtableClientImpl struct {
	httpClient *http.Client
	cfg        config.Airtable
}

func NewAirtableClient(cfg *config.Airtable) AirtableClient {
	return &airtableClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cfg: *cfg,
	}
}

type airtableRecord struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

type airtableRecordList struct {
	Records []airtableRecord `json:"records"`
}

type airtableWriteRequest struct {
	Records []airtableWriteRecord `json:"records"`
}

type airtableWriteRecord struct {
	ID     string         `json:"id,omitempty"`
	Fields map[string]any `json:"fields"`
}

func (c *airtableClientImpl) tableURL(table string) string {
	return fmt.Sprintf("%s/%s/%s", c.cfg.BaseApiURL, c.cfg.BaseID, url.PathEscape(table))
}

func (c *airtableClientImpl) do(ctx context.Context, method, rawURL string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request payload: %w", err)
		}
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("inventory store error %d: %s", resp.StatusCode, string(b))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode inventory store response: %w", err)
		}
	}
	return nil
}

// fetchPageSize matches the API's per-request record cap, so id lists are
// chunked to keep each filter formula within a single page of results.
const fetchPageSize = 100

func (c *airtableClientImpl) FetchProducts(ctx context.Context, ids []string) ([]*model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	products := make([]*model.Product, 0, len(ids))
	for start := 0; start < len(ids); start += fetchPageSize {
		end := start + fetchPageSize
		if end > len(ids) {
			end = len(ids)
		}
		page, err := c.fetchProductPage(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		products = append(products, page...)
	}
	return products, nil
}

func (c *airtableClientImpl) fetchProductPage(ctx context.Context, ids []string) ([]*model.Product, error) {
	clauses := make([]string, len(ids))
	for i, id := range ids {
		clauses[i] = fmt.Sprintf("RECORD_ID()=%s", quoteFormulaString(id))
	}
	formula := clauses[0]
	if len(clauses) > 1 {
		formula = fmt.Sprintf("OR(%s)", strings.Join(clauses, ","))
	}

	q := url.Values{}
	q.Set("filterByFormula", formula)
	q.Set("pageSize", "100")

	var list airtableRecordList
	err := c.do(ctx, http.MethodGet, c.tableURL(c.cfg.ProductsTable)+"?"+q.Encode(), nil, &list)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}

	products := make([]*model.Product, 0, len(list.Records))
	for _, rec := range list.Records {
		products = append(products, productFromRecord(rec))
	}
	return products, nil
}

func (c *airtableClientImpl) PatchProducts(ctx context.Context, patches []ProductPatch) error {
	if len(patches) == 0 {
		return nil
	}

	req := airtableWriteRequest{Records: make([]airtableWriteRecord, len(patches))}
	for i, p := range patches {
		fields := map[string]any{
			"Status": string(p.Status),
		}
		if p.HoldExpiresAt != nil {
			fields["Hold Expires"] = p.HoldExpiresAt.UTC().Format(time.RFC3339)
		}
		if p.ClearHoldExpiry {
			fields["Hold Expires"] = nil
		}
		if p.ZeroQuantity {
			fields["Quantity"] = 0
		}
		if p.OrderRef != "" {
			fields["Order"] = p.OrderRef
		}
		req.Records[i] = airtableWriteRecord{ID: p.ID, Fields: fields}
	}

	if err := c.do(ctx, http.MethodPatch, c.tableURL(c.cfg.ProductsTable), req, nil); err != nil {
		return fmt.Errorf("patch products: %w", err)
	}
	return nil
}

func (c *airtableClientImpl) FetchShippingRates(ctx context.Context, tiers []model.ShippingTier, country string) ([]*model.ShippingRate, error) {
	if len(tiers) == 0 {
		return nil, nil
	}

	clauses := make([]string, len(tiers))
	for i, t := range tiers {
		clauses[i] = fmt.Sprintf("{Tier}=%s", quoteFormulaString(string(t)))
	}
	tierClause := clauses[0]
	if len(clauses) > 1 {
		tierClause = fmt.Sprintf("OR(%s)", strings.Join(clauses, ","))
	}
	formula := fmt.Sprintf("AND(%s,{Country}=%s)", tierClause, quoteFormulaString(country))

	q := url.Values{}
	q.Set("filterByFormula", formula)

	var list airtableRecordList
	err := c.do(ctx, http.MethodGet, c.tableURL(c.cfg.ShippingRatesTable)+"?"+q.Encode(), nil, &list)
	if err != nil {
		return nil, fmt.Errorf("fetch shipping rates: %w", err)
	}

	rates := make([]*model.ShippingRate, 0, len(list.Records))
	for _, rec := range list.Records {
		rates = append(rates, &model.ShippingRate{
			Tier:             model.ShippingTier(stringField(rec.Fields, "Tier")),
			Country:          stringField(rec.Fields, "Country"),
			AmountMinorUnits: intField(rec.Fields, "Amount"),
			Label:            stringField(rec.Fields, "Label"),
		})
	}
	return rates, nil
}

func (c *airtableClientImpl) CreateOrder(ctx context.Context, draft *model.OrderDraft) (string, error) {
	req := airtableWriteRequest{Records: []airtableWriteRecord{{
		Fields: map[string]any{
			"Session ID":     draft.SessionID,
			"Status":         draft.Status,
			"Email":          draft.Email,
			"Currency":       draft.Currency,
			"Amount":         draft.AmountTotal,
			"Shipping Name":  draft.ShippingName,
			"Address Line 1": draft.ShippingLine1,
			"Address Line 2": draft.ShippingLine2,
			"City":           draft.ShippingCity,
			"Postal Code":    draft.ShippingPostal,
			"Country":        draft.ShippingCountry,
		},
	}}}

	var list airtableRecordList
	if err := c.do(ctx, http.MethodPost, c.tableURL(c.cfg.OrdersTable), req, &list); err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}
	if len(list.Records) == 0 {
		return "", fmt.Errorf("create order: store returned no record")
	}
	return list.Records[0].ID, nil
}

func (c *airtableClientImpl) FindOrderBySessionID(ctx context.Context, sessionID string) (string, error) {
	q := url.Values{}
	q.Set("filterByFormula", fmt.Sprintf("{Session ID}=%s", quoteFormulaString(sessionID)))
	q.Set("maxRecords", "1")

	var list airtableRecordList
	if err := c.do(ctx, http.MethodGet, c.tableURL(c.cfg.OrdersTable)+"?"+q.Encode(), nil, &list); err != nil {
		return "", fmt.Errorf("find order by session: %w", err)
	}
	if len(list.Records) == 0 {
		return "", nil
	}
	return list.Records[0].ID, nil
}

func (c *airtableClientImpl) CreateOrderItems(ctx context.Context, items []*model.OrderItemDraft) error {
	if len(items) == 0 {
		return nil
	}

	req := airtableWriteRequest{Records: make([]airtableWriteRecord, len(items))}
	for i, it := range items {
		req.Records[i] = airtableWriteRecord{Fields: map[string]any{
			"Order ID":   it.OrderID,
			"Product ID": it.ProductID,
			"Name":       it.Name,
			"SKU":        it.SKU,
			"Price":      it.PriceMinorUnits,
			"Currency":   it.Currency,
		}}
	}

	if err := c.do(ctx, http.MethodPost, c.tableURL(c.cfg.OrderItemsTable), req, nil); err != nil {
		return fmt.Errorf("create order items: %w", err)
	}
	return nil
}

// productFromRecord maps the untyped record field bag to the internal
// Product. Missing numeric fields become 0 so a malformed upstream record
// cannot corrupt downstream arithmetic.
func productFromRecord(rec airtableRecord) *model.Product {
	p := &model.Product{
		ID:              rec.ID,
		Name:            stringField(rec.Fields, "Name"),
		PriceMinorUnits: intField(rec.Fields, "Price"),
		Currency:        stringField(rec.Fields, "Currency"),
		SKU:             stringField(rec.Fields, "SKU"),
		AvailableQty:    int(intField(rec.Fields, "Quantity")),
		Status:          model.ProductStatus(stringField(rec.Fields, "Status")),
		ShippingTier:    model.ShippingTier(stringField(rec.Fields, "Shipping Tier")),
		ImageURL:        stringField(rec.Fields, "Image URL"),
	}
	if ts := timeField(rec.Fields, "Hold Expires"); ts != nil {
		p.HoldExpiresAt = ts
	}
	return p
}

func stringField(fields map[string]any, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

func intField(fields map[string]any, name string) int64 {
	// JSON numbers decode as float64.
	if v, ok := fields[name].(float64); ok {
		return int64(v)
	}
	return 0
}

func timeField(fields map[string]any, name string) *time.Time {
	s, ok := fields[name].(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func quoteFormulaString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
}
