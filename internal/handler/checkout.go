package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"print-checkout-backend/internal/model"
	"print-checkout-backend/internal/service"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	webhookService  service.WebhookService
	siteBaseURL     string
}

func NewCheckoutHandler(checkoutService service.CheckoutService, webhookService service.WebhookService, siteBaseURL string) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		webhookService:  webhookService,
		siteBaseURL:     siteBaseURL,
	}
}

type cartRequest struct {
	Items         []model.CartLine `json:"items"`
	Country       string           `json:"country"`
	CustomerEmail string           `json:"customer_email"`
}

func (h *CheckoutHandler) PriceCart(c echo.Context) error {
	ctx := c.Request().Context()

	var req cartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	quote, err := h.checkoutService.PriceCart(ctx, req.Items, req.Country)
	if err != nil {
		log.Printf("price cart: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "pricing_failed"})
	}
	return c.JSON(http.StatusOK, quote)
}

func (h *CheckoutHandler) CreateCheckout(c echo.Context) error {
	ctx := c.Request().Context()

	var req cartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	url, err := h.checkoutService.CreateCheckout(ctx, req.Items, req.Country, req.CustomerEmail)
	if err != nil {
		return h.checkoutError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

// CheckoutLink is the single-item convenience variant: a GET the shop can
// put behind a plain "buy now" anchor.
func (h *CheckoutHandler) CheckoutLink(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.QueryParam("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing id query param")
	}
	qty, err := strconv.Atoi(c.QueryParam("qty"))
	if err != nil || qty < 1 {
		qty = 1
	}

	lines := []model.CartLine{{ProductID: id, Qty: qty}}
	url, err := h.checkoutService.CreateCheckout(ctx, lines, c.QueryParam("country"), c.QueryParam("email"))

	// A product id the store no longer knows validates down to an empty
	// cart, which for a single-item link means the item is gone.
	var oos *service.OutOfStockError
	switch {
	case errors.As(err, &oos), errors.Is(err, service.ErrEmptyCart):
		return c.Redirect(http.StatusSeeOther, h.siteBaseURL+"/sold-out")
	case err != nil:
		log.Printf("checkout link for %s: %v", id, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "checkout failed")
	}
	return c.Redirect(http.StatusSeeOther, url)
}

func (h *CheckoutHandler) StripeWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	// The raw bytes must reach verification untouched; parsing first would
	// break the signature.
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	err = h.webhookService.HandleEvent(ctx, c.Request().Header.Get("Stripe-Signature"), body)
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		// 4xx: the provider must not redeliver a forged or stale event.
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_signature"})
	case err != nil:
		// 5xx: valid event, processing failed; the provider will redeliver.
		log.Printf("webhook processing: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "processing_failed"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}

func (h *CheckoutHandler) checkoutError(c echo.Context, err error) error {
	var oos *service.OutOfStockError
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "empty_cart"})
	case errors.As(err, &oos):
		return c.JSON(http.StatusConflict, map[string]any{
			"error":      "out_of_stock",
			"outOfStock": oos.Items,
		})
	default:
		log.Printf("create checkout: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "checkout_failed"})
	}
}
