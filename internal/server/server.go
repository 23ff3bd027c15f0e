package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"print-checkout-backend/internal/handler"
)

type Server struct {
	echo            *echo.Echo
	checkoutHandler *handler.CheckoutHandler
}

func NewServer(checkoutHandler *handler.CheckoutHandler) *Server {
	e := echo.New()

	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:            e,
		checkoutHandler: checkoutHandler,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	s.echo.POST("/cart/price", s.checkoutHandler.PriceCart)
	s.echo.POST("/checkout/create", s.checkoutHandler.CreateCheckout)
	s.echo.GET("/checkout/link", s.checkoutHandler.CheckoutLink)

	// -------- payment provider callbacks --------
	s.echo.POST("/stripe/webhook", s.checkoutHandler.StripeWebhook)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}
