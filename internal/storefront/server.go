// Package storefront is the reference implementation of the remote store API:
// catalog, carts, orders and payment links backed by Postgres.
package storefront

import (
	"context"
	"net/http"
	"time"

	"coffeecart/internal/repository/cart"
	"coffeecart/internal/repository/catalog"
	"coffeecart/internal/repository/order"
	"coffeecart/internal/repository/token"
	"coffeecart/internal/repository/user"
	"go.uber.org/zap"
)

type Deps struct {
	Users    user.Repository
	Tokens   token.Repository
	Catalog  catalog.Repository
	Carts    cart.Repository
	Orders   order.Repository
	Payments *PaymentLinks
	Currency string
	Ready    func(context.Context) error
	Now      func() time.Time
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func New(addr string, logger *zap.Logger, deps Deps) (*Server, error) {
	router, err := buildRouter(logger, deps)
	if err != nil {
		return nil, err
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}, nil
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
