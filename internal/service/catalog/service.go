package catalog

import (
	"context"

	"storefront/internal/storeapi"
)

// API is the remote catalog.
type API interface {
	ListProducts(ctx context.Context, q storeapi.ProductQuery) (storeapi.ProductPage, error)
	GetProduct(ctx context.Context, id string) (storeapi.Product, error)
	ListCategories(ctx context.Context) ([]storeapi.Category, error)
}

type Service struct {
	api API
}

func New(api API) *Service {
	return &Service{api: api}
}

func (s *Service) List(ctx context.Context, q storeapi.ProductQuery) (storeapi.ProductPage, error) {
	return s.api.ListProducts(ctx, q)
}

func (s *Service) Get(ctx context.Context, id string) (storeapi.Product, error) {
	return s.api.GetProduct(ctx, id)
}

func (s *Service) Categories(ctx context.Context) ([]storeapi.Category, error) {
	return s.api.ListCategories(ctx)
}
