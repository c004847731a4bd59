package dashboard

import (
	"context"

	"github.com/fjod/oil_storefront/internal/domain"
)

type Products interface {
	List(ctx context.Context) ([]domain.Product, error)
}

type Orders interface {
	CountByStatus(ctx context.Context, customerID string) (map[domain.OrderStatus]int, error)
}

type Customers interface {
	Customers(ctx context.Context) ([]domain.Customer, error)
}

type AdminSummary struct {
	Products      int `json:"products"`
	PendingOrders int `json:"pendingOrders"`
	Customers     int `json:"customers"`
}

type CustomerSummary struct {
	Orders   int `json:"orders"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

type Service struct {
	products  Products
	orders    Orders
	customers Customers
}

func NewService(products Products, orders Orders, customers Customers) *Service {
	return &Service{products: products, orders: orders, customers: customers}
}

func (s *Service) Admin(ctx context.Context) (AdminSummary, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return AdminSummary{}, err
	}
	counts, err := s.orders.CountByStatus(ctx, "")
	if err != nil {
		return AdminSummary{}, err
	}
	customers, err := s.customers.Customers(ctx)
	if err != nil {
		return AdminSummary{}, err
	}
	return AdminSummary{
		Products:      len(products),
		PendingOrders: counts[domain.OrderStatusPending],
		Customers:     len(customers),
	}, nil
}

func (s *Service) Customer(ctx context.Context, customerID string) (CustomerSummary, error) {
	counts, err := s.orders.CountByStatus(ctx, customerID)
	if err != nil {
		return CustomerSummary{}, err
	}
	sum := CustomerSummary{
		Pending:  counts[domain.OrderStatusPending],
		Approved: counts[domain.OrderStatusApproved],
		Rejected: counts[domain.OrderStatusRejected],
	}
	sum.Orders = sum.Pending + sum.Approved + sum.Rejected
	return sum, nil
}
