package service

import (
	"context"

	"github.com/Egor213/JewelCRM/internal/dbmon"
	"github.com/Egor213/JewelCRM/internal/domain"
	"github.com/Egor213/JewelCRM/internal/eventlog"
	"github.com/Egor213/JewelCRM/internal/repo"
	"github.com/Egor213/JewelCRM/internal/repo/repotypes"
)

type CustomerInput struct {
	Email    string
	FullName string
	Phone    string
	Notes    string
}

type InteractionInput struct {
	CustomerID int
	Kind       domain.InteractionKind
	Note       string
	CreatedBy  string
}

type Customer interface {
	Create(ctx context.Context, in CustomerInput) (domain.Customer, error)
	Get(ctx context.Context, id int) (domain.Customer, error)
	List(ctx context.Context, filter repotypes.CustomerFilter) ([]domain.Customer, error)
	Delete(ctx context.Context, id int) error
	AddInteraction(ctx context.Context, in InteractionInput) (domain.Interaction, error)
	Interactions(ctx context.Context, customerID int) ([]domain.Interaction, error)
}

type Services struct {
	Customer Customer
}

type ServicesDependencies struct {
	Repos  *repo.Repositories
	DB     *dbmon.Monitor
	Events *eventlog.Logger
}

func NewServices(deps ServicesDependencies) *Services {
	return &Services{
		Customer: NewCustomerService(deps.Repos.Customers, deps.Repos.Interactions, deps.DB, deps.Events),
	}
}
