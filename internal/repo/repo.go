package repo

import (
	"context"

	"github.com/Egor213/JewelCRM/internal/domain"
	"github.com/Egor213/JewelCRM/internal/repo/pgdb"
	"github.com/Egor213/JewelCRM/internal/repo/repotypes"
	"github.com/Egor213/JewelCRM/pkg/postgres"
)

type Customer interface {
	Create(ctx context.Context, c *domain.Customer) (domain.Customer, error)
	GetByID(ctx context.Context, id int) (domain.Customer, error)
	List(ctx context.Context, filter repotypes.CustomerFilter) ([]domain.Customer, error)
	Delete(ctx context.Context, id int) (int64, error)
}

type Interaction interface {
	Create(ctx context.Context, i *domain.Interaction) (domain.Interaction, error)
	ListByCustomer(ctx context.Context, customerID int) ([]domain.Interaction, error)
}

type EventLog interface {
	InsertLogEntries(ctx context.Context, entries []domain.LogEntry) (int64, error)
}

type Repositories struct {
	Customers    Customer
	Interactions Interaction
	EventLogs    EventLog
}

func NewRepositories(pg *postgres.Postgres) *Repositories {
	return &Repositories{
		Customers:    pgdb.NewCustomerRepo(pg),
		Interactions: pgdb.NewInteractionRepo(pg),
		EventLogs:    pgdb.NewEventLogRepo(pg),
	}
}
