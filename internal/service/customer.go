package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Egor213/JewelCRM/internal/dbmon"
	"github.com/Egor213/JewelCRM/internal/domain"
	"github.com/Egor213/JewelCRM/internal/eventlog"
	"github.com/Egor213/JewelCRM/internal/repo"
	"github.com/Egor213/JewelCRM/internal/repo/repoerrs"
	"github.com/Egor213/JewelCRM/internal/repo/repotypes"
	errorsUtils "github.com/Egor213/JewelCRM/pkg/errors"
)

const (
	customersTable    = "customers"
	interactionsTable = "customer_interactions"
)

type CustomerService struct {
	customers    repo.Customer
	interactions repo.Interaction
	db           *dbmon.Monitor
	events       *eventlog.Logger
}

func NewCustomerService(cr repo.Customer, ir repo.Interaction, db *dbmon.Monitor, events *eventlog.Logger) *CustomerService {
	return &CustomerService{
		customers:    cr,
		interactions: ir,
		db:           db,
		events:       events,
	}
}

// Create stores a new customer. Constraint violations keep the driver error
// in the chain so the SQLSTATE can be classified upstream.
func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (domain.Customer, error) {
	c := &domain.Customer{
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		FullName: strings.TrimSpace(in.FullName),
		Phone:    strings.TrimSpace(in.Phone),
		Notes:    in.Notes,
	}

	created, err := dbmon.Call(ctx, s.db, "insert", customersTable, func(ctx context.Context) (domain.Customer, error) {
		return s.customers.Create(ctx, c)
	})
	if err != nil {
		if errors.Is(err, repoerrs.ErrAlreadyExists) {
			return domain.Customer{}, fmt.Errorf("%w: %w", ErrCustomerAlreadyExists, err)
		}
		return domain.Customer{}, errorsUtils.WrapPathErr(fmt.Errorf("%w: %w", ErrCannotCreateCustomer, err))
	}

	s.events.LogBusinessEvent(ctx, "customer created", map[string]any{
		"customerId": created.ID,
	})
	return created, nil
}

func (s *CustomerService) Get(ctx context.Context, id int) (domain.Customer, error) {
	c, err := dbmon.Call(ctx, s.db, "select", customersTable, func(ctx context.Context) (domain.Customer, error) {
		return s.customers.GetByID(ctx, id)
	})
	if err != nil {
		if errors.Is(err, repoerrs.ErrNotFound) {
			return domain.Customer{}, ErrCustomerNotFound
		}
		return domain.Customer{}, errorsUtils.WrapPathErr(err)
	}
	return c, nil
}

func (s *CustomerService) List(ctx context.Context, filter repotypes.CustomerFilter) ([]domain.Customer, error) {
	customers, err := dbmon.Call(ctx, s.db, "select", customersTable, func(ctx context.Context) ([]domain.Customer, error) {
		return s.customers.List(ctx, filter)
	})
	if err != nil {
		return nil, errorsUtils.WrapPathErr(err)
	}
	return customers, nil
}

func (s *CustomerService) Delete(ctx context.Context, id int) error {
	res := dbmon.Query(ctx, s.db, "delete", customersTable, func(ctx context.Context) dbmon.Result[int64] {
		affected, err := s.customers.Delete(ctx, id)
		if err != nil {
			return dbmon.Fail[int64](err)
		}
		return dbmon.OK(affected, int(affected))
	})
	if res.Err != nil {
		return errorsUtils.WrapPathErr(res.Err)
	}
	if res.Data == 0 {
		return ErrCustomerNotFound
	}

	s.events.LogUserAction(ctx, "customer deleted", map[string]any{
		"customerId": id,
	})
	return nil
}

// AddInteraction records a touchpoint. An unknown customer surfaces as a
// foreign key violation.
func (s *CustomerService) AddInteraction(ctx context.Context, in InteractionInput) (domain.Interaction, error) {
	i := &domain.Interaction{
		CustomerID: in.CustomerID,
		Kind:       in.Kind,
		Note:       strings.TrimSpace(in.Note),
		CreatedBy:  in.CreatedBy,
	}

	created, err := dbmon.Call(ctx, s.db, "insert", interactionsTable, func(ctx context.Context) (domain.Interaction, error) {
		return s.interactions.Create(ctx, i)
	})
	if err != nil {
		return domain.Interaction{}, errorsUtils.WrapPathErr(fmt.Errorf("%w: %w", ErrCannotAddInteraction, err))
	}

	s.events.LogBusinessEvent(ctx, "interaction recorded", map[string]any{
		"customerId": created.CustomerID,
		"kind":       string(created.Kind),
	})
	return created, nil
}

func (s *CustomerService) Interactions(ctx context.Context, customerID int) ([]domain.Interaction, error) {
	items, err := dbmon.Call(ctx, s.db, "select", interactionsTable, func(ctx context.Context) ([]domain.Interaction, error) {
		return s.interactions.ListByCustomer(ctx, customerID)
	})
	if err != nil {
		return nil, errorsUtils.WrapPathErr(err)
	}
	return items, nil
}
