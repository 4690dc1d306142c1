package httpv1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Egor213/JewelCRM/internal/apierr"
	"github.com/Egor213/JewelCRM/internal/controller/http/response"
	"github.com/Egor213/JewelCRM/internal/controller/http/validators"
	"github.com/Egor213/JewelCRM/internal/domain"
	"github.com/Egor213/JewelCRM/internal/repo/repotypes"
	"github.com/Egor213/JewelCRM/internal/requestctx"
	"github.com/Egor213/JewelCRM/internal/service"
	"github.com/labstack/echo/v4"
)

type customerRoutes struct {
	customerService service.Customer
	responder       *response.Responder
}

func newCustomerRoutes(cs service.Customer, r *response.Responder) *customerRoutes {
	return &customerRoutes{customerService: cs, responder: r}
}

func (r *customerRoutes) create(c echo.Context) error {
	var req validators.CustomerRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if errs := validators.ValidateCustomer(req); len(errs) > 0 {
		return apierr.Validation(errs)
	}

	customer, err := r.customerService.Create(c.Request().Context(), service.CustomerInput{
		Email:    req.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
		Notes:    req.Notes,
	})
	if err != nil {
		return err
	}
	return r.responder.Success(c, http.StatusCreated, customer, "Customer created")
}

func (r *customerRoutes) list(c echo.Context) error {
	filter := repotypes.CustomerFilter{Search: c.QueryParam("search")}

	var errs []apierr.FieldError
	var ok bool
	if filter.Limit, ok = queryInt(c, "limit"); !ok {
		errs = append(errs, apierr.FieldError{Field: "limit", Message: "Limit must be a non-negative integer"})
	}
	if filter.Offset, ok = queryInt(c, "offset"); !ok {
		errs = append(errs, apierr.FieldError{Field: "offset", Message: "Offset must be a non-negative integer"})
	}
	if len(errs) > 0 {
		return apierr.Validation(errs)
	}

	customers, err := r.customerService.List(c.Request().Context(), filter)
	if err != nil {
		return r.responder.Database(c, err)
	}
	return r.responder.Success(c, http.StatusOK, customers, "")
}

func (r *customerRoutes) get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	customer, err := r.customerService.Get(c.Request().Context(), id)
	if err != nil {
		return customerError(err)
	}
	return r.responder.Success(c, http.StatusOK, customer, "")
}

func (r *customerRoutes) delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := r.customerService.Delete(c.Request().Context(), id); err != nil {
		return customerError(err)
	}
	return r.responder.Success(c, http.StatusOK, nil, "Customer deleted")
}

func (r *customerRoutes) addInteraction(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req validators.InteractionRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if errs := validators.ValidateInteraction(req); len(errs) > 0 {
		return apierr.Validation(errs)
	}

	ctx := c.Request().Context()
	in := service.InteractionInput{
		CustomerID: id,
		Kind:       domain.InteractionKind(req.Kind),
		Note:       req.Note,
	}
	if caller, ok := requestctx.Identity(ctx); ok {
		in.CreatedBy = caller.UserID
	}

	interaction, err := r.customerService.AddInteraction(ctx, in)
	if err != nil {
		return err
	}
	return r.responder.Success(c, http.StatusCreated, interaction, "Interaction recorded")
}

func (r *customerRoutes) interactions(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	items, err := r.customerService.Interactions(c.Request().Context(), id)
	if err != nil {
		return r.responder.Database(c, err)
	}
	return r.responder.Success(c, http.StatusOK, items, "")
}

func customerError(err error) error {
	if errors.Is(err, service.ErrCustomerNotFound) {
		return apierr.NotFound("Customer")
	}
	return err
}

func pathID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, apierr.Validation([]apierr.FieldError{{Field: "id", Message: "Id must be a positive integer"}})
	}
	return id, nil
}

// queryInt reads an optional non-negative integer query parameter.
func queryInt(c echo.Context, name string) (int, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
