package httpapi

import (
	"errors"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/i474232898/tabilog/internal/planner"
	"github.com/i474232898/tabilog/internal/trip"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc *planner.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/plans", func(c *fiber.Ctx) error {
		plans, err := svc.Plans()
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(plans)
	})

	v1.Post("/plans", func(c *fiber.Ctx) error {
		var req createPlanRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
		plan, err := svc.CreatePlan(req.Title, req.StartDate)
		if err != nil {
			return toHTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(plan)
	})

	v1.Patch("/plans/:id", func(c *fiber.Ctx) error {
		var req updatePlanRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
		plan, err := svc.UpdatePlanDetails(c.Params("id"), req.Title, req.Subtitle)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(plan)
	})

	v1.Delete("/plans/:id", func(c *fiber.Ctx) error {
		if err := svc.DeletePlan(c.Params("id")); err != nil {
			return toHTTPError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/plans/:id/itinerary", func(c *fiber.Ctx) error {
		days, err := svc.OpenItinerary(c.UserContext(), c.Params("id"))
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(days)
	})

	v1.Put("/plans/:id/itinerary/start-date", func(c *fiber.Ctx) error {
		var req startDateRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
		days, err := svc.SetStartDate(c.UserContext(), c.Params("id"), req.StartDate)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(days)
	})

	v1.Post("/plans/:id/itinerary/weather/refresh", func(c *fiber.Ctx) error {
		days, err := svc.RefreshWeather(c.UserContext(), c.Params("id"))
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(days)
	})

	v1.Post("/plans/:id/days", func(c *fiber.Ctx) error {
		days, err := svc.AddDay(c.Params("id"))
		if err != nil {
			return toHTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(days)
	})

	v1.Post("/plans/:id/days/reorder", func(c *fiber.Ctx) error {
		var req reorderRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
		days, err := svc.ReorderDays(c.UserContext(), c.Params("id"), *req.From, *req.To)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(days)
	})

	v1.Put("/plans/:id/days/:dayId", func(c *fiber.Ctx) error {
		var req updateDayRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
		day, err := svc.UpdateDay(c.UserContext(), c.Params("id"), c.Params("dayId"), req.toUpdate())
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(day)
	})

	v1.Delete("/plans/:id/days/:dayId", func(c *fiber.Ctx) error {
		days, err := svc.DeleteDay(c.UserContext(), c.Params("id"), c.Params("dayId"))
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(days)
	})

	v1.Get("/plans/:id/expenses", func(c *fiber.Ctx) error {
		expenses, err := svc.Expenses(c.Params("id"))
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(expenses)
	})

	v1.Get("/plans/:id/expenses/summary", func(c *fiber.Ctx) error {
		summary, err := svc.ExpenseSummary(c.Params("id"))
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(summary)
	})

	v1.Post("/plans/:id/expenses", func(c *fiber.Ctx) error {
		var req expenseRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
		expense, err := svc.AddExpense(c.Params("id"), req.toExpense())
		if err != nil {
			return toHTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(expense)
	})

	v1.Delete("/plans/:id/expenses/:expenseId", func(c *fiber.Ctx) error {
		if err := svc.DeleteExpense(c.Params("id"), c.Params("expenseId")); err != nil {
			return toHTTPError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/plans/:id/export", func(c *fiber.Ctx) error {
		data, filename, err := svc.Export(c.Params("id"))
		if err != nil {
			return toHTTPError(err)
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, "attachment; filename*=UTF-8''"+url.PathEscape(filename))
		return c.Send(data)
	})
}

// createPlanRequest is the body of POST /plans.
type createPlanRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
}

type updatePlanRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Subtitle string `json:"subtitle" validate:"max=200"`
}

type startDateRequest struct {
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
}

type reorderRequest struct {
	From *int `json:"from" validate:"required,min=0"`
	To   *int `json:"to" validate:"required,min=0"`
}

type activityRequest struct {
	ID            string      `json:"id"`
	Time          string      `json:"time" validate:"max=100"`
	Title         string      `json:"title" validate:"required,max=200"`
	Location      string      `json:"location" validate:"max=200"`
	Description   string      `json:"description"`
	Type          string      `json:"type" validate:"required,oneof=FLIGHT HOTEL ACTIVITY TRANSPORT FOOD"`
	GoogleMapLink string      `json:"googleMapLink" validate:"omitempty,url"`
	Todos         []trip.Todo `json:"todos"`
	Notes         string      `json:"notes"`
}

// updateDayRequest carries the editable fields of a day. Dates are derived
// and weather is server-owned, so neither is accepted here.
type updateDayRequest struct {
	Location   string            `json:"location" validate:"max=200"`
	Subtitle   string            `json:"subtitle" validate:"max=200"`
	Activities []activityRequest `json:"activities" validate:"dive"`
}

func (r updateDayRequest) toUpdate() trip.DayUpdate {
	upd := trip.DayUpdate{
		Location:   strings.TrimSpace(r.Location),
		Subtitle:   r.Subtitle,
		Activities: make([]trip.Activity, 0, len(r.Activities)),
	}
	for _, a := range r.Activities {
		id := a.ID
		if id == "" {
			id = uuid.NewString()
		}
		upd.Activities = append(upd.Activities, trip.Activity{
			ID:            id,
			Time:          a.Time,
			Title:         a.Title,
			Location:      strings.TrimSpace(a.Location),
			Description:   a.Description,
			Type:          trip.ActivityType(a.Type),
			GoogleMapLink: a.GoogleMapLink,
			Todos:         a.Todos,
			Notes:         a.Notes,
		})
	}
	return upd
}

type expenseRequest struct {
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Currency    string  `json:"currency" validate:"required,oneof=JPY TWD"`
	Category    string  `json:"category" validate:"required,max=50"`
	Description string  `json:"description" validate:"max=200"`
}

func (r expenseRequest) toExpense() trip.Expense {
	return trip.Expense{
		Date:        r.Date,
		Amount:      r.Amount,
		Currency:    trip.Currency(r.Currency),
		Category:    r.Category,
		Description: r.Description,
	}
}

func bindAndValidate(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// toHTTPError maps service errors onto HTTP statuses.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, planner.ErrPlanNotFound),
		errors.Is(err, planner.ErrExpenseNotFound),
		errors.Is(err, trip.ErrDayNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, trip.ErrLastDay):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, trip.ErrInvalidIndex),
		errors.Is(err, trip.ErrInvalidDate),
		errors.Is(err, trip.ErrInvalidExpense):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
}
