package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"cmms.GO/core/actor"
	"cmms.GO/core/apperr"
	"cmms.GO/core/auth"
)

const (
	HeaderOrganization = "X-Organization-ID"
	HeaderUser         = "X-User-ID"
)

// Organization scopes the request. Token callers are bound to their
// token's organization; other callers name it in X-Organization-ID. The
// resolved actor is stored on the request context.
func Organization() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a := auth.From(c)
			if h := c.Request().Header.Get(HeaderOrganization); h != "" {
				id, err := strconv.ParseUint(h, 10, 64)
				if err != nil || id == 0 {
					return Error(c, apperr.Validation(HeaderOrganization, "invalid organization id %q", h))
				}
				if a.OrganizationID != 0 && uint(id) != a.OrganizationID {
					return Error(c, &apperr.ForbiddenError{Action: "access another organization"})
				}
				a.OrganizationID = uint(id)
			}
			if a.OrganizationID == 0 {
				return Error(c, apperr.Validation(HeaderOrganization, "header is required"))
			}
			if a.UserID == nil {
				if h := c.Request().Header.Get(HeaderUser); h != "" {
					if id, err := strconv.ParseUint(h, 10, 64); err == nil {
						uid := uint(id)
						a.UserID = &uid
					}
				}
			}
			req := c.Request()
			c.SetRequest(req.WithContext(actor.With(req.Context(), a)))
			return next(c)
		}
	}
}

// Ctx returns the request context carrying the actor.
func Ctx(c echo.Context) context.Context {
	return c.Request().Context()
}

// Org returns the organization resolved by Organization.
func Org(c echo.Context) uint {
	return actor.From(c.Request().Context()).OrganizationID
}

// ID parses a positive numeric path parameter.
func ID(c echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, apperr.Validation(name, "invalid id %q", c.Param(name))
	}
	return uint(v), nil
}

// QueryInt reads an integer query parameter, def when absent.
func QueryInt(c echo.Context, name string, def int) (int, error) {
	s := c.QueryParam(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperr.Validation(name, "must be an integer")
	}
	return v, nil
}

// Bind decodes the request body; a malformed body is a validation error.
func Bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return apperr.Validation("body", "%v", he.Message)
		}
		return apperr.Validation("body", "%v", err)
	}
	return nil
}

// Error writes err as JSON with the status from apperr.HTTPStatus.
func Error(c echo.Context, err error) error {
	status := apperr.HTTPStatus(err)
	body := echo.Map{"error": err.Error()}
	var (
		ve *apperr.ValidationError
		is *apperr.InsufficientStockError
		or *apperr.OverReceiptError
	)
	switch {
	case errors.As(err, &ve):
		body["field"] = ve.Field
	case errors.As(err, &is):
		body["available"] = is.Available
		body["requested"] = is.Requested
	case errors.As(err, &or):
		body["line_id"] = or.LineID
		body["remaining"] = or.Remaining
	}
	if status == http.StatusInternalServerError {
		if log, ok := c.Get("logger").(*zap.Logger); ok {
			log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		}
		body["error"] = "internal error"
	}
	return c.JSON(status, body)
}

// Respond writes v, or the error when err is set.
func Respond(c echo.Context, status int, v interface{}, err error) error {
	if err != nil {
		return Error(c, err)
	}
	return c.JSON(status, v)
}

// Logger makes log available to Error for unexpected failures.
func Logger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("logger", log)
			return next(c)
		}
	}
}
