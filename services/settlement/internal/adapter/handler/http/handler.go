package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/qraft-Inc/coffeetrace-sub002/pkg/errors"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/domain/entity"
	"github.com/qraft-Inc/coffeetrace-sub002/services/settlement/internal/middleware/auth"
)

// Validator adapts validator/v10 to echo.Validator.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New()}
}

func (v *Validator) Validate(i interface{}) error {
	err := v.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, err.Error(), err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return apperrors.NewAppError(apperrors.ErrInvalidArgument, strings.Join(msgs, "; "), err)
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "invalid request body", err)
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(req)
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.NewAppError(apperrors.ErrInvalidArgument, fmt.Sprintf("%s must be a uuid", name), err)
	}
	return id, nil
}

func pageParams(c echo.Context) (entity.PaginationParams, error) {
	var page entity.PaginationParams
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &page); err != nil {
		return page, apperrors.NewAppError(apperrors.ErrInvalidArgument, "invalid pagination parameters", err)
	}
	page.Normalize()
	return page, nil
}

func currentUser(c echo.Context) (*auth.AuthUser, error) {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrUnauthenticated, "authentication required", err)
	}
	return user, nil
}

func forbidden() error {
	return apperrors.NewAppError(apperrors.ErrUnauthorized, "not allowed to access this farmer", nil)
}

// farmerAccess returns the caller when they may act on the farmer.
func farmerAccess(c echo.Context, farmerID uuid.UUID) (*auth.AuthUser, error) {
	user, err := currentUser(c)
	if err != nil {
		return nil, err
	}
	if !user.CanAccessFarmer(farmerID) {
		return nil, forbidden()
	}
	return user, nil
}

type listResponse struct {
	Data       interface{}           `json:"data"`
	Pagination entity.PaginationMeta `json:"pagination"`
}

// errorWithEntity renders err like the global error handler and attaches the
// entity the failure was recorded on.
func errorWithEntity(c echo.Context, err error, key string, entity interface{}) error {
	status, body := apperrors.ToHTTPResponse(err)
	return c.JSON(status, map[string]interface{}{
		"error": body.Error,
		"code":  body.Code,
		key:     entity,
	})
}

func ok(c echo.Context, v interface{}) error {
	return c.JSON(http.StatusOK, v)
}
