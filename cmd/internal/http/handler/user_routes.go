package handler

import (
	"net/http"

	"clinicalnotes/cmd/internal/contract"
	"clinicalnotes/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type UserService interface {
	FindAll() ([]*contract.UserResponse, apierror.ErrorResponse)
	FindOne(id string) (*contract.UserResponse, apierror.ErrorResponse)
	Create(req *contract.CreateUserRequest) (*contract.UserResponse, apierror.ErrorResponse)
}

type DefaultUserRoute struct {
	UserService UserService
}

func NewUserDefault(userService UserService) *DefaultUserRoute {
	return &DefaultUserRoute{UserService: userService}
}

func (u *DefaultUserRoute) GetUsers(c echo.Context) error {
	users, apierr := u.UserService.FindAll()
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}

	resp := echo.Map{"users": users}
	return c.JSON(http.StatusOK, &resp)
}

func (u *DefaultUserRoute) GetUser(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, apierror.InvalidIDError)
	}

	user, apierr := u.UserService.FindOne(id)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, user)
}

func (u *DefaultUserRoute) CreateUser(c echo.Context) error {
	var req contract.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedBodyError)
	}

	user, apierr := u.UserService.Create(&req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusCreated, &user)
}
