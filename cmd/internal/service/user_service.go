package service

import (
	"strings"

	"clinicalnotes/cmd/internal/contract"
	"clinicalnotes/cmd/internal/domain/entity"
	"clinicalnotes/cmd/internal/utils"
	"clinicalnotes/cmd/internal/utils/apierror"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
	"golang.org/x/crypto/bcrypt"
)

type UserRepository interface {
	FindAll() ([]*entity.User, error)
	FindByID(id string) (*entity.User, error)
	FindByUsername(username string) (*entity.User, error)
	ExistsByUsername(username string) (bool, error)
	Count() (int64, error)
	Save(user *entity.User) error
}

type DefaultUserService struct {
	UserRepo UserRepository
	Validate *validator.Validate
}

func NewUserService(userRepo UserRepository, validate *validator.Validate) *DefaultUserService {
	return &DefaultUserService{UserRepo: userRepo, Validate: validate}
}

func (u *DefaultUserService) FindAll() ([]*contract.UserResponse, apierror.ErrorResponse) {
	users, err := u.UserRepo.FindAll()
	if err != nil {
		log.Errorf("failed to fetch users: %v", err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*contract.UserResponse, len(users))
	for i, user := range users {
		resp[i] = toUserResponse(user)
	}
	return resp, nil
}

func (u *DefaultUserService) FindOne(id string) (*contract.UserResponse, apierror.ErrorResponse) {
	user, err := u.UserRepo.FindByID(id)
	if err != nil {
		log.Errorf("failed to fetch user %s: %v", id, err)
		return nil, apierror.InternalServerError
	}

	if user == nil {
		return nil, apierror.NewNotFoundError("User", id)
	}
	return toUserResponse(user), nil
}

func (u *DefaultUserService) Create(req *contract.CreateUserRequest) (*contract.UserResponse, apierror.ErrorResponse) {
	// passwords are taken verbatim
	req.Username = strings.TrimSpace(req.Username)
	if valerr := u.Validate.Struct(req); valerr != nil {
		return nil, apierror.FromValidationError(valerr)
	}

	exists, err := u.UserRepo.ExistsByUsername(req.Username)
	if err != nil {
		log.Errorf("failed to check username %q: %v", req.Username, err)
		return nil, apierror.InternalServerError
	}

	if exists {
		return nil, apierror.NewConflictError("Username %q is already taken", req.Username)
	}

	user, err := newUser(req.Username, req.Password)
	if err != nil {
		log.Errorf("failed to hash password: %v", err)
		return nil, apierror.InternalServerError
	}

	if err = u.UserRepo.Save(user); err != nil {
		log.Errorf("failed to create user: %v", err)
		return nil, apierror.InternalServerError
	}
	return toUserResponse(user), nil
}

func newUser(username, password string) (*entity.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &entity.User{Username: username, Password: string(hash)}, nil
}

func toUserResponse(user *entity.User) *contract.UserResponse {
	return &contract.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: utils.FormatTime(user.CreatedAt),
		UpdatedAt: utils.FormatTime(user.UpdatedAt),
	}
}
