package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"farmlink/app/models"
	"farmlink/pkg/apperr"
	"farmlink/pkg/auth"
)

// ErrInvalidCredentials is returned by Login for unknown emails and wrong
// passwords alike, so a caller cannot probe which emails are registered.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is the persistence surface AuthService needs.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) error
	TouchLastLogin(ctx context.Context, id primitive.ObjectID) error
}

// AuthService implements registration, login, and profile management.
type AuthService struct {
	users UserStore
}

func NewAuthService(users UserStore) *AuthService {
	return &AuthService{users: users}
}

// RegisterInput is the payload for Register. FarmName is required for
// farmers only.
type RegisterInput struct {
	Name     string          `json:"name" validate:"required,min=2,max=100"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=6"`
	Role     string          `json:"role" validate:"required,in=farmer,customer"`
	Phone    string          `json:"phone" validate:"nullable,max=30"`
	Address  *models.Address `json:"address"`
	FarmName string          `json:"farmName" validate:"nullable,max=150"`
}

// Register creates an account and returns it with a signed token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if !models.ValidRole(in.Role) {
		return models.User{}, "", apperr.Validation(map[string]string{
			"role": "The role field must be farmer or customer.",
		})
	}
	if in.Role == models.RoleFarmer && strings.TrimSpace(in.FarmName) == "" {
		return models.User{}, "", apperr.Validation(map[string]string{
			"farmName": "The farmName field is required for farmers.",
		})
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return models.User{}, "", apperr.New(apperr.KindAlreadyExists, "An account with this email already exists")
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, "", apperr.Internal("look up email", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, "", apperr.Internal("hash password", err)
	}

	user := models.User{
		Name:      strings.TrimSpace(in.Name),
		Email:     email,
		Password:  hash,
		Role:      in.Role,
		Phone:     strings.TrimSpace(in.Phone),
		Address:   in.Address,
		CreatedAt: time.Now().UTC(),
	}
	switch in.Role {
	case models.RoleFarmer:
		user.Farmer = &models.FarmerProfile{FarmName: strings.TrimSpace(in.FarmName)}
	case models.RoleCustomer:
		user.Customer = &models.CustomerProfile{}
	}

	if err := s.users.Create(ctx, &user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, "", apperr.New(apperr.KindAlreadyExists, "An account with this email already exists")
		}
		return models.User{}, "", apperr.Internal("create user", err)
	}

	token, err := auth.GenerateToken(user.ID.Hex(), user.Role)
	if err != nil {
		return models.User{}, "", apperr.Internal("sign token", err)
	}
	return user, token, nil
}

// Login verifies credentials and returns the account with a signed token.
// Any failure mode is reported as ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (models.User, string, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, "", ErrInvalidCredentials
		}
		return models.User{}, "", apperr.Internal("look up email", err)
	}

	if !auth.CheckPassword(user.Password, password) {
		return models.User{}, "", ErrInvalidCredentials
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		return models.User{}, "", apperr.Internal("stamp last login", err)
	}

	token, err := auth.GenerateToken(user.ID.Hex(), user.Role)
	if err != nil {
		return models.User{}, "", apperr.Internal("sign token", err)
	}
	return user, token, nil
}

// Profile returns the account for id.
func (s *AuthService) Profile(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, apperr.New(apperr.KindNotFound, "User not found")
		}
		return models.User{}, apperr.Internal("find user", err)
	}
	return user, nil
}

// UpdateProfileInput carries the editable profile fields. Nil pointers
// leave the stored value untouched.
type UpdateProfileInput struct {
	Name    *string         `json:"name" validate:"nullable,min=2,max=100"`
	Phone   *string         `json:"phone" validate:"nullable,max=30"`
	Address *models.Address `json:"address"`
	Avatar  *string         `json:"avatar" validate:"nullable,url"`

	// Farmer-only fields, ignored for customers.
	FarmName        *string `json:"farmName" validate:"nullable,max=150"`
	FarmDescription *string `json:"farmDescription" validate:"nullable,max=1000"`
	FarmImage       *string `json:"farmImage" validate:"nullable,url"`

	// Customer-only field, ignored for farmers.
	Preferences []string `json:"preferences"`
}

// UpdateProfile applies the role-appropriate subset of in and returns the
// refreshed account.
func (s *AuthService) UpdateProfile(ctx context.Context, id primitive.ObjectID, in UpdateProfileInput) (models.User, error) {
	user, err := s.Profile(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	set := bson.M{}
	if in.Name != nil {
		set["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		set["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		set["address"] = in.Address
	}
	if in.Avatar != nil {
		set["avatar"] = *in.Avatar
	}

	switch user.Role {
	case models.RoleFarmer:
		if in.FarmName != nil {
			if strings.TrimSpace(*in.FarmName) == "" {
				return models.User{}, apperr.Validation(map[string]string{
					"farmName": "The farmName field is required for farmers.",
				})
			}
			set["farmer.farmName"] = strings.TrimSpace(*in.FarmName)
		}
		if in.FarmDescription != nil {
			set["farmer.farmDescription"] = *in.FarmDescription
		}
		if in.FarmImage != nil {
			set["farmer.farmImage"] = *in.FarmImage
		}
	case models.RoleCustomer:
		if in.Preferences != nil {
			set["customer.preferences"] = in.Preferences
		}
	}

	if len(set) == 0 {
		return user, nil
	}

	if err := s.users.Update(ctx, id, set); err != nil {
		return models.User{}, apperr.Internal("update profile", err)
	}
	return s.Profile(ctx, id)
}
