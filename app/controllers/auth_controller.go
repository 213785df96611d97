package controllers

import (
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"farmlink/app/services"
	"farmlink/pkg/bind"
	"farmlink/pkg/middleware"
	"farmlink/pkg/response"
)

// AuthController handles registration, login, and the caller's profile.
type AuthController struct {
	service *services.AuthService
}

func NewAuthController(service *services.AuthService) *AuthController {
	return &AuthController{service: service}
}

// Register handles POST /api/auth/register.
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationFailed(w, errs)
		return
	}

	user, token, err := c.service.Register(r.Context(), in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Created(w, "Account created", response.M{
		"user":  user,
		"token": token,
	})
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/auth/login.
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationFailed(w, errs)
		return
	}

	user, token, err := c.service.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			response.Unauthorized(w, "Invalid credentials")
			return
		}
		response.FromError(w, r, err)
		return
	}

	response.OK(w, response.M{
		"user":  user,
		"token": token,
	})
}

// Me handles GET /api/auth/me.
func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := callerID(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	user, err := c.service.Profile(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, response.M{"user": user})
}

// UpdateMe handles PUT /api/auth/me.
func (c *AuthController) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, ok := callerID(r)
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var in services.UpdateProfileInput
	if errs, err := bind.JSON(r, &in); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationFailed(w, errs)
		return
	}

	user, err := c.service.UpdateProfile(r.Context(), id, in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OKMessage(w, "Profile updated", response.M{"user": user})
}

// callerID extracts the authenticated user's ObjectID from the request.
func callerID(r *http.Request) (primitive.ObjectID, bool) {
	ident, ok := middleware.IdentityFromCtx(r.Context())
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(ident.UserID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
