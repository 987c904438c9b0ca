package handler

import (
	"encoding/json"
	"go-auth-api/common"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/service"
	"net/http"
)

// UserHandler holds dependencies for registration and login endpoints.
type UserHandler struct {
	service *service.SessionService
}

// NewUserHandler creates a new UserHandler with its dependencies.
func NewUserHandler(s *service.SessionService) *UserHandler {
	return &UserHandler{service: s}
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates a user account. The password is hashed before storage and never echoed back.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        user body model.RegisterRequest true "Registration payload"
// @Success      201  {object}  model.User
// @Failure      400  {object}  common.AppError "Malformed or invalid request body"
// @Failure      409  {object}  common.AppError "Email already registered"
// @Failure      500  {object}  common.AppError "Internal server error"
// @Router       /register [post]
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	logger.Log.WithField("email", req.Email).Info("Register request received")

	user, err := h.service.Register(req)
	if err != nil {
		switch err {
		case service.ErrEmailTaken:
			return common.NewAppError(http.StatusConflict, err.Error(), err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not create user", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
	return nil
}

// Login godoc
// @Summary      Authenticate a user
// @Description  Verifies the credentials and issues an access token and a persisted refresh token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials body model.LoginRequest true "Login payload"
// @Success      200  {object}  service.LoginResponse
// @Failure      400  {object}  common.AppError "Malformed or invalid request body"
// @Failure      403  {object}  common.AppError "Wrong password"
// @Failure      404  {object}  common.AppError "No user with that email"
// @Failure      500  {object}  common.AppError "Internal server error"
// @Router       /login [post]
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	resp, err := h.service.Login(req)
	if err != nil {
		switch err {
		case service.ErrUserNotFound:
			return common.NewAppError(http.StatusNotFound, err.Error(), err)
		case service.ErrInvalidCredentials:
			return common.NewAppError(http.StatusForbidden, err.Error(), err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not log in", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
	return nil
}
