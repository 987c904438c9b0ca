package handler

import (
	"encoding/json"
	"go-auth-api/common"
	"go-auth-api/model"
	"go-auth-api/service"
	"net/http"
)

// SessionHandler holds dependencies for token-protected session endpoints.
type SessionHandler struct {
	service *service.SessionService
}

// NewSessionHandler creates a new SessionHandler with its dependencies.
func NewSessionHandler(s *service.SessionService) *SessionHandler {
	return &SessionHandler{service: s}
}

// Me godoc
// @Summary      Return the authenticated user
// @Description  Resolves the subject of the presented access token to its user record.
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]model.User
// @Failure      401  {object}  common.AppError "Invalid or expired token"
// @Failure      403  {object}  common.AppError "Missing Authorization header"
// @Failure      500  {object}  common.AppError "Internal server error"
// @Router       /me [get]
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, ok := r.Context().Value(UserIDKey).(int)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user ID in token", nil)
	}

	user, err := h.service.WhoAmI(r.Context(), userID)
	if err != nil {
		switch err {
		case service.ErrUserNotFound:
			return common.NewAppError(http.StatusUnauthorized, err.Error(), err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not retrieve user", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]*model.User{"data": user})
	return nil
}

// Refresh godoc
// @Summary      Rotate a refresh token
// @Description  Exchanges a valid refresh token for a new access/refresh pair and invalidates the old one.
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        token body model.RefreshRequest true "Refresh payload"
// @Success      200  {object}  service.TokenPair
// @Failure      400  {object}  common.AppError "Malformed or invalid request body"
// @Failure      401  {object}  common.AppError "Invalid, expired, revoked or already rotated token"
// @Failure      500  {object}  common.AppError "Internal server error"
// @Router       /refresh-token [post]
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RefreshRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	pair, err := h.service.Refresh(r.Context(), req.Token)
	if err != nil {
		// Invalid and expired are reported with distinct messages so the
		// client can tell a broken token from one that merely aged out.
		switch err {
		case service.ErrTokenExpired:
			return common.NewAppError(http.StatusUnauthorized, "Refresh token expired", err)
		case service.ErrTokenInvalid, service.ErrRefreshTokenInvalid:
			return common.NewAppError(http.StatusUnauthorized, "Refresh token invalid", err)
		default:
			return common.NewAppError(http.StatusInternalServerError, "Could not rotate refresh token", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(pair)
	return nil
}
