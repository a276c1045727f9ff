package controllers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restroflow/middlewares"
	"github.com/yeremiapane/restroflow/services"
	"github.com/yeremiapane/restroflow/utils"
)

// AdminCredentials are the top-level admin login read from the environment.
type AdminCredentials struct {
	Username string
	Password string
}

type UserController struct {
	Waiters  *services.WaiterDirectory
	Admin    AdminCredentials
	TokenTTL time.Duration
}

func NewUserController(r *services.Restaurant, admin AdminCredentials, ttl time.Duration) *UserController {
	return &UserController{Waiters: r.Waiters, Admin: admin, TokenTTL: ttl}
}

// Login tries the admin credentials first, then the waiter directory.
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var (
		waiterID uint
		role     = utils.RoleAdmin
	)
	if !uc.isAdmin(input.Username, input.Password) {
		waiter, err := uc.Waiters.Authenticate(c.Request.Context(), input.Username, input.Password)
		if err != nil {
			if errors.Is(err, services.ErrValidation) {
				utils.RespondErrorCode(c, http.StatusUnauthorized, utils.CodeUnauthorized, errors.New("invalid credentials"))
				return
			}
			respondServiceError(c, err)
			return
		}
		waiterID, role = waiter.ID, utils.RoleWaiter
	}

	token, err := utils.GenerateToken(waiterID, input.Username, role, uc.TokenTTL)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"username": input.Username,
		"role":     role,
	}).Info("Login successful")
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token":     token,
		"user_role": role,
	})
}

func (uc *UserController) isAdmin(username, password string) bool {
	if uc.Admin.Password == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(uc.Admin.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(uc.Admin.Password)) == 1
	return userOK && passOK
}

// GetProfile returns the caller as seen by the auth middleware.
func (uc *UserController) GetProfile(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile", gin.H{
		"username":  actor.Name,
		"role":      middlewares.RoleFrom(c),
		"waiter_id": actor.WaiterID,
	})
}
