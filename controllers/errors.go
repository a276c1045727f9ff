package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restroflow/middlewares"
	"github.com/yeremiapane/restroflow/services"
	"github.com/yeremiapane/restroflow/utils"
)

// respondServiceError maps engine error kinds onto HTTP statuses. The reason
// is returned as is; store causes are only logged.
func respondServiceError(c *gin.Context, err error) {
	code, errCode := http.StatusInternalServerError, utils.CodeStore
	switch {
	case errors.Is(err, services.ErrValidation):
		code, errCode = http.StatusBadRequest, utils.CodeValidation
	case errors.Is(err, services.ErrNotFound):
		code, errCode = http.StatusNotFound, utils.CodeNotFound
	case errors.Is(err, services.ErrConflict):
		code, errCode = http.StatusConflict, utils.CodeConflict
	}

	if code == http.StatusInternalServerError {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"request_id": middlewares.RequestIDFrom(c),
			"path":       c.FullPath(),
		}).Error(err)
		var e *services.Error
		if errors.As(err, &e) {
			err = fmt.Errorf("store error: %s", e.Reason)
		} else {
			err = errors.New("internal error")
		}
	}
	_ = c.Error(err)
	utils.RespondErrorCode(c, code, errCode, err)
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid %s", param))
		return 0, false
	}
	return uint(id), true
}

func mustActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middlewares.ActorFrom(c)
	if !ok {
		utils.RespondErrorCode(c, http.StatusUnauthorized, utils.CodeUnauthorized, errors.New("unauthorized"))
		return services.Actor{}, false
	}
	return actor, true
}
