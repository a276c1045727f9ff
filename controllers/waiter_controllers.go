package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restroflow/services"
	"github.com/yeremiapane/restroflow/utils"
)

type WaiterController struct {
	Waiters *services.WaiterDirectory
}

func NewWaiterController(r *services.Restaurant) *WaiterController {
	return &WaiterController{Waiters: r.Waiters}
}

func (wc *WaiterController) GetAllWaiters(c *gin.Context) {
	waiters, err := wc.Waiters.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of waiters", waiters)
}

func (wc *WaiterController) CreateWaiter(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	waiter, err := wc.Waiters.Add(c.Request.Context(), actor, req.Username, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Waiter added", waiter)
}

// UpdateWaiter renames and/or resets the password.
func (wc *WaiterController) UpdateWaiter(c *gin.Context) {
	id, ok := parseID(c, "waiter_id")
	if !ok {
		return
	}
	var req struct {
		Username *string `json:"username"`
		Password *string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	waiter, err := wc.Waiters.Update(c.Request.Context(), actor, id, services.WaiterUpdate{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Waiter updated", waiter)
}

func (wc *WaiterController) DeleteWaiter(c *gin.Context) {
	id, ok := parseID(c, "waiter_id")
	if !ok {
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	if err := wc.Waiters.Delete(c.Request.Context(), actor, id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Waiter deleted", nil)
}
