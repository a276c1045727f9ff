package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restroflow/services"
	"github.com/yeremiapane/restroflow/utils"
)

type AllocatorController struct {
	Allocator *services.Allocator
	Settings  *services.SettingsStore
}

func NewAllocatorController(r *services.Restaurant) *AllocatorController {
	return &AllocatorController{Allocator: r.Allocator, Settings: r.Settings}
}

// SeatCustomer seats one waiting party at one table.
func (ac *AllocatorController) SeatCustomer(c *gin.Context) {
	var req struct {
		CustomerID uint `json:"customer_id" binding:"required"`
		TableID    uint `json:"table_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	seating, err := ac.Allocator.SeatOne(c.Request.Context(), actor, req.CustomerID, req.TableID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK,
		fmt.Sprintf("%s seated at %s", seating.Party.Name, seating.Record.TableNumbers), seating)
}

// SeatCustomerMultiple seats one party across several tables.
func (ac *AllocatorController) SeatCustomerMultiple(c *gin.Context) {
	var req struct {
		CustomerID uint   `json:"customer_id" binding:"required"`
		TableIDs   []uint `json:"table_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	seating, err := ac.Allocator.SeatAtMultiple(c.Request.Context(), actor, req.CustomerID, req.TableIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK,
		fmt.Sprintf("%s seated at %s", seating.Party.Name, seating.Record.TableNumbers), seating)
}

// RunAllocator runs a pass even while the auto allocator is off.
func (ac *AllocatorController) RunAllocator(c *gin.Context) {
	seated, err := ac.Allocator.Run(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, fmt.Sprintf("Seated %d parties", len(seated)), seatedOrEmpty(seated))
}

func (ac *AllocatorController) GetStatus(c *gin.Context) {
	enabled, err := ac.Settings.AutoAllocatorEnabled(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Auto allocator status", gin.H{"enabled": enabled})
}

func (ac *AllocatorController) ToggleAllocator(c *gin.Context) {
	enabled, seated, err := ac.Allocator.ToggleAutoAllocator(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, allocatorMessage(enabled), gin.H{
		"enabled": enabled,
		"seated":  seatedOrEmpty(seated),
	})
}

func (ac *AllocatorController) SetAllocator(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	seated, err := ac.Allocator.SetAutoAllocator(c.Request.Context(), *req.Enabled)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, allocatorMessage(*req.Enabled), gin.H{
		"enabled": *req.Enabled,
		"seated":  seatedOrEmpty(seated),
	})
}

func allocatorMessage(enabled bool) string {
	if enabled {
		return "Auto allocator is ON"
	}
	return "Auto allocator is OFF"
}

func seatedOrEmpty(seated []services.Seating) []services.Seating {
	if seated == nil {
		return []services.Seating{}
	}
	return seated
}
