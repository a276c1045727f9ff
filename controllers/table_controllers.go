package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restroflow/services"
	"github.com/yeremiapane/restroflow/utils"
)

type TableController struct {
	Tables *services.TableRegistry
}

func NewTableController(r *services.Restaurant) *TableController {
	return &TableController{Tables: r.Tables}
}

// GetAllTables -> semua meja dalam urutan tampilan
func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Tables.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

func (tc *TableController) GetTable(c *gin.Context) {
	id, ok := parseID(c, "table_id")
	if !ok {
		return
	}
	table, err := tc.Tables.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

// CreateTable -> meja baru dengan nomor terkecil yang belum dipakai
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		Capacity int `json:"capacity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	table, err := tc.Tables.AddTable(c.Request.Context(), actor, req.Capacity)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, fmt.Sprintf("Table %s added", table.TableNumber), table)
}

func (tc *TableController) DeleteTable(c *gin.Context) {
	id, ok := parseID(c, "table_id")
	if !ok {
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	if err := tc.Tables.DeleteTable(c.Request.Context(), actor, id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table deleted", nil)
}

func (tc *TableController) BlockTable(c *gin.Context) {
	id, ok := parseID(c, "table_id")
	if !ok {
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	table, err := tc.Tables.Block(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, fmt.Sprintf("Table %s marked as unavailable", table.TableNumber), table)
}

func (tc *TableController) FreeTable(c *gin.Context) {
	id, ok := parseID(c, "table_id")
	if !ok {
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	result, err := tc.Tables.Free(c.Request.Context(), actor, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, fmt.Sprintf("Table %s marked as free", result.Table.TableNumber), result)
}

// ReorderTables -> penomoran ulang T1..Tn sesuai urutan yang dikirim
func (tc *TableController) ReorderTables(c *gin.Context) {
	var req struct {
		TableIDs []uint `json:"table_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}

	tables, err := tc.Tables.Reorder(c.Request.Context(), actor, req.TableIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Tables reordered", tables)
}
