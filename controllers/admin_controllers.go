package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restroflow/services"
	"github.com/yeremiapane/restroflow/utils"
)

const dateLayout = "2006-01-02"

type AdminController struct {
	R *services.Restaurant
}

func NewAdminController(r *services.Restaurant) *AdminController {
	return &AdminController{R: r}
}

// GetDashboard -> semua data layar host dalam satu panggilan
func (ac *AdminController) GetDashboard(c *gin.Context) {
	dashboard, err := ac.R.Dashboard(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dashboard", dashboard)
}

func (ac *AdminController) GetAnalytics(c *gin.Context) {
	analytics, err := ac.R.Analytics(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Analytics", analytics)
}

// GetHistory filters by ?from=&to= (dates or RFC3339, inclusive), ?name= and
// ?table=.
func (ac *AdminController) GetHistory(c *gin.Context) {
	filter := services.HistoryFilter{
		Name:        c.Query("name"),
		TableNumber: c.Query("table"),
	}
	var err error
	if filter.From, err = ac.parseBound(c.Query("from"), false); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if filter.To, err = ac.parseBound(c.Query("to"), true); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if v := c.Query("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil || filter.Limit < 0 {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
	}

	records, err := ac.R.History.Query(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer history", records)
}

// GetActionLog filters by ?actor=admin|<waiter id>, ?table_id=, ?from=, ?to=.
func (ac *AdminController) GetActionLog(c *gin.Context) {
	var filter services.ActionFilter

	switch actor := strings.TrimSpace(c.Query("actor")); actor {
	case "", "all":
	case "admin":
		filter.Actor.Admin = true
	default:
		id, err := strconv.ParseUint(actor, 10, 64)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid actor %q", actor))
			return
		}
		waiterID := uint(id)
		filter.Actor.WaiterID = &waiterID
	}

	if v := c.Query("table_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid table_id %q", v))
			return
		}
		tableID := uint(id)
		filter.TableID = &tableID
	}

	var err error
	if filter.From, err = ac.parseBound(c.Query("from"), false); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if filter.To, err = ac.parseBound(c.Query("to"), true); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	entries, err := ac.R.Actions.Query(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Action log", entries)
}

// parseBound reads a date in the restaurant's time zone or an RFC3339 time.
// A bare date used as an upper bound covers the whole day.
func (ac *AdminController) parseBound(v string, upper bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	day, err := time.ParseInLocation(dateLayout, v, ac.R.Location())
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, use YYYY-MM-DD", v)
	}
	if upper {
		day = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &day, nil
}

// HealthCheck reports whether the store answers; ?check=db also counts the
// tables.
func (ac *AdminController) HealthCheck(c *gin.Context) {
	response := gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	}

	sqlDB, err := ac.R.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		utils.ErrorLogger.Errorf("Database ping error: %v", err)
		response["status"] = "error"
		response["db_status"] = "error"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	response["db_status"] = "ok"

	if c.Query("check") == "db" {
		tables, err := ac.R.Tables.List(c.Request.Context())
		if err != nil {
			response["status"] = "error"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
		response["tables"] = len(tables)
	}
	c.JSON(http.StatusOK, response)
}
