package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restroflow/services"
	"github.com/yeremiapane/restroflow/utils"
)

// CustomerController manages the wait queue.
type CustomerController struct {
	Queue *services.WaitQueue
}

func NewCustomerController(r *services.Restaurant) *CustomerController {
	return &CustomerController{Queue: r.Queue}
}

type joinRequest struct {
	Name      string `json:"name" binding:"required"`
	PartySize int    `json:"party_size" binding:"required"`
	Contact   string `json:"contact"`
}

// GetAllCustomers -> antrean beserta saran meja
func (cc *CustomerController) GetAllCustomers(c *gin.Context) {
	parties, err := cc.Queue.Suggestions(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Waiting customers", parties)
}

func (cc *CustomerController) GetCustomerByID(c *gin.Context) {
	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}
	party, err := cc.Queue.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer detail", party)
}

// CreateCustomer adds a party from the host stand.
func (cc *CustomerController) CreateCustomer(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	cc.enqueue(c, req, &actor)
}

// JoinQueue is the self-service intake; nobody is logged as the actor.
func (cc *CustomerController) JoinQueue(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	cc.enqueue(c, req, nil)
}

func (cc *CustomerController) enqueue(c *gin.Context, req joinRequest, actor *services.Actor) {
	result, err := cc.Queue.Enqueue(c.Request.Context(), services.EnqueueRequest{
		Name:      req.Name,
		PartySize: req.PartySize,
		Contact:   req.Contact,
		Actor:     actor,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if result.AlreadyQueued {
		utils.RespondJSON(c, http.StatusOK, "You are already in the queue", result)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Added to the queue", result)
}

func (cc *CustomerController) DeleteCustomer(c *gin.Context) {
	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}
	if err := cc.Queue.Dequeue(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer removed from the queue", nil)
}
