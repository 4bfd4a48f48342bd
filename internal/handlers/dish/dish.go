package dish

import (
	"log"
	"net/http"
	"time"

	"vkitchen_back_end/internal/dishes"
	"vkitchen_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// Handler serves the menu endpoints.
type Handler struct {
	Store *dishes.Store
}

func NewHandler(store *dishes.Store) *Handler {
	return &Handler{Store: store}
}

// List returns the menu. The public view hides unavailable dishes; admins see
// everything with ?all=true.
func (h *Handler) List(c *gin.Context) {
	availableOnly := c.Query("all") != "true" || c.GetString("role") != models.RoleAdmin

	list, err := h.Store.List(c.Request.Context(), availableOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load the menu"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"dishes": list, "count": len(list)})
}

func (h *Handler) Get(c *gin.Context) {
	d, err := h.Store.GetDish(c.Request.Context(), c.Param("dishId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dish not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dish": d})
}

type dishRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Category    string  `json:"category" binding:"required"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	ImageURL    string  `json:"image_url"`
	Available   *bool   `json:"available"`
}

func (h *Handler) Create(c *gin.Context) {
	var req dishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dish data", "details": err.Error()})
		return
	}

	now := time.Now()
	d := &models.Dish{
		ID:          gocql.TimeUUID(),
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		Available:   req.Available == nil || *req.Available,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Store.Insert(c.Request.Context(), d); err != nil {
		log.Printf("❌ Dish creation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create dish"})
		return
	}

	log.Printf("🍜 Dish created: %s (%.2f)", d.Name, d.Price)
	c.JSON(http.StatusCreated, gin.H{"dish": d})
}

func (h *Handler) Update(c *gin.Context) {
	d, err := h.Store.GetDish(c.Request.Context(), c.Param("dishId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dish not found"})
		return
	}

	var req dishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dish data", "details": err.Error()})
		return
	}

	d.Name = req.Name
	d.Description = req.Description
	d.Category = req.Category
	d.Price = req.Price
	d.ImageURL = req.ImageURL
	if req.Available != nil {
		d.Available = *req.Available
	}

	if err := h.Store.Update(c.Request.Context(), d); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update dish"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"dish": d})
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.Store.Delete(c.Request.Context(), c.Param("dishId")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dish not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dish deleted"})
}
