package api

import (
	"net/http"

	"tabletalk/backend/internal/game"
	"tabletalk/backend/internal/ws"
	"tabletalk/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TablesHandler serves the lobby over plain HTTP, mirroring what the
// websocket lobby events expose.
type TablesHandler struct {
	manager *game.Manager
	hub     *ws.Hub
	logger  *logger.Logger
}

// NewTablesHandler creates a new tables handler
func NewTablesHandler(manager *game.Manager, hub *ws.Hub, logger *logger.Logger) *TablesHandler {
	return &TablesHandler{manager: manager, hub: hub, logger: logger}
}

// RegisterRoutes registers the lobby routes on a router group.
func (h *TablesHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tables := rg.Group("/tables")
	{
		tables.GET("", h.ListTables)
		tables.POST("", h.CreateTable)
	}
}

// ListTables returns every table, most recently active first.
func (h *TablesHandler) ListTables(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tables": h.manager.List()})
}

type createTableRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateTable creates a new table and announces the updated lobby to every
// connected websocket client.
func (h *TablesHandler) CreateTable(c *gin.Context) {
	var req createTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	table, err := h.manager.Create(req.Name)
	if err != nil {
		switch err {
		case game.ErrTableNameTaken:
			c.JSON(http.StatusConflict, gin.H{"error": "A table with that name already exists"})
		case game.ErrInvalidName:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name must be between 3 and 50 characters."})
		default:
			h.logger.LogError(err, "table creation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create table"})
		}
		return
	}

	h.hub.BroadcastTableList()
	c.JSON(http.StatusCreated, table.Info())
}
