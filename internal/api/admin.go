package api

import (
	"crypto/subtle"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tabletalk/backend/internal/game"
	"tabletalk/backend/internal/ws"
	"tabletalk/backend/pkg/config"
	"tabletalk/backend/pkg/jwt"
	"tabletalk/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AdminHandler serves the table administration surface: authentication,
// listing, deletion, export and import.
type AdminHandler struct {
	manager *game.Manager
	hub     *ws.Hub
	cfg     *config.Config
	logger  *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(manager *game.Manager, hub *ws.Hub, cfg *config.Config, logger *logger.Logger) *AdminHandler {
	return &AdminHandler{manager: manager, hub: hub, cfg: cfg, logger: logger}
}

// RegisterRoutes registers the admin routes on a router group.
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	{
		admin.POST("/login", h.Login)

		authed := admin.Group("/")
		authed.Use(h.RequireAdmin())
		{
			authed.GET("/tables", h.ListTables)
			authed.DELETE("/tables/:id", h.DeleteTable)
			authed.GET("/tables/:id/export", h.ExportTable)
			authed.POST("/tables/import", h.ImportTable)
		}
	}
}

type adminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// Login checks the admin password and issues a session token. The
// configured password may be stored as a bcrypt hash.
func (h *AdminHandler) Login(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if !h.passwordMatches(req.Password) {
		h.logger.Warn("failed admin login attempt", "ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password."})
		return
	}

	token, err := jwt.GenerateAdminToken(h.cfg.Admin.JWTSecret, h.cfg.Admin.TokenExpiry)
	if err != nil {
		h.logger.LogError(err, "failed to issue admin token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue session token"})
		return
	}

	h.logger.Info("admin login", "ip", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *AdminHandler) passwordMatches(candidate string) bool {
	configured := h.cfg.Admin.Password
	if configured == "" {
		return false
	}
	if strings.HasPrefix(configured, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(candidate)) == 1
}

// RequireAdmin guards admin routes behind a bearer token.
func (h *AdminHandler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required."})
			return
		}
		if _, err := jwt.ValidateAdminToken(h.cfg.Admin.JWTSecret, token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required."})
			return
		}
		c.Next()
	}
}

// ListTables returns the lobby listing for the admin view.
func (h *AdminHandler) ListTables(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tables": h.manager.List()})
}

// DeleteTable removes a table and its snapshot, then announces the updated
// lobby to every connected client.
func (h *AdminHandler) DeleteTable(c *gin.Context) {
	tableID := c.Param("id")
	if err := h.manager.Delete(tableID); err != nil {
		if err == game.ErrTableNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Table not found"})
			return
		}
		h.logger.LogError(err, "table deletion failed", "table_id", tableID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete table"})
		return
	}

	h.hub.BroadcastTableList()
	c.JSON(http.StatusOK, gin.H{"deleted": tableID})
}

// ExportTable hands out a table's snapshot as a download.
func (h *AdminHandler) ExportTable(c *gin.Context) {
	tableID := c.Param("id")
	snap, err := h.manager.Export(tableID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Table not found"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", snap.Name+".json"))
	c.JSON(http.StatusOK, snap)
}

// ImportTable creates a new table from an uploaded snapshot file. Accepts a
// multipart "file" field or a raw JSON body.
func (h *AdminHandler) ImportTable(c *gin.Context) {
	content, err := h.readImportBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read import file"})
		return
	}

	table, err := h.manager.Import(content)
	if err != nil {
		switch err {
		case game.ErrInvalidImport:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file format"})
		case game.ErrTableNameTaken:
			c.JSON(http.StatusConflict, gin.H{"error": "A table with that name already exists"})
		default:
			h.logger.LogError(err, "table import failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import table"})
		}
		return
	}

	h.hub.BroadcastTableList()
	c.JSON(http.StatusCreated, table.Info())
}

func (h *AdminHandler) readImportBody(c *gin.Context) ([]byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, h.cfg.Security.MaxUploadSize))
	}
	return io.ReadAll(io.LimitReader(c.Request.Body, h.cfg.Security.MaxUploadSize))
}
