package api

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"tabletalk/backend/internal/game"
	"tabletalk/backend/pkg/config"
	"tabletalk/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// UploadsHandler stores avatars and shared images on disk and feeds the
// results back into the game layer.
type UploadsHandler struct {
	manager *game.Manager
	cfg     *config.Config
	logger  *logger.Logger
}

// NewUploadsHandler creates a new uploads handler
func NewUploadsHandler(manager *game.Manager, cfg *config.Config, logger *logger.Logger) *UploadsHandler {
	return &UploadsHandler{manager: manager, cfg: cfg, logger: logger}
}

// RegisterRoutes registers the upload routes on a router group.
func (h *UploadsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tables := rg.Group("/tables/:id")
	{
		tables.POST("/images", h.ShareImage)
		tables.POST("/avatars", h.UploadAvatar)
	}
}

// ShareImage saves an uploaded image and posts it into the table's chat as
// the submitting character, following their whisper state.
func (h *UploadsHandler) ShareImage(c *gin.Context) {
	table, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Table not found"})
		return
	}

	characterID := c.PostForm("characterId")
	if characterID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "characterId is required"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image data received."})
		return
	}

	mimeType, ext, err := h.validateImage(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dir := filepath.Join(h.cfg.Store.UploadsDir, table.ID())
	filename := uuid.NewString() + ext
	if err := h.saveUpload(c, file, dir, filename); err != nil {
		h.logger.LogError(err, "failed to store image", "table_id", table.ID())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving image on server."})
		return
	}

	imageURL := fmt.Sprintf("/uploads/%s/%s", table.ID(), filename)
	table.ShareImage(characterID, imageURL, c.PostForm("caption"), mimeType)
	c.JSON(http.StatusCreated, gin.H{"imageUrl": imageURL})
}

// UploadAvatar saves an avatar image. With a characterId the new avatar is
// applied and announced immediately; without one the URL is returned for a
// later submitCharacterDetails.
func (h *UploadsHandler) UploadAvatar(c *gin.Context) {
	table, ok := h.manager.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Table not found"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Avatar update failed: Missing data."})
		return
	}

	_, ext, err := h.validateImage(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	characterID := c.PostForm("characterId")
	dir := filepath.Join(h.cfg.Store.UploadsDir, table.ID(), "avatars")

	var filename string
	if characterID != "" {
		// One avatar file per character; replace the old one in place.
		filename = characterID + "_avatar" + ext
		if oldURL, found := table.AvatarURLOf(characterID); found && oldURL != "" {
			old := filepath.Join(dir, filepath.Base(oldURL))
			if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
				h.logger.Warn("failed to remove old avatar", "path", old, "error", err.Error())
			}
		}
	} else {
		filename = uuid.NewString() + "_avatar" + ext
	}

	if err := h.saveUpload(c, file, dir, filename); err != nil {
		h.logger.LogError(err, "failed to store avatar", "table_id", table.ID())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error updating avatar."})
		return
	}

	avatarURL := fmt.Sprintf("/uploads/%s/avatars/%s", table.ID(), filename)
	if characterID != "" {
		table.SetAvatar(characterID, avatarURL)
	}
	c.JSON(http.StatusCreated, gin.H{"avatarUrl": avatarURL})
}

func (h *UploadsHandler) validateImage(file *multipart.FileHeader) (mimeType, ext string, err error) {
	if file.Size > h.cfg.Security.MaxUploadSize {
		return "", "", fmt.Errorf("Image file is too large. The maximum size is %dMB.", h.cfg.Security.MaxUploadSize/(1024*1024))
	}
	mimeType = file.Header.Get("Content-Type")
	ext, ok := allowedImageTypes[mimeType]
	if !ok {
		return "", "", fmt.Errorf("Invalid image type. Only JPG, PNG, or GIF are allowed.")
	}
	if fromName := strings.ToLower(filepath.Ext(file.Filename)); fromName != "" {
		ext = fromName
	}
	return mimeType, ext, nil
}

func (h *UploadsHandler) saveUpload(c *gin.Context, file *multipart.FileHeader, dir, filename string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return c.SaveUploadedFile(file, filepath.Join(dir, filename))
}
