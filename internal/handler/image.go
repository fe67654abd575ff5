package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/link4deal/commerce-api/internal/dto"
	"github.com/link4deal/commerce-api/internal/images"
)

// maxUploadBytes bounds a single image upload.
const maxUploadBytes = 10 << 20

type ImageHandler struct{}

func NewImageHandler() *ImageHandler {
	return &ImageHandler{}
}

// Optimize accepts raw image bytes and responds with the re-encoded image
// plus size metadata.
func (h *ImageHandler) Optimize(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadBytes+1))
	if err != nil || len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image body required"})
		return
	}
	if len(raw) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
		return
	}

	opts := images.Options{
		MaxWidth:    queryInt(c, "max_width"),
		MaxHeight:   queryInt(c, "max_height"),
		Quality:     queryInt(c, "quality"),
		Format:      c.Query("format"),
		Progressive: c.Query("progressive") == "true",
	}
	result, err := images.Optimize(raw, opts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.OptimizeImageResponse{
		Width:            result.Width,
		Height:           result.Height,
		Format:           result.Format,
		OriginalSize:     result.OriginalSize,
		OptimizedSize:    result.OptimizedSize,
		CompressionRatio: result.CompressionRatio,
		Data:             result.Buffer,
	})
}

// Thumbnail responds with the cropped image bytes directly.
func (h *ImageHandler) Thumbnail(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadBytes+1))
	if err != nil || len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image body required"})
		return
	}
	if len(raw) > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
		return
	}

	width := queryInt(c, "width")
	height := queryInt(c, "height")
	if width <= 0 {
		width = 256
	}
	if height <= 0 {
		height = 256
	}

	thumb, err := images.Thumbnail(raw, width, height, queryInt(c, "quality"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", thumb)
}

func queryInt(c *gin.Context, key string) int {
	v, _ := strconv.Atoi(c.Query(key))
	return v
}
