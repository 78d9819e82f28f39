package uploads

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"path"

	"github.com/charmbracelet/log"
	registrymedia "github.com/emogo/journal-service/internal/registry/media"
	"github.com/emogo/journal-service/internal/telemetry"
	"github.com/gin-gonic/gin"
)

// MountRoutes mounts the video upload, delete and streaming routes.
func MountRoutes(r *gin.Engine, videos registrymedia.VideoStore) {
	g := r.Group("/api/v1")

	g.POST("/upload/video", func(c *gin.Context) {
		uploadVideo(c, videos)
	})
	g.DELETE("/upload/video", func(c *gin.Context) {
		deleteVideo(c, videos)
	})

	// Playback path matches the url embedded in entries, so locally stored
	// videos resolve against the same server that accepted them.
	r.GET(registrymedia.URLPrefix+"/:userId/:filename", func(c *gin.Context) {
		streamVideo(c, videos)
	})
}

func uploadVideo(c *gin.Context, videos registrymedia.VideoStore) {
	userID := c.PostForm("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "validation_error",
			"error": "user_id is required",
		})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "validation_error",
			"error": "file is required",
		})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	defer file.Close()

	result, err := videos.Save(c.Request.Context(), file, header.Filename, header.Header.Get("Content-Type"), userID)
	if err != nil {
		var unsupported *registrymedia.UnsupportedFormatError
		var tooLarge *registrymedia.SizeLimitError
		switch {
		case errors.As(err, &unsupported):
			c.JSON(http.StatusBadRequest, gin.H{"code": "unsupported_format", "error": err.Error()})
		case errors.As(err, &tooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"code": "too_large", "error": err.Error()})
		default:
			log.Error("video upload failed", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	if telemetry.VideoUploadBytes != nil {
		telemetry.VideoUploadBytes.Observe(float64(result.Size))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"url":               result.URL,
		"file_size":         result.Size,
		"original_filename": result.OriginalFilename,
		"message":           "Video uploaded successfully",
	})
}

func deleteVideo(c *gin.Context, videos registrymedia.VideoStore) {
	videoURL := c.Query("video_url")
	if videoURL == "" {
		var req struct {
			VideoURL string `json:"video_url"`
		}
		if err := c.ShouldBindJSON(&req); err == nil {
			videoURL = req.VideoURL
		}
	}
	if videoURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "validation_error",
			"error": "video_url is required",
		})
		return
	}

	removed, err := videos.Delete(c.Request.Context(), videoURL)
	if err != nil {
		log.Error("video delete failed", "video_url", videoURL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "video not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Video deleted successfully"})
}

func streamVideo(c *gin.Context, videos registrymedia.VideoStore) {
	url := registrymedia.URLPrefix + "/" + c.Param("userId") + "/" + c.Param("filename")

	reader, err := videos.Open(c.Request.Context(), url)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "video not found"})
			return
		}
		log.Error("video stream failed", "url", url, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	defer reader.Close()

	c.Header("Content-Type", registrymedia.ContentTypeForExtension(path.Ext(c.Param("filename"))))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}
