package users

import (
	"errors"
	"net/http"

	"github.com/emogo/journal-service/internal/model"
	registrystore "github.com/emogo/journal-service/internal/registry/store"
	"github.com/gin-gonic/gin"
)

// MountRoutes mounts the user registry routes.
func MountRoutes(r *gin.Engine, store registrystore.JournalStore) {
	g := r.Group("/api/v1/users")

	g.POST("/register", func(c *gin.Context) {
		register(c, store)
	})
	g.POST("/login", func(c *gin.Context) {
		login(c, store)
	})
	g.GET("/:userId", func(c *gin.Context) {
		getUser(c, store)
	})
	g.GET("/", func(c *gin.Context) {
		listUsers(c, store)
	})
}

type credentials struct {
	Username string  `json:"username"`
	Email    *string `json:"email,omitempty"`
	DeviceID *string `json:"device_id,omitempty"`
}

type registerResponse struct {
	model.User
	IsNew bool `json:"is_new"`
}

// register creates an account, or returns the existing one when the
// username is already taken. Clients hold on to the returned id.
func register(c *gin.Context, store registrystore.JournalStore) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "validation_error",
			"error": "username is required",
		})
		return
	}

	user, isNew, err := store.RegisterUser(c.Request.Context(), req.Username, req.Email, req.DeviceID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, registerResponse{User: *user, IsNew: isNew})
}

func login(c *gin.Context, store registrystore.JournalStore) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "validation_error",
			"error": "username is required",
		})
		return
	}

	user, err := store.LoginUser(c.Request.Context(), req.Username, req.DeviceID)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func getUser(c *gin.Context, store registrystore.JournalStore) {
	user, err := store.GetUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func listUsers(c *gin.Context, store registrystore.JournalStore) {
	users, err := store.ListUsers(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": len(users)})
}

func handleError(c *gin.Context, err error) {
	var notFound *registrystore.NotFoundError
	var validation *registrystore.ValidationError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
