package tasks

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/taskmaster/internal/auth"
	"github.com/yourusername/taskmaster/internal/storage"
)

// TaskService はハンドラーが利用するタスク操作です。
type TaskService interface {
	Create(ctx context.Context, owner, title, description string) (*storage.Task, error)
	List(ctx context.Context, owner string, q ListQuery) (*ListResult, error)
	Delete(ctx context.Context, owner string, id int64) error
}

type createRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
}

// RegisterRoutes は /tasks 配下のルートを登録します。
// requireToken は永続化層に触れる前に必ず実行されます。
func RegisterRoutes(router gin.IRouter, svc TaskService, requireToken gin.HandlerFunc) {
	group := router.Group("/tasks", requireToken)
	{
		group.POST("/", CreateHandler(svc))
		group.GET("/", ListHandler(svc))
		group.DELETE("/:id", DeleteHandler(svc))
	}
}

// CreateHandler は POST /tasks/ のハンドラーを返します。
func CreateHandler(svc TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"code":   "INVALID_INPUT",
				"detail": "title is required",
			})
			return
		}

		description := ""
		if req.Description != nil {
			description = *req.Description
		}

		task, err := svc.Create(c.Request.Context(), auth.CurrentUser(c), req.Title, description)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

// ListHandler は GET /tasks/ のハンドラーを返します。
// page と limit の両方が指定された場合のみページング形式で返します。
func ListHandler(svc TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := ListQuery{Query: c.Query("q")}

		var err error
		if query.Page, err = optionalInt(c, "page"); err != nil {
			respondWithError(c, err)
			return
		}
		if query.Limit, err = optionalInt(c, "limit"); err != nil {
			respondWithError(c, err)
			return
		}

		result, err := svc.List(c.Request.Context(), auth.CurrentUser(c), query)
		if err != nil {
			respondWithError(c, err)
			return
		}

		if result.Paged != nil {
			c.JSON(http.StatusOK, result.Paged)
			return
		}
		items := result.Items
		if items == nil {
			items = []storage.Task{}
		}
		c.JSON(http.StatusOK, items)
	}
}

// DeleteHandler は DELETE /tasks/:id のハンドラーを返します。
func DeleteHandler(svc TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			respondWithError(c, &ValidationError{Field: "id", Message: "task id must be an integer"})
			return
		}

		if err := svc.Delete(c.Request.Context(), auth.CurrentUser(c), id); err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"detail": "deleted"})
	}
}

func optionalInt(c *gin.Context, key string) (*int, error) {
	raw, ok := c.GetQuery(key)
	if !ok {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &ValidationError{Field: key, Message: key + " must be an integer"}
	}
	return &value, nil
}

func respondWithError(c *gin.Context, err error) {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":   "INVALID_INPUT",
			"detail": validationErr.Error(),
		})
	case errors.Is(err, ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"code":   "TASK_NOT_FOUND",
			"detail": "Task not found",
		})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{
			"code":   "FORBIDDEN",
			"detail": "Not allowed to delete this task",
		})
	case errors.Is(err, ErrUnknownOwner):
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":   "UNKNOWN_USER",
			"detail": "Could not validate credentials",
		})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, gin.H{
			"code":   "REQUEST_CANCELED",
			"detail": "Request canceled",
		})
	default:
		log.Printf("tasks: %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":   "INTERNAL_ERROR",
			"detail": "Internal server error",
		})
	}
}
