package activity

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/taskmaster/internal/auth"
)

const defaultFeedLimit = 20

// FeedReader は認証済みユーザーの履歴を返します。
type FeedReader interface {
	Recent(ctx context.Context, owner string, limit int) ([]Event, error)
}

// FeedHandler は GET /activity のハンドラーを返します。auth.RequireToken の後ろに置きます。
func FeedHandler(feed FeedReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultFeedLimit
		if raw, ok := c.GetQuery("limit"); ok {
			value, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"code":   "INVALID_INPUT",
					"detail": "limit must be an integer",
				})
				return
			}
			limit = value
		}

		events, err := feed.Recent(c.Request.Context(), auth.CurrentUser(c), limit)
		if err != nil {
			log.Printf("activity: failed to read feed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":   "INTERNAL_ERROR",
				"detail": "Internal server error",
			})
			return
		}
		if events == nil {
			events = []Event{}
		}
		c.JSON(http.StatusOK, gin.H{"items": events})
	}
}
