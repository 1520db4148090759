package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func respondWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmailExists):
		c.JSON(http.StatusBadRequest, gin.H{
			"code":   "EMAIL_EXISTS",
			"detail": "Email already exists",
		})
	case errors.Is(err, ErrPasswordTooLong):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":   "PASSWORD_TOO_LONG",
			"detail": ErrPasswordTooLong.Error(),
		})
	case errors.Is(err, ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":   "INVALID_CREDENTIALS",
			"detail": "Invalid credentials",
		})
	default:
		log.Printf("auth: %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":   "INTERNAL_ERROR",
			"detail": "Internal server error",
		})
	}
}
