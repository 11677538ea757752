package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lshigami/examflow/internal/dto"
)

// UserIDHeader identifies the candidate. Authentication happens in front of this service.
const UserIDHeader = "X-User-ID"

const userIDKey = "userID"

// RequireUser rejects requests without a candidate id. Websocket clients cannot set headers,
// so the user_id query parameter is accepted as well.
func RequireUser() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID := strings.TrimSpace(ctx.GetHeader(UserIDHeader))
		if userID == "" {
			userID = strings.TrimSpace(ctx.Query("user_id"))
		}
		if userID == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Missing " + UserIDHeader + " header"})
			return
		}
		ctx.Set(userIDKey, userID)
		ctx.Next()
	}
}

func UserID(ctx *gin.Context) string {
	return ctx.GetString(userIDKey)
}
