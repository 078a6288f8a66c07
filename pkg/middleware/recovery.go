package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// RecoveryHandler はパニック発生後のレスポンスを書き込む関数。
type RecoveryHandler func(c *gin.Context, recovered any)

// Recovery はパニックから回復して500のJSONを返すGinミドルウェアを返す。
func Recovery() gin.HandlerFunc {
	return RecoveryWith(func(c *gin.Context, _ any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "内部サーバーエラーが発生しました",
		})
	})
}

// RecoveryWith はパニックから回復し、レスポンスをhandlerに任せるGinミドルウェアを返す。
// HTML画面を返すサーバーではエラーページの描画に使う。
func RecoveryWith(handler RecoveryHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[PANIC] %s %s: %v\n%s", c.Request.Method, c.Request.URL.Path, r, debug.Stack())
				if c.Writer.Written() {
					c.Abort()
					return
				}
				handler(c, r)
			}
		}()
		c.Next()
	}
}
