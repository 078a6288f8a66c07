package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenIssuer はアクセストークンの発行者。
	TokenIssuer = "dubbing-devserver"
	// DefaultTokenTTL はアクセストークンの既定の有効期間。
	DefaultTokenTTL = 24 * time.Hour
)

// コンテキストキー。
const (
	contextKeyUserID = "user_id"
	contextKeyEmail  = "email"
)

// ErrInvalidToken はトークンの署名・形式・有効期限のいずれかが不正であることを表す。
var ErrInvalidToken = errors.New("トークンが無効です")

// Claims はアクセストークンのクレーム。
type Claims struct {
	jwt.RegisteredClaims
	// UserID はユーザーの識別子。
	UserID int64 `json:"uid"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
}

// IssueToken はユーザー情報からHS256署名のアクセストークンを発行する。
// ttlが0以下の場合はDefaultTokenTTLを使う。
func IssueToken(secret string, userID int64, email string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    TokenIssuer,
		},
		UserID: userID,
		Email:  email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// ParseToken はアクセストークンを検証してクレームを返す。
// HS256以外の署名や発行者が異なるトークンは拒否する。
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// BearerAuth はAuthorizationヘッダーのBearerトークンを検証するGinミドルウェアを返す。
// 検証に失敗した場合は401を返し、成功した場合はコンテキストにユーザーIDとメールアドレスを設定する。
func BearerAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorizationヘッダーが必要です")
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || tokenString == "" {
			abortUnauthorized(c, "Bearer トークン形式が不正です")
			return
		}

		claims, err := ParseToken(secret, tokenString)
		if err != nil {
			abortUnauthorized(c, ErrInvalidToken.Error())
			return
		}

		c.Set(contextKeyUserID, claims.UserID)
		c.Set(contextKeyEmail, claims.Email)
		c.Next()
	}
}

// abortUnauthorized は401レスポンスを返して後続の処理を中断する。
func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"status":  "error",
		"message": message,
	})
}

// UserID はGinコンテキストから認証済みユーザーのIDを取得する。
// BearerAuthが適用されていない場合はfalseを返す。
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(contextKeyUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// Email はGinコンテキストから認証済みユーザーのメールアドレスを取得する。
func Email(c *gin.Context) string {
	v, _ := c.Get(contextKeyEmail)
	email, _ := v.(string)
	return email
}
