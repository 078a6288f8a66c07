package devserver

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/dubbing/pkg/middleware"
	"github.com/nao1215/dubbing/pkg/migration"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config は開発用バックエンドの設定。
type Config struct {
	// DatabasePath はSQLiteのDSN。":memory:" も指定できる。
	DatabasePath string
	// JWTSecret はアクセストークンの署名鍵。
	JWTSecret string
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// TokenTTL はアクセストークンの有効期間。0以下なら既定値。
	TokenTTL time.Duration
}

// ConfigFromEnv は環境変数から設定を読み込む。
func ConfigFromEnv() Config {
	ttl, err := time.ParseDuration(getEnvOr("TOKEN_TTL", "24h"))
	if err != nil {
		ttl = middleware.DefaultTokenTTL
	}
	return Config{
		DatabasePath:   getEnvOr("DATABASE_PATH", "devserver.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"),
		JWTSecret:      getEnvOr("JWT_SECRET", "dev-secret-key"),
		AllowedOrigins: strings.Split(getEnvOr("FRONTEND_URL", "http://localhost:3000"), ","),
		TokenTTL:       ttl,
	}
}

// Server は開発用バックエンドのHTTPサーバー。
// ダビング処理は行わず、作成したプロジェクトはProcessingのまま残る。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// db はSQLiteデータベース接続。
	db *sql.DB
	// queries はSQLの実行オブジェクト。
	queries *queries
	// jwtSecret はJWT署名用の秘密鍵。
	jwtSecret string
	// tokenTTL はアクセストークンの有効期間。
	tokenTTL time.Duration
}

// NewServer は環境変数の設定で新しい開発用バックエンドを生成する。
func NewServer(port string) (*Server, error) {
	s, err := Open(context.Background(), ConfigFromEnv())
	if err != nil {
		return nil, err
	}
	s.port = port
	return s, nil
}

// Open はcfgのデータベースを開いてスキーマを適用し、サーバーを生成する。
func Open(ctx context.Context, cfg Config) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if _, err := migration.Run(ctx, sqlDB, migrationsFS, "migrations"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	s := &Server{
		router:    router,
		db:        sqlDB,
		queries:   newQueries(sqlDB),
		jwtSecret: cfg.JWTSecret,
		tokenTTL:  cfg.TokenTTL,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Handler はルーティング済みのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close はデータベース接続を閉じる。
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		// 認証不要
		api.POST("/login", s.handleLogin())
		api.POST("/register", s.handleRegister())
	}

	authed := api.Group("")
	authed.Use(middleware.BearerAuth(s.jwtSecret))
	{
		authed.GET("/projects", s.handleListProjects())
		authed.POST("/projects", s.handleCreateProject())
		authed.DELETE("/project/:id", s.handleDeleteProject())
		// 開発用: パイプラインの進行を手動で再現する
		authed.POST("/project/:id/status", s.handleUpdateStatus())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "devserver"})
	})
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
