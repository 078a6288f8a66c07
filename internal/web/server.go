package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/dubbing/internal/gateway"
	"github.com/nao1215/dubbing/pkg/httpclient"
	"github.com/nao1215/dubbing/pkg/middleware"
	"github.com/nao1215/dubbing/pkg/session"
)

const (
	// sessionCookieName はブラウザを識別するCookie名。
	sessionCookieName = "sid"
	// contextKeySessionID はGinコンテキストにセッションIDを格納するキー。
	contextKeySessionID = "session_id"
	// defaultSessionMaxAge はセッションの既定の有効期間。
	defaultSessionMaxAge = 7 * 24 * time.Hour
	// purgeInterval は期限切れセッションを削除する間隔。
	purgeInterval = time.Hour
)

// Config はWebサーバーの設定。
type Config struct {
	// APIBaseURL はバックエンドAPIのURL（APIプレフィックスを含む）。
	APIBaseURL string
	// SessionDB はセッション保存用SQLiteのDSN。
	SessionDB string
	// SecureCookies はCookieにSecure属性を付けるかどうか。
	SecureCookies bool
	// SessionMaxAge はセッションCookieと保存値の有効期間。
	SessionMaxAge time.Duration
	// HTTPClient はバックエンドへの通信に使うクライアント。nilなら既定値。
	HTTPClient *http.Client
}

// ConfigFromEnv は環境変数から設定を読み込む。
func ConfigFromEnv() Config {
	secure, _ := strconv.ParseBool(getEnvOr("SECURE_COOKIES", "false"))
	maxAge, err := time.ParseDuration(getEnvOr("SESSION_MAX_AGE", "168h"))
	if err != nil {
		maxAge = defaultSessionMaxAge
	}
	return Config{
		APIBaseURL:    getEnvOr("API_BASE_URL", "http://localhost:8000"+gateway.DefaultAPIPrefix),
		SessionDB:     getEnvOr("SESSION_DB", "sessions.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),
		SecureCookies: secure,
		SessionMaxAge: maxAge,
	}
}

// Server はブラウザ向けの画面を返すHTTPサーバー。
// ブラウザごとの資格情報をSQLiteに保存し、ゲートウェイクライアント経由でバックエンドを呼び出す。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// sessions はブラウザセッションごとの資格情報の保存先。
	sessions *session.SQLiteStore
	// apiBaseURL はバックエンドAPIのURL。
	apiBaseURL string
	// httpClient はバックエンドへの通信に共有するHTTPクライアント。
	httpClient *http.Client
	// secureCookies はCookieにSecure属性を付けるかどうか。
	secureCookies bool
	// sessionMaxAge はセッションの有効期間。
	sessionMaxAge time.Duration
	// pages は画面テンプレート。
	pages pages
}

// NewServer は環境変数の設定で新しいWebサーバーを生成する。
func NewServer(port string) (*Server, error) {
	s, err := New(context.Background(), ConfigFromEnv())
	if err != nil {
		return nil, err
	}
	s.port = port
	return s, nil
}

// New はcfgで新しいWebサーバーを生成する。
func New(ctx context.Context, cfg Config) (*Server, error) {
	store, err := session.OpenSQLite(ctx, cfg.SessionDB)
	if err != nil {
		return nil, fmt.Errorf("セッションストアの初期化に失敗: %w", err)
	}
	p, err := loadPages()
	if err != nil {
		store.Close()
		return nil, err
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	maxAge := cfg.SessionMaxAge
	if maxAge <= 0 {
		maxAge = defaultSessionMaxAge
	}

	s := &Server{
		router:        gin.New(),
		sessions:      store,
		apiBaseURL:    cfg.APIBaseURL,
		httpClient:    hc,
		secureCookies: cfg.SecureCookies,
		sessionMaxAge: maxAge,
		pages:         p,
	}
	s.router.Use(middleware.RecoveryWith(s.renderPanic))
	s.router.Use(gin.Logger())
	s.setupRoutes()

	return s, nil
}

// Run は期限切れセッションの定期削除を開始してHTTPサーバーを起動する。
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.purgeLoop(ctx)

	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Handler はルーティング済みのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close はセッションストアを閉じる。
func (s *Server) Close() error {
	return s.sessions.Close()
}

// setupRoutes は画面のルーティングを設定する。
func (s *Server) setupRoutes() {
	// ヘルスチェックはセッションを発行しない
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "web"})
	})

	pagesGroup := s.router.Group("/")
	pagesGroup.Use(s.sessionCookie())
	{
		pagesGroup.GET(gateway.RouteHome, s.handleHome())

		pagesGroup.GET(gateway.RouteLogin, s.handleLoginPage())
		pagesGroup.POST(gateway.RouteLogin, s.handleLogin())
		pagesGroup.GET(gateway.RouteRegister, s.handleRegisterPage())
		pagesGroup.POST(gateway.RouteRegister, s.handleRegister())
		pagesGroup.POST("/logout", s.handleLogout())

		dashboard := pagesGroup.Group(gateway.RouteDashboard)
		{
			dashboard.GET("", s.handleDashboard())
			dashboard.POST("/projects", s.handleCreateProject())
			dashboard.POST("/projects/:id/delete", s.handleDeleteProject())
		}
	}
}

// sessionCookie はブラウザのセッションIDを読み取り、無ければ発行するミドルウェアを返す。
// 有効期間はアクセスのたびに延長する。
func (s *Server) sessionCookie() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(sessionCookieName)
		if err != nil || !session.ValidID(sid) {
			sid = s.sessions.NewID()
		}
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     sessionCookieName,
			Value:    sid,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.secureCookies,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   int(s.sessionMaxAge / time.Second),
		})
		c.Set(contextKeySessionID, sid)
		c.Next()
	}
}

// redirectNavigator はゲートウェイクライアントの遷移要求を記録する。
// ハンドラは記録された遷移先へ303でリダイレクトする。
type redirectNavigator struct {
	// target は最後に要求された遷移先。
	target string
}

// Navigate は遷移先を記録する。
func (n *redirectNavigator) Navigate(path string) {
	n.target = path
}

// gatewayFor はリクエスト元のブラウザ専用のゲートウェイクライアントを生成する。
func (s *Server) gatewayFor(c *gin.Context) (*gateway.Client, *redirectNavigator) {
	nav := &redirectNavigator{}
	storage := s.sessions.For(c.GetString(contextKeySessionID))
	return gateway.New(s.apiBaseURL, storage, nav, httpclient.WithHTTPClient(s.httpClient)), nav
}

// redirect は画面遷移として303 See Otherを返す。
func redirect(c *gin.Context, target string) {
	c.Redirect(http.StatusSeeOther, target)
}

// renderPanic はパニック発生時にエラー画面を返す。
func (s *Server) renderPanic(c *gin.Context, _ any) {
	s.pages.render(c, http.StatusInternalServerError, pageError, pageData{
		Title: titleError,
		Error: gateway.MsgRequestFailed,
	})
	c.Abort()
}

// purgeLoop は有効期間を過ぎたセッションの値を定期的に削除する。
func (s *Server) purgeLoop(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.sessions.PurgeBefore(ctx, time.Now().Add(-s.sessionMaxAge))
			if err != nil {
				log.Printf("[Web] セッションの削除に失敗: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[Web] 期限切れのセッション値を%d件削除しました", n)
			}
		}
	}
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
