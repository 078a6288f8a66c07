package devserver

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/nao1215/dubbing/pkg/middleware"
	"github.com/nao1215/dubbing/pkg/model"
	"golang.org/x/crypto/bcrypt"
)

// 利用者に表示されるメッセージ（ウズベク語）。
const (
	msgInvalidCredentials = "Email yoki parol noto'g'ri"
	msgFieldsRequired     = "Barcha maydonlarni to'ldiring"
	msgInvalidEmail       = "Email manzili noto'g'ri"
	msgPasswordMismatch   = "Parollar mos kelmadi"
	msgPasswordTooShort   = "Parol kamida 6 ta belgidan iborat bo'lishi kerak"
	msgPasswordTooLong    = "Parol juda uzun"
	msgEmailTaken         = "Bu email allaqachon ro'yxatdan o'tgan"
	msgRegistered         = "Ro'yxatdan muvaffaqiyatli o'tdingiz"
	msgYouTubeURLRequired = "YouTube URL kiritilishi shart"
	msgInvalidYouTubeURL  = "YouTube havolasi noto'g'ri"
	msgProjectNotFound    = "Loyiha topilmadi"
	msgProjectDeleted     = "Loyiha o'chirildi"
	msgInvalidStatus      = "Noma'lum holat"
	msgInternal           = "Xatolik yuz berdi"
)

const (
	// maxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
	maxPasswordBytes = 72
	// defaultTitle はタイトル未入力時のプロジェクト名。
	defaultTitle = "Yangi loyiha"
)

// statusSuccess は成功時のstatusフィールドの値。
const statusSuccess = "success"

// errorJSON はstatus="error"のJSONレスポンスを返す。
func errorJSON(c *gin.Context, code int, message string) {
	c.JSON(code, model.StatusResponse{Status: model.ResponseStatusError, Message: message})
}

// bindingMessage はバインド時のエラーを利用者向けメッセージに変換する。
// messagesはバリデーションタグごとのメッセージで、requiredの違反を最優先する。
func bindingMessage(err error, messages map[string]string) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return messages["required"]
	}
	msg := ""
	for _, fe := range verrs {
		m, ok := messages[fe.Tag()]
		if !ok {
			continue
		}
		if fe.Tag() == "required" {
			return m
		}
		if msg == "" {
			msg = m
		}
	}
	if msg == "" {
		return messages["required"]
	}
	return msg
}

// loginRequest はログインフォームの内容。
type loginRequest struct {
	// Username はログインに使うメールアドレス。
	Username string `form:"username" binding:"required,email"`
	// Password は平文のパスワード。
	Password string `form:"password" binding:"required"`
}

// loginMessages はログインフォームのバリデーションエラーメッセージ。
var loginMessages = map[string]string{
	"required": msgFieldsRequired,
	"email":    msgInvalidEmail,
}

// loginResponse はログイン成功時のレスポンス。
type loginResponse struct {
	model.LoginResponse
	// TokenType はトークン種別。常に"bearer"。
	TokenType string `json:"token_type"`
}

// handleLogin はフォームのusernameとpasswordでログインし、アクセストークンを発行するハンドラを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBind(&req); err != nil {
			errorJSON(c, http.StatusBadRequest, bindingMessage(err, loginMessages))
			return
		}

		u, err := s.queries.GetUserByEmail(c.Request.Context(), req.Username)
		if errors.Is(err, sql.ErrNoRows) {
			errorJSON(c, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, msgInternal)
			log.Printf("ユーザー取得エラー: %v", err)
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
			errorJSON(c, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}

		token, err := middleware.IssueToken(s.jwtSecret, u.ID, u.Email, s.tokenTTL)
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, msgInternal)
			log.Printf("JWT生成エラー: %v", err)
			return
		}

		user := u.toModel()
		c.JSON(http.StatusOK, loginResponse{
			LoginResponse: model.LoginResponse{
				Status:      statusSuccess,
				AccessToken: token,
				User:        &user,
			},
			TokenType: "bearer",
		})
	}
}

// registerRequest はユーザー登録フォームの内容。
type registerRequest struct {
	// FullName は表示名。任意。
	FullName string `form:"full_name"`
	// Username は登録するメールアドレス。
	Username string `form:"username" binding:"required,email"`
	// Password は平文のパスワード。長さは文字数で数える。
	Password string `form:"password" binding:"required,min=6"`
	// ConfirmPassword は確認用のパスワード。
	ConfirmPassword string `form:"confirm_password" binding:"eqfield=Password"`
}

// registerMessages はユーザー登録フォームのバリデーションエラーメッセージ。
var registerMessages = map[string]string{
	"required": msgFieldsRequired,
	"email":    msgInvalidEmail,
	"min":      msgPasswordTooShort,
	"eqfield":  msgPasswordMismatch,
}

// handleRegister はフォームの内容でユーザーを登録するハンドラを返す。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBind(&req); err != nil {
			errorJSON(c, http.StatusBadRequest, bindingMessage(err, registerMessages))
			return
		}
		// bcryptは72バイトを超える入力を受け付けない
		if len(req.Password) > maxPasswordBytes {
			errorJSON(c, http.StatusBadRequest, msgPasswordTooLong)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, msgInternal)
			log.Printf("パスワードハッシュ生成エラー: %v", err)
			return
		}

		_, err = s.queries.CreateUser(c.Request.Context(), createUserParams{
			Email:        req.Username,
			FullName:     strings.TrimSpace(req.FullName),
			PasswordHash: string(hash),
		})
		if errors.Is(err, ErrEmailTaken) {
			errorJSON(c, http.StatusConflict, msgEmailTaken)
			return
		}
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, msgInternal)
			log.Printf("ユーザー作成エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, model.StatusResponse{Status: statusSuccess, Message: msgRegistered})
	}
}

// handleListProjects はログイン中のユーザーのプロジェクト一覧を返すハンドラを返す。
func (s *Server) handleListProjects() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			errorJSON(c, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}

		projects, err := s.queries.ListProjectsByUserID(c.Request.Context(), userID)
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, msgInternal)
			log.Printf("プロジェクト一覧取得エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, model.ProjectListResponse{Data: projects})
	}
}

// createProjectRequest はプロジェクト作成フォームの内容。
type createProjectRequest struct {
	// YouTubeURL は吹き替え元の動画URL。
	YouTubeURL string `form:"youtube_url" binding:"required"`
	// Title はプロジェクト名。空なら既定の名前を使う。
	Title string `form:"title"`
	// Quality は品質設定。
	Quality string `form:"quality,default=standard"`
}

// createProjectMessages はプロジェクト作成フォームのバリデーションエラーメッセージ。
var createProjectMessages = map[string]string{
	"required": msgYouTubeURLRequired,
}

// handleCreateProject はマルチパートフォームのyoutube_urlとtitleからプロジェクトを作成するハンドラを返す。
func (s *Server) handleCreateProject() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			errorJSON(c, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}

		var req createProjectRequest
		if err := c.ShouldBind(&req); err != nil {
			errorJSON(c, http.StatusBadRequest, bindingMessage(err, createProjectMessages))
			return
		}
		video, err := parseYouTubeURL(req.YouTubeURL)
		if err != nil {
			errorJSON(c, http.StatusBadRequest, msgInvalidYouTubeURL)
			return
		}
		title := strings.TrimSpace(req.Title)
		if title == "" {
			title = defaultTitle
		}

		p, err := s.queries.CreateProject(c.Request.Context(), createProjectParams{
			UserID:    userID,
			Title:     title,
			Status:    model.StatusProcessing,
			Thumbnail: video.ThumbnailURL(),
			VideoURL:  video.WatchURL(),
			Quality:   req.Quality,
		})
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, msgInternal)
			log.Printf("プロジェクト作成エラー: %v", err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"status": statusSuccess, "data": p})
	}
}

// handleDeleteProject はログイン中のユーザーが所有するプロジェクトを削除するハンドラを返す。
// 他のユーザーのプロジェクトは存在しないものとして扱う。
func (s *Server) handleDeleteProject() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			errorJSON(c, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			errorJSON(c, http.StatusNotFound, msgProjectNotFound)
			return
		}

		err = s.queries.DeleteProject(c.Request.Context(), userID, id)
		if errors.Is(err, sql.ErrNoRows) {
			errorJSON(c, http.StatusNotFound, msgProjectNotFound)
			return
		}
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, msgInternal)
			log.Printf("プロジェクト削除エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, model.StatusResponse{Status: statusSuccess, Message: msgProjectDeleted})
	}
}

// updateStatusRequest はプロジェクト状態更新リクエストのJSON構造。
type updateStatusRequest struct {
	// Status は新しい状態。
	Status model.Status `json:"status" binding:"required"`
	// FinalVideoURL はダビング済み動画のURL。
	FinalVideoURL string `json:"final_video_url"`
	// ErrorMessage はError状態のときのメッセージ。
	ErrorMessage string `json:"error_message"`
}

// handleUpdateStatus はプロジェクトの状態を書き換えるハンドラを返す。
// ダビング処理を持たない開発用バックエンドで、画面の各状態を確認するために使う。
func (s *Server) handleUpdateStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			errorJSON(c, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			errorJSON(c, http.StatusNotFound, msgProjectNotFound)
			return
		}

		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil || !req.Status.Known() {
			errorJSON(c, http.StatusBadRequest, msgInvalidStatus)
			return
		}

		err = s.queries.UpdateProjectStatus(c.Request.Context(), updateStatusParams{
			UserID:        userID,
			ID:            id,
			Status:        req.Status,
			FinalVideoURL: req.FinalVideoURL,
			ErrorMessage:  req.ErrorMessage,
		})
		if errors.Is(err, sql.ErrNoRows) {
			errorJSON(c, http.StatusNotFound, msgProjectNotFound)
			return
		}
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, msgInternal)
			log.Printf("プロジェクト状態更新エラー: %v", err)
			return
		}

		p, err := s.queries.GetProject(c.Request.Context(), userID, id)
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, msgInternal)
			log.Printf("プロジェクト取得エラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": statusSuccess, "data": p})
	}
}
