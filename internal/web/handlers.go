package web

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/dubbing/internal/gateway"
)

// 画面に表示する文言（ウズベク語）。
const (
	titleHome          = "O'zbek Dublyaj"
	titleLogin         = "Kirish"
	titleRegister      = "Ro'yxatdan o'tish"
	titleDashboard     = "Loyihalarim"
	noticeRegistered   = "Ro'yxatdan muvaffaqiyatli o'tdingiz! Endi kiring."
	titleError         = "Xatolik"
	msgProjectNotFound = "Loyiha topilmadi"
)

// handleHome はランディングページを返すハンドラを返す。
func (s *Server) handleHome() gin.HandlerFunc {
	return func(c *gin.Context) {
		gw, _ := s.gatewayFor(c)
		authenticated, err := gw.Authenticated()
		if err != nil {
			log.Printf("[Web] セッション読み込みエラー: %v", err)
		}
		s.pages.render(c, http.StatusOK, pageHome, pageData{
			Title:         titleHome,
			Authenticated: authenticated,
		})
	}
}

// handleLoginPage はログイン画面を返すハンドラを返す。
func (s *Server) handleLoginPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		data := pageData{Title: titleLogin}
		if c.Query("registered") == "1" {
			data.Notice = noticeRegistered
		}
		s.pages.render(c, http.StatusOK, pageLogin, data)
	}
}

// handleLogin はログインフォームを受け付けるハンドラを返す。
// 失敗した場合は入力したメールアドレスを残してログイン画面を再表示する。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.PostForm("username")
		gw, nav := s.gatewayFor(c)

		if _, err := gw.Login(c.Request.Context(), username, c.PostForm("password")); err != nil {
			log.Printf("[Web] ログイン失敗: %v", err)
			s.pages.render(c, http.StatusOK, pageLogin, pageData{
				Title: titleLogin,
				Error: gateway.UserMessage(err, gateway.MsgLoginFailed),
				Form:  map[string]string{"username": username},
			})
			return
		}
		redirect(c, nav.target)
	}
}

// handleRegisterPage はユーザー登録画面を返すハンドラを返す。
func (s *Server) handleRegisterPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.pages.render(c, http.StatusOK, pageRegister, pageData{Title: titleRegister})
	}
}

// handleRegister はユーザー登録フォームを受け付けるハンドラを返す。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		in := gateway.RegisterInput{
			FullName:        c.PostForm("full_name"),
			Username:        c.PostForm("username"),
			Password:        c.PostForm("password"),
			ConfirmPassword: c.PostForm("confirm_password"),
		}
		gw, nav := s.gatewayFor(c)

		if err := gw.Register(c.Request.Context(), in); err != nil {
			if !errors.Is(err, gateway.ErrPasswordMismatch) {
				log.Printf("[Web] ユーザー登録失敗: %v", err)
			}
			s.pages.render(c, http.StatusOK, pageRegister, pageData{
				Title: titleRegister,
				Error: gateway.UserMessage(err, gateway.MsgRequestFailed),
				Form: map[string]string{
					"full_name": in.FullName,
					"username":  in.Username,
				},
			})
			return
		}
		redirect(c, nav.target)
	}
}

// handleLogout はセッションを破棄してログイン画面へ遷移するハンドラを返す。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		gw, nav := s.gatewayFor(c)
		if err := gw.Logout(); err != nil {
			log.Printf("[Web] ログアウト失敗: %v", err)
			s.renderError(c, gateway.MsgRequestFailed)
			return
		}
		redirect(c, nav.target)
	}
}

// handleDashboard はプロジェクト一覧画面を返すハンドラを返す。
// バックエンドが401を返した場合はセッションが破棄され、ログイン画面へ遷移する。
func (s *Server) handleDashboard() gin.HandlerFunc {
	return func(c *gin.Context) {
		gw, nav := s.gatewayFor(c)
		data := pageData{
			Title:         titleDashboard,
			Authenticated: true,
			ShowForm:      c.Query("new") == "1",
		}

		projects, err := gw.ListProjects(c.Request.Context())
		if nav.target != "" {
			redirect(c, nav.target)
			return
		}
		if err != nil {
			log.Printf("[Web] プロジェクト一覧取得失敗: %v", err)
			data.Error = gateway.UserMessage(err, gateway.MsgRequestFailed)
		}
		data.Projects = projects
		s.fillUser(gw, &data)

		s.pages.render(c, http.StatusOK, pageDashboard, data)
	}
}

// handleCreateProject はプロジェクト作成フォームを受け付けるハンドラを返す。
// 失敗した場合は作成フォームにメッセージと入力値を残して一覧画面を再表示する。
func (s *Server) handleCreateProject() gin.HandlerFunc {
	return func(c *gin.Context) {
		youtubeURL := c.PostForm("youtube_url")
		title := c.PostForm("title")
		gw, nav := s.gatewayFor(c)

		_, err := gw.CreateProject(c.Request.Context(), youtubeURL, title)
		if nav.target != "" {
			redirect(c, nav.target)
			return
		}
		if err == nil {
			redirect(c, gateway.RouteDashboard)
			return
		}

		log.Printf("[Web] プロジェクト作成失敗: %v", err)
		data := pageData{
			Title:         titleDashboard,
			Authenticated: true,
			ShowForm:      true,
			Error:         gateway.UserMessage(err, gateway.MsgCreateProjectFailed),
			Form: map[string]string{
				"youtube_url": youtubeURL,
				"title":       title,
			},
		}
		projects, listErr := gw.ListProjects(c.Request.Context())
		if nav.target != "" {
			redirect(c, nav.target)
			return
		}
		if listErr != nil {
			log.Printf("[Web] プロジェクト一覧取得失敗: %v", listErr)
		}
		data.Projects = projects
		s.fillUser(gw, &data)

		s.pages.render(c, http.StatusOK, pageDashboard, data)
	}
}

// handleDeleteProject はプロジェクトを削除して一覧画面へ戻るハンドラを返す。
func (s *Server) handleDeleteProject() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			s.renderError(c, msgProjectNotFound)
			return
		}
		gw, nav := s.gatewayFor(c)

		err = gw.DeleteProject(c.Request.Context(), id)
		if nav.target != "" {
			redirect(c, nav.target)
			return
		}
		if err != nil {
			log.Printf("[Web] プロジェクト削除失敗: id=%d, %v", id, err)
			s.renderError(c, gateway.UserMessage(err, gateway.MsgRequestFailed))
			return
		}
		redirect(c, gateway.RouteDashboard)
	}
}

// fillUser は保存済みのユーザー情報を画面データに設定する。
func (s *Server) fillUser(gw *gateway.Client, data *pageData) {
	user, err := gw.CurrentUser()
	if err != nil {
		log.Printf("[Web] ユーザー情報読み込みエラー: %v", err)
		return
	}
	data.User = user
}

// renderError はエラー画面を返す。
func (s *Server) renderError(c *gin.Context, message string) {
	s.pages.render(c, http.StatusOK, pageError, pageData{
		Title: titleError,
		Error: message,
	})
}
