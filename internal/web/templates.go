package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/dubbing/pkg/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// 画面名。
const (
	pageHome      = "home"
	pageLogin     = "login"
	pageRegister  = "register"
	pageDashboard = "dashboard"
	pageError     = "error"
)

// templateFuncs はテンプレートから呼び出す関数。
var templateFuncs = template.FuncMap{
	"badgeStyle": badgeStyle,
	"formatTime": formatTime,
}

// badgeStyle は状態バッジのインラインスタイルを返す。
// 色は既知の状態の固定値か中立色のどちらかに限られる。
func badgeStyle(s model.Status) template.CSS {
	c := s.Color()
	return template.CSS(fmt.Sprintf("background:%s20;color:%s", c, c))
}

// formatTime は一覧表示用に日時を整形する。
func formatTime(t time.Time) string {
	return t.Local().Format("02.01.2006 15:04")
}

// pageData は画面テンプレートに渡す値。
type pageData struct {
	// Title はページタイトル。
	Title string
	// Authenticated はトークンが保存されているかどうか。
	Authenticated bool
	// User はログイン中のユーザー。
	User *model.User
	// Notice は情報メッセージ。
	Notice string
	// Error はエラーメッセージ。
	Error string
	// Form は再表示するフォームの入力値。
	Form map[string]string
	// Projects はプロジェクト一覧。
	Projects []model.Project
	// ShowForm はプロジェクト作成フォームを表示するかどうか。
	ShowForm bool
}

// pages は画面名ごとのテンプレート。
type pages map[string]*template.Template

// loadPages は埋め込みのテンプレートを画面ごとにレイアウトと組み合わせて読み込む。
func loadPages() (pages, error) {
	p := make(pages)
	for _, name := range []string{pageHome, pageLogin, pageRegister, pageDashboard, pageError} {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("テンプレート %s の読み込みに失敗: %w", name, err)
		}
		p[name] = t
	}
	return p, nil
}

// render は画面をバッファに描画してからレスポンスに書き込む。
func (p pages) render(c *gin.Context, code int, name string, data pageData) {
	t, ok := p[name]
	if !ok {
		log.Printf("[Web] 未定義の画面: %s", name)
		c.String(http.StatusInternalServerError, "Xatolik yuz berdi")
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("[Web] 画面 %s の描画に失敗: %v", name, err)
		c.String(http.StatusInternalServerError, "Xatolik yuz berdi")
		return
	}
	c.Data(code, "text/html; charset=utf-8", buf.Bytes())
}
