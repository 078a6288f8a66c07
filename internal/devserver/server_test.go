package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/dubbing/pkg/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testJWTSecret はテスト用のJWT署名秘密鍵。
const testJWTSecret = "test-secret-key"

// setupTestServer はインメモリSQLiteでテスト用の開発用バックエンドを構築する。
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	s, err := Open(context.Background(), Config{
		DatabasePath:   ":memory:",
		JWTSecret:      testJWTSecret,
		AllowedOrigins: []string{"http://localhost:3000"},
	})
	if err != nil {
		t.Fatalf("サーバーの構築に失敗: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// postForm はフォームエンコードのPOSTリクエストを実行する。
func postForm(t *testing.T, s *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// doAuthed はBearerトークン付きのリクエストを実行する。
func doAuthed(t *testing.T, s *Server, req *http.Request, token string) *httptest.ResponseRecorder {
	t.Helper()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// registerAndLogin はユーザーを登録してログインし、アクセストークンを返す。
func registerAndLogin(t *testing.T, s *Server, email string) string {
	t.Helper()

	w := postForm(t, s, "/api/register", url.Values{
		"full_name":        {"Test User"},
		"username":         {email},
		"password":         {"secret123"},
		"confirm_password": {"secret123"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("登録のステータスコード = %d, body = %s", w.Code, w.Body.String())
	}

	w = postForm(t, s, "/api/login", url.Values{"username": {email}, "password": {"secret123"}})
	if w.Code != http.StatusOK {
		t.Fatalf("ログインのステータスコード = %d, body = %s", w.Code, w.Body.String())
	}
	var resp model.LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗: %v", err)
	}
	return resp.AccessToken
}

// newCreateRequest はマルチパートのプロジェクト作成リクエストを生成する。
func newCreateRequest(t *testing.T, youtubeURL, title string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("youtube_url", youtubeURL)
	mw.WriteField("title", title)
	if err := mw.Close(); err != nil {
		t.Fatalf("マルチパートの生成に失敗: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/projects", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// createProject はプロジェクトを作成して返す。
func createProject(t *testing.T, s *Server, token, youtubeURL, title string) model.Project {
	t.Helper()

	w := doAuthed(t, s, newCreateRequest(t, youtubeURL, title), token)
	if w.Code != http.StatusCreated {
		t.Fatalf("作成のステータスコード = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data model.Project `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗: %v", err)
	}
	return resp.Data
}

// listProjects はプロジェクト一覧を取得する。
func listProjects(t *testing.T, s *Server, token string) []model.Project {
	t.Helper()

	w := doAuthed(t, s, httptest.NewRequest(http.MethodGet, "/api/projects", nil), token)
	if w.Code != http.StatusOK {
		t.Fatalf("一覧のステータスコード = %d, body = %s", w.Code, w.Body.String())
	}
	var resp model.ProjectListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗: %v", err)
	}
	return resp.Data
}

// decodeStatus はstatus/messageのレスポンスをパースする。
func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) model.StatusResponse {
	t.Helper()

	var resp model.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗: %v, body = %s", err, w.Body.String())
	}
	return resp
}

func TestHandleLogin(t *testing.T) {
	t.Parallel()

	t.Run("正しい資格情報でトークンとユーザーが返ること", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t)
		registerAndLogin(t, s, "a@example.com")

		w := postForm(t, s, "/api/login", url.Values{"username": {"a@example.com"}, "password": {"secret123"}})
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		var resp struct {
			model.LoginResponse
			TokenType string `json:"token_type"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("レスポンスボディのパースに失敗: %v", err)
		}
		if resp.Status != "success" || resp.AccessToken == "" || resp.TokenType != "bearer" {
			t.Errorf("resp = %+v", resp)
		}
		if resp.User == nil || resp.User.Email != "a@example.com" || resp.User.DisplayName() != "Test User" {
			t.Errorf("user = %+v", resp.User)
		}
	})

	tests := []struct {
		name     string
		form     url.Values
		wantCode int
	}{
		{name: "パスワード誤り", form: url.Values{"username": {"a@example.com"}, "password": {"wrong"}}, wantCode: http.StatusUnauthorized},
		{name: "未登録ユーザー", form: url.Values{"username": {"nobody@example.com"}, "password": {"secret123"}}, wantCode: http.StatusUnauthorized},
		{name: "入力不足", form: url.Values{"username": {"a@example.com"}}, wantCode: http.StatusBadRequest},
		{name: "メールアドレス不正", form: url.Values{"username": {"a-at-example.com"}, "password": {"secret123"}}, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name+"の場合はエラーが返ること", func(t *testing.T) {
			t.Parallel()

			s := setupTestServer(t)
			registerAndLogin(t, s, "a@example.com")

			w := postForm(t, s, "/api/login", tt.form)
			if w.Code != tt.wantCode {
				t.Errorf("ステータスコード = %d, want %d", w.Code, tt.wantCode)
			}
			if resp := decodeStatus(t, w); resp.Status != model.ResponseStatusError || resp.Message == "" {
				t.Errorf("resp = %+v", resp)
			}
		})
	}
}

func TestHandleRegister(t *testing.T) {
	t.Parallel()

	valid := func() url.Values {
		return url.Values{
			"username":         {"new@example.com"},
			"password":         {"secret123"},
			"confirm_password": {"secret123"},
		}
	}

	tests := []struct {
		name        string
		mutate      func(url.Values)
		wantCode    int
		wantMessage string
	}{
		{name: "正常", mutate: func(url.Values) {}, wantCode: http.StatusCreated, wantMessage: msgRegistered},
		{name: "パスワード不一致", mutate: func(f url.Values) { f.Set("confirm_password", "other") }, wantCode: http.StatusBadRequest, wantMessage: msgPasswordMismatch},
		{name: "メールアドレス不正", mutate: func(f url.Values) { f.Set("username", "not-an-email") }, wantCode: http.StatusBadRequest, wantMessage: msgInvalidEmail},
		{name: "パスワードが短い", mutate: func(f url.Values) { f.Set("password", "abc"); f.Set("confirm_password", "abc") }, wantCode: http.StatusBadRequest, wantMessage: msgPasswordTooShort},
		{name: "パスワードが長い", mutate: func(f url.Values) {
			long := strings.Repeat("a", maxPasswordBytes+1)
			f.Set("password", long)
			f.Set("confirm_password", long)
		}, wantCode: http.StatusBadRequest, wantMessage: msgPasswordTooLong},
		{name: "入力不足", mutate: func(f url.Values) { f.Del("password") }, wantCode: http.StatusBadRequest, wantMessage: msgFieldsRequired},
		{name: "メールアドレス未入力", mutate: func(f url.Values) { f.Del("username") }, wantCode: http.StatusBadRequest, wantMessage: msgFieldsRequired},
		{name: "確認用パスワード未入力", mutate: func(f url.Values) { f.Del("confirm_password") }, wantCode: http.StatusBadRequest, wantMessage: msgPasswordMismatch},
		{name: "パスワードの長さは文字数で数える", mutate: func(f url.Values) { f.Set("password", "пароль"); f.Set("confirm_password", "пароль") }, wantCode: http.StatusCreated, wantMessage: msgRegistered},
		{name: "短いパスワードとメールアドレス不正", mutate: func(f url.Values) {
			f.Set("username", "not-an-email")
			f.Set("password", "abc")
			f.Set("confirm_password", "abc")
		}, wantCode: http.StatusBadRequest, wantMessage: msgInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := setupTestServer(t)
			form := valid()
			tt.mutate(form)

			w := postForm(t, s, "/api/register", form)
			if w.Code != tt.wantCode {
				t.Errorf("ステータスコード = %d, want %d", w.Code, tt.wantCode)
			}
			if resp := decodeStatus(t, w); resp.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMessage)
			}
		})
	}

	t.Run("登録済みのメールアドレスは409が返ること", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t)
		if w := postForm(t, s, "/api/register", valid()); w.Code != http.StatusCreated {
			t.Fatalf("1回目のステータスコード = %d", w.Code)
		}
		w := postForm(t, s, "/api/register", valid())
		if w.Code != http.StatusConflict {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusConflict)
		}
		if resp := decodeStatus(t, w); resp.Message != msgEmailTaken {
			t.Errorf("message = %q, want %q", resp.Message, msgEmailTaken)
		}
	})
}

func TestProjects(t *testing.T) {
	t.Parallel()

	t.Run("作成したプロジェクトが新しい順に一覧に含まれること", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t)
		token := registerAndLogin(t, s, "a@example.com")

		first := createProject(t, s, token, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "Birinchi")
		second := createProject(t, s, token, "https://youtu.be/9bZkp7q19f0", "")

		if first.Status != model.StatusProcessing {
			t.Errorf("Status = %q, want %q", first.Status, model.StatusProcessing)
		}
		if first.Thumbnail == nil || *first.Thumbnail != "https://img.youtube.com/vi/dQw4w9WgXcQ/hqdefault.jpg" {
			t.Errorf("Thumbnail = %v", first.Thumbnail)
		}
		if second.Title != defaultTitle {
			t.Errorf("Title = %q, want %q", second.Title, defaultTitle)
		}
		if first.Quality != "standard" {
			t.Errorf("Quality = %q, want %q", first.Quality, "standard")
		}
		if second.VideoURL == nil || *second.VideoURL != "https://www.youtube.com/watch?v=9bZkp7q19f0" {
			t.Errorf("VideoURL = %v", second.VideoURL)
		}
		if first.FinalVideoURL != nil || first.ErrorMessage != nil {
			t.Errorf("未設定のはずの項目が設定されている: %+v", first)
		}

		projects := listProjects(t, s, token)
		if len(projects) != 2 {
			t.Fatalf("len(projects) = %d, want 2", len(projects))
		}
		if projects[0].ID != second.ID || projects[1].ID != first.ID {
			t.Errorf("並び順 = [%d %d], want [%d %d]", projects[0].ID, projects[1].ID, second.ID, first.ID)
		}
	})

	t.Run("プロジェクトが無い場合は空配列が返ること", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t)
		token := registerAndLogin(t, s, "a@example.com")

		w := doAuthed(t, s, httptest.NewRequest(http.MethodGet, "/api/projects", nil), token)
		if !strings.Contains(w.Body.String(), `"data":[]`) {
			t.Errorf("body = %s, want data:[]", w.Body.String())
		}
	})

	t.Run("他のユーザーのプロジェクトは見えず削除もできないこと", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t)
		alice := registerAndLogin(t, s, "alice@example.com")
		bob := registerAndLogin(t, s, "bob@example.com")
		p := createProject(t, s, alice, "https://youtu.be/dQw4w9WgXcQ", "A")

		if got := listProjects(t, s, bob); len(got) != 0 {
			t.Errorf("他人のプロジェクトが見える: %+v", got)
		}
		req := httptest.NewRequest(http.MethodDelete, "/api/project/"+itoa(p.ID), nil)
		if w := doAuthed(t, s, req, bob); w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
		if got := listProjects(t, s, alice); len(got) != 1 {
			t.Errorf("len(projects) = %d, want 1", len(got))
		}
	})

	t.Run("削除したプロジェクトは一覧から消えること", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t)
		token := registerAndLogin(t, s, "a@example.com")
		p := createProject(t, s, token, "https://youtu.be/dQw4w9WgXcQ", "A")

		req := httptest.NewRequest(http.MethodDelete, "/api/project/"+itoa(p.ID), nil)
		if w := doAuthed(t, s, req, token); w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if got := listProjects(t, s, token); len(got) != 0 {
			t.Errorf("削除後もプロジェクトが残っている: %+v", got)
		}

		req = httptest.NewRequest(http.MethodDelete, "/api/project/"+itoa(p.ID), nil)
		if w := doAuthed(t, s, req, token); w.Code != http.StatusNotFound {
			t.Errorf("2回目のステータスコード = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("URLが不正な場合は400が返ること", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t)
		token := registerAndLogin(t, s, "a@example.com")

		for rawURL, want := range map[string]string{
			"":                           msgYouTubeURLRequired,
			"https://vimeo.com/12345678": msgInvalidYouTubeURL,
		} {
			w := doAuthed(t, s, newCreateRequest(t, rawURL, "t"), token)
			if w.Code != http.StatusBadRequest {
				t.Errorf("%q: ステータスコード = %d, want %d", rawURL, w.Code, http.StatusBadRequest)
			}
			if resp := decodeStatus(t, w); resp.Message != want {
				t.Errorf("%q: message = %q, want %q", rawURL, resp.Message, want)
			}
		}
	})

	t.Run("状態を更新できること", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t)
		token := registerAndLogin(t, s, "a@example.com")
		p := createProject(t, s, token, "https://youtu.be/dQw4w9WgXcQ", "A")

		body := `{"status":"Ready","final_video_url":"https://cdn.example.com/out.mp4"}`
		req := httptest.NewRequest(http.MethodPost, "/api/project/"+itoa(p.ID)+"/status", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if w := doAuthed(t, s, req, token); w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, body = %s", w.Code, w.Body.String())
		}

		got := listProjects(t, s, token)[0]
		if got.Status != model.StatusReady || got.FinalVideoURL == nil || *got.FinalVideoURL != "https://cdn.example.com/out.mp4" {
			t.Errorf("project = %+v", got)
		}

		req = httptest.NewRequest(http.MethodPost, "/api/project/"+itoa(p.ID)+"/status", strings.NewReader(`{"status":"Exploded"}`))
		req.Header.Set("Content-Type", "application/json")
		if w := doAuthed(t, s, req, token); w.Code != http.StatusBadRequest {
			t.Errorf("未知の状態のステータスコード = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()

	s := setupTestServer(t)
	requests := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/projects", nil),
		httptest.NewRequest(http.MethodPost, "/api/projects", nil),
		httptest.NewRequest(http.MethodDelete, "/api/project/1", nil),
	}
	for _, req := range requests {
		for _, token := range []string{"", "garbage"} {
			r := req.Clone(context.Background())
			if w := doAuthed(t, s, r, token); w.Code != http.StatusUnauthorized {
				t.Errorf("%s %s token=%q: ステータスコード = %d, want %d", r.Method, r.URL.Path, token, w.Code, http.StatusUnauthorized)
			}
		}
	}
}

func TestHealthAndCORS(t *testing.T) {
	t.Parallel()

	s := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestParseYouTubeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		wantID  string
		wantErr bool
	}{
		{raw: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", wantID: "dQw4w9WgXcQ"},
		{raw: "https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s", wantID: "dQw4w9WgXcQ"},
		{raw: "https://m.youtube.com/watch?v=dQw4w9WgXcQ", wantID: "dQw4w9WgXcQ"},
		{raw: "https://youtu.be/dQw4w9WgXcQ", wantID: "dQw4w9WgXcQ"},
		{raw: "youtu.be/dQw4w9WgXcQ", wantID: "dQw4w9WgXcQ"},
		{raw: "https://www.youtube.com/shorts/dQw4w9WgXcQ", wantID: "dQw4w9WgXcQ"},
		{raw: "https://www.youtube.com/embed/dQw4w9WgXcQ", wantID: "dQw4w9WgXcQ"},
		{raw: "  https://WWW.YOUTUBE.COM/watch?v=dQw4w9WgXcQ  ", wantID: "dQw4w9WgXcQ"},
		{raw: "https://www.youtube.com/watch?v=short", wantErr: true},
		{raw: "https://www.youtube.com/channel/UC123", wantErr: true},
		{raw: "https://evil.example.com/watch?v=dQw4w9WgXcQ", wantErr: true},
		{raw: "ftp://youtu.be/dQw4w9WgXcQ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			got, err := parseYouTubeURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseYouTubeURL() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseYouTubeURL()でエラーが発生: %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", got.ID, tt.wantID)
			}
		})
	}
}

// itoa はIDをパス用の文字列にする。
func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
