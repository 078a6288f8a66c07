package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/nao1215/dubbing/pkg/httpclient"
	"github.com/nao1215/dubbing/pkg/model"
	"github.com/nao1215/dubbing/pkg/session"
)

// DefaultProjectTitle はタイトル未入力時のプロジェクト名。
const DefaultProjectTitle = "Yangi loyiha"

// RegisterInput はユーザー登録フォームの入力値。
type RegisterInput struct {
	// FullName は表示名（任意）。
	FullName string
	// Username はメールアドレス。
	Username string
	// Password はパスワード。
	Password string
	// ConfirmPassword は確認用パスワード。
	ConfirmPassword string
}

// Login は資格情報でログインし、トークンとユーザー情報を保存してダッシュボードへ遷移する。
// ログイン画面はまだ認証されていないため、401処理のパイプラインは通さない。
func (c *Client) Login(ctx context.Context, username, password string) (*model.User, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var resp model.LoginResponse
	if err := c.public.PostForm(ctx, "/login", form, &resp); err != nil {
		return nil, toAPIError(err)
	}
	if resp.Status == model.ResponseStatusError || resp.AccessToken == "" {
		return nil, &APIError{StatusCode: http.StatusOK, Message: resp.Message}
	}

	if err := c.storage.Set(session.KeyToken, resp.AccessToken); err != nil {
		return nil, fmt.Errorf("トークンの保存に失敗: %w", err)
	}
	user := resp.User
	if user == nil {
		user = &model.User{Email: username}
	}
	encoded, err := model.EncodeUser(*user)
	if err != nil {
		return nil, err
	}
	if err := c.storage.Set(session.KeyUser, encoded); err != nil {
		return nil, fmt.Errorf("ユーザー情報の保存に失敗: %w", err)
	}

	c.navigator.Navigate(RouteDashboard)
	return user, nil
}

// Register はユーザー登録を行い、成功したら登録完了表示付きのログイン画面へ遷移する。
// パスワードと確認用パスワードが一致しない場合はリクエストを送らずErrPasswordMismatchを返す。
func (c *Client) Register(ctx context.Context, in RegisterInput) error {
	if in.Password != in.ConfirmPassword {
		return ErrPasswordMismatch
	}

	form := url.Values{}
	form.Set("full_name", in.FullName)
	form.Set("username", in.Username)
	form.Set("password", in.Password)
	form.Set("confirm_password", in.ConfirmPassword)

	var resp model.StatusResponse
	if err := c.public.PostForm(ctx, "/register", form, &resp); err != nil {
		return toAPIError(err)
	}
	if resp.Status == model.ResponseStatusError {
		return &APIError{StatusCode: http.StatusOK, Message: resp.Message}
	}

	c.navigator.Navigate(RouteLoginRegistered)
	return nil
}

// Logout は保存済みのトークンとユーザー情報を破棄してログイン画面へ遷移する。
// バックエンドへの通信は行わない。
func (c *Client) Logout() error {
	if err := c.storage.Delete(session.KeyToken, session.KeyUser); err != nil {
		return fmt.Errorf("セッションの破棄に失敗: %w", err)
	}
	c.navigator.Navigate(RouteLogin)
	return nil
}

// Authenticated はトークンが保存されているかどうかを返す。
func (c *Client) Authenticated() (bool, error) {
	token, ok, err := c.storage.Get(session.KeyToken)
	if err != nil {
		return false, fmt.Errorf("トークンの読み込みに失敗: %w", err)
	}
	return ok && token != "", nil
}

// CurrentUser は保存済みのユーザー情報を返す。保存されていなければnilを返す。
func (c *Client) CurrentUser() (*model.User, error) {
	raw, ok, err := c.storage.Get(session.KeyUser)
	if err != nil {
		return nil, fmt.Errorf("ユーザー情報の読み込みに失敗: %w", err)
	}
	if !ok || raw == "" || raw == "null" {
		return nil, nil
	}
	return model.DecodeUser(raw)
}

// ListProjects はログイン中のユーザーのプロジェクト一覧を返す。
// dataが無い場合は空のスライスを返す。
func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	var resp model.ProjectListResponse
	if err := c.api.GetJSON(ctx, "/projects", &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []model.Project{}, nil
	}
	return resp.Data, nil
}

// CreateProject はYouTube URLからダビングプロジェクトを作成する。
// titleが空の場合はDefaultProjectTitleを使う。
func (c *Client) CreateProject(ctx context.Context, youtubeURL, title string) (*model.Project, error) {
	youtubeURL = strings.TrimSpace(youtubeURL)
	if youtubeURL == "" {
		return nil, ErrYouTubeURLRequired
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultProjectTitle
	}

	fields := []httpclient.FormField{
		{Name: "youtube_url", Value: youtubeURL},
		{Name: "title", Value: title},
	}
	var raw json.RawMessage
	if err := c.api.PostMultipart(ctx, "/projects", fields, &raw); err != nil {
		return nil, err
	}
	return decodeProject(raw)
}

// DeleteProject はプロジェクトを削除する。
func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.api.Delete(ctx, fmt.Sprintf("/project/%d", id))
}

// StatusUpdate はプロジェクトの状態更新の内容。
type StatusUpdate struct {
	// Status は新しい状態。
	Status model.Status `json:"status"`
	// FinalVideoURL はダビング済み動画のURL。
	FinalVideoURL string `json:"final_video_url,omitempty"`
	// ErrorMessage はError状態のときのメッセージ。
	ErrorMessage string `json:"error_message,omitempty"`
}

// UpdateProjectStatus はプロジェクトの状態を書き換える。
// 状態更新APIを持つ開発用バックエンドでのみ利用できる。
func (c *Client) UpdateProjectStatus(ctx context.Context, id int64, update StatusUpdate) (*model.Project, error) {
	var raw json.RawMessage
	if err := c.api.PostJSON(ctx, fmt.Sprintf("/project/%d/status", id), update, &raw); err != nil {
		return nil, err
	}
	return decodeProject(raw)
}

// decodeProject は作成APIのレスポンスからプロジェクトを取り出す。
// {"data": {...}} で包まれた形式とプロジェクトそのものの形式の両方を受け付ける。
// ボディが空の場合はnilを返す。
func decodeProject(raw json.RawMessage) (*model.Project, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 && !bytes.Equal(envelope.Data, []byte("null")) {
		raw = envelope.Data
	}

	var p model.Project
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("作成したプロジェクトのデシリアライズに失敗: %w", err)
	}
	return &p, nil
}

// toAPIError はステータスエラーのボディからバックエンドのメッセージを取り出してAPIErrorに変換する。
// 通信エラーなどHTTPError以外はそのまま返す。
func toAPIError(err error) error {
	var httpErr *httpclient.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}

	var body model.StatusResponse
	_ = json.Unmarshal(httpErr.Body, &body)
	return &APIError{StatusCode: httpErr.StatusCode, Message: body.Message}
}
