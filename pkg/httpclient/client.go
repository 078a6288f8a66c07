package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultTimeout はHTTPクライアントのデフォルトタイムアウト。
const defaultTimeout = 30 * time.Second

// RequestStage は送信前のリクエストを加工するパイプライン段。
// エラーを返した場合、リクエストは送信されない。
type RequestStage func(req *http.Request) error

// ResponseStage は受信後のレスポンスを検査するパイプライン段。
// 前段の結果（レスポンスまたはエラー）を受け取り、次段へ渡す結果を返す。
type ResponseStage func(resp *http.Response, err error) (*http.Response, error)

// HTTPError は2xx以外のステータスコードを受信したことを表す。
type HTTPError struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Method はリクエストのHTTPメソッド。
	Method string
	// Path はリクエストパス。
	Path string
	// Body はレスポンスボディ。
	Body []byte
}

// Error はエラーメッセージを返す。
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTPエラー: status=%d, method=%s, path=%s, body=%s", e.StatusCode, e.Method, e.Path, string(e.Body))
}

// IsStatus はerrが指定ステータスの*HTTPErrorかどうかを判定する。
func IsStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == status
}

// Client はバックエンドAPI呼び出し用のHTTPクライアント。
// リクエスト段とレスポンス段のパイプラインを登録順に適用する。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先のベースURL。
	baseURL string
	// requestStages は送信前に適用するリクエスト段。
	requestStages []RequestStage
	// responseStages は受信後に適用するレスポンス段。
	responseStages []ResponseStage
}

// Option はClientの設定を変更する関数。
type Option func(*Client)

// WithRequestStage はリクエスト段をパイプラインの末尾に追加する。
func WithRequestStage(stage RequestStage) Option {
	return func(c *Client) {
		c.requestStages = append(c.requestStages, stage)
	}
}

// WithResponseStage はレスポンス段をパイプラインの末尾に追加する。
func WithResponseStage(stage ResponseStage) Option {
	return func(c *Client) {
		c.responseStages = append(c.responseStages, stage)
	}
}

// WithHTTPClient は内部で使用する*http.Clientを差し替える。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New は新しいHTTPクライアントを生成する。
// baseURLには接続先のベースURL（例: "http://localhost:8000/api"）を指定する。
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostJSON は指定パスにJSONボディでPOSTリクエストを送信する。
// レスポンスボディをresultにデシリアライズする。
func (c *Client) PostJSON(ctx context.Context, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}
	return c.doJSON(ctx, http.MethodPost, path, bodyReader, "application/json", result)
}

// GetJSON は指定パスにGETリクエストを送信する。
// レスポンスボディをresultにデシリアライズする。
func (c *Client) GetJSON(ctx context.Context, path string, result any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, "", result)
}

// PostForm は指定パスにフォームエンコードのボディでPOSTリクエストを送信する。
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, result any) error {
	return c.doJSON(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", result)
}

// PostMultipart は指定パスにマルチパートフォームでPOSTリクエストを送信する。
// fieldsは送信順を保つためスライスで受け取る。
func (c *Client) PostMultipart(ctx context.Context, path string, fields []FormField, result any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := mw.WriteField(f.Name, f.Value); err != nil {
			return fmt.Errorf("マルチパートフィールドの書き込みに失敗: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("マルチパートボディの生成に失敗: %w", err)
	}
	return c.doJSON(ctx, http.MethodPost, path, &buf, mw.FormDataContentType(), result)
}

// Delete は指定パスにDELETEリクエストを送信する。
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, "", nil)
}

// FormField はマルチパートフォームの1フィールド。
type FormField struct {
	// Name はフィールド名。
	Name string
	// Value はフィールド値。
	Value string
}

// doJSON はリクエストを実行し、JSONレスポンスをresultにデシリアライズする共通処理。
func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, contentType string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if result == nil {
		return nil
	}
	// 204や空ボディの成功レスポンスはresultを変更せずに成功とする
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
	}
	return nil
}

// Do はリクエスト段を適用してリクエストを送信し、レスポンス段を適用した結果を返す。
// 2xx以外のレスポンスはボディを読み取ったうえで*HTTPErrorに変換してからレスポンス段に渡す。
// エラーが返らない場合、呼び出し側がレスポンスボディを閉じる必要がある。
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	for _, stage := range c.requestStages {
		if err := stage(req); err != nil {
			return nil, fmt.Errorf("リクエストの前処理に失敗: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("HTTPリクエストの送信に失敗: %w", err)
		resp = nil
	} else if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		err = &HTTPError{
			StatusCode: resp.StatusCode,
			Method:     req.Method,
			Path:       req.URL.Path,
			Body:       respBody,
		}
		resp = nil
	}

	for _, stage := range c.responseStages {
		resp, err = stage(resp, err)
	}
	if resp == nil && err == nil {
		return nil, errors.New("レスポンス段がレスポンスとエラーの両方を破棄しました")
	}
	return resp, err
}
