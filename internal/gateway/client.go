package gateway

import (
	"fmt"
	"log"
	"net/http"

	"github.com/nao1215/dubbing/pkg/httpclient"
	"github.com/nao1215/dubbing/pkg/session"
)

// DefaultAPIPrefix はバックエンドAPIの共通パスプレフィックス。
const DefaultAPIPrefix = "/api"

// Client はバックエンドAPIへの認証付きアクセスを行うクライアント。
// 注入されたセッションストレージとNavigator以外の状態を持たない。
type Client struct {
	// api は認証ヘッダー付与と401処理のパイプラインを持つHTTPクライアント。
	api *httpclient.Client
	// public はログイン前の画面が使うパイプライン無しのHTTPクライアント。
	public *httpclient.Client
	// storage はセッション資格情報の保存先。
	storage session.Storage
	// navigator は画面遷移の実行先。
	navigator Navigator
}

// New は新しいゲートウェイクライアントを生成する。
// baseURLにはAPIプレフィックスを含めたURL（例: "http://localhost:8000/api"）を指定する。
// optsは認証ステージの後ろに追加される。
func New(baseURL string, storage session.Storage, navigator Navigator, opts ...httpclient.Option) *Client {
	pipeline := []httpclient.Option{
		httpclient.WithRequestStage(BearerAuth(storage)),
		httpclient.WithResponseStage(ExpireOnUnauthorized(storage, navigator)),
	}
	pipeline = append(pipeline, opts...)

	return &Client{
		api:       httpclient.New(baseURL, pipeline...),
		public:    httpclient.New(baseURL, opts...),
		storage:   storage,
		navigator: navigator,
	}
}

// BearerAuth はセッションストレージのトークンをAuthorizationヘッダーに付与するリクエスト段を返す。
// トークンが無い（または空の）場合はヘッダーを付けずに送信する。
func BearerAuth(storage session.Storage) httpclient.RequestStage {
	return func(req *http.Request) error {
		token, ok, err := storage.Get(session.KeyToken)
		if err != nil {
			return fmt.Errorf("トークンの読み込みに失敗: %w", err)
		}
		if ok && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return nil
	}
}

// ExpireOnUnauthorized は401を受け取ったときに資格情報を破棄してログイン画面へ遷移させるレスポンス段を返す。
// 401の場合はErrUnauthorizedで包んだエラーを、それ以外は受け取った結果をそのまま返す。
// リトライは行わない。
func ExpireOnUnauthorized(storage session.Storage, navigator Navigator) httpclient.ResponseStage {
	return func(resp *http.Response, err error) (*http.Response, error) {
		if !httpclient.IsStatus(err, http.StatusUnauthorized) {
			return resp, err
		}

		log.Printf("[Gateway] 401を受信したためセッションを破棄します: %v", err)
		if delErr := storage.Delete(session.KeyToken, session.KeyUser); delErr != nil {
			log.Printf("[Gateway] セッションの破棄に失敗: %v", delErr)
		}
		navigator.Navigate(RouteLogin)
		return resp, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
}
