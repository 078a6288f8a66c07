package model

import "time"

// Status はダビングプロジェクトのライフサイクル状態を表す。
// 状態遷移はバックエンドのみが行い、クライアントは表示するだけ。
type Status string

const (
	// StatusReady はダビング済み動画が完成したことを表す。
	StatusReady Status = "Ready"
	// StatusProcessing は動画の取得・前処理中であることを表す。
	StatusProcessing Status = "Processing"
	// StatusTranscribing は文字起こし中であることを表す。
	StatusTranscribing Status = "Transcribing"
	// StatusTranslating は翻訳中であることを表す。
	StatusTranslating Status = "Translating"
	// StatusDubbing は音声合成・合成動画の生成中であることを表す。
	StatusDubbing Status = "Dubbing"
	// StatusError はパイプラインが失敗したことを表す。
	StatusError Status = "Error"
)

// neutralColor は未知の状態に使う表示色。
const neutralColor = "#64748b"

// statusColors は状態ごとのバッジ表示色。
var statusColors = map[Status]string{
	StatusReady:        "#10b981",
	StatusProcessing:   "#f59e0b",
	StatusTranscribing: "#3b82f6",
	StatusTranslating:  "#8b5cf6",
	StatusDubbing:      "#ec4899",
	StatusError:        "#ef4444",
}

// Statuses は既知の状態を表示順に返す。
func Statuses() []Status {
	return []Status{StatusReady, StatusProcessing, StatusTranscribing, StatusTranslating, StatusDubbing, StatusError}
}

// String は状態の文字列表現を返す。
func (s Status) String() string {
	return string(s)
}

// Known は既知の状態かどうかを返す。
func (s Status) Known() bool {
	_, ok := statusColors[s]
	return ok
}

// Color はバッジの表示色を返す。未知の状態には中立色を返す。
func (s Status) Color() string {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return neutralColor
}

// InProgress はパイプラインが進行中の状態かどうかを返す。
func (s Status) InProgress() bool {
	switch s {
	case StatusProcessing, StatusTranscribing, StatusTranslating, StatusDubbing:
		return true
	}
	return false
}

// User はログイン中のユーザー情報。
type User struct {
	// ID はユーザーの識別子。
	ID int64 `json:"id"`
	// Email はメールアドレス（ログインID）。
	Email string `json:"email"`
	// FullName は表示名。未設定の場合はnil。
	FullName *string `json:"full_name"`
}

// DisplayName は表示名があれば表示名を、無ければメールアドレスを返す。
func (u User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Email
}

// Project はダビングプロジェクト。クライアントから見ると読み取り専用。
type Project struct {
	// ID はプロジェクトの識別子。
	ID int64 `json:"id"`
	// Title はプロジェクト名。
	Title string `json:"title"`
	// Status はライフサイクル状態。
	Status Status `json:"status"`
	// Thumbnail はサムネイル画像のURL。
	Thumbnail *string `json:"thumbnail"`
	// VideoURL は元動画のURL。
	VideoURL *string `json:"video_url"`
	// FinalVideoURL はダビング済み動画のURL。
	FinalVideoURL *string `json:"final_video_url"`
	// Quality は品質設定。
	Quality string `json:"quality"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"created_at"`
	// ErrorMessage はError状態のときのエラーメッセージ。
	// Error状態でもまだ設定されていないことがある。
	ErrorMessage *string `json:"error_message"`
}

// ResponseStatusError はバックエンドがエラーを示すときのstatusフィールドの値。
const ResponseStatusError = "error"

// LoginResponse は POST /login のレスポンス。
type LoginResponse struct {
	// Status は "success" または "error"。
	Status string `json:"status"`
	// Message はエラー時のメッセージ。
	Message string `json:"message,omitempty"`
	// AccessToken はBearerトークン。
	AccessToken string `json:"access_token"`
	// User はログインしたユーザー。
	User *User `json:"user"`
}

// StatusResponse は POST /register などの汎用レスポンス。
type StatusResponse struct {
	// Status は "success" または "error"。
	Status string `json:"status"`
	// Message は補足メッセージ。
	Message string `json:"message,omitempty"`
}

// ProjectListResponse は GET /projects のレスポンス。
type ProjectListResponse struct {
	// Data はプロジェクト一覧。
	Data []Project `json:"data"`
}
