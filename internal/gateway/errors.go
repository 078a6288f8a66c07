package gateway

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// 利用者に表示するメッセージ（ウズベク語）。
const (
	// MsgPasswordMismatch はパスワード確認が一致しないときのメッセージ。
	MsgPasswordMismatch = "Parollar mos kelmadi"
	// MsgLoginFailed はログイン失敗時の既定メッセージ。
	MsgLoginFailed = "Email yoki parol noto'g'ri"
	// MsgRequestFailed はバックエンドがエラーを返したときの既定メッセージ。
	MsgRequestFailed = "Xatolik yuz berdi"
	// MsgServerUnreachable はバックエンドに到達できないときのメッセージ。
	MsgServerUnreachable = "Server bilan bog'lanishda xatolik"
	// MsgCreateProjectFailed はプロジェクト作成失敗時のメッセージ。
	MsgCreateProjectFailed = "Loyiha yaratishda xatolik"
	// MsgYouTubeURLRequired はYouTube URLが空のときのメッセージ。
	MsgYouTubeURLRequired = "YouTube URL kiritilishi shart"
)

var (
	// ErrPasswordMismatch はパスワードと確認用パスワードが一致しないことを表す。
	// この場合リクエストは送信されない。
	ErrPasswordMismatch = errors.New("パスワードと確認用パスワードが一致しません")
	// ErrUnauthorized はバックエンドが401を返し、セッションを破棄したことを表す。
	ErrUnauthorized = errors.New("認証に失敗したためセッションを破棄しました")
	// ErrYouTubeURLRequired はYouTube URLが指定されていないことを表す。
	ErrYouTubeURLRequired = errors.New("YouTube URLが指定されていません")
)

// APIError はバックエンドが処理の失敗を報告したことを表す。
// 2xx以外のステータス、またはstatusフィールドが"error"のレスポンスから生成する。
type APIError struct {
	// StatusCode はHTTPステータスコード。2xxでstatus="error"の場合もある。
	StatusCode int
	// Message は利用者に表示するメッセージ。
	Message string
}

// Error はエラーメッセージを返す。
func (e *APIError) Error() string {
	return fmt.Sprintf("バックエンドがエラーを返しました: status=%d, message=%s", e.StatusCode, e.Message)
}

// UserMessage はerrを利用者向けのメッセージに変換する。
// バックエンドのメッセージがあればそれを、通信失敗なら接続エラーを、それ以外はfallbackを返す。
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	switch {
	case errors.Is(err, ErrPasswordMismatch):
		return MsgPasswordMismatch
	case errors.Is(err, ErrYouTubeURLRequired):
		return MsgYouTubeURLRequired
	}

	var (
		urlErr *url.Error
		netErr net.Error
	)
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return MsgServerUnreachable
	}
	return fallback
}
