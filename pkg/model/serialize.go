package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EncodeUser はセッションストレージに保存するためにユーザー情報をJSON文字列にする。
func EncodeUser(u User) (string, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("ユーザー情報のシリアライズに失敗: %w", err)
	}
	return string(data), nil
}

// DecodeUser はセッションストレージに保存されたJSON文字列からユーザー情報を復元する。
func DecodeUser(s string) (*User, error) {
	var u User
	if err := json.Unmarshal([]byte(s), &u); err != nil {
		return nil, fmt.Errorf("ユーザー情報のデシリアライズに失敗: %w", err)
	}
	return &u, nil
}

// backendTimeLayouts はバックエンドが返しうる日時フォーマット。
var backendTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	time.DateTime,
}

// UnmarshalJSON はタイムゾーン無しの日時も受け付けるためにProjectの復元を拡張する。
func (p *Project) UnmarshalJSON(data []byte) error {
	type alias Project
	aux := struct {
		*alias
		ID        json.RawMessage `json:"id"`
		CreatedAt string          `json:"created_at"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.ID) > 0 {
		id, err := parseID(aux.ID)
		if err != nil {
			return err
		}
		p.ID = id
	}

	if aux.CreatedAt == "" {
		return nil
	}
	for _, layout := range backendTimeLayouts {
		if t, err := time.Parse(layout, aux.CreatedAt); err == nil {
			p.CreatedAt = t
			return nil
		}
	}
	return fmt.Errorf("created_atのパースに失敗: %q", aux.CreatedAt)
}

// parseID は数値または数値文字列のIDを受け付ける。
func parseID(raw json.RawMessage) (int64, error) {
	s := strings.Trim(string(raw), `"`)
	if s == "null" {
		return 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.New("idが数値ではありません: " + string(raw))
	}
	return id, nil
}
