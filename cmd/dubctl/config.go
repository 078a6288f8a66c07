package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/dubbing/internal/gateway"
	"gopkg.in/yaml.v3"
)

const (
	// appName は設定ディレクトリ名。
	appName = "dubctl"
	// defaultAPIURL はAPI URLが未設定のときに接続するバックエンド。
	defaultAPIURL = "http://localhost:8000" + gateway.DefaultAPIPrefix
)

// config はCLIの設定ファイルの内容。
type config struct {
	// APIURL はバックエンドAPIのURL（APIプレフィックスを含む）。
	APIURL string `yaml:"api_url"`
	// CredentialsFile はトークンとユーザー情報を保存するファイル。
	CredentialsFile string `yaml:"credentials_file"`
}

// defaultConfigDir は設定ファイルと資格情報を置くディレクトリを返す。
func defaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("設定ディレクトリの取得に失敗: %w", err)
	}
	return filepath.Join(dir, appName), nil
}

// loadConfig はpathの設定ファイルを読み込む。
// ファイルが無い場合は既定値を返し、未設定の項目はconfigDirを基準に補う。
func loadConfig(path, configDir string) (*config, error) {
	cfg := &config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイル %s のパースに失敗: %w", path, err)
		}
	}

	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = filepath.Join(configDir, "credentials.json")
	}
	return cfg, nil
}

// save は設定をpathに書き込む。
func (c *config) save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("設定のシリアライズに失敗: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("設定ディレクトリの作成に失敗: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("設定ファイルの書き込みに失敗: %w", err)
	}
	return nil
}
