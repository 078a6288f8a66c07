package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/nao1215/dubbing/internal/gateway"
	"github.com/nao1215/dubbing/pkg/session"
	"github.com/spf13/cobra"
)

var version = "dev"

// errSessionExpired はバックエンドが保存済みのトークンを拒否したことを表す。
var errSessionExpired = errors.New("session expired, run `dubctl login` to sign in again")

// app はサブコマンドが共有する実行時の状態。
type app struct {
	// configPath は--configで指定された設定ファイル。
	configPath string
	// apiURL は--api-urlで指定されたバックエンドAPIのURL。
	apiURL string
	// cfg は読み込んだ設定。
	cfg *config
	// storage は資格情報の保存先。
	storage *session.FileStorage
	// expired は資格情報破棄の案内を1度だけ出すためのもの。
	expired sync.Once

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "dubctl",
		Short: "dubctl - command line client for the Uzbek dubbing service",
		Long: `dubctl signs in to the dubbing backend and manages dubbing projects.

Credentials are stored in a file under the config directory and attached to
every request. When the backend rejects the stored token, the credentials are
removed and you are asked to log in again.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/dubctl/config.yaml)")
	cmd.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "Backend API URL, overrides the config file")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
		return a.init(cmd)
	}

	cmd.AddCommand(newLoginCommand(a))
	cmd.AddCommand(newRegisterCommand(a))
	cmd.AddCommand(newLogoutCommand(a))
	cmd.AddCommand(newWhoamiCommand(a))
	cmd.AddCommand(newProjectsCommand(a))
	cmd.AddCommand(newConfigCommand(a))

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

// init は設定を読み込み、入出力と資格情報の保存先を準備する。
func (a *app) init(cmd *cobra.Command) error {
	a.in = cmd.InOrStdin()
	a.out = cmd.OutOrStdout()
	a.errOut = cmd.ErrOrStderr()

	configDir := filepath.Dir(a.configPath)
	if a.configPath == "" {
		dir, err := defaultConfigDir()
		if err != nil {
			return err
		}
		configDir = dir
		a.configPath = filepath.Join(dir, "config.yaml")
	}

	cfg, err := loadConfig(a.configPath, configDir)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.APIURL = a.apiURL
	}
	a.cfg = cfg
	a.storage = session.NewFileStorage(cfg.CredentialsFile)

	slog.Debug("loaded config", "path", a.configPath, "api_url", cfg.APIURL, "credentials", a.storage.Path())
	return nil
}

// client はゲートウェイクライアントを生成する。
// 401でセッションが破棄された場合は再ログインを促す。
func (a *app) client() *gateway.Client {
	return gateway.New(a.cfg.APIURL, a.storage, a.navigator())
}

// navigator は画面遷移の要求をターミナル向けの案内に置き換える。
// 並列リクエストが同時に401を受け取っても案内は1度だけ出す。
func (a *app) navigator() gateway.Navigator {
	return gateway.NavigatorFunc(func(path string) {
		slog.Debug("navigate", "path", path)
		if path != gateway.RouteLogin {
			return
		}
		a.expired.Do(func() {
			fmt.Fprintf(a.errOut, "Stored credentials were rejected and removed from %s\n", a.storage.Path())
		})
	})
}

// userError はゲートウェイのエラーを利用者向けのエラーに変換する。
// 資格情報が破棄された場合はerrSessionExpiredを返す。
func userError(err error, fallback string) error {
	if errors.Is(err, gateway.ErrUnauthorized) {
		return errSessionExpired
	}
	return errors.New(gateway.UserMessage(err, fallback))
}

// silentClient は遷移の案内を出さないゲートウェイクライアントを生成する。
func (a *app) silentClient() *gateway.Client {
	return gateway.New(a.cfg.APIURL, a.storage, gateway.NavigatorFunc(func(path string) {
		slog.Debug("navigate", "path", path)
	}))
}
