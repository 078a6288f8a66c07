package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// credentials はログイン・登録フォームの入力値。
type credentials struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// runForm はフォームを入出力に接続して実行する。端末でない入力ではアクセシブルモードにする。
func runForm(form *huh.Form, in io.Reader, out io.Writer) error {
	form = form.WithInput(in).WithOutput(out)
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}
	if err := form.Run(); err != nil {
		return fmt.Errorf("入力の受け付けに失敗: %w", err)
	}
	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// promptLogin は未入力の項目だけを問い合わせる。
func promptLogin(c *credentials, in io.Reader, out io.Writer) error {
	var fields []huh.Field
	if c.Email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("email@example.com").
			Value(&c.Email).
			Validate(required("email")))
	}
	if c.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&c.Password).
			Validate(required("password")))
	}
	if len(fields) == 0 {
		return nil
	}
	return runForm(huh.NewForm(huh.NewGroup(fields...)), in, out)
}

// promptRegister は未入力の項目だけを問い合わせる。
func promptRegister(c *credentials, in io.Reader, out io.Writer) error {
	var fields []huh.Field
	if c.Email == "" {
		fields = append(fields,
			huh.NewInput().
				Title("Full name").
				Description("Optional, shown on the dashboard").
				Value(&c.FullName),
			huh.NewInput().
				Title("Email").
				Placeholder("email@example.com").
				Value(&c.Email).
				Validate(required("email")),
		)
	}
	if c.Password == "" {
		fields = append(fields,
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&c.Password).
				Validate(required("password")),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&c.ConfirmPassword),
		)
	}
	if len(fields) == 0 {
		return nil
	}
	return runForm(huh.NewForm(huh.NewGroup(fields...)), in, out)
}

// readPasswordLine は--password-stdin用に入力の1行目をパスワードとして読む。
func readPasswordLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("パスワードの読み込みに失敗: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is empty")
	}
	return password, nil
}

// confirmDelete は削除の確認を求める。端末でない入力では確認できないためfalseを返す。
func confirmDelete(in io.Reader, out io.Writer, count int) bool {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}

	var confirmed bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %d project(s)?", count)).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	).WithInput(in).WithOutput(out).Run()
	if err != nil {
		return false
	}
	return confirmed
}
