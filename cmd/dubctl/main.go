// dubctl はダビングバックエンドをターミナルから操作するCLI。
// Webフロントエンドと同じゲートウェイクライアントを使い、資格情報はファイルに保存する。
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
