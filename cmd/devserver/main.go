// 開発用バックエンドのエントリポイント。
// ログイン・ユーザー登録・プロジェクト管理のAPIをSQLiteで提供する。
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/nao1215/dubbing/internal/devserver"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf(".envの読み込みに失敗: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	server, err := devserver.NewServer(port)
	if err != nil {
		log.Fatalf("開発用バックエンドの初期化に失敗: %v", err)
	}
	defer server.Close()

	log.Printf("開発用バックエンドを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("開発用バックエンドの起動に失敗: %v", err)
	}
}
