// Webフロントエンドのエントリポイント。
// 画面をサーバー側で描画し、ブラウザごとのセッションでバックエンドAPIを呼び出す。
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/nao1215/dubbing/internal/web"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf(".envの読み込みに失敗: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	server, err := web.NewServer(port)
	if err != nil {
		log.Fatalf("Webサーバーの初期化に失敗: %v", err)
	}
	defer server.Close()

	log.Printf("Webサーバーを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("Webサーバーの起動に失敗: %v", err)
	}
}
