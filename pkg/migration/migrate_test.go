package migration

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

// openTestDB はテスト用のインメモリSQLiteを開く。
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDB接続に失敗: %v", err)
	}
	// インメモリDBは接続ごとに別物になるため1接続に固定する
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

// testFS はテスト用のマイグレーションファイル群。
var testFS = fstest.MapFS{
	"migrations/000002_add_index.up.sql":      {Data: []byte(`CREATE INDEX idx_items_name ON items(name);`)},
	"migrations/000001_create_items.up.sql":   {Data: []byte(`CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL);`)},
	"migrations/000001_create_items.down.sql": {Data: []byte(`DROP TABLE items;`)},
	"migrations/README.md":                    {Data: []byte(`ignored`)},
	"migrations/bad_name.up.sql":              {Data: []byte(`ignored`)},
}

// TestCollect はマイグレーションファイルの収集を検証する。
func TestCollect(t *testing.T) {
	t.Parallel()

	files, err := Collect(testFS, "migrations")
	if err != nil {
		t.Fatalf("Collect()でエラーが発生: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("len(files) = %d, want 2", len(files))
	}
	if files[0].Version != 1 || files[0].Name != "create_items" {
		t.Errorf("files[0] = %+v", files[0])
	}
	if files[1].Version != 2 || files[1].Path != "migrations/000002_add_index.up.sql" {
		t.Errorf("files[1] = %+v", files[1])
	}
}

// TestRun はマイグレーションの適用を検証する。
func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("未適用のマイグレーションが順番に適用されること", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		done, err := Run(context.Background(), db, testFS, "migrations")
		if err != nil {
			t.Fatalf("Run()でエラーが発生: %v", err)
		}
		if len(done) != 2 || done[0] != 1 || done[1] != 2 {
			t.Errorf("done = %v, want [1 2]", done)
		}
		if _, err := db.Exec(`INSERT INTO items (name) VALUES ('a')`); err != nil {
			t.Errorf("テーブルが作成されていない: %v", err)
		}
	})

	t.Run("2回目の実行では何も適用されないこと", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		if _, err := Run(context.Background(), db, testFS, "migrations"); err != nil {
			t.Fatalf("1回目のRun()でエラーが発生: %v", err)
		}
		done, err := Run(context.Background(), db, testFS, "migrations")
		if err != nil {
			t.Fatalf("2回目のRun()でエラーが発生: %v", err)
		}
		if len(done) != 0 {
			t.Errorf("done = %v, want empty", done)
		}
	})

	t.Run("不正なSQLでエラーが返りバージョンが記録されないこと", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		broken := fstest.MapFS{
			"m/000001_broken.up.sql": {Data: []byte(`CREATE TABLE (`)},
		}
		if _, err := Run(context.Background(), db, broken, "m"); err == nil {
			t.Fatal("Run()がエラーを返すべきだが、nilが返った")
		}
		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count); err != nil {
			t.Fatalf("schema_migrationsの取得に失敗: %v", err)
		}
		if count != 0 {
			t.Errorf("count = %d, want 0", count)
		}
	})

	t.Run("存在しないディレクトリでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		db := openTestDB(t)
		if _, err := Run(context.Background(), db, testFS, "missing"); err == nil {
			t.Fatal("Run()がエラーを返すべきだが、nilが返った")
		}
	})
}
