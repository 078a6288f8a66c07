package session

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/dubbing/pkg/migration"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore はブラウザセッションごとの資格情報をSQLiteに保存する。
// 各ブラウザはセッションIDで識別され、For()でそのブラウザ専用のStorageを取得する。
type SQLiteStore struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// OpenSQLite はdsnのSQLiteデータベースを開き、スキーマを適用する。
// dsnには ":memory:" またはファイルパスを指定する。
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	// SQLiteは単一ライターのため接続を1本に絞る（インメモリDBの共有にも必要）
	db.SetMaxOpenConns(1)

	if _, err := migration.Run(ctx, db, migrationsFS, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close はデータベース接続を閉じる。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// NewID は新しいセッションIDを発行する。
func (s *SQLiteStore) NewID() string {
	return uuid.NewString()
}

// ValidID はidがNewIDで発行された形式かどうかを判定する。
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// For はセッションIDに紐づくStorageを返す。
func (s *SQLiteStore) For(sessionID string) Storage {
	return &sqliteStorage{db: s.db, sessionID: sessionID}
}

// PurgeBefore はcutoffより前に更新されたセッションの値を削除し、削除件数を返す。
func (s *SQLiteStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE updated_at < ?`,
		cutoff.UTC().Format(time.DateTime),
	)
	if err != nil {
		return 0, fmt.Errorf("古いセッションの削除に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return n, nil
}

// sqliteStorage は1つのブラウザセッションに限定したStorage実装。
type sqliteStorage struct {
	db        *sql.DB
	sessionID string
}

// Get はキーに対応する値を返す。
func (s *sqliteStorage) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM session_values WHERE session_id = ? AND key = ?`,
		s.sessionID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("セッション値の取得に失敗: %w", err)
	}
	return value, true, nil
}

// Set はキーに値を保存する。
func (s *sqliteStorage) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO session_values (session_id, key, value, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT (session_id, key)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.sessionID, key, value,
	)
	if err != nil {
		return fmt.Errorf("セッション値の保存に失敗: %w", err)
	}
	return nil
}

// Delete は指定したキーを削除する。
func (s *sqliteStorage) Delete(keys ...string) error {
	for _, k := range keys {
		if _, err := s.db.Exec(
			`DELETE FROM session_values WHERE session_id = ? AND key = ?`,
			s.sessionID, k,
		); err != nil {
			return fmt.Errorf("セッション値の削除に失敗: %w", err)
		}
	}
	return nil
}
