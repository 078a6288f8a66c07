package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// 永続化するキー。ブラウザ版のlocalStorageのキー名と揃えている。
const (
	// KeyToken はBearerトークンを保存するキー。
	KeyToken = "token"
	// KeyUser はJSONシリアライズしたユーザー情報を保存するキー。
	KeyUser = "user"
)

// Storage はセッション資格情報を永続化するキー・バリューストア。
// 認証クライアントはこのインターフェースだけに依存するため、テストダブルに差し替えられる。
type Storage interface {
	// Get はキーに対応する値を返す。存在しない場合はokがfalseになる。
	Get(key string) (value string, ok bool, err error)
	// Set はキーに値を保存する。
	Set(key, value string) error
	// Delete は指定したキーを削除する。存在しないキーは無視する。
	Delete(keys ...string) error
}

// MemoryStorage はプロセス内メモリに値を保持するStorage実装。
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage は空のMemoryStorageを生成する。
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

// Get はキーに対応する値を返す。
func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set はキーに値を保存する。
func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Delete は指定したキーを削除する。
func (m *MemoryStorage) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

// FileStorage はJSONファイルに値を保存するStorage実装。
// プロセスを再起動しても資格情報が残る。CLIから使用する。
type FileStorage struct {
	mu   sync.Mutex
	path string
}

// NewFileStorage はpathのJSONファイルを読み書きするFileStorageを生成する。
// ファイルは最初の書き込み時に作成する。
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path は保存先ファイルのパスを返す。
func (f *FileStorage) Path() string {
	return f.path
}

// Get はキーに対応する値を返す。
func (f *FileStorage) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set はキーに値を保存する。
func (f *FileStorage) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = value
	return f.save(values)
}

// Delete は指定したキーを削除する。
func (f *FileStorage) Delete(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(values, k)
	}
	return f.save(values)
}

// load はファイルから全ての値を読み込む。ファイルが無い場合は空のマップを返す。
func (f *FileStorage) load() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("セッションファイルの読み込みに失敗: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("セッションファイルのパースに失敗: %w", err)
	}
	return values, nil
}

// save は全ての値をファイルに書き込む。トークンを含むため0600で作成する。
func (f *FileStorage) save(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("セッションディレクトリの作成に失敗: %w", err)
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("セッションのシリアライズに失敗: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("セッションファイルの書き込みに失敗: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("セッションファイルの置き換えに失敗: %w", err)
	}
	return nil
}
