package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/dubbing/pkg/model"
)

// ErrEmailTaken はメールアドレスが既に登録されていることを表す。
var ErrEmailTaken = errors.New("メールアドレスは既に登録されています")

// userRow はusersテーブルの1行。
type userRow struct {
	// ID はユーザーの識別子。
	ID int64
	// Email はメールアドレス。
	Email string
	// FullName は表示名。
	FullName sql.NullString
	// PasswordHash はbcryptのハッシュ値。
	PasswordHash string
}

// toModel はAPIレスポンス用のユーザーに変換する。
func (u userRow) toModel() model.User {
	return model.User{
		ID:       u.ID,
		Email:    u.Email,
		FullName: nullString(u.FullName),
	}
}

// createUserParams はユーザー作成の引数。
type createUserParams struct {
	Email        string
	FullName     string
	PasswordHash string
}

// createProjectParams はプロジェクト作成の引数。
type createProjectParams struct {
	UserID    int64
	Title     string
	Status    model.Status
	Thumbnail string
	VideoURL  string
	Quality   string
}

// queries はdevserverのSQLをまとめたクエリ実行オブジェクト。
type queries struct {
	db *sql.DB
	// now は現在時刻を返す。テストで差し替える。
	now func() time.Time
}

// newQueries は新しいクエリ実行オブジェクトを生成する。
func newQueries(db *sql.DB) *queries {
	return &queries{db: db, now: time.Now}
}

// timeLayout は保存用の時刻フォーマット。文字列比較で時刻順に並ぶよう桁数を固定する。
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestamp は保存用の時刻文字列を返す。
func (q *queries) timestamp() string {
	return q.now().UTC().Format(timeLayout)
}

// CreateUser はユーザーを作成してIDを返す。
func (q *queries) CreateUser(ctx context.Context, arg createUserParams) (int64, error) {
	var fullName sql.NullString
	if arg.FullName != "" {
		fullName = sql.NullString{String: arg.FullName, Valid: true}
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO users (email, full_name, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		arg.Email, fullName, arg.PasswordHash, q.timestamp(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrEmailTaken
		}
		return 0, fmt.Errorf("ユーザーの作成に失敗: %w", err)
	}
	return res.LastInsertId()
}

// GetUserByEmail はメールアドレスでユーザーを取得する。
// 見つからない場合はsql.ErrNoRowsを返す。
func (q *queries) GetUserByEmail(ctx context.Context, email string) (userRow, error) {
	var u userRow
	err := q.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, password_hash FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash)
	return u, err
}

// CreateProject はプロジェクトを作成して作成後の行を返す。
func (q *queries) CreateProject(ctx context.Context, arg createProjectParams) (model.Project, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO projects (user_id, title, status, thumbnail, video_url, quality, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		arg.UserID, arg.Title, string(arg.Status), emptyToNull(arg.Thumbnail), emptyToNull(arg.VideoURL), arg.Quality, q.timestamp(),
	)
	if err != nil {
		return model.Project{}, fmt.Errorf("プロジェクトの作成に失敗: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Project{}, fmt.Errorf("プロジェクトIDの取得に失敗: %w", err)
	}
	return q.GetProject(ctx, arg.UserID, id)
}

// projectColumns はprojectsテーブルから読み出す列。
const projectColumns = `id, title, status, thumbnail, video_url, final_video_url, quality, error_message, created_at`

// GetProject はユーザーが所有するプロジェクトを取得する。
// 見つからない場合はsql.ErrNoRowsを返す。
func (q *queries) GetProject(ctx context.Context, userID, id int64) (model.Project, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ? AND user_id = ?`, id, userID,
	)
	return scanProject(row)
}

// ListProjectsByUserID はユーザーのプロジェクトを新しい順に返す。
func (q *queries) ListProjectsByUserID(ctx context.Context, userID int64) ([]model.Project, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗: %w", err)
	}
	defer rows.Close()

	projects := make([]model.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の読み込みに失敗: %w", err)
	}
	return projects, nil
}

// updateStatusParams はプロジェクト状態更新の引数。
type updateStatusParams struct {
	UserID        int64
	ID            int64
	Status        model.Status
	FinalVideoURL string
	ErrorMessage  string
}

// UpdateProjectStatus はユーザーが所有するプロジェクトの状態と結果を更新する。
// 該当するプロジェクトが無い場合はsql.ErrNoRowsを返す。
func (q *queries) UpdateProjectStatus(ctx context.Context, arg updateStatusParams) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE projects SET status = ?, final_video_url = ?, error_message = ? WHERE id = ? AND user_id = ?`,
		string(arg.Status), emptyToNull(arg.FinalVideoURL), emptyToNull(arg.ErrorMessage), arg.ID, arg.UserID,
	)
	if err != nil {
		return fmt.Errorf("プロジェクトの更新に失敗: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteProject はユーザーが所有するプロジェクトを削除する。
// 該当するプロジェクトが無い場合はsql.ErrNoRowsを返す。
func (q *queries) DeleteProject(ctx context.Context, userID, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("プロジェクトの削除に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanProject は1行をプロジェクトに変換する。
func scanProject(row rowScanner) (model.Project, error) {
	var (
		p                                                model.Project
		status, createdAt                                string
		thumbnail, videoURL, finalVideoURL, errorMessage sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Title, &status, &thumbnail, &videoURL, &finalVideoURL, &p.Quality, &errorMessage, &createdAt); err != nil {
		return model.Project{}, err
	}
	p.Status = model.Status(status)
	p.Thumbnail = nullString(thumbnail)
	p.VideoURL = nullString(videoURL)
	p.FinalVideoURL = nullString(finalVideoURL)
	p.ErrorMessage = nullString(errorMessage)

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return model.Project{}, fmt.Errorf("created_atのパースに失敗: %w", err)
	}
	p.CreatedAt = t
	return p, nil
}

// nullString はNULL可能な文字列をポインタに変換する。
func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// emptyToNull は空文字列をNULLとして扱う。
func emptyToNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
