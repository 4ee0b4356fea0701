package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type SQLite struct {
	database *sql.DB
}

// Open opens (or creates) the SQLite database at path and ensures the
// initial tables exist. The pool is capped at a single connection so that
// writes serialize and ":memory:" databases behave.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{database: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) init() error {
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS users (
		id text not null primary key,
		username text not null,
		email text not null unique,
		password_hash text not null,
		created_at timestamp not null
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
		token text not null primary key,
		user_id text not null,
		expires_at timestamp not null
		)`,
		`CREATE TABLE IF NOT EXISTS workspaces (
		id text not null primary key,
		name text not null,
		created_at timestamp not null
		)`,
		`CREATE TABLE IF NOT EXISTS requests (
		id text not null primary key,
		workspace_id text not null,
		title text not null,
		method text not null,
		url text not null,
		headers text not null,
		query_params text not null,
		body_content_type text not null,
		body_content text not null,
		last_modified_by text,
		created_at timestamp not null,
		updated_at timestamp not null
		)`,
	} {
		if _, err := s.database.Exec(stmt); err != nil {
			return errors.Wrap(err, "failed to create initial tables")
		}
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.database.Close()
}

func (s *SQLite) CreateUser(ctx context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if _, err := s.database.ExecContext(
		ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt,
	); err != nil {
		return errors.Wrap(err, "failed to insert user")
	}
	return nil
}

func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE email = ?`, email)
}

func (s *SQLite) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (s *SQLite) getUser(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	if err := s.database.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to query user")
	}
	return &u, nil
}

func (s *SQLite) CreateSession(ctx context.Context, session *Session) error {
	if _, err := s.database.ExecContext(
		ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		session.Token, session.UserID, session.ExpiresAt,
	); err != nil {
		return errors.Wrap(err, "failed to insert session")
	}
	return nil
}

func (s *SQLite) GetSession(ctx context.Context, token string) (*Session, error) {
	var sess Session
	if err := s.database.QueryRowContext(
		ctx,
		`SELECT token, user_id, expires_at FROM sessions WHERE token = ?`,
		token,
	).Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to query session")
	}
	return &sess, nil
}

func (s *SQLite) CreateWorkspace(ctx context.Context, workspace *Workspace) error {
	if workspace.CreatedAt.IsZero() {
		workspace.CreatedAt = time.Now().UTC()
	}
	if _, err := s.database.ExecContext(
		ctx,
		`INSERT INTO workspaces (id, name, created_at) VALUES (?, ?, ?)`,
		workspace.ID, workspace.Name, workspace.CreatedAt,
	); err != nil {
		return errors.Wrap(err, "failed to insert workspace")
	}
	return nil
}

func (s *SQLite) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	rows, err := s.database.QueryContext(ctx, `SELECT id, name, created_at FROM workspaces ORDER BY created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query workspaces")
	}
	defer rows.Close()
	workspaces := make([]Workspace, 0)
	for rows.Next() {
		var w Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan workspace")
		}
		workspaces = append(workspaces, w)
	}
	return workspaces, rows.Err()
}

func (s *SQLite) GetWorkspace(ctx context.Context, id string) (*Workspace, error) {
	var w Workspace
	if err := s.database.QueryRowContext(
		ctx,
		`SELECT id, name, created_at FROM workspaces WHERE id = ?`,
		id,
	).Scan(&w.ID, &w.Name, &w.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to query workspace")
	}
	return &w, nil
}

func (s *SQLite) CreateRequest(ctx context.Context, request *Request) error {
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	if request.UpdatedAt.IsZero() {
		request.UpdatedAt = now
	}
	if request.Headers == nil {
		request.Headers = []KeyValue{}
	}
	if request.QueryParams == nil {
		request.QueryParams = []KeyValue{}
	}
	headers, err := json.Marshal(request.Headers)
	if err != nil {
		return errors.Wrap(err, "failed to encode headers")
	}
	queryParams, err := json.Marshal(request.QueryParams)
	if err != nil {
		return errors.Wrap(err, "failed to encode query params")
	}
	if _, err := s.database.ExecContext(
		ctx,
		`INSERT INTO requests (id, workspace_id, title, method, url, headers, query_params,
		body_content_type, body_content, last_modified_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		request.ID, request.WorkspaceID, request.Title, request.Method, request.URL,
		string(headers), string(queryParams),
		request.BodyContentType, request.BodyContent, request.LastModifiedBy,
		request.CreatedAt, request.UpdatedAt,
	); err != nil {
		return errors.Wrap(err, "failed to insert request")
	}
	return nil
}

func (s *SQLite) GetRequest(ctx context.Context, id string) (*Request, error) {
	row := s.database.QueryRowContext(
		ctx,
		`SELECT id, workspace_id, title, method, url, headers, query_params,
		body_content_type, body_content, last_modified_by, created_at, updated_at
		FROM requests WHERE id = ?`,
		id,
	)
	return scanRequest(row.Scan)
}

func (s *SQLite) ListRequests(ctx context.Context, workspaceID string) ([]Request, error) {
	rows, err := s.database.QueryContext(
		ctx,
		`SELECT id, workspace_id, title, method, url, headers, query_params,
		body_content_type, body_content, last_modified_by, created_at, updated_at
		FROM requests WHERE workspace_id = ? ORDER BY created_at`,
		workspaceID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query requests")
	}
	defer rows.Close()
	requests := make([]Request, 0)
	for rows.Next() {
		r, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

func scanRequest(scan func(...any) error) (*Request, error) {
	var r Request
	var headers, queryParams string
	var lastModifiedBy sql.NullString
	if err := scan(
		&r.ID, &r.WorkspaceID, &r.Title, &r.Method, &r.URL, &headers, &queryParams,
		&r.BodyContentType, &r.BodyContent, &lastModifiedBy, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to scan request")
	}
	r.LastModifiedBy = lastModifiedBy.String
	if err := json.Unmarshal([]byte(headers), &r.Headers); err != nil {
		return nil, errors.Wrap(err, "failed to decode headers")
	}
	if err := json.Unmarshal([]byte(queryParams), &r.QueryParams); err != nil {
		return nil, errors.Wrap(err, "failed to decode query params")
	}
	return &r, nil
}

// columnForField maps the externally-visible field names of the edit
// protocol onto their backing columns.
var columnForField = map[string]string{
	FieldURL:             "url",
	FieldMethod:          "method",
	FieldBodyContent:     "body_content",
	FieldBodyContentType: "body_content_type",
	FieldTitle:           "title",
}

type keyValuePatch struct {
	Index     int    `json:"index"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	IsChecked bool   `json:"isChecked"`
}

func (s *SQLite) ApplyFieldUpdate(ctx context.Context, requestID, field string, value json.RawMessage) error {
	if column, ok := columnForField[field]; ok {
		var v string
		if err := json.Unmarshal(value, &v); err != nil {
			return errors.Wrapf(err, "field %q expects a string value", field)
		}
		res, err := s.database.ExecContext(
			ctx,
			`UPDATE requests SET `+column+` = ?, updated_at = ? WHERE id = ?`,
			v, time.Now().UTC(), requestID,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to update field %q", field)
		}
		if n, err := res.RowsAffected(); err != nil {
			return errors.Wrap(err, "failed to count rows affected")
		} else if n == 0 {
			return ErrNotFound
		}
		return nil
	}

	switch field {
	case FieldHeaderUpdate:
		return s.patchKeyValueColumn(ctx, requestID, "headers", value)
	case FieldParamUpdate:
		return s.patchKeyValueColumn(ctx, requestID, "query_params", value)
	}
	return errors.Errorf("unknown field %q", field)
}

// patchKeyValueColumn replaces one indexed entry inside a JSON-encoded
// key/value column. An index at or past the end appends, so a client adding
// a new row and a client editing an existing one go through the same path.
func (s *SQLite) patchKeyValueColumn(ctx context.Context, requestID, column string, value json.RawMessage) error {
	var patch keyValuePatch
	if err := json.Unmarshal(value, &patch); err != nil {
		return errors.Wrapf(err, "invalid %s patch", column)
	}
	if patch.Index < 0 {
		return errors.Errorf("invalid %s patch: negative index", column)
	}

	tx, err := s.database.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "failed to start tx")
	}
	defer tx.Rollback()

	var raw string
	if err := tx.QueryRowContext(
		ctx, `SELECT `+column+` FROM requests WHERE id = ?`, requestID,
	).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return errors.Wrap(err, "failed to query request")
	}

	var entries []KeyValue
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return errors.Wrapf(err, "failed to decode %s", column)
	}
	entry := KeyValue{Key: patch.Key, Value: patch.Value, IsChecked: patch.IsChecked}
	if patch.Index < len(entries) {
		entries[patch.Index] = entry
	} else {
		entries = append(entries, entry)
	}
	updated, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", column)
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE requests SET `+column+` = ?, updated_at = ? WHERE id = ?`,
		string(updated), time.Now().UTC(), requestID,
	); err != nil {
		return errors.Wrapf(err, "failed to update %s", column)
	}
	return errors.Wrap(tx.Commit(), "failed to commit")
}
