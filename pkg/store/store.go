package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("not found")

// Fields of a request document that may be updated individually. The
// realtime edit path only ever issues single-field partial updates keyed by
// one of these names, never a full-document replacement.
const (
	FieldURL             = "url"
	FieldMethod          = "method"
	FieldBodyContent     = "bodyContent"
	FieldBodyContentType = "bodyContentType"
	FieldTitle           = "title"
	FieldHeaderUpdate    = "header-update"
	FieldParamUpdate     = "param-update"
)

// KeyValue is one header or query-param row of a request document. Unchecked
// entries stay in the document but are excluded from outbound requests.
type KeyValue struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	IsChecked bool   `json:"isChecked"`
}

// Request is the collaboratively edited API-test definition. One request
// document corresponds to one realtime room.
type Request struct {
	ID              string     `json:"id"`
	WorkspaceID     string     `json:"workspaceId"`
	Title           string     `json:"title"`
	Method          string     `json:"method"`
	URL             string     `json:"url"`
	Headers         []KeyValue `json:"headers"`
	QueryParams     []KeyValue `json:"queryParams"`
	BodyContentType string     `json:"bodyContentType"`
	BodyContent     string     `json:"bodyContent"`
	LastModifiedBy  string     `json:"lastModifiedBy,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

type Store interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)

	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, token string) (*Session, error)

	CreateWorkspace(ctx context.Context, workspace *Workspace) error
	ListWorkspaces(ctx context.Context) ([]Workspace, error)
	GetWorkspace(ctx context.Context, id string) (*Workspace, error)

	CreateRequest(ctx context.Context, request *Request) error
	GetRequest(ctx context.Context, id string) (*Request, error)
	ListRequests(ctx context.Context, workspaceID string) ([]Request, error)

	// ApplyFieldUpdate sets exactly one named field of the request document
	// identified by requestID. The value encoding depends on the field: a
	// JSON string for the plain columns, a {index,key,value,isChecked}
	// object for header-update and param-update.
	ApplyFieldUpdate(ctx context.Context, requestID, field string, value json.RawMessage) error

	Close() error
}
