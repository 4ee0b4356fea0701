package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedRequest(t *testing.T, s *SQLite) *Request {
	t.Helper()
	ctx := context.Background()
	workspace := &Workspace{ID: "ws-1", Name: "Test Workspace"}
	if err := s.CreateWorkspace(ctx, workspace); err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}
	request := &Request{
		ID:          "req-1",
		WorkspaceID: workspace.ID,
		Title:       "Sample Request",
		Method:      "GET",
		URL:         "https://api.example.com/data",
		Headers: []KeyValue{
			{Key: "Authorization", Value: "Bearer token123", IsChecked: true},
		},
		QueryParams: []KeyValue{
			{Key: "search", Value: "test", IsChecked: true},
		},
		BodyContentType: "application/json",
		BodyContent:     `{"sample":"data"}`,
	}
	if err := s.CreateRequest(ctx, request); err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	return request
}

func TestRequestsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seeded := seedRequest(t, s)

	t.Run("get returns the stored document", func(t *testing.T) {
		got, err := s.GetRequest(ctx, seeded.ID)
		if err != nil {
			t.Fatalf("failed to get request: %v", err)
		}
		if got.Title != seeded.Title || got.URL != seeded.URL {
			t.Fatalf("unexpected request: %+v", got)
		}
		if len(got.Headers) != 1 || got.Headers[0].Key != "Authorization" || !got.Headers[0].IsChecked {
			t.Fatalf("unexpected headers: %+v", got.Headers)
		}
	})

	t.Run("list is scoped to the workspace", func(t *testing.T) {
		requests, err := s.ListRequests(ctx, seeded.WorkspaceID)
		if err != nil {
			t.Fatalf("failed to list requests: %v", err)
		}
		if len(requests) != 1 || requests[0].ID != seeded.ID {
			t.Fatalf("unexpected requests: %+v", requests)
		}
		empty, err := s.ListRequests(ctx, "another-workspace")
		if err != nil {
			t.Fatalf("failed to list requests: %v", err)
		}
		if len(empty) != 0 {
			t.Fatalf("expected no requests for another workspace, got %+v", empty)
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		if _, err := s.GetRequest(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestApplyFieldUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seeded := seedRequest(t, s)

	t.Run("plain field", func(t *testing.T) {
		if err := s.ApplyFieldUpdate(ctx, seeded.ID, FieldURL, json.RawMessage(`"https://new.example.com"`)); err != nil {
			t.Fatalf("failed to apply update: %v", err)
		}
		got, err := s.GetRequest(ctx, seeded.ID)
		if err != nil {
			t.Fatalf("failed to get request: %v", err)
		}
		if got.URL != "https://new.example.com" {
			t.Fatalf("expected updated url, got %q", got.URL)
		}
		// Other fields untouched.
		if got.Method != "GET" || got.BodyContent != `{"sample":"data"}` {
			t.Fatalf("unrelated fields changed: %+v", got)
		}
	})

	t.Run("header-update patches exactly one entry", func(t *testing.T) {
		patch := json.RawMessage(`{"index":0,"key":"Authorization","value":"Bearer fresh","isChecked":false}`)
		if err := s.ApplyFieldUpdate(ctx, seeded.ID, FieldHeaderUpdate, patch); err != nil {
			t.Fatalf("failed to apply header update: %v", err)
		}
		got, err := s.GetRequest(ctx, seeded.ID)
		if err != nil {
			t.Fatalf("failed to get request: %v", err)
		}
		if len(got.Headers) != 1 {
			t.Fatalf("expected 1 header, got %+v", got.Headers)
		}
		if got.Headers[0].Value != "Bearer fresh" || got.Headers[0].IsChecked {
			t.Fatalf("unexpected patched header: %+v", got.Headers[0])
		}
	})

	t.Run("out-of-range index appends", func(t *testing.T) {
		patch := json.RawMessage(`{"index":5,"key":"X-New","value":"1","isChecked":true}`)
		if err := s.ApplyFieldUpdate(ctx, seeded.ID, FieldParamUpdate, patch); err != nil {
			t.Fatalf("failed to apply param update: %v", err)
		}
		got, err := s.GetRequest(ctx, seeded.ID)
		if err != nil {
			t.Fatalf("failed to get request: %v", err)
		}
		if len(got.QueryParams) != 2 || got.QueryParams[1].Key != "X-New" {
			t.Fatalf("expected appended param, got %+v", got.QueryParams)
		}
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		if err := s.ApplyFieldUpdate(ctx, seeded.ID, "nonsense", json.RawMessage(`"x"`)); err == nil {
			t.Fatal("expected an error for an unknown field")
		}
	})

	t.Run("unknown request id is not found", func(t *testing.T) {
		if err := s.ApplyFieldUpdate(ctx, "nope", FieldURL, json.RawMessage(`"x"`)); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		patch := json.RawMessage(`{"index":0,"key":"a","value":"b","isChecked":true}`)
		if err := s.ApplyFieldUpdate(ctx, "nope", FieldHeaderUpdate, patch); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("non-string value for a plain field is rejected", func(t *testing.T) {
		if err := s.ApplyFieldUpdate(ctx, seeded.ID, FieldURL, json.RawMessage(`42`)); err == nil {
			t.Fatal("expected an error for a non-string value")
		}
	})
}

func TestUsersAndSessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	user := &User{ID: "u-1", Username: "testuser", Email: "testuser@example.com", PasswordHash: "hash"}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	t.Run("duplicate email is rejected", func(t *testing.T) {
		dup := &User{ID: "u-2", Username: "other", Email: "testuser@example.com", PasswordHash: "hash"}
		if err := s.CreateUser(ctx, dup); err == nil {
			t.Fatal("expected unique constraint error")
		}
	})

	t.Run("lookup by email and id", func(t *testing.T) {
		byEmail, err := s.GetUserByEmail(ctx, user.Email)
		if err != nil || byEmail.ID != user.ID {
			t.Fatalf("unexpected lookup result: %+v, %v", byEmail, err)
		}
		byID, err := s.GetUserByID(ctx, user.ID)
		if err != nil || byID.Email != user.Email {
			t.Fatalf("unexpected lookup result: %+v, %v", byID, err)
		}
		if _, err := s.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("session round trip", func(t *testing.T) {
		if err := s.CreateSession(ctx, &Session{Token: "tok", UserID: user.ID}); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
		sess, err := s.GetSession(ctx, "tok")
		if err != nil || sess.UserID != user.ID {
			t.Fatalf("unexpected session: %+v, %v", sess, err)
		}
		if _, err := s.GetSession(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestWorkspaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateWorkspace(ctx, &Workspace{ID: "ws-1", Name: "One"}); err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}
	if err := s.CreateWorkspace(ctx, &Workspace{ID: "ws-2", Name: "Two"}); err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}

	workspaces, err := s.ListWorkspaces(ctx)
	if err != nil {
		t.Fatalf("failed to list workspaces: %v", err)
	}
	if len(workspaces) != 2 {
		t.Fatalf("expected 2 workspaces, got %+v", workspaces)
	}

	got, err := s.GetWorkspace(ctx, "ws-1")
	if err != nil || got.Name != "One" {
		t.Fatalf("unexpected workspace: %+v, %v", got, err)
	}
	if _, err := s.GetWorkspace(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
