// Command seed populates the database with a demo user, workspace and
// request so a fresh checkout has something to edit.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/apicollab/apicollab/pkg/store"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	pathVar := flag.String("database", "apicollab.sqlite3", "path to the sqlite database")
	flag.Parse()

	db, err := store.Open(*pathVar)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := &store.User{
		ID:           uuid.NewString(),
		Username:     "testuser",
		Email:        "testuser@example.com",
		PasswordHash: string(hash),
	}
	if err := db.CreateUser(ctx, user); err != nil {
		return err
	}
	slog.Info("Dummy user created", "username", user.Username)

	workspace := &store.Workspace{ID: uuid.NewString(), Name: "Test Workspace"}
	if err := db.CreateWorkspace(ctx, workspace); err != nil {
		return err
	}
	slog.Info("Dummy workspace created", "name", workspace.Name)

	request := &store.Request{
		ID:          uuid.NewString(),
		WorkspaceID: workspace.ID,
		Title:       "Sample Request",
		Method:      http.MethodGet,
		URL:         "https://api.example.com/data",
		Headers: []store.KeyValue{
			{Key: "Authorization", Value: "Bearer token123", IsChecked: true},
		},
		QueryParams: []store.KeyValue{
			{Key: "search", Value: "test", IsChecked: true},
		},
		BodyContentType: "application/json",
		BodyContent:     `{"sample":"data"}`,
		LastModifiedBy:  user.ID,
	}
	if err := db.CreateRequest(ctx, request); err != nil {
		return err
	}
	slog.Info("Dummy request created", "title", request.Title, "id", request.ID)

	slog.Info("Database seeding completed")
	return nil
}
