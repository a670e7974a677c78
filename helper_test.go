package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// Initialize JWT secret for tests
func init() {
	jwtSecret = []byte("test-secret-key-for-testing")
}

// createTestUser inserts a user directly and returns it with a token.
func createTestUser(t *testing.T, email, password string) TestUser {
	t.Helper()

	cleanupTestData(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to generate bcrypt hash: %v", err)
	}

	var userID int
	err = db.QueryRow("INSERT INTO users (email, password_hash, name) VALUES ($1, $2, $3) RETURNING id",
		email, string(hash), "Test User").Scan(&userID)
	if err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}

	token, err := issueToken(userID)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	return TestUser{ID: userID, Email: email, Token: token}
}

// completeTestProfile fills in the matching-relevant fields and marks the
// profile complete so the user is visible to candidate searches.
func completeTestProfile(t *testing.T, user TestUser, role string, skills, lookingFor []string, location string) {
	t.Helper()

	_, err := db.Exec(`
		UPDATE users
		SET role = $2, skills = $3, looking_for = $4, location = $5, profile_completed = TRUE
		WHERE id = $1
	`, user.ID, role, marshalStrings(skills), marshalStrings(lookingFor), location)
	if err != nil {
		t.Fatalf("failed to complete profile for user %d: %v", user.ID, err)
	}
}

// doJSON runs one authenticated JSON request through h with the
// dataloader middleware in place, as main wires it.
func doJSON(t *testing.T, h http.HandlerFunc, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	DataLoaderMiddleware(db)(h).ServeHTTP(w, req)
	return w
}

// cleanupTestData removes all traces of the given accounts.
func cleanupTestData(emails ...string) {
	for _, email := range emails {
		var userID int
		if err := db.QueryRow("SELECT id FROM users WHERE email = $1", email).Scan(&userID); err != nil {
			continue
		}
		db.Exec(`DELETE FROM messages WHERE sender_id = $1
			OR chat_id IN (SELECT COALESCE(chat_id, id::text) FROM matches WHERE user_a = $1 OR user_b = $1)`, userID)
		db.Exec("DELETE FROM matches WHERE user_a = $1 OR user_b = $1", userID)
		db.Exec("DELETE FROM interests WHERE from_user_id = $1 OR to_user_id = $1", userID)
		db.Exec("DELETE FROM users WHERE id = $1", userID)
	}
}
