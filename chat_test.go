package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestMatch(t *testing.T, a, b int) *Match {
	t.Helper()
	var match *Match
	err := withTx(context.Background(), db, func(tx *sql.Tx) error {
		var err error
		match, err = createMatchIfAbsent(tx, a, b)
		return err
	})
	require.NoError(t, err)
	return match
}

func TestChatEndpoints(t *testing.T) {
	requireDB(t)

	userA := createTestUser(t, "chat_a@example.com", "passwordA")
	userB := createTestUser(t, "chat_b@example.com", "passwordB")
	outsider := createTestUser(t, "chat_c@example.com", "passwordC")
	defer cleanupTestData(userA.Email, userB.Email, outsider.Email)

	match := createTestMatch(t, userA.ID, userB.ID)
	chatPath := fmt.Sprintf("/chat/%d", match.ID)

	t.Run("create is idempotent per pair", func(t *testing.T) {
		again := createTestMatch(t, userB.ID, userA.ID)
		assert.Equal(t, match.ID, again.ID)
		assert.Equal(t, match.ChatID, again.ChatID)
	})

	t.Run("send and list", func(t *testing.T) {
		w := doJSON(t, chatDispatcher(db), "POST", chatPath, userA.Token,
			map[string]string{"text": "hello"})
		require.Equal(t, 201, w.Code, w.Body.String())

		var sent ChatMessage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sent))
		assert.Equal(t, userA.ID, sent.SenderID)
		assert.Equal(t, "Test User", sent.SenderName)
		assert.Equal(t, "hello", sent.Body)

		w = doJSON(t, chatDispatcher(db), "GET", chatPath, userB.Token, nil)
		require.Equal(t, 200, w.Code)
		var body map[string][]ChatMessage
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body["messages"], 1)
		assert.Equal(t, "hello", body["messages"][0].Body)
	})

	t.Run("empty text rejected", func(t *testing.T) {
		w := doJSON(t, chatDispatcher(db), "POST", chatPath, userA.Token,
			map[string]string{"text": "   "})
		assert.Equal(t, 400, w.Code)
	})

	t.Run("outsider gets forbidden on both operations", func(t *testing.T) {
		w := doJSON(t, chatDispatcher(db), "GET", chatPath, outsider.Token, nil)
		assert.Equal(t, 403, w.Code)

		w = doJSON(t, chatDispatcher(db), "POST", chatPath, outsider.Token,
			map[string]string{"text": "let me in"})
		assert.Equal(t, 403, w.Code)
	})

	t.Run("unknown match is not found", func(t *testing.T) {
		w := doJSON(t, chatDispatcher(db), "GET", "/chat/99999999", userA.Token, nil)
		assert.Equal(t, 404, w.Code)
	})
}

func TestMessageOrderingByCreationTime(t *testing.T) {
	requireDB(t)

	userA := createTestUser(t, "order_a@example.com", "passwordA")
	userB := createTestUser(t, "order_b@example.com", "passwordB")
	defer cleanupTestData(userA.Email, userB.Email)

	match := createTestMatch(t, userA.ID, userB.ID)

	// Persist in reverse arrival order: the later message first.
	base := time.Now().UTC().Truncate(time.Millisecond)
	_, err := db.Exec(`INSERT INTO messages (chat_id, sender_id, body, created_at) VALUES ($1, $2, $3, $4)`,
		match.ChatID, userB.ID, "world", base.Add(time.Second))
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO messages (chat_id, sender_id, body, created_at) VALUES ($1, $2, $3, $4)`,
		match.ChatID, userA.ID, "hello", base)
	require.NoError(t, err)

	msgs, err := listChatMessages(db, match.ChatID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Body)
	assert.Equal(t, "world", msgs[1].Body)
	assert.True(t, !msgs[1].CreatedAt.Before(msgs[0].CreatedAt))
}
