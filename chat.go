package main

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
)

// resolveMatchForUser loads a match and checks that the requester is one
// of its two members. Everything in the chat surface goes through this.
func resolveMatchForUser(db *sql.DB, matchID, userID int) (*Match, error) {
	match, err := getMatch(db, matchID)
	if err != nil {
		return nil, err
	}
	if !match.hasMember(userID) {
		return nil, errForbidden
	}
	return match, nil
}

// listChatMessages returns the full history of a chat channel in
// creation-time order. Concurrent sends may be persisted in either
// order; this query is what defines the display order, not the order
// the relay happened to deliver them in.
func listChatMessages(db *sql.DB, chatID string) ([]ChatMessage, error) {
	rows, err := db.Query(`
		SELECT m.id, m.chat_id, m.sender_id, u.name, m.body, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.chat_id = $1
		ORDER BY m.created_at ASC, m.id ASC
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []ChatMessage{}
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.SenderName, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// saveChatMessage persists one message and returns it with the sender
// resolved. Membership must have been checked by the caller.
func saveChatMessage(db *sql.DB, chatID string, senderID int, body string) (*ChatMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, validationError("empty_message")
	}

	m := ChatMessage{ChatID: chatID, SenderID: senderID, Body: body}
	err := db.QueryRow(`
		INSERT INTO messages (chat_id, sender_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, chatID, senderID, body).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}

	err = db.QueryRow(`SELECT name FROM users WHERE id = $1`, senderID).Scan(&m.SenderName)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Dispatcher for /chat/{matchId}: GET lists history, POST sends.
func chatDispatcher(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 2 || parts[0] != "chat" {
			http.NotFound(w, r)
			return
		}
		matchID, err := strconv.Atoi(parts[1])
		if err != nil {
			writeDomainError(w, errNotFound)
			return
		}

		userID := r.Context().Value(userIDKey).(int)
		match, err := resolveMatchForUser(db, matchID, userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		switch r.Method {
		case http.MethodGet:
			msgs, err := listChatMessages(db, match.ChatID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string][]ChatMessage{"messages": msgs})

		case http.MethodPost:
			type SendRequest struct {
				Text string `json:"text" validate:"required,max=2000"`
			}
			var req SendRequest
			if err := decodeBody(r, &req); err != nil {
				writeDomainError(w, err)
				return
			}

			msg, err := saveChatMessage(db, match.ChatID, userID, req.Text)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, msg)

		default:
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
		}
	})
}
