package main

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"
)

// canonicalPair orders two user ids so the pair {a,b} always keys the
// same match row.
func canonicalPair(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}

// createMatchIfAbsent inserts the match for an unordered pair, or returns
// the existing one. The unique (user_a, user_b) constraint plus
// ON CONFLICT DO NOTHING makes this safe under two simultaneous connects
// and safe to re-invoke after a partial failure.
//
// The chat channel id is the match's own id, fixed in the same
// transaction so it can never change afterwards.
func createMatchIfAbsent(tx *sql.Tx, a, b int) (*Match, error) {
	lo, hi := canonicalPair(a, b)
	m := Match{UserA: lo, UserB: hi}

	err := tx.QueryRow(`
		INSERT INTO matches (user_a, user_b)
		VALUES ($1, $2)
		ON CONFLICT (user_a, user_b) DO NOTHING
		RETURNING id, created_at
	`, lo, hi).Scan(&m.ID, &m.CreatedAt)
	if err == sql.ErrNoRows {
		// Lost the race or retrying after a partial failure -> reuse the row.
		err = tx.QueryRow(`
			SELECT id, created_at FROM matches WHERE user_a = $1 AND user_b = $2
		`, lo, hi).Scan(&m.ID, &m.CreatedAt)
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`
		UPDATE matches SET chat_id = id::text WHERE id = $1 AND chat_id IS NULL
	`, m.ID); err != nil {
		return nil, err
	}
	m.ChatID = strconv.Itoa(m.ID)
	return &m, nil
}

// getMatch resolves a match by id.
func getMatch(db *sql.DB, matchID int) (*Match, error) {
	var m Match
	var chatID sql.NullString
	err := db.QueryRow(`
		SELECT id, user_a, user_b, chat_id, created_at FROM matches WHERE id = $1
	`, matchID).Scan(&m.ID, &m.UserA, &m.UserB, &chatID, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	if chatID.Valid {
		m.ChatID = chatID.String
	} else {
		m.ChatID = strconv.Itoa(m.ID)
	}
	return &m, nil
}

// getMatchByChatID resolves the match that owns a chat channel.
func getMatchByChatID(db *sql.DB, chatID string) (*Match, error) {
	var m Match
	err := db.QueryRow(`
		SELECT id, user_a, user_b, chat_id, created_at FROM matches WHERE chat_id = $1
	`, chatID).Scan(&m.ID, &m.UserA, &m.UserB, &m.ChatID, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// matchEntry is one row of GET /match/my: always the *other* member.
type matchEntry struct {
	MatchID       int        `json:"matchId"`
	ChatChannelID string     `json:"chatChannelId"`
	User          PublicUser `json:"user"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// GET /match/my
func myMatchesHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := r.Context().Value(userIDKey).(int)

		rows, err := db.Query(`
			SELECT id, user_a, user_b, COALESCE(chat_id, id::text), created_at
			FROM matches
			WHERE user_a = $1 OR user_b = $1
			ORDER BY created_at DESC, id DESC
		`, userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		defer rows.Close()

		var matches []Match
		for rows.Next() {
			var m Match
			if err := rows.Scan(&m.ID, &m.UserA, &m.UserB, &m.ChatID, &m.CreatedAt); err != nil {
				writeDomainError(w, err)
				return
			}
			matches = append(matches, m)
		}
		if err := rows.Err(); err != nil {
			writeDomainError(w, err)
			return
		}

		otherIDs := make([]int, len(matches))
		for i, m := range matches {
			otherIDs[i] = m.other(userID)
		}
		others, err := loadPublicUsers(r.Context(), otherIDs)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		entries := make([]matchEntry, 0, len(matches))
		for i, m := range matches {
			if others[i] == nil {
				continue
			}
			entries = append(entries, matchEntry{
				MatchID:       m.ID,
				ChatChannelID: m.ChatID,
				User:          *others[i],
				CreatedAt:     m.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string][]matchEntry{"matches": entries})
	})
}
