package main

import (
	"database/sql"
	"net/http"
)

// Interest edges and the pending -> matched transition.
//
// TERMINOLOGY
// connect: create the directed (me -> target) interest edge; if the
//          reverse edge already exists the pair becomes a match.
// pass: acknowledged, never persisted. A passed candidate can come back
//       in later searches; this mirrors the product's "no memory of
//       passes" behavior.
// Edges are never deleted. A match hides the pair from the pending
// views, it does not remove the edges.

// insertInterestEdge creates the (from -> to) edge. A second identical
// request is a hard stop, not an upsert.
func insertInterestEdge(tx *sql.Tx, from, to int) error {
	res, err := tx.Exec(`
		INSERT INTO interests (from_user_id, to_user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, from, to)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errDuplicateRequest
	}
	return nil
}

func reverseEdgeExists(tx *sql.Tx, from, to int) (bool, error) {
	var exists bool
	err := tx.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM interests WHERE from_user_id = $1 AND to_user_id = $2
		)
	`, to, from).Scan(&exists)
	return exists, err
}

// POST /match/connect {"targetUserId": n}
// Creates the interest edge and reports "pending", or "matched" when the
// target had already expressed interest back. Both the edge and the
// match commit in one transaction, so a crash between them cannot leave
// a half-created pair; re-invoking after the duplicate-edge error is the
// recovery path for an edge that was persisted without its match.
func connectHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}

		type ConnectRequest struct {
			TargetUserID int `json:"targetUserId" validate:"required,gt=0"`
		}
		var req ConnectRequest
		if err := decodeBody(r, &req); err != nil {
			writeDomainError(w, err)
			return
		}

		me := r.Context().Value(userIDKey).(int)
		if req.TargetUserID == me {
			writeDomainError(w, errSelfReference)
			return
		}

		exists, err := userExists(db, req.TargetUserID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if !exists {
			writeDomainError(w, errNotFound)
			return
		}

		type response struct {
			Status      string      `json:"status"`
			Match       *Match      `json:"match,omitempty"`
			MatchedUser *PublicUser `json:"matchedUser,omitempty"`
		}
		var resp response

		err = withTx(r.Context(), db, func(tx *sql.Tx) error {
			// Serialize on the unordered pair: without this, two users
			// connecting to each other at the same instant can each miss
			// the other's uncommitted edge and the match is never created.
			lo, hi := canonicalPair(me, req.TargetUserID)
			if _, err := tx.Exec(`SELECT pg_advisory_xact_lock($1, $2)`, lo, hi); err != nil {
				return err
			}

			if err := insertInterestEdge(tx, me, req.TargetUserID); err != nil {
				return err
			}

			mutual, err := reverseEdgeExists(tx, me, req.TargetUserID)
			if err != nil {
				return err
			}
			if !mutual {
				resp.Status = "pending"
				return nil
			}

			match, err := createMatchIfAbsent(tx, me, req.TargetUserID)
			if err != nil {
				return err
			}
			resp.Status = "matched"
			resp.Match = match
			return nil
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		if resp.Status == "matched" {
			target, err := loadUserProfile(db, req.TargetUserID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			pub := target.public()
			resp.MatchedUser = &pub
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

// POST /match/pass {"targetUserId": n}
// Acknowledgment only. Nothing is stored, so the candidate may reappear.
func passHandler(db *sql.DB) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}

		type PassRequest struct {
			TargetUserID int `json:"targetUserId" validate:"required,gt=0"`
		}
		var req PassRequest
		if err := decodeBody(r, &req); err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"passed": true})
	})
}

// pendingPeers returns the peers on the far end of unresolved edges.
// incoming selects edges pointing at the user, otherwise edges the user
// holds. Pairs that already resolved into a match are filtered out by
// match membership, not by touching the edges.
func pendingPeers(db *sql.DB, userID int, incoming bool) ([]int, error) {
	col, peer := "to_user_id", "from_user_id"
	if !incoming {
		col, peer = "from_user_id", "to_user_id"
	}

	rows, err := db.Query(`
		SELECT i.`+peer+`
		FROM interests i
		WHERE i.`+col+` = $1
		  AND NOT EXISTS (
			SELECT 1 FROM matches m
			WHERE m.user_a = LEAST(i.`+peer+`, $1::int)
			  AND m.user_b = GREATEST(i.`+peer+`, $1::int)
		  )
		ORDER BY i.created_at DESC, i.`+peer+` DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var peers []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		peers = append(peers, id)
	}
	return peers, rows.Err()
}

func pendingPeersHandler(db *sql.DB, incoming bool, key string) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID := r.Context().Value(userIDKey).(int)

		ids, err := pendingPeers(db, userID, incoming)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		users, err := loadPublicUsers(r.Context(), ids)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]PublicUser, 0, len(users))
		for _, u := range users {
			if u != nil {
				out = append(out, *u)
			}
		}
		writeJSON(w, http.StatusOK, map[string][]PublicUser{key: out})
	})
}

// GET /match/requests — users who expressed interest in me, not yet matched.
func requestsHandler(db *sql.DB) http.HandlerFunc {
	return pendingPeersHandler(db, true, "requests")
}

// GET /match/sent — users I expressed interest in, not yet matched.
func sentRequestsHandler(db *sql.DB) http.HandlerFunc {
	return pendingPeersHandler(db, false, "sent")
}
