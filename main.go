package main

import (
	"log"
	"net/http"
	"os"
)

// JWT secret from environment variable or fallback
func getJWTSecret() []byte {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	return []byte("your_secret_key_please_change_in_production")
}

var jwtSecret = getJWTSecret()

func main() {
	initDB()

	hub := newHub()
	mux := http.NewServeMux()

	// Core auth & user endpoints
	mux.Handle("/register", registerHandler(db))
	mux.Handle("/login", loginHandler(db))
	mux.Handle("/me", meHandler(db))
	mux.Handle("/me/profile", meProfileHandler(db))

	// Candidate search, interest edges & matches
	mux.Handle("/match/find", findCandidatesHandler(db))
	mux.Handle("/match/connect", connectHandler(db))
	mux.Handle("/match/pass", passHandler(db))
	mux.Handle("/match/my", myMatchesHandler(db))
	mux.Handle("/match/requests", requestsHandler(db))
	mux.Handle("/match/sent", sentRequestsHandler(db))

	// Chat history & sending
	mux.Handle("/chat/", chatDispatcher(db))

	// WebSocket chat endpoint
	mux.Handle("/ws/chat", wsChatHandler(db, hub))

	// Health check endpoint for Docker
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	handler := withCORS(DataLoaderMiddleware(db)(mux))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Default().Println("Starting DevConnect backend on port " + port + "...")
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal("Server error:", err)
	}
}
