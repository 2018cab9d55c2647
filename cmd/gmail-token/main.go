// Command gmail-token runs the OAuth consent flow once and prints the Gmail
// refresh token to put in GMAIL_REFRESH_TOKEN.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"

	"github.com/has-1997/jetback-mvp/internal/infrastructure/oauth"
	"github.com/has-1997/jetback-mvp/pkg/logger"

	"github.com/joho/godotenv"
)

const callbackAddr = "localhost:8090"

func main() {
	godotenv.Load()
	log := logger.NewLogger("info")

	clientID := os.Getenv("GMAIL_CLIENT_ID")
	clientSecret := os.Getenv("GMAIL_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		log.Fatal("GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET must be set")
	}

	gmailOAuth := oauth.NewGmailOAuth(clientID, clientSecret, "", "http://"+callbackAddr+"/oauth2callback", log)

	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		log.Fatal("Failed to generate state", "error", err)
	}
	state := hex.EncodeToString(stateBytes)

	done := make(chan string, 1)
	http.HandleFunc("/oauth2callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		token, err := gmailOAuth.ExchangeCode(context.Background(), r.URL.Query().Get("code"))
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to exchange code: %v", err), http.StatusInternalServerError)
			return
		}

		fmt.Fprintf(w, "Authentication successful! You can close this window.")
		done <- token.RefreshToken
	})

	server := &http.Server{Addr: callbackAddr}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Callback server error", "error", err)
		}
	}()

	fmt.Printf("Open this URL in your browser:\n%s\n", gmailOAuth.AuthURL(state))

	refreshToken := <-done
	fmt.Printf("\nGMAIL_REFRESH_TOKEN=%s\n\n", refreshToken)
	server.Shutdown(context.Background())
}
