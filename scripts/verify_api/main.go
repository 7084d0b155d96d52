package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

type LoginResponse struct {
	Token string `json:"token"`
}

func main() {
	apiAddr := "http://localhost:8081"

	// 1. Login
	reqBody, _ := json.Marshal(map[string]string{"user_id": "test_user", "display_name": "Test User"})
	resp, err := http.Post(apiAddr+"/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Token: %s...\n", loginResp.Token[:10])

	authGet := func(path string) {
		req, _ := http.NewRequest("GET", apiAddr+path, nil)
		req.Header.Add("Authorization", "Bearer "+loginResp.Token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			log.Fatalf("%s request failed: %v", path, err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		log.Printf("%s (%d): %s", path, resp.StatusCode, string(body))
	}

	// 2. Send a disguised broadcast message
	sendBody, _ := json.Marshal(map[string]any{"text": "meet me tonight"})
	req, _ := http.NewRequest("POST", apiAddr+"/messages", bytes.NewBuffer(sendBody))
	req.Header.Add("Authorization", "Bearer "+loginResp.Token)
	req.Header.Add("Content-Type", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal("Send request failed:", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	log.Printf("Send (%d): %s", resp.StatusCode, string(body))

	// 3. Read it back
	authGet("/history?channel_id=general")
	authGet("/conversations")
	authGet("/users")
	authGet("/channels/general/users")
}
