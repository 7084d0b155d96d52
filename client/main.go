package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type LoginResponse struct {
	Token string `json:"token"`
}

type wireCommand struct {
	Action    string `json:"action"`
	Text      string `json:"text,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

type wireEntry struct {
	ID         string `json:"id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Seen       bool   `json:"seen"`
	Signaled   bool   `json:"signaled"`
	CanDecode  bool   `json:"can_decode"`
	Revealed   bool   `json:"revealed"`
	Display    string `json:"display"`
}

type wireFrame struct {
	Type     string      `json:"type"`
	Entries  []wireEntry `json:"entries"`
	Kind     string      `json:"kind"`
	Message  string      `json:"message"`
	UserID   string      `json:"user_id"`
	Grantees []string    `json:"grantees"`
}

func login(apiAddr, userID, displayName string) (string, error) {
	reqBody, _ := json.Marshal(map[string]string{"user_id": userID, "display_name": displayName})
	resp, err := http.Post(apiAddr+"/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login failed: %s", string(body))
	}

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return "", err
	}

	return loginResp.Token, nil
}

func printFrame(f wireFrame) {
	switch f.Type {
	case "snapshot":
		fmt.Print("\r--- conversation ---\n")
		for _, e := range f.Entries {
			marks := ""
			if e.Seen {
				marks += " [seen]"
			}
			if e.Signaled {
				marks += " [reported]"
			}
			if e.Revealed {
				marks += " [revealed]"
			} else if e.CanDecode {
				marks += " [decryptable]"
			}
			fmt.Printf("[%s] %s: %s%s\n", e.ID, e.SenderName, e.Display, marks)
		}
		fmt.Print("> ")
	case "notice":
		fmt.Printf("\r[%s] %s\n> ", f.Kind, f.Message)
	case "presence":
		fmt.Printf("\rUser %s %s\n> ", f.UserID, f.Message)
	case "typing":
		fmt.Printf("\rUser %s is typing...      \n> ", f.UserID)
	case "grantees":
		fmt.Printf("\rDecrypt access granted to: %s\n> ", strings.Join(f.Grantees, ", "))
	}
}

// parseInput turns a line of stdin into a wire command. Slash commands cover
// the message actions; anything else is sent as message text.
func parseInput(text string) (wireCommand, bool) {
	if !strings.HasPrefix(text, "/") {
		return wireCommand{Action: "send", Text: text}, true
	}

	fields := strings.Fields(text)
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	switch fields[0] {
	case "/reveal":
		return wireCommand{Action: "reveal", MessageID: arg}, true
	case "/grant":
		return wireCommand{Action: "grant", UserID: arg}, true
	case "/grantees":
		return wireCommand{Action: "grantees"}, true
	case "/hide":
		return wireCommand{Action: "hide", MessageID: arg}, true
	case "/delete":
		return wireCommand{Action: "delete", MessageID: arg}, true
	case "/signal":
		return wireCommand{Action: "signal", MessageID: arg}, true
	case "/typing":
		return wireCommand{Action: "typing"}, true
	}
	return wireCommand{}, false
}

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "gateway service address")
	apiAddr := flag.String("api", "http://localhost:8081", "api service address")
	userID := flag.String("user", "user1", "user id")
	displayName := flag.String("name", "", "display name (defaults to user id)")
	channelID := flag.String("channel", "general", "channel id")
	dmUser := flag.String("dm", "", "user id to message directly (overrides -channel)")
	flag.Parse()

	name := *displayName
	if name == "" {
		name = *userID
	}

	finalChannelID := *channelID
	if *dmUser != "" {
		// Sort user IDs to ensure consistent channel ID
		u1, u2 := *userID, *dmUser
		if u1 > u2 {
			u1, u2 = u2, u1
		}
		finalChannelID = fmt.Sprintf("dm:%s:%s", u1, u2)
	}

	// 1. Login to get token
	log.Printf("Logging in as %s...", *userID)
	token, err := login(*apiAddr, *userID, name)
	if err != nil {
		log.Fatal("Login failed:", err)
	}
	log.Printf("Login successful. Token: %s...", token[:10])

	// 2. Connect to WebSocket with token
	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws"}
	log.Printf("connecting to %s", u.String())

	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)
	q := u.Query()
	q.Set("channel", finalChannelID)
	u.RawQuery = q.Encode()

	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// 3. Start goroutine to read frames
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("read:", err)
				return
			}

			// A websocket message may carry several frames, one per line.
			for _, line := range bytes.Split(message, []byte{'\n'}) {
				if len(line) == 0 {
					continue
				}
				var f wireFrame
				if err := json.Unmarshal(line, &f); err != nil {
					log.Printf("Received raw: %s", line)
					continue
				}
				printFrame(f)
			}
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// 4. Read from stdin and send commands
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			text := scanner.Text()
			if text == "" {
				fmt.Print("> ")
				continue
			}

			if text == "/quit" {
				close(interrupt)
				break
			}

			cmd, ok := parseInput(text)
			if !ok {
				fmt.Print("unknown command\n> ")
				continue
			}

			jsonCmd, _ := json.Marshal(cmd)
			if err := c.WriteMessage(websocket.TextMessage, jsonCmd); err != nil {
				log.Println("write:", err)
				break
			}
			fmt.Print("> ")
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("interrupt")

			// Cleanly close the connection by sending a close message and then
			// waiting (with timeout) for the server to close the connection.
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("write close:", err)
				return
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
