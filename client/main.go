// Terminal client for manual testing: logs in over the REST API, connects
// the websocket, and exchanges direct messages from stdin.
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
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ridwanf/dmrelay/pkg/model"
)

type sessionResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

type sendRequest struct {
	To      int64  `json:"to"`
	Content string `json:"content"`
}

func login(serverURL, email, password string) (*sessionResponse, error) {
	reqBody, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(serverURL+"/api/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("login failed: %s", string(body))
	}

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "server address")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	to := flag.Int64("to", 0, "default recipient user id")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("both -email and -password are required")
	}

	serverURL := "http://" + *serverAddr

	// 1. Login to get a token.
	session, err := login(serverURL, *email, *password)
	if err != nil {
		log.Fatal("login: ", err)
	}
	log.Printf("logged in as %s (id %d)", session.Name, session.ID)

	// 2. Connect the websocket with the token.
	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws"}
	header := http.Header{}
	header.Add("Authorization", "Bearer "+session.Token)

	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatal("dial: ", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// 3. Print incoming events.
	go func() {
		defer close(done)
		for {
			var ev model.Event
			if err := c.ReadJSON(&ev); err != nil {
				log.Println("read:", err)
				return
			}
			switch ev.Type {
			case model.EventMessage:
				if ev.FromID == session.ID {
					fmt.Printf("\r[sent to %d at %s] %s\n> ", ev.ToID, ev.Timestamp.Local().Format(time.Kitchen), ev.Content)
				} else {
					fmt.Printf("\r[%d] %s\n> ", ev.FromID, ev.Content)
				}
			case model.EventError:
				fmt.Printf("\r[error %s] %s\n> ", ev.Code, ev.Detail)
			}
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// 4. Read stdin and send. "/to N" switches the recipient, "/quit" exits.
	go func() {
		recipient := *to
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				fmt.Print("> ")
				continue
			}

			if text == "/quit" {
				close(interrupt)
				break
			}

			if after, ok := strings.CutPrefix(text, "/to "); ok {
				id, err := strconv.ParseInt(strings.TrimSpace(after), 10, 64)
				if err != nil {
					fmt.Print("usage: /to <user id>\n> ")
					continue
				}
				recipient = id
				fmt.Printf("now messaging user %d\n> ", recipient)
				continue
			}

			if recipient == 0 {
				fmt.Print("no recipient selected, use /to <user id>\n> ")
				continue
			}

			if err := c.WriteJSON(sendRequest{To: recipient, Content: text}); err != nil {
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
