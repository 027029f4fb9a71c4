// Smoke test against a running server: registers two accounts, lists users,
// and reads an (empty) conversation.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type session struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

func post(url string, body any) ([]byte, error) {
	raw, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s", resp.Status, out)
	}
	return out, nil
}

func get(url, token string) ([]byte, error) {
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s", resp.Status, out)
	}
	return out, nil
}

func main() {
	base := "http://localhost:8080"
	suffix := time.Now().UnixMilli()

	var alice, bob session
	for _, u := range []struct {
		name string
		out  *session
	}{{"alice", &alice}, {"bob", &bob}} {
		raw, err := post(base+"/api/register", map[string]string{
			"name":     u.name,
			"email":    fmt.Sprintf("%s-%d@example.com", u.name, suffix),
			"password": "smoke-test-password",
		})
		if err != nil {
			log.Fatalf("register %s: %v", u.name, err)
		}
		if err := json.Unmarshal(raw, u.out); err != nil {
			log.Fatalf("decode %s: %v", u.name, err)
		}
		log.Printf("registered %s as user %d", u.name, u.out.ID)
	}

	users, err := get(base+"/api/users", alice.Token)
	if err != nil {
		log.Fatal("list users: ", err)
	}
	log.Printf("users visible to alice: %s", users)

	history, err := get(fmt.Sprintf("%s/api/messages/%d", base, bob.ID), alice.Token)
	if err != nil {
		log.Fatal("history: ", err)
	}
	log.Printf("alice<->bob history: %s", history)

	log.Println("API OK")
}
