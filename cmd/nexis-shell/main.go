// Command nexis-shell is a thin interactive client over the Gateway
// Core's HTTP API: create or join a room and send messages, all via
// NEXIS_SERVER. It has no command that reads messages back.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

func serverURL() string {
	if v := os.Getenv("NEXIS_SERVER"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://localhost:8080"
}

func postJSON(path string, body any) (*http.Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return http.Post(serverURL()+path, "application/json", bytes.NewReader(buf))
}

func main() {
	fmt.Println("nexis-shell — connected to", serverURL())
	fmt.Println("commands: room <name>, join <roomId>, say <text>, quit")

	var roomID, sender string
	sender = "shell-user"

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		cmd := fields[0]
		var arg string
		if len(fields) > 1 {
			arg = fields[1]
		}

		switch cmd {
		case "quit", "exit":
			return
		case "room":
			resp, err := postJSON("/v1/rooms", map[string]string{"name": arg})
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			var out struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			}
			_ = json.NewDecoder(resp.Body).Decode(&out)
			resp.Body.Close()
			roomID = out.ID
			fmt.Println("created room", out.ID)
		case "join":
			roomID = arg
			fmt.Println("joined room", roomID)
		case "say":
			if roomID == "" {
				fmt.Println("no room joined; use 'room <name>' or 'join <roomId>' first")
				continue
			}
			resp, err := postJSON("/v1/messages", map[string]string{"roomId": roomID, "sender": sender, "text": arg})
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			resp.Body.Close()
			fmt.Println("sent")
		default:
			fmt.Println("unknown command:", cmd)
		}
	}
}
