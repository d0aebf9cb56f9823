package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	server := flag.String("server", "http://localhost:3210", "Reverie server URL")
	session := flag.String("session", "", "Session ID to resume (empty starts fresh)")
	flag.Parse()

	fmt.Println("Reverie CLI Chat")
	fmt.Printf("Server: %s\n", *server)
	fmt.Println("Type 'exit' or 'quit' to leave.")
	fmt.Println("Commands: /recall, /stats, /note <category> <text>")
	fmt.Println("---")

	sessionID := *session

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Bye!")
			return
		}
		if input == "/recall" {
			fetchRecall(*server, sessionID)
			continue
		}
		if input == "/stats" {
			fetchStats(*server)
			continue
		}
		if strings.HasPrefix(input, "/note ") {
			postNote(*server, sessionID, strings.TrimPrefix(input, "/note "))
			continue
		}

		sessionID = sendMessage(*server, sessionID, input)
	}
}

type turnResult struct {
	SessionID string `json:"session_id"`
	Turn      int    `json:"turn"`
	Reply     string `json:"reply"`
	Memories  []atom `json:"memories"`
	Axioms    []atom `json:"axioms"`
}

type atom struct {
	Category string `json:"category"`
	Content  string `json:"content"`
	Turn     int    `json:"turn"`
}

func sendMessage(server, sessionID, content string) string {
	body, _ := json.Marshal(map[string]string{
		"session_id": sessionID,
		"message":    content,
	})

	client := &http.Client{Timeout: 130 * time.Second}
	resp, err := client.Post(server+"/api/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		printError("Request failed: %v", err)
		return sessionID
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		printError("Server error (%d): %s", resp.StatusCode, string(data))
		return sessionID
	}

	var turn turnResult
	if err := json.NewDecoder(resp.Body).Decode(&turn); err != nil {
		printError("Failed to parse response: %v", err)
		return sessionID
	}

	for _, a := range turn.Axioms {
		fmt.Printf("\033[33m[axiom]\033[0m %s\n", a.Content)
	}
	for _, a := range turn.Memories {
		fmt.Printf("\033[90m[recalled t%d]\033[0m %s\n", a.Turn, a.Content)
	}
	fmt.Printf("\033[36m[reverie]\033[0m %s\n", turn.Reply)
	return turn.SessionID
}

func fetchRecall(server, sessionID string) {
	if sessionID == "" {
		printError("No session yet — say something first.")
		return
	}
	resp, err := http.Get(server + "/api/sessions/" + sessionID + "/recall")
	if err != nil {
		printError("Failed to fetch recall: %v", err)
		return
	}
	defer resp.Body.Close()

	var res struct {
		Memories []atom `json:"memories"`
		Axioms   []atom `json:"axioms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		printError("Failed to parse recall: %v", err)
		return
	}
	if len(res.Memories) == 0 && len(res.Axioms) == 0 {
		fmt.Println("Nothing would be recalled right now.")
		return
	}
	for _, a := range res.Axioms {
		fmt.Printf("  \033[33maxiom\033[0m %s\n", a.Content)
	}
	for _, a := range res.Memories {
		fmt.Printf("  \033[90mt%d %s\033[0m %s\n", a.Turn, a.Category, a.Content)
	}
}

func fetchStats(server string) {
	resp, err := http.Get(server + "/api/graph/stats")
	if err != nil {
		printError("Failed to fetch stats: %v", err)
		return
	}
	defer resp.Body.Close()

	var stats struct {
		Nodes int `json:"nodes"`
		Edges int `json:"edges"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		printError("Failed to parse stats: %v", err)
		return
	}
	fmt.Printf("Association graph: %d nodes, %d edges\n", stats.Nodes, stats.Edges)
}

func postNote(server, sessionID, rest string) {
	if sessionID == "" {
		printError("No session yet — say something first.")
		return
	}
	parts := strings.SplitN(rest, " ", 2)
	if len(parts) != 2 {
		printError("Usage: /note <category> <text>")
		return
	}

	body, _ := json.Marshal(map[string]string{
		"category": parts[0],
		"content":  parts[1],
	})
	resp, err := http.Post(server+"/api/sessions/"+sessionID+"/notes",
		"application/json", bytes.NewReader(body))
	if err != nil {
		printError("Request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		printError("Server error (%d): %s", resp.StatusCode, string(data))
		return
	}
	fmt.Println("Noted.")
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[31m"+format+"\033[0m\n", args...)
}
