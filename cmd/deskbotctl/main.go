package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/deskbot-io/deskbot/internal/config"
)

func main() {
	godotenv.Load() // picks up DESKBOT_API_URL and DESKBOT_API_KEY from .env

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "health":
		cmdHealth()
	case "sessions":
		cmdSessions()
	case "clients":
		if len(os.Args) >= 3 && os.Args[2] == "refresh" {
			cmdClientsRefresh()
			return
		}
		cmdClients()
	case "tickets":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: deskbotctl tickets <list|history>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "list":
			if len(os.Args) < 4 {
				fmt.Fprintln(os.Stderr, "usage: deskbotctl tickets list <client>")
				os.Exit(1)
			}
			cmdTicketsList(os.Args[3])
		case "history":
			if len(os.Args) < 4 {
				fmt.Fprintln(os.Stderr, "usage: deskbotctl tickets history <id>")
				os.Exit(1)
			}
			cmdTicketsHistory(os.Args[3])
		default:
			fmt.Fprintf(os.Stderr, "unknown tickets subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "logs":
		cmdLogs()
	case "broadcast":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: deskbotctl broadcast <message>")
			os.Exit(1)
		}
		cmdBroadcast(strings.Join(os.Args[2:], " "))
	case "config":
		if len(os.Args) < 4 || os.Args[2] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: deskbotctl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(os.Args[3])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func cmdHealth() {
	body := mustGet("/api/health")
	fmt.Println(strings.TrimSpace(string(body)))
}

func cmdSessions() {
	body := mustGet("/api/sessions")
	var sessions map[string]struct {
		Status         string    `json:"status"`
		LastActivity   time.Time `json:"last_activity"`
		ActiveTicketID string    `json:"active_ticket_id"`
	}
	json.Unmarshal(body, &sessions)

	ids := make([]string, 0, len(sessions))
	for id := range sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		s := sessions[id]
		ticket := s.ActiveTicketID
		if ticket == "" {
			ticket = "-"
		}
		fmt.Printf("%-20s %-8s %-16s %s\n", id, s.Status, ticket, s.LastActivity.Format("2006-01-02 15:04"))
	}
}

func cmdClients() {
	body := mustGet("/api/clients")
	var clients map[string]string
	json.Unmarshal(body, &clients)

	ids := make([]string, 0, len(clients))
	for id := range clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Printf("%-20s %s\n", id, clients[id])
	}
}

func cmdClientsRefresh() {
	body := mustPost("/api/clients/refresh", "")
	fmt.Println(strings.TrimSpace(string(body)))
}

func cmdTicketsList(client string) {
	body := mustGet("/api/tickets?client=" + url.QueryEscape(client))
	var refs []struct {
		ID               string `json:"id"`
		ShortDescription string `json:"short_description"`
	}
	json.Unmarshal(body, &refs)
	for _, r := range refs {
		fmt.Printf("%-16s %s\n", r.ID, r.ShortDescription)
	}
}

func cmdTicketsHistory(id string) {
	body := mustGet("/api/tickets/" + url.PathEscape(id) + "/history")
	var blocks []string
	json.Unmarshal(body, &blocks)
	for _, b := range blocks {
		fmt.Println(b)
		fmt.Println()
	}
}

func cmdLogs() {
	body := mustGet("/api/logs?limit=100")
	var entries []struct {
		Time    time.Time `json:"time"`
		Level   string    `json:"level"`
		Message string    `json:"message"`
	}
	json.Unmarshal(body, &entries)
	for _, e := range entries {
		fmt.Printf("%s %-5s %s\n", e.Time.Format("15:04:05"), e.Level, e.Message)
	}
}

func cmdBroadcast(text string) {
	payload, _ := json.Marshal(map[string]string{"text": text})
	body := mustPost("/api/broadcast", string(payload))
	var counts map[string]int
	json.Unmarshal(body, &counts)
	fmt.Printf("sent: %d, failed: %d\n", counts["sent"], counts["failed"])
}

func cmdConfigValidate(path string) {
	if _, err := config.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("config is valid")
}

// --- Helpers ---

func mustGet(path string) []byte {
	body, err := request("GET", path, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return body
}

func mustPost(path, body string) []byte {
	out, err := request("POST", path, body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return out
}

func request(method, path, body string) ([]byte, error) {
	base := envOr("DESKBOT_API_URL", "http://localhost:8080")

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, base+path, reader)
	if err != nil {
		return nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := os.Getenv("DESKBOT_API_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(out))
	}
	return out, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Println("deskbotctl — support bot management CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  health                 Check daemon health")
	fmt.Println("  sessions               List group sessions")
	fmt.Println("  clients                List known client groups")
	fmt.Println("  clients refresh        Schedule a directory refresh")
	fmt.Println("  tickets list <client>  List a client's open tickets")
	fmt.Println("  tickets history <id>   Show a ticket's comment history")
	fmt.Println("  logs                   Tail recent daemon logs")
	fmt.Println("  broadcast <message>    Send a notice to every group")
	fmt.Println("  config validate <p>    Validate config file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  DESKBOT_API_URL  Daemon URL (default: http://localhost:8080)")
	fmt.Println("  DESKBOT_API_KEY  API key for authentication")
}
