// Package main provides the guest CLI entry point.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/osa030/vibeq/internal/app/party"
	"github.com/osa030/vibeq/internal/domain/request"
)

var (
	app    = kingpin.New("vibeq-guestcli", "vibeQ guest client")
	server = app.Flag("server", "Server address").Default("http://localhost:8000").String()

	// search command
	searchCmd   = app.Command("search", "Search the catalog for tracks")
	searchQuery = searchCmd.Arg("query", "Search text").Required().String()

	// request command
	requestCmd = app.Command("request", "Request a track")
	requestRef = requestCmd.Arg("track", "Track ID, URL, or URI").Required().String()

	// queue command
	queueCmd = app.Command("queue", "Show the current queue")

	// subscribe command
	subscribeCmd = app.Command("subscribe", "Follow queue events live")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	base := strings.TrimRight(*server, "/")
	httpClient := &http.Client{Timeout: 15 * time.Second}
	ctx := context.Background()

	switch command {
	case searchCmd.FullCommand():
		search(ctx, httpClient, base, *searchQuery)
	case requestCmd.FullCommand():
		submit(ctx, httpClient, base, *requestRef)
	case queueCmd.FullCommand():
		showQueue(ctx, httpClient, base)
	case subscribeCmd.FullCommand():
		subscribe(ctx, base)
	}
}

func get(ctx context.Context, c *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %s: %s", resp.Status, data)
	}
	return json.Unmarshal(data, out)
}

func search(ctx context.Context, c *http.Client, base, query string) {
	var resp struct {
		Results []request.Metadata `json:"results"`
	}
	url := base + "/api/search?q=" + strings.ReplaceAll(query, " ", "+")
	if err := get(ctx, c, url, &resp); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d tracks:\n", len(resp.Results))
	for _, meta := range resp.Results {
		marker := ""
		if meta.Explicit {
			marker = " [E]"
		}
		fmt.Printf("  %s - %s (%s)%s\n    ref: %s\n",
			meta.Title, meta.Artist, meta.Duration.Round(time.Second), marker, meta.TrackRef)
	}
}

func submit(ctx context.Context, c *http.Client, base, trackRef string) {
	body, _ := json.Marshal(map[string]string{"track_ref": trackRef})
	req, err := http.NewRequestWithContext(ctx, "POST", base+"/api/requests", bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var result struct {
		Accepted bool            `json:"accepted"`
		Message  string          `json:"message"`
		Request  request.Request `json:"request"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		fmt.Printf("Error: invalid response: %v\n", err)
		os.Exit(1)
	}

	if result.Accepted {
		fmt.Printf("%s\n  %s - %s (id: %s)\n",
			result.Message, result.Request.Title, result.Request.Artist, result.Request.ID)
	} else {
		fmt.Printf("Rejected: %s\n", result.Message)
		os.Exit(1)
	}
}

func showQueue(ctx context.Context, c *http.Client, base string) {
	var view party.View
	if err := get(ctx, c, base+"/api/queue", &view); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if view.NowPlaying != nil {
		fmt.Printf("Now playing: %s - %s\n", view.NowPlaying.Title, view.NowPlaying.Artist)
	} else {
		fmt.Println("Nothing playing")
	}
	fmt.Printf("Up next (%d):\n", len(view.Upcoming))
	for i, req := range view.Upcoming {
		fmt.Printf("%3d. %s - %s\n", i+1, req.Title, req.Artist)
	}
}

// subscribe follows the server-sent event stream and prints each event.
func subscribe(ctx context.Context, base string) {
	// No client timeout: the stream stays open until interrupted.
	c := &http.Client{}
	req, err := http.NewRequestWithContext(ctx, "GET", base+"/api/events", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	resp, err := c.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	fmt.Println("Subscribed to queue events (Ctrl-C to stop)...")
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			fmt.Printf("[%s] %s\n", time.Now().Format(time.TimeOnly), strings.TrimPrefix(line, "event: "))
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Printf("Stream error: %v\n", err)
		os.Exit(1)
	}
}
