// Package main provides the host CLI entry point.
package main

import (
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
	app    = kingpin.New("vibeq-hostcli", "vibeQ host client")
	server = app.Flag("server", "Server address").Default("http://localhost:8000").String()
	token  = app.Flag("token", "Host token (or set HOST_TOKEN env)").Envar("HOST_TOKEN").String()

	// queue command
	queueCmd = app.Command("queue", "Show the current queue").Alias("status")

	// approve command
	approveCmd = app.Command("approve", "Approve a pending request")
	approveID  = approveCmd.Arg("request-id", "Request ID (UUID)").Required().String()

	// deny command
	denyCmd = app.Command("deny", "Deny a pending request")
	denyID  = denyCmd.Arg("request-id", "Request ID (UUID)").Required().String()

	// remove command
	removeCmd = app.Command("remove", "Remove an approved request from the queue")
	removeID  = removeCmd.Arg("request-id", "Request ID (UUID)").Required().String()

	// skip command
	skipCmd = app.Command("skip", "Skip the now-playing request")
	skipID  = skipCmd.Arg("request-id", "Request ID (UUID)").Required().String()

	// reorder command
	reorderCmd = app.Command("reorder", "Reorder the upcoming queue")
	reorderIDs = reorderCmd.Arg("request-ids", "Request IDs in desired order").Required().Strings()

	// shuffle command
	shuffleCmd = app.Command("shuffle", "Shuffle the upcoming queue")

	// clear command
	clearCmd = app.Command("clear", "Clear the whole party queue")

	// pause / resume commands
	pauseCmd  = app.Command("pause", "Pause device playback")
	resumeCmd = app.Command("resume", "Resume device playback")

	// seek command
	seekCmd = app.Command("seek", "Seek within the now-playing track")
	seekPos = seekCmd.Arg("position", "Position from track start (e.g. 1m30s)").Required().Duration()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *token == "" {
		fmt.Println("Error: host token is required (use --token or HOST_TOKEN env)")
		os.Exit(1)
	}

	c := &client{
		base:  strings.TrimRight(*server, "/"),
		token: *token,
		http:  &http.Client{Timeout: 15 * time.Second},
	}
	ctx := context.Background()

	switch command {
	case queueCmd.FullCommand():
		showQueue(ctx, c)
	case approveCmd.FullCommand():
		act(ctx, c, "/api/requests/"+*approveID+"/approve", nil, "Request approved")
	case denyCmd.FullCommand():
		act(ctx, c, "/api/requests/"+*denyID+"/deny", nil, "Request denied")
	case removeCmd.FullCommand():
		act(ctx, c, "/api/requests/"+*removeID+"/remove", nil, "Request removed")
	case skipCmd.FullCommand():
		act(ctx, c, "/api/requests/"+*skipID+"/skip", nil, "Track skipped")
	case reorderCmd.FullCommand():
		act(ctx, c, "/api/queue/reorder", map[string]any{"ids": *reorderIDs}, "Queue reordered")
	case shuffleCmd.FullCommand():
		act(ctx, c, "/api/queue/shuffle", nil, "Queue shuffled")
	case clearCmd.FullCommand():
		act(ctx, c, "/api/queue/clear", nil, "Queue cleared")
	case pauseCmd.FullCommand():
		act(ctx, c, "/api/player/pause", nil, "Playback paused")
	case resumeCmd.FullCommand():
		act(ctx, c, "/api/player/resume", nil, "Playback resumed")
	case seekCmd.FullCommand():
		body := map[string]any{"position_ms": seekPos.Milliseconds()}
		act(ctx, c, "/api/player/seek", body, fmt.Sprintf("Seeked to %s", *seekPos))
	}
}

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c *client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Host-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("%s (%s)", apiErr.Message, apiErr.Code)
		}
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}
	return data, nil
}

func act(ctx context.Context, c *client, path string, body any, okMessage string) {
	if _, err := c.do(ctx, "POST", path, body); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(okMessage)
}

func showQueue(ctx context.Context, c *client) {
	data, err := c.do(ctx, "GET", "/api/queue", nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	var view party.View
	if err := json.Unmarshal(data, &view); err != nil {
		fmt.Printf("Error: invalid response: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n=== PARTY QUEUE ===")
	if view.NowPlaying != nil {
		state := "playing"
		if view.Paused {
			state = "paused"
		}
		fmt.Printf("\nNow Playing [%s, %s / %s]:\n", state,
			formatMs(view.PositionMs), formatMs(view.DurationMs))
		printRequest(*view.NowPlaying)
	} else {
		fmt.Println("\nNothing playing")
	}
	if !view.Connected {
		fmt.Println("(device disconnected)")
	}

	fmt.Printf("\nUpcoming (%d):\n", len(view.Upcoming))
	for i, req := range view.Upcoming {
		fmt.Printf("%3d. ", i+1)
		printRequest(req)
	}

	fmt.Printf("\nPending review (%d):\n", len(view.Pending))
	for _, req := range view.Pending {
		fmt.Print("  -  ")
		printRequest(req)
	}
	fmt.Println()
}

func printRequest(req request.Request) {
	fmt.Printf("%s - %s [%s] (%s)\n", req.Title, req.Artist, req.Duration.Round(time.Second), req.ID)
}

func formatMs(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
