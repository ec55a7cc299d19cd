package watchcli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/oremus-labs/watchdesk/internal/revalidate"
)

// streamRevalidations follows the dashboard's SSE feed and invokes handler
// for each event. Returning false from handler stops the stream.
func streamRevalidations(ctx context.Context, baseURL, token string, handler func(revalidate.Event) bool) error {
	base := strings.TrimRight(baseURL, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/stream", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("GET /stream failed: %s", resp.Status)
	}

	reader := bufio.NewReader(resp.Body)
	var (
		eventType string
		dataLines []string
	)

	dispatch := func() bool {
		if len(dataLines) == 0 {
			return true
		}
		raw := strings.Join(dataLines, "\n")
		dataLines = dataLines[:0]

		var evt revalidate.Event
		if err := json.Unmarshal([]byte(raw), &evt); err != nil {
			return true
		}
		if evt.Type == "" {
			evt.Type = eventType
		}
		return handler(evt)
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF || ctx.Err() != nil {
				return nil
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if !dispatch() {
				return nil
			}
			eventType = ""
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(line[len("data:"):]))
		}
	}
}
