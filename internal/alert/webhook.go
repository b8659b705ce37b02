package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// sendTimeout bounds a single webhook delivery.
const sendTimeout = 5 * time.Second

// Send posts the event to a single webhook. Best-effort: failures are
// reported on stderr and otherwise ignored.
func Send(cfg Config, event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: sendTimeout}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "alert: webhook %s failed: %v\n", cfg.URL, err)
		return
	}
	resp.Body.Close()
}
