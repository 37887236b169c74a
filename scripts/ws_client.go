//go:build ignore

// Package main runs a demo WebSocket client for run events.
//
//	go run scripts/ws_client.go path/to/instance.in
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type event struct {
	Type  string         `json:"type"`
	RunID string         `json:"runId"`
	Data  map[string]any `json:"data,omitempty"`
}

func main() {
	if len(os.Args) < 2 {
		logrus.Fatal("usage: ws_client <instance.in>")
	}
	body, err := os.ReadFile(os.Args[1])
	if err != nil {
		logrus.Fatal(err)
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Connect WS before submitting so no event is missed
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/runs/stream"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		logrus.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()
	var hello event
	if err := c.ReadJSON(&hello); err != nil || hello.Type != "subscribed" {
		logrus.Fatalf("subscribe: %v %+v", err, hello)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m event
			if err := c.ReadJSON(&m); err != nil {
				logrus.Infof("read: %v", err)
				return
			}
			logrus.WithFields(logrus.Fields{"run": m.RunID, "data": m.Data}).Info("WS <- " + m.Type)
			if m.Type == "run.completed" {
				return
			}
		}
	}()

	req, _ := http.NewRequest(http.MethodPost, base+"/v1/optimize?name=ws-demo", bytes.NewReader(body))
	req.Header.Set("Content-Type", "text/plain")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logrus.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var optResp struct {
		ID    string `json:"id"`
		Score int64  `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&optResp); err != nil {
		logrus.Fatal(err)
	}
	logrus.Infof("Run ID: %s score %d", optResp.ID, optResp.Score)

	// Wait briefly to receive the completion event
	select {
	case <-time.After(5 * time.Second):
	case <-done:
	}
}
