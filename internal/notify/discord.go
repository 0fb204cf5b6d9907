// internal/notify/discord.go
//
// Win announcements over a Discord webhook. Posts are fire-and-forget: a
// failed or slow webhook must never stall a match, so the HTTP call runs on
// its own goroutine with a short timeout and errors are only logged.
package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const embedColor = 0xffff00

type embed struct {
	Description string `json:"description"`
	Color       int    `json:"color"`
}

type webhookBody struct {
	Embeds []embed `json:"embeds"`
}

// Discord posts announcements. The zero value is not usable; call New.
type Discord struct {
	client *http.Client
}

func New() *Discord {
	return &Discord{client: &http.Client{Timeout: 5 * time.Second}}
}

// AnnounceWin posts the victory-royale embed for a round winner. An empty
// webhook URL disables announcements. Returns immediately.
func (d *Discord) AnnounceWin(webhookURL, name, mode string) {
	if webhookURL == "" {
		return
	}
	suffix := ""
	switch mode {
	case "pvp":
		suffix = " (PVP Mode)"
	case "hell":
		suffix = " (Hell mode)"
	}
	desc := "**" + name + "** has achieved **#1** victory royale!" + suffix

	go d.post(webhookURL, webhookBody{Embeds: []embed{{Description: desc, Color: embedColor}}})
}

func (d *Discord) post(url string, body webhookBody) {
	payload, err := json.Marshal(body)
	if err != nil {
		return
	}
	resp, err := d.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		logrus.Warnf("discord webhook: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		logrus.Warnf("discord webhook: status %d", resp.StatusCode)
	}
}
