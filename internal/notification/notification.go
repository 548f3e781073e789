/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package notification

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shadowpay/shadowpay/config"
	"github.com/shadowpay/shadowpay/internal/request"
	"github.com/sirupsen/logrus"
)

// WebhookSender delivers an event to the configured webhook.
type WebhookSender func(event string, payload interface{}) error

var (
	senderMu      sync.RWMutex
	webhookSender WebhookSender
)

// RegisterWebhookSender lets the service route system errors to its webhook queue.
func RegisterWebhookSender(sender WebhookSender) {
	senderMu.Lock()
	defer senderMu.Unlock()
	webhookSender = sender
}

func registeredSender() WebhookSender {
	senderMu.RLock()
	defer senderMu.RUnlock()
	return webhookSender
}

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

// SlackNotification posts err to a Slack incoming webhook.
func SlackNotification(ctx context.Context, webhookURL string, err error) error {
	message := map[string][]slackBlock{
		"blocks": {
			{Type: "header", Text: &slackText{Type: "plain_text", Text: "Error From ShadowPay", Emoji: true}},
			{Type: "section", Fields: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("*Error:*\n%v", err)}}},
			{Type: "section", Fields: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("*Time:*\n%v", time.Now().Format(time.RFC822))}}},
		},
	}

	payload, reqErr := request.ToJsonReq(message)
	if reqErr != nil {
		return reqErr
	}
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, payload)
	if reqErr != nil {
		return reqErr
	}
	// Slack answers "ok" as plain text
	_, reqErr = request.Call(nil, req, nil)
	return reqErr
}

// NotifyError logs systemError and forwards it to Slack and the webhook sender
// when they are configured. Delivery happens in the background.
func NotifyError(systemError error) {
	go func(systemError error) {
		logrus.Error(systemError)

		conf, err := config.Fetch()
		if err != nil {
			logrus.Error(err)
			return
		}

		if conf.Notification.Slack.WebhookUrl != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := SlackNotification(ctx, conf.Notification.Slack.WebhookUrl, systemError); err != nil {
				logrus.WithError(err).Warn("slack notification failed")
			}
		}

		if sender := registeredSender(); sender != nil {
			if err := sender("system.error", map[string]string{"error": systemError.Error()}); err != nil {
				logrus.WithError(err).Warn("error webhook failed")
			}
		}
	}(systemError)
}
