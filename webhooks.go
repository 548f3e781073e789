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

package shadowpay

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shadowpay/shadowpay/config"
	"github.com/shadowpay/shadowpay/internal/request"
	"github.com/shadowpay/shadowpay/model"
	"github.com/sirupsen/logrus"
)

const (
	EventLinkCreated   = "link.created"
	EventLinkPaid      = "link.paid"
	EventLinkWithdrawn = "link.withdrawn"
)

const (
	webhookMaxRetry = 5
	webhookTimeout  = 30 * time.Second
)

type NewWebhook struct {
	ID      string      `json:"id"`
	Event   string      `json:"event"`
	Payload interface{} `json:"data"`
	SentAt  time.Time   `json:"sent_at"`
}

// SendWebhook enqueues an event for delivery. It is a no-op when no webhook URL is configured.
func (q *Queue) SendWebhook(event string, payload interface{}) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	data, err := json.Marshal(NewWebhook{
		ID:      model.GenerateUUIDWithSuffix("evt"),
		Event:   event,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	task := asynq.NewTask(q.name, data, asynq.Queue(q.name), asynq.MaxRetry(webhookMaxRetry))
	info, err := q.Client.Enqueue(task)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"event": event, "task_id": info.ID}).Debug("webhook enqueued")
	return nil
}

// publish hands a link event to the queue. Failures are logged and never fail the operation.
func (s *ShadowPay) publish(ctx context.Context, event string, link *model.Link) {
	if s.queue == nil {
		return
	}
	_, span := tracer.Start(ctx, "PublishEvent")
	defer span.End()

	if err := s.queue.SendWebhook(event, link); err != nil {
		logrus.WithFields(logrus.Fields{"event": event, "link_id": link.LinkID}).WithError(err).Error("failed to enqueue webhook")
	}
}

// ProcessWebhook delivers one queued event to the configured URL. A non-2xx
// answer is returned as an error so asynq retries it.
func ProcessWebhook(ctx context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var payload NewWebhook
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logrus.WithError(err).Error("invalid webhook payload")
		return asynq.SkipRetry
	}

	ctx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()

	body, err := request.ToJsonReq(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, conf.Notification.Webhook.Url, body)
	if err != nil {
		return err
	}
	for key, value := range conf.Notification.Webhook.Headers {
		req.Header.Set(key, value)
	}

	if _, err := request.Call(nil, req, nil); err != nil {
		logrus.WithFields(logrus.Fields{"event": payload.Event, "id": payload.ID}).WithError(err).Warn("webhook delivery failed")
		return err
	}
	logrus.WithField("event", payload.Event).Info("webhook delivered")
	return nil
}
