package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mingxuan/fishbowl/pkg/config"
	"github.com/mingxuan/fishbowl/pkg/httputil"
	"github.com/mingxuan/fishbowl/pkg/logger"
	"github.com/mingxuan/fishbowl/pkg/tradingtime"
)

// 群机器人限频20条/分钟，逐条推送之间留间隔
const defaultBatchInterval = 3 * time.Second

// WeComNotifier pushes text messages through a WeCom (企业微信) group bot
// webhook. It implements contracts.Notifier.
// ⭐ SSOT: 所有对外推送只经过这里
type WeComNotifier struct {
	httpClient    *httputil.Client
	logger        *logger.Logger
	webhookURL    string
	enabled       bool
	batchInterval time.Duration
}

// NewWeComNotifier creates a notifier from config. With an empty webhook URL
// or Enabled=false, sends become logged no-ops.
func NewWeComNotifier(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *WeComNotifier {
	return &WeComNotifier{
		httpClient:    httpClient,
		logger:        log,
		webhookURL:    cfg.WeCom.WebhookURL,
		enabled:       cfg.WeCom.Enabled && cfg.WeCom.WebhookURL != "",
		batchInterval: defaultBatchInterval,
	}
}

type wecomPayload struct {
	MsgType string    `json:"msgtype"`
	Text    wecomText `json:"text"`
}

type wecomText struct {
	Content string `json:"content"`
}

type wecomResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// SendText pushes one text message with a Beijing-time prefix.
func (n *WeComNotifier) SendText(ctx context.Context, msg string) error {
	if !n.enabled {
		n.logger.WithField("message", msg).Debug("WeCom push disabled, dropping message")
		return nil
	}

	payload := wecomPayload{
		MsgType: "text",
		Text: wecomText{
			Content: fmt.Sprintf("鱼盆系统时间：%s\n%s", tradingtime.Stamp(time.Now()), msg),
		},
	}

	resp, err := n.httpClient.PostJSON(ctx, n.webhookURL, payload)
	if err != nil {
		return fmt.Errorf("wecom push failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wecom push failed: status %d", resp.StatusCode)
	}

	var result wecomResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("wecom response decode failed: %w", err)
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("wecom push rejected: %s (errcode %d)", result.ErrMsg, result.ErrCode)
	}

	n.logger.Debug("WeCom message pushed")
	return nil
}

// SendBatch pushes messages one by one with a pause between them. Failures
// are logged and counted; the batch keeps going.
func (n *WeComNotifier) SendBatch(ctx context.Context, messages []string) error {
	var failed int
	for i, msg := range messages {
		if err := n.SendText(ctx, msg); err != nil {
			n.logger.WithError(err).WithField("index", i).Error("WeCom batch message failed")
			failed++
		}

		if i < len(messages)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.batchInterval):
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("wecom batch: %d/%d messages failed", failed, len(messages))
	}
	return nil
}
