package alerting

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RenderMode distinguishes plain text from the lightweight markup mode used
// for actionable reports.
type RenderMode string

const (
	// RenderPlainText delivers the message verbatim.
	RenderPlainText RenderMode = "PLAIN_TEXT"
	// RenderPlainPost delivers the message as markdown.
	RenderPlainPost RenderMode = "PLAIN_POST"
)

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, text string, mode RenderMode) error
}

// MixinNotifier 通过 Mixin webhook 推送消息。
type MixinNotifier struct {
	token   string
	runName string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewMixinNotifier 构造 Mixin 告警器。
func NewMixinNotifier(token, runName, baseURL string, timeout time.Duration, logger zerolog.Logger) *MixinNotifier {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://webhook.exinwork.com"
	}

	return &MixinNotifier{
		token:   token,
		runName: runName,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "alert_mixin").Logger(),
	}
}

// Notify 调用 webhook 推送文本，消息前会加上 run name 头。
func (n *MixinNotifier) Notify(ctx context.Context, text string, mode RenderMode) error {
	endpoint := fmt.Sprintf("%s/api/send?access_token=%s", n.baseURL, url.QueryEscape(n.token))

	form := url.Values{}
	form.Set("category", string(mode))
	form.Set("data", n.runName+"\n"+text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create mixin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mixin request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mixin 响应码异常: %d", resp.StatusCode)
	}

	n.logger.Info().Str("category", string(mode)).Msg("告警已发送 (Mixin)")
	return nil
}

var _ Notifier = (*MixinNotifier)(nil)
