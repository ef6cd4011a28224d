package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pumpradar/internal/application/port"
	"pumpradar/internal/domain"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	helpText     = "/notifyhere - Send messages about BingX USDT low-price coins events."
	enabledText  = "✅ Notifications enabled for this chat"
	disabledText = "❌ Notifications disabled for this chat"
	startupText  = "Bot started"
)

type Config struct {
	APIURL     string
	Token      string
	ChatIDs    []int64 // 固定接收者
	Store      *ChatStore
	RatePerSec float64
}

// Notifier 通过 Bot API 发送事件，并处理 /start /notifyhere 命令
type Notifier struct {
	apiURL  string
	token   string
	fixed   []int64
	store   *ChatStore
	limiter *rate.Limiter
	client  *http.Client

	pollTimeout time.Duration
	retryDelay  time.Duration
	offset      int64
}

func New(cfg Config) (*Notifier, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram: empty token")
	}
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	store := cfg.Store
	if store == nil {
		store = &ChatStore{}
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 20
	}
	return &Notifier{
		apiURL:      apiURL,
		token:       cfg.Token,
		fixed:       cfg.ChatIDs,
		store:       store,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		client:      &http.Client{Timeout: 40 * time.Second},
		pollTimeout: 30 * time.Second,
		retryDelay:  5 * time.Second,
	}, nil
}

func (n *Notifier) Name() string { return "telegram" }

func (n *Notifier) Notify(ctx context.Context, ev domain.Event) error {
	return n.Broadcast(ctx, FormatEvent(ev))
}

// SendStartup 启动通知
func (n *Notifier) SendStartup(ctx context.Context) error {
	return n.Broadcast(ctx, fmt.Sprintf("%s <b>%s</b>\n", marker(""), startupText))
}

// Recipients 固定接收者与订阅聊天的并集
func (n *Notifier) Recipients() []int64 {
	seen := make(map[int64]struct{})
	out := make([]int64, 0, len(n.fixed))
	for _, list := range [][]int64{n.fixed, n.store.List()} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Broadcast 发送给所有接收者，单个失败不影响其他
func (n *Notifier) Broadcast(ctx context.Context, text string) error {
	var errs []error
	for _, chatID := range n.Recipients() {
		if err := n.SendMessage(ctx, chatID, text); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

type sendMessageReq struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResp struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (n *Notifier) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	body, err := json.Marshal(sendMessageReq{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return err
	}
	_, err = n.call(ctx, http.MethodPost, "sendMessage", nil, body)
	return err
}

func (n *Notifier) call(ctx context.Context, method, apiMethod string, params url.Values, body []byte) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", n.apiURL, n.token, apiMethod)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var r apiResp
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("telegram http %d: %s", resp.StatusCode, string(b))
	}
	if !r.OK {
		return nil, fmt.Errorf("telegram %s: %s", apiMethod, r.Description)
	}
	return r.Result, nil
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// Poll 长轮询 getUpdates 处理命令，直到 ctx 取消
func (n *Notifier) Poll(ctx context.Context) {
	for ctx.Err() == nil {
		if err := n.pollOnce(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("telegram getUpdates failed")
			t := time.NewTimer(n.retryDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
	}
}

func (n *Notifier) pollOnce(ctx context.Context) error {
	params := url.Values{
		"timeout": {strconv.Itoa(int(n.pollTimeout.Seconds()))},
		"offset":  {strconv.FormatInt(n.offset, 10)},
	}
	raw, err := n.call(ctx, http.MethodGet, "getUpdates", params, nil)
	if err != nil {
		return err
	}
	var ups []update
	if err := json.Unmarshal(raw, &ups); err != nil {
		return err
	}
	for _, u := range ups {
		n.offset = u.UpdateID + 1
		if u.Message == nil {
			continue
		}
		n.handleCommand(ctx, u.Message.Chat.ID, u.Message.Text)
	}
	return nil
}

func (n *Notifier) handleCommand(ctx context.Context, chatID int64, text string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return
	}
	cmd, _, _ := strings.Cut(fields[0], "@")

	var reply string
	switch cmd {
	case "/start":
		reply = helpText
	case "/notifyhere":
		enabled, err := n.store.Toggle(chatID)
		if err != nil {
			log.Error().Int64("chat", chatID).Err(err).Msg("save notify chats failed")
		}
		reply = disabledText
		if enabled {
			reply = enabledText
		}
		log.Info().Int64("chat", chatID).Bool("enabled", enabled).Msg("notify chat toggled")
	default:
		return
	}

	if err := n.SendMessage(ctx, chatID, reply); err != nil {
		log.Warn().Int64("chat", chatID).Err(err).Msg("telegram reply failed")
	}
}

var _ port.Notifier = (*Notifier)(nil)
