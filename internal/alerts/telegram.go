package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/scanner/internal/brain"
	"github.com/wonny/scanner/internal/contracts"
	"github.com/wonny/scanner/internal/s3_scoring"
	"github.com/wonny/scanner/pkg/config"
	"github.com/wonny/scanner/pkg/httputil"
	"github.com/wonny/scanner/pkg/logger"
)

// maxMessageLen is the Telegram sendMessage text limit
const maxMessageLen = 4096

// TelegramNotifier sends the top HIGH-confidence assets after a run
type TelegramNotifier struct {
	cfg    config.TelegramConfig
	client *httputil.Client
	logger *logger.Logger
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// NewTelegramNotifier creates a notifier; a disabled config makes Publish a no-op
func NewTelegramNotifier(cfg config.TelegramConfig, log *logger.Logger) *TelegramNotifier {
	client := httputil.New("telegram", log).
		WithTimeout(10*time.Second).
		WithRateLimit(rate.Every(time.Second), 1)

	return &TelegramNotifier{
		cfg:    cfg,
		client: client,
		logger: log.WithField("component", "alerts"),
	}
}

// Name implements brain.Sink
func (n *TelegramNotifier) Name() string { return "telegram" }

// Publish sends the alert for a finished run (brain.Sink)
func (n *TelegramNotifier) Publish(ctx context.Context, result *brain.RunResult) error {
	if !n.cfg.Enabled {
		return nil
	}

	picks := Select(result.Assets, n.cfg.TopN, n.cfg.MinScore)
	if len(picks) == 0 {
		n.logger.WithField("min_score", n.cfg.MinScore).Info("No HIGH confidence assets to alert")
		return nil
	}

	return n.Send(ctx, FormatMessage(result.Summary, picks))
}

// Send posts one text message
func (n *TelegramNotifier) Send(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(n.cfg.BaseURL, "/"), n.cfg.Token)

	resp, err := n.client.PostJSON(ctx, url, sendMessageRequest{
		ChatID:                n.cfg.ChatID,
		Text:                  text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("telegram read response: %w", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("telegram status %d: unreadable response", resp.StatusCode)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram status %d: %s", resp.StatusCode, parsed.Description)
	}

	n.logger.WithField("chars", len(text)).Info("Telegram alert sent")
	return nil
}

// Select returns up to n HIGH-confidence assets scoring at least minScore
func Select(assets []contracts.ScoredAsset, n int, minScore float64) []contracts.ScoredAsset {
	eligible := make([]contracts.ScoredAsset, 0)
	for _, a := range assets {
		if a.Result.ConfidenceLabel == contracts.ConfidenceHigh && a.Result.Score >= minScore {
			eligible = append(eligible, a)
		}
	}
	return s3_scoring.TopN(eligible, n)
}

// FormatMessage renders the alert text
func FormatMessage(summary contracts.RunSummary, picks []contracts.ScoredAsset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scanner %s: top %d HIGH confidence\n", summary.RunDate.Format(contracts.DateLayout), len(picks))

	for i, a := range picks {
		name := a.Record.Ticker
		if name == "" {
			name = a.Record.Identifier
		}
		line := fmt.Sprintf("%d. %s  score %.1f  opp %.0f  risk %.0f  conf %.0f  [%s]\n",
			i+1, name, a.Result.Score, a.Result.OpportunityScore, a.Result.RiskScore,
			a.Result.ConfidenceScore, a.Result.Regime)
		if b.Len()+len(line) > maxMessageLen {
			break
		}
		b.WriteString(line)
	}
	return strings.TrimRight(b.String(), "\n")
}
