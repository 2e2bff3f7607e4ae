package notify

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var errMissingToken = errors.New("missing TELEGRAM_BOT_TOKEN in env")

// NotifyGatewayAlert 支付网关异常报警
// fields must never carry credentials or access tokens.
func NotifyGatewayAlert(level, title, op string, fields map[string]string) {
	NotifySendMsgToTG(chatID, BuildAlert(level, title, op, time.Now(), fields))
}

// NotifyAbuse 疑似恶意请求报警
func NotifyAbuse(title string, fields map[string]string) {
	NotifySendMsgToTG(chatID, BuildAlert("warn", title, "abuse", time.Now(), fields))
}

// BuildAlert renders one alert as Telegram MarkdownV2, fields sorted by key.
func BuildAlert(level, title, op string, at time.Time, fields map[string]string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*\\[%s\\] %s*\n", escapeMarkdown(strings.ToUpper(level)), escapeMarkdown(title)))
	sb.WriteString(fmt.Sprintf("*操作:* %s\n", escapeMarkdown(op)))
	sb.WriteString(fmt.Sprintf("*时间:* %s\n", escapeMarkdown(at.Format("2006-01-02 15:04:05"))))

	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("%s: %s\n", escapeMarkdown(k), escapeMarkdown(fields[k])))
	}
	return sb.String()
}

// escapeMarkdown 转义 Telegram Markdown V2 特殊字符
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"(", "\\(",
		")", "\\)",
		"~", "\\~",
		"`", "\\`",
		">", "\\>",
		"#", "\\#",
		"+", "\\+",
		"-", "\\-",
		"=", "\\=",
		"|", "\\|",
		"{", "\\{",
		"}", "\\}",
		".", "\\.",
		"!", "\\!",
	)
	return replacer.Replace(s)
}
