package notify

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"wht-store-pay/internal/utils"
)

type TelegramMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
	Parse  string `json:"parse_mode"`
}

// APIBase is the Telegram bot API root.
var APIBase = "https://api.telegram.org"

var (
	chatID     string
	httpClient = &http.Client{Timeout: 5 * time.Second}
)

// Init 设置报警群 ID，为空时所有报警只写日志
func Init(chat string) {
	chatID = chat
	if chatID == "" {
		log.Printf("[Notify] Telegram 报警未配置")
	}
}

func SendTelegramMessage(ctx context.Context, chat string, content string) error {
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		return errMissingToken
	}
	msg := TelegramMessage{
		ChatID: chat,
		Text:   content,
		Parse:  "MarkdownV2",
	}
	return utils.HttpDoJSON(ctx, httpClient, http.MethodPost, APIBase+"/bot"+botToken+"/sendMessage", nil, msg, nil)
}

// NotifySendMsgToTG 异步发送，失败只记录日志
func NotifySendMsgToTG(chat string, content string) {
	if chat == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := SendTelegramMessage(ctx, chat, content); err != nil {
			log.Printf("Telegram 消息发送失败: %v", err)
		}
	}()
}
