package dal

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"wht-store-pay/internal/config"
)

var (
	mqConn    *amqp.Connection
	mqChannel *amqp.Channel

	mu sync.Mutex

	// 用 NotifyClose 事件判断是否已关闭
	connClosedCh chan *amqp.Error
	chClosedCh   chan *amqp.Error

	reconnecting bool
)

// InitRabbitMQ 首次连接并声明支付事件交换机
func InitRabbitMQ() error {
	return connect()
}

func connect() error {
	mu.Lock()
	defer mu.Unlock()

	if isConnAlive() && isChanAlive() {
		return nil
	}

	log.Printf("[RabbitMQ] 🌀 连接中, exchange=%s", config.C.RabbitMQ.Exchange)
	conn, err := amqp.Dial(config.C.RabbitMQ.URL)
	if err != nil {
		return fmt.Errorf("连接失败: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("创建通道失败: %w", err)
	}
	if err := ch.ExchangeDeclare(config.C.RabbitMQ.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("声明交换机失败: %w", err)
	}

	mqConn = conn
	connClosedCh = conn.NotifyClose(make(chan *amqp.Error, 1))
	mqChannel = ch
	chClosedCh = ch.NotifyClose(make(chan *amqp.Error, 1))

	log.Printf("[RabbitMQ] ✅ 初始化成功")
	go watchClose(connClosedCh, chClosedCh)
	return nil
}

func watchClose(connCh, chCh chan *amqp.Error) {
	select {
	case err, ok := <-connCh:
		if ok {
			log.Printf("[RabbitMQ] ⚠️ 连接关闭: %v", err)
		}
	case err, ok := <-chCh:
		if ok {
			log.Printf("[RabbitMQ] ⚠️ 通道关闭: %v", err)
		}
	}
	reconnect()
}

// 自愈重连（阻塞重试直至成功）
func reconnect() {
	mu.Lock()
	if reconnecting {
		mu.Unlock()
		return
	}
	reconnecting = true
	mu.Unlock()

	defer func() {
		mu.Lock()
		reconnecting = false
		mu.Unlock()
	}()

	for {
		log.Println("[RabbitMQ] 🔄 正在重连...")
		if err := connect(); err == nil {
			log.Println("[RabbitMQ] ✅ 重连成功")
			return
		}
		time.Sleep(5 * time.Second)
	}
}

func isConnAlive() bool {
	if mqConn == nil || connClosedCh == nil {
		return false
	}
	select {
	case <-connClosedCh:
		return false
	default:
		return true
	}
}

func isChanAlive() bool {
	if mqChannel == nil || chClosedCh == nil {
		return false
	}
	select {
	case <-chClosedCh:
		return false
	default:
		return true
	}
}

// GetChannel returns nil while the broker is unreachable; callers drop the message.
func GetChannel() *amqp.Channel {
	mu.Lock()
	defer mu.Unlock()
	if !isChanAlive() {
		return nil
	}
	return mqChannel
}
