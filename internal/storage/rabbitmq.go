package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"candidate-search/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const defaultPublishTimeout = 5 * time.Second

// RabbitMQ 发布入库事件，只负责发布，不消费
type RabbitMQ struct {
	conn         *amqp.Connection
	ch           *amqp.Channel
	publishMutex sync.Mutex // amqp.Channel 不是并发安全的
	exchange     string
	routingKey   string
	timeout      time.Duration
	logger       zerolog.Logger
}

// NewRabbitMQ 建立连接并声明 topic exchange
func NewRabbitMQ(cfg *config.RabbitMQConfig, logger zerolog.Logger) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}
	if cfg.CandidateExchange == "" {
		return nil, fmt.Errorf("exchange名称不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("无法创建RabbitMQ通道: %w", err)
	}

	if err := ch.ExchangeDeclare(
		cfg.CandidateExchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("声明exchange失败 (%s): %w", cfg.CandidateExchange, err)
	}

	logger.Info().Str("exchange", cfg.CandidateExchange).Msg("成功连接到RabbitMQ")
	return &RabbitMQ{
		conn:       conn,
		ch:         ch,
		exchange:   cfg.CandidateExchange,
		routingKey: cfg.StoredRoutingKey,
		timeout:    config.GetDuration(cfg.PublishTimeout, defaultPublishTimeout),
		logger:     logger,
	}, nil
}

// PublishMessage 发布持久化消息
func (r *RabbitMQ) PublishMessage(ctx context.Context, routingKey string, message []byte) error {
	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.ch.PublishWithContext(
		ctx,
		r.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         message,
			Timestamp:    time.Now(),
		},
	)
}

// PublishJSON 序列化后发布到配置的路由键
func (r *RabbitMQ) PublishJSON(ctx context.Context, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("JSON序列化失败: %w", err)
	}
	return r.PublishMessage(ctx, r.routingKey, jsonData)
}

// Close 关闭通道和连接
func (r *RabbitMQ) Close() error {
	if r.ch != nil {
		r.ch.Close()
	}
	return r.conn.Close()
}
