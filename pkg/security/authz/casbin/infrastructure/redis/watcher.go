package redis

import (
	"context"
	"sync"

	"github.com/casbin/casbin/v2/persist"
	"github.com/kart-io/logger"
	"github.com/kart-io/sentinel-kb/pkg/infra/pool"
	"github.com/redis/go-redis/v9"
)

// ChannelName is the Redis channel for policy updates.
const ChannelName = "casbin:policy:update"

var _ persist.Watcher = (*Watcher)(nil)

// Watcher 基于 Redis pub/sub 的 Casbin 策略变更监听器。
type Watcher struct {
	client   *redis.Client
	channel  string
	callback func(string)
	pubsub   *redis.PubSub
	closeCh  chan struct{}
	wg       sync.WaitGroup
}

// NewWatcher 创建并立即开始订阅,channel 不传时用 ChannelName。
func NewWatcher(client *redis.Client, channel ...string) *Watcher {
	ch := ChannelName
	if len(channel) > 0 {
		ch = channel[0]
	}

	w := &Watcher{
		client:  client,
		channel: ch,
		closeCh: make(chan struct{}),
	}
	w.startSubscribe()
	return w
}

func (w *Watcher) startSubscribe() {
	w.pubsub = w.client.Subscribe(context.Background(), w.channel)
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Global().Errorw("Recovered from panic in Redis watcher subscription",
					"error", r,
					"component", "redis.watcher",
				)
			}
		}()

		ch := w.pubsub.Channel()
		for {
			select {
			case <-w.closeCh:
				return
			case msg, ok := <-ch:
				if !ok {
					w.onChannelClosed()
					return
				}
				w.dispatch(msg.Payload)
			}
		}
	}()
}

// onChannelClosed 区分主动关闭和网络异常导致的订阅中断。
func (w *Watcher) onChannelClosed() {
	select {
	case <-w.closeCh:
		logger.Global().Debugw("Redis subscription channel closed normally",
			"component", "redis.watcher",
		)
	default:
		logger.Global().Warnw("Redis subscription channel closed unexpectedly",
			"component", "redis.watcher",
			"reason", "possible network disconnect or Redis error",
		)
	}
}

// dispatch 把回调丢进 ants 回调池,避免无限制创建 goroutine;
// 池不可用时降级为裸 goroutine。
func (w *Watcher) dispatch(payload string) {
	callback := w.callback
	if callback == nil {
		return
	}

	task := func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Global().Errorw("Recovered from panic in callback execution",
					"error", r,
					"component", "redis.watcher",
					"payload", payload,
				)
			}
		}()
		callback(payload)
	}

	if err := pool.SubmitToType(pool.CallbackPool, task); err != nil {
		logger.Global().Warnw("failed to submit callback to pool, fallback to goroutine",
			"error", err.Error(),
			"component", "redis.watcher",
		)
		go task()
	}
}

// SetUpdateCallback sets the callback function to handle policy updates.
func (w *Watcher) SetUpdateCallback(callback func(string)) error {
	w.callback = callback
	return nil
}

// Update publishes a policy update message to Redis.
func (w *Watcher) Update() error {
	return w.client.Publish(context.Background(), w.channel, "update").Err()
}

// Close 停止订阅并等待后台 goroutine 退出。
func (w *Watcher) Close() {
	close(w.closeCh)
	if w.pubsub != nil {
		_ = w.pubsub.Close()
	}
	w.wg.Wait()
}
