package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/chatguard/chatguard/automod/engine"
	"github.com/chatguard/chatguard/automod/event"

	"github.com/carlmjohnson/versioninfo"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

var gatewayCursorKey = "automod/gateway-last-message-id"

// Subscribes to the chat platform's websocket gateway, and feeds moderable content to a Dispatcher. The last seen message ID is periodically persisted to redis (if configured) so events missed during a restart are replayed.
type GatewayConsumer struct {
	Host        string
	Token       string
	Logger      *slog.Logger
	RedisClient *redis.Client
	Engine      *engine.Engine
	Dispatcher  *Dispatcher

	// most recent message ID received; stored as a string, read and written from several goroutines
	lastMessageID atomic.Value
}

func (gc *GatewayConsumer) Run(ctx context.Context) error {

	if gc.Engine == nil || gc.Dispatcher == nil {
		return fmt.Errorf("gateway consumer requires an engine and dispatcher")
	}

	cur, err := gc.ReadLastCursor(ctx)
	if err != nil {
		return err
	}

	header := http.Header{
		"User-Agent":    []string{fmt.Sprintf("chatguard-automod/%s", versioninfo.Short())},
		"Authorization": []string{"Bearer " + gc.Token},
	}
	if cur != "" {
		header.Set("guilded-last-message-id", cur)
	}
	gc.Logger.Info("subscribing to gateway", "upstream", gc.Host, "cursor", cur)
	con, _, err := websocket.DefaultDialer.DialContext(ctx, gc.Host, header)
	if err != nil {
		return fmt.Errorf("subscribing to gateway failed (dialing): %w", err)
	}
	return gc.HandleStream(ctx, con)
}

// Reads messages until the connection fails or the context is cancelled.
func (gc *GatewayConsumer) HandleStream(ctx context.Context, con *websocket.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		t := time.NewTicker(time.Second * 30)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				if err := con.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second*10)); err != nil {
					gc.Logger.Warn("failed to ping", "err", err)
				}
			case <-ctx.Done():
				con.Close()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		mt, raw, err := con.ReadMessage()
		if err != nil {
			return err
		}
		if mt != websocket.TextMessage {
			gc.Logger.Warn("ignoring non-text gateway message", "type", mt)
			continue
		}
		var env event.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			gc.Logger.Error("invalid gateway message", "err", err)
			continue
		}
		if err := gc.HandleEnvelope(ctx, &env); err != nil {
			return err
		}
	}
}

// NOTE: only returns an error if the dispatcher can not accept work; bad events are logged and skipped.
func (gc *GatewayConsumer) HandleEnvelope(ctx context.Context, env *event.Envelope) error {
	switch env.Op {
	case event.OpEvent:
		// handled below
	case event.OpWelcome:
		var w event.Welcome
		if err := json.Unmarshal(env.Data, &w); err != nil {
			gc.Logger.Error("invalid gateway welcome", "err", err)
			return nil
		}
		gc.Logger.Info("gateway session established", "botId", w.BotID, "heartbeatMs", w.HeartbeatIntervalMs)
		return nil
	case event.OpResume:
		gc.Logger.Info("gateway replay complete")
		return nil
	default:
		gc.Logger.Warn("gateway error or unknown opcode", "op", env.Op, "data", string(env.Data))
		return nil
	}

	if env.MessageID != "" {
		gc.lastMessageID.Store(env.MessageID)
	}
	gatewayEventsReceived.WithLabelValues(env.Type).Inc()
	logger := gc.Logger.With("eventType", env.Type, "messageId", env.MessageID)

	d, err := event.Decode(env)
	if errors.Is(err, event.ErrUnsupportedEvent) {
		logger.Debug("ignoring gateway event")
		return nil
	}
	if err != nil {
		logger.Error("failed to decode gateway event", "err", err)
		return nil
	}
	if d.ServerLeft() {
		if err := gc.Engine.ServerLeft(ctx, d.ServerID); err != nil {
			logger.Error("failed to tear down server state", "server", d.ServerID, "err", err)
		}
		return nil
	}
	return gc.Dispatcher.AddWork(ctx, d.Item)
}

func (gc *GatewayConsumer) LastMessageID() string {
	v, _ := gc.lastMessageID.Load().(string)
	return v
}

func (gc *GatewayConsumer) ReadLastCursor(ctx context.Context) (string, error) {
	// if redis isn't configured, just skip
	if gc.RedisClient == nil {
		gc.Logger.Info("redis not configured, skipping cursor read")
		return "", nil
	}

	val, err := gc.RedisClient.Get(ctx, gatewayCursorKey).Result()
	if err == redis.Nil {
		gc.Logger.Info("no pre-existing cursor in redis")
		return "", nil
	} else if err != nil {
		return "", err
	}
	gc.Logger.Info("successfully found prior gateway cursor in redis", "messageId", val)
	gc.lastMessageID.Store(val)
	return val, nil
}

func (gc *GatewayConsumer) PersistCursor(ctx context.Context) error {
	// if redis isn't configured, just skip
	if gc.RedisClient == nil {
		return nil
	}
	last := gc.LastMessageID()
	if last == "" {
		return nil
	}
	return gc.RedisClient.Set(ctx, gatewayCursorKey, last, 14*24*time.Hour).Err()
}

// this method runs in a loop, persisting the current cursor state every 5 seconds
func (gc *GatewayConsumer) RunPersistCursor(ctx context.Context) error {

	// if redis isn't configured, just skip
	if gc.RedisClient == nil {
		return nil
	}
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if last := gc.LastMessageID(); last != "" {
				gc.Logger.Info("persisting final gateway cursor", "messageId", last)
				// parent context is already done
				if err := gc.PersistCursor(context.Background()); err != nil {
					gc.Logger.Error("failed to persist cursor", "err", err, "messageId", last)
				}
			}
			return nil
		case <-ticker.C:
			if err := gc.PersistCursor(ctx); err != nil {
				gc.Logger.Error("failed to persist cursor", "err", err, "messageId", gc.LastMessageID())
			}
		}
	}
}
