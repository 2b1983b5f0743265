package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eleven-am/live-captions/internal/transport"
	"github.com/redis/go-redis/v9"
)

const roomChannel = "room:%s:captions"

type room struct {
	members map[string]transport.Connection
	cancel  context.CancelFunc
}

// Hub tracks which local connections sit in which room and fans room
// events out to them. With a redis client, events travel through a
// per-room pub/sub channel so members on other processes receive them too.
type Hub struct {
	redis  *redis.Client
	logger *slog.Logger
	rooms  map[string]*room
	mu     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHub(redisClient *redis.Client, logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		redis:  redisClient,
		logger: logger.With("component", "hub"),
		rooms:  make(map[string]*room),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (h *Hub) Join(ctx context.Context, roomID string, conn transport.Connection) error {
	if h.addMember(roomID, conn) {
		return nil
	}

	var cancel context.CancelFunc
	if h.redis != nil {
		var err error
		if cancel, err = h.subscribe(ctx, roomID); err != nil {
			return err
		}
	}

	h.mu.Lock()
	if r, ok := h.rooms[roomID]; ok {
		r.members[conn.ID()] = conn
		h.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return nil
	}
	h.rooms[roomID] = &room{
		members: map[string]transport.Connection{conn.ID(): conn},
		cancel:  cancel,
	}
	h.mu.Unlock()

	h.logger.Debug("room opened", "room_id", roomID)
	return nil
}

// addMember adds conn to an existing room and reports whether the room existed.
func (h *Hub) addMember(roomID string, conn transport.Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	if ok {
		r.members[conn.ID()] = conn
	}
	return ok
}

func (h *Hub) Leave(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(r.members, connID)
	if len(r.members) > 0 {
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	delete(h.rooms, roomID)
	h.logger.Debug("room closed", "room_id", roomID)
}

func (h *Hub) Publish(ctx context.Context, roomID string, evt transport.ServerEvent) error {
	if h.redis == nil {
		h.deliver(roomID, evt)
		return nil
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal room event: %w", err)
	}
	if err := h.redis.Publish(ctx, fmt.Sprintf(roomChannel, roomID), data).Err(); err != nil {
		return fmt.Errorf("publish room event: %w", err)
	}
	return nil
}

func (h *Hub) subscribe(ctx context.Context, roomID string) (context.CancelFunc, error) {
	channel := fmt.Sprintf(roomChannel, roomID)
	pubsub := h.redis.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	subCtx, cancel := context.WithCancel(h.ctx)
	h.wg.Add(1)
	go h.listen(subCtx, roomID, pubsub)
	return cancel, nil
}

func (h *Hub) listen(ctx context.Context, roomID string, pubsub *redis.PubSub) {
	defer h.wg.Done()
	defer pubsub.Close()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.logger.Error("receive room event", "error", err, "room_id", roomID)
			return
		}

		var evt transport.ServerEvent
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			h.logger.Error("unmarshal room event", "error", err, "room_id", roomID)
			continue
		}
		h.deliver(roomID, evt)
	}
}

func (h *Hub) deliver(roomID string, evt transport.ServerEvent) {
	h.mu.RLock()
	r, ok := h.rooms[roomID]
	var members []transport.Connection
	if ok {
		members = make([]transport.Connection, 0, len(r.members))
		for _, conn := range r.members {
			members = append(members, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range members {
		if err := conn.Send(h.ctx, evt); err != nil {
			h.logger.Warn("deliver room event", "error", err, "room_id", roomID, "conn_id", conn.ID())
		}
	}
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) MemberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r, ok := h.rooms[roomID]; ok {
		return len(r.members)
	}
	return 0
}

func (h *Hub) Close() error {
	h.cancel()
	h.mu.Lock()
	h.rooms = make(map[string]*room)
	h.mu.Unlock()
	h.wg.Wait()
	return nil
}
