package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-live-api/internal/dto"
	"github.com/noah-isme/gema-live-api/internal/models"
	"github.com/noah-isme/gema-live-api/internal/observability"
	"github.com/noah-isme/gema-live-api/internal/repository"
)

const liveSendBufferSize = 64

// RoleTeacher and RoleStudent are the identity roles injected by the auth
// boundary. The live channel trusts them as-is.
const (
	RoleTeacher = "TEACHER"
	RoleStudent = "STUDENT"
)

// ConnectionOptions wraps identity metadata extracted during the HTTP upgrade.
// RoomID, when set, joins the connection to that room before the read loop
// starts; clients may also join later with an explicit join-room event.
type ConnectionOptions struct {
	UserID        string
	Role          string
	RoomID        string
	CorrelationID string
	Context       context.Context
}

// LiveService owns every room's presence and fans out state events to room
// members over websocket connections.
type LiveService interface {
	ServeConnection(conn *websocket.Conn, opts ConnectionOptions)
	Members(roomID string) []string
	BroadcastTestCaseCreated(roomID string, event dto.TestCaseCreatedEvent)
	BroadcastTestCasePublished(roomID string, event dto.TestCasePublishedEvent)
	BroadcastSubmissionUpdate(roomID string, event dto.SubmissionUpdate)
	Stamp(roomID string, kind dto.LiveEventKind) int64
	StatusMap(ctx context.Context, testCaseID string) (map[string]string, error)
}

type liveService struct {
	rooms       repository.RoomRepository
	submissions repository.SubmissionRepository
	hub         *liveHub
	logger      zerolog.Logger
}

// NewLiveService creates the live session service.
func NewLiveService(rooms repository.RoomRepository, submissions repository.SubmissionRepository, logger zerolog.Logger) LiveService {
	return &liveService{
		rooms:       rooms,
		submissions: submissions,
		hub: &liveHub{
			rooms: make(map[string]*liveRoom),
			log:   logger.With().Str("component", "live_hub").Logger(),
		},
		logger: logger.With().Str("component", "live_service").Logger(),
	}
}

// liveHub tracks the per-room presence sets. Room entries are created lazily
// on first join and guard their own state with a per-room mutex; the registry
// lock is only held to look rooms up, never across a broadcast.
type liveHub struct {
	mu    sync.RWMutex
	rooms map[string]*liveRoom
	log   zerolog.Logger
}

// liveRoom holds the connections, the ordered membership, and the current
// shared editor state for one room.
type liveRoom struct {
	mu         sync.Mutex
	id         string
	clients    map[*liveClient]struct{}
	order      []string
	refs       map[string]int
	code       string
	input      string
	output     string
	languageID int
	lastStamp  map[dto.LiveEventKind]int64
}

type liveClient struct {
	conn    *websocket.Conn
	send    chan dto.LiveOutbound
	options ConnectionOptions
	service *liveService
	closed  chan struct{}
	once    sync.Once
	baseCtx context.Context

	mu     sync.Mutex
	roomID string
}

func (h *liveHub) room(roomID string) *liveRoom {
	h.mu.RLock()
	room, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if ok {
		return room
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok = h.rooms[roomID]; ok {
		return room
	}

	room = &liveRoom{
		id:        roomID,
		clients:   make(map[*liveClient]struct{}),
		refs:      make(map[string]int),
		lastStamp: make(map[dto.LiveEventKind]int64),
	}
	h.rooms[roomID] = room
	return room
}

func (h *liveHub) lookup(roomID string) (*liveRoom, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[roomID]
	return room, ok
}

// join registers the client and returns the membership snapshot. Joining is
// idempotent per user id: a second connection for the same user does not
// duplicate the membership entry.
func (r *liveRoom) join(client *liveClient) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[client] = struct{}{}
	userID := client.options.UserID
	if r.refs[userID] == 0 {
		r.order = append(r.order, userID)
	}
	r.refs[userID]++

	return r.snapshotLocked()
}

// leave unregisters the client and returns the membership snapshot, or nil if
// the client was not a member.
func (r *liveRoom) leave(client *liveClient) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[client]; !ok {
		return nil
	}
	delete(r.clients, client)

	userID := client.options.UserID
	r.refs[userID]--
	if r.refs[userID] <= 0 {
		delete(r.refs, userID)
		for i, id := range r.order {
			if id == userID {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}

	return r.snapshotLocked()
}

func (r *liveRoom) snapshotLocked() []string {
	snapshot := make([]string, len(r.order))
	copy(snapshot, r.order)
	return snapshot
}

// stamp returns a wall-clock millisecond timestamp that is strictly
// increasing per room per event kind.
func (r *liveRoom) stamp(kind dto.LiveEventKind) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UnixMilli()
	if last := r.lastStamp[kind]; now <= last {
		now = last + 1
	}
	r.lastStamp[kind] = now
	return now
}

// broadcast fans the event out FIFO to every member, optionally skipping the
// originator. Slow consumers drop the event rather than stalling the room.
func (r *liveRoom) broadcast(event dto.LiveOutbound, exclude *liveClient, log zerolog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for client := range r.clients {
		if client == exclude {
			continue
		}
		select {
		case client.send <- event:
		default:
			log.Warn().Str("room_id", r.id).Str("user_id", client.options.UserID).Str("event", string(event.Event)).Msg("dropping live event for slow client")
		}
	}
}

func (s *liveService) ServeConnection(conn *websocket.Conn, opts ConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	client := &liveClient{
		conn:    conn,
		send:    make(chan dto.LiveOutbound, liveSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
		baseCtx: baseCtx,
	}

	observability.LiveConnections().Inc()

	go client.writer()

	if opts.RoomID != "" {
		s.handleJoin(baseCtx, client, opts.RoomID)
	}

	client.reader()
}

func (s *liveService) Members(roomID string) []string {
	room, ok := s.hub.lookup(roomID)
	if !ok {
		return nil
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return room.snapshotLocked()
}

func (s *liveService) BroadcastTestCaseCreated(roomID string, event dto.TestCaseCreatedEvent) {
	s.broadcastToRoom(roomID, dto.LiveOutbound{Event: dto.EventTestCaseCreated, Data: event}, nil)
}

func (s *liveService) BroadcastTestCasePublished(roomID string, event dto.TestCasePublishedEvent) {
	s.broadcastToRoom(roomID, dto.LiveOutbound{Event: dto.EventTestCasePublished, Data: event}, nil)
}

func (s *liveService) BroadcastSubmissionUpdate(roomID string, event dto.SubmissionUpdate) {
	s.broadcastToRoom(roomID, dto.LiveOutbound{Event: dto.EventSubmissionUpdate, Data: event}, nil)
}

func (s *liveService) Stamp(roomID string, kind dto.LiveEventKind) int64 {
	return s.hub.room(roomID).stamp(kind)
}

// broadcastToRoom delivers to current members only; a broadcast into a room
// nobody joined yet is a no-op.
func (s *liveService) broadcastToRoom(roomID string, event dto.LiveOutbound, exclude *liveClient) {
	room, ok := s.hub.lookup(roomID)
	if !ok {
		return
	}
	observability.LiveEvents().WithLabelValues(string(event.Event)).Inc()
	room.broadcast(event, exclude, s.hub.log)
}

// dispatch routes one inbound event. Every transition of the connection state
// machine lives in this switch.
func (s *liveService) dispatch(ctx context.Context, client *liveClient, inbound dto.LiveInbound) {
	observability.LiveEvents().WithLabelValues(string(inbound.Event)).Inc()

	switch inbound.Event {
	case dto.EventJoinRoom:
		s.handleJoin(ctx, client, inbound.RoomID)
	case dto.EventLeaveRoom:
		s.handleLeave(client)
	case dto.EventCodeChange:
		s.handleStateChange(ctx, client, dto.EventCodeUpdate, inbound)
	case dto.EventInputChange:
		s.handleStateChange(ctx, client, dto.EventInputUpdate, inbound)
	case dto.EventOutputChange:
		s.handleStateChange(ctx, client, dto.EventOutputUpdate, inbound)
	case dto.EventLanguageChange:
		s.handleStateChange(ctx, client, dto.EventLanguageUpdate, inbound)
	case dto.EventSubmissionStatus:
		s.handleSubmissionStatus(ctx, client, inbound)
	default:
		client.reject("unknown event")
	}
}

func (s *liveService) handleJoin(ctx context.Context, client *liveClient, roomID string) {
	if roomID == "" {
		client.reject("room_id required")
		return
	}

	// One active room per connection: joining a new room leaves the old one.
	if current := client.room(); current != "" && current != roomID {
		s.handleLeave(client)
	}

	ownerID := ""
	if client.options.Role == RoleTeacher {
		ownerID = client.options.UserID
	}

	persisted, err := s.rooms.EnsureExists(ctx, roomID, ownerID)
	if err != nil {
		s.logger.Error().Err(err).Str("room_id", roomID).Msg("failed to ensure room exists")
		client.reject("room unavailable")
		return
	}

	room := s.hub.room(roomID)
	room.seed(persisted)
	snapshot := room.join(client)
	client.setRoom(roomID)

	s.logger.Info().Str("room_id", roomID).Str("user_id", client.options.UserID).Msg("client joined room")

	client.deliver(dto.LiveOutbound{
		Event: dto.EventRoomState,
		Data:  room.stateSnapshot(roomID, room.stamp(dto.EventRoomState)),
	})

	room.broadcast(dto.LiveOutbound{
		Event: dto.EventStudentUpdate,
		Data:  dto.StudentUpdate{RoomID: roomID, Students: snapshot},
	}, nil, s.hub.log)
}

func (s *liveService) handleLeave(client *liveClient) {
	roomID := client.room()
	if roomID == "" {
		return
	}

	room, ok := s.hub.lookup(roomID)
	if !ok {
		client.setRoom("")
		return
	}

	snapshot := room.leave(client)
	client.setRoom("")
	if snapshot == nil {
		return
	}

	s.logger.Info().Str("room_id", roomID).Str("user_id", client.options.UserID).Msg("client left room")

	room.broadcast(dto.LiveOutbound{
		Event: dto.EventStudentUpdate,
		Data:  dto.StudentUpdate{RoomID: roomID, Students: snapshot},
	}, nil, s.hub.log)
}

func (s *liveService) handleStateChange(ctx context.Context, client *liveClient, outKind dto.LiveEventKind, inbound dto.LiveInbound) {
	roomID := client.room()
	if roomID == "" {
		client.reject("join a room first")
		return
	}

	room, ok := s.hub.lookup(roomID)
	if !ok {
		client.reject("join a room first")
		return
	}

	update := room.applyState(outKind, inbound)

	// The state events exclude the originator; their own editor already
	// reflects the change. Receivers in solve mode drop code/input updates
	// locally (last-writer-wins on the client).
	room.broadcast(dto.LiveOutbound{Event: outKind, Data: update}, client, s.hub.log)

	s.persistState(ctx, roomID, outKind, inbound)
}

// persistState mirrors the live state into the durable room row so late
// joiners can be seeded after a restart. The broadcast has already happened;
// a failed write only costs snapshot freshness.
func (s *liveService) persistState(ctx context.Context, roomID string, kind dto.LiveEventKind, inbound dto.LiveInbound) {
	fields := map[string]interface{}{}
	switch kind {
	case dto.EventCodeUpdate:
		fields["code"] = inbound.Code
	case dto.EventInputUpdate:
		fields["input"] = inbound.Input
	case dto.EventOutputUpdate:
		fields["output"] = inbound.Output
	case dto.EventLanguageUpdate:
		fields["language_id"] = inbound.LanguageID
	default:
		return
	}

	if err := s.rooms.UpdateState(ctx, roomID, fields); err != nil {
		s.logger.Warn().Err(err).Str("room_id", roomID).Msg("failed to persist room state")
	}
}

func (s *liveService) handleSubmissionStatus(ctx context.Context, client *liveClient, inbound dto.LiveInbound) {
	roomID := client.room()
	if roomID == "" {
		client.reject("join a room first")
		return
	}
	if inbound.TestCaseID == "" {
		client.reject("test_case_id required")
		return
	}

	statusMap, err := s.StatusMap(ctx, inbound.TestCaseID)
	if err != nil {
		s.logger.Warn().Err(err).Str("test_case_id", inbound.TestCaseID).Msg("failed to build status map")
		statusMap = map[string]string{}
	}
	if inbound.Status != "" {
		statusMap[client.options.UserID] = inbound.Status
	}

	s.broadcastToRoom(roomID, dto.LiveOutbound{
		Event: dto.EventSubmissionUpdate,
		Data: dto.SubmissionUpdate{
			TestCaseID: inbound.TestCaseID,
			StudentID:  client.options.UserID,
			Status:     inbound.Status,
			StatusMap:  statusMap,
		},
	}, nil)
}

// StatusMap returns each student's latest status for the test case.
func (s *liveService) StatusMap(ctx context.Context, testCaseID string) (map[string]string, error) {
	submissions, err := s.submissions.ListByTestCase(ctx, testCaseID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	statusMap := make(map[string]string, len(submissions))
	for _, submission := range submissions {
		// ListByTestCase is ordered oldest first, so the final write wins.
		statusMap[submission.StudentID] = submission.Status
	}
	return statusMap, nil
}

// seed copies the persisted editor state into the in-memory room exactly
// once, before the first member is registered.
func (r *liveRoom) seed(persisted models.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.clients) > 0 {
		return
	}
	r.code = persisted.Code
	r.input = persisted.Input
	r.output = persisted.Output
	r.languageID = persisted.LanguageID
}

func (r *liveRoom) applyState(kind dto.LiveEventKind, inbound dto.LiveInbound) dto.StateUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UnixMilli()
	if last := r.lastStamp[kind]; now <= last {
		now = last + 1
	}
	r.lastStamp[kind] = now

	update := dto.StateUpdate{Timestamp: now}
	switch kind {
	case dto.EventCodeUpdate:
		r.code = inbound.Code
		update.Code = inbound.Code
	case dto.EventInputUpdate:
		r.input = inbound.Input
		update.Input = inbound.Input
	case dto.EventOutputUpdate:
		r.output = inbound.Output
		update.Output = inbound.Output
	case dto.EventLanguageUpdate:
		r.languageID = inbound.LanguageID
		update.LanguageID = inbound.LanguageID
	}
	return update
}

func (r *liveRoom) stateSnapshot(roomID string, timestamp int64) dto.RoomStateSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return dto.RoomStateSnapshot{
		RoomID:     roomID,
		Code:       r.code,
		Input:      r.input,
		Output:     r.output,
		LanguageID: r.languageID,
		Timestamp:  timestamp,
	}
}

func (c *liveClient) room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *liveClient) setRoom(roomID string) {
	c.mu.Lock()
	c.roomID = roomID
	c.mu.Unlock()
}

func (c *liveClient) deliver(event dto.LiveOutbound) {
	select {
	case c.send <- event:
	default:
		c.service.logger.Warn().Str("user_id", c.options.UserID).Str("event", string(event.Event)).Msg("dropping event for slow client")
	}
}

func (c *liveClient) reject(reason string) {
	c.deliver(dto.LiveOutbound{Event: dto.EventError, Data: dto.LiveError{Reason: reason}})
}

func (c *liveClient) reader() {
	defer c.close()

	for {
		var inbound dto.LiveInbound
		if err := c.conn.ReadJSON(&inbound); err != nil {
			c.service.logger.Debug().Err(err).Str("user_id", c.options.UserID).Msg("live read loop ended")
			return
		}

		c.service.dispatch(c.baseCtx, c, inbound)
	}
}

func (c *liveClient) writer() {
	defer c.close()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.service.logger.Debug().Err(err).Str("user_id", c.options.UserID).Msg("live write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("live ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

// close tears the connection down exactly once, removing the client from
// whatever room currently holds it.
func (c *liveClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.handleLeave(c)
		_ = c.conn.Close()
	})
}
