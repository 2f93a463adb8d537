package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"gifts-assessment-service/internal/app"
	"gifts-assessment-service/internal/domain"
	"gifts-assessment-service/internal/infra/memory"
	"gifts-assessment-service/internal/insight"
	"gifts-assessment-service/internal/logger"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// StateStoreFactory returns the state store scoped to one assessment session.
type StateStoreFactory func(sessionID string) app.SessionStateStore

const defaultMemoryStateSessions = 10000

// MemoryStateStores keeps one in-process store per assessment session, bounded
// to size sessions and expiring ttl after a session was first bound.
func MemoryStateStores(size int, ttl time.Duration) StateStoreFactory {
	if size <= 0 {
		size = defaultMemoryStateSessions
	}
	if ttl <= 0 {
		ttl = app.DefaultStateMaxAge
	}
	var mu sync.Mutex
	stores := expirable.NewLRU[string, *memory.SessionStateStore](size, nil, ttl)
	return func(sessionID string) app.SessionStateStore {
		mu.Lock()
		defer mu.Unlock()
		s, ok := stores.Get(sessionID)
		if !ok {
			s = memory.NewSessionStateStore()
			stores.Add(sessionID, s)
		}
		return s
	}
}

type WSHandler struct {
	service        *app.AssessmentService
	analyzer       *insight.Analyzer
	auth           *Auth
	stores         StateStoreFactory
	defaultPerGift int
	log            *logger.Logger
	upgrader       websocket.Upgrader
}

func NewWSHandler(service *app.AssessmentService, analyzer *insight.Analyzer, auth *Auth, stores StateStoreFactory, defaultPerGift int, log *logger.Logger) *WSHandler {
	if stores == nil {
		stores = MemoryStateStores(0, 0)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &WSHandler{
		service:        service,
		analyzer:       analyzer,
		auth:           auth,
		stores:         stores,
		defaultPerGift: defaultPerGift,
		log:            log.With("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

var errSessionNotOwned = errors.New("session belongs to another user")

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type restorePayload struct {
	SessionID string `json:"sessionId"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Score      int    `json:"score"`
}

type answerRecorded struct {
	QuestionID   string `json:"questionId"`
	Answered     int    `json:"answered"`
	Total        int    `json:"total"`
	CurrentIndex int    `json:"currentIndex"`
}

type stateSnapshot struct {
	State     domain.AssessmentState `json:"state"`
	Questions []domain.Question      `json:"questions"`
}

// wsSession is the per-connection assessment in progress.
type wsSession struct {
	h        *WSHandler
	identity string
	manager  *app.SessionStateManager
	state    domain.AssessmentState
}

// ServeWS upgrades the request and drives one assessment over the connection. A
// "token" query parameter identifies the caller.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	identity := ""
	if token := r.URL.Query().Get("token"); token != "" {
		subject, err := h.auth.Verify(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		identity = subject
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn("ws write error", "error", err)
				return
			}
		}
	}()

	ctx := r.Context()
	sess := &wsSession{h: h, identity: identity}
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		msg, err := sess.handle(ctx, inbound)
		if err != nil {
			msg = outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
		send <- msg
	}

	close(send)
	<-writerDone
}

func (s *wsSession) handle(ctx context.Context, in inboundMessage) (outboundMessage, error) {
	switch in.Type {
	case "start":
		var p startRequest
		if err := decodePayload(in.Payload, &p); err != nil {
			return outboundMessage{}, errors.New("invalid start payload")
		}
		return s.start(ctx, p)
	case "restore":
		var p restorePayload
		if err := decodePayload(in.Payload, &p); err != nil || p.SessionID == "" {
			return outboundMessage{}, errors.New("invalid restore payload")
		}
		return s.restore(ctx, p.SessionID)
	case "answer":
		var p answerPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return outboundMessage{}, errors.New("invalid answer payload")
		}
		return s.answer(ctx, p)
	case "submit":
		var p submitRequest
		if err := decodePayload(in.Payload, &p); err != nil {
			return outboundMessage{}, errors.New("invalid submit payload")
		}
		return s.submit(ctx, p)
	case "reset":
		return s.reset(ctx)
	default:
		return outboundMessage{}, errors.New("unsupported message type")
	}
}

func (s *wsSession) start(ctx context.Context, p startRequest) (outboundMessage, error) {
	perGift := p.QuestionsPerGift
	if perGift == 0 {
		perGift = s.h.defaultPerGift
	}
	res, err := s.h.service.Start(ctx, s.identity, p.Locale, perGift)
	if err != nil {
		return outboundMessage{}, err
	}
	s.bind(res.Session.ID)
	s.state = s.manager.Begin(res.Session.ID, res.Session.Locale, res.Session.QuestionOrder)
	if err := s.manager.Persist(ctx, s.state); err != nil {
		s.h.log.Warn("persist initial state failed", "session", res.Session.ID, "error", err)
	}
	return outboundMessage{Type: "started", Payload: res}, nil
}

func (s *wsSession) restore(ctx context.Context, sessionID string) (outboundMessage, error) {
	session, err := s.h.service.Session(ctx, sessionID)
	if err != nil {
		return outboundMessage{}, err
	}
	if session.UserID != "" && session.UserID != s.identity {
		return outboundMessage{}, errSessionNotOwned
	}
	s.bind(sessionID)
	state, ok := s.manager.Restore(ctx)
	if !ok {
		s.state = domain.AssessmentState{}
		return outboundMessage{Type: "noState", Payload: restorePayload{SessionID: sessionID}}, nil
	}
	questions, err := s.h.service.Questions(ctx, sessionID)
	if err != nil {
		return outboundMessage{}, err
	}
	s.state = state
	return outboundMessage{Type: "restored", Payload: stateSnapshot{State: state, Questions: questions}}, nil
}

func (s *wsSession) answer(ctx context.Context, p answerPayload) (outboundMessage, error) {
	if s.state.SessionID == "" {
		return outboundMessage{}, errors.New("no assessment in progress")
	}
	if p.Score < domain.MinScale || p.Score > domain.MaxScale {
		return outboundMessage{}, errors.New("score out of range")
	}
	if !contains(s.state.QuestionOrder, p.QuestionID) {
		return outboundMessage{}, errors.New("question not part of this assessment")
	}
	state, err := s.manager.RecordAnswer(ctx, s.state, p.QuestionID, p.Score)
	s.state = state
	if err != nil {
		// The answer is kept in memory; only the resumable copy is stale.
		s.h.log.Warn("persist answer failed", "session", state.SessionID, "error", err)
	}
	return outboundMessage{Type: "answerRecorded", Payload: answerRecorded{
		QuestionID:   p.QuestionID,
		Answered:     len(state.Answers),
		Total:        len(state.QuestionOrder),
		CurrentIndex: state.CurrentQuestionIndex,
	}}, nil
}

func (s *wsSession) submit(ctx context.Context, p submitRequest) (outboundMessage, error) {
	if s.state.SessionID == "" {
		return outboundMessage{}, errors.New("no assessment in progress")
	}
	scores, err := s.h.service.Submit(ctx, s.state.SessionID, s.state.Answers)
	if err != nil {
		return outboundMessage{}, err
	}
	resp := submitResponse{SessionID: s.state.SessionID, Ranked: scores.Ranked()}
	if p.Analyze && s.h.analyzer != nil {
		result, err := s.h.analyzer.Analyze(ctx, insight.AnalysisRequest{
			Scores:     scores,
			Identity:   s.identity,
			Locale:     s.state.Locale,
			Regenerate: p.Regenerate,
		})
		if err != nil {
			s.h.log.Warn("analysis skipped", "session", s.state.SessionID, "error", err)
		} else {
			resp.Analysis = &result
		}
	}
	if err := s.manager.Clear(ctx); err != nil {
		s.h.log.Warn("clear state failed", "session", s.state.SessionID, "error", err)
	}
	s.state = domain.AssessmentState{}
	return outboundMessage{Type: "result", Payload: resp}, nil
}

func (s *wsSession) reset(ctx context.Context) (outboundMessage, error) {
	if s.manager != nil {
		if err := s.manager.Clear(ctx); err != nil {
			return outboundMessage{}, err
		}
	}
	s.state = domain.AssessmentState{}
	return outboundMessage{Type: "reset", Payload: struct{}{}}, nil
}

func (s *wsSession) bind(sessionID string) {
	s.manager = app.NewSessionStateManager(s.h.stores(sessionID), s.h.log)
}

func decodePayload(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
