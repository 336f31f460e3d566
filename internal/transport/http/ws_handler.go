package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"certiflash/internal/app"
	"certiflash/internal/domain"
	"certiflash/internal/identity"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler serves one quiz player per websocket connection.
type WSHandler struct {
	catalogs   app.CatalogRepository
	store      app.LedgerStore
	saver      app.LedgerSaver
	identities *identity.Resolver
	log        *zap.Logger
	now        func() time.Time
	upgrader   websocket.Upgrader
}

func NewWSHandler(catalogs app.CatalogRepository, store app.LedgerStore, saver app.LedgerSaver, identities *identity.Resolver, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		catalogs:   catalogs,
		store:      store,
		saver:      saver,
		identities: identities,
		log:        log,
		now:        time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	ModuleID string `json:"moduleId"`
}

type selectPayload struct {
	Answer string `json:"answer"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type welcomePayload struct {
	Identity identity.Identity  `json:"identity"`
	Ledger   domain.Ledger      `json:"ledger"`
	Modules  []app.ModuleStatus `json:"modules"`
	Offline  bool               `json:"offline"`
}

type answerPayload struct {
	Result  domain.AnswerResult `json:"result"`
	Session app.SessionView     `json:"session"`
	Ledger  domain.Ledger       `json:"ledger"`
}

type completePayload struct {
	Progress       app.Progress `json:"progress"`
	ModuleID       string       `json:"moduleId"`
	Mastery        int          `json:"mastery"`
	MasteryMessage string       `json:"masteryMessage"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS resolves the caller's identity, opens their ledger and runs the
// player until the connection closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	id, err := h.resolve(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	catalog, err := h.catalogs.GetCatalog(ctx)
	if err != nil {
		h.log.Error("catalog unavailable", zap.Error(err))
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	ledger, persistent := app.OpenLedger(ctx, h.store, id.UserID, h.now(), h.log)
	saver := h.saver
	if !persistent || saver == nil {
		saver = app.DiscardSaver{}
	}
	player := app.NewPlayer(app.NewEngine(catalog, saver, h.log), id.UserID, ledger)

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	watchDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.String("user", id.UserID), zap.Error(err))
				// Unblocks the read loop; keep draining so senders never stall.
				_ = conn.Close()
				failed = true
			}
		}
	}()

	var updates <-chan domain.Ledger
	if persistent {
		var stop func()
		updates, stop, err = h.store.WatchLedger(ctx, id.UserID)
		if err != nil {
			h.log.Warn("ledger watch unavailable", zap.String("user", id.UserID), zap.Error(err))
			updates = nil
		} else {
			defer stop()
		}
	}
	go func() {
		defer close(watchDone)
		if updates == nil {
			return
		}
		for {
			select {
			case remote, ok := <-updates:
				if !ok {
					return
				}
				if !player.ReplaceLedger(remote) {
					continue
				}
				select {
				case send <- outboundMessage{Type: "ledger", Payload: player.Ledger()}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	h.log.Info("player connected", zap.String("user", id.UserID), zap.Bool("persistent", persistent))
	send <- outboundMessage{Type: "welcome", Payload: welcomePayload{
		Identity: id,
		Ledger:   player.Ledger(),
		Modules:  player.Modules(),
		Offline:  !persistent,
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		for _, out := range h.dispatch(player, inbound) {
			send <- out
		}
	}

	close(closeSignals)
	<-watchDone
	close(send)
	<-writerDone
	h.log.Info("player disconnected", zap.String("user", id.UserID))
}

func (h *WSHandler) dispatch(player *app.Player, in inboundMessage) []outboundMessage {
	switch in.Type {
	case "modules":
		return one("modules", player.Modules())
	case "progress":
		return one("progress", player.Summary())
	case "start":
		var p startPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil || p.ModuleID == "" {
			return []outboundMessage{badPayload("start")}
		}
		return sessionOrError(player.Start(p.ModuleID))
	case "select":
		var p selectPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return []outboundMessage{badPayload("select")}
		}
		return sessionOrError(player.Select(p.Answer))
	case "submit":
		result, view, err := player.Submit()
		if err != nil {
			return []outboundMessage{errorMessage(err)}
		}
		return one("answerResult", answerPayload{Result: result, Session: view, Ledger: player.Ledger()})
	case "next":
		progress, view, err := player.Next()
		if err != nil {
			return []outboundMessage{errorMessage(err)}
		}
		if progress.State == app.StateComplete.String() {
			mastery := domain.MasteryForModule(view.ModuleID, player.Ledger(), player.Catalog()).Percent
			return one("complete", completePayload{
				Progress:       progress,
				ModuleID:       view.ModuleID,
				Mastery:        mastery,
				MasteryMessage: app.MasteryMessage(mastery),
			})
		}
		return one("session", view)
	case "retry":
		return sessionOrError(player.Retry())
	case "nextModule":
		view, err := player.NextModule()
		if errors.Is(err, domain.ErrNoNextModule) {
			return one("noFurtherModule", struct{}{})
		}
		return sessionOrError(view, err)
	default:
		return []outboundMessage{{Type: "error", Payload: errorPayload{Code: "unsupported", Message: "unsupported message type"}}}
	}
}

// resolve prefers a signed token; an anonymous id from an earlier connection
// may be presented as userId to keep the same ledger.
func (h *WSHandler) resolve(r *http.Request) (identity.Identity, error) {
	q := r.URL.Query()
	if token := q.Get("token"); token != "" {
		return h.identities.Resolve(token)
	}
	if userID := q.Get("userId"); identity.IsAnonymousID(userID) {
		return identity.Identity{UserID: userID, Anonymous: true}, nil
	}
	return identity.Anonymous(), nil
}

func one(typ string, payload any) []outboundMessage {
	return []outboundMessage{{Type: typ, Payload: payload}}
}

func sessionOrError(view app.SessionView, err error) []outboundMessage {
	if err != nil {
		return []outboundMessage{errorMessage(err)}
	}
	return one("session", view)
}

func badPayload(typ string) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Code: "badPayload", Message: "invalid " + typ + " payload"}}
}

func errorMessage(err error) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Code: errorCode(err), Message: err.Error()}}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrLockedModule):
		return "lockedModule"
	case errors.Is(err, domain.ErrNoQuestions):
		return "noQuestions"
	case errors.Is(err, domain.ErrNoAnswerSelected):
		return "noAnswerSelected"
	case errors.Is(err, domain.ErrResultShown):
		return "resultShown"
	case errors.Is(err, domain.ErrResultNotShown):
		return "resultNotShown"
	case errors.Is(err, domain.ErrSessionComplete):
		return "sessionComplete"
	case errors.Is(err, domain.ErrNoSession):
		return "noSession"
	case errors.Is(err, domain.ErrModuleNotFound):
		return "moduleNotFound"
	default:
		return "internal"
	}
}
