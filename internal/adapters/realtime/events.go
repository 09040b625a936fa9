package realtime

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/quentinlc/lobbychat/internal/core"
	"github.com/quentinlc/lobbychat/internal/domain"
)

// handleJoinChannel subscribes the session to a lobby's broadcasts.
// Directory membership is checked up front so a stranger cannot tap a
// lobby's stream; send-time authorization still applies regardless.
// Subscribing is independent of joining the lobby in the directory:
// a member who reconnects must re-send join_channel to hear anything,
// and there is no replay of what was missed.
func (ctl *Controller) handleJoinChannel(sid core.SessionID, c *wsConn, data []byte) {
	type joinPayload struct {
		Type  string `json:"type"`
		Lobby string `json:"lobby"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Lobby == "" {
		log.Error().Err(err).Str("module", "realtime").Msg("bad join payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	uid, ok := ctl.Registry.UserOf(sid)
	if !ok {
		ctl.sendError(c, "unknown session")
		return
	}
	lobbyID := domain.LobbyID(p.Lobby)
	lobby, err := ctl.Members.Authorize(uid, lobbyID)
	if err != nil {
		log.Warn().Err(err).Str("module", "realtime").Str("sid", string(sid)).Str("lobby", p.Lobby).Msg("join_channel rejected")
		ctl.sendError(c, "not allowed in this lobby")
		return
	}

	ctl.Router.Subscribe(sid, lobbyID)
	ctl.sendJSON(c, struct {
		Type    string        `json:"type"`
		Lobby   *domain.Lobby `json:"lobby"`
		Members int           `json:"subscribers"`
	}{
		Type:    "joined",
		Lobby:   lobby,
		Members: ctl.Router.Subscribers(lobbyID),
	})
}

// handleLeaveChannel drops only this lobby's subscription; the
// connection and directory membership stay intact.
func (ctl *Controller) handleLeaveChannel(sid core.SessionID, c *wsConn, data []byte) {
	type leavePayload struct {
		Type  string `json:"type"`
		Lobby string `json:"lobby"`
	}
	var p leavePayload
	if err := json.Unmarshal(data, &p); err != nil || p.Lobby == "" {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.Router.Unsubscribe(sid, domain.LobbyID(p.Lobby))
	ctl.sendJSON(c, struct {
		Type  string `json:"type"`
		Lobby string `json:"lobby"`
	}{Type: "left", Lobby: p.Lobby})
}

// handleSendMessage runs the full pipeline. On success the sender gets
// the persisted record back directly and, like every subscriber, the
// broadcast. Failures come back as an error event, never as a dropped
// connection.
func (ctl *Controller) handleSendMessage(sid core.SessionID, c *wsConn, data []byte) {
	type sendPayload struct {
		Type  string `json:"type"`
		Lobby string `json:"lobby"`
		Body  string `json:"body"`
	}
	var p sendPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Lobby == "" {
		ctl.sendError(c, "bad_payload")
		return
	}

	uid, ok := ctl.Registry.UserOf(sid)
	if !ok {
		ctl.sendError(c, "unknown session")
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(uid) {
		log.Warn().Str("module", "realtime").Str("sid", string(sid)).Str("user", string(uid)).Msg("send rate limited")
		ctl.sendError(c, "too many messages, slow down")
		return
	}
	msg, err := ctl.Pipeline.Send(uid, domain.LobbyID(p.Lobby), p.Body)
	if err != nil {
		log.Warn().Err(err).Str("module", "realtime").Str("sid", string(sid)).Str("lobby", p.Lobby).Msg("send rejected")
		ctl.sendError(c, "message not sent")
		return
	}
	ctl.sendJSON(c, struct {
		Type    string          `json:"type"`
		Message *domain.Message `json:"message"`
	}{Type: "sent", Message: msg})
}
