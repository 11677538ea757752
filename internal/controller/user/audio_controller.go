package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/lshigami/examflow/internal/controller"
	"github.com/lshigami/examflow/internal/recording"
	"github.com/lshigami/examflow/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// IngestMessage is the server's side of the audio socket.
type IngestMessage struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

type AudioController struct {
	sessionService service.SessionService
}

func NewAudioController(sessionService service.SessionService) *AudioController {
	return &AudioController{sessionService: sessionService}
}

// StreamAudio godoc
// @Summary (User) Audio ingest socket
// @Description Websocket carrying the candidate's encoded audio as binary messages. Connect before starting a speaking session; reconnecting continues the same recording.
// @Tags User - Sessions
// @Param user_id query string true "Candidate ID"
// @Param session_id path string true "Session ID"
// @Success 101 "Switching protocols"
// @Failure 400 {object} dto.ErrorResponse "Session does not record audio"
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Router /sessions/{session_id}/audio [get]
func (c *AudioController) StreamAudio(ctx *gin.Context) {
	sessionID := ctx.Param("session_id")
	feed, err := c.sessionService.AttachFeed(controller.UserID(ctx), sessionID)
	if err != nil {
		controller.Fail(ctx, "Failed to attach audio", err)
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		feed.Detach()
		log.Error().Err(err).Str("sessionID", sessionID).Msg("Audio: failed to upgrade to websocket")
		return
	}
	defer conn.Close()
	defer feed.Detach()

	log.Info().Str("sessionID", sessionID).Msg("Audio: client connected")
	_ = conn.WriteJSON(IngestMessage{Type: "connected"})

	chunks, dropped := 0, 0
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("sessionID", sessionID).Msg("Audio: read error")
			}
			break
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		if err := feed.Push(data); err != nil {
			dropped++
			if errors.Is(err, recording.ErrNotCapturing) && dropped == 1 {
				_ = conn.WriteJSON(IngestMessage{Type: "error", Data: "session is not recording"})
			}
			continue
		}
		chunks++
	}
	log.Info().Str("sessionID", sessionID).Int("chunks", chunks).Int("dropped", dropped).Msg("Audio: client disconnected")
}
