package navigation

import (
	"time"

	"github.com/openmast/helmsman/internal/geo"
	"github.com/openmast/helmsman/internal/websocket"
	"github.com/openmast/helmsman/pkg/logger"
)

// WebSocketHandler handles incoming WebSocket messages for navigation
type WebSocketHandler struct {
	service *Service
	logger  *logger.Logger
}

// NewWebSocketHandler creates a new WebSocket message handler
func NewWebSocketHandler(service *Service, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		service: service,
		logger:  log.Named("nav-ws-handler"),
	}
}

// HandleMessage handles incoming WebSocket messages
func (h *WebSocketHandler) HandleMessage(client *websocket.Client, messageType string, data map[string]any) error {
	switch messageType {
	case websocket.MessageTypePositionReport:
		return h.handlePositionReport(data)
	default:
		h.logger.Debug("Unhandled message type", logger.String("type", messageType))
		return nil
	}
}

// handlePositionReport feeds a client position tick into the state machine.
// The resulting snapshot goes out through the broadcast, not as a reply.
func (h *WebSocketHandler) handlePositionReport(data map[string]any) error {
	report := PositionReport{}

	if lat, ok := data["lat"].(float64); ok {
		report.Position.Lat = lat
	}
	if lon, ok := data["lon"].(float64); ok {
		report.Position.Lon = lon
	}
	if sog, ok := data["sog_kn"].(float64); ok {
		report.SpeedOverGroundKn = &sog
	}
	if ts, ok := data["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			report.Timestamp = parsed
		}
	}

	if !report.Position.Valid() || (report.Position == geo.Position{}) {
		h.logger.Warn("Dropping malformed position report",
			logger.Float64("lat", report.Position.Lat),
			logger.Float64("lon", report.Position.Lon))
		return nil
	}

	_, err := h.service.HandlePosition(report)
	return err
}
