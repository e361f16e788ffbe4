package navigation

import (
	"fmt"
	"sync"
	"time"

	"github.com/openmast/helmsman/internal/geo"
	"github.com/openmast/helmsman/internal/route"
	"github.com/openmast/helmsman/internal/websocket"
	"github.com/openmast/helmsman/pkg/logger"
)

// WebSocketServer defines the interface for pushing events to clients
type WebSocketServer interface {
	Broadcast(message *websocket.Message)
}

// Config carries the session defaults applied at Start
type Config struct {
	DefaultArrivalRadiusNM float64
	AutoAdvance            bool
	MagneticBearings       bool
	MinSpeedKn             float64 // Floor substituted for missing or non-positive speeds
}

// Service owns the navigation state machine: one session at a time, driven
// by a push-based position stream. Each tick is processed to completion
// under the lock before the next is accepted.
type Service struct {
	mu       sync.Mutex
	logger   *logger.Logger
	wsServer WebSocketServer
	cfg      Config

	nav      *ActiveNavigation
	route    *route.Route // Snapshot of the route being followed
	snapshot *LegData     // Last computed leg data, nil until the first tick
}

// NewService creates a new navigation service
func NewService(cfg Config, wsServer WebSocketServer, log *logger.Logger) *Service {
	if cfg.DefaultArrivalRadiusNM <= 0 {
		cfg.DefaultArrivalRadiusNM = 0.1
	}
	if cfg.MinSpeedKn <= 0 {
		cfg.MinSpeedKn = 1.0
	}
	return &Service{
		logger:   log.Named("navigation"),
		wsServer: wsServer,
		cfg:      cfg,
	}
}

// Start begins following a route. startIndex is the first target point
// (index 1, the second point, when zero). An already-running session is
// stopped and replaced. The prior session is left unchanged on failure.
func (s *Service) Start(r route.Route, startIndex int) (*ActiveNavigation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(r.Points) < 2 {
		return nil, fmt.Errorf("route %s has %d points, at least 2 required to navigate", r.ID, len(r.Points))
	}
	if startIndex == 0 {
		startIndex = 1
	}
	if startIndex < 1 || startIndex >= len(r.Points) {
		return nil, fmt.Errorf("start index %d out of range [1, %d)", startIndex, len(r.Points))
	}

	if s.nav != nil {
		s.stopLocked(StopReasonSuperseded)
	}

	cruising := r.CruisingSpeedKn
	if cruising <= 0 {
		cruising = s.cfg.MinSpeedKn
	}

	routeCopy := r
	routeCopy.Points = append([]route.RoutePoint(nil), r.Points...)

	s.route = &routeCopy
	s.nav = &ActiveNavigation{
		RouteID:           r.ID,
		CurrentPointIndex: startIndex,
		IsActive:          true,
		CruisingSpeedKn:   cruising,
		ArrivalRadiusNM:   s.cfg.DefaultArrivalRadiusNM,
		AutoAdvance:       s.cfg.AutoAdvance,
		StartedAt:         time.Now().UTC(),
	}
	s.snapshot = nil

	s.logger.Info("Navigation started",
		logger.String("route_id", r.ID),
		logger.Int("start_index", startIndex),
		logger.Float64("arrival_radius_nm", s.nav.ArrivalRadiusNM))

	s.wsServer.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeNavigationStarted,
		Data: map[string]any{
			"navigation": s.navCopy(),
			"route_name": r.Name,
		},
	})

	return s.navCopy(), nil
}

// Stop ends the current session. Always legal, including when idle.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nav == nil {
		return
	}
	s.stopLocked(StopReasonManual)
}

// stopLocked discards the session wholesale and broadcasts the event.
// Callers hold the lock.
func (s *Service) stopLocked(reason string) {
	routeID := s.nav.RouteID

	s.nav = nil
	s.route = nil
	s.snapshot = nil

	s.logger.Info("Navigation stopped",
		logger.String("route_id", routeID),
		logger.String("reason", reason))

	s.wsServer.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeNavigationStopped,
		Data: map[string]any{
			"route_id": routeID,
			"reason":   reason,
		},
	})
}

// Advance moves the session to the next target point. Advancing past the
// last point ends the session (route complete) and returns a nil state.
func (s *Service) Advance() (*ActiveNavigation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nav == nil {
		return nil, fmt.Errorf("no active navigation session")
	}

	s.advanceLocked()
	return s.navCopyOrNil(), nil
}

// advanceLocked bumps the target index, re-arming the arrival latch, or
// stops the session when the route is complete. Callers hold the lock.
func (s *Service) advanceLocked() {
	next := s.nav.CurrentPointIndex + 1
	if next >= len(s.route.Points) {
		s.stopLocked(StopReasonRouteComplete)
		return
	}

	s.nav.CurrentPointIndex = next
	s.nav.arrivalSignalled = false
	s.snapshot = nil

	s.logger.Info("Advanced to next point",
		logger.String("route_id", s.nav.RouteID),
		logger.Int("current_point_index", next))
}

// SkipTo sets the target point index directly, re-arming the arrival latch.
// Index 0 is the starting fix and is never a valid target.
func (s *Service) SkipTo(index int) (*ActiveNavigation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nav == nil {
		return nil, fmt.Errorf("no active navigation session")
	}
	if index < 1 || index >= len(s.route.Points) {
		return nil, fmt.Errorf("point index %d out of range [1, %d)", index, len(s.route.Points))
	}

	s.nav.CurrentPointIndex = index
	s.nav.arrivalSignalled = false
	s.snapshot = nil

	s.logger.Info("Skipped to point",
		logger.String("route_id", s.nav.RouteID),
		logger.Int("current_point_index", index))

	return s.navCopy(), nil
}

// UpdateSettings applies a partial settings update to the current session
// without touching the target index.
func (s *Service) UpdateSettings(settings Settings) (*ActiveNavigation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nav == nil {
		return nil, fmt.Errorf("no active navigation session")
	}

	if settings.CruisingSpeedKn != nil {
		if *settings.CruisingSpeedKn <= 0 {
			return nil, fmt.Errorf("cruising speed must be positive, got %.2f", *settings.CruisingSpeedKn)
		}
		s.nav.CruisingSpeedKn = *settings.CruisingSpeedKn
	}
	if settings.ArrivalRadiusNM != nil {
		if *settings.ArrivalRadiusNM <= 0 {
			return nil, fmt.Errorf("arrival radius must be positive, got %.2f", *settings.ArrivalRadiusNM)
		}
		s.nav.ArrivalRadiusNM = *settings.ArrivalRadiusNM
	}
	if settings.AutoAdvance != nil {
		s.nav.AutoAdvance = *settings.AutoAdvance
	}

	return s.navCopy(), nil
}

// UpdateRoute refreshes the in-session route snapshot after a route document
// changed. If the edit invalidated the session (too few points, target out
// of range) the session is stopped.
func (s *Service) UpdateRoute(r route.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nav == nil || s.nav.RouteID != r.ID {
		return
	}

	if len(r.Points) < 2 || s.nav.CurrentPointIndex >= len(r.Points) {
		s.stopLocked(StopReasonRouteChanged)
		return
	}

	routeCopy := r
	routeCopy.Points = append([]route.RoutePoint(nil), r.Points...)
	s.route = &routeCopy
	s.snapshot = nil
}

// Current returns copies of the session state and the last snapshot, or
// nils when idle.
func (s *Service) Current() (*ActiveNavigation, *LegData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nav == nil {
		return nil, nil
	}

	var snap *LegData
	if s.snapshot != nil {
		c := *s.snapshot
		snap = &c
	}
	return s.navCopy(), snap
}

// HandlePosition processes one position tick: recompute leg data, detect
// arrival, auto-advance, broadcast the snapshot. Ticks received while idle
// are ignored.
func (s *Service) HandlePosition(report PositionReport) (*LegData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nav == nil {
		return nil, nil
	}

	if !report.Position.Valid() {
		return nil, fmt.Errorf("position out of bounds: lat=%.6f lon=%.6f", report.Position.Lat, report.Position.Lon)
	}
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now().UTC()
	}

	snapshot, err := computeLegData(s.route, s.nav, report, s.cfg.MagneticBearings, s.cfg.MinSpeedKn)
	if err != nil {
		return nil, err
	}
	s.snapshot = snapshot

	// Arrival boundary is inclusive; the latch fires at most once per target
	if snapshot.DistanceRemainingNM <= s.nav.ArrivalRadiusNM && !s.nav.arrivalSignalled {
		s.nav.arrivalSignalled = true

		s.logger.Info("Waypoint arrived",
			logger.String("route_id", s.nav.RouteID),
			logger.Int("point_index", s.nav.CurrentPointIndex),
			logger.Float64("distance_nm", snapshot.DistanceRemainingNM))

		s.wsServer.Broadcast(&websocket.Message{
			Type: websocket.MessageTypeWaypointArrived,
			Data: map[string]any{
				"route_id":    s.nav.RouteID,
				"point_index": s.nav.CurrentPointIndex,
				"point":       snapshot.TargetPoint,
			},
		})

		if s.nav.AutoAdvance {
			s.advanceLocked()
		}
	}

	s.wsServer.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeNavigationUpdate,
		Data: map[string]any{
			"snapshot":   snapshot,
			"navigation": s.navCopyOrNil(),
		},
	})

	return snapshot, nil
}

// navCopy returns a copy of the session state. Callers hold the lock and a
// session must exist.
func (s *Service) navCopy() *ActiveNavigation {
	c := *s.nav
	return &c
}

func (s *Service) navCopyOrNil() *ActiveNavigation {
	if s.nav == nil {
		return nil
	}
	return s.navCopy()
}

// computeLegData derives the navigation snapshot for one tick against the
// leg (points[idx-1] -> points[idx]). Pure with respect to its inputs.
func computeLegData(r *route.Route, nav *ActiveNavigation, report PositionReport, magnetic bool, minSpeedKn float64) (*LegData, error) {
	idx := nav.CurrentPointIndex
	if idx < 1 || idx >= len(r.Points) {
		return nil, fmt.Errorf("target index %d out of range for route with %d points", idx, len(r.Points))
	}

	prev := r.Points[idx-1]
	target := r.Points[idx]
	pos := report.Position

	distRemaining, bearingTrue := geo.DistanceAndBearing(pos, target.Position, r.RoutingMethod)

	var declination float64
	if magnetic {
		declination = geo.MagneticDeclination(pos.Lat, pos.Lon, report.Timestamp)
	}

	xte := geo.CrossTrackDistance(pos, prev.Position, target.Position)

	speed := nav.CruisingSpeedKn
	if report.SpeedOverGroundKn != nil && *report.SpeedOverGroundKn > 0 {
		speed = *report.SpeedOverGroundKn
	}
	if speed < minSpeedKn {
		speed = minSpeedKn
	}
	etaMin, err := geo.ETAMinutes(distRemaining, speed)
	if err != nil {
		return nil, err
	}

	legDist := 0.0
	if target.LegDistanceNM != nil {
		legDist = *target.LegDistanceNM
	} else {
		legDist = geo.Distance(prev.Position, target.Position, r.RoutingMethod)
	}

	legProgress := 100.0
	if legDist > 0 {
		legProgress = clamp01((legDist-distRemaining)/legDist) * 100.0
	}

	routeProgress := 0.0
	if r.TotalDistanceNM > 0 {
		completed := 0.0
		for i := 1; i < idx; i++ {
			if r.Points[i].LegDistanceNM != nil {
				completed += *r.Points[i].LegDistanceNM
			}
		}
		intoLeg := legDist - distRemaining
		if intoLeg < 0 {
			intoLeg = 0
		} else if intoLeg > legDist {
			intoLeg = legDist
		}
		routeProgress = clamp01((completed+intoLeg)/r.TotalDistanceNM) * 100.0
	}

	return &LegData{
		TargetPoint:         target,
		DistanceRemainingNM: distRemaining,
		BearingToTargetDeg:  bearingTrue,
		MagneticBearingDeg:  geo.MagneticBearing(bearingTrue, declination),
		CrossTrackErrorNM:   xte,
		ETAMinutes:          etaMin,
		LegProgressPct:      legProgress,
		RouteProgressPct:    routeProgress,
		Position:            pos,
		Timestamp:           report.Timestamp,
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
