package simulation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openmast/helmsman/internal/geo"
	"github.com/openmast/helmsman/internal/navigation"
	"github.com/openmast/helmsman/pkg/logger"
)

// PositionSink receives simulated position ticks. Satisfied by the
// navigation service.
type PositionSink interface {
	HandlePosition(report navigation.PositionReport) (*navigation.LegData, error)
}

// Vessel represents the single simulated vessel and its control parameters
type Vessel struct {
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	HeadingDeg  float64   `json:"heading_deg"` // Degrees true
	SpeedKn     float64   `json:"speed_kn"`
	FollowRoute bool      `json:"follow_route"` // Steer toward the active navigation target each tick
	LastUpdate  time.Time `json:"last_update"`
	CreatedAt   time.Time `json:"created_at"`
}

// Service dead-reckons one simulated vessel and feeds its positions into
// the navigation state machine exactly like a live GPS feed would.
type Service struct {
	mu       sync.Mutex
	vessel   *Vessel
	sink     PositionSink
	interval time.Duration
	logger   *logger.Logger
}

// NewService creates a new simulation service
func NewService(interval time.Duration, sink PositionSink, log *logger.Logger) *Service {
	if interval <= 0 {
		interval = time.Second
	}
	return &Service{
		sink:     sink,
		interval: interval,
		logger:   log.Named("simulation"),
	}
}

// Start places the simulated vessel. Only one vessel exists at a time.
func (s *Service) Start(lat, lon, headingDeg, speedKn float64, followRoute bool) (*Vessel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vessel != nil {
		return nil, fmt.Errorf("simulation already running")
	}
	if !(geo.Position{Lat: lat, Lon: lon}).Valid() {
		return nil, fmt.Errorf("invalid start position: lat=%.6f lon=%.6f", lat, lon)
	}
	if speedKn < 0 {
		return nil, fmt.Errorf("speed must not be negative, got %.2f", speedKn)
	}

	now := time.Now().UTC()
	s.vessel = &Vessel{
		Lat:         lat,
		Lon:         lon,
		HeadingDeg:  geo.Wrap360(headingDeg),
		SpeedKn:     speedKn,
		FollowRoute: followRoute,
		LastUpdate:  now,
		CreatedAt:   now,
	}

	s.logger.Info("Started simulated vessel",
		logger.Float64("lat", lat),
		logger.Float64("lon", lon),
		logger.Float64("heading", s.vessel.HeadingDeg),
		logger.Float64("speed_kn", speedKn),
		logger.Bool("follow_route", followRoute))

	v := *s.vessel
	return &v, nil
}

// UpdateControls updates the vessel's heading, speed, or steering mode
func (s *Service) UpdateControls(headingDeg, speedKn *float64, followRoute *bool) (*Vessel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vessel == nil {
		return nil, fmt.Errorf("no simulated vessel")
	}

	if headingDeg != nil {
		s.vessel.HeadingDeg = geo.Wrap360(*headingDeg)
	}
	if speedKn != nil {
		if *speedKn < 0 {
			return nil, fmt.Errorf("speed must not be negative, got %.2f", *speedKn)
		}
		s.vessel.SpeedKn = *speedKn
	}
	if followRoute != nil {
		s.vessel.FollowRoute = *followRoute
	}

	v := *s.vessel
	return &v, nil
}

// Stop removes the simulated vessel
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vessel == nil {
		return fmt.Errorf("no simulated vessel")
	}

	s.vessel = nil
	s.logger.Info("Stopped simulated vessel")
	return nil
}

// Get returns a copy of the current vessel state
func (s *Service) Get() (*Vessel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vessel == nil {
		return nil, false
	}
	v := *s.vessel
	return &v, true
}

// Run drives the simulation ticker until the context is cancelled
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick advances the vessel by dead reckoning and pushes the position into
// the sink. With follow_route set, the vessel steers onto the bearing the
// navigation snapshot reports for the current target.
func (s *Service) tick() {
	s.mu.Lock()
	if s.vessel == nil {
		s.mu.Unlock()
		return
	}

	now := time.Now().UTC()
	dt := now.Sub(s.vessel.LastUpdate).Seconds()
	if dt <= 0 {
		s.mu.Unlock()
		return
	}

	distNM := s.vessel.SpeedKn * dt / 3600.0
	next := geo.Destination(geo.Position{Lat: s.vessel.Lat, Lon: s.vessel.Lon}, s.vessel.HeadingDeg, distNM)

	s.vessel.Lat = next.Lat
	s.vessel.Lon = next.Lon
	s.vessel.LastUpdate = now

	sog := s.vessel.SpeedKn
	follow := s.vessel.FollowRoute
	report := navigation.PositionReport{
		Position:          next,
		SpeedOverGroundKn: &sog,
		Timestamp:         now,
	}
	s.mu.Unlock()

	snapshot, err := s.sink.HandlePosition(report)
	if err != nil {
		s.logger.Warn("Position tick rejected", logger.Error(err))
		return
	}

	if follow && snapshot != nil {
		s.mu.Lock()
		if s.vessel != nil {
			s.vessel.HeadingDeg = snapshot.BearingToTargetDeg
		}
		s.mu.Unlock()
	}
}
