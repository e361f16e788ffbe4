package navigation

import (
	"math"
	"testing"
	"time"

	"github.com/openmast/helmsman/internal/geo"
	"github.com/openmast/helmsman/internal/route"
	"github.com/openmast/helmsman/internal/websocket"
	"github.com/openmast/helmsman/pkg/logger"
)

const oneDegreeNM = math.Pi / 180 * geo.EarthRadiusNM

// stubBroadcaster records every broadcast message for assertions
type stubBroadcaster struct {
	messages []*websocket.Message
}

func (b *stubBroadcaster) Broadcast(message *websocket.Message) {
	b.messages = append(b.messages, message)
}

func (b *stubBroadcaster) count(messageType string) int {
	n := 0
	for _, m := range b.messages {
		if m.Type == messageType {
			n++
		}
	}
	return n
}

func (b *stubBroadcaster) last(messageType string) *websocket.Message {
	for i := len(b.messages) - 1; i >= 0; i-- {
		if b.messages[i].Type == messageType {
			return b.messages[i]
		}
	}
	return nil
}

func testRoute() route.Route {
	return route.Recalculate(route.Route{
		ID:              "rte_test",
		Name:            "Equator Run",
		RoutingMethod:   geo.GreatCircle,
		CruisingSpeedKn: 6,
		Points: []route.RoutePoint{
			{ID: "wpt_a", Position: geo.Position{Lat: 0, Lon: 0}},
			{ID: "wpt_b", Position: geo.Position{Lat: 0, Lon: 1}},
			{ID: "wpt_c", Position: geo.Position{Lat: 0, Lon: 2}},
		},
	})
}

func newTestService(cfg Config) (*Service, *stubBroadcaster) {
	stub := &stubBroadcaster{}
	return NewService(cfg, stub, logger.NewNop()), stub
}

func report(lat, lon float64) PositionReport {
	return PositionReport{
		Position:  geo.Position{Lat: lat, Lon: lon},
		Timestamp: time.Now().UTC(),
	}
}

func TestStart(t *testing.T) {
	svc, stub := newTestService(Config{})

	nav, err := svc.Start(testRoute(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nav.CurrentPointIndex != 1 {
		t.Errorf("start index %d, expected 1", nav.CurrentPointIndex)
	}
	if !nav.IsActive {
		t.Error("session not active after start")
	}
	if nav.ArrivalRadiusNM != 0.1 {
		t.Errorf("arrival radius %f, expected default 0.1", nav.ArrivalRadiusNM)
	}
	if stub.count(websocket.MessageTypeNavigationStarted) != 1 {
		t.Errorf("got %d navigation_started broadcasts, expected 1", stub.count(websocket.MessageTypeNavigationStarted))
	}
}

func TestStartValidation(t *testing.T) {
	svc, _ := newTestService(Config{})

	short := route.Recalculate(route.Route{
		ID:     "rte_short",
		Name:   "Short",
		Points: []route.RoutePoint{{ID: "wpt_a", Position: geo.Position{Lat: 0, Lon: 0}}},
	})
	if _, err := svc.Start(short, 0); err == nil {
		t.Error("Start accepted a single-point route")
	}

	for _, idx := range []int{-1, 3, 7} {
		if _, err := svc.Start(testRoute(), idx); err == nil {
			t.Errorf("Start accepted out-of-range index %d", idx)
		}
	}
	// Index 0 is the starting fix; a failed start leaves no session behind
	if nav, _ := svc.Current(); nav != nil {
		t.Error("failed starts left a session active")
	}
}

func TestStartSupersedes(t *testing.T) {
	svc, stub := newTestService(Config{})

	if _, err := svc.Start(testRoute(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Start(testRoute(), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := stub.last(websocket.MessageTypeNavigationStopped)
	if msg == nil {
		t.Fatal("no navigation_stopped broadcast for the superseded session")
	}
	if msg.Data["reason"] != StopReasonSuperseded {
		t.Errorf("stop reason %v, expected %s", msg.Data["reason"], StopReasonSuperseded)
	}

	nav, _ := svc.Current()
	if nav == nil || nav.CurrentPointIndex != 2 {
		t.Error("replacement session did not take over")
	}
}

func TestStopIdempotent(t *testing.T) {
	svc, stub := newTestService(Config{})

	// Stopping with no session is legal and silent
	svc.Stop()
	if len(stub.messages) != 0 {
		t.Errorf("idle stop broadcast %d messages", len(stub.messages))
	}

	if _, err := svc.Start(testRoute(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc.Stop()

	msg := stub.last(websocket.MessageTypeNavigationStopped)
	if msg == nil || msg.Data["reason"] != StopReasonManual {
		t.Error("manual stop did not broadcast with reason manual")
	}
	if nav, snap := svc.Current(); nav != nil || snap != nil {
		t.Error("session state survived a stop")
	}
}

func TestAdvance(t *testing.T) {
	svc, stub := newTestService(Config{})

	if _, err := svc.Advance(); err == nil {
		t.Error("Advance succeeded with no session")
	}

	if _, err := svc.Start(testRoute(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nav, err := svc.Advance()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nav.CurrentPointIndex != 2 {
		t.Errorf("index %d after advance, expected 2", nav.CurrentPointIndex)
	}

	// Advancing past the last point completes the route and returns nil state
	nav, err = svc.Advance()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nav != nil {
		t.Errorf("final advance returned state %+v, expected nil", nav)
	}
	msg := stub.last(websocket.MessageTypeNavigationStopped)
	if msg == nil || msg.Data["reason"] != StopReasonRouteComplete {
		t.Error("final advance did not stop with reason route_complete")
	}
	if nav, _ := svc.Current(); nav != nil {
		t.Error("session still active after route completion")
	}
}

func TestAdvanceAtLastPoint(t *testing.T) {
	svc, stub := newTestService(Config{})

	// Target the final point directly; a single advance completes the route
	if _, err := svc.Start(testRoute(), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nav, err := svc.Advance()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nav != nil {
		t.Errorf("advance at the last point returned state %+v, expected nil", nav)
	}
	if nav, _ := svc.Current(); nav != nil {
		t.Error("session still active after completing the route")
	}
	msg := stub.last(websocket.MessageTypeNavigationStopped)
	if msg == nil || msg.Data["reason"] != StopReasonRouteComplete {
		t.Error("completion did not stop with reason route_complete")
	}
}

func TestSkipTo(t *testing.T) {
	svc, _ := newTestService(Config{})

	if _, err := svc.SkipTo(1); err == nil {
		t.Error("SkipTo succeeded with no session")
	}

	if _, err := svc.Start(testRoute(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nav, err := svc.SkipTo(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nav.CurrentPointIndex != 2 {
		t.Errorf("index %d after skip, expected 2", nav.CurrentPointIndex)
	}

	for _, idx := range []int{0, -1, 3} {
		if _, err := svc.SkipTo(idx); err == nil {
			t.Errorf("SkipTo(%d) expected error, got nil", idx)
		}
	}
}

func TestUpdateSettings(t *testing.T) {
	svc, _ := newTestService(Config{})

	if _, err := svc.Start(testRoute(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	speed := 12.0
	radius := 0.5
	auto := true
	nav, err := svc.UpdateSettings(Settings{CruisingSpeedKn: &speed, ArrivalRadiusNM: &radius, AutoAdvance: &auto})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nav.CruisingSpeedKn != 12 || nav.ArrivalRadiusNM != 0.5 || !nav.AutoAdvance {
		t.Errorf("settings not applied: %+v", nav)
	}
	if nav.CurrentPointIndex != 1 {
		t.Errorf("settings update moved the target index to %d", nav.CurrentPointIndex)
	}

	bad := -2.0
	if _, err := svc.UpdateSettings(Settings{CruisingSpeedKn: &bad}); err == nil {
		t.Error("negative cruising speed accepted")
	}
	if _, err := svc.UpdateSettings(Settings{ArrivalRadiusNM: &bad}); err == nil {
		t.Error("negative arrival radius accepted")
	}
}

func TestHandlePositionIdle(t *testing.T) {
	svc, stub := newTestService(Config{})

	snapshot, err := svc.HandlePosition(report(0, 0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot != nil {
		t.Error("idle tick produced a snapshot")
	}
	if len(stub.messages) != 0 {
		t.Errorf("idle tick broadcast %d messages", len(stub.messages))
	}
}

func TestHandlePositionSnapshot(t *testing.T) {
	svc, stub := newTestService(Config{})

	if _, err := svc.Start(testRoute(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mid leg, on track
	snapshot, err := svc.HandlePosition(report(0, 0.5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot == nil {
		t.Fatal("no snapshot for an active session")
	}

	if snapshot.TargetPoint.ID != "wpt_b" {
		t.Errorf("target point %s, expected wpt_b", snapshot.TargetPoint.ID)
	}
	if math.Abs(snapshot.DistanceRemainingNM-0.5*oneDegreeNM) > 0.01 {
		t.Errorf("distance remaining %f, expected %f", snapshot.DistanceRemainingNM, 0.5*oneDegreeNM)
	}
	if math.Abs(snapshot.BearingToTargetDeg-90) > 0.01 {
		t.Errorf("bearing %f, expected 90", snapshot.BearingToTargetDeg)
	}
	if math.Abs(snapshot.CrossTrackErrorNM) > 0.01 {
		t.Errorf("XTE %f on track, expected 0", snapshot.CrossTrackErrorNM)
	}
	if math.Abs(snapshot.LegProgressPct-50) > 0.1 {
		t.Errorf("leg progress %f, expected 50", snapshot.LegProgressPct)
	}
	if math.Abs(snapshot.RouteProgressPct-25) > 0.1 {
		t.Errorf("route progress %f, expected 25", snapshot.RouteProgressPct)
	}
	// Half a degree at the route's 6 kn cruising speed
	wantETA := 0.5 * oneDegreeNM / 6 * 60
	if math.Abs(snapshot.ETAMinutes-wantETA) > 0.1 {
		t.Errorf("ETA %f, expected %f", snapshot.ETAMinutes, wantETA)
	}

	if stub.count(websocket.MessageTypeNavigationUpdate) != 1 {
		t.Errorf("got %d navigation_update broadcasts, expected 1", stub.count(websocket.MessageTypeNavigationUpdate))
	}

	// SOG overrides the cruising speed for ETA
	sog := 12.0
	snapshot, err = svc.HandlePosition(PositionReport{
		Position:          geo.Position{Lat: 0, Lon: 0.5},
		SpeedOverGroundKn: &sog,
		Timestamp:         time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(snapshot.ETAMinutes-wantETA/2) > 0.1 {
		t.Errorf("ETA with SOG %f, expected %f", snapshot.ETAMinutes, wantETA/2)
	}
}

func TestHandlePositionInvalid(t *testing.T) {
	svc, _ := newTestService(Config{})
	if _, err := svc.Start(testRoute(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.HandlePosition(report(95, 0)); err == nil {
		t.Error("out-of-range latitude accepted")
	}
	if _, err := svc.HandlePosition(report(0, -200)); err == nil {
		t.Error("out-of-range longitude accepted")
	}
}

func TestArrivalLatch(t *testing.T) {
	svc, stub := newTestService(Config{})

	if _, err := svc.Start(testRoute(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Well inside the 0.1 nm default radius around (0, 1)
	if _, err := svc.HandlePosition(report(0, 0.999)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.count(websocket.MessageTypeWaypointArrived) != 1 {
		t.Fatalf("got %d waypoint_arrived broadcasts, expected 1", stub.count(websocket.MessageTypeWaypointArrived))
	}

	// The latch fires once: further ticks inside the radius stay silent
	if _, err := svc.HandlePosition(report(0, 0.9995)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.count(websocket.MessageTypeWaypointArrived) != 1 {
		t.Errorf("arrival signalled again without a target change")
	}

	// A skip re-arms the latch for the new target
	if _, err := svc.SkipTo(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.HandlePosition(report(0, 1.999)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.count(websocket.MessageTypeWaypointArrived) != 2 {
		t.Errorf("got %d waypoint_arrived broadcasts after skip, expected 2", stub.count(websocket.MessageTypeWaypointArrived))
	}
}

func TestArrivalBoundaryInclusive(t *testing.T) {
	svc, stub := newTestService(Config{})

	if _, err := svc.Start(testRoute(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Pin the radius to the exact distance from the start to the target
	radius := geo.Distance(geo.Position{Lat: 0, Lon: 0}, geo.Position{Lat: 0, Lon: 1}, geo.GreatCircle)
	if _, err := svc.UpdateSettings(Settings{ArrivalRadiusNM: &radius}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.HandlePosition(report(0, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.count(websocket.MessageTypeWaypointArrived) != 1 {
		t.Error("arrival at exactly the radius boundary did not signal")
	}
}

func TestAutoAdvance(t *testing.T) {
	svc, stub := newTestService(Config{AutoAdvance: true})

	if _, err := svc.Start(testRoute(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Arrive at the middle point: the session advances to the last one
	if _, err := svc.HandlePosition(report(0, 0.9999)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nav, _ := svc.Current()
	if nav == nil || nav.CurrentPointIndex != 2 {
		t.Fatal("auto-advance did not move to the next point")
	}

	// Arrive at the last point: the route completes
	if _, err := svc.HandlePosition(report(0, 1.9999)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nav, _ := svc.Current(); nav != nil {
		t.Error("session still active after arriving at the final point")
	}
	msg := stub.last(websocket.MessageTypeNavigationStopped)
	if msg == nil || msg.Data["reason"] != StopReasonRouteComplete {
		t.Error("final arrival did not stop with reason route_complete")
	}
}

func TestUpdateRoute(t *testing.T) {
	svc, stub := newTestService(Config{})

	r := testRoute()
	if _, err := svc.Start(r, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A compatible edit refreshes the snapshot silently
	moved, ok := route.UpdatePoint(r, "wpt_c", route.PointUpdate{Position: &geo.Position{Lat: 0, Lon: 3}})
	if !ok {
		t.Fatal("UpdatePoint failed")
	}
	svc.UpdateRoute(moved)
	if nav, _ := svc.Current(); nav == nil || nav.CurrentPointIndex != 2 {
		t.Error("compatible route edit disturbed the session")
	}

	snapshot, err := svc.HandlePosition(report(0, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(snapshot.DistanceRemainingNM-oneDegreeNM) > 0.01 {
		t.Errorf("distance to moved target %f, expected %f", snapshot.DistanceRemainingNM, oneDegreeNM)
	}

	// Removing the target point invalidates the session
	trimmed := route.RemovePoint(moved, "wpt_c")
	svc.UpdateRoute(trimmed)
	if nav, _ := svc.Current(); nav != nil {
		t.Error("session survived losing its target point")
	}
	msg := stub.last(websocket.MessageTypeNavigationStopped)
	if msg == nil || msg.Data["reason"] != StopReasonRouteChanged {
		t.Error("invalidating edit did not stop with reason route_changed")
	}
}

func TestUpdateRouteOtherRoute(t *testing.T) {
	svc, _ := newTestService(Config{})

	if _, err := svc.Start(testRoute(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := testRoute()
	other.ID = "rte_other"
	other = route.RemovePoint(other, "wpt_b")
	svc.UpdateRoute(other)

	if nav, _ := svc.Current(); nav == nil || nav.RouteID != "rte_test" {
		t.Error("edit to an unrelated route disturbed the session")
	}
}

func TestZeroDistanceLeg(t *testing.T) {
	svc, _ := newTestService(Config{})

	r := route.Recalculate(route.Route{
		ID:              "rte_dup",
		Name:            "Duplicate",
		CruisingSpeedKn: 6,
		Points: []route.RoutePoint{
			{ID: "wpt_a", Position: geo.Position{Lat: 0, Lon: 0}},
			{ID: "wpt_b", Position: geo.Position{Lat: 0, Lon: 0}},
			{ID: "wpt_c", Position: geo.Position{Lat: 0, Lon: 1}},
		},
	})
	if _, err := svc.Start(r, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshot, err := svc.HandlePosition(report(0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A zero-distance leg is already complete
	if snapshot.LegProgressPct != 100 {
		t.Errorf("zero-distance leg progress %f, expected 100", snapshot.LegProgressPct)
	}
}
