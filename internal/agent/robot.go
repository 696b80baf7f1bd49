package agent

import (
	"math"
	"time"
)

// Position is a point in the flat world the simulated robot drives on.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Position) DistanceTo(o Position) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// arrivalRadius is how close the robot must get to a waypoint to count as
// having reached it.
const arrivalRadius = 0.01

// Locations maps the named waypoints missions may reference. Home doubles
// as the charging dock.
var Locations = map[string]Position{
	"home":  {0, 0},
	"north": {1, 0},
	"east":  {0, 1},
	"west":  {0, -1},
	"south": {-1, 0},
}

// Robot simulates a differential-drive robot with a battery that drains
// while operating and recharges at the home dock. All methods are called
// from the tick loop goroutine; the type is not safe for concurrent use.
type Robot struct {
	position      Position
	battery       float64
	dischargeRate float64
	chargeRate    float64
	speed         float64
	waypoint      *Position
	lastSense     time.Time

	now func() time.Time
}

func NewRobot(speed, dischargeRate, chargeRate float64) *Robot {
	r := &Robot{
		position:      Locations["home"],
		battery:       1.0,
		dischargeRate: dischargeRate,
		chargeRate:    chargeRate,
		speed:         speed,
		now:           time.Now,
	}
	r.lastSense = r.now()
	return r
}

// Sense advances the simulation to the current time: the robot moves
// toward its waypoint at its configured speed, drains battery, and charges
// while parked at home.
func (r *Robot) Sense() {
	now := r.now()
	dt := now.Sub(r.lastSense).Seconds()
	r.lastSense = now
	if dt <= 0 {
		return
	}
	if r.waypoint != nil {
		r.position = moveWithSpeed(r.position, *r.waypoint, r.speed, dt)
	}
	r.battery = math.Max(0, r.battery-dt*r.dischargeRate)
	if r.position.DistanceTo(Locations["home"]) < arrivalRadius {
		r.battery = math.Min(1.0, r.battery+dt*r.chargeRate)
	}
}

// moveWithSpeed moves from a toward b for dt seconds, stopping at b.
func moveWithSpeed(a, b Position, speed, dt float64) Position {
	dx, dy := b.X-a.X, b.Y-a.Y
	dist := math.Hypot(dx, dy)
	maxTravel := speed * dt
	if dist <= maxTravel || dist == 0 {
		return b
	}
	scale := maxTravel / dist
	return Position{a.X + dx*scale, a.Y + dy*scale}
}

func (r *Robot) SetWaypoint(p Position) {
	wp := p
	r.waypoint = &wp
}

func (r *Robot) ClearWaypoint() { r.waypoint = nil }

func (r *Robot) Waypoint() (Position, bool) {
	if r.waypoint == nil {
		return Position{}, false
	}
	return *r.waypoint, true
}

func (r *Robot) Position() Position { return r.position }
func (r *Robot) Battery() float64   { return r.battery }
func (r *Robot) Speed() float64     { return r.speed }

func (r *Robot) SetSpeed(v float64) {
	if v > 0 {
		r.speed = v
	}
}

// AtHome reports whether the robot is parked on the charging dock.
func (r *Robot) AtHome() bool {
	return r.position.DistanceTo(Locations["home"]) < arrivalRadius
}
