package app

import (
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/linkstart/rt/engine"
	"github.com/gekko3d/linkstart/rt/passes"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseIntro
	PhaseEmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseIntro:
		return "intro"
	case PhaseEmitting:
		return "emitting"
	}
	return "idle"
}

const (
	// Seconds from Start to the intro hook, and from the hook to emission.
	IntroDelay  = 0.5
	IntroLength = 1.8

	InitialBeams = 50
	PioneerBeams = 3
	MaxEmitted   = 500
	EmitInterval = 0.1

	initialTravelSpeed = 0.005
	initialBirthRate   = 1
	alphaStep          = 0.02
	fadeInStep         = 0.1
)

// BeamColors is the palette beams pick from.
var BeamColors = []mgl32.Vec4{
	{169.0 / 255.0, 0, 27.0 / 255.0, 1},
	{207.0 / 255.0, 225.0 / 255.0, 37.0 / 255.0, 1},
	{0, 219.0 / 255.0, 34.0 / 255.0, 1},
	{180.0 / 255.0, 0, 180.0 / 255.0, 1},
	{0, 207.0 / 255.0, 183.0 / 255.0, 1},
	{92.0 / 255.0, 92.0 / 255.0, 92.0 / 255.0, 1},
	{16.0 / 255.0, 16.0 / 255.0, 16.0 / 255.0, 1},
}

// BeamEmitter drives the tunnel animation: beams are spawned far down the
// negative Z axis, fly towards the camera and are dropped once they pass it.
// It only touches nodes it created; other nodes in the list are left alone.
type BeamEmitter struct {
	Nodes      *engine.NodeList
	Geometry   engine.GeometryRenderer
	Background *passes.BackgroundPass

	// OnIntro runs once when the intro delay has elapsed.
	OnIntro func()

	rng         *rand.Rand
	phase       Phase
	startedAt   float64
	introFired  bool
	lastEmit    float64
	travelSpeed float32
	birthRate   float32
	emitted     int

	// intrinsic speed per live beam; zero except for pioneers
	beams map[uuid.UUID]float32
}

func NewBeamEmitter(nodes *engine.NodeList, geometry engine.GeometryRenderer, background *passes.BackgroundPass, rng *rand.Rand) *BeamEmitter {
	if background != nil {
		background.Alpha = 0
	}
	return &BeamEmitter{
		Nodes:       nodes,
		Geometry:    geometry,
		Background:  background,
		rng:         rng,
		travelSpeed: initialTravelSpeed,
		birthRate:   initialBirthRate,
		beams:       map[uuid.UUID]float32{},
	}
}

func (e *BeamEmitter) Phase() Phase         { return e.phase }
func (e *BeamEmitter) Emitted() int         { return e.emitted }
func (e *BeamEmitter) TravelSpeed() float32 { return e.travelSpeed }
func (e *BeamEmitter) BirthRate() float32   { return e.birthRate }
func (e *BeamEmitter) Beams() int           { return len(e.beams) }

func (e *BeamEmitter) IsBeam(id uuid.UUID) bool {
	_, ok := e.beams[id]
	return ok
}

// Start begins the intro at time now. Starting twice panics.
func (e *BeamEmitter) Start(now float64) {
	if e.phase != PhaseIdle {
		panic("app: invalid beam emitter phase transition")
	}
	e.phase = PhaseIntro
	e.startedAt = now
}

// Update advances the animation by one frame. Speeds are per frame.
func (e *BeamEmitter) Update(now float64) {
	switch e.phase {
	case PhaseIdle:
		return
	case PhaseIntro:
		if !e.introFired && now >= e.startedAt+IntroDelay {
			e.introFired = true
			if e.OnIntro != nil {
				e.OnIntro()
			}
		}
		if now >= e.startedAt+IntroDelay+IntroLength {
			e.startEmitting()
		}
		return
	}

	if e.emitted < 100 {
		e.addBackgroundAlpha(alphaStep)
	}
	for _, n := range e.Nodes.Nodes() {
		speed, ok := e.beams[n.ID]
		if !ok {
			continue
		}
		n.Transform.Translation[2] += e.travelSpeed + speed
		n.Opacity = math32.Min(1, n.Opacity+fadeInStep)
	}

	if e.emitted > MaxEmitted-10 {
		e.addBackgroundAlpha(-alphaStep)
		e.travelSpeed = math32.Max(0.6, e.travelSpeed-0.04)
	} else if e.emitted > MaxEmitted-20 {
		e.birthRate = math32.Max(5, e.birthRate-1)
	}

	e.Nodes.Retain(func(n *engine.RenderNode) bool {
		if _, ok := e.beams[n.ID]; !ok || n.Transform.Translation.Z() < 0 {
			return true
		}
		delete(e.beams, n.ID)
		return false
	})

	if now-e.lastEmit < EmitInterval || e.emitted > MaxEmitted {
		return
	}
	if e.birthRate < 50 {
		e.birthRate += 2
	}
	if e.travelSpeed < 3 {
		e.travelSpeed += 0.24
	}
	for i := 0; i < int(math32.Floor(e.birthRate)); i++ {
		e.emit()
	}
	e.lastEmit = now
}

func (e *BeamEmitter) startEmitting() {
	e.phase = PhaseEmitting
	for i := 0; i < InitialBeams; i++ {
		e.emit()
	}
	// The opening burst does not count towards the ramps.
	e.emitted = 0
}

func (e *BeamEmitter) addBackgroundAlpha(delta float32) {
	if e.Background == nil {
		return
	}
	e.Background.Alpha = math32.Min(1, math32.Max(0, e.Background.Alpha+delta))
}

func (e *BeamEmitter) uniform(lo, hi float32) float32 {
	return lo + e.rng.Float32()*(hi-lo)
}

func (e *BeamEmitter) emit() {
	pioneer := e.emitted < PioneerBeams
	angle := e.uniform(0, 2*math32.Pi)
	radius := float32(4+e.rng.Intn(7)) * 5

	height := e.uniform(0.5, 10)
	if pioneer {
		height = e.uniform(0.5, 0.8)
	}

	n := engine.NewRenderNode(e.Geometry)
	n.Transform.Translation = mgl32.Vec3{
		math32.Sin(angle) * radius,
		math32.Cos(angle) * radius,
		e.uniform(-120, -100),
	}
	n.Transform.Scale = mgl32.Vec3{1.2, height, 1.2}
	n.Transform.Rotation = mgl32.Vec3{math32.Pi / 2, 0, 0}
	n.Opacity = 0
	n.Color = BeamColors[e.rng.Intn(len(BeamColors))]

	var speed float32
	if pioneer {
		speed = e.uniform(0.8, 1)
	}
	e.beams[n.ID] = speed
	e.Nodes.Append(n)
	e.emitted++
}
