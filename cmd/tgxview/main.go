// tgxview - Terminal 3D model viewer for tgx's packed mesh files.
//
// Controls:
//
//	Mouse drag  - Rotate model (yaw/pitch)
//	Scroll      - Zoom in/out
//	W/S         - Pitch up/down
//	A/D         - Yaw left/right
//	Q/E         - Roll left/right
//	Space       - Apply random impulse
//	R           - Reset rotation
//	T           - Toggle the texture shader bit (no visible change: the
//	              renderer samples a mesh's RGB888 texture only into an
//	              RGB888 target, and this viewer draws RGBA8888)
//	L           - Light positioning mode (move mouse, click to set, Esc to cancel)
//	?           - Toggle HUD overlay
//	+/-         - Adjust zoom
//	Esc         - Quit (or cancel light mode)
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/tgx/pkg/depth"
	"github.com/taigrr/tgx/pkg/math3d"
	"github.com/taigrr/tgx/pkg/mesh"
	"github.com/taigrr/tgx/pkg/pixel"
	"github.com/taigrr/tgx/pkg/raster"
	"github.com/taigrr/tgx/pkg/render"
)

var (
	targetFPS = flag.Int("fps", 30, "Target FPS")
	bgColor   = flag.String("bg", "30,30,40", "Background color (R,G,B)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tgxview - Terminal 3D model viewer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: tgxview [options] <model.tgxm>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rotationAxis tracks position and velocity for one rotation axis,
// with harmonica spring decay bringing velocity back to 0.
type rotationAxis struct {
	position, velocity float64
	spring             harmonica.Spring
	accel              float64
}

func newRotationAxis(fps int) rotationAxis {
	return rotationAxis{spring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0)}
}

func (a *rotationAxis) update() {
	a.position += a.velocity
	a.velocity, a.accel = a.spring.Update(a.velocity, a.accel, 0)
}

type rotationState struct {
	pitch, yaw, roll rotationAxis
}

func newRotationState(fps int) *rotationState {
	return &rotationState{
		pitch: newRotationAxis(fps),
		yaw:   newRotationAxis(fps),
		roll:  newRotationAxis(fps),
	}
}

func (s *rotationState) update() {
	s.pitch.update()
	s.yaw.update()
	s.roll.update()
}

func (s *rotationState) applyImpulse(dp, dy, dr float64) {
	s.pitch.velocity += dp
	s.yaw.velocity += dy
	s.roll.velocity += dr
}

func (s *rotationState) reset() {
	*s = *newRotationState(*targetFPS)
}

// screenToLightDir maps a screen position to a point on a hemisphere
// facing the viewer and returns the unit direction from the model
// toward that point, i.e. toward the light.
func screenToLightDir(x, y, w, h int) math3d.Vec3 {
	nx := (float64(x)/float64(w))*2 - 1
	ny := (float64(y)/float64(h))*2 - 1
	lenSq := nx*nx + ny*ny
	if lenSq > 1 {
		l := math.Sqrt(lenSq)
		nx /= l
		ny /= l
		lenSq = 1
	}
	nz := math.Sqrt(1 - lenSq)
	return math3d.V3(nx, -ny, nz).Normalize()
}

// viewState holds the toggles a keypress can flip mid-session.
type viewState struct {
	textureEnabled bool
	lightMode      bool
	lightDir       math3d.Vec3
	pendingLight   math3d.Vec3
	showHUD        bool
}

func newViewState() *viewState {
	return &viewState{
		textureEnabled: true,
		lightDir:       math3d.V3(0.3, 0.5, 1).Normalize(),
		showHUD:        true,
	}
}

// hud tracks the overlay's FPS counter and draws directly over the
// alt-screen with raw ANSI escapes, independent of the uv.Screen cell
// grid the model itself is blitted through.
type hud struct {
	filename  string
	triCount  int
	fps       float64
	fpsFrames int
	fpsSince  time.Time
}

func newHUD(filename string, triCount int) *hud {
	return &hud{filename: filename, triCount: triCount, fpsSince: time.Now()}
}

func (h *hud) updateFPS() {
	h.fpsFrames++
	elapsed := time.Since(h.fpsSince)
	if elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsSince = time.Now()
	}
}

func (h *hud) render(width, height int, v *viewState) {
	const (
		reset     = "\x1b[0m"
		bold      = "\x1b[1m"
		bgBlack   = "\x1b[40m"
		fgWhite   = "\x1b[97m"
		fgGreen   = "\x1b[92m"
		fgYellow  = "\x1b[93m"
		fgCyan    = "\x1b[96m"
		clearLine = "\x1b[2K"
	)
	moveTo := func(row, col int) string { return fmt.Sprintf("\x1b[%d;%dH", row, col) }

	fmt.Print(moveTo(1, 1) + clearLine)
	fmt.Print(moveTo(height, 1) + clearLine)

	if v.lightMode {
		msg := fmt.Sprintf("%s%s%s LIGHT MODE - move mouse, click to set, Esc to cancel %s", bgBlack, bold, fgYellow, reset)
		col := max((width-56)/2, 1)
		fmt.Print(moveTo(height, col) + msg)
		return
	}
	if !v.showHUD {
		return
	}

	fmt.Print(moveTo(1, 1) + fmt.Sprintf("%s%s %.0f FPS %s", bgBlack, fgGreen, h.fps, reset))

	titleCol := max((width-len(h.filename)-2)/2, 1)
	fmt.Print(moveTo(1, titleCol) + fmt.Sprintf("%s%s%s %s %s", bold, bgBlack, fgWhite, h.filename, reset))

	polyCol := max(width-16, 1)
	fmt.Print(moveTo(1, polyCol) + fmt.Sprintf("%s%s%s %d tris %s", bgBlack, fgCyan, bold, h.triCount, reset))

	texState := "off"
	if v.textureEnabled {
		texState = "on"
	}
	hint := fmt.Sprintf("%s%s texture:%s  ?:hud  l:light  r:reset  esc:quit %s", bgBlack, fgWhite, texState, reset)
	fmt.Print(moveTo(height, 1) + hint)
}

func run(modelPath string) error {
	var bgR, bgG, bgB uint8 = 30, 30, 40
	fmt.Sscanf(*bgColor, "%d,%d,%d", &bgR, &bgG, &bgB)

	f, err := os.Open(modelPath)
	if err != nil {
		return fmt.Errorf("open model: %w", err)
	}
	m, err := mesh.Load(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	if !m.BoundsComputed() {
		m.ComputeBounds()
	}
	tris, err := m.DecodeFaces()
	if err != nil {
		return fmt.Errorf("decode faces: %w", err)
	}
	fmt.Printf("Loaded: %s (%d vertices, %d triangles)\n", filepath.Base(modelPath), len(m.Vertices), len(tris))

	// Center and scale so the model fits in [-1,1].
	center := m.Bounds.Min.Add(m.Bounds.Max).Scale(0.5)
	size := m.Bounds.Max.Sub(m.Bounds.Min)
	maxDim := math.Max(size.X, math.Max(size.Y, size.Z))
	if maxDim > 0 {
		scale := 2.0 / maxDim
		for i, v := range m.Vertices {
			m.Vertices[i] = v.Sub(center).Scale(scale)
		}
		m.ComputeBounds()
	}

	term := uv.DefaultTerminal()
	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)
	fmt.Fprint(os.Stdout, "\x1b[?1003h\x1b[?1006h")

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}

	fbWidth, fbHeight := width, height*2
	target := pixel.NewView(make([]pixel.RGBA8888, fbWidth*fbHeight), fbWidth, fbHeight, fbWidth)
	depthBuf := make([]float32, fbWidth*fbHeight)
	depthView := depth.NewView(depthBuf, fbWidth)

	rend := render.New[pixel.RGBA8888](fbWidth, fbHeight)
	rend.SetTarget(target)
	rend.SetDepth(&depthView)
	rend.SetDepthTest(true)
	rend.SetBackfaceCulling(true)
	rend.SetOrtho(false)

	camZ := 5.0
	aspect := float64(fbWidth) / float64(fbHeight)
	proj := math3d.Perspective(math.Pi/3, aspect, 0.1, 100)

	rotation := newRotationState(*targetFPS)
	vstate := newViewState()
	overlay := newHUD(filepath.Base(modelPath), len(tris))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	var inputTorque struct{ pitch, yaw, roll float64 }
	const torqueStrength = 3.0
	var mouseDown bool
	var lastMouseX, lastMouseY int

	go func() {
		for ev := range term.Events() {
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				width, height = ev.Width, ev.Height
				term.Erase()
				term.Resize(width, height)

			case uv.KeyPressEvent:
				switch {
				case ev.MatchString("escape"):
					if vstate.lightMode {
						vstate.lightMode = false
					} else {
						cancel()
						return
					}
				case ev.MatchString("ctrl+c"):
					cancel()
					return
				case ev.MatchString("r"):
					rotation.reset()
					camZ = 5.0
				case ev.MatchString("w", "up"):
					inputTorque.pitch = -torqueStrength
				case ev.MatchString("s", "down"):
					inputTorque.pitch = torqueStrength
				case ev.MatchString("a", "left"):
					inputTorque.yaw = -torqueStrength
				case ev.MatchString("d", "right"):
					inputTorque.yaw = torqueStrength
				case ev.MatchString("q"):
					inputTorque.roll = -torqueStrength
				case ev.MatchString("e"):
					inputTorque.roll = torqueStrength
				case ev.MatchString("space"):
					rotation.applyImpulse((rand.Float64()-0.5)*1.5, (rand.Float64()-0.5)*1.5, (rand.Float64()-0.5)*1.5)
				case ev.MatchString("+", "="):
					camZ = math.Max(1, camZ-0.5)
				case ev.MatchString("-", "_"):
					camZ = math.Min(20, camZ+0.5)
				case ev.MatchString("t"):
					vstate.textureEnabled = !vstate.textureEnabled
				case ev.MatchString("l"):
					vstate.lightMode = true
					vstate.pendingLight = vstate.lightDir
				case ev.MatchString("?"), ev.MatchString("shift+/"):
					vstate.showHUD = !vstate.showHUD
				}

			case uv.KeyReleaseEvent:
				switch {
				case ev.MatchString("w"), ev.MatchString("up"), ev.MatchString("s"), ev.MatchString("down"):
					inputTorque.pitch = 0
				case ev.MatchString("a"), ev.MatchString("left"), ev.MatchString("d"), ev.MatchString("right"):
					inputTorque.yaw = 0
				case ev.MatchString("q"), ev.MatchString("e"):
					inputTorque.roll = 0
				}

			case uv.MouseClickEvent:
				if vstate.lightMode {
					vstate.lightDir = vstate.pendingLight
					vstate.lightMode = false
				} else {
					mouseDown = true
					lastMouseX, lastMouseY = ev.X, ev.Y
				}

			case uv.MouseReleaseEvent:
				if !vstate.lightMode {
					mouseDown = false
				}

			case uv.MouseMotionEvent:
				if vstate.lightMode {
					vstate.pendingLight = screenToLightDir(ev.X, ev.Y, width, height)
				} else if mouseDown {
					dx, dy := ev.X-lastMouseX, ev.Y-lastMouseY
					rotation.applyImpulse(float64(dy)*0.03, float64(dx)*0.03, 0)
					lastMouseX, lastMouseY = ev.X, ev.Y
				}

			case uv.MouseWheelEvent:
				switch ev.Button {
				case uv.MouseWheelUp:
					camZ = math.Max(1, camZ-0.5)
				case uv.MouseWheelDown:
					camZ = math.Min(20, camZ+0.5)
				}
			}
		}
	}()

	targetDuration := time.Second / time.Duration(*targetFPS)
	lastFrame := time.Now()
	clearColor := pixel.RGBA8888{R: bgR, G: bgG, B: bgB, A: 255}

	for {
		select {
		case <-ctx.Done():
			cleanup()
			return nil
		default:
		}

		now := time.Now()
		dt := now.Sub(lastFrame).Seconds()
		lastFrame = now
		if dt > 0.1 {
			dt = 0.1
		}

		rotation.applyImpulse(inputTorque.pitch*dt, inputTorque.yaw*dt, inputTorque.roll*dt)
		inputTorque.pitch *= 0.9
		inputTorque.yaw *= 0.9
		inputTorque.roll *= 0.9
		rotation.update()

		model := math3d.RotateX(rotation.pitch.position).
			Mul(math3d.RotateY(rotation.yaw.position)).
			Mul(math3d.RotateZ(rotation.roll.position))
		view := math3d.Translate(math3d.V3(0, 0, -camZ))

		lightDir := vstate.lightDir
		if vstate.lightMode {
			lightDir = vstate.pendingLight
		}

		for i := range target.Base {
			target.Base[i] = clearColor
		}
		for i := range depthBuf {
			depthBuf[i] = float32(math.Inf(-1))
		}

		// Scene.LightDir is the direction light travels: the opposite of
		// the toward-the-light vector kept in viewState.
		rend.SetScene(render.Scene{
			Proj:          proj,
			View:          view,
			Model:         model,
			LightDir:      lightDir.Negate(),
			AmbientColor:  pixel.ColorF{R: 0.25, G: 0.25, B: 0.25},
			DiffuseColor:  pixel.ColorF{R: 0.9, G: 0.9, B: 0.9},
			SpecularColor: pixel.ColorF{R: 0.6, G: 0.6, B: 0.6},
		})

		shader := raster.Gouraud
		if vstate.textureEnabled {
			shader |= raster.Texture
		}
		rend.Draw(shader, m)

		area := uv.Rectangle{Min: image.Point{X: 0, Y: 0}, Max: image.Point{X: width, Y: height}}
		term.Display(func(scr uv.Screen) {
			render.BlitToTerminal(target, scr, area)
		})

		overlay.updateFPS()
		overlay.render(width, height, vstate)

		elapsed := time.Since(now)
		if elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}
