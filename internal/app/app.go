// Package app wires HTTP, signaling, control, and robot state together.
package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/frudas24/go2pad/internal/config"
	"github.com/frudas24/go2pad/internal/control"
	"github.com/frudas24/go2pad/internal/ffmpeg"
	"github.com/frudas24/go2pad/internal/media"
	"github.com/frudas24/go2pad/internal/mjpeg"
	"github.com/frudas24/go2pad/internal/prefs"
	"github.com/frudas24/go2pad/internal/robot"
	"github.com/frudas24/go2pad/internal/session"
	"github.com/frudas24/go2pad/internal/signaling"
	"github.com/frudas24/go2pad/internal/telemetry"
	"github.com/pion/webrtc/v3"
)

// Robot is the robot surface the HTTP API and joystick drive.
type Robot interface {
	control.Driver
	Connected() bool
	MotionMode(ctx context.Context) (string, error)
	SetMotionMode(ctx context.Context, mode string) error
	Action(ctx context.Context, name string, params map[string]any) (robot.Response, error)
}

// videoSwitch is implemented by robots that can toggle their camera stream.
type videoSwitch interface {
	SetVideo(on bool) error
}

// App coordinates the HTTP API, websocket servers, and robot commands.
type App struct {
	cfg        config.Config
	session    *session.Session
	robot      Robot
	telemetry  *telemetry.Monitor
	dispatcher *control.Dispatcher
	mixer      *control.Mixer
	relay      *media.Relay
	signaling  *signaling.Server
	control    *control.Server
	stream     *mjpeg.Stream
	preview    *ffmpeg.Preview
	cancelRun  context.CancelFunc

	mu           sync.Mutex
	webrtcViewer bool
	jpegViewers  int
	videoOn      bool
}

// New creates a new application with its dependencies wired.
func New(cfg config.Config, sess *session.Session, rob Robot, publisher *media.Publisher, tel *telemetry.Monitor) (*App, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}
	if rob == nil {
		return nil, errors.New("robot is required")
	}
	if publisher == nil {
		return nil, errors.New("media publisher is required")
	}
	if tel == nil {
		tel = telemetry.NewMonitor()
	}

	track, err := publisher.Track()
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg:       cfg,
		session:   sess,
		robot:     rob,
		telemetry: tel,
	}
	sess.SetJoystickSize(app.initialJoystickSize())

	var out media.PacketWriter = track
	if cfg.FFmpegPath != "" {
		interval := time.Second / time.Duration(max(cfg.PreviewFPS, 1))
		app.stream = mjpeg.NewStream(interval, app.jpegViewersChanged)
		app.preview = ffmpeg.NewPreview(app.stream, ffmpeg.Options{
			FFmpegPath: cfg.FFmpegPath,
			Width:      cfg.PreviewWidth,
			Height:     cfg.PreviewHeight,
			FPS:        cfg.PreviewFPS,
			Quality:    cfg.PreviewQuality,
		})
		out = media.MultiWriter{track, app.preview}
	}
	app.relay = media.NewRelay(out)

	interval := time.Duration(cfg.MoveIntervalMs) * time.Millisecond
	app.dispatcher = control.NewDispatcher(rob, interval)
	app.mixer = control.NewMixer(control.Limits{
		Forward: cfg.MaxForward,
		Lateral: cfg.MaxLateral,
		Yaw:     cfg.MaxYaw,
	}, sess.InputEnabled, app.dispatcher)

	app.signaling = signaling.NewServer(publisher, signaling.ViewerReplace, sess.IsAuthenticated, app.webrtcViewerChanged)
	app.control = control.NewServer(sess, app.mixer, app.saveJoystickSize)
	return app, nil
}

// stopDrainTimeout bounds how long Stop waits for the final stop command.
const stopDrainTimeout = 3 * time.Second

// Start runs the command dispatcher and the optional preview. The dispatcher
// outlives ctx so Stop can still deliver the final stop; Stop ends it.
func (a *App) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.mu.Lock()
	a.cancelRun = cancel
	a.mu.Unlock()
	go a.dispatcher.Run(runCtx)
	if a.preview != nil {
		if err := a.preview.Start(); err != nil {
			log.Printf("app: preview disabled: %v", err)
		}
	}
}

// Stop disables input, delivers a final stop to the robot, then ends the
// dispatcher and the preview. The robot link must still be up when it runs.
func (a *App) Stop() {
	a.mu.Lock()
	cancel := a.cancelRun
	a.cancelRun = nil
	a.mu.Unlock()

	a.session.SetInputEnabled(false)
	a.mixer.Halt()
	if cancel != nil {
		if !a.dispatcher.Drain(stopDrainTimeout) {
			log.Printf("app: final stop not confirmed")
		}
		cancel()
	}
	if a.preview != nil {
		a.preview.Stop()
	}
}

// HandleRobotTrack relays a robot media track to the viewers.
func (a *App) HandleRobotTrack(track *webrtc.TrackRemote) {
	if track.Kind() != webrtc.RTPCodecTypeVideo {
		return
	}
	a.relay.HandleTrack(track)
	a.signaling.NotifyVideo(true)
}

// initialJoystickSize prefers the saved size over the configured one.
func (a *App) initialJoystickSize() float64 {
	if a.cfg.DataDir == "" {
		return a.cfg.JoystickSize
	}
	p, err := prefs.Load(a.cfg.PrefsPath())
	if err != nil {
		log.Printf("app: load prefs: %v", err)
		return a.cfg.JoystickSize
	}
	if p.JoystickSize > 0 {
		return p.JoystickSize
	}
	return a.cfg.JoystickSize
}

// saveJoystickSize persists the operator's joystick size.
func (a *App) saveJoystickSize(size float64) {
	if a.cfg.DataDir == "" {
		return
	}
	if err := prefs.Save(a.cfg.PrefsPath(), prefs.Prefs{JoystickSize: size}); err != nil {
		log.Printf("app: save prefs: %v", err)
	}
}

// webrtcViewerChanged records the signaling viewer state.
func (a *App) webrtcViewerChanged(active bool) {
	a.mu.Lock()
	a.webrtcViewer = active
	a.mu.Unlock()
	a.updateVideo()
}

// jpegViewersChanged records the preview viewer count.
func (a *App) jpegViewersChanged(n int) {
	a.mu.Lock()
	a.jpegViewers = n
	a.mu.Unlock()
	a.updateVideo()
}

// updateVideo turns the robot camera on while anyone is watching.
func (a *App) updateVideo() {
	vs, ok := a.robot.(videoSwitch)
	if !ok {
		return
	}
	a.mu.Lock()
	want := a.webrtcViewer || a.jpegViewers > 0
	changed := want != a.videoOn
	a.videoOn = want
	a.mu.Unlock()
	if !changed {
		return
	}
	if err := vs.SetVideo(want); err != nil && !errors.Is(err, robot.ErrNotConnected) {
		log.Printf("app: set video %v: %v", want, err)
	}
}

// Signaling returns the signaling websocket handler.
func (a *App) Signaling() *signaling.Server {
	return a.signaling
}

// Control returns the control websocket handler.
func (a *App) Control() *control.Server {
	return a.control
}

// Preview returns the JPEG preview stream, or nil when disabled.
func (a *App) Preview() *mjpeg.Stream {
	return a.stream
}
