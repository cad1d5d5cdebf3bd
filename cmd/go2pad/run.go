// Package main starts the go2pad server.
package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/frudas24/go2pad/internal/app"
	"github.com/frudas24/go2pad/internal/config"
	"github.com/frudas24/go2pad/internal/media"
	"github.com/frudas24/go2pad/internal/robot"
	"github.com/frudas24/go2pad/internal/session"
	"github.com/frudas24/go2pad/internal/telemetry"
)

// run wires the application and blocks until shutdown.
func run(debug bool, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return err
	}
	media.SetDebugLogging(debug)
	robot.SetDebugLogging(debug)
	if debug {
		log.Printf("debug: enabled")
	}
	logStartup(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.New(cfg.UIPassword)
	publisher, err := media.NewPublisher()
	if err != nil {
		return err
	}

	client := robot.NewClient(robot.Options{
		IP:        cfg.RobotIP,
		Method:    cfg.RobotMethod,
		OfferPort: cfg.OfferPort,
	})
	defer func() { _ = client.Close() }()

	monitor := telemetry.NewMonitor()
	if err := monitor.Attach(client); err != nil {
		return err
	}

	appInstance, err := app.New(cfg, sess, client, publisher, monitor)
	if err != nil {
		return err
	}
	client.OnTrack(appInstance.HandleRobotTrack)
	appInstance.Start(ctx)

	// The robot link outlives the signal so the final stop can reach it.
	robotCtx, cancelRobot := context.WithCancel(context.Background())
	defer cancelRobot()
	go func() {
		if err := client.Run(robotCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("robot: stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	appInstance.RegisterRoutes(mux, "")
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdownErr := server.Shutdown(shutdownCtx)
	appInstance.Stop()
	cancelRobot()
	if serveErr != nil {
		return serveErr
	}
	return shutdownErr
}

// logFatal prints and exits for startup failures.
func logFatal(err error) {
	log.Printf("fatal: %v", err)
	os.Exit(1)
}

// logStartup prints startup checks and connection info.
func logStartup(cfg config.Config) {
	log.Printf("go2pad starting")
	logEnvStatus(cfg)
	log.Printf("robot: %s via %s (offer port %d)", displayIP(cfg.RobotIP), cfg.RobotMethod, cfg.OfferPort)
	log.Printf("limits: forward %.2f lateral %.2f yaw %.2f, move interval %dms",
		cfg.MaxForward, cfg.MaxLateral, cfg.MaxYaw, cfg.MoveIntervalMs)
	logListenStatus(cfg.ListenAddr)
}

// logEnvStatus reports whether the .env and YAML files were found.
func logEnvStatus(cfg config.Config) {
	envPath := filepath.Join(cfg.DataDir, ".env")
	if fileExists(envPath) {
		log.Printf("env check: ok (%s)", envPath)
	} else {
		log.Printf("env check: missing (%s)", envPath)
	}
	if fileExists(cfg.RobotConfig) {
		log.Printf("robot config: ok (%s)", cfg.RobotConfig)
	} else {
		log.Printf("robot config: missing (%s), using env and defaults", cfg.RobotConfig)
	}
	if strings.TrimSpace(cfg.UIPassword) == "" {
		log.Printf("env UI_PASSWORD: missing")
	} else {
		log.Printf("env UI_PASSWORD: set")
	}
}

// displayIP returns ip or a placeholder for logs.
func displayIP(ip string) string {
	if ip == "" {
		return "(default)"
	}
	return ip
}

// logListenStatus reports the listen address and a local URL helper.
func logListenStatus(addr string) {
	log.Printf("listen addr: %s", addr)
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	log.Printf("local url: http://%s", net.JoinHostPort(host, port))
}

// fileExists reports whether a path exists and is a file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
