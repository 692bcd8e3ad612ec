package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/CamLayer/internal/bridge"
	"github.com/bryanchriswhite/CamLayer/internal/camera"
	"github.com/bryanchriswhite/CamLayer/internal/config"
	"github.com/bryanchriswhite/CamLayer/internal/gpu"
	"github.com/bryanchriswhite/CamLayer/internal/logger"
	"github.com/bryanchriswhite/CamLayer/internal/mode"
	"github.com/bryanchriswhite/CamLayer/internal/render"
	"github.com/bryanchriswhite/CamLayer/internal/window"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the camera overlay",
	Long: `Open the camera and present it as a floating thumbnail pinned to the
top-right corner of the main window. The presentation mode can be
toggled over the bridge API while running.`,
	Example: `  # Start with defaults (/dev/video0, port 8080)
  camlayer run

  # Use a different camera
  camlayer run --device /dev/video2

  # Toggle the mode from a hotkey script
  curl -X POST http://localhost:8080/api/camera/toggle`,
	RunE: runOverlay,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOverlay(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	// Flag overrides
	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port > 0 {
			configMgr.SetPort(port)
		}
	}
	if viper.IsSet("log_level") {
		if level := viper.GetString("log_level"); level != "" {
			configMgr.SetLogLevel(level)
		}
	}
	if viper.IsSet("camera.device") {
		if device := viper.GetString("camera.device"); device != "" {
			configMgr.SetDevice(device)
		}
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("camlayer")

	// Windowing; everything below runs on the locked main thread.
	backend := window.NewGLFWBackend()
	if err := backend.Init(); err != nil {
		return err
	}
	defer backend.Terminate()

	mainWin, err := backend.CreateMain(cfg.Window)
	if err != nil {
		return err
	}
	defer mainWin.Destroy()

	// GPU context, with the main window surface used to pick the adapter.
	ctx, surface, err := gpu.NewContext(mainWin.SurfaceDescriptor())
	if err != nil {
		return err
	}
	defer ctx.Release()

	surfaces := gpu.NewSurfaceManager(ctx)
	fbW, fbH := mainWin.FramebufferSize()
	mainTarget, err := surfaces.Adopt(surface, fbW, fbH)
	if err != nil {
		return err
	}

	// Capture
	src, err := camera.OpenSource(cfg.Camera)
	if err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}

	mailbox := camera.NewMailbox()
	worker := camera.NewWorker(src, mailbox)
	if err := worker.Start(); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	inhibitor := window.NewInhibitor()
	if err := inhibitor.Inhibit("camlayer", "camera is live"); err != nil {
		log.Warn().Err(err).Msg("Screensaver inhibition unavailable")
	}

	// Presentation
	loop := render.NewLoop(backend, ctx, surfaces, mailbox, worker, cfg.Overlay, mainWin, mainTarget)
	controller := mode.NewController(loop, loop)

	// Initial thumbnail overlay, created directly since the loop is not
	// running yet and this is still the render thread.
	if err := loop.EnterThumbnail(); err != nil {
		worker.Stop()
		return fmt.Errorf("failed to create overlay: %w", err)
	}

	// Bridge
	server := bridge.NewServer(controller, bridge.NewPreview(loop))
	go func() {
		if err := server.Start(cfg.ServerPort); err != nil {
			log.Error().Err(err).Msg("Bridge server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
		loop.Stop()
	}()

	log.Info().
		Int("port", cfg.ServerPort).
		Str("device", cfg.Camera.Device).
		Msg("CamLayer is running")

	loop.Run()

	// Shutdown order matters: stop the bridge so no transition can be
	// dispatched into a dead loop, join the capture worker so nothing
	// writes into released GPU memory, then tear the GPU and windows
	// down (deferred above, in reverse).
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Bridge shutdown did not finish cleanly")
	}

	worker.Stop()
	inhibitor.Release()
	loop.Close()

	log.Info().Msg("Shutdown complete")
	return nil
}
