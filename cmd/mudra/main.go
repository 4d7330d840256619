package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/autocorrect"
	"github.com/ayusman/mudra/internal/bus"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/observe"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/sentence"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath  string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mudra: %v\n", err)
		os.Exit(1)
	}
	log := logging.NewLogger(cfg.Log, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("mudra exited with error")
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	log.WithField("version", version).Info("starting mudra")

	// Metrics
	var (
		metrics  *observe.Metrics
		provider *observe.Provider
	)
	if cfg.Metrics.Enabled {
		p, err := observe.InitProvider("mudra", version)
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := p.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("metrics shutdown failed")
			}
		}()
		if metrics, err = observe.NewMetrics(p.MeterProvider); err != nil {
			return fmt.Errorf("create metrics: %w", err)
		}
		provider = p
	}

	// Store
	if err := os.MkdirAll(cfg.Store.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	log.WithField("path", st.Path()).Info("store opened")

	// Recognition pipeline
	normalizer := detector.NewNormalizer(float64(cfg.Detection.FrameWidth), float64(cfg.Detection.FrameHeight), cfg.Detection.MirrorX)
	classifierOpts := []gesture.Option{gesture.WithThresholds(cfg.Classifier.Thresholds)}
	var matcher *gesture.TemplateMatcher
	if cfg.Classifier.Templates {
		matcher = gesture.NewTemplateMatcher()
		classifierOpts = append(classifierOpts, gesture.WithSecondary(matcher, cfg.Classifier.TemplateMinConfidence))
	}
	classifier := gesture.NewClassifier(normalizer, classifierOpts...)

	dictionary, err := loadDictionary(cfg.Autocorrect)
	if err != nil {
		return err
	}
	var (
		live      *autocorrect.Live
		corrector sentence.Corrector
	)
	if cfg.Autocorrect.Enabled {
		live = autocorrect.NewLive(autocorrect.New(dictionary))
		corrector = live
	}

	sessions := session.NewManager(classifier, corrector, cfg.Session, session.WithLogger(log))

	// Plugins
	var (
		plugins    *plugin.Manager
		dispatcher *plugin.Dispatcher
	)
	if cfg.Plugins.Enabled {
		plugins = plugin.NewManager(cfg.Plugins.Dir)
		dispatcher = plugin.NewDispatcher(plugins, plugin.NewExecutor(cfg.Plugins.Timeout), log)
	}

	// Camera
	var source app.SourceFactory
	if camSource := openCamera(cfg.Detection, log); camSource != nil {
		defer camSource.Close()
		source = camSource.Factory()
	}

	application := app.New(app.Config{
		Sessions:   sessions,
		Store:      st,
		Matcher:    matcher,
		Corrector:  live,
		Dictionary: dictionary,
		Plugins:    plugins,
		Dispatcher: dispatcher,
		Source:     source,
		Interval:   cfg.TickInterval(),
		Metrics:    metrics,
		Log:        log,
	})
	if err := application.LoadTemplates(); err != nil {
		return err
	}
	if err := application.ReloadVocabulary(); err != nil {
		return err
	}
	if err := application.DiscoverPlugins(); err != nil {
		log.WithError(err).Warn("plugin discovery failed")
	}

	// Event bus
	var publisher *bus.Publisher
	if cfg.Bus.Enabled {
		publisher, err = bus.Connect(cfg.Bus, log)
		if err != nil {
			return err
		}
		defer publisher.Close()
	}

	srvCfg := server.Config{
		StaticDir: findWebDir(cfg.Server.StaticDir),
		App:       application,
		Metrics:   metrics,
		Log:       log,
	}
	if provider != nil {
		srvCfg.MetricsHandler = provider.Handler
		srvCfg.MetricsPath = cfg.Metrics.Path
	}
	if publisher != nil {
		srvCfg.BusHealthy = publisher.Healthy
	}
	if srvCfg.StaticDir != "" {
		log.WithField("dir", srvCfg.StaticDir).Info("serving static files")
	}
	srv := server.New(srvCfg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return application.Run(ctx)
	})
	g.Go(func() error {
		return srv.Run(ctx, cfg.Server.Addr)
	})
	if publisher != nil {
		events, unsubscribe := sessions.Subscribe(256)
		g.Go(func() error {
			defer unsubscribe()
			return publisher.Run(ctx, events)
		})
	}

	if !cfg.Tray.Enabled {
		return g.Wait()
	}

	// The tray owns the main thread until it quits.
	t, err := desktopTray(ctx, application, cfg.Server.Addr, cancel, log)
	if err != nil {
		cancel()
		g.Wait()
		return err
	}
	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
	cancel()
	return g.Wait()
}

// loadDictionary reads the configured dictionary or the built-in one.
func loadDictionary(cfg config.AutocorrectConfig) (*autocorrect.Dictionary, error) {
	if cfg.DictionaryPath == "" {
		return autocorrect.DefaultDictionary(), nil
	}
	f, err := os.Open(config.ExpandHome(cfg.DictionaryPath))
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()
	return autocorrect.LoadDictionary(f)
}

// openCamera builds the camera hand source. It returns nil when no
// detector is available, leaving frame pushes as the only input.
func openCamera(cfg config.DetectionConfig, log *logrus.Logger) *app.CameraSource {
	det, err := detector.NewMediaPipeDetector(cfg.Detector)
	if err != nil {
		log.WithError(err).Warn("camera detection unavailable")
		return nil
	}
	cam := capture.NewCamera(capture.Config{
		DeviceID: cfg.CameraID,
		Width:    cfg.FrameWidth,
		Height:   cfg.FrameHeight,
	})
	var gate *capture.MotionGate
	if cfg.MotionThreshold > 0 {
		gate = capture.NewMotionGate(cfg.MotionThreshold, capture.DefaultMaxStill)
	}
	return app.NewCameraSource(cam, det, gate)
}

// desktopTray creates the session driven from the menu bar and wires the
// tray menu to it.
func desktopTray(ctx context.Context, a *app.App, addr string, quit func(), log *logrus.Logger) (*tray.Tray, error) {
	s, err := a.CreateSession(ctx)
	if err != nil {
		return nil, err
	}
	id := s.ID()
	entry := log.WithFields(logrus.Fields{"component": "tray", "session_id": id})

	var t *tray.Tray
	t = tray.New(tray.Handlers{
		Toggle: func(enabled bool) {
			if !enabled {
				a.StopDetection(ctx, id)
				return
			}
			if err := a.StartDetection(ctx, id); err != nil {
				entry.WithError(err).Warn("cannot start detection")
				t.SetEnabled(false)
			}
		},
		Clear: func() { s.Clear() },
		Speak: func() {
			if _, err := a.Speak(ctx, id); err != nil {
				entry.WithError(err).Warn("speak failed")
			}
		},
		Settings: func() {
			if err := openBrowser(settingsURL(addr)); err != nil {
				entry.WithError(err).Warn("cannot open settings")
			}
		},
		Quit: quit,
	})

	if err := a.StartDetection(ctx, id); err != nil {
		entry.WithError(err).Warn("detection not started")
		t.SetEnabled(false)
	}

	events, unsubscribe := a.Sessions().Subscribe(64)
	go func() {
		defer unsubscribe()
		t.Watch(ctx, id, events)
	}()
	return t, nil
}

func settingsURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "linux":
		return exec.Command("xdg-open", url).Start()
	default:
		return errors.New("unsupported platform")
	}
}

// findWebDir returns dir when set, otherwise searches for the web
// directory in "web", "../web", "../../web" and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dir string) string {
	if dir != "" {
		return config.ExpandHome(dir)
	}

	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".mudra", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
