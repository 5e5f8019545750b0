package main

import (
	"context"
	"flag"
	"github.com/CodedInternet/gosupercar/comms"
	"github.com/CodedInternet/gosupercar/onboard"
	"github.com/CodedInternet/gosupercar/onboard/hardware"
	"github.com/asdine/storm/v3"
	"github.com/caarlos0/env/v6"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"sync"
	"time"
)

const SHUTDOWN_TIMEOUT = 3 * time.Second

type EnvConfig struct {
	DEBUG       bool   `env:"DEBUG" envDefault:"0"`
	SIMULATED   bool   `env:"SIMULATED" envDefault:"0"`
	DB_PATH     string `env:"DB_PATH" envDefault:"./tmp/supercar.db"`
	CONFIG_PATH string `env:"CONFIG_PATH" envDefault:"./supercar.yaml"`
	HTMLDIR     string `env:"HTMLDIR" envDefault:"./frontend/dist/"`
	LISTEN      string `env:"LISTEN" envDefault:"0.0.0.0:80"`
	SERIAL_PORT string `env:"SERIAL_PORT" envDefault:"/dev/ttyUSB0"`
	SERIAL_BAUD int    `env:"SERIAL_BAUD" envDefault:"115200"`
	MQTT_BROKER string `env:"MQTT_BROKER"`
	MQTT_TOPIC  string `env:"MQTT_TOPIC" envDefault:"supercar"`
	JWT_ISSUER  string `env:"JWT_ISSUER" envDefault:"DEV"`
	JWT_SECRET  string `env:"JWT_SECRET" envDefault:"xWumOlRfhu+LBi2F2e1yF4FiaopQ5mr8klL4fpILnlI="`
	SHELL       bool   `env:"SHELL" envDefault:"1"`
}

// server holds everything the HTTP handlers and shell commands act on.
type server struct {
	env    *EnvConfig
	db     *storm.DB
	car    *onboard.Supercar
	store  onboard.ConfigStore
	remote *onboard.Queue[onboard.RemoteEvent]
	log    *zap.SugaredLogger

	ctx        context.Context
	remoteLock sync.Mutex // one remote at a time
}

func main() {
	// a missing .env file is fine
	godotenv.Load()

	cfg := new(EnvConfig)
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	// process flags
	simulated := flag.Bool("sim", cfg.SIMULATED, "Run with simulated hardware")
	port := flag.String("port", cfg.LISTEN, "Specify the ip:port to listen on")
	flag.Parse()

	log := newLogger(cfg.DEBUG)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer stop()

	db, err := openDb(cfg.DB_PATH)
	if err != nil {
		log.Fatalw("unable to open database", "path", cfg.DB_PATH, "error", err)
	}

	fileCfg, err := onboard.LoadConfigFile(cfg.CONFIG_PATH)
	if err != nil {
		log.Fatalw("unable to load config", "path", cfg.CONFIG_PATH, "error", err)
	}

	// pick the hardware
	var bridge hardware.Bridge
	var mcu *hardware.MCU
	if *simulated {
		log.Infow("running with simulated hardware")
		bridge = hardware.NewSimBridge()
	} else {
		mcu, err = hardware.OpenMCU(cfg.SERIAL_PORT, cfg.SERIAL_BAUD, log.Named("mcu"))
		if err != nil {
			log.Fatalw("unable to open hardware", "error", err)
		}
		bridge = mcu
	}

	store := onboard.NewStormStore(db, log.Named("store"))
	fileCfg, err = onboard.ApplyStoredConfig(store, fileCfg, log.Named("store"))
	if err != nil {
		log.Warnw("running with partially default config", "error", err)
	}
	car := onboard.NewSupercarFromConfig(fileCfg, bridge, log)

	s := &server{
		env:    cfg,
		db:     db,
		car:    car,
		store:  store,
		remote: onboard.NewQueue[onboard.RemoteEvent](),
		log:    log,
		ctx:    ctx,
	}

	buttons := onboard.NewQueue[onboard.ButtonEvent]()
	distance := onboard.NewQueue[hardware.DistanceReport]()

	car.Setup()

	// the actuators keep ramping until everything else has shut down
	motorCtx, stopMotors := context.WithCancel(context.Background())
	var motors sync.WaitGroup
	for _, m := range []*hardware.Actuator{car.Propulsion, car.Steering} {
		motors.Add(1)
		go func(m *hardware.Actuator) {
			defer motors.Done()
			m.Run(motorCtx)
		}(m)
	}

	var loops sync.WaitGroup
	spawn := func(f func()) {
		loops.Add(1)
		go func() {
			defer loops.Done()
			f()
		}()
	}

	spawn(func() { car.LocalLoop(ctx, buttons) })
	spawn(func() { car.RemoteLoop(ctx, s.remote) })
	spawn(func() { car.DistanceLoop(ctx, distance) })

	if mcu != nil {
		spawn(func() {
			err := mcu.Listen(ctx, hardware.MCUHandlers{
				Button: func(pin int, high bool) {
					buttons.Send(onboard.ButtonEventFromLevel(pin, high))
				},
				Distance: func(report hardware.DistanceReport) {
					distance.Send(report)
				},
			})
			if err != nil {
				log.Errorw("lost hardware, stopping", "error", err)
				stop()
			}
		})
	}

	if cfg.MQTT_BROKER != "" {
		client, err := comms.DialMQTT(cfg.MQTT_BROKER, "supercar-"+cfg.JWT_ISSUER, log.Named("telemetry"))
		if err != nil {
			log.Warnw("telemetry disabled", "error", err)
		} else {
			defer client.Disconnect(250)
			telemetry := comms.NewTelemetry(client, cfg.MQTT_TOPIC,
				func() interface{} { return car.State() }, log.Named("telemetry"))
			spawn(func() { telemetry.Run(ctx, comms.TELEMETRY_PERIOD) })
		}
	}

	if cfg.SHELL {
		shell := s.newShell()
		go shell.Run()
		defer shell.Close()
	}

	httpServer := &http.Server{Addr: *port, Handler: s.routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Infow("listening", "addr", *port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Errorw("http server failed", "error", err)
		stop()
	}

	<-ctx.Done()
	loops.Wait()

	log.Infow("shutting down")
	shutdown(car, log)
	stopMotors()
	motors.Wait()
	car.Power(false)

	errs := db.Close()
	if mcu != nil {
		errs = multierr.Append(errs, mcu.Close())
	}
	if errs != nil {
		log.Errorw("unclean shutdown", "error", errs)
		os.Exit(1)
	}
}

// shutdown stops both motors and waits for them to ramp down.
func shutdown(car *onboard.Supercar, log *zap.SugaredLogger) {
	car.Turn(onboard.NONE)
	car.Stop()

	deadline := time.Now().Add(SHUTDOWN_TIMEOUT)
	for time.Now().Before(deadline) {
		state := car.State()
		if state.Propulsion.DutyCycle == 0 && state.Steering.DutyCycle == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	log.Warnw("motors did not ramp down in time")
}

func newLogger(debug bool) *zap.SugaredLogger {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger.Sugar()
}

func (s *server) routes() chi.Router {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	//---
	// Build the API routes
	//---
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.Login)

		r.Group(func(r chi.Router) {
			r.Use(s.ValidateJWT)
			r.Get("/refresh_token", s.JWTRefresh)
		})

		r.Route("/supercar", func(r chi.Router) {
			r.Get("/", s.GetState)
			r.Get("/config", s.GetConfig)
			r.With(s.MotorCtx).Get("/{motor}/config", s.GetMotorConfig)

			r.Group(func(r chi.Router) {
				if !s.env.DEBUG {
					r.Use(s.ValidateJWT)
				} else {
					s.log.Warnw("running in debug mode, config writes are not authenticated")
				}

				r.Put("/config", s.PutConfig)
				r.With(s.MotorCtx).Put("/{motor}/config", s.PutMotorConfig)
			})
		})
	})

	// Add websocket routes
	r.Route("/ws", func(r chi.Router) {
		if !s.env.DEBUG {
			r.Use(s.ValidateJWT)
		}

		r.Get("/remote", s.RemoteHandler)
	})

	// operator UI
	r.Get("/*", s.Frontend)

	return r
}

func openDb(dbFile string) (db *storm.DB, err error) {
	if err = os.MkdirAll(filepath.Dir(dbFile), 0755); err != nil {
		return nil, errors.Wrap(err, "unable to create database directory")
	}

	db, err = storm.Open(dbFile)
	if err != nil {
		return
	}

	// call inits for each type
	if err := db.Init(&User{}); err != nil {
		db.Close()
		return nil, err
	}

	return
}

// Frontend serves the operator UI from HTMLDIR. Directories resolve to their index.html.
func (s *server) Frontend(w http.ResponseWriter, r *http.Request) {
	root := http.Dir(s.env.HTMLDIR)
	name := path.Clean("/" + chi.URLParam(r, "*"))

	f, err := root.Open(name)
	if err == nil {
		if stat, statErr := f.Stat(); statErr == nil && stat.IsDir() {
			f.Close()
			name = path.Join(name, "index.html")
			f, err = root.Open(name)
		}
	}
	if err != nil {
		s.log.Debugw("frontend file not found", "path", name, "error", err)
		render.Render(w, r, ErrNotFound)
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		render.Render(w, r, ErrNotFound)
		return
	}
	http.ServeContent(w, r, stat.Name(), stat.ModTime(), f)
}
