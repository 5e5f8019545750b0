package onboard

import (
	"github.com/CodedInternet/gosupercar/onboard/errors"
	"github.com/CodedInternet/gosupercar/onboard/hardware"
	"github.com/asdine/storm/v3"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	CONFIG_BUCKET = "config"
	CONFIG_MAIN   = "main"

	PROPULSION = "propulsion"
	STEERING   = "steering"
)

// ConfigStore persists the three config sections: the vehicle and one per motor.
type ConfigStore interface {
	SaveConfig(cfg Config) error
	SaveMotorConfig(name string, cfg hardware.MotorConfig) error
	LoadConfig() (Config, error)
	LoadMotorConfig(name string) (hardware.MotorConfig, error)
}

type StormStore struct {
	db  *storm.DB
	log *zap.SugaredLogger
}

func NewStormStore(db *storm.DB, log *zap.SugaredLogger) *StormStore {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &StormStore{db: db, log: log}
}

func (s *StormStore) SaveConfig(cfg Config) error {
	return pkgerrors.Wrap(s.db.Set(CONFIG_BUCKET, CONFIG_MAIN, cfg), "unable to save config")
}

func (s *StormStore) SaveMotorConfig(name string, cfg hardware.MotorConfig) error {
	if name != PROPULSION && name != STEERING {
		return errors.MotorNameError{Name: name}
	}
	return pkgerrors.Wrapf(s.db.Set(CONFIG_BUCKET, name, cfg), "unable to save %s config", name)
}

func (s *StormStore) LoadConfig() (cfg Config, err error) {
	err = s.db.Get(CONFIG_BUCKET, CONFIG_MAIN, &cfg)
	return
}

func (s *StormStore) LoadMotorConfig(name string) (cfg hardware.MotorConfig, err error) {
	if name != PROPULSION && name != STEERING {
		return cfg, errors.MotorNameError{Name: name}
	}
	err = s.db.Get(CONFIG_BUCKET, name, &cfg)
	return
}

// SaveAll persists every section of car, attempting each one even if an earlier save fails.
func SaveAll(store ConfigStore, car *Supercar) error {
	return multierr.Combine(
		store.SaveConfig(car.Config()),
		store.SaveMotorConfig(PROPULSION, car.Propulsion.Config()),
		store.SaveMotorConfig(STEERING, car.Steering.Config()),
	)
}

// ApplyStoredConfig overlays the stored sections on fc. It runs before the vehicle is built so
// stored pins and PWM frequencies are the ones the outputs get bound to. Missing sections are
// skipped and a section that cannot be read keeps the value from fc.
func ApplyStoredConfig(store ConfigStore, fc FileConfig, log *zap.SugaredLogger) (FileConfig, error) {
	var err error
	if cfg, e := store.LoadConfig(); e == nil {
		fc.Supercar = fc.Supercar.merge(cfg)
	} else if e != storm.ErrNotFound {
		log.Warnw("unable to load config", "section", CONFIG_MAIN, "error", e)
		err = multierr.Append(err, pkgerrors.Wrap(e, "unable to load config"))
	}

	for _, motor := range []struct {
		name string
		cfg  *hardware.MotorConfig
	}{
		{PROPULSION, &fc.Propulsion},
		{STEERING, &fc.Steering},
	} {
		cfg, e := store.LoadMotorConfig(motor.name)
		switch {
		case e == nil:
			*motor.cfg = motor.cfg.Merge(cfg)
		case e != storm.ErrNotFound:
			log.Warnw("unable to load config", "section", motor.name, "error", e)
			err = multierr.Append(err, pkgerrors.Wrapf(e, "unable to load %s config", motor.name))
		}
	}
	return fc, err
}
