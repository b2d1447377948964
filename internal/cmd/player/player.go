// Package player parses player command flags and runs a player unit.
package player

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	irtag "github.com/sparques/irtag"
	"github.com/sparques/irtag/buzzer"
	"github.com/sparques/irtag/console"
	"github.com/sparques/irtag/game"
	"github.com/sparques/irtag/gamelog"
	"github.com/sparques/irtag/gamelog/sqlite"
	"github.com/sparques/irtag/hostio"
	entrypoint "github.com/sparques/irtag/internal/platform/cmd"
	"github.com/sparques/irtag/lasertag"
)

// Config holds player command configuration.
type Config struct {
	PlayerID      uint          `env:"IRTAG_PLAYER_ID" envDefault:"1"`
	WeaponID      uint          `env:"IRTAG_WEAPON_ID" envDefault:"0"`
	MaxHealth     int           `env:"IRTAG_MAX_HEALTH" envDefault:"100"`
	MaxAmmo       int           `env:"IRTAG_MAX_AMMO" envDefault:"30"`
	DeathDuration time.Duration `env:"IRTAG_DEATH_DURATION" envDefault:"10s"`
	RoundLength   int           `env:"IRTAG_ROUND_LENGTH" envDefault:"10"`
	QuickStart    bool          `env:"IRTAG_QUICK_START"`

	DBPath      string `env:"IRTAG_DB_PATH"`
	PauseQueue  int    `env:"IRTAG_PAUSE_QUEUE" envDefault:"1024"`
	EventQueue  int    `env:"IRTAG_EVENT_QUEUE" envDefault:"64"`
	Sound       bool   `env:"IRTAG_SOUND" envDefault:"true"`
	Simulate    bool   `env:"IRTAG_SIMULATE"`
	TracePauses bool   `env:"IRTAG_TRACE_PAUSES"`

	RxPin        string `env:"IRTAG_RX_PIN" envDefault:"GPIO17"`
	TxPin        string `env:"IRTAG_TX_PIN" envDefault:"GPIO18"`
	TriggerPin   string `env:"IRTAG_TRIGGER_PIN" envDefault:"GPIO5"`
	ReloadPin    string `env:"IRTAG_RELOAD_PIN" envDefault:"GPIO6"`
	ReloadLEDPin string `env:"IRTAG_RELOAD_LED_PIN" envDefault:"GPIO23"`
	DeathLEDPin  string `env:"IRTAG_DEATH_LED_PIN" envDefault:"GPIO24"`
}

// ParseConfig parses environment and flags into a Config. Flags win over the
// environment.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.UintVar(&cfg.PlayerID, "player", cfg.PlayerID, "Player id, 1-31")
	fs.UintVar(&cfg.WeaponID, "weapon", cfg.WeaponID, "Weapon id, 0-31")
	fs.IntVar(&cfg.MaxHealth, "max-health", cfg.MaxHealth, "Health at the start of a round and after respawn")
	fs.IntVar(&cfg.MaxAmmo, "max-ammo", cfg.MaxAmmo, "Magazine size")
	fs.DurationVar(&cfg.DeathDuration, "death-duration", cfg.DeathDuration, "Time spent dead before respawn")
	fs.IntVar(&cfg.RoundLength, "round-length", cfg.RoundLength, "Round length in minutes until the referee sets one")
	fs.BoolVar(&cfg.QuickStart, "quick-start", cfg.QuickStart, "Skip the start-of-round countdown")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite hit log path; empty keeps the log in memory")
	fs.IntVar(&cfg.PauseQueue, "pause-queue", cfg.PauseQueue, "Unread IR pauses buffered before new ones are dropped")
	fs.IntVar(&cfg.EventQueue, "event-queue", cfg.EventQueue, "Unread messages and settings buffered by the controller")
	fs.BoolVar(&cfg.Sound, "sound", cfg.Sound, "Play tones on the audio device")
	fs.BoolVar(&cfg.Simulate, "simulate", cfg.Simulate, "Read commands from stdin instead of using GPIO")
	fs.BoolVar(&cfg.TracePauses, "trace-pauses", cfg.TracePauses, "Log every IR pause handed to the decoder")
	fs.StringVar(&cfg.RxPin, "rx-pin", cfg.RxPin, "IR receiver pin")
	fs.StringVar(&cfg.TxPin, "tx-pin", cfg.TxPin, "IR LED pin, must support PWM")
	fs.StringVar(&cfg.TriggerPin, "trigger-pin", cfg.TriggerPin, "Trigger button pin")
	fs.StringVar(&cfg.ReloadPin, "reload-pin", cfg.ReloadPin, "Reload button pin")
	fs.StringVar(&cfg.ReloadLEDPin, "reload-led-pin", cfg.ReloadLEDPin, "Reload LED pin")
	fs.StringVar(&cfg.DeathLEDPin, "death-led-pin", cfg.DeathLEDPin, "Death LED pin")
	if err := entrypoint.ParseConfigFromArgs(&cfg, fs, args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values a player unit cannot run with.
func (c Config) Validate() error {
	if c.PlayerID < 1 || c.PlayerID > lasertag.MaxField {
		return fmt.Errorf("player id %d out of range 1-%d", c.PlayerID, lasertag.MaxField)
	}
	if c.WeaponID > lasertag.MaxField {
		return fmt.Errorf("weapon id %d out of range 0-%d", c.WeaponID, lasertag.MaxField)
	}
	if c.MaxHealth <= 0 || c.MaxAmmo <= 0 {
		return errors.New("max health and max ammo must be positive")
	}
	if c.PauseQueue <= 0 || c.EventQueue <= 0 {
		return errors.New("queue sizes must be positive")
	}
	if c.RoundLength < 1 || c.RoundLength > 15 {
		return fmt.Errorf("round length %d out of range 1-15", c.RoundLength)
	}
	return nil
}

// Rules returns the game rules the config describes.
func (c Config) Rules() game.Rules {
	r := game.DefaultRules()
	r.MaxHealth = c.MaxHealth
	r.MaxAmmo = c.MaxAmmo
	r.DeathDuration = c.DeathDuration
	r.RoundLength = c.RoundLength
	if c.QuickStart {
		r.Countdown = game.Countdown{}
	}
	return r
}

// Run starts the player unit and blocks until ctx is done.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServicePlayer, func(ctx context.Context) error {
		return run(ctx, cfg, os.Stdin, os.Stdout)
	}, attribute.Int("player.id", int(cfg.PlayerID)), attribute.Bool("player.simulated", cfg.Simulate))
}

func run(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	display := console.New(out)

	hits, closeHits, err := openHitLog(ctx, cfg.DBPath, out)
	if err != nil {
		return err
	}
	defer closeHits()

	gameCfg := game.Config{
		Rules:         cfg.Rules(),
		Display:       display,
		HitLog:        hits,
		QueueCapacity: cfg.EventQueue,
	}
	if cfg.Sound {
		b, err := buzzer.NewSpeaker(buzzer.DefaultSampleRate, buzzer.DefaultFrequency)
		if err != nil {
			log.Printf("sound disabled: %v", err)
		} else {
			defer buzzer.Close()
			gameCfg.Buzzer = b
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	var decoder *lasertag.Decoder
	if cfg.Simulate {
		gameCfg.Shooter = display
		gameCfg.ReloadIndicator = display.Indicator("reload")
		gameCfg.DeathIndicator = display.Indicator("dead")
		ctrl := game.New(gameCfg)
		decoder = lasertag.NewDecoder(ctrl, cfg.PauseQueue)
		startController(ctx, g, ctrl, cfg)
		// stdin cannot be interrupted, so the reader is left out of the group.
		go func() {
			if err := console.ReadCommands(ctx, in, ctrl, pauseListener(decoder, cfg.TracePauses)); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("read commands: %v", err)
			}
		}()
	} else {
		hw, err := openHardware(cfg)
		if err != nil {
			return err
		}
		gameCfg.Shooter = hw.tx
		gameCfg.ReloadIndicator = hw.reloadLED
		gameCfg.DeathIndicator = hw.deathLED
		ctrl := game.New(gameCfg)
		decoder = lasertag.NewDecoder(ctrl, cfg.PauseQueue)
		if err := hw.start(ctx, g, ctrl, decoder); err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
		startController(ctx, g, ctrl, cfg)
	}
	g.Go(func() error { return decoder.Run(ctx) })

	log.Printf("player %d ready", cfg.PlayerID)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func startController(ctx context.Context, g *errgroup.Group, ctrl *game.Controller, cfg Config) {
	ctrl.SetPlayerNumber(uint8(cfg.PlayerID))
	ctrl.SetWeapon(uint8(cfg.WeaponID))
	g.Go(func() error { return ctrl.Run(ctx) })
}

// pauseListener feeds decoder and, when trace is set, logs each pause first.
func pauseListener(decoder *lasertag.Decoder, trace bool) irtag.PauseListener {
	if !trace {
		return decoder
	}
	return irtag.MultiPauseListener(irtag.PauseListenerFunc(func(p time.Duration) {
		log.Printf("ir pause %v", p)
	}), decoder)
}

func openHitLog(ctx context.Context, path string, out io.Writer) (game.HitLog, func(), error) {
	if path == "" {
		return gamelog.New(out, nil), func() {}, nil
	}
	store, err := sqlite.Open(ctx, path, out, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("open hit log: %w", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Printf("close hit log: %v", err)
		}
	}, nil
}

type hardware struct {
	tx        *hostio.Transmitter
	reloadLED *hostio.Indicator
	deathLED  *hostio.Indicator
	cfg       Config
}

func openHardware(cfg Config) (*hardware, error) {
	if err := hostio.Init(); err != nil {
		return nil, err
	}
	hw := &hardware{cfg: cfg}
	txPin, err := hostio.Pin(cfg.TxPin)
	if err != nil {
		return nil, err
	}
	hw.tx = hostio.NewTransmitter(txPin, nil)
	for _, led := range []struct {
		name string
		dst  **hostio.Indicator
	}{
		{cfg.ReloadLEDPin, &hw.reloadLED},
		{cfg.DeathLEDPin, &hw.deathLED},
	} {
		pin, err := hostio.Pin(led.name)
		if err != nil {
			return nil, err
		}
		if *led.dst, err = hostio.NewIndicator(pin); err != nil {
			return nil, err
		}
	}
	return hw, nil
}

func (hw *hardware) start(ctx context.Context, g *errgroup.Group, ctrl *game.Controller, decoder *lasertag.Decoder) error {
	rxPin, err := hostio.Pin(hw.cfg.RxPin)
	if err != nil {
		return err
	}
	rx, err := hostio.NewReceiver(rxPin, pauseListener(decoder, hw.cfg.TracePauses), nil)
	if err != nil {
		return err
	}
	g.Go(func() error { return rx.Run(ctx) })
	g.Go(func() error { return hw.tx.Run(ctx) })

	for _, b := range []struct {
		name string
		id   int
	}{
		{hw.cfg.TriggerPin, game.TriggerButton},
		{hw.cfg.ReloadPin, game.ReloadButton},
	} {
		pin, err := hostio.Pin(b.name)
		if err != nil {
			return err
		}
		button, err := hostio.NewButton(pin, b.id, ctrl, nil, 0)
		if err != nil {
			return err
		}
		g.Go(func() error { return button.Run(ctx) })
	}
	return nil
}
