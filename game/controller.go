// Package game runs a player's side of a laser-tag round: health, ammo, reloads,
// deaths and the round clock, driven by decoded IR messages and button presses.
package game

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sparques/irtag/event"
	"github.com/sparques/irtag/lasertag"
)

const tracerName = "github.com/sparques/irtag/game"

// State is the controller's position in the game.
type State int

const (
	InitGame State = iota
	AliveAbleToShoot
	AliveNotAbleToShoot
	Dead
)

func (s State) String() string {
	switch s {
	case InitGame:
		return "init-game"
	case AliveAbleToShoot:
		return "alive-able-to-shoot"
	case AliveNotAbleToShoot:
		return "alive-not-able-to-shoot"
	case Dead:
		return "dead"
	}
	return "unknown"
}

// Playing reports whether a round is running.
func (s State) Playing() bool {
	return s != InitGame
}

// PlayerState is the player's side of the round.
type PlayerState struct {
	ID     uint8
	Health int
	Deaths int
}

// WeaponState is the player's own weapon.
type WeaponState struct {
	ID   uint8
	Ammo int
}

// Status is a copy of the controller state.
type Status struct {
	State       State
	Player      PlayerState
	Weapon      WeaponState
	RoundLength int
	Round       int
}

// Config wires a Controller to its collaborators. Nil collaborators do nothing.
type Config struct {
	Clock           clockwork.Clock
	Rules           Rules
	Armory          Armory
	Display         Display
	Buzzer          Buzzer
	Shooter         Shooter
	ReloadIndicator Indicator
	DeathIndicator  Indicator
	HitLog          HitLog
	Tracer          trace.Tracer
	// QueueCapacity bounds each input queue, event.DefaultCapacity when zero.
	QueueCapacity int
}

// Controller is the player state machine. The Set*, MessageReceived and
// ButtonPressed methods may be called from any goroutine; everything else
// belongs to the goroutine running Run or Step.
type Controller struct {
	clock     clockwork.Clock
	rules     Rules
	armory    Armory
	display   Display
	buzzer    Buzzer
	shooter   Shooter
	reloadLED Indicator
	deathLED  Indicator
	hits      HitLog
	tracer    trace.Tracer

	msgs          *event.Queue[lasertag.Message]
	playerNumbers *event.Queue[uint8]
	weaponNumbers *event.Queue[uint8]
	trigger       *event.Flag
	reload        *event.Flag
	reloadTimer   *event.Timer
	shotDelay     *event.Timer
	deathTimer    *event.Timer
	roundTimer    *event.Timer

	state       State
	player      PlayerState
	weapon      WeaponState
	roundLength int
	round       int
	roundSpan   trace.Span
}

// New returns a controller waiting in InitGame.
func New(cfg Config) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Armory == nil {
		cfg.Armory = DefaultCatalog
	}
	if cfg.Display == nil {
		cfg.Display = nopDisplay{}
	}
	if cfg.Buzzer == nil {
		cfg.Buzzer = nopBuzzer{}
	}
	if cfg.Shooter == nil {
		cfg.Shooter = nopShooter{}
	}
	if cfg.ReloadIndicator == nil {
		cfg.ReloadIndicator = IndicatorFunc(func(bool) {})
	}
	if cfg.DeathIndicator == nil {
		cfg.DeathIndicator = IndicatorFunc(func(bool) {})
	}
	if cfg.HitLog == nil {
		cfg.HitLog = nopHitLog{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	rules := cfg.Rules.normalized()

	return &Controller{
		clock:     cfg.Clock,
		rules:     rules,
		armory:    cfg.Armory,
		display:   cfg.Display,
		buzzer:    cfg.Buzzer,
		shooter:   cfg.Shooter,
		reloadLED: cfg.ReloadIndicator,
		deathLED:  cfg.DeathIndicator,
		hits:      cfg.HitLog,
		tracer:    cfg.Tracer,

		msgs:          event.NewQueue[lasertag.Message](cfg.QueueCapacity, event.DropNewest),
		playerNumbers: event.NewQueue[uint8](cfg.QueueCapacity, event.DropNewest),
		weaponNumbers: event.NewQueue[uint8](cfg.QueueCapacity, event.DropNewest),
		trigger:       event.NewFlag(),
		reload:        event.NewFlag(),
		reloadTimer:   event.NewTimer(cfg.Clock),
		shotDelay:     event.NewTimer(cfg.Clock),
		deathTimer:    event.NewTimer(cfg.Clock),
		roundTimer:    event.NewTimer(cfg.Clock),

		state:       InitGame,
		player:      PlayerState{Health: rules.MaxHealth},
		weapon:      WeaponState{Ammo: rules.MaxAmmo},
		roundLength: rules.RoundLength,
		roundSpan:   trace.SpanFromContext(context.Background()),
	}
}

// SetPlayerNumber queues a new player id. It takes effect between rounds.
func (c *Controller) SetPlayerNumber(id uint8) {
	c.playerNumbers.Write(id)
}

// SetWeapon queues a new weapon id. It takes effect between rounds.
func (c *Controller) SetWeapon(id uint8) {
	c.weaponNumbers.Write(id)
}

// MessageReceived implements lasertag.MessageListener.
func (c *Controller) MessageReceived(m lasertag.Message) {
	c.msgs.Write(m)
}

// ButtonPressed implements ButtonListener. Unknown buttons are ignored.
func (c *Controller) ButtonPressed(button int) {
	switch button {
	case TriggerButton:
		c.trigger.Set()
	case ReloadButton:
		c.reload.Set()
	}
}

// Snapshot returns a copy of the state. It must not race with Run or Step.
func (c *Controller) Snapshot() Status {
	return Status{
		State:       c.state,
		Player:      c.player,
		Weapon:      c.weapon,
		RoundLength: c.roundLength,
		Round:       c.round,
	}
}

// Run drives the state machine until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	defer func() {
		if c.state.Playing() {
			c.roundSpan.End()
		}
	}()
	for {
		if err := c.Step(ctx); err != nil {
			return err
		}
	}
}

// Step waits for the next event relevant to the current state and handles it.
// Within one state the round timer always wins, then the state's own timers,
// then button flags, then messages.
func (c *Controller) Step(ctx context.Context) error {
	switch c.state {
	case InitGame:
		return c.stepInitGame(ctx)
	case AliveAbleToShoot:
		return c.stepAbleToShoot(ctx)
	case AliveNotAbleToShoot:
		return c.stepNotAbleToShoot(ctx)
	case Dead:
		return c.stepDead(ctx)
	}
	return nil
}

func (c *Controller) stepInitGame(ctx context.Context) error {
	src, err := event.Select(ctx, c.playerNumbers, c.weaponNumbers, c.msgs)
	if err != nil {
		return err
	}
	switch src {
	case c.playerNumbers:
		id, err := c.playerNumbers.Read()
		if err != nil {
			return nil
		}
		c.player.ID = id
		c.display.ShowPlayer(id)
	case c.weaponNumbers:
		id, err := c.weaponNumbers.Read()
		if err != nil {
			return nil
		}
		c.weapon.ID = id
		c.display.ShowWeapon(c.armory.Weapon(id).Name)
	case c.msgs:
		m, err := c.msgs.Read()
		if err != nil || !m.IsConfig() {
			return nil
		}
		switch {
		case m.Data >= 1 && m.Data <= maxRoundLength:
			c.roundLength = int(m.Data)
			c.buzzer.MakeSound(ConfigTone)
		case m.Data == 0:
			return c.startRound(ctx)
		}
	}
	return nil
}

func (c *Controller) startRound(ctx context.Context) error {
	c.player.Health = c.rules.MaxHealth
	c.weapon.Ammo = c.rules.MaxAmmo
	c.player.Deaths = 0

	cd := c.rules.Countdown
	c.buzzer.MakeSound(StartTone)
	if err := c.wait(ctx, cd.Settle); err != nil {
		return err
	}
	c.display.ShowHealth(c.player.Health)
	c.display.ShowAmmo(c.weapon.Ammo)
	c.display.ShowDeaths(c.player.Deaths)
	if err := c.wait(ctx, cd.Briefing); err != nil {
		return err
	}
	for i := cd.From; i >= 0; i-- {
		c.display.ShowCountdown(i)
		if err := c.wait(ctx, cd.Step); err != nil {
			return err
		}
	}

	c.trigger.Clear()
	c.reload.Clear()
	c.msgs.Clear()
	c.roundTimer.Set(time.Duration(c.roundLength) * time.Minute)
	c.round++
	_, c.roundSpan = c.tracer.Start(ctx, "round", trace.WithAttributes(
		attribute.Int("round.number", c.round),
		attribute.Int("round.length_minutes", c.roundLength),
		attribute.Int("player.id", int(c.player.ID)),
		attribute.Int("weapon.id", int(c.weapon.ID)),
	))
	log.Printf("round %d started: %d minutes", c.round, c.roundLength)
	c.state = AliveAbleToShoot
	return nil
}

func (c *Controller) stepAbleToShoot(ctx context.Context) error {
	src, err := event.Select(ctx, c.roundTimer, c.trigger, c.reload, c.msgs)
	if err != nil {
		return err
	}
	switch src {
	case c.roundTimer:
		if c.roundTimer.Expired() {
			c.endRound(ctx)
		}
	case c.trigger:
		if c.trigger.Take() && c.weapon.Ammo > 0 {
			c.fire()
		}
	case c.reload:
		if c.reload.Take() {
			c.startReload()
		}
	case c.msgs:
		if m, err := c.msgs.Read(); err == nil {
			c.handleMessage(ctx, m)
		}
	}
	return nil
}

func (c *Controller) stepNotAbleToShoot(ctx context.Context) error {
	src, err := event.Select(ctx, c.roundTimer, c.shotDelay, c.reloadTimer, c.msgs)
	if err != nil {
		return err
	}
	switch src {
	case c.roundTimer:
		if c.roundTimer.Expired() {
			c.endRound(ctx)
		}
	case c.shotDelay:
		if c.shotDelay.Expired() {
			c.trigger.Clear()
			c.state = AliveAbleToShoot
		}
	case c.reloadTimer:
		if c.reloadTimer.Expired() {
			c.reload.Clear()
			c.display.ShowAmmo(c.weapon.Ammo)
			c.reloadLED.Set(false)
			c.state = AliveAbleToShoot
		}
	case c.msgs:
		if m, err := c.msgs.Read(); err == nil {
			c.handleMessage(ctx, m)
		}
	}
	return nil
}

func (c *Controller) stepDead(ctx context.Context) error {
	src, err := event.Select(ctx, c.roundTimer, c.deathTimer)
	if err != nil {
		return err
	}
	switch src {
	case c.roundTimer:
		if c.roundTimer.Expired() {
			c.endRound(ctx)
		}
	case c.deathTimer:
		if c.deathTimer.Expired() {
			c.respawn()
		}
	}
	return nil
}

func (c *Controller) fire() {
	w := c.armory.Weapon(c.weapon.ID)
	c.shooter.Shoot(lasertag.Message{Player: c.player.ID, Data: c.weapon.ID})
	c.weapon.Ammo--
	c.display.ShowAmmo(c.weapon.Ammo)
	c.reloadTimer.Stop()
	c.shotDelay.Set(w.ShotDelay)
	c.roundSpan.AddEvent("shot", trace.WithAttributes(attribute.Int("ammo", c.weapon.Ammo)))
	c.state = AliveNotAbleToShoot
}

// startReload refills the magazine right away; only the display and the LED
// wait for the reload time.
func (c *Controller) startReload() {
	w := c.armory.Weapon(c.weapon.ID)
	c.shotDelay.Stop()
	c.reloadTimer.Set(w.ReloadTime)
	c.weapon.Ammo = c.rules.MaxAmmo
	c.reloadLED.Set(true)
	c.roundSpan.AddEvent("reload")
	c.state = AliveNotAbleToShoot
}

func (c *Controller) handleMessage(ctx context.Context, m lasertag.Message) {
	if m.Player == 0 || m.Player == c.player.ID {
		return
	}
	c.buzzer.MakeSound(HitTone)
	w := c.armory.Weapon(m.Data)
	if err := c.hits.AddLog(ctx, m.Player, w.Name); err != nil {
		log.Printf("add hit log: %v", err)
	}
	c.roundSpan.AddEvent("hit", trace.WithAttributes(
		attribute.Int("attacker.id", int(m.Player)),
		attribute.String("weapon.name", w.Name),
		attribute.Int("damage", w.Damage),
	))

	if w.Damage >= c.player.Health {
		c.player.Health = 0
		c.display.ShowHealth(c.player.Health)
		c.deathLED.Set(true)
		c.enterDead()
		return
	}
	c.player.Health -= w.Damage
	c.display.ShowHealth(c.player.Health)
}

func (c *Controller) enterDead() {
	c.shotDelay.Stop()
	if c.reloadTimer.Armed() {
		c.reloadTimer.Stop()
		c.reloadLED.Set(false)
	}
	c.deathTimer.Set(c.rules.DeathDuration)
	c.player.Deaths++
	c.display.ShowDeaths(c.player.Deaths)
	c.roundSpan.AddEvent("death", trace.WithAttributes(attribute.Int("deaths", c.player.Deaths)))
	c.state = Dead
}

func (c *Controller) respawn() {
	c.player.Health = c.rules.MaxHealth
	c.weapon.Ammo = c.rules.MaxAmmo
	c.display.ShowHealth(c.player.Health)
	c.display.ShowAmmo(c.weapon.Ammo)
	c.msgs.Clear()
	c.deathLED.Set(false)
	c.roundSpan.AddEvent("respawn")
	c.state = AliveAbleToShoot
}

func (c *Controller) endRound(ctx context.Context) {
	if err := c.hits.PrintLogs(ctx); err != nil {
		log.Printf("print hit log: %v", err)
	}
	if err := c.hits.ClearLogs(ctx); err != nil {
		log.Printf("clear hit log: %v", err)
	}
	c.shotDelay.Stop()
	c.reloadTimer.Stop()
	c.deathTimer.Stop()
	c.reloadLED.Set(false)
	c.deathLED.Set(false)

	c.roundSpan.SetAttributes(
		attribute.Int("player.deaths", c.player.Deaths),
		attribute.Int("player.health", c.player.Health),
	)
	c.roundSpan.End()
	c.roundSpan = trace.SpanFromContext(context.Background())
	log.Printf("round %d over: %d deaths", c.round, c.player.Deaths)
	c.state = InitGame
}

func (c *Controller) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clock.After(d):
		return nil
	}
}
