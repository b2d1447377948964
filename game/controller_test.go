package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/sparques/irtag/lasertag"
)

type fakeDisplay struct {
	mu        sync.Mutex
	player    uint8
	weapon    string
	health    []int
	ammo      []int
	deaths    []int
	countdown []int
}

func (d *fakeDisplay) ShowPlayer(id uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.player = id
}

func (d *fakeDisplay) ShowWeapon(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.weapon = name
}

func (d *fakeDisplay) ShowHealth(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.health = append(d.health, n)
}

func (d *fakeDisplay) ShowAmmo(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ammo = append(d.ammo, n)
}

func (d *fakeDisplay) ShowDeaths(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deaths = append(d.deaths, n)
}

func (d *fakeDisplay) ShowCountdown(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.countdown = append(d.countdown, n)
}

type fakeBuzzer struct {
	sounds []time.Duration
}

func (b *fakeBuzzer) MakeSound(d time.Duration) {
	b.sounds = append(b.sounds, d)
}

type fakeShooter struct {
	shots []lasertag.Message
}

func (s *fakeShooter) Shoot(m lasertag.Message) {
	s.shots = append(s.shots, m)
}

type fakeLED struct {
	on      bool
	changes int
}

func (l *fakeLED) Set(on bool) {
	l.on = on
	l.changes++
}

type hit struct {
	attacker uint8
	weapon   string
}

type fakeHitLog struct {
	hits    []hit
	printed [][]hit
	failAdd error
}

func (h *fakeHitLog) AddLog(_ context.Context, attacker uint8, weapon string) error {
	if h.failAdd != nil {
		return h.failAdd
	}
	h.hits = append(h.hits, hit{attacker, weapon})
	return nil
}

func (h *fakeHitLog) PrintLogs(context.Context) error {
	h.printed = append(h.printed, append([]hit(nil), h.hits...))
	return nil
}

func (h *fakeHitLog) ClearLogs(context.Context) error {
	h.hits = nil
	return nil
}

type harness struct {
	c        *Controller
	clock    *clockwork.FakeClock
	display  *fakeDisplay
	buzzer   *fakeBuzzer
	shooter  *fakeShooter
	reload   *fakeLED
	death    *fakeLED
	hits     *fakeHitLog
	recorder *tracetest.SpanRecorder
}

const (
	me       = 1
	opponent = 2
	shotgun  = 2 // 30 damage
)

func quickRules() Rules {
	r := DefaultRules()
	r.Countdown = Countdown{From: 5}
	return r
}

func newHarness(t *testing.T, rules Rules) *harness {
	t.Helper()
	h := &harness{
		clock:    clockwork.NewFakeClock(),
		display:  &fakeDisplay{},
		buzzer:   &fakeBuzzer{},
		shooter:  &fakeShooter{},
		reload:   &fakeLED{},
		death:    &fakeLED{},
		hits:     &fakeHitLog{},
		recorder: tracetest.NewSpanRecorder(),
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(h.recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	h.c = New(Config{
		Clock:           h.clock,
		Rules:           rules,
		Display:         h.display,
		Buzzer:          h.buzzer,
		Shooter:         h.shooter,
		ReloadIndicator: h.reload,
		DeathIndicator:  h.death,
		HitLog:          h.hits,
		Tracer:          tp.Tracer("test"),
	})
	return h
}

func (h *harness) step(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.c.Step(ctx); err != nil {
		t.Fatalf("step in %v: %v", h.c.Snapshot().State, err)
	}
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	h.c.SetPlayerNumber(me)
	h.step(t)
	h.c.MessageReceived(lasertag.Message{})
	h.step(t)
	if got := h.c.Snapshot().State; got != AliveAbleToShoot {
		t.Fatalf("state after start = %v, want %v", got, AliveAbleToShoot)
	}
}

func (h *harness) hitBy(t *testing.T, player, weapon uint8) {
	t.Helper()
	h.c.MessageReceived(lasertag.Message{Player: player, Data: weapon})
	h.step(t)
}

func TestNewControllerWaits(t *testing.T) {
	h := newHarness(t, quickRules())
	s := h.c.Snapshot()
	if s.State != InitGame {
		t.Fatalf("state = %v, want %v", s.State, InitGame)
	}
	if s.Player.Health != 100 || s.Weapon.Ammo != 30 || s.RoundLength != 10 {
		t.Fatalf("snapshot = %+v", s)
	}
}

func TestConfigureBeforeRound(t *testing.T) {
	h := newHarness(t, quickRules())
	h.c.SetPlayerNumber(7)
	h.c.SetWeapon(3)
	h.step(t)
	h.step(t)

	s := h.c.Snapshot()
	if s.Player.ID != 7 || s.Weapon.ID != 3 {
		t.Fatalf("player %d weapon %d, want 7 and 3", s.Player.ID, s.Weapon.ID)
	}
	if h.display.player != 7 || h.display.weapon != "sniper" {
		t.Fatalf("display shows player %d weapon %q", h.display.player, h.display.weapon)
	}
}

func TestRoundLengthMessage(t *testing.T) {
	h := newHarness(t, quickRules())
	for _, tc := range []struct {
		data uint8
		want int
	}{
		{data: 3, want: 3},
		{data: 15, want: 15},
		{data: 16, want: 15}, // out of range, ignored
		{data: 1, want: 1},
	} {
		h.c.MessageReceived(lasertag.Message{Player: 0, Data: tc.data})
		h.step(t)
		if got := h.c.Snapshot().RoundLength; got != tc.want {
			t.Fatalf("after data %d round length = %d, want %d", tc.data, got, tc.want)
		}
	}
	if len(h.buzzer.sounds) != 3 {
		t.Fatalf("buzzer sounded %d times, want 3", len(h.buzzer.sounds))
	}
	if h.c.Snapshot().State != InitGame {
		t.Fatal("config message started the round")
	}
}

func TestNonConfigMessagesIgnoredBeforeRound(t *testing.T) {
	h := newHarness(t, quickRules())
	h.hitBy(t, opponent, shotgun)
	s := h.c.Snapshot()
	if s.State != InitGame || s.Player.Health != 100 {
		t.Fatalf("snapshot = %+v", s)
	}
	if len(h.hits.hits) != 0 {
		t.Fatalf("hit logged before round: %+v", h.hits.hits)
	}
}

func TestStartRound(t *testing.T) {
	h := newHarness(t, quickRules())
	h.start(t)

	if h.buzzer.sounds[0] != StartTone {
		t.Fatalf("first sound = %v, want %v", h.buzzer.sounds[0], StartTone)
	}
	if want := []int{5, 4, 3, 2, 1, 0}; !equalInts(h.display.countdown, want) {
		t.Fatalf("countdown = %v, want %v", h.display.countdown, want)
	}
	s := h.c.Snapshot()
	if s.Player.Health != 100 || s.Weapon.Ammo != 30 || s.Player.Deaths != 0 || s.Round != 1 {
		t.Fatalf("snapshot = %+v", s)
	}
}

func TestStartRoundCountdownTiming(t *testing.T) {
	rules := DefaultRules()
	rules.Countdown = Countdown{
		Settle:   time.Second,
		Briefing: 10 * time.Second,
		From:     2,
		Step:     1100 * time.Millisecond,
	}
	h := newHarness(t, rules)
	h.c.MessageReceived(lasertag.Message{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- h.c.Step(ctx) }()

	// settle, briefing and one wait per number from 2 down to 0
	for _, d := range []time.Duration{time.Second, 10 * time.Second, 1100 * time.Millisecond, 1100 * time.Millisecond, 1100 * time.Millisecond} {
		if err := h.clock.BlockUntilContext(ctx, 1); err != nil {
			t.Fatalf("waiting for countdown sleeper: %v", err)
		}
		h.clock.Advance(d)
	}
	if err := <-done; err != nil {
		t.Fatalf("step: %v", err)
	}
	if got := h.c.Snapshot().State; got != AliveAbleToShoot {
		t.Fatalf("state = %v, want %v", got, AliveAbleToShoot)
	}
	h.display.mu.Lock()
	defer h.display.mu.Unlock()
	if want := []int{2, 1, 0}; !equalInts(h.display.countdown, want) {
		t.Fatalf("countdown = %v, want %v", h.display.countdown, want)
	}
}

func TestStartRoundCancelled(t *testing.T) {
	rules := DefaultRules()
	h := newHarness(t, rules)
	h.c.MessageReceived(lasertag.Message{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.c.Step(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("step = %v, want context.Canceled", err)
	}
	if got := h.c.Snapshot().State; got != InitGame {
		t.Fatalf("state = %v, want %v", got, InitGame)
	}
}

func TestDamageUntilDeath(t *testing.T) {
	h := newHarness(t, quickRules())
	h.start(t)

	for _, want := range []int{70, 40, 10} {
		h.hitBy(t, opponent, shotgun)
		s := h.c.Snapshot()
		if s.Player.Health != want || s.State != AliveAbleToShoot {
			t.Fatalf("health %d state %v, want %d alive", s.Player.Health, s.State, want)
		}
	}
	h.hitBy(t, opponent, shotgun)
	s := h.c.Snapshot()
	if s.State != Dead || s.Player.Health != 0 || s.Player.Deaths != 1 {
		t.Fatalf("snapshot = %+v, want dead with one death", s)
	}
	if !h.death.on {
		t.Fatal("death LED is off")
	}
	if len(h.hits.hits) != 4 || h.hits.hits[0] != (hit{opponent, "shotgun"}) {
		t.Fatalf("hit log = %+v", h.hits.hits)
	}
}

func TestOwnAndRefereeMessagesIgnoredInRound(t *testing.T) {
	h := newHarness(t, quickRules())
	h.start(t)
	h.hitBy(t, me, shotgun)
	h.hitBy(t, 0, shotgun)
	if got := h.c.Snapshot().Player.Health; got != 100 {
		t.Fatalf("health = %d, want 100", got)
	}
	if len(h.buzzer.sounds) != 1 {
		t.Fatalf("buzzer sounded %d times, want only the start tone", len(h.buzzer.sounds))
	}
}

func TestUnknownWeaponIsHarmless(t *testing.T) {
	h := newHarness(t, quickRules())
	h.start(t)
	h.hitBy(t, opponent, 31)
	if got := h.c.Snapshot().Player.Health; got != 100 {
		t.Fatalf("health = %d, want 100", got)
	}
	if len(h.hits.hits) != 1 || h.hits.hits[0].weapon != "unknown" {
		t.Fatalf("hit log = %+v", h.hits.hits)
	}
}

func TestHitLogErrorDoesNotStopDamage(t *testing.T) {
	h := newHarness(t, quickRules())
	h.hits.failAdd = errors.New("disk full")
	h.start(t)
	h.hitBy(t, opponent, shotgun)
	if got := h.c.Snapshot().Player.Health; got != 70 {
		t.Fatalf("health = %d, want 70", got)
	}
}

func TestShootAndShotDelay(t *testing.T) {
	h := newHarness(t, quickRules())
	h.c.SetWeapon(1) // rifle, 300ms between shots
	h.step(t)
	h.start(t)

	h.c.ButtonPressed(TriggerButton)
	h.step(t)
	if len(h.shooter.shots) != 1 || h.shooter.shots[0] != (lasertag.Message{Player: me, Data: 1}) {
		t.Fatalf("shots = %+v", h.shooter.shots)
	}
	s := h.c.Snapshot()
	if s.State != AliveNotAbleToShoot || s.Weapon.Ammo != 29 {
		t.Fatalf("snapshot = %+v", s)
	}

	// presses during the delay are discarded
	h.c.ButtonPressed(TriggerButton)
	h.clock.Advance(300 * time.Millisecond)
	h.step(t)
	if got := h.c.Snapshot().State; got != AliveAbleToShoot {
		t.Fatalf("state = %v, want %v", got, AliveAbleToShoot)
	}
	h.hitBy(t, opponent, shotgun)
	if len(h.shooter.shots) != 1 {
		t.Fatalf("shots = %d, want 1", len(h.shooter.shots))
	}
}

func TestTriggerWithoutAmmo(t *testing.T) {
	rules := quickRules()
	rules.MaxAmmo = 1
	h := newHarness(t, rules)
	h.start(t)

	h.c.ButtonPressed(TriggerButton)
	h.step(t)
	h.clock.Advance(time.Second)
	h.step(t)

	h.c.ButtonPressed(TriggerButton)
	h.step(t)
	s := h.c.Snapshot()
	if len(h.shooter.shots) != 1 || s.State != AliveAbleToShoot || s.Weapon.Ammo != 0 {
		t.Fatalf("shots %d snapshot %+v", len(h.shooter.shots), s)
	}
}

func TestReload(t *testing.T) {
	h := newHarness(t, quickRules())
	h.start(t)
	h.c.ButtonPressed(TriggerButton)
	h.step(t)
	h.clock.Advance(time.Second)
	h.step(t)

	h.c.ButtonPressed(ReloadButton)
	h.step(t)
	s := h.c.Snapshot()
	if s.State != AliveNotAbleToShoot || s.Weapon.Ammo != 30 {
		t.Fatalf("snapshot = %+v, want refilled and not able to shoot", s)
	}
	if !h.reload.on {
		t.Fatal("reload LED is off")
	}
	if last := h.display.ammo[len(h.display.ammo)-1]; last != 29 {
		t.Fatalf("display shows %d ammo before the reload ends, want 29", last)
	}

	h.clock.Advance(2 * time.Second) // pistol reload
	h.step(t)
	if got := h.c.Snapshot().State; got != AliveAbleToShoot {
		t.Fatalf("state = %v, want %v", got, AliveAbleToShoot)
	}
	if h.reload.on {
		t.Fatal("reload LED is on")
	}
	if last := h.display.ammo[len(h.display.ammo)-1]; last != 30 {
		t.Fatalf("display shows %d ammo, want 30", last)
	}
}

func TestDeathDuringReloadTurnsLEDOff(t *testing.T) {
	h := newHarness(t, quickRules())
	h.start(t)
	h.c.ButtonPressed(ReloadButton)
	h.step(t)
	for range 4 {
		h.hitBy(t, opponent, shotgun)
	}
	if got := h.c.Snapshot().State; got != Dead {
		t.Fatalf("state = %v, want %v", got, Dead)
	}
	if h.reload.on {
		t.Fatal("reload LED stayed on after death")
	}
}

func TestRespawn(t *testing.T) {
	h := newHarness(t, quickRules())
	h.start(t)
	for range 4 {
		h.hitBy(t, opponent, shotgun)
	}

	// hits while dead are not acted on
	h.c.MessageReceived(lasertag.Message{Player: opponent, Data: shotgun})

	h.clock.Advance(10 * time.Second)
	h.step(t)
	s := h.c.Snapshot()
	if s.State != AliveAbleToShoot || s.Player.Health != 100 || s.Weapon.Ammo != 30 {
		t.Fatalf("snapshot = %+v", s)
	}
	if h.death.on {
		t.Fatal("death LED is on after respawn")
	}
	if n := h.c.msgs.Len(); n != 0 {
		t.Fatalf("%d messages survived the respawn", n)
	}
}

func TestRoundEnds(t *testing.T) {
	h := newHarness(t, quickRules())
	h.c.MessageReceived(lasertag.Message{Player: 0, Data: 2})
	h.step(t)
	h.start(t)
	h.hitBy(t, opponent, shotgun)

	h.clock.Advance(2 * time.Minute)
	h.step(t)
	if got := h.c.Snapshot().State; got != InitGame {
		t.Fatalf("state = %v, want %v", got, InitGame)
	}
	if len(h.hits.printed) != 1 || len(h.hits.printed[0]) != 1 {
		t.Fatalf("printed = %+v", h.hits.printed)
	}
	if len(h.hits.hits) != 0 {
		t.Fatal("hit log not cleared")
	}
}

func TestRoundEndBeatsRespawn(t *testing.T) {
	rules := quickRules()
	rules.RoundLength = 1
	rules.DeathDuration = time.Minute
	h := newHarness(t, rules)
	h.start(t)
	for range 4 {
		h.hitBy(t, opponent, shotgun)
	}

	h.clock.Advance(time.Minute)
	h.step(t)
	if got := h.c.Snapshot().State; got != InitGame {
		t.Fatalf("state = %v, want %v", got, InitGame)
	}
	if h.death.on || h.reload.on {
		t.Fatal("LEDs left on after the round")
	}
	if h.c.deathTimer.Armed() {
		t.Fatal("death timer still armed")
	}
}

func TestRoundEndBeatsTrigger(t *testing.T) {
	rules := quickRules()
	rules.RoundLength = 1
	h := newHarness(t, rules)
	h.start(t)

	h.c.ButtonPressed(TriggerButton)
	h.clock.Advance(time.Minute)
	h.step(t)
	if got := h.c.Snapshot().State; got != InitGame {
		t.Fatalf("state = %v, want %v", got, InitGame)
	}
	if len(h.shooter.shots) != 0 {
		t.Fatal("shot fired after the round ended")
	}
}

func TestSecondRoundResetsDeaths(t *testing.T) {
	rules := quickRules()
	rules.RoundLength = 1
	h := newHarness(t, rules)
	h.start(t)
	for range 4 {
		h.hitBy(t, opponent, shotgun)
	}
	h.clock.Advance(time.Minute)
	h.step(t)

	h.c.MessageReceived(lasertag.Message{})
	h.step(t)
	s := h.c.Snapshot()
	if s.Player.Deaths != 0 || s.Player.Health != 100 || s.Round != 2 {
		t.Fatalf("snapshot = %+v", s)
	}
}

func TestSecondRoundRefillsAmmoAndHealth(t *testing.T) {
	rules := quickRules()
	rules.RoundLength = 1
	h := newHarness(t, rules)
	h.start(t)

	h.c.ButtonPressed(TriggerButton)
	h.step(t)
	h.clock.Advance(500 * time.Millisecond) // pistol shot delay
	h.step(t)
	h.hitBy(t, opponent, shotgun)
	h.c.ButtonPressed(TriggerButton)
	h.step(t)
	s := h.c.Snapshot()
	if s.State != AliveNotAbleToShoot || s.Weapon.Ammo != 28 || s.Player.Health != 70 {
		t.Fatalf("snapshot before round end = %+v", s)
	}

	h.clock.Advance(time.Minute)
	h.step(t)
	if got := h.c.Snapshot().State; got != InitGame {
		t.Fatalf("state = %v, want %v", got, InitGame)
	}

	h.c.MessageReceived(lasertag.Message{})
	h.step(t)
	s = h.c.Snapshot()
	if s.State != AliveAbleToShoot || s.Weapon.Ammo != rules.MaxAmmo || s.Player.Health != rules.MaxHealth {
		t.Fatalf("snapshot after restart = %+v", s)
	}
	h.display.mu.Lock()
	defer h.display.mu.Unlock()
	if got := h.display.ammo[len(h.display.ammo)-1]; got != rules.MaxAmmo {
		t.Fatalf("ammo shown = %d, want %d", got, rules.MaxAmmo)
	}
	if got := h.display.health[len(h.display.health)-1]; got != rules.MaxHealth {
		t.Fatalf("health shown = %d, want %d", got, rules.MaxHealth)
	}
}

func TestRoundSpan(t *testing.T) {
	rules := quickRules()
	rules.RoundLength = 1
	h := newHarness(t, rules)
	h.start(t)
	h.c.ButtonPressed(TriggerButton)
	h.step(t)
	h.hitBy(t, opponent, shotgun)
	h.clock.Advance(time.Minute)
	h.step(t)

	spans := h.recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "round" {
		t.Fatalf("ended spans = %d", len(spans))
	}
	var names []string
	for _, e := range spans[0].Events() {
		names = append(names, e.Name)
	}
	if len(names) != 2 || names[0] != "shot" || names[1] != "hit" {
		t.Fatalf("span events = %v, want [shot hit]", names)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, quickRules())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.c.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func TestStateString(t *testing.T) {
	if InitGame.String() != "init-game" || Dead.String() != "dead" || State(9).String() != "unknown" {
		t.Fatal("unexpected state names")
	}
	if InitGame.Playing() || !Dead.Playing() {
		t.Fatal("unexpected Playing")
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
