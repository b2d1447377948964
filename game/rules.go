package game

import "time"

// Weapon describes what a weapon id does when it hits and how fast it fires.
type Weapon struct {
	ID         uint8
	Name       string
	Damage     int
	ShotDelay  time.Duration
	ReloadTime time.Duration
}

// Armory looks weapons up by id. Unknown ids must still return a Weapon; the
// zero damage of an unknown weapon makes its hits harmless.
type Armory interface {
	Weapon(id uint8) Weapon
}

// Catalog is an Armory backed by a fixed list.
type Catalog []Weapon

func (c Catalog) Weapon(id uint8) Weapon {
	for _, w := range c {
		if w.ID == id {
			return w
		}
	}
	return Weapon{ID: id, Name: "unknown"}
}

// DefaultCatalog is the weapon set shipped with the units.
var DefaultCatalog = Catalog{
	{ID: 0, Name: "pistol", Damage: 10, ShotDelay: 500 * time.Millisecond, ReloadTime: 2 * time.Second},
	{ID: 1, Name: "rifle", Damage: 20, ShotDelay: 300 * time.Millisecond, ReloadTime: 3 * time.Second},
	{ID: 2, Name: "shotgun", Damage: 30, ShotDelay: time.Second, ReloadTime: 4 * time.Second},
	{ID: 3, Name: "sniper", Damage: 50, ShotDelay: 2 * time.Second, ReloadTime: 5 * time.Second},
	{ID: 4, Name: "smg", Damage: 8, ShotDelay: 100 * time.Millisecond, ReloadTime: 3 * time.Second},
	{ID: 5, Name: "launcher", Damage: 80, ShotDelay: 4 * time.Second, ReloadTime: 8 * time.Second},
}

// Sound lengths.
const (
	ConfigTone = 100 * time.Millisecond
	HitTone    = 100 * time.Millisecond
	StartTone  = time.Second
)

// Countdown is the sequence played between the start-round message and play.
type Countdown struct {
	Settle   time.Duration // after the start tone, before the stats are shown
	Briefing time.Duration // stats on screen before the countdown
	From     int           // first number counted down to zero
	Step     time.Duration // time each number stays on screen
}

// Rules holds the per-game constants.
type Rules struct {
	MaxHealth     int
	MaxAmmo       int
	DeathDuration time.Duration
	// RoundLength in minutes, used until a referee message sets one.
	RoundLength int
	Countdown   Countdown
}

const (
	defaultMaxHealth     = 100
	defaultMaxAmmo       = 30
	defaultDeathDuration = 10 * time.Second
	defaultRoundLength   = 10
	maxRoundLength       = 15
)

// DefaultRules returns the rules used when nothing is configured.
func DefaultRules() Rules {
	return Rules{
		MaxHealth:     defaultMaxHealth,
		MaxAmmo:       defaultMaxAmmo,
		DeathDuration: defaultDeathDuration,
		RoundLength:   defaultRoundLength,
		Countdown: Countdown{
			Settle:   time.Second,
			Briefing: 10 * time.Second,
			From:     5,
			Step:     1100 * time.Millisecond,
		},
	}
}

func (r Rules) normalized() Rules {
	if r.MaxHealth <= 0 {
		r.MaxHealth = defaultMaxHealth
	}
	if r.MaxAmmo <= 0 {
		r.MaxAmmo = defaultMaxAmmo
	}
	if r.DeathDuration <= 0 {
		r.DeathDuration = defaultDeathDuration
	}
	if r.RoundLength <= 0 || r.RoundLength > maxRoundLength {
		r.RoundLength = defaultRoundLength
	}
	if r.Countdown.From < 0 {
		r.Countdown.From = 0
	}
	return r
}
