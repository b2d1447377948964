package game

import (
	"context"
	"time"

	"github.com/sparques/irtag/lasertag"
)

// Display shows the player's status.
type Display interface {
	ShowPlayer(id uint8)
	ShowWeapon(name string)
	ShowHealth(health int)
	ShowAmmo(ammo int)
	ShowDeaths(deaths int)
	ShowCountdown(n int)
}

// Buzzer makes a sound for d. It must not block for d.
type Buzzer interface {
	MakeSound(d time.Duration)
}

// Shooter transmits a shot carrying the shooter's player id and weapon id.
type Shooter interface {
	Shoot(shot lasertag.Message)
}

// Indicator is a discrete on/off output, usually an LED.
type Indicator interface {
	Set(on bool)
}

// HitLog records who hit the player during a round.
type HitLog interface {
	AddLog(ctx context.Context, attacker uint8, weapon string) error
	PrintLogs(ctx context.Context) error
	ClearLogs(ctx context.Context) error
}

// ButtonListener receives button presses.
type ButtonListener interface {
	ButtonPressed(button int)
}

// Buttons known to the controller.
const (
	TriggerButton = 0
	ReloadButton  = 1
)

// IndicatorFunc adapts a function to Indicator.
type IndicatorFunc func(on bool)

func (f IndicatorFunc) Set(on bool) {
	f(on)
}

type nopDisplay struct{}

func (nopDisplay) ShowPlayer(uint8)  {}
func (nopDisplay) ShowWeapon(string) {}
func (nopDisplay) ShowHealth(int)    {}
func (nopDisplay) ShowAmmo(int)      {}
func (nopDisplay) ShowDeaths(int)    {}
func (nopDisplay) ShowCountdown(int) {}

type nopBuzzer struct{}

func (nopBuzzer) MakeSound(time.Duration) {}

type nopShooter struct{}

func (nopShooter) Shoot(lasertag.Message) {}

type nopHitLog struct{}

func (nopHitLog) AddLog(context.Context, uint8, string) error { return nil }
func (nopHitLog) PrintLogs(context.Context) error             { return nil }
func (nopHitLog) ClearLogs(context.Context) error             { return nil }
