//go:build tinygo

// Package main is the player unit firmware for TinyGo boards.
package main

import (
	"context"
	"machine"
	"time"

	irtag "github.com/sparques/irtag"
	"github.com/sparques/irtag/console"
	"github.com/sparques/irtag/event"
	"github.com/sparques/irtag/game"
	"github.com/sparques/irtag/gamelog"
	"github.com/sparques/irtag/lasertag"
)

// Board wiring.
const (
	rxPin        = machine.GP15
	txPin        = machine.GP16
	triggerPin   = machine.GP2
	reloadPin    = machine.GP3
	reloadLEDPin = machine.GP20
	deathLEDPin  = machine.GP21

	playerID = 1
	weaponID = 0
)

const (
	buttonPoll    = 10 * time.Millisecond
	buttonHoldoff = 50 * time.Millisecond
)

// shooter sends each shot from its own goroutine so the controller is not held
// up for the length of the frames.
type shooter struct {
	tx    *irtag.TxDevice
	shots *event.Queue[lasertag.Message]
}

func (s *shooter) Shoot(shot lasertag.Message) {
	s.shots.Write(shot)
}

func (s *shooter) run(ctx context.Context) {
	for {
		if _, err := event.Select(ctx, s.shots); err != nil {
			return
		}
		shot, err := s.shots.Read()
		if err != nil {
			continue
		}
		s.tx.SendFrame(lasertag.FrameOf(shot), lasertag.Copies)
	}
}

func led(pin machine.Pin) game.Indicator {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()
	return game.IndicatorFunc(pin.Set)
}

// pollButton reports presses of an active-low button.
func pollButton(pin machine.Pin, id int, listener game.ButtonListener) {
	pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	wasDown := false
	var last time.Time
	for {
		down := !pin.Get()
		if down && !wasDown && time.Since(last) >= buttonHoldoff {
			last = time.Now()
			listener.ButtonPressed(id)
		}
		wasDown = down
		time.Sleep(buttonPoll)
	}
}

func main() {
	ctx := context.Background()
	display := console.New(machine.Serial)

	sh := &shooter{
		tx:    irtag.NewTxDevice(txPin),
		shots: event.NewQueue[lasertag.Message](4, event.DropNewest),
	}
	ctrl := game.New(game.Config{
		Rules:           game.DefaultRules(),
		Display:         display,
		Shooter:         sh,
		ReloadIndicator: led(reloadLEDPin),
		DeathIndicator:  led(deathLEDPin),
		HitLog:          gamelog.New(machine.Serial, nil),
		QueueCapacity:   64,
	})
	decoder := lasertag.NewDecoder(ctrl, 256)
	rx := irtag.NewRxDevice(rxPin, decoder)

	ctrl.SetPlayerNumber(playerID)
	ctrl.SetWeapon(weaponID)

	go sh.run(ctx)
	go decoder.Run(ctx)
	go pollButton(triggerPin, game.TriggerButton, ctrl)
	go pollButton(reloadPin, game.ReloadButton, ctrl)
	rx.Start()

	ctrl.Run(ctx)
}
