// Package console shows the player's status as text lines, for units without a
// screen and for running on a desktop.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/sparques/irtag/game"
	"github.com/sparques/irtag/lasertag"
)

// Display implements game.Display by writing one line per update.
type Display struct {
	mu  sync.Mutex
	out io.Writer
}

// New returns a Display writing to out.
func New(out io.Writer) *Display {
	return &Display{out: out}
}

func (d *Display) printf(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, format+"\n", args...)
}

func (d *Display) ShowPlayer(id uint8)    { d.printf("player  %d", id) }
func (d *Display) ShowWeapon(name string) { d.printf("weapon  %s", name) }
func (d *Display) ShowHealth(health int)  { d.printf("health  %d", health) }
func (d *Display) ShowAmmo(ammo int)      { d.printf("ammo    %d", ammo) }
func (d *Display) ShowDeaths(deaths int)  { d.printf("deaths  %d", deaths) }

func (d *Display) ShowCountdown(n int) {
	if n == 0 {
		d.printf("go!")
		return
	}
	d.printf("%d...", n)
}

// Shoot implements game.Shooter for units without a transmitter.
func (d *Display) Shoot(shot lasertag.Message) {
	d.printf("shot    player %d weapon %d", shot.Player, shot.Data)
}

// Indicator returns a game.Indicator that prints name's state.
func (d *Display) Indicator(name string) game.Indicator {
	return game.IndicatorFunc(func(on bool) {
		state := "off"
		if on {
			state = "on"
		}
		d.printf("%-7s %s", name, state)
	})
}
