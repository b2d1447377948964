package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	irtag "github.com/sparques/irtag"
	"github.com/sparques/irtag/game"
	"github.com/sparques/irtag/lasertag"
)

// leadPause separates injected frames so the decoder never treats them as
// repeats of each other.
const leadPause = 10 * time.Millisecond

// Controls is the part of the game controller driven from the keyboard.
type Controls interface {
	game.ButtonListener
	SetPlayerNumber(id uint8)
	SetWeapon(id uint8)
}

// ReadCommands runs line commands from r until r is exhausted or ctx is done.
// Messages are turned into IR pauses and handed to ir, so they go through the
// same decoder a real receiver feeds.
//
//	t, trigger        press the trigger
//	r, reload         press reload
//	player N          set the player id
//	weapon N          set the weapon id
//	start             referee start-round message
//	length N          referee round length in minutes
//	hit P W           shot from player P with weapon W
func ReadCommands(ctx context.Context, r io.Reader, ctrl Controls, ir irtag.PauseListener) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := runCommand(strings.Fields(sc.Text()), ctrl, ir); err != nil {
			log.Printf("console: %v", err)
		}
	}
	return sc.Err()
}

func runCommand(args []string, ctrl Controls, ir irtag.PauseListener) error {
	if len(args) == 0 {
		return nil
	}
	nums, err := fields(args[1:])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	want := map[string]int{"t": 0, "trigger": 0, "r": 0, "reload": 0, "start": 0, "player": 1, "weapon": 1, "length": 1, "hit": 2}
	n, ok := want[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}
	if len(nums) != n {
		return fmt.Errorf("%s takes %d arguments", args[0], n)
	}

	switch args[0] {
	case "t", "trigger":
		ctrl.ButtonPressed(game.TriggerButton)
	case "r", "reload":
		ctrl.ButtonPressed(game.ReloadButton)
	case "player":
		ctrl.SetPlayerNumber(nums[0])
	case "weapon":
		ctrl.SetWeapon(nums[0])
	case "start":
		send(ir, 0, 0)
	case "length":
		send(ir, 0, nums[0])
	case "hit":
		send(ir, nums[0], nums[1])
	}
	return nil
}

func fields(args []string) ([]uint8, error) {
	nums := make([]uint8, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseUint(a, 10, 8)
		if err != nil || v > lasertag.MaxField {
			return nil, fmt.Errorf("bad number %q", a)
		}
		nums = append(nums, uint8(v))
	}
	return nums, nil
}

func send(ir irtag.PauseListener, player, data uint8) {
	for _, p := range lasertag.NewFrame(player, data).Pauses(leadPause) {
		ir.PauseDetected(p)
	}
}
