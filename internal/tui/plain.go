package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/tatianab/ravi-adventure/internal/engine"
)

// RunPlain plays the game line by line over in and out, without any
// terminal control codes. It returns when the player quits or in runs dry.
func RunPlain(ctx context.Context, eng *engine.Engine, in io.Reader, out io.Writer, intro string) error {
	fmt.Fprintf(out, "%s\n\n> ", intro)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		printNotifications(out, eng.Tick())

		res := eng.ProcessCommand(ctx, scanner.Text())
		if res.Output != "" {
			fmt.Fprintln(out, res.Output)
		}
		printNotifications(out, res.Notifications)
		if res.Quit {
			return nil
		}
		fmt.Fprint(out, "\n> ")
	}
	return scanner.Err()
}

func printNotifications(out io.Writer, ns []engine.Notification) {
	for _, n := range ns {
		fmt.Fprintf(out, "  * %s\n", n.Text)
	}
}
