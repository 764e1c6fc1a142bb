package session

import (
	"fmt"
	"io"

	"tractor.dev/toolkit-go/engine/cli"
)

// Command returns the control command for the controller. Its first
// argument names the action, mirroring the page buttons. Results and
// errors are written to out.
func (c *Controller) Command(out io.Writer) *cli.Command {
	return &cli.Command{
		Usage: "ctl",
		Short: "control the vm session",
		Run: func(_ *cli.Context, args []string) {
			if len(args) == 0 {
				fmt.Fprintln(out, "usage: ctl start|reset|stop|recreate|status")
				return
			}
			var err error
			switch args[0] {
			case "start":
				err = c.StartOrCreate()
			case "reset":
				err = c.Restart()
			case "stop":
				err = c.Terminate()
			case "recreate":
				err = c.Recreate()
			case "status":
				st := c.Status()
				fmt.Fprintf(out, "session=%v cdrom=%q hda=%q\n", st.Session, st.CDROM, st.HDA)
			default:
				err = fmt.Errorf("unknown action %q", args[0])
			}
			if err != nil {
				fmt.Fprintln(out, "ctl:", err)
			}
		},
	}
}
