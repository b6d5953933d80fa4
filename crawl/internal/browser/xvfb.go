package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// display is an Xvfb server for headful Chrome.
type display struct {
	name string
	cmd  *exec.Cmd
}

// startDisplay runs Xvfb on name (":99") and waits for its socket, since
// Chrome exits when the display is not accepting connections yet.
func startDisplay(ctx context.Context, name string) (*display, error) {
	cmd := exec.Command("Xvfb", name, "-screen", "0", "1920x1080x24", "-nolisten", "tcp")
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("browser: xvfb %s: %w", name, err)
	}
	d := &display{name: name, cmd: cmd}

	socket := "/tmp/.X11-unix/X" + strings.TrimPrefix(name, ":")
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(socket); err == nil {
			return d, nil
		}
		if time.Now().After(deadline) {
			d.stop()
			return nil, fmt.Errorf("browser: xvfb %s: no socket after 5s", name)
		}
		select {
		case <-ctx.Done():
			d.stop()
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (d *display) stop() {
	if d.cmd.Process != nil {
		d.cmd.Process.Kill()
		d.cmd.Wait()
	}
}
