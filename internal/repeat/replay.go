package repeat

import (
	"errors"
	"log"
	"os/exec"
)

// Replayer invokes the external tcpreplay binary. The core only tracks
// whether it is usable; execution is entirely out of band and changes no
// catalog or playlist state.
type Replayer struct {
	path string
}

func NewReplayer(path string) *Replayer {
	return &Replayer{path: path}
}

// Probe reports whether tcpreplay can actually be executed. The result is
// cached by the engine; a failed probe never blocks request handling.
func (r *Replayer) Probe() bool {
	if r.path == "" {
		log.Printf("tcp-repeat: no tcpreplay path configured")
		return false
	}
	resolved, err := exec.LookPath(r.path)
	if err != nil {
		log.Printf("tcp-repeat: tcpreplay was not found at %q", r.path)
		return false
	}
	if err := exec.Command(resolved, "--version").Run(); err != nil {
		log.Printf("tcp-repeat: tcpreplay was found but could not be executed: %v", err)
		return false
	}
	log.Printf("tcp-repeat: 'tcpreplay --version' ran successfully")
	return true
}

// Play starts tcpreplay against the playlist's target interface with the
// resolved capture files, in playlist order, and returns as soon as the
// process is running. Completion is logged, not reported.
func (r *Replayer) Play(settings Settings, files []string) error {
	if settings.Interface == "" {
		return errors.New("playlist has no target interface")
	}
	cmd := exec.Command(r.path, replayArgs(settings, files)...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("tcp-repeat: tcpreplay exited: %v", err)
		}
	}()
	return nil
}

func replayArgs(settings Settings, files []string) []string {
	args := []string{"-i", settings.Interface}
	switch settings.Speed {
	case speedPcap, "":
		// As recorded; tcpreplay's default.
	case speedTopspeed:
		args = append(args, "--topspeed")
	default:
		args = append(args, "--multiplier", settings.Speed)
	}
	if settings.Looping == loopingForever {
		args = append(args, "--loop", "0")
	}
	return append(args, files...)
}
