// Package main is an example wakegate hook that silences the alarm.
// It pauses media playback and mutes the output once the alarm unlocks, and
// turns the volume up whenever a wrong shape resets the sequence.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/ayusman/wakegate/internal/hook"
)

// command runs an external program. Replaced in tests.
var command = func(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

func main() {
	var event hook.Event
	if err := json.NewDecoder(os.Stdin).Decode(&event); err != nil {
		writeResponse(fmt.Errorf("failed to decode event: %w", err))
		return
	}

	writeResponse(handle(event, runtime.GOOS))
}

// handle runs the actions for event on the given platform.
func handle(event hook.Event, goos string) error {
	var actions []action
	switch {
	case event.Event == hook.EventTransition && event.To == "UNLOCKED":
		actions = []action{pauseMedia, mute}
	case event.Event == hook.EventReset:
		actions = []action{volumeUp}
	}

	for _, a := range actions {
		name, args, err := a(goos)
		if err != nil {
			return err
		}
		if err := command(name, args...); err != nil {
			return err
		}
	}
	return nil
}

// action returns the command line for one platform.
type action func(goos string) (string, []string, error)

func pauseMedia(goos string) (string, []string, error) {
	switch goos {
	case "darwin":
		return appleScript(`tell application "System Events"
	key code 100
end tell`)
	case "linux":
		return "playerctl", []string{"pause"}, nil
	}
	return "", nil, unsupported(goos)
}

func mute(goos string) (string, []string, error) {
	switch goos {
	case "darwin":
		return appleScript(`set volume output muted true`)
	case "linux":
		return "pactl", []string{"set-sink-mute", "@DEFAULT_SINK@", "1"}, nil
	}
	return "", nil, unsupported(goos)
}

// volumeUp raises the output volume by 10%.
func volumeUp(goos string) (string, []string, error) {
	switch goos {
	case "darwin":
		return appleScript(`set volume output volume ((output volume of (get volume settings)) + 10)`)
	case "linux":
		return "pactl", []string{"set-sink-volume", "@DEFAULT_SINK@", "+10%"}, nil
	}
	return "", nil, unsupported(goos)
}

func appleScript(script string) (string, []string, error) {
	return "osascript", []string{"-e", script}, nil
}

func unsupported(goos string) error {
	return fmt.Errorf("unsupported platform: %s", goos)
}

// writeResponse writes the hook response to stdout.
func writeResponse(err error) {
	resp := hook.Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
