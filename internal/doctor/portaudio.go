//go:build whisper

package doctor

import (
	"fmt"

	"whisperstt/internal/capture"

	"github.com/gordonklaus/portaudio"
)

func checkPortAudio() Result {
	if err := portaudio.Initialize(); err != nil {
		return Result{Name: "microphone", Pass: false, Detail: fmt.Sprintf("portaudio init failed: %v", err)}
	}
	defer func() {
		_ = portaudio.Terminate()
	}()
	dev, err := capture.SelectDevice("")
	if err != nil {
		return Result{Name: "microphone", Pass: false, Detail: err.Error()}
	}
	return Result{Name: "microphone", Pass: true, Detail: dev.Name}
}
