package sound

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Cue names, each a .wav file in the sound directory.
const (
	Start  = "start"
	Finish = "finish"
	Home   = "home"
)

// Player plays cues from its own goroutine.  Play never blocks for long; a
// cue that arrives while the player is busy opening the previous one is
// dropped.
type Player struct {
	dir          string
	soundsToPlay chan string
}

func NewPlayer(dir string) *Player {
	p := &Player{
		dir:          dir,
		soundsToPlay: make(chan string),
	}
	go p.loop()
	return p
}

// Path is the file a cue is played from.
func (p *Player) Path(cue string) string {
	return filepath.Join(p.dir, cue+".wav")
}

func (p *Player) Play(cue string) {
	defer func() {
		recover() // Don't die if the channel is already closed.
	}()
	path := p.Path(cue)
	select {
	case p.soundsToPlay <- path:
		return
	case <-time.After(10 * time.Millisecond):
		fmt.Println("Timed out trying to play sound: ", path)
	}
}

func (p *Player) Close() {
	close(p.soundsToPlay)
}

func (p *Player) loop() {
	defer func() {
		recover()
		for s := range p.soundsToPlay {
			fmt.Println("Unable to play", s)
		}
	}()
	sampleRate := beep.SampleRate(44100)
	err := speaker.Init(sampleRate, sampleRate.N(time.Second/5))
	if err != nil {
		fmt.Println("Failed to open speaker", err)
		for s := range p.soundsToPlay {
			fmt.Println("Unable to play", s)
		}
		return
	}
	var ctrl *beep.Ctrl
	var s beep.StreamSeekCloser
	for soundToPlay := range p.soundsToPlay {
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if s != nil {
			s.Close()
			s = nil
		}

		f, err := os.Open(soundToPlay)
		if err != nil {
			fmt.Println("Failed to open sound", err)
			continue
		}
		s, _, err = wav.Decode(f)
		if err != nil {
			fmt.Println("Failed to decode sound", err)
			_ = f.Close()
			continue
		}
		ctrl = &beep.Ctrl{Streamer: s}
		speaker.Play(ctrl)
	}
}
