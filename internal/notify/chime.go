package notify

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

var ErrNoAudioDevice = errors.New("no audio device")

// Chimer plays the new order sound.
type Chimer interface {
	Chime(ctx context.Context) error
}

// BellChimer rings the terminal bell twice. The device is probed on the
// first attempt only.
type BellChimer struct {
	out *os.File
	gap time.Duration

	once  sync.Once
	ready bool
	mu    sync.Mutex
}

func NewBellChimer(out *os.File) *BellChimer {
	if out == nil {
		out = os.Stdout
	}
	return &BellChimer{out: out, gap: 150 * time.Millisecond}
}

func (b *BellChimer) Chime(ctx context.Context) error {
	b.once.Do(func() {
		fd := b.out.Fd()
		b.ready = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	})
	if !b.ready {
		return ErrNoAudioDevice
	}

	// Two chimes must not interleave.
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.out.WriteString("\a"); err != nil {
		return err
	}
	t := time.NewTimer(b.gap)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	_, err := b.out.WriteString("\a")
	return err
}
