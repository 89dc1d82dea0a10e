// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	applog "looper/internal/log"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process, fixed to one sample rate.
var (
	otoMu   sync.Mutex
	otoCtx  *oto.Context
	otoRate int
)

func otoContext(sampleRate int) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoRate != sampleRate {
			return nil, fmt.Errorf("audition output is already open at %d Hz", otoRate)
		}
		return otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audition output: %w", err)
	}
	<-ready

	otoCtx, otoRate = ctx, sampleRate
	return ctx, nil
}

// Audition plays mono samples on the default output and returns when
// playback finishes or ctx is done.
func Audition(ctx context.Context, samples []float32, sampleRate int) error {
	if len(samples) == 0 {
		return nil
	}

	c, err := otoContext(sampleRate)
	if err != nil {
		return err
	}

	raw := make([]byte, len(samples)*4)
	putFloat32LE(raw, samples)

	player := c.NewPlayer(bytes.NewReader(raw))
	defer player.Close()

	applog.Debugf("Audition: Playing %d samples at %d Hz", len(samples), sampleRate)
	player.Play()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return player.Err()
}
