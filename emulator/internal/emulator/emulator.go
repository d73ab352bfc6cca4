package emulator

import (
	"context"
	"log"
	"time"

	"github.com/Krimson/ecg-monitory/emulator/internal/config"
	"github.com/Krimson/ecg-monitory/emulator/internal/senders"
	"github.com/Krimson/ecg-monitory/emulator/internal/source"
)

type Emulator struct {
	src        source.Source
	sender     senders.DataSender
	config     config.EmulatorConfig
	sampleRate float64
}

func NewEmulator(
	src source.Source,
	sender senders.DataSender,
	cfg config.EmulatorConfig,
	sampleRate float64,
) *Emulator {
	return &Emulator{
		src:        src,
		sender:     sender,
		config:     cfg,
		sampleRate: sampleRate,
	}
}

// Run отправляет сигнал порциями до конца источника, истечения Duration или отмены ctx.
// Возвращает число отправленных отсчетов.
func (e *Emulator) Run(ctx context.Context) (int64, error) {
	batch := e.config.BatchSamples
	buf := make([]float64, batch)

	// Кадр BLE несет пару отсчетов, поэтому лимит округляется до четного
	limit := int64(e.config.Duration.Seconds() * e.sampleRate)
	limit -= limit % 2

	var tick <-chan time.Time
	if e.config.Realtime {
		interval := time.Duration(float64(batch) / e.sampleRate * float64(time.Second))
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	log.Printf("Starting emulator: batch=%d fs=%.0f duration=%v realtime=%v",
		batch, e.sampleRate, e.config.Duration, e.config.Realtime)

	var sent int64
	for {
		want := batch
		if limit > 0 {
			if sent >= limit {
				log.Printf("Emulator finished: %d samples", sent)
				return sent, nil
			}
			if rest := limit - sent; rest < int64(want) {
				want = int(rest)
			}
		}

		n := e.src.Read(buf[:want])
		n -= n % 2
		if n == 0 {
			log.Printf("Signal source exhausted: %d samples", sent)
			return sent, nil
		}

		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				log.Println("Emulator stopped")
				return sent, nil
			}
		} else if ctx.Err() != nil {
			log.Println("Emulator stopped")
			return sent, nil
		}

		if err := e.sender.Send(ctx, buf[:n]); err != nil {
			log.Printf("Send error: %v", err)
			continue
		}
		sent += int64(n)
	}
}
