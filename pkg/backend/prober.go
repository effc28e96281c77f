package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/wait"
)

const defaultProbeInterval = 30 * time.Second

// Prober periodically checks that the application shell resolves through the
// store, so readiness reflects the content path profile injection depends on.
type Prober struct {
	backend  Backend
	path     string
	interval time.Duration

	mu   sync.RWMutex
	last Status
	err  error
}

func NewProber(b Backend, shellPath string, interval time.Duration) *Prober {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	return &Prober{
		backend:  b,
		path:     shellPath,
		interval: interval,
		last:     StatusFailed,
		err:      fmt.Errorf("store not probed yet"),
	}
}

func (p *Prober) Start(stopCh <-chan struct{}) {
	logrus.Infof("starting store probe. Probe interval: %v, shell path: %s", p.interval, p.path)
	wait.JitterUntil(p.Probe, p.interval, .1, true, stopCh)
}

// Probe resolves the shell once and records the outcome.
func (p *Prober) Probe() {
	res := p.backend.LoadContent(context.Background(), p.path)

	p.mu.Lock()
	defer p.mu.Unlock()
	if res.Status != p.last {
		logrus.WithError(res.Err).Infof("store probe for %s: %s", p.path, res.Status)
	}
	p.last, p.err = res.Status, res.Err
}

// Ready returns nil once the last probe found the shell.
func (p *Prober) Ready() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == StatusFound {
		return nil
	}
	return fmt.Errorf("shell %s %s: %w", p.path, p.last, p.err)
}
