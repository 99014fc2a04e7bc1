package backend

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/wait"
)

func (b *backend) StartProvisionDaemon(stopCh <-chan struct{}) {
	interval := b.cfg.ProvisionInterval
	if interval <= 0 {
		logrus.Info("scheduled provisioning disabled")
		return
	}
	if b.runner == nil {
		logrus.Warnf("scheduled provisioning disabled: %v", b.provisionErr)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	logrus.Infof("starting provision daemon. Interval: %v", interval)
	wait.JitterUntil(func() { b.scheduledRun(ctx) }, interval, .002, true, stopCh)
}

func (b *backend) scheduledRun(ctx context.Context) {
	logrus.Info("Beginning scheduled provisioning run")
	start := time.Now()

	summary, err := b.Provision(ctx)
	if errors.Is(err, ErrRunInProgress) {
		logrus.Info("Skipping scheduled run, another run is in progress")
		return
	} else if err != nil {
		logrus.Errorf("scheduled provisioning run failed: %v", err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"run_id":   summary.RunID,
		"duration": time.Since(start).String(),
	}).Infof("Businesses provisioned: %d, failed: %d", summary.Successful, summary.Failed)
}
