package cron

import (
	"context"
	"os"
	"sync"
	"time"

	cronv3 "github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/driversheet/mailworker/config"
	"github.com/driversheet/mailworker/interfaces"
	"github.com/driversheet/mailworker/internal/logger"
	"github.com/driversheet/mailworker/internal/metrics"
	"github.com/driversheet/mailworker/internal/models"
	"github.com/driversheet/mailworker/internal/tracing"
	"github.com/driversheet/mailworker/internal/utils"
)

// CONSTANTS
const (
	// GroupAccounts is the group for tenant account jobs
	GroupAccounts = "accounts"

	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second

	leaseName = "mailworker-cron-leader"
)

// LOCK MANAGEMENT
var jobLocks = struct {
	sync.Mutex
	locks map[string]*sync.Mutex
}{
	locks: map[string]*sync.Mutex{
		GroupAccounts: new(sync.Mutex),
	},
}

type CronManager struct {
	cfg      *config.CronConfig
	log      logger.Logger
	cron     *cronv3.Cron
	k8s      kubernetes.Interface
	stopCh   chan struct{}
	stopOnce sync.Once
	jobIDs   map[string]cronv3.EntryID
	tenants  interfaces.TenantRepository
}

func NewCronManager(cfg *config.CronConfig, log logger.Logger, k8s kubernetes.Interface, tenants interfaces.TenantRepository) *CronManager {
	if cfg == nil {
		cfg = &config.CronConfig{}
	}
	return &CronManager{
		cfg:     cfg,
		log:     log,
		k8s:     k8s,
		stopCh:  make(chan struct{}),
		jobIDs:  make(map[string]cronv3.EntryID),
		tenants: tenants,
	}
}

// Start initializes and starts the cron manager with leader election
// If k8s is nil, it will start in local mode without leader election
func (cm *CronManager) Start(podName, namespace string) error {
	if cm.k8s == nil || os.Getenv("LOCAL_DEV") == "true" {
		cm.log.Info("Starting cron manager in local mode")
		return cm.StartCron()
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      leaseName,
			Namespace: namespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: podName,
		},
	}

	errCh := make(chan error, 1)

	go func() {
		le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			ReleaseOnCancel: true,
			LeaseDuration:   LeaseDuration,
			RenewDeadline:   RenewDeadline,
			RetryPeriod:     RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(ctx context.Context) {
					if err := cm.StartCron(); err != nil {
						cm.log.Errorf("Failed to start crons after winning leadership: %v", err)
					}
				},
				OnStoppedLeading: func() {
					cm.log.Info("Leader lost - stopping crons")
					cm.Stop()
				},
				OnNewLeader: func(identity string) {
					cm.log.Infof("New leader elected: %s", identity)
				},
			},
		})
		if err != nil {
			errCh <- err
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-cm.stopCh
			cancel()
		}()
		le.Run(ctx)
	}()

	// Wait briefly to see if leader election fails immediately
	select {
	case err := <-errCh:
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		return cm.StartCron()
	case <-time.After(5 * time.Second):
	}

	return nil
}

// Stop gracefully stops the cron manager
func (cm *CronManager) Stop() {
	cm.stopOnce.Do(func() {
		if cm.cron != nil {
			cm.log.Info("Stopping cron manager")
			ctx := cm.cron.Stop()
			// Wait for jobs to finish
			<-ctx.Done()
		}
		close(cm.stopCh)
	})
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron) error {
	if cm.cfg.CronScheduleHeartbeat != "" {
		podName := os.Getenv("POD_NAME")
		if podName == "" {
			podName = "local"
		}
		id, err := c.AddFunc(cm.cfg.CronScheduleHeartbeat, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			cm.log.Infof("Cron heartbeat from pod: %s", podName)
		})
		if err != nil {
			return err
		}
		cm.jobIDs["heartbeat"] = id
		cm.log.Infof("Registered heartbeat job with schedule: %s", cm.cfg.CronScheduleHeartbeat)
	}

	if cm.cfg.CronScheduleTrialMonitor != "" {
		id, err := c.AddFunc(cm.cfg.CronScheduleTrialMonitor, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			jobLocks.locks[GroupAccounts].Lock()
			defer jobLocks.locks[GroupAccounts].Unlock()
			cm.checkExpiredTrials(context.Background())
		})
		if err != nil {
			return err
		}
		cm.jobIDs["trial_monitor"] = id
		cm.log.Infof("Registered trial monitor job with schedule: %s", cm.cfg.CronScheduleTrialMonitor)
	}

	return nil
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() error {
	cm.log.Info("Starting cron manager")
	cronOptions := []cronv3.Option{
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	if err := cm.registerJobs(c); err != nil {
		cm.log.Errorf("Could not register cron jobs: %v", err)
		return err
	}
	c.Start()
	cm.cron = c
	return nil
}

// checkExpiredTrials logs every unpaid tenant whose trial has run out. Access is denied
// at read time, so nothing is changed here.
func (cm *CronManager) checkExpiredTrials(ctx context.Context) []*models.Tenant {
	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.checkExpiredTrials")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	cutoff := utils.Now().Add(-models.TrialPeriod)
	expired, err := cm.tenants.ListTrialExpired(ctx, cutoff)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("Failed to list expired trials: %v", err)
		return nil
	}

	metrics.TrialExpiredTenants.Set(float64(len(expired)))
	for _, tenant := range expired {
		cm.log.Infof("Trial expired for tenant %d (%s), created %s", tenant.ID, tenant.Email, tenant.CreatedAt.Format(time.RFC3339))
	}
	span.LogKV("expired", len(expired))

	return expired
}
