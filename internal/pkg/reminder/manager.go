package reminder

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/smartapplypro/backend/app/models"
	"github.com/smartapplypro/backend/internal/pkg/cache"
	"github.com/smartapplypro/backend/internal/pkg/database"
	"github.com/smartapplypro/backend/internal/pkg/env"
	"github.com/smartapplypro/backend/internal/pkg/notification"
)

const (
	// Licenses expiring within this window get a renewal reminder.
	reminderWindow = 7 * 24 * time.Hour
	// Dedup marker TTL outlives the window so a license is reminded at most
	// once per expiry date.
	dedupTTL = 30 * 24 * time.Hour

	defaultSweepIntervalMinutes = 360
	maxCandidatesPerSweep       = 200
)

// DedupStore remembers which license/expiry pairs were already reminded, so a
// restart or overlapping sweep never sends a second mail for the same expiry.
type DedupStore interface {
	Seen(key string) bool
	Mark(key string, ttl time.Duration) error
}

// redisDedup backs the dedup marker with the shared Redis cache.
type redisDedup struct{}

func (redisDedup) Seen(key string) bool {
	_, err := cache.Get(key)
	return err == nil
}

func (redisDedup) Mark(key string, ttl time.Duration) error {
	return cache.Set(key, time.Now().Format(time.RFC3339), ttl)
}

// Manager runs the periodic renewal reminder sweep.
type Manager struct {
	notifier notification.Notifier
	dedup    DedupStore
	ticker   *time.Ticker
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global reminder manager (singleton).
func GetManager(notifier notification.Notifier) *Manager {
	managerOnce.Do(func() {
		globalManager = NewManager(notifier, redisDedup{})
	})
	return globalManager
}

// NewManager builds a manager with an explicit dedup store.
func NewManager(notifier notification.Notifier, dedup DedupStore) *Manager {
	return &Manager{
		notifier: notifier,
		dedup:    dedup,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.stopCh = make(chan struct{})
	m.running = true

	interval := env.GetEnvInt("REMINDER_SWEEP_INTERVAL_MINUTES", defaultSweepIntervalMinutes)

	m.ticker = time.NewTicker(time.Duration(interval) * time.Minute)
	m.wg.Add(1)
	go m.sweepWorker()

	log.Infof("[Reminder] Started renewal sweep (interval: %d minutes)", interval)
}

// Stop stops the sweep and waits for the worker to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.ticker != nil {
		m.ticker.Stop()
	}
	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	log.Info("[Reminder] Stopped")
}

// IsRunning returns whether the manager is currently running.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) sweepWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[Reminder] Sweep worker stopping")
			return
		case <-m.ticker.C:
			if err := m.runSweepOnce(); err != nil {
				log.Errorf("[Reminder] Sweep error: %v", err)
			}
		}
	}
}

// RunSweepOnce exposes a manual trigger for a single sweep (admin use).
func (m *Manager) RunSweepOnce() error {
	return m.runSweepOnce()
}

// runSweepOnce scans active licenses expiring within the reminder window and
// dispatches one reminder per license and expiry date.
func (m *Manager) runSweepOnce() error {
	db := database.GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return m.sweep(db, time.Now())
}

func (m *Manager) sweep(db *gorm.DB, now time.Time) error {
	var licenses []models.License
	err := db.
		Where("status = ?", models.LicenseStatusActive).
		Where("expiry_date IS NOT NULL").
		Where("expiry_date > ?", now).
		Where("expiry_date <= ?", now.Add(reminderWindow)).
		Order("expiry_date ASC").
		Limit(maxCandidatesPerSweep).
		Find(&licenses).Error
	if err != nil {
		return fmt.Errorf("failed to scan expiring licenses: %w", err)
	}

	reminded := 0
	for _, l := range licenses {
		if l.ExpiryDate == nil {
			continue
		}
		key := dedupKey(l)
		if m.dedup.Seen(key) {
			continue // already reminded for this expiry
		}
		if err := m.dedup.Mark(key, dedupTTL); err != nil {
			log.Errorf("[Reminder] Failed to mark %s as reminded: %v", l.LicenseKey, err)
			continue
		}

		notification.Dispatch(m.notifier, notification.KindRenewalReminder, l.Email, map[string]string{
			"customerName": l.FullName,
			"licenseKey":   l.LicenseKey,
			"expiryDate":   l.ExpiryDate.Format("January 2, 2006"),
		})
		reminded++
	}

	if reminded > 0 {
		log.Infof("[Reminder] Dispatched %d renewal reminders in this sweep", reminded)
	}
	return nil
}

func dedupKey(l models.License) string {
	return fmt.Sprintf("reminder:sent:%s:%s", l.LicenseKey, l.ExpiryDate.Format("2006-01-02"))
}
