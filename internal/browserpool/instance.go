// Package browserpool manages a fleet of headless browser processes with
// checkout/return semantics, health checks, and memory-pressure eviction
// (spec §4.2), ported from the teacher's page-pool pattern generalized from
// page granularity to whole-browser-process granularity.
package browserpool

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/riptide-engine/riptide/internal/models"
)

// HealthReporter is a narrow health-reporting capability. Nothing in this
// package implements or holds one: an Instance never reports its own
// health; the Pool probes instances itself (see returnInstance) and no
// Instance holds a reference to its Pool.
type HealthReporter interface {
	ReportCrash(instanceID string)
	ReportUnhealthy(instanceID string)
}

// Instance is one pooled headless browser process.
type Instance struct {
	ID             string
	State          models.InstanceState
	Browser        *rod.Browser
	Launcher       *launcher.Launcher
	ProfileDir     string
	CreatedAt      time.Time
	LastUsed       time.Time
	PagesCreated   int64
	MemoryBytesEst int64
	failureCount   int

	mu sync.Mutex
}

// launch starts a fresh Chrome process with a unique profile directory
// (spec §4.2 invariant: "each new instance receives a unique profile
// directory"), mirroring the teacher's launchBrowser but parameterized by
// headless mode and extra Chrome flags (CHROME_FLAGS env var, spec §6).
func launch(headless bool, extraFlags []string) (*Instance, error) {
	profileDir, err := os.MkdirTemp("", "riptide-browser-*")
	if err != nil {
		return nil, fmt.Errorf("creating browser profile dir: %w", err)
	}

	l := launcher.New().
		Headless(headless).
		UserDataDir(profileDir).
		Set("ignore-certificate-errors")
	for _, flag := range extraFlags {
		l = l.Set(launcher.Flag(flag))
	}

	controlURL, err := l.Launch()
	if err != nil {
		os.RemoveAll(profileDir)
		return nil, models.Wrapf(models.KindBrowserUnavailable, err, "launching browser process")
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		os.RemoveAll(profileDir)
		return nil, models.Wrapf(models.KindBrowserUnavailable, err, "connecting to browser control socket")
	}

	now := time.Now()
	return &Instance{
		ID:         fmt.Sprintf("browser-%d", now.UnixNano()),
		State:      models.StateIdle,
		Browser:    browser,
		Launcher:   l,
		ProfileDir: profileDir,
		CreatedAt:  now,
		LastUsed:   now,
	}, nil
}

// probe runs a cheap health check: it opens (and closes) an about:blank
// page within a short timeout.
func (inst *Instance) probe(timeout time.Duration) error {
	page, err := inst.Browser.Timeout(timeout).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return err
	}
	defer page.Close()
	return nil
}

func (inst *Instance) terminate() {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.State == models.StateTerminated {
		return
	}
	inst.State = models.StateTerminated
	if inst.Browser != nil {
		_ = inst.Browser.Close()
	}
	if inst.ProfileDir != "" {
		_ = os.RemoveAll(inst.ProfileDir)
	}
}
