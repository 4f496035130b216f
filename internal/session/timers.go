package session

import (
	"context"
	"errors"
	"time"

	"mcxdesk/internal/notify"

	apperrors "mcxdesk/internal/errors"
)

// StartLive starts the live timer. It reports false when live mode was
// already running or the controller is closed. The loop also stops when ctx
// is cancelled.
func (c *Controller) StartLive(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.liveStop != nil {
		return false
	}
	stop := make(chan struct{})
	c.liveStop = stop
	c.loops.Add(1)
	go c.liveLoop(ctx, stop)
	c.logger.Info().Dur("interval", c.liveInterval).Msg("Live mode started")
	return true
}

// StopLive stops the live timer. A cycle already running completes.
func (c *Controller) StopLive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLiveLocked()
}

func (c *Controller) stopLiveLocked() {
	if c.liveStop == nil {
		return
	}
	close(c.liveStop)
	c.liveStop = nil
	c.logger.Info().Msg("Live mode stopped")
}

// ToggleLive flips live mode and returns the new state.
func (c *Controller) ToggleLive(ctx context.Context) bool {
	if c.LiveRunning() {
		c.StopLive()
		return false
	}
	c.StartLive(ctx)
	return c.LiveRunning()
}

// LiveRunning reports whether live mode is on.
func (c *Controller) LiveRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveStop != nil
}

func (c *Controller) liveLoop(ctx context.Context, stop chan struct{}) {
	defer c.loops.Done()
	ticker := time.NewTicker(c.liveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			c.mu.Lock()
			if c.liveStop == stop {
				c.liveStop = nil
			}
			c.mu.Unlock()
			return
		case <-ticker.C:
			c.tick(ctx, TriggerLive)
		}
	}
}

// StartAutoRefresh starts the auto-refresh timer and the countdown, resetting
// the countdown to the full interval.
func (c *Controller) StartAutoRefresh(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.autoStop != nil {
		return false
	}
	stop := make(chan struct{})
	c.autoStop = stop
	c.countdown = c.fullCountdown()
	c.loops.Add(2)
	go c.autoLoop(ctx, stop)
	go c.countdownLoop(ctx, stop)
	c.logger.Info().Dur("interval", c.autoInterval).Msg("Auto refresh started")
	return true
}

// StopAutoRefresh stops the auto-refresh and countdown timers.
func (c *Controller) StopAutoRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopAutoRefreshLocked()
}

func (c *Controller) stopAutoRefreshLocked() {
	if c.autoStop == nil {
		return
	}
	close(c.autoStop)
	c.autoStop = nil
	c.logger.Info().Msg("Auto refresh stopped")
}

// ToggleAutoRefresh flips auto-refresh mode and returns the new state.
func (c *Controller) ToggleAutoRefresh(ctx context.Context) bool {
	if c.AutoRefreshRunning() {
		c.StopAutoRefresh()
		return false
	}
	c.StartAutoRefresh(ctx)
	return c.AutoRefreshRunning()
}

// AutoRefreshRunning reports whether auto-refresh mode is on.
func (c *Controller) AutoRefreshRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoStop != nil
}

func (c *Controller) autoLoop(ctx context.Context, stop chan struct{}) {
	defer c.loops.Done()
	ticker := time.NewTicker(c.autoInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			c.mu.Lock()
			if c.autoStop == stop {
				c.autoStop = nil
			}
			c.mu.Unlock()
			return
		case <-ticker.C:
			if !c.tick(ctx, TriggerAutoRefresh) {
				continue
			}
			c.mu.Lock()
			c.lastRefresh = c.now()
			c.countdown = c.fullCountdown()
			c.mu.Unlock()
			c.notify(ctx, notify.InfoNotification("Auto Refresh Complete", "Option chain data has been refreshed."))
		}
	}
}

func (c *Controller) countdownLoop(ctx context.Context, stop chan struct{}) {
	defer c.loops.Done()
	ticker := time.NewTicker(c.countdownTick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.countdown = nextCountdown(c.countdown, c.fullCountdown())
			c.mu.Unlock()
		}
	}
}

// nextCountdown decrements the display counter, wrapping to full at <= 1.
func nextCountdown(cur, full int) int {
	if cur <= 1 {
		return full
	}
	return cur - 1
}

// tick runs a timer-driven cycle. It reports false only when the tick was
// skipped because another cycle was in flight; fetch failures are already
// notified by RunCycle.
func (c *Controller) tick(ctx context.Context, trigger Trigger) bool {
	_, err := c.RunCycle(ctx, trigger)
	if errors.Is(err, apperrors.ErrCycleInProgress) {
		c.logger.Debug().Str("trigger", string(trigger)).Msg("Cycle in flight, skipping tick")
		return false
	}
	return true
}
