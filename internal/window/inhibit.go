package window

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/bryanchriswhite/CamLayer/internal/logger"
)

const (
	screensaverService = "org.freedesktop.ScreenSaver"
	screensaverPath    = "/org/freedesktop/ScreenSaver"
)

// Inhibitor keeps the desktop from blanking or locking while the camera
// is live, via the org.freedesktop.ScreenSaver D-Bus service. Missing
// service (headless session, non-freedesktop DE) is not an error: the
// inhibitor just does nothing.
type Inhibitor struct {
	conn   *dbus.Conn
	cookie uint32
	active bool
}

// NewInhibitor connects to the session bus. Returns an inert inhibitor
// if no session bus is available.
func NewInhibitor() *Inhibitor {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		logger.WithComponent("inhibit").Debug().
			Err(err).
			Msg("No session bus, screensaver inhibition disabled")
		return &Inhibitor{}
	}
	return &Inhibitor{conn: conn}
}

// Inhibit requests screensaver suppression. Idempotent while active.
func (i *Inhibitor) Inhibit(appName, reason string) error {
	if i.conn == nil || i.active {
		return nil
	}

	obj := i.conn.Object(screensaverService, dbus.ObjectPath(screensaverPath))
	call := obj.Call(screensaverService+".Inhibit", 0, appName, reason)
	if call.Err != nil {
		return fmt.Errorf("screensaver inhibit failed: %w", call.Err)
	}
	if err := call.Store(&i.cookie); err != nil {
		return fmt.Errorf("screensaver inhibit returned no cookie: %w", err)
	}

	i.active = true
	logger.WithComponent("inhibit").Debug().
		Uint32("cookie", i.cookie).
		Msg("Screensaver inhibited")
	return nil
}

// Release undoes a previous Inhibit and closes the bus connection.
func (i *Inhibitor) Release() {
	if i.conn == nil {
		return
	}
	if i.active {
		obj := i.conn.Object(screensaverService, dbus.ObjectPath(screensaverPath))
		if call := obj.Call(screensaverService+".UnInhibit", 0, i.cookie); call.Err != nil {
			logger.WithComponent("inhibit").Warn().
				Err(call.Err).
				Msg("Failed to release screensaver inhibition")
		}
		i.active = false
	}
	i.conn.Close()
	i.conn = nil
}
