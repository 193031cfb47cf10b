// Package notify abstracts the reminder notification boundary. The
// browser version used the Notification API; here the desktop backend is
// beeep, which has no permission prompt, so permission reduces to whether
// a working notifier was constructed and enabled.
package notify

import "github.com/gen2brain/beeep"

// Permission mirrors the browser notification permission states.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Notifier shows the pre-reset reminder. Implementations must be safe to
// call from timer goroutines.
type Notifier interface {
	Permission() Permission
	Show(title, body string) error
}

// Desktop sends OS-level notifications via beeep.
type Desktop struct {
	// IconPath is optional; empty means no icon.
	IconPath string
}

// Permission implements Notifier. beeep needs no grant, so a constructed
// Desktop notifier is always granted.
func (d *Desktop) Permission() Permission {
	return PermissionGranted
}

// Show implements Notifier.
func (d *Desktop) Show(title, body string) error {
	return beeep.Notify(title, body, d.IconPath)
}

// Disabled is the notifier used when reminders are unavailable or turned
// off; it never shows anything.
type Disabled struct{}

// Permission implements Notifier.
func (Disabled) Permission() Permission { return PermissionDenied }

// Show implements Notifier.
func (Disabled) Show(string, string) error { return nil }
