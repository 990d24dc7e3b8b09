// Package dbus connects telnotifyd to the desktop and the modem stack.
// Notifier renders indicators and banners through the
// org.freedesktop.Notifications interface, OfonoSource listens to oFono on
// the system bus, and InjectServer exports a control interface on the
// session bus for injecting events and toggling quiet mode.
package dbus
