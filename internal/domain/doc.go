// Package domain holds the request model, the renderer port and the sentinel
// errors of the conversion service. It stays free of HTTP and browser concerns.
package domain
