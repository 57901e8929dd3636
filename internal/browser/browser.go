// Package browser opens URLs for the user.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"
	"sync"
)

// Opener opens a URL without waiting for the user
type Opener interface {
	Open(url string) error
}

// System opens URLs with the platform's default handler
type System struct{}

// Open starts the platform handler without waiting for it
func (System) Open(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	go cmd.Wait()
	return nil
}

// Printer writes the URL for the user to open manually
type Printer struct {
	Print func(url string)
}

func (p Printer) Open(url string) error {
	p.Print(url)
	return nil
}

// Recorder remembers opened URLs
type Recorder struct {
	mu   sync.Mutex
	urls []string
	Err  error
}

func (r *Recorder) Open(url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.urls = append(r.urls, url)
	return nil
}

// URLs returns the opened URLs in order
func (r *Recorder) URLs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.urls...)
}
