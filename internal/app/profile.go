package app

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// profiler appends per-section tick timings as CSV. A nil profiler is a
// no-op, which is what the app holds without -profile.
type profiler struct {
	mu     sync.Mutex
	file   *os.File
	w      *bufio.Writer
	logger *log.Logger
	start  time.Time
	last   time.Time
	frames int
}

func newProfiler(path string, logger *log.Logger) *profiler {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		if logger != nil {
			logger.Printf("profiler disabled: %v", err)
		}
		return nil
	}
	p := &profiler{
		file:   f,
		w:      bufio.NewWriter(f),
		logger: logger,
	}
	if info, err := f.Stat(); err == nil && info.Size() == 0 {
		fmt.Fprintln(p.w, "timestamp,frame,section,delta_ms")
	}
	return p
}

func (p *profiler) beginFrame() {
	if p == nil {
		return
	}
	now := time.Now()
	p.start = now
	p.last = now
	p.frames++
}

func (p *profiler) markSection(name string) {
	if p == nil {
		return
	}
	now := time.Now()
	delta := now.Sub(p.last)
	p.last = now
	p.record(name, delta)
}

func (p *profiler) endFrame() {
	if p == nil {
		return
	}
	p.record("frame_total", time.Since(p.start))
	// flush about once a second at 60fps
	if p.frames%60 == 0 {
		p.flush()
	}
}

func (p *profiler) Close() error {
	if p == nil {
		return nil
	}
	p.flush()
	return p.file.Close()
}

func (p *profiler) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.w.Flush(); err != nil && p.logger != nil {
		p.logger.Printf("profiler flush: %v", err)
	}
}

func (p *profiler) record(section string, delta time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	timestamp := time.Now().Format(time.RFC3339Nano)
	fmt.Fprintf(p.w, "%s,%d,%s,%.3f\n", timestamp, p.frames, section, float64(delta.Microseconds())/1000)
}
