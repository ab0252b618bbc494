package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/relaydl/relaydl/internal/dlcore"
	"github.com/relaydl/relaydl/internal/utils"
	"golang.org/x/term"
)

// itemDisplay is one row's rendering state, keyed by DownloadItem.ID and
// refreshed every tick from a dlcore.Snapshot. It plays the role the
// teacher's FunctionOutput played for arbitrary shell-out jobs, narrowed to
// what a download actually reports: bytes, status, one error.
type itemDisplay struct {
	id          string
	label       string
	status      dlcore.ItemStatus
	downloaded  int64
	total       int64
	err         error
	startTime   time.Time
	lastUpdated time.Time
	complete    bool
}

// Manager renders a live, redrawing view of a batch download's progress,
// grounded on the teacher's internal/output.Manager redraw loop
// (cursor-up-and-clear, tick-driven, pausable), adapted from one row per
// arbitrary shelled-out function to one row per DownloadItem.
type Manager struct {
	mutex       sync.RWMutex
	items       map[string]*itemDisplay
	order       []string
	numLines    int
	doneCh      chan struct{}
	pauseCh     chan bool
	isPaused    bool
	displayTick time.Duration
	displayWg   sync.WaitGroup
}

// NewManager builds a Manager with a row pre-registered for every item,
// labeled by destination basename so the display is meaningful before the
// first snapshot ever arrives.
func NewManager(items []dlcore.DownloadItem) *Manager {
	m := &Manager{
		items:       make(map[string]*itemDisplay, len(items)),
		doneCh:      make(chan struct{}),
		pauseCh:     make(chan bool),
		displayTick: 300 * time.Millisecond,
	}
	for _, item := range items {
		m.items[item.ID] = &itemDisplay{
			id:        item.ID,
			label:     filepath.Base(item.Destination),
			status:    dlcore.StatusPending,
			total:     -1,
			startTime: time.Now(),
		}
		m.order = append(m.order, item.ID)
	}
	return m
}

func (m *Manager) Pause() {
	if !m.isPaused {
		m.pauseCh <- true
		m.isPaused = true
	}
}

func (m *Manager) Resume() {
	if m.isPaused {
		m.pauseCh <- false
		m.isPaused = false
	}
}

// Apply folds a fresh dlcore.Snapshot into the display rows. Called from
// the redraw loop's ticker, not from download goroutines directly, so
// Scheduler.Snapshot()'s own locking is the only synchronization the hot
// path pays for.
func (m *Manager) Apply(snap dlcore.Snapshot) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, row := range snap.Items {
		info, ok := m.items[row.ID]
		if !ok {
			continue
		}
		info.status = row.Status
		info.downloaded = row.Downloaded
		info.total = row.TotalSize
		info.err = row.Err
		info.lastUpdated = time.Now()
		if row.Status == dlcore.StatusCompleted || row.Status == dlcore.StatusFailed || row.Status == dlcore.StatusCancelled {
			info.complete = true
		}
	}
}

func (m *Manager) statusIndicator(status dlcore.ItemStatus) string {
	switch status {
	case dlcore.StatusCompleted:
		return successStyle.Render(StyleSymbols["pass"])
	case dlcore.StatusFailed:
		return errorStyle.Render(StyleSymbols["fail"])
	case dlcore.StatusCancelled:
		return warningStyle.Render(StyleSymbols["warning"])
	case dlcore.StatusPending:
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["bullet"])
	}
}

func (m *Manager) sortedRows() (active, pending, completed []*itemDisplay) {
	for _, id := range m.order {
		info := m.items[id]
		switch {
		case info.complete:
			completed = append(completed, info)
		case info.status == dlcore.StatusPending:
			pending = append(pending, info)
		default:
			active = append(active, info)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].id < active[j].id })
	sort.Slice(pending, func(i, j int) bool { return pending[i].id < pending[j].id })
	sort.Slice(completed, func(i, j int) bool { return completed[i].id < completed[j].id })
	return active, pending, completed
}

func (m *Manager) renderRow(info *itemDisplay, width int) string {
	indicator := m.statusIndicator(info.status)
	elapsed := time.Since(info.startTime).Round(time.Second)
	if info.complete {
		elapsed = info.lastUpdated.Sub(info.startTime).Round(time.Second)
	}

	var detail string
	switch {
	case info.status == dlcore.StatusFailed && info.err != nil:
		detail = errorStyle.Render(info.err.Error())
	case info.total > 0:
		bar := PrintProgressBar(info.downloaded, info.total, min(width-40, 30))
		speed := utils.FormatSpeed(info.downloaded, elapsed.Seconds())
		detail = fmt.Sprintf("%s%s %s %s", bar, debugStyle.Render(utils.FormatBytes(uint64(info.downloaded))), StyleSymbols["bullet"], debugStyle.Render(speed))
	default:
		detail = debugStyle.Render(utils.FormatBytes(uint64(info.downloaded)))
	}

	return fmt.Sprintf("%s%s %s %s %s", strings.Repeat(" ", 2), indicator, debugStyle.Render(elapsed.String()), info.label, detail)
}

func (m *Manager) updateDisplay() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	width := getTerminalWidth()
	_, termHeight, _ := term.GetSize(int(os.Stdout.Fd()))
	if termHeight <= 0 {
		termHeight = 24
	}
	availableLines := termHeight - 3

	if m.numLines > 0 {
		fmt.Printf("\033[%dA\033[J", m.numLines)
	}

	active, pending, completed := m.sortedRows()
	lineCount := 0

	for _, info := range active {
		if lineCount >= availableLines {
			break
		}
		fmt.Println(m.renderRow(info, width))
		lineCount++
	}
	for _, info := range pending {
		if lineCount >= availableLines {
			break
		}
		fmt.Printf("%s%s %s\n", strings.Repeat(" ", 2), m.statusIndicator(info.status), pendingStyle.Render(info.label+" waiting..."))
		lineCount++
	}
	if len(completed) > 10 && lineCount < availableLines {
		fmt.Println(infoStyle.Render(fmt.Sprintf("  %d files completed ...", len(completed)-8)))
		completed = completed[len(completed)-8:]
		lineCount++
	}
	for _, info := range completed {
		if lineCount >= availableLines {
			break
		}
		fmt.Println(m.renderRow(info, width))
		lineCount++
	}
	m.numLines = lineCount
}

// StartDisplay runs the redraw loop, pulling a fresh snapshot from poll on
// every tick until StopDisplay is called. poll is expected to be
// Scheduler.Snapshot.
func (m *Manager) StartDisplay(poll func() dlcore.Snapshot) {
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if !m.isPaused {
					m.Apply(poll())
					m.updateDisplay()
				}
			case pauseState := <-m.pauseCh:
				m.isPaused = pauseState
			case <-m.doneCh:
				m.Apply(poll())
				m.updateDisplay()
				m.ShowSummary()
				return
			}
		}
	}()
}

func (m *Manager) StopDisplay() {
	close(m.doneCh)
	m.displayWg.Wait()
}

// ShowSummary prints the terminal totals, matching the teacher's
// ShowSummary call at the end of a batch run.
func (m *Manager) ShowSummary() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	fmt.Println()
	var success, failed int
	for _, info := range m.items {
		switch info.status {
		case dlcore.StatusCompleted:
			success++
		case dlcore.StatusFailed:
			failed++
		}
	}
	fmt.Println(strings.Repeat(" ", 2) + success2Style.Render(fmt.Sprintf("Completed %d of %d", success, len(m.items))))
	if failed > 0 {
		fmt.Println(strings.Repeat(" ", 2) + errorStyle.Render(fmt.Sprintf("Failed %d of %d", failed, len(m.items))))
		for _, id := range m.order {
			info := m.items[id]
			if info.status == dlcore.StatusFailed && info.err != nil {
				fmt.Printf("%s%s %s\n", strings.Repeat(" ", 4), errorStyle.Render(info.label+":"), errorStyle.Render(info.err.Error()))
			}
		}
	}
	fmt.Println()
}
