package ui

import (
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/iavido/iavido-agent/internal/generation"
	"github.com/iavido/iavido-agent/internal/presenter"
)

// Tray is a presenter.Surface drawn as a system tray menu. Sections applied
// before the menu exists are kept and drawn once it is ready.
type Tray struct {
	presenter.MemorySurface

	logger *slog.Logger

	statusItem   *systray.MenuItem
	scriptItem   *systray.MenuItem
	sceneItems   []*systray.MenuItem
	openItem     *systray.MenuItem
	downloadItem *systray.MenuItem
	resetItem    *systray.MenuItem

	mu    sync.Mutex
	ready bool

	openURL    func(url string) error
	onDownload func() (string, error)
	onReset    func() error
	onQuit     func()
}

type TrayConfig struct {
	Logger     *slog.Logger
	OpenURL    func(url string) error
	OnDownload func() (string, error)
	OnReset    func() error
	OnQuit     func()
}

func NewTray(cfg TrayConfig) *Tray {
	openURL := cfg.OpenURL
	if openURL == nil {
		openURL = OpenURL
	}
	return &Tray{
		logger:     cfg.Logger,
		openURL:    openURL,
		onDownload: cfg.OnDownload,
		onReset:    cfg.OnReset,
		onQuit:     cfg.OnQuit,
	}
}

// Run blocks until Quit. It must be called from the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("iavido")
	systray.SetTooltip("iavido video generator")

	t.mu.Lock()

	t.statusItem = systray.AddMenuItem("Idle", "Current generation status")
	t.statusItem.Disable()

	t.scriptItem = systray.AddMenuItem("", "Generated script")
	t.scriptItem.Hide()
	t.growSceneItems(generation.MaxScenes)

	systray.AddSeparator()

	t.openItem = systray.AddMenuItem("Open video", "Open the finished video in the browser")
	t.downloadItem = systray.AddMenuItem("Download video", "Save the finished video")
	t.resetItem = systray.AddMenuItem("New video", "Clear the last result")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit iavido")

	t.ready = true
	t.draw(t.MemorySurface.View())
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-t.openItem.ClickedCh:
				t.handleOpen()
			case <-t.downloadItem.ClickedCh:
				t.handleDownload()
			case <-t.resetItem.ClickedCh:
				t.handleReset()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

// SetSubmitEnabled is the last section Apply sets, so the menu is redrawn
// here from the full view.
func (t *Tray) SetSubmitEnabled(enabled bool) {
	t.MemorySurface.SetSubmitEnabled(enabled)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ready {
		t.draw(t.MemorySurface.View())
	}
}

func (t *Tray) draw(v presenter.View) {
	t.statusItem.SetTitle(truncateLabel(StatusLabel(v)))
	systray.SetTooltip("iavido: " + StatusLabel(v))

	if label := ScriptLabel(v.Script); label != "" {
		t.scriptItem.SetTitle(truncateLabel(label))
		t.scriptItem.Show()
	} else {
		t.scriptItem.Hide()
	}
	labels := SceneLabels(v.Script)
	t.growSceneItems(len(labels))
	for i, item := range t.sceneItems {
		if i < len(labels) {
			item.SetTitle(labels[i])
			item.SetTooltip(v.Script.Scenes[i].VisualPrompt)
			item.Show()
		} else {
			item.Hide()
		}
	}

	setEnabled(t.openItem, v.Result.Visible)
	setEnabled(t.downloadItem, v.Result.Visible)
	setEnabled(t.resetItem, v.Result.Visible || v.Error.Visible)
}

// growSceneItems adds hidden sub-items until there are at least n.
// Callers hold t.mu.
func (t *Tray) growSceneItems(n int) {
	for len(t.sceneItems) < n {
		item := t.scriptItem.AddSubMenuItem("", "")
		item.Disable()
		item.Hide()
		t.sceneItems = append(t.sceneItems, item)
	}
}

func setEnabled(item *systray.MenuItem, enabled bool) {
	if enabled {
		item.Enable()
	} else {
		item.Disable()
	}
}

func (t *Tray) handleOpen() {
	url := t.MemorySurface.View().Result.VideoURL
	if url == "" {
		return
	}
	if err := t.openURL(url); err != nil {
		t.logger.Error("failed to open video", "error", err)
	}
}

func (t *Tray) handleDownload() {
	if t.onDownload == nil {
		return
	}
	path, err := t.onDownload()
	if err != nil {
		t.logger.Error("failed to download video", "error", err)
		return
	}
	t.logger.Info("video downloaded", "path", path)
}

func (t *Tray) handleReset() {
	if t.onReset == nil {
		return
	}
	if err := t.onReset(); err != nil {
		t.logger.Warn("reset refused", "error", err)
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}
