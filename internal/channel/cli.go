package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tripbot/internal/audio"
	"tripbot/internal/domain"
)

// CLI is an interactive terminal session shell. Bot replies are printed with
// their view tag so the routing decision is visible; audio replies are written
// as WAV files under AudioDir.
type CLI struct {
	bus      domain.MessageBus
	logger   *slog.Logger
	in       io.Reader
	out      io.Writer
	chatID   string
	audioDir string

	thinking  bool
	thinkMu   sync.Mutex
	thinkStop chan struct{}
}

type CLIConfig struct {
	Logger   *slog.Logger
	In       io.Reader
	Out      io.Writer
	ChatID   string // session identifier, defaults to "direct"
	AudioDir string // where WAV replies are written
}

func NewCLI(cfg CLIConfig) *CLI {
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.ChatID == "" {
		cfg.ChatID = "direct"
	}
	return &CLI{
		logger:   cfg.Logger,
		in:       cfg.In,
		out:      cfg.Out,
		chatID:   cfg.ChatID,
		audioDir: cfg.AudioDir,
	}
}

func (c *CLI) Name() string { return "cli" }

// Start runs the interactive REPL and blocks until context is cancelled.
func (c *CLI) Start(ctx context.Context, bus domain.MessageBus) error {
	c.bus = bus

	bus.OnOutbound("cli", func(msg domain.OutboundMessage) {
		c.stopThinking()
		_, _ = fmt.Fprint(c.out, "\r\033[K") // Clear spinner line

		if len(msg.Audio) > 0 {
			c.writeAudio(msg.Audio)
		}
		if msg.Content != "" {
			header := "--- Assistant"
			if msg.View != "" {
				header += fmt.Sprintf(" [%s]", msg.View)
			}
			header += " ---"
			_, _ = fmt.Fprintln(c.out, header)
			_, _ = fmt.Fprintln(c.out, msg.Content)
			_, _ = fmt.Fprintln(c.out, strings.Repeat("-", len(header)))
		}
		_, _ = fmt.Fprint(c.out, "You> ")
	})

	_, _ = fmt.Fprintln(c.out, "Travel assistant CLI. Type your message and press Enter. Type /quit to exit.")
	_, _ = fmt.Fprint(c.out, "You> ")

	scanner := bufio.NewScanner(c.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return nil // EOF
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			_, _ = fmt.Fprint(c.out, "You> ")
			continue
		}
		if line == "/quit" || line == "/exit" || line == "/q" {
			c.logger.Info("user requested quit")
			return nil
		}

		c.startThinking()
		c.bus.Publish(domain.InboundMessage{
			Channel:  "cli",
			ChatID:   c.chatID,
			SenderID: "user",
			Content:  line,
		})
	}
}

// writeAudio drops the WAV reply into the audio directory and prints its path.
func (c *CLI) writeAudio(wav []byte) {
	dir := c.audioDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.logger.Error("cannot create audio directory", "dir", dir, "err", err)
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("reply-%d.wav", time.Now().UnixMilli()))
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		c.logger.Error("cannot write audio reply", "path", path, "err", err)
		return
	}
	_, _ = fmt.Fprintf(c.out, "🔊 Audio reply (%.1fs): %s\n", audio.Duration(wav), path)
}

func (c *CLI) startThinking() {
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if c.thinking {
		return
	}
	c.thinking = true
	c.thinkStop = make(chan struct{})
	go func() {
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		i := 0
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-c.thinkStop:
				return
			case <-ticker.C:
				fmt.Fprintf(c.out, "\r%s Thinking...", frames[i%len(frames)])
				i++
			}
		}
	}()
}

func (c *CLI) stopThinking() {
	c.thinkMu.Lock()
	defer c.thinkMu.Unlock()
	if !c.thinking {
		return
	}
	c.thinking = false
	close(c.thinkStop)
}

// Stop is a no-op for CLI (we exit when Start returns).
func (c *CLI) Stop() error { return nil }
