package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/matheus3301/chatsync/internal/syncer"
	"go.uber.org/zap"
)

// commandNames are offered as prompt completions.
var commandNames = []string{
	"about", "add", "avatar", "chat", "chats", "help", "logout",
	"name", "profile", "quit", "refresh", "status", "statuses",
}

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

// runCommand executes cmd. It runs on the UI goroutine; anything that
// talks to the daemon moves to a goroutine and reports through the flash
// bar.
func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "q", "quit":
		a.Stop()
	case "h", "help":
		a.push(pageHelp)
	case "chats":
		a.showRoot()
	case "statuses":
		a.push(pageStatuses)
	case "profile":
		a.push(pageProfile)
	case "refresh":
		a.vm.RefreshStatuses()
		a.vm.Flash.Info("Statuses refreshed")
	case "logout":
		a.async("logout", func() error { return a.vm.SignOut() })
	case "add":
		number := cmd.Args
		a.async("add chat", func() error {
			chat, err := a.vm.AddChat(a.ctx, number)
			if err != nil {
				return err
			}
			a.app.QueueUpdateDraw(func() { a.openChat(chat.ChatID) })
			return nil
		})
	case "chat":
		if id := a.findChat(cmd.Args); id != "" {
			a.openChat(id)
		} else {
			a.vm.Flash.Warn(fmt.Sprintf("No chat matches %q", cmd.Args))
		}
	case "name":
		upd := syncer.ProfileUpdate{Name: cmd.Args}
		a.async("update name", func() error { return a.vm.UpdateProfile(a.ctx, upd) })
	case "about":
		upd := syncer.ProfileUpdate{Status: cmd.Args}
		a.async("update status line", func() error { return a.vm.UpdateProfile(a.ctx, upd) })
	case "avatar":
		path := cmd.Args
		a.async("upload picture", func() error {
			data, err := readImage(path)
			if err != nil {
				a.vm.Flash.Warn(err.Error())
				return err
			}
			return a.vm.UploadProfileImage(a.ctx, data)
		})
	case "status":
		path := cmd.Args
		a.async("post status", func() error {
			data, err := readImage(path)
			if err != nil {
				a.vm.Flash.Warn(err.Error())
				return err
			}
			if err := a.vm.PostStatus(a.ctx, data); err != nil {
				return err
			}
			a.vm.Flash.Info("Status posted")
			return nil
		})
	default:
		a.vm.Flash.Warn(fmt.Sprintf("Unknown command: %s", cmd.Name))
	}
}

// async runs fn off the UI goroutine. Core failures already reach the
// flash bar through the notifier, so fn errors are only logged.
func (a *App) async(what string, fn func() error) {
	go func() {
		if err := fn(); err != nil {
			a.logger.Debug(what+" failed", zap.Error(err))
		}
	}()
}

// findChat returns the first chat whose partner name or number contains
// query.
func (a *App) findChat(query string) string {
	if query == "" {
		return ""
	}
	q := strings.ToLower(query)
	uid := a.vm.UserID()
	for _, c := range a.vm.Chats() {
		p := c.Partner(uid)
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(p.Number, query) {
			return c.ChatID
		}
	}
	return ""
}

func readImage(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("no image file given")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
