package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/matheus3301/chatsync/internal/config"
	"github.com/matheus3301/chatsync/internal/instance"
	"github.com/matheus3301/chatsync/internal/lock"
	"github.com/matheus3301/chatsync/internal/logging"
	"github.com/matheus3301/chatsync/internal/syncer"
	"github.com/matheus3301/chatsync/internal/tui/client"
	"github.com/matheus3301/chatsync/internal/tui/views"
)

const timeout = 10 * time.Second

type app struct {
	core    *syncer.Client
	jsonOut bool
}

func main() {
	instanceFlag := flag.String("instance", "", "instance name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	name := instance.Resolve(*instanceFlag)
	if err := instance.ValidateName(name); err != nil {
		fatalf("%v", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadOrDefault(instance.ConfigPath())
	if err != nil {
		fatalf("config: %v", err)
	}
	logger, err := logging.New(instance.LogPath(name, "chatctl"), name, logging.Options{Level: cfg.Log.Level})
	if err != nil {
		fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// daemon reports on chatd itself, so it must work while chatd is down.
	if args[0] == "daemon" {
		daemonInfo(name, cfg, *jsonFlag)
		return
	}

	c, err := client.New(name, cfg, logger)
	if err != nil {
		fatalf("cannot connect to daemon for instance %q: %v", name, err)
	}
	defer func() { _ = c.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	err = c.Ping(pctx)
	cancel()
	if err != nil {
		fatalf("daemon for instance %q is not reachable at %s (is chatd running?): %v", name, c.Target, err)
	}

	a := &app{core: c.Core, jsonOut: *jsonFlag}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "signup":
		a.signup(ctx, rest)
	case "login":
		a.login(ctx, rest)
	case "logout":
		a.logout()
	case "whoami":
		a.whoami(ctx)
	case "profile":
		a.profile(ctx, rest)
	case "chats":
		a.chats(ctx)
	case "add":
		a.add(ctx, rest)
	case "send":
		a.send(ctx, rest)
	case "messages":
		a.messages(ctx, rest)
	case "status":
		a.status(ctx, rest)
	case "statuses":
		a.statuses(ctx, rest)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: chatctl [--instance <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  daemon                                      Show whether chatd is running")
	fmt.Fprintln(os.Stderr, "  signup <email> <password> <name> <number>   Create an account")
	fmt.Fprintln(os.Stderr, "  login <email> <password>                    Sign in")
	fmt.Fprintln(os.Stderr, "  logout                                      Sign out")
	fmt.Fprintln(os.Stderr, "  whoami                                      Show the signed-in profile")
	fmt.Fprintln(os.Stderr, "  profile set [--name] [--number] [--status] [--image <file>]")
	fmt.Fprintln(os.Stderr, "  profile qr                                  Show your number as a QR code")
	fmt.Fprintln(os.Stderr, "  chats                                       List chats")
	fmt.Fprintln(os.Stderr, "  add <number>                                Start a chat")
	fmt.Fprintln(os.Stderr, "  send <chat-id> <text...>                    Send a message")
	fmt.Fprintln(os.Stderr, "  messages <chat-id> [--follow]               Show a conversation")
	fmt.Fprintln(os.Stderr, "  status post <image-file>                    Post a status")
	fmt.Fprintln(os.Stderr, "  statuses [--author <user-id>]               List visible statuses")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func check(err error) {
	if err != nil {
		fatalf("%v", err)
	}
}

func usage(line string) {
	fmt.Fprintln(os.Stderr, "usage: chatctl "+line)
	os.Exit(1)
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

type daemonOut struct {
	Instance  string `json:"instance"`
	Target    string `json:"target"`
	Running   bool   `json:"running"`
	Reachable bool   `json:"reachable"`
	PID       int    `json:"pid,omitempty"`
	Started   string `json:"started,omitempty"`
}

func daemonInfo(name string, cfg *config.Config, jsonOut bool) {
	info, held, err := lock.Inspect(instance.Dir(name))
	check(err)
	out := daemonOut{
		Instance:  name,
		Target:    client.Target(name, cfg),
		Running:   held,
		Reachable: client.Probe(name, cfg) == nil,
	}
	if held {
		out.PID = info.PID
		out.Started = info.Started.Format(time.RFC3339)
	}
	if jsonOut {
		outputJSON(out)
		return
	}
	fmt.Printf("Instance:  %s\n", out.Instance)
	fmt.Printf("Target:    %s\n", out.Target)
	if held {
		fmt.Printf("Running:   yes (pid %d since %s)\n", out.PID, out.Started)
	} else {
		fmt.Println("Running:   no local daemon")
	}
	fmt.Printf("Reachable: %v\n", out.Reachable)
}

func (a *app) signup(ctx context.Context, args []string) {
	if len(args) != 4 {
		usage("signup <email> <password> <name> <number>")
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	check(a.core.SignUp(ctx, syncer.SignUpRequest{Email: args[0], Password: args[1], Name: args[2], Number: args[3]}))
	fmt.Printf("Signed up as %s\n", a.core.Session().UserID())
}

func (a *app) login(ctx context.Context, args []string) {
	if len(args) != 2 {
		usage("login <email> <password>")
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	check(a.core.SignIn(ctx, args[0], args[1]))
	fmt.Printf("Signed in as %s\n", a.core.Session().UserID())
}

func (a *app) logout() {
	check(a.core.SignOut())
	if msg, ok := a.core.Notifier().Consume(); ok {
		fmt.Println(msg)
	}
}

// self waits until the signed-in profile has been loaded.
func (a *app) self(ctx context.Context) syncer.UserProfile {
	if !a.core.Session().SignedIn() {
		fatalf("not signed in")
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	p, err := a.core.State().Profile.Wait(ctx, func(p *syncer.UserProfile) bool { return p != nil })
	if err != nil {
		fatalf("profile not available: %v", err)
	}
	return *p
}

func (a *app) whoami(ctx context.Context) {
	p := a.self(ctx)
	if a.jsonOut {
		outputJSON(p)
		return
	}
	fmt.Printf("User:   %s\n", p.UserID)
	fmt.Printf("Name:   %s\n", p.Name)
	fmt.Printf("Number: %s\n", p.Number)
	if p.Status != "" {
		fmt.Printf("Status: %s\n", p.Status)
	}
	if p.ImageURL != "" {
		fmt.Printf("Image:  %s\n", p.ImageURL)
	}
}

func (a *app) profile(ctx context.Context, args []string) {
	if len(args) == 0 {
		usage("profile <set|qr>")
	}
	switch args[0] {
	case "set":
		fs := flag.NewFlagSet("profile set", flag.ExitOnError)
		name := fs.String("name", "", "display name")
		number := fs.String("number", "", "phone number")
		status := fs.String("status", "", "status line")
		image := fs.String("image", "", "profile picture file")
		_ = fs.Parse(args[1:])

		a.self(ctx)
		ctx, cancel := withTimeout(ctx)
		defer cancel()
		if *name != "" || *number != "" || *status != "" {
			check(a.core.UpdateProfile(ctx, syncer.ProfileUpdate{Name: *name, Number: *number, Status: *status}))
		}
		if *image != "" {
			data, err := os.ReadFile(*image)
			check(err)
			check(a.core.UploadProfileImage(ctx, data))
		}
		fmt.Println("Profile updated")
	case "qr":
		p := a.self(ctx)
		fmt.Printf("\n%s\n  %s (%s)\n", views.RenderQR(p.Number), p.Name, p.Number)
	default:
		fmt.Fprintf(os.Stderr, "unknown profile subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

// settled waits for an area's first load to finish.
func settled(ctx context.Context, loading *syncer.Value[bool]) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	if _, err := loading.Settle(ctx, func(b bool) bool { return !b }); err != nil {
		fatalf("timed out loading: %v", err)
	}
}

type chatOut struct {
	ChatID  string `json:"chatId"`
	Partner string `json:"partner"`
	Number  string `json:"number"`
}

func (a *app) chats(ctx context.Context) {
	self := a.self(ctx)
	settled(ctx, a.core.State().ChatsLoading)

	chats := a.core.State().Chats.Get()
	out := make([]chatOut, 0, len(chats))
	for _, ch := range chats {
		p := ch.Partner(self.UserID)
		out = append(out, chatOut{ChatID: ch.ChatID, Partner: p.Name, Number: p.Number})
	}
	if a.jsonOut {
		outputJSON(out)
		return
	}
	if len(out) == 0 {
		fmt.Println("No chats yet.")
		return
	}
	for _, ch := range out {
		fmt.Printf("%-28s %-20s %s\n", ch.ChatID, ch.Partner, ch.Number)
	}
}

func (a *app) add(ctx context.Context, args []string) {
	if len(args) != 1 {
		usage("add <number>")
	}
	a.self(ctx)
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	ch, err := a.core.AddChat(ctx, args[0])
	check(err)
	if a.jsonOut {
		outputJSON(ch)
		return
	}
	fmt.Printf("Chat %s created with %s\n", ch.ChatID, ch.User2.Name)
}

func (a *app) send(ctx context.Context, args []string) {
	if len(args) < 2 {
		usage("send <chat-id> <text...>")
	}
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	check(a.core.SendMessage(ctx, args[0], strings.Join(args[1:], " ")))
}

type messageOut struct {
	ID        string `json:"id"`
	SentBy    string `json:"sentBy"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

func (a *app) printMessages(self string, msgs []syncer.Message) {
	for _, m := range msgs {
		if a.jsonOut {
			outputJSON(messageOut{ID: m.ID, SentBy: m.SentBy, Message: m.Body, Timestamp: m.Timestamp})
			continue
		}
		who := "them"
		if m.SentBy == self {
			who = "me"
		}
		ts := time.UnixMilli(m.Timestamp).Format("2006-01-02 15:04")
		fmt.Printf("[%s] %-4s %s\n", ts, who, m.Body)
	}
}

func (a *app) messages(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("messages", flag.ExitOnError)
	follow := fs.Bool("follow", false, "keep printing new messages")
	if len(args) == 0 {
		usage("messages <chat-id> [--follow]")
	}
	chatID := args[0]
	_ = fs.Parse(args[1:])

	self := a.self(ctx).UserID
	check(a.core.AttachChat(chatID))
	settled(ctx, a.core.State().MessagesLoading)

	state := a.core.State().Messages
	msgs := state.Get()
	a.printMessages(self, msgs)
	if !*follow {
		return
	}

	// Snapshots always carry the whole conversation; print what is new.
	seen := make(map[string]bool, len(msgs))
	for _, m := range msgs {
		seen[m.ID] = true
	}
	for {
		changed := state.Changed()
		var fresh []syncer.Message
		for _, m := range state.Get() {
			if !seen[m.ID] {
				seen[m.ID] = true
				fresh = append(fresh, m)
			}
		}
		a.printMessages(self, fresh)
		select {
		case <-changed:
		case <-ctx.Done():
			return
		}
	}
}

func (a *app) status(ctx context.Context, args []string) {
	if len(args) != 2 || args[0] != "post" {
		usage("status post <image-file>")
	}
	data, err := os.ReadFile(args[1])
	check(err)
	a.self(ctx)
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	st, err := a.core.UploadStatusImage(ctx, data)
	check(err)
	fmt.Printf("Status posted: %s\n", st.ImageURL)
}

type statusOut struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	ImageURL  string `json:"imageUrl"`
	Timestamp int64  `json:"timestamp"`
}

func (a *app) statuses(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("statuses", flag.ExitOnError)
	author := fs.String("author", "", "only statuses by this user id")
	_ = fs.Parse(args)

	a.self(ctx)
	settled(ctx, a.core.State().StatusesLoading)

	feed := a.core.State().Statuses.Get()
	list := feed.All
	if *author != "" {
		list = feed.ByAuthor(*author)
	}
	out := make([]statusOut, 0, len(list))
	for _, s := range list {
		out = append(out, statusOut{ID: s.ID, UserID: s.User.UserID, Name: s.User.Name, ImageURL: s.ImageURL, Timestamp: s.Timestamp})
	}
	if a.jsonOut {
		outputJSON(out)
		return
	}
	if len(out) == 0 {
		fmt.Println("No statuses.")
		return
	}
	for _, s := range out {
		ts := time.UnixMilli(s.Timestamp).Format("15:04")
		fmt.Printf("%s  %-20s %s\n", ts, s.Name, s.ImageURL)
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
