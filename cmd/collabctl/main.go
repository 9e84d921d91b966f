// Command collabctl joins a document session from the terminal, prints
// presence and edit traffic, and can create an object to exercise the
// relay.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/devvo333/Event-Venue-Generator-sub002/internal/client"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/object"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/presence"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/protocol"
	"github.com/devvo333/Event-Venue-Generator-sub002/internal/relay"
)

func main() {
	var (
		url      string
		doc      string
		userID   string
		name     string
		avatar   string
		create   string
		duration time.Duration
	)
	pflag.StringVar(&url, "url", "ws://localhost:8080/ws", "coordinator WebSocket URL")
	pflag.StringVar(&doc, "doc", "", "document id to join")
	pflag.StringVar(&userID, "user", "", "user id to assert")
	pflag.StringVar(&name, "name", "", "display name")
	pflag.StringVar(&avatar, "avatar", "", "avatar URL")
	pflag.StringVar(&create, "create", "", "create an object with this id after joining")
	pflag.DurationVar(&duration, "duration", 0, "leave after this long (0 waits for a signal)")
	pflag.Parse()

	if doc == "" || userID == "" || name == "" {
		fmt.Fprintln(os.Stderr, "usage: collabctl --doc ID --user ID --name NAME [--create OBJECT_ID]")
		pflag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(url, doc, protocol.Profile{ID: userID, DisplayName: name, AvatarURL: avatar}, create, duration); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(url, doc string, identity protocol.Profile, create string, duration time.Duration) error {
	opts := client.DefaultOptions(url)
	opts.Identity = &identity
	agent := client.New(opts)
	defer agent.Close()

	r := relay.New(nil, agent)
	r.Attach(agent)
	r.OnApplied(func(e protocol.EditEvent, origin relay.Origin) {
		fmt.Printf("%s %s edit, %d objects\n", origin, e.Kind, r.Document().Len())
	})

	view := presence.New(presence.Options{})
	view.Attach(agent)
	view.OnChange(func() {
		users := view.Participants()
		names := make([]string, len(users))
		for i, u := range users {
			names[i] = u.DisplayName
		}
		fmt.Printf("connected=%t participants=%v cursors=%d\n", view.Connected(), names, len(view.Cursors()))
		for _, t := range view.Toasts() {
			fmt.Printf("  * %s\n", t.Text)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	if err := agent.Connect(ctx); err != nil {
		return err
	}
	if err := agent.JoinSession(doc); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if create != "" {
		g.Go(func() error {
			return r.Create(object.Visual{ID: create, Type: "table", Transform: object.Transform{X: 10, Y: 20}})
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		return agent.LeaveSession()
	})
	return g.Wait()
}
