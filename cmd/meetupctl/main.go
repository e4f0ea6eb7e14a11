package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"

	"tripmeet-backend/internal/channelsync"
	"tripmeet-backend/internal/client"
	"tripmeet-backend/internal/domain"
	"tripmeet-backend/internal/logger"
)

const MeetupCtlVersion = "0.1.0"

const usage = `TripMeet control.

The token defaults to $TRIPMEET_TOKEN.

Usage:
    meetupctl tail (--community | --meetup=<id>) [--trust-payloads] [--api=<api_url>] [--token=<token>]
    meetupctl send (--community | --meetup=<id>) [--api=<api_url>] [--token=<token>] <text>
    meetupctl notifications [--follow] [--api=<api_url>] [--token=<token>]
    meetupctl -h | --help
    meetupctl --version

Options:
    -h --help          Show this screen.
    --version          Show version.
    --api=<api_url>    API base url [default: http://localhost:8080].
    --token=<token>    Access token issued by the auth provider.
    --community        Use the community channel.
    --meetup=<id>      Use the channel of this meetup.
    --follow           Keep printing notifications as they arrive.
    --trust-payloads   Apply message rows carried by events without reading them back.`

var (
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ltime)
)

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], MeetupCtlVersion)
	if err != nil {
		Err.Fatal(err)
	}
	logger.Initialize("warn", "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if tail_, _ := opts.Bool("tail"); tail_ {
		err = tail(ctx, opts)
	} else if send_, _ := opts.Bool("send"); send_ {
		err = send(ctx, opts)
	} else if notifications_, _ := opts.Bool("notifications"); notifications_ {
		err = notifications(ctx, opts)
	}
	if err != nil {
		Err.Fatal(err)
	}
}

func apiClient(opts docopt.Opts) (*client.APIClient, error) {
	apiURL, _ := opts.String("--api")
	token, _ := opts.String("--token")
	if token == "" {
		token = os.Getenv("TRIPMEET_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("no token: pass --token or set TRIPMEET_TOKEN")
	}
	return client.NewAPIClient(apiURL, token), nil
}

func channelKey(opts docopt.Opts) domain.ChannelKey {
	if meetupID, err := opts.String("--meetup"); err == nil && meetupID != "" {
		return domain.MeetupChannel(meetupID)
	}
	return domain.CommunityChannel
}

// openChannel connects the feed and opens key, waiting for the first load.
func openChannel(ctx context.Context, opts docopt.Opts) (*channelsync.Channel, func(), error) {
	api, err := apiClient(opts)
	if err != nil {
		return nil, nil, err
	}
	me, err := api.MyProfile(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load profile: %w", err)
	}

	feed := client.NewFeed(api.RealtimeURL(), api.Token(), client.DefaultFeedSettings())
	managerOpts := []channelsync.Option{
		channelsync.WithUser(me.ID),
		channelsync.WithErrorHandler(func(message string) { Err.Println(message) }),
	}
	if trust, _ := opts.Bool("--trust-payloads"); trust {
		managerOpts = append(managerOpts, channelsync.WithTrustedPayloads())
	}
	manager := channelsync.NewManager(api, feed, managerOpts...)
	ch, err := manager.OpenChannel(ctx, channelKey(opts))
	if err != nil {
		feed.Close()
		return nil, nil, err
	}
	cleanup := func() {
		ch.Close()
		feed.Close()
	}

	for ch.State() != channelsync.StateReady {
		select {
		case <-ctx.Done():
			cleanup()
			return nil, nil, ctx.Err()
		case <-ch.Updates():
		}
	}
	return ch, cleanup, nil
}

func printMessage(m domain.Message) {
	name := m.AuthorName
	if name == "" {
		name = m.AuthorID
	}
	pin := ""
	if m.IsPinned {
		pin = " [pinned]"
	}
	switch m.Type {
	case domain.MessageTypeImage, domain.MessageTypeFile:
		Out.Printf("%s %s%s: [%s] %s %s", m.CreatedAt.Local().Format("Jan 02 15:04"), name, pin, m.Type, m.Content, m.FileURL)
	default:
		Out.Printf("%s %s%s: %s", m.CreatedAt.Local().Format("Jan 02 15:04"), name, pin, m.Content)
	}
}

func tail(ctx context.Context, opts docopt.Opts) error {
	ch, cleanup, err := openChannel(ctx, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	seen := make(map[string]bool)
	for {
		for _, m := range ch.Messages() {
			if !m.Provisional && !seen[m.ID] {
				seen[m.ID] = true
				printMessage(m)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ch.Done():
			return nil
		case <-ch.Updates():
		}
	}
}

func send(ctx context.Context, opts docopt.Opts) error {
	text, _ := opts.String("<text>")
	ch, cleanup, err := openChannel(ctx, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := ch.Send(ctx, text); err != nil {
		return err
	}

	// Wait for the echo so the message is known to be stored and delivered.
	timeout := time.After(10 * time.Second)
	for {
		pending := false
		for _, m := range ch.Messages() {
			if m.Provisional {
				pending = true
			}
		}
		if !pending {
			Out.Println("sent")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			Out.Println("sent (not yet confirmed by the realtime feed)")
			return nil
		case <-ch.Updates():
		}
	}
}

func printNotification(n domain.Notification) {
	mark := "*"
	if n.IsRead {
		mark = " "
	}
	Out.Printf("%s %s %s: %s", mark, n.CreatedAt.Local().Format("Jan 02 15:04"), n.Title, n.Body)
}

func notifications(ctx context.Context, opts docopt.Opts) error {
	api, err := apiClient(opts)
	if err != nil {
		return err
	}
	follow, _ := opts.Bool("--follow")
	if !follow {
		notes, total, err := api.ListNotifications(ctx, 1, 50)
		if err != nil {
			return err
		}
		for _, n := range notes {
			printNotification(n)
		}
		unread, err := api.UnreadCount(ctx)
		if err != nil {
			return err
		}
		Out.Printf("%d notifications, %d unread", total, unread)
		return nil
	}

	me, err := api.MyProfile(ctx)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	feed := client.NewFeed(api.RealtimeURL(), api.Token(), client.DefaultFeedSettings())
	defer feed.Close()
	manager := channelsync.NewManager(api, feed, channelsync.WithErrorHandler(func(message string) { Err.Println(message) }))
	inbox, err := manager.OpenInbox(ctx, me.ID)
	if err != nil {
		return err
	}
	defer inbox.Close()

	seen := make(map[string]bool)
	for {
		if inbox.Loaded() {
			items := inbox.Notifications()
			for i := len(items) - 1; i >= 0; i-- {
				if !seen[items[i].ID] {
					seen[items[i].ID] = true
					printNotification(items[i])
				}
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-inbox.Updates():
		}
	}
}
