package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lightstands/standsync/internal/api"
	"github.com/lightstands/standsync/internal/feedhash"
	"github.com/lightstands/standsync/internal/services"
)

const usage = `usage: standsync [flags] <command> [args]

commands:
  login <username>            sign in and persist the session token
  sync [tags|feedlists|posts] run a sync round (all resources by default)
  status                      show per-resource sync state
  lists                       show the local feed lists
  add <list-id> <feed-url>    add a feed to a list
  rm <list-id> <euid>         remove a feed from a list
  timeline                    show the recent timeline
  read <feed-hash> <post-hash>    mark a post read
  unread <feed-hash> <post-hash>  mark a post unread
  reset                       wipe all local data except the device id`

// Run dispatches one subcommand. The caller is expected to have stripped
// configuration flags already.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, usage)
		return nil
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.runLogin(ctx, rest)
	case "sync":
		return a.runSync(ctx, rest)
	case "status":
		return a.runStatus(ctx)
	case "lists":
		return a.runLists(ctx)
	case "add":
		return a.runAdd(ctx, rest)
	case "rm":
		return a.runRemove(ctx, rest)
	case "timeline":
		return a.runTimeline(ctx)
	case "read":
		return a.runMark(ctx, rest, true)
	case "unread":
		return a.runMark(ctx, rest, false)
	case "reset":
		return a.coord.ResetData(ctx)
	default:
		fmt.Fprintln(a.out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *App) runLogin(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: login <username>")
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	sess, err := a.client.CreateSession(ctx, args[0], string(password))
	if err != nil {
		return fmt.Errorf("failed to sign in: %w", err)
	}
	if err := a.store.Settings.Set(ctx, accessTokenKey, sess.AccessToken); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "signed in as user %d\n", sess.UserID)
	return nil
}

func (a *App) runSync(ctx context.Context, args []string) error {
	sess, err := a.session(ctx)
	if err != nil {
		return err
	}
	var resources []services.Resource
	for _, arg := range args {
		resources = append(resources, services.Resource(arg))
	}
	if err := a.coord.Run(ctx, sess, resources...); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "sync finished")
	return nil
}

func (a *App) runStatus(ctx context.Context) error {
	last, err := a.store.Settings.LastFullSync(ctx)
	if err != nil {
		return err
	}
	if last == 0 {
		fmt.Fprintln(a.out, "never synced")
	} else {
		fmt.Fprintf(a.out, "last sync: %s\n", formatMillis(last))
	}
	for _, r := range services.AllResources {
		state := "idle"
		if a.coord.Busy(r) {
			state = "syncing"
		}
		if err := a.coord.LastError(r); err != nil {
			state = fmt.Sprintf("failed: %v", err)
		}
		fmt.Fprintf(a.out, "  %-10s %s\n", r, state)
	}
	return nil
}

func (a *App) runLists(ctx context.Context) error {
	lists, err := a.store.FeedLists.All(ctx)
	if err != nil {
		return err
	}
	if len(lists) == 0 {
		fmt.Fprintln(a.out, "no feed lists, run `standsync sync` first")
		return nil
	}
	for _, l := range lists {
		fmt.Fprintf(a.out, "%d  %s (%d feeds)\n", l.ID, l.Name, len(l.Includes))
		for _, e := range l.Includes {
			fmt.Fprintf(a.out, "   %-12d %s\n", e.EUID, e.FeedURLHash)
		}
	}
	return nil
}

func (a *App) runAdd(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: add <list-id> <feed-url>")
	}
	sess, err := a.session(ctx)
	if err != nil {
		return err
	}
	listID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid list id %q: %w", args[0], err)
	}
	entry, synced, err := a.lists.AddFeed(ctx, sess, listID, feedhash.FeedURL(args[1]))
	if err != nil {
		return err
	}
	if synced {
		fmt.Fprintf(a.out, "added feed %d\n", entry.EUID)
	} else {
		fmt.Fprintf(a.out, "added feed %d locally, remote update deferred\n", entry.EUID)
	}
	return nil
}

func (a *App) runRemove(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: rm <list-id> <euid>")
	}
	sess, err := a.session(ctx)
	if err != nil {
		return err
	}
	listID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid list id %q: %w", args[0], err)
	}
	id, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid euid %q: %w", args[1], err)
	}
	synced, err := a.lists.RemoveFeed(ctx, sess, listID, id)
	if err != nil {
		return err
	}
	if synced {
		fmt.Fprintln(a.out, "removed")
	} else {
		fmt.Fprintln(a.out, "removed locally, remote update deferred")
	}
	return nil
}

func (a *App) runTimeline(ctx context.Context) error {
	days, err := a.timeline.Make(ctx)
	if err != nil {
		return err
	}
	if len(days) == 0 {
		fmt.Fprintln(a.out, "nothing cached yet, run `standsync sync` first")
		return nil
	}
	for _, day := range days {
		fmt.Fprintf(a.out, "%s\n", day.Date)
		for _, e := range day.Entries {
			mark := " "
			if e.Read {
				mark = "*"
			}
			fmt.Fprintf(a.out, " %s %s\n", mark, titleOrLink(e.Post.Title, e.Post.Link))
		}
	}
	return nil
}

func (a *App) runMark(ctx context.Context, args []string, read bool) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: read|unread <feed-hash> <post-hash>")
	}
	sess, err := a.session(ctx)
	if err != nil {
		return err
	}
	feedHash, postHash := args[0], args[1]
	post, err := a.posts.GetPost(ctx, feedHash, postHash)
	if err != nil {
		if api.IsNotFound(err) {
			return fmt.Errorf("post not found")
		}
		return err
	}
	if read {
		return a.tags.TagPostAndSync(ctx, sess, post.Ref, feedHash, postHash)
	}
	return a.tags.UntagPostAndSync(ctx, sess, post.Ref)
}

func titleOrLink(title, link string) string {
	if title != "" {
		return title
	}
	return link
}
