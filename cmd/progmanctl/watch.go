package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"progman-api/internal/client"
	"progman-api/internal/dto"
	"progman-api/internal/syncstore"
)

var watchCmd = &cobra.Command{
	Use:   "watch <projectId>",
	Short: "Follow a project's schedule live, and a comment page with --date",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().String("date", "", "also follow the comment page of this date")
}

func runWatch(cmd *cobra.Command, args []string) error {
	projectID, err := parseID(args[0])
	if err != nil {
		return err
	}
	date, _ := cmd.Flags().GetString("date")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := apiClient()
	store := syncstore.NewStore(api, logger)
	defer store.Close()
	if err := store.Load(ctx, projectID); err != nil {
		return err
	}
	printSnapshot(store.Rows())
	store.OnChange(printSnapshot)

	rt, err := client.DialRealtime(ctx, wsURL(), logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Each consumer gets its own copy of the frame stream
	scheduleFrames := make(chan dto.Envelope, 64)
	commentFrames := make(chan dto.Envelope, 64)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(scheduleFrames)
		defer close(commentFrames)
		for {
			select {
			case <-gctx.Done():
				return nil
			case env, ok := <-rt.Events():
				if !ok {
					return rt.Err()
				}
				if env.Event == dto.EventError {
					fmt.Printf("server error: %s\n", env.Data)
				}
				if !forward(gctx, scheduleFrames, env) {
					return nil
				}
				if date != "" && !forward(gctx, commentFrames, env) {
					return nil
				}
			}
		}
	})
	g.Go(func() error { return store.Watch(gctx, chanSource(scheduleFrames)) })

	if err := rt.JoinProject(projectID); err != nil {
		return err
	}

	if date != "" {
		sections, err := api.Sections(ctx)
		if err != nil {
			return err
		}
		board := syncstore.NewCommentBoard(api, autosaveDelay(sections), logger)
		defer board.Close(context.Background())
		if err := board.Open(ctx, projectID, date); err != nil {
			return err
		}
		if err := rt.JoinCommentPage(projectID, date); err != nil {
			return err
		}
		_ = printBoard(board, sections)

		g.Go(func() error { return board.Watch(gctx, chanSource(commentFrames)) })
		g.Go(func() error {
			ticker := time.NewTicker(2 * time.Second)
			defer ticker.Stop()
			last := ""
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					cur := boardDigest(board, sections)
					if cur != last && last != "" {
						_ = printBoard(board, sections)
					}
					last = cur
				}
			}
		})
	}

	err = g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func forward(ctx context.Context, ch chan<- dto.Envelope, env dto.Envelope) bool {
	select {
	case ch <- env:
		return true
	case <-ctx.Done():
		return false
	}
}

// chanSource adapts a plain channel to syncstore.EventSource
type chanSource <-chan dto.Envelope

func (c chanSource) Events() <-chan dto.Envelope { return c }

func printSnapshot(rows []dto.ScheduleResponse) {
	if flagJSON {
		_ = printJSON(rows)
		return
	}
	fmt.Printf("-- %s --\n", time.Now().Format("15:04:05"))
	_ = printGroups(syncstore.GroupRows(rows))
}

func boardDigest(board *syncstore.CommentBoard, sections *dto.CommentSectionsResponse) string {
	out := board.Body(sections.OverallKey)
	for _, owner := range append(append([]string{}, sections.Left...), sections.Right...) {
		out += "\x00" + owner + "\x00" + board.Status(owner) + "\x00" + board.Body(owner)
	}
	return out
}
