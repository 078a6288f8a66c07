package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/nao1215/dubbing/internal/gateway"
	"github.com/nao1215/dubbing/pkg/model"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// maxParallelDeletes は同時に送る削除リクエストの上限。
const maxParallelDeletes = 4

func newProjectsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project", "p"},
		Short:   "Manage dubbing projects",
	}
	cmd.AddCommand(newProjectsListCommand(a))
	cmd.AddCommand(newProjectsCreateCommand(a))
	cmd.AddCommand(newProjectsDeleteCommand(a))
	cmd.AddCommand(newProjectsSetStatusCommand(a))
	return cmd
}

func newProjectsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your projects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.client().ListProjects(cmd.Context())
			if err != nil {
				return userError(err, gateway.MsgRequestFailed)
			}
			if len(projects) == 0 {
				fmt.Fprintln(a.out, "No projects yet. Create one with `dubctl projects create <youtube-url>`.")
				return nil
			}
			writeProjectTable(a.out, projects)
			return nil
		},
	}
}

func newProjectsCreateCommand(a *app) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "create <youtube-url>",
		Short: "Start dubbing a YouTube video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.client().CreateProject(cmd.Context(), args[0], title)
			if err != nil {
				return userError(err, gateway.MsgCreateProjectFailed)
			}
			if p == nil {
				fmt.Fprintln(a.out, "Project created")
				return nil
			}
			fmt.Fprintf(a.out, "Created project %d: %s (%s)\n", p.ID, p.Title, p.Status)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Project title (default \""+gateway.DefaultProjectTitle+"\")")
	return cmd
}

func newProjectsDeleteCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete one or more projects",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid project id %q", arg)
				}
				ids = append(ids, id)
			}
			if !yes && !confirmDelete(a.in, a.out, len(ids)) {
				return errors.New("deletion not confirmed, pass --yes to skip the prompt")
			}

			gw := a.client()
			var (
				mu     sync.Mutex
				failed []string
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(maxParallelDeletes)
			for _, id := range ids {
				g.Go(func() error {
					err := gw.DeleteProject(ctx, id)
					if errors.Is(err, gateway.ErrUnauthorized) {
						return err
					}
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						failed = append(failed, fmt.Sprintf("%d: %s", id, gateway.UserMessage(err, gateway.MsgRequestFailed)))
						return nil
					}
					fmt.Fprintf(a.out, "Deleted project %d\n", id)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return userError(err, gateway.MsgRequestFailed)
			}
			if len(failed) > 0 {
				return fmt.Errorf("failed to delete:\n  %s", strings.Join(failed, "\n  "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newProjectsSetStatusCommand(a *app) *cobra.Command {
	var update gateway.StatusUpdate
	cmd := &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Change a project's status on the development backend",
		Long: `Change a project's status on the development backend.

The development backend does not run the dubbing pipeline, so this command
moves a project through its states by hand. Valid states are:
` + statusList(),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid project id %q", args[0])
			}
			update.Status = model.Status(args[1])
			if !update.Status.Known() {
				return fmt.Errorf("unknown status %q, expected one of: %s", args[1], statusList())
			}

			p, err := a.client().UpdateProjectStatus(cmd.Context(), id, update)
			if err != nil {
				return userError(err, gateway.MsgRequestFailed)
			}
			if p == nil {
				fmt.Fprintf(a.out, "Project %d is now %s\n", id, update.Status)
				return nil
			}
			fmt.Fprintf(a.out, "Project %d is now %s\n", p.ID, p.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&update.FinalVideoURL, "video-url", "", "Dubbed video URL for the Ready state")
	cmd.Flags().StringVar(&update.ErrorMessage, "error", "", "Error message for the Error state")
	return cmd
}

// statusList は既知の状態をカンマ区切りで返す。
func statusList() string {
	names := make([]string, 0, len(model.Statuses()))
	for _, s := range model.Statuses() {
		names = append(names, s.String())
	}
	return strings.Join(names, ", ")
}

// writeProjectTable はプロジェクト一覧を表形式で出力する。
func writeProjectTable(w io.Writer, projects []model.Project) {
	headers := []string{"ID", "TITLE", "STATUS", "CREATED", "VIDEO"}
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		created := ""
		if !p.CreatedAt.IsZero() {
			created = p.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		video := ""
		if p.FinalVideoURL != nil {
			video = *p.FinalVideoURL
		}
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			truncateName(p.Title, maxTitleWidth),
			p.Status.String(),
			created,
			video,
		})
	}
	writeTable(w, headers, rows)
}
