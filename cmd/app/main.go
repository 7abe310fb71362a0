package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/nodenote/internal"
	"github.com/starford/nodenote/internal/apperr"
	"github.com/starford/nodenote/internal/node"
	"github.com/starford/nodenote/internal/watch"
	pkgconfig "github.com/starford/nodenote/pkg/config"
)

var version = "dev"

var (
	bold  = color.New(color.Bold).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
)

func newApp(cmd *cli.Command) (*internal.App, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return internal.NewApp(
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	)
}

// args returns exactly n positional arguments or a usage error.
func args(cmd *cli.Command, names ...string) ([]string, error) {
	if cmd.NArg() != len(names) {
		return nil, fmt.Errorf("%s: expected arguments %v: %w", cmd.Name, names, apperr.ErrInvalidInput)
	}
	return cmd.Args().Slice(), nil
}

func graphCreate(_ context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "BASE_PATH", "NAME")
	if err != nil {
		return err
	}
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	msg, err := app.Workspace.Create(a[0], a[1])
	if err != nil {
		return err
	}
	fmt.Println(green(msg))
	return nil
}

func graphInit(_ context.Context, cmd *cli.Command) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	if err := app.Workspace.Init(); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", green("registry ready"), app.Registry.Path())
	return nil
}

func graphList(_ context.Context, cmd *cli.Command) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	entries, err := app.Workspace.List()
	if errors.Is(err, apperr.ErrNotFound) {
		fmt.Println(faint("no graphs registered yet"))
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		state := faint("unchecked")
		if e.Validated != nil {
			state = green("ok")
			if !*e.Validated {
				state = red("missing")
			}
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", bold(e.Name), e.Root(), e.LastOpened.Format("2006-01-02 15:04:05"), state)
	}
	return nil
}

func graphOpen(_ context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "BASE_PATH", "NAME")
	if err != nil {
		return err
	}
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	if _, err := app.Workspace.Open(a[0], a[1]); err != nil {
		return err
	}
	dirs, err := app.Workspace.Dirs(a[0], a[1])
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", green("opened"), dirs.Root)
	return nil
}

func graphRemove(_ context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "BASE_PATH", "NAME")
	if err != nil {
		return err
	}
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	if err := app.Workspace.Remove(a[0], a[1]); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", green("removed"), a[1])
	return nil
}

func graphValidate(_ context.Context, cmd *cli.Command) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	rep, err := app.Workspace.Validate(cmd.Bool("repair"))
	if err != nil {
		return err
	}
	for _, e := range rep.Invalid {
		fmt.Printf("%s %s\n", red("missing"), e.Root())
	}
	fmt.Printf("checked %d, invalid %d, removed %d\n", rep.Checked, len(rep.Invalid), rep.Removed)
	return nil
}

func nodeList(_ context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "BASE_PATH", "NAME")
	if err != nil {
		return err
	}
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	nodes, err := app.Workspace.Nodes(a[0], a[1])
	if err != nil {
		return err
	}
	for _, n := range nodes {
		line := bold(n.BaseName)
		if n.HasSubgraph() {
			line += " " + green("[subgraph]")
		}
		fmt.Println(line)
		for _, f := range n.AssociatedFiles {
			fmt.Println("  " + faint(f))
		}
	}
	return nil
}

func nodeNew(_ context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "BASE_PATH", "NAME", "NODE")
	if err != nil {
		return err
	}
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	n, err := app.Workspace.CreateNode(a[0], a[1], a[2])
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", green("created"), n.MarkdownPath)
	return nil
}

// withNode resolves the node named by the first three arguments.
func withNode(cmd *cli.Command, extra []string, fn func(n *node.Node, rest []string) error) error {
	a, err := args(cmd, append([]string{"BASE_PATH", "NAME", "NODE"}, extra...)...)
	if err != nil {
		return err
	}
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	n, err := app.Workspace.FindNode(a[0], a[1], a[2])
	if err != nil {
		return err
	}
	return fn(n, a[3:])
}

func nodeRename(_ context.Context, cmd *cli.Command) error {
	return withNode(cmd, []string{"NEW_NAME"}, func(n *node.Node, rest []string) error {
		old := n.BaseName
		if err := n.Rename(rest[0]); err != nil {
			return err
		}
		fmt.Printf("%s %s -> %s\n", green("renamed"), old, n.BaseName)
		return nil
	})
}

func subgraphCreate(_ context.Context, cmd *cli.Command) error {
	return withNode(cmd, nil, func(n *node.Node, _ []string) error {
		if err := n.CreateSubgraph(); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", green("subgraph created"), n.SubgraphPath)
		return nil
	})
}

func subgraphDelete(_ context.Context, cmd *cli.Command) error {
	return withNode(cmd, nil, func(n *node.Node, _ []string) error {
		if err := n.DeleteSubgraph(cmd.Bool("force")); err != nil {
			return err
		}
		fmt.Printf("%s %s\n", green("subgraph deleted"), n.BaseName)
		return nil
	})
}

func watchGraph(ctx context.Context, cmd *cli.Command) error {
	a, err := args(cmd, "GRAPH_ROOT")
	if err != nil {
		return err
	}
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx, stop := internal.SignalContext(ctx)
	defer stop()
	return app.Watch(ctx, a[0], func(ev watch.Event) {
		kind := ev.Kind
		switch ev.Kind {
		case watch.Created:
			kind = green(kind)
		case watch.Deleted:
			kind = red(kind)
		}
		fmt.Printf("%s\t%s\t%s\n", kind, bold(ev.Node), faint(ev.Path))
	})
}

func serve(ctx context.Context, cmd *cli.Command) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	if err := app.Serve(ctx); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "nodenote",
		Usage:   "File-backed knowledge graph workspaces of markdown nodes",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "graph",
				Usage: "Manage registered graphs",
				Commands: []*cli.Command{
					{Name: "init", Usage: "Create an empty graph registry if missing", Action: graphInit},
					{Name: "create", Usage: "Create a graph", ArgsUsage: "BASE_PATH NAME", Action: graphCreate},
					{Name: "list", Usage: "List registered graphs", Action: graphList},
					{Name: "open", Usage: "Open a registered graph", ArgsUsage: "BASE_PATH NAME", Action: graphOpen},
					{Name: "remove", Usage: "Unregister a graph (files are kept)", ArgsUsage: "BASE_PATH NAME", Action: graphRemove},
					{
						Name:   "validate",
						Usage:  "Check registered graphs exist on disk",
						Action: graphValidate,
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "repair", Usage: "Remove entries whose directory is missing"},
						},
					},
				},
			},
			{
				Name:  "node",
				Usage: "Work with the nodes of a graph",
				Commands: []*cli.Command{
					{Name: "list", Usage: "List nodes", ArgsUsage: "BASE_PATH NAME", Action: nodeList},
					{Name: "new", Usage: "Create a node", ArgsUsage: "BASE_PATH NAME NODE", Action: nodeNew},
					{Name: "rename", Usage: "Rename a node and its files", ArgsUsage: "BASE_PATH NAME NODE NEW_NAME", Action: nodeRename},
					{Name: "subgraph-create", Usage: "Give a node a nested graph", ArgsUsage: "BASE_PATH NAME NODE", Action: subgraphCreate},
					{
						Name:      "subgraph-delete",
						Usage:     "Delete a node's nested graph",
						ArgsUsage: "BASE_PATH NAME NODE",
						Action:    subgraphDelete,
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "force", Usage: "Delete even if not empty"},
						},
					},
				},
			},
			{Name: "watch", Usage: "Print node changes in a graph", ArgsUsage: "GRAPH_ROOT", Action: watchGraph},
			{Name: "serve", Usage: "Serve graph tools over MCP stdio", Action: serve},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error",
			slog.String("error", apperr.Message(err)),
			slog.String("kind", apperr.Kind(err)))
		os.Exit(1)
	}
}
