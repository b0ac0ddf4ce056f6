// Command himewm is the tiling window manager daemon and its control CLI.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/himewm/himewm/internal/config"
	"github.com/himewm/himewm/internal/ipc"
	"github.com/himewm/himewm/internal/pump"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			os.Exit(2)
		}
		runDaemon()
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "monitors":
		os.Exit(runMonitors(os.Args[2:]))
	case "layouts":
		os.Exit(runLayouts(os.Args[2:]))
	case "default-layout":
		os.Exit(runDefaultLayout(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "restart":
		os.Exit(runRestart(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: himewm <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the himewm daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  monitors            List monitors and their work areas")
	fmt.Fprintln(w, "  layouts             List available layouts")
	fmt.Fprintln(w, "  default-layout NAME Check NAME is a known layout and reload (settings.json is not modified)")
	fmt.Fprintln(w, "  reload              Reload configuration")
	fmt.Fprintln(w, "  restart             Restart the daemon's window-manager state")
}

func runDaemon() {
	dir, err := config.Dir()
	if err != nil {
		log.Fatalf("Failed to resolve configuration directory: %v", err)
	}
	log.Printf("Configuration directory: %s", dir)

	p, err := pump.New(dir)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	log.Println("himewm daemon started successfully")
	p.Run()
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("windows: %d\nworkspaces: %d\nuptime: %ds\n", status.WindowCount, status.WorkspaceCount, status.UptimeSeconds)
	return 0
}

func runMonitors(args []string) int {
	fs := flag.NewFlagSet("monitors", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	data, err := ipc.NewClient().GetMonitors()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, m := range data.Monitors {
		fmt.Printf("%d: %dx%d+%d+%d\n", m.ID, m.Width, m.Height, m.X, m.Y)
	}
	return 0
}

func runLayouts(args []string) int {
	fs := flag.NewFlagSet("layouts", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	data, err := ipc.NewClient().ListLayouts()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, name := range data.Layouts {
		if name == data.DefaultLayout {
			fmt.Printf("* %s\n", name)
		} else {
			fmt.Printf("  %s\n", name)
		}
	}
	return 0
}

func runDefaultLayout(args []string) int {
	fs := flag.NewFlagSet("default-layout", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: himewm default-layout NAME")
		return 2
	}
	if err := ipc.NewClient().SetDefaultLayout(fs.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runRestart(args []string) int {
	fs := flag.NewFlagSet("restart", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := ipc.NewClient().Restart(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
