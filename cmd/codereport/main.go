package main

import (
	"github.com/alecthomas/kingpin/v2"
	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/logze/v2"

	"codereport/internal/app"
)

var (
	Version, Branch, Commit, BuildDate string
)

var (
	configPath = kingpin.Flag("config", "path to config file").Short('c').String()
	debug      = kingpin.Flag("debug", "enable debug logging").Bool()

	reportCmd = kingpin.Command("report", "run the interactive report workflow").Default()
	serveCmd  = kingpin.Command("serve", "run the report backend")

	loginCmd   = kingpin.Command("login", "store the token from the login redirect")
	loginToken = loginCmd.Arg("token", "token from the login redirect URL").Required().String()

	logoutCmd = kingpin.Command("logout", "destroy the cached identity")
)

func main() {
	command := kingpin.Parse()

	var err error
	ctx := contem.New(contem.WithLogger(logze.DefaultPtr()), contem.Exit(&err))
	defer ctx.Shutdown()

	err = run(ctx, command)
	if err != nil {
		logze.DefaultPtr().Error("cannot run", "error", err, "command", command)
	}
}

func run(ctx contem.Context, command string) error {
	level := logze.LevelInfo
	if *debug {
		level = logze.LevelDebug
	}
	logze.Init(logze.C().WithConsole().WithLevel(level))

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		return erro.Wrap(err, "load config")
	}

	application := app.New(cfg)

	switch command {
	case reportCmd.FullCommand():
		return application.RunReport(ctx)
	case serveCmd.FullCommand():
		return application.RunServe(ctx)
	case loginCmd.FullCommand():
		return application.RunLogin(ctx, *loginToken)
	case logoutCmd.FullCommand():
		return application.RunLogout()
	default:
		return erro.New("unknown command: " + command)
	}
}
