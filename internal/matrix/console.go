package matrix

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mcexporter/internal/commands"
	"mcexporter/internal/dockerctl"
	"mcexporter/internal/logx"
	"mcexporter/internal/rcon"
)

const (
	rconCheckTimeout = 5 * time.Second
	stopTimeout      = 30 * time.Second
)

type PlayerSource interface {
	ListPlayers(ctx context.Context) (rcon.Response, error)
}

type Container interface {
	Status(ctx context.Context) (dockerctl.Status, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context, timeout time.Duration) error
}

// Console answers chat commands. container may be nil when docker control is off.
type Console struct {
	players   PlayerSource
	container Container
	log       *logx.Logger
}

func NewConsole(players PlayerSource, container Container, logger *logx.Logger) *Console {
	return &Console{players: players, container: container, log: logger.With("component", "console")}
}

// Handle runs one command and returns the reply text; empty means stay silent.
func (c *Console) Handle(ctx context.Context, cmd commands.Command) string {
	switch cmd.Type {
	case commands.Players:
		return c.handlePlayers(ctx)
	case commands.Status:
		return c.handleStatus(ctx)
	case commands.Start:
		return c.handleStart(ctx)
	case commands.Stop:
		return c.handleStop(ctx)
	default:
		return ""
	}
}

func (c *Console) listPlayers(ctx context.Context) (rcon.Outcome, error) {
	checkCtx, cancel := context.WithTimeout(ctx, rconCheckTimeout)
	defer cancel()
	raw, err := c.players.ListPlayers(checkCtx)
	if err != nil {
		return rcon.NotMatched(), err
	}
	return rcon.ParseList(raw), nil
}

func (c *Console) handlePlayers(ctx context.Context) string {
	outcome, err := c.listPlayers(ctx)
	if err != nil {
		c.log.Warn("rcon player check failed", "err", err.Error())
		return "could not reach the server over RCON"
	}
	if !outcome.Matched {
		return "server sent an unrecognised player list"
	}
	if len(outcome.Players) == 0 {
		return fmt.Sprintf("no players online (max %d)", outcome.Max)
	}
	return fmt.Sprintf("%d of %d online: %s", outcome.Online, outcome.Max, strings.Join(outcome.Players, ", "))
}

func (c *Console) handleStatus(ctx context.Context) string {
	if c.container == nil {
		return "container control is not configured"
	}
	status, err := c.container.Status(ctx)
	if err != nil {
		return "error checking server status: " + err.Error()
	}
	if !status.Exists {
		return "configured container was not found"
	}
	if status.Running {
		return "server is running"
	}
	return "server is " + status.State
}

func (c *Console) handleStart(ctx context.Context) string {
	if c.container == nil {
		return "container control is not configured"
	}
	status, err := c.container.Status(ctx)
	if err != nil {
		return "error checking server status: " + err.Error()
	}
	if !status.Exists {
		return "configured container was not found"
	}
	if status.Running {
		return "server is already running"
	}

	if err := c.container.Start(ctx); err != nil {
		return "failed to start server: " + err.Error()
	}
	return "starting Minecraft server..."
}

// handleStop only stops the container once RCON confirms nobody is online.
func (c *Console) handleStop(ctx context.Context) string {
	if c.container == nil {
		return "container control is not configured"
	}
	status, err := c.container.Status(ctx)
	if err != nil {
		return "error checking server status: " + err.Error()
	}
	if !status.Exists {
		return "configured container was not found"
	}
	if !status.Running {
		return "server is already stopped"
	}

	outcome, err := c.listPlayers(ctx)
	if err != nil {
		c.log.Warn("rcon check failed; stop aborted", "err", err.Error())
		return "refused to stop: could not confirm zero players via RCON"
	}
	if !outcome.Matched {
		return "refused to stop: could not read the player list"
	}
	if len(outcome.Players) > 0 {
		return "abort: players are online: " + strings.Join(outcome.Players, ", ")
	}

	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := c.container.Stop(stopCtx, stopTimeout); err != nil {
		return "failed to stop server: " + err.Error()
	}
	return "server stopped"
}
