package matrix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"mcexporter/internal/commands"
	"mcexporter/internal/config"
	"mcexporter/internal/logx"
)

// Bot relays allow-listed chat commands from one room to a Console.
type Bot struct {
	matrix   *mautrix.Client
	console  *Console
	log      *logx.Logger
	prefix   string
	roomID   id.RoomID
	allowed  map[string]struct{}
	selfUser id.UserID
	busy     atomic.Bool
}

func New(ctx context.Context, cfg config.Config, console *Console, logger *logx.Logger) (*Bot, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	accessToken, err := resolveAccessToken(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve matrix access token: %w", err)
	}

	client, err := mautrix.NewClient(cfg.MatrixHomeserver, id.UserID(cfg.MatrixUserID), accessToken)
	if err != nil {
		return nil, fmt.Errorf("create matrix client: %w", err)
	}
	if client.UserID == "" {
		whoami, err := client.Whoami(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve MATRIX_USER_ID with /whoami: %w", err)
		}
		client.UserID = whoami.UserID
	}

	roomID := id.RoomID(cfg.MatrixRoomID)
	syncer := mautrix.NewDefaultSyncer()
	syncer.FilterJSON = &mautrix.Filter{
		Room: mautrix.RoomFilter{
			Rooms: []id.RoomID{roomID},
			Timeline: mautrix.FilterPart{
				Types: []event.Type{event.EventMessage},
			},
		},
	}
	client.Syncer = syncer
	client.Store = NewFileSyncStore(cfg.SyncTokenPath())

	bot := &Bot{
		matrix:   client,
		console:  console,
		log:      logger.With("component", "matrix"),
		prefix:   cfg.CommandPrefix,
		roomID:   roomID,
		allowed:  cfg.AllowedMXIDs,
		selfUser: client.UserID,
	}
	syncer.OnEventType(event.EventMessage, bot.handleMessage)
	return bot, nil
}

func (b *Bot) Run(ctx context.Context) error {
	if err := b.bootstrapSyncToken(ctx); err != nil {
		return err
	}

	b.log.Info("matrix sync started", "room_id", b.roomID.String(), "user_id", b.selfUser.String())
	if err := b.matrix.SyncWithContext(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// bootstrapSyncToken stores a fresh token on first start so history is not replayed.
func (b *Bot) bootstrapSyncToken(ctx context.Context) error {
	nextBatch, err := b.matrix.Store.LoadNextBatch(ctx, b.matrix.UserID)
	if err != nil {
		return fmt.Errorf("load sync token: %w", err)
	}
	if nextBatch != "" {
		return nil
	}

	resp, err := b.matrix.SyncRequest(ctx, 0, "", "", false, "")
	if err != nil {
		return fmt.Errorf("initial sync request for token bootstrap: %w", err)
	}
	if resp.NextBatch == "" {
		return errors.New("initial sync returned empty next_batch")
	}
	if err := b.matrix.Store.SaveNextBatch(ctx, b.matrix.UserID, resp.NextBatch); err != nil {
		return fmt.Errorf("save initial sync token: %w", err)
	}
	b.log.Info("initialized sync token without replay")
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, evt *event.Event) {
	if !b.accepts(evt) {
		return
	}

	if err := evt.Content.ParseRaw(evt.Type); err != nil {
		b.log.Warn("failed parsing matrix event content", "event_id", evt.ID.String(), "err", err.Error())
		return
	}
	content := evt.Content.AsMessage()
	if content == nil || !content.MsgType.IsText() {
		return
	}

	cmd := commands.Parse(content.Body, b.prefix)
	if cmd.Type == commands.Unknown {
		return
	}

	if !b.busy.CompareAndSwap(false, true) {
		b.reply(ctx, "busy, try again")
		return
	}
	defer b.busy.Store(false)

	b.log.Info("handling command", "command", cmd.Type.String(), "sender", evt.Sender.String())
	if text := b.console.Handle(ctx, cmd); text != "" {
		b.reply(ctx, text)
	}
}

// accepts filters events down to messages from allow-listed users in our room.
func (b *Bot) accepts(evt *event.Event) bool {
	if evt == nil || evt.RoomID != b.roomID || evt.Sender == b.selfUser {
		return false
	}
	_, ok := b.allowed[evt.Sender.String()]
	return ok
}

func (b *Bot) reply(ctx context.Context, text string) {
	if _, err := b.matrix.SendText(ctx, b.roomID, text); err != nil {
		b.log.Error("failed sending matrix message", "err", err.Error())
	}
}

func resolveAccessToken(ctx context.Context, cfg config.Config) (string, error) {
	if token := strings.TrimSpace(cfg.MatrixAccessToken); token != "" {
		return token, nil
	}

	if token, _ := readTrimmed(cfg.AccessTokenPath()); token != "" {
		return token, nil
	}

	loginClient, err := mautrix.NewClient(cfg.MatrixHomeserver, id.UserID(cfg.MatrixUserID), "")
	if err != nil {
		return "", fmt.Errorf("create matrix login client: %w", err)
	}

	resp, err := loginClient.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: cfg.MatrixUser,
		},
		Password:         cfg.MatrixPassword,
		StoreCredentials: true,
	})
	if err != nil {
		return "", fmt.Errorf("matrix password login failed: %w", err)
	}

	if err := writeFileAtomically(cfg.AccessTokenPath(), []byte(resp.AccessToken+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persist access token: %w", err)
	}
	return resp.AccessToken, nil
}
