package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/mamagarobonomon/goodgains-bot/internal/betting"
	"github.com/mamagarobonomon/goodgains-bot/internal/database"
	"github.com/mamagarobonomon/goodgains-bot/internal/steamapi"
	"github.com/mamagarobonomon/goodgains-bot/internal/tracker"
	"github.com/mamagarobonomon/goodgains-bot/pkg/config"
)

// Handler roteia os slash commands para os subsistemas do bot.
type Handler struct {
	db        database.Database
	steam     *steamapi.Client
	store     *tracker.Store
	rec       *tracker.Reconciler
	scheduler *tracker.Scheduler
	ledger    *betting.Ledger
	resolver  *betting.Resolver
	cfg       *config.Config
	log       *zap.SugaredLogger
}

func NewHandler(db database.Database, steam *steamapi.Client, store *tracker.Store, rec *tracker.Reconciler, scheduler *tracker.Scheduler, ledger *betting.Ledger, resolver *betting.Resolver, cfg *config.Config, log *zap.SugaredLogger) *Handler {
	return &Handler{
		db:        db,
		steam:     steam,
		store:     store,
		rec:       rec,
		scheduler: scheduler,
		ledger:    ledger,
		resolver:  resolver,
		cfg:       cfg,
		log:       log,
	}
}

// Register sobe os comandos e pendura o dispatcher na sessão.
func (h *Handler) Register(s *discordgo.Session) error {
	for _, cmd := range SlashCommands {
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, "", cmd); err != nil {
			return fmt.Errorf("register command %s: %w", cmd.Name, err)
		}
	}
	s.AddHandler(h.Dispatch)
	return nil
}

func (h *Handler) Dispatch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "link_steam":
		h.handleLinkSteam(s, i)
	case "setup_ingame":
		h.handleSetupIngame(s, i)
	case "check_match":
		h.handleCheckMatch(s, i)
	case "check_gsi":
		h.handleCheckGSI(s, i)
	case "clear_match":
		h.handleClearMatch(s, i)
	case "bet":
		h.handleBet(s, i)
	case "bet_first_blood":
		h.handleEventBet(s, i, betting.BetFirstBlood)
	case "bet_mvp":
		h.handleEventBet(s, i, betting.BetMVP)
	case "my_bets":
		h.handleMyBets(s, i)
	case "connect_wallet":
		h.handleConnectWallet(s, i)
	case "profile":
		h.handleProfile(s, i)
	case "bot_status":
		h.handleBotStatus(s, i)
	case "record_event":
		h.handleRecordEvent(s, i)
	case "resolve_match":
		h.handleResolveMatch(s, i)
	case "clean_synthetic_matches":
		h.handleCleanSynthetic(s, i)
	}
}

// Helper to send interaction response easily
func respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func stringOption(i *discordgo.InteractionCreate, name string) string {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

func numberOption(i *discordgo.InteractionCreate, name string) float64 {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt.FloatValue()
		}
	}
	return 0
}
