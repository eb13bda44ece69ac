package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/mamagarobonomon/goodgains-bot/internal/betting"
	"github.com/mamagarobonomon/goodgains-bot/internal/database"
	"github.com/mamagarobonomon/goodgains-bot/pkg/utils"
)

// handleBet é a aposta em vitória de time na partida rastreada do usuário.
func (h *Handler) handleBet(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	team := stringOption(i, "team")
	amount := numberOption(i, "amount")

	m := h.store.Get(userID)
	if m == nil {
		respondEphemeral(s, i, utils.ErrorEmbed("No live match tracked for you. Use `/check_match` first."))
		return
	}

	h.place(s, i, betting.PlaceParams{
		UserID:         userID,
		MatchID:        m.MatchID,
		GameID:         m.GameID,
		MatchStartTime: m.StartTime,
		BetType:        betting.BetTeamWin,
		Team:           team,
		Amount:         amount,
	}, fmt.Sprintf("on **%s** winning match `%s`", team, m.MatchID))
}

// handleEventBet cobre first blood e mvp, que compartilham o formato.
func (h *Handler) handleEventBet(s *discordgo.Session, i *discordgo.InteractionCreate, betType string) {
	userID := interactionUserID(i)
	player := stringOption(i, "player")
	amount := numberOption(i, "amount")

	m := h.store.Get(userID)
	if m == nil {
		respondEphemeral(s, i, utils.ErrorEmbed("No live match tracked for you. Use `/check_match` first."))
		return
	}

	label := strings.ReplaceAll(betType, "_", " ")
	h.place(s, i, betting.PlaceParams{
		UserID:         userID,
		MatchID:        m.MatchID,
		GameID:         m.GameID,
		MatchStartTime: m.StartTime,
		BetType:        betType,
		Target:         player,
		Amount:         amount,
	}, fmt.Sprintf("on **%s** for %s in match `%s`", player, label, m.MatchID))
}

func (h *Handler) place(s *discordgo.Session, i *discordgo.InteractionCreate, p betting.PlaceParams, what string) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	id, err := h.ledger.PlaceWager(ctx, p)
	if err != nil {
		respondEphemeral(s, i, utils.ErrorEmbed(betErrorMessage(err)))
		return
	}

	window := betting.NewWindow(p.MatchStartTime, time.Duration(h.cfg.Betting.WindowSeconds)*time.Second)
	remaining := window.Remaining(time.Now()).Round(time.Second)
	respondEmbed(s, i, utils.GoldEmbed("Bet Placed",
		fmt.Sprintf("%.2f %s.\nBet id: `%s` — window closes in %s.", p.Amount, what, id, remaining)))
	h.log.Infow("bet placed via command", "user", p.UserID, "bet", id, "type", p.BetType)
}

// betErrorMessage traduz os sentinels do ledger para o usuário.
func betErrorMessage(err error) string {
	switch {
	case errors.Is(err, betting.ErrWindowClosed):
		return "The betting window for this match has closed (5 minutes from match start)."
	case errors.Is(err, betting.ErrStakeTooLow), errors.Is(err, betting.ErrStakeTooHigh):
		return "Stake out of range: " + err.Error()
	case errors.Is(err, betting.ErrTooManyBets):
		return "You hit the hourly bet limit. Slow down a bit."
	case errors.Is(err, betting.ErrWrongGame):
		return "First blood and MVP bets are only available for Dota 2 matches."
	case errors.Is(err, betting.ErrInvalidTarget):
		return "Invalid bet target: " + err.Error()
	default:
		return "Could not place your bet, try again."
	}
}

func (h *Handler) handleMyBets(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)

	bets, err := h.ledger.UserBets(userID, 10)
	if err != nil {
		h.log.Errorw("list user bets", "user", userID, "error", err)
		respondEphemeral(s, i, utils.ErrorEmbed("Could not load your bets."))
		return
	}
	if len(bets) == 0 {
		respondEphemeral(s, i, utils.InfoEmbed("No Bets", "You haven't placed any bets yet."))
		return
	}

	var b strings.Builder
	for _, bet := range bets {
		status := "⏳ pending"
		if bet.Resolved {
			if bet.Won {
				status = fmt.Sprintf("💰 won %.2f", bet.Payout)
			} else {
				status = "💸 lost"
			}
		}
		target := bet.Team
		if target == "" {
			target = bet.Target
		}
		fmt.Fprintf(&b, "`%s` %s on **%s** — %.2f — %s\n", bet.MatchID, bet.BetType, target, bet.Amount, status)
	}
	respondEphemeral(s, i, utils.InfoEmbed("Your Recent Bets", b.String()))
}

// handleConnectWallet registra (ou troca) o endereço de carteira do usuário.
// A sessão expira pelo sweep de limpeza após 24h sem atividade.
func (h *Handler) handleConnectWallet(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	address := strings.TrimSpace(stringOption(i, "address"))
	if address == "" {
		respondEphemeral(s, i, utils.ErrorEmbed("Wallet address cannot be empty."))
		return
	}

	ws := &database.WalletSession{
		UserID:        userID,
		WalletAddress: address,
		SessionID:     uuid.New().String(),
		Connected:     true,
		LastActive:    time.Now(),
	}
	if err := database.UpsertWalletSession(h.db, ws); err != nil {
		h.log.Errorw("connect wallet", "user", userID, "error", err)
		respondEphemeral(s, i, utils.ErrorEmbed("Could not save your wallet."))
		return
	}
	respondEphemeral(s, i, utils.SuccessEmbed("Wallet Connected",
		fmt.Sprintf("Payouts will reference `%s`. The session expires after 24h of inactivity.", address)))
}

func (h *Handler) handleProfile(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)

	stats, err := betting.LoadProfileStats(h.db, userID)
	if err != nil {
		h.log.Errorw("load profile stats", "user", userID, "error", err)
		respondEphemeral(s, i, utils.ErrorEmbed("Could not load your profile."))
		return
	}

	wallet := "not connected"
	if ws, err := database.GetConnectedWallet(h.db, userID); err != nil {
		h.log.Warnw("load connected wallet", "user", userID, "error", err)
	} else if ws != nil {
		wallet = "`" + ws.WalletAddress + "`"
	}

	respondEmbed(s, i, utils.MatchEmbed("Betting Profile", []*discordgo.MessageEmbedField{
		utils.Field("Total bets", fmt.Sprintf("%d", stats.TotalBets)),
		utils.Field("Record", fmt.Sprintf("%dW / %dL (%d pending)", stats.Wins, stats.Losses, stats.Pending)),
		utils.Field("Win rate", fmt.Sprintf("%.1f%%", stats.WinRate())),
		utils.Field("Wagered", fmt.Sprintf("%.2f", stats.TotalWagered)),
		utils.Field("Net profit", fmt.Sprintf("%+.2f", stats.NetProfit())),
		utils.Field("Wallet", wallet),
	}))
}

// handleRecordEvent grava manualmente um fato da partida e re-liquida.
func (h *Handler) handleRecordEvent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	matchID := stringOption(i, "match_id")
	event := stringOption(i, "event")
	target := stringOption(i, "target")

	if err := h.resolver.RecordEvent(matchID, event, target); err != nil {
		h.log.Errorw("admin record event", "match", matchID, "error", err)
		respondEphemeral(s, i, utils.ErrorEmbed("Failed to record the event."))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := h.resolver.SettleMatch(ctx, matchID); err != nil {
		h.log.Errorw("admin settle after event", "match", matchID, "error", err)
	}
	respondEmbed(s, i, utils.SuccessEmbed("Event Recorded",
		fmt.Sprintf("`%s` %s = **%s**. Matching bets were settled.", matchID, event, target)))
}

func (h *Handler) handleResolveMatch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	matchID := stringOption(i, "match_id")
	winner := stringOption(i, "winner")

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := h.resolver.ResolveManually(ctx, matchID, winner); err != nil {
		h.log.Errorw("admin resolve match", "match", matchID, "error", err)
		respondEphemeral(s, i, utils.ErrorEmbed("Failed to resolve: "+err.Error()))
		return
	}
	respondEmbed(s, i, utils.SuccessEmbed("Match Resolved",
		fmt.Sprintf("Match `%s` settled with **%s** as winner.", matchID, winner)))
}

func (h *Handler) handleCleanSynthetic(s *discordgo.Session, i *discordgo.InteractionCreate) {
	n, err := h.resolver.DeleteSyntheticWagers([]string{"dota_", "sim_"})
	if err != nil {
		h.log.Errorw("clean synthetic matches", "error", err)
		respondEphemeral(s, i, utils.ErrorEmbed("Cleanup failed partway: "+err.Error()))
		return
	}
	respondEmbed(s, i, utils.SuccessEmbed("Cleanup Done",
		fmt.Sprintf("Removed %d bets on synthetic test matches.", n)))
}
