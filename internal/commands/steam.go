package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mamagarobonomon/goodgains-bot/internal/database"
	"github.com/mamagarobonomon/goodgains-bot/internal/gsi"
	"github.com/mamagarobonomon/goodgains-bot/internal/steamapi"
	"github.com/mamagarobonomon/goodgains-bot/pkg/utils"
)

const commandTimeout = 10 * time.Second

// handleLinkSteam resolve o perfil informado (URL, vanity ou Steam64) e
// grava o vínculo usuário -> conta Steam.
func (h *Handler) handleLinkSteam(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	profile := stringOption(i, "profile")

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	steamID, err := h.resolveSteamID(ctx, profile)
	if err != nil {
		respondEphemeral(s, i, utils.ErrorEmbed("Could not resolve that Steam profile. Send a profile URL (steamcommunity.com/profiles/... or /id/...) or a Steam64 ID."))
		return
	}

	if err := database.SaveSteamMapping(h.db, userID, steamID); err != nil {
		h.log.Errorw("save steam mapping", "user", userID, "error", err)
		respondEphemeral(s, i, utils.ErrorEmbed("Failed to save your Steam link, try again."))
		return
	}

	summary, err := h.steam.GetPlayerSummary(ctx, steamID)
	name := steamID
	if err == nil && summary != nil && summary.PersonaName != "" {
		name = summary.PersonaName
	}
	respondEmbed(s, i, utils.SuccessEmbed("Steam Linked",
		fmt.Sprintf("Linked to **%s**. Your matches will now be detected automatically.\nUse `/setup_ingame` to enable live in-game tracking too.", name)))
}

func (h *Handler) resolveSteamID(ctx context.Context, profile string) (string, error) {
	if steamapi.IsSteam64(profile) {
		return profile, nil
	}
	extracted := steamapi.ExtractSteamID(profile)
	if extracted == "" {
		return "", fmt.Errorf("unrecognized steam profile %q", profile)
	}
	if steamapi.IsSteam64(extracted) {
		return extracted, nil
	}
	// URL de vanity: precisa da API para virar Steam64.
	return h.steam.ResolveVanityURL(ctx, extracted)
}

// handleSetupIngame manda por DM o arquivo de configuração do GSI.
func (h *Handler) handleSetupIngame(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)

	if h.cfg.PublicURL == "" {
		respondEphemeral(s, i, utils.ErrorEmbed("In-game tracking is not configured on this bot (no public URL)."))
		return
	}

	cfg := gsi.ConfigFile(h.cfg.PublicURL, userID)
	ch, err := s.UserChannelCreate(userID)
	if err != nil {
		respondEphemeral(s, i, utils.ErrorEmbed("Could not open a DM with you. Check your privacy settings."))
		return
	}
	_, err = s.ChannelMessageSend(ch.ID, fmt.Sprintf(
		"Save this as `gamestate_integration_goodgains.cfg` inside\n"+
			"`.../steamapps/common/dota 2 beta/game/dota/cfg/gamestate_integration/`\n"+
			"and restart Dota 2:\n```\n%s```", cfg))
	if err != nil {
		respondEphemeral(s, i, utils.ErrorEmbed("Failed to send the config file by DM."))
		return
	}
	respondEphemeral(s, i, utils.SuccessEmbed("Config Sent", "Check your DMs for the Dota 2 integration file."))
}

// handleCheckMatch força uma checagem imediata para o usuário.
func (h *Handler) handleCheckMatch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)

	steamID, err := database.GetSteamID(h.db, userID)
	if err != nil {
		h.log.Errorw("load steam mapping", "user", userID, "error", err)
		respondEphemeral(s, i, utils.ErrorEmbed("Something went wrong, try again."))
		return
	}
	if steamID == "" {
		respondEphemeral(s, i, utils.ErrorEmbed("You have no Steam account linked. Use `/link_steam` first."))
		return
	}

	// A chamada de detecção pode demorar mais que os 3s do interaction ack.
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := h.scheduler.CheckUser(ctx, userID, steamID); err != nil {
		h.log.Warnw("manual check failed", "user", userID, "error", err)
	}

	var embed *discordgo.MessageEmbed
	if m := h.store.Get(userID); m != nil {
		embed = utils.MatchEmbed("Live Match", []*discordgo.MessageEmbedField{
			utils.Field("Match", m.MatchID),
			utils.Field("Team", m.Team),
			utils.Field("Confidence", fmt.Sprintf("%d%%", m.Confidence)),
			utils.Field("Started", fmt.Sprintf("<t:%d:R>", m.StartTime)),
		})
	} else {
		embed = utils.InfoEmbed("No Live Match", "You don't appear to be in a live match right now.")
	}
	s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
}

// handleCheckGSI diz se a telemetria do usuário está chegando.
func (h *Handler) handleCheckGSI(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)

	n, err := database.CountRecentGSIConnections(h.db, userID, time.Now().Add(-time.Hour))
	if err != nil {
		h.log.Errorw("count gsi connections", "user", userID, "error", err)
		respondEphemeral(s, i, utils.ErrorEmbed("Could not check your telemetry status."))
		return
	}
	if n == 0 {
		respondEphemeral(s, i, utils.InfoEmbed("No Telemetry",
			"No in-game data received in the last hour. Run `/setup_ingame`, install the config file and restart Dota 2."))
		return
	}
	respondEphemeral(s, i, utils.SuccessEmbed("Telemetry Active",
		fmt.Sprintf("Received %d in-game updates from you in the last hour.", n)))
}

func (h *Handler) handleClearMatch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)

	cleared, err := h.rec.ClearMatch(userID)
	if err != nil {
		h.log.Errorw("clear match", "user", userID, "error", err)
		respondEphemeral(s, i, utils.ErrorEmbed("Failed to clear your match."))
		return
	}
	if !cleared {
		respondEphemeral(s, i, utils.InfoEmbed("Nothing Tracked", "You have no tracked match to clear."))
		return
	}
	respondEmbed(s, i, utils.SuccessEmbed("Match Cleared", "Your tracked match was removed. Detection continues normally."))
}

// handleBotStatus mostra a saúde da detecção para diagnóstico rápido.
func (h *Handler) handleBotStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	apiHealth := "✅ healthy"
	if err := h.steam.CheckHealth(ctx); err != nil {
		apiHealth = "⚠️ " + err.Error()
	}

	tracked := len(h.store.All())
	backoffs := h.steam.Limiter().TrackedFailures()

	respondEmbed(s, i, utils.MatchEmbed("Bot Status", []*discordgo.MessageEmbedField{
		utils.Field("Steam API", apiHealth),
		utils.Field("Tracked matches", fmt.Sprintf("%d", tracked)),
		utils.Field("Endpoints in backoff", fmt.Sprintf("%d", backoffs)),
	}))
}
