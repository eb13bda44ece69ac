package commands

import "github.com/bwmarrin/discordgo"

var (
	minStake  float64 = 0.01
	adminPerm int64   = int64(discordgo.PermissionAdministrator)
)

var SlashCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "link_steam",
		Description: "Link your Steam account for match detection",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "profile",
				Description: "Steam profile URL or Steam64 ID",
				Required:    true,
			},
		},
	},
	{
		Name:        "setup_ingame",
		Description: "Get the Dota 2 config file that enables live in-game tracking",
	},
	{
		Name:        "check_match",
		Description: "Check right now whether you are in a live match",
	},
	{
		Name:        "check_gsi",
		Description: "Check whether your in-game telemetry is reaching the bot",
	},
	{
		Name:        "clear_match",
		Description: "Clear your tracked match (if detection got it wrong)",
	},
	{
		Name:        "bet",
		Description: "Bet on which team wins your current match",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "team",
				Description: "The team you think wins",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Radiant (team1)", Value: "team1"},
					{Name: "Dire (team2)", Value: "team2"},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionNumber,
				Name:        "amount",
				Description: "Stake amount",
				Required:    true,
				MinValue:    &minStake,
			},
		},
	},
	{
		Name:        "bet_first_blood",
		Description: "Bet on which player draws first blood",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "player",
				Description: "In-game player name",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionNumber,
				Name:        "amount",
				Description: "Stake amount",
				Required:    true,
				MinValue:    &minStake,
			},
		},
	},
	{
		Name:        "bet_mvp",
		Description: "Bet on who finishes as match MVP",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "player",
				Description: "In-game player name",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionNumber,
				Name:        "amount",
				Description: "Stake amount",
				Required:    true,
				MinValue:    &minStake,
			},
		},
	},
	{
		Name:        "my_bets",
		Description: "List your recent bets",
	},
	{
		Name:        "connect_wallet",
		Description: "Connect a wallet address for payouts",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "address",
				Description: "Wallet address",
				Required:    true,
			},
		},
	},
	{
		Name:        "profile",
		Description: "Show your betting profile and stats",
	},
	{
		Name:        "bot_status",
		Description: "Show detection and API health",
	},
	{
		Name:                     "record_event",
		Description:              "Admin: record a match event (winner, first_blood, mvp)",
		DefaultMemberPermissions: &adminPerm,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "match_id",
				Description: "Match id",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "event",
				Description: "Event type",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "winner", Value: "winner"},
					{Name: "first_blood", Value: "first_blood"},
					{Name: "mvp", Value: "mvp"},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "target",
				Description: "team1/team2 for winner, player name otherwise",
				Required:    true,
			},
		},
	},
	{
		Name:                     "resolve_match",
		Description:              "Admin: force-settle a match with the given winner",
		DefaultMemberPermissions: &adminPerm,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "match_id",
				Description: "Match id",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "winner",
				Description: "Winning team",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Radiant (team1)", Value: "team1"},
					{Name: "Dire (team2)", Value: "team2"},
				},
			},
		},
	},
	{
		Name:                     "clean_synthetic_matches",
		Description:              "Admin: delete bets on synthetic test matches",
		DefaultMemberPermissions: &adminPerm,
	},
}
