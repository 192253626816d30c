package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/remeh/sizedwaitgroup"
)

// studyBot glues the Discord gateway to the accounting engine: voice
// state updates feed the session tracker, slash commands hit the
// aggregator and the pomodoro manager.
type studyBot struct {
	cfg     Config
	dg      *discordgo.Session
	engine  *studyEngine
	pomo    *pomodoroManager
	metrics *botMetrics
	guildID string

	tracked map[string]struct{}
	cmdWg   sizedwaitgroup.SizedWaitGroup
}

func newStudyBot(cfg Config, engine *studyEngine, pomo *pomodoroManager, metrics *botMetrics) *studyBot {
	b := &studyBot{
		cfg:     cfg,
		engine:  engine,
		pomo:    pomo,
		metrics: metrics,
		guildID: strings.TrimSpace(cfg.DiscordGuildID),
		cmdWg:   sizedwaitgroup.New(cfg.MaxConcurrentCommands),
	}
	if len(cfg.TrackedChannelIDs) > 0 {
		b.tracked = make(map[string]struct{}, len(cfg.TrackedChannelIDs))
		for _, id := range cfg.TrackedChannelIDs {
			b.tracked[id] = struct{}{}
		}
	}
	return b
}

func (b *studyBot) start(ctx context.Context) error {
	token := strings.TrimSpace(b.cfg.DiscordBotToken)
	if token == "" {
		return fmt.Errorf("bot token not configured")
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return err
	}
	dg.Identify.Intents = discordgo.MakeIntent(
		discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates)

	dg.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		b.handleVoiceStateUpdate(s, vs)
	})
	dg.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		// Bound concurrent command handling; voice events above are
		// never queued behind this gate because their ordering feeds
		// the accounting engine.
		b.cmdWg.Add()
		go func() {
			defer b.cmdWg.Done()
			b.handleCommand(s, i)
		}()
	})

	if err := dg.Open(); err != nil {
		return err
	}
	b.dg = dg

	if err := b.registerCommands(); err != nil {
		logger.Warn("discord command registration failed", "error", err)
	}

	logger.Info("study bot started", "guild_id", b.guildID)
	return nil
}

func (b *studyBot) close() {
	if b == nil || b.dg == nil {
		return
	}
	_ = b.dg.Close()
}

// trackable reports whether a voice channel counts toward study time.
// An empty tracked set means every channel counts.
func (b *studyBot) trackable(channelID string) bool {
	if channelID == "" {
		return false
	}
	if b.tracked == nil {
		return true
	}
	_, ok := b.tracked[channelID]
	return ok
}

func (b *studyBot) handleVoiceStateUpdate(_ *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if vs == nil || vs.UserID == "" {
		return
	}
	if b.guildID != "" && vs.GuildID != "" && vs.GuildID != b.guildID {
		return
	}
	if vs.Member != nil && vs.Member.User != nil && vs.Member.User.Bot {
		return
	}

	wasPresent := vs.BeforeUpdate != nil && b.trackable(vs.BeforeUpdate.ChannelID)
	isPresent := b.trackable(vs.ChannelID)
	b.engine.OnPresenceChange(vs.UserID, wasPresent, isPresent, time.Now())
}

func (b *studyBot) registerCommands() error {
	if b == nil || b.dg == nil {
		return nil
	}
	appID := ""
	if b.dg.State != nil && b.dg.State.User != nil {
		appID = b.dg.State.User.ID
	}
	if appID == "" || b.guildID == "" {
		return fmt.Errorf("missing appID or guildID")
	}

	cmds := []*discordgo.ApplicationCommand{
		{
			Name:        "일간기록",
			Description: "오늘 공부한 시간을 보여줍니다.",
		},
		{
			Name:        "주간기록",
			Description: "이번 주 공부한 시간을 보여줍니다.",
		},
		{
			Name:        "월간기록",
			Description: "이번 달 공부한 시간을 보여줍니다.",
		},
		{
			Name:        "기록차트",
			Description: "최근 공부 기록을 차트로 보여줍니다.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "기간",
					Description: "차트에 표시할 일수",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "7일", Value: 7},
						{Name: "30일", Value: 30},
					},
				},
			},
		},
		{
			Name:        "뽀모도로",
			Description: "집중/휴식 타이머를 시작합니다.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "집중",
					Description: "집중 시간 (분)",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    true,
				},
				{
					Name:        "휴식",
					Description: "휴식 시간 (분)",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    true,
				},
			},
		},
		{
			Name:        "뽀모도로중지",
			Description: "진행 중인 뽀모도로 타이머를 중지합니다.",
		},
		{
			Name:        "도움말",
			Description: "사용 가능한 명령어 목록을 보여줍니다.",
		},
	}

	_, err := b.dg.ApplicationCommandBulkOverwrite(appID, b.guildID, cmds)
	return err
}

func respondMessage(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) error {
	if s == nil || i == nil {
		return nil
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
		},
	})
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) error {
	if s == nil || i == nil {
		return nil
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}
