package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

const helpText = "사용할 수 있는 명령어 목록:\n" +
	"/일간기록 - 오늘 공부한 시간\n" +
	"/주간기록 - 이번 주 공부한 시간\n" +
	"/월간기록 - 이번 달 공부한 시간\n" +
	"/기록차트 - 최근 7일/30일 기록 차트\n" +
	"/뽀모도로 - 집중/휴식 타이머 시작\n" +
	"/뽀모도로중지 - 타이머 중지\n" +
	"/도움말 - 명령어 목록 보여주기"

func (b *studyBot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if b == nil || s == nil || i == nil {
		return
	}
	if b.guildID != "" && i.GuildID != "" && i.GuildID != b.guildID {
		return
	}

	userID := interactionUserID(i)
	if userID == "" {
		return
	}
	b.metrics.commandServed()

	now := time.Now()
	data := i.ApplicationCommandData()
	switch data.Name {
	case "일간기록":
		secs := b.engine.DailySeconds(userID, now)
		_ = respondMessage(s, i, "오늘 공부한 시간: "+formatStudyTime(secs))
	case "주간기록":
		secs := b.engine.WeeklySeconds(userID, now)
		_ = respondMessage(s, i, "이번 주 공부한 시간: "+formatStudyTime(secs))
	case "월간기록":
		secs := b.engine.MonthlySeconds(userID, now)
		_ = respondMessage(s, i, "이번 달 공부한 시간: "+formatStudyTime(secs))
	case "기록차트":
		b.handleChartCommand(s, i, userID, now)
	case "뽀모도로":
		b.handlePomodoroCommand(s, i, userID)
	case "뽀모도로중지":
		if b.pomo.Stop(userID) {
			_ = respondMessage(s, i, "뽀모도로 타이머를 중지했습니다.")
		} else {
			_ = respondEphemeral(s, i, "진행 중인 타이머가 없습니다.")
		}
	case "도움말":
		_ = respondMessage(s, i, helpText)
	default:
		// ignore
	}
}

func (b *studyBot) handleChartCommand(s *discordgo.Session, i *discordgo.InteractionCreate, userID string, now time.Time) {
	days := 0
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Type == discordgo.ApplicationCommandOptionInteger && opt.Name == "기간" {
			days = int(opt.IntValue())
		}
	}
	// The option declares 7/30 choices, but validate anyway: clients can
	// send arbitrary values.
	if days != 7 && days != 30 {
		_ = respondEphemeral(s, i, "기간은 7일 또는 30일만 선택할 수 있습니다.")
		return
	}

	series := b.engine.HistorySeries(userID, now, days)
	msg := fmt.Sprintf("최근 %d일 공부 기록:\n%s", days, renderSeriesChart(series))
	_ = respondMessage(s, i, msg)
}

func (b *studyBot) handlePomodoroCommand(s *discordgo.Session, i *discordgo.InteractionCreate, userID string) {
	var focusMin, restMin int64
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Type != discordgo.ApplicationCommandOptionInteger {
			continue
		}
		switch opt.Name {
		case "집중":
			focusMin = opt.IntValue()
		case "휴식":
			restMin = opt.IntValue()
		}
	}

	channelID := i.ChannelID
	notify := func(msg string) {
		if _, err := s.ChannelMessageSend(channelID, msg); err != nil {
			logger.Warn("pomodoro notify send failed", "error", err)
		}
	}

	err := b.pomo.Start(context.Background(), userID,
		time.Duration(focusMin)*time.Minute,
		time.Duration(restMin)*time.Minute,
		notify)
	if err != nil {
		_ = respondEphemeral(s, i, err.Error())
		return
	}
	b.metrics.pomodoroStarted()
	_ = respondMessage(s, i, fmt.Sprintf("🍅 %d분 집중 타이머를 시작합니다! (휴식 %d분)", focusMin, restMin))
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i == nil {
		return ""
	}
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
