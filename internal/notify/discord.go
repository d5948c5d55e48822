package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/bwmarrin/discordgo"
)

// discordSession adapts a discordgo gateway session to BotSession.
type discordSession struct {
	dg    *discordgo.Session
	ready chan *discordgo.Ready
}

// DialDiscord prepares a bot session for token without connecting.
func DialDiscord(token string) (BotSession, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	// Sending a file to a known channel needs no privileged intents.
	dg.Identify.Intents = discordgo.IntentsGuilds

	s := &discordSession{dg: dg, ready: make(chan *discordgo.Ready, 1)}
	dg.AddHandlerOnce(func(_ *discordgo.Session, r *discordgo.Ready) {
		s.ready <- r
	})
	return s, nil
}

func (s *discordSession) Open(ctx context.Context) (string, error) {
	if err := s.dg.Open(); err != nil {
		return "", err
	}
	select {
	case r := <-s.ready:
		if r.User == nil {
			return "", nil
		}
		return r.User.String(), nil
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for gateway ready: %w", ctx.Err())
	}
}

func (s *discordSession) ResolveChannel(ctx context.Context, channelID string) (string, error) {
	ch, err := s.dg.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return ch.Name, nil
}

func (s *discordSession) SendFile(ctx context.Context, channelID, name string, r io.Reader) error {
	_, err := s.dg.ChannelFileSend(channelID, name, r, discordgo.WithContext(ctx))
	return err
}

func (s *discordSession) Close() error {
	err := s.dg.Close()
	if s.dg.Client != nil {
		s.dg.Client.CloseIdleConnections()
	}
	return err
}
