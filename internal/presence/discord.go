package presence

import (
	"context"

	"github.com/llehouerou/plexpresence/internal/discord"
)

// DiscordDialer opens Discord IPC connections bound to clientID.
func DiscordDialer(clientID string) Dialer {
	return DialerFunc(func(ctx context.Context) (Connection, error) {
		conn, err := discord.Open(ctx, clientID)
		if err != nil {
			return nil, err
		}
		return discordConnection{conn}, nil
	})
}

// discordConnection adapts discord.Conn to Connection.
type discordConnection struct {
	*discord.Conn
}

func (d discordConnection) SetStatus(state, details string, done func(error)) {
	d.SetActivity(discord.Activity{State: state, Details: details}, done)
}

func (d discordConnection) ClearStatus(done func(error)) {
	d.ClearActivity(done)
}
