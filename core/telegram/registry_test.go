package telegram

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"

	"github.com/kmwangi/ethpesa/core/logger"
	"github.com/kmwangi/ethpesa/core/telegram/commands"
)

func TestMain(m *testing.M) {
	_ = logger.InitLogger(nil)
	os.Exit(m.Run())
}

func noopHandler(tele.Context) error { return nil }

func TestListCommandsFiltersHiddenAndAdmin(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: noopHandler, Description: "Show the wallet menu"})
	reg.RegisterCommand("/debug", commands.Command{Handler: noopHandler, Description: "Debug dump", Hidden: true})
	reg.RegisterCommand("/drain", commands.Command{Handler: noopHandler, Description: "Admin drain", AdminOnly: true})

	visible := reg.ListCommands(true)
	require.Len(t, visible, 1)
	assert.Equal(t, "/start", visible[0].Text)
	assert.Equal(t, "Show the wallet menu", visible[0].Description)

	all := reg.ListCommands(false)
	require.Len(t, all, 3)
	// Sorted by command text.
	assert.Equal(t, "/debug", all[0].Text)
	assert.Equal(t, "/drain", all[1].Text)
	assert.Equal(t, "/start", all[2].Text)
}

func TestSetupCommandsGuards(t *testing.T) {
	reg := NewRegistry()

	// Nil bot, nil registry, and an empty registry are all no-ops; none may
	// reach the Telegram API.
	assert.NotPanics(t, func() { SetupCommands(nil, reg) })
	assert.NotPanics(t, func() { SetupCommands(&tele.Bot{}, nil) })
	assert.NotPanics(t, func() { SetupCommands(&tele.Bot{}, reg) })

	reg.RegisterCommand("/hidden", commands.Command{Handler: noopHandler, Description: "Hidden", Hidden: true})
	assert.NotPanics(t, func() { SetupCommands(&tele.Bot{}, reg) })
}

func TestLookupCommandAliases(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Handler:     noopHandler,
		Description: "Show the wallet menu",
		Aliases:     []string{"menu"},
	})

	key, _, ok := reg.LookupCommand("/start")
	require.True(t, ok)
	assert.Equal(t, "/start", key)

	key, _, ok = reg.LookupCommand("menu")
	require.True(t, ok)
	assert.Equal(t, "/start", key)

	_, _, ok = reg.LookupCommand("/missing")
	assert.False(t, ok)
}
