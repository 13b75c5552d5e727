package engine

import (
	"strings"
	"unicode"

	"github.com/KayitWorks/KayitFlow/internal/models"
)

// command is a global, state-independent keyword recognized before any
// stage-specific logic runs.
type command int

const (
	cmdNone command = iota
	cmdCancel
	cmdRestart
	cmdHelp
	cmdSkip
	cmdBack
	cmdStatus
)

// commandTable is the single ordered dispatch table for free-text commands.
// Earlier entries win; the source variants disagreed on evaluation order, so
// cancellation is deliberately first.
var commandTable = []struct {
	cmd      command
	keywords []string
}{
	{cmdCancel, []string{"iptal", "cancel", "vazgeç"}},
	{cmdRestart, []string{"baştan", "restart", "merhaba", "başla", "kayıt", "register", "selam", "hello"}},
	{cmdHelp, []string{"yardım", "help", "menu"}},
	{cmdSkip, []string{"atla"}},
	{cmdBack, []string{"geri", "back"}},
	{cmdStatus, []string{"durum", "status"}},
}

// normalizeKeyword lowercases with Turkish casing rules so "İPTAL" matches "iptal".
func normalizeKeyword(text string) string {
	return strings.ToLowerSpecial(unicode.TurkishCase, strings.TrimSpace(text))
}

// matchCommand returns the command matching the given text, or cmdNone.
func matchCommand(text string) command {
	normalized := normalizeKeyword(text)
	if normalized == "" {
		return cmdNone
	}
	for _, entry := range commandTable {
		for _, kw := range entry.keywords {
			if normalized == kw {
				return entry.cmd
			}
		}
	}
	return cmdNone
}

// buttonCommand maps interactive button identifiers onto commands.
func buttonCommand(id string) command {
	switch id {
	case models.ButtonRegister:
		return cmdRestart
	case models.ButtonStatus:
		return cmdStatus
	case models.ButtonHelp:
		return cmdHelp
	default:
		return cmdNone
	}
}
