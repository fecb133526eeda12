package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"nuclight.org/tgweb/app/shell"
)

var errQuit = errors.New("quit")

// action is a user intent applied to the root on the task queue.
type action func(r *shell.Root)

const usage = `commands:
  focus | blur
  key <ctrl+alt+N>          press and release a key chord
  phone <number> | code <code> | password <password> | change-phone
  open <chat id> | user <user id> | details on|off
  poll | question <text> | add-option | option <id> <text> | send-poll | close-poll
  stickers <set id> | toggle-stickers
  refresh | destroy | logout | quit`

// parseCommand turns one input line into an action.
func parseCommand(ctx context.Context, line string) (action, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}

	name, args := fields[0], fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), name))

	switch name {
	case "quit", "exit":
		return nil, errQuit
	case "help":
		return nil, errors.New(usage)
	case "focus":
		return (*shell.Root).Focus, nil
	case "blur":
		return (*shell.Root).Blur, nil
	case "key":
		if len(args) != 1 {
			return nil, errors.New("usage: key <ctrl+alt+N>")
		}
		ev, err := parseChord(args[0])
		if err != nil {
			return nil, err
		}
		return func(r *shell.Root) {
			r.KeyDown(ev)
			r.KeyUp(ev.Key)
		}, nil
	case "phone":
		return withText(rest, (*shell.Root).SubmitPhoneNumber)
	case "code":
		return withText(rest, (*shell.Root).SubmitCode)
	case "password":
		return withText(rest, (*shell.Root).SubmitPassword)
	case "change-phone":
		return (*shell.Root).ChangePhone, nil
	case "open":
		id, err := parseID(args)
		if err != nil {
			return nil, err
		}
		return func(r *shell.Root) { r.SelectChat(id, 0, false) }, nil
	case "user":
		id, err := parseID(args)
		if err != nil {
			return nil, err
		}
		return func(r *shell.Root) { r.SelectUser(id, false) }, nil
	case "details":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return nil, errors.New("usage: details on|off")
		}
		visible := args[0] == "on"
		return func(r *shell.Root) { r.SetChatDetailsVisible(visible) }, nil
	case "poll":
		return (*shell.Root).NewPoll, nil
	case "question":
		return func(r *shell.Root) { r.PollDialog().SetQuestion(rest) }, nil
	case "add-option":
		return func(r *shell.Root) { r.PollDialog().AddOption() }, nil
	case "option":
		if len(args) < 1 {
			return nil, errors.New("usage: option <id> <text>")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing option id: %w", err)
		}
		text := strings.TrimSpace(strings.TrimPrefix(rest, args[0]))
		return func(r *shell.Root) { r.PollDialog().SetOptionText(id, text) }, nil
	case "send-poll":
		return func(r *shell.Root) { r.PollDialog().Send() }, nil
	case "close-poll":
		return func(r *shell.Root) { r.PollDialog().Close() }, nil
	case "stickers":
		id, err := parseID(args)
		if err != nil {
			return nil, err
		}
		return func(r *shell.Root) { r.OpenStickerSet(id) }, nil
	case "toggle-stickers":
		return func(r *shell.Root) { r.StickerSetDialog().Toggle(ctx) }, nil
	case "refresh":
		return (*shell.Root).Refresh, nil
	case "destroy":
		return (*shell.Root).Destroy, nil
	case "logout":
		return (*shell.Root).LogOut, nil
	default:
		return nil, fmt.Errorf("unknown command %q, try help", name)
	}
}

// parseChord reads chords like "ctrl+alt+1".
func parseChord(s string) (shell.KeyEvent, error) {
	var ev shell.KeyEvent
	parts := strings.Split(strings.ToLower(s), "+")
	for _, p := range parts[:len(parts)-1] {
		switch p {
		case "ctrl":
			ev.Ctrl = true
		case "alt":
			ev.Alt = true
		case "shift":
			ev.Shift = true
		default:
			return ev, fmt.Errorf("unknown modifier %q", p)
		}
	}

	ev.Key = parts[len(parts)-1]
	if ev.Key == "" {
		return ev, errors.New("missing key")
	}
	return ev, nil
}

func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New("expected one id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing id: %w", err)
	}
	return id, nil
}

func withText(text string, fn func(*shell.Root, string)) (action, error) {
	if text == "" {
		return nil, errors.New("missing argument")
	}
	return func(r *shell.Root) { fn(r, text) }, nil
}
