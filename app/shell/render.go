package shell

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"nuclight.org/tgweb/pkg/td"
)

var (
	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7AA2F7"))

	styleMuted = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565F89"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F7768E"))

	styleUnread = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E0AF68"))

	styleOverlay = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#565F89")).
			Padding(0, 1)
)

const fatalErrorText = "Oops! Something went wrong. We need to refresh this page."

// Render draws the current page followed by any open overlays.
func (r *Root) Render() string {
	parts := []string{r.renderPage()}

	if r.Page() == PageMain {
		if s := r.pollDialog.Render(); s != "" {
			parts = append(parts, s)
		}
		if s := r.stickerDialog.Render(); s != "" {
			parts = append(parts, s)
		}
	}
	if c := r.mediaViewerContent; c != nil {
		parts = append(parts, styleOverlay.Render(fmt.Sprintf("Media viewer: chat %d, message %d", c.ChatID, c.MessageID)))
	}
	if c := r.profileMediaViewerContent; c != nil {
		parts = append(parts, styleOverlay.Render(fmt.Sprintf("Profile photos: chat %d", c.ChatID)))
	}
	if f := r.forwardInfo; f != nil {
		parts = append(parts, styleOverlay.Render(fmt.Sprintf("Forward %d message(s) to...", len(f.MessageIDs))))
	}
	if r.fatalError {
		parts = append(parts, styleOverlay.Render(
			styleHeader.Render("Telegram")+"\n"+fatalErrorText+"\n"+"[Log out] [Refresh]",
		))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (r *Root) renderPage() string {
	switch r.Page() {
	case PageInactive:
		return "Telegram is open in another window. Refresh to use it here."
	case PageAuth:
		return r.renderAuth()
	case PageMain:
		return r.renderMain()
	case PageClosed:
		return styleMuted.Render("Session closed.")
	default:
		return styleMuted.Render("Loading...")
	}
}

func (r *Root) renderAuth() string {
	var b strings.Builder

	switch r.authorizationState.Kind {
	case td.AuthorizationStateWaitPhoneNumber:
		b.WriteString(styleHeader.Render("Your Phone"))
		b.WriteString("\nPlease confirm your country code and enter your phone number.")
	case td.AuthorizationStateWaitCode:
		b.WriteString(styleHeader.Render("Enter the code"))
		b.WriteString("\nWe have sent you a message with the code.")
	case td.AuthorizationStateWaitPassword:
		b.WriteString(styleHeader.Render("Your Password"))
		if hint := r.authorizationState.PasswordHint; hint != "" {
			b.WriteString("\nHint: " + hint)
		}
	}

	if r.authError != nil {
		b.WriteString("\n" + styleError.Render(r.authError.Error()))
	}

	return b.String()
}

func (r *Root) renderMain() string {
	var b strings.Builder
	b.WriteString(styleHeader.Render("Chats"))

	for i, chat := range r.stores.Chats.Pinned() {
		line := fmt.Sprintf("%d. %s", i+1, chatTitle(chat))
		if chat.UnreadCount > 0 {
			line += " " + styleUnread.Render(fmt.Sprintf("(%d)", chat.UnreadCount))
		}
		b.WriteString("\n" + line)
	}

	if id := r.stores.App.ChatID(); id != 0 {
		b.WriteString("\n\n" + styleHeader.Render(chatTitle(r.stores.Chats.Get(id))))
		if chat := r.stores.Chats.Get(id); chat != nil && chat.UserID() != 0 {
			if u := r.stores.Users.Get(chat.UserID()); u != nil && u.Username != "" {
				b.WriteString(" " + styleMuted.Render("@"+u.Username))
			}
		}
	}

	main := b.String()
	if r.groups == nil {
		return main
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, main, "   ", r.groups.Render())
}

func chatTitle(chat *td.Chat) string {
	switch {
	case chat == nil:
		return "Unknown chat"
	case chat.Title != "":
		return chat.Title
	default:
		return fmt.Sprintf("Chat %d", chat.ID)
	}
}
