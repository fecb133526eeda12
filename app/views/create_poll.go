package views

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"nuclight.org/tgweb/app/stores"
	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/td"
)

// FocusQuestion is the focus index of the question input.
const FocusQuestion = -1

// CreatePollDialog edits the poll draft held by the poll store.
type CreatePollDialog struct {
	lifecycle

	// Now stamps new option ids.
	Now func() time.Time

	log    logger.Logger
	gw     Gateway
	queue  Poster
	polls  *stores.PollStore
	onSend func(*td.InputMessagePoll)

	poll         *stores.Poll
	confirm      bool
	remainLength int
	focus        int
	lastOptionID int64
}

func NewCreatePollDialog(log logger.Logger, gw Gateway, queue Poster, polls *stores.PollStore, onSend func(*td.InputMessagePoll)) *CreatePollDialog {
	return &CreatePollDialog{
		Now:          time.Now,
		log:          log.With("view", "create_poll"),
		gw:           gw,
		queue:        queue,
		polls:        polls,
		onSend:       onSend,
		remainLength: stores.PollQuestionMaxLength,
		focus:        FocusQuestion,
	}
}

func (d *CreatePollDialog) Mount(_ context.Context) {
	if !d.mount() {
		return
	}

	d.poll = d.polls.Poll()
	d.subs.Add(
		d.polls.On(td.TypeClientUpdateDeletePoll, d.onPollChanged),
		d.polls.On(td.TypeClientUpdateDeletePollOption, d.onPollChanged),
		d.polls.On(td.TypeClientUpdatePollOption, d.onPollChanged),
		d.polls.On(td.TypeClientUpdateNewPoll, d.onNewPoll),
		d.polls.On(td.TypeClientUpdateNewPollOption, d.onNewPollOption),
		d.polls.On(td.TypeClientUpdatePollQuestion, d.onPollQuestion),
	)
}

func (d *CreatePollDialog) Unmount() {
	d.unmount()
}

func (d *CreatePollDialog) onNewPoll(td.Object) error {
	d.confirm = false
	d.remainLength = stores.PollQuestionMaxLength
	d.poll = d.polls.Poll()
	d.focus = FocusQuestion
	return nil
}

func (d *CreatePollDialog) onPollQuestion(td.Object) error {
	d.poll = d.polls.Poll()
	if d.poll == nil {
		return nil
	}
	d.remainLength = stores.PollQuestionLength - utf8.RuneCountInString(d.poll.Question)
	return nil
}

func (d *CreatePollDialog) onPollChanged(td.Object) error {
	d.poll = d.polls.Poll()
	if d.poll != nil && d.focus >= len(d.poll.Options) {
		d.focus = len(d.poll.Options) - 1
	}
	return nil
}

// onNewPollOption moves focus to the new option once the current dispatch is over.
func (d *CreatePollDialog) onNewPollOption(td.Object) error {
	d.poll = d.polls.Poll()
	d.queue.Post(func() {
		if !d.Mounted() || d.poll == nil {
			return
		}
		d.focus = len(d.poll.Options) - 1
	})
	return nil
}

// Poll returns the draft as last seen by the dialog.
func (d *CreatePollDialog) Poll() *stores.Poll {
	return d.poll
}

// Focus returns FocusQuestion or the index of the focused option.
func (d *CreatePollDialog) Focus() int {
	return d.focus
}

func (d *CreatePollDialog) Confirming() bool {
	return d.confirm
}

func (d *CreatePollDialog) RemainLength() int {
	return d.remainLength
}

// ShowRemainLength reports whether the question is close enough to the limit
// to show the remaining count.
func (d *CreatePollDialog) ShowRemainLength() bool {
	return d.remainLength <= stores.PollQuestionLength-stores.PollQuestionHintLength
}

func (d *CreatePollDialog) CanAddOption() bool {
	return d.poll != nil && len(d.poll.Options) < stores.PollOptionsMaxCount
}

func (d *CreatePollDialog) CanSend() bool {
	return d.poll.IsValid()
}

// SetQuestion publishes the question text, cut at the typing limit.
func (d *CreatePollDialog) SetQuestion(text string) {
	if d.poll == nil {
		return
	}

	d.gw.ClientUpdate(&td.ClientUpdatePollQuestion{
		Question: truncate(text, stores.PollQuestionMaxLength),
	})
}

func (d *CreatePollDialog) SetOptionText(id int64, text string) {
	if d.poll == nil {
		return
	}

	d.gw.ClientUpdate(&td.ClientUpdatePollOption{
		ID:   id,
		Text: truncate(text, stores.PollOptionLength),
	})
}

func (d *CreatePollDialog) AddOption() {
	if !d.CanAddOption() {
		return
	}

	id := d.Now().UnixMilli()
	if id <= d.lastOptionID {
		id = d.lastOptionID + 1
	}
	d.lastOptionID = id

	d.gw.ClientUpdate(&td.ClientUpdateNewPollOption{
		Option: td.PollOption{ID: id},
	})
}

// DeleteOption removes an option. With backspace, the option is only removed
// if it and every option after it are empty, and focus moves up either way.
func (d *CreatePollDialog) DeleteOption(id int64, backspace bool) {
	if !backspace {
		d.gw.ClientUpdate(&td.ClientUpdateDeletePollOption{ID: id})
		return
	}

	if d.poll == nil {
		return
	}

	index := d.poll.OptionIndex(id)
	remove := true
	for i := max(index, 0); i < len(d.poll.Options); i++ {
		if d.poll.Options[i].Text != "" {
			remove = false
			break
		}
	}

	if remove {
		d.gw.ClientUpdate(&td.ClientUpdateDeletePollOption{ID: id})
	}

	d.focusIndex(index - 1)
}

func (d *CreatePollDialog) FocusPrevOption(id int64) {
	if d.poll == nil {
		return
	}

	d.focusIndex(d.poll.OptionIndex(id) - 1)
}

func (d *CreatePollDialog) FocusNextOption(id int64) {
	if d.poll == nil {
		return
	}

	d.focusNext(d.poll.OptionIndex(id))
}

// QuestionEnter moves from the question to the first option, adding it if needed.
func (d *CreatePollDialog) QuestionEnter() {
	if d.poll == nil {
		return
	}

	d.focusNext(FocusQuestion)
}

func (d *CreatePollDialog) focusNext(index int) {
	next := index + 1
	if next < len(d.poll.Options) {
		d.focus = next
		return
	}

	text := ""
	if index >= 0 && index < len(d.poll.Options) {
		text = d.poll.Options[index].Text
	}
	if len(d.poll.Options) > 0 && text == "" {
		return
	}

	d.AddOption()
}

func (d *CreatePollDialog) focusIndex(index int) {
	if index < 0 || d.poll == nil || index >= len(d.poll.Options) {
		d.focus = FocusQuestion
		return
	}
	d.focus = index
}

// Hint tells how many more options can be added.
func (d *CreatePollDialog) Hint() string {
	if d.poll == nil {
		return ""
	}

	left := stores.PollOptionsMaxCount - len(d.poll.Options)
	switch {
	case left <= 0:
		return "You have added the maximum number of options."
	case left == 1:
		return "You can add 1 more option."
	default:
		return "You can add " + strconv.Itoa(left) + " more options."
	}
}

// Close asks for confirmation if closing would lose input.
func (d *CreatePollDialog) Close() {
	if d.poll.HasData() {
		d.confirm = true
		return
	}

	d.ConfirmationDone()
}

func (d *CreatePollDialog) Send() {
	content := d.polls.InputMessagePoll()
	if content == nil {
		return
	}

	if d.onSend != nil {
		d.onSend(content)
	}

	d.ConfirmationDone()
}

func (d *CreatePollDialog) ConfirmationClose() {
	d.confirm = false
}

// ConfirmationDone discards the draft.
func (d *CreatePollDialog) ConfirmationDone() {
	d.ConfirmationClose()
	d.gw.ClientUpdate(&td.ClientUpdateDeletePoll{})
}

func (d *CreatePollDialog) Render() string {
	if d.poll == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(styleTitle.Render("New Poll"))
	b.WriteString("\n\nQuestion")
	if d.ShowRemainLength() {
		style := styleMuted
		if d.remainLength < 0 {
			style = styleError
		}
		b.WriteString(" " + style.Render(strconv.Itoa(d.remainLength)))
	}
	b.WriteString("\n")
	b.WriteString(d.line(FocusQuestion, d.poll.Question, "Ask a question"))
	b.WriteString("\n\nPoll options\n")
	for i, o := range d.poll.Options {
		b.WriteString(d.line(i, o.Text, "Option"))
		b.WriteString("\n")
	}
	if d.CanAddOption() {
		b.WriteString(styleMuted.Render("+ Add an option"))
		b.WriteString("\n")
	}
	b.WriteString(d.Hint())
	b.WriteString("\n\n")

	actions := []string{button("Cancel")}
	if d.CanSend() {
		actions = append(actions, button("Send"))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, actions...))

	out := styleDialog.Render(b.String())
	if d.confirm {
		confirm := styleTitle.Render("Cancel poll") + "\n" +
			"Are you sure you want to discard this poll?" + "\n" +
			lipgloss.JoinHorizontal(lipgloss.Top, button("Cancel"), button("Ok"))
		out = lipgloss.JoinVertical(lipgloss.Left, out, styleDialog.Render(confirm))
	}

	return out
}

func (d *CreatePollDialog) line(index int, text, placeholder string) string {
	if text == "" {
		text = styleMuted.Render(placeholder)
	}
	if d.focus == index {
		return styleFocused.Render("> ") + text
	}
	return "  " + text
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
