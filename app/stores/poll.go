package stores

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"nuclight.org/tgweb/pkg/logger"
	"nuclight.org/tgweb/pkg/td"
)

const (
	PollOptionsMaxCount = 10

	// PollQuestionLength is the longest question that can be sent.
	PollQuestionLength = 255

	// PollQuestionMaxLength caps typing; the overflow is shown as a negative
	// remaining count.
	PollQuestionMaxLength = 300

	// PollQuestionHintLength is how close to the limit the remaining count appears.
	PollQuestionHintLength = 32

	PollOptionLength = 100
)

// Poll is a draft being edited in the poll dialog. Snapshots are replaced, never
// modified.
type Poll struct {
	ID       int64
	Question string
	Options  []td.PollOption
}

// HasData reports whether discarding the draft would lose user input.
func (p *Poll) HasData() bool {
	if p == nil {
		return false
	}

	if strings.TrimSpace(p.Question) != "" {
		return true
	}
	for _, o := range p.Options {
		if strings.TrimSpace(o.Text) != "" {
			return true
		}
	}

	return false
}

// IsValid reports whether the draft can be sent.
func (p *Poll) IsValid() bool {
	if p == nil {
		return false
	}

	q := strings.TrimSpace(p.Question)
	if q == "" || utf8.RuneCountInString(q) > PollQuestionLength {
		return false
	}

	filled := 0
	for _, o := range p.Options {
		text := strings.TrimSpace(o.Text)
		if text == "" {
			continue
		}
		if utf8.RuneCountInString(text) > PollOptionLength {
			return false
		}
		filled++
	}

	return filled >= 2
}

// InputMessagePoll builds the message content, or nil if the draft is invalid.
func (p *Poll) InputMessagePoll() *td.InputMessagePoll {
	if !p.IsValid() {
		return nil
	}

	content := &td.InputMessagePoll{
		Question: strings.TrimSpace(p.Question),
	}
	for _, o := range p.Options {
		if text := strings.TrimSpace(o.Text); text != "" {
			content.Options = append(content.Options, text)
		}
	}

	return content
}

// OptionIndex returns the position of an option or -1.
func (p *Poll) OptionIndex(id int64) int {
	if p == nil {
		return -1
	}

	for i, o := range p.Options {
		if o.ID == id {
			return i
		}
	}

	return -1
}

func (p *Poll) with(edit func(next *Poll)) *Poll {
	next := &Poll{
		ID:       p.ID,
		Question: p.Question,
		Options:  append([]td.PollOption(nil), p.Options...),
	}
	edit(next)

	return next
}

// PollStore keeps the poll draft. Edits arriving while no draft exists are
// ignored.
type PollStore struct {
	*publisher

	// Now stamps new drafts.
	Now func() time.Time

	log logger.Logger

	mu   sync.RWMutex
	poll *Poll
}

func NewPollStore(log logger.Logger, gw Gateway) *PollStore {
	s := &PollStore{
		publisher: newPublisher(),
		Now:       time.Now,
		log:       log.With("store", "poll"),
	}
	s.subs.Add(gw.OnClientUpdate(s.onClientUpdate))

	return s
}

// Poll returns the current draft or nil.
func (s *PollStore) Poll() *Poll {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.poll
}

// InputMessagePoll returns the content of the current draft, or nil.
func (s *PollStore) InputMessagePoll() *td.InputMessagePoll {
	return s.Poll().InputMessagePoll()
}

func (s *PollStore) onClientUpdate(u td.ClientUpdate) error {
	switch u := u.(type) {
	case *td.ClientUpdateNewPoll:
		s.set(&Poll{
			ID:      s.Now().UnixMilli(),
			Options: []td.PollOption{},
		})
	case *td.ClientUpdateNewPollOption:
		if !s.edit(func(p *Poll) bool {
			if len(p.Options) >= PollOptionsMaxCount {
				return false
			}
			p.Options = append(p.Options, u.Option)
			return true
		}) {
			return nil
		}
	case *td.ClientUpdateDeletePollOption:
		if !s.edit(func(p *Poll) bool {
			i := p.OptionIndex(u.ID)
			if i < 0 {
				return false
			}
			p.Options = append(p.Options[:i], p.Options[i+1:]...)
			return true
		}) {
			return nil
		}
	case *td.ClientUpdatePollOption:
		if !s.edit(func(p *Poll) bool {
			i := p.OptionIndex(u.ID)
			if i < 0 {
				return false
			}
			p.Options[i].Text = u.Text
			return true
		}) {
			return nil
		}
	case *td.ClientUpdatePollQuestion:
		if !s.edit(func(p *Poll) bool {
			p.Question = u.Question
			return true
		}) {
			return nil
		}
	case *td.ClientUpdateDeletePoll:
		s.set(nil)
	default:
		return nil
	}

	return s.emit(u)
}

func (s *PollStore) set(p *Poll) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.poll = p
}

// edit replaces the draft with a modified copy. It reports false, leaving the
// draft untouched, when there is no draft or fn rejects the change.
func (s *PollStore) edit(fn func(next *Poll) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poll == nil {
		s.log.Debug("ignoring edit without a poll draft")
		return false
	}

	ok := true
	next := s.poll.with(func(next *Poll) {
		ok = fn(next)
	})
	if !ok {
		return false
	}

	s.poll = next
	return true
}
