package controller

import (
	"context"
	"errors"

	"nuclight.org/tgweb/pkg/td"
)

const noJournalID = -1

func (c *Controller) journalRequest(ctx context.Context, reqType string) int64 {
	if c.Journal == nil {
		return noJournalID
	}

	id, err := c.Journal.SaveRequest(ctx, reqType)
	if err != nil {
		c.log.Warn("saving request to journal", "td_type", reqType, "error", err)
		return noJournalID
	}

	return id
}

func (c *Controller) journalResult(ctx context.Context, p *pendingRequest, resp td.Response) {
	if c.Journal == nil || p.journalID == noJournalID {
		return
	}

	if err := c.Journal.SaveResult(ctx, p.journalID, resp.Type()); err != nil {
		c.log.Warn("saving result to journal", "td_type", p.reqType, "error", err)
	}
}

func (c *Controller) journalError(ctx context.Context, p *pendingRequest, reqErr error) {
	if c.Journal == nil || p.journalID == noJournalID {
		return
	}

	var code int32
	message := reqErr.Error()

	var tdErr *td.Error
	if errors.As(reqErr, &tdErr) {
		code = tdErr.Code
		message = tdErr.Message
	}

	fatal := Classify(reqErr) == SeverityFatal
	if err := c.Journal.SaveError(ctx, p.journalID, code, message, fatal); err != nil {
		c.log.Warn("saving error to journal", "td_type", p.reqType, "error", err)
	}
}
